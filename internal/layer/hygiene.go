package layer

import (
	"fmt"
	"hash/fnv"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/diag"
)

// dedupePolygons drops exact duplicate polygon geometries, keeping the first
// occurrence by input order. Duplicates are a data-quality condition: they
// usually mean a footprint was digitized twice and would otherwise produce
// two shelters at one location with tied ranks.
func dedupePolygons(layerName string, polys []*geom.Polygon, report *diag.Report) []*geom.Polygon {
	seen := make(map[uint64]int, len(polys))
	kept := polys[:0]
	dropped := 0

	for i, p := range polys {
		key := geomHash(p.FlatCoords())
		if first, ok := seen[key]; ok {
			dropped++
			if report != nil {
				report.Addf(diag.KindDuplicateGeometry, diag.SeverityWarn, "", i,
					"%s feature %d duplicates feature %d; dropped", layerName, i, first)
			}
			continue
		}
		seen[key] = i
		kept = append(kept, p)
	}

	if dropped > 0 {
		zap.L().Info("layer: dropped duplicate geometries",
			zap.String("layer", layerName),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(kept)),
		)
	}
	return kept
}

// geomHash produces a content hash of a flat coordinate slice.
func geomHash(flat []float64) uint64 {
	h := fnv.New64a()
	for _, v := range flat {
		fmt.Fprintf(h, "%.9f;", v)
	}
	return h.Sum64()
}

// emptyPolygon reports whether a polygon is degenerate: no ring, or a ring
// with no enclosed area.
func emptyPolygon(p *geom.Polygon) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return true
	}
	return p.Area() == 0
}
