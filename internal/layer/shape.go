package layer

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// polygonParts converts a shapefile Polygon to singlepart go-geom polygons,
// one per part. Manually digitized camp layers routinely carry multipart
// polygons; downstream stages want one footprint per feature, so parts are
// exploded here.
func polygonParts(p *shp.Polygon) ([]*geom.Polygon, error) {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, nil
	}

	polys := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			// A shapefile ring repeats its first point; fewer than four
			// points cannot close a ring.
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrapf(err, "layer: polygon part %d", i)
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

// polylineToLineString converts a shapefile PolyLine to one go-geom
// LineString, concatenating parts in order. Arc length continues across
// parts, so linear referencing sees the full path as one axis.
func polylineToLineString(pl *shp.PolyLine) *geom.LineString {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) < 2 {
		return nil
	}

	flat := make([]float64, 0, len(pl.Points)*2)
	for _, pt := range pl.Points {
		flat = append(flat, pt.X, pt.Y)
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// pointToGeom converts a shapefile Point.
func pointToGeom(p *shp.Point) *geom.Point {
	if p == nil {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{p.X, p.Y})
}

// polygonToShape converts a go-geom polygon back into a shapefile Polygon
// for output layers. Only the exterior ring is written; camp footprints do
// not carry holes.
func polygonToShape(poly *geom.Polygon) *shp.Polygon {
	ring := poly.LinearRing(0)
	coords := ring.Coords()

	points := make([]shp.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, shp.Point{X: c[0], Y: c[1]})
	}

	b := poly.Bounds()
	return &shp.Polygon{
		Box:       shp.Box{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)},
		NumParts:  1,
		NumPoints: int32(len(points)),
		Parts:     []int32{0},
		Points:    points,
	}
}
