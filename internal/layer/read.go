// Package layer reads and writes the camp vector layers as ESRI shapefiles
// and keeps them tidy enough for the addressing pipeline: multipart
// geometries are exploded, empty geometries dropped, exact duplicates
// removed.
package layer

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/diag"
	"github.com/sheltermap/campaddr/internal/model"
)

// ReadStructures loads the structure footprint layer. Structure ids are
// assigned sequentially in input order, after hygiene, and are stable across
// runs on the same input.
func ReadStructures(path string, report *diag.Report) ([]model.Structure, error) {
	polys, err := readPolygons(path, "structures", report)
	if err != nil {
		return nil, err
	}

	structures := make([]model.Structure, len(polys))
	for i, p := range polys {
		structures[i] = model.Structure{ID: i + 1, Geom: p}
	}

	zap.L().Info("layer: structures loaded",
		zap.String("path", path),
		zap.Int("count", len(structures)),
	)
	return structures, nil
}

// ReadShelters loads the shelter layer. Every shelter must carry a non-empty
// camp id; a missing id is an input-integrity error and aborts the run.
func ReadShelters(path, campIDField string, report *diag.Report) ([]model.Shelter, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open shelters %s", path)
	}
	defer func() { _ = reader.Close() }()

	campIdx := fieldIndex(reader, campIDField)
	if campIdx < 0 {
		return nil, eris.Errorf("layer: shelters %s has no %q field", path, campIDField)
	}

	var shelters []model.Shelter
	var skippedEmpty int

	for reader.Next() {
		row, shape := reader.Shape()

		campID := strings.TrimSpace(strings.TrimRight(reader.Attribute(campIdx), "\x00"))
		if campID == "" {
			return nil, eris.Errorf("layer: shelter record %d has an empty %q attribute", row, campIDField)
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skippedEmpty++
			continue
		}
		parts, err := polygonParts(poly)
		if err != nil {
			return nil, eris.Wrapf(err, "layer: shelter record %d", row)
		}
		for _, p := range parts {
			if emptyPolygon(p) {
				skippedEmpty++
				continue
			}
			shelters = append(shelters, model.Shelter{
				Index:  len(shelters),
				CampID: campID,
				Geom:   p,
			})
		}
	}

	shelters = dedupeShelters(shelters, report)

	zap.L().Info("layer: shelters loaded",
		zap.String("path", path),
		zap.Int("count", len(shelters)),
		zap.Int("skipped_empty", skippedEmpty),
	)
	return shelters, nil
}

// ReadLines loads the sequence-line layer. Multipart polylines become one
// continuous path. A line id that appears on more than one record is an
// input-integrity error: two paths cannot share one position in the global
// order.
func ReadLines(path, lineIDField string) ([]model.SequenceLine, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open lines %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, lineIDField)
	if idIdx < 0 {
		return nil, eris.Errorf("layer: lines %s has no %q field", path, lineIDField)
	}

	seen := make(map[int]bool)
	var lines []model.SequenceLine
	var skippedEmpty int

	for reader.Next() {
		row, shape := reader.Shape()

		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		lineID, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Errorf("layer: line record %d has non-integer %q attribute %q", row, lineIDField, raw)
		}

		pl, ok := shape.(*shp.PolyLine)
		if !ok {
			skippedEmpty++
			continue
		}
		ls := polylineToLineString(pl)
		if ls == nil {
			skippedEmpty++
			continue
		}

		if seen[lineID] {
			return nil, eris.Errorf("layer: line id %d appears on more than one record", lineID)
		}
		seen[lineID] = true

		lines = append(lines, model.SequenceLine{LineID: lineID, Geom: ls})
	}

	zap.L().Info("layer: sequence lines loaded",
		zap.String("path", path),
		zap.Int("count", len(lines)),
		zap.Int("skipped_empty", skippedEmpty),
	)
	return lines, nil
}

// ReadDoors loads the door-point layer. Points carry no required attributes.
func ReadDoors(path string) ([]model.DoorPoint, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open doors %s", path)
	}
	defer func() { _ = reader.Close() }()

	var doors []model.DoorPoint
	var skippedEmpty int

	for reader.Next() {
		_, shape := reader.Shape()

		pt, ok := shape.(*shp.Point)
		if !ok {
			skippedEmpty++
			continue
		}
		g := pointToGeom(pt)
		if g == nil {
			skippedEmpty++
			continue
		}
		doors = append(doors, model.DoorPoint{Index: len(doors), Geom: g})
	}

	zap.L().Info("layer: door points loaded",
		zap.String("path", path),
		zap.Int("count", len(doors)),
		zap.Int("skipped_empty", skippedEmpty),
	)
	return doors, nil
}

// readPolygons loads a polygon layer without attributes, exploding multipart
// shapes, dropping empties and deduplicating.
func readPolygons(path, layerName string, report *diag.Report) ([]*geom.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open %s %s", layerName, path)
	}
	defer func() { _ = reader.Close() }()

	var polys []*geom.Polygon
	var skippedEmpty int

	for reader.Next() {
		row, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skippedEmpty++
			continue
		}
		parts, err := polygonParts(poly)
		if err != nil {
			return nil, eris.Wrapf(err, "layer: %s record %d", layerName, row)
		}
		for _, p := range parts {
			if emptyPolygon(p) {
				skippedEmpty++
				continue
			}
			polys = append(polys, p)
		}
	}

	if skippedEmpty > 0 {
		zap.L().Debug("layer: skipped empty geometries",
			zap.String("layer", layerName),
			zap.Int("skipped", skippedEmpty),
		)
	}

	return dedupePolygons(layerName, polys, report), nil
}

// dedupeShelters drops shelters whose geometry exactly duplicates an earlier
// one, reindexing the survivors so Index stays dense and in input order.
func dedupeShelters(shelters []model.Shelter, report *diag.Report) []model.Shelter {
	seen := make(map[uint64]int, len(shelters))
	kept := shelters[:0]

	for i := range shelters {
		key := geomHash(shelters[i].Geom.FlatCoords())
		if first, ok := seen[key]; ok {
			if report != nil {
				report.Addf(diag.KindDuplicateGeometry, diag.SeverityWarn, shelters[i].CampID, i,
					"shelters feature %d duplicates feature %d; dropped", i, first)
			}
			continue
		}
		seen[key] = i
		shelters[i].Index = len(kept)
		kept = append(kept, shelters[i])
	}
	return kept
}

// fieldIndex returns the index of a named DBF field, or -1. Matching is
// case-insensitive; DBF headers are usually upper-cased by digitizing tools.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
