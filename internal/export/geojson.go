// Package export renders pipeline output for review and field use: a GeoJSON
// feature collection for web maps and an XLSX address register for
// enumerators.
package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/model"
)

// SheltersGeoJSON renders the addressed shelter layer as a GeoJSON
// FeatureCollection, features in input order.
func SheltersGeoJSON(shelters []model.Shelter) ([]byte, error) {
	fc := geojson.FeatureCollection{}

	for i := range shelters {
		s := &shelters[i]
		props := map[string]any{
			"camp_id": s.CampID,
			"address": s.Address,
		}
		if s.StructureID != nil {
			props["structure_id"] = *s.StructureID
		}
		if s.Rank != nil {
			props["rank"] = *s.Rank
		}
		if s.StructureNumber != nil {
			props["structure_number"] = *s.StructureNumber
		}
		if s.ShelterLetter != "" {
			props["shelter_letter"] = s.ShelterLetter
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   s.Geom,
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal geojson")
	}
	return data, nil
}

// WriteSheltersGeoJSON writes the addressed shelters to a GeoJSON file.
func WriteSheltersGeoJSON(path string, shelters []model.Shelter) error {
	data, err := SheltersGeoJSON(shelters)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write geojson %s", path)
	}
	zap.L().Info("export: geojson written",
		zap.String("path", path),
		zap.Int("features", len(shelters)),
	)
	return nil
}
