package layer

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/model"
)

// WriteShelters writes the augmented shelter layer. Derived attributes that
// never got set stay blank in the DBF, which is how downstream GIS tools
// expect "unset" to look.
func WriteShelters(path string, shelters []model.Shelter) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "layer: create shelters %s", path)
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{
		shp.StringField("camp_id", 16),
		shp.NumberField("struct_id", 10),
		shp.FloatField("rank", 18, 6),
		shp.NumberField("struct_no", 10),
		shp.StringField("letter", 2),
		shp.StringField("address", 32),
	})

	for row, s := range shelters {
		writer.Write(polygonToShape(s.Geom))

		if err := writeAttrs(writer, row, []attr{
			{0, s.CampID},
			{1, intOrNil(s.StructureID)},
			{2, floatOrNil(s.Rank)},
			{3, intOrNil(s.StructureNumber)},
			{4, s.ShelterLetter},
			{5, s.Address},
		}); err != nil {
			return eris.Wrapf(err, "layer: shelter record %d", row)
		}
	}

	zap.L().Info("layer: shelters written",
		zap.String("path", path),
		zap.Int("count", len(shelters)),
	)
	return nil
}

// WriteStructures writes the structure layer augmented with the structure
// number. Structures revisited by the walking path carry their first number.
func WriteStructures(path string, structures []model.Structure) error {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "layer: create structures %s", path)
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{
		shp.NumberField("struct_id", 10),
		shp.NumberField("struct_no", 10),
	})

	for row, st := range structures {
		writer.Write(polygonToShape(st.Geom))

		if err := writeAttrs(writer, row, []attr{
			{0, st.ID},
			{1, intOrNil(st.StructureNumber)},
		}); err != nil {
			return eris.Wrapf(err, "layer: structure record %d", row)
		}
	}

	zap.L().Info("layer: structures written",
		zap.String("path", path),
		zap.Int("count", len(structures)),
	)
	return nil
}

type attr struct {
	field int
	value any
}

func writeAttrs(writer *shp.Writer, row int, attrs []attr) error {
	for _, a := range attrs {
		if a.value == nil {
			continue
		}
		if err := writer.WriteAttribute(row, a.field, a.value); err != nil {
			return eris.Wrapf(err, "write field %d", a.field)
		}
	}
	return nil
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
