package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sheltermap/campaddr/internal/model"
)

// WriteRegister writes the address register workbook: one row per shelter in
// input order, with the columns field teams use when posting addresses.
func WriteRegister(path string, shelters []model.Shelter) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Addresses")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, title := range []string{"Address", "Sub-block", "Structure No", "Letter", "Structure ID", "Rank"} {
		header.AddCell().SetString(title)
	}

	for i := range shelters {
		s := &shelters[i]
		row := sheet.AddRow()

		row.AddCell().SetString(s.Address)
		row.AddCell().SetString(s.CampID)

		if s.StructureNumber != nil {
			row.AddCell().SetInt(*s.StructureNumber)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(s.ShelterLetter)

		if s.StructureID != nil {
			row.AddCell().SetInt(*s.StructureID)
		} else {
			row.AddCell().SetString("")
		}
		if s.Rank != nil {
			row.AddCell().SetFloat(*s.Rank)
		} else {
			row.AddCell().SetString("")
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save register %s", path)
	}

	zap.L().Info("export: register written",
		zap.String("path", path),
		zap.Int("rows", len(shelters)),
	)
	return nil
}
