package main

import (
	"github.com/spf13/cobra"

	"github.com/sheltermap/campaddr/internal/diag"
	"github.com/sheltermap/campaddr/internal/layer"
	"github.com/sheltermap/campaddr/internal/pipeline"
)

// addLayerFlags registers the input-layer flags shared by address and
// validate.
func addLayerFlags(cmd *cobra.Command) {
	cmd.Flags().String("manifest", "", "YAML layer manifest (overrides the individual layer flags)")
	cmd.Flags().String("structures", "", "structure footprint shapefile")
	cmd.Flags().String("shelters", "", "shelter footprint shapefile")
	cmd.Flags().String("lines", "", "sequence line shapefile")
	cmd.Flags().String("doors", "", "door point shapefile")
	cmd.Flags().String("camp-id-field", "", "DBF field holding the shelter sub-block id (default from config)")
	cmd.Flags().String("line-id-field", "", "DBF field holding the sequence line id (default from config)")
}

// resolveManifest builds the layer manifest from --manifest or the individual
// layer flags, falling back to configured field names.
func resolveManifest(cmd *cobra.Command) (*layer.Manifest, error) {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	if manifestPath != "" {
		return layer.LoadManifest(manifestPath)
	}

	structures, _ := cmd.Flags().GetString("structures")
	shelters, _ := cmd.Flags().GetString("shelters")
	lines, _ := cmd.Flags().GetString("lines")
	doors, _ := cmd.Flags().GetString("doors")
	campField, _ := cmd.Flags().GetString("camp-id-field")
	lineField, _ := cmd.Flags().GetString("line-id-field")

	if campField == "" {
		campField = cfg.Layers.CampIDField
	}
	if lineField == "" {
		lineField = cfg.Layers.LineIDField
	}

	m := &layer.Manifest{
		Structures: layer.LayerSpec{Path: structures},
		Shelters:   layer.LayerSpec{Path: shelters, CampIDField: campField},
		Lines:      layer.LayerSpec{Path: lines, LineIDField: lineField},
		Doors:      layer.LayerSpec{Path: doors},
	}
	m.ApplyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// loadLayers reads all four input layers per the manifest.
func loadLayers(m *layer.Manifest, report *diag.Report) (pipeline.Layers, error) {
	structures, err := layer.ReadStructures(m.Structures.Path, report)
	if err != nil {
		return pipeline.Layers{}, err
	}
	shelters, err := layer.ReadShelters(m.Shelters.Path, m.Shelters.CampIDField, report)
	if err != nil {
		return pipeline.Layers{}, err
	}
	lines, err := layer.ReadLines(m.Lines.Path, m.Lines.LineIDField)
	if err != nil {
		return pipeline.Layers{}, err
	}
	doors, err := layer.ReadDoors(m.Doors.Path)
	if err != nil {
		return pipeline.Layers{}, err
	}

	return pipeline.Layers{
		Structures: structures,
		Shelters:   shelters,
		Lines:      lines,
		Doors:      doors,
	}, nil
}
