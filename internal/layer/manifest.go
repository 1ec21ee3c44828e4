package layer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest describes where the four input layers live and which DBF fields
// carry the required attributes. A manifest file keeps a camp's layer wiring
// in one reviewable place instead of spread over command-line flags.
type Manifest struct {
	Structures LayerSpec `yaml:"structures"`
	Shelters   LayerSpec `yaml:"shelters"`
	Lines      LayerSpec `yaml:"lines"`
	Doors      LayerSpec `yaml:"doors"`
}

// LayerSpec points at one shapefile and names its attribute fields. Field
// names are matched case-insensitively against the DBF header.
type LayerSpec struct {
	Path        string `yaml:"path"`
	CampIDField string `yaml:"camp_id_field,omitempty"` // shelters only
	LineIDField string `yaml:"line_id_field,omitempty"` // lines only
}

// DefaultCampIDField and DefaultLineIDField are used when a manifest or flag
// leaves the field name blank.
const (
	DefaultCampIDField = "camp_id"
	DefaultLineIDField = "line_id"
)

// LoadManifest reads a YAML manifest from path and fills in field-name
// defaults.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "layer: parse manifest %s", path)
	}
	m.ApplyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyDefaults fills blank attribute field names.
func (m *Manifest) ApplyDefaults() {
	if m.Shelters.CampIDField == "" {
		m.Shelters.CampIDField = DefaultCampIDField
	}
	if m.Lines.LineIDField == "" {
		m.Lines.LineIDField = DefaultLineIDField
	}
}

// Validate checks that every layer has a path.
func (m *Manifest) Validate() error {
	for _, l := range []struct {
		name string
		spec LayerSpec
	}{
		{"structures", m.Structures},
		{"shelters", m.Shelters},
		{"lines", m.Lines},
		{"doors", m.Doors},
	} {
		if l.spec.Path == "" {
			return eris.Errorf("layer: manifest is missing a path for the %s layer", l.name)
		}
	}
	return nil
}
