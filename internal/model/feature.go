package model

import (
	"github.com/twpayne/go-geom"
)

// Structure is a physical building footprint. One structure may host any
// number of shelters. The ID is assigned sequentially over the input layer
// in input order and never changes afterwards.
type Structure struct {
	ID              int
	Geom            *geom.Polygon
	StructureNumber *int
}

// Shelter is one dwelling unit. CampID is the externally assigned sub-block
// grouping key and is required on input; every other attribute is derived by
// the pipeline in strict stage order and written exactly once.
type Shelter struct {
	Index           int // position in the input layer, used as the stable tie-break
	CampID          string
	Geom            *geom.Polygon
	StructureID     *int
	Rank            *float64
	StructureNumber *int
	ShelterLetter   string
	Address         string
}

// Ranked reports whether the shelter received a rank key and therefore
// participates in structure numbering.
func (s *Shelter) Ranked() bool {
	return s.Rank != nil
}

// SequenceLine is a walkable path segment used as the reference axis for
// walking order. LineID orders lines relative to each other.
type SequenceLine struct {
	LineID int
	Geom   *geom.LineString
}

// DoorPoint marks a shelter entrance. LineID, LineDistance and RankKey are
// derived: the sequence line the point lies on or near, the arc-length offset
// of its projection from the line start, and the composed ordering key.
type DoorPoint struct {
	Index        int
	Geom         *geom.Point
	LineID       *int
	LineDistance *float64
	RankKey      *float64
}
