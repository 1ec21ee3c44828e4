// Package rank composes a line identifier and a within-line distance into a
// single scalar key whose ascending order is line id first, then distance
// along the line.
package rank

import "github.com/rotisserie/eris"

// DefaultScale is the default line-id multiplier. It must exceed the longest
// possible sequence line in the dataset's coordinate units so that distance
// can never spill into the line-id component of a key.
const DefaultScale = 1_000_000

// Composer builds rank keys with a validated scale constant.
type Composer struct {
	scale float64
}

// NewComposer returns a Composer using the given scale. The scale is a
// deployment choice: it has to be provably larger than the maximum line
// length in the target dataset.
func NewComposer(scale float64) (*Composer, error) {
	if scale <= 0 {
		return nil, eris.Errorf("rank: scale must be positive, got %v", scale)
	}
	return &Composer{scale: scale}, nil
}

// Scale returns the configured multiplier.
func (c *Composer) Scale() float64 {
	return c.scale
}

// Compose returns lineID*scale + distance. It rejects distances that are
// negative or that reach the scale, since such a distance would corrupt the
// line-id ordering of the composed key.
func (c *Composer) Compose(lineID int, distance float64) (float64, error) {
	if lineID < 0 {
		return 0, eris.Errorf("rank: negative line id %d", lineID)
	}
	if distance < 0 {
		return 0, eris.Errorf("rank: negative distance %v on line %d", distance, lineID)
	}
	if distance >= c.scale {
		return 0, eris.Errorf("rank: distance %v on line %d exceeds scale %v; raise rank.scale in config",
			distance, lineID, c.scale)
	}
	return float64(lineID)*c.scale + distance, nil
}
