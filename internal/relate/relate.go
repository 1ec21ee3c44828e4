// Package relate implements the spatial join used throughout the pipeline:
// given a target geometry and an indexed set of reference geometries, it
// selects the one reference the target should take its attribute from.
//
// Candidate lookup goes through an R-tree on reference bounding boxes; the
// exact predicates (intersection, overlap area, distance) are evaluated with
// simplefeatures overlay operations.
package relate

import (
	"github.com/dhconnelly/rtreego"
	sf "github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// Policy names the tie-break applied when several references qualify.
type Policy string

const (
	// LargestOverlapArea picks the reference with the greatest intersection
	// area with the target. Default for polygon-in-polygon joins.
	LargestOverlapArea Policy = "largest_overlap_area"
	// FirstIntersecting picks the first intersecting reference in insertion
	// order. Default for point-in-polygon joins, where overlap area is not
	// meaningful.
	FirstIntersecting Policy = "first_intersecting"
	// Nearest picks the reference closest to the target among those within
	// the tolerance. Used for the door-point to sequence-line join, where a
	// digitized point rarely lies exactly on the line. Equidistant references
	// resolve to the lowest insertion index.
	Nearest Policy = "nearest"
)

// Match describes the selected reference. Candidates counts how many
// references qualified before the tie-break; callers use it to surface
// ambiguity diagnostics.
type Match struct {
	Ref        int
	Candidates int
	Overlap    float64 // intersection area, LargestOverlapArea only
	Distance   float64 // distance to the reference, Nearest only
}

// minRectSize keeps degenerate bounding boxes (points, axis-aligned lines)
// acceptable to the R-tree, which rejects zero-length rectangle sides.
const minRectSize = 1e-9

// Index is an immutable spatial index over a reference feature set.
type Index struct {
	tree *rtreego.Rtree
	refs []sf.Geometry
}

// entry wraps one reference for R-tree storage.
type entry struct {
	ref  int
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// NewIndex builds an index over the reference geometries. Insertion order is
// significant: it is the documented tie-break for FirstIntersecting and the
// final tie-break for the other policies.
func NewIndex(refs []geom.T) (*Index, error) {
	tree := rtreego.NewTree(2, 25, 50)
	sfRefs := make([]sf.Geometry, len(refs))

	for i, g := range refs {
		if g == nil {
			return nil, eris.Errorf("relate: reference %d has nil geometry", i)
		}
		sfg, err := toSimpleFeatures(g)
		if err != nil {
			return nil, eris.Wrapf(err, "relate: convert reference %d", i)
		}
		sfRefs[i] = sfg

		rect, err := boundsRect(g, 0)
		if err != nil {
			return nil, eris.Wrapf(err, "relate: bounds of reference %d", i)
		}
		tree.Insert(&entry{ref: i, rect: rect})
	}

	return &Index{tree: tree, refs: sfRefs}, nil
}

// Select resolves the reference for one target under the given policy.
// tolerance expands the candidate search box and, for Nearest, bounds how far
// a qualifying reference may be. The second return is false when no reference
// qualifies; per the join contract that leaves the target's attribute unset
// rather than failing.
func (ix *Index) Select(target geom.T, policy Policy, tolerance float64) (Match, bool, error) {
	if target == nil {
		return Match{}, false, eris.New("relate: nil target geometry")
	}
	sfTarget, err := toSimpleFeatures(target)
	if err != nil {
		return Match{}, false, eris.Wrap(err, "relate: convert target")
	}

	rect, err := boundsRect(target, tolerance)
	if err != nil {
		return Match{}, false, eris.Wrap(err, "relate: target bounds")
	}

	candidates := candidateRefs(ix.tree.SearchIntersect(rect))

	switch policy {
	case FirstIntersecting:
		return ix.selectFirstIntersecting(sfTarget, candidates)
	case LargestOverlapArea:
		return ix.selectLargestOverlap(sfTarget, candidates)
	case Nearest:
		return ix.selectNearest(sfTarget, candidates, tolerance)
	default:
		return Match{}, false, eris.Errorf("relate: unknown policy %q", policy)
	}
}

func (ix *Index) selectFirstIntersecting(target sf.Geometry, candidates []int) (Match, bool, error) {
	chosen := -1
	qualified := 0
	for _, ref := range candidates {
		if sf.Intersects(target, ix.refs[ref]) {
			qualified++
			if chosen < 0 {
				chosen = ref
			}
		}
	}
	if chosen < 0 {
		return Match{}, false, nil
	}
	return Match{Ref: chosen, Candidates: qualified}, true, nil
}

func (ix *Index) selectLargestOverlap(target sf.Geometry, candidates []int) (Match, bool, error) {
	chosen := -1
	qualified := 0
	bestArea := -1.0

	for _, ref := range candidates {
		if !sf.Intersects(target, ix.refs[ref]) {
			continue
		}
		qualified++

		overlap, err := sf.Intersection(target, ix.refs[ref])
		if err != nil {
			return Match{}, false, eris.Wrapf(err, "relate: intersection with reference %d", ref)
		}
		area := overlap.Area()
		if area > bestArea {
			bestArea = area
			chosen = ref
		}
	}

	if chosen < 0 {
		return Match{}, false, nil
	}
	return Match{Ref: chosen, Candidates: qualified, Overlap: bestArea}, true, nil
}

func (ix *Index) selectNearest(target sf.Geometry, candidates []int, tolerance float64) (Match, bool, error) {
	chosen := -1
	qualified := 0
	bestDist := tolerance

	for _, ref := range candidates {
		dist, ok := sf.Distance(target, ix.refs[ref])
		if !ok || dist > tolerance {
			continue
		}
		qualified++
		if chosen < 0 || dist < bestDist {
			bestDist = dist
			chosen = ref
		}
	}

	if chosen < 0 {
		return Match{}, false, nil
	}
	return Match{Ref: chosen, Candidates: qualified, Distance: bestDist}, true, nil
}

// candidateRefs unwraps R-tree results into ascending reference indices so
// every policy scans candidates in insertion order.
func candidateRefs(spatials []rtreego.Spatial) []int {
	refs := make([]int, 0, len(spatials))
	for _, s := range spatials {
		refs = append(refs, s.(*entry).ref)
	}
	// The R-tree returns results in tree order; insertion sort keeps the
	// small candidate lists cheap to reorder.
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j] < refs[j-1]; j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
	return refs
}

// toSimpleFeatures bridges a go-geom geometry into simplefeatures via WKB.
func toSimpleFeatures(g geom.T) (sf.Geometry, error) {
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return sf.Geometry{}, eris.Wrap(err, "marshal wkb")
	}
	sfg, err := sf.UnmarshalWKB(data)
	if err != nil {
		return sf.Geometry{}, eris.Wrap(err, "unmarshal wkb")
	}
	return sfg, nil
}

// boundsRect builds an R-tree rectangle from a geometry's bounding box,
// expanded by pad on every side.
func boundsRect(g geom.T, pad float64) (rtreego.Rect, error) {
	b := g.Bounds()

	lengths := []float64{
		b.Max(0) - b.Min(0) + 2*pad,
		b.Max(1) - b.Min(1) + 2*pad,
	}
	for i := range lengths {
		if lengths[i] < minRectSize {
			lengths[i] = minRectSize
		}
	}

	rect, err := rtreego.NewRect(rtreego.Point{b.Min(0) - pad, b.Min(1) - pad}, lengths)
	if err != nil {
		return rtreego.Rect{}, eris.Wrap(err, "new rect")
	}
	return rect, nil
}
