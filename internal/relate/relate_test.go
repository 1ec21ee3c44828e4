package relate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// rect builds a closed axis-aligned polygon covering [x0,x1]x[y0,y1].
func rect(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x0, y0, x1, y0, x1, y1, x0, y1, x0, y0,
	}, []int{10})
}

func point(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

func hline(y, x0, x1 float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, []float64{x0, y, x1, y})
}

func TestSelect_LargestOverlapArea(t *testing.T) {
	ix, err := NewIndex([]geom.T{
		rect(0, 0, 1, 2), // overlaps target by 2
		rect(1, 0, 4, 2), // overlaps target by 6
	})
	require.NoError(t, err)

	m, ok, err := ix.Select(rect(0, 0, 4, 2), LargestOverlapArea, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, m.Ref)
	assert.Equal(t, 2, m.Candidates)
	assert.InDelta(t, 6.0, m.Overlap, 1e-9)
}

func TestSelect_LargestOverlapArea_TieGoesToLowestIndex(t *testing.T) {
	ix, err := NewIndex([]geom.T{
		rect(0, 0, 2, 2),
		rect(0, 0, 2, 2),
	})
	require.NoError(t, err)

	m, ok, err := ix.Select(rect(0, 0, 2, 2), LargestOverlapArea, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Ref)
	assert.Equal(t, 2, m.Candidates)
}

func TestSelect_FirstIntersecting(t *testing.T) {
	ix, err := NewIndex([]geom.T{
		rect(0, 0, 2, 2),
		rect(0, 0, 1, 1),
	})
	require.NoError(t, err)

	// Both contain the point; insertion order decides.
	m, ok, err := ix.Select(point(0.5, 0.5), FirstIntersecting, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Ref)
	assert.Equal(t, 2, m.Candidates)
}

func TestSelect_NoMatch(t *testing.T) {
	ix, err := NewIndex([]geom.T{rect(0, 0, 1, 1)})
	require.NoError(t, err)

	_, ok, err := ix.Select(point(5, 5), FirstIntersecting, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelect_Nearest(t *testing.T) {
	ix, err := NewIndex([]geom.T{
		hline(0, 0, 10), // 0.5 away from the target
		hline(3, 0, 10), // 2.5 away from the target
	})
	require.NoError(t, err)

	m, ok, err := ix.Select(point(5, 0.5), Nearest, 1.0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Ref)
	assert.Equal(t, 1, m.Candidates)
	assert.InDelta(t, 0.5, m.Distance, 1e-9)

	// A wider tolerance admits both lines but the nearest still wins.
	m, ok, err = ix.Select(point(5, 0.5), Nearest, 5.0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Ref)
	assert.Equal(t, 2, m.Candidates)
}

func TestSelect_Nearest_BeyondTolerance(t *testing.T) {
	ix, err := NewIndex([]geom.T{hline(0, 0, 10)})
	require.NoError(t, err)

	_, ok, err := ix.Select(point(5, 3), Nearest, 1.0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelect_Nearest_EquidistantGoesToLowestIndex(t *testing.T) {
	ix, err := NewIndex([]geom.T{
		hline(1, 0, 10),
		hline(2, 0, 10),
	})
	require.NoError(t, err)

	m, ok, err := ix.Select(point(5, 1.5), Nearest, 1.0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Ref)
	assert.Equal(t, 2, m.Candidates)
}

func TestSelect_UnknownPolicy(t *testing.T) {
	ix, err := NewIndex([]geom.T{rect(0, 0, 1, 1)})
	require.NoError(t, err)

	_, _, err = ix.Select(point(0.5, 0.5), Policy("sideways"), 0)
	assert.Error(t, err)
}

func TestNewIndex_NilReference(t *testing.T) {
	_, err := NewIndex([]geom.T{rect(0, 0, 1, 1), nil})
	assert.Error(t, err)
}
