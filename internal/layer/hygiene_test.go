package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sheltermap/campaddr/internal/diag"
)

func square(x, y, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y, x + size, y, x + size, y + size, x, y + size, x, y,
	}, []int{10})
}

func TestDedupePolygons(t *testing.T) {
	report := diag.NewReport()
	kept := dedupePolygons("structures", []*geom.Polygon{
		square(0, 0, 1),
		square(5, 5, 1),
		square(0, 0, 1), // duplicate of the first
	}, report)

	require.Len(t, kept, 2)
	assert.InDelta(t, 1.0, kept[0].Area(), 1e-9)
	assert.Equal(t, 1, report.Counts()[diag.KindDuplicateGeometry])
}

func TestDedupePolygons_NoDuplicates(t *testing.T) {
	report := diag.NewReport()
	kept := dedupePolygons("structures", []*geom.Polygon{
		square(0, 0, 1),
		square(5, 5, 1),
	}, report)

	assert.Len(t, kept, 2)
	assert.Zero(t, report.Len())
}

func TestGeomHash(t *testing.T) {
	a := square(0, 0, 1)
	b := square(0, 0, 1)
	c := square(0, 0, 2)

	assert.Equal(t, geomHash(a.FlatCoords()), geomHash(b.FlatCoords()))
	assert.NotEqual(t, geomHash(a.FlatCoords()), geomHash(c.FlatCoords()))
}

func TestEmptyPolygon(t *testing.T) {
	assert.True(t, emptyPolygon(nil))
	assert.True(t, emptyPolygon(geom.NewPolygon(geom.XY)))

	// Collapsed ring: all points identical, zero area.
	collapsed := geom.NewPolygonFlat(geom.XY, []float64{1, 1, 1, 1, 1, 1, 1, 1}, []int{8})
	assert.True(t, emptyPolygon(collapsed))

	assert.False(t, emptyPolygon(square(0, 0, 1)))
}
