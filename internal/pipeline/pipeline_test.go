package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sheltermap/campaddr/internal/diag"
	"github.com/sheltermap/campaddr/internal/model"
)

func rect(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x0, y0, x1, y0, x1, y1, x0, y1, x0, y0,
	}, []int{10})
}

func door(index int, x, y float64) model.DoorPoint {
	return model.DoorPoint{Index: index, Geom: geom.NewPointFlat(geom.XY, []float64{x, y})}
}

// testCamp builds one sub-block "A1" walked left to right along y=0: two
// shelters in the first structure, one in the second.
func testCamp() Layers {
	return Layers{
		Structures: []model.Structure{
			{ID: 1, Geom: rect(0, 0, 2, 2)},
			{ID: 2, Geom: rect(3, 0, 5, 2)},
		},
		Shelters: []model.Shelter{
			{Index: 0, CampID: "A1", Geom: rect(0.1, 0.1, 0.9, 1.9)},
			{Index: 1, CampID: "A1", Geom: rect(1.1, 0.1, 1.9, 1.9)},
			{Index: 2, CampID: "A1", Geom: rect(3.1, 0.1, 4.9, 1.9)},
		},
		Lines: []model.SequenceLine{
			{LineID: 1, Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 20, 0})},
		},
		Doors: []model.DoorPoint{
			door(0, 0.5, 0.1),
			door(1, 1.5, 0.1),
			door(2, 4.0, 0.1),
		},
	}
}

func addressesOf(shelters []model.Shelter) []string {
	out := make([]string, len(shelters))
	for i, s := range shelters {
		out[i] = s.Address
	}
	return out
}

func TestRun_AddressesFollowWalkingOrder(t *testing.T) {
	p := New(Options{DoorTolerance: 0.5})

	result, err := p.Run(context.Background(), testCamp())
	require.NoError(t, err)

	assert.Equal(t, []string{"A1-1A", "A1-1B", "A1-2A"}, addressesOf(result.Shelters))
	assert.Zero(t, result.Report.Len())

	require.NotNil(t, result.Structures[0].StructureNumber)
	assert.Equal(t, 1, *result.Structures[0].StructureNumber)
	require.NotNil(t, result.Structures[1].StructureNumber)
	assert.Equal(t, 2, *result.Structures[1].StructureNumber)

	assert.Equal(t, 3, result.Summary.Addressed)
	assert.Zero(t, result.Summary.Fallback)
	assert.Equal(t, 1, result.Summary.SubBlocks)
}

func TestRun_InputOrderDoesNotMatter(t *testing.T) {
	p := New(Options{DoorTolerance: 0.5})

	layers := testCamp()
	// Swap the shelter records; the walking order along the line must still
	// win. Index keeps each record's original layer position.
	layers.Shelters[0], layers.Shelters[2] = layers.Shelters[2], layers.Shelters[0]

	result, err := p.Run(context.Background(), layers)
	require.NoError(t, err)

	byIndex := make(map[int]string, len(result.Shelters))
	for _, s := range result.Shelters {
		byIndex[s.Index] = s.Address
	}
	assert.Equal(t, "A1-1A", byIndex[0])
	assert.Equal(t, "A1-1B", byIndex[1])
	assert.Equal(t, "A1-2A", byIndex[2])
}

func TestRun_ShelterWithoutDoorFallsBack(t *testing.T) {
	layers := testCamp()
	layers.Doors = layers.Doors[:2] // shelter 2 loses its door

	p := New(Options{DoorTolerance: 0.5})
	result, err := p.Run(context.Background(), layers)
	require.NoError(t, err)

	assert.Equal(t, []string{"A1-1A", "A1-1B", "A1"}, addressesOf(result.Shelters))
	assert.Equal(t, 1, result.Summary.Fallback)
	assert.Equal(t, 1, result.Report.Counts()[diag.KindUnrankedShelter])
}

func TestRun_OrphanShelterReported(t *testing.T) {
	layers := testCamp()
	layers.Shelters = append(layers.Shelters, model.Shelter{
		Index: 3, CampID: "A1", Geom: rect(50, 50, 51, 51),
	})

	p := New(Options{DoorTolerance: 0.5})
	result, err := p.Run(context.Background(), layers)
	require.NoError(t, err)

	counts := result.Report.Counts()
	assert.Equal(t, 1, counts[diag.KindOrphanShelter])
	// No structure id and no door, so the stray shelter degrades.
	assert.Equal(t, "A1", result.Shelters[3].Address)
}

func TestRun_OrphanDoorReported(t *testing.T) {
	layers := testCamp()
	layers.Doors = append(layers.Doors, door(3, 10, 30))

	p := New(Options{DoorTolerance: 0.5})
	result, err := p.Run(context.Background(), layers)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.Counts()[diag.KindOrphanDoor])
}

func TestRun_MultiDoorKeepsFirst(t *testing.T) {
	layers := testCamp()
	// Second door inside shelter 0, farther along the line than door 0.
	layers.Doors = append(layers.Doors, door(3, 0.7, 0.1))

	p := New(Options{DoorTolerance: 0.5})
	result, err := p.Run(context.Background(), layers)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.Counts()[diag.KindMultiDoor])
	assert.Equal(t, "A1-1A", result.Shelters[0].Address)
}

func TestRun_SubBlocksAreIndependent(t *testing.T) {
	layers := testCamp()

	// A second sub-block laid out above the first with its own line. Its
	// numbering restarts at 1 regardless of the first sub-block.
	layers.Structures = append(layers.Structures, model.Structure{ID: 3, Geom: rect(0, 10, 2, 12)})
	layers.Shelters = append(layers.Shelters, model.Shelter{
		Index: 3, CampID: "B2", Geom: rect(0.1, 10.1, 0.9, 11.9),
	})
	layers.Lines = append(layers.Lines, model.SequenceLine{
		LineID: 2, Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 10, 20, 10}),
	})
	layers.Doors = append(layers.Doors, door(3, 0.5, 10.1))

	p := New(Options{DoorTolerance: 0.5})
	result, err := p.Run(context.Background(), layers)
	require.NoError(t, err)

	assert.Equal(t, []string{"A1-1A", "A1-1B", "A1-2A", "B2-1A"}, addressesOf(result.Shelters))
	assert.Equal(t, 2, result.Summary.SubBlocks)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	layers := testCamp()
	layers.Structures = append(layers.Structures, model.Structure{ID: 3, Geom: rect(0, 10, 2, 12)})
	layers.Shelters = append(layers.Shelters, model.Shelter{
		Index: 3, CampID: "B2", Geom: rect(0.1, 10.1, 0.9, 11.9),
	})
	layers.Lines = append(layers.Lines, model.SequenceLine{
		LineID: 2, Geom: geom.NewLineStringFlat(geom.XY, []float64{0, 10, 20, 10}),
	})
	layers.Doors = append(layers.Doors, door(3, 0.5, 10.1))

	sequential, err := New(Options{DoorTolerance: 0.5, Workers: 1}).Run(context.Background(), layers)
	require.NoError(t, err)

	parallel, err := New(Options{DoorTolerance: 0.5, Workers: 4}).Run(context.Background(), layers)
	require.NoError(t, err)

	assert.Equal(t, addressesOf(sequential.Shelters), addressesOf(parallel.Shelters))
	assert.Equal(t, sequential.Summary.Addressed, parallel.Summary.Addressed)
	assert.Equal(t, sequential.Report.Counts(), parallel.Report.Counts())
}

func TestRun_RejectsMissingCampID(t *testing.T) {
	layers := testCamp()
	layers.Shelters[1].CampID = ""

	_, err := New(Options{DoorTolerance: 0.5}).Run(context.Background(), layers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camp id")
}

func TestRun_RejectsLineLongerThanRankScale(t *testing.T) {
	_, err := New(Options{DoorTolerance: 0.5, RankScale: 10}).Run(context.Background(), testCamp())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank scale")
}

func TestRun_RecordsStageTimings(t *testing.T) {
	result, err := New(Options{DoorTolerance: 0.5}).Run(context.Background(), testCamp())
	require.NoError(t, err)

	names := make([]string, len(result.Summary.Stages))
	for i, stage := range result.Summary.Stages {
		names[i] = stage.Name
	}
	assert.Equal(t, []string{
		"validate", "join_structures", "join_lines", "rank_doors", "join_ranks", "address",
	}, names)
}
