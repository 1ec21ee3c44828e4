// Package addressing turns rank-ordered shelters into structure numbers,
// shelter letters and final address strings, one sub-block at a time.
package addressing

import (
	"sort"

	"github.com/sheltermap/campaddr/internal/diag"
	"github.com/sheltermap/campaddr/internal/model"
)

// Assignment is the addressing outcome for one shelter. ShelterIndex refers
// to the shelter's position in the input layer. StructureNumber is zero and
// Letter empty when the shelter fell back to the degraded address.
type Assignment struct {
	ShelterIndex    int
	CampID          string
	StructureNumber int
	Letter          string
	Address         string
}

// AssignSubBlock computes assignments for all shelters of one sub-block.
// The input slice is not mutated; the result is a fresh list ordered by the
// shelters' original input order.
//
// Shelters without a rank, and ranked shelters that never got a structure id,
// are excluded from numbering and receive the bare campId as their address.
// The rest are sorted by rank (ties kept in input order), grouped into
// maximal contiguous runs of equal structure id, and numbered 1..n in run
// order. A single structure id revisited by the walking path yields multiple
// structure numbers on purpose: the path order, not the id, is what residents
// and enumerators see.
func AssignSubBlock(campID string, shelters []*model.Shelter, report *diag.Report) []Assignment {
	ranked := make([]*model.Shelter, 0, len(shelters))
	var unranked []*model.Shelter

	for _, s := range shelters {
		if s.Ranked() && s.StructureID != nil {
			ranked = append(ranked, s)
		} else {
			unranked = append(unranked, s)
		}
	}

	if len(ranked) == 0 {
		report.Addf(diag.KindEmptySubBlock, diag.SeverityLow, campID, 0,
			"sub-block %s has no ranked shelters; all %d fall back to the bare sub-block address",
			campID, len(shelters))
	}

	// Stable sort keeps input order for equal ranks.
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Rank < *ranked[j].Rank
	})
	for i := 1; i < len(ranked); i++ {
		if *ranked[i].Rank == *ranked[i-1].Rank {
			report.Addf(diag.KindRankTie, diag.SeverityWarn, campID, ranked[i].Index,
				"shelters %d and %d share rank %v; likely a duplicate door point",
				ranked[i-1].Index, ranked[i].Index, *ranked[i].Rank)
		}
	}

	assignments := make([]Assignment, 0, len(shelters))

	structureNumber := 0
	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && *ranked[end].StructureID == *ranked[start].StructureID {
			end++
		}
		structureNumber++

		runLen := end - start
		if runLen > Capacity {
			report.Addf(diag.KindLetterOverflow, diag.SeverityWarn, campID, ranked[start].Index,
				"structure %d in sub-block %s has %d shelters but only %d letters are available",
				structureNumber, campID, runLen, Capacity)
		}

		for i := start; i < end; i++ {
			pos := i - start
			if pos >= Capacity {
				// Beyond alphabet capacity: reported above, the shelter keeps
				// the degraded address instead of a wrapped or reused letter.
				assignments = append(assignments, Assignment{
					ShelterIndex: ranked[i].Index,
					CampID:       campID,
					Address:      Fallback(campID),
				})
				continue
			}
			letter := ShelterLetters[pos]
			assignments = append(assignments, Assignment{
				ShelterIndex:    ranked[i].Index,
				CampID:          campID,
				StructureNumber: structureNumber,
				Letter:          letter,
				Address:         Format(campID, structureNumber, letter),
			})
		}

		start = end
	}

	for _, s := range unranked {
		assignments = append(assignments, Assignment{
			ShelterIndex: s.Index,
			CampID:       campID,
			Address:      Fallback(campID),
		})
	}

	// Deterministic output regardless of how the ranked/unranked split
	// interleaved: order by original input position.
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].ShelterIndex < assignments[j].ShelterIndex
	})

	return assignments
}
