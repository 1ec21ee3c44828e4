// Package pipeline wires the addressing stages together in strict order:
// layer validation, structure-to-shelter join, door-to-line join, linear
// referencing, rank composition, rank-to-shelter join, per-sub-block
// addressing and formatting.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sheltermap/campaddr/internal/addressing"
	"github.com/sheltermap/campaddr/internal/diag"
	"github.com/sheltermap/campaddr/internal/linref"
	"github.com/sheltermap/campaddr/internal/model"
	"github.com/sheltermap/campaddr/internal/rank"
	"github.com/sheltermap/campaddr/internal/relate"
)

// Layers are the four in-memory input collections. The pipeline never
// mutates them; derived attributes land on the copies in the Result.
type Layers struct {
	Structures []model.Structure
	Shelters   []model.Shelter
	Lines      []model.SequenceLine
	Doors      []model.DoorPoint
}

// Options tunes a run.
type Options struct {
	// RankScale is the line-id multiplier for rank keys. It must exceed the
	// longest sequence line; the pipeline verifies this before processing.
	RankScale float64
	// DoorTolerance is the maximum distance between a door point and its
	// sequence line, in dataset units.
	DoorTolerance float64
	// Workers caps concurrent sub-block addressing. Zero means sequential.
	Workers int
}

// Result carries the augmented output layers, the run summary and the
// diagnostics report for human triage.
type Result struct {
	Shelters   []model.Shelter
	Structures []model.Structure
	Summary    *model.RunSummary
	Report     *diag.Report
}

// Pipeline executes addressing runs.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.RankScale <= 0 {
		opts.RankScale = rank.DefaultScale
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{opts: opts}
}

// Run executes the full pipeline over one camp's layers. Input-integrity
// problems abort the run; everything else lands in the diagnostics report.
func (p *Pipeline) Run(ctx context.Context, layers Layers) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	report := diag.NewReport()

	result := &Result{
		Shelters:   append([]model.Shelter(nil), layers.Shelters...),
		Structures: append([]model.Structure(nil), layers.Structures...),
		Report:     report,
	}
	summary := &model.RunSummary{
		Structures: len(layers.Structures),
		Shelters:   len(layers.Shelters),
		Lines:      len(layers.Lines),
		Doors:      len(layers.Doors),
	}
	result.Summary = summary

	trackStage := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, err := fn()
		duration := time.Since(start).Milliseconds()

		summary.Stages = append(summary.Stages, model.StageResult{
			Name:       name,
			DurationMs: duration,
			Metadata:   meta,
		})

		if err != nil {
			log.Error("stage failed", zap.String("stage", name), zap.Int64("duration_ms", duration), zap.Error(err))
			return eris.Wrapf(err, "pipeline: stage %s", name)
		}
		log.Info("stage complete", zap.String("stage", name), zap.Int64("duration_ms", duration))
		return nil
	}

	composer, err := rank.NewComposer(p.opts.RankScale)
	if err != nil {
		return nil, err
	}

	// ===== Stage 1: validate inputs =====
	if err := trackStage("validate", func() (map[string]any, error) {
		return nil, p.validate(layers)
	}); err != nil {
		return nil, err
	}

	// ===== Stage 2: structure -> shelter join =====
	if err := trackStage("join_structures", func() (map[string]any, error) {
		return p.joinStructures(result.Shelters, layers.Structures, report)
	}); err != nil {
		return nil, err
	}

	// ===== Stage 3: door -> line join =====
	doors := append([]model.DoorPoint(nil), layers.Doors...)
	if err := trackStage("join_lines", func() (map[string]any, error) {
		return p.joinLines(doors, layers.Lines, report)
	}); err != nil {
		return nil, err
	}

	// ===== Stage 4+5: linear referencing and rank composition =====
	if err := trackStage("rank_doors", func() (map[string]any, error) {
		return p.rankDoors(doors, layers.Lines, composer)
	}); err != nil {
		return nil, err
	}

	// ===== Stage 6: rank -> shelter join =====
	if err := trackStage("join_ranks", func() (map[string]any, error) {
		return p.joinRanks(result.Shelters, doors, report)
	}); err != nil {
		return nil, err
	}

	// ===== Stage 7: per-sub-block addressing =====
	if err := trackStage("address", func() (map[string]any, error) {
		return p.address(ctx, result, report)
	}); err != nil {
		return nil, err
	}

	summary.Diagnostics = report.Conditions()

	log.Info("run complete",
		zap.Int("shelters", summary.Shelters),
		zap.Int("addressed", summary.Addressed),
		zap.Int("fallback", summary.Fallback),
		zap.Int("diagnostics", len(summary.Diagnostics)),
	)
	return result, nil
}

// validate fails fast on input-integrity errors: geometry that should have
// been filtered upstream, missing camp ids, or a rank scale too small for
// the dataset's lines.
func (p *Pipeline) validate(layers Layers) error {
	for i := range layers.Shelters {
		s := &layers.Shelters[i]
		if s.CampID == "" {
			return eris.Errorf("shelter %d has no camp id", s.Index)
		}
		if s.Geom == nil || s.Geom.NumLinearRings() == 0 || s.Geom.Area() == 0 {
			return eris.Errorf("shelter %d has empty geometry", s.Index)
		}
	}
	for i := range layers.Structures {
		st := &layers.Structures[i]
		if st.Geom == nil || st.Geom.NumLinearRings() == 0 || st.Geom.Area() == 0 {
			return eris.Errorf("structure %d has empty geometry", st.ID)
		}
	}
	for _, line := range layers.Lines {
		if line.Geom == nil || line.Geom.NumCoords() < 2 {
			return eris.Errorf("sequence line %d has degenerate geometry", line.LineID)
		}
		if length := linref.Length(line.Geom); length >= p.opts.RankScale {
			return eris.Errorf("sequence line %d is %v units long, which reaches the rank scale %v; raise rank.scale",
				line.LineID, length, p.opts.RankScale)
		}
	}
	for _, d := range layers.Doors {
		if d.Geom == nil {
			return eris.Errorf("door point %d has no geometry", d.Index)
		}
	}
	return nil
}

// joinStructures attaches each shelter to the structure it overlaps most.
func (p *Pipeline) joinStructures(shelters []model.Shelter, structures []model.Structure, report *diag.Report) (map[string]any, error) {
	refs := make([]geom.T, len(structures))
	for i := range structures {
		refs[i] = structures[i].Geom
	}
	index, err := relate.NewIndex(refs)
	if err != nil {
		return nil, err
	}

	joined := 0
	for i := range shelters {
		match, ok, err := index.Select(shelters[i].Geom, relate.LargestOverlapArea, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Addf(diag.KindOrphanShelter, diag.SeverityWarn, shelters[i].CampID, shelters[i].Index,
				"shelter %d intersects no structure footprint", shelters[i].Index)
			continue
		}
		id := structures[match.Ref].ID
		shelters[i].StructureID = &id
		joined++
	}

	return map[string]any{"joined": joined, "orphans": len(shelters) - joined}, nil
}

// joinLines associates each door point with its nearest sequence line within
// the tolerance.
func (p *Pipeline) joinLines(doors []model.DoorPoint, lines []model.SequenceLine, report *diag.Report) (map[string]any, error) {
	refs := make([]geom.T, len(lines))
	for i := range lines {
		refs[i] = lines[i].Geom
	}
	index, err := relate.NewIndex(refs)
	if err != nil {
		return nil, err
	}

	joined := 0
	for i := range doors {
		match, ok, err := index.Select(doors[i].Geom, relate.Nearest, p.opts.DoorTolerance)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Addf(diag.KindOrphanDoor, diag.SeverityWarn, "", doors[i].Index,
				"door point %d is more than %v units from every sequence line",
				doors[i].Index, p.opts.DoorTolerance)
			continue
		}
		lineID := lines[match.Ref].LineID
		doors[i].LineID = &lineID
		joined++
	}

	return map[string]any{"joined": joined, "orphans": len(doors) - joined}, nil
}

// rankDoors projects each associated door point onto its line and composes
// the rank key.
func (p *Pipeline) rankDoors(doors []model.DoorPoint, lines []model.SequenceLine, composer *rank.Composer) (map[string]any, error) {
	lineByID := make(map[int]*model.SequenceLine, len(lines))
	for i := range lines {
		lineByID[lines[i].LineID] = &lines[i]
	}

	ranked := 0
	for i := range doors {
		if doors[i].LineID == nil {
			continue
		}
		line := lineByID[*doors[i].LineID]

		distance, err := linref.ProjectDistance(line.Geom, doors[i].Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "door %d on line %d", doors[i].Index, line.LineID)
		}
		key, err := composer.Compose(line.LineID, distance)
		if err != nil {
			return nil, eris.Wrapf(err, "door %d", doors[i].Index)
		}

		doors[i].LineDistance = &distance
		doors[i].RankKey = &key
		ranked++
	}

	return map[string]any{"ranked": ranked}, nil
}

// joinRanks propagates door rank keys to the shelters containing them. With
// several doors in one shelter the first in input order wins, which is the
// documented FirstIntersecting tie-break.
func (p *Pipeline) joinRanks(shelters []model.Shelter, doors []model.DoorPoint, report *diag.Report) (map[string]any, error) {
	refs := make([]geom.T, len(doors))
	for i := range doors {
		refs[i] = doors[i].Geom
	}
	index, err := relate.NewIndex(refs)
	if err != nil {
		return nil, err
	}

	ranked := 0
	for i := range shelters {
		match, ok, err := index.Select(shelters[i].Geom, relate.FirstIntersecting, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Addf(diag.KindUnrankedShelter, diag.SeverityWarn, shelters[i].CampID, shelters[i].Index,
				"shelter %d contains no door point", shelters[i].Index)
			continue
		}
		if match.Candidates > 1 {
			report.Addf(diag.KindMultiDoor, diag.SeverityLow, shelters[i].CampID, shelters[i].Index,
				"shelter %d contains %d door points; door %d retained",
				shelters[i].Index, match.Candidates, doors[match.Ref].Index)
		}

		door := &doors[match.Ref]
		if door.RankKey == nil {
			// The retained door never associated with a line, so the shelter
			// stays unranked and falls back.
			report.Addf(diag.KindUnrankedShelter, diag.SeverityWarn, shelters[i].CampID, shelters[i].Index,
				"shelter %d's door point %d has no rank", shelters[i].Index, door.Index)
			continue
		}

		key := *door.RankKey
		shelters[i].Rank = &key
		ranked++
	}

	return map[string]any{"ranked": ranked, "unranked": len(shelters) - ranked}, nil
}

// address partitions shelters by sub-block and assigns structure numbers,
// letters and final addresses. Sub-blocks are independent, so they fan out
// over a bounded worker group; each worker fills a private slot and a private
// report, merged in sub-block order to keep output deterministic.
func (p *Pipeline) address(ctx context.Context, result *Result, report *diag.Report) (map[string]any, error) {
	shelters := result.Shelters

	groups := make(map[string][]*model.Shelter)
	position := make(map[int]int, len(shelters))
	for i := range shelters {
		groups[shelters[i].CampID] = append(groups[shelters[i].CampID], &shelters[i])
		position[shelters[i].Index] = i
	}

	campIDs := make([]string, 0, len(groups))
	for id := range groups {
		campIDs = append(campIDs, id)
	}
	sort.Strings(campIDs)

	assignments := make([][]addressing.Assignment, len(campIDs))
	reports := make([]*diag.Report, len(campIDs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for slot, campID := range campIDs {
		slot, campID := slot, campID
		g.Go(func() error {
			sub := diag.NewReport()
			assignments[slot] = addressing.AssignSubBlock(campID, groups[campID], sub)
			reports[slot] = sub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	addressed, fallback := 0, 0
	firstNumber := make(map[int]int) // structure id -> lowest assigned structure number

	for slot := range campIDs {
		report.Merge(reports[slot])

		for _, a := range assignments[slot] {
			s := &shelters[position[a.ShelterIndex]]
			s.Address = a.Address

			if a.Letter == "" {
				fallback++
				continue
			}
			number := a.StructureNumber
			s.StructureNumber = &number
			s.ShelterLetter = a.Letter
			addressed++

			if s.StructureID != nil {
				if prev, ok := firstNumber[*s.StructureID]; !ok || number < prev {
					firstNumber[*s.StructureID] = number
				}
			}
		}
	}

	for i := range result.Structures {
		if number, ok := firstNumber[result.Structures[i].ID]; ok {
			n := number
			result.Structures[i].StructureNumber = &n
		}
	}

	result.Summary.SubBlocks = len(campIDs)
	result.Summary.Addressed = addressed
	result.Summary.Fallback = fallback

	return map[string]any{
		"sub_blocks": len(campIDs),
		"addressed":  addressed,
		"fallback":   fallback,
	}, nil
}
