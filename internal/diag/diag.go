// Package diag collects the non-fatal data-quality conditions a pipeline run
// surfaces for human triage. Geometry precision problems are expected in
// manually digitized camp layers, so conditions are reported alongside the
// output rather than failing the run.
package diag

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind identifies a class of reportable condition.
type Kind string

const (
	// KindOrphanShelter is a shelter intersecting no structure footprint.
	KindOrphanShelter Kind = "orphan_shelter"
	// KindOrphanDoor is a door point near no sequence line.
	KindOrphanDoor Kind = "orphan_door"
	// KindUnrankedShelter is a shelter with zero associated door points.
	KindUnrankedShelter Kind = "unranked_shelter"
	// KindMultiDoor is a shelter with more than one associated door point.
	KindMultiDoor Kind = "multi_door"
	// KindLetterOverflow is a structure run longer than the letter alphabet.
	KindLetterOverflow Kind = "letter_overflow"
	// KindEmptySubBlock is a sub-block with no ranked shelters at all.
	KindEmptySubBlock Kind = "empty_sub_block"
	// KindRankTie marks shelters sharing an identical rank key, usually a
	// duplicate door point that survived upstream cleaning.
	KindRankTie Kind = "rank_tie"
	// KindDuplicateGeometry is an exact duplicate geometry dropped during
	// layer hygiene.
	KindDuplicateGeometry Kind = "duplicate_geometry"
)

// Severity grades how urgently a condition needs review.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityWarn Severity = "warn"
)

// Condition is one reported data-quality finding.
type Condition struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	CampID   string   `json:"camp_id,omitempty"`
	Feature  int      `json:"feature,omitempty"`
	Message  string   `json:"message"`
}

// Report accumulates conditions across pipeline stages. Safe for concurrent
// use; the per-sub-block addressing workers append from separate goroutines.
type Report struct {
	mu         sync.Mutex
	conditions []Condition
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add records a condition and mirrors it to the log at debug level.
func (r *Report) Add(c Condition) {
	r.mu.Lock()
	r.conditions = append(r.conditions, c)
	r.mu.Unlock()

	zap.L().Debug("diagnostic condition",
		zap.String("kind", string(c.Kind)),
		zap.String("severity", string(c.Severity)),
		zap.String("camp_id", c.CampID),
		zap.String("message", c.Message),
	)
}

// Addf records a condition with a formatted message.
func (r *Report) Addf(kind Kind, sev Severity, campID string, feature int, format string, args ...any) {
	r.Add(Condition{
		Kind:     kind,
		Severity: sev,
		CampID:   campID,
		Feature:  feature,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Conditions returns a copy of the collected conditions in insertion order.
func (r *Report) Conditions() []Condition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Condition, len(r.conditions))
	copy(out, r.conditions)
	return out
}

// Counts returns the number of conditions per kind.
func (r *Report) Counts() map[Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Kind]int)
	for _, c := range r.conditions {
		counts[c.Kind]++
	}
	return counts
}

// Len returns the total number of conditions.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conditions)
}

// Merge appends all conditions from other into r without re-logging them.
func (r *Report) Merge(other *Report) {
	conds := other.Conditions()
	r.mu.Lock()
	r.conditions = append(r.conditions, conds...)
	r.mu.Unlock()
}
