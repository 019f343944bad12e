package model

import (
	"cmp"
	"slices"
	"time"
)

// Summary aggregates the checks of one run.
type Summary struct {
	// RunID identifies the run in history and reports.
	RunID string `json:"run_id"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last check finished.
	FinishedAt time.Time `json:"finished_at"`

	// Total is the number of checks.
	Total int `json:"total"`

	// Passed counts successful logins.
	Passed int `json:"passed"`

	// Failed counts probes that did not succeed, skipped rows excluded.
	Failed int `json:"failed"`

	// Skipped counts rows rejected before probing.
	Skipped int `json:"skipped"`

	// ByCategory counts checks per result category.
	ByCategory map[string]int `json:"by_category"`
}

// NewSummary creates an empty summary.
func NewSummary(runID string, startedAt time.Time) *Summary {
	return &Summary{
		RunID:      runID,
		StartedAt:  startedAt,
		ByCategory: make(map[string]int),
	}
}

// Add counts a finished check.
func (s *Summary) Add(c *Check) {
	s.Total++
	s.ByCategory[c.Category()]++
	switch {
	case c.Skipped:
		s.Skipped++
	case c.Result.OK:
		s.Passed++
	default:
		s.Failed++
	}
	if !c.Result.CheckedAt.IsZero() && c.Result.CheckedAt.After(s.FinishedAt) {
		s.FinishedAt = c.Result.CheckedAt
	}
}

// AllPassed reports whether every check succeeded. A run without checks
// passes.
func (s *Summary) AllPassed() bool {
	return s.Failed == 0 && s.Skipped == 0
}

// Categories returns the category names present, sorted by descending count
// and then by name.
func (s *Summary) Categories() []string {
	names := make([]string, 0, len(s.ByCategory))
	for name := range s.ByCategory {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(s.ByCategory[b], s.ByCategory[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return names
}
