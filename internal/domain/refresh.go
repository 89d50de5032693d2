package domain

import (
	"sort"
	"time"
)

// RefreshFailure records why a single fund could not be refreshed
type RefreshFailure struct {
	SchemeCode string
	Reason     string
}

// RefreshReport summarises a batch NAV refresh for operators
type RefreshReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Updated    []string
	Failed     []RefreshFailure
}

// UpdatedCount returns the number of funds whose NAV was updated
func (r *RefreshReport) UpdatedCount() int {
	return len(r.Updated)
}

// FailedCount returns the number of funds that could not be refreshed
func (r *RefreshReport) FailedCount() int {
	return len(r.Failed)
}

// FailedCodes returns the scheme codes of the failed funds
func (r *RefreshReport) FailedCodes() []string {
	codes := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		codes = append(codes, f.SchemeCode)
	}
	return codes
}

// Sort orders updated codes and failures by scheme code
func (r *RefreshReport) Sort() {
	sort.Strings(r.Updated)
	sort.Slice(r.Failed, func(i, j int) bool {
		return r.Failed[i].SchemeCode < r.Failed[j].SchemeCode
	})
}
