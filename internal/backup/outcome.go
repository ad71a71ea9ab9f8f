package backup

import "time"

// Outcome records one attempted repository backup. It is created once, right
// after the attempt completes, and never mutated.
type Outcome struct {
	RepoName  string    `json:"repo_name"`
	FullName  string    `json:"full_name,omitempty"`
	Succeeded bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Private   *bool     `json:"private,omitempty"`
	SizeKB    *int      `json:"size_kb,omitempty"`
}

// Summary aggregates a whole run. Full runs populate Total and Skipped;
// targeted runs populate Requested and NotFound. Succeeded and Failed count
// attempted repositories in both modes.
//
// Invariants:
//
//	full run:     Total == Succeeded + Failed + Skipped
//	targeted run: Requested == Succeeded + Failed + NotFound
type Summary struct {
	Total     int       `json:"total_repos,omitempty"`
	Requested int       `json:"requested_repos,omitempty"`
	Succeeded int       `json:"successful_backups"`
	Failed    int       `json:"failed_backups"`
	Skipped   int       `json:"skipped_repos,omitempty"`
	NotFound  int       `json:"not_found_repos,omitempty"`
	Error     string    `json:"error,omitempty"`
	Outcomes  []Outcome `json:"backup_details"`
}

// Clean reports whether the run finished with nothing to complain about:
// no failed outcomes, no unresolved names, and no run-level error.
func (s *Summary) Clean() bool {
	return s.Failed == 0 && s.NotFound == 0 && s.Error == ""
}
