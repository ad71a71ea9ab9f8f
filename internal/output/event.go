package output

import "repovault/internal/backup"

// Event is a lifecycle record for NDJSON streaming output.
//
// Emitted types:
//   - run.started   (carries the repo count once known)
//   - repo.started
//   - repo.finished (carries the repository's Outcome)
//   - run.finished  (carries the process exit code)
type Event struct {
	Type     string          `json:"type"`
	Repo     string          `json:"repo,omitempty"`
	Outcome  *backup.Outcome `json:"outcome,omitempty"`
	Repos    int             `json:"repos,omitempty"`
	ExitCode int             `json:"exit_code,omitempty"`
}

func eventFromOutcome(out backup.Outcome) Event {
	return Event{Type: "repo.finished", Repo: out.RepoName, Outcome: &out}
}
