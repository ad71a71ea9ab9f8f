package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"repovault/internal/backup"
)

// ConsoleSink renders human-readable progress lines and the final run
// summary block.
type ConsoleSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{writer: w}
}

var (
	okLabel     = color.New(color.FgGreen).SprintFunc()
	failedLabel = color.New(color.FgRed).SprintFunc()
)

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case Event:
		if t.Type == "repo.finished" && t.Outcome != nil {
			return s.writeOutcome(*t.Outcome)
		}
		return nil
	case backup.Outcome:
		return s.writeOutcome(t)
	case *backup.Summary:
		return s.writeSummary(t)
	default:
		return nil
	}
}

func (s *ConsoleSink) writeOutcome(out backup.Outcome) error {
	if out.Succeeded {
		_, err := fmt.Fprintf(s.writer, "%s %s\n", okLabel("ok"), out.RepoName)
		return err
	}
	_, err := fmt.Fprintf(s.writer, "%s %s - %s\n", failedLabel("FAILED"), out.RepoName, out.Error)
	return err
}

func (s *ConsoleSink) writeSummary(sum *backup.Summary) error {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	b.WriteString("\n" + rule + "\n")
	b.WriteString("BACKUP RESULTS\n")
	b.WriteString(rule + "\n")
	if sum.Requested > 0 {
		fmt.Fprintf(&b, "Requested repositories: %d\n", sum.Requested)
	} else {
		fmt.Fprintf(&b, "Total repositories: %d\n", sum.Total)
	}
	fmt.Fprintf(&b, "Successful backups: %d\n", sum.Succeeded)
	fmt.Fprintf(&b, "Failed backups: %d\n", sum.Failed)
	if sum.Requested > 0 {
		fmt.Fprintf(&b, "Not found repositories: %d\n", sum.NotFound)
	} else {
		fmt.Fprintf(&b, "Skipped repositories: %d\n", sum.Skipped)
	}
	if sum.Error != "" {
		fmt.Fprintf(&b, "Run error: %s\n", sum.Error)
	}

	if sum.Failed > 0 {
		b.WriteString("\nFailed repositories:\n")
		for _, out := range sum.Outcomes {
			if out.Succeeded {
				continue
			}
			if out.Error != "" {
				fmt.Fprintf(&b, "  - %s: %s\n", out.RepoName, out.Error)
			} else {
				fmt.Fprintf(&b, "  - %s\n", out.RepoName)
			}
		}
	}

	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	return nil
}
