package output

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"repovault/internal/backup"
)

// ReportSink accumulates the run and writes a Markdown report on Close.
type ReportSink struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	summary *backup.Summary
	started time.Time
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return &ReportSink{path: path, file: f, started: time.Now()}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum, ok := v.(*backup.Summary); ok {
		s.summary = sum
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("# Backup Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.started.UTC().Format(time.RFC3339))

	if s.summary == nil {
		b.WriteString("No run summary was produced.\n")
	} else {
		writeSummaryMarkdown(&b, s.summary)
	}

	var err error
	if _, werr := s.file.WriteString(b.String()); werr != nil {
		err = werr
	}
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func writeSummaryMarkdown(b *strings.Builder, sum *backup.Summary) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Counter | Value |\n|---|---|\n")
	if sum.Requested > 0 {
		fmt.Fprintf(b, "| Requested | %d |\n", sum.Requested)
	} else {
		fmt.Fprintf(b, "| Total | %d |\n", sum.Total)
	}
	fmt.Fprintf(b, "| Succeeded | %d |\n", sum.Succeeded)
	fmt.Fprintf(b, "| Failed | %d |\n", sum.Failed)
	if sum.Requested > 0 {
		fmt.Fprintf(b, "| Not found | %d |\n", sum.NotFound)
	} else {
		fmt.Fprintf(b, "| Skipped | %d |\n", sum.Skipped)
	}
	if sum.Error != "" {
		fmt.Fprintf(b, "\nRun error: `%s`\n", sum.Error)
	}

	if len(sum.Outcomes) == 0 {
		return
	}

	b.WriteString("\n## Repositories\n\n")
	b.WriteString("| Repository | Result | Completed | Error |\n|---|---|---|---|\n")
	for _, out := range sum.Outcomes {
		result := "ok"
		if !out.Succeeded {
			result = "failed"
		}
		errMsg := out.Error
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			out.RepoName, result, out.Timestamp.UTC().Format(time.RFC3339), errMsg)
	}
}
