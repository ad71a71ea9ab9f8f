// Package gitmirror invokes git to produce bare mirror clones, capturing
// every ref so the resulting archive is a complete backup.
package gitmirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single clone. Archive and upload are bounded by
// their own clients; clone is the step that can hang on a dead remote.
const DefaultTimeout = 300 * time.Second

// runner is the exec seam. Tests substitute a fake; production code shells
// out to git.
type runner interface {
	run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Cloner mirrors repositories with a per-clone timeout.
type Cloner struct {
	Timeout time.Duration

	run runner
}

func NewCloner(timeout time.Duration) *Cloner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cloner{Timeout: timeout, run: execRunner{}}
}

// MirrorClone runs `git clone --mirror cloneURL dest`. A non-zero exit
// returns the captured stderr; exceeding the timeout is reported as such.
// Clone failures are not retried.
func (c *Cloner) MirrorClone(ctx context.Context, cloneURL, dest string) error {
	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if err := c.run.run(runCtx, "git", "clone", "--mirror", cloneURL, dest); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("clone timed out after %s", c.Timeout)
		}
		return fmt.Errorf("git clone --mirror: %w", err)
	}
	return nil
}
