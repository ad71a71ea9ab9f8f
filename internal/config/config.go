package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Targeting   Targeting
	Destination Destination
	Output      Output
	Runtime     Runtime
	Auth        Auth
}

type Targeting struct {
	// Account is the GitHub account whose repositories are backed up
	// (name or URL; see --account). Empty means the authenticated user.
	Account string

	// Exclude lists repository names to skip (see --exclude).
	// Values may be provided as repeated flags and/or comma-separated lists.
	Exclude []string

	// IncludePrivate controls whether private repositories are backed up
	// (see --include-private).
	IncludePrivate bool

	// MaxRepos limits how many repositories to back up (see --max-repos).
	// 0 means unlimited.
	MaxRepos int

	// DryRun resolves and prints the repository set without backing up
	// (see --dry-run).
	DryRun bool
}

type Destination struct {
	// Folder is the remote base folder for archives (see --folder).
	Folder string

	// Overwrite replaces an existing archive at the destination path
	// (see --overwrite). Off by default.
	Overwrite bool
}

type Output struct {
	// Path writes structured run results to this file (see --output).
	Path string

	// Format selects the format for Path (json or ndjson). If empty, it is
	// inferred from the file extension.
	Format string

	// Report writes a Markdown run report to this path (see --report).
	Report string
}

type Runtime struct {
	// Concurrency caps simultaneous repository backups (see --concurrency).
	// 1 keeps the strictly sequential reference behavior.
	Concurrency int

	// CloneTimeout bounds a single mirror clone (see --clone-timeout).
	CloneTimeout time.Duration

	// Verbose enables debug logging and GitHub API call tracing.
	Verbose bool
}

type Auth struct {
	// GitHubToken is the directory-service access token
	// (--github-token or GITHUB_TOKEN).
	GitHubToken string

	// DropboxToken is the storage-service access token
	// (--dropbox-token or DROPBOX_ACCESS_TOKEN).
	DropboxToken string
}

func New() *Config {
	return &Config{
		Targeting: Targeting{
			IncludePrivate: true,
		},
		Destination: Destination{
			Folder: "/Projects",
		},
		Runtime: Runtime{
			Concurrency:  1,
			CloneTimeout: 300 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)

	if c.Targeting.Account != "" {
		account, err := normalizeAccountSelector(c.Targeting.Account)
		if err != nil {
			return fmt.Errorf("invalid --account value: %w", err)
		}
		c.Targeting.Account = account
	}

	folder := strings.TrimRight(strings.TrimSpace(c.Destination.Folder), "/")
	if folder == "" {
		folder = "/Projects"
	}
	if !strings.HasPrefix(folder, "/") {
		return fmt.Errorf("--folder must be an absolute remote path, got %q", c.Destination.Folder)
	}
	c.Destination.Folder = folder

	if c.Targeting.MaxRepos < 0 {
		return errors.New("--max-repos must be >= 0")
	}
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.CloneTimeout <= 0 {
		return errors.New("--clone-timeout must be > 0")
	}

	if c.Output.Path != "" {
		c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
		if c.Output.Format == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Path))
			switch ext {
			case ".json":
				c.Output.Format = "json"
			case ".ndjson", ".jsonl":
				c.Output.Format = "ndjson"
			default:
				return fmt.Errorf("cannot infer output format from file extension %q", ext)
			}
		} else if c.Output.Format != "json" && c.Output.Format != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.Format)
		}
	}

	return nil
}

// normalizeAccountSelector accepts a raw account name or a GitHub URL like:
//
//	https://github.com/<name>
//	https://github.com/orgs/<name>
//	https://github.com/users/<name>
//	github.com/<name>
func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" || parts[0] == "users" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
