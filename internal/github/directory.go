package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v81/github"
)

// ErrNotFound indicates that a repository lookup resolved to nothing remotely.
var ErrNotFound = errors.New("repository not found")

// Repository is the metadata snapshot the backup pipeline works with. It is
// immutable once fetched and carries no go-github types, so the orchestrator
// never depends on the API client library directly.
type Repository struct {
	Name          string
	FullName      string
	CloneURL      string
	DefaultBranch string
	Private       bool
	SizeKB        int
	UpdatedAt     time.Time
}

func fromAPI(r *github.Repository) Repository {
	return Repository{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		CloneURL:      r.GetCloneURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		SizeKB:        r.GetSize(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}
}

// ListRepositories returns every repository for account, most recently
// updated first (the host's listing order). With an empty account it lists
// the authenticated user's own repositories, which is the only way private
// repositories show up.
func (c *Client) ListRepositories(ctx context.Context, account string) ([]Repository, error) {
	if account == "" {
		return c.listAuthenticated(ctx)
	}
	return c.listByUser(ctx, account)
}

func (c *Client) listAuthenticated(ctx context.Context) ([]Repository, error) {
	var out []Repository
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: 100},
		Visibility:  "all",
		Affiliation: "owner",
		Sort:        "updated",
		Direction:   "desc",
	}
	for {
		repos, resp, err := c.API.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list authenticated user repos: %w", err)
		}
		for _, r := range repos {
			out = append(out, fromAPI(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) listByUser(ctx context.Context, user string) ([]Repository, error) {
	var out []Repository
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: 100},
		Type:        "all",
		Sort:        "updated",
		Direction:   "desc",
	}
	for {
		repos, resp, err := c.API.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repos for %s: %w", user, err)
		}
		for _, r := range repos {
			out = append(out, fromAPI(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// GetRepository fetches one repository by owner and name. A remote 404 is
// reported as ErrNotFound so callers can count it instead of failing the run.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (Repository, error) {
	repo, resp, err := c.API.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return Repository{}, fmt.Errorf("%s/%s: %w", owner, name, ErrNotFound)
		}
		return Repository{}, fmt.Errorf("failed to resolve repo %s/%s: %w", owner, name, err)
	}
	return fromAPI(repo), nil
}
