// Package backup drives the per-repository pipeline: mirror clone, zip,
// ensure destination folder, upload. It decides which repositories run,
// sequences the work, and aggregates outcomes into a run summary.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	gh "repovault/internal/github"
	"repovault/internal/logger"
)

// Directory lists and resolves repositories on the hosting platform.
type Directory interface {
	ListRepositories(ctx context.Context, account string) ([]gh.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (gh.Repository, error)
}

// Storage is the archive destination.
type Storage interface {
	EnsureFolder(ctx context.Context, path string) error
	UploadFile(ctx context.Context, localPath, remotePath string, overwrite bool) error
}

// Cloner produces a bare mirror clone of a repository.
type Cloner interface {
	MirrorClone(ctx context.Context, cloneURL, dest string) error
}

// Archiver compresses a directory tree into a single file.
type Archiver interface {
	Compress(src, dest string) error
}

// Options configure a run. Concurrency 1 keeps the reference behavior of
// one repository cloned, archived, and uploaded to completion at a time.
type Options struct {
	// Root is the remote base folder under which per-repository subfolders
	// and archives are placed.
	Root string

	// Overwrite replaces an existing archive at the destination path.
	// Off by default: archive names carry a timestamp, and clobbering an
	// earlier backup should be an explicit caller choice.
	Overwrite bool

	// Concurrency caps simultaneous repository backups.
	Concurrency int

	// MaxRepos truncates a full run to at most this many attempted
	// repositories; the rest count as skipped. 0 means unlimited.
	MaxRepos int

	// OnOutcome, if set, observes each outcome as its attempt completes.
	// It may be called from concurrent workers.
	OnOutcome func(Outcome)
}

// Orchestrator owns the injected collaborators for a run.
type Orchestrator struct {
	directory Directory
	storage   Storage
	cloner    Cloner
	archiver  Archiver
	log       logger.Logger
	opts      Options

	// seams for tests
	now     func() time.Time
	tempDir func() (string, error)
}

func NewOrchestrator(d Directory, s Storage, c Cloner, a Archiver, log logger.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Orchestrator{
		directory: d,
		storage:   s,
		cloner:    c,
		archiver:  a,
		log:       log,
		opts:      opts,
		now:       time.Now,
		tempDir:   func() (string, error) { return os.MkdirTemp("", "repovault-*") },
	}
}

// RunFull backs up every repository of account (the authenticated identity
// when account is empty), minus exclusions and, optionally, private repos.
// A listing failure aborts the run; per-repository failures never do.
func (o *Orchestrator) RunFull(ctx context.Context, account string, exclude []string, includePrivate bool) *Summary {
	sum := &Summary{}

	repos, err := o.directory.ListRepositories(ctx, account)
	if err != nil {
		o.log.Error("repository listing failed", "account", account, "error", err)
		sum.Error = fmt.Sprintf("%v: %v", ErrDirectoryUnavailable, err)
		return sum
	}
	sum.Total = len(repos)

	kept, skipped := Filter(repos, exclude, includePrivate)
	sum.Skipped = len(repos) - len(kept)
	for _, repo := range skipped {
		o.log.Info("skipping repository", "repo", repo.Name)
	}
	if o.opts.MaxRepos > 0 && len(kept) > o.opts.MaxRepos {
		sum.Skipped += len(kept) - o.opts.MaxRepos
		kept = kept[:o.opts.MaxRepos]
	}

	sum.Outcomes = o.backupMany(ctx, kept, true)
	for _, out := range sum.Outcomes {
		if out.Succeeded {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}

	o.log.Info("backup run completed",
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
	)
	return sum
}

// RunTargeted backs up the requested names in order. With an account each
// name is resolved directly; otherwise the authenticated listing is fetched
// once and consulted per name. Unresolvable names count as NotFound and are
// never attempted; resolution errors become failed outcomes.
func (o *Orchestrator) RunTargeted(ctx context.Context, names []string, account string) *Summary {
	sum := &Summary{Requested: len(names)}

	var (
		listing       []gh.Repository
		listingErr    error
		listingLoaded bool
	)
	resolve := func(name string) (gh.Repository, error) {
		if account != "" {
			return o.directory.GetRepository(ctx, account, name)
		}
		if !listingLoaded {
			listing, listingErr = o.directory.ListRepositories(ctx, "")
			listingLoaded = true
		}
		if listingErr != nil {
			return gh.Repository{}, listingErr
		}
		for _, r := range listing {
			if r.Name == name {
				return r, nil
			}
		}
		return gh.Repository{}, fmt.Errorf("%s: %w", name, gh.ErrNotFound)
	}

	var toBackup []gh.Repository
	var backupSlot []int // index into results for each toBackup entry
	results := make([]*Outcome, len(names))

	for i, name := range names {
		repo, err := resolve(name)
		if err != nil {
			if errors.Is(err, gh.ErrNotFound) {
				o.log.Error("repository not found", "repo", name)
				sum.NotFound++
				continue
			}
			o.log.Error("failed to resolve repository", "repo", name, "error", err)
			results[i] = &Outcome{
				RepoName:  name,
				Succeeded: false,
				Timestamp: o.now(),
				Error:     err.Error(),
			}
			continue
		}
		toBackup = append(toBackup, repo)
		backupSlot = append(backupSlot, i)
	}

	outcomes := o.backupMany(ctx, toBackup, false)
	for j, out := range outcomes {
		out := out
		results[backupSlot[j]] = &out
	}

	for _, r := range results {
		if r == nil {
			continue // not found, never attempted
		}
		sum.Outcomes = append(sum.Outcomes, *r)
		if r.Succeeded {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}

	o.log.Info("targeted backup completed",
		"requested", sum.Requested,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"not_found", sum.NotFound,
	)
	return sum
}

// backupMany runs backupOne for each repository under the concurrency cap.
// Every repository writes its own outcome slot, so listing order and exact
// counts hold even with parallel completions. Cancellation stops new
// attempts from starting; in-flight attempts finish or abort on their own.
func (o *Orchestrator) backupMany(ctx context.Context, repos []gh.Repository, withMeta bool) []Outcome {
	outcomes := make([]Outcome, len(repos))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, repo := range repos {
		g.Go(func() error {
			err := o.backupOne(ctx, repo)
			out := Outcome{
				RepoName:  repo.Name,
				FullName:  repo.FullName,
				Succeeded: err == nil,
				Timestamp: o.now(),
			}
			if err != nil {
				out.Error = err.Error()
			}
			if withMeta {
				private, sizeKB := repo.Private, repo.SizeKB
				out.Private = &private
				out.SizeKB = &sizeKB
			}
			outcomes[i] = out
			if o.opts.OnOutcome != nil {
				o.opts.OnOutcome(out)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// backupOne runs the per-repository pipeline inside a private temporary
// working directory that is removed on every exit path.
func (o *Orchestrator) backupOne(ctx context.Context, repo gh.Repository) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	workDir, err := o.tempDir()
	if err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	fail := func(step Step, cause error) error {
		o.log.Error("backup step failed", "repo", repo.Name, "step", string(step), "error", cause)
		return &StepError{Step: step, Err: cause}
	}

	mirror := filepath.Join(workDir, repo.Name)
	o.log.Info("cloning repository", "repo", repo.Name, "url", repo.CloneURL)
	if err := o.cloner.MirrorClone(ctx, repo.CloneURL, mirror); err != nil {
		return fail(StepClone, err)
	}

	archiveName := fmt.Sprintf("%s_%s.zip", repo.Name, o.now().UTC().Format("20060102_150405"))
	archivePath := filepath.Join(workDir, archiveName)
	o.log.Info("creating archive", "repo", repo.Name, "archive", archiveName)
	if err := o.archiver.Compress(mirror, archivePath); err != nil {
		return fail(StepArchive, err)
	}

	folder := path.Join(o.opts.Root, repo.Name)
	if err := o.storage.EnsureFolder(ctx, folder); err != nil {
		return fail(StepFolder, err)
	}

	remotePath := path.Join(folder, archiveName)
	o.log.Info("uploading archive", "repo", repo.Name, "remote", remotePath)
	if err := o.storage.UploadFile(ctx, archivePath, remotePath, o.opts.Overwrite); err != nil {
		return fail(StepUpload, err)
	}

	o.log.Info("backed up repository", "repo", repo.Name, "remote", remotePath)
	return nil
}
