package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gh "repovault/internal/github"
)

type fakeDirectory struct {
	mu        sync.Mutex
	repos     []gh.Repository
	listErr   error
	listCalls int
	getErr    map[string]error
}

func (d *fakeDirectory) ListRepositories(ctx context.Context, account string) ([]gh.Repository, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listCalls++
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.repos, nil
}

func (d *fakeDirectory) GetRepository(ctx context.Context, owner, name string) (gh.Repository, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.getErr[name]; ok {
		return gh.Repository{}, err
	}
	for _, r := range d.repos {
		if r.Name == name {
			return r, nil
		}
	}
	return gh.Repository{}, fmt.Errorf("%s/%s: %w", owner, name, gh.ErrNotFound)
}

type fakeStorage struct {
	mu         sync.Mutex
	folders    []string
	uploads    []string
	ensureErr  error
	uploadErr  error
	overwrites []bool
}

func (s *fakeStorage) EnsureFolder(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensureErr != nil {
		return s.ensureErr
	}
	s.folders = append(s.folders, path)
	return nil
}

func (s *fakeStorage) UploadFile(ctx context.Context, localPath, remotePath string, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploads = append(s.uploads, remotePath)
	s.overwrites = append(s.overwrites, overwrite)
	return nil
}

type fakeCloner struct {
	mu      sync.Mutex
	cloned  []string
	failFor map[string]error
}

func (c *fakeCloner) MirrorClone(ctx context.Context, cloneURL, dest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failFor[cloneURL]; ok {
		return err
	}
	c.cloned = append(c.cloned, cloneURL)
	return nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []string
	err      error
}

func (a *fakeArchiver) Compress(src, dest string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, dest)
	return nil
}

func newTestOrchestrator(t *testing.T, d Directory, s Storage, c Cloner, a Archiver, opts Options) *Orchestrator {
	t.Helper()
	if opts.Root == "" {
		opts.Root = "/Projects"
	}
	o := NewOrchestrator(d, s, c, a, nil, opts)
	o.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	o.tempDir = func() (string, error) { return os.MkdirTemp(t.TempDir(), "work-*") }
	return o
}

func repoFixture(name string, private bool) gh.Repository {
	return gh.Repository{
		Name:     name,
		FullName: "acme/" + name,
		CloneURL: "https://github.com/acme/" + name + ".git",
		Private:  private,
		SizeKB:   100,
	}
}

func TestRunFullCountsAddUp(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{
		repoFixture("a", false),
		repoFixture("b", true),
		repoFixture("c", false),
	}}
	cloner := &fakeCloner{failFor: map[string]error{
		"https://github.com/acme/c.git": errors.New("remote hung up"),
	}}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	sum := o.RunFull(context.Background(), "", []string{"b"}, true)

	if sum.Total != 3 {
		t.Fatalf("Total = %d, want 3", sum.Total)
	}
	if got := sum.Succeeded + sum.Failed + sum.Skipped; got != sum.Total {
		t.Errorf("succeeded+failed+skipped = %d, want %d", got, sum.Total)
	}
	if sum.Succeeded != 1 || sum.Failed != 1 || sum.Skipped != 1 {
		t.Errorf("counters = %d/%d/%d, want 1/1/1", sum.Succeeded, sum.Failed, sum.Skipped)
	}
	if len(sum.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2 (skipped repos get none)", len(sum.Outcomes))
	}
}

func TestRunFullExcludeSkipsExactlyOne(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{
		repoFixture("keep", false),
		repoFixture("drop", false),
	}}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, &fakeCloner{}, &fakeArchiver{}, Options{})

	sum := o.RunFull(context.Background(), "", []string{"drop"}, true)

	if sum.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", sum.Skipped)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Errorf("Succeeded/Failed = %d/%d, want 1/0", sum.Succeeded, sum.Failed)
	}
	for _, out := range sum.Outcomes {
		if out.RepoName == "drop" {
			t.Errorf("excluded repository %q was attempted", out.RepoName)
		}
	}
}

func TestRunFullExcludesPrivateWhenAsked(t *testing.T) {
	// Listing: a (public, 100KB) and b (private, 50KB) with includePrivate
	// false: a is attempted, b is skipped.
	repoB := repoFixture("b", true)
	repoB.SizeKB = 50
	dir := &fakeDirectory{repos: []gh.Repository{repoFixture("a", false), repoB}}
	cloner := &fakeCloner{}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	sum := o.RunFull(context.Background(), "", nil, false)

	if sum.Total != 2 || sum.Skipped != 1 {
		t.Fatalf("Total/Skipped = %d/%d, want 2/1", sum.Total, sum.Skipped)
	}
	if len(cloner.cloned) != 1 || !strings.Contains(cloner.cloned[0], "/a.git") {
		t.Errorf("cloned = %v, want exactly repo a", cloner.cloned)
	}
	if len(sum.Outcomes) != 1 || sum.Outcomes[0].RepoName != "a" {
		t.Fatalf("outcomes = %+v, want single outcome for a", sum.Outcomes)
	}
	if sum.Outcomes[0].Private == nil || *sum.Outcomes[0].Private {
		t.Errorf("outcome for a should record private=false")
	}
}

func TestRunFullListingFailureAbortsRun(t *testing.T) {
	dir := &fakeDirectory{listErr: errors.New("503 service unavailable")}
	cloner := &fakeCloner{}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	sum := o.RunFull(context.Background(), "", nil, true)

	if sum.Error == "" {
		t.Fatal("expected run error for failed listing")
	}
	if !strings.Contains(sum.Error, ErrDirectoryUnavailable.Error()) {
		t.Errorf("Error = %q, want directory-unavailable taxonomy", sum.Error)
	}
	if sum.Total != 0 || sum.Succeeded != 0 || len(sum.Outcomes) != 0 {
		t.Errorf("aborted run must carry zero outcomes, got %+v", sum)
	}
	if len(cloner.cloned) != 0 {
		t.Error("no clone may be attempted when listing fails")
	}
}

func TestRunFullCloneFailureNeverReachesUpload(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{repoFixture("broken", false)}}
	cloner := &fakeCloner{failFor: map[string]error{
		"https://github.com/acme/broken.git": errors.New("exit status 128"),
	}}
	store := &fakeStorage{}
	arch := &fakeArchiver{}
	o := newTestOrchestrator(t, dir, store, cloner, arch, Options{})

	sum := o.RunFull(context.Background(), "", nil, true)

	if sum.Failed != 1 || sum.Succeeded != 0 {
		t.Fatalf("Failed/Succeeded = %d/%d, want 1/0", sum.Failed, sum.Succeeded)
	}
	if len(arch.archived) != 0 || len(store.folders) != 0 || len(store.uploads) != 0 {
		t.Error("clone failure must short-circuit archive, folder, and upload")
	}
	out := sum.Outcomes[0]
	if out.Succeeded || !strings.Contains(out.Error, "clone") {
		t.Errorf("outcome = %+v, want failed with clone error", out)
	}
}

func TestRunFullFailureDoesNotStopRun(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{
		repoFixture("first", false),
		repoFixture("second", false),
		repoFixture("third", false),
	}}
	cloner := &fakeCloner{failFor: map[string]error{
		"https://github.com/acme/second.git": errors.New("boom"),
	}}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	sum := o.RunFull(context.Background(), "", nil, true)

	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("Succeeded/Failed = %d/%d, want 2/1", sum.Succeeded, sum.Failed)
	}
	// Outcomes keep listing order regardless of which repo failed.
	wantOrder := []string{"first", "second", "third"}
	for i, out := range sum.Outcomes {
		if out.RepoName != wantOrder[i] {
			t.Errorf("outcome[%d] = %s, want %s", i, out.RepoName, wantOrder[i])
		}
	}
}

func TestRunFullUploadPathsAndOverwrite(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{repoFixture("proj", false)}}
	store := &fakeStorage{}
	o := newTestOrchestrator(t, dir, store, &fakeCloner{}, &fakeArchiver{}, Options{
		Root:      "/Backups",
		Overwrite: true,
	})

	sum := o.RunFull(context.Background(), "", nil, true)

	if sum.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, want 1: %+v", sum.Succeeded, sum.Outcomes)
	}
	if len(store.folders) != 1 || store.folders[0] != "/Backups/proj" {
		t.Errorf("folders = %v, want [/Backups/proj]", store.folders)
	}
	want := "/Backups/proj/proj_20240601_120000.zip"
	if len(store.uploads) != 1 || store.uploads[0] != want {
		t.Errorf("uploads = %v, want [%s]", store.uploads, want)
	}
	if !store.overwrites[0] {
		t.Error("overwrite option was not passed through to the upload")
	}
}

func TestRunFullMaxReposTruncatesAndCountsSkipped(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{
		repoFixture("one", false),
		repoFixture("two", false),
		repoFixture("three", false),
	}}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, &fakeCloner{}, &fakeArchiver{}, Options{MaxRepos: 1})

	sum := o.RunFull(context.Background(), "", nil, true)

	if sum.Succeeded != 1 || sum.Skipped != 2 {
		t.Fatalf("Succeeded/Skipped = %d/%d, want 1/2", sum.Succeeded, sum.Skipped)
	}
	if got := sum.Succeeded + sum.Failed + sum.Skipped; got != sum.Total {
		t.Errorf("counter invariant broken: %d != %d", got, sum.Total)
	}
}

func TestRunFullConcurrentCountsStayExact(t *testing.T) {
	var repos []gh.Repository
	failFor := map[string]error{}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("repo%02d", i)
		repos = append(repos, repoFixture(name, false))
		if i%3 == 0 {
			failFor["https://github.com/acme/"+name+".git"] = errors.New("boom")
		}
	}
	dir := &fakeDirectory{repos: repos}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, &fakeCloner{failFor: failFor}, &fakeArchiver{}, Options{Concurrency: 4})

	sum := o.RunFull(context.Background(), "", nil, true)

	if sum.Total != 20 {
		t.Fatalf("Total = %d, want 20", sum.Total)
	}
	if sum.Failed != 7 || sum.Succeeded != 13 {
		t.Errorf("Succeeded/Failed = %d/%d, want 13/7", sum.Succeeded, sum.Failed)
	}
	for i, out := range sum.Outcomes {
		if want := fmt.Sprintf("repo%02d", i); out.RepoName != want {
			t.Fatalf("outcome[%d] = %s, want %s (listing order must survive concurrency)", i, out.RepoName, want)
		}
	}
}

func TestRunTargetedNameAbsentFromEmptyListing(t *testing.T) {
	dir := &fakeDirectory{}
	cloner := &fakeCloner{}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	sum := o.RunTargeted(context.Background(), []string{"x"}, "")

	if sum.Requested != 1 || sum.NotFound != 1 || sum.Succeeded != 0 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want requested:1 not_found:1", sum)
	}
	if len(sum.Outcomes) != 0 {
		t.Error("not-found names must not produce outcomes")
	}
	if len(cloner.cloned) != 0 {
		t.Error("not-found names must never reach the clone step")
	}
}

func TestRunTargetedListsOnce(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{
		repoFixture("a", false),
		repoFixture("b", false),
	}}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, &fakeCloner{}, &fakeArchiver{}, Options{})

	sum := o.RunTargeted(context.Background(), []string{"a", "b", "missing"}, "")

	if dir.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (listing is cached for the call)", dir.listCalls)
	}
	if sum.Succeeded != 2 || sum.NotFound != 1 {
		t.Errorf("Succeeded/NotFound = %d/%d, want 2/1", sum.Succeeded, sum.NotFound)
	}
	if got := sum.Succeeded + sum.Failed + sum.NotFound; got != sum.Requested {
		t.Errorf("counter invariant broken: %d != %d", got, sum.Requested)
	}
}

func TestRunTargetedWithAccountResolvesDirectly(t *testing.T) {
	dir := &fakeDirectory{
		repos:  []gh.Repository{repoFixture("tool", false)},
		getErr: map[string]error{"flaky": errors.New("502 bad gateway")},
	}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, &fakeCloner{}, &fakeArchiver{}, Options{})

	sum := o.RunTargeted(context.Background(), []string{"tool", "gone", "flaky"}, "acme")

	if dir.listCalls != 0 {
		t.Errorf("listCalls = %d, want 0 (direct resolution with account)", dir.listCalls)
	}
	if sum.Succeeded != 1 || sum.NotFound != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 succeeded, 1 not found, 1 failed", sum)
	}
	// Resolution errors other than not-found become failed outcomes.
	var flaky *Outcome
	for i := range sum.Outcomes {
		if sum.Outcomes[i].RepoName == "flaky" {
			flaky = &sum.Outcomes[i]
		}
	}
	if flaky == nil || flaky.Succeeded || !strings.Contains(flaky.Error, "502") {
		t.Errorf("flaky outcome = %+v, want failed with resolution error", flaky)
	}
}

func TestBackupOneRemovesWorkingDirectory(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{repoFixture("tidy", false)}}
	cloner := &fakeCloner{failFor: map[string]error{
		"https://github.com/acme/tidy.git": errors.New("boom"),
	}}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	var workDirs []string
	base := t.TempDir()
	o.tempDir = func() (string, error) {
		d, err := os.MkdirTemp(base, "work-*")
		workDirs = append(workDirs, d)
		return d, err
	}

	o.RunFull(context.Background(), "", nil, true)

	if len(workDirs) != 1 {
		t.Fatalf("workDirs = %d, want 1", len(workDirs))
	}
	if _, err := os.Stat(workDirs[0]); !os.IsNotExist(err) {
		t.Errorf("working directory %s still exists after a failed attempt", workDirs[0])
	}
}

func TestBackupOneCanceledBeforeStart(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{repoFixture("late", false)}}
	cloner := &fakeCloner{}
	o := newTestOrchestrator(t, dir, &fakeStorage{}, cloner, &fakeArchiver{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := o.RunFull(ctx, "", nil, true)

	if sum.Failed != 1 || len(cloner.cloned) != 0 {
		t.Errorf("canceled run: Failed = %d, cloned = %v; want 1 failed, no clones", sum.Failed, cloner.cloned)
	}
}

func TestStepErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := &StepError{Step: StepArchive, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("StepError must unwrap to its cause")
	}
	if got := err.Error(); !strings.Contains(got, "archive") || !strings.Contains(got, "disk full") {
		t.Errorf("Error() = %q, want step and cause", got)
	}
}

func TestArchiveNameUsesUTC(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{repoFixture("tz", false)}}
	store := &fakeStorage{}
	o := newTestOrchestrator(t, dir, store, &fakeCloner{}, &fakeArchiver{}, Options{})
	// A zoned clock must not leak local time into the archive name.
	loc := time.FixedZone("UTC+5", 5*3600)
	o.now = func() time.Time { return time.Date(2024, 6, 1, 17, 0, 0, 0, loc) }

	o.RunFull(context.Background(), "", nil, true)

	want := "/Projects/tz/tz_20240601_120000.zip"
	if len(store.uploads) != 1 || store.uploads[0] != want {
		t.Errorf("uploads = %v, want [%s]", store.uploads, want)
	}
}

func TestWorkingDirectoryIsolation(t *testing.T) {
	dir := &fakeDirectory{repos: []gh.Repository{
		repoFixture("one", false),
		repoFixture("two", false),
	}}
	seen := make(map[string]bool)
	var mu sync.Mutex
	o := newTestOrchestrator(t, dir, &fakeStorage{}, &fakeCloner{}, &fakeArchiver{}, Options{Concurrency: 2})

	base := t.TempDir()
	o.tempDir = func() (string, error) {
		d, err := os.MkdirTemp(base, "work-*")
		mu.Lock()
		seen[d] = true
		mu.Unlock()
		return d, err
	}

	o.RunFull(context.Background(), "", nil, true)

	if len(seen) != 2 {
		t.Errorf("working directories = %d, want one private dir per repository", len(seen))
	}
	for d := range seen {
		if !strings.HasPrefix(d, base+string(filepath.Separator)) {
			t.Errorf("unexpected working directory %s", d)
		}
	}
}
