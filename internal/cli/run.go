package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"repovault/internal/archive"
	"repovault/internal/backup"
	"repovault/internal/config"
	"repovault/internal/dropbox"
	"repovault/internal/flags"
	gh "repovault/internal/github"
	"repovault/internal/gitmirror"
	"repovault/internal/logger"
	"repovault/internal/output"
)

// Exit code contract:
//
//	0 = clean run, every attempted backup succeeded
//	1 = at least one backup failed or a requested repository was not found
//	2 = fatal error (bad flags, credentials, or the listing call failed)
const (
	exitOK     = 0
	exitFailed = 1
	exitFatal  = 2
)

// applyFileConfig merges the optional YAML config file into cfg. Flags win:
// a file value is only applied when the corresponding flag was not set on
// the command line.
func applyFileConfig(cmd *cobra.Command) error {
	if cfgFile == "" {
		return nil
	}
	fc, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}

	fl := cmd.Flags()
	if fc.GitHubToken != "" && !fl.Changed(flags.FlagGitHubToken) && cfg.Auth.GitHubToken == "" {
		cfg.Auth.GitHubToken = fc.GitHubToken
	}
	if fc.DropboxToken != "" && !fl.Changed(flags.FlagDropboxToken) && cfg.Auth.DropboxToken == "" {
		cfg.Auth.DropboxToken = fc.DropboxToken
	}
	if fc.Folder != "" && !fl.Changed(flags.FlagFolder) {
		cfg.Destination.Folder = fc.Folder
	}
	if len(fc.Exclude) > 0 && !fl.Changed(flags.FlagExclude) {
		cfg.Targeting.Exclude = fc.Exclude
	}
	if fc.IncludePrivate != nil && !fl.Changed(flags.FlagIncludePrivate) {
		cfg.Targeting.IncludePrivate = *fc.IncludePrivate
	}
	if fc.Concurrency > 0 && !fl.Changed(flags.FlagConcurrency) {
		cfg.Runtime.Concurrency = fc.Concurrency
	}
	if fc.CloneTimeout > 0 && !fl.Changed(flags.FlagCloneTimeout) {
		cfg.Runtime.CloneTimeout = fc.CloneTimeout
	}
	return nil
}

func resolveDropboxToken(provided string) string {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok
	}
	return strings.TrimSpace(os.Getenv("DROPBOX_ACCESS_TOKEN"))
}

func newGitHubClient(ctx context.Context) (*gh.Client, error) {
	token, _, err := gh.ResolveAuthToken(ctx, cfg.Auth.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("GitHub auth token is required (set GITHUB_TOKEN or pass --github-token)")
	}
	return gh.NewClient(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, nil))
}

func newOrchestrator(client *gh.Client, log logger.Logger, outMgr *output.Manager) (*backup.Orchestrator, error) {
	store, err := dropbox.New(resolveDropboxToken(cfg.Auth.DropboxToken), log)
	if err != nil {
		return nil, err
	}

	opts := backup.Options{
		Root:        cfg.Destination.Folder,
		Overwrite:   cfg.Destination.Overwrite,
		Concurrency: cfg.Runtime.Concurrency,
		MaxRepos:    cfg.Targeting.MaxRepos,
		OnOutcome: func(out backup.Outcome) {
			_ = outMgr.Write(out)
		},
	}
	return backup.NewOrchestrator(
		client,
		store,
		gitmirror.NewCloner(cfg.Runtime.CloneTimeout),
		archive.Zipper{},
		log,
		opts,
	), nil
}

func setupOutputManager() (*output.Manager, error) {
	outMgr := output.NewManager()

	if err := outMgr.AddSink(output.NewConsoleSink(nil)); err != nil {
		return nil, err
	}
	if cfg.Output.Path != "" {
		fs, err := output.NewFileSink(cfg.Output.Path, cfg.Output.Format)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

func exitCodeForSummary(sum *backup.Summary) int {
	if sum.Error != "" {
		return exitFatal
	}
	if !sum.Clean() {
		return exitFailed
	}
	return exitOK
}

func fatalf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return exitFatal
}
