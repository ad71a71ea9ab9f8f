package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repovault/internal/backup"
	"repovault/internal/flags"
	"repovault/internal/logger"
	"repovault/internal/output"
)

var backupAllCmd = &cobra.Command{
	Use:   "backup-all",
	Short: "Back up all repositories of an account",
	Long: `Back up every repository of a GitHub account to Dropbox.

Each repository is mirror-cloned, compressed into a timestamped zip archive,
and uploaded under <folder>/<repo-name>/. Repositories named by --exclude are
skipped, as are private repositories when --include-private=false.

A failed repository never aborts the run; it is recorded in the results and
processing continues. The process exits non-zero if any backup failed.

Authentication:
	GitHub:  --github-token, GITHUB_TOKEN, or GitHub CLI (gh auth login)
	Dropbox: --dropbox-token or DROPBOX_ACCESS_TOKEN

Examples:
	export GITHUB_TOKEN="<token>"
	export DROPBOX_ACCESS_TOKEN="<token>"
	repovault backup-all

	# Back up someone else's public repositories into /Backups
	repovault backup-all --account octocat --folder /Backups

	# Skip two repositories and write machine-readable results
	repovault backup-all --exclude experiments,scratch --output results.json`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runBackupAll(cmd))
	},
}

func runBackupAll(cmd *cobra.Command) int {
	if err := applyFileConfig(cmd); err != nil {
		return fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return fatalf("%v", err)
	}

	log, cleanup, err := logger.New(cfg.Runtime.Verbose)
	if err != nil {
		return fatalf("failed to set up logging: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	client, err := newGitHubClient(ctx)
	if err != nil {
		return fatalf("%v", err)
	}

	if cfg.Targeting.DryRun {
		return dryRunBackupAll(ctx, client)
	}

	outMgr, err := setupOutputManager()
	if err != nil {
		return fatalf("failed to create output sinks: %v", err)
	}
	defer outMgr.Close()

	orch, err := newOrchestrator(client, log, outMgr)
	if err != nil {
		return fatalf("%v", err)
	}

	_ = outMgr.Write(output.Event{Type: "run.started"})
	sum := orch.RunFull(ctx, cfg.Targeting.Account, cfg.Targeting.Exclude, cfg.Targeting.IncludePrivate)
	_ = outMgr.Write(sum)

	code := exitCodeForSummary(sum)
	_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: code})
	return code
}

// dryRunBackupAll resolves and filters the repository set, prints the plan,
// and backs up nothing. It still requires a GitHub token; Dropbox
// credentials are not touched.
func dryRunBackupAll(ctx context.Context, client backup.Directory) int {
	repos, err := client.ListRepositories(ctx, cfg.Targeting.Account)
	if err != nil {
		return fatalf("failed to list repositories: %v", err)
	}

	kept, _ := backup.Filter(repos, cfg.Targeting.Exclude, cfg.Targeting.IncludePrivate)
	if cfg.Targeting.MaxRepos > 0 && len(kept) > cfg.Targeting.MaxRepos {
		kept = kept[:cfg.Targeting.MaxRepos]
	}

	fmt.Printf("Would back up %d of %d repositories to %s:\n", len(kept), len(repos), cfg.Destination.Folder)
	for _, repo := range kept {
		fmt.Println(repo.Name)
	}
	return exitOK
}

func init() {
	rootCmd.AddCommand(backupAllCmd)

	backupAllCmd.Flags().StringVar(&cfg.Targeting.Account, flags.FlagAccount, "", "GitHub account to back up (name or URL; default: authenticated user)")
	backupAllCmd.Flags().StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Repository names to exclude (repeatable; comma-separated accepted)")
	backupAllCmd.Flags().BoolVar(&cfg.Targeting.IncludePrivate, flags.FlagIncludePrivate, true, "Include private repositories")
	backupAllCmd.Flags().IntVar(&cfg.Targeting.MaxRepos, flags.FlagMaxRepos, 0, "Maximum number of repositories to back up (0 = unlimited)")
	backupAllCmd.Flags().BoolVar(&cfg.Targeting.DryRun, flags.FlagDryRun, false, "Resolve and print the repository set without backing up")

	backupAllCmd.Flags().StringVar(&cfg.Destination.Folder, flags.FlagFolder, cfg.Destination.Folder, "Dropbox folder for backups")
	backupAllCmd.Flags().BoolVar(&cfg.Destination.Overwrite, flags.FlagOverwrite, false, "Overwrite an existing archive at the destination path")

	backupAllCmd.Flags().StringVar(&cfg.Output.Path, flags.FlagOutput, "", "Write run results to this file (json or ndjson, inferred from extension)")
	backupAllCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown run report to this path")

	backupAllCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent repository backups (1 = strictly sequential)")
	backupAllCmd.Flags().DurationVar(&cfg.Runtime.CloneTimeout, flags.FlagCloneTimeout, cfg.Runtime.CloneTimeout, "Timeout for a single mirror clone")

	backupAllCmd.Flags().StringVar(&cfg.Auth.GitHubToken, flags.FlagGitHubToken, "", "GitHub access token (or set GITHUB_TOKEN)")
	backupAllCmd.Flags().StringVar(&cfg.Auth.DropboxToken, flags.FlagDropboxToken, "", "Dropbox access token (or set DROPBOX_ACCESS_TOKEN)")
}
