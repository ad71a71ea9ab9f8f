package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"repovault/internal/flags"
	"repovault/internal/logger"
	"repovault/internal/output"
)

var backupReposCmd = &cobra.Command{
	Use:   "backup-repos <name>...",
	Short: "Back up specific repositories by name",
	Long: `Back up the named repositories to Dropbox, in the order given.

With --account, each name is resolved directly against that account; a name
that does not exist remotely is counted as not found. Without --account, the
authenticated user's repository list is fetched once and names are looked up
in it.

The process exits non-zero if any backup failed or any name was not found.

Examples:
	repovault backup-repos my-tool my-site

	repovault backup-repos infra --account my-org --folder /Backups`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runBackupRepos(cmd, args))
	},
}

func runBackupRepos(cmd *cobra.Command, names []string) int {
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

	outMgr, err := setupOutputManager()
	if err != nil {
		return fatalf("failed to create output sinks: %v", err)
	}
	defer outMgr.Close()

	orch, err := newOrchestrator(client, log, outMgr)
	if err != nil {
		return fatalf("%v", err)
	}

	_ = outMgr.Write(output.Event{Type: "run.started", Repos: len(names)})
	sum := orch.RunTargeted(ctx, names, cfg.Targeting.Account)
	_ = outMgr.Write(sum)

	code := exitCodeForSummary(sum)
	_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: code})
	return code
}

func init() {
	rootCmd.AddCommand(backupReposCmd)

	backupReposCmd.Flags().StringVar(&cfg.Targeting.Account, flags.FlagAccount, "", "GitHub account owning the repositories (default: authenticated user)")

	backupReposCmd.Flags().StringVar(&cfg.Destination.Folder, flags.FlagFolder, cfg.Destination.Folder, "Dropbox folder for backups")
	backupReposCmd.Flags().BoolVar(&cfg.Destination.Overwrite, flags.FlagOverwrite, false, "Overwrite an existing archive at the destination path")

	backupReposCmd.Flags().StringVar(&cfg.Output.Path, flags.FlagOutput, "", "Write run results to this file (json or ndjson, inferred from extension)")
	backupReposCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown run report to this path")

	backupReposCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent repository backups (1 = strictly sequential)")
	backupReposCmd.Flags().DurationVar(&cfg.Runtime.CloneTimeout, flags.FlagCloneTimeout, cfg.Runtime.CloneTimeout, "Timeout for a single mirror clone")

	backupReposCmd.Flags().StringVar(&cfg.Auth.GitHubToken, flags.FlagGitHubToken, "", "GitHub access token (or set GITHUB_TOKEN)")
	backupReposCmd.Flags().StringVar(&cfg.Auth.DropboxToken, flags.FlagDropboxToken, "", "Dropbox access token (or set DROPBOX_ACCESS_TOKEN)")
}
