// Package flags defines canonical CLI flag names shared across the CLI.
// Keeping these as constants avoids drift between Cobra flag wiring and the
// code paths that need to reference flags by name (e.g. config file merging).
// IMPORTANT: These are flag *names* without leading dashes.
package flags

const (
	// Targeting
	FlagAccount        = "account"
	FlagExclude        = "exclude"
	FlagIncludePrivate = "include-private"
	FlagMaxRepos       = "max-repos"
	FlagDryRun         = "dry-run"

	// Destination
	FlagFolder    = "folder"
	FlagOverwrite = "overwrite"

	// Output
	FlagOutput = "output"
	FlagReport = "report"

	// Runtime
	FlagConcurrency  = "concurrency"
	FlagCloneTimeout = "clone-timeout"
	FlagVerbose      = "verbose"
	FlagConfig       = "config"

	// Credentials
	FlagGitHubToken  = "github-token"
	FlagDropboxToken = "dropbox-token"
)
