package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repovault/internal/config"
	"repovault/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	cfg     = config.New()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "repovault",
	Short: "Back up GitHub repositories to Dropbox",
	Long: `RepoVault mirrors GitHub repositories, compresses each mirror into a zip
archive, and uploads the archives to Dropbox.

Examples:
	# Back up every repository of the authenticated user
	repovault backup-all

	# Back up two specific repositories
	repovault backup-repos my-tool my-site

	# List repositories without backing anything up
	repovault list-repos

Credentials:
	Two access tokens are required: a GitHub token (GITHUB_TOKEN or
	--github-token) and a Dropbox token (DROPBOX_ACCESS_TOKEN or
	--dropbox-token).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (debug level, plus every GitHub API call)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, flags.FlagConfig, "", "Path to an optional YAML config file")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatal)
	}
}
