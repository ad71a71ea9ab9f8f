package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"repovault/internal/flags"
)

var listReposCmd = &cobra.Command{
	Use:   "list-repos",
	Short: "List the repositories of an account",
	Long: `List every repository of a GitHub account, most recently updated first,
with visibility and size. Nothing is backed up.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runListRepos(cmd))
	},
}

func runListRepos(cmd *cobra.Command) int {
	if err := applyFileConfig(cmd); err != nil {
		return fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return fatalf("%v", err)
	}

	ctx := context.Background()
	client, err := newGitHubClient(ctx)
	if err != nil {
		return fatalf("%v", err)
	}

	repos, err := client.ListRepositories(ctx, cfg.Targeting.Account)
	if err != nil {
		return fatalf("failed to list repositories: %v", err)
	}

	account := cfg.Targeting.Account
	if account == "" {
		account = "authenticated user"
	}
	fmt.Printf("Repositories for %s:\n", account)

	private := color.New(color.FgYellow).SprintFunc()
	for _, repo := range repos {
		visibility := "public"
		if repo.Private {
			visibility = private("private")
		}
		sizeMB := float64(repo.SizeKB) / 1024
		fmt.Printf("%-30s (%-7s) %6.1f MB\n", repo.Name, visibility, sizeMB)
	}
	fmt.Printf("\nTotal: %d repositories\n", len(repos))
	return exitOK
}

func init() {
	rootCmd.AddCommand(listReposCmd)

	listReposCmd.Flags().StringVar(&cfg.Targeting.Account, flags.FlagAccount, "", "GitHub account to list (name or URL; default: authenticated user)")
	listReposCmd.Flags().StringVar(&cfg.Auth.GitHubToken, flags.FlagGitHubToken, "", "GitHub access token (or set GITHUB_TOKEN)")
}
