package backup

import gh "repovault/internal/github"

// Filter splits the listing into repositories to back up and repositories
// to skip. Exclusion is evaluated before privacy, so a repository matching
// both is skipped exactly once. Listing order is preserved.
func Filter(repos []gh.Repository, exclude []string, includePrivate bool) (kept, skipped []gh.Repository) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}

	for _, repo := range repos {
		if _, ok := excluded[repo.Name]; ok {
			skipped = append(skipped, repo)
			continue
		}
		if !includePrivate && repo.Private {
			skipped = append(skipped, repo)
			continue
		}
		kept = append(kept, repo)
	}
	return kept, skipped
}
