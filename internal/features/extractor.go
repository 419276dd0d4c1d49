// Package features flattens raw profile records into machine-learning
// feature rows. Extraction is pure: no I/O, and missing fields map to
// documented defaults (0 for counts, "" for text, 0 for ratios with a
// zero denominator) instead of failing.
package features

import (
	"time"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
)

// Columns is the canonical feature order used for the CSV header.
var Columns = []string{
	"username",
	"followers",
	"following",
	"public_repos",
	"public_gists",
	"created_at",
	"account_age_days",
	"has_email",
	"has_location",
	"has_bio",
	"has_company",
	"has_blog",
	"has_twitter",
	"is_hireable",
	"organizations_count",
	"starred_repos_count",
	"watched_repos_count",
	"total_commits",
	"recent_commits_total",
	"recent_active_days",
	"avg_commits_per_day",
	"repositories_analyzed",
	"total_repositories",
	"original_repos",
	"forked_repos",
	"primary_language",
	"language_diversity",
	"total_stars_received",
	"total_forks_received",
	"follower_to_following_ratio",
	"social_influence_score",
	"fetch_mode",
}

// Extract flattens a profile into a feature row
func Extract(p *domain.Profile) domain.FeatureRow {
	row := domain.FeatureRow{
		"username":     p.Username,
		"followers":    p.Followers,
		"following":    p.Following,
		"public_repos": p.PublicRepos,
		"public_gists": p.PublicGists,
		"created_at":   formatTime(p.CreatedAt),

		"has_email":    p.Email != "",
		"has_location": p.Location != "",
		"has_bio":      p.Bio != "",
		"has_company":  p.Company != "",
		"has_blog":     p.Blog != "",
		"has_twitter":  p.TwitterUsername != "",
		"is_hireable":  p.Hireable,

		"organizations_count": p.OrganizationCount,
		"starred_repos_count": p.StarredCount,
		"watched_repos_count": p.WatchedCount,

		"total_commits":         p.CommitActivity.TotalCommits,
		"recent_commits_total":  p.CommitActivity.RecentCommits,
		"recent_active_days":    p.CommitActivity.ActiveDays,
		"avg_commits_per_day":   p.CommitActivity.AvgCommitsPerDay(),
		"repositories_analyzed": p.CommitActivity.ReposAnalyzed,
		"total_repositories":    p.CommitActivity.TotalRepositories,

		"original_repos":       p.Portfolio.OriginalRepos,
		"forked_repos":         p.Portfolio.ForkedRepos,
		"primary_language":     p.Portfolio.PrimaryLanguage,
		"language_diversity":   p.Portfolio.LanguageCount,
		"total_stars_received": p.Portfolio.StarsReceived,
		"total_forks_received": p.Portfolio.ForksReceived,

		"fetch_mode": string(activityMode(p)),
	}

	row["account_age_days"] = accountAgeDays(p.CreatedAt)
	row["follower_to_following_ratio"] = followRatio(p.Followers, p.Following)
	row["social_influence_score"] = influenceScore(p)

	return row
}

// formatTime renders timestamps the way the GitHub API does; the zero
// time becomes an empty cell.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func activityMode(p *domain.Profile) domain.FetchMode {
	if p.CommitActivity.Mode == "" {
		return domain.FetchModeRecent
	}
	return p.CommitActivity.Mode
}

func accountAgeDays(created time.Time) int {
	if created.IsZero() {
		return 0
	}
	days := int(time.Since(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// followRatio is 0 when the account follows nobody
func followRatio(followers, following int) float64 {
	if following <= 0 {
		return 0
	}
	return float64(followers) / float64(following)
}

// influenceScore is the weighted heuristic carried over from the
// exported dataset schema: followers dominate, repository count and
// stars refine.
func influenceScore(p *domain.Profile) float64 {
	return float64(p.Followers)*0.6 +
		float64(p.PublicRepos)*0.3 +
		float64(p.Portfolio.StarsReceived)*0.1
}
