package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
)

func sampleProfile() *domain.Profile {
	return &domain.Profile{
		Username:    "sampledev",
		Followers:   100,
		Following:   40,
		PublicRepos: 25,
		PublicGists: 3,
		CreatedAt:   time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC),

		Email:           "dev@example.com",
		Location:        "Tokyo",
		Bio:             "systems programmer",
		TwitterUsername: "dev",
		Hireable:        true,

		OrganizationCount: 2,
		StarredCount:      150,
		WatchedCount:      12,

		CommitActivity: domain.CommitActivity{
			RecentCommits:     48,
			ActiveDays:        16,
			ReposAnalyzed:     10,
			TotalRepositories: 20,
			Mode:              domain.FetchModeRecent,
		},
		Portfolio: domain.Portfolio{
			OriginalRepos:   20,
			ForkedRepos:     5,
			PrimaryLanguage: "Go",
			LanguageCount:   4,
			StarsReceived:   300,
			ForksReceived:   45,
		},
	}
}

func TestExtract(t *testing.T) {
	row := Extract(sampleProfile())

	assert.Equal(t, "sampledev", row["username"])
	assert.Equal(t, 100, row["followers"])
	assert.Equal(t, "2015-06-01T00:00:00Z", row["created_at"])
	assert.Equal(t, true, row["has_email"])
	assert.Equal(t, true, row["has_location"])
	assert.Equal(t, true, row["has_bio"])
	assert.Equal(t, false, row["has_company"])
	assert.Equal(t, false, row["has_blog"])
	assert.Equal(t, true, row["has_twitter"])
	assert.Equal(t, true, row["is_hireable"])
	assert.Equal(t, "Go", row["primary_language"])
	assert.Equal(t, "recent", row["fetch_mode"])

	assert.InDelta(t, 3.0, row["avg_commits_per_day"], 1e-9)
	assert.InDelta(t, 2.5, row["follower_to_following_ratio"], 1e-9)
	// 100*0.6 + 25*0.3 + 300*0.1
	assert.InDelta(t, 97.5, row["social_influence_score"], 1e-9)
	assert.Greater(t, row["account_age_days"].(int), 3000)
}

func TestExtractCoversEveryColumn(t *testing.T) {
	row := Extract(sampleProfile())

	require.Len(t, row, len(Columns))
	for _, col := range Columns {
		_, ok := row[col]
		assert.True(t, ok, "missing column %s", col)
	}
}

func TestExtractZeroProfile(t *testing.T) {
	row := Extract(&domain.Profile{Username: "ghost"})

	assert.Equal(t, "ghost", row["username"])
	assert.Equal(t, 0, row["followers"])
	assert.Equal(t, "", row["created_at"])
	assert.Equal(t, 0, row["account_age_days"])
	assert.Equal(t, false, row["has_email"])
	assert.Equal(t, "", row["primary_language"])
	assert.Equal(t, "recent", row["fetch_mode"])
	assert.Equal(t, float64(0), row["avg_commits_per_day"])
	assert.Equal(t, float64(0), row["follower_to_following_ratio"])
	assert.Equal(t, float64(0), row["social_influence_score"])
}

func TestFollowRatio(t *testing.T) {
	assert.Equal(t, float64(0), followRatio(50, 0))
	assert.Equal(t, float64(0), followRatio(0, 10))
	assert.InDelta(t, 0.5, followRatio(5, 10), 1e-9)
}
