package domain

import "time"

// FetchMode indicates how commit history was walked for a profile
type FetchMode string

const (
	FetchModeRecent FetchMode = "recent"
	FetchModeAll    FetchMode = "all"
)

// Profile is the raw record fetched for one target before feature
// extraction. Owned transiently by the worker that fetched it.
type Profile struct {
	Username    string
	Followers   int
	Following   int
	PublicRepos int
	PublicGists int
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Email           string
	Location        string
	Bio             string
	Company         string
	Blog            string
	TwitterUsername string
	Hireable        bool

	OrganizationCount int
	StarredCount      int
	WatchedCount      int

	CommitActivity CommitActivity
	Portfolio      Portfolio
}

// CommitActivity holds commit counts gathered by walking repository
// history in either bounded or exhaustive mode.
type CommitActivity struct {
	TotalCommits      int // only populated in all-commits mode
	RecentCommits     int
	ActiveDays        int
	ReposAnalyzed     int
	TotalRepositories int
	Mode              FetchMode
}

// AvgCommitsPerDay returns recent commits averaged over active days,
// zero when no day was active.
func (a CommitActivity) AvgCommitsPerDay() float64 {
	if a.ActiveDays == 0 {
		return 0
	}
	return float64(a.RecentCommits) / float64(a.ActiveDays)
}

// Portfolio summarizes the target's repositories
type Portfolio struct {
	OriginalRepos   int
	ForkedRepos     int
	PrimaryLanguage string
	LanguageCount   int
	StarsReceived   int
	ForksReceived   int
}

// FeatureRow is the flat mapping of named scalar features derived from
// one Profile. Append-only once written to the stores.
type FeatureRow map[string]any
