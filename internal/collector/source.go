package collector

import (
	"context"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
)

// Default caps for bounded mode, matching the rate budget of an
// authenticated token.
const (
	// BoundedCommitCap is the maximum commits walked per repository
	// when not fetching all history.
	BoundedCommitCap = 50

	// BoundedRepoCap is the maximum repositories scanned per profile
	// in bounded mode.
	BoundedRepoCap = 15

	// ExhaustiveRepoCap is the repository scan cap when fetching all
	// commits.
	ExhaustiveRepoCap = 25
)

// FetchOptions controls how much history is walked for one target
type FetchOptions struct {
	// AllCommits walks every page of commit history instead of the
	// most recent BoundedCommitCap commits per repository.
	AllCommits bool
}

// Source defines the interface for fetching GitHub profile data.
// Implementations classify failures as rate-limited, not-found or
// transient via the errors package.
type Source interface {
	// Validate checks the access token before any work is dispatched
	Validate(ctx context.Context) error

	// FetchProfile retrieves the raw record for one login
	FetchProfile(ctx context.Context, login string, opts FetchOptions) (*domain.Profile, error)

	// ListContributors retrieves the user-type contributor logins of
	// a repository
	ListContributors(ctx context.Context, owner, repo string) ([]string, error)
}
