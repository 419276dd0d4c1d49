package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

// recentWindowDays bounds what counts as "recent" commit activity.
const recentWindowDays = 90

// githubSource implements Source using the GitHub API
type githubSource struct {
	client      *github.Client
	rateLimiter RateLimiter
}

// NewGitHubSource creates a new GitHub-backed source
func NewGitHubSource(token string) Source {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	return &githubSource{
		client:      client,
		rateLimiter: NewRateLimiter(),
	}
}

// Validate checks the access token by fetching the authenticated user
func (s *githubSource) Validate(ctx context.Context) error {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	_, resp, err := s.client.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return apperrors.NewConfigurationError("invalid GitHub token")
		}
		return s.wrapError(err, "validate token")
	}
	s.updateRateLimitFromResponse(resp)
	return nil
}

// FetchProfile retrieves and assembles the raw record for one login.
// Each paginated call is retried independently.
func (s *githubSource) FetchProfile(ctx context.Context, login string, opts FetchOptions) (*domain.Profile, error) {
	profile, err := s.fetchUser(ctx, login)
	if err != nil {
		return nil, err
	}

	repos, err := s.fetchRepositories(ctx, login)
	if err != nil {
		return nil, err
	}

	s.fillPortfolio(profile, repos)

	activity, err := s.fetchCommitActivity(ctx, login, repos, opts)
	if err != nil {
		return nil, err
	}
	profile.CommitActivity = activity

	s.fillSocialCounts(ctx, profile, login)

	return profile, nil
}

// fetchUser retrieves the basic user record
func (s *githubSource) fetchUser(ctx context.Context, login string) (*domain.Profile, error) {
	var profile *domain.Profile

	err := WithRetry(ctx, func() error {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		user, resp, err := s.client.Users.Get(ctx, login)
		if err != nil {
			return s.wrapError(err, fmt.Sprintf("get user %s", login))
		}
		s.updateRateLimitFromResponse(resp)

		profile = &domain.Profile{
			Username:        login,
			Followers:       user.GetFollowers(),
			Following:       user.GetFollowing(),
			PublicRepos:     user.GetPublicRepos(),
			PublicGists:     user.GetPublicGists(),
			CreatedAt:       user.GetCreatedAt().Time,
			UpdatedAt:       user.GetUpdatedAt().Time,
			Email:           user.GetEmail(),
			Location:        user.GetLocation(),
			Bio:             user.GetBio(),
			Company:         user.GetCompany(),
			Blog:            user.GetBlog(),
			TwitterUsername: user.GetTwitterUsername(),
			Hireable:        user.GetHireable(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// fetchRepositories lists every repository owned by the login
func (s *githubSource) fetchRepositories(ctx context.Context, login string) ([]*github.Repository, error) {
	var allRepos []*github.Repository
	listOpts := &github.RepositoryListOptions{
		Type:        "owner",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var (
			repos []*github.Repository
			resp  *github.Response
		)
		err := WithRetry(ctx, func() error {
			if err := s.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			var apiErr error
			repos, resp, apiErr = s.client.Repositories.List(ctx, login, listOpts)
			if apiErr != nil {
				return s.wrapError(apiErr, fmt.Sprintf("list repositories for %s", login))
			}
			s.updateRateLimitFromResponse(resp)
			return nil
		})
		if err != nil {
			return nil, err
		}

		allRepos = append(allRepos, repos...)
		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return allRepos, nil
}

// fillPortfolio derives portfolio features from the repository list
func (s *githubSource) fillPortfolio(profile *domain.Profile, repos []*github.Repository) {
	languageBytes := make(map[string]int)

	for _, repo := range repos {
		if repo.GetFork() {
			profile.Portfolio.ForkedRepos++
			continue
		}
		profile.Portfolio.OriginalRepos++
		profile.Portfolio.StarsReceived += repo.GetStargazersCount()
		profile.Portfolio.ForksReceived += repo.GetForksCount()

		if lang := repo.GetLanguage(); lang != "" {
			languageBytes[lang] += repo.GetSize()
		}
	}

	profile.Portfolio.LanguageCount = len(languageBytes)
	best := 0
	for lang, size := range languageBytes {
		if size > best {
			best = size
			profile.Portfolio.PrimaryLanguage = lang
		}
	}
}

// fetchCommitActivity walks commit history for the login's original
// repositories, bounded or exhaustive per opts.
func (s *githubSource) fetchCommitActivity(ctx context.Context, login string, repos []*github.Repository, opts FetchOptions) (domain.CommitActivity, error) {
	activity := domain.CommitActivity{Mode: domain.FetchModeRecent}
	if opts.AllCommits {
		activity.Mode = domain.FetchModeAll
	}

	var originals []*github.Repository
	for _, repo := range repos {
		if !repo.GetFork() {
			originals = append(originals, repo)
		}
	}
	activity.TotalRepositories = len(originals)

	repoCap := BoundedRepoCap
	if opts.AllCommits {
		repoCap = ExhaustiveRepoCap
	}
	if len(originals) > repoCap {
		originals = originals[:repoCap]
	}

	cutoff := time.Now().AddDate(0, 0, -recentWindowDays)
	activeDays := make(map[string]struct{})

	for _, repo := range originals {
		activity.ReposAnalyzed++
		if err := s.walkCommits(ctx, login, repo.GetName(), opts, cutoff, &activity, activeDays); err != nil {
			// An unreadable repository does not fail the profile
			if apperrors.IsNotFound(err) {
				continue
			}
			return activity, err
		}
	}

	activity.ActiveDays = len(activeDays)
	return activity, nil
}

// walkCommits pages through one repository's commits authored by login
func (s *githubSource) walkCommits(ctx context.Context, login, repo string, opts FetchOptions, cutoff time.Time, activity *domain.CommitActivity, activeDays map[string]struct{}) error {
	listOpts := &github.CommitsListOptions{
		Author:      login,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if !opts.AllCommits {
		listOpts.Since = cutoff
		listOpts.ListOptions.PerPage = BoundedCommitCap
	}

	seen := 0
	for {
		var (
			commits []*github.RepositoryCommit
			resp    *github.Response
		)
		err := WithRetry(ctx, func() error {
			if err := s.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			var apiErr error
			commits, resp, apiErr = s.client.Repositories.ListCommits(ctx, login, repo, listOpts)
			if apiErr != nil {
				// Empty repositories answer 409
				if resp != nil && resp.StatusCode == http.StatusConflict {
					commits = nil
					return nil
				}
				return s.wrapError(apiErr, fmt.Sprintf("list commits for %s/%s", login, repo))
			}
			s.updateRateLimitFromResponse(resp)
			return nil
		})
		if err != nil {
			return err
		}

		for _, commit := range commits {
			date := commit.GetCommit().GetAuthor().GetDate().Time
			if opts.AllCommits {
				activity.TotalCommits++
			}
			if date.After(cutoff) {
				activity.RecentCommits++
				activeDays[date.Format("2006-01-02")] = struct{}{}
			}
			seen++
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		if !opts.AllCommits && seen >= BoundedCommitCap {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return nil
}

// fillSocialCounts samples organization, starred and watched counts.
// Failures here degrade to zero counts rather than failing the profile.
func (s *githubSource) fillSocialCounts(ctx context.Context, profile *domain.Profile, login string) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return
	}
	orgs, resp, err := s.client.Organizations.List(ctx, login, &github.ListOptions{PerPage: 100})
	if err == nil {
		s.updateRateLimitFromResponse(resp)
		profile.OrganizationCount = len(orgs)
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return
	}
	starred, resp, err := s.client.Activity.ListStarred(ctx, login, &github.ActivityListStarredOptions{
		ListOptions: github.ListOptions{PerPage: BoundedCommitCap},
	})
	if err == nil {
		s.updateRateLimitFromResponse(resp)
		profile.StarredCount = len(starred)
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return
	}
	watched, resp, err := s.client.Activity.ListWatched(ctx, login, &github.ListOptions{PerPage: BoundedCommitCap})
	if err == nil {
		s.updateRateLimitFromResponse(resp)
		profile.WatchedCount = len(watched)
	}
}

// ListContributors retrieves the user-type contributor logins of a
// repository
func (s *githubSource) ListContributors(ctx context.Context, owner, repo string) ([]string, error) {
	var logins []string
	listOpts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var (
			contributors []*github.Contributor
			resp         *github.Response
		)
		err := WithRetry(ctx, func() error {
			if err := s.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			var apiErr error
			contributors, resp, apiErr = s.client.Repositories.ListContributors(ctx, owner, repo, listOpts)
			if apiErr != nil {
				return s.wrapError(apiErr, fmt.Sprintf("list contributors for %s/%s", owner, repo))
			}
			s.updateRateLimitFromResponse(resp)
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, contributor := range contributors {
			if contributor.GetType() == "User" {
				logins = append(logins, contributor.GetLogin())
			}
		}

		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return logins, nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (s *githubSource) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Remaining >= 0 {
		s.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

// wrapError converts go-github errors into the application taxonomy
func (s *githubSource) wrapError(err error, operation string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.NewRateLimitedError(operation, time.Until(rateErr.Rate.Reset.Time))
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperrors.NewRateLimitedError(operation, abuseErr.GetRetryAfter())
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return apperrors.NewNotFoundError(operation)
		case http.StatusUnauthorized:
			return apperrors.NewConfigurationError(operation + ": bad credentials")
		}
	}

	return apperrors.NewTransientError(operation, err)
}
