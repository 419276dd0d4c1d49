// Package discovery finds GitHub logins worth mining: by user search
// criteria, from popular repositories in given topics, or from
// organization membership.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-profile-miner/internal/collector"
	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

// DefaultLimit caps discovered logins when the caller does not set one.
const DefaultLimit = 50

// DefaultTopics is used for popular-repository discovery when no topics
// are supplied.
var DefaultTopics = []string{
	"machine-learning", "web-development", "mobile", "data-science",
	"artificial-intelligence", "blockchain", "devops", "frontend", "backend",
}

// Criteria filters user search discovery
type Criteria struct {
	Language     string
	Location     string
	Company      string
	MinFollowers int
	MinRepos     int
}

// Discoverer finds candidate logins through the GitHub search API
type Discoverer struct {
	client      *github.Client
	rateLimiter collector.RateLimiter
}

// New creates a discoverer with a static access token
func New(token string) *Discoverer {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return newWithClient(github.NewClient(oauth2.NewClient(ctx, ts)))
}

func newWithClient(client *github.Client) *Discoverer {
	return &Discoverer{
		client:      client,
		rateLimiter: collector.NewRateLimiter(),
	}
}

// call runs one API request through the shared rate limiter and the
// collector's retry policy, feeding quota headers back to the limiter
func (d *Discoverer) call(ctx context.Context, operation string, fn func() (*github.Response, error)) error {
	return collector.WithRetry(ctx, func() error {
		if err := d.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := fn()
		if err != nil {
			return wrapSearchError(err, operation)
		}
		if resp != nil && resp.Rate.Remaining >= 0 {
			d.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
		}
		return nil
	})
}

// buildSearchQuery renders the criteria as a user search query
func buildSearchQuery(criteria Criteria) string {
	var parts []string
	if criteria.Language != "" {
		parts = append(parts, "language:"+criteria.Language)
	}
	if criteria.Location != "" {
		parts = append(parts, fmt.Sprintf("location:%q", criteria.Location))
	}
	if criteria.Company != "" {
		parts = append(parts, "company:"+criteria.Company)
	}
	if criteria.MinFollowers > 0 {
		parts = append(parts, fmt.Sprintf("followers:>=%d", criteria.MinFollowers))
	}
	if criteria.MinRepos > 0 {
		parts = append(parts, fmt.Sprintf("repos:>=%d", criteria.MinRepos))
	}
	parts = append(parts, "type:user")
	return strings.Join(parts, " ")
}

// BySearch discovers logins matching the criteria via user search
func (d *Discoverer) BySearch(ctx context.Context, criteria Criteria, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := buildSearchQuery(criteria)

	var logins []string
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for len(logins) < limit {
		var (
			result *github.UsersSearchResult
			resp   *github.Response
		)
		err := d.call(ctx, "search users", func() (*github.Response, error) {
			var apiErr error
			result, resp, apiErr = d.client.Search.Users(ctx, query, opts)
			return resp, apiErr
		})
		if err != nil {
			return nil, err
		}

		for _, user := range result.Users {
			logins = append(logins, user.GetLogin())
			if len(logins) >= limit {
				break
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return logins, nil
}

// ByPopularRepos discovers owners and top contributors of popular
// repositories in the given topics
func (d *Discoverer) ByPopularRepos(ctx context.Context, topics []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(topics) == 0 {
		topics = DefaultTopics
	}

	seen := make(map[string]struct{})
	var logins []string
	add := func(login string) {
		if login == "" {
			return
		}
		if _, ok := seen[login]; ok {
			return
		}
		seen[login] = struct{}{}
		logins = append(logins, login)
	}

	for _, topic := range topics {
		if len(logins) >= limit {
			break
		}

		query := fmt.Sprintf("topic:%s stars:>100", topic)
		var result *github.RepositoriesSearchResult
		err := d.call(ctx, "search repositories", func() (*github.Response, error) {
			var (
				resp   *github.Response
				apiErr error
			)
			result, resp, apiErr = d.client.Search.Repositories(ctx, query, &github.SearchOptions{
				Sort:        "stars",
				Order:       "desc",
				ListOptions: github.ListOptions{PerPage: 10},
			})
			return resp, apiErr
		})
		if err != nil {
			return nil, err
		}

		for _, repo := range result.Repositories {
			if len(logins) >= limit {
				break
			}
			if owner := repo.GetOwner(); owner.GetType() == "User" {
				add(owner.GetLogin())
			}

			var contributors []*github.Contributor
			err := d.call(ctx, fmt.Sprintf("list contributors for %s", repo.GetFullName()), func() (*github.Response, error) {
				var (
					resp   *github.Response
					apiErr error
				)
				contributors, resp, apiErr = d.client.Repositories.ListContributors(ctx,
					repo.GetOwner().GetLogin(), repo.GetName(),
					&github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 5}})
				return resp, apiErr
			})
			if err != nil {
				// A repository with unreadable contributors is skipped
				continue
			}
			for _, contributor := range contributors {
				if len(logins) >= limit {
					break
				}
				if contributor.GetType() == "User" {
					add(contributor.GetLogin())
				}
			}
		}
	}

	if len(logins) > limit {
		logins = logins[:limit]
	}
	return logins, nil
}

// ByOrganizations discovers public members of the given organizations
func (d *Discoverer) ByOrganizations(ctx context.Context, orgs []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	seen := make(map[string]struct{})
	var logins []string

	for _, org := range orgs {
		if len(logins) >= limit {
			break
		}

		opts := &github.ListMembersOptions{ListOptions: github.ListOptions{PerPage: 100}}
		for {
			var (
				members []*github.User
				resp    *github.Response
			)
			err := d.call(ctx, fmt.Sprintf("list members of %s", org), func() (*github.Response, error) {
				var apiErr error
				members, resp, apiErr = d.client.Organizations.ListMembers(ctx, org, opts)
				return resp, apiErr
			})
			if err != nil {
				return nil, err
			}

			for _, member := range members {
				if _, ok := seen[member.GetLogin()]; ok {
					continue
				}
				seen[member.GetLogin()] = struct{}{}
				logins = append(logins, member.GetLogin())
				if len(logins) >= limit {
					break
				}
			}
			if resp.NextPage == 0 || len(logins) >= limit {
				break
			}
			opts.Page = resp.NextPage
		}
	}

	return logins, nil
}

func wrapSearchError(err error, operation string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.NewRateLimitedError(operation, time.Until(rateErr.Rate.Reset.Time))
	}
	return apperrors.NewTransientError(operation, err)
}
