package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportLoginHelpers(t *testing.T) {
	report := &Report{
		Outcomes: []TargetOutcome{
			{Login: "alice", Status: OutcomeSucceeded},
			{Login: "bob", Status: OutcomeFailed},
			{Login: "carol", Status: OutcomeSkipped},
			{Login: "dave", Status: OutcomeSkipped},
		},
	}

	assert.Equal(t, []string{"bob"}, report.FailedLogins())
	assert.Equal(t, []string{"carol", "dave"}, report.SkippedLogins())
}

func TestReportDuration(t *testing.T) {
	start := time.Now()
	report := &Report{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, report.Duration())
}

func TestAvgCommitsPerDay(t *testing.T) {
	assert.Zero(t, CommitActivity{RecentCommits: 10}.AvgCommitsPerDay())
	assert.InDelta(t, 2.5, CommitActivity{RecentCommits: 10, ActiveDays: 4}.AvgCommitsPerDay(), 1e-9)
}

func TestTargets(t *testing.T) {
	plain := NewTarget("alice")
	assert.Equal(t, "alice", plain.Login)
	assert.Empty(t, plain.Origin)

	contributor := ContributorTarget("bob", "golang/go")
	assert.Equal(t, "bob", contributor.Login)
	assert.Equal(t, "golang/go", contributor.Origin)
}
