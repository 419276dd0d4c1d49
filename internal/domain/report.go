package domain

import "time"

// RunStatus is the end state of a collection run
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// OutcomeStatus is the per-target result within a run
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// TargetOutcome records what happened to one target during a run
type TargetOutcome struct {
	Login    string
	Origin   string
	Status   OutcomeStatus
	Error    string
	Duration time.Duration
}

// Report summarizes one collection run
type Report struct {
	ID           string
	Status       RunStatus
	Mode         string // "users", "repo" or "discover"
	OutputPrefix string
	Total        int
	Succeeded    int
	Failed       int
	Skipped      int
	Outcomes     []TargetOutcome
	Err          string // run-level error for RunFailed
	StartedAt    time.Time
	FinishedAt   time.Time
}

// SkippedLogins returns the logins that were never attempted
func (r *Report) SkippedLogins() []string {
	var logins []string
	for _, o := range r.Outcomes {
		if o.Status == OutcomeSkipped {
			logins = append(logins, o.Login)
		}
	}
	return logins
}

// FailedLogins returns the logins whose collection failed
func (r *Report) FailedLogins() []string {
	var logins []string
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			logins = append(logins, o.Login)
		}
	}
	return logins
}

// Duration returns the wall-clock duration of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
