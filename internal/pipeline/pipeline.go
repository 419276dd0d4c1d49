// Package pipeline orchestrates incremental profile collection: a
// bounded pool of workers claims targets FIFO, fetches each through
// the collector, flattens it to a feature row and persists it before
// moving on. Cancellation is cooperative: the stop signal is checked
// between claims and in-flight targets finish and are persisted.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-profile-miner/internal/collector"
	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	"github.com/kurihiro0119/github-profile-miner/internal/export"
	"github.com/kurihiro0119/github-profile-miner/internal/features"
)

const (
	// DefaultWorkers keeps concurrency low; the API rate limit
	// dominates any benefit from more workers.
	DefaultWorkers = 2

	// MaxWorkers caps the pool size.
	MaxWorkers = 10
)

// ProgressFunc receives a status line and the completed/total counts
type ProgressFunc func(message string, completed, total int)

// Options configures one collection run
type Options struct {
	Workers         int
	AllCommits      bool
	SaveImmediately bool
	Mode            string // "users", "repo" or "discover"
	OutputPrefix    string
	Stop            *StopSignal
	OnProgress      ProgressFunc
}

// Pipeline runs collection over a list of targets
type Pipeline struct {
	source collector.Source
	writer *export.Writer
	opts   Options
}

// New creates a pipeline. A nil Stop gets a private, never-set signal.
func New(source collector.Source, writer *export.Writer, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	if opts.Stop == nil {
		opts.Stop = NewStopSignal()
	}
	return &Pipeline{
		source: source,
		writer: writer,
		opts:   opts,
	}
}

// runState is the mutable state shared by the workers
type runState struct {
	mu        sync.Mutex
	outcomes  map[string]*domain.TargetOutcome
	completed int
	deferred  []domain.FeatureRow // rows held back when not saving immediately
}

// Run processes the targets and returns the final report. The returned
// error is non-nil only for run-level failures (invalid token, writer
// unusable); per-target failures are recorded in the report and do not
// abort the run.
func (p *Pipeline) Run(ctx context.Context, targets []domain.Target) (*domain.Report, error) {
	targets = dedupe(targets)
	report := &domain.Report{
		ID:           uuid.New().String(),
		Mode:         p.opts.Mode,
		OutputPrefix: p.opts.OutputPrefix,
		Total:        len(targets),
		StartedAt:    time.Now(),
	}

	if err := p.source.Validate(ctx); err != nil {
		report.Status = domain.RunFailed
		report.Err = err.Error()
		report.FinishedAt = time.Now()
		for _, t := range targets {
			report.Outcomes = append(report.Outcomes, domain.TargetOutcome{
				Login:  t.Login,
				Origin: t.Origin,
				Status: domain.OutcomeSkipped,
			})
		}
		report.Skipped = len(targets)
		return report, err
	}

	state := &runState{outcomes: make(map[string]*domain.TargetOutcome, len(targets))}
	for _, t := range targets {
		state.outcomes[t.Login] = &domain.TargetOutcome{
			Login:  t.Login,
			Origin: t.Origin,
			Status: domain.OutcomeSkipped,
		}
	}

	queue := make(chan domain.Target, len(targets))
	for _, t := range targets {
		queue <- t
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, queue, state, len(targets))
		}()
	}
	wg.Wait()

	if !p.opts.SaveImmediately {
		p.flushDeferred(state)
	}

	p.finishReport(report, targets, state)
	return report, nil
}

// dedupe drops repeated logins, keeping the first occurrence so FIFO
// order is preserved
func dedupe(targets []domain.Target) []domain.Target {
	seen := make(map[string]struct{}, len(targets))
	var out []domain.Target
	for _, t := range targets {
		if _, ok := seen[t.Login]; ok {
			continue
		}
		seen[t.Login] = struct{}{}
		out = append(out, t)
	}
	return out
}

// work claims targets until the queue is drained or a stop is observed
func (p *Pipeline) work(ctx context.Context, queue <-chan domain.Target, state *runState, total int) {
	for {
		// Checkpoint: never claim past a stop request
		if p.opts.Stop.IsSet() || ctx.Err() != nil {
			return
		}

		target, ok := <-queue
		if !ok {
			return
		}
		p.process(ctx, target, state, total)
	}
}

// process handles one claimed target end to end
func (p *Pipeline) process(ctx context.Context, target domain.Target, state *runState, total int) {
	start := time.Now()
	p.progress(fmt.Sprintf("Collecting %s (%s)", target.Login, p.commitModeLabel()), state, total)

	outcome := &domain.TargetOutcome{Login: target.Login, Origin: target.Origin}

	profile, err := p.source.FetchProfile(ctx, target.Login, collector.FetchOptions{
		AllCommits: p.opts.AllCommits,
	})
	if err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		outcome.Duration = time.Since(start)
		p.record(state, outcome)
		p.progress(fmt.Sprintf("✗ Failed %s: %v", target.Login, err), state, total)
		return
	}

	row := features.Extract(profile)

	if p.opts.SaveImmediately {
		if err := p.writer.Append(row); err != nil {
			// The row stays in the writer's memory; a later
			// successful flush still writes it, but this target
			// is reported failed (data-loss-on-write-failure
			// policy).
			outcome.Status = domain.OutcomeFailed
			outcome.Error = err.Error()
			outcome.Duration = time.Since(start)
			p.record(state, outcome)
			p.progress(fmt.Sprintf("✗ Failed to save %s: %v", target.Login, err), state, total)
			return
		}
	} else {
		state.mu.Lock()
		state.deferred = append(state.deferred, row)
		state.mu.Unlock()
	}

	outcome.Status = domain.OutcomeSucceeded
	outcome.Duration = time.Since(start)
	p.record(state, outcome)
	p.progress(fmt.Sprintf("✓ Completed %s", target.Login), state, total)
}

func (p *Pipeline) record(state *runState, outcome *domain.TargetOutcome) {
	state.mu.Lock()
	state.outcomes[outcome.Login] = outcome
	state.completed++
	state.mu.Unlock()
}

func (p *Pipeline) progress(message string, state *runState, total int) {
	if p.opts.OnProgress == nil {
		return
	}
	state.mu.Lock()
	completed := state.completed
	state.mu.Unlock()
	p.opts.OnProgress(message, completed, total)
}

// flushDeferred writes rows held back by SaveImmediately=false. A
// failed row is downgraded to a failed outcome.
func (p *Pipeline) flushDeferred(state *runState) {
	state.mu.Lock()
	rows := state.deferred
	state.deferred = nil
	state.mu.Unlock()

	for _, row := range rows {
		if err := p.writer.Append(row); err != nil {
			if login, ok := row["username"].(string); ok {
				state.mu.Lock()
				if outcome := state.outcomes[login]; outcome != nil {
					outcome.Status = domain.OutcomeFailed
					outcome.Error = err.Error()
				}
				state.mu.Unlock()
			}
		}
	}
}

func (p *Pipeline) finishReport(report *domain.Report, targets []domain.Target, state *runState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	for _, t := range targets {
		outcome := state.outcomes[t.Login]
		report.Outcomes = append(report.Outcomes, *outcome)
		switch outcome.Status {
		case domain.OutcomeSucceeded:
			report.Succeeded++
		case domain.OutcomeFailed:
			report.Failed++
		default:
			report.Skipped++
		}
	}

	if report.Skipped > 0 {
		report.Status = domain.RunStopped
	} else {
		report.Status = domain.RunCompleted
	}
	report.FinishedAt = time.Now()
}

func (p *Pipeline) commitModeLabel() string {
	if p.opts.AllCommits {
		return "all commits"
	}
	return "recent commits"
}
