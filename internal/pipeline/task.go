// Package pipeline orchestrates the digest stages: fetch raw activity, turn
// it into repository summaries, roll those up per group, and finish with one
// ecosystem-wide weekly summary. All work for one run shares a single
// bounded worker pool; a failed task never takes its siblings down with it.
package pipeline

import (
	"fmt"

	"github.com/kingrea/grazer/internal/store"
)

// Stage identifies where in the pipeline a task runs.
type Stage string

const (
	StageFetch        Stage = "fetch"
	StageRepoSummary  Stage = "repo-summary"
	StageGroupSummary Stage = "group-summary"
	StageWeekly       Stage = "weekly-summary"
)

// Status is the terminal state of one task.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// TaskResult records the outcome of one unit of work.
type TaskResult struct {
	Stage  Stage
	Key    store.Key
	Status Status
	Detail string
	Err    error
}

func (r TaskResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %s: %s (%v)", r.Stage, r.Key, r.Status, r.Err)
	}
	return fmt.Sprintf("%s %s: %s", r.Stage, r.Key, r.Status)
}

// RunReport aggregates every task outcome from one pipeline run.
type RunReport struct {
	Results []TaskResult
}

// Add records one task outcome.
func (r *RunReport) Add(result TaskResult) {
	r.Results = append(r.Results, result)
}

// Counts tallies results by status.
func (r *RunReport) Counts() (ok, skipped, failed int) {
	for _, result := range r.Results {
		switch result.Status {
		case StatusOK:
			ok++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return ok, skipped, failed
}

// Failed returns the failed task results.
func (r *RunReport) Failed() []TaskResult {
	var failed []TaskResult
	for _, result := range r.Results {
		if result.Status == StatusFailed {
			failed = append(failed, result)
		}
	}
	return failed
}

// OK reports whether every task succeeded or was deliberately skipped.
func (r *RunReport) OK() bool {
	return len(r.Failed()) == 0
}
