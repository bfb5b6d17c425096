package pipeline

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/logging"
	"github.com/kingrea/grazer/internal/week"
)

// Plan declares the work for one run. Weeks are processed in chronological
// order regardless of the order given.
type Plan struct {
	Repos  []entity.Repo
	Groups []entity.Group
	Weeks  []week.Key

	// Stage toggles. A later stage still runs when an earlier one is
	// disabled; it consumes whatever artifacts already exist.
	Fetch          bool
	RepoSummaries  bool
	GroupSummaries bool
	Weekly         bool

	Options Options
}

// Scheduler runs a plan over a single bounded worker pool. Fetch and
// repository-summary tasks fan out across the pool; group summaries wait for
// the repository stage; weekly summaries run strictly one at a time, oldest
// week first, because each consumes the previous week's rollup.
type Scheduler struct {
	orch    *Orchestrator
	workers int
	console *logging.Console
}

// NewScheduler builds a scheduler over the orchestrator's tasks. Worker
// counts below one are clamped to one.
func NewScheduler(orch *Orchestrator, workers int, console *logging.Console) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{orch: orch, workers: workers, console: console}
}

// Run executes the plan and reports every task outcome. Individual task
// failures are recorded and never cancel sibling tasks; only context
// cancellation stops the run early.
func (s *Scheduler) Run(ctx context.Context, plan Plan) *RunReport {
	weeks := append([]week.Key(nil), plan.Weeks...)
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	report := &RunReport{}
	var mu sync.Mutex
	record := func(result TaskResult) {
		mu.Lock()
		defer mu.Unlock()
		report.Add(result)
		s.announce(result)
	}

	// One pool for the whole run; stage barriers come from draining it
	// between stages, not from separate pools.
	pool := semaphore.NewWeighted(int64(s.workers))

	if plan.Fetch {
		s.runParallel(ctx, pool, record, fanOut(weeks, plan.Repos, func(wk week.Key, repo entity.Repo) task {
			return func(ctx context.Context) TaskResult {
				return s.orch.Fetch(ctx, repo, wk, plan.Options)
			}
		}))
	}
	if plan.RepoSummaries {
		s.runParallel(ctx, pool, record, fanOut(weeks, plan.Repos, func(wk week.Key, repo entity.Repo) task {
			return func(ctx context.Context) TaskResult {
				return s.orch.RepoSummary(ctx, repo, wk, plan.Options)
			}
		}))
	}
	if plan.GroupSummaries {
		s.runParallel(ctx, pool, record, fanOut(weeks, plan.Groups, func(wk week.Key, group entity.Group) task {
			return func(ctx context.Context) TaskResult {
				return s.orch.GroupSummary(ctx, group, wk, plan.Options)
			}
		}))
	}
	if plan.Weekly {
		for _, wk := range weeks {
			if ctx.Err() != nil {
				break
			}
			record(s.orch.WeeklySummary(ctx, wk, plan.Options))
		}
	}
	return report
}

type task func(ctx context.Context) TaskResult

// runParallel drains the given tasks through the shared pool and waits for
// all of them before returning. Task failures land in the report; the only
// error path out of the group is context cancellation.
func (s *Scheduler) runParallel(ctx context.Context, pool *semaphore.Weighted, record func(TaskResult), tasks []task) {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if err := pool.Acquire(gctx, 1); err != nil {
				return err
			}
			defer pool.Release(1)
			record(t(gctx))
			return nil
		})
	}
	// The error here is only ever a cancellation; results carry failures.
	_ = g.Wait()
}

func fanOut[T any](weeks []week.Key, items []T, build func(week.Key, T) task) []task {
	var tasks []task
	for _, wk := range weeks {
		for _, item := range items {
			tasks = append(tasks, build(wk, item))
		}
	}
	return tasks
}

func (s *Scheduler) announce(result TaskResult) {
	if s.console == nil {
		return
	}
	switch result.Status {
	case StatusOK:
		s.console.Success("%s %s: %s", result.Stage, result.Key, result.Detail)
	case StatusSkipped:
		s.console.Info("%s %s: %s", result.Stage, result.Key, result.Detail)
	case StatusFailed:
		s.console.Error("%s %s: %v", result.Stage, result.Key, result.Err)
	}
}
