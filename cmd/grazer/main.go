// Command grazer maintains week-keyed GitHub activity digests: it fetches
// raw repository activity, turns it into per-repository summaries through an
// external generation CLI, rolls those up per group, and finishes with one
// ecosystem-wide weekly report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/config"
	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/generate"
	"github.com/kingrea/grazer/internal/github"
	"github.com/kingrea/grazer/internal/logging"
	"github.com/kingrea/grazer/internal/pipeline"
	"github.com/kingrea/grazer/internal/store"
	"github.com/kingrea/grazer/internal/week"
)

func main() {
	// An interrupt cancels the run context: the scheduler stops admitting
	// tasks, in-flight work finishes or times out, and the summary still
	// prints before the non-zero exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grazer",
		Short:         "Weekly GitHub activity digests",
		Long:          "grazer fetches GitHub activity week by week, caches it, and drives an external generation CLI to produce repository, group, and ecosystem summaries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newInitCmd(),
		newConfigCmd(),
		newSyncCmd(),
		newPromptCmd(),
		newSummarizeCmd(),
		newGroupCmd(),
		newWeeklyCmd(),
		newReportCmd(),
		newBakeCmd(),
	)
	return root
}

// app bundles the wired collaborators every pipeline command needs.
type app struct {
	cfg     *config.Config
	store   *store.Store
	console *logging.Console
	logger  *logging.Logger
	orch    *pipeline.Orchestrator
}

// weekFlags are the week-selection flags shared by pipeline commands.
type weekFlags struct {
	weeks int
	year  int
	week  int
}

func (f *weekFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.weeks, "weeks", 0, "number of weeks to process, ending at the target week")
	cmd.Flags().IntVar(&f.year, "year", 0, "target year (requires --week)")
	cmd.Flags().IntVar(&f.week, "week", 0, "target ISO week number (requires --year)")
}

// resolve expands the flags into the weeks to process, oldest first. With no
// flags the target is the last complete ISO week.
func (f *weekFlags) resolve(cfg *config.Config) ([]week.Key, error) {
	var anchor week.Key
	switch {
	case f.year != 0 && f.week != 0:
		wk, err := week.New(f.year, f.week)
		if err != nil {
			return nil, err
		}
		anchor = wk
	case f.year != 0 || f.week != 0:
		return nil, fmt.Errorf("--year and --week must be given together")
	default:
		anchor = week.LastComplete(time.Now())
	}

	count := f.weeks
	if count <= 0 {
		count = cfg.Reporting.DefaultWeeks
	}
	if count <= 1 {
		return []week.Key{anchor}, nil
	}
	return week.Sequence(count, anchor)
}

// runFlags are the execution-mode flags shared by pipeline commands.
type runFlags struct {
	force        bool
	dryRun       bool
	skipExisting bool
	workers      int
	claudeArgs   string
}

func (f *runFlags) register(cmd *cobra.Command, defaultSkip bool) {
	cmd.Flags().BoolVar(&f.force, "force", false, "regenerate even over fresh, valid artifacts")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "report what would happen without fetching or generating")
	cmd.Flags().BoolVar(&f.skipExisting, "skip-existing", defaultSkip, "treat valid existing summaries as done")
	cmd.Flags().IntVar(&f.workers, "parallel-workers", 0, "worker pool size (defaults to the configured value)")
	cmd.Flags().StringVar(&f.claudeArgs, "claude-args", "", "extra arguments for the generation CLI, space separated")
}

func (f *runFlags) options() pipeline.Options {
	return pipeline.Options{
		Force:        f.force,
		DryRun:       f.dryRun,
		SkipExisting: f.skipExisting,
	}
}

// loadApp wires config, store, GitHub client, generator, and console.
func loadApp(rf *runFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.DataDir())
	if err != nil {
		return nil, err
	}
	console := logging.NewConsole(logger)

	st := store.New(cfg.DataDir())
	client := github.NewClient(cfg.GitHubToken, github.WithConsole(console))

	args := cfg.Claude.Args
	if rf != nil && rf.claudeArgs != "" {
		args = strings.Fields(rf.claudeArgs)
	}
	runner := generate.NewCLIRunner(cfg.Claude.Command, args)

	orch := pipeline.NewOrchestrator(cfg, st, client, runner, console)
	return &app{cfg: cfg, store: st, console: console, logger: logger, orch: orch}, nil
}

func (a *app) close() {
	if a.logger != nil {
		a.logger.Close()
	}
}

func (a *app) scheduler(rf *runFlags) *pipeline.Scheduler {
	workers := a.cfg.Claude.ParallelWorkers
	if rf != nil && rf.workers > 0 {
		workers = rf.workers
	}
	return pipeline.NewScheduler(a.orch, workers, a.console)
}

// resolveRepos maps positional owner/name arguments to repositories,
// defaulting to every configured repository.
func (a *app) resolveRepos(args []string) ([]entity.Repo, error) {
	if len(args) == 0 {
		repos, err := a.cfg.Repos()
		if err != nil {
			return nil, err
		}
		if len(repos) == 0 {
			return nil, fmt.Errorf("no repositories specified; pass owner/name arguments or configure %s", config.ConfigFileName)
		}
		return repos, nil
	}
	repos := make([]entity.Repo, 0, len(args))
	for _, arg := range args {
		repo, err := entity.ParseRepo(arg)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// resolveGroups maps a group argument (or --all) to configured groups.
func (a *app) resolveGroups(name string, all bool) ([]entity.Group, error) {
	if all || name == "" {
		keys := a.cfg.GroupKeys()
		if len(keys) == 0 {
			return nil, fmt.Errorf("no groups configured in %s", config.ConfigFileName)
		}
		groups := make([]entity.Group, 0, len(keys))
		for _, key := range keys {
			group, err := a.cfg.Group(key)
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
		return groups, nil
	}
	group, err := a.cfg.Group(name)
	if err != nil {
		return nil, err
	}
	return []entity.Group{group}, nil
}

// finish prints the run summary and converts failures into a non-zero exit.
func (a *app) finish(title string, report *pipeline.RunReport) error {
	ok, skipped, failed := report.Counts()
	a.console.Summary(title, len(report.Results), ok, failed, skipped)
	if failed > 0 {
		return fmt.Errorf("%s: %d of %d tasks failed", title, failed, len(report.Results))
	}
	return nil
}
