package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kingrea/grazer/internal/config"
	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/generate"
	"github.com/kingrea/grazer/internal/github"
	"github.com/kingrea/grazer/internal/store"
	"github.com/kingrea/grazer/internal/week"
)

// fakeFetcher serves canned activity and counts calls.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    int
	activity map[string]*github.Activity // keyed by repo string
	fail     map[string]error
}

func (f *fakeFetcher) FetchActivity(_ context.Context, repo entity.Repo, _ week.Key) (*github.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.fail[repo.String()]; ok {
		return nil, err
	}
	if act, ok := f.activity[repo.String()]; ok {
		return act, nil
	}
	return &github.Activity{}, nil
}

func (f *fakeFetcher) FetchUser(context.Context, string) (*github.User, error) {
	return nil, nil
}

// fakeRunner stands in for the generation CLI. Unless a scripted behavior
// says otherwise, each run writes a valid summary inferred from the output
// path, mirroring how the real CLI writes the artifact as a side effect.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []generate.Request
	script []func(req generate.Request) error
}

var weekStemPattern = regexp.MustCompile(`week-(\d{2})-(\d{4})`)

func (r *fakeRunner) Run(_ context.Context, req generate.Request) (*generate.Result, error) {
	r.mu.Lock()
	var behavior func(generate.Request) error
	if len(r.script) > 0 {
		behavior = r.script[0]
		r.script = r.script[1:]
	}
	r.calls = append(r.calls, req)
	r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(req.LogPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(req.LogPath, []byte(`{"fake": true}`), 0o644); err != nil {
		return nil, err
	}

	if behavior != nil {
		if err := behavior(req); err != nil {
			return nil, err
		}
		return &generate.Result{RunID: "fake"}, nil
	}
	if err := writeInferredSummary(req.OutputPath); err != nil {
		return nil, err
	}
	return &generate.Result{RunID: "fake"}, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// writeInferredSummary derives a structurally valid summary from the output
// path layout.
func writeInferredSummary(path string) error {
	match := weekStemPattern.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return fmt.Errorf("cannot infer week from %s", path)
	}
	wk, _ := strconv.Atoi(match[1])
	year, _ := strconv.Atoi(match[2])

	body := fmt.Sprintf(`{"week": %d, "year": %d`, wk, year)
	dir := filepath.ToSlash(filepath.Dir(path))
	switch {
	case strings.Contains(dir, "/groups/"):
		body += fmt.Sprintf(`, "group": %q`, filepath.Base(dir))
	case strings.HasSuffix(dir, "summaries/weekly"):
		// weekly rollups need only week and year
	default:
		parts := strings.Split(dir, "/")
		body += fmt.Sprintf(`, "repo": "%s/%s"`, parts[len(parts)-2], parts[len(parts)-1])
	}
	body += "}"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}

func writeBroken(req generate.Request) error {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.OutputPath, []byte(`MessageStream leak {"week": 1}`), 0o644)
}

func writeNothing(generate.Request) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RootDir: t.TempDir(),
		Groups: map[string]config.GroupSpec{
			"tools": {Name: "Tools", Repositories: []string{"acme/widgets", "acme/gadgets"}},
		},
		Repositories: []config.RepositorySpec{
			{Name: "acme/widgets", Group: "tools"},
			{Name: "acme/gadgets", Group: "tools"},
		},
		Claude:    config.ClaudeSpec{Command: "claude", ParallelWorkers: 4},
		Reporting: config.ReportingSpec{DefaultWeeks: 1, CacheMaxAgeHours: 24, LookbackWeeks: 3},
	}
}

func testOrchestrator(t *testing.T, cfg *config.Config, fetcher *fakeFetcher, runner *fakeRunner) (*Orchestrator, *store.Store) {
	t.Helper()
	st := store.New(cfg.DataDir())
	orch := NewOrchestrator(cfg, st, fetcher, runner, nil)
	orch.retryDelay = time.Millisecond
	return orch, st
}

func seedCache(t *testing.T, st *store.Store, repo entity.Repo, wk week.Key) {
	t.Helper()
	key := store.RepoKey(repo, wk)
	body := fmt.Sprintf(`{"metadata": {"repo": %q, "year": %d, "week": %d}, "issues": [], "prs": []}`,
		repo, wk.Year, wk.Week)
	if err := st.Write(store.KindCache, key, []byte(body)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func seedSummary(t *testing.T, st *store.Store, key store.Key) {
	t.Helper()
	body := fmt.Sprintf(`{"week": %d, "year": %d`, key.Week.Week, key.Week.Year)
	switch {
	case key.IsRepo():
		body += fmt.Sprintf(`, "repo": %q`, key.Repo)
	case key.IsGroup():
		body += fmt.Sprintf(`, "group": %q`, key.Group)
	}
	body += "}"
	if err := st.Write(store.KindSummary, key, []byte(body)); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
}

func TestFetchSkipsFreshCache(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{}
	runner := &fakeRunner{}
	orch, st := testOrchestrator(t, cfg, fetcher, runner)

	repo := entity.Repo{Owner: "acme", Name: "widgets"}
	wk := mustWeek(t, 2025, 3)
	seedCache(t, st, repo, wk)

	result := orch.Fetch(context.Background(), repo, wk, Options{})
	if result.Status != StatusSkipped {
		t.Fatalf("fresh cache must skip, got %s (%v)", result.Status, result.Err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("skipped fetch must not hit the API, got %d calls", fetcher.calls)
	}

	// Force refetches over a fresh cache.
	result = orch.Fetch(context.Background(), repo, wk, Options{Force: true})
	if result.Status != StatusOK {
		t.Fatalf("forced fetch: %s (%v)", result.Status, result.Err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("forced fetch must hit the API, got %d calls", fetcher.calls)
	}
}

func TestRepoSummaryRetriesUntilValid(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{script: []func(generate.Request) error{writeBroken, writeNothing}}
	orch, st := testOrchestrator(t, cfg, &fakeFetcher{}, runner)

	repo := entity.Repo{Owner: "acme", Name: "widgets"}
	wk := mustWeek(t, 2025, 3)
	seedCache(t, st, repo, wk)

	result := orch.RepoSummary(context.Background(), repo, wk, Options{})
	if result.Status != StatusOK {
		t.Fatalf("summary after retries: %s (%v)", result.Status, result.Err)
	}
	if runner.callCount() != 3 {
		t.Fatalf("expected 3 generation attempts, got %d", runner.callCount())
	}

	// Later attempts must log to distinct attempt-suffixed files.
	logs := runner.calls
	if !strings.Contains(logs[1].LogPath, ".attempt2") || !strings.Contains(logs[2].LogPath, ".attempt3") {
		t.Fatalf("attempt logs not suffixed: %q, %q", logs[1].LogPath, logs[2].LogPath)
	}
	for _, call := range logs {
		if _, err := os.Stat(call.LogPath); err != nil {
			t.Fatalf("attempt log missing: %v", err)
		}
	}
	if !st.IsValid(store.KindSummary, store.RepoKey(repo, wk)) {
		t.Fatalf("final summary must validate")
	}
}

func TestRepoSummaryFailsAfterMaxAttempts(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{script: []func(generate.Request) error{writeBroken, writeBroken, writeBroken}}
	orch, st := testOrchestrator(t, cfg, &fakeFetcher{}, runner)

	repo := entity.Repo{Owner: "acme", Name: "widgets"}
	wk := mustWeek(t, 2025, 3)
	seedCache(t, st, repo, wk)

	result := orch.RepoSummary(context.Background(), repo, wk, Options{})
	if result.Status != StatusFailed {
		t.Fatalf("expected failure after exhausted attempts, got %s", result.Status)
	}
	if runner.callCount() != 3 {
		t.Fatalf("attempts must stop at 3, got %d", runner.callCount())
	}
}

func TestSkipExistingAvoidsGeneration(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	orch, st := testOrchestrator(t, cfg, &fakeFetcher{}, runner)

	repo := entity.Repo{Owner: "acme", Name: "widgets"}
	wk := mustWeek(t, 2025, 3)
	key := store.RepoKey(repo, wk)
	seedCache(t, st, repo, wk)
	seedSummary(t, st, key)

	result := orch.RepoSummary(context.Background(), repo, wk, Options{SkipExisting: true})
	if result.Status != StatusSkipped {
		t.Fatalf("valid existing summary must skip, got %s", result.Status)
	}
	if runner.callCount() != 0 {
		t.Fatalf("skip must not invoke the generator, got %d calls", runner.callCount())
	}

	// An invalid existing summary does not count as done.
	if err := os.WriteFile(st.Path(store.KindSummary, key), []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	result = orch.RepoSummary(context.Background(), repo, wk, Options{SkipExisting: true})
	if result.Status != StatusOK {
		t.Fatalf("invalid summary must regenerate, got %s (%v)", result.Status, result.Err)
	}
	if runner.callCount() == 0 {
		t.Fatalf("regeneration must invoke the generator")
	}
}

func TestPromptOnlyWritesPromptWithoutGeneration(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	orch, st := testOrchestrator(t, cfg, &fakeFetcher{}, runner)

	repo := entity.Repo{Owner: "acme", Name: "widgets"}
	wk := mustWeek(t, 2025, 3)
	key := store.RepoKey(repo, wk)
	seedCache(t, st, repo, wk)

	result := orch.RepoSummary(context.Background(), repo, wk, Options{PromptOnly: true})
	if result.Status != StatusOK {
		t.Fatalf("prompt-only: %s (%v)", result.Status, result.Err)
	}
	if runner.callCount() != 0 {
		t.Fatalf("prompt-only must not invoke the generator")
	}
	prompt, err := st.Read(store.KindPrompt, key)
	if err != nil {
		t.Fatalf("prompt artifact missing: %v", err)
	}
	if !strings.Contains(string(prompt), "acme/widgets") {
		t.Fatalf("prompt does not mention the repository")
	}
}

func TestGroupSummaryToleratesMissingMembers(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	orch, st := testOrchestrator(t, cfg, &fakeFetcher{}, runner)

	wk := mustWeek(t, 2025, 3)
	group, err := cfg.Group("tools")
	if err != nil {
		t.Fatalf("group: %v", err)
	}

	// No member summaries at all: the group task fails.
	result := orch.GroupSummary(context.Background(), group, wk, Options{})
	if result.Status != StatusFailed {
		t.Fatalf("group without member summaries must fail, got %s", result.Status)
	}

	// One of two members present: the task proceeds and records the gap.
	seedSummary(t, st, store.RepoKey(entity.Repo{Owner: "acme", Name: "widgets"}, wk))
	result = orch.GroupSummary(context.Background(), group, wk, Options{})
	if result.Status != StatusOK {
		t.Fatalf("group with partial members: %s (%v)", result.Status, result.Err)
	}
	if !strings.Contains(result.Detail, "acme/gadgets") {
		t.Fatalf("missing member not recorded: %q", result.Detail)
	}
	prompt, err := st.Read(store.KindPrompt, store.GroupKey("tools", wk))
	if err != nil {
		t.Fatalf("group prompt missing: %v", err)
	}
	if !strings.Contains(string(prompt), "no summaries available: acme/gadgets") {
		t.Fatalf("prompt does not acknowledge the missing member")
	}
}

func TestWeeklyRequiresGroupSummaries(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	orch, _ := testOrchestrator(t, cfg, &fakeFetcher{}, runner)

	wk := mustWeek(t, 2025, 3)
	result := orch.WeeklySummary(context.Background(), wk, Options{})
	if result.Status != StatusFailed {
		t.Fatalf("weekly without group summaries must fail, got %s", result.Status)
	}
	if runner.callCount() != 0 {
		t.Fatalf("failed precondition must not invoke the generator")
	}
}

func TestSchedulerRunsWeeklySequentiallyOldestFirst(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{}
	orch, st := testOrchestrator(t, cfg, &fakeFetcher{}, runner)
	sched := NewScheduler(orch, cfg.Claude.ParallelWorkers, nil)

	week2 := mustWeek(t, 2025, 2)
	week3 := mustWeek(t, 2025, 3)
	seedSummary(t, st, store.GroupKey("tools", week2))
	seedSummary(t, st, store.GroupKey("tools", week3))

	// Weeks deliberately out of order.
	report := sched.Run(context.Background(), Plan{
		Weeks:  []week.Key{week3, week2},
		Weekly: true,
	})
	if !report.OK() {
		t.Fatalf("weekly run failed: %v", report.Failed())
	}
	if runner.callCount() != 2 {
		t.Fatalf("expected 2 weekly generations, got %d", runner.callCount())
	}
	if !strings.Contains(runner.calls[0].OutputPath, "week-02-2025") {
		t.Fatalf("oldest week must run first, got %q", runner.calls[0].OutputPath)
	}

	// The later week's prompt must reference the earlier week's rollup,
	// which only exists because the weeks ran in order.
	prompt, err := st.Read(store.KindPrompt, store.WeeklyKey(week3))
	if err != nil {
		t.Fatalf("weekly prompt missing: %v", err)
	}
	week2Summary := st.Path(store.KindSummary, store.WeeklyKey(week2))
	if !strings.Contains(string(prompt), week2Summary) {
		t.Fatalf("week 3 prompt does not reference week 2 rollup %s", week2Summary)
	}
}

func TestSchedulerPartialFailureDoesNotAbortSiblings(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{fail: map[string]error{"acme/widgets": errors.New("boom")}}
	runner := &fakeRunner{}
	orch, _ := testOrchestrator(t, cfg, fetcher, runner)
	sched := NewScheduler(orch, 2, nil)

	repos, err := cfg.Repos()
	if err != nil {
		t.Fatalf("repos: %v", err)
	}
	report := sched.Run(context.Background(), Plan{
		Repos: repos,
		Weeks: []week.Key{mustWeek(t, 2025, 3)},
		Fetch: true,
	})

	ok, _, failed := report.Counts()
	if failed != 1 || ok != 1 {
		t.Fatalf("expected 1 failure and 1 success, got ok=%d failed=%d", ok, failed)
	}
	if report.OK() {
		t.Fatalf("report with failures must not be OK")
	}
}

func TestSchedulerStageOrderGroupsAfterRepos(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{}
	runner := &fakeRunner{}
	orch, st := testOrchestrator(t, cfg, fetcher, runner)
	sched := NewScheduler(orch, 4, nil)

	wk := mustWeek(t, 2025, 3)
	repos, err := cfg.Repos()
	if err != nil {
		t.Fatalf("repos: %v", err)
	}
	group, err := cfg.Group("tools")
	if err != nil {
		t.Fatalf("group: %v", err)
	}

	report := sched.Run(context.Background(), Plan{
		Repos:          repos,
		Groups:         []entity.Group{group},
		Weeks:          []week.Key{wk},
		Fetch:          true,
		RepoSummaries:  true,
		GroupSummaries: true,
	})
	if !report.OK() {
		t.Fatalf("run failed: %v", report.Failed())
	}

	// The group prompt must list both member summaries, which only exist
	// if the repository stage fully completed first.
	prompt, err := st.Read(store.KindPrompt, store.GroupKey("tools", wk))
	if err != nil {
		t.Fatalf("group prompt missing: %v", err)
	}
	for _, repo := range []string{"acme/widgets", "acme/gadgets"} {
		if !strings.Contains(string(prompt), repo) {
			t.Fatalf("group prompt missing member %s", repo)
		}
	}
	if strings.Contains(string(prompt), "no summaries available") {
		t.Fatalf("group stage ran before repository summaries completed")
	}
}

// cancellingFetcher cancels the run context during its first call, then
// holds the worker briefly so queued siblings observe the cancellation
// before the pool token frees up.
type cancellingFetcher struct {
	mu     sync.Mutex
	calls  int
	cancel context.CancelFunc
}

func (f *cancellingFetcher) FetchActivity(context.Context, entity.Repo, week.Key) (*github.Activity, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first {
		f.cancel()
		time.Sleep(50 * time.Millisecond)
	}
	return &github.Activity{}, nil
}

func (f *cancellingFetcher) FetchUser(context.Context, string) (*github.User, error) {
	return nil, nil
}

func (f *cancellingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSchedulerStopsAdmittingTasksOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &cancellingFetcher{cancel: cancel}
	runner := &fakeRunner{}
	orch := NewOrchestrator(cfg, store.New(cfg.DataDir()), fetcher, runner, nil)
	orch.retryDelay = time.Millisecond
	sched := NewScheduler(orch, 1, nil)

	repos, err := cfg.Repos()
	if err != nil {
		t.Fatalf("repos: %v", err)
	}
	report := sched.Run(ctx, Plan{
		Repos:  repos,
		Weeks:  []week.Key{mustWeek(t, 2025, 2), mustWeek(t, 2025, 3)},
		Fetch:  true,
		Weekly: true,
	})

	// The in-flight task runs to completion and lands in the report; the
	// queued fetches and both weekly tasks are never admitted.
	if fetcher.callCount() != 1 {
		t.Fatalf("cancellation must stop task admission, got %d fetches", fetcher.callCount())
	}
	if len(report.Results) != 1 {
		t.Fatalf("only the in-flight task should be recorded, got %d results", len(report.Results))
	}
	if report.Results[0].Status != StatusOK {
		t.Fatalf("in-flight task must finish cleanly, got %s (%v)", report.Results[0].Status, report.Results[0].Err)
	}
	if runner.callCount() != 0 {
		t.Fatalf("weekly stage must not start after cancellation, got %d runs", runner.callCount())
	}
}

func mustWeek(t *testing.T, year, wk int) week.Key {
	t.Helper()
	k, err := week.New(year, wk)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	return k
}
