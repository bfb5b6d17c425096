package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kingrea/grazer/internal/config"
	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/generate"
	"github.com/kingrea/grazer/internal/github"
	"github.com/kingrea/grazer/internal/logging"
	"github.com/kingrea/grazer/internal/retry"
	"github.com/kingrea/grazer/internal/store"
	"github.com/kingrea/grazer/internal/week"
)

// generateRetries bounds summary generation attempts per task.
const generateRetries = 3

// generateRetryDelay is the pause between generation attempts.
const generateRetryDelay = 2 * time.Second

// Fetcher is the GitHub surface the orchestrator needs.
type Fetcher interface {
	FetchActivity(ctx context.Context, repo entity.Repo, wk week.Key) (*github.Activity, error)
	FetchUser(ctx context.Context, login string) (*github.User, error)
}

// Options tune how a run treats existing artifacts.
type Options struct {
	// Force refetches and regenerates even over fresh, valid artifacts.
	Force bool
	// DryRun reports what would happen without invoking the generator.
	DryRun bool
	// PromptOnly writes prompt artifacts and stops before generation.
	PromptOnly bool
	// SkipExisting treats a valid existing summary as done without any
	// generator invocation.
	SkipExisting bool
}

// Orchestrator executes individual pipeline tasks against the shared
// artifact store. The scheduler decides ordering and parallelism; the
// orchestrator owns the semantics of one task.
type Orchestrator struct {
	cfg        *config.Config
	store      *store.Store
	fetcher    Fetcher
	runner     generate.Runner
	console    *logging.Console
	now        func() time.Time
	retryDelay time.Duration
}

// NewOrchestrator wires the pipeline's collaborators together.
func NewOrchestrator(cfg *config.Config, st *store.Store, fetcher Fetcher, runner generate.Runner, console *logging.Console) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		store:      st,
		fetcher:    fetcher,
		runner:     runner,
		console:    console,
		now:        time.Now,
		retryDelay: generateRetryDelay,
	}
}

// Fetch pulls one repository week from GitHub into the cache. A fresh,
// valid cache short-circuits the fetch unless Force is set.
func (o *Orchestrator) Fetch(ctx context.Context, repo entity.Repo, wk week.Key, opts Options) TaskResult {
	key := store.RepoKey(repo, wk)
	result := TaskResult{Stage: StageFetch, Key: key}

	if !opts.Force && o.store.IsFresh(store.KindCache, key, o.cfg.CacheMaxAge()) && o.store.IsValid(store.KindCache, key) {
		result.Status = StatusSkipped
		result.Detail = "cache is fresh"
		return result
	}
	if opts.DryRun {
		result.Status = StatusOK
		result.Detail = fmt.Sprintf("would fetch into %s", o.store.Path(store.KindCache, key))
		return result
	}

	activity, err := o.fetcher.FetchActivity(ctx, repo, wk)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	users := github.ExtractUsers(activity.Issues, activity.PRs, activity.Discussions)
	start, end := wk.Bounds()
	cache := github.WeekCache{
		Metadata: github.CacheMetadata{
			Repo:      repo.String(),
			Year:      wk.Year,
			Week:      wk.Week,
			WeekStart: start.Format("2006-01-02"),
			WeekEnd:   end.Format("2006-01-02"),
			CachedAt:  o.now().Format(time.RFC3339),
		},
		Issues:          activity.Issues,
		PRs:             activity.PRs,
		GoodFirstIssues: activity.GoodFirstIssues,
		Discussions:     activity.Discussions,
		Releases:        activity.Releases,
		Users:           users,
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("pipeline: encode cache: %w", err)
		return result
	}
	if err := o.store.Write(store.KindCache, key, data); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	fetched := o.cacheUserProfiles(ctx, users)
	result.Status = StatusOK
	result.Detail = fmt.Sprintf("%d issues, %d PRs, %d discussions, %d good first issues, %d releases, %d users (%d new profiles)",
		len(cache.Issues), len(cache.PRs), len(cache.Discussions), len(cache.GoodFirstIssues), len(cache.Releases), len(users), fetched)
	return result
}

// cacheUserProfiles fetches profiles not yet on disk. Profile misses are
// logged and skipped; they never fail the fetch task.
func (o *Orchestrator) cacheUserProfiles(ctx context.Context, logins []string) int {
	fetched := 0
	for _, login := range logins {
		path := o.store.UserPath(login)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		user, err := o.fetcher.FetchUser(ctx, login)
		if err != nil {
			if o.console != nil {
				o.console.Warning("could not fetch profile for %s: %v", login, err)
			}
			continue
		}
		if user == nil {
			continue
		}
		data, err := json.MarshalIndent(user, "", "  ")
		if err != nil {
			continue
		}
		if err := o.store.WriteFile(path, data); err != nil {
			if o.console != nil {
				o.console.Warning("could not save profile for %s: %v", login, err)
			}
			continue
		}
		fetched++
	}
	return fetched
}

// ScanUsers re-extracts user logins from an existing cache and fills in any
// profiles not yet on disk, without refetching activity.
func (o *Orchestrator) ScanUsers(ctx context.Context, repo entity.Repo, wk week.Key) TaskResult {
	key := store.RepoKey(repo, wk)
	result := TaskResult{Stage: StageFetch, Key: key}

	data, err := o.store.Read(store.KindCache, key)
	if err != nil {
		result.Status = StatusSkipped
		result.Detail = "no cache to scan"
		return result
	}
	var cache github.WeekCache
	if err := json.Unmarshal(data, &cache); err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("pipeline: corrupt cache for %s: %w", key, err)
		return result
	}

	users := github.ExtractUsers(cache.Issues, cache.PRs, cache.Discussions)
	fetched := o.cacheUserProfiles(ctx, users)
	result.Status = StatusOK
	result.Detail = fmt.Sprintf("%d users, %d new profiles", len(users), fetched)
	return result
}

// RepoSummary builds the repository prompt and generates its summary. The
// cache artifact must exist; prompt building alone never invokes the
// generator.
func (o *Orchestrator) RepoSummary(ctx context.Context, repo entity.Repo, wk week.Key, opts Options) TaskResult {
	key := store.RepoKey(repo, wk)
	result := TaskResult{Stage: StageRepoSummary, Key: key}

	if opts.SkipExisting && !opts.Force && o.store.IsValid(store.KindSummary, key) {
		result.Status = StatusSkipped
		result.Detail = "valid summary already exists"
		return result
	}

	cacheData, err := o.store.Read(store.KindCache, key)
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("pipeline: no cached data for %s: %w", key, err)
		return result
	}
	var cache github.WeekCache
	if err := json.Unmarshal(cacheData, &cache); err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("pipeline: corrupt cache for %s: %w", key, err)
		return result
	}

	prompt := buildRepoPrompt(repo, wk, &cache,
		o.store.Path(store.KindCache, key),
		o.store.Path(store.KindSummary, key),
		o.cfg.CustomPrompt(repo.String()))
	if err := o.store.Write(store.KindPrompt, key, []byte(prompt)); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	return o.finishGeneration(ctx, result, key, prompt, opts)
}

// GroupSummary rolls the group's member summaries into one report. Missing
// member summaries narrow the report rather than failing it, as long as at
// least one member summary exists.
func (o *Orchestrator) GroupSummary(ctx context.Context, group entity.Group, wk week.Key, opts Options) TaskResult {
	key := store.GroupKey(group.Key, wk)
	result := TaskResult{Stage: StageGroupSummary, Key: key}

	if opts.SkipExisting && !opts.Force && o.store.IsValid(store.KindSummary, key) {
		result.Status = StatusSkipped
		result.Detail = "valid summary already exists"
		return result
	}

	availablePaths := make(map[string]string)
	var missing []string
	for _, repo := range group.Repos {
		repoKey := store.RepoKey(repo, wk)
		if o.store.IsValid(store.KindSummary, repoKey) {
			availablePaths[repo.String()] = o.store.Path(store.KindSummary, repoKey)
		} else {
			missing = append(missing, repo.String())
		}
	}
	if len(availablePaths) == 0 {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("pipeline: no repository summaries available for group %s week %s", group.Key, wk)
		return result
	}
	if len(missing) > 0 {
		result.Detail = fmt.Sprintf("missing summaries: %v", missing)
	}

	prompt := buildGroupPrompt(group, wk, availablePaths, missing,
		o.countUserProfiles(), o.store.UsersDir(),
		o.store.Path(store.KindSummary, key))
	if err := o.store.Write(store.KindPrompt, key, []byte(prompt)); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	return o.finishGeneration(ctx, result, key, prompt, opts)
}

// WeeklySummary rolls the week's group summaries into the ecosystem-wide
// report, carrying context from up to Reporting.LookbackWeeks earlier weeks.
// At least one group summary must exist for the target week.
func (o *Orchestrator) WeeklySummary(ctx context.Context, wk week.Key, opts Options) TaskResult {
	key := store.WeeklyKey(wk)
	result := TaskResult{Stage: StageWeekly, Key: key}

	if opts.SkipExisting && !opts.Force && o.store.IsValid(store.KindSummary, key) {
		result.Status = StatusSkipped
		result.Detail = "valid summary already exists"
		return result
	}

	groupPaths := o.groupSummaryPaths(wk)
	if len(groupPaths) == 0 {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("pipeline: no group summaries available for week %s", wk)
		return result
	}

	releases, err := o.collectReleaseRefs(wk)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	// Earlier weeks, oldest first, so the prompt reads forward in time.
	lookback := o.cfg.Reporting.LookbackWeeks
	sequence, err := week.Sequence(lookback+1, wk)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	var previous []weekContext
	for _, prevWeek := range sequence {
		if prevWeek == wk {
			continue
		}
		prevCtx := weekContext{Week: prevWeek, GroupPaths: o.groupSummaryPaths(prevWeek)}
		prevKey := store.WeeklyKey(prevWeek)
		if o.store.Exists(store.KindSummary, prevKey) {
			prevCtx.SummaryPath = o.store.Path(store.KindSummary, prevKey)
		}
		if prevCtx.SummaryPath != "" || len(prevCtx.GroupPaths) > 0 {
			previous = append(previous, prevCtx)
		}
	}

	prompt := buildWeeklyPrompt(wk, releases, groupPaths, previous,
		o.store.UsersDir(), o.store.Path(store.KindSummary, key))
	if err := o.store.Write(store.KindPrompt, key, []byte(prompt)); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	result = o.finishGeneration(ctx, result, key, prompt, opts)
	if result.Status == StatusOK && !opts.DryRun && !opts.PromptOnly {
		if err := o.writeWeeklyMetadata(wk); err != nil && o.console != nil {
			o.console.Warning("could not write weekly metadata: %v", err)
		}
	}
	return result
}

// finishGeneration runs the generator for a prepared prompt, honoring the
// prompt-only and dry-run short circuits.
func (o *Orchestrator) finishGeneration(ctx context.Context, result TaskResult, key store.Key, prompt string, opts Options) TaskResult {
	switch {
	case opts.PromptOnly:
		result.Status = StatusOK
		result.Detail = joinDetail(result.Detail, "prompt written")
		return result
	case opts.DryRun:
		result.Status = StatusOK
		result.Detail = joinDetail(result.Detail, fmt.Sprintf("would generate %s", o.store.Path(store.KindSummary, key)))
		return result
	}
	if err := o.generateWithRetry(ctx, key, prompt); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	result.Status = StatusOK
	result.Detail = joinDetail(result.Detail, "summary generated")
	return result
}

// generateWithRetry invokes the generator until the summary artifact on
// disk validates, up to generateRetries attempts. Every attempt gets its own
// session log; an invalid leftover from the previous attempt is deleted
// before trying again so a retry never validates stale output.
func (o *Orchestrator) generateWithRetry(ctx context.Context, key store.Key, prompt string) error {
	stamp := o.now().Format("20060102-150405")
	policy := retry.Policy{MaxAttempts: generateRetries, Fixed: o.retryDelay}

	return policy.Do(ctx, func(attempt int) error {
		check := o.store.Check(store.KindSummary, key)
		if check.State == store.StateInvalid {
			if o.console != nil {
				o.console.Warning("removing invalid summary before attempt %d: %s", attempt, check.Path)
			}
			if err := o.store.Invalidate(store.KindSummary, key); err != nil {
				return retry.Permanent(err)
			}
		}

		logPath := o.store.LogPath(key, stamp, attempt)
		_, err := o.runner.Run(ctx, generate.Request{
			Prompt:     prompt,
			PromptPath: o.store.Path(store.KindPrompt, key),
			OutputPath: o.store.Path(store.KindSummary, key),
			LogPath:    logPath,
		})
		if err != nil {
			return fmt.Errorf("pipeline: generation attempt %d for %s: %w", attempt, key, err)
		}

		check = o.store.Check(store.KindSummary, key)
		switch check.State {
		case store.StateReady:
			return nil
		case store.StateMissing:
			return fmt.Errorf("pipeline: attempt %d for %s produced no summary file", attempt, key)
		default:
			return fmt.Errorf("pipeline: attempt %d for %s produced an invalid summary: %v", attempt, key, check.Err)
		}
	})
}

// groupSummaryPaths returns the valid group summaries on disk for a week.
func (o *Orchestrator) groupSummaryPaths(wk week.Key) map[string]string {
	paths := make(map[string]string)
	for _, groupKey := range o.cfg.GroupKeys() {
		key := store.GroupKey(groupKey, wk)
		if o.store.IsValid(store.KindSummary, key) {
			paths[groupKey] = o.store.Path(store.KindSummary, key)
		}
	}
	return paths
}

// collectReleaseRefs scans the week's caches for releases, pointing the
// weekly prompt at the cache files rather than inlining release bodies.
func (o *Orchestrator) collectReleaseRefs(wk week.Key) ([]releaseRef, error) {
	repos, err := o.cfg.Repos()
	if err != nil {
		return nil, err
	}
	var refs []releaseRef
	for _, repo := range repos {
		key := store.RepoKey(repo, wk)
		data, err := o.store.Read(store.KindCache, key)
		if err != nil {
			continue
		}
		var cache github.WeekCache
		if err := json.Unmarshal(data, &cache); err != nil {
			continue
		}
		if len(cache.Releases) == 0 {
			continue
		}
		ref := releaseRef{Repo: repo.String(), CachePath: o.store.Path(store.KindCache, key)}
		for _, rel := range cache.Releases {
			ref.Tags = append(ref.Tags, rel.TagName)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (o *Orchestrator) countUserProfiles() int {
	entries, err := os.ReadDir(o.store.UsersDir())
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			count++
		}
	}
	return count
}

type weeklyMetadata struct {
	Year        int    `json:"year"`
	Week        int    `json:"week"`
	WeekRange   string `json:"week_range"`
	GeneratedAt string `json:"generated_at"`
	SummaryFile string `json:"summary_file"`
}

func (o *Orchestrator) writeWeeklyMetadata(wk week.Key) error {
	meta := weeklyMetadata{
		Year:        wk.Year,
		Week:        wk.Week,
		WeekRange:   wk.RangeLabel(),
		GeneratedAt: o.now().Format(time.RFC3339),
		SummaryFile: o.store.Path(store.KindSummary, store.WeeklyKey(wk)),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: encode weekly metadata: %w", err)
	}
	return o.store.WriteFile(o.store.WeeklyMetadataPath(wk), data)
}

func joinDetail(existing, added string) string {
	if existing == "" {
		return added
	}
	return existing + "; " + added
}
