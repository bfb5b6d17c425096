package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/week"
)

func testKey(t *testing.T) Key {
	t.Helper()
	wk, err := week.New(2025, 3)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	return RepoKey(entity.Repo{Owner: "acme", Name: "widgets"}, wk)
}

func TestPathLayout(t *testing.T) {
	s := New("/data")
	wk, _ := week.New(2025, 3)
	repo := RepoKey(entity.Repo{Owner: "acme", Name: "widgets"}, wk)
	group := GroupKey("tools", wk)
	weekly := WeeklyKey(wk)

	cases := []struct {
		kind Kind
		key  Key
		want string
	}{
		{KindCache, repo, "/data/gh/acme/widgets/week-03-2025.json"},
		{KindPrompt, repo, "/data/prompts/acme/widgets/week-03-2025-prompt.txt"},
		{KindPrompt, group, "/data/prompts/groups/tools/week-03-2025-prompt.txt"},
		{KindPrompt, weekly, "/data/prompts/week-summaries/week-03-2025.md"},
		{KindSummary, repo, "/data/summaries/acme/widgets/week-03-2025.json"},
		{KindSummary, group, "/data/groups/tools/week-03-2025.json"},
		{KindSummary, weekly, "/data/summaries/weekly/week-03-2025.json"},
	}
	for _, tc := range cases {
		if got := s.Path(tc.kind, tc.key); got != filepath.FromSlash(tc.want) {
			t.Errorf("Path(%s, %s) = %q, want %q", tc.kind, tc.key, got, tc.want)
		}
	}
}

func TestLogPathAttemptSuffix(t *testing.T) {
	s := New("/data")
	key := GroupKey("tools", mustWeek(t, 2025, 3))

	first := s.LogPath(key, "20250120-104500", 1)
	want := filepath.FromSlash("/data/logs/groups/tools/week-03-2025-20250120-104500.json")
	if first != want {
		t.Fatalf("LogPath attempt 1 = %q, want %q", first, want)
	}
	second := s.LogPath(key, "20250120-104500", 2)
	if !strings.HasSuffix(second, ".attempt2.json") {
		t.Fatalf("LogPath attempt 2 = %q, want .attempt2.json suffix", second)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	key := testKey(t)
	body := []byte(`{"week": 3, "year": 2025, "repo": "acme/widgets"}`)

	if err := s.Write(KindSummary, key, body); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.Read(KindSummary, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := New(t.TempDir())
	key := testKey(t)
	if err := s.Write(KindSummary, key, []byte(`{"week":3,"year":2025,"repo":"acme/widgets"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir := filepath.Dir(s.Path(KindSummary, key))
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the artifact in %s, found %d entries", dir, len(entries))
	}
}

func TestFreshnessUsesClock(t *testing.T) {
	base := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	now := base
	s := New(t.TempDir(), WithClock(func() time.Time { return now }))
	key := testKey(t)

	if s.IsFresh(KindSummary, key, 24*time.Hour) {
		t.Fatalf("absent artifact must not be fresh")
	}
	if err := s.Write(KindSummary, key, []byte(`{"week":3,"year":2025,"repo":"acme/widgets"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// ModTime comes from the real filesystem; pin the injected clock
	// relative to it.
	info, err := os.Stat(s.Path(KindSummary, key))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	now = info.ModTime().Add(time.Hour)
	if !s.IsFresh(KindSummary, key, 24*time.Hour) {
		t.Fatalf("artifact aged 1h must be fresh under 24h max age")
	}
	now = info.ModTime().Add(25 * time.Hour)
	if s.IsFresh(KindSummary, key, 24*time.Hour) {
		t.Fatalf("artifact aged 25h must be stale under 24h max age")
	}
}

func TestFreshButInvalidAreIndependent(t *testing.T) {
	s := New(t.TempDir())
	key := testKey(t)
	if err := s.Write(KindSummary, key, []byte(`{"week":3,"year":2025,"repo":"acme/widgets"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Corrupt the artifact in place with a leaked diagnostic marker.
	path := s.Path(KindSummary, key)
	if err := os.WriteFile(path, []byte(`{"type": "MessageStream", "week": 3}`), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	if !s.IsFresh(KindSummary, key, 24*time.Hour) {
		t.Fatalf("just-written artifact must still be fresh")
	}
	if s.IsValid(KindSummary, key) {
		t.Fatalf("corrupted artifact must not be valid")
	}
	res := s.Check(KindSummary, key)
	if res.State != StateInvalid {
		t.Fatalf("Check state = %s, want %s (err: %v)", res.State, StateInvalid, res.Err)
	}
}

func TestCheckClassifiesStates(t *testing.T) {
	s := New(t.TempDir())
	key := testKey(t)

	if res := s.Check(KindSummary, key); res.State != StateMissing {
		t.Fatalf("missing artifact: state %s", res.State)
	}
	if err := s.Write(KindSummary, key, []byte("not json at all")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if res := s.Check(KindSummary, key); res.State != StateInvalid {
		t.Fatalf("unparseable artifact: state %s", res.State)
	}
	if err := s.Write(KindSummary, key, []byte(`{"week":3,"year":2025,"repo":"acme/widgets"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if res := s.Check(KindSummary, key); res.State != StateReady {
		t.Fatalf("valid artifact: state %s (err: %v)", res.State, res.Err)
	}
}

func TestValidateSummaryRequiresEntityField(t *testing.T) {
	wk := mustWeek(t, 2025, 3)
	repo := RepoKey(entity.Repo{Owner: "acme", Name: "widgets"}, wk)
	group := GroupKey("tools", wk)
	weekly := WeeklyKey(wk)

	if err := ValidateSummary(repo, []byte(`{"week":3,"year":2025}`)); err == nil {
		t.Fatalf("repo summary without repo field must fail")
	}
	if err := ValidateSummary(group, []byte(`{"week":3,"year":2025,"group":"tools"}`)); err != nil {
		t.Fatalf("group summary: %v", err)
	}
	if err := ValidateSummary(group, []byte(`{"week":3,"year":2025}`)); err == nil {
		t.Fatalf("group summary without group field must fail")
	}
	if err := ValidateSummary(weekly, []byte(`{"week":3,"year":2025}`)); err != nil {
		t.Fatalf("weekly summary needs only week and year: %v", err)
	}
	if err := ValidateSummary(weekly, []byte(`{"year":2025}`)); err == nil {
		t.Fatalf("summary without week field must fail")
	}
}

func TestInvalidateRemovesArtifact(t *testing.T) {
	s := New(t.TempDir())
	key := testKey(t)
	if err := s.Write(KindSummary, key, []byte(`{"week":3,"year":2025,"repo":"acme/widgets"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Invalidate(KindSummary, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if s.Exists(KindSummary, key) {
		t.Fatalf("artifact survived invalidation")
	}
	if err := s.Invalidate(KindSummary, key); err != nil {
		t.Fatalf("invalidating absent artifact: %v", err)
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
