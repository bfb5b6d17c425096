package store

import (
	"fmt"
	"path/filepath"

	"github.com/kingrea/grazer/internal/week"
)

// The on-disk layout is compatibility-relevant: other tooling reads the same
// tree. Week stems are always zero-padded two-digit week numbers.
//
//	gh/{owner}/{name}/week-WW-YYYY.json            raw fetch cache
//	prompts/{owner}/{name}/week-WW-YYYY-prompt.txt repo prompts
//	prompts/groups/{group}/week-WW-YYYY-prompt.txt group prompts
//	prompts/week-summaries/week-WW-YYYY.md         weekly prompts
//	summaries/{owner}/{name}/week-WW-YYYY.json     repo summaries
//	groups/{group}/week-WW-YYYY.json               group summaries
//	summaries/weekly/week-WW-YYYY.json             weekly rollups
//	logs/{owner}/{name}/week-WW-YYYY-{stamp}.json  session logs
//	users/{login}.json                             user profiles

// Path resolves the canonical file for a (kind, key) pair. Session logs are
// attempt-stamped; use LogPath for those.
func (s *Store) Path(kind Kind, key Key) string {
	stem := key.Week.Slug()
	switch kind {
	case KindCache:
		if !key.IsRepo() {
			return ""
		}
		return filepath.Join(s.root, "gh", key.Repo.Owner, key.Repo.Name, stem+".json")
	case KindPrompt:
		switch {
		case key.IsRepo():
			return filepath.Join(s.root, "prompts", key.Repo.Owner, key.Repo.Name, stem+"-prompt.txt")
		case key.IsGroup():
			return filepath.Join(s.root, "prompts", "groups", key.Group, stem+"-prompt.txt")
		default:
			return filepath.Join(s.root, "prompts", "week-summaries", stem+".md")
		}
	case KindSummary:
		switch {
		case key.IsRepo():
			return filepath.Join(s.root, "summaries", key.Repo.Owner, key.Repo.Name, stem+".json")
		case key.IsGroup():
			return filepath.Join(s.root, "groups", key.Group, stem+".json")
		default:
			return filepath.Join(s.root, "summaries", "weekly", stem+".json")
		}
	case KindLog:
		return s.logDir(key)
	default:
		return ""
	}
}

func (s *Store) logDir(key Key) string {
	switch {
	case key.IsRepo():
		return filepath.Join(s.root, "logs", key.Repo.Owner, key.Repo.Name)
	case key.IsGroup():
		return filepath.Join(s.root, "logs", "groups", key.Group)
	default:
		return filepath.Join(s.root, "logs", "summaries", "weekly")
	}
}

// LogPath resolves a session log file for one generation attempt. The stamp
// keeps runs apart; attempts past the first get an explicit suffix so every
// retry leaves a distinct log behind.
func (s *Store) LogPath(key Key, stamp string, attempt int) string {
	name := fmt.Sprintf("%s-%s", key.Week.Slug(), stamp)
	if attempt > 1 {
		name = fmt.Sprintf("%s.attempt%d", name, attempt)
	}
	return filepath.Join(s.logDir(key), name+".json")
}

// UserPath resolves the cached profile for a GitHub login.
func (s *Store) UserPath(login string) string {
	return filepath.Join(s.root, "users", login+".json")
}

// UsersDir returns the profile cache directory.
func (s *Store) UsersDir() string {
	return filepath.Join(s.root, "users")
}

// WeeklyMetadataPath resolves the sidecar recording when a weekly rollup was
// generated.
func (s *Store) WeeklyMetadataPath(wk week.Key) string {
	return filepath.Join(s.root, "summaries", "weekly", "metadata", wk.Slug()+".json")
}
