package store

import (
	"fmt"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/week"
)

// Kind classifies the four artifact families the pipeline persists.
type Kind int

const (
	// KindCache is raw fetched GitHub activity for one repository week.
	KindCache Kind = iota
	// KindPrompt is the generation prompt text for one entity week.
	KindPrompt
	// KindSummary is a generated structured summary.
	KindSummary
	// KindLog is a generation session log, one per attempt.
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindCache:
		return "cache"
	case KindPrompt:
		return "prompt"
	case KindSummary:
		return "summary"
	case KindLog:
		return "log"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is the result of inspecting an artifact on disk.
type State string

const (
	// StateMissing means no file exists for the key.
	StateMissing State = "missing"
	// StateReady means the artifact exists and passed validation.
	StateReady State = "ready"
	// StateInvalid means the artifact exists but failed structural
	// validation and must be treated as absent.
	StateInvalid State = "invalid"
	// StateError means the artifact could not be inspected.
	StateError State = "error"
)

// Key addresses one artifact: a repository week, a group week, or the
// ecosystem-wide weekly rollup.
type Key struct {
	Repo  *entity.Repo
	Group string
	Week  week.Key
}

// RepoKey addresses artifacts belonging to a single repository.
func RepoKey(repo entity.Repo, wk week.Key) Key {
	return Key{Repo: &repo, Week: wk}
}

// GroupKey addresses artifacts belonging to a repository group.
func GroupKey(group string, wk week.Key) Key {
	return Key{Group: group, Week: wk}
}

// WeeklyKey addresses the ecosystem-wide rollup for a week.
func WeeklyKey(wk week.Key) Key {
	return Key{Week: wk}
}

// IsRepo reports whether the key addresses a repository artifact.
func (k Key) IsRepo() bool { return k.Repo != nil }

// IsGroup reports whether the key addresses a group artifact.
func (k Key) IsGroup() bool { return k.Repo == nil && k.Group != "" }

// IsWeekly reports whether the key addresses the weekly rollup.
func (k Key) IsWeekly() bool { return k.Repo == nil && k.Group == "" }

// Entity renders the entity component for logs and reports.
func (k Key) Entity() string {
	switch {
	case k.IsRepo():
		return k.Repo.String()
	case k.IsGroup():
		return "group " + k.Group
	default:
		return "weekly"
	}
}

// String renders the full key for logs and reports.
func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.Entity(), k.Week)
}

// CheckResult carries the outcome of a store inspection.
type CheckResult struct {
	Kind  Kind
	Key   Key
	Path  string
	State State
	Err   error
}
