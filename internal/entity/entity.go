// Package entity defines the references the pipeline caches and generates
// artifacts for: single repositories and configured groups of repositories.
package entity

import (
	"fmt"
	"strings"
)

// Repo identifies a GitHub repository. Owner and Name double as path
// components in the artifact store, so both are required.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses an "owner/name" reference.
func ParseRepo(s string) (Repo, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Repo{}, fmt.Errorf("entity: repository must be in owner/name format, got %q", s)
	}
	owner := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if owner == "" || name == "" {
		return Repo{}, fmt.Errorf("entity: repository owner and name cannot be empty, got %q", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

// String renders the canonical "owner/name" form.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Group is a named collection of repositories rolled up together. Key is the
// stable identifier used in paths; Name and Description are presentation
// metadata; Prompt is an opaque fragment appended to generation prompts.
type Group struct {
	Key         string
	Name        string
	Description string
	Prompt      string
	Repos       []Repo
}

// NewGroup builds a group, deduplicating members while preserving their
// configured order.
func NewGroup(key string, repos []Repo) Group {
	g := Group{Key: key}
	seen := make(map[string]struct{}, len(repos))
	for _, r := range repos {
		if _, ok := seen[r.String()]; ok {
			continue
		}
		seen[r.String()] = struct{}{}
		g.Repos = append(g.Repos, r)
	}
	return g
}
