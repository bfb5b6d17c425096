package github

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// mentionPattern matches @mentions: a letter followed by up to 38 letters,
// digits, or hyphens. Requiring a leading letter skips line references like
// @15 and commit fragments like @4a9.
var mentionPattern = regexp.MustCompile(`@([a-zA-Z][a-zA-Z0-9-]{0,38})`)

var hexPattern = regexp.MustCompile(`^[a-f0-9]+$`)

// mentionStopWords are tokens that routinely follow an @ in technical prose
// without naming an account: bot logins we do not profile, CI annotations,
// decorators, keywords, and everyday short words.
var mentionStopWords = map[string]bool{
	"ghost": true, "Anonymous": true, "github-actions": true, "github": true,
	"test": true, "check": true, "lint": true, "doc": true, "all": true,
	"empty": true, "echo": true, "author": true, "users": true,
	"default": true, "deprecated": true, "disable": true, "enable": true,
	"builtin": true, "invalid": true, "immediate": true, "master": true,
	"main": true, "raise": true, "return": true, "import": true,
	"export": true, "static": true, "dynamic": true, "inline": true,
	"implicit": true, "explicit": true, "param": true, "params": true,
	"option": true, "options": true, "override": true, "property": true,
	"todo": true, "fixme": true, "note": true, "warning": true,
	"error": true, "info": true, "debug": true, "deprecate": true,
	"here": true, "there": true, "see": true, "mention": true,
	"latest": true, "current": true, "previous": true, "next": true,
	"first": true, "last": true, "true": true, "false": true,
	"yes": true, "no": true, "foo": true, "bar": true, "baz": true,
	"example": true, "sample": true, "demo": true, "gmail": true,
	"outlook": true, "yahoo": true, "hotmail": true, "protonmail": true,
	"icloud": true, "npm": true, "pip": true, "gem": true, "cargo": true,
	"opam": true, "dune": true, "linux": true, "windows": true,
	"macos": true, "ubuntu": true, "debian": true, "fedora": true,
	"api": true, "sdk": true, "cli": true, "gui": true, "http": true,
	"https": true, "json": true, "xml": true, "yaml": true, "toml": true,
	"a": true, "an": true, "the": true, "is": true, "it": true,
	"in": true, "of": true, "on": true, "to": true, "by": true,
	"at": true, "or": true, "and": true, "not": true, "me": true,
	"you": true, "we": true, "they": true, "this": true, "that": true,
}

// ExtractUsers collects the unique accounts involved in a week's activity:
// item authors, comment authors, and @mentions in bodies and comments.
// Tokens in the stop-word list, bare hex strings, and single characters are
// discarded. The result is sorted for stable cache artifacts.
func ExtractUsers(issues []Issue, prs []PullRequest, discussions []Discussion) []string {
	users := make(map[string]bool)

	addMentions := func(text string) {
		for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
			users[match[1]] = true
		}
	}
	addComment := func(comment string) {
		if strings.HasPrefix(comment, "@") {
			if idx := strings.Index(comment, ":"); idx > 1 {
				users[strings.TrimSpace(comment[1:idx])] = true
			}
		}
		addMentions(comment)
	}

	for _, issue := range issues {
		if issue.User != "" {
			users[issue.User] = true
		}
		addMentions(issue.Body)
		for _, comment := range issue.Comments {
			addComment(comment)
		}
	}
	for _, pr := range prs {
		if pr.User != "" {
			users[pr.User] = true
		}
		addMentions(pr.Body)
		for _, comment := range pr.Comments {
			addComment(comment)
		}
	}
	for _, discussion := range discussions {
		if discussion.User != "" {
			users[discussion.User] = true
		}
		addMentions(discussion.Body)
	}

	var valid []string
	for user := range users {
		if len(user) < 2 || mentionStopWords[user] {
			continue
		}
		if !unicode.IsLetter(rune(user[0])) {
			continue
		}
		if hexPattern.MatchString(strings.ToLower(user)) {
			continue
		}
		valid = append(valid, user)
	}
	sort.Strings(valid)
	return valid
}

// FetchUser pulls the public profile for a login. A 404 means the login was
// mentioned but is not an account; callers should skip it without failing.
func (c *Client) FetchUser(ctx context.Context, login string) (*User, error) {
	url := fmt.Sprintf("%s/users/%s", c.restURL, login)
	var user User
	status, err := c.rest(ctx, url, &user)
	if err != nil {
		if status == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("github: fetch user %s: %w", login, err)
	}
	return &user, nil
}
