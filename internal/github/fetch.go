package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/week"
)

// maxActivityPages bounds pagination against runaway cursors.
const maxActivityPages = 20

// goodFirstIssueLabels is the label vocabulary that marks an issue
// newcomer-friendly. Matching is case-insensitive.
var goodFirstIssueLabels = map[string]bool{
	"good first issue":  true,
	"good-first-issue":  true,
	"beginner friendly": true,
	"beginner-friendly": true,
	"easy":              true,
}

// Activity is everything fetched for one repository week.
type Activity struct {
	Issues          []Issue
	PRs             []PullRequest
	GoodFirstIssues []Issue
	Discussions     []Discussion
	Releases        []Release
}

// FetchActivity pulls issues, pull requests, discussions, and releases for
// the repository, keeping only items with activity inside the week window.
// Issues and pull requests page together on independent cursors; pagination
// stops when both streams are exhausted, a cursor stalls, the page cap is
// hit, or five consecutive pages past the fifth yield nothing in-window.
func (c *Client) FetchActivity(ctx context.Context, repo entity.Repo, wk week.Key) (*Activity, error) {
	start, end := wk.Bounds()
	act := &Activity{}

	var issuesAfter, prsAfter *string
	for page := 1; page <= maxActivityPages; page++ {
		variables := map[string]any{
			"owner":       repo.Owner,
			"name":        repo.Name,
			"issuesAfter": issuesAfter,
			"prsAfter":    prsAfter,
		}
		if c.console != nil {
			c.console.Info("fetching page %d for %s", page, repo)
		}

		var data activityData
		if err := c.graphql(ctx, activityQuery, variables, &data); err != nil {
			return nil, fmt.Errorf("github: fetch %s page %d: %w", repo, page, err)
		}
		if data.Repository == nil {
			return nil, fmt.Errorf("github: repository %s not found", repo)
		}

		foundThisPage := 0
		for _, node := range data.Repository.Issues.Nodes {
			if !hasActivityInWindow(node, start, end) {
				continue
			}
			issue := formatIssue(node)
			act.Issues = append(act.Issues, issue)
			foundThisPage++
			if isGoodFirstIssue(node) && node.State == "OPEN" {
				act.GoodFirstIssues = append(act.GoodFirstIssues, issue)
			}
		}
		for _, node := range data.Repository.PullRequests.Nodes {
			if !hasActivityInWindow(node.issueNode, start, end) {
				continue
			}
			act.PRs = append(act.PRs, formatPR(node))
			foundThisPage++
		}

		issuesInfo := data.Repository.Issues.PageInfo
		prsInfo := data.Repository.PullRequests.PageInfo
		if !issuesInfo.HasNextPage && !prsInfo.HasNextPage {
			break
		}
		// A cursor that does not advance would loop forever.
		if issuesInfo.HasNextPage && issuesAfter != nil && issuesInfo.EndCursor == *issuesAfter {
			break
		}
		if prsInfo.HasNextPage && prsAfter != nil && prsInfo.EndCursor == *prsAfter {
			break
		}
		if issuesInfo.HasNextPage {
			cursor := issuesInfo.EndCursor
			issuesAfter = &cursor
		} else {
			issuesAfter = nil
		}
		if prsInfo.HasNextPage {
			cursor := prsInfo.EndCursor
			prsAfter = &cursor
		} else {
			prsAfter = nil
		}
		// Items arrive newest-updated first; deep pages with nothing
		// in-window mean the rest is older still.
		if page > 5 && foundThisPage == 0 {
			break
		}
	}

	discussions, err := c.fetchDiscussions(ctx, repo, start, end)
	if err != nil {
		return nil, err
	}
	act.Discussions = discussions

	releases, err := c.FetchReleases(ctx, repo, wk)
	if err != nil {
		return nil, err
	}
	act.Releases = releases

	return act, nil
}

func (c *Client) fetchDiscussions(ctx context.Context, repo entity.Repo, start, end time.Time) ([]Discussion, error) {
	variables := map[string]any{"owner": repo.Owner, "name": repo.Name}
	var data discussionsData
	if err := c.graphql(ctx, discussionsQuery, variables, &data); err != nil {
		return nil, fmt.Errorf("github: fetch discussions for %s: %w", repo, err)
	}
	if data.Repository == nil {
		return nil, nil
	}

	var discussions []Discussion
	for _, node := range data.Repository.Discussions.Nodes {
		if !inWindow(node.UpdatedAt, start, end) {
			continue
		}
		user := "Anonymous"
		if node.Author != nil {
			user = node.Author.Login
		}
		category := "General"
		if node.Category != nil {
			category = node.Category.Name
		}
		discussions = append(discussions, Discussion{
			ID:        node.Number,
			Title:     node.Title,
			URL:       node.URL,
			User:      user,
			UpdatedAt: node.UpdatedAt,
			Body:      node.BodyText,
			Category:  category,
			Comments:  node.Comments.TotalCount,
			Answered:  node.AnswerChosenAt != nil,
		})
	}
	return discussions, nil
}

// inWindow parses an RFC 3339 timestamp and checks it against [start, end].
// Unparseable timestamps never match.
func inWindow(ts string, start, end time.Time) bool {
	if ts == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

func hasActivityInWindow(node issueNode, start, end time.Time) bool {
	if inWindow(node.CreatedAt, start, end) || inWindow(node.UpdatedAt, start, end) {
		return true
	}
	for _, item := range node.TimelineItems.Nodes {
		if inWindow(item.CreatedAt, start, end) {
			return true
		}
		if item.Commit != nil && inWindow(item.Commit.CommittedDate, start, end) {
			return true
		}
	}
	return false
}

func isGoodFirstIssue(node issueNode) bool {
	for _, label := range node.Labels.Nodes {
		if goodFirstIssueLabels[strings.ToLower(label.Name)] {
			return true
		}
	}
	return false
}

// authorLogin maps deleted accounts to the conventional ghost login.
func authorLogin(author *actorNode) string {
	if author == nil {
		return "ghost"
	}
	return author.Login
}

func flattenComments(comments commentConnection) []string {
	var out []string
	for _, comment := range comments.Nodes {
		if comment.BodyText == "" {
			continue
		}
		out = append(out, fmt.Sprintf("@%s: %s", authorLogin(comment.Author), comment.BodyText))
	}
	return out
}

func labelNames(labels labelConnection) []string {
	names := make([]string, 0, len(labels.Nodes))
	for _, label := range labels.Nodes {
		names = append(names, label.Name)
	}
	return names
}

func formatIssue(node issueNode) Issue {
	return Issue{
		ID:        node.Number,
		Title:     node.Title,
		URL:       node.URL,
		User:      authorLogin(node.Author),
		CreatedAt: node.CreatedAt,
		UpdatedAt: node.UpdatedAt,
		ClosedAt:  node.ClosedAt,
		Body:      node.BodyText,
		Labels:    labelNames(node.Labels),
		State:     strings.ToLower(node.State),
		Comments:  flattenComments(node.Comments),
	}
}

func formatPR(node pullRequestNode) PullRequest {
	return PullRequest{
		ID:           node.Number,
		Title:        node.Title,
		URL:          node.URL,
		User:         authorLogin(node.Author),
		CreatedAt:    node.CreatedAt,
		UpdatedAt:    node.UpdatedAt,
		ClosedAt:     node.ClosedAt,
		MergedAt:     node.MergedAt,
		Body:         node.BodyText,
		Labels:       labelNames(node.Labels),
		State:        strings.ToLower(node.State),
		Comments:     flattenComments(node.Comments),
		Additions:    node.Additions,
		Deletions:    node.Deletions,
		ChangedFiles: node.ChangedFiles,
		Mergeable:    node.Mergeable,
		Draft:        node.IsDraft,
	}
}
