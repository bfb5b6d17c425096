package github

// activityQuery pages issues and pull requests together, newest updates
// first, with enough timeline context to decide whether an item saw activity
// inside the target week. Timeline windows are capped at 25 entries; a busy
// item whose only in-week events fall past the cap is treated as inactive.
const activityQuery = `
query($owner: String!, $name: String!, $issuesAfter: String, $prsAfter: String) {
    repository(owner: $owner, name: $name) {
        issues(first: 25, after: $issuesAfter, orderBy: {field: UPDATED_AT, direction: DESC}) {
            pageInfo {
                hasNextPage
                endCursor
            }
            nodes {
                number
                title
                url
                author {
                    login
                }
                createdAt
                updatedAt
                closedAt
                bodyText
                state
                labels(first: 20) {
                    nodes {
                        name
                    }
                }
                comments(first: 10, orderBy: {field: UPDATED_AT, direction: DESC}) {
                    totalCount
                    nodes {
                        author {
                            login
                        }
                        bodyText
                        createdAt
                        updatedAt
                    }
                }
                timelineItems(itemTypes: [ISSUE_COMMENT, LABELED_EVENT, UNLABELED_EVENT, CLOSED_EVENT, REOPENED_EVENT], first: 25) {
                    nodes {
                        ... on IssueComment {
                            createdAt
                        }
                        ... on LabeledEvent {
                            createdAt
                        }
                        ... on UnlabeledEvent {
                            createdAt
                        }
                        ... on ClosedEvent {
                            createdAt
                        }
                        ... on ReopenedEvent {
                            createdAt
                        }
                    }
                }
            }
        }
        pullRequests(first: 25, after: $prsAfter, orderBy: {field: UPDATED_AT, direction: DESC}) {
            pageInfo {
                hasNextPage
                endCursor
            }
            nodes {
                number
                title
                url
                author {
                    login
                }
                createdAt
                updatedAt
                closedAt
                mergedAt
                bodyText
                state
                labels(first: 20) {
                    nodes {
                        name
                    }
                }
                comments(first: 10, orderBy: {field: UPDATED_AT, direction: DESC}) {
                    totalCount
                    nodes {
                        author {
                            login
                        }
                        bodyText
                        createdAt
                        updatedAt
                    }
                }
                additions
                deletions
                changedFiles
                mergeable
                isDraft
                timelineItems(itemTypes: [PULL_REQUEST_COMMIT, PULL_REQUEST_REVIEW, ISSUE_COMMENT, MERGED_EVENT, CLOSED_EVENT, REOPENED_EVENT], first: 25) {
                    nodes {
                        ... on PullRequestCommit {
                            commit {
                                committedDate
                            }
                        }
                        ... on PullRequestReview {
                            createdAt
                        }
                        ... on IssueComment {
                            createdAt
                        }
                        ... on MergedEvent {
                            createdAt
                        }
                        ... on ClosedEvent {
                            createdAt
                        }
                        ... on ReopenedEvent {
                            createdAt
                        }
                    }
                }
            }
        }
    }
}
`

// discussionsQuery fetches the 100 most recently updated discussions; the
// caller filters by updatedAt against the week window.
const discussionsQuery = `
query($owner: String!, $name: String!) {
    repository(owner: $owner, name: $name) {
        discussions(first: 100, orderBy: {field: UPDATED_AT, direction: DESC}) {
            nodes {
                number
                title
                url
                author {
                    login
                }
                updatedAt
                bodyText
                category {
                    name
                }
                comments {
                    totalCount
                }
                answerChosenAt
            }
        }
    }
}
`

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type actorNode struct {
	Login string `json:"login"`
}

type labelConnection struct {
	Nodes []struct {
		Name string `json:"name"`
	} `json:"nodes"`
}

type commentConnection struct {
	TotalCount int `json:"totalCount"`
	Nodes      []struct {
		Author   *actorNode `json:"author"`
		BodyText string     `json:"bodyText"`
	} `json:"nodes"`
}

type timelineNode struct {
	CreatedAt string `json:"createdAt"`
	Commit    *struct {
		CommittedDate string `json:"committedDate"`
	} `json:"commit"`
}

type timelineConnection struct {
	Nodes []timelineNode `json:"nodes"`
}

type issueNode struct {
	Number        int                `json:"number"`
	Title         string             `json:"title"`
	URL           string             `json:"url"`
	Author        *actorNode         `json:"author"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
	ClosedAt      *string            `json:"closedAt"`
	BodyText      string             `json:"bodyText"`
	State         string             `json:"state"`
	Labels        labelConnection    `json:"labels"`
	Comments      commentConnection  `json:"comments"`
	TimelineItems timelineConnection `json:"timelineItems"`
}

type pullRequestNode struct {
	issueNode
	MergedAt     *string `json:"mergedAt"`
	Additions    int     `json:"additions"`
	Deletions    int     `json:"deletions"`
	ChangedFiles int     `json:"changedFiles"`
	Mergeable    string  `json:"mergeable"`
	IsDraft      bool    `json:"isDraft"`
}

type activityData struct {
	Repository *struct {
		Issues struct {
			PageInfo pageInfo    `json:"pageInfo"`
			Nodes    []issueNode `json:"nodes"`
		} `json:"issues"`
		PullRequests struct {
			PageInfo pageInfo          `json:"pageInfo"`
			Nodes    []pullRequestNode `json:"nodes"`
		} `json:"pullRequests"`
	} `json:"repository"`
}

type discussionsData struct {
	Repository *struct {
		Discussions struct {
			Nodes []struct {
				Number         int        `json:"number"`
				Title          string     `json:"title"`
				URL            string     `json:"url"`
				Author         *actorNode `json:"author"`
				UpdatedAt      string     `json:"updatedAt"`
				BodyText       string     `json:"bodyText"`
				Category       *struct {
					Name string `json:"name"`
				} `json:"category"`
				Comments struct {
					TotalCount int `json:"totalCount"`
				} `json:"comments"`
				AnswerChosenAt *string `json:"answerChosenAt"`
			} `json:"nodes"`
		} `json:"discussions"`
	} `json:"repository"`
}
