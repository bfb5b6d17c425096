package github

// Issue is one issue with activity in the target week, flattened for prompt
// building. Comments carry their author inline as "@login: text".
type Issue struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	User      string   `json:"user"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	ClosedAt  *string  `json:"closed_at"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels"`
	State     string   `json:"state"`
	Comments  []string `json:"comments"`
}

// PullRequest extends the issue shape with merge and diff-size data.
type PullRequest struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	User         string   `json:"user"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	ClosedAt     *string  `json:"closed_at"`
	MergedAt     *string  `json:"merged_at"`
	Body         string   `json:"body"`
	Labels       []string `json:"labels"`
	State        string   `json:"state"`
	Comments     []string `json:"comments"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	ChangedFiles int      `json:"changed_files"`
	Mergeable    string   `json:"mergeable"`
	Draft        bool     `json:"draft"`
}

// Discussion is one discussion updated in the target week.
type Discussion struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	User      string `json:"user"`
	UpdatedAt string `json:"updated_at"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	Comments  int    `json:"comments"`
	Answered  bool   `json:"answered"`
}

// ReleaseAsset is one downloadable artifact attached to a release.
type ReleaseAsset struct {
	Name          string `json:"name"`
	DownloadCount int    `json:"download_count"`
	Size          int    `json:"size"`
}

// Release is one release published in the target week.
type Release struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	PublishedAt string         `json:"published_at"`
	Author      string         `json:"author"`
	HTMLURL     string         `json:"html_url"`
	Body        string         `json:"body"`
	Prerelease  bool           `json:"prerelease"`
	Draft       bool           `json:"draft"`
	Assets      []ReleaseAsset `json:"assets"`
}

// User is a GitHub profile cached alongside the week data.
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Blog        string `json:"blog"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	CreatedAt   string `json:"created_at"`
	HTMLURL     string `json:"html_url"`
}

// CacheMetadata identifies which repository week a cache artifact covers and
// when it was fetched.
type CacheMetadata struct {
	Repo      string `json:"repo"`
	Year      int    `json:"year"`
	Week      int    `json:"week"`
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	CachedAt  string `json:"cached_at"`
}

// WeekCache is the raw-activity artifact for one repository week. The
// good-first-issue list is decided at fetch time from labels and open state;
// later label edits do not rewrite history.
type WeekCache struct {
	Metadata        CacheMetadata `json:"metadata"`
	Issues          []Issue       `json:"issues"`
	PRs             []PullRequest `json:"prs"`
	GoodFirstIssues []Issue       `json:"good_first_issues"`
	Discussions     []Discussion  `json:"discussions"`
	Releases        []Release     `json:"releases"`
	Users           []string      `json:"users"`
}
