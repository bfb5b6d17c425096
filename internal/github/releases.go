package github

import (
	"context"
	"fmt"
	"time"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/week"
)

type restRelease struct {
	TagName     string  `json:"tag_name"`
	Name        string  `json:"name"`
	PublishedAt *string `json:"published_at"`
	Author      *struct {
		Login string `json:"login"`
	} `json:"author"`
	HTMLURL    string `json:"html_url"`
	Body       string `json:"body"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
	Assets     []struct {
		Name          string `json:"name"`
		DownloadCount int    `json:"download_count"`
		Size          int    `json:"size"`
	} `json:"assets"`
}

// FetchReleases pulls releases published inside the week window. Releases
// come back newest first, so paging stops once a page ends before the window
// opens; a repository with no releases is not an error.
func (c *Client) FetchReleases(ctx context.Context, repo entity.Repo, wk week.Key) ([]Release, error) {
	start, end := wk.Bounds()

	var releases []Release
	for page := 1; page <= 10; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=100&page=%d", c.restURL, repo.Owner, repo.Name, page)
		var pageReleases []restRelease
		status, err := c.rest(ctx, url, &pageReleases)
		if err != nil {
			if status == 404 {
				return releases, nil
			}
			return nil, fmt.Errorf("github: fetch releases for %s: %w", repo, err)
		}
		if len(pageReleases) == 0 {
			break
		}

		for _, rel := range pageReleases {
			if rel.PublishedAt == nil || !inWindow(*rel.PublishedAt, start, end) {
				continue
			}
			formatted := Release{
				TagName:     rel.TagName,
				Name:        rel.Name,
				PublishedAt: *rel.PublishedAt,
				HTMLURL:     rel.HTMLURL,
				Body:        rel.Body,
				Prerelease:  rel.Prerelease,
				Draft:       rel.Draft,
			}
			if rel.Author != nil {
				formatted.Author = rel.Author.Login
			}
			for _, asset := range rel.Assets {
				formatted.Assets = append(formatted.Assets, ReleaseAsset(asset))
			}
			releases = append(releases, formatted)
		}

		last := pageReleases[len(pageReleases)-1]
		if last.PublishedAt != nil {
			if t, err := time.Parse(time.RFC3339, *last.PublishedAt); err == nil && t.Before(start) {
				break
			}
		}
	}
	return releases, nil
}
