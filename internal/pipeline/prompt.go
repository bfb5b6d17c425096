package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/github"
	"github.com/kingrea/grazer/internal/week"
)

// groupMarkerExample is the bullet-point prefix weekly summaries use so
// downstream renderers can link back to a group's detailed report.
const groupMarkerExample = "__GRAZER:groupname__"

// buildRepoPrompt produces the generation prompt for one repository week.
// The prompt tells the CLI where the raw data lives and which file to write;
// the process output itself is never the artifact.
func buildRepoPrompt(repo entity.Repo, wk week.Key, cache *github.WeekCache, cachePath, summaryPath, customPrompt string) string {
	var b strings.Builder
	rangeLabel := wk.RangeLabel()

	fmt.Fprintf(&b, "You are a software development manager responsible for analyzing GitHub repository activity.\n\n")
	fmt.Fprintf(&b, "Please analyze GitHub repository data for %s covering the period %s (week %d of %d).\n\n", repo, rangeLabel, wk.Week, wk.Year)
	fmt.Fprintf(&b, "YOUR TASK:\n")
	fmt.Fprintf(&b, "1. Read and analyze the GitHub data from: %s\n", cachePath)
	fmt.Fprintf(&b, "2. Generate a comprehensive summary report\n")
	fmt.Fprintf(&b, "3. Write this report to the file: %s\n\n", summaryPath)
	fmt.Fprintf(&b, "DATA SUMMARY: The JSON file contains %d issues, %d PRs, %d discussions, %d good first issues, and %d releases.\n\n",
		len(cache.Issues), len(cache.PRs), len(cache.Discussions), len(cache.GoodFirstIssues), len(cache.Releases))

	b.WriteString(`The report should cover:

1. A concise summary of the overall activity and key themes
2. The most important ongoing projects or initiatives based on the data
3. Prioritized issues and PRs that need immediate attention
4. Major discussions that should be highlighted
5. Any emerging trends or patterns in development
6. Good first issues for new contributors

CRITICAL REQUIREMENTS:
- SKIP any section entirely if there is no meaningful content for it
- DO NOT include placeholder text like "No discussions were recorded"
- Be as concise as possible while maintaining clarity
- ALWAYS credit contributors with their GitHub username (@username)
- EVERY bullet point MUST include relevant PR/issue numbers (#XXXX) for reader follow-up
- For groups of related work, summarize the theme and list ALL relevant numbers
`)

	if customPrompt != "" {
		fmt.Fprintf(&b, "\nCUSTOM REPOSITORY-SPECIFIC INSTRUCTIONS:\n%s\n", customPrompt)
	}

	fmt.Fprintf(&b, `
ACTION REQUIRED:
1. Read the GitHub activity data from the JSON file: %[1]s
2. Generate a JSON report with the following structure:

{
  "week": %[3]d,
  "year": %[4]d,
  "repo": "%[5]s",
  "week_range": "%[6]s",
  "brief_summary": "A single sentence (max 150 chars) summarizing the most important activity this week",
  "overall_activity": "Markdown content for the overall activity summary (MUST use bullet points)",
  "key_projects": "Markdown content for key ongoing projects (MUST use bullet points)",
  "priority_items": "Markdown content for items needing immediate attention (MUST use bullet points)",
  "notable_discussions": "Markdown content for significant discussions (MUST use bullet points)",
  "emerging_trends": "Markdown content for identifiable patterns (MUST use bullet points)",
  "good_first_issues": "Markdown content listing newcomer-friendly issues (MUST use bullet points)",
  "contributors": "Markdown content crediting contributors by PR/issue number (MUST use bullet points)"
}

IMPORTANT JSON FORMATTING RULES:
- If a section has no meaningful content, set its value to null (not an empty string)
- Ensure proper JSON escaping for special characters in the markdown content
- The JSON must be valid and properly formatted

3. Write the complete JSON report to: %[2]s
4. Return a confirmation message that the file was written successfully

IMPORTANT: You must use the Read tool to load and analyze the data from %[1]s
`, cachePath, summaryPath, wk.Week, wk.Year, repo, rangeLabel)

	return b.String()
}

// buildGroupPrompt produces the generation prompt for one group week from
// the member summaries that exist. Missing members are named so the report
// can acknowledge the gap instead of silently narrowing its scope.
func buildGroupPrompt(group entity.Group, wk week.Key, availablePaths map[string]string, missing []string, userCount int, usersDir, summaryPath string) string {
	var b strings.Builder
	rangeLabel := wk.RangeLabel()

	available := make([]string, 0, len(availablePaths))
	for repo := range availablePaths {
		available = append(available, repo)
	}
	sort.Strings(available)

	fmt.Fprintf(&b, "You are a software development manager responsible for analyzing GitHub repository activity across the %s group.\n\n", group.Key)
	fmt.Fprintf(&b, "Please analyze the summary data for the %s group covering the period %s (week %d of %d).\n\n", group.Key, rangeLabel, wk.Week, wk.Year)

	fmt.Fprintf(&b, "USER DATA AVAILABLE:\n")
	fmt.Fprintf(&b, "The %s directory contains JSON files with GitHub user information, one [username].json per profile.\n", usersDir)
	fmt.Fprintf(&b, "%d user profiles are available.\n\n", userCount)

	b.WriteString("YOUR TASK:\n1. Read and analyze the individual repository summaries from:\n")
	for _, repo := range available {
		fmt.Fprintf(&b, "   - %s\n", availablePaths[repo])
	}
	fmt.Fprintf(&b, "2. Generate a comprehensive group summary report\n")
	fmt.Fprintf(&b, "3. Write this report to: %s\n\n", summaryPath)
	fmt.Fprintf(&b, "REPOSITORIES IN THIS GROUP: %s\n\n", strings.Join(available, ", "))
	if len(missing) > 0 {
		fmt.Fprintf(&b, "NOTE: The following repositories are configured but have no summaries available: %s\n\n", strings.Join(missing, ", "))
	}

	b.WriteString(`The report should include:

1. **Group Overview**: A concise summary of activity across all repositories
2. **Cross-Repository Work**: Connected work, dependencies, or collaborations between repositories
3. **Key Projects and Initiatives**: Major ongoing work across the group
4. **Priority Items**: Issues and PRs that need immediate attention
5. **Notable Discussions**: Important discussions from any repository
6. **Emerging Trends**: Patterns observed across the group

CRITICAL REQUIREMENTS:
- ALL sections MUST use bullet point format (starting with "-" or "*")
- SKIP any section entirely if there is no meaningful content for it
- Use factual, objective language; prefer specific, quantifiable descriptions
- Always use the full format for issues/PRs: owner/repo#number
- Convert references to markdown links: [owner/repo#number](https://github.com/owner/repo/issues/number)
- When mentioning a user, check their profile JSON; if it has a "name", format as [Full Name](https://github.com/username), otherwise [@username](https://github.com/username)
`)

	repoList := marshalStringList(available)
	fmt.Fprintf(&b, `
ACTION REQUIRED:
1. Use the Read tool to load and analyze the individual repository summaries listed above
2. Generate a JSON report with the following structure:

{
  "week": %[1]d,
  "year": %[2]d,
  "group": "%[3]s",
  "repositories": %[4]s,
  "week_range": "%[5]s",
  "brief_summary": "A single sentence (max 150 chars) summarizing the most important activity this week",
  "group_overview": "Markdown content for group overview (MUST use bullet points)",
  "cross_repository_work": "Markdown content for cross-repository work (MUST use bullet points)",
  "key_projects": "Markdown content for key projects (MUST use bullet points)",
  "priority_items": "Markdown content for priority items (MUST use bullet points)",
  "notable_discussions": "Markdown content for notable discussions (MUST use bullet points)",
  "emerging_trends": "Markdown content for emerging trends (MUST use bullet points)"
}

IMPORTANT JSON FORMATTING RULES:
- If a section has no meaningful content, set its value to null (not an empty string)
- Ensure proper JSON escaping for special characters in the markdown content
- The JSON must be valid and properly formatted

3. Use the Write tool to save the complete JSON report to: %[6]s
4. Return a confirmation message that the file was written successfully

IMPORTANT: You must use the Read tool to load the repository summaries and the Write tool to save the output file.
`, wk.Week, wk.Year, group.Key, repoList, rangeLabel, summaryPath)

	if group.Prompt != "" {
		fmt.Fprintf(&b, "\nCUSTOM GROUP-SPECIFIC INSTRUCTIONS:\n%s\n", group.Prompt)
	}

	return b.String()
}

// weekContext is one earlier week referenced from a weekly-summary prompt.
type weekContext struct {
	Week        week.Key
	SummaryPath string            // empty when that week has no rollup yet
	GroupPaths  map[string]string // group key -> summary path
}

// releaseRef points the weekly prompt at the cache file holding a release.
type releaseRef struct {
	Repo      string
	CachePath string
	Tags      []string
}

// buildWeeklyPrompt produces the generation prompt for the ecosystem-wide
// rollup. Earlier weeks are listed oldest first so the narrative thread
// reads forward in time.
func buildWeeklyPrompt(wk week.Key, releases []releaseRef, groupPaths map[string]string, previous []weekContext, usersDir, outputPath string) string {
	var b strings.Builder
	rangeLabel := wk.RangeLabel()

	fmt.Fprintf(&b, "You are analyzing GitHub activity data for the week of %s (Week %d, %d).\n\n", rangeLabel, wk.Week, wk.Year)
	fmt.Fprintf(&b, "## OUTPUT LOCATION\n\nPlease write your weekly summary directly to this file as JSON:\n**Output File**: `%s`\n\n", outputPath)
	b.WriteString("This summary should provide a high-level overview of ALL activity across the entire ecosystem for this week.\n\n")

	b.WriteString("## CURRENT WEEK DATA LOCATIONS\n\n### Release Data\n")
	if len(releases) > 0 {
		total := 0
		for _, ref := range releases {
			total += len(ref.Tags)
		}
		fmt.Fprintf(&b, "\n%d releases were published this week. Release data can be found in:\n\n", total)
		for _, ref := range releases {
			fmt.Fprintf(&b, "- **%s**: %d release(s)\n", ref.Repo, len(ref.Tags))
			fmt.Fprintf(&b, "  File: `%s`\n", ref.CachePath)
			fmt.Fprintf(&b, "  JSON key: `releases`\n")
			fmt.Fprintf(&b, "  Tags: %s\n\n", strings.Join(ref.Tags, ", "))
		}
	} else {
		b.WriteString("\nNo releases were published this week.\n\n")
	}

	b.WriteString("### Group Summary Locations\n\nGroup summaries with detailed activity reports are available at:\n\n")
	for _, group := range sortedKeys(groupPaths) {
		fmt.Fprintf(&b, "- **%s**: `%s`\n", strings.ToUpper(group), groupPaths[group])
		b.WriteString("  Keys: `brief_summary`, `group_overview`, `cross_repository_work`, `key_projects`, `priority_items`, `notable_discussions`, `emerging_trends`\n\n")
	}

	if len(previous) > 0 {
		b.WriteString("\n## PREVIOUS WEEKS DATA LOCATIONS\n\nFor context and trend analysis, reference data from previous weeks (oldest to newest):\n\n")
		for _, prev := range previous {
			fmt.Fprintf(&b, "### Week %d, %d\n\n", prev.Week.Week, prev.Week.Year)
			if prev.SummaryPath != "" {
				fmt.Fprintf(&b, "- **Weekly Summary**: `%s`\n", prev.SummaryPath)
			}
			if len(prev.GroupPaths) > 0 {
				b.WriteString("- **Group Summaries**:\n")
				for _, group := range sortedKeys(prev.GroupPaths) {
					fmt.Fprintf(&b, "  - %s: `%s`\n", group, prev.GroupPaths[group])
				}
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, `
## YOUR TASK

Please analyze the data files referenced above to generate a comprehensive weekly summary.

**IMPORTANT**: The file paths above point to JSON files containing the actual data. You should:
1. Look up and read the referenced JSON files to get the complete information
2. For releases, check the `+"`releases`"+` key in the repository cache files
3. For group summaries, read the full content from the group weekly files
4. For previous week context, reference the weekly summary files where available

**CRITICAL: OUTPUT ONLY VALID JSON - NO OTHER TEXT**

Generate a JSON file with the following structure:

{
  "week": %[1]d,
  "year": %[2]d,
  "week_range": "%[3]s",
  "brief_summary": "A single sentence (max 150 chars) summarizing the most important activity this week",
  "new_features_summary": "One sentence (max 150 chars) listing key new user-facing features across all groups - set to null if no new features",
  "new_features": "Markdown content listing new user-facing features from all groups - prioritize code features over docs - MUST link to PR or commit - set to null if none",
  "group_overview": "Markdown text providing a high-level overview of all group activities with bullet points",
  "activity_summary": "One sentence (max 150 chars) summarizing activity beyond new features - set to null if none",
  "activity": "Markdown text combining completed work and ongoing initiatives across all groups - set to null if none",
  "cross_repository_work": "Markdown text describing coordination and shared work across multiple repositories",
  "notable_discussions": "Markdown text describing important technical discussions and design debates",
  "emerging_trends": "Markdown text identifying patterns and themes emerging across the ecosystem"
}

IMPORTANT FORMATTING REQUIREMENTS:
- Start each bullet point with the group reference link using syntax `+groupMarkerExample+` followed by the content
- Build upon the context from previous weeks: reference trends, continuing work, and completed items from earlier weeks
- Always use full owner/repo#number format, converted to markdown links
- When mentioning a user, check %[4]s/[username].json; if it has a "name", format as [Full Name](https://github.com/username)
- Use factual, objective language with specific metrics; avoid hyperbolic terms
- Keep the summary concise but comprehensive (aim for 500-800 words)
`, wk.Week, wk.Year, rangeLabel, usersDir)

	return b.String()
}

func marshalStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
