// Package config loads the project configuration from .grazer.yaml and the
// API credentials from .grazer-keys.yaml. Both files are searched for in the
// working directory and its parents, so commands can run from anywhere
// inside a project tree.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/grazer/internal/entity"
)

const (
	// ConfigFileName is the project configuration file.
	ConfigFileName = ".grazer.yaml"
	// KeysFileName holds credentials and is expected to stay out of version
	// control.
	KeysFileName = ".grazer-keys.yaml"

	defaultClaudeCommand   = "claude"
	defaultParallelWorkers = 10
	defaultWeeks           = 1
	defaultCacheMaxAge     = 24 * time.Hour
	defaultLookbackWeeks   = 3
)

// ProjectInfo names the project in generated reports.
type ProjectInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// GroupSpec declares one repository group in .grazer.yaml.
type GroupSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt,omitempty"`

	// Repositories is populated from the repository entries during load;
	// it is not read from the group mapping itself.
	Repositories []string `yaml:"-"`
}

// RepositorySpec declares one tracked repository and its group assignment.
type RepositorySpec struct {
	Name         string `yaml:"name"`
	Group        string `yaml:"group"`
	CustomPrompt string `yaml:"custom_prompt,omitempty"`
}

// ClaudeSpec configures the external generation CLI.
type ClaudeSpec struct {
	Command         string   `yaml:"command"`
	Args            []string `yaml:"args"`
	ParallelWorkers int      `yaml:"parallel_workers"`
}

// ReportingSpec configures defaults for multi-week runs.
type ReportingSpec struct {
	DefaultWeeks     int `yaml:"default_weeks"`
	CacheMaxAgeHours int `yaml:"cache_max_age_hours"`
	LookbackWeeks    int `yaml:"lookback_weeks"`
}

// File models the YAML shape of .grazer.yaml.
type File struct {
	Project      ProjectInfo          `yaml:"project"`
	Groups       map[string]GroupSpec `yaml:"groups"`
	Repositories []RepositorySpec     `yaml:"repositories"`
	Claude       ClaudeSpec           `yaml:"claude"`
	Reporting    ReportingSpec        `yaml:"reporting"`
}

// keysFile models the YAML shape of .grazer-keys.yaml.
type keysFile struct {
	GitHub struct {
		Token string `yaml:"token"`
	} `yaml:"github"`
}

// Config is the runtime configuration assembled from the config file, the
// keys file, and the environment.
type Config struct {
	// RootDir is the directory containing .grazer.yaml (or the working
	// directory when no file was found). The data tree lives under it.
	RootDir string

	Project      ProjectInfo
	Groups       map[string]GroupSpec
	Repositories []RepositorySpec
	Claude       ClaudeSpec
	Reporting    ReportingSpec

	// GitHubToken may be empty; the fetcher then runs unauthenticated at
	// lower rate limits.
	GitHubToken string
}

// Load locates and parses configuration starting from the working directory.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: determine working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom locates and parses configuration starting from dir.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{
		RootDir:   dir,
		Groups:    map[string]GroupSpec{},
		Claude:    ClaudeSpec{Command: defaultClaudeCommand, Args: []string{"-p"}, ParallelWorkers: defaultParallelWorkers},
		Reporting: ReportingSpec{DefaultWeeks: defaultWeeks, CacheMaxAgeHours: int(defaultCacheMaxAge / time.Hour), LookbackWeeks: defaultLookbackWeeks},
	}

	if path := findUp(dir, ConfigFileName); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var parsed File
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		parsed.applyDefaults()
		parsed.normalize()
		if err := parsed.validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg.RootDir = filepath.Dir(path)
		cfg.Project = parsed.Project
		cfg.Groups = parsed.Groups
		cfg.Repositories = parsed.Repositories
		cfg.Claude = parsed.Claude
		cfg.Reporting = parsed.Reporting
	}

	if path := findUp(dir, KeysFileName); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var keys keysFile
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.GitHubToken = strings.TrimSpace(keys.GitHub.Token)
	}

	if cfg.GitHubToken == "" {
		// .env is optional; ignore a missing file.
		_ = godotenv.Load(filepath.Join(cfg.RootDir, ".env"))
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	return cfg, nil
}

// DataDir returns the root of the artifact tree.
func (c *Config) DataDir() string {
	return filepath.Join(c.RootDir, "data")
}

// CacheMaxAge returns the raw-cache freshness threshold.
func (c *Config) CacheMaxAge() time.Duration {
	if c.Reporting.CacheMaxAgeHours <= 0 {
		return defaultCacheMaxAge
	}
	return time.Duration(c.Reporting.CacheMaxAgeHours) * time.Hour
}

// RepoNames returns all configured repository names in declaration order.
func (c *Config) RepoNames() []string {
	names := make([]string, 0, len(c.Repositories))
	for _, repo := range c.Repositories {
		names = append(names, repo.Name)
	}
	return names
}

// Repos parses every configured repository reference.
func (c *Config) Repos() ([]entity.Repo, error) {
	repos := make([]entity.Repo, 0, len(c.Repositories))
	for _, spec := range c.Repositories {
		repo, err := entity.ParseRepo(spec.Name)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// Group resolves a configured group into an entity.Group.
func (c *Config) Group(key string) (entity.Group, error) {
	spec, ok := c.Groups[key]
	if !ok {
		return entity.Group{}, fmt.Errorf("config: group %q is not configured", key)
	}
	repos := make([]entity.Repo, 0, len(spec.Repositories))
	for _, name := range spec.Repositories {
		repo, err := entity.ParseRepo(name)
		if err != nil {
			return entity.Group{}, err
		}
		repos = append(repos, repo)
	}
	g := entity.NewGroup(key, repos)
	g.Name = spec.Name
	g.Description = spec.Description
	g.Prompt = spec.Prompt
	return g, nil
}

// GroupKeys returns the configured group keys sorted by declaration of their
// first repository, falling back to map order when a group has no members.
func (c *Config) GroupKeys() []string {
	seen := make(map[string]struct{}, len(c.Groups))
	keys := make([]string, 0, len(c.Groups))
	for _, repo := range c.Repositories {
		if _, ok := seen[repo.Group]; ok {
			continue
		}
		seen[repo.Group] = struct{}{}
		keys = append(keys, repo.Group)
	}
	for key := range c.Groups {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// RepoGroup returns the group key a repository belongs to.
func (c *Config) RepoGroup(name string) (string, bool) {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo.Group, true
		}
	}
	return "", false
}

// CustomPrompt returns the per-repository prompt fragment, if any.
func (c *Config) CustomPrompt(name string) string {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo.CustomPrompt
		}
	}
	return ""
}

func (f *File) applyDefaults() {
	if f.Claude.Command == "" {
		f.Claude.Command = defaultClaudeCommand
	}
	if len(f.Claude.Args) == 0 {
		f.Claude.Args = []string{"-p"}
	}
	if f.Claude.ParallelWorkers <= 0 {
		f.Claude.ParallelWorkers = defaultParallelWorkers
	}
	if f.Reporting.DefaultWeeks <= 0 {
		f.Reporting.DefaultWeeks = defaultWeeks
	}
	if f.Reporting.CacheMaxAgeHours <= 0 {
		f.Reporting.CacheMaxAgeHours = int(defaultCacheMaxAge / time.Hour)
	}
	if f.Reporting.LookbackWeeks <= 0 {
		f.Reporting.LookbackWeeks = defaultLookbackWeeks
	}
	if f.Groups == nil {
		f.Groups = map[string]GroupSpec{}
	}
}

func (f *File) normalize() {
	for i := range f.Repositories {
		f.Repositories[i].Name = strings.TrimSpace(f.Repositories[i].Name)
		f.Repositories[i].Group = strings.TrimSpace(f.Repositories[i].Group)
	}
	// Attach members to their groups in declaration order.
	for key, group := range f.Groups {
		group.Repositories = nil
		f.Groups[key] = group
	}
	for _, repo := range f.Repositories {
		group, ok := f.Groups[repo.Group]
		if !ok {
			continue
		}
		group.Repositories = append(group.Repositories, repo.Name)
		f.Groups[repo.Group] = group
	}
}

func (f *File) validate() error {
	for i, repo := range f.Repositories {
		if repo.Name == "" {
			return fmt.Errorf("repositories[%d]: name is required", i)
		}
		if _, err := entity.ParseRepo(repo.Name); err != nil {
			return fmt.Errorf("repositories[%d]: %w", i, err)
		}
		if repo.Group == "" {
			return fmt.Errorf("repository %q: group is required", repo.Name)
		}
		if _, ok := f.Groups[repo.Group]; !ok {
			return fmt.Errorf("repository %q references undefined group %q", repo.Name, repo.Group)
		}
	}
	return nil
}

// findUp searches dir and its parents for name, returning the first match.
func findUp(dir, name string) string {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Init writes default config and keys files into dir. It refuses to
// overwrite either file.
func Init(dir string) error {
	configPath := filepath.Join(dir, ConfigFileName)
	if err := writeIfAbsent(configPath, defaultConfigYAML); err != nil {
		return err
	}
	keysPath := filepath.Join(dir, KeysFileName)
	return writeIfAbsent(keysPath, defaultKeysYAML)
}

func writeIfAbsent(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

const defaultConfigYAML = `# grazer project configuration
project:
  name: OCaml Community Activity
  description: Weekly reports for OCaml ecosystem projects

groups:
  core:
    name: OCaml Core
    description: Core OCaml language and tooling
    prompt: |
      Focus on language features, compiler improvements, and core tooling
      changes. Highlight any breaking changes or deprecations that affect the
      ecosystem.
  community:
    name: OCaml Community
    description: Broader OCaml community projects
    prompt: |
      Highlight innovative libraries, new frameworks, and community
      contributions. Note adoption trends and emerging patterns.

repositories:
  - name: ocaml/ocaml
    group: core
  - name: ocaml/opam-repository
    group: core
  - name: janestreet/base
    group: community
  - name: ocsigen/lwt
    group: community

claude:
  command: claude
  args: ["-p"]
  parallel_workers: 10

reporting:
  default_weeks: 1
  cache_max_age_hours: 24
  lookback_weeks: 3
`

const defaultKeysYAML = `# grazer credentials; keep this file out of version control
github:
  token: ghp_your_github_token_here
`
