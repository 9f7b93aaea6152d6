package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Commit sourcing strategies for the GitHub adapter. The upstream API offers
// three routes to recent commits with different rate-limit and completeness
// tradeoffs, so the choice is configuration rather than hard-coded.
const (
	StrategyRepos  = "repos"
	StrategyEvents = "events"
	StrategySearch = "search"
)

// Hashnode transports. Both yield the same output shape.
const (
	TransportGraphQL = "graphql"
	TransportRSS     = "rss"
)

// Duration is a time.Duration that unmarshals from TOML strings like "5m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GitHubConfig configures the commit adapter.
type GitHubConfig struct {
	User string `toml:"user"`

	// Strategy selects the commit-sourcing route: "repos", "events" or "search".
	Strategy string `toml:"strategy"`

	// Repos limits the "repos" strategy to an explicit list of full names
	// ("user/repo"). When empty, all public repositories of User are listed.
	Repos []string `toml:"repos,omitempty"`

	// CommitLimit caps how many commits the adapter returns.
	CommitLimit    int `toml:"commit_limit"`
	RepoPageSize   int `toml:"repo_page_size"`
	PerRepoCommits int `toml:"per_repo_commits"`

	// APIBase overrides the GitHub API base URL, mainly for tests.
	APIBase string `toml:"api_base,omitempty"`
}

// HashnodeConfig configures the blog adapter.
type HashnodeConfig struct {
	// Host is the publication host, e.g. "blog.example.hashnode.dev".
	Host string `toml:"host"`

	// Transport is "graphql" or "rss".
	Transport string `toml:"transport"`

	PostLimit int `toml:"post_limit"`

	// FallbackCover is used when a post has no cover image.
	FallbackCover string `toml:"fallback_cover,omitempty"`

	// Endpoint and FeedURL override the GraphQL endpoint and RSS feed URL,
	// mainly for tests.
	Endpoint string `toml:"endpoint,omitempty"`
	FeedURL  string `toml:"feed_url,omitempty"`
}

// FeedConfig tunes the aggregation pipeline.
type FeedConfig struct {
	// FreshnessWindow is how long the server-side advisory cache stays fresh.
	// Zero disables it and every request hits the upstream adapters.
	FreshnessWindow Duration `toml:"freshness_window"`

	// WarmInterval enables a background refresh loop when positive.
	WarmInterval Duration `toml:"warm_interval"`

	// Timeout bounds each adapter request.
	Timeout Duration `toml:"timeout"`
}

// ProfileLink is one public profile entry served at /api/profile.
type ProfileLink struct {
	Label string `toml:"label" json:"label"`
	URL   string `toml:"url" json:"url"`
}

type ProfileConfig struct {
	Links []ProfileLink `toml:"links" json:"links"`
}

// LinksOrEmpty never returns nil so the profile endpoint serializes an empty
// JSON array instead of null.
func (p ProfileConfig) LinksOrEmpty() []ProfileLink {
	if p.Links == nil {
		return []ProfileLink{}
	}
	return p.Links
}

type ServerConfig struct {
	// AllowOrigin is the CORS origin allowed to call the API.
	AllowOrigin string `toml:"allow_origin"`
}

type Config struct {
	GitHub   GitHubConfig   `toml:"github"`
	Hashnode HashnodeConfig `toml:"hashnode"`
	Feed     FeedConfig     `toml:"feed"`
	Profile  ProfileConfig  `toml:"profile"`
	Server   ServerConfig   `toml:"server"`
}

// Default returns a config with every tunable set to its documented default.
// The GitHub user and Hashnode host still have to be filled in.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Strategy:       StrategyRepos,
			CommitLimit:    5,
			RepoPageSize:   100,
			PerRepoCommits: 3,
			APIBase:        "https://api.github.com",
		},
		Hashnode: HashnodeConfig{
			Transport: TransportGraphQL,
			PostLimit: 3,
			Endpoint:  "https://gql.hashnode.com",
		},
		Feed: FeedConfig{
			FreshnessWindow: Duration(5 * time.Minute),
			Timeout:         Duration(15 * time.Second),
		},
	}
}

// LoadConfig reads the TOML config file, applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyDefaults backfills zero values that Unmarshal may have cleared.
func applyDefaults(config *Config) {
	defaults := Default()
	if config.GitHub.Strategy == "" {
		config.GitHub.Strategy = defaults.GitHub.Strategy
	}
	if config.GitHub.CommitLimit <= 0 {
		config.GitHub.CommitLimit = defaults.GitHub.CommitLimit
	}
	if config.GitHub.RepoPageSize <= 0 {
		config.GitHub.RepoPageSize = defaults.GitHub.RepoPageSize
	}
	if config.GitHub.PerRepoCommits <= 0 {
		config.GitHub.PerRepoCommits = defaults.GitHub.PerRepoCommits
	}
	if config.GitHub.APIBase == "" {
		config.GitHub.APIBase = defaults.GitHub.APIBase
	}
	if config.Hashnode.Transport == "" {
		config.Hashnode.Transport = defaults.Hashnode.Transport
	}
	if config.Hashnode.PostLimit <= 0 {
		config.Hashnode.PostLimit = defaults.Hashnode.PostLimit
	}
	if config.Hashnode.Endpoint == "" {
		config.Hashnode.Endpoint = defaults.Hashnode.Endpoint
	}
	if config.Hashnode.FeedURL == "" && config.Hashnode.Host != "" {
		config.Hashnode.FeedURL = "https://" + config.Hashnode.Host + "/rss.xml"
	}
	if config.Feed.Timeout <= 0 {
		config.Feed.Timeout = defaults.Feed.Timeout
	}
}

func (c *Config) Validate() error {
	switch c.GitHub.Strategy {
	case StrategyRepos, StrategyEvents, StrategySearch:
	default:
		return fmt.Errorf("invalid github strategy %q", c.GitHub.Strategy)
	}

	switch c.Hashnode.Transport {
	case TransportGraphQL, TransportRSS:
	default:
		return fmt.Errorf("invalid hashnode transport %q", c.Hashnode.Transport)
	}

	if c.GitHub.User == "" && len(c.GitHub.Repos) == 0 {
		return fmt.Errorf("github user is not configured")
	}
	if c.Hashnode.Host == "" {
		return fmt.Errorf("hashnode host is not configured")
	}

	return nil
}
