package sources_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulso/config"
	"pulso/models"
	"pulso/sources"
)

func githubConfig(base string) config.GitHubConfig {
	cfg := config.Default().GitHub
	cfg.User = "octocat"
	cfg.APIBase = base
	return cfg
}

func TestGitHubReposStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users/octocat/repos":
			_, _ = w.Write([]byte(`[{"full_name": "octocat/hello"}]`))
		case "/repos/octocat/hello/commits":
			_, _ = w.Write([]byte(`[
				{
					"sha": "abc123",
					"html_url": "https://github.com/octocat/hello/commit/abc123",
					"commit": {
						"message": "fix: bug\nmore detail",
						"author": {"date": "2024-01-01T00:00:00Z"}
					},
					"author": {"avatar_url": "https://avatars.example/1.png"}
				},
				{
					"sha": "def456",
					"html_url": "https://github.com/octocat/hello/commit/def456",
					"commit": {
						"message": "feat: later commit",
						"author": {"date": "2024-03-01T00:00:00Z"}
					},
					"author": null,
					"committer": {"avatar_url": "https://avatars.example/2.png"}
				}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	github := sources.NewGitHub(githubConfig(srv.URL), "", nil)
	updates, err := github.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, updates, 2)

	// Newest first
	assert.Equal(t, "feat: later commit", updates[0].Title)
	require.NotNil(t, updates[0].Image)
	assert.Equal(t, "https://avatars.example/2.png", *updates[0].Image)

	// First line of the multi-line message, synthesized description
	assert.Equal(t, "fix: bug", updates[1].Title)
	assert.Equal(t, "https://github.com/octocat/hello/commit/abc123", updates[1].URL)
	assert.Equal(t, "Commit in repository octocat/hello", updates[1].Description)
	assert.Equal(t, models.SourceGitHub, updates[1].Source)
}

func TestGitHubReposStrategyHonorsExplicitRepoList(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := githubConfig(srv.URL)
	cfg.Repos = []string{"octocat/pinned"}

	github := sources.NewGitHub(cfg, "", nil)
	updates, err := github.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, updates)
	assert.Equal(t, []string{"/repos/octocat/pinned/commits"}, requested)
}

func TestGitHubEventsStrategyNormalizesPushPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/octocat/events/public", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"type": "PushEvent",
				"repo": {"name": "u/r"},
				"actor": {"avatar_url": "https://avatars.example/u.png"},
				"created_at": "2024-01-01T00:00:00Z",
				"payload": {"commits": [{"message": "fix: bug\nmore detail", "sha": "abc123"}]}
			},
			{
				"type": "WatchEvent",
				"repo": {"name": "u/other"},
				"created_at": "2024-01-02T00:00:00Z",
				"payload": {}
			}
		]`))
	}))
	defer srv.Close()

	cfg := githubConfig(srv.URL)
	cfg.Strategy = config.StrategyEvents

	github := sources.NewGitHub(cfg, "", nil)
	updates, err := github.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, updates, 1)

	update := updates[0]
	assert.Equal(t, "fix: bug", update.Title)
	assert.Equal(t, "https://github.com/u/r/commit/abc123", update.URL)
	assert.Equal(t, "Commit in repository u/r", update.Description)
	assert.Equal(t, models.SourceGitHub, update.Source)

	// The date serializes as ISO-8601 UTC with millisecond precision
	serialized, err := json.Marshal(update.Date)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-01T00:00:00.000Z"`, string(serialized))
}

func TestGitHubDeduplicatesByCommitURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"type": "PushEvent",
				"repo": {"name": "u/r"},
				"actor": {"avatar_url": ""},
				"created_at": "2024-01-01T00:00:00Z",
				"payload": {"commits": [
					{"message": "first sighting", "sha": "abc123"},
					{"message": "second sighting", "sha": "abc123"}
				]}
			}
		]`))
	}))
	defer srv.Close()

	cfg := githubConfig(srv.URL)
	cfg.Strategy = config.StrategyEvents

	github := sources.NewGitHub(cfg, "", nil)
	updates, err := github.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "https://github.com/u/r/commit/abc123", updates[0].URL)
	assert.Equal(t, "first sighting", updates[0].Title)
}

func TestGitHubSearchStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/commits", r.URL.Path)
		require.Equal(t, "author:octocat", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"html_url": "https://github.com/u/r/commit/abc123",
					"commit": {"message": "feat: searchable", "author": {"date": "2024-02-01T00:00:00Z"}},
					"repository": {"full_name": "u/r"},
					"author": {"avatar_url": "https://avatars.example/u.png"}
				}
			]
		}`))
	}))
	defer srv.Close()

	cfg := githubConfig(srv.URL)
	cfg.Strategy = config.StrategySearch

	github := sources.NewGitHub(cfg, "", nil)
	updates, err := github.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "feat: searchable", updates[0].Title)
	assert.Equal(t, "Commit in repository u/r", updates[0].Description)
}

func TestGitHubCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		commits := make([]map[string]interface{}, 0, 10)
		for i := 0; i < 10; i++ {
			commits = append(commits, map[string]interface{}{
				"message": "commit",
				"sha":     string(rune('a'+i)) + "000000",
			})
		}
		payload := []map[string]interface{}{{
			"type":       "PushEvent",
			"repo":       map[string]string{"name": "u/r"},
			"actor":      map[string]string{"avatar_url": ""},
			"created_at": "2024-01-01T00:00:00Z",
			"payload":    map[string]interface{}{"commits": commits},
		}}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	cfg := githubConfig(srv.URL)
	cfg.Strategy = config.StrategyEvents
	cfg.CommitLimit = 5

	github := sources.NewGitHub(cfg, "", nil)
	updates, err := github.Fetch(context.Background())

	require.NoError(t, err)
	assert.Len(t, updates, 5)
}

func TestGitHubUpstreamErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	github := sources.NewGitHub(githubConfig(srv.URL), "", nil)
	updates, err := github.Fetch(context.Background())

	assert.Error(t, err)
	assert.Empty(t, updates)
}

func TestGitHubProducesAbsoluteURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"type": "PushEvent",
				"repo": {"name": "u/r"},
				"actor": {"avatar_url": ""},
				"created_at": "2024-01-01T00:00:00Z",
				"payload": {"commits": [{"message": "m", "sha": "abc123"}]}
			}
		]`))
	}))
	defer srv.Close()

	cfg := githubConfig(srv.URL)
	cfg.Strategy = config.StrategyEvents

	github := sources.NewGitHub(cfg, "", nil)
	updates, err := github.Fetch(context.Background())
	require.NoError(t, err)

	for _, update := range updates {
		parsed, err := url.Parse(update.URL)
		require.NoError(t, err)
		assert.True(t, parsed.IsAbs(), "URL should be absolute: %s", update.URL)
	}
}
