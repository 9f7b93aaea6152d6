package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"pulso/config"
	"pulso/models"
)

const eventsPageSize = 30

// GitHub surfaces a user's recent commit activity as feed updates. The
// commit-sourcing strategy (per-repository listing, public events or commit
// search) is a configuration choice.
type GitHub struct {
	cfg    config.GitHubConfig
	client *resty.Client
}

// NewGitHub builds the GitHub adapter. The bearer token is optional; without
// one the unauthenticated rate limits apply, which is a warning and not an
// error.
func NewGitHub(cfg config.GitHubConfig, token string, client *resty.Client) *GitHub {
	if client == nil {
		client = resty.New().SetTimeout(15 * time.Second)
	}
	if cfg.APIBase != "" {
		client.SetBaseURL(cfg.APIBase)
	}
	client.SetHeader("Accept", "application/vnd.github+json")

	if token == "" {
		log.Warn("No GitHub token found in the environment, unauthenticated rate limits apply")
	} else {
		client.SetAuthToken(token)
	}

	return &GitHub{cfg: cfg, client: client}
}

func (g *GitHub) Name() string {
	return "github"
}

func (g *GitHub) Tag() models.Source {
	return models.SourceGitHub
}

func (g *GitHub) Fetch(ctx context.Context) ([]models.Update, error) {
	switch g.cfg.Strategy {
	case config.StrategyEvents:
		return g.fetchEvents(ctx)
	case config.StrategySearch:
		return g.fetchSearch(ctx)
	default:
		return g.fetchRepos(ctx)
	}
}

type actorRecord struct {
	AvatarURL string `json:"avatar_url"`
}

type repoRecord struct {
	FullName string `json:"full_name"`
}

type commitRecord struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author    *actorRecord `json:"author"`
	Committer *actorRecord `json:"committer"`
}

// fetchRepos lists the user's repositories and takes the most recent commits
// from each one. This is the simplest and most deterministic strategy.
func (g *GitHub) fetchRepos(ctx context.Context) ([]models.Update, error) {
	repos := g.cfg.Repos
	if len(repos) == 0 {
		var listed []repoRecord
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", strconv.Itoa(g.cfg.RepoPageSize)).
			SetResult(&listed).
			Get(fmt.Sprintf("/users/%s/repos", g.cfg.User))
		if err != nil {
			return nil, fmt.Errorf("list repositories: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("list repositories: status %d", resp.StatusCode())
		}
		repos = lo.Map(listed, func(r repoRecord, _ int) string {
			return r.FullName
		})
	}

	var updates []models.Update
	for _, repo := range repos {
		if ctx.Err() != nil {
			break
		}

		var commits []commitRecord
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", strconv.Itoa(g.cfg.PerRepoCommits)).
			SetResult(&commits).
			Get(fmt.Sprintf("/repos/%s/commits", repo))
		if err != nil || !resp.IsSuccess() {
			// A single unreadable repository must not sink the rest.
			log.WithFields(log.Fields{
				"repo": repo,
			}).Debug("Skipping repository commits")
			continue
		}

		for _, c := range commits {
			avatar := ""
			if c.Author != nil {
				avatar = c.Author.AvatarURL
			}
			if avatar == "" && c.Committer != nil {
				avatar = c.Committer.AvatarURL
			}

			update, ok := commitUpdate(repo, c.SHA, c.HTMLURL, c.Commit.Message, avatar, c.Commit.Author.Date)
			if ok {
				updates = append(updates, update)
			}
		}
	}

	return finalizeCommits(updates, g.cfg.CommitLimit), nil
}

type eventRecord struct {
	Type string `json:"type"`
	Repo struct {
		Name string `json:"name"`
	} `json:"repo"`
	Actor struct {
		AvatarURL string `json:"avatar_url"`
	} `json:"actor"`
	CreatedAt string `json:"created_at"`
	Payload   struct {
		Commits []struct {
			SHA     string `json:"sha"`
			Message string `json:"message"`
		} `json:"commits"`
	} `json:"payload"`
}

// fetchEvents reads the user's public event stream and expands push events
// into one update per commit. Commit URLs are synthesized since push payloads
// carry API URLs only.
func (g *GitHub) fetchEvents(ctx context.Context) ([]models.Update, error) {
	var events []eventRecord
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("per_page", strconv.Itoa(eventsPageSize)).
		SetResult(&events).
		Get(fmt.Sprintf("/users/%s/events/public", g.cfg.User))
	if err != nil {
		return nil, fmt.Errorf("list public events: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("list public events: status %d", resp.StatusCode())
	}

	var updates []models.Update
	for _, event := range events {
		if event.Type != "PushEvent" {
			continue
		}
		for _, c := range event.Payload.Commits {
			url := fmt.Sprintf("https://github.com/%s/commit/%s", event.Repo.Name, c.SHA)
			update, ok := commitUpdate(event.Repo.Name, c.SHA, url, c.Message, event.Actor.AvatarURL, event.CreatedAt)
			if ok {
				updates = append(updates, update)
			}
		}
	}

	return finalizeCommits(updates, g.cfg.CommitLimit), nil
}

type searchResponse struct {
	Items []struct {
		HTMLURL string `json:"html_url"`
		Commit  struct {
			Message string `json:"message"`
			Author  struct {
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
		Author *actorRecord `json:"author"`
	} `json:"items"`
}

// fetchSearch uses the global commit search index. Broadest coverage, but the
// index lags behind the other routes.
func (g *GitHub) fetchSearch(ctx context.Context) ([]models.Update, error) {
	var result searchResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        "author:" + g.cfg.User,
			"sort":     "committer-date",
			"order":    "desc",
			"per_page": strconv.Itoa(g.cfg.CommitLimit),
		}).
		SetResult(&result).
		Get("/search/commits")
	if err != nil {
		return nil, fmt.Errorf("search commits: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("search commits: status %d", resp.StatusCode())
	}

	var updates []models.Update
	for _, item := range result.Items {
		avatar := ""
		if item.Author != nil {
			avatar = item.Author.AvatarURL
		}
		update, ok := commitUpdate(item.Repository.FullName, "", item.HTMLURL, item.Commit.Message, avatar, item.Commit.Author.Date)
		if ok {
			updates = append(updates, update)
		}
	}

	return finalizeCommits(updates, g.cfg.CommitLimit), nil
}

// commitUpdate normalizes one raw commit into an Update. Commits without a
// parseable date are dropped.
func commitUpdate(repo, sha, url, message, avatar, rawDate string) (models.Update, bool) {
	date, err := parseTime(rawDate)
	if err != nil {
		log.WithFields(log.Fields{
			"repo": repo,
			"sha":  sha,
		}).Debug("Dropping commit with unparseable date")
		return models.Update{}, false
	}

	title := firstLine(message)
	if title == "" {
		title = "Commit"
	}

	return models.Update{
		Title:       title,
		URL:         url,
		Description: fmt.Sprintf("Commit in repository %s", repo),
		Image:       optional(avatar),
		Source:      models.SourceGitHub,
		Date:        models.Timestamp{Time: date},
	}, true
}

// finalizeCommits deduplicates by canonical commit URL, orders newest first
// and caps the result. The same commit can surface via multiple listing
// routes, so the URL is the dedup key.
func finalizeCommits(updates []models.Update, limit int) []models.Update {
	updates = lo.UniqBy(updates, func(u models.Update) string {
		return u.URL
	})
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Date.After(updates[j].Date.Time)
	})
	if limit > 0 && len(updates) > limit {
		updates = updates[:limit]
	}
	return updates
}
