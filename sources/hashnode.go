package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"

	"pulso/config"
	"pulso/models"
)

const publicationQuery = `
query Publication($host: String!, $first: Int!) {
  publication(host: $host) {
    posts(first: $first) {
      edges {
        node {
          title
          brief
          slug
          coverImage { url }
          publishedAt
        }
      }
    }
  }
}`

// Hashnode surfaces the most recent posts of one publication as feed
// updates. The GraphQL API and the publication's RSS feed are functionally
// equivalent transports, selected by configuration.
type Hashnode struct {
	cfg    config.HashnodeConfig
	client *resty.Client
	parser *gofeed.Parser
}

func NewHashnode(cfg config.HashnodeConfig, client *resty.Client) *Hashnode {
	if client == nil {
		client = resty.New().SetTimeout(15 * time.Second)
	}
	return &Hashnode{
		cfg:    cfg,
		client: client,
		parser: gofeed.NewParser(),
	}
}

func (h *Hashnode) Name() string {
	return "hashnode"
}

func (h *Hashnode) Tag() models.Source {
	return models.SourceHashnode
}

func (h *Hashnode) Fetch(ctx context.Context) ([]models.Update, error) {
	if h.cfg.Transport == config.TransportRSS {
		return h.fetchRSS(ctx)
	}
	return h.fetchGraphQL(ctx)
}

type publicationResponse struct {
	Data struct {
		Publication *struct {
			Posts struct {
				Edges []struct {
					Node struct {
						Title      string `json:"title"`
						Brief      string `json:"brief"`
						Slug       string `json:"slug"`
						CoverImage *struct {
							URL string `json:"url"`
						} `json:"coverImage"`
						PublishedAt string `json:"publishedAt"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"posts"`
		} `json:"publication"`
	} `json:"data"`
}

func (h *Hashnode) fetchGraphQL(ctx context.Context) ([]models.Update, error) {
	var result publicationResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"query": publicationQuery,
			"variables": map[string]interface{}{
				"host":  h.cfg.Host,
				"first": h.cfg.PostLimit,
			},
		}).
		SetResult(&result).
		Post(h.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("query publication: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("query publication: status %d", resp.StatusCode())
	}
	if result.Data.Publication == nil {
		log.WithFields(log.Fields{
			"host": h.cfg.Host,
		}).Info("Publication not found, no posts to show")
		return nil, nil
	}

	edges := result.Data.Publication.Posts.Edges
	updates := make([]models.Update, 0, len(edges))
	for _, edge := range edges {
		node := edge.Node
		date, err := parseTime(node.PublishedAt)
		if err != nil {
			log.WithFields(log.Fields{
				"slug": node.Slug,
			}).Debug("Dropping post with unparseable date")
			continue
		}

		cover := ""
		if node.CoverImage != nil {
			cover = node.CoverImage.URL
		}

		updates = append(updates, models.Update{
			Title:       node.Title,
			URL:         fmt.Sprintf("https://%s/%s", h.cfg.Host, node.Slug),
			Description: node.Brief,
			Image:       h.coverOrFallback(cover),
			Source:      models.SourceHashnode,
			Date:        models.Timestamp{Time: date},
		})
	}

	if len(updates) == 0 {
		log.WithFields(log.Fields{
			"host": h.cfg.Host,
		}).Info("Publication has no posts yet")
	}

	return updates, nil
}

func (h *Hashnode) fetchRSS(ctx context.Context) ([]models.Update, error) {
	feed, err := h.parser.ParseURLWithContext(h.cfg.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", h.cfg.FeedURL, err)
	}

	items := feed.Items
	if h.cfg.PostLimit > 0 && len(items) > h.cfg.PostLimit {
		items = items[:h.cfg.PostLimit]
	}

	updates := make([]models.Update, 0, len(items))
	for _, item := range items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			log.WithFields(log.Fields{
				"link": item.Link,
			}).Debug("Dropping feed item without a date")
			continue
		}

		cover := ""
		if item.Image != nil {
			cover = item.Image.URL
		}

		updates = append(updates, models.Update{
			Title:       item.Title,
			URL:         item.Link,
			Description: item.Description,
			Image:       h.coverOrFallback(cover),
			Source:      models.SourceHashnode,
			Date:        models.Timestamp{Time: published.UTC()},
		})
	}

	if len(updates) == 0 {
		log.WithFields(log.Fields{
			"feed": h.cfg.FeedURL,
		}).Info("Feed has no posts yet")
	}

	return updates, nil
}

func (h *Hashnode) coverOrFallback(cover string) *string {
	if cover == "" {
		cover = h.cfg.FallbackCover
	}
	return optional(cover)
}
