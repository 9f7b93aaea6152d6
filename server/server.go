package server

import (
	"embed"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"pulso/config"
	"pulso/feeds"
)

//go:embed static/*
var static embed.FS

type ServerConfig struct {

	// The aggregator that produces the feed
	Aggregator *feeds.Aggregator

	// Advisory cache of the last aggregated feed
	Cache *feeds.Cache

	// How long a cached feed stays fresh; zero hits the adapters every time
	FreshnessWindow time.Duration

	// Public profile links served at /api/profile
	Profile config.ProfileConfig

	// CORS origin allowed to call the API; empty allows none
	AllowOrigin string
}

// Returns a fiber.App instance to be used as an HTTP server for the updates feed
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	if config.AllowOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.AllowOrigin,
			AllowHeaders: "Cache-Control",
		}))
	}

	// Cache dashboard assets only, never the API
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != "GET" {
				return true
			}
			if strings.HasPrefix(c.Path(), "/api") {
				return true
			}
			if c.Path() == "/metrics" || c.Path() == "/healthz" {
				return true
			}
			return false
		},
		Expiration: time.Minute,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	// The aggregated feed. Always responds 200 with a JSON array; the feed's
	// absence is not a service failure, so an all-sources-failed aggregation
	// degrades to an empty array rather than a 5xx.
	app.Get("/api/updates", func(c *fiber.Ctx) error {
		if data, ok := config.Cache.Get(config.FreshnessWindow); ok {
			return c.JSON(data)
		}

		updates := config.Aggregator.Fetch(c.Context())
		config.Cache.Set(updates)

		return c.JSON(updates)
	})

	app.Get("/api/profile", func(c *fiber.Ctx) error {
		return c.JSON(config.Profile.LinksOrEmpty())
	})

	// Serve the embedded dashboard
	app.Use("/", filesystem.New(filesystem.Config{
		Browse:     false,
		Index:      "index.html",
		Root:       http.FS(static),
		PathPrefix: "/static",
	}))

	return app
}
