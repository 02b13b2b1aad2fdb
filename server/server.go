package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"newsfeed/db"
	"newsfeed/feed"
	"newsfeed/news"
)

type ServerConfig struct {

	// The store holding feed sources and users
	DB *db.DB

	// The fetcher used to probe candidate feed URLs
	Fetcher *feed.Fetcher

	// The aggregator producing merged item lists
	Aggregator *news.Aggregator

	// Recency window in days applied by the aggregation pipeline, 0 disables
	WindowDays int

	// Default page size for /news
	DefaultPageSize int

	// Debug exposes internal error messages in responses
	Debug bool
}

type server struct {
	config *ServerConfig
}

// Returns a fiber.App instance to be used as the HTTP server for the news API
func Server(config *ServerConfig) *fiber.App {
	s := &server{config: config}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(config.Debug),
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{AllowOrigins: "*"}))

	// Short-lived response cache for the shared news endpoints. The mobile
	// client's pull-to-refresh sends Cache-Control: no-cache to bypass it.
	app.Use(cache.New(cache.Config{
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return true
			}
			if c.Path() != "/news" && c.Path() != "/news/categories" {
				return true
			}
			return strings.Contains(c.Get(fiber.HeaderCacheControl), "no-cache")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			// Include the query parameters in the cache key
			return c.Request().URI().String()
		},
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "News aggregation API is running!"})
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	app.Get("/news", s.handleNews)
	app.Get("/news/categories", s.handleNewsCategories)
	app.Get("/news/personalized", s.authenticate, s.handlePersonalizedNews)
	app.Get("/news/details/:id", s.handleNewsDetails)

	app.Post("/users/register", s.handleRegister)
	app.Post("/users/login", s.handleLogin)
	app.Get("/users/:userId/preferences", s.authenticate, s.handleGetPreferences)
	app.Put("/users/:userId/preferences", s.authenticate, s.handleUpdatePreferences)
	app.Post("/users/articles/save", s.handleSaveArticle)
	app.Post("/users/articles/read", s.handleMarkArticleRead)

	app.Get("/feeds", s.handleListFeeds)
	app.Post("/feeds", s.handleCreateFeed)
	app.Post("/feeds/test", s.handleTestFeed)
	app.Put("/feeds/:feedId", s.handleUpdateFeed)
	app.Delete("/feeds/:feedId", s.handleDeleteFeed)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Route not found"})
	})

	return app
}

// errorHandler maps unexpected errors to a generic JSON 500, hiding the
// detail unless debug mode is on. fiber.Error statuses pass through with
// their message.
func errorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		if code >= fiber.StatusInternalServerError {
			log.WithFields(log.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"error":  err,
			}).Error("Request failed")

			message := "Internal Server Error"
			if debug {
				message = err.Error()
			}
			return c.Status(code).JSON(fiber.Map{"message": message})
		}

		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
