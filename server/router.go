package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host    string `envconfig:"HOST" split_words:"true" default:"0.0.0.0"`
	Port    int    `envconfig:"PORT" split_words:"true" default:"8000"`
	Version string `envconfig:"VERSION" split_words:"true" default:"dev"`
}

// NewApp builds the fiber app with routing and request logging in place.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestLogger)

	api := app.Group("/api")
	api.Post("/chat", handler.HandleChat)
	api.Post("/calc", handler.HandleCalc)

	admin := api.Group("/admin")
	admin.Get("/health", handler.HandleHealth)
	admin.Get("/logs", handler.HandleLogs)

	return app
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("http request")

	return err
}
