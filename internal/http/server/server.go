package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/fiber/v2/utils"

	"goal-image-service/internal/config"
	"goal-image-service/internal/domain"
	"goal-image-service/internal/http/handlers"
	"goal-image-service/internal/http/middleware"
	"goal-image-service/internal/infra/logging"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config  config.Config
	Images  handlers.ImageService
	Jobs    handlers.JobDispatcher
	Pool    handlers.PoolStats
	Storage fiber.Storage
	// Ready backs /readyz; nil always reports ready.
	Ready func() bool
}

// ErrorHandler renders every error as {"success": false, "error", "message"}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   utils.StatusMessage(code),
		"message": msg,
	})
}

// New creates the fiber app with middleware, routes and a JSON 404 fallback.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})

	middleware.Register(app, d.Config, d.Storage, d.Ready)
	RegisterRoutes(app, d)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts the /v1 API.
func RegisterRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/v1")

	bound := func(h fiber.Handler) fiber.Handler {
		if d.Config.Server.RequestTimeout <= 0 {
			return h
		}
		return timeout.NewWithContext(h, d.Config.Server.RequestTimeout, domain.ErrRenderTimeout)
	}

	images := handlers.NewImages(d.Images, d.Jobs)
	v1.Post("/images/generate", bound(images.Generate))
	v1.Post("/images/generate/async", bound(images.GenerateAsync))
	v1.Get("/images/jobs/:id", bound(images.JobStatus))
	v1.Get("/images", bound(images.List))
	v1.Delete("/images/*", bound(images.Delete))

	if d.Pool != nil {
		v1.Get("/browser/stats", handlers.BrowserStats(d.Pool))
	}

	v1.Get("/monitor", monitor.New())
}
