// Package ingress is the concrete, minimal default implementation of
// the external "reconfiguration channel" collaborator: a fiber.App
// exposing health, metrics, and a single settings-patch endpoint.
// There is no flow editor, no group/palette CRUD beyond applying a
// partial settings delta, and no UI — a full control plane is still
// the excluded external collaborator's job.
package ingress

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/health"
	"github.com/tiko09/ledctrl/internal/metrics"
	"github.com/tiko09/ledctrl/internal/settings"
)

// Config controls the ingress server's auth gating. A non-empty
// APIKeyHash enables API-key auth on /settings. Bearer-token auth is
// used only when RequireJWT is set and APIKeyHash is empty; the two
// are never combined, and JWT.SecretKey alone enables nothing. With
// neither enabled, /settings is open. At least one should be set
// outside of development.
type Config struct {
	APIKeyHash string
	JWT        JWTConfig
	RequireJWT bool
}

// Server wires the ingress HTTP surface to the running core's
// settings store, metrics, and health checker.
type Server struct {
	app     *fiber.App
	store   *settings.Store
	metrics *metrics.Metrics
	checker *health.HealthChecker
	logger  *zap.Logger
}

// New builds a Server. Call Listen to start serving.
func New(cfg Config, store *settings.Store, m *metrics.Metrics, checker *health.HealthChecker, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(metrics.MetricsMiddleware(m))

	app.Get("/healthz", healthzHandler(checker))
	app.Get("/metrics", metricsHandler(m))

	settingsGroup := app.Group("/settings")
	if cfg.APIKeyHash != "" {
		settingsGroup.Use(APIKeyMiddleware(cfg.APIKeyHash))
	} else if cfg.RequireJWT {
		settingsGroup.Use(JWTMiddleware(cfg.JWT))
	}
	settingsGroup.Post("/", settingsPatchHandler(store, logger))

	return &Server{app: app, store: store, metrics: m, checker: checker, logger: logger}
}

// Listen blocks serving on addr until the process exits or Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func healthzHandler(checker *health.HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		checker.RunChecks(ctx)
		results := checker.GetCheckResults()

		status := checker.GetOverallStatus()
		code := fiber.StatusOK
		if status == health.StatusUnhealthy {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(results)
	}
}

func metricsHandler(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.UpdateSystemMetrics()
		if c.Get("Accept") == "text/plain" || c.Query("format") == "prometheus" {
			c.Set("Content-Type", "text/plain; version=0.0.4")
			return c.SendString(m.PrometheusFormat())
		}
		return c.JSON(m.GetMetrics())
	}
}

func settingsPatchHandler(store *settings.Store, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch settings.Patch
		if err := c.BodyParser(&patch); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid settings patch: " + err.Error()})
		}

		next := store.Apply(patch)
		logger.Info("settings patch applied", zap.Bool("on", next.Animation.On))

		return c.JSON(next)
	}
}
