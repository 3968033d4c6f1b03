package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/config"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/handler"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/observability"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Sessions         session.Store
	Principals       middleware.PrincipalLoader
	Health           handler.Pinger
	AuthHandler      *handler.AuthHandler
	ProfileHandler   *handler.ProfileHandler
	DashboardHandler *handler.DashboardHandler
	ActivityHandler  *handler.ActivityHandler
	ReportHandler    *handler.ReportHandler
	LiveHandler      *handler.LiveHandler
	Logger           zerolog.Logger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))
	app.Get("/metrics", observability.MetricsHandler())

	portal := app.Group("", middleware.Sessions(deps.Sessions, cfg.SessionCookieSecure, deps.Logger))

	gateConfig := middleware.GateConfig{
		Loader: deps.Principals,
		Store:  deps.Sessions,
		Secure: cfg.SessionCookieSecure,
		Logger: deps.Logger,
	}
	studentGate := middleware.Gate(gateConfig, guard.StudentPage)
	facultyGate := middleware.Gate(gateConfig, guard.FacultyPage)
	adminGate := middleware.Gate(gateConfig, guard.AdminPage)
	anyGate := middleware.Gate(gateConfig, guard.AnyRolePage)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(portal, middleware.RateLimit("login", cfg.LoginRateLimit, time.Minute))
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(portal, anyGate)
	}
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(portal)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(portal, studentGate, facultyGate)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(portal, adminGate)
	}
	if deps.LiveHandler != nil {
		deps.LiveHandler.Register(portal)
	}
}
