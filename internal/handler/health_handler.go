package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studenthub-portal/internal/config"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/utils"
)

// Pinger checks that the Student Hub API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Backend     string    `json:"backend"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck reports portal liveness and whether the API is reachable. The
// portal itself stays healthy when the API is down.
func HealthCheck(cfg config.Config, api Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		backend := "reachable"
		if api != nil {
			ctx, cancel := context.WithTimeout(middleware.RequestContext(c), 2*time.Second)
			defer cancel()
			if err := api.Ping(ctx); err != nil {
				backend = "unreachable"
			}
		}

		payload := HealthResponse{
			Status:      "ok",
			Backend:     backend,
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
