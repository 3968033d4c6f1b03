package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/studenthub-portal/internal/apiclient"
)

const correlationLocal = "correlation_id"

// CorrelationID ensures every request carries a correlation identifier. The id
// is echoed to the browser and forwarded on every API call the request makes.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get(apiclient.CorrelationHeader))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		c.Locals(correlationLocal, incoming)
		c.Set(apiclient.CorrelationHeader, incoming)
		c.SetUserContext(apiclient.WithCorrelationID(c.UserContext(), incoming))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return apiclient.CorrelationID(c.UserContext())
}

// RequestContext returns the request's context with the correlation id attached.
func RequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return apiclient.WithCorrelationID(ctx, GetCorrelationID(c))
}
