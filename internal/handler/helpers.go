package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/utils"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError answers with the error envelope for err. The message is the one
// shown to the user; details carry the error kind for clients that branch on it.
func respondError(c *fiber.Ctx, err error) error {
	return respondErrorMessage(c, err, apperr.UserMessage(err))
}

func respondErrorMessage(c *fiber.Ctx, err error, message string) error {
	details := fiber.Map{"kind": string(apperr.KindOf(err))}
	if status := apperr.StatusOf(err); status != 0 {
		details["upstream_status"] = status
	}
	return utils.Fail(c, responseStatus(err), message, details)
}

// responseStatus passes client-side API rejections (404, 409, 422) through and
// maps everything else by kind.
func responseStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindRemote, apperr.KindMutationFailure:
		if status := apperr.StatusOf(err); status >= fiber.StatusBadRequest && status < fiber.StatusInternalServerError {
			return status
		}
	}
	return apperr.HTTPStatus(err)
}
