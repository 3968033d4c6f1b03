package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/utils"
)

// ProfileAPI updates the current principal.
type ProfileAPI interface {
	UpdateProfile(ctx context.Context, sess session.Session, update models.ProfileUpdate) (models.Principal, error)
}

// ProfileHandler serves PUT /profile.
type ProfileHandler struct {
	api    ProfileAPI
	pages  PageForgetter
	logger zerolog.Logger
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(api ProfileAPI, pages PageForgetter, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		api:    api,
		pages:  pages,
		logger: logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register binds the profile route behind gate.
func (h *ProfileHandler) Register(router fiber.Router, gate fiber.Handler) {
	router.Put("/profile", gate, h.update)
}

func (h *ProfileHandler) update(c *fiber.Ctx) error {
	sess, _ := middleware.SessionFrom(c)

	var update models.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid profile payload", nil)
	}
	if update.FullName == nil && update.Department == nil && update.Year == nil {
		return utils.Fail(c, fiber.StatusBadRequest, "nothing to update", nil)
	}

	principal, err := h.api.UpdateProfile(middleware.RequestContext(c), sess, update)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("profile update failed")
		return respondError(c, err)
	}

	// Cached pages embed the old profile.
	if h.pages != nil {
		h.pages.Forget(sess.ID)
	}
	return utils.SendSuccess(c, "profile updated", principal)
}
