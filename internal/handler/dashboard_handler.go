package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/dashboard"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/utils"
)

// DashboardHandler serves the role dashboards.
type DashboardHandler struct {
	pages  *dashboard.Pages
	store  session.Store
	secure bool
	logger zerolog.Logger
}

// NewDashboardHandler constructs the handler. store is used to end sessions
// whose credential the API rejects.
func NewDashboardHandler(pages *dashboard.Pages, store session.Store, secure bool, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		pages:  pages,
		store:  store,
		secure: secure,
		logger: logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds one route per dashboard page. The guard runs inside the
// load, so these routes take no gate.
func (h *DashboardHandler) Register(router fiber.Router) {
	for _, policy := range []guard.Policy{guard.StudentPage, guard.FacultyPage, guard.AdminPage, guard.AnyRolePage} {
		router.Get("/"+policy.Name, h.page(policy))
	}
}

func (h *DashboardHandler) page(policy guard.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := middleware.SessionFrom(c)
		if !ok {
			return middleware.Deny(c, h.store, h.secure, h.logger, apperr.E(apperr.KindUnauthenticated, "dashboard."+policy.Name, "no session"))
		}

		state, err := h.pages.Load(middleware.RequestContext(c), sess, nil, policy)
		if err != nil {
			if apperr.IsAuthorization(err) {
				return middleware.Deny(c, h.store, h.secure, h.logger, err)
			}
			return respondError(c, err)
		}

		view := state.Snapshot()
		if len(view.Degraded) > 0 {
			requestLogger(h.logger, c).Warn().Str("page", policy.Name).Int("degraded", len(view.Degraded)).Msg("dashboard rendered degraded")
		}
		return utils.OK(c, view, "dashboard loaded", fiber.Map{
			"page":      policy.Name,
			"degraded":  view.Degraded,
			"loaded_at": state.LoadedAt,
		})
	}
}
