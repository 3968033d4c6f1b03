package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/dashboard"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/utils"
	"github.com/noah-isme/studenthub-portal/internal/workflow"
)

// ActivityHandler serves activity submission and review.
type ActivityHandler struct {
	pages     *dashboard.Pages
	submitter *workflow.Submitter
	logger    zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(pages *dashboard.Pages, submitter *workflow.Submitter, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		pages:     pages,
		submitter: submitter,
		logger:    logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register binds the activity routes behind their role gates.
func (h *ActivityHandler) Register(router fiber.Router, studentGate, facultyGate fiber.Handler) {
	router.Post("/student/activities", studentGate, h.submit)
	router.Post("/faculty/activities/:id/:decision", facultyGate, h.decide)
}

func (h *ActivityHandler) submit(c *fiber.Ctx) error {
	sess, _ := middleware.SessionFrom(c)
	log := requestLogger(h.logger, c)

	var draft workflow.Draft
	if err := c.BodyParser(&draft); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid activity payload", nil)
	}

	var proof *workflow.Proof
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid multipart payload", nil)
		}
		if files := form.File["proof"]; len(files) > 0 {
			file, err := files[0].Open()
			if err != nil {
				return utils.Fail(c, fiber.StatusBadRequest, "unable to read proof file", nil)
			}
			defer file.Close()
			proof = &workflow.Proof{Name: files[0].Filename, Reader: file}
		}
	}

	ctx := middleware.RequestContext(c)
	state, err := h.pages.Current(ctx, sess, guard.StudentPage)
	if err != nil {
		return respondError(c, err)
	}

	created, err := h.submitter.Submit(ctx, sess, state.Activities, draft, proof)
	if err != nil {
		log.Warn().Err(err).Msg("activity submission failed")
		return respondError(c, err)
	}

	event := log.Info().Str("activity_id", created.ID)
	if principal, ok := middleware.PrincipalFrom(c); ok {
		event = event.Uint("user_id", principal.ID)
	}
	event.Msg("activity submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity submitted", created)
}

func (h *ActivityHandler) decide(c *fiber.Ctx) error {
	sess, _ := middleware.SessionFrom(c)
	log := *requestLogger(h.logger, c)
	if reviewer, ok := middleware.PrincipalFrom(c); ok {
		log = log.With().Uint("reviewer_id", reviewer.ID).Logger()
	}

	decision, err := workflow.ParseDecision(c.Params("decision"))
	if err != nil {
		return respondError(c, err)
	}

	ctx := middleware.RequestContext(c)
	state, err := h.pages.Current(ctx, sess, guard.FacultyPage)
	if err != nil {
		return respondError(c, err)
	}

	activity, err := state.Pending.Decide(ctx, sess, c.Params("id"), decision)
	if err != nil {
		log.Warn().Err(err).Str("activity_id", c.Params("id")).Str("decision", string(decision)).Msg("review decision failed")
		return respondError(c, err)
	}

	log.Info().Str("activity_id", activity.ID).Str("decision", string(decision)).Msg("review decision recorded")
	return utils.OK(c, activity, "activity "+string(activity.Status), fiber.Map{
		"pending_remaining": state.Pending.Len(),
	})
}
