package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/utils"
)

// AuthAPI is the part of the Student Hub API the auth routes use.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.Token, error)
	Register(ctx context.Context, registration models.Registration) (models.Principal, error)
	Me(ctx context.Context, sess session.Session) (models.Principal, error)
}

// PageForgetter discards a session's cached dashboard pages.
type PageForgetter interface {
	Forget(sessionID string)
}

// AuthHandler serves login, registration and logout.
type AuthHandler struct {
	api       AuthAPI
	store     session.Store
	pages     PageForgetter
	validator *validator.Validate
	secure    bool
	logger    zerolog.Logger
}

// NewAuthHandler constructs the handler. secure marks the session cookie Secure.
func NewAuthHandler(api AuthAPI, store session.Store, pages PageForgetter, validate *validator.Validate, secure bool, logger zerolog.Logger) *AuthHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthHandler{
		api:       api,
		store:     store,
		pages:     pages,
		validator: validate,
		secure:    secure,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the auth routes. limiter, when set, guards login and registration.
func (h *AuthHandler) Register(router fiber.Router, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("/login", limiter, h.login)
	router.Post("/register", limiter, h.register)
	router.Post("/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid login payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "email and password are required", nil)
	}

	ctx := middleware.RequestContext(c)
	log := requestLogger(h.logger, c)

	token, err := h.api.Login(ctx, req.Email, req.Password)
	if err != nil {
		log.Info().Str("kind", string(apperr.KindOf(err))).Msg("login rejected")
		return respondErrorMessage(c, err, loginMessage(err))
	}

	sess, err := h.store.Create(ctx, token.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to persist session")
		return utils.Fail(c, fiber.StatusInternalServerError, "could not start a session", nil)
	}

	principal, err := h.api.Me(ctx, sess)
	if err != nil {
		if delErr := h.store.Delete(ctx, sess.ID); delErr != nil {
			log.Warn().Err(delErr).Msg("failed to drop session after profile failure")
		}
		return respondErrorMessage(c, err, loginMessage(err))
	}

	session.WriteCookie(c, sess, h.secure)
	log.Info().Uint("user_id", principal.ID).Str("role", principal.NormalizedRole()).Msg("login succeeded")
	return c.Redirect(guard.LandingPath(principal.Role), fiber.StatusSeeOther)
}

// loginMessage prefers the API's own wording ("Incorrect email or password")
// over the generic session-expired text.
func loginMessage(err error) string {
	if apperr.KindOf(err) != apperr.KindNetworkUnreachable {
		if detail := apperr.Detail(err); detail != "" {
			return detail
		}
	}
	return apperr.UserMessage(err)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var req models.Registration
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid registration payload", nil)
	}
	req = req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid registration payload", validationDetails(err))
	}

	principal, err := h.api.Register(middleware.RequestContext(c), req)
	if err != nil {
		return respondErrorMessage(c, err, loginMessage(err))
	}

	requestLogger(h.logger, c).Info().Uint("user_id", principal.ID).Str("role", principal.NormalizedRole()).Msg("registration forwarded")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", principal)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	if sess, ok := middleware.SessionFrom(c); ok {
		if err := h.store.Delete(middleware.RequestContext(c), sess.ID); err != nil {
			requestLogger(h.logger, c).Warn().Err(err).Msg("failed to delete session")
		}
		if h.pages != nil {
			h.pages.Forget(sess.ID)
		}
	}
	session.ClearCookie(c, h.secure)
	return c.Redirect("/login", fiber.StatusSeeOther)
}

func validationDetails(err error) fiber.Map {
	details := fiber.Map{}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, fieldErr := range errs {
			details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
		}
	}
	return details
}
