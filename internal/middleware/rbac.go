package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/utils"
)

const principalLocal = "portal_principal"

// PrincipalLoader resolves the principal behind a session.
type PrincipalLoader interface {
	Me(ctx context.Context, sess session.Session) (models.Principal, error)
}

// GateConfig wires the role gate.
type GateConfig struct {
	Loader PrincipalLoader
	Store  session.Store
	Secure bool
	Logger zerolog.Logger
}

// Gate admits the request only when the session's principal satisfies policy.
// The principal is fetched fresh on every request; nothing is trusted from the
// cookie beyond the session id.
func Gate(cfg GateConfig, policy guard.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			principal *models.Principal
			fetchErr  error
		)
		sess, ok := SessionFrom(c)
		if ok {
			p, err := cfg.Loader.Me(RequestContext(c), sess)
			if err != nil {
				fetchErr = err
			} else {
				principal = &p
			}
		} else {
			fetchErr = apperr.E(apperr.KindUnauthenticated, "gate."+policy.Name, "no session")
		}

		if err := guard.Authorize(principal, fetchErr, policy); err != nil {
			return Deny(c, cfg.Store, cfg.Secure, cfg.Logger, err)
		}

		c.Locals(principalLocal, *principal)
		return c.Next()
	}
}

// PrincipalFrom returns the principal admitted by Gate.
func PrincipalFrom(c *fiber.Ctx) (models.Principal, bool) {
	principal, ok := c.Locals(principalLocal).(models.Principal)
	return principal, ok
}

// Deny ends a request that failed authorization. A rejected credential also
// ends the session; an unreachable backend does not. Page loads are redirected
// to the login page, other requests get an error envelope naming the redirect.
func Deny(c *fiber.Ctx, store session.Store, secure bool, logger zerolog.Logger, err error) error {
	sess, hasSession := SessionFrom(c)
	if hasSession && apperr.CredentialRejected(err) && store != nil {
		if delErr := store.Delete(RequestContext(c), sess.ID); delErr != nil {
			logger.Warn().Err(delErr).Str("correlation_id", GetCorrelationID(c)).Msg("failed to drop rejected session")
		}
		session.ClearCookie(c, secure)
	}

	target := guard.LoginRedirect(err)
	logger.Info().
		Str("correlation_id", GetCorrelationID(c)).
		Str("kind", string(apperr.KindOf(err))).
		Str("path", c.Path()).
		Msg("request denied")

	if c.Method() == fiber.MethodGet {
		return c.Redirect(target, fiber.StatusSeeOther)
	}
	return utils.Fail(c, apperr.HTTPStatus(err), apperr.UserMessage(err), fiber.Map{"redirect": target})
}
