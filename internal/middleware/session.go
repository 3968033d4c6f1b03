package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/session"
)

const sessionLocal = "portal_session"

// Sessions resolves the session cookie against store and binds the session to
// the request. An unknown or expired id clears the cookie and the request
// continues anonymously.
func Sessions(store session.Store, secure bool, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "session_middleware").Logger()

	return func(c *fiber.Ctx) error {
		id, ok := session.ReadCookie(c)
		if !ok {
			return c.Next()
		}

		sess, err := store.Get(RequestContext(c), id)
		switch {
		case err == nil:
			c.Locals(sessionLocal, sess)
		case errors.Is(err, session.ErrSessionNotFound):
			session.ClearCookie(c, secure)
		default:
			log.Warn().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("session lookup failed")
		}
		return c.Next()
	}
}

// SessionFrom returns the session bound by Sessions.
func SessionFrom(c *fiber.Ctx) (session.Session, bool) {
	sess, ok := c.Locals(sessionLocal).(session.Session)
	return sess, ok
}

// BindSession attaches sess to the request, e.g. right after login.
func BindSession(c *fiber.Ctx, sess session.Session) {
	c.Locals(sessionLocal, sess)
}
