package session

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieName is the fixed name of the browser cookie carrying the session id.
const CookieName = "studenthub_session"

// ReadCookie returns the trimmed session id when present.
func ReadCookie(c *fiber.Ctx) (string, bool) {
	if c == nil {
		return "", false
	}
	value := strings.TrimSpace(c.Cookies(CookieName))
	if value == "" {
		return "", false
	}
	return value, true
}

// WriteCookie sets the session cookie.
func WriteCookie(c *fiber.Ctx, sess Session, secure bool) {
	if c == nil {
		return
	}
	cookie := &fiber.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		cookie.Expires = sess.ExpiresAt
	}
	c.Cookie(cookie)
}

// ClearCookie expires the session cookie.
func ClearCookie(c *fiber.Ctx, secure bool) {
	if c == nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
