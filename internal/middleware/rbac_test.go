package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

type stubLoader struct {
	principal models.Principal
	err       error
	calls     int
}

func (s *stubLoader) Me(context.Context, session.Session) (models.Principal, error) {
	s.calls++
	return s.principal, s.err
}

func gatedApp(t *testing.T, loader *stubLoader, store session.Store, policy guard.Policy) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Sessions(store, false, zerolog.Nop()))
	gate := Gate(GateConfig{Loader: loader, Store: store, Logger: zerolog.Nop()}, policy)
	app.Get("/faculty", gate, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		require.True(t, ok)
		return c.SendString(principal.Role)
	})
	app.Post("/faculty/action", gate, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func newSession(t *testing.T, store session.Store) session.Session {
	t.Helper()
	sess, err := store.Create(context.Background(), "token-abc")
	require.NoError(t, err)
	return sess
}

func withCookie(req *http.Request, sess session.Session) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	return req
}

func TestGateAdmitsAllowedRoles(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sess := newSession(t, store)

	for _, role := range []string{models.RoleFaculty, models.RoleAdmin} {
		loader := &stubLoader{principal: models.Principal{Role: role}}
		app := gatedApp(t, loader, store, guard.FacultyPage)

		resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/faculty", nil), sess))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Equal(t, 1, loader.calls)
	}
}

func TestGateRedirectsDeniedRole(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sess := newSession(t, store)
	loader := &stubLoader{principal: models.Principal{Role: models.RoleStudent}}
	app := gatedApp(t, loader, store, guard.FacultyPage)

	resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/faculty", nil), sess))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=access_denied", resp.Header.Get("Location"))

	// Access denial keeps the session.
	_, err = store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
}

func TestGateWithoutSessionSkipsBackend(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	loader := &stubLoader{principal: models.Principal{Role: models.RoleFaculty}}
	app := gatedApp(t, loader, store, guard.FacultyPage)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/faculty", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=session_expired", resp.Header.Get("Location"))
	require.Zero(t, loader.calls)
}

func TestGateRejectedCredentialEndsSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sess := newSession(t, store)
	loader := &stubLoader{err: apperr.Remote("auth.me", http.StatusUnauthorized, "Could not validate credentials")}
	app := gatedApp(t, loader, store, guard.FacultyPage)

	resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/faculty", nil), sess))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=session_expired", resp.Header.Get("Location"))

	_, err = store.Get(context.Background(), sess.ID)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	require.Contains(t, resp.Header.Get("Set-Cookie"), session.CookieName+"=;")
}

func TestGateUnreachableBackendKeepsSession(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sess := newSession(t, store)
	loader := &stubLoader{err: apperr.Wrap(apperr.KindNetworkUnreachable, "auth.me", context.DeadlineExceeded)}
	app := gatedApp(t, loader, store, guard.FacultyPage)

	resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodGet, "/faculty", nil), sess))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?notice=backend_unreachable", resp.Header.Get("Location"))

	_, err = store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
}

func TestGateAnswersMutationsWithEnvelope(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sess := newSession(t, store)
	loader := &stubLoader{principal: models.Principal{Role: models.RoleStudent}}
	app := gatedApp(t, loader, store, guard.FacultyPage)

	resp, err := app.Test(withCookie(httptest.NewRequest(http.MethodPost, "/faculty/action", strings.NewReader("")), sess))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var payload struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.False(t, payload.Success)
	require.Equal(t, "Access denied for your role.", payload.Message)
	require.Equal(t, "/login?notice=access_denied", payload.Details["redirect"])
}

func TestSessionsClearsUnknownCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	app := fiber.New()
	app.Use(Sessions(store, false, zerolog.Nop()))
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := SessionFrom(c)
		require.False(t, ok)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "missing"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Set-Cookie"), session.CookieName+"=;")
}
