package handler

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/apiclient"
	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/dashboard"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/workflow"
)

// EventSource fans out activity events to live listeners.
type EventSource interface {
	Subscribe() (<-chan workflow.ActivityEvent, func())
}

// Live frame types.
const (
	FrameLoading = "loading"
	FrameView    = "view"
	FrameEvent   = "event"
	FrameError   = "error"
)

// LiveFrame is one websocket message of the dashboard stream.
type LiveFrame struct {
	Type     string                  `json:"type"`
	Loading  *bool                   `json:"loading,omitempty"`
	View     *dashboard.View         `json:"view,omitempty"`
	Event    *workflow.ActivityEvent `json:"event,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Redirect string                  `json:"redirect,omitempty"`
}

// LiveHandler streams a dashboard load and subsequent activity events over a
// websocket.
type LiveHandler struct {
	pages  *dashboard.Pages
	events EventSource
	store  session.Store
	logger zerolog.Logger
}

// NewLiveHandler constructs the handler. events may be nil, in which case the
// stream ends after the view.
func NewLiveHandler(pages *dashboard.Pages, events EventSource, store session.Store, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		pages:  pages,
		events: events,
		store:  store,
		logger: logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register binds the websocket route.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		sess, ok := middleware.SessionFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		policy, ok := guard.ForPage(c.Query("page", guard.AnyRolePage.Name))
		if !ok {
			return fiber.ErrBadRequest
		}
		c.Locals("live_session", sess)
		c.Locals("live_policy", policy)
		c.Locals("correlation_id", middleware.GetCorrelationID(c))
		return c.Next()
	})

	router.Get("/ws/dashboard", websocket.New(h.handleConnection))
}

type frameWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *frameWriter) send(frame LiveFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(frame)
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	sess, _ := conn.Locals("live_session").(session.Session)
	policy, _ := conn.Locals("live_policy").(guard.Policy)
	correlation, _ := conn.Locals("correlation_id").(string)
	log := h.logger.With().Str("correlation_id", correlation).Str("page", policy.Name).Logger()

	ctx, cancel := context.WithCancel(apiclient.WithCorrelationID(context.Background(), correlation))
	defer cancel()

	// The read loop only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	out := &frameWriter{conn: conn}
	page := dashboard.NewPage(policy.Name, func(loading bool) {
		if loading {
			_ = out.send(loadingFrame(true))
		}
	})

	state, err := h.pages.Load(ctx, sess, page, policy)
	if err != nil {
		h.endRejectedSession(ctx, sess, err, log)
		frame := LiveFrame{Type: FrameError, Message: apperr.UserMessage(err)}
		if apperr.IsAuthorization(err) {
			frame.Redirect = guard.LoginRedirect(err)
		}
		_ = out.send(frame)
		_ = out.send(loadingFrame(page.Loading()))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, string(apperr.KindOf(err))))
		return
	}

	view := state.Snapshot()
	if err := out.send(LiveFrame{Type: FrameView, View: &view}); err != nil {
		return
	}
	if err := out.send(loadingFrame(page.Loading())); err != nil {
		return
	}
	log.Debug().Msg("live dashboard delivered")

	if h.events == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		return
	}

	stream, unsubscribe := h.events.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			if !relevant(policy, view.Principal, event) {
				continue
			}
			if err := out.send(LiveFrame{Type: FrameEvent, Event: &event}); err != nil {
				log.Debug().Err(err).Msg("live dashboard client gone")
				return
			}
		}
	}
}

func (h *LiveHandler) endRejectedSession(ctx context.Context, sess session.Session, err error, log zerolog.Logger) {
	if !apperr.CredentialRejected(err) || h.store == nil {
		return
	}
	if delErr := h.store.Delete(ctx, sess.ID); delErr != nil {
		log.Warn().Err(delErr).Msg("failed to drop rejected session")
	}
}

func loadingFrame(loading bool) LiveFrame {
	return LiveFrame{Type: FrameLoading, Loading: &loading}
}

// relevant reports whether a page should hear about event. Students only see
// their own activities; reviewers and admins see everything.
func relevant(policy guard.Policy, principal *models.Principal, event workflow.ActivityEvent) bool {
	if policy.Name != guard.StudentPage.Name {
		return true
	}
	return principal != nil && principal.ID == event.UserID
}
