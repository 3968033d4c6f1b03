package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/observability"
)

// EventType names an activity lifecycle event.
type EventType string

const (
	EventSubmitted EventType = "activity.submitted"
	EventDecided   EventType = "activity.decided"
)

// ActivityEvent is broadcast after the backend acknowledges a change.
type ActivityEvent struct {
	Type       EventType             `json:"type"`
	ActivityID string                `json:"activity_id"`
	Title      string                `json:"title"`
	Status     models.ActivityStatus `json:"status"`
	UserID     uint                  `json:"user_id"`
	Source     string                `json:"source,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// NewEvent builds an event for activity.
func NewEvent(eventType EventType, activity models.Activity) ActivityEvent {
	return ActivityEvent{
		Type:       eventType,
		ActivityID: activity.ID,
		Title:      activity.Title,
		Status:     activity.Status,
		UserID:     activity.UserID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher receives activity events. Publication never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, event ActivityEvent)
}

// EventBus fans activity events out to local subscribers, a Redis channel and
// a NATS subject, and relays events published by other portal nodes.
type EventBus struct {
	redis   *redis.Client
	channel string
	nats    *nats.Conn
	subject string
	nodeID  string
	logger  zerolog.Logger

	mu          sync.RWMutex
	subscribers map[chan ActivityEvent]struct{}
}

// NewEventBus builds a bus. Either transport may be nil.
func NewEventBus(redisClient *redis.Client, natsConn *nats.Conn, channel string, logger zerolog.Logger) *EventBus {
	channel = strings.TrimSpace(channel)
	subject := ""
	if channel != "" {
		subject = strings.ReplaceAll(channel, ":", ".")
	}
	return &EventBus{
		redis:       redisClient,
		channel:     channel,
		nats:        natsConn,
		subject:     subject,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "activity_event_bus").Logger(),
		subscribers: make(map[chan ActivityEvent]struct{}),
	}
}

// Start relays remote events to local subscribers until ctx is done. Both
// transports carry the same events, so only one is consumed, NATS first.
func (b *EventBus) Start(ctx context.Context) {
	switch {
	case b.nats != nil && b.subject != "":
		go b.consumeNATS(ctx)
	case b.redis != nil && b.channel != "":
		go b.consumeRedis(ctx)
	}
}

// Publish delivers event locally and to every configured transport.
func (b *EventBus) Publish(ctx context.Context, event ActivityEvent) {
	event.Source = b.nodeID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	b.broadcast(event)
	observability.EventsPublished().WithLabelValues("local", "ok").Inc()

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to encode activity event")
		return
	}

	if b.redis != nil && b.channel != "" {
		outcome := "ok"
		if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
			outcome = "error"
			b.logger.Warn().Err(err).Str("channel", b.channel).Msg("failed to publish activity event to redis")
		}
		observability.EventsPublished().WithLabelValues("redis", outcome).Inc()
	}

	if b.nats != nil && b.subject != "" {
		outcome := "ok"
		if err := b.nats.Publish(b.subject, payload); err != nil {
			outcome = "error"
			b.logger.Warn().Err(err).Str("subject", b.subject).Msg("failed to publish activity event to nats")
		}
		observability.EventsPublished().WithLabelValues("nats", outcome).Inc()
	}
}

// Subscribe registers a listener. Call the returned function to unsubscribe.
func (b *EventBus) Subscribe() (<-chan ActivityEvent, func()) {
	ch := make(chan ActivityEvent, 16)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *EventBus) broadcast(event ActivityEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn().Str("activity_id", event.ActivityID).Msg("dropping activity event for slow subscriber")
		}
	}
}

func (b *EventBus) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			b.logger.Error().Err(err).Msg("activity redis subscription closed")
			return
		}
		b.handleRemote([]byte(msg.Payload))
	}
}

func (b *EventBus) consumeNATS(ctx context.Context) {
	sub, err := b.nats.Subscribe(b.subject, func(msg *nats.Msg) {
		b.handleRemote(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to activity nats subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain activity nats subscription")
		}
	}()
}

func (b *EventBus) handleRemote(payload []byte) {
	var event ActivityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid activity event payload")
		return
	}
	if event.Source == b.nodeID {
		return
	}
	b.broadcast(event)
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ActivityEvent) {}
