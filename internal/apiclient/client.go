// Package apiclient talks to the remote Student Hub REST API on behalf of a
// session. Every protected call takes the session explicitly; there is no
// ambient credential, no retry and no response cache.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/observability"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

const maxErrorBody = 64 << 10

// Client calls the Student Hub API.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
	now     func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithClock overrides the clock used for local credential expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a client for baseURL. A zero timeout disables the per-request limit.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("github.com/noah-isme/studenthub-portal/internal/apiclient"),
		logger:  logger.With().Str("component", "api_client").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type call struct {
	op          string
	method      string
	path        string
	protected   bool
	sess        *session.Session
	body        io.Reader
	contentType string
	out         any
}

func (c *Client) authorize(op string, sess *session.Session) error {
	if sess == nil || !sess.Valid() {
		return apperr.E(apperr.KindUnauthenticated, op, "no session credential")
	}
	if sess.Expired(c.now()) {
		return apperr.E(apperr.KindUnauthenticated, op, "session credential expired")
	}
	return nil
}

func (c *Client) do(ctx context.Context, rc call) (err error) {
	ctx, span := c.tracer.Start(ctx, "apiclient."+rc.op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", rc.method),
		attribute.String("http.route", rc.path),
	)

	started := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "ok")
		}
		observability.UpstreamRequests().WithLabelValues(rc.op, outcome).Inc()
		observability.UpstreamLatency().WithLabelValues(rc.op).Observe(time.Since(started).Seconds())
	}()

	if rc.protected {
		if err := c.authorize(rc.op, rc.sess); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.path, rc.body)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, rc.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if rc.contentType != "" {
		req.Header.Set("Content-Type", rc.contentType)
	}
	if rc.sess != nil {
		req.Header.Set("Authorization", "Bearer "+rc.sess.Credential)
	}
	if id := CorrelationID(ctx); id != "" {
		req.Header.Set(CorrelationHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", rc.op).Msg("student hub api unreachable")
		return apperr.Wrap(apperr.KindNetworkUnreachable, rc.op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.Remote(rc.op, resp.StatusCode, parseDetail(raw))
	}

	if rc.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(rc.out); err != nil {
		return apperr.Wrap(apperr.KindRemote, rc.op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(payload), nil
}

// parseDetail extracts the backend's "detail" field. Validation failures carry a
// list of {msg} objects; the first message is used.
func parseDetail(raw []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, item := range items {
			if strings.TrimSpace(item.Msg) != "" {
				return strings.TrimSpace(item.Msg)
			}
		}
	}
	return strings.TrimSpace(string(envelope.Detail))
}
