package workflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

var allowedProofTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
}

// Proof is an optional supporting document attached to a draft.
type Proof struct {
	Name   string
	Reader io.Reader
}

// ProofStorage stores a proof document and returns its reference.
type ProofStorage interface {
	Store(ctx context.Context, sess session.Session, name string, reader io.Reader) (string, error)
}

// Uploader is the backend proof upload route.
type Uploader interface {
	UploadProof(ctx context.Context, sess session.Session, filename string, content io.Reader) (string, error)
}

// BackendProofStorage stores proofs through the Student Hub API.
type BackendProofStorage struct {
	API Uploader
}

// Store implements ProofStorage.
func (s BackendProofStorage) Store(ctx context.Context, sess session.Session, name string, reader io.Reader) (string, error) {
	return s.API.UploadProof(ctx, sess, name, reader)
}

// ObjectStore uploads a file without a session, e.g. a CDN bucket.
type ObjectStore interface {
	Store(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DirectProofStorage stores proofs in an object store the portal holds credentials for.
type DirectProofStorage struct {
	Objects ObjectStore
}

// Store implements ProofStorage.
func (s DirectProofStorage) Store(ctx context.Context, _ session.Session, name string, reader io.Reader) (string, error) {
	return s.Objects.Store(ctx, name, reader)
}

// ActivityList is the student's page-scoped list of own activities.
type ActivityList struct {
	mu    sync.Mutex
	items []models.Activity
}

// NewActivityList builds a list over items.
func NewActivityList(items []models.Activity) *ActivityList {
	return &ActivityList{items: append([]models.Activity{}, items...)}
}

// Prepend inserts activity at the head of the list.
func (l *ActivityList) Prepend(activity models.Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]models.Activity{activity}, l.items...)
}

// Items returns a snapshot of the list.
func (l *ActivityList) Items() []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Activity{}, l.items...)
}

// Creator is the backend create route.
type Creator interface {
	CreateActivity(ctx context.Context, sess session.Session, payload models.ActivityCreate) (models.Activity, error)
}

// Submitter validates drafts, uploads optional proofs and creates activities.
type Submitter struct {
	creator  Creator
	storage  ProofStorage
	events   Publisher
	validate *validator.Validate
	maxBytes int64
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewSubmitter builds a submitter. maxSizeMB bounds proof uploads (default 10).
func NewSubmitter(creator Creator, storage ProofStorage, events Publisher, maxSizeMB int, logger zerolog.Logger) *Submitter {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &Submitter{
		creator:  creator,
		storage:  storage,
		events:   events,
		validate: NewValidator(),
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		logger:   logger.With().Str("component", "activity_submitter").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/studenthub-portal/internal/workflow"),
	}
}

// Submit validates draft, stores proof when given, creates the activity and
// prepends it to list. Validation failures never reach the network; an upload
// failure stops the submission.
func (s *Submitter) Submit(ctx context.Context, sess session.Session, list *ActivityList, draft Draft, proof *Proof) (models.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.submit")
	defer span.End()

	clean, err := draft.Validate(s.validate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return models.Activity{}, err
	}

	proofURL := clean.ProofURL
	if proof != nil && proof.Reader != nil {
		payload, mime, err := s.readProof(proof)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "proof rejected")
			return models.Activity{}, err
		}
		span.SetAttributes(attribute.String("proof.mime", mime), attribute.Int("proof.size_bytes", len(payload)))

		if s.storage == nil {
			return models.Activity{}, apperr.E(apperr.KindMutationFailure, "workflow.upload", "proof storage is not configured")
		}
		proofURL, err = s.storage.Store(ctx, sess, proof.Name, bytes.NewReader(payload))
		if err != nil {
			s.logger.Warn().Err(err).Msg("proof upload failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "upload failed")
			return models.Activity{}, apperr.Mutation("workflow.upload", err)
		}
	}

	created, err := s.creator.CreateActivity(ctx, sess, clean.Payload(proofURL))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return models.Activity{}, apperr.Mutation("workflow.submit", err)
	}
	if created.Status == "" {
		created.Status = models.ActivityStatusPending
	}

	if list != nil {
		list.Prepend(created)
	}
	s.events.Publish(ctx, NewEvent(EventSubmitted, created))
	span.SetStatus(codes.Ok, "submitted")
	return created, nil
}

func (s *Submitter) readProof(proof *Proof) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	n, err := io.Copy(buf, io.LimitReader(proof.Reader, s.maxBytes+1))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInvalidInput, "workflow.proof", err)
	}
	if n == 0 {
		return nil, "", apperr.E(apperr.KindInvalidInput, "workflow.proof", "proof file is empty")
	}
	if n > s.maxBytes {
		return nil, "", apperr.E(apperr.KindInvalidInput, "workflow.proof", fmt.Sprintf("proof exceeds %d MB", s.maxBytes/(1024*1024)))
	}

	mime := strings.ToLower(mimetype.Detect(buf.Bytes()).String())
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if _, ok := allowedProofTypes[mime]; !ok {
		return nil, mime, apperr.E(apperr.KindInvalidInput, "workflow.proof", "proof must be an image or PDF")
	}
	return buf.Bytes(), mime, nil
}
