// Package dashboard assembles role dashboards from independently fetched
// slices. Slices settle on their own; only the profile is critical.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/models"
	"github.com/noah-isme/studenthub-portal/internal/observability"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

// Source is the set of reads a dashboard draws from.
type Source interface {
	Me(ctx context.Context, sess session.Session) (models.Principal, error)
	ListActivities(ctx context.Context, sess session.Session) ([]models.Activity, error)
	ListPending(ctx context.Context, sess session.Session) ([]models.Activity, error)
	ListStudents(ctx context.Context, sess session.Session) ([]models.Student, error)
	ListAcademicRecords(ctx context.Context, sess session.Session) ([]models.AcademicRecord, error)
	Analytics(ctx context.Context, sess session.Session) (models.Analytics, error)
}

// Aggregator loads dashboards.
type Aggregator struct {
	source Source
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewAggregator builds an aggregator over source.
func NewAggregator(source Source, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		logger: logger.With().Str("component", "dashboard_aggregator").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/studenthub-portal/internal/dashboard"),
	}
}

type settled struct {
	Outcome
	value any
}

// Load fetches every slice of the policy's page concurrently. The guard runs as
// soon as the profile settles, whatever order the other slices finish in. A
// guard failure discards the view; a failed non-critical slice only marks the
// view degraded. The page's loading flag stays set until every slice settles.
func (a *Aggregator) Load(ctx context.Context, sess session.Session, page *Page, policy guard.Policy) (View, error) {
	if page == nil {
		page = NewPage(policy.Name, nil)
	}
	slices := Layout(policy.Name)

	ctx, span := a.tracer.Start(ctx, "dashboard.load")
	defer span.End()
	span.SetAttributes(attribute.String("dashboard.page", policy.Name), attribute.Int("dashboard.slices", len(slices)))

	page.SetLoading(true)
	defer page.SetLoading(false)

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan settled, len(slices))
	var wg sync.WaitGroup
	for _, slice := range slices {
		wg.Add(1)
		go func(slice Slice) {
			defer wg.Done()
			results <- a.fetch(fetchCtx, sess, slice)
		}(slice)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	view := newView(policy.Name)
	var guardErr error
	outcomes := make([]Outcome, 0, len(slices))
	for result := range results {
		outcomes = append(outcomes, result.Outcome)
		observability.SliceOutcomes().WithLabelValues(string(result.Slice), outcomeLabel(result.Err)).Inc()

		if result.Slice == SliceProfile {
			var principal *models.Principal
			if result.Err == nil {
				if p, ok := result.value.(models.Principal); ok {
					principal = &p
				}
			}
			guardErr = guard.Authorize(principal, result.Err, policy)
			if guardErr != nil {
				cancel()
				continue
			}
			view.Principal = principal
			continue
		}

		if guardErr != nil {
			continue
		}
		if result.Err != nil {
			a.logger.Warn().Err(result.Err).Str("slice", string(result.Slice)).Str("page", policy.Name).Msg("dashboard slice degraded")
			view.Degraded = append(view.Degraded, result.Slice)
			continue
		}
		view.apply(result)
	}

	if guardErr != nil {
		span.RecordError(guardErr)
		span.SetStatus(codes.Error, string(apperr.KindOf(guardErr)))
		return View{}, guardErr
	}

	order := make(map[Slice]int, len(slices))
	for i, slice := range slices {
		order[slice] = i
	}
	sort.SliceStable(view.Degraded, func(i, j int) bool {
		return order[view.Degraded[i]] < order[view.Degraded[j]]
	})
	view.computeMetrics()
	view.Outcomes = outcomes

	span.SetAttributes(attribute.Int("dashboard.degraded", len(view.Degraded)))
	span.SetStatus(codes.Ok, "loaded")
	return view, nil
}

func (a *Aggregator) fetch(ctx context.Context, sess session.Session, slice Slice) settled {
	var (
		value any
		err   error
	)
	switch slice {
	case SliceProfile:
		value, err = a.source.Me(ctx, sess)
	case SliceActivities:
		value, err = a.source.ListActivities(ctx, sess)
	case SlicePending:
		value, err = a.source.ListPending(ctx, sess)
	case SliceStudents:
		value, err = a.source.ListStudents(ctx, sess)
	case SliceAcademicRecords:
		value, err = a.source.ListAcademicRecords(ctx, sess)
	case SliceAnalytics:
		value, err = a.source.Analytics(ctx, sess)
	default:
		err = apperr.E(apperr.KindInvalidInput, "dashboard.fetch", fmt.Sprintf("unknown slice %q", slice))
	}
	if err != nil && !slice.Critical() {
		err = &apperr.Error{Kind: apperr.KindPartialFetchFailure, Op: "dashboard." + string(slice), Err: err}
	}
	return settled{Outcome: Outcome{Slice: slice, Err: err}, value: value}
}

func (v *View) apply(result settled) {
	switch value := result.value.(type) {
	case []models.Activity:
		if value == nil {
			value = []models.Activity{}
		}
		if result.Slice == SlicePending {
			v.Pending = value
		} else {
			v.Activities = value
		}
	case []models.Student:
		if value != nil {
			v.Students = value
		}
	case []models.AcademicRecord:
		if value != nil {
			v.AcademicRecords = value
		}
	case models.Analytics:
		analytics := value
		v.Analytics = &analytics
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
