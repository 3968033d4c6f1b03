package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/dashboard"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/report"
)

// ReportHandler serves accreditation exports of the admin analytics snapshot.
type ReportHandler struct {
	pages    *dashboard.Pages
	exporter *report.Exporter
	logger   zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(pages *dashboard.Pages, exporter *report.Exporter, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		pages:    pages,
		exporter: exporter,
		logger:   logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register binds the export route behind the admin gate.
func (h *ReportHandler) Register(router fiber.Router, adminGate fiber.Handler) {
	router.Get("/admin/reports/:type", adminGate, h.export)
}

// export renders the analytics the admin page last loaded. Nothing is fetched
// unless the session has no admin page yet.
func (h *ReportHandler) export(c *fiber.Ctx) error {
	sess, _ := middleware.SessionFrom(c)

	reportType, err := report.ParseType(c.Params("type"))
	if err != nil {
		return respondError(c, err)
	}
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return respondError(c, err)
	}

	state, err := h.pages.Current(middleware.RequestContext(c), sess, guard.AdminPage)
	if err != nil {
		return respondError(c, err)
	}

	artifact, err := h.exporter.Export(state.AnalyticsSnapshot(), reportType, format)
	if err != nil {
		return respondError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Str("report_type", string(reportType)).
		Str("format", string(format)).
		Int("bytes", len(artifact.Body)).
		Msg("report exported")

	c.Set(fiber.HeaderContentType, artifact.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	return c.Status(fiber.StatusOK).Send(artifact.Body)
}
