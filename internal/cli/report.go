package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studenthub-portal/internal/apiclient"
	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/guard"
	"github.com/noah-isme/studenthub-portal/internal/report"
	"github.com/noah-isme/studenthub-portal/internal/session"
)

// ReportOptions holds the flags of the report command.
type ReportOptions struct {
	APIURL     string
	Timeout    time.Duration
	Email      string
	Password   string
	Type       string
	Format     string
	SystemName string
	Out        string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a NAAC or NIRF report",
		Long: `Log in as an admin, load the analytics summary and write it as a
NAAC or NIRF report artifact.

The password falls back to PORTAL_REPORT_PASSWORD when the flag is empty.
Use --out - to write the artifact to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				opts.Password = os.Getenv("PORTAL_REPORT_PASSWORD")
			}
			return runReport(cmd.Context(), rootOpts, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.APIURL, "api-url", "http://127.0.0.1:8000", "Student Hub API base url")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "API request timeout")
	cmd.Flags().StringVar(&opts.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&opts.Type, "type", string(report.TypeNAAC), "report type (NAAC|NIRF)")
	cmd.Flags().StringVar(&opts.Format, "format", string(report.FormatJSON), "artifact format (json|yaml|csv)")
	cmd.Flags().StringVar(&opts.SystemName, "system-name", report.DefaultSystemName, "file name prefix")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory or file, - for stdout")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runReport(ctx context.Context, rootOpts *RootOptions, opts *ReportOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reportType, err := report.ParseType(opts.Type)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	if strings.TrimSpace(opts.Password) == "" {
		return errors.New("password is required")
	}

	logger := rootOpts.logger(stderr)
	client := apiclient.New(strings.TrimRight(opts.APIURL, "/"), opts.Timeout, logger)

	token, err := client.Login(ctx, opts.Email, opts.Password)
	if err != nil {
		return fmt.Errorf("login failed: %s", apperr.UserMessage(err))
	}
	sess := session.Session{ID: "cli", Credential: token.AccessToken, CreatedAt: time.Now().UTC()}

	principal, meErr := client.Me(ctx, sess)
	if err := guard.Authorize(&principal, meErr, guard.AdminPage); err != nil {
		return fmt.Errorf("cannot export reports: %s", apperr.UserMessage(err))
	}

	analytics, err := client.Analytics(ctx, sess)
	if err != nil {
		return fmt.Errorf("failed to load analytics: %s", apperr.UserMessage(err))
	}

	artifact, err := report.NewExporter(opts.SystemName).Export(&analytics, reportType, format)
	if err != nil {
		return err
	}

	if opts.Out == "-" {
		_, err := stdout.Write(artifact.Body)
		return err
	}

	path := artifactPath(opts.Out, artifact.Filename)
	if err := os.WriteFile(path, artifact.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info().Str("path", path).Str("type", string(reportType)).Str("format", string(format)).Msg("report written")
	_, err = fmt.Fprintln(stdout, path)
	return err
}

// artifactPath resolves --out: blank means the working directory and an
// existing directory receives the artifact's own file name.
func artifactPath(out, filename string) string {
	if out == "" {
		return filename
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}
