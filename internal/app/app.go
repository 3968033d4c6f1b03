// Package app assembles the portal from configuration: stores, transports,
// domain services, handlers and the fiber application.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studenthub-portal/internal/apiclient"
	"github.com/noah-isme/studenthub-portal/internal/config"
	"github.com/noah-isme/studenthub-portal/internal/dashboard"
	"github.com/noah-isme/studenthub-portal/internal/database"
	"github.com/noah-isme/studenthub-portal/internal/handler"
	"github.com/noah-isme/studenthub-portal/internal/middleware"
	"github.com/noah-isme/studenthub-portal/internal/report"
	"github.com/noah-isme/studenthub-portal/internal/router"
	"github.com/noah-isme/studenthub-portal/internal/session"
	"github.com/noah-isme/studenthub-portal/internal/workflow"
	cloud "github.com/noah-isme/studenthub-portal/pkg/cloudinary"
)

const sweepInterval = 5 * time.Minute

// Portal is a fully wired portal instance.
type Portal struct {
	App      *fiber.App
	API      *apiclient.Client
	Sessions session.Store
	Events   *workflow.EventBus

	cfg     config.Config
	cache   *dashboard.PageCache
	purger  *session.GormStore
	logger  zerolog.Logger
	closers []func() error
}

// Options tweaks how the portal is built.
type Options struct {
	// Quiet drops the fiber access log.
	Quiet bool
	// APIOptions are passed to the API client.
	APIOptions []apiclient.Option
}

// Build connects every configured backend and wires the HTTP surface. Close
// releases whatever was opened, also when Build fails half way.
func Build(cfg config.Config, logger zerolog.Logger, opts Options) (*Portal, error) {
	p := &Portal{cfg: cfg, logger: logger.With().Str("component", "portal").Logger()}

	redisClient, err := p.connectRedis()
	if err != nil {
		return nil, p.fail(err)
	}
	if err := p.openSessions(redisClient); err != nil {
		return nil, p.fail(err)
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		return nil, p.fail(err)
	}
	if natsConn != nil {
		p.closers = append(p.closers, func() error { natsConn.Close(); return nil })
	}

	p.API = apiclient.New(cfg.APIBaseURL, cfg.APITimeout, logger, opts.APIOptions...)
	p.Events = workflow.NewEventBus(redisClient, natsConn, cfg.EventChannel, logger)

	storage, err := p.proofStorage(logger)
	if err != nil {
		return nil, p.fail(err)
	}

	p.cache = dashboard.NewPageCache(cfg.SessionTTL)
	pages := dashboard.NewPages(dashboard.NewAggregator(p.API, logger), p.cache, p.API, p.Events)
	submitter := workflow.NewSubmitter(p.API, storage, p.Events, cfg.ProofMaxSizeMB, logger)
	validate := workflow.NewValidator()

	p.App = fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.ProofMaxSizeMB + 1) * 1024 * 1024,
	})
	middleware.Register(p.App, middleware.Config{Logger: &logger, Quiet: opts.Quiet})
	router.Register(p.App, cfg, router.Dependencies{
		Sessions:         p.Sessions,
		Principals:       p.API,
		Health:           p.API,
		AuthHandler:      handler.NewAuthHandler(p.API, p.Sessions, pages, validate, cfg.SessionCookieSecure, logger),
		ProfileHandler:   handler.NewProfileHandler(p.API, pages, logger),
		DashboardHandler: handler.NewDashboardHandler(pages, p.Sessions, cfg.SessionCookieSecure, logger),
		ActivityHandler:  handler.NewActivityHandler(pages, submitter, logger),
		ReportHandler:    handler.NewReportHandler(pages, report.NewExporter(cfg.ReportSystemName), logger),
		LiveHandler:      handler.NewLiveHandler(pages, p.Events, p.Sessions, logger),
		Logger:           logger,
	})

	return p, nil
}

func (p *Portal) connectRedis() (*redis.Client, error) {
	if p.cfg.RedisURL == "" {
		return nil, nil
	}
	client, err := database.ConnectRedis(context.Background(), p.cfg.RedisURL, p.cfg.RedisTimeout)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, client.Close)
	return client, nil
}

func (p *Portal) openSessions(redisClient *redis.Client) error {
	switch p.cfg.SessionBackend {
	case config.SessionBackendRedis:
		if redisClient == nil {
			return fmt.Errorf("redis session backend needs a redis url")
		}
		p.Sessions = session.NewRedisStore(redisClient, p.cfg.SessionTTL)
	case config.SessionBackendSQLite, config.SessionBackendPostgres:
		connect := database.ConnectPostgres
		if p.cfg.SessionBackend == config.SessionBackendSQLite {
			connect = database.ConnectSQLite
		}
		db, err := connect(p.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			p.closers = append(p.closers, sqlDB.Close)
		}
		store := session.NewGormStore(db, p.cfg.SessionTTL)
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate session table: %w", err)
		}
		p.Sessions = store
		p.purger = store
	case config.SessionBackendMemory:
		p.Sessions = session.NewMemoryStore(p.cfg.SessionTTL)
	default:
		return fmt.Errorf("unknown session backend %q", p.cfg.SessionBackend)
	}
	p.logger.Info().Str("backend", p.cfg.SessionBackend).Msg("session store ready")
	return nil
}

func (p *Portal) proofStorage(logger zerolog.Logger) (workflow.ProofStorage, error) {
	if p.cfg.ProofStorage != config.ProofStorageCloudinary {
		return workflow.BackendProofStorage{API: p.API}, nil
	}
	uploader, err := cloud.New(cloud.Config{
		CloudName: p.cfg.CloudinaryCloudName,
		APIKey:    p.cfg.CloudinaryAPIKey,
		APISecret: p.cfg.CloudinaryAPISecret,
		Folder:    p.cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return workflow.DirectProofStorage{Objects: uploader}, nil
}

// Start runs the background work: relaying remote activity events and
// sweeping expired page state and sessions. It returns immediately.
func (p *Portal) Start(ctx context.Context) {
	p.Events.Start(ctx)
	go p.sweep(ctx)
}

func (p *Portal) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped := p.cache.Sweep()
			var purged int64
			if p.purger != nil {
				n, err := p.purger.PurgeExpired(ctx)
				if err != nil {
					p.logger.Warn().Err(err).Msg("failed to purge expired sessions")
				}
				purged = n
			}
			if dropped > 0 || purged > 0 {
				p.logger.Debug().Int("pages", dropped).Int64("sessions", purged).Msg("expired state swept")
			}
		}
	}
}

// Close releases every connection the portal opened.
func (p *Portal) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

func (p *Portal) fail(err error) error {
	if closeErr := p.Close(); closeErr != nil {
		p.logger.Warn().Err(closeErr).Msg("cleanup after failed build")
	}
	return err
}
