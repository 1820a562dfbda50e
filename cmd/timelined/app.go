package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/timeline-engine/internal/auth"
	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/calendar/ics"
	"github.com/example/timeline-engine/internal/calendar/instrument"
	"github.com/example/timeline-engine/internal/calendar/memory"
	"github.com/example/timeline-engine/internal/calendar/multi"
	"github.com/example/timeline-engine/internal/calendar/postgres"
	"github.com/example/timeline-engine/internal/calendar/recurring"
	"github.com/example/timeline-engine/internal/calendar/sqlite"
	"github.com/example/timeline-engine/internal/config"
	httptransport "github.com/example/timeline-engine/internal/http"
	"github.com/example/timeline-engine/internal/metrics"
)

// app holds the wired event sources of one server process.
type app struct {
	adapter calendar.Adapter
	feeds   []*ics.Adapter
	health  func(ctx context.Context) error
	closers []func() error
}

// Close releases storage handles in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp opens the configured storage, projects the weekly schedule and
// subscribed feeds on top of it and wraps the result for observation.
func buildApp(ctx context.Context, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	a := &app{}
	primary, err := openStorage(ctx, cfg, loc, a, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	overlays := make([]calendar.Adapter, 0, 1+len(cfg.ICS))
	if len(cfg.Schedule) > 0 {
		mondayStart := cfg.MondayStart()
		rec, err := recurring.New(cfg.Schedule, recurring.Options{
			MondayStart: &mondayStart,
			Location:    loc,
			ColorMap:    cfg.Palette.ColorMap,
			AutoColor:   cfg.Palette.AutoColor,
			Accent:      cfg.Palette.Accent,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("weekly schedule: %w", err)
		}
		overlays = append(overlays, instrument.Wrap("recurring", rec, instrument.Options{Metrics: m, Logger: logger}))
	}

	for _, feed := range cfg.ICS {
		adapter := ics.New(ics.Options{
			ID:        feed.ID,
			URL:       feed.URL,
			Name:      feed.Name,
			Location:  loc,
			ColorMap:  cfg.Palette.ColorMap,
			AutoColor: cfg.Palette.AutoColor,
			Accent:    cfg.Palette.Accent,
			Logger:    logger,
		})
		a.feeds = append(a.feeds, adapter)
		overlays = append(overlays, instrument.Wrap("ics:"+feed.ID, adapter, instrument.Options{Metrics: m, Logger: logger}))
	}
	refreshFeeds(ctx, a.feeds, m, logger)

	a.adapter = multi.New(instrument.Wrap(cfg.Storage.Driver, primary, instrument.Options{Metrics: m, Logger: logger}), overlays...)
	return a, nil
}

func openStorage(ctx context.Context, cfg config.Config, loc *time.Location, a *app, logger *slog.Logger) (calendar.Adapter, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.DSN, sqlite.Options{
			Location:  loc,
			ColorMap:  cfg.Palette.ColorMap,
			AutoColor: cfg.Palette.AutoColor,
			Accent:    cfg.Palette.Accent,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		a.health = store.Ping
		return store, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		store := postgres.New(pool, postgres.Options{
			Location:  loc,
			ColorMap:  cfg.Palette.ColorMap,
			AutoColor: cfg.Palette.AutoColor,
			Accent:    cfg.Palette.Accent,
			Logger:    logger,
		})
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		a.health = pool.Ping
		return store, nil

	default:
		return memory.New(nil, memory.Options{
			ColorMap:  cfg.Palette.ColorMap,
			AutoColor: cfg.Palette.AutoColor,
			Accent:    cfg.Palette.Accent,
		}), nil
	}
}

// refreshFeeds reloads every feed. A failing feed keeps its previous
// events and is retried on the next run.
func refreshFeeds(ctx context.Context, feeds []*ics.Adapter, m *metrics.Metrics, logger *slog.Logger) {
	for _, feed := range feeds {
		err := feed.Refresh(ctx)
		m.ObserveFeedRefresh(feed.ID(), err)
		if err != nil {
			logger.WarnContext(ctx, "feed refresh failed", "feed", feed.ID(), "error", err)
			continue
		}
		logger.DebugContext(ctx, "feed refreshed", "feed", feed.ID())
	}
}

// newRefresher schedules feed refreshes. It returns nil when there is
// nothing to refresh.
func newRefresher(ctx context.Context, cfg config.Config, feeds []*ics.Adapter, m *metrics.Metrics, logger *slog.Logger) (*cron.Cron, error) {
	if len(feeds) == 0 {
		return nil, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.RefreshCron, func() {
		refreshFeeds(ctx, feeds, m, logger)
	}); err != nil {
		return nil, fmt.Errorf("schedule feed refresh: %w", err)
	}
	return c, nil
}

// newHandler builds the HTTP API over a.
func newHandler(cfg config.Config, a *app, m *metrics.Metrics, logger *slog.Logger) (http.Handler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	routerCfg := httptransport.RouterConfig{
		Events: httptransport.NewEventHandler(a.adapter, httptransport.EventHandlerOptions{
			Location:    loc,
			MondayStart: cfg.MondayStart(),
			Logger:      logger,
		}),
		Metrics: m,
		Health:  a.health,
		Logger:  logger,
	}
	if cfg.BasicAuth.Enabled() {
		basic, err := auth.NewBasic(cfg.BasicAuth.Username, cfg.BasicAuth.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("basic auth: %w", err)
		}
		routerCfg.Auth = basic
	}
	if cfg.RateLimit.RPS > 0 {
		routerCfg.RateLimit = httptransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0)
	}
	return httptransport.NewRouter(routerCfg), nil
}
