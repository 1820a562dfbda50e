// Command timelined serves a timeline of events over HTTP. Events come
// from a writable store (memory, SQLite or PostgreSQL) overlaid with a
// weekly schedule and subscribed iCalendar feeds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/example/timeline-engine/internal/auth"
	"github.com/example/timeline-engine/internal/config"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/metrics"
	"github.com/example/timeline-engine/internal/telemetry"
)

type options struct {
	configPath   string
	listen       string
	hashPassword string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("timelined", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", os.Getenv("TIMELINE_CONFIG"), "path to the YAML configuration file")
	fs.StringVar(&opts.listen, "listen", "", "override the listen address")
	fs.StringVar(&opts.hashPassword, "hash-password", "", "print the argon2id hash of the given password and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "timelined: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.hashPassword != "" {
		hash, err := auth.HashPassword(opts.hashPassword, auth.DefaultArgon2idParams)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, hash)
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewJSON(stdout, level)

	shutdownTracing, err := telemetry.Setup(ctx, "timelined", cfg.OTelEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	a, err := buildApp(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	refresher, err := newRefresher(ctx, cfg, a.feeds, m, logger)
	if err != nil {
		return err
	}
	if refresher != nil {
		refresher.Start()
		defer func() { <-refresher.Stop().Done() }()
	}

	handler, err := newHandler(cfg, a, m, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("timeline API listening",
		slog.String("addr", server.Addr),
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("feeds", len(a.feeds)),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
