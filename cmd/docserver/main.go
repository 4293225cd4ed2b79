// docserver serves part documents to kiosks, records scan locations and
// broadcasts ingested scans over Socket.IO.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/partdoc/kiosk/internal/config"
	"github.com/partdoc/kiosk/internal/docstore"
	"github.com/partdoc/kiosk/internal/hub"
	"github.com/partdoc/kiosk/internal/locations"
	"github.com/partdoc/kiosk/internal/metrics"
	"github.com/partdoc/kiosk/internal/mock"
	"github.com/partdoc/kiosk/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flagSet := pflag.NewFlagSet("docserver", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file")
	config.AddServerFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.ApplyFlags(flagSet); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := hub.New(hub.Options{
		Namespace:      cfg.Socket.Namespace,
		Token:          cfg.Server.Token,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	defer h.Close()

	docs := docstore.New(cfg.Server.DocumentsDir, cfg.Server.CacheTTL)
	opts := server.Options{
		Docs:       docs,
		Locations:  locations.NewStore(),
		Hub:        h,
		Metrics:    metrics.NewServer(reg),
		Gatherer:   reg,
		Token:      cfg.Server.Token,
		EventName:  cfg.Server.EventName,
		SocketPath: cfg.Server.SocketPath,
		Logger:     logger,
	}
	handler := server.NewHandler(opts)
	router := server.NewRouter(handler, opts)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Mock.Enabled {
		parts, err := docs.Parts()
		if err != nil {
			logger.Warn("mock scanner: list documents", "error", err)
		}
		mock.NewScanner(mock.Options{
			Parts:       parts,
			Interval:    cfg.Server.Mock.Interval,
			RepeatEvery: cfg.Server.Mock.RepeatEvery,
		}, handler.Ingest).Start(ctx)
		logger.Info("mock scanner enabled", "interval", cfg.Server.Mock.Interval, "parts", len(parts))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "documents", cfg.Server.DocumentsDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
