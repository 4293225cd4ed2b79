// docviewer is the kiosk terminal: it listens for scan events from the
// document server, looks up the scanned part's document and shows it.
//
// Configuration comes from an optional YAML file, then VIEWER_*
// environment variables, then command-line flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/partdoc/kiosk/internal/app"
	"github.com/partdoc/kiosk/internal/client"
	"github.com/partdoc/kiosk/internal/config"
	"github.com/partdoc/kiosk/internal/embed"
	"github.com/partdoc/kiosk/internal/metrics"
	"github.com/partdoc/kiosk/internal/session"
	"github.com/partdoc/kiosk/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flagSet := pflag.NewFlagSet("docviewer", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file")
	config.AddKioskFlags(flagSet)
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

	logger, closeLog, err := openLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	kioskMetrics := metrics.NewKiosk(reg)
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer srv.Close()
	}

	api := client.NewHTTPClient(cfg.API.Base, cfg.API.Token,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(logger),
	)
	events := transport.New(transport.Options{
		BaseURL:     cfg.SocketBase(),
		Path:        cfg.Socket.Path,
		Namespace:   cfg.Socket.Namespace,
		Channels:    cfg.Socket.Events,
		Token:       cfg.API.Token,
		AutoConnect: cfg.Socket.AutoOpen,
		Logger:      logger,
	})

	sess := session.New(session.Options{
		API:                 api,
		APIBase:             api.BaseURL(),
		Transport:           events,
		AcceptDeviceIDs:     cfg.Filter.AcceptDeviceIDs,
		AcceptLocationCodes: cfg.Filter.AcceptLocationCodes,
		ErrorTimeout:        cfg.Viewer.ErrorTimeout,
		Tick:                cfg.Viewer.Tick,
		RelayEvents:         cfg.RelayEvents,
		Metrics:             kioskMetrics,
		Logger:              logger,
	})
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Embed.Socket != "" {
		bridge, err := embed.Dial(ctx, cfg.Embed.Socket, sess, logger)
		if err != nil {
			return err
		}
		defer bridge.Close()
		sess.AttachParent(bridge)
	}

	if err := sess.Start(ctx); err != nil {
		return err
	}

	model := app.New(sess, app.Options{ErrorTimeout: cfg.Viewer.ErrorTimeout})
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// openLogger writes JSON records to the configured file. The TUI owns the
// terminal, so without a file logs are discarded.
func openLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Output == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, opts)), func() {}, nil
	}
	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.Output, err)
	}
	return slog.New(slog.NewJSONHandler(file, opts)), func() { file.Close() }, nil
}
