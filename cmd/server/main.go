package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/tsuro-backend/internal/config"
	"github.com/DoyleJ11/tsuro-backend/internal/httpapi"
	"github.com/DoyleJ11/tsuro-backend/internal/hub"
	"github.com/DoyleJ11/tsuro-backend/internal/logger"
	"github.com/DoyleJ11/tsuro-backend/internal/metrics"
	"github.com/DoyleJ11/tsuro-backend/internal/room"
	"github.com/DoyleJ11/tsuro-backend/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(context.Background(), hub.Options{
		Room: room.Options{
			MaxPlayers:  cfg.MaxPlayers,
			IdleTimeout: cfg.RoomIdleTimeout,
			Seed:        cfg.DeckSeed,
			Metrics:     m,
		},
		Logger: log,
	})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub: h,
		WS: ws.Options{
			OutboxSize:      cfg.OutboxSize,
			PingInterval:    cfg.PingInterval,
			WriteTimeout:    cfg.WriteTimeout,
			MaxMessageBytes: cfg.MaxMessageBytes,
			AllowedOrigins:  cfg.AllowedOrigins,
			Metrics:         m,
		},
		Gatherer: reg,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// websocket sessions end with ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(sctx),
			h.Shutdown(sctx),
		)
	})
	return g.Wait()
}
