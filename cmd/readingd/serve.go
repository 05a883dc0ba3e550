package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/randomtoy/readingd/internal/adapters/http"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
	purgeInterval   = time.Hour
)

func newServeCmd(wire wireFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reading API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := wire(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					d.logger.Error("close resources", "error", err)
				}
			}()
			return serve(ctx, d)
		},
	}
}

func serve(ctx context.Context, d *deps) error {
	logger := d.logger
	limiter := httpadapter.NewRateLimiter(d.cfg.RateLimitRPS, d.cfg.RateLimitBurst)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))
	e.Use(httpadapter.MetricsMiddleware(d.metrics))
	e.Use(limiter.Middleware())

	httpadapter.NewHandler(d.service, d.metrics.Handler(), logger).Register(e)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", d.cfg.HTTPAddr)
		if err := e.Start(d.cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return limiter.Run(gctx, limiterSweep)
	})
	if d.purger != nil {
		g.Go(func() error {
			purgeLoop(gctx, d)
			return nil
		})
	}
	return g.Wait()
}

func purgeLoop(ctx context.Context, d *deps) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.purger.Purge(ctx)
			if err != nil {
				d.logger.Warn("purge idle conversations", "error", err)
				continue
			}
			if n > 0 {
				d.logger.Info("purged idle conversations", "messages", n)
			}
		}
	}
}
