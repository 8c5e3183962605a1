package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/educore/monitor/internal/api"
	"github.com/educore/monitor/internal/config"
	"github.com/educore/monitor/internal/educore"
	"github.com/educore/monitor/internal/logger"
	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/render"
	"github.com/educore/monitor/internal/repository"
	"github.com/educore/monitor/internal/service"
	"github.com/educore/monitor/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "educore-monitor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("EDUCORE_CONFIG"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize the repository using the factory
	repo, err := repository.NewRepository(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("Error closing repository", zap.Error(err))
		}
	}()

	client := educore.NewClient(cfg.API.BaseURL, cfg.API.Timeout, educore.Credentials{
		CSRFToken: cfg.API.CSRFToken,
		SessionID: cfg.API.SessionID,
	})

	// Initialize the service layer
	defaults := models.DefaultMonitorSettings()
	defaults.RefreshInterval = int(cfg.Monitor.RefreshInterval / time.Second)
	if defaults.RefreshInterval < 1 {
		defaults.RefreshInterval = 1
	}
	monitor := service.NewMonitorService(client, repo, defaults, log.Named("monitor"))
	forms := service.NewFormService(client, service.CheckerConfig{
		DebounceDelay:     cfg.Monitor.DebounceDelay,
		SuccessBannerTTL:  cfg.Monitor.SuccessBannerTTL,
		InitialCheckDelay: cfg.Monitor.InitialCheckDelay,
	}, log.Named("schedule"))
	defer forms.CloseAll()

	renderer, err := render.New(cfg.Monitor.PulseDuration)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	broadcaster := web.NewBroadcaster(log.Named("sse"))
	// The monitor only polls while a connected page is visible
	broadcaster.WatchMonitor(monitor)

	webHandler := web.NewHandler(monitor, forms, renderer, broadcaster, log.Named("web"))

	mux := http.NewServeMux()
	api.SetupRoutes(mux, monitor, log.Named("api"))
	webHandler.SetupRoutes(mux)

	server := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     web.WrapMuxWithMiddleware(mux, log.Named("http")),
		ReadTimeout: cfg.Server.ReadTimeout,
		// Disable write timeout for SSE connections
		WriteTimeout: 0,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting EDUCORE monitor",
			zap.String("addr", server.Addr),
			zap.String("educore", cfg.API.BaseURL),
			zap.Bool("redis", cfg.Redis.Enabled))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return monitor.Run(gctx)
	})

	if cfg.Monitor.FormIdleTimeout > 0 && cfg.Monitor.FormExpiryInterval > 0 {
		g.Go(func() error {
			return webHandler.ExpireForms(gctx, cfg.Monitor.FormExpiryInterval, cfg.Monitor.FormIdleTimeout)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		// Close SSE connections first, they would keep Shutdown waiting
		broadcaster.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("error shutting down server: %w", err)
		}

		log.Info("Server gracefully stopped")
		return nil
	})

	return g.Wait()
}
