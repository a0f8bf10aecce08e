package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/guardian-agent/internal/adapters/http"
	memstore "github.com/PabloGalante/guardian-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/guardian-agent/internal/app/classifier"
	"github.com/PabloGalante/guardian-agent/internal/app/emergency"
	"github.com/PabloGalante/guardian-agent/internal/app/incidents"
	"github.com/PabloGalante/guardian-agent/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(cmdCtx context.Context, cc *commandContext) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitTracing(signalCtx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	gen, err := buildGenerator(signalCtx, cfg)
	if err != nil {
		logger.Error("llm init failed", zap.String("provider", string(cfg.LLM.Provider)), zap.Error(err))
		return err
	}
	logger.Info("llm ready", zap.String("provider", string(cfg.LLM.Provider)), zap.String("model", cfg.LLM.Model))

	incidentStore, closeStore, err := buildIncidentStore(signalCtx, cfg)
	if err != nil {
		logger.Error("incident store init failed", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		return err
	}
	defer closeLogged(logger, "incident store", closeStore)
	logger.Info("incident archive ready", zap.String("backend", cfg.Storage.Backend))

	sessions := memstore.NewSessionStore()
	cls := classifier.New(gen, classifier.Options{Timeout: cfg.LLMTimeout()})
	svc := emergency.NewService(sessions, incidentStore, cls)
	sweeper := emergency.NewSweeper(sessions, cfg.SweepInterval(), cfg.SessionMaxAge())

	gin.SetMode(gin.ReleaseMode)
	handler := httpadapter.NewServer(svc, incidents.NewService(incidentStore), httpadapter.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		Version:        version,
		MaxFrameBytes:  cfg.Server.MaxFrameBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout(),
		Tracing:        cfg.Tracing.Enabled,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(signalCtx)

	g.Go(func() error {
		logger.Info("guardian api listening", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Int("active_sessions", svc.ActiveCount()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	return g.Wait()
}

// closeLogged runs closeFn and logs a failure instead of dropping it.
func closeLogged(logger *zap.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn(what+" close failed", zap.Error(err))
	}
}
