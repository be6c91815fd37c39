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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoring-orchestrator/api/swagger"
	"github.com/noah-isme/tutoring-orchestrator/internal/eventsource"
	"github.com/noah-isme/tutoring-orchestrator/internal/handler"
	"github.com/noah-isme/tutoring-orchestrator/internal/middleware"
	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	"github.com/noah-isme/tutoring-orchestrator/pkg/config"
	"github.com/noah-isme/tutoring-orchestrator/pkg/database"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/jobs"
	"github.com/noah-isme/tutoring-orchestrator/pkg/logger"
	reqidmiddleware "github.com/noah-isme/tutoring-orchestrator/pkg/middleware/requestid"
	"github.com/noah-isme/tutoring-orchestrator/pkg/telemetry"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event queue, change listener and daily sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logr := a.cfg, a.logger

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logr.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	queue := jobs.NewQueue("events", a.router.HandleJob, jobs.QueueConfig{
		Workers:     cfg.Events.Workers,
		BufferSize:  cfg.Events.BufferSize,
		MaxRetries:  cfg.Events.MaxRetries,
		RetryDelay:  cfg.Events.RetryDelay,
		Timeout:     cfg.Events.InvocationTimeout,
		ShouldRetry: appErrors.IsRetryable,
		Logger:      logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	a.router.AttachQueue(queue)

	scheduler := eventsource.NewScheduler(cfg.Events.InvocationTimeout, logr)
	if cfg.Sweep.Enabled {
		err := scheduler.OnSchedule("sweep", cfg.Sweep.Cron, cfg.Sweep.Timezone, func(ctx context.Context) error {
			count, err := a.sweeps.Sweep(ctx, a.sweeps.Today())
			if err != nil {
				return err
			}
			logr.Info("sweep completed", zap.Int("transitioned", count))
			return nil
		})
		if err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Events.ListenEnabled && cfg.Database.Driver == config.DriverPostgres {
		listener := eventsource.NewPGListener(eventsource.ListenerConfig{
			DSN:     database.PostgresDSN(cfg.Database),
			Channel: cfg.Events.ListenChannel,
		}, eventsource.ListenerSources{
			Sessions:         a.sessions,
			ClassRequests:    a.classRequests,
			TutoringRequests: a.tutoringRequests,
		}, a.router, logr)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logr.Error("change listener stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newEngine(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEngine(a *app) *gin.Engine {
	cfg := a.cfg
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(middleware.Metrics(a.metrics))

	checks := map[string]handler.Pinger{"database": a.db}
	if a.redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}
	ops := handler.NewMetricsHandler(a.metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	events := handler.NewEventHandler(a.router, a.validate, a.logger)
	sweeps := handler.NewSweepHandler(a.sweeps, a.validate)
	matches := handler.NewMatchHandler(a.matcher, a.validate)
	hours := handler.NewHoursHandler(a.hours, a.validate)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(a.tokens))

	ingest := api.Group("", middleware.RequireRoles(models.RoleService, models.RoleAdmin))
	ingest.POST("/events", events.Ingest)
	ingest.POST("/sweeps", sweeps.Run)
	ingest.POST("/matches/preview", matches.Preview)

	api.GET("/tutors/:uid/hours", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), hours.List)

	return r
}
