package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/catalog"
	"github.com/noah-isme/tutoring-orchestrator/internal/eventsource"
	"github.com/noah-isme/tutoring-orchestrator/internal/repository"
	"github.com/noah-isme/tutoring-orchestrator/internal/service"
	"github.com/noah-isme/tutoring-orchestrator/pkg/cache"
	"github.com/noah-isme/tutoring-orchestrator/pkg/config"
	"github.com/noah-isme/tutoring-orchestrator/pkg/database"
	"github.com/noah-isme/tutoring-orchestrator/pkg/export"
	"github.com/noah-isme/tutoring-orchestrator/pkg/logger"
	"github.com/noah-isme/tutoring-orchestrator/pkg/mail"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	redis  *redis.Client

	validate *validator.Validate
	metrics  *service.MetricsService
	tokens   *service.TokenService

	sessions         *repository.SessionRepository
	classRequests    *repository.ClassRequestRepository
	tutoringRequests *repository.TutoringRequestRepository

	orchestrator *service.OrchestratorService
	matcher      *service.MatchingService
	sweeps       *service.SweepService
	hours        *service.HourReportService
	router       *eventsource.Router
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logr, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis is optional: the ledger and cycle-day cache degrade to no-ops.
		logr.Warn("redis unavailable, continuing without cache and delivery ledger", zap.Error(err))
		redisClient = nil
	}

	location, err := time.LoadLocation(cfg.Sweep.Timezone)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load sweep timezone %q: %w", cfg.Sweep.Timezone, err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logr,
		db:       db,
		redis:    redisClient,
		validate: validator.New(),
		metrics:  service.NewMetricsService(),
		tokens: service.NewTokenService(service.TokenConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Lifetime: cfg.JWT.Expiration,
		}),
	}

	blocks := catalog.Default()
	users := repository.NewUserRepository(db)
	a.sessions = repository.NewSessionRepository(db)
	a.classRequests = repository.NewClassRequestRepository(db)
	a.tutoringRequests = repository.NewTutoringRequestRepository(db)
	hourEntries := repository.NewHourEntryRepository(db)
	store := repository.NewStore(db)

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, a.metrics, cfg.Matching.CycleDayTTL, logr, redisClient != nil)
	cycleDays := service.NewCycleDayService(repository.NewCycleDayRepository(db), cacheSvc, logr)

	var matchOpts []service.MatchingOption
	if cfg.Matching.ResolveCycleDay {
		matchOpts = append(matchOpts, service.WithCycleDayResolution(cycleDays))
	}
	a.matcher = service.NewMatchingService(users, logr, matchOpts...)

	dispatcher := service.NewNotificationDispatcher(
		mail.NewSender(cfg.Mail, logr),
		repository.NewDeliveryLedgerRepository(redisClient, cfg.Dispatch.LedgerTTL),
		a.metrics,
		logr,
		service.DispatcherConfig{
			From:        mail.FormatAddress(cfg.Mail.FromName, cfg.Mail.FromAddress),
			Workers:     cfg.Dispatch.Workers,
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			RetryDelay:  cfg.Dispatch.RetryDelay,
		},
	)

	a.router = eventsource.NewRouter(a.metrics, logr)

	a.orchestrator = service.NewOrchestratorService(service.OrchestratorDeps{
		Users:         users,
		Sessions:      a.sessions,
		ClassRequests: a.classRequests,
		HourEntries:   hourEntries,
		Store:         store,
		Composer: service.NewNotificationComposer(service.ComposerConfig{
			OrgName:    cfg.Orchestrator.OrgName,
			AdminEmail: cfg.Orchestrator.AdminEmail,
		}, blocks),
		Dispatcher:    dispatcher,
		Matcher:       a.matcher,
		Confirmations: a.router,
	}, service.OrchestratorConfig{
		HeadRole:       cfg.Orchestrator.HeadRole,
		LeadRoleSuffix: cfg.Orchestrator.LeadRoleSuffix,
		ConfirmDelay:   cfg.Orchestrator.ConfirmDelay,
	}, a.validate, logr, service.WithOrchestratorMetrics(a.metrics))

	a.sweeps = service.NewSweepService(a.sessions, store, a.orchestrator, a.metrics, logr, service.SweepConfig{
		Location:       location,
		EmitCompletion: cfg.Sweep.EmitCompletion,
	})
	a.hours = service.NewHourReportService(hourEntries, export.NewCSVExporter(), export.NewPDFExporter(), blocks)

	registerRoutes(a.router, a.orchestrator)

	return a, nil
}

// registerRoutes binds the lifecycle handlers to the collections they observe.
func registerRoutes(r *eventsource.Router, o *service.OrchestratorService) {
	eventsource.OnCreate(r, eventsource.CollectionSessions, o.OnSessionCreated)
	eventsource.OnUpdate(r, eventsource.CollectionSessions, o.OnSessionUpdated)
	eventsource.OnCreate(r, eventsource.CollectionClassRequests, o.OnClassRequestCreated)
	eventsource.OnUpdate(r, eventsource.CollectionClassRequests, o.OnClassRequestUpdated)
	eventsource.OnCreate(r, eventsource.CollectionTutoringRequests, o.OnTutoringRequestCreated)
	r.OnTask(service.TaskConfirmSession, o.ConfirmSession)
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
