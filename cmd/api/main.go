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

	"github.com/angelmondragon/assettrack-backend/api/routes"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/auth"
	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/internal/discounts"
	"github.com/angelmondragon/assettrack-backend/internal/items"
	"github.com/angelmondragon/assettrack-backend/internal/maintenance"
	"github.com/angelmondragon/assettrack-backend/internal/reports"
	"github.com/angelmondragon/assettrack-backend/internal/users"
	"github.com/angelmondragon/assettrack-backend/pkg/auth/session"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/instance"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/metrics"
	"github.com/angelmondragon/assettrack-backend/pkg/migrate"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("create session manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, sessionManager, registry)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			metrics.NewHTTPMetrics(registry),
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			dbClient,
			redisClient,
			sessionManager,
			services,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessionManager *session.Manager,
	registry prometheus.Registerer,
) (routes.Services, error) {
	lifecycle := metrics.NewLifecycleMetrics(registry)

	var emitter outbox.Emitter = outbox.NopEmitter{}
	if cfg.FeatureFlags.OutboxEnabled {
		emitter = outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	}

	userRepo := users.NewRepository(dbClient.DB())
	itemRepo := items.NewRepository(dbClient.DB())
	assignmentRepo := assignments.NewRepository(dbClient.DB())
	maintenanceRepo := maintenance.NewRepository(dbClient.DB())
	discountRepo := discounts.NewRepository(dbClient.DB())

	gate, err := authz.NewGate(authz.GateParams{
		Principals: userRepo,
		Metrics:    metrics.NewAuthzMetrics(registry),
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create authorization gate: %w", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create auth service: %w", err)
	}

	registerParams := auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password}
	registerService, err := auth.NewRegisterService(registerParams)
	if err != nil {
		return routes.Services{}, fmt.Errorf("create register service: %w", err)
	}
	adminRegisterService, err := auth.NewAdminRegisterService(registerParams)
	if err != nil {
		return routes.Services{}, fmt.Errorf("create admin register service: %w", err)
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:           userRepo,
		Gate:           gate,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create user service: %w", err)
	}

	itemService, err := items.NewService(items.ServiceParams{
		Repo:       itemRepo,
		DB:         dbClient,
		Gate:       gate,
		Custody:    assignmentRepo,
		References: []items.ReferenceChecker{assignmentRepo, maintenanceRepo, discountRepo},
		Emitter:    emitter,
		Metrics:    lifecycle,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create item service: %w", err)
	}

	assignmentService, err := assignments.NewService(assignments.ServiceParams{
		Repo:       assignmentRepo,
		DB:         dbClient,
		Gate:       gate,
		Items:      itemService,
		Principals: userRepo,
		Emitter:    emitter,
		Metrics:    lifecycle,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create assignment service: %w", err)
	}

	maintenanceService, err := maintenance.NewService(maintenance.ServiceParams{
		Repo:    maintenanceRepo,
		DB:      dbClient,
		Gate:    gate,
		Items:   itemService,
		Emitter: emitter,
		Metrics: lifecycle,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create maintenance service: %w", err)
	}

	discountService, err := discounts.NewService(discounts.ServiceParams{
		Repo:       discountRepo,
		DB:         dbClient,
		Gate:       gate,
		Items:      itemService,
		Principals: userRepo,
		Policy:     discounts.PolicyFromConfig(cfg.Discounts),
		Emitter:    emitter,
		Metrics:    lifecycle,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create discount service: %w", err)
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Gate:        gate,
		Items:       itemRepo,
		Assignments: assignmentRepo,
		Principals:  userRepo,
		Logger:      logg,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("create report service: %w", err)
	}

	return routes.Services{
		Gate:          gate,
		Auth:          authService,
		Register:      registerService,
		AdminRegister: adminRegisterService,
		Users:         userService,
		Items:         itemService,
		Assignments:   assignmentService,
		Maintenance:   maintenanceService,
		Discounts:     discountService,
		Reports:       reportService,
	}, nil
}
