package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/assettrack-backend/api/controllers"
	"github.com/angelmondragon/assettrack-backend/api/middleware"
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
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/assettrack-backend/pkg/redis"
	"github.com/go-chi/chi/v5"
)

// RedisStore is the slice of the Redis client the HTTP layer needs for
// readiness, auth throttling and idempotency. Pass nil to disable both.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type requestObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

// Services bundles the domain services mounted by the router.
type Services struct {
	Gate          authz.Authorizer
	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.RegisterService
	Users         users.Service
	Items         items.Service
	Assignments   assignments.Service
	Maintenance   maintenance.Service
	Discounts     discounts.Service
	Reports       reports.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	httpMetrics requestObserver,
	metricsHandler http.Handler,
	dbP controllers.Pinger,
	redisStore RedisStore,
	sessions session.AccessSessionChecker,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Logging(logg, httpMetrics),
	)

	var (
		rateStore        middleware.RateLimitStore
		idempotencyStore pkgredis.IdempotencyStore
	)
	readiness := map[string]controllers.Pinger{"database": dbP}
	if redisStore != nil {
		rateStore = redisStore
		idempotencyStore = redisStore
		readiness["redis"] = redisStore
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	need := func(capabilities ...enums.Capability) func(http.Handler) http.Handler {
		return middleware.RequireCapability(svc.Gate, logg, capabilities...)
	}
	replay := func(ttl time.Duration) func(http.Handler) http.Handler {
		return middleware.Idempotent(idempotencyStore, logg, ttl)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(loginPolicy, rateStore, logg),
		).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		if cfg.FeatureFlags.AllowSelfRegister {
			r.With(
				middleware.AuthRateLimit(registerPolicy, rateStore, logg),
				replay(middleware.IdempotencyShort),
			).Post("/register", controllers.AuthRegister(svc.Register, svc.Auth, logg))
		}
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
	})

	if !cfg.App.IsProd() {
		r.Post("/api/admin/v1/auth/register", controllers.AdminAuthRegister(svc.AdminRegister, svc.Auth, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.Me(svc.Users, logg))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemList(svc.Items, logg))
			r.Get("/categories", controllers.ItemCategories(svc.Items, logg))
			r.Get("/{itemId}", controllers.ItemGet(svc.Items, logg))
			r.Get("/{itemId}/status/history", controllers.ItemHistory(svc.Items, logg))

			r.Group(func(r chi.Router) {
				r.Use(need(enums.CapManageInventory))
				r.With(replay(middleware.IdempotencyShort)).Post("/", controllers.ItemCreate(svc.Items, logg))
				r.Put("/{itemId}", controllers.ItemUpdate(svc.Items, logg))
				r.Put("/{itemId}/status", controllers.ItemChangeStatus(svc.Items, logg))
				r.Delete("/{itemId}", controllers.ItemDelete(svc.Items, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/my", controllers.AssignmentListMine(svc.Assignments, logg))
			r.Get("/user/{userId}", controllers.AssignmentListForUser(svc.Assignments, logg))
			r.Get("/{assignmentId}", controllers.AssignmentGet(svc.Assignments, logg))

			r.Group(func(r chi.Router) {
				r.Use(need(enums.CapManageAssignments))
				r.Get("/", controllers.AssignmentList(svc.Assignments, logg))
				r.With(replay(middleware.IdempotencyLong)).Post("/", controllers.AssignmentCreate(svc.Assignments, logg))
				r.Put("/{assignmentId}", controllers.AssignmentUpdate(svc.Assignments, logg))
				r.With(replay(middleware.IdempotencyLong)).Put("/{assignmentId}/return", controllers.AssignmentReturn(svc.Assignments, logg))
				r.Delete("/{assignmentId}", controllers.AssignmentDelete(svc.Assignments, logg))
			})
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.With(need(enums.CapReportIssue), replay(middleware.IdempotencyShort)).Post("/", controllers.MaintenanceReport(svc.Maintenance, logg))
			r.Get("/my", controllers.MaintenanceListMine(svc.Maintenance, logg))

			r.Group(func(r chi.Router) {
				r.Use(need(enums.CapManageMaintenance))
				r.Get("/", controllers.MaintenanceList(svc.Maintenance, logg))
				r.Put("/{requestId}", controllers.MaintenanceUpdate(svc.Maintenance, logg))
			})
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/my", controllers.DiscountListMine(svc.Discounts, logg))

			r.Group(func(r chi.Router) {
				r.Use(need(enums.CapManageDiscounts))
				r.Get("/", controllers.DiscountList(svc.Discounts, logg))
				r.With(replay(middleware.IdempotencyLong)).Post("/", controllers.DiscountCreate(svc.Discounts, logg))
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(need(enums.CapViewReports))
			r.Get("/overview", controllers.ReportOverview(svc.Reports, logg))
			r.Get("/categories", controllers.ReportCategories(svc.Reports, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(need(enums.CapManageUsers, enums.CapManageAssignments, enums.CapManageDiscounts)).
				Get("/employees", controllers.UserListEmployees(svc.Users, logg))
			r.Put("/{userId}", controllers.UserUpdate(svc.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(need(enums.CapManageUsers))
				r.Get("/", controllers.UserList(svc.Users, logg))
				r.With(replay(middleware.IdempotencyShort)).Post("/", controllers.UserCreate(svc.Users, logg))
				r.Delete("/{userId}", controllers.UserDisable(svc.Users, logg))
			})
		})
	})

	return r
}
