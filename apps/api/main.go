package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	organizationshandler "github.com/bkpos-id/bkpos-saas/domains/organizations/be/handler"
	organizationsrepo "github.com/bkpos-id/bkpos-saas/domains/organizations/be/repo"
	organizationsservice "github.com/bkpos-id/bkpos-saas/domains/organizations/be/service"
	planshandler "github.com/bkpos-id/bkpos-saas/domains/plans/be/handler"
	plansrepo "github.com/bkpos-id/bkpos-saas/domains/plans/be/repo"
	plansservice "github.com/bkpos-id/bkpos-saas/domains/plans/be/service"
	settingshandler "github.com/bkpos-id/bkpos-saas/domains/settings/be/handler"
	settingsrepo "github.com/bkpos-id/bkpos-saas/domains/settings/be/repo"
	settingsservice "github.com/bkpos-id/bkpos-saas/domains/settings/be/service"
	signuphandler "github.com/bkpos-id/bkpos-saas/domains/signup/be/handler"
	signuprepo "github.com/bkpos-id/bkpos-saas/domains/signup/be/repo"
	signupservice "github.com/bkpos-id/bkpos-saas/domains/signup/be/service"
	subscriptionshandler "github.com/bkpos-id/bkpos-saas/domains/subscriptions/be/handler"
	subscriptionsrepo "github.com/bkpos-id/bkpos-saas/domains/subscriptions/be/repo"
	subscriptionsservice "github.com/bkpos-id/bkpos-saas/domains/subscriptions/be/service"
	platformauth "github.com/bkpos-id/bkpos-saas/platform/go/auth"
	"github.com/bkpos-id/bkpos-saas/platform/go/authevents"
	platformlogging "github.com/bkpos-id/bkpos-saas/platform/go/logging"
	platformmiddleware "github.com/bkpos-id/bkpos-saas/platform/go/middleware"
	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
	"github.com/bkpos-id/bkpos-saas/platform/go/storage"
	"github.com/bkpos-id/bkpos-saas/platform/go/tracking"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	AuthProvider        string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	DevJWTSecret        string        `env:"DEV_JWT_SECRET"`                      // required when AUTH_PROVIDER=dev
	FirebaseCredentials string        `env:"FIREBASE_CREDENTIALS"`                // service account path; ADC when empty
	RoleCacheTTL        time.Duration `env:"ROLE_CACHE_TTL" envDefault:"1m"`

	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"gcs"`               // gcs | local
	StorageBucket   string `env:"STORAGE_BUCKET"`                                 // required when STORAGE_BACKEND=gcs
	StorageLocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"` // used when STORAGE_BACKEND=local
	PublicBaseURL   string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"5m"`
	SignupContract   string        `env:"SIGNUP_CONTRACT" envDefault:"contracts/signup.yaml"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.AutoMigrate {
		if err := persistence.EnsureCoreSchema(ctx, pool); err != nil {
			logger.Fatal("apply core schema", zap.Error(err))
		}
		if err := persistence.SeedPlanCatalog(ctx, pool); err != nil {
			logger.Fatal("seed plan catalog", zap.Error(err))
		}
	}

	planStore, err := persistence.NewPlanStore(pool)
	if err != nil {
		logger.Fatal("init plan store", zap.Error(err))
	}
	orgStore, err := persistence.NewOrganizationStore(pool)
	if err != nil {
		logger.Fatal("init organization store", zap.Error(err))
	}
	subStore, err := persistence.NewSubscriptionStore(pool)
	if err != nil {
		logger.Fatal("init subscription store", zap.Error(err))
	}
	identityStore, err := persistence.NewIdentityStore(pool)
	if err != nil {
		logger.Fatal("init identity store", zap.Error(err))
	}

	var blobs storage.BlobStore
	var localAssets *storage.LocalStore
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.StorageBucket == "" {
			logger.Fatal("storage bucket required when STORAGE_BACKEND=gcs")
		}
		gcsClient, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		defer gcsClient.Close()
		blobs = storage.NewGCSStore(gcsClient, cfg.StorageBucket)
	case "local":
		if strings.TrimSpace(cfg.StorageLocalDir) == "" {
			logger.Fatal("storage local dir required when STORAGE_BACKEND=local")
		}
		localAssets, err = storage.NewLocalStore(cfg.StorageLocalDir, cfg.PublicBaseURL+"/assets")
		if err != nil {
			logger.Fatal("init local storage", zap.Error(err))
		}
		blobs = localAssets
	default:
		logger.Fatal("invalid STORAGE_BACKEND (use gcs or local)", zap.String("backend", cfg.StorageBackend))
	}

	authMiddleware, accountProvisioner := buildAuth(ctx, cfg, identityStore, logger)

	resolver := platformauth.NewResolver(&roleLookup{identity: identityStore}, logger, cfg.RoleCacheTTL)

	stream := authevents.NewStream(logger)
	defer stream.Close()
	tracker := tracking.NewLogTracker(logger)
	subscribeSessionHooks(stream, resolver, tracker, tracker)

	planRepo := plansrepo.NewPostgresRepository(planStore)
	planService := plansservice.New(planRepo)
	planHTTPHandler := planshandler.New(planService, logger)

	signupRepo := signuprepo.NewPostgresRepository(orgStore, planStore, identityStore)
	signupService := signupservice.New(signupRepo, accountProvisioner, logger)
	signupHTTPHandler := signuphandler.New(signupService, logger)

	subscriptionRepo := subscriptionsrepo.NewPostgresRepository(orgStore, subStore, planStore, identityStore)
	subscriptionService := subscriptionsservice.New(subscriptionRepo, logger)
	subscriptionHTTPHandler := subscriptionshandler.New(subscriptionService, logger)

	settingsRepo := settingsrepo.NewPostgresRepository(orgStore, identityStore)
	settingsService, err := settingsservice.New(settingsRepo, blobs, logger, cfg.SettingsCacheTTL)
	if err != nil {
		logger.Fatal("init settings service", zap.Error(err))
	}
	settingsHTTPHandler := settingshandler.New(settingsService, logger)

	organizationRepo := organizationsrepo.NewPostgresRepository(orgStore, planStore, subStore, identityStore)
	organizationService := organizationsservice.New(organizationRepo, logger)
	organizationHTTPHandler := organizationshandler.New(organizationService, logger)

	signupValidator, err := platformmiddleware.SpecValidator(cfg.SignupContract)
	if err != nil {
		logger.Fatal("load signup contract", zap.Error(err))
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if localAssets != nil {
		fileServer := http.StripPrefix("/assets/", http.FileServer(http.Dir(localAssets.Root())))
		rootRouter.Handle("/assets/*", fileServer)
	}

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(platformauth.WithCapabilities(resolver))
	apiRouter.Use(platformmiddleware.RequestTrace)

	// Public signup: no guard, request shape enforced by the OpenAPI contract.
	apiRouter.Group(func(r chi.Router) {
		r.Use(signupValidator)
		r.Mount("/signup", signupHTTPHandler.Routes())
	})

	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireAuthenticated())
		r.Mount("/plans", planHTTPHandler.Routes())
		r.Mount("/subscription", subscriptionHTTPHandler.Routes())
		r.Mount("/settings", settingsHTTPHandler.Routes())
		r.Mount("/session", sessionRoutes(stream))
	})

	adminRouter := chi.NewRouter()
	adminRouter.Use(platformauth.RequireSuperAdmin())
	adminRouter.Mount("/plans", planHTTPHandler.AdminRoutes())

	organizationsRouter := organizationHTTPHandler.Routes()
	organizationsRouter.Mount("/{orgID}/subscription", subscriptionHTTPHandler.AdminRoutes())
	organizationsRouter.Mount("/{orgID}/settings", settingsHTTPHandler.AdminRoutes())
	adminRouter.Mount("/organizations", organizationsRouter)

	adminRouter.Mount("/stats", organizationHTTPHandler.StatsRoutes())
	adminRouter.Mount("/subscription-history", subscriptionHTTPHandler.PaymentRoutes())

	apiRouter.Mount("/admin", adminRouter)
	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// roleLookup adapts the identity store to the capability resolver. A missing
// role row resolves to none rather than an error.
type roleLookup struct {
	identity *persistence.IdentityStore
}

func (l *roleLookup) RoleForUser(ctx context.Context, userID string) (platformauth.Role, error) {
	role, err := l.identity.RoleForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return platformauth.RoleNone, nil
		}
		return platformauth.RoleNone, err
	}
	return platformauth.RoleFromString(role), nil
}

var _ platformauth.RoleLookup = (*roleLookup)(nil)
