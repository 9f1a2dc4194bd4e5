package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hms-api/api/swagger"
	"github.com/noah-isme/hms-api/internal/handler"
	"github.com/noah-isme/hms-api/internal/repository"
	"github.com/noah-isme/hms-api/internal/service"
	"github.com/noah-isme/hms-api/pkg/attestation"
	"github.com/noah-isme/hms-api/pkg/cache"
	"github.com/noah-isme/hms-api/pkg/config"
	"github.com/noah-isme/hms-api/pkg/database"
	"github.com/noah-isme/hms-api/pkg/logger"
	"github.com/noah-isme/hms-api/pkg/ratelimit"
)

// @title HMS Field Verification API
// @version 1.0.0
// @description Scoped review workflow, proximity attestation and geo administration for municipal sanitation modules.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(rootCtx, cfg.Database)
	if err != nil {
		logr.Fatal("postgres init failed", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(rootCtx, cfg.Redis)
	if err != nil {
		logr.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	geoRepo := repository.NewGeoRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	nonceRepo := repository.NewNonceRepository(rdb)
	cacheRepo := repository.NewCacheRepository(rdb, logr)

	catalog := service.NewModuleCatalog(moduleRepo, logr)
	syncSvc := service.NewModuleSyncService(moduleRepo, catalog, userRepo, logr, service.ModuleSyncConfig{
		Workers:    cfg.Modules.SyncWorkers,
		MaxRetries: 2,
	})
	bootstrapModules(rootCtx, cfg, catalog, syncSvc, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Geo.CacheTTL, logr, cfg.Geo.CacheEnabled)
	scopeSvc := service.NewScopeService(grantRepo, metricsSvc, logr)
	geoSvc := service.NewGeoService(geoRepo, cacheSvc, userRepo, validate, logr, cfg.Geo.CacheTTL)
	grantSvc := service.NewGrantService(grantRepo, catalog, geoSvc, userRepo, validate, logr)
	assetSvc := service.NewAssetService(assetRepo, catalog, grantRepo, geoSvc, userRepo, validate, logr)
	claimsSvc := service.NewClaimsService(userRepo, grantRepo, moduleRepo, catalog, logr, service.ClaimsConfig{
		Secret:              cfg.JWT.Secret,
		Expiry:              cfg.JWT.Expiration,
		Issuer:              cfg.JWT.Issuer,
		SuperAdminBootstrap: cfg.Auth.SuperAdminBootstrap,
	})
	authSvc := service.NewAuthService(userRepo, claimsSvc, validate, logr)
	proximitySvc := service.NewProximityService(
		attestation.NewSigner(cfg.Attestation.Secret, cfg.Attestation.TTL),
		assetRepo, nonceRepo, metricsSvc, validate, logr,
		service.ProximityConfig{
			OpenRadiusMeters:   cfg.Attestation.OpenRadiusMeters,
			SubmitRadiusMeters: cfg.Attestation.SubmitRadiusMeters,
			RatePerMinute:      cfg.Attestation.RatePerMinute,
			Burst:              cfg.Attestation.Burst,
		},
	)
	reviewSvc := service.NewReviewService(
		reviewRepo, catalog, scopeSvc, proximitySvc, assetRepo,
		service.DefaultAdapters(scopeSvc, assetRepo),
		metricsSvc, validate, logr,
		service.ReviewConfig{
			RequireRejectRemark: cfg.Review.RequireRejectRemark,
			ConflictRetries:     cfg.Review.ConflictRetries,
		},
	)

	r := newRouter(cfg, logr, routerDeps{
		tokens:      claimsSvc,
		metrics:     metricsSvc,
		audit:       userRepo,
		loginLimit:  ratelimit.PerMinute(loginRatePerMinute, loginBurst),
		auth:        handler.NewAuthHandler(authSvc),
		scope:       handler.NewScopeHandler(scopeSvc, catalog),
		geo:         handler.NewGeoHandler(geoSvc),
		grants:      handler.NewGrantHandler(grantSvc),
		modules:     handler.NewModuleHandler(syncSvc, catalog),
		attestation: handler.NewAttestationHandler(proximitySvc),
		assets:      handler.NewAssetHandler(assetSvc),
		reviews:     handler.NewReviewHandler(reviewSvc),
		observe: handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
			"postgres": db,
			"redis":    redisPinger{client: rdb},
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
}

// bootstrapModules loads the catalog and optionally runs the idempotent sync and legacy migration.
// Failures are logged; the server still starts with whatever catalog could be loaded.
func bootstrapModules(ctx context.Context, cfg *config.Config, catalog *service.ModuleCatalog, syncSvc *service.ModuleSyncService, logr *zap.Logger) {
	if cfg.Modules.MigrateLegacy {
		results, err := syncSvc.MigrateLegacyModules(ctx)
		if err != nil {
			logr.Error("legacy module migration failed", zap.Error(err))
		} else {
			logr.Info("legacy module migration finished", zap.Int("modules", len(results)))
		}
	}
	if cfg.Modules.SyncOnStartup {
		results, err := syncSvc.SyncAll(ctx)
		if err != nil {
			logr.Error("module sync failed", zap.Error(err))
		} else {
			logr.Info("module sync finished", zap.Int("cities", len(results)))
		}
	}
	if err := catalog.Refresh(ctx); err != nil {
		logr.Error("module catalog load failed", zap.Error(err))
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
