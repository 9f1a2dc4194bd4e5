package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/handler"
	"github.com/noah-isme/hms-api/internal/middleware"
	"github.com/noah-isme/hms-api/internal/models"
	"github.com/noah-isme/hms-api/internal/service"
	"github.com/noah-isme/hms-api/pkg/config"
	"github.com/noah-isme/hms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hms-api/pkg/middleware/requestid"
	"github.com/noah-isme/hms-api/pkg/ratelimit"
)

const (
	loginRatePerMinute = 10
	loginBurst         = 5
)

type tokenValidator interface {
	ValidateToken(token string) (*models.Claims, error)
}

type routerDeps struct {
	tokens     tokenValidator
	metrics    *service.MetricsService
	audit      middleware.AuditWriter
	loginLimit *ratelimit.Keyed

	auth        *handler.AuthHandler
	scope       *handler.ScopeHandler
	geo         *handler.GeoHandler
	grants      *handler.GrantHandler
	modules     *handler.ModuleHandler
	attestation *handler.AttestationHandler
	assets      *handler.AssetHandler
	reviews     *handler.ReviewHandler
	observe     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	r.GET("/health", d.observe.Health)
	r.GET("/ready", d.observe.Ready)
	r.GET("/metrics", d.observe.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", middleware.RateLimit(d.loginLimit, middleware.ByClientIP), d.auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(d.tokens))
	authed.GET("/auth/me", d.auth.Me)
	authed.POST("/auth/switch-city", d.auth.SwitchCity)
	authed.GET("/modules", d.modules.List)

	city := authed.Group("")
	city.Use(middleware.RequireCityContext())

	city.GET("/scope/:module", middleware.RequireModuleAccess(middleware.ModuleFromParam("module"), false), d.scope.Mine)
	city.POST("/attestations", d.attestation.Issue)
	city.GET("/assets/assigned", d.assets.ListAssigned)
	city.POST("/assets/bin-requests", middleware.RequireModuleAccess(middleware.Module(models.ModuleLitterBins), true), d.assets.RequestBin)

	geo := city.Group("/geo")
	geo.GET("", d.geo.List)
	geoAdmin := geo.Group("", middleware.RequireRoles(models.RoleCityAdmin))
	geoAdmin.POST("", d.geo.Create)
	geoAdmin.PATCH("/:id", d.geo.Rename)
	geoAdmin.DELETE("/:id", middleware.Audit(d.audit, logr, models.AuditActionGeoDelete, "geo_node"), d.geo.Delete)

	reviews := city.Group("/reviews/:family")
	read := middleware.RequireModuleAccess(middleware.ModuleFromFamily("family"), false)
	reviews.POST("", middleware.RequireModuleAccess(middleware.ModuleFromFamily("family"), true), d.reviews.Submit)
	reviews.GET("", read, d.reviews.List)
	reviews.GET("/:id", read, d.reviews.Get)
	reviews.POST("/:id/decision", read, d.reviews.Decide)
	reviews.POST("/:id/action", read, d.reviews.TakeAction)
	reviews.GET("/:id/audit", read, d.reviews.Audit)
	reviews.GET("/:id/audit/export", read, d.reviews.ExportAudit)

	admin := authed.Group("/admin")
	cityAdmin := admin.Group("", middleware.RequireCityContext(), middleware.RequireRoles(models.RoleCityAdmin))
	cityAdmin.GET("/scope", d.scope.ForUser)
	cityAdmin.GET("/grants", d.grants.List)
	cityAdmin.PUT("/grants", d.grants.Upsert)
	cityAdmin.DELETE("/grants", d.grants.Revoke)
	cityAdmin.POST("/assets/:id/assign", d.assets.Assign)

	superAdmin := admin.Group("", middleware.RequireRoles(models.RoleSuperAdmin))
	superAdmin.POST("/modules/sync", d.modules.Sync)
	superAdmin.POST("/modules/refresh", middleware.Audit(d.audit, logr, models.AuditActionCatalogRefresh, "modules"), d.modules.Refresh)
	superAdmin.POST("/modules/migrate-legacy", d.modules.MigrateLegacy)
	superAdmin.GET("/metrics", d.observe.Snapshot)

	return r
}
