package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/logger"
	"github.com/noah-isme/hms-api/pkg/ratelimit"
)

type staticValidator struct {
	tokens map[string]*models.Claims
}

func (v staticValidator) ValidateToken(token string) (*models.Claims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token")
	}
	return claims, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func claimsFor(subject, city string, roles []models.Role, modules ...models.ModuleClaim) *models.Claims {
	return &models.Claims{
		ActiveCityID:     city,
		Roles:            roles,
		Modules:          modules,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

func withClaims(claims *models.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func serve(t *testing.T, engine *gin.Engine, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	claims := claimsFor("u-1", "city-1", []models.Role{models.RoleQC})
	engine := gin.New()
	engine.Use(JWT(staticValidator{tokens: map[string]*models.Claims{"good": claims}}))
	engine.GET("/me", func(c *gin.Context) {
		got, ok := ClaimsFrom(c)
		require.True(t, ok)
		assert.Equal(t, "u-1", got.SubjectID())
		assert.Equal(t, "u-1", c.GetString(logger.ContextSubjectKey))
		assert.Equal(t, "city-1", c.GetString(logger.ContextCityKey))
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(t, engine, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer good"}).Code)
	assert.Equal(t, http.StatusOK, serve(t, engine, http.MethodGet, "/me", map[string]string{"Authorization": "bearer good"}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, engine, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, engine, http.MethodGet, "/me", map[string]string{"Authorization": "Token good"}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, engine, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer bad"}).Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		claims *models.Claims
		want   int
	}{
		{"city admin", claimsFor("a", "city-1", []models.Role{models.RoleCityAdmin}), http.StatusOK},
		{"super admin", claimsFor("root", "", []models.Role{models.RoleSuperAdmin}), http.StatusOK},
		{"employee", claimsFor("e", "city-1", []models.Role{models.RoleEmployee}), http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/admin", withClaims(tc.claims), RequireRoles(models.RoleCityAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
			assert.Equal(t, tc.want, serve(t, engine, http.MethodGet, "/admin", nil).Code)
		})
	}
}

func TestRequireModuleAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	commissioner := claimsFor("c-1", "city-1", []models.Role{models.RoleCommissioner},
		models.ModuleClaim{ModuleID: "mod-to", Key: models.ModuleToilet, Role: models.RoleCommissioner, CanWrite: false})
	employee := claimsFor("e-1", "city-1", []models.Role{models.RoleEmployee},
		models.ModuleClaim{ModuleID: "mod-to", Key: models.ModuleToilet, Role: models.RoleEmployee, CanWrite: true})

	build := func(claims *models.Claims) *gin.Engine {
		engine := gin.New()
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		engine.GET("/reviews/:family", withClaims(claims), RequireModuleAccess(ModuleFromFamily("family"), false), ok)
		engine.POST("/reviews/:family", withClaims(claims), RequireModuleAccess(ModuleFromFamily("family"), true), ok)
		engine.GET("/scope/:module", withClaims(claims), RequireModuleAccess(ModuleFromParam("module"), false), ok)
		engine.POST("/toilets", withClaims(claims), RequireModuleAccess(Module(models.ModuleToilet), true), ok)
		return engine
	}

	readOnly := build(commissioner)
	assert.Equal(t, http.StatusOK, serve(t, readOnly, http.MethodGet, "/reviews/toilet_inspection", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, readOnly, http.MethodPost, "/reviews/TOILET_INSPECTION", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, readOnly, http.MethodGet, "/reviews/BIN_VISIT", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, readOnly, http.MethodGet, "/reviews/PARKING", nil).Code)
	assert.Equal(t, http.StatusOK, serve(t, readOnly, http.MethodGet, "/scope/toilet", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, readOnly, http.MethodGet, "/scope/TWINBIN", nil).Code)

	assert.Equal(t, http.StatusForbidden, serve(t, readOnly, http.MethodPost, "/toilets", nil).Code)

	writer := build(employee)
	assert.Equal(t, http.StatusOK, serve(t, writer, http.MethodPost, "/reviews/TOILET_INSPECTION", nil).Code)
	assert.Equal(t, http.StatusOK, serve(t, writer, http.MethodPost, "/toilets", nil).Code)

	root := build(claimsFor("root", "", []models.Role{models.RoleSuperAdmin}))
	assert.Equal(t, http.StatusOK, serve(t, root, http.MethodPost, "/reviews/BIN_VISIT", nil).Code)

	anon := build(nil)
	assert.Equal(t, http.StatusUnauthorized, serve(t, anon, http.MethodGet, "/scope/toilet", nil).Code)
}

func TestRequireCityContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	engine := gin.New()
	engine.GET("/x", withClaims(claimsFor("u", "", []models.Role{models.RoleEmployee})), RequireCityContext(), ok)
	assert.Equal(t, http.StatusForbidden, serve(t, engine, http.MethodGet, "/x", nil).Code)

	engine = gin.New()
	engine.GET("/x", withClaims(claimsFor("root", "", []models.Role{models.RoleSuperAdmin})), RequireCityContext(), ok)
	assert.Equal(t, http.StatusOK, serve(t, engine, http.MethodGet, "/x", nil).Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/attestations",
		withClaims(claimsFor("u-1", "city-1", nil)),
		RateLimit(ratelimit.PerMinute(1, 2), BySubject),
		func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusCreated, serve(t, engine, http.MethodPost, "/attestations", nil).Code)
	assert.Equal(t, http.StatusCreated, serve(t, engine, http.MethodPost, "/attestations", nil).Code)
	rec := serve(t, engine, http.MethodPost, "/attestations", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	unlimited := gin.New()
	unlimited.GET("/login", RateLimit(ratelimit.PerMinute(0, 0), ByClientIP), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(t, unlimited, http.MethodGet, "/login", nil).Code)
	}
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &recordingAudit{}
	engine := gin.New()
	engine.DELETE("/geo/:id", withClaims(claimsFor("admin-1", "city-1", nil)), Audit(sink, nil, models.AuditActionGeoDelete, "geo_node"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(t, engine, http.MethodDelete, "/geo/zone-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, engine, http.MethodDelete, "/geo/missing", nil).Code)

	require.Len(t, sink.logs, 1)
	entry := sink.logs[0]
	assert.Equal(t, models.AuditActionGeoDelete, entry.Action)
	assert.Equal(t, "admin-1", *entry.UserID)
	assert.Equal(t, "city-1", *entry.CityID)
	assert.Equal(t, "zone-1", *entry.ResourceID)
}
