package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type membershipReader interface {
	ListCities(ctx context.Context, userID string) ([]models.UserCity, error)
}

type grantLister interface {
	List(ctx context.Context, filter models.GrantFilter) ([]models.ModuleRoleGrant, error)
}

type enabledModuleReader interface {
	ListEnabledForCity(ctx context.Context, cityID string) ([]models.Module, error)
}

// ClaimsConfig defines how claims tokens are signed and what the bootstrap policy is.
type ClaimsConfig struct {
	Secret              string
	Expiry              time.Duration
	Issuer              string
	SuperAdminBootstrap bool
}

// ClaimsService assembles and signs the authorization claims every request is evaluated against.
type ClaimsService struct {
	memberships membershipReader
	grants      grantLister
	modules     enabledModuleReader
	catalog     *ModuleCatalog
	config      ClaimsConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewClaimsService constructs a ClaimsService.
func NewClaimsService(memberships membershipReader, grants grantLister, modules enabledModuleReader, catalog *ModuleCatalog, logger *zap.Logger, config ClaimsConfig) *ClaimsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Expiry <= 0 {
		config.Expiry = time.Hour
	}
	return &ClaimsService{
		memberships: memberships,
		grants:      grants,
		modules:     modules,
		catalog:     catalog,
		config:      config,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Expiry returns the lifetime of issued tokens.
func (s *ClaimsService) Expiry() time.Duration {
	return s.config.Expiry
}

// BuildClaims turns the user's memberships and grants into claims for requestedCityID,
// falling back to the user's first city when they are not a member of the requested one.
func (s *ClaimsService) BuildClaims(ctx context.Context, userID, requestedCityID string) (*models.Claims, error) {
	cities, err := s.memberships.ListCities(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load city memberships")
	}

	if len(cities) == 0 {
		return s.bootstrapClaims(userID)
	}

	activeCityID := cities[0].CityID
	for _, c := range cities {
		if requestedCityID != "" && c.CityID == requestedCityID {
			activeCityID = requestedCityID
			break
		}
	}

	var cityRoles []models.Role
	for _, c := range cities {
		if c.CityID == activeCityID {
			cityRoles = append(cityRoles, c.Role)
		}
	}
	cityRoles = models.SortRoles(cityRoles)

	moduleClaims, err := s.moduleClaims(ctx, userID, activeCityID, models.HasRole(cityRoles, models.RoleCityAdmin))
	if err != nil {
		return nil, err
	}

	if len(moduleClaims) == 0 && activeCityID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no module access assigned")
	}

	return s.stamp(&models.Claims{
		ActiveCityID: activeCityID,
		Roles:        cityRoles,
		Modules:      moduleClaims,
	}, userID), nil
}

// bootstrapClaims is the only implicit privilege in the system: a user without any city
// membership becomes the global administrator, unless the policy is switched off.
func (s *ClaimsService) bootstrapClaims(userID string) (*models.Claims, error) {
	if !s.config.SuperAdminBootstrap {
		s.logger.Warn("login refused: user has no city membership", zap.String("user_id", userID))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no city membership")
	}
	s.logger.Warn("super-admin bootstrap: user has no city membership", zap.String("user_id", userID))
	return s.stamp(&models.Claims{
		Roles:   []models.Role{models.RoleSuperAdmin},
		Modules: []models.ModuleClaim{},
	}, userID), nil
}

func (s *ClaimsService) moduleClaims(ctx context.Context, userID, cityID string, cityAdmin bool) ([]models.ModuleClaim, error) {
	grants, err := s.grants.List(ctx, models.GrantFilter{UserID: userID, CityID: cityID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module grants")
	}

	byModule := make(map[string]*models.ModuleClaim)
	for _, g := range grants {
		module, ok := s.catalog.ByID(g.ModuleID)
		if !ok || !module.Key.Valid() {
			s.logger.Debug("skipping grant on unknown module", zap.String("module_id", g.ModuleID))
			continue
		}
		claim := byModule[module.ID]
		if claim == nil {
			claim = &models.ModuleClaim{ModuleID: module.ID, Key: module.Key}
			byModule[module.ID] = claim
		}
		claim.Roles = append(claim.Roles, g.Role)
		claim.CanWrite = claim.CanWrite || models.ResolveCanWrite(g.Role, g.CanWrite)
	}

	if cityAdmin {
		enabled, err := s.modules.ListEnabledForCity(ctx, cityID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load city modules")
		}
		for _, module := range enabled {
			if !module.Key.Valid() {
				continue
			}
			claim := byModule[module.ID]
			if claim == nil {
				claim = &models.ModuleClaim{ModuleID: module.ID, Key: module.Key}
				byModule[module.ID] = claim
			}
			claim.Roles = append(claim.Roles, models.RoleCityAdmin)
			claim.CanWrite = true
		}
	}

	out := make([]models.ModuleClaim, 0, len(byModule))
	for _, claim := range byModule {
		claim.Roles = models.SortRoles(claim.Roles)
		claim.Role = models.PrimaryRole(claim.Roles)
		out = append(out, *claim)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *ClaimsService) stamp(claims *models.Claims, userID string) *models.Claims {
	issuedAt := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Subject:   userID,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
	}
	return claims
}

// Sign serialises claims as an HS256 JWT.
func (s *ClaimsService) Sign(claims *models.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign claims")
	}
	return signed, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (s *ClaimsService) ValidateToken(tokenString string) (*models.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token claims")
	}
	return claims, nil
}
