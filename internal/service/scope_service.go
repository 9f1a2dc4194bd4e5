package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type scopeGrantReader interface {
	List(ctx context.Context, filter models.GrantFilter) ([]models.ModuleRoleGrant, error)
	ListByModuleRole(ctx context.Context, cityID, moduleID string, role models.Role) ([]models.ModuleRoleGrant, error)
}

// ScopeService resolves the zones and wards a reviewer may act on.
// Scope comes only from module grants; there is no city-wide fallback.
type ScopeService struct {
	grants  scopeGrantReader
	metrics *MetricsService
	logger  *zap.Logger
}

// NewScopeService constructs a ScopeService.
func NewScopeService(grants scopeGrantReader, metrics *MetricsService, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{grants: grants, metrics: metrics, logger: logger}
}

// ResolveScope unions the zone and ward ids of every grant the user holds on the module
// in the city for one of roles. roles defaults to the reviewer roles.
func (s *ScopeService) ResolveScope(ctx context.Context, userID, cityID, moduleID string, roles ...models.Role) (models.AuthorizationScope, error) {
	if userID == "" || cityID == "" || moduleID == "" {
		return models.NewAuthorizationScope(nil, nil), appErrors.Clone(appErrors.ErrValidation, "userId, cityId and moduleId are required")
	}
	if len(roles) == 0 {
		roles = models.ReviewerRoles
	}
	grants, err := s.grants.List(ctx, models.GrantFilter{UserID: userID, CityID: cityID, ModuleID: moduleID, Roles: roles})
	if err != nil {
		return models.NewAuthorizationScope(nil, nil), appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grants")
	}
	return unionGrants(grants), nil
}

// FindActionOfficer returns the first action officer, ordered by user id, whose own scope on the
// module contains the location.
func (s *ScopeService) FindActionOfficer(ctx context.Context, cityID, moduleID, zoneID, wardID string) (string, error) {
	grants, err := s.grants.ListByModuleRole(ctx, cityID, moduleID, models.RoleActionOfficer)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load action officers")
	}

	// grants arrive ordered by user id; one user may hold several rows across migrations
	order := make([]string, 0, len(grants))
	byUser := make(map[string][]models.ModuleRoleGrant, len(grants))
	for _, g := range grants {
		if _, seen := byUser[g.UserID]; !seen {
			order = append(order, g.UserID)
		}
		byUser[g.UserID] = append(byUser[g.UserID], g)
	}
	for _, userID := range order {
		if unionGrants(byUser[userID]).Contains(zoneID, wardID) {
			return userID, nil
		}
	}

	s.logger.Warn("no action officer covers location",
		zap.String("city_id", cityID),
		zap.String("module_id", moduleID),
		zap.String("zone_id", zoneID),
		zap.String("ward_id", wardID),
	)
	return "", appErrors.Clone(appErrors.ErrNoActionOfficer, "")
}

// Authorize refuses records located outside scope with OutOfScope.
func (s *ScopeService) Authorize(scope models.AuthorizationScope, module models.ModuleKey, zoneID, wardID string) error {
	if scope.Contains(zoneID, wardID) {
		return nil
	}
	s.metrics.RecordScopeDenial(module)
	s.logger.Info("scope denial",
		zap.String("module", string(module)),
		zap.String("zone_id", zoneID),
		zap.String("ward_id", wardID),
	)
	return appErrors.Clone(appErrors.ErrOutOfScope, "")
}

func unionGrants(grants []models.ModuleRoleGrant) models.AuthorizationScope {
	var zones, wards []string
	for _, g := range grants {
		zones = append(zones, g.ZoneIDs...)
		wards = append(wards, g.WardIDs...)
	}
	return models.NewAuthorizationScope(zones, wards)
}
