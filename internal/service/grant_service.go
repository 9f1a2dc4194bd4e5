package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type grantStore interface {
	List(ctx context.Context, filter models.GrantFilter) ([]models.ModuleRoleGrant, error)
	Upsert(ctx context.Context, grant *models.ModuleRoleGrant) error
	Delete(ctx context.Context, userID, cityID, moduleID string, role models.Role) error
}

type scopeNodeValidator interface {
	ValidateScopeNodes(ctx context.Context, cityID string, zoneIDs, wardIDs []string) error
}

// GrantService administers module role grants.
type GrantService struct {
	repo      grantStore
	catalog   *ModuleCatalog
	geo       scopeNodeValidator
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGrantService constructs a GrantService. geo may be nil to skip node validation.
func NewGrantService(repo grantStore, catalog *ModuleCatalog, geo scopeNodeValidator, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *GrantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrantService{repo: repo, catalog: catalog, geo: geo, audit: audit, validator: validate, logger: logger}
}

// List returns a user's grants in a city, optionally for one module.
func (s *GrantService) List(ctx context.Context, userID, cityID string, module models.ModuleKey) ([]models.ModuleRoleGrant, error) {
	if userID == "" || cityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "userId and cityId are required")
	}
	filter := models.GrantFilter{UserID: userID, CityID: cityID}
	if module != "" {
		m, err := s.catalog.Resolve(module)
		if err != nil {
			return nil, err
		}
		filter.ModuleID = m.ID
	}
	grants, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grants")
	}
	if grants == nil {
		grants = []models.ModuleRoleGrant{}
	}
	return grants, nil
}

// Upsert creates or replaces a grant. The write flag is normalised for the role.
func (s *GrantService) Upsert(ctx context.Context, actorID string, req models.UpsertGrantRequest) (*models.ModuleRoleGrant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}
	role, err := models.ParseRole(string(req.Role))
	if err != nil || role == models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid module role")
	}
	key, err := models.ParseModuleKey(string(req.Module))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	module, err := s.catalog.Resolve(key)
	if err != nil {
		return nil, err
	}

	scope := models.NewAuthorizationScope(req.ZoneIDs, req.WardIDs)
	if s.geo != nil {
		if err := s.geo.ValidateScopeNodes(ctx, req.CityID, scope.ZoneIDs, scope.WardIDs); err != nil {
			return nil, err
		}
	}

	grant := &models.ModuleRoleGrant{
		UserID:   req.UserID,
		CityID:   req.CityID,
		ModuleID: module.ID,
		Role:     role,
		CanWrite: models.ResolveCanWrite(role, req.CanWrite),
		ZoneIDs:  pq.StringArray(scope.ZoneIDs),
		WardIDs:  pq.StringArray(scope.WardIDs),
	}
	if err := s.repo.Upsert(ctx, grant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grant")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     strRef(actorID),
		CityID:     strRef(grant.CityID),
		Action:     models.AuditActionGrantUpsert,
		Resource:   "module_role_grant",
		ResourceID: &grant.ID,
	}, grant)
	return grant, nil
}

// Revoke deletes a grant.
func (s *GrantService) Revoke(ctx context.Context, actorID string, req models.RevokeGrantRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}
	role, err := models.ParseRole(string(req.Role))
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	key, err := models.ParseModuleKey(string(req.Module))
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	module, err := s.catalog.Resolve(key)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, req.UserID, req.CityID, module.ID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke grant")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:   strRef(actorID),
		CityID:   strRef(req.CityID),
		Action:   models.AuditActionGrantRevoke,
		Resource: "module_role_grant",
	}, req)
	return nil
}
