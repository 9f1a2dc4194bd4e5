package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/geo"
)

type assetStore interface {
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	Create(ctx context.Context, asset *models.Asset) error
	Assign(ctx context.Context, id, userID string) error
	ListAssigned(ctx context.Context, cityID, userID string) ([]models.Asset, error)
}

type zoneWardValidator interface {
	ValidateZoneWard(ctx context.Context, cityID, zoneID, wardID string) error
}

// AssetService manages beat assignment and bin requests.
type AssetService struct {
	repo      assetStore
	catalog   *ModuleCatalog
	grants    grantLister
	geo       zoneWardValidator
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssetService creates the asset service.
func NewAssetService(repo assetStore, catalog *ModuleCatalog, grants grantLister, nodes zoneWardValidator, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *AssetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{repo: repo, catalog: catalog, grants: grants, geo: nodes, audit: audit, validator: validate, logger: logger}
}

// Assign hands a beat to an employee of the sweeping module. cityID is the caller's active city;
// empty means any city (super administrators).
func (s *AssetService) Assign(ctx context.Context, actorID, cityID, assetID string, req models.AssignAssetRequest) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "userId is required")
	}
	asset, err := s.load(ctx, cityID, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Kind != models.AssetKindBeat {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only beats can be assigned")
	}

	module, err := s.catalog.Resolve(asset.Module)
	if err != nil {
		return nil, err
	}
	grants, err := s.grants.List(ctx, models.GrantFilter{
		UserID:   req.UserID,
		CityID:   asset.CityID,
		ModuleID: module.ID,
		Roles:    []models.Role{models.RoleEmployee},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grants")
	}
	if len(grants) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not an employee of module "+string(asset.Module))
	}

	if err := s.repo.Assign(ctx, asset.ID, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "beat is already assigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign beat")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     strRef(actorID),
		CityID:     strRef(asset.CityID),
		Action:     models.AuditActionAssetAssign,
		Resource:   "asset",
		ResourceID: strRef(asset.ID),
	}, req)
	s.logger.Info("beat assigned", zap.String("asset_id", asset.ID), zap.String("user_id", req.UserID))

	return s.load(ctx, cityID, asset.ID)
}

// RequestBin records a PENDING litter bin at a validated zone and ward of the caller's city.
func (s *AssetService) RequestBin(ctx context.Context, claims *models.Claims, req models.BinRequest) (*models.Asset, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bin request")
	}
	if err := (geo.Point{Lat: req.Latitude, Lon: req.Longitude}).Validate(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if claims.ActiveCityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an active city is required")
	}
	if err := s.geo.ValidateZoneWard(ctx, claims.ActiveCityID, req.ZoneID, req.WardID); err != nil {
		return nil, err
	}

	asset := &models.Asset{
		CityID:    claims.ActiveCityID,
		Module:    models.ModuleLitterBins,
		Kind:      models.AssetKindBin,
		Name:      req.Name,
		ZoneID:    strRef(req.ZoneID),
		WardID:    strRef(req.WardID),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Status:    models.AssetStatusPending,
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store bin request")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     strRef(claims.SubjectID()),
		CityID:     strRef(asset.CityID),
		Action:     models.AuditActionBinRequest,
		Resource:   "asset",
		ResourceID: strRef(asset.ID),
	}, req)
	return asset, nil
}

// ListAssigned returns the caller's assigned assets in the active city.
func (s *AssetService) ListAssigned(ctx context.Context, claims *models.Claims) ([]models.Asset, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	assets, err := s.repo.ListAssigned(ctx, claims.ActiveCityID, claims.SubjectID())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned assets")
	}
	return assets, nil
}

func (s *AssetService) load(ctx context.Context, cityID, id string) (*models.Asset, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if cityID != "" && asset.CityID != cityID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
	}
	return asset, nil
}
