package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type geoStore interface {
	Create(ctx context.Context, node *models.GeoNode) error
	GetByID(ctx context.Context, id string) (*models.GeoNode, error)
	List(ctx context.Context, filter models.GeoNodeFilter) ([]models.GeoNode, error)
	Rename(ctx context.Context, id, name string) error
	CountReferences(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// GeoService manages a city's zone/ward/area/beat hierarchy.
type GeoService struct {
	repo      geoStore
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewGeoService constructs a GeoService. cache may be nil.
func NewGeoService(repo geoStore, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *GeoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeoService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Create adds a node after checking the parent rule: zones are roots, every other level hangs
// under the level directly above it in the same city.
func (s *GeoService) Create(ctx context.Context, actorID string, req models.CreateGeoNodeRequest) (*models.GeoNode, error) {
	req.Level = models.GeoLevel(strings.ToUpper(string(req.Level)))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid geo node payload")
	}

	parentLevel, needsParent := req.Level.ParentLevel()
	hasParent := req.ParentID != nil && *req.ParentID != ""
	switch {
	case !needsParent && hasParent:
		return nil, appErrors.Clone(appErrors.ErrValidation, "zones cannot have a parent")
	case needsParent && !hasParent:
		return nil, appErrors.Clone(appErrors.ErrValidation, string(req.Level)+" requires a "+string(parentLevel)+" parent")
	case needsParent:
		parent, err := s.repo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent node not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent node")
		}
		if parent.CityID != req.CityID || parent.Level != parentLevel {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent must be a "+string(parentLevel)+" in the same city")
		}
	}

	node := &models.GeoNode{CityID: req.CityID, Level: req.Level, Name: req.Name}
	if hasParent {
		node.ParentID = req.ParentID
	}
	if err := s.repo.Create(ctx, node); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create geo node")
	}
	s.invalidate(ctx, node.CityID)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     strRef(actorID),
		CityID:     strRef(node.CityID),
		Action:     models.AuditActionGeoCreate,
		Resource:   "geo_node",
		ResourceID: &node.ID,
	}, node)
	return node, nil
}

// Get returns a node by id.
func (s *GeoService) Get(ctx context.Context, id string) (*models.GeoNode, error) {
	node, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "geo node not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load geo node")
	}
	return node, nil
}

// Rename changes a node's name.
func (s *GeoService) Rename(ctx context.Context, actorID, id string, req models.RenameGeoNodeRequest) (*models.GeoNode, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid geo node payload")
	}
	if err := s.repo.Rename(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "geo node not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename geo node")
	}
	node, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, node.CityID)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     strRef(actorID),
		CityID:     strRef(node.CityID),
		Action:     models.AuditActionGeoRename,
		Resource:   "geo_node",
		ResourceID: &node.ID,
	}, req)
	return node, nil
}

// Delete removes a node nothing refers to. Nodes with children or assets are refused with Conflict.
func (s *GeoService) Delete(ctx context.Context, id string) error {
	node, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check geo node references")
	}
	if refs > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "geo node is referenced by child nodes or assets")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// a reference appeared between the count and the guarded delete
			return appErrors.Clone(appErrors.ErrConflict, "geo node is referenced by child nodes or assets")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete geo node")
	}
	s.invalidate(ctx, node.CityID)
	return nil
}

// List returns a city's nodes, optionally narrowed by level and parent.
func (s *GeoService) List(ctx context.Context, filter models.GeoNodeFilter) ([]models.GeoNode, error) {
	if filter.CityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cityId is required")
	}
	if filter.Level != "" {
		level, err := models.ParseGeoLevel(string(filter.Level))
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		filter.Level = level
	}
	key := CacheKey("geo", filter.CityID, string(filter.Level), filter.ParentID)
	nodes, err := Remember(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) ([]models.GeoNode, error) {
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list geo nodes")
	}
	if nodes == nil {
		nodes = []models.GeoNode{}
	}
	return nodes, nil
}

// ValidateZoneWard checks that zoneID is a zone of the city, wardID a ward of the city, and that the
// ward sits under the zone when both are given.
func (s *GeoService) ValidateZoneWard(ctx context.Context, cityID, zoneID, wardID string) error {
	var zone, ward *models.GeoNode
	var err error
	if zoneID != "" {
		if zone, err = s.expectLevel(ctx, cityID, zoneID, models.GeoLevelZone); err != nil {
			return err
		}
	}
	if wardID != "" {
		if ward, err = s.expectLevel(ctx, cityID, wardID, models.GeoLevelWard); err != nil {
			return err
		}
	}
	if zone != nil && ward != nil && (ward.ParentID == nil || *ward.ParentID != zone.ID) {
		return appErrors.Clone(appErrors.ErrValidation, "ward does not belong to zone")
	}
	return nil
}

// ValidateScopeNodes checks that every id is a zone or ward, as listed, of the city.
func (s *GeoService) ValidateScopeNodes(ctx context.Context, cityID string, zoneIDs, wardIDs []string) error {
	for _, id := range zoneIDs {
		if _, err := s.expectLevel(ctx, cityID, id, models.GeoLevelZone); err != nil {
			return err
		}
	}
	for _, id := range wardIDs {
		if _, err := s.expectLevel(ctx, cityID, id, models.GeoLevelWard); err != nil {
			return err
		}
	}
	return nil
}

func (s *GeoService) expectLevel(ctx context.Context, cityID, id string, level models.GeoLevel) (*models.GeoNode, error) {
	node, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, strings.ToLower(string(level))+" not found: "+id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load geo node")
	}
	if node.CityID != cityID || node.Level != level {
		return nil, appErrors.Clone(appErrors.ErrValidation, id+" is not a "+strings.ToLower(string(level))+" of this city")
	}
	return node, nil
}

func (s *GeoService) invalidate(ctx context.Context, cityID string) {
	s.cache.Invalidate(ctx, CacheKey("geo", cityID, "*"))
}
