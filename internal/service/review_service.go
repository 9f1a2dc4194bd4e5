package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/export"
)

type reviewStore interface {
	Create(ctx context.Context, record *models.ReviewRecord) error
	GetByID(ctx context.Context, id string) (*models.ReviewRecord, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewRecord, int, error)
	Transition(ctx context.Context, t models.ReviewTransition) (*models.ReviewAuditEntry, error)
	ListAudit(ctx context.Context, recordID string) ([]models.ReviewAuditEntry, error)
}

type reviewScopes interface {
	ResolveScope(ctx context.Context, userID, cityID, moduleID string, roles ...models.Role) (models.AuthorizationScope, error)
	Authorize(scope models.AuthorizationScope, module models.ModuleKey, zoneID, wardID string) error
}

type submissionVerifier interface {
	VerifySubmission(ctx context.Context, proof models.SubmissionProof, asset *models.Asset) (float64, error)
}

// ReviewConfig tunes the review workflow.
type ReviewConfig struct {
	RequireRejectRemark bool
	ConflictRetries     int
}

// ReviewService is the single state machine behind every reviewable record family.
type ReviewService struct {
	store     reviewStore
	catalog   *ModuleCatalog
	scopes    reviewScopes
	proximity submissionVerifier
	assets    assetReader
	adapters  map[models.RecordFamily]AssetAdapter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ReviewConfig
}

// NewReviewService constructs the review engine with one adapter per family.
func NewReviewService(store reviewStore, catalog *ModuleCatalog, scopes reviewScopes, proximity submissionVerifier, assets assetReader, adapters []AssetAdapter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ReviewConfig) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ConflictRetries < 0 {
		config.ConflictRetries = 0
	}
	byFamily := make(map[models.RecordFamily]AssetAdapter, len(adapters))
	for _, a := range adapters {
		byFamily[a.Family()] = a
	}
	return &ReviewService{
		store:     store,
		catalog:   catalog,
		scopes:    scopes,
		proximity: proximity,
		assets:    assets,
		adapters:  byFamily,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// view is what a caller may see of a family's records.
// A nil scope with no submitter and no officer means every record of the city.
type view struct {
	cityID      string
	scope       *models.AuthorizationScope
	submitterID string
	escalatedTo string
}

func (v view) allows(record *models.ReviewRecord) bool {
	if v.submitterID != "" {
		return record.SubmitterID == v.submitterID
	}
	if v.escalatedTo != "" && (record.EscalatedToID == nil || *record.EscalatedToID != v.escalatedTo) {
		return false
	}
	if v.scope == nil {
		return true
	}
	return v.scope.Contains(record.ZoneOrEmpty(), record.WardOrEmpty())
}

// Submit records a field submission after re-verifying the worker's presence at the asset.
func (s *ReviewService) Submit(ctx context.Context, claims *models.Claims, family models.RecordFamily, req models.SubmitReviewRequest) (*models.ReviewRecord, error) {
	adapter, module, err := s.resolve(family)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if _, ok := claims.Module(adapter.Module()); !ok && !claims.IsSuperAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to module "+string(adapter.Module()))
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if !claims.IsSuperAdmin() && asset.CityID != claims.ActiveCityID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
	}
	if asset.Module != adapter.Module() || asset.Kind != family.AssetKind() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("asset is not a %s", strings.ToLower(string(family.AssetKind()))))
	}
	if err := adapter.CheckSubmit(asset, claims.SubjectID()); err != nil {
		return nil, err
	}

	distance, err := s.proximity.VerifySubmission(ctx, models.SubmissionProof{
		Token:     req.AttestationToken,
		AssetID:   asset.ID,
		SubjectID: claims.SubjectID(),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}, asset)
	if err != nil {
		return nil, err
	}

	record := &models.ReviewRecord{
		Family:         family,
		CityID:         asset.CityID,
		ModuleID:       module.ID,
		AssetID:        asset.ID,
		ZoneID:         asset.ZoneID,
		WardID:         asset.WardID,
		SubmitterID:    claims.SubjectID(),
		Status:         models.ReviewStatusSubmitted,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DistanceMeters: distance,
		Details:        req.Details,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	s.logger.Info("review record submitted",
		zap.String("record_id", record.ID),
		zap.String("family", string(family)),
		zap.String("asset_id", asset.ID),
		zap.Float64("distance_m", distance),
	)
	return record, nil
}

// List returns the records of a family the caller may see.
func (s *ReviewService) List(ctx context.Context, claims *models.Claims, family models.RecordFamily, query models.ReviewListQuery) ([]models.ReviewRecord, *models.Pagination, error) {
	_, module, err := s.resolve(family)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.viewFor(ctx, claims, module)
	if err != nil {
		return nil, nil, err
	}
	if v.cityID == "" {
		v.cityID = query.CityID
	}
	if v.cityID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "cityId is required")
	}
	switch query.Assigned {
	case "":
	case models.AssignedToMe:
		v.escalatedTo = claims.SubjectID()
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "assigned only accepts \"me\"")
	}

	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	records, total, err := s.store.List(ctx, models.ReviewFilter{
		Family:      family,
		CityID:      v.cityID,
		Statuses:    query.Statuses,
		Scope:       v.scope,
		SubmitterID: v.submitterID,
		EscalatedTo: v.escalatedTo,
		Limit:       size,
		Offset:      (page - 1) * size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a record the caller may see.
func (s *ReviewService) Get(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string) (*models.ReviewRecord, error) {
	_, module, err := s.resolve(family)
	if err != nil {
		return nil, err
	}
	record, err := s.load(ctx, claims, family, id)
	if err != nil {
		return nil, err
	}
	v, err := s.viewFor(ctx, claims, module)
	if err != nil {
		return nil, err
	}
	if !v.allows(record) {
		if v.scope != nil {
			return nil, s.scopes.Authorize(*v.scope, module.Key, record.ZoneOrEmpty(), record.WardOrEmpty())
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return record, nil
}

// Decide applies a reviewer's verdict. Only QC holders whose scope contains the record may decide,
// and only while the record awaits review.
func (s *ReviewService) Decide(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string, req models.DecisionRequest) (*models.ReviewRecord, error) {
	adapter, module, err := s.resolve(family)
	if err != nil {
		return nil, err
	}
	req.Remark = strings.TrimSpace(req.Remark)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Remark == "" {
		if req.Decision == models.DecisionActionRequired {
			return nil, appErrors.Clone(appErrors.ErrMissingRemark, "remark is required when requesting action")
		}
		if req.Decision == models.DecisionReject && s.config.RequireRejectRemark {
			return nil, appErrors.Clone(appErrors.ErrMissingRemark, "remark is required when rejecting")
		}
	}
	if err := requireModuleRole(claims, module.Key, models.RoleQC); err != nil {
		return nil, err
	}

	record, err := s.load(ctx, claims, family, id)
	if err != nil {
		return nil, err
	}
	scope, err := s.scopes.ResolveScope(ctx, claims.SubjectID(), record.CityID, module.ID, models.RoleQC)
	if err != nil {
		return nil, err
	}
	if err := s.scopes.Authorize(scope, module.Key, record.ZoneOrEmpty(), record.WardOrEmpty()); err != nil {
		return nil, err
	}

	to := req.Decision.Status()
	actor := claims.SubjectID()
	updated, err := s.transition(ctx, record, to, func(current *models.ReviewRecord) (models.ReviewTransition, error) {
		if !current.Status.PendingReview() || !models.CanTransition(current.Status, to) {
			return models.ReviewTransition{}, invalidTransition(current.Status, to)
		}
		t := models.ReviewTransition{
			RecordID:   current.ID,
			From:       current.Status,
			To:         to,
			Action:     decisionAction(req.Decision),
			ActorID:    actor,
			ReviewerID: &actor,
			Remark:     strRef(req.Remark),
		}
		if to == models.ReviewStatusActionRequired {
			officer, err := adapter.OnEscalate(ctx, current)
			if err != nil {
				return models.ReviewTransition{}, err
			}
			t.EscalatedToID = &officer
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	if to == models.ReviewStatusApproved {
		if err := adapter.OnApprove(ctx, updated); err != nil {
			// the approval is committed; the asset side effect is reported for follow-up
			s.logger.Error("approve side effect failed",
				zap.String("record_id", updated.ID),
				zap.String("asset_id", updated.AssetID),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

// TakeAction records the assigned action officer's remediation and sends the record back for review.
func (s *ReviewService) TakeAction(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string, req models.ActionTakenRequest) (*models.ReviewRecord, error) {
	if _, _, err := s.resolve(family); err != nil {
		return nil, err
	}
	req.Remark = strings.TrimSpace(req.Remark)
	if req.Remark == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingRemark, "remark is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "photo evidence is required")
	}

	record, err := s.load(ctx, claims, family, id)
	if err != nil {
		return nil, err
	}
	actor := claims.SubjectID()
	if record.EscalatedToID == nil || *record.EscalatedToID != actor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned action officer may respond")
	}

	return s.transition(ctx, record, models.ReviewStatusUnderReview, func(current *models.ReviewRecord) (models.ReviewTransition, error) {
		// the record may have been re-escalated since it was loaded
		if current.EscalatedToID == nil || *current.EscalatedToID != actor {
			return models.ReviewTransition{}, appErrors.Clone(appErrors.ErrForbidden, "only the assigned action officer may respond")
		}
		// ACTION_TAKEN is passed through in the same update: the record lands back in UNDER_REVIEW
		if !models.CanTransition(current.Status, models.ReviewStatusActionTaken) ||
			!models.CanTransition(models.ReviewStatusActionTaken, models.ReviewStatusUnderReview) {
			return models.ReviewTransition{}, invalidTransition(current.Status, models.ReviewStatusActionTaken)
		}
		return models.ReviewTransition{
			RecordID: current.ID,
			From:     current.Status,
			To:       models.ReviewStatusUnderReview,
			Action:   models.ReviewActionActionTaken,
			ActorID:  actor,
			Remark:   &req.Remark,
			PhotoURL: &req.PhotoURL,
		}, nil
	})
}

// AuditTrail returns a visible record's transitions, oldest first.
func (s *ReviewService) AuditTrail(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string) ([]models.ReviewAuditEntry, error) {
	record, err := s.Get(ctx, claims, family, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListAudit(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return entries, nil
}

// AuditExport is a rendered audit trail.
type AuditExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportAuditTrail renders a record's audit trail as CSV or PDF.
func (s *ReviewService) ExportAuditTrail(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string, format export.Format) (*AuditExport, error) {
	renderer, err := export.For(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	entries, err := s.AuditTrail(ctx, claims, family, id)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:   fmt.Sprintf("Audit trail %s %s", family, id),
		Headers: []string{"Time", "Action", "From", "To", "Actor", "Remark", "Photo"},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Action,
			string(e.FromStatus),
			string(e.ToStatus),
			e.ActorID,
			derefString(e.Remark),
			derefString(e.PhotoURL),
		})
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit trail")
	}
	if format == "" {
		format = export.FormatCSV
	}
	return &AuditExport{
		Filename:    fmt.Sprintf("audit-%s.%s", id, format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// transition runs a conditioned update built by plan against the latest copy of the record.
// When another writer moved the record first, the record is reloaded and plan re-evaluated,
// at most ConflictRetries times; a still-losing writer gets InvalidTransition.
func (s *ReviewService) transition(ctx context.Context, record *models.ReviewRecord, to models.ReviewStatus, plan func(*models.ReviewRecord) (models.ReviewTransition, error)) (*models.ReviewRecord, error) {
	current := record
	for attempt := 0; ; attempt++ {
		t, err := plan(current)
		if err != nil {
			s.metrics.RecordTransition(record.Family, to, appErrors.FromError(err).Code)
			return nil, err
		}
		_, err = s.store.Transition(ctx, t)
		if err == nil {
			break
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
		}
		if attempt >= s.config.ConflictRetries {
			s.metrics.RecordTransition(record.Family, to, appErrors.ErrInvalidTransition.Code)
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "record was changed by another request")
		}
		s.logger.Debug("transition conflict, reloading", zap.String("record_id", record.ID))
		if current, err = s.store.GetByID(ctx, record.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload record")
		}
	}

	s.metrics.RecordTransition(record.Family, to, "ok")
	s.logger.Info("review transition",
		zap.String("record_id", record.ID),
		zap.String("family", string(record.Family)),
		zap.String("to", string(to)),
	)
	updated, err := s.store.GetByID(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload record")
	}
	return updated, nil
}

// load fetches a record of family in the caller's city. Records of other families or cities are
// reported as not found.
func (s *ReviewService) load(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string) (*models.ReviewRecord, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if record.Family != family || (!claims.IsSuperAdmin() && record.CityID != claims.ActiveCityID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	return record, nil
}

// viewFor decides what part of a family the caller sees: administrators and commissioners the whole
// city, QC reviewers their resolved scope, action officers the records escalated to them, everyone
// else their own submissions.
func (s *ReviewService) viewFor(ctx context.Context, claims *models.Claims, module models.Module) (view, error) {
	if claims == nil {
		return view{}, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if claims.IsSuperAdmin() {
		return view{cityID: claims.ActiveCityID}, nil
	}
	claim, ok := claims.Module(module.Key)
	if !ok {
		return view{}, appErrors.Clone(appErrors.ErrForbidden, "no access to module "+string(module.Key))
	}
	v := view{cityID: claims.ActiveCityID}
	switch {
	case models.HasRole(claim.Roles, models.RoleCityAdmin), models.HasRole(claim.Roles, models.RoleCommissioner):
		return v, nil
	case models.HasRole(claim.Roles, models.RoleQC):
		scope, err := s.scopes.ResolveScope(ctx, claims.SubjectID(), claims.ActiveCityID, module.ID)
		if err != nil {
			return view{}, err
		}
		v.scope = &scope
		return v, nil
	case models.HasRole(claim.Roles, models.RoleActionOfficer):
		v.escalatedTo = claims.SubjectID()
		return v, nil
	default:
		v.submitterID = claims.SubjectID()
		return v, nil
	}
}

func (s *ReviewService) resolve(family models.RecordFamily) (AssetAdapter, models.Module, error) {
	adapter, ok := s.adapters[family]
	if !ok {
		return nil, models.Module{}, appErrors.Clone(appErrors.ErrNotFound, "unknown record family")
	}
	module, err := s.catalog.Resolve(adapter.Module())
	if err != nil {
		return nil, models.Module{}, err
	}
	return adapter, module, nil
}

func requireModuleRole(claims *models.Claims, key models.ModuleKey, role models.Role) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	claim, ok := claims.Module(key)
	if !ok || !models.HasRole(claim.Roles, role) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s role required on %s", role, key))
	}
	return nil
}

func decisionAction(d models.Decision) string {
	switch d {
	case models.DecisionApprove:
		return models.ReviewActionApprove
	case models.DecisionReject:
		return models.ReviewActionReject
	default:
		return models.ReviewActionRequireAction
	}
}

func invalidTransition(from, to models.ReviewStatus) *appErrors.Error {
	return appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
