package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/jobs"
)

type moduleSyncStore interface {
	EnsureCatalog(ctx context.Context, keys []models.ModuleKey) (int64, error)
	ListCityIDs(ctx context.Context) ([]string, error)
	EnableAllForCity(ctx context.Context, cityID string) (int64, error)
	EnsureReviewerGrants(ctx context.Context, cityID string, roles []models.Role) (int64, error)
	MigrateLegacy(ctx context.Context, legacy string, canonical models.ModuleKey) (models.LegacyMigrationResult, error)
}

// ModuleSyncConfig sizes the startup synchronisation pool.
type ModuleSyncConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ModuleSyncService keeps every city's module enablement and reviewer grants complete.
// Every operation only inserts missing rows, so it is safe to run repeatedly and concurrently.
type ModuleSyncService struct {
	store   moduleSyncStore
	catalog *ModuleCatalog
	audit   auditWriter
	logger  *zap.Logger
	config  ModuleSyncConfig
}

// NewModuleSyncService constructs a ModuleSyncService.
func NewModuleSyncService(store moduleSyncStore, catalog *ModuleCatalog, audit auditWriter, logger *zap.Logger, config ModuleSyncConfig) *ModuleSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	return &ModuleSyncService{store: store, catalog: catalog, audit: audit, logger: logger, config: config}
}

// EnsureModuleEnabled enables every catalog module for the city and gives the city's reviewers an
// empty-scope grant on each, skipping rows that already exist.
func (s *ModuleSyncService) EnsureModuleEnabled(ctx context.Context, cityID string) (models.ModuleSyncResult, error) {
	result := models.ModuleSyncResult{CityID: cityID}
	if cityID == "" {
		return result, appErrors.Clone(appErrors.ErrValidation, "cityId is required")
	}
	created, err := s.store.EnableAllForCity(ctx, cityID)
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enable city modules")
	}
	result.ModulesCreated = created

	grants, err := s.store.EnsureReviewerGrants(ctx, cityID, models.ReviewerRoles)
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure reviewer grants")
	}
	result.GrantsCreated = grants

	if created > 0 || grants > 0 {
		s.logger.Info("city modules synchronised",
			zap.String("city_id", cityID),
			zap.Int64("modules_created", created),
			zap.Int64("grants_created", grants),
		)
	}
	return result, nil
}

// SyncAll makes sure the catalog holds every canonical module, then synchronises every city on a
// worker pool. Results are ordered by city id.
func (s *ModuleSyncService) SyncAll(ctx context.Context) ([]models.ModuleSyncResult, error) {
	if _, err := s.store.EnsureCatalog(ctx, models.CanonicalModules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure module catalog")
	}
	if err := s.catalog.Refresh(ctx); err != nil {
		return nil, err
	}
	cityIDs, err := s.store.ListCityIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cities")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make(map[string]models.ModuleSyncResult, len(cityIDs))
		failures []string
	)
	queue := jobs.NewQueue("module-sync", func(ctx context.Context, job jobs.Job) error {
		res, err := s.EnsureModuleEnabled(ctx, job.CityID)
		if err != nil {
			return err
		}
		mu.Lock()
		results[job.CityID] = res
		mu.Unlock()
		return nil
	}, jobs.QueueConfig{
		Workers:    s.config.Workers,
		MaxRetries: s.config.MaxRetries,
		RetryDelay: s.config.RetryDelay,
		Logger:     s.logger,
		OnDone: func(job jobs.Job, err error) {
			if err != nil {
				mu.Lock()
				failures = append(failures, job.CityID)
				mu.Unlock()
			}
			wg.Done()
		},
	})
	queue.Start(ctx)
	defer queue.Stop()

	for _, cityID := range cityIDs {
		wg.Add(1)
		if err := queue.Enqueue(jobs.Job{ID: "sync-" + cityID, Kind: "module_sync", CityID: cityID}); err != nil {
			wg.Done()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule city sync")
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]models.ModuleSyncResult, 0, len(results))
	for _, res := range results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CityID < out[j].CityID })

	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		Action:   models.AuditActionModuleSync,
		Resource: "city_modules",
	}, out)

	if len(failures) > 0 {
		sort.Strings(failures)
		return out, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("module sync failed for %d cities", len(failures))),
			map[string]interface{}{"cities": failures},
		)
	}
	return out, nil
}

// MigrateLegacyModules moves every legacy module onto its canonical replacement. It runs once,
// explicitly; runtime lookups never translate legacy names.
func (s *ModuleSyncService) MigrateLegacyModules(ctx context.Context) ([]models.LegacyMigrationResult, error) {
	mapping := models.LegacyModuleMapping()
	legacy := make([]string, 0, len(mapping))
	for name := range mapping {
		legacy = append(legacy, name)
	}
	sort.Strings(legacy)

	results := make([]models.LegacyMigrationResult, 0, len(legacy))
	for _, name := range legacy {
		res, err := s.store.MigrateLegacy(ctx, name, mapping[name])
		if err != nil {
			return results, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to migrate legacy module "+name)
		}
		if res.RemovedLegacy {
			s.logger.Info("legacy module migrated",
				zap.String("legacy", name),
				zap.String("canonical", string(res.Canonical)),
				zap.Int64("city_modules", res.CityModules),
				zap.Int64("grants", res.Grants),
			)
		}
		results = append(results, res)
	}
	if err := s.catalog.Refresh(ctx); err != nil {
		return results, err
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		Action:   models.AuditActionLegacyMigration,
		Resource: "modules",
	}, results)
	return results, nil
}
