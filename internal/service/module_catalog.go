package service

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type moduleCatalogSource interface {
	ListModules(ctx context.Context) ([]models.Module, error)
}

type catalogSnapshot struct {
	byKey map[models.ModuleKey]models.Module
	byID  map[string]models.Module
	all   []models.Module
}

// ModuleCatalog is an immutable key/id lookup over the modules table.
// Readers never lock; Refresh swaps in a new snapshot.
type ModuleCatalog struct {
	source   moduleCatalogSource
	logger   *zap.Logger
	snapshot atomic.Value
}

// NewModuleCatalog constructs an empty catalog backed by source. Call Refresh before use.
func NewModuleCatalog(source moduleCatalogSource, logger *zap.Logger) *ModuleCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ModuleCatalog{source: source, logger: logger}
	c.snapshot.Store(buildSnapshot(nil))
	return c
}

// NewStaticModuleCatalog builds a catalog that never reloads.
func NewStaticModuleCatalog(modules []models.Module) *ModuleCatalog {
	c := &ModuleCatalog{logger: zap.NewNop()}
	c.snapshot.Store(buildSnapshot(modules))
	return c
}

// Refresh reloads the catalog from the store.
func (c *ModuleCatalog) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	modules, err := c.source.ListModules(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module catalog")
	}
	c.snapshot.Store(buildSnapshot(modules))
	c.logger.Info("module catalog loaded", zap.Int("modules", len(modules)))
	return nil
}

// ByKey looks a module up by canonical key.
func (c *ModuleCatalog) ByKey(key models.ModuleKey) (models.Module, bool) {
	m, ok := c.current().byKey[key]
	return m, ok
}

// ByID looks a module up by id.
func (c *ModuleCatalog) ByID(id string) (models.Module, bool) {
	m, ok := c.current().byID[id]
	return m, ok
}

// All returns every module ordered by key.
func (c *ModuleCatalog) All() []models.Module {
	all := c.current().all
	out := make([]models.Module, len(all))
	copy(out, all)
	return out
}

// Resolve returns the module for key or a NotFound error.
func (c *ModuleCatalog) Resolve(key models.ModuleKey) (models.Module, error) {
	m, ok := c.ByKey(key)
	if !ok {
		return models.Module{}, appErrors.Clone(appErrors.ErrNotFound, "module not found: "+string(key))
	}
	return m, nil
}

func (c *ModuleCatalog) current() *catalogSnapshot {
	return c.snapshot.Load().(*catalogSnapshot)
}

func buildSnapshot(modules []models.Module) *catalogSnapshot {
	snap := &catalogSnapshot{
		byKey: make(map[models.ModuleKey]models.Module, len(modules)),
		byID:  make(map[string]models.Module, len(modules)),
		all:   make([]models.Module, 0, len(modules)),
	}
	for _, m := range modules {
		// legacy rows stay reachable by id until migrated but never by key
		if m.Key.Valid() {
			snap.byKey[m.Key] = m
		}
		snap.byID[m.ID] = m
		snap.all = append(snap.all, m)
	}
	sort.Slice(snap.all, func(i, j int) bool { return snap.all[i].Key < snap.all[j].Key })
	return snap
}
