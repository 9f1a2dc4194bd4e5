package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hms-api/internal/models"
)

// ModuleRepository persists the module catalog and per-city module enablement.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListModules returns the whole module catalog.
func (r *ModuleRepository) ListModules(ctx context.Context) ([]models.Module, error) {
	const query = `SELECT id, key, name, description, created_at FROM modules ORDER BY key ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// EnsureCatalog inserts missing canonical modules. Existing rows are left untouched.
func (r *ModuleRepository) EnsureCatalog(ctx context.Context, keys []models.ModuleKey) (int64, error) {
	const query = `INSERT INTO modules (key, name, description) VALUES ($1, $2, '') ON CONFLICT (key) DO NOTHING`
	var created int64
	for _, key := range keys {
		result, err := r.db.ExecContext(ctx, query, key, key.DisplayName())
		if err != nil {
			return created, fmt.Errorf("ensure module %s: %w", key, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("check module insert rows: %w", err)
		}
		created += n
	}
	return created, nil
}

// ListEnabledForCity returns the modules enabled for a city.
func (r *ModuleRepository) ListEnabledForCity(ctx context.Context, cityID string) ([]models.Module, error) {
	const query = `SELECT m.id, m.key, m.name, m.description, m.created_at
	FROM city_modules cm JOIN modules m ON m.id = cm.module_id
	WHERE cm.city_id = $1 AND cm.enabled = TRUE
	ORDER BY m.key ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, cityID); err != nil {
		return nil, fmt.Errorf("list city modules: %w", err)
	}
	return modules, nil
}

// ListCityIDs returns every city id.
func (r *ModuleRepository) ListCityIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM cities ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return ids, nil
}

// EnableAllForCity creates missing city_modules rows for every catalog module.
func (r *ModuleRepository) EnableAllForCity(ctx context.Context, cityID string) (int64, error) {
	const query = `INSERT INTO city_modules (city_id, module_id, enabled)
	SELECT $1, m.id, TRUE FROM modules m
	ON CONFLICT (city_id, module_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, cityID)
	if err != nil {
		return 0, fmt.Errorf("enable city modules: %w", err)
	}
	return result.RowsAffected()
}

// EnsureReviewerGrants gives every reviewer already in the city an empty-scope grant on each enabled module.
func (r *ModuleRepository) EnsureReviewerGrants(ctx context.Context, cityID string, roles []models.Role) (int64, error) {
	const query = `INSERT INTO module_role_grants (id, user_id, city_id, module_id, role, can_write, zone_ids, ward_ids)
	SELECT gen_random_uuid(), uc.user_id, uc.city_id, cm.module_id, uc.role, TRUE, '{}', '{}'
	FROM user_cities uc
	JOIN city_modules cm ON cm.city_id = uc.city_id AND cm.enabled = TRUE
	WHERE uc.city_id = $1 AND uc.role = ANY($2)
	ON CONFLICT (user_id, city_id, module_id, role) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, cityID, pq.Array(rolesToStrings(roles)))
	if err != nil {
		return 0, fmt.Errorf("ensure reviewer grants: %w", err)
	}
	return result.RowsAffected()
}

// MigrateLegacy moves every city enablement, grant and review record from a legacy module onto its
// canonical replacement and removes the legacy module, all in one transaction.
func (r *ModuleRepository) MigrateLegacy(ctx context.Context, legacy string, canonical models.ModuleKey) (models.LegacyMigrationResult, error) {
	result := models.LegacyMigrationResult{Legacy: legacy, Canonical: canonical}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin legacy migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var legacyID string
	if err := tx.GetContext(ctx, &legacyID, `SELECT id FROM modules WHERE key = $1`, legacy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return result, fmt.Errorf("find legacy module %s: %w", legacy, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO modules (key, name, description) VALUES ($1, $2, '') ON CONFLICT (key) DO NOTHING`,
		canonical, canonical.DisplayName()); err != nil {
		return result, fmt.Errorf("ensure canonical module %s: %w", canonical, err)
	}
	var canonicalID string
	if err := tx.GetContext(ctx, &canonicalID, `SELECT id FROM modules WHERE key = $1`, canonical); err != nil {
		return result, fmt.Errorf("find canonical module %s: %w", canonical, err)
	}

	moved, err := tx.ExecContext(ctx, `INSERT INTO city_modules (city_id, module_id, enabled)
	SELECT city_id, $2, enabled FROM city_modules WHERE module_id = $1
	ON CONFLICT (city_id, module_id) DO NOTHING`, legacyID, canonicalID)
	if err != nil {
		return result, fmt.Errorf("copy legacy city modules: %w", err)
	}
	if result.CityModules, err = moved.RowsAffected(); err != nil {
		return result, err
	}

	moved, err = tx.ExecContext(ctx, `INSERT INTO module_role_grants (id, user_id, city_id, module_id, role, can_write, zone_ids, ward_ids)
	SELECT gen_random_uuid(), user_id, city_id, $2, role, can_write, zone_ids, ward_ids FROM module_role_grants WHERE module_id = $1
	ON CONFLICT (user_id, city_id, module_id, role) DO UPDATE SET
		zone_ids = ARRAY(SELECT DISTINCT unnest(module_role_grants.zone_ids || EXCLUDED.zone_ids) ORDER BY 1),
		ward_ids = ARRAY(SELECT DISTINCT unnest(module_role_grants.ward_ids || EXCLUDED.ward_ids) ORDER BY 1),
		can_write = module_role_grants.can_write OR EXCLUDED.can_write,
		updated_at = NOW()`, legacyID, canonicalID)
	if err != nil {
		return result, fmt.Errorf("copy legacy grants: %w", err)
	}
	if result.Grants, err = moved.RowsAffected(); err != nil {
		return result, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE review_records SET module_id = $2 WHERE module_id = $1`, legacyID, canonicalID); err != nil {
		return result, fmt.Errorf("repoint legacy review records: %w", err)
	}
	for _, stmt := range []string{
		`DELETE FROM module_role_grants WHERE module_id = $1`,
		`DELETE FROM city_modules WHERE module_id = $1`,
		`DELETE FROM modules WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, legacyID); err != nil {
			return result, fmt.Errorf("remove legacy module rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit legacy migration tx: %w", err)
	}
	result.RemovedLegacy = true
	return result, nil
}
