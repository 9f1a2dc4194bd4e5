package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/hms-api/internal/models"
)

// GrantRepository persists module role grants.
type GrantRepository struct {
	db *sqlx.DB
}

// NewGrantRepository constructs the repository.
func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

const grantColumns = `id, user_id, city_id, module_id, role, can_write, zone_ids, ward_ids, created_at, updated_at`

// List returns grants for a user in a city, optionally narrowed by module and roles.
func (r *GrantRepository) List(ctx context.Context, filter models.GrantFilter) ([]models.ModuleRoleGrant, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + grantColumns + ` FROM module_role_grants WHERE user_id = $1 AND city_id = $2`)
	args := []interface{}{filter.UserID, filter.CityID}

	if filter.ModuleID != "" {
		args = append(args, filter.ModuleID)
		builder.WriteString(fmt.Sprintf(" AND module_id = $%d", len(args)))
	}
	if len(filter.Roles) > 0 {
		args = append(args, pq.Array(rolesToStrings(filter.Roles)))
		builder.WriteString(fmt.Sprintf(" AND role = ANY($%d)", len(args)))
	}
	builder.WriteString(" ORDER BY module_id ASC, role ASC")

	var grants []models.ModuleRoleGrant
	if err := r.db.SelectContext(ctx, &grants, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return grants, nil
}

// ListByModuleRole returns every grant of role on a module in a city, ordered by user.
func (r *GrantRepository) ListByModuleRole(ctx context.Context, cityID, moduleID string, role models.Role) ([]models.ModuleRoleGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM module_role_grants
	WHERE city_id = $1 AND module_id = $2 AND role = $3
	ORDER BY user_id ASC`
	var grants []models.ModuleRoleGrant
	if err := r.db.SelectContext(ctx, &grants, query, cityID, moduleID, role); err != nil {
		return nil, fmt.Errorf("list grants by module role: %w", err)
	}
	return grants, nil
}

// Upsert inserts a grant or replaces the scope and write flag of the existing one.
func (r *GrantRepository) Upsert(ctx context.Context, grant *models.ModuleRoleGrant) error {
	now := time.Now().UTC()
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now
	if grant.ZoneIDs == nil {
		grant.ZoneIDs = pq.StringArray{}
	}
	if grant.WardIDs == nil {
		grant.WardIDs = pq.StringArray{}
	}
	const query = `INSERT INTO module_role_grants (id, user_id, city_id, module_id, role, can_write, zone_ids, ward_ids, created_at, updated_at)
	VALUES (:id, :user_id, :city_id, :module_id, :role, :can_write, :zone_ids, :ward_ids, :created_at, :updated_at)
	ON CONFLICT (user_id, city_id, module_id, role)
	DO UPDATE SET can_write = EXCLUDED.can_write, zone_ids = EXCLUDED.zone_ids, ward_ids = EXCLUDED.ward_ids, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

// Delete revokes a grant. Returns sql.ErrNoRows when nothing matched.
func (r *GrantRepository) Delete(ctx context.Context, userID, cityID, moduleID string, role models.Role) error {
	const query = `DELETE FROM module_role_grants WHERE user_id = $1 AND city_id = $2 AND module_id = $3 AND role = $4`
	result, err := r.db.ExecContext(ctx, query, userID, cityID, moduleID, role)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check grant delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func rolesToStrings(roles []models.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
