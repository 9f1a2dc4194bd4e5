package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hms-api/internal/models"
)

// GeoRepository persists the geo tree.
type GeoRepository struct {
	db *sqlx.DB
}

// NewGeoRepository constructs the repository.
func NewGeoRepository(db *sqlx.DB) *GeoRepository {
	return &GeoRepository{db: db}
}

const geoColumns = `id, city_id, level, parent_id, name, created_at, updated_at`

// Create inserts a node.
func (r *GeoRepository) Create(ctx context.Context, node *models.GeoNode) error {
	now := time.Now().UTC()
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	node.CreatedAt = now
	node.UpdatedAt = now
	const query = `INSERT INTO geo_nodes (id, city_id, level, parent_id, name, created_at, updated_at)
	VALUES (:id, :city_id, :level, :parent_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, node); err != nil {
		return fmt.Errorf("create geo node: %w", err)
	}
	return nil
}

// GetByID fetches a node.
func (r *GeoRepository) GetByID(ctx context.Context, id string) (*models.GeoNode, error) {
	query := `SELECT ` + geoColumns + ` FROM geo_nodes WHERE id = $1`
	var node models.GeoNode
	if err := r.db.GetContext(ctx, &node, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get geo node: %w", err)
	}
	return &node, nil
}

// List returns nodes matching the filter ordered by level then name.
func (r *GeoRepository) List(ctx context.Context, filter models.GeoNodeFilter) ([]models.GeoNode, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + geoColumns + ` FROM geo_nodes WHERE city_id = $1`)
	args := []interface{}{filter.CityID}
	if filter.Level != "" {
		args = append(args, filter.Level)
		builder.WriteString(fmt.Sprintf(" AND level = $%d", len(args)))
	}
	if filter.ParentID != "" {
		args = append(args, filter.ParentID)
		builder.WriteString(fmt.Sprintf(" AND parent_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY level ASC, name ASC")

	var nodes []models.GeoNode
	if err := r.db.SelectContext(ctx, &nodes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list geo nodes: %w", err)
	}
	return nodes, nil
}

// Rename changes a node's name, the only mutation a node supports.
func (r *GeoRepository) Rename(ctx context.Context, id, name string) error {
	const query = `UPDATE geo_nodes SET name = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename geo node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check geo rename rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountReferences counts child nodes and assets pointing at the node.
func (r *GeoRepository) CountReferences(ctx context.Context, id string) (int, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM geo_nodes WHERE parent_id = $1) +
	(SELECT COUNT(*) FROM assets WHERE zone_id = $1 OR ward_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count geo references: %w", err)
	}
	return count, nil
}

// Delete removes an unreferenced node. The NOT EXISTS guard keeps the check atomic with the delete.
func (r *GeoRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM geo_nodes g WHERE g.id = $1
	AND NOT EXISTS (SELECT 1 FROM geo_nodes c WHERE c.parent_id = g.id)
	AND NOT EXISTS (SELECT 1 FROM assets a WHERE a.zone_id = g.id OR a.ward_id = g.id)`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete geo node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check geo delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
