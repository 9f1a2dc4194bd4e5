package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hms-api/internal/models"
)

const assetColumns = `id, city_id, module_key, kind, name, zone_id, ward_id, latitude, longitude, status, assigned_to, created_at, updated_at`

// AssetRepository reads field assets, assigns beats and applies approval side effects.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// GetByID fetches an asset.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &asset, nil
}

// Create inserts an asset, filling in id and timestamps.
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	asset.CreatedAt, asset.UpdatedAt = now, now
	const query = `INSERT INTO assets (` + assetColumns + `)
	VALUES (:id, :city_id, :module_key, :kind, :name, :zone_id, :ward_id, :latitude, :longitude, :status, :assigned_to, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// Assign hands an unassigned asset to userID. Only ACTIVE or COMPLETED assets can be taken;
// sql.ErrNoRows means the asset is missing or already assigned.
func (r *AssetRepository) Assign(ctx context.Context, id, userID string) error {
	const query = `UPDATE assets SET status = $2, assigned_to = $3, updated_at = $4
	WHERE id = $1 AND status IN ($5, $6) AND assigned_to IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, models.AssetStatusAssigned, userID, time.Now().UTC(),
		models.AssetStatusActive, models.AssetStatusCompleted)
	if err != nil {
		return fmt.Errorf("assign asset: %w", err)
	}
	return expectRow(result, "assign asset")
}

// ListAssigned returns the assets currently assigned to userID in a city.
func (r *AssetRepository) ListAssigned(ctx context.Context, cityID, userID string) ([]models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE city_id = $1 AND assigned_to = $2 AND status = $3 ORDER BY name ASC, id ASC`
	assets := make([]models.Asset, 0)
	if err := r.db.SelectContext(ctx, &assets, query, cityID, userID, models.AssetStatusAssigned); err != nil {
		return nil, fmt.Errorf("list assigned assets: %w", err)
	}
	return assets, nil
}

// Activate moves a pending asset to ACTIVE. Already active assets are left as they are.
func (r *AssetRepository) Activate(ctx context.Context, id string) error {
	const query = `UPDATE assets SET status = $2, updated_at = $3 WHERE id = $1 AND status IN ($4, $2)`
	result, err := r.db.ExecContext(ctx, query, id, models.AssetStatusActive, time.Now().UTC(), models.AssetStatusPending)
	if err != nil {
		return fmt.Errorf("activate asset: %w", err)
	}
	return expectRow(result, "activate asset")
}

// Release marks an assigned asset COMPLETED and clears its assignee so it can be assigned again.
func (r *AssetRepository) Release(ctx context.Context, id string) error {
	const query = `UPDATE assets SET status = $2, assigned_to = NULL, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, models.AssetStatusCompleted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release asset: %w", err)
	}
	return expectRow(result, "release asset")
}

func expectRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
