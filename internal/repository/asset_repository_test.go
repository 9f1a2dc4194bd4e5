package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
)

func TestAssetGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM assets WHERE id = $1")).
		WithArgs("beat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "city_id", "module_key", "kind", "name", "zone_id", "ward_id", "latitude", "longitude", "status", "assigned_to", "created_at", "updated_at"}).
			AddRow("beat-1", "c1", "SWEEPING", "BEAT", "Beat 1", "Z1", "W1", 18.52, 73.85, "ASSIGNED", "emp-1", now, now))

	asset, err := repo.GetByID(context.Background(), "beat-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssetKindBeat, asset.Kind)
	assert.Equal(t, "W1", asset.WardOrEmpty())
	assert.Equal(t, "emp-1", *asset.AssignedTo)
}

func TestAssetReleaseClearsAssignee(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET status = $2, assigned_to = NULL")).
		WithArgs("beat-1", models.AssetStatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Release(context.Background(), "beat-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetActivateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET status = $2")).
		WithArgs("bin-9", models.AssetStatusActive, sqlmock.AnyArg(), models.AssetStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Activate(context.Background(), "bin-9"), sql.ErrNoRows)
}

func TestAssetAssignOnlyFromFreeStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status IN ($5, $6) AND assigned_to IS NULL")).
		WithArgs("beat-1", models.AssetStatusAssigned, "emp-1", sqlmock.AnyArg(), models.AssetStatusActive, models.AssetStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET status = $2, assigned_to = $3")).
		WithArgs("beat-1", models.AssetStatusAssigned, "emp-2", sqlmock.AnyArg(), models.AssetStatusActive, models.AssetStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Assign(context.Background(), "beat-1", "emp-1"))
	assert.ErrorIs(t, repo.Assign(context.Background(), "beat-1", "emp-2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetListAssigned(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE city_id = $1 AND assigned_to = $2 AND status = $3 ORDER BY name ASC")).
		WithArgs("c1", "emp-1", models.AssetStatusAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"id", "city_id", "module_key", "kind", "name", "zone_id", "ward_id", "latitude", "longitude", "status", "assigned_to", "created_at", "updated_at"}).
			AddRow("beat-1", "c1", "SWEEPING", "BEAT", "Beat 1", "Z1", "W1", 18.52, 73.85, "ASSIGNED", "emp-1", now, now))

	assets, err := repo.ListAssigned(context.Background(), "c1", "emp-1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "beat-1", assets[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetCreateFillsIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assets (id, city_id, module_key")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	zone, ward := "Z1", "W1"
	asset := &models.Asset{CityID: "c1", Module: models.ModuleLitterBins, Kind: models.AssetKindBin, Name: "Bus stop", ZoneID: &zone, WardID: &ward, Status: models.AssetStatusPending}
	require.NoError(t, repo.Create(context.Background(), asset))
	assert.NotEmpty(t, asset.ID)
	assert.False(t, asset.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
