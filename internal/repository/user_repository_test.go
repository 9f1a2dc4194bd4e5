package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func strPtr(v string) *string { return &v }

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "qc@city.gov", "hash", "QC One", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE lower(email) = lower($1) LIMIT 1")).
		WithArgs("QC@city.gov").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "QC@city.gov")
	require.NoError(t, err)
	assert.Equal(t, "qc@city.gov", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFoundPassesThrough(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListCitiesOrdersByMembershipAge(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "city_id", "city_name", "role", "created_at"}).
		AddRow("u1", "c1", "Pune", "QC", now.Add(-time.Hour)).
		AddRow("u1", "c2", "Nashik", "CITY_ADMIN", now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY uc.created_at ASC")).WithArgs("u1").WillReturnRows(rows)

	cities, err := repo.ListCities(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "c1", cities[0].CityID)
	assert.Equal(t, models.RoleCityAdmin, cities[1].Role)
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{UserID: strPtr("u1"), Action: models.AuditActionLogin, Resource: "auth"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
