package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
)

var reviewCols = []string{"id", "family", "city_id", "module_id", "asset_id", "zone_id", "ward_id", "submitter_id", "status", "reviewer_id",
	"escalated_to_id", "remark", "action_remark", "action_photo_url", "latitude", "longitude", "distance_meters", "details",
	"submitted_at", "updated_at", "reviewed_at", "action_taken_at"}

func TestReviewCreateAssignsULIDAndSubmittedStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_records")).WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.ReviewRecord{Family: models.FamilyBinVisit, CityID: "c1", AssetID: "bin-1", SubmitterID: "emp-1"}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.Len(t, record.ID, 26)
	assert.Equal(t, models.ReviewStatusSubmitted, record.Status)
	assert.JSONEq(t, `{}`, string(record.Details))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewListRequiresZoneAndWard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	scope := models.NewAuthorizationScope([]string{"Z1"}, []string{"W7"})
	statuses := pq.Array([]string{"SUBMITTED", "UNDER_REVIEW"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM review_records WHERE family = $1 AND city_id = $2 AND status = ANY($3) AND zone_id = ANY($4) AND ward_id = ANY($5)")).
		WithArgs(models.FamilyBinVisit, "c1", statuses, pq.Array([]string{"Z1"}), pq.Array([]string{"W7"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC, id DESC LIMIT 50 OFFSET 0")).
		WithArgs(models.FamilyBinVisit, "c1", statuses, pq.Array([]string{"Z1"}), pq.Array([]string{"W7"})).
		WillReturnRows(sqlmock.NewRows(reviewCols).AddRow(
			"r1", "BIN_VISIT", "c1", "m1", "bin-1", "Z1", "W7", "emp-1", "SUBMITTED", nil,
			nil, nil, nil, nil, 0.0, 0.0, 30.0, []byte(`{}`),
			now, now, nil, nil))

	records, total, err := repo.List(context.Background(), models.ReviewFilter{
		Family:   models.FamilyBinVisit,
		CityID:   "c1",
		Statuses: []models.ReviewStatus{models.ReviewStatusSubmitted, models.ReviewStatusUnderReview},
		Scope:    &scope,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "W7", records[0].WardOrEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewListWardOnlyScopeSkipsZoneClause(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	scope := models.NewAuthorizationScope(nil, []string{"W7"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM review_records WHERE family = $1 AND city_id = $2 AND ward_id = ANY($3)")).
		WithArgs(models.FamilyBinVisit, "c1", pq.Array([]string{"W7"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE family = $1 AND city_id = $2 AND ward_id = ANY($3) ORDER BY")).
		WithArgs(models.FamilyBinVisit, "c1", pq.Array([]string{"W7"})).
		WillReturnRows(sqlmock.NewRows(reviewCols))

	records, total, err := repo.List(context.Background(), models.ReviewFilter{Family: models.FamilyBinVisit, CityID: "c1", Scope: &scope})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewListEscalatedToOfficer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE family = $1 AND city_id = $2 AND escalated_to_id = $3")).
		WithArgs(models.FamilyBinVisit, "c1", "ao-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("escalated_to_id = $3 ORDER BY")).
		WithArgs(models.FamilyBinVisit, "c1", "ao-2").
		WillReturnRows(sqlmock.NewRows(reviewCols))

	_, _, err := repo.List(context.Background(), models.ReviewFilter{Family: models.FamilyBinVisit, CityID: "c1", EscalatedTo: "ao-2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewListEmptyScopeSkipsQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	empty := models.NewAuthorizationScope(nil, nil)
	records, total, err := repo.List(context.Background(), models.ReviewFilter{Family: models.FamilyBinVisit, CityID: "c1", Scope: &empty})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewTransitionWritesAuditInSameTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE review_records SET status =")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_audit_entries")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	remark := "clean the area"
	entry, err := repo.Transition(context.Background(), models.ReviewTransition{
		RecordID:      "r1",
		From:          models.ReviewStatusSubmitted,
		To:            models.ReviewStatusActionRequired,
		Action:        models.ReviewActionRequireAction,
		ActorID:       "qc-1",
		ReviewerID:    strPtr("qc-1"),
		EscalatedToID: strPtr("ao-1"),
		Remark:        &remark,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusSubmitted, entry.FromStatus)
	assert.Equal(t, models.ReviewStatusActionRequired, entry.ToStatus)
	assert.Equal(t, "qc-1", entry.ActorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewTransitionCASMissRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE review_records SET status =")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), models.ReviewTransition{
		RecordID: "r1", From: models.ReviewStatusUnderReview, To: models.ReviewStatusApproved, ActorID: "qc-1",
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewActionTakenIsConditionedOnOfficer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`WHERE id = \S+ AND status = \S+ AND escalated_to_id = \S+$`).
		WithArgs(models.ReviewStatusUnderReview, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "r1", models.ReviewStatusActionRequired, "ao-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	remark, photo := "cleaned", "https://cdn.example.com/p.jpg"
	_, err := repo.Transition(context.Background(), models.ReviewTransition{
		RecordID: "r1",
		From:     models.ReviewStatusActionRequired,
		To:       models.ReviewStatusUnderReview,
		Action:   models.ReviewActionActionTaken,
		ActorID:  "ao-1",
		Remark:   &remark,
		PhotoURL: &photo,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewListAudit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM review_audit_entries WHERE record_id = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "record_id", "from_status", "to_status", "action", "actor_id", "remark", "photo_url", "created_at"}).
			AddRow("a1", "r1", "SUBMITTED", "APPROVED", "APPROVE", "qc-1", nil, nil, now))

	entries, err := repo.ListAudit(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ReviewStatusApproved, entries[0].ToStatus)
}
