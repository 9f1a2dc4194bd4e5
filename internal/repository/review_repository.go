package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/noah-isme/hms-api/internal/models"
)

// ReviewRepository persists review records and their append-only audit trail.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, family, city_id, module_id, asset_id, zone_id, ward_id, submitter_id, status, reviewer_id,
       escalated_to_id, remark, action_remark, action_photo_url, latitude, longitude, distance_meters, details,
       submitted_at, updated_at, reviewed_at, action_taken_at`

// Create inserts a new record.
func (r *ReviewRepository) Create(ctx context.Context, record *models.ReviewRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}
	if record.Status == "" {
		record.Status = models.ReviewStatusSubmitted
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = now
	}
	record.UpdatedAt = record.SubmittedAt
	if len(record.Details) == 0 {
		record.Details = []byte(`{}`)
	}
	const query = `INSERT INTO review_records
	(id, family, city_id, module_id, asset_id, zone_id, ward_id, submitter_id, status, latitude, longitude, distance_meters, details, submitted_at, updated_at)
	VALUES (:id, :family, :city_id, :module_id, :asset_id, :zone_id, :ward_id, :submitter_id, :status, :latitude, :longitude, :distance_meters, :details, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create review record: %w", err)
	}
	return nil
}

// GetByID fetches a record.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.ReviewRecord, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_records WHERE id = $1`
	var record models.ReviewRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get review record: %w", err)
	}
	return &record, nil
}

// List returns records matching the filter, newest first, with the total count.
// A non-nil empty scope matches nothing and short-circuits without a query.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewRecord, int, error) {
	if filter.Scope != nil && filter.Scope.Empty() {
		return []models.ReviewRecord{}, 0, nil
	}

	conditions := []string{"family = $1", "city_id = $2"}
	args := []interface{}{filter.Family, filter.CityID}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Scope != nil {
		if len(filter.Scope.ZoneIDs) > 0 {
			args = append(args, pq.Array(filter.Scope.ZoneIDs))
			conditions = append(conditions, fmt.Sprintf("zone_id = ANY($%d)", len(args)))
		}
		if len(filter.Scope.WardIDs) > 0 {
			args = append(args, pq.Array(filter.Scope.WardIDs))
			conditions = append(conditions, fmt.Sprintf("ward_id = ANY($%d)", len(args)))
		}
	}
	if filter.SubmitterID != "" {
		args = append(args, filter.SubmitterID)
		conditions = append(conditions, fmt.Sprintf("submitter_id = $%d", len(args)))
	}
	if filter.EscalatedTo != "" {
		args = append(args, filter.EscalatedTo)
		conditions = append(conditions, fmt.Sprintf("escalated_to_id = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM review_records"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count review records: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM review_records%s ORDER BY submitted_at DESC, id DESC LIMIT %d OFFSET %d", reviewColumns, where, limit, offset)

	records := make([]models.ReviewRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list review records: %w", err)
	}
	return records, total, nil
}

// Transition applies t only while the record is still in t.From and appends the audit entry in the
// same transaction. An action-taken update also requires the record to still be escalated to the
// actor. Returns sql.ErrNoRows when the record has moved on.
func (r *ReviewRepository) Transition(ctx context.Context, t models.ReviewTransition) (*models.ReviewAuditEntry, error) {
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	setParts := []string{"status = :to", "updated_at = :at"}
	where := "id = :id AND status = :from"
	switch t.To {
	case models.ReviewStatusApproved, models.ReviewStatusRejected, models.ReviewStatusActionRequired:
		setParts = append(setParts, "reviewer_id = :reviewer_id", "remark = :remark", "reviewed_at = :at")
		if t.EscalatedToID != nil {
			setParts = append(setParts, "escalated_to_id = :escalated_to_id")
		}
	case models.ReviewStatusUnderReview:
		setParts = append(setParts, "action_remark = :remark", "action_photo_url = :photo_url", "action_taken_at = :at")
		where += " AND escalated_to_id = :actor_id"
	}
	query := fmt.Sprintf("UPDATE review_records SET %s WHERE %s", strings.Join(setParts, ", "), where)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review transition tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              t.RecordID,
		"from":            t.From,
		"to":              t.To,
		"at":              t.At,
		"reviewer_id":     t.ReviewerID,
		"escalated_to_id": t.EscalatedToID,
		"actor_id":        t.ActorID,
		"remark":          t.Remark,
		"photo_url":       t.PhotoURL,
	})
	if err != nil {
		return nil, fmt.Errorf("update review status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check review update rows: %w", err)
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}

	entry := &models.ReviewAuditEntry{
		ID:         ulid.Make().String(),
		RecordID:   t.RecordID,
		FromStatus: t.From,
		ToStatus:   t.To,
		Action:     t.Action,
		ActorID:    t.ActorID,
		Remark:     t.Remark,
		PhotoURL:   t.PhotoURL,
		CreatedAt:  t.At,
	}
	const auditQuery = `INSERT INTO review_audit_entries (id, record_id, from_status, to_status, action, actor_id, remark, photo_url, created_at)
	VALUES (:id, :record_id, :from_status, :to_status, :action, :actor_id, :remark, :photo_url, :created_at)`
	if _, err := tx.NamedExecContext(ctx, auditQuery, entry); err != nil {
		return nil, fmt.Errorf("append review audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review transition tx: %w", err)
	}
	return entry, nil
}

// ListAudit returns a record's audit trail in the order it was written.
func (r *ReviewRepository) ListAudit(ctx context.Context, recordID string) ([]models.ReviewAuditEntry, error) {
	const query = `SELECT id, record_id, from_status, to_status, action, actor_id, remark, photo_url, created_at
	FROM review_audit_entries WHERE record_id = $1 ORDER BY created_at ASC, id ASC`
	entries := make([]models.ReviewAuditEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, recordID); err != nil {
		return nil, fmt.Errorf("list review audit: %w", err)
	}
	return entries, nil
}
