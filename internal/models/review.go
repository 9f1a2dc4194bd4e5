package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RecordFamily names a kind of reviewable field submission.
type RecordFamily string

const (
	FamilyBinRequest         RecordFamily = "BIN_REQUEST"
	FamilyBinVisit           RecordFamily = "BIN_VISIT"
	FamilyBinReport          RecordFamily = "BIN_REPORT"
	FamilyToiletInspection   RecordFamily = "TOILET_INSPECTION"
	FamilySweepingInspection RecordFamily = "SWEEPING_INSPECTION"
	FamilyTaskforceCase      RecordFamily = "TASKFORCE_CASE"
)

type familyInfo struct {
	module ModuleKey
	asset  AssetKind
}

var families = map[RecordFamily]familyInfo{
	FamilyBinRequest:         {ModuleLitterBins, AssetKindBin},
	FamilyBinVisit:           {ModuleLitterBins, AssetKindBin},
	FamilyBinReport:          {ModuleLitterBins, AssetKindBin},
	FamilyToiletInspection:   {ModuleToilet, AssetKindToilet},
	FamilySweepingInspection: {ModuleSweeping, AssetKindBeat},
	FamilyTaskforceCase:      {ModuleTaskforce, AssetKindFeederPoint},
}

// AllFamilies lists every record family.
var AllFamilies = []RecordFamily{
	FamilyBinRequest, FamilyBinVisit, FamilyBinReport,
	FamilyToiletInspection, FamilySweepingInspection, FamilyTaskforceCase,
}

// ParseRecordFamily accepts a family name in any case.
func ParseRecordFamily(raw string) (RecordFamily, error) {
	f := RecordFamily(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := families[f]; !ok {
		return "", fmt.Errorf("unknown record family %q", raw)
	}
	return f, nil
}

// Module returns the module owning the family.
func (f RecordFamily) Module() ModuleKey { return families[f].module }

// AssetKind returns the asset kind a submission of this family targets.
func (f RecordFamily) AssetKind() AssetKind { return families[f].asset }

// ReviewStatus is a state of the review workflow.
type ReviewStatus string

const (
	ReviewStatusSubmitted      ReviewStatus = "SUBMITTED"
	ReviewStatusUnderReview    ReviewStatus = "UNDER_REVIEW"
	ReviewStatusApproved       ReviewStatus = "APPROVED"
	ReviewStatusRejected       ReviewStatus = "REJECTED"
	ReviewStatusActionRequired ReviewStatus = "ACTION_REQUIRED"
	ReviewStatusActionTaken    ReviewStatus = "ACTION_TAKEN"
)

var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewStatusSubmitted:      {ReviewStatusApproved, ReviewStatusRejected, ReviewStatusActionRequired},
	ReviewStatusUnderReview:    {ReviewStatusApproved, ReviewStatusRejected, ReviewStatusActionRequired},
	ReviewStatusActionRequired: {ReviewStatusActionTaken},
	ReviewStatusActionTaken:    {ReviewStatusUnderReview},
}

// CanTransition reports whether the workflow permits from -> to.
// SUBMITTED is reviewable exactly like UNDER_REVIEW.
func CanTransition(from, to ReviewStatus) bool {
	for _, next := range reviewTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewStatusApproved || s == ReviewStatusRejected
}

// PendingReview reports whether a reviewer may decide on a record in status s.
func (s ReviewStatus) PendingReview() bool {
	return s == ReviewStatusSubmitted || s == ReviewStatusUnderReview
}

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove        Decision = "APPROVED"
	DecisionReject         Decision = "REJECTED"
	DecisionActionRequired Decision = "ACTION_REQUIRED"
)

// Status returns the status a decision moves a record to.
func (d Decision) Status() ReviewStatus { return ReviewStatus(d) }

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject || d == DecisionActionRequired
}

// ReviewRecord is a field submission travelling through the review workflow.
type ReviewRecord struct {
	ID             string         `db:"id" json:"id"`
	Family         RecordFamily   `db:"family" json:"family"`
	CityID         string         `db:"city_id" json:"cityId"`
	ModuleID       string         `db:"module_id" json:"moduleId"`
	AssetID        string         `db:"asset_id" json:"assetId"`
	ZoneID         *string        `db:"zone_id" json:"zoneId,omitempty"`
	WardID         *string        `db:"ward_id" json:"wardId,omitempty"`
	SubmitterID    string         `db:"submitter_id" json:"submitterId"`
	Status         ReviewStatus   `db:"status" json:"status"`
	ReviewerID     *string        `db:"reviewer_id" json:"reviewerId,omitempty"`
	EscalatedToID  *string        `db:"escalated_to_id" json:"escalatedToId,omitempty"`
	Remark         *string        `db:"remark" json:"remark,omitempty"`
	ActionRemark   *string        `db:"action_remark" json:"actionRemark,omitempty"`
	ActionPhotoURL *string        `db:"action_photo_url" json:"actionPhotoUrl,omitempty"`
	Latitude       float64        `db:"latitude" json:"latitude"`
	Longitude      float64        `db:"longitude" json:"longitude"`
	DistanceMeters float64        `db:"distance_meters" json:"distanceMeters"`
	Details        types.JSONText `db:"details" json:"details,omitempty"`
	SubmittedAt    time.Time      `db:"submitted_at" json:"submittedAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
	ReviewedAt     *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ActionTakenAt  *time.Time     `db:"action_taken_at" json:"actionTakenAt,omitempty"`
}

// ZoneOrEmpty returns the zone id or "".
func (r *ReviewRecord) ZoneOrEmpty() string { return deref(r.ZoneID) }

// WardOrEmpty returns the ward id or "".
func (r *ReviewRecord) WardOrEmpty() string { return deref(r.WardID) }

// ReviewTransition is a conditioned status change: it only applies while the record is still in From.
type ReviewTransition struct {
	RecordID      string
	From          ReviewStatus
	To            ReviewStatus
	Action        string
	ActorID       string
	ReviewerID    *string
	EscalatedToID *string
	Remark        *string
	PhotoURL      *string
	At            time.Time
}

// Audit actions written for review transitions.
const (
	ReviewActionApprove       = "APPROVE"
	ReviewActionReject        = "REJECT"
	ReviewActionRequireAction = "ACTION_REQUIRED"
	ReviewActionActionTaken   = "ACTION_TAKEN"
)

// ReviewAuditEntry is an immutable record of one transition.
type ReviewAuditEntry struct {
	ID         string       `db:"id" json:"id"`
	RecordID   string       `db:"record_id" json:"recordId"`
	FromStatus ReviewStatus `db:"from_status" json:"fromStatus"`
	ToStatus   ReviewStatus `db:"to_status" json:"toStatus"`
	Action     string       `db:"action" json:"action"`
	ActorID    string       `db:"actor_id" json:"actorId"`
	Remark     *string      `db:"remark" json:"remark,omitempty"`
	PhotoURL   *string      `db:"photo_url" json:"photoUrl,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
}

// ReviewFilter constrains record listings. Scope restricts rows to the listed zones and wards;
// EscalatedTo to records escalated to one action officer.
type ReviewFilter struct {
	Family      RecordFamily
	CityID      string
	Statuses    []ReviewStatus
	Scope       *AuthorizationScope
	SubmitterID string
	EscalatedTo string
	Limit       int
	Offset      int
}

// SubmitReviewRequest is a field worker's submission for an asset.
type SubmitReviewRequest struct {
	AssetID          string         `json:"assetId" validate:"required"`
	Latitude         float64        `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64        `json:"longitude" validate:"gte=-180,lte=180"`
	AttestationToken string         `json:"attestationToken" validate:"required"`
	Details          types.JSONText `json:"details"`
}

// DecisionRequest is a reviewer's verdict on a record.
type DecisionRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=APPROVED REJECTED ACTION_REQUIRED"`
	Remark   string   `json:"remark" validate:"max=1000"`
}

// ActionTakenRequest is an action officer's remediation report.
type ActionTakenRequest struct {
	Remark   string `json:"remark" validate:"required,max=1000"`
	PhotoURL string `json:"photoUrl" validate:"required,url"`
}

// ReviewListQuery holds list parameters bound from the query string.
// CityID is only honoured for super administrators, who carry no active city.
type ReviewListQuery struct {
	Statuses []ReviewStatus `form:"status"`
	CityID   string         `form:"cityId"`
	Assigned string         `form:"assigned"`
	Page     int            `form:"page"`
	PageSize int            `form:"pageSize"`
}

// AssignedToMe is the only accepted value of ReviewListQuery.Assigned.
const AssignedToMe = "me"
