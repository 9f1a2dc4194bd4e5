package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type zoneWardFunc func(ctx context.Context, cityID, zoneID, wardID string) error

func (f zoneWardFunc) ValidateZoneWard(ctx context.Context, cityID, zoneID, wardID string) error {
	return f(ctx, cityID, zoneID, wardID)
}

// acceptZoneWard accepts zone-a with ward-1 only.
var acceptZoneWard = zoneWardFunc(func(_ context.Context, cityID, zoneID, wardID string) error {
	if cityID != "city-1" || zoneID != "zone-a" || wardID != "ward-1" {
		return appErrors.Clone(appErrors.ErrValidation, "ward does not belong to zone")
	}
	return nil
})

func newAssetFixture(fx *reviewFixture) (*AssetService, *auditSink) {
	fx.grants.grants = append(fx.grants.grants, grant("emp-1", models.RoleEmployee, "mod-sw", nil, nil))
	audit := &auditSink{}
	return NewAssetService(fx.assets, testCatalog(), fx.grants, acceptZoneWard, audit, nil, nil), audit
}

func TestAssignBeatGuards(t *testing.T) {
	fx := newReviewFixture(t)
	svc, audit := newAssetFixture(fx)
	ctx := context.Background()

	_, err := svc.Assign(ctx, "admin-1", "city-1", "beat-2", models.AssignAssetRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Assign(ctx, "admin-1", "city-1", "bin-1", models.AssignAssetRequest{UserID: "emp-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Assign(ctx, "admin-1", "city-1", "beat-2", models.AssignAssetRequest{UserID: "emp-9"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Assign(ctx, "admin-1", "city-2", "beat-2", models.AssignAssetRequest{UserID: "emp-1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Assign(ctx, "admin-1", "city-1", "beat-1", models.AssignAssetRequest{UserID: "emp-1"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Empty(t, audit.actions())
}

func TestBeatAssignmentInspectionAndRelease(t *testing.T) {
	fx := newReviewFixture(t)
	svc, audit := newAssetFixture(fx)
	ctx := context.Background()

	assigned, err := svc.Assign(ctx, "admin-1", "city-1", "beat-2", models.AssignAssetRequest{UserID: "emp-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusAssigned, assigned.Status)
	assert.Equal(t, "emp-1", *assigned.AssignedTo)
	assert.Equal(t, []string{models.AuditActionAssetAssign}, audit.actions())

	mine, err := svc.ListAssigned(ctx, employeeClaims("emp-1", models.ModuleSweeping))
	require.NoError(t, err)
	assert.Equal(t, []string{"beat-1", "beat-2"}, []string{mine[0].ID, mine[1].ID})

	// another worker may not inspect the beat
	other := employeeClaims("emp-2", models.ModuleSweeping)
	att, err := fx.proximity.Issue(ctx, other, models.IssueAttestationRequest{AssetID: "beat-2", Longitude: lon30m})
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, other, models.FamilySweepingInspection, models.SubmitReviewRequest{AssetID: "beat-2", Longitude: lon30m, AttestationToken: att.Token})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	inspection := fx.submit(t, models.FamilySweepingInspection, "beat-2")
	_, err = fx.svc.Decide(ctx, qcClaims(), models.FamilySweepingInspection, inspection.ID, models.DecisionRequest{Decision: models.DecisionApprove})
	require.NoError(t, err)

	released, err := fx.assets.GetByID(ctx, "beat-2")
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusCompleted, released.Status)
	assert.Nil(t, released.AssignedTo)

	// the released beat is back in the pool and its former worker must be reassigned before inspecting
	worker := employeeClaims("emp-1", models.ModuleSweeping)
	att, err = fx.proximity.Issue(ctx, worker, models.IssueAttestationRequest{AssetID: "beat-2", Longitude: lon30m})
	require.NoError(t, err)
	_, err = fx.svc.Submit(ctx, worker, models.FamilySweepingInspection, models.SubmitReviewRequest{AssetID: "beat-2", Longitude: lon30m, AttestationToken: att.Token})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	again, err := svc.Assign(ctx, "admin-1", "city-1", "beat-2", models.AssignAssetRequest{UserID: "emp-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusAssigned, again.Status)
	assert.Contains(t, fx.assets.released, "beat-2")
}

func TestRequestedBinIsActivatedOnApproval(t *testing.T) {
	fx := newReviewFixture(t)
	svc, audit := newAssetFixture(fx)
	ctx := context.Background()
	worker := employeeClaims("emp-1", models.ModuleLitterBins)

	_, err := svc.RequestBin(ctx, worker, models.BinRequest{Name: "Bus stop", ZoneID: "zone-a", WardID: "ward-2"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.RequestBin(ctx, worker, models.BinRequest{Name: "Bus stop", ZoneID: "zone-a"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bin, err := svc.RequestBin(ctx, worker, models.BinRequest{Name: "Bus stop", ZoneID: "zone-a", WardID: "ward-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusPending, bin.Status)
	assert.Equal(t, models.ModuleLitterBins, bin.Module)
	assert.Equal(t, "city-1", bin.CityID)
	assert.Equal(t, []string{models.AuditActionBinRequest}, audit.actions())

	request := fx.submit(t, models.FamilyBinRequest, bin.ID)
	_, err = fx.svc.Decide(ctx, qcClaims(), models.FamilyBinRequest, request.ID, models.DecisionRequest{Decision: models.DecisionApprove})
	require.NoError(t, err)

	active, err := fx.assets.GetByID(ctx, bin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusActive, active.Status)
}
