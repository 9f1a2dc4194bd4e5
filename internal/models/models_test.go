package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCanWrite(t *testing.T) {
	assert.False(t, ResolveCanWrite(RoleCommissioner, true))
	assert.True(t, ResolveCanWrite(RoleQC, true))
	assert.False(t, ResolveCanWrite(RoleQC, false))
	assert.False(t, ResolveCanWrite(RoleEmployee, false))
	assert.True(t, ResolveCanWrite(RoleActionOfficer, false))
	assert.True(t, ResolveCanWrite(RoleCityAdmin, false))
	assert.Equal(t, RoleCityAdmin, PrimaryRole([]Role{RoleQC, RoleCityAdmin}))
	assert.Equal(t, Role(""), PrimaryRole(nil))
}

func TestParseModuleKeyRejectsLegacyNames(t *testing.T) {
	k, err := ParseModuleKey("litterbins")
	require.NoError(t, err)
	assert.Equal(t, ModuleLitterBins, k)

	_, err = ParseModuleKey("TWINBIN")
	assert.Error(t, err)
	assert.Equal(t, ModuleLitterBins, LegacyModuleMapping()["TWINBIN"])
	assert.Equal(t, ModuleToilet, LegacyModuleMapping()["IEC"])
}

func TestGeoParentLevels(t *testing.T) {
	_, ok := GeoLevelZone.ParentLevel()
	assert.False(t, ok)
	parent, ok := GeoLevelWard.ParentLevel()
	assert.True(t, ok)
	assert.Equal(t, GeoLevelZone, parent)
	parent, _ = GeoLevelBeat.ParentLevel()
	assert.Equal(t, GeoLevelArea, parent)
}

func TestScopeContains(t *testing.T) {
	scope := NewAuthorizationScope([]string{"Z1"}, []string{"W9", "W9", ""})

	assert.Equal(t, []string{"W9"}, scope.WardIDs)
	assert.True(t, scope.Contains("Z1", "W9"))
	assert.False(t, scope.Contains("Z1", "W1"))
	assert.False(t, scope.Contains("Z2", "W9"))
	assert.False(t, scope.Contains("Z1", ""))
	assert.False(t, scope.Contains("Z2", "W2"))
	assert.False(t, scope.Contains("", ""))
	assert.False(t, NewAuthorizationScope(nil, nil).Contains("Z1", "W1"))

	wards := NewAuthorizationScope(nil, []string{"W9"})
	assert.True(t, wards.Contains("Z1", "W9"))
	assert.True(t, wards.Contains("", "W9"))
	assert.False(t, wards.Contains("Z1", ""))

	zones := NewAuthorizationScope([]string{"Z1"}, nil)
	assert.True(t, zones.Contains("Z1", "W1"))
	assert.True(t, zones.Contains("Z1", ""))
	assert.False(t, zones.Contains("", "W1"))
}

func TestEmptyScopeSerialisesAsEmptyArrays(t *testing.T) {
	raw, err := json.Marshal(NewAuthorizationScope(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"zoneIds":[],"wardIds":[]}`, string(raw))
}

func TestReviewTransitions(t *testing.T) {
	assert.True(t, CanTransition(ReviewStatusSubmitted, ReviewStatusActionRequired))
	assert.True(t, CanTransition(ReviewStatusUnderReview, ReviewStatusApproved))
	assert.True(t, CanTransition(ReviewStatusActionRequired, ReviewStatusActionTaken))
	assert.True(t, CanTransition(ReviewStatusActionTaken, ReviewStatusUnderReview))

	assert.False(t, CanTransition(ReviewStatusApproved, ReviewStatusApproved))
	assert.False(t, CanTransition(ReviewStatusSubmitted, ReviewStatusActionTaken))
	assert.False(t, CanTransition(ReviewStatusRejected, ReviewStatusUnderReview))
	assert.False(t, CanTransition(ReviewStatusActionRequired, ReviewStatusApproved))
}

func TestFamilyOwnership(t *testing.T) {
	f, err := ParseRecordFamily("sweeping_inspection")
	require.NoError(t, err)
	assert.Equal(t, ModuleSweeping, f.Module())
	assert.Equal(t, AssetKindBeat, f.AssetKind())
	assert.Equal(t, ModuleLitterBins, FamilyBinVisit.Module())
	_, err = ParseRecordFamily("PARKING")
	assert.Error(t, err)
}

func TestClaimsModuleLookup(t *testing.T) {
	claims := &Claims{Roles: []Role{RoleQC}, Modules: []ModuleClaim{{ModuleID: "m1", Key: ModuleToilet, Role: RoleQC, Roles: []Role{RoleQC}}}}
	m, ok := claims.Module(ModuleToilet)
	assert.True(t, ok)
	assert.Equal(t, "m1", m.ModuleID)
	_, ok = claims.Module(ModuleSweeping)
	assert.False(t, ok)
	assert.False(t, claims.IsSuperAdmin())
}
