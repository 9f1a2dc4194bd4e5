package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type membershipStub struct {
	cities map[string][]models.UserCity
	err    error
}

func (m *membershipStub) ListCities(ctx context.Context, userID string) ([]models.UserCity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cities[userID], nil
}

type enabledModulesStub struct {
	byCity map[string][]models.Module
}

func (e *enabledModulesStub) ListEnabledForCity(ctx context.Context, cityID string) ([]models.Module, error) {
	return e.byCity[cityID], nil
}

func newClaimsFixture(bootstrap bool) (*ClaimsService, *membershipStub, *grantStoreStub) {
	memberships := &membershipStub{cities: map[string][]models.UserCity{}}
	grants := &grantStoreStub{}
	catalog := testCatalog()
	enabled := &enabledModulesStub{byCity: map[string][]models.Module{
		"city-1": catalog.All(),
		"city-2": {{ID: "mod-to", Key: models.ModuleToilet}},
	}}
	svc := NewClaimsService(memberships, grants, enabled, catalog, nil, ClaimsConfig{
		Secret:              "claims-secret",
		Expiry:              time.Hour,
		Issuer:              "hms-api",
		SuperAdminBootstrap: bootstrap,
	})
	return svc, memberships, grants
}

func TestBuildClaimsBootstrapsSuperAdminWithoutMemberships(t *testing.T) {
	svc, _, _ := newClaimsFixture(true)

	claims, err := svc.BuildClaims(context.Background(), "root", "")
	require.NoError(t, err)
	assert.True(t, claims.IsSuperAdmin())
	assert.Empty(t, claims.ActiveCityID)
	assert.Equal(t, []models.Role{models.RoleSuperAdmin}, claims.Roles)
	assert.NotNil(t, claims.Modules)
	assert.Equal(t, "root", claims.SubjectID())
}

func TestBuildClaimsRefusesBootstrapWhenDisabled(t *testing.T) {
	svc, _, _ := newClaimsFixture(false)

	_, err := svc.BuildClaims(context.Background(), "root", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestBuildClaimsSelectsActiveCity(t *testing.T) {
	svc, memberships, grants := newClaimsFixture(true)
	memberships.cities["u-1"] = []models.UserCity{
		{UserID: "u-1", CityID: "city-1", Role: models.RoleQC},
		{UserID: "u-1", CityID: "city-2", Role: models.RoleEmployee},
	}
	grants.grants = []models.ModuleRoleGrant{
		grant("u-1", models.RoleQC, "mod-lb", []string{"zone-a"}, nil),
		{UserID: "u-1", CityID: "city-2", ModuleID: "mod-to", Role: models.RoleEmployee, CanWrite: true},
	}

	claims, err := svc.BuildClaims(context.Background(), "u-1", "city-2")
	require.NoError(t, err)
	assert.Equal(t, "city-2", claims.ActiveCityID)
	assert.Equal(t, []models.Role{models.RoleEmployee}, claims.Roles)
	require.Len(t, claims.Modules, 1)
	assert.Equal(t, models.ModuleToilet, claims.Modules[0].Key)

	claims, err = svc.BuildClaims(context.Background(), "u-1", "city-9")
	require.NoError(t, err)
	assert.Equal(t, "city-1", claims.ActiveCityID)
	assert.Equal(t, []models.Role{models.RoleQC}, claims.Roles)
	require.Len(t, claims.Modules, 1)
	assert.Equal(t, models.ModuleLitterBins, claims.Modules[0].Key)
	assert.Equal(t, models.RoleQC, claims.Modules[0].Role)
}

func TestBuildClaimsCityAdminInheritsEnabledModules(t *testing.T) {
	svc, memberships, grants := newClaimsFixture(true)
	memberships.cities["admin"] = []models.UserCity{{UserID: "admin", CityID: "city-1", Role: models.RoleCityAdmin}}
	qc := grant("admin", models.RoleQC, "mod-to", []string{"zone-a"}, nil)
	qc.CanWrite = false
	grants.grants = []models.ModuleRoleGrant{qc}

	claims, err := svc.BuildClaims(context.Background(), "admin", "")
	require.NoError(t, err)
	require.Len(t, claims.Modules, 4)

	keys := make([]models.ModuleKey, 0, len(claims.Modules))
	for _, m := range claims.Modules {
		keys = append(keys, m.Key)
		assert.True(t, m.CanWrite, "module %s", m.Key)
		assert.Equal(t, models.RoleCityAdmin, m.Role)
	}
	assert.Equal(t, []models.ModuleKey{models.ModuleLitterBins, models.ModuleSweeping, models.ModuleTaskforce, models.ModuleToilet}, keys)

	toilet, ok := claims.Module(models.ModuleToilet)
	require.True(t, ok)
	assert.Equal(t, []models.Role{models.RoleCityAdmin, models.RoleQC}, toilet.Roles)
}

func TestBuildClaimsNormalisesWriteFlag(t *testing.T) {
	svc, memberships, grants := newClaimsFixture(true)
	memberships.cities["c-1"] = []models.UserCity{{UserID: "c-1", CityID: "city-1", Role: models.RoleCommissioner}}
	grants.grants = []models.ModuleRoleGrant{grant("c-1", models.RoleCommissioner, "mod-sw", nil, nil)}

	claims, err := svc.BuildClaims(context.Background(), "c-1", "")
	require.NoError(t, err)
	require.Len(t, claims.Modules, 1)
	assert.False(t, claims.Modules[0].CanWrite)
}

func TestBuildClaimsIsDeterministic(t *testing.T) {
	svc, memberships, grants := newClaimsFixture(true)
	memberships.cities["u-1"] = []models.UserCity{
		{UserID: "u-1", CityID: "city-1", Role: models.RoleQC},
		{UserID: "u-1", CityID: "city-1", Role: models.RoleActionOfficer},
	}
	grants.grants = []models.ModuleRoleGrant{
		grant("u-1", models.RoleActionOfficer, "mod-to", nil, []string{"ward-1"}),
		grant("u-1", models.RoleQC, "mod-sw", []string{"zone-a"}, nil),
		grant("u-1", models.RoleQC, "mod-to", []string{"zone-a"}, nil),
	}

	first, err := svc.BuildClaims(context.Background(), "u-1", "")
	require.NoError(t, err)
	// reversing the store order must not change the outcome
	grants.grants[0], grants.grants[2] = grants.grants[2], grants.grants[0]
	second, err := svc.BuildClaims(context.Background(), "u-1", "")
	require.NoError(t, err)

	assert.Equal(t, first.Roles, second.Roles)
	assert.Equal(t, first.Modules, second.Modules)
	assert.Equal(t, first.ActiveCityID, second.ActiveCityID)
	assert.Equal(t, []models.Role{models.RoleActionOfficer, models.RoleQC}, first.Roles)
}

func TestBuildClaimsSkipsUnknownModules(t *testing.T) {
	svc, memberships, grants := newClaimsFixture(true)
	memberships.cities["u-1"] = []models.UserCity{{UserID: "u-1", CityID: "city-1", Role: models.RoleQC}}
	grants.grants = []models.ModuleRoleGrant{grant("u-1", models.RoleQC, "mod-twinbin", nil, nil)}

	claims, err := svc.BuildClaims(context.Background(), "u-1", "")
	require.NoError(t, err)
	assert.Empty(t, claims.Modules)
	assert.Equal(t, "city-1", claims.ActiveCityID)
}

func TestBuildClaimsPropagatesStoreErrors(t *testing.T) {
	svc, memberships, _ := newClaimsFixture(true)
	memberships.err = errors.New("db down")

	_, err := svc.BuildClaims(context.Background(), "u-1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestSignAndValidateToken(t *testing.T) {
	svc, memberships, grants := newClaimsFixture(true)
	memberships.cities["u-1"] = []models.UserCity{{UserID: "u-1", CityID: "city-1", Role: models.RoleQC}}
	grants.grants = []models.ModuleRoleGrant{grant("u-1", models.RoleQC, "mod-lb", []string{"zone-a"}, nil)}

	claims, err := svc.BuildClaims(context.Background(), "u-1", "")
	require.NoError(t, err)
	token, err := svc.Sign(claims)
	require.NoError(t, err)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", parsed.SubjectID())
	assert.Equal(t, claims.Modules, parsed.Modules)
	assert.Equal(t, "city-1", parsed.ActiveCityID)

	other := NewClaimsService(memberships, grants, &enabledModulesStub{}, testCatalog(), nil, ClaimsConfig{Secret: "other", Issuer: "hms-api"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)

	_, err = svc.ValidateToken(token + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestValidateTokenRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	svc, _, _ := newClaimsFixture(true)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	claims, err := svc.BuildClaims(context.Background(), "root", "")
	require.NoError(t, err)
	token, err := svc.Sign(claims)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC() }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "root",
		Issuer:    "hms-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(raw)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}
