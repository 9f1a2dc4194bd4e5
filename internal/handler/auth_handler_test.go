package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type fakeAuthSrv struct {
	lastLogin  models.LoginRequest
	lastSwitch models.SwitchCityRequest
	err        error
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (f *fakeAuthSrv) SwitchCity(_ context.Context, current *models.Claims, req models.SwitchCityRequest) (*models.LoginResponse, error) {
	f.lastSwitch = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "switched", Claims: testClaims(current.SubjectID(), req.CityID)}, nil
}

func (f *fakeAuthSrv) Me(_ context.Context, claims *models.Claims) (*models.SessionInfo, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	return &models.SessionInfo{User: models.UserInfo{ID: claims.SubjectID()}, Claims: claims}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &fakeAuthSrv{}
	r := newTestRouter(nil)
	h := NewAuthHandler(svc)
	r.POST("/auth/login", h.Login)

	rec := doRequest(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "qc@example.com", "password": "secret", "cityId": "city-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "qc@example.com", svc.lastLogin.Email)
	assert.Equal(t, "city-1", svc.lastLogin.CityID)
	assert.NotEmpty(t, svc.lastLogin.IP)
	var res models.LoginResponse
	decodeData(t, rec, &res)
	assert.Equal(t, "token", res.AccessToken)

	rec = doRequest(t, r, http.MethodPost, "/auth/login", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	rec = doRequest(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "qc@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerSwitchCityAndMe(t *testing.T) {
	svc := &fakeAuthSrv{}
	r := newTestRouter(testClaims("u-1", "city-1", models.RoleQC))
	h := NewAuthHandler(svc)
	r.POST("/auth/switch-city", h.SwitchCity)
	r.GET("/auth/me", h.Me)

	rec := doRequest(t, r, http.MethodPost, "/auth/switch-city", map[string]string{"cityId": "city-2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "city-2", svc.lastSwitch.CityID)

	rec = doRequest(t, r, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.SessionInfo
	decodeData(t, rec, &info)
	assert.Equal(t, "u-1", info.User.ID)
	assert.Equal(t, "city-1", info.Claims.ActiveCityID)

	anon := newTestRouter(nil)
	anon.GET("/auth/me", h.Me)
	anon.POST("/auth/switch-city", h.SwitchCity)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, anon, http.MethodGet, "/auth/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, anon, http.MethodPost, "/auth/switch-city", map[string]string{"cityId": "x"}).Code)
}
