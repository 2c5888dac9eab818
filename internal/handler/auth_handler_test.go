package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/models"
	"github.com/noah-isme/report-compliance-api/internal/service"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type fakeAuthSrv struct {
	login      models.LoginRequest
	loggedOut  string
	passwordOf string
	err        error
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*service.Session, error) {
	f.login = req
	if f.err != nil {
		return nil, f.err
	}
	return &service.Session{
		LoginResponse: models.LoginResponse{AccessToken: "access", User: models.UserInfo{ID: "u1", Role: models.RoleSchool}},
		Capabilities:  compliance.CapabilitiesFor(models.RoleSchool),
	}, nil
}

func (f *fakeAuthSrv) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "next"}, f.err
}

func (f *fakeAuthSrv) Logout(_ context.Context, token string, _ string, _ models.LoginRequest) error {
	f.loggedOut = token
	return f.err
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, userID string, _ models.ChangePasswordRequest) error {
	f.passwordOf = userID
	return f.err
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*service.Profile, error) {
	return &service.Profile{UserInfo: models.UserInfo{ID: userID, Role: models.RoleSchool}, Unlinked: true}, f.err
}

func TestAuthHandlerLoginReturnsCapabilities(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)
	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"head@north.edu","password":"secret"}`))
	c.Request.Header.Set("User-Agent", "dashboard")

	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "head@north.edu", srv.login.Email)
	assert.Equal(t, "dashboard", srv.login.UserAgent)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "access", envelope.Data["access_token"])
	caps, ok := envelope.Data["capabilities"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, caps["ownSchool"])
	assert.Equal(t, false, caps["matrix"])
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{err: appErrors.ErrInvalidCredentials})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":`))
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"a@b.c","password":"nope"}`))
	handler.Login(c)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Status, w.Code)
}

func TestAuthHandlerSessionEndpointsNeedClaims(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, w := newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"r1"}`))
	handler.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"r1"}`))
	withClaims(c, "u1", models.RoleAdmin)
	handler.Logout(c)
	c.Writer.WriteHeaderNow() // the gin engine flushes the status after the handler chain
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "r1", srv.loggedOut)

	c, w = newGinContext(http.MethodPost, "/auth/change-password", []byte(`{"old_password":"a","new_password":"bbbbbb"}`))
	withClaims(c, "u1", models.RoleAdmin)
	handler.ChangePassword(c)
	c.Writer.WriteHeaderNow() // the gin engine flushes the status after the handler chain
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u1", srv.passwordOf)
}

func TestAuthHandlerMeFlagsUnlinkedAccount(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})
	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	withClaims(c, "school-user", models.RoleSchool)

	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "school-user", envelope.Data["id"])
	assert.Equal(t, true, envelope.Data["unlinked"])
}
