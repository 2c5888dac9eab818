package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/models"
	"github.com/noah-isme/report-compliance-api/internal/service"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type fakeUserSrv struct {
	filter  models.UserFilter
	created service.CreateUserRequest
	actor   string
	deleted string
	err     error
}

func (f *fakeUserSrv) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{}, &models.Pagination{Page: 1, PageSize: 20}, f.err
}

func (f *fakeUserSrv) Get(context.Context, string) (*models.User, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (f *fakeUserSrv) Create(_ context.Context, req service.CreateUserRequest, actorID string, _ models.LoginRequest) (*models.User, error) {
	f.created = req
	f.actor = actorID
	return &models.User{ID: "u2", Email: req.Email, Role: req.Role}, f.err
}

func (f *fakeUserSrv) Update(_ context.Context, id string, req service.UpdateUserRequest, _ string, _ models.LoginRequest) (*models.User, error) {
	return &models.User{ID: id, FullName: req.FullName, Role: req.Role}, f.err
}

func (f *fakeUserSrv) Delete(_ context.Context, id string, _ string, _ models.LoginRequest) error {
	f.deleted = id
	return f.err
}

func TestUserHandlerListFilters(t *testing.T) {
	srv := &fakeUserSrv{}
	handler := NewUserHandler(srv)
	c, w := newGinContext(http.MethodGet, "/users?role=school&school_name=North%20High&active=true&page=2", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, srv.filter.Role)
	assert.Equal(t, models.RoleSchool, *srv.filter.Role)
	assert.Equal(t, "North High", srv.filter.SchoolName)
	require.NotNil(t, srv.filter.Active)
	assert.True(t, *srv.filter.Active)
	assert.Equal(t, 2, srv.filter.Page)
}

func TestUserHandlerListRejectsBadFilters(t *testing.T) {
	handler := NewUserHandler(&fakeUserSrv{})

	for _, query := range []string{"role=principal", "active=maybe"} {
		c, w := newGinContext(http.MethodGet, "/users?"+query, nil)
		handler.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestUserHandlerCreateAndDelete(t *testing.T) {
	srv := &fakeUserSrv{}
	handler := NewUserHandler(srv)

	body := []byte(`{"email":"head@north.edu","full_name":"Head","role":"SCHOOL","password":"secret1","school_names":["North High"]}`)
	c, w := newGinContext(http.MethodPost, "/users", body)
	withClaims(c, "admin", models.RoleAdmin)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"North High"}, srv.created.SchoolNames)
	assert.Equal(t, "admin", srv.actor)

	c, w = newGinContext(http.MethodDelete, "/users/u2", nil)
	c.Params = gin.Params{{Key: "id", Value: "u2"}}
	withClaims(c, "admin", models.RoleAdmin)
	handler.Delete(c)
	c.Writer.WriteHeaderNow() // the gin engine flushes the status after the handler chain
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u2", srv.deleted)
}

func TestUserHandlerGetMissing(t *testing.T) {
	handler := NewUserHandler(&fakeUserSrv{})
	c, w := newGinContext(http.MethodGet, "/users/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
