package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/dto"
	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type fakeAutomationSrv struct {
	sim         *compliance.Simulation
	preview     *dto.NoticePreviewResponse
	dispatch    *dto.NoticeDispatchResponse
	err         error
	lastRequest dto.NoticeDispatchRequest
	lastActor   string
}

func (f *fakeAutomationSrv) Simulate(context.Context) (*compliance.Simulation, error) {
	return f.sim, f.err
}

func (f *fakeAutomationSrv) PreviewOverdueNotices(_ context.Context, actorID string) (*dto.NoticePreviewResponse, error) {
	f.lastActor = actorID
	return f.preview, f.err
}

func (f *fakeAutomationSrv) DispatchOverdueNotices(_ context.Context, actorID string, req dto.NoticeDispatchRequest, _ models.LoginRequest) (*dto.NoticeDispatchResponse, error) {
	f.lastActor = actorID
	f.lastRequest = req
	return f.dispatch, f.err
}

func TestAutomationHandlerSimulate(t *testing.T) {
	srv := &fakeAutomationSrv{sim: &compliance.Simulation{Date: models.MustParseDate("2024-03-04"), Log: []string{"Simulation for 2024-03-04 (Monday)"}}}
	handler := NewAutomationHandler(srv)
	c, w := newGinContext(http.MethodPost, "/automation/simulate", nil)
	withClaims(c, "admin", models.RoleAdmin)

	handler.Simulate(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "2024-03-04", envelope.Data["date"])
}

func TestAutomationHandlerPreview(t *testing.T) {
	srv := &fakeAutomationSrv{preview: &dto.NoticePreviewResponse{Message: "nothing to send"}}
	handler := NewAutomationHandler(srv)
	c, w := newGinContext(http.MethodPost, "/automation/overdue-notices/preview", nil)
	withClaims(c, "admin", models.RoleAdmin)

	handler.PreviewNotices(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", srv.lastActor)
}

func TestAutomationHandlerDispatchAccepted(t *testing.T) {
	srv := &fakeAutomationSrv{dispatch: &dto.NoticeDispatchResponse{Schools: 2, Emails: 3}}
	handler := NewAutomationHandler(srv)
	body, _ := json.Marshal(dto.NoticeDispatchRequest{ConfirmationToken: "tok", Confirm: true})
	c, w := newGinContext(http.MethodPost, "/automation/overdue-notices/dispatch", body)
	withClaims(c, "admin", models.RoleAdmin)

	handler.DispatchNotices(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, srv.lastRequest.Confirm)
	assert.Equal(t, "tok", srv.lastRequest.ConfirmationToken)
}

func TestAutomationHandlerDispatchErrors(t *testing.T) {
	handler := NewAutomationHandler(&fakeAutomationSrv{err: appErrors.ErrConfirmationRequired})

	c, w := newGinContext(http.MethodPost, "/automation/overdue-notices/dispatch", []byte("{"))
	withClaims(c, "admin", models.RoleAdmin)
	handler.DispatchNotices(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/automation/overdue-notices/dispatch", []byte(`{"confirmationToken":"tok"}`))
	withClaims(c, "admin", models.RoleAdmin)
	handler.DispatchNotices(c)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
}
