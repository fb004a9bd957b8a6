package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

type scheduleGeneratorMock struct {
	generateCalled bool
	childID        string
	scheduleID     string
	generateResp   *dto.GenerateScheduleResponse
	activeResp     *dto.ActiveScheduleResponse
	err            error
}

func (m *scheduleGeneratorMock) Generate(ctx context.Context, childID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.generateCalled = true
	m.childID = childID
	return m.generateResp, m.err
}

func (m *scheduleGeneratorMock) Active(ctx context.Context, childID, weekStart string) (*dto.ActiveScheduleResponse, error) {
	return m.activeResp, m.err
}

func (m *scheduleGeneratorMock) Items(ctx context.Context, scheduleID string) (*dto.ActiveScheduleResponse, error) {
	m.scheduleID = scheduleID
	return m.activeResp, m.err
}

type scheduleExporterMock struct {
	resp *dto.ExportScheduleResponse
	err  error
}

func (m *scheduleExporterMock) Export(ctx context.Context, childID, weekStart, format string) (*dto.ExportScheduleResponse, error) {
	return m.resp, m.err
}

func (m *scheduleExporterMock) Open(token string) (*os.File, error) {
	return nil, m.err
}

func scheduleTestContext(t *testing.T, method, target string, body []byte, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	return c, w
}

func TestScheduleHandlerGenerate(t *testing.T) {
	mockSvc := &scheduleGeneratorMock{generateResp: &dto.GenerateScheduleResponse{
		Schedule: models.Schedule{ID: "sched-1", Version: 1},
	}}
	handler := &ScheduleHandler{generator: mockSvc}
	c, w := scheduleTestContext(t, http.MethodPost, "/children/child-1/schedule/generate",
		[]byte(`{"weekStart":"2026-03-02"}`), gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, mockSvc.generateCalled)
	require.Equal(t, "child-1", mockSvc.childID)
}

func TestScheduleHandlerGenerateBadPayload(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{}}
	c, w := scheduleTestContext(t, http.MethodPost, "/children/child-1/schedule/generate",
		[]byte(`{`), gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerGenerateRace(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{err: appErrors.ErrRegenerationRace}}
	c, w := scheduleTestContext(t, http.MethodPost, "/children/child-1/schedule/generate",
		[]byte(`{"weekStart":"2026-03-02"}`), gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Generate(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestScheduleHandlerActive(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{activeResp: &dto.ActiveScheduleResponse{
		Schedule: models.Schedule{ID: "sched-1"},
	}}}
	c, w := scheduleTestContext(t, http.MethodGet, "/children/child-1/schedule/active?weekStart=2026-03-02",
		nil, gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Active(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestScheduleHandlerActiveRequiresWeekStart(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{}}
	c, w := scheduleTestContext(t, http.MethodGet, "/children/child-1/schedule/active",
		nil, gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Active(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerActiveNotFound(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{err: appErrors.ErrNotFound}}
	c, w := scheduleTestContext(t, http.MethodGet, "/children/child-1/schedule/active?weekStart=2026-03-02",
		nil, gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Active(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerItems(t *testing.T) {
	mockSvc := &scheduleGeneratorMock{activeResp: &dto.ActiveScheduleResponse{
		Schedule: models.Schedule{ID: "sched-1", Version: 2},
		Items:    []models.ScheduleItem{{ID: "item-1", Day: 1}},
	}}
	handler := &ScheduleHandler{generator: mockSvc}
	c, w := scheduleTestContext(t, http.MethodGet, "/schedules/sched-1/items",
		nil, gin.Params{{Key: "id", Value: "sched-1"}})

	handler.Items(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sched-1", mockSvc.scheduleID)
}

func TestScheduleHandlerItemsNotFound(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{err: appErrors.ErrNotFound}}
	c, w := scheduleTestContext(t, http.MethodGet, "/schedules/missing/items",
		nil, gin.Params{{Key: "id", Value: "missing"}})

	handler.Items(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerExportDisabled(t *testing.T) {
	handler := &ScheduleHandler{generator: &scheduleGeneratorMock{}}
	c, w := scheduleTestContext(t, http.MethodGet, "/children/child-1/schedule/export?weekStart=2026-03-02&format=csv",
		nil, gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Export(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestScheduleHandlerExport(t *testing.T) {
	handler := &ScheduleHandler{
		generator: &scheduleGeneratorMock{},
		exporter:  &scheduleExporterMock{resp: &dto.ExportScheduleResponse{Token: "tok", Format: "csv"}},
	}
	c, w := scheduleTestContext(t, http.MethodGet, "/children/child-1/schedule/export?weekStart=2026-03-02&format=csv",
		nil, gin.Params{{Key: "childId", Value: "child-1"}})

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
}
