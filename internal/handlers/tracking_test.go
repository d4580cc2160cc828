package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/models"
	"github.com/ukydev/fleet-tracking/internal/service"
)

// MockTracker is a mock implementation of Tracker
type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Overview(ctx context.Context) (*service.Overview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Overview), args.Error(1)
}

func (m *MockTracker) Report(ctx context.Context, req service.ReportRequest) (*service.ReportResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportResult), args.Error(1)
}

func (m *MockTracker) Snapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportSnapshot), args.Error(1)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTrackingHandler(tracker Tracker) *TrackingHandler {
	h := NewTrackingHandler(tracker, quietLogger())
	h.now = func() time.Time { return fixedNow }
	return h
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTrackingHandler_GPSWox(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Overview", mock.Anything).Return(&service.Overview{
			Vehicles: []models.Vehicle{{ID: "1", Plate: "AB-123", Status: models.StatusActive}},
			Drivers:  []models.DriverSummary{{ID: "7", Name: "Jane"}},
			Debug:    service.Debug{BaseURL: "https://gps.example.com/api", DeviceCount: 1, DriverSource: service.DriverSourceAPI},
		}, nil)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWox(w, httptest.NewRequest(http.MethodGet, "/api/gpswox", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Len(t, body["vehicles"], 1)
		assert.Len(t, body["drivers"], 1)
		assert.Equal(t, "2024-03-01T12:00:00Z", body["timestamp"])
		debug := body["debug"].(map[string]interface{})
		assert.Equal(t, "api", debug["driver_source"])
		tracker.AssertExpectations(t)
	})

	t.Run("POST behaves like GET", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Overview", mock.Anything).Return(&service.Overview{}, nil)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWox(w, httptest.NewRequest(http.MethodPost, "/api/gpswox", bytes.NewBufferString(`{}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["success"])
	})

	t.Run("failure is a 200 envelope", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Overview", mock.Anything).Return(nil, &gpswox.AuthenticationError{Message: "Wrong email or password"})

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWox(w, httptest.NewRequest(http.MethodGet, "/api/gpswox", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "Wrong email or password")
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTrackingHandler(new(MockTracker)).GPSWox(w, httptest.NewRequest(http.MethodDelete, "/api/gpswox", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestTrackingHandler_GPSWoxReports(t *testing.T) {
	report := &models.FleetReport{Summary: models.FleetSummary{Total: 2, Online: 1, Offline: 1}}

	t.Run("query parameters", func(t *testing.T) {
		tracker := new(MockTracker)
		want := service.ReportRequest{Type: service.ReportDailyStats, DateFrom: "2024-03-01", DateTo: "2024-03-02"}
		tracker.On("Report", mock.Anything, want).Return(&service.ReportResult{
			Type:       service.ReportDailyStats,
			Report:     report,
			DailyStats: models.DailyStats{"2024-03-01": {"1": {Distance: 10, Fuel: 1}}},
			DateFrom:   "2024-03-01 00:00:00",
			DateTo:     "2024-03-02 23:59:59",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/gpswox-reports?type=daily_stats&date_from=2024-03-01&date_to=2024-03-02", nil)
		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWoxReports(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "daily_stats", body["report_type"])
		assert.Equal(t, "2024-03-01 00:00:00", body["date_from"])
		reports := body["reports"].(map[string]interface{})
		assert.Equal(t, float64(2), reports["summary"].(map[string]interface{})["total"])
		assert.Nil(t, body["history"])
		assert.Contains(t, body["daily_stats"], "2024-03-01")
		tracker.AssertExpectations(t)
	})

	t.Run("JSON body", func(t *testing.T) {
		tracker := new(MockTracker)
		want := service.ReportRequest{Type: service.ReportHistory, DeviceID: "42", DateFrom: "2024-03-01", DateTo: "2024-03-01"}
		tracker.On("Report", mock.Anything, want).Return(&service.ReportResult{
			Type:    service.ReportHistory,
			Report:  report,
			History: &models.DeviceHistory{DeviceID: "42", Points: []models.HistoryPoint{}},
		}, nil)

		body := `{"type":"history","device_id":" 42 ","date_from":"2024-03-01","date_to":"2024-03-01"}`
		req := httptest.NewRequest(http.MethodPost, "/api/gpswox-reports?type=summary", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWoxReports(w, req)

		resp := decodeBody(t, w)
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "42", resp["history"].(map[string]interface{})["device_id"])
		tracker.AssertExpectations(t)
	})

	t.Run("default type", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Report", mock.Anything, service.ReportRequest{}).Return(&service.ReportResult{
			Type: service.ReportSummary, Report: report,
		}, nil)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWoxReports(w, httptest.NewRequest(http.MethodPost, "/api/gpswox-reports", nil))

		assert.Equal(t, "summary", decodeBody(t, w)["report_type"])
	})

	t.Run("validation error is a 200 envelope", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Report", mock.Anything, mock.Anything).Return(nil, service.ErrDeviceIDRequired)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWoxReports(w, httptest.NewRequest(http.MethodGet, "/api/gpswox-reports?type=history", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, service.ErrDeviceIDRequired.Error(), body["error"])
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		tracker := new(MockTracker)
		w := httptest.NewRecorder()
		newTrackingHandler(tracker).GPSWoxReports(w, httptest.NewRequest(http.MethodPost, "/api/gpswox-reports", bytes.NewBufferString("{")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["success"])
		tracker.AssertNotCalled(t, "Report", mock.Anything, mock.Anything)
	})
}

func TestTrackingHandler_Snapshots(t *testing.T) {
	t.Run("with limit", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Snapshots", mock.Anything, int64(5)).Return([]models.ReportSnapshot{{ReportType: "summary"}}, nil)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).Snapshots(w, httptest.NewRequest(http.MethodGet, "/api/reports/snapshots?limit=5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["count"])
		tracker.AssertExpectations(t)
	})

	t.Run("default limit", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Snapshots", mock.Anything, int64(0)).Return([]models.ReportSnapshot{}, nil)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).Snapshots(w, httptest.NewRequest(http.MethodGet, "/api/reports/snapshots", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTrackingHandler(new(MockTracker)).Snapshots(w, httptest.NewRequest(http.MethodGet, "/api/reports/snapshots?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Snapshots", mock.Anything, int64(0)).Return(nil, service.ErrSnapshotsDisabled)

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).Snapshots(w, httptest.NewRequest(http.MethodGet, "/api/reports/snapshots", nil))
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})

	t.Run("store error", func(t *testing.T) {
		tracker := new(MockTracker)
		tracker.On("Snapshots", mock.Anything, int64(0)).Return(nil, errors.New("mongo down"))

		w := httptest.NewRecorder()
		newTrackingHandler(tracker).Snapshots(w, httptest.NewRequest(http.MethodGet, "/api/reports/snapshots", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTrackingHandler_Health(t *testing.T) {
	w := httptest.NewRecorder()
	newTrackingHandler(new(MockTracker)).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}
