package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracking/internal/models"
	"github.com/ukydev/fleet-tracking/internal/service"
)

// Tracker is the service surface used by the tracking endpoints.
type Tracker interface {
	Overview(ctx context.Context) (*service.Overview, error)
	Report(ctx context.Context, req service.ReportRequest) (*service.ReportResult, error)
	Snapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error)
}

// TrackingHandler serves the vehicle and report endpoints.
type TrackingHandler struct {
	tracker Tracker
	logger  log.FieldLogger
	now     func() time.Time
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(tracker Tracker, logger log.FieldLogger) *TrackingHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TrackingHandler{tracker: tracker, logger: logger, now: time.Now}
}

// OverviewResponse is the body of the gpswox endpoint.
type OverviewResponse struct {
	Success   bool                   `json:"success"`
	Vehicles  []models.Vehicle       `json:"vehicles"`
	Drivers   []models.DriverSummary `json:"drivers"`
	Debug     service.Debug          `json:"debug"`
	Timestamp string                 `json:"timestamp"`
}

// ReportResponse is the body of the gpswox-reports endpoint.
type ReportResponse struct {
	Success    bool                  `json:"success"`
	ReportType service.ReportType    `json:"report_type"`
	Reports    *models.FleetReport   `json:"reports"`
	History    *models.DeviceHistory `json:"history"`
	DailyStats models.DailyStats     `json:"daily_stats"`
	DateFrom   string                `json:"date_from,omitempty"`
	DateTo     string                `json:"date_to,omitempty"`
	Debug      service.Debug         `json:"debug"`
	Timestamp  string                `json:"timestamp"`
}

// ErrorResponse is returned with HTTP 200 when a tracking call fails, so
// callers always read the message from the body.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// reportParams are the report fields, from the query string or a JSON body.
type reportParams struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

func (h *TrackingHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

func (h *TrackingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WithError(err).WithField("path", r.URL.Path).Error("Tracking request failed")
	writeJSON(w, http.StatusOK, ErrorResponse{Success: false, Error: err.Error(), Timestamp: h.timestamp()})
}

// GPSWox returns the normalized vehicles and drivers. GET and POST behave
// the same; the endpoint takes no parameters.
func (h *TrackingHandler) GPSWox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ov, err := h.tracker.Overview(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OverviewResponse{
		Success:   true,
		Vehicles:  ov.Vehicles,
		Drivers:   ov.Drivers,
		Debug:     ov.Debug,
		Timestamp: h.timestamp(),
	})
}

// GPSWoxReports computes a fleet report, a device history or daily stats.
func (h *TrackingHandler) GPSWoxReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params, err := readReportParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.tracker.Report(r.Context(), service.ReportRequest{
		Type:     service.ReportType(strings.TrimSpace(params.Type)),
		DeviceID: strings.TrimSpace(params.DeviceID),
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReportResponse{
		Success:    true,
		ReportType: res.Type,
		Reports:    res.Report,
		History:    res.History,
		DailyStats: res.DailyStats,
		DateFrom:   res.DateFrom,
		DateTo:     res.DateTo,
		Debug:      res.Debug,
		Timestamp:  h.timestamp(),
	})
}

func readReportParams(r *http.Request) (reportParams, error) {
	q := r.URL.Query()
	params := reportParams{
		Type:     q.Get("type"),
		DeviceID: q.Get("device_id"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	}
	if r.Method != http.MethodPost {
		return params, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return params, errors.New("failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return params, nil
	}
	var fromBody reportParams
	if err := json.Unmarshal(body, &fromBody); err != nil {
		return params, errors.New("invalid JSON body")
	}
	// body fields win over query fields
	if fromBody.Type != "" {
		params.Type = fromBody.Type
	}
	if fromBody.DeviceID != "" {
		params.DeviceID = fromBody.DeviceID
	}
	if fromBody.DateFrom != "" {
		params.DateFrom = fromBody.DateFrom
	}
	if fromBody.DateTo != "" {
		params.DateTo = fromBody.DateTo
	}
	return params, nil
}

// Snapshots lists stored reports, newest first.
func (h *TrackingHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	snapshots, err := h.tracker.Snapshots(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrSnapshotsDisabled) {
			http.Error(w, err.Error(), http.StatusNotImplemented)
			return
		}
		h.logger.WithError(err).Error("Failed to list snapshots")
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// Health reports liveness.
func (h *TrackingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.timestamp(),
	})
}
