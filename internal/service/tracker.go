package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracking/internal/db"
	"github.com/ukydev/fleet-tracking/internal/fleet"
	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryBatchSize caps concurrent history fetches.
const DefaultHistoryBatchSize = 5

// Provider is the subset of the GPS provider client the tracker needs.
type Provider interface {
	Login(ctx context.Context, baseURL, email, password string) (string, error)
	GetDevices(ctx context.Context, baseURL, token string) ([]gpswox.RawDevice, error)
	GetDrivers(ctx context.Context, baseURL, token string) (gpswox.DriverResult, error)
	GetHistory(ctx context.Context, baseURL, token, deviceID string, from, to time.Time) (gpswox.HistoryResult, error)
}

// SnapshotStore persists report snapshots.
type SnapshotStore interface {
	db.SnapshotStore
}

// Publisher pushes report results to subscribers.
type Publisher interface {
	PublishReport(ctx context.Context, reportType string, report *models.FleetReport) error
}

// Config holds the provider account and report tuning.
type Config struct {
	BaseURL          string
	Email            string
	Password         string
	HistoryBatchSize int
	Thresholds       fleet.Thresholds
}

// Tracker orchestrates provider calls into vehicle lists and reports.
type Tracker struct {
	provider  Provider
	cfg       Config
	snapshots SnapshotStore
	publisher Publisher
	now       func() time.Time
	logger    log.FieldLogger
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithSnapshotStore enables snapshot persistence.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(t *Tracker) { t.snapshots = store }
}

// WithPublisher enables report publication.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker.
func NewTracker(provider Provider, cfg Config, logger log.FieldLogger, opts ...Option) *Tracker {
	if cfg.HistoryBatchSize <= 0 {
		cfg.HistoryBatchSize = DefaultHistoryBatchSize
	}
	if cfg.Thresholds == (fleet.Thresholds{}) {
		cfg.Thresholds = fleet.DefaultThresholds
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	t := &Tracker{
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Session is an authenticated base URL.
type Session struct {
	BaseURL          string
	Token            string
	ProtocolFallback bool
}

// Authenticate logs in, retrying once over plain http when an https base
// URL fails. The scheme that worked is used for the rest of the request.
func (t *Tracker) Authenticate(ctx context.Context) (Session, error) {
	base, err := gpswox.NormalizeBaseURL(t.cfg.BaseURL)
	if err != nil {
		return Session{}, err
	}

	token, err := t.provider.Login(ctx, base, t.cfg.Email, t.cfg.Password)
	if err == nil {
		return Session{BaseURL: base, Token: token}, nil
	}
	if errors.Is(err, gpswox.ErrMissingCredentials) {
		return Session{}, err
	}

	alt, ok := gpswox.HTTPFallback(base)
	if !ok {
		return Session{}, err
	}
	t.logger.WithError(err).WithField("base_url", alt).Warn("HTTPS login failed, retrying over HTTP")

	token, altErr := t.provider.Login(ctx, alt, t.cfg.Email, t.cfg.Password)
	if altErr != nil {
		return Session{}, errors.Join(err, altErr)
	}
	return Session{BaseURL: alt, Token: token, ProtocolFallback: true}, nil
}

// Debug describes how an overview was assembled.
type Debug struct {
	BaseURL          string `json:"base_url"`
	ProtocolFallback bool   `json:"protocol_fallback"`
	DeviceCount      int    `json:"device_count"`
	DriverCount      int    `json:"driver_count"`
	DriverSource     string `json:"driver_source"`
	DriverEndpoint   string `json:"driver_endpoint,omitempty"`
	DriverError      string `json:"driver_error,omitempty"`
}

// Driver list sources.
const (
	DriverSourceAPI     = "api"
	DriverSourceDevices = "devices"
	DriverSourceNone    = "none"
)

// Overview is the vehicle list with resolved drivers.
type Overview struct {
	Vehicles []models.Vehicle
	Drivers  []models.DriverSummary
	Debug    Debug
}

// Overview fetches devices and drivers concurrently. A driver failure only
// degrades driver resolution; a device failure fails the call.
func (t *Tracker) Overview(ctx context.Context) (*Overview, error) {
	session, err := t.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	ov, _, err := t.overview(ctx, session)
	return ov, err
}

// overview returns the session it finished with, which differs from the
// given one after a re-authentication.
func (t *Tracker) overview(ctx context.Context, session Session) (*Overview, Session, error) {
	var (
		devices   []gpswox.RawDevice
		driverRes gpswox.DriverResult
		driverErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		devices, err = t.provider.GetDevices(gctx, session.BaseURL, session.Token)
		return err
	})
	g.Go(func() error {
		driverRes, driverErr = t.provider.GetDrivers(gctx, session.BaseURL, session.Token)
		return nil
	})
	err := g.Wait()

	if gpswox.IsAuthError(err) {
		// stale token: the client evicted it, log in again once
		t.logger.WithError(err).Info("Session rejected, re-authenticating")
		session, err = t.Authenticate(ctx)
		if err != nil {
			return nil, session, err
		}
		devices, err = t.provider.GetDevices(ctx, session.BaseURL, session.Token)
		if driverErr != nil || len(driverRes.Drivers) == 0 {
			driverRes, driverErr = t.provider.GetDrivers(ctx, session.BaseURL, session.Token)
		}
	}
	if err != nil {
		return nil, session, fmt.Errorf("fetch devices: %w", err)
	}

	debug := Debug{
		BaseURL:          session.BaseURL,
		ProtocolFallback: session.ProtocolFallback,
		DeviceCount:      len(devices),
		DriverEndpoint:   driverRes.Endpoint,
	}
	if driverErr != nil {
		t.logger.WithError(driverErr).Warn("Driver fetch failed, continuing without driver list")
		debug.DriverError = driverErr.Error()
	}

	drivers := fleet.DriversFromRaw(driverRes.Drivers)
	debug.DriverSource = DriverSourceAPI
	if len(drivers) == 0 {
		drivers = fleet.SynthesizeDrivers(devices)
		debug.DriverSource = DriverSourceDevices
		if len(drivers) == 0 {
			debug.DriverSource = DriverSourceNone
		}
	}
	debug.DriverCount = len(drivers)

	vehicles := fleet.NormalizeAll(devices, fleet.NewCorrelator(drivers))

	t.logger.WithFields(log.Fields{
		"vehicles":      len(vehicles),
		"drivers":       len(drivers),
		"driver_source": debug.DriverSource,
	}).Debug("Fleet overview assembled")

	return &Overview{Vehicles: vehicles, Drivers: drivers, Debug: debug}, session, nil
}

// ReportType selects what a report request computes.
type ReportType string

const (
	ReportSummary    ReportType = "summary"
	ReportHistory    ReportType = "history"
	ReportDailyStats ReportType = "daily_stats"
)

// ReportRequest are the report parameters as received from callers.
type ReportRequest struct {
	Type     ReportType
	DeviceID string
	DateFrom string
	DateTo   string
}

// ReportResult is the computed report.
type ReportResult struct {
	Type       ReportType
	Report     *models.FleetReport
	History    *models.DeviceHistory
	DailyStats models.DailyStats
	DateFrom   string
	DateTo     string
	Debug      Debug
}

// Validate checks the parameters and normalizes the date range.
func (r ReportRequest) Validate() (ReportType, *DateRange, error) {
	typ := r.Type
	if typ == "" {
		typ = ReportSummary
	}
	switch typ {
	case ReportSummary:
		return typ, nil, nil
	case ReportHistory:
		if r.DeviceID == "" {
			return typ, nil, ErrDeviceIDRequired
		}
	case ReportDailyStats:
	default:
		return typ, nil, fmt.Errorf("%w: %q", ErrUnknownReportType, typ)
	}
	dr, err := NormalizeDateRange(r.DateFrom, r.DateTo)
	if err != nil {
		return typ, nil, err
	}
	return typ, &dr, nil
}

// Report computes the fleet report and, depending on the type, one
// device's history or the fleet's daily statistics.
func (t *Tracker) Report(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	typ, dr, err := req.Validate()
	if err != nil {
		return nil, err
	}

	session, err := t.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	ov, session, err := t.overview(ctx, session)
	if err != nil {
		return nil, err
	}

	report := fleet.BuildReport(ov.Vehicles, t.now(), t.cfg.Thresholds)
	result := &ReportResult{Type: typ, Report: &report, Debug: ov.Debug}
	if dr != nil {
		result.DateFrom, result.DateTo = dr.FromText, dr.ToText
	}

	switch typ {
	case ReportHistory:
		h, err := t.history(ctx, session, req.DeviceID, *dr)
		if err != nil {
			return nil, err
		}
		result.History = h
	case ReportDailyStats:
		ids := make([]string, 0, len(ov.Vehicles))
		for _, v := range ov.Vehicles {
			if v.ID != "" {
				ids = append(ids, v.ID)
			}
		}
		stats, err := t.dailyStats(ctx, session, ids, *dr)
		if err != nil {
			return nil, err
		}
		result.DailyStats = stats
	}

	t.record(ctx, session.BaseURL, result)
	return result, nil
}

func (t *Tracker) history(ctx context.Context, session Session, deviceID string, dr DateRange) (*models.DeviceHistory, error) {
	res, err := t.provider.GetHistory(ctx, session.BaseURL, session.Token, deviceID, dr.From, dr.To)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	points := fleet.NormalizeHistory(res.Samples)
	return &models.DeviceHistory{
		DeviceID: deviceID,
		DateFrom: dr.FromText,
		DateTo:   dr.ToText,
		Source:   res.Endpoint,
		Points:   points,
		Stats:    fleet.ReduceHistory(deviceID, points),
	}, nil
}

// dailyStats fetches histories in sequential batches; devices inside one
// batch are fetched concurrently. A failing device is logged and skipped.
func (t *Tracker) dailyStats(ctx context.Context, session Session, ids []string, dr DateRange) (models.DailyStats, error) {
	stats := models.DailyStats{}
	batch := t.cfg.HistoryBatchSize

	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		results := make([]models.DailyStats, len(chunk))

		var g errgroup.Group
		for i, id := range chunk {
			i, id := i, id
			g.Go(func() error {
				res, err := t.provider.GetHistory(ctx, session.BaseURL, session.Token, id, dr.From, dr.To)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					t.logger.WithError(err).WithField("device_id", id).Warn("History fetch failed")
					return nil
				}
				results[i] = fleet.ReduceHistory(id, fleet.NormalizeHistory(res.Samples))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, r := range results {
			stats.Merge(r)
		}
	}
	return stats, nil
}

// record stores and publishes a report. Failures never fail the request.
func (t *Tracker) record(ctx context.Context, baseURL string, result *ReportResult) {
	if t.snapshots != nil {
		snap := &models.ReportSnapshot{
			ReportType: string(result.Type),
			BaseURL:    baseURL,
			Report:     result.Report,
			DailyStats: result.DailyStats,
			DateFrom:   result.DateFrom,
			DateTo:     result.DateTo,
			CreatedAt:  t.now().UTC(),
		}
		if result.History != nil {
			snap.DeviceID = result.History.DeviceID
		}
		if err := t.snapshots.InsertSnapshot(ctx, snap); err != nil {
			t.logger.WithError(err).Error("Failed to store report snapshot")
		}
	}
	if t.publisher != nil {
		if err := t.publisher.PublishReport(ctx, string(result.Type), result.Report); err != nil {
			t.logger.WithError(err).Error("Failed to publish report")
		}
	}
}

// Snapshots lists the most recent stored reports.
func (t *Tracker) Snapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error) {
	if t.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return t.snapshots.ListSnapshots(ctx, limit)
}
