package service

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fleet-tracking/internal/db"
	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/models"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Login(ctx context.Context, baseURL, email, password string) (string, error) {
	args := m.Called(ctx, baseURL, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) GetDevices(ctx context.Context, baseURL, token string) ([]gpswox.RawDevice, error) {
	args := m.Called(ctx, baseURL, token)
	devices, _ := args.Get(0).([]gpswox.RawDevice)
	return devices, args.Error(1)
}

func (m *MockProvider) GetDrivers(ctx context.Context, baseURL, token string) (gpswox.DriverResult, error) {
	args := m.Called(ctx, baseURL, token)
	return args.Get(0).(gpswox.DriverResult), args.Error(1)
}

func (m *MockProvider) GetHistory(ctx context.Context, baseURL, token, deviceID string, from, to time.Time) (gpswox.HistoryResult, error) {
	args := m.Called(ctx, baseURL, token, deviceID, from, to)
	return args.Get(0).(gpswox.HistoryResult), args.Error(1)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) InsertSnapshot(ctx context.Context, snapshot *models.ReportSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotStore) ListSnapshots(ctx context.Context, limit int64) ([]models.ReportSnapshot, error) {
	args := m.Called(ctx, limit)
	snaps, _ := args.Get(0).([]models.ReportSnapshot)
	return snaps, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReport(ctx context.Context, reportType string, report *models.FleetReport) error {
	args := m.Called(ctx, reportType, report)
	return args.Error(0)
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

var _ db.SnapshotStore = (*MockSnapshotStore)(nil)
