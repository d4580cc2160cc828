package service

import "errors"

var (
	ErrUnknownReportType = errors.New("unknown report type")
	ErrDeviceIDRequired  = errors.New("device_id is required for history reports")
	ErrDateRangeRequired = errors.New("date_from and date_to are required")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS")
	ErrInvalidDateRange  = errors.New("date_from is after date_to")
	ErrSnapshotsDisabled = errors.New("report snapshots are not configured")
)
