package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportSnapshot is a stored copy of a report response.
type ReportSnapshot struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportType string             `json:"report_type" bson:"report_type"`
	BaseURL    string             `json:"base_url" bson:"base_url"`
	DeviceID   string             `json:"device_id,omitempty" bson:"device_id,omitempty"`
	Report     *FleetReport       `json:"report,omitempty" bson:"report,omitempty"`
	DailyStats DailyStats         `json:"daily_stats,omitempty" bson:"daily_stats,omitempty"`
	DateFrom   string             `json:"date_from,omitempty" bson:"date_from,omitempty"`
	DateTo     string             `json:"date_to,omitempty" bson:"date_to,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
