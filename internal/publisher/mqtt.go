package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracking/internal/models"
)

// DefaultTopic is the topic prefix used when none is configured.
const DefaultTopic = "fleet"

// Config holds MQTT connection settings
type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Client is the part of the paho client the publisher uses.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes fleet summaries and overspeed alerts.
type MQTTPublisher struct {
	cfg    Config
	client Client
	logger log.FieldLogger
}

// SummaryMessage is published to {topic}/summary/{report_type}.
type SummaryMessage struct {
	ReportType  string              `json:"report_type"`
	Summary     models.FleetSummary `json:"summary"`
	PublishedAt time.Time           `json:"published_at"`
}

// AlertMessage is published to {topic}/alerts/overspeed once per vehicle.
type AlertMessage struct {
	models.OverspeedEntry
	PublishedAt time.Time `json:"published_at"`
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg Config, logger log.FieldLogger) (*MQTTPublisher, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL is required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("fleet-tracking-%d", time.Now().UnixNano())
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})

	p := NewWithClient(mqtt.NewClient(opts), cfg, logger)
	token := p.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	logger.WithField("broker", cfg.BrokerURL).Info("Connected to MQTT broker")
	return p, nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client Client, cfg Config, logger log.FieldLogger) *MQTTPublisher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	cfg.Topic = strings.TrimRight(cfg.Topic, "/")
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &MQTTPublisher{cfg: cfg, client: client, logger: logger}
}

// PublishReport publishes the summary and one alert per overspeeding vehicle.
func (p *MQTTPublisher) PublishReport(ctx context.Context, reportType string, report *models.FleetReport) error {
	if report == nil {
		return nil
	}
	now := time.Now().UTC()

	summary, err := json.Marshal(SummaryMessage{ReportType: reportType, Summary: report.Summary, PublishedAt: now})
	if err != nil {
		return err
	}
	if err := p.publish(ctx, p.cfg.Topic+"/summary/"+reportType, summary); err != nil {
		return err
	}

	alertTopic := p.cfg.Topic + "/alerts/overspeed"
	for _, entry := range report.Overspeeds {
		payload, err := json.Marshal(AlertMessage{OverspeedEntry: entry, PublishedAt: now})
		if err != nil {
			return err
		}
		if err := p.publish(ctx, alertTopic, payload); err != nil {
			return err
		}
	}

	p.logger.WithFields(log.Fields{
		"report_type": reportType,
		"alerts":      len(report.Overspeeds),
	}).Debug("Report published")
	return nil
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token := p.client.Publish(topic, p.cfg.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.PublishTimeout):
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
	p.logger.Info("MQTT publisher stopped")
}
