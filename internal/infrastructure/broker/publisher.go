package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time
var ErrPublishTimeout = errors.New("publish timeout")

// Config holds the broker connection settings
type Config struct {
	URL      string
	ClientID string
	Username string
	Password string
}

// mqttClient is the part of mqtt.Client the publisher uses
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// DispatchEvent is the message published for every dispatch
type DispatchEvent struct {
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      *domain.DispatchResult `json:"data"`
}

// Publisher publishes dispatch results to an MQTT broker
type Publisher struct {
	client mqttClient
	logger zerolog.Logger
}

// NewPublisher connects to the broker
func NewPublisher(cfg Config, logger zerolog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info().Str("broker", cfg.URL).Msg("Connected to message broker")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("Message broker connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("broker connection timeout")
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
	}

	return &Publisher{client: client, logger: logger}, nil
}

// BuildTopic returns forms/{formId}/{integration}/dispatch/{succeeded|failed}
func BuildTopic(result *domain.DispatchResult) string {
	status := "succeeded"
	if !result.Success {
		status = "failed"
	}
	return fmt.Sprintf("forms/%s/%s/dispatch/%s", result.FormID, result.IntegrationID, status)
}

// OnDispatch publishes the dispatch result
func (p *Publisher) OnDispatch(_ context.Context, result *domain.DispatchResult) error {
	payload, err := json.Marshal(DispatchEvent{
		EventType: "submission.dispatched",
		Timestamp: result.FinishedAt,
		Data:      result,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	topic := BuildTopic(result)
	token := p.client.Publish(topic, publishQoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish: %w", token.Error())
	}

	p.logger.Debug().Str("topic", topic).Str("dispatchId", result.ID).Msg("Published dispatch event")
	return nil
}

// Close closes the broker connection
func (p *Publisher) Close() {
	p.client.Disconnect(1000)
	p.logger.Info().Msg("Disconnected from message broker")
}
