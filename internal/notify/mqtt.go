package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/panel-sentinel/internal/config"
	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in milliseconds.
const disconnectQuiesce = 250

// publisher is the part of mqtt.Client used by MQTTSender.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTSender publishes alerts as JSON to an MQTT topic.
type MQTTSender struct {
	client  publisher
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTSender wraps an already connected client.
// A positive timeout bounds every publish, including while the client reconnects.
func NewMQTTSender(client publisher, topic string, qos byte, timeout time.Duration) *MQTTSender {
	return &MQTTSender{
		client:  client,
		topic:   topic,
		qos:     qos,
		timeout: timeout,
	}
}

// ConnectMQTT connects to the configured broker with auto-reconnect.
//
//nolint:ireturn // paho exposes the client only as an interface.
func ConnectMQTT(cfg *config.MQTTConfig, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out after %s", cfg.Broker, timeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	return client, nil
}

// DisconnectMQTT closes the client gracefully.
func DisconnectMQTT(client mqtt.Client) {
	client.Disconnect(disconnectQuiesce)
}

// SendDisarmedAlert implements Sender.
func (s *MQTTSender) SendDisarmedAlert(ctx context.Context, alert panel.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	token := s.client.Publish(s.topic, s.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", s.topic, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}

	return nil
}
