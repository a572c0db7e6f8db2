// Package streambridge publishes trend analysis results to an MQTT
// broker as they are produced, for callers streaming rolling-window or
// regional results to a dashboard. Adapted from the teacher's telemetry
// MQTT publisher (connection lifecycle, reconnect policy, topic
// convention), repurposed to publish Result records instead of
// connectivity samples.
package streambridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/trendcore/mktrend/pkg/logx"
)

// Config holds the MQTT broker connection and topic configuration.
type Config struct {
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	Enabled     bool
}

// DefaultConfig returns a disabled-by-default configuration.
func DefaultConfig() *Config {
	return &Config{
		Broker:      "localhost",
		Port:        1883,
		ClientID:    "mktrend",
		TopicPrefix: "mktrend",
		QoS:         1,
		Retain:      false,
		Enabled:     false,
	}
}

// Bridge publishes Result and WindowResult records to MQTT as a rolling
// or segmented analysis produces them.
type Bridge struct {
	client    MQTT.Client
	logger    *logx.Logger
	config    *Config
	connected bool
	mu        sync.Mutex
}

// New constructs a disconnected Bridge.
func New(cfg *Config, logger *logx.Logger) *Bridge {
	return &Bridge{config: cfg, logger: logger}
}

// Connect establishes the MQTT connection, a no-op if the bridge is
// disabled.
func (b *Bridge) Connect() error {
	if !b.config.Enabled {
		b.logger.Debug("streambridge disabled")
		return nil
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", b.config.Broker, b.config.Port))
	opts.SetClientID(b.config.ClientID)
	if b.config.Username != "" {
		opts.SetUsername(b.config.Username)
		opts.SetPassword(b.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)

	b.client = MQTT.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("streambridge: failed to connect to MQTT broker: %w", token.Error())
	}
	b.logger.Info("streambridge connected", "broker", b.config.Broker, "port", b.config.Port)
	return nil
}

// Disconnect closes the MQTT connection.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil && b.connected {
		b.client.Disconnect(250)
		b.connected = false
		b.logger.Info("streambridge disconnected")
	}
}

func (b *Bridge) onConnect(MQTT.Client) {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	b.logger.Info("streambridge connection established")
}

func (b *Bridge) onConnectionLost(_ MQTT.Client, err error) {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	b.logger.Error("streambridge connection lost", "error", err.Error())
}

// PublishResult publishes one complete trend Result under
// "<prefix>/result/<series>".
func (b *Bridge) PublishResult(seriesName string, result interface{}) error {
	if !b.config.Enabled || !b.connected {
		return nil
	}
	topic := fmt.Sprintf("%s/result/%s", b.config.TopicPrefix, seriesName)
	return b.publishJSON(topic, result)
}

// PublishWindow publishes one rolling-window row under
// "<prefix>/window/<series>", one message per window of a
// rolling_trend_test table.
func (b *Bridge) PublishWindow(seriesName string, window interface{}) error {
	if !b.config.Enabled || !b.connected {
		return nil
	}
	topic := fmt.Sprintf("%s/window/%s", b.config.TopicPrefix, seriesName)
	return b.publishJSON(topic, window)
}

func (b *Bridge) publishJSON(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("streambridge: marshal payload: %w", err)
	}
	token := b.client.Publish(topic, b.config.QoS, b.config.Retain, data)
	token.Wait()
	return token.Error()
}
