package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/mudra/internal/control"
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URL         string        `yaml:"url"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         byte          `yaml:"qos"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultMQTTConfig publishes under mudra/ with QoS 1.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		URL:         "tcp://localhost:1883",
		ClientID:    "mudra",
		TopicPrefix: "mudra",
		QoS:         1,
		Timeout:     2 * time.Second,
	}
}

// publisher is the part of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes each command as JSON on <prefix>/<device> and keeps the
// retained status line on <prefix>/status up to date.
type MQTTSink struct {
	client  publisher
	conn    mqtt.Client
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTSink connects to the broker. The broker is told to publish OFFLINE
// on the status topic if the connection drops.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	mqtt.ERROR = log.New(os.Stderr, "mqtt: ", log.LstdFlags)

	statusTopic := cfg.TopicPrefix + "/status"
	options := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetWill(statusTopic, "OFFLINE", cfg.QoS, true).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Printf("MQTT connected to %s", cfg.URL)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})

	client := mqtt.NewClient(options)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("%w: mqtt connect to %s timed out", ErrNotConnected, cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	s := newMQTTSink(client, cfg)
	s.conn = client
	return s, nil
}

func newMQTTSink(client publisher, cfg MQTTConfig) *MQTTSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MQTTSink{
		client:  client,
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:     cfg.QoS,
		timeout: timeout,
	}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// CommandTopic returns the topic commands for d are published on.
func (s *MQTTSink) CommandTopic(d control.Device) string {
	return s.prefix + "/" + strings.ToLower(string(d))
}

// StatusTopic returns the retained status topic.
func (s *MQTTSink) StatusTopic() string {
	return s.prefix + "/status"
}

func (s *MQTTSink) Apply(_ context.Context, cmd control.Command, status control.Snapshot) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	if err := s.publish(s.CommandTopic(cmd.Device), false, payload); err != nil {
		return err
	}
	return s.publish(s.StatusTopic(), true, status.StatusLine())
}

func (s *MQTTSink) publish(topic string, retained bool, payload interface{}) error {
	token := s.client.Publish(topic, s.qos, retained, payload)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("publish %s: timed out after %v", topic, s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (s *MQTTSink) Close() error {
	if s.conn != nil {
		s.conn.Disconnect(250)
	}
	return nil
}
