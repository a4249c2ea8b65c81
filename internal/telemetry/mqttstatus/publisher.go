// Package mqttstatus is a read-only status egress: it publishes
// arbiter-state transitions and animation FPS to an MQTT broker so a
// fleet dashboard can watch many instances without polling. It never
// subscribes to a command topic — this is status-out only, not the
// excluded remote-control surface.
package mqttstatus

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config configures the MQTT connection and topic layout.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TopicBase string // status is published under TopicBase/<deviceID>/...
	DeviceID  string
}

// StatusMessage is one published status update.
type StatusMessage struct {
	Timestamp    time.Time `json:"timestamp"`
	ArbiterState string    `json:"arbiter_state"`
	FPS          float64   `json:"fps"`
}

// Publisher holds one MQTT client and publishes StatusMessages as
// the core's arbiter and animation controller report them.
type Publisher struct {
	cfg    Config
	client mqtt.Client
	logger *zap.Logger
}

// NewPublisher connects to cfg.BrokerURL and returns a ready Publisher.
// The underlying paho client reconnects with its own backoff
// (AutoReconnect); this wrapper just logs those transitions.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.TopicBase == "" {
		cfg.TopicBase = "ledctrl/status"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(60 * time.Second).
		SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqttstatus: connected", zap.String("broker", cfg.BrokerURL))
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("mqttstatus: connection lost, reconnecting", zap.Error(err))
	}
	opts.OnReconnecting = func(c mqtt.Client, opts *mqtt.ClientOptions) {
		logger.Info("mqttstatus: reconnecting")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqttstatus: connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttstatus: connect: %w", err)
	}

	return &Publisher{cfg: cfg, client: client, logger: logger}, nil
}

// PublishArbiterState publishes a state-transition event, at
// qos 1, retained, so a dashboard subscribing late still sees the
// current state.
func (p *Publisher) PublishArbiterState(state string) {
	p.publish("arbiter_state", StatusMessage{
		Timestamp:    time.Now(),
		ArbiterState: state,
	})
}

// PublishFPS publishes the animation controller's current observed frame rate.
func (p *Publisher) PublishFPS(fps float64) {
	p.publish("fps", StatusMessage{
		Timestamp: time.Now(),
		FPS:       fps,
	})
}

func (p *Publisher) publish(subtopic string, msg StatusMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("mqttstatus: marshal status message failed", zap.Error(err))
		return
	}

	topic := statusTopic(p.cfg, subtopic)
	token := p.client.Publish(topic, 1, true, data)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.logger.Warn("mqttstatus: publish failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}()
}

// Close disconnects from the broker, waiting up to 250ms to flush in-flight publishes.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func statusTopic(cfg Config, subtopic string) string {
	return fmt.Sprintf("%s/%s/%s", cfg.TopicBase, cfg.DeviceID, subtopic)
}
