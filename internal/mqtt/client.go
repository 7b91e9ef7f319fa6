package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/acazau/gridpilot/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("gridpilot_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:           mqtt.NewClient(opts),
		cfg:              cfg.MQTT,
		stateTopicRegexp: stateTopicExtractor(cfg.MQTT.HostPrefix),
	}
}

type MQTTClient struct {
	client           mqtt.Client
	cfg              config.MQTTConfig
	stateTopicRegexp *regexp.Regexp
}

// StatePayload is the retained state document the host publishes per
// entity under {host_prefix}/state/{entity_id}.
type StatePayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ServiceCall is a host service invocation, published as JSON to
// {host_prefix}/service/{domain}/{service}.
type ServiceCall struct {
	EntityID string         `json:"entity_id,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) hostPrefix() string {
	return c.cfg.HostPrefix
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) HostStateWildcard() string {
	return fmt.Sprintf("%s/state/#", c.hostPrefix())
}

func (c *MQTTClient) ServiceTopic(domain, service string) string {
	return fmt.Sprintf("%s/service/%s/%s", c.hostPrefix(), domain, service)
}

func (c *MQTTClient) LastOptimizationTopic() string {
	return fmt.Sprintf("%s/last_optimization", c.baseTopic())
}

func (c *MQTTClient) HistoryTopic() string {
	return fmt.Sprintf("%s/history", c.baseTopic())
}

func (c *MQTTClient) EventTopic(name string) string {
	return fmt.Sprintf("%s/event/%s", c.baseTopic(), name)
}

// ForecastReplyTopic is where the external heat pump forecaster posts
// its correlated replies.
func (c *MQTTClient) ForecastReplyTopic() string {
	return fmt.Sprintf("%s/forecast/heatpump/reply", c.baseTopic())
}

// ParseStateTopic extracts the entity id from a retained host state
// topic. Returns an error for topics outside the state subtree.
func (c *MQTTClient) ParseStateTopic(topic string) (string, error) {
	matches := c.stateTopicRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 || len(matches[0]) != 2 {
		return "", errors.New("not a host state topic")
	}
	return matches[0][1], nil
}

// ParseStatePayload decodes a host state document. Plain (non JSON)
// payloads are accepted as a bare state string, the host publishes
// simple sensors that way.
func ParseStatePayload(payload []byte) StatePayload {
	var doc StatePayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		return StatePayload{State: string(payload)}
	}
	return doc
}

func (c *MQTTClient) PublishJSON(topic string, value any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		continuation(err)
		return
	}
	c.Publish(topic, payload, qos, retain, continuation, timeout)
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToHostStates(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.HostStateWildcard(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func stateTopicExtractor(hostPrefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/state/([a-zA-Z0-9_.]+)$", hostPrefix))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
