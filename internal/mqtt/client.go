package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agusx1211/find-the-calm/internal/app"
	"github.com/agusx1211/find-the-calm/internal/config"
	"github.com/agusx1211/find-the-calm/internal/haptics"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Client struct {
	client      mqtt.Client
	topic       string
	session     *app.Session
	commandChan chan<- app.Command
	log         *logrus.Entry
}

var _ haptics.Pulser = (*Client)(nil)

func NewClient(cfg config.MQTTConfig, session *app.Session, cmdChan chan<- app.Command) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID("find-the-calm-" + uuid.NewString())

	if cfg.User != "" {
		opts.SetUsername(cfg.User)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	c := &Client{
		topic:       cfg.Topic,
		session:     session,
		commandChan: cmdChan,
		log: logrus.WithFields(logrus.Fields{
			"component": "mqtt",
			"topic":     cfg.Topic,
		}),
	}

	opts.OnConnect = c.onConnect
	opts.OnConnectionLost = c.onConnectionLost
	opts.SetWill(c.topic+"/availability", "offline", 0, true)

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return c, nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.log.Info("Connected to MQTT broker")

	client.Publish(c.topic+"/availability", 0, true, "online")

	subs := []string{
		c.topic + "/audio/set",
		c.topic + "/master/set",
		c.topic + "/layer/+/+/set",
		c.topic + "/preset/set",
		c.topic + "/breathing/set",
		c.topic + "/affirmation/set",
		c.topic + "/auto_speak/set",
		c.topic + "/haptics/set",
	}
	for _, topic := range subs {
		if token := client.Subscribe(topic, 0, c.handleMessage); token.Wait() && token.Error() != nil {
			c.log.WithFields(logrus.Fields{
				"subscription": topic,
				"error":        token.Error().Error(),
			}).Error("Failed to subscribe")
		}
	}

	c.publishDiscovery()
	c.PublishState()
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.log.WithField("error", err.Error()).Warn("MQTT connection lost")
}

func (c *Client) handleMessage(client mqtt.Client, msg mqtt.Message) {
	cmd, ok := ParseCommand(c.topic, msg.Topic(), msg.Payload())
	if !ok {
		c.log.WithFields(logrus.Fields{
			"message_topic": msg.Topic(),
			"payload":       string(msg.Payload()),
		}).Debug("Ignoring unrecognised message")
		return
	}
	c.sendCommand(cmd)
}

func (c *Client) sendCommand(cmd app.Command) {
	select {
	case c.commandChan <- cmd:
	default:
		c.log.WithField("action", cmd.Action).Warn("Command channel full")
	}
}

func (c *Client) publishDiscovery() {
	list := entities(c.topic, c.session.Layers(), c.session.Exercises())
	for _, e := range list {
		c.publishEntity(e.Domain, e.ID, e.Config)
	}
	c.log.WithField("entities", len(list)).Info("Published MQTT discovery")
}

func (c *Client) publishEntity(domain, entityID string, config map[string]interface{}) {
	data, _ := json.Marshal(config)
	topic := fmt.Sprintf("homeassistant/%s/%s/config", domain, entityID)
	if token := c.client.Publish(topic, 0, true, data); token.Wait() && token.Error() != nil {
		c.log.WithFields(logrus.Fields{
			"entity": entityID,
			"error":  token.Error().Error(),
		}).Error("Failed to publish discovery")
	}
}

func (c *Client) PublishState() {
	data, err := json.Marshal(c.session.Snapshot())
	if err != nil {
		c.log.WithField("error", err.Error()).Error("Failed to marshal state")
		return
	}
	c.client.Publish(c.topic+"/state", 0, true, data)
}

type pulse struct {
	DurationMS int64 `json:"duration_ms"`
}

// Pulse forwards a haptic pulse to whatever device listens on <base>/haptic.
func (c *Client) Pulse(d time.Duration) {
	data, _ := json.Marshal(pulse{DurationMS: d.Milliseconds()})
	c.client.Publish(c.topic+"/haptic", 0, false, data)
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Publish(c.topic+"/availability", 0, true, "offline")
		c.client.Disconnect(250)
	}
}
