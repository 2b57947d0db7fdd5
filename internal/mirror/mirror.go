// Package mirror republishes the latest frame to an MQTT broker so that
// other services can consume the pose stream without registering as a client.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/handstream/internal/relay"
)

// DefaultTopic is the topic frames are published to.
const DefaultTopic = "handstream/pose"

// publishTimeout bounds the wait for a publish acknowledgement.
const publishTimeout = time.Second

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// ClientConfig holds MQTT connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client is a Publisher backed by a paho MQTT connection.
type Client struct {
	client mqtt.Client
}

// Connect opens the broker connection.
func Connect(config ClientConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("Mirror: connection established")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Mirror: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	log.Println("Mirror: connected to broker:", config.Broker)
	return &Client{client: client}, nil
}

// Publish sends payload with QoS 0, not retained.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timed out")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("Mirror: disconnected")
}

// Mirror follows the frame slot and publishes each new frame.
type Mirror struct {
	pub      Publisher
	slot     *relay.Slot
	topic    string
	interval time.Duration
}

// New creates a Mirror publishing frames from slot to topic.
func New(pub Publisher, slot *relay.Slot, topic string, interval time.Duration) *Mirror {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Mirror{
		pub:      pub,
		slot:     slot,
		topic:    topic,
		interval: interval,
	}
}

// Run publishes until ctx is done. A failed publish is logged and the frame
// dropped; the next frame is tried as usual.
func (m *Mirror) Run(ctx context.Context) {
	log.Printf("Mirror: publishing frames to %s", m.topic)
	relay.Follow(ctx, m.slot, m.interval, nil, func(frame string) error {
		if err := m.pub.Publish(m.topic, []byte(frame)); err != nil {
			log.Printf("Mirror: publish failed: %v", err)
		}
		return nil
	})
	log.Println("Mirror: stopped")
}
