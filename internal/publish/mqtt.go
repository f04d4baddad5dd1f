// Package publish forwards acquired measurements to an MQTT broker, one
// JSON message per measurement on <prefix>/<run>/<regime>.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/vxpsim/internal/rotor"
)

const defaultTimeout = 5 * time.Second

var ErrTimeout = errors.New("publish: timed out waiting for broker")

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Config struct {
	Broker   string
	ClientID string
	Prefix   string
	Retain   bool
	Timeout  time.Duration
}

type Message struct {
	Run         int               `json:"run"`
	Time        time.Time         `json:"time"`
	Measurement rotor.Measurement `json:"measurement"`
}

// Publisher is a session observer.
type Publisher struct {
	client  Client
	prefix  string
	retain  bool
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	sent int
	err  error
}

func New(client Client, cfg Config) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Publisher{
		client:  client,
		prefix:  cfg.Prefix,
		retain:  cfg.Retain,
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

// Connect dials the broker and returns a publisher plus a function that
// disconnects it.
func Connect(cfg Config) (*Publisher, func(), error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("publish: connect %s: %w", cfg.Broker, token.Error())
	}
	return New(client, cfg), func() { client.Disconnect(250) }, nil
}

func Topic(prefix string, run int, r rotor.Regime) string {
	if prefix == "" {
		return fmt.Sprintf("%d/%s", run, r)
	}
	return fmt.Sprintf("%s/%d/%s", prefix, run, r)
}

func (p *Publisher) OnAcquire(run int, m rotor.Measurement) {
	if err := p.Publish(run, m); err != nil {
		p.mu.Lock()
		p.err = errors.Join(p.err, err)
		p.mu.Unlock()
	}
}

func (p *Publisher) Publish(run int, m rotor.Measurement) error {
	payload, err := json.Marshal(Message{Run: run, Time: p.now(), Measurement: m})
	if err != nil {
		return err
	}

	topic := Topic(p.prefix, run, m.Regime)
	token := p.client.Publish(topic, 0, p.retain, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()
	return nil
}

func (p *Publisher) Sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Err returns every error seen by OnAcquire, joined.
func (p *Publisher) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
