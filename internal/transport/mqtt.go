// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures an MQTT connection.
type MQTTOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	// QoS is used for both publishes and subscriptions.
	QoS byte
}

// MQTT is a Transport backed by the Eclipse Paho client.
//
// The connection state is owned here and flipped only by Paho's connect and
// connection-lost callbacks. Subscriptions are remembered and replayed in the
// on-connect handler so they survive automatic reconnects.
type MQTT struct {
	opts   MQTTOptions
	client mqtt.Client

	connected atomic.Bool

	mu   sync.Mutex
	subs map[string]Handler
}

// NewMQTT builds the client without connecting.
func NewMQTT(o MQTTOptions) *MQTT {
	t := &MQTT{opts: o, subs: map[string]Handler{}}

	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetKeepAlive(o.KeepAlive).
		SetConnectTimeout(o.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(t.onConnectionLost)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	t.client = mqtt.NewClient(opts)
	return t
}

// Connect dials the broker and waits at most ConnectTimeout for the CONNACK.
func (t *MQTT) Connect() error {
	token := t.client.Connect()
	if !token.WaitTimeout(t.opts.ConnectTimeout) {
		return fmt.Errorf("%w: broker %s", ErrConnectTimeout, t.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", t.opts.Broker, err)
	}
	return nil
}

func (t *MQTT) onConnect(c mqtt.Client) {
	t.connected.Store(true)
	log.Printf("mqtt: connected to %s as %s", t.opts.Broker, t.opts.ClientID)

	t.mu.Lock()
	defer t.mu.Unlock()
	for filter, h := range t.subs {
		if err := t.subscribe(filter, h); err != nil {
			log.Printf("mqtt: resubscribe %s: %v", filter, err)
		}
	}
}

func (t *MQTT) onConnectionLost(_ mqtt.Client, err error) {
	t.connected.Store(false)
	log.Printf("mqtt: connection lost: %v", err)
}

func (t *MQTT) Ready() bool { return t.connected.Load() }

// Publish sends payload without waiting for delivery beyond the connect
// timeout. Failures are logged here and returned; nothing is retried.
func (t *MQTT) Publish(topic string, payload []byte) error {
	if !t.Ready() {
		log.Printf("mqtt: publish %s: %v", topic, ErrNotConnected)
		return ErrNotConnected
	}
	token := t.client.Publish(topic, t.opts.QoS, false, payload)
	if !token.WaitTimeout(t.opts.ConnectTimeout) {
		log.Printf("mqtt: publish %s: timed out", topic)
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish %s: %v", topic, err)
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers h for filter. If the client is not connected yet the
// subscription is made by the next on-connect callback.
func (t *MQTT) Subscribe(filter string, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[filter] = h
	if !t.Ready() {
		return nil
	}
	return t.subscribe(filter, h)
}

func (t *MQTT) subscribe(filter string, h Handler) error {
	token := t.client.Subscribe(filter, t.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(t.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt subscribe %s: timed out", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", filter, err)
	}
	log.Printf("mqtt: subscribed %s", filter)
	return nil
}

// Close disconnects, giving in-flight work 250ms to finish.
func (t *MQTT) Close() {
	t.connected.Store(false)
	t.client.Disconnect(250)
}
