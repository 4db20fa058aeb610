package transport

import (
	"slices"
	"sync"
)

// Message is one publish recorded by Memory.
type Message struct {
	Topic   string
	Payload []byte
}

// Memory is an in-process Transport. Publishes are delivered synchronously to
// every matching subscriber and recorded for inspection.
type Memory struct {
	mu        sync.Mutex
	ready     bool
	subs      []memorySub
	published []Message

	// FailPublish, when set, makes Publish return it without delivering.
	FailPublish error
}

type memorySub struct {
	filter string
	h      Handler
}

// NewMemory returns a bus that is already ready.
func NewMemory() *Memory {
	return &Memory{ready: true}
}

func (m *Memory) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	if m.FailPublish != nil {
		err := m.FailPublish
		m.mu.Unlock()
		return err
	}
	if !m.ready {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.published = append(m.published, Message{Topic: topic, Payload: slices.Clone(payload)})
	var targets []Handler
	for _, s := range m.subs {
		if Match(s.filter, topic) {
			targets = append(targets, s.h)
		}
	}
	m.mu.Unlock()

	for _, h := range targets {
		h(topic, payload)
	}
	return nil
}

func (m *Memory) Subscribe(filter string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, memorySub{filter: filter, h: h})
	return nil
}

func (m *Memory) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// SetReady flips the simulated connection state.
func (m *Memory) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

func (m *Memory) Close() { m.SetReady(false) }

// Published returns every message published so far, optionally limited to
// topics matching filter ("" means all).
func (m *Memory) Published(filter string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.published {
		if filter == "" || Match(filter, msg.Topic) {
			out = append(out, msg)
		}
	}
	return out
}
