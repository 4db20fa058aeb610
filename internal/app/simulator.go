// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/uav_simulator/internal/command"
	"github.com/relabs-tech/uav_simulator/internal/telemetry"
	"github.com/relabs-tech/uav_simulator/internal/transport"
	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

// ErrPublish marks a Tick error that came from the transport. The transport
// has already logged it.
var ErrPublish = errors.New("telemetry publish failed")

// Sink receives every telemetry message after it has been published.
// Sinks run on the tick goroutine, outside the state lock.
type Sink func(msg telemetry.Message, payload []byte)

// SimulatorOptions configures the tick loop.
type SimulatorOptions struct {
	TopicPrefix string
	Interval    time.Duration
	Navigator   vehicle.Navigator
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Simulator owns one vehicle's state and the single mutex that guards it.
// Two actors touch the state: the transport's command callback (through
// commands) and the tick loop (navigation + telemetry snapshot).
type Simulator struct {
	mu       sync.Mutex
	state    *vehicle.State
	nav      vehicle.Navigator
	commands *command.Handler

	tr             transport.Transport
	telemetryTopic string
	commandTopic   string
	interval       time.Duration
	now            func() time.Time

	latest atomic.Pointer[[]byte]
	sinks  []Sink
}

func NewSimulator(state *vehicle.State, tr transport.Transport, opts SimulatorOptions) *Simulator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Simulator{
		state:          state,
		nav:            opts.Navigator,
		tr:             tr,
		telemetryTopic: transport.TelemetryTopic(opts.TopicPrefix, state.ID),
		commandTopic:   transport.CommandTopic(opts.TopicPrefix, state.ID),
		interval:       opts.Interval,
		now:            opts.Clock,
	}
	s.commands = command.NewHandler(&s.mu, state)
	return s
}

// AddSink registers a telemetry observer. Call before Run.
func (s *Simulator) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Commands exposes the command handler for intake paths other than the
// transport subscription.
func (s *Simulator) Commands() *command.Handler { return s.commands }

// TelemetryTopic is where Tick publishes.
func (s *Simulator) TelemetryTopic() string { return s.telemetryTopic }

// CommandTopic is where Run listens for commands.
func (s *Simulator) CommandTopic() string { return s.commandTopic }

// State returns a copy of the vehicle state taken under the lock.
func (s *Simulator) State() *vehicle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Latest returns the most recently published telemetry payload.
func (s *Simulator) Latest() ([]byte, bool) {
	p := s.latest.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Tick runs one cycle: arrival check, navigation, and snapshot under the
// lock, then encode and publish after releasing it so a slow broker never
// blocks command intake. A publish error is returned wrapped in ErrPublish
// and has no effect on the simulation.
func (s *Simulator) Tick() (telemetry.Message, error) {
	now := s.now()

	s.mu.Lock()
	before := s.state.Mission
	settled := s.nav.Advance(s.state)
	after := s.state.Mission
	msg := telemetry.Snapshot(s.state, now)
	s.mu.Unlock()

	if settled {
		log.Printf("sim: %s arrived home, mission closed", msg.UAVCode)
	} else if before != after {
		log.Printf("sim: %s %s -> %s", msg.UAVCode, before, after)
	}

	payload, err := telemetry.Encode(msg)
	if err != nil {
		return msg, err
	}
	s.latest.Store(&payload)

	pubErr := s.tr.Publish(s.telemetryTopic, payload)

	for _, sink := range s.sinks {
		sink(msg, payload)
	}
	if pubErr != nil {
		return msg, fmt.Errorf("%w: %w", ErrPublish, pubErr)
	}
	return msg, nil
}

// Run subscribes to the command topic and ticks every Interval until ctx is
// cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	err := s.tr.Subscribe(s.commandTopic, func(_ string, payload []byte) {
		s.commands.Handle(payload)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.commandTopic, err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Tick(); err != nil && !errors.Is(err, ErrPublish) {
				log.Printf("sim: tick: %v", err)
			}
		}
	}
}
