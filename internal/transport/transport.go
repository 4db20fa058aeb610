// Package transport is the publish/subscribe boundary of the simulator.
// The core only needs Publish, Subscribe, and a readiness check; MQTT is the
// production implementation and Memory is an in-process bus.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrConnectTimeout = errors.New("transport: connect timeout")
	ErrNotConnected   = errors.New("transport: not connected")
)

// Handler receives one inbound message. It is called from the transport's
// own goroutine.
type Handler func(topic string, payload []byte)

// Transport is a topic-based publish/subscribe connection.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(filter string, h Handler) error
	// Ready reports whether the connection is currently up.
	Ready() bool
	Close()
}

// WaitReady polls t every interval until it reports ready, the timeout
// elapses, or ctx is cancelled.
func WaitReady(ctx context.Context, t Transport, timeout, interval time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(interval)
	defer poll.Stop()

	for {
		if t.Ready() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w after %s", ErrConnectTimeout, timeout)
		case <-poll.C:
		}
	}
}

// Topic kinds under {prefix}/{vehicle id}/.
const (
	KindTelemetry = "telemetry"
	KindCommand   = "command"
	KindNMEA      = "nmea"
)

func topic(prefix, id, kind string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + id + "/" + kind
}

func TelemetryTopic(prefix, id string) string { return topic(prefix, id, KindTelemetry) }
func CommandTopic(prefix, id string) string   { return topic(prefix, id, KindCommand) }
func NMEATopic(prefix, id string) string      { return topic(prefix, id, KindNMEA) }

// AllVehicles returns the single-level wildcard filter for kind,
// e.g. "uav/+/telemetry".
func AllVehicles(prefix, kind string) string { return topic(prefix, "+", kind) }

// VehicleFromTopic extracts the vehicle id and kind from a
// {prefix}/{id}/{kind} topic.
func VehicleFromTopic(prefix, t string) (id, kind string, ok bool) {
	rest, found := strings.CutPrefix(t, strings.TrimSuffix(prefix, "/")+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Match reports whether topic t matches an MQTT subscription filter
// ("+" matches one level, a trailing "#" matches the rest).
func Match(filter, t string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(t, "/")
	for i, f := range fl {
		if f == "#" {
			return i == len(fl)-1
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
