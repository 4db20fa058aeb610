package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/relabs-tech/uav_simulator/internal/command"
	"github.com/relabs-tech/uav_simulator/internal/config"
	"github.com/relabs-tech/uav_simulator/internal/transport"
)

// Control actions accepted by uav_ctl.
const (
	ActionStart     = "start"
	ActionInterrupt = "interrupt"
)

// BuildCommand encodes the payload for action. routeJSON is an array of
// [lat, lng] pairs and is only used by "start".
func BuildCommand(action, missionCode, routeJSON string) ([]byte, error) {
	switch action {
	case ActionStart:
		var pairs [][]float64
		if err := json.Unmarshal([]byte(routeJSON), &pairs); err != nil {
			return nil, fmt.Errorf("invalid route %q: %w", routeJSON, err)
		}
		m := command.Message{Route: pairs}
		route, err := m.Waypoints()
		if err != nil {
			return nil, err
		}
		return command.NewMissionStart(missionCode, route)
	case ActionInterrupt:
		return command.NewInterrupt()
	default:
		return nil, fmt.Errorf("unknown action %q (want %s or %s)", action, ActionStart, ActionInterrupt)
	}
}

// SendCommand publishes payload on the vehicle's command topic.
func SendCommand(tr transport.Transport, prefix, vehicleID string, payload []byte) error {
	topic := transport.CommandTopic(prefix, vehicleID)
	if err := tr.Publish(topic, payload); err != nil {
		return fmt.Errorf("send command to %s: %w", topic, err)
	}
	log.Printf("ctl: sent %s to %s", payload, topic)
	return nil
}

// RunControl sends a single command to one vehicle and disconnects.
func RunControl(cfg *config.Config, vehicleID, action, missionCode, routeJSON string) error {
	payload, err := BuildCommand(action, missionCode, routeJSON)
	if err != nil {
		return err
	}

	tr := transport.NewMQTT(transport.MQTTOptions{
		Broker:         cfg.MQTTBroker,
		ClientID:       cfg.ToolClientID("ctl-"+vehicleID, "uav-command-"+vehicleID),
		Username:       cfg.MQTTUsername,
		Password:       cfg.MQTTPassword,
		KeepAlive:      cfg.KeepAlive(),
		ConnectTimeout: cfg.ConnectTimeout(),
		QoS:            cfg.CommandQoS,
	})
	if err := tr.Connect(); err != nil {
		return err
	}
	defer tr.Close()

	if err := transport.WaitReady(context.Background(), tr, cfg.ConnectTimeout(), readyPollInterval); err != nil {
		return err
	}
	return SendCommand(tr, cfg.TopicPrefix, vehicleID, payload)
}
