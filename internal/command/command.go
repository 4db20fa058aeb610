// Package command decodes mission-control messages and applies them to the
// shared vehicle state.
package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

const (
	TypeMissionStart = "mission.start"
	TypeInterrupt    = "interrupt"

	// MinRoutePoints is the shortest route a mission may carry.
	MinRoutePoints = 2
)

var (
	ErrRouteTooShort  = errors.New("route too short")
	ErrBadWaypoint    = errors.New("waypoint is not a [lat, lng] pair")
	ErrMissingMission = errors.New("missing missionCode/missionId")
	ErrUnknownType    = errors.New("unknown command type")
	ErrMissingType    = errors.New("missing command type")
)

// Message is the wire schema shared by every command on uav/{id}/command.
type Message struct {
	Type        string      `json:"type"`
	MissionCode string      `json:"missionCode,omitempty"`
	MissionID   string      `json:"missionId,omitempty"`
	Route       [][]float64 `json:"route,omitempty"`
}

// Mission returns the mission identifier, preferring missionCode.
func (m Message) Mission() string {
	if m.MissionCode != "" {
		return m.MissionCode
	}
	return m.MissionID
}

// Waypoints validates Route and converts it to positions.
func (m Message) Waypoints() ([]vehicle.Position, error) {
	if len(m.Route) < MinRoutePoints {
		return nil, fmt.Errorf("%w: %d points, need %d", ErrRouteTooShort, len(m.Route), MinRoutePoints)
	}
	route := make([]vehicle.Position, 0, len(m.Route))
	for i, p := range m.Route {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: point %d has %d values", ErrBadWaypoint, i, len(p))
		}
		route = append(route, vehicle.Position{Lat: p[0], Lng: p[1]})
	}
	return route, nil
}

// Decode parses a raw command payload.
func Decode(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("decode command: %w", err)
	}
	return m, nil
}

// NewMissionStart encodes a mission.start command.
func NewMissionStart(missionCode string, route []vehicle.Position) ([]byte, error) {
	m := Message{Type: TypeMissionStart, MissionCode: missionCode}
	for _, p := range route {
		m.Route = append(m.Route, []float64{p.Lat, p.Lng})
	}
	if _, err := m.Waypoints(); err != nil {
		return nil, err
	}
	if m.Mission() == "" {
		return nil, ErrMissingMission
	}
	return json.Marshal(m)
}

// NewInterrupt encodes an interrupt command.
func NewInterrupt() ([]byte, error) {
	return json.Marshal(Message{Type: TypeInterrupt})
}
