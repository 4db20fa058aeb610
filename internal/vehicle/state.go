// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vehicle

import (
	"maps"
	"math"
	"slices"
)

// MissionState is the mission phase reported in telemetry "status".
type MissionState string

const (
	Idle      MissionState = "IDLE"
	Executing MissionState = "EXECUTING"
	Returning MissionState = "RETURNING"
)

const (
	MinBattery = 0.0
	MaxBattery = 100.0
)

// Position is a (latitude, longitude) pair in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// State holds everything the simulator knows about one vehicle.
//
// State has no locking of its own. The owner (app.Simulator) guards every
// read and write with a single mutex and lends the pointer to the command
// handler and the navigator only while holding it.
type State struct {
	ID       string
	Battery  float64
	Position Position
	Home     Position
	Altitude float64

	Mission    MissionState
	MissionID  string // empty when no mission is assigned
	Route      []Position
	RouteIndex int // next unvisited waypoint, 0..len(Route)

	// Sensors maps each sensor key to its drifting baseline.
	Sensors map[string]float64
}

// NewState creates an idle vehicle parked at its home position.
// Battery is clamped into [0, 100]; every sensor starts at baseline.
func NewState(id string, battery float64, home Position, sensorKeys []string, baseline float64) *State {
	sensors := make(map[string]float64, len(sensorKeys))
	for _, k := range sensorKeys {
		sensors[k] = baseline
	}
	return &State{
		ID:       id,
		Battery:  clampBattery(battery),
		Position: home,
		Home:     home,
		Mission:  Idle,
		Sensors:  sensors,
	}
}

// StartMission replaces the active route and begins executing it from the
// first waypoint. Callers validate the route beforehand.
func (s *State) StartMission(missionID string, route []Position) {
	s.Route = slices.Clone(route)
	s.RouteIndex = 0
	s.MissionID = missionID
	s.Mission = Executing
}

// Interrupt forces the vehicle home regardless of its current phase.
func (s *State) Interrupt() {
	s.Mission = Returning
}

// resetMission returns the mission fields to their initial empty values.
func (s *State) resetMission() {
	s.Mission = Idle
	s.MissionID = ""
	s.Route = nil
	s.RouteIndex = 0
}

// Clone returns a deep copy, safe to inspect after the lock is released.
func (s *State) Clone() *State {
	c := *s
	c.Route = slices.Clone(s.Route)
	c.Sensors = maps.Clone(s.Sensors)
	return &c
}

// SensorKeys returns the sensor keys in sorted order.
func (s *State) SensorKeys() []string {
	return slices.Sorted(maps.Keys(s.Sensors))
}

func clampBattery(b float64) float64 {
	if math.IsNaN(b) {
		return MinBattery
	}
	return min(max(b, MinBattery), MaxBattery)
}
