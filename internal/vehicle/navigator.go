// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vehicle

import "time"

const (
	DefaultSpeedMPS     = 30.0
	DefaultDrainPerTick = 0.05

	// HomeArrivalMeters is how close a returning vehicle must be to home
	// before the mission is closed out.
	HomeArrivalMeters = 1.0
)

// Navigator moves a vehicle one tick at a time along its route.
type Navigator struct {
	// StepDeg is the distance covered per tick, in degrees.
	StepDeg float64
	// DrainPerTick is subtracted from the battery on every moving tick.
	DrainPerTick float64
}

// NewNavigator covers speedMPS meters on every tick, whatever the tick period.
func NewNavigator(speedMPS, drainPerTick float64) Navigator {
	return Navigator{
		StepDeg:      speedMPS / MetersPerDegree,
		DrainPerTick: drainPerTick,
	}
}

// ScaledTo returns a copy whose step is the distance covered in one tick
// period, so ground speed holds in real time instead of per tick.
func (n Navigator) ScaledTo(tick time.Duration) Navigator {
	n.StepDeg *= tick.Seconds()
	return n
}

// Advance runs one full navigation tick: the home arrival check first, then
// a movement step if the vehicle is still on a mission.
// It returns true when the vehicle went back to IDLE on this tick.
func (n Navigator) Advance(s *State) bool {
	if n.SettleHome(s) {
		return true
	}
	if s.Mission != Idle {
		n.Step(s)
	}
	return false
}

// SettleHome closes out a RETURNING mission once the vehicle is within
// HomeArrivalMeters of home. Position is left untouched.
func (n Navigator) SettleHome(s *State) bool {
	if s.Mission != Returning {
		return false
	}
	if DistanceMeters(s.Position, s.Home) >= HomeArrivalMeters {
		return false
	}
	s.resetMission()
	return true
}

// Step moves the vehicle toward its current target.
//
// EXECUTING targets Route[RouteIndex]; RETURNING always targets Home, whatever
// the route holds. When the target is closer than one step the vehicle snaps
// onto it and, while executing, moves on to the next waypoint, switching to
// RETURNING after the last one. Every step that runs drains the battery.
func (n Navigator) Step(s *State) {
	var target Position
	switch s.Mission {
	case Executing:
		if len(s.Route) == 0 {
			return
		}
		if s.RouteIndex >= len(s.Route) {
			s.Mission = Returning
			return
		}
		target = s.Route[s.RouteIndex]
	case Returning:
		target = s.Home
	default:
		return
	}

	dist := DegreeDistance(s.Position, target)
	if dist < n.StepDeg || dist == 0 {
		s.Position = target
		if s.Mission == Executing {
			s.RouteIndex++
			if s.RouteIndex >= len(s.Route) {
				s.Mission = Returning
			}
		}
	} else {
		s.Position.Lat += (target.Lat - s.Position.Lat) / dist * n.StepDeg
		s.Position.Lng += (target.Lng - s.Position.Lng) / dist * n.StepDeg
	}

	s.Battery = max(MinBattery, s.Battery-n.DrainPerTick)
}
