// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

// DriftAmplitude bounds the per-publish sensor perturbation.
const DriftAmplitude = 2.0

// Message is the JSON schema published on uav/{id}/telemetry.
// Data mirrors Sensors for consumers of the older "data" field.
type Message struct {
	UAVCode   string               `json:"uavCode"`
	MissionID *string              `json:"missionId"`
	Status    vehicle.MissionState `json:"status"`
	Lat       float64              `json:"lat"`
	Lng       float64              `json:"lng"`
	Battery   float64              `json:"battery"`
	Sensors   map[string]float64   `json:"sensors"`
	Data      map[string]float64   `json:"data"`
	TS        float64              `json:"ts"` // unix seconds
}

// Position returns the reported position.
func (m Message) Position() vehicle.Position {
	return vehicle.Position{Lat: m.Lat, Lng: m.Lng}
}

// Snapshot builds the telemetry message for the current tick.
//
// It must run with the state lock held: each sensor baseline is perturbed by
// a time-based oscillation and the perturbed value is written back, so drift
// accumulates across publishes instead of resetting.
func Snapshot(s *vehicle.State, now time.Time) Message {
	sec := unixSeconds(now)
	drift := math.Sin(sec) * DriftAmplitude

	sensors := make(map[string]float64, len(s.Sensors))
	for _, key := range s.SensorKeys() {
		v := max(0, s.Sensors[key]+drift)
		s.Sensors[key] = v
		sensors[key] = round(v, 2)
	}

	var missionID *string
	if s.MissionID != "" {
		id := s.MissionID
		missionID = &id
	}

	return Message{
		UAVCode:   s.ID,
		MissionID: missionID,
		Status:    s.Mission,
		Lat:       s.Position.Lat,
		Lng:       s.Position.Lng,
		Battery:   round(s.Battery, 1),
		Sensors:   sensors,
		Data:      sensors,
		TS:        sec,
	}
}

// Encode serializes a message for the transport.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode telemetry: %w", err)
	}
	return b, nil
}

// Decode parses a telemetry payload.
func Decode(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("decode telemetry: %w", err)
	}
	return m, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
