package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uav_simulator/internal/gps"
	"github.com/relabs-tech/uav_simulator/internal/telemetry"
	"github.com/relabs-tech/uav_simulator/internal/transport"
	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

func TestNMEAOutput_Emit(t *testing.T) {
	mem := transport.NewMemory()
	var serialOut bytes.Buffer
	out := NewNMEAOutput(mem, "uav/UAV001/nmea", &serialOut, 500*time.Millisecond)

	ts := float64(fixedNow.Unix())
	out.Emit(telemetry.Message{Lat: 1, Lng: 1, TS: ts}, nil)
	out.Emit(telemetry.Message{Lat: 1, Lng: 1 + 15/vehicle.MetersPerDegree, TS: ts + 0.5}, nil)
	out.Emit(telemetry.Message{Lat: 1, Lng: 1 + 15/vehicle.MetersPerDegree, TS: ts + 1}, nil)

	published := mem.Published("uav/UAV001/nmea")
	require.Len(t, published, 3)

	first, ok, err := gps.ParseRMC(string(published[0].Payload))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", first.Validity)
	assert.Equal(t, 0.0, first.SpeedKnots)
	assert.InDelta(t, 1.0, first.Latitude, 1e-6)

	moving, _, err := gps.ParseRMC(string(published[1].Payload))
	require.NoError(t, err)
	assert.InDelta(t, 30*gps.KnotsPerMPS, moving.SpeedKnots, 0.2)
	assert.InDelta(t, 90.0, moving.CourseDeg, 0.1)

	// hovering keeps the last course
	hover, _, err := gps.ParseRMC(string(published[2].Payload))
	require.NoError(t, err)
	assert.Equal(t, 0.0, hover.SpeedKnots)
	assert.InDelta(t, 90.0, hover.CourseDeg, 0.1)

	lines := strings.SplitAfter(serialOut.String(), "\r\n")
	require.Len(t, lines, 4) // trailing empty element
	assert.Equal(t, string(published[0].Payload)+"\r\n", lines[0])
	assert.Empty(t, lines[3])
}

func TestNMEAOutput_NoTransport(t *testing.T) {
	var serialOut bytes.Buffer
	out := NewNMEAOutput(nil, "", &serialOut, time.Second)
	out.Emit(telemetry.Message{Lat: -33.45, Lng: -70.66, TS: float64(fixedNow.Unix())}, nil)

	fix, ok, err := gps.ParseRMC(serialOut.String())
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, -33.45, fix.Latitude, 1e-5)
	assert.InDelta(t, -70.66, fix.Longitude, 1e-5)
}

func TestNMEAOutput_AsSimulatorSink(t *testing.T) {
	sim, mem := newTestSimulator(t)
	sim.AddSink(NewNMEAOutput(mem, transport.NMEATopic("uav", "UAV001"), nil, sim.interval).Emit)

	_, err := sim.Tick()
	require.NoError(t, err)
	_, err = sim.Tick()
	require.NoError(t, err)

	assert.Len(t, mem.Published("uav/UAV001/nmea"), 2)
	assert.Len(t, mem.Published("uav/+/telemetry"), 2)
}
