package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

// driftTime is a wall-clock instant where sin(unix seconds) is close to 1.
var driftTime = time.Unix(0, int64(halfPi*float64(time.Second)))

var halfPi = math.Pi / 2

func TestSnapshot_Fields(t *testing.T) {
	s := vehicle.NewState("UAV001", 87.46, vehicle.Position{Lat: 1.5, Lng: 2.5}, nil, 50)
	s.StartMission("M-9", []vehicle.Position{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})
	now := time.Date(2026, 1, 1, 8, 0, 0, 500_000_000, time.UTC)

	m := Snapshot(s, now)

	assert.Equal(t, "UAV001", m.UAVCode)
	require.NotNil(t, m.MissionID)
	assert.Equal(t, "M-9", *m.MissionID)
	assert.Equal(t, vehicle.Executing, m.Status)
	assert.Equal(t, 1.5, m.Lat)
	assert.Equal(t, 2.5, m.Lng)
	assert.Equal(t, 87.5, m.Battery)
	assert.InDelta(t, float64(now.Unix())+0.5, m.TS, 1e-6)
	assert.Empty(t, m.Sensors)
}

func TestSnapshot_IdleHasNullMission(t *testing.T) {
	s := vehicle.NewState("UAV001", 100, vehicle.Position{}, nil, 50)

	payload, err := Encode(Snapshot(s, time.Unix(0, 0)))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"uavCode": "UAV001",
		"missionId": null,
		"status": "IDLE",
		"lat": 0,
		"lng": 0,
		"battery": 100,
		"sensors": {},
		"data": {},
		"ts": 0
	}`, string(payload))
}

func TestSnapshot_SensorDriftAccumulates(t *testing.T) {
	s := vehicle.NewState("UAV001", 100, vehicle.Position{}, []string{"temp", "humidity"}, 50)
	drift := math.Sin(unixSeconds(driftTime)) * DriftAmplitude

	first := Snapshot(s, driftTime)
	assert.InDelta(t, 50+drift, s.Sensors["temp"], 1e-9)
	assert.Equal(t, round(50+drift, 2), first.Sensors["temp"])
	assert.Equal(t, first.Sensors, first.Data)

	second := Snapshot(s, driftTime)
	assert.InDelta(t, 50+2*drift, s.Sensors["temp"], 1e-9, "baseline is not reset between publishes")
	assert.Equal(t, round(50+2*drift, 2), second.Sensors["humidity"])
}

func TestSnapshot_SensorsNeverNegative(t *testing.T) {
	s := vehicle.NewState("UAV001", 100, vehicle.Position{}, []string{"gas"}, 1)
	negative := time.Unix(0, int64(3*halfPi*float64(time.Second)))

	m := Snapshot(s, negative)

	assert.Equal(t, 0.0, m.Sensors["gas"])
	assert.Equal(t, 0.0, s.Sensors["gas"])
}

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(`{"uavCode":"7","missionId":"M","status":"RETURNING","lat":1,"lng":2,"battery":55.5,"sensors":{"t":1.25},"ts":12.5}`))
	require.NoError(t, err)
	assert.Equal(t, "7", m.UAVCode)
	assert.Equal(t, "M", *m.MissionID)
	assert.Equal(t, vehicle.Returning, m.Status)
	assert.Equal(t, vehicle.Position{Lat: 1, Lng: 2}, m.Position())

	_, err = Decode([]byte("garbage"))
	assert.Error(t, err)
}
