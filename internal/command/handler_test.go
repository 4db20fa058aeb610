package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

func newTestHandler() (*Handler, *vehicle.State) {
	s := vehicle.NewState("001", 100, vehicle.Position{Lat: 1, Lng: 1}, []string{"temp"}, 50)
	return NewHandler(&sync.Mutex{}, s), s
}

func TestApply_MissionStart(t *testing.T) {
	h, s := newTestHandler()

	err := h.Apply([]byte(`{"type":"mission.start","missionCode":"M-1","route":[[1.0,1.0],[1.0,1.001]]}`))
	require.NoError(t, err)

	assert.Equal(t, vehicle.Executing, s.Mission)
	assert.Equal(t, 0, s.RouteIndex)
	assert.Equal(t, "M-1", s.MissionID)
	assert.Equal(t, []vehicle.Position{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 1.001}}, s.Route)
}

func TestApply_MissionStartAcceptsMissionID(t *testing.T) {
	h, s := newTestHandler()

	require.NoError(t, h.Apply([]byte(`{"type":"mission.start","missionId":"42","route":[[1,1],[2,2]]}`)))
	assert.Equal(t, "42", s.MissionID)
}

func TestApply_MissionCodeWinsOverMissionID(t *testing.T) {
	h, s := newTestHandler()

	require.NoError(t, h.Apply([]byte(`{"type":"mission.start","missionCode":"CODE","missionId":"ID","route":[[1,1],[2,2]]}`)))
	assert.Equal(t, "CODE", s.MissionID)
}

func TestApply_MissionStartReplacesActiveMission(t *testing.T) {
	h, s := newTestHandler()
	require.NoError(t, h.Apply([]byte(`{"type":"mission.start","missionCode":"A","route":[[1,1],[2,2],[3,3]]}`)))
	s.RouteIndex = 2
	s.Interrupt()

	require.NoError(t, h.Apply([]byte(`{"type":"mission.start","missionCode":"B","route":[[5,5],[6,6]]}`)))

	assert.Equal(t, vehicle.Executing, s.Mission)
	assert.Equal(t, 0, s.RouteIndex)
	assert.Equal(t, "B", s.MissionID)
	assert.Len(t, s.Route, 2)
}

func TestApply_RejectionsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"single point", `{"type":"mission.start","missionCode":"M","route":[[1,1]]}`, ErrRouteTooShort},
		{"no route", `{"type":"mission.start","missionCode":"M"}`, ErrRouteTooShort},
		{"bad pair", `{"type":"mission.start","missionCode":"M","route":[[1,1],[2]]}`, ErrBadWaypoint},
		{"no mission id", `{"type":"mission.start","route":[[1,1],[2,2]]}`, ErrMissingMission},
		{"unknown type", `{"type":"takeoff"}`, ErrUnknownType},
		{"missing type", `{"route":[[1,1],[2,2]]}`, ErrMissingType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s := newTestHandler()
			before := s.Clone()

			err := h.Apply([]byte(tt.payload))

			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s)
		})
	}
}

func TestApply_MalformedPayloadLeavesStateUnchanged(t *testing.T) {
	for _, payload := range []string{"not json", "", "{", `{"type":"mission.start","route":"oops"}`, `[1,2,3]`} {
		h, s := newTestHandler()
		require.NoError(t, h.Apply([]byte(`{"type":"mission.start","missionCode":"M","route":[[1,1],[2,2]]}`)))
		before := s.Clone()

		assert.Error(t, h.Apply([]byte(payload)), "payload %q", payload)
		h.Handle([]byte(payload))

		assert.Equal(t, before, s, "payload %q", payload)
	}
}

func TestApply_InterruptFromEveryState(t *testing.T) {
	h, s := newTestHandler()

	require.NoError(t, h.Apply([]byte(`{"type":"interrupt"}`)))
	assert.Equal(t, vehicle.Returning, s.Mission)
	assert.Empty(t, s.Route)

	require.NoError(t, h.Apply([]byte(`{"type":"mission.start","missionCode":"M","route":[[1,1],[2,2]]}`)))
	require.NoError(t, h.Apply([]byte(`{"type":"interrupt"}`)))
	assert.Equal(t, vehicle.Returning, s.Mission)
	assert.Equal(t, "M", s.MissionID)

	require.NoError(t, h.Apply([]byte(`{"type":"interrupt"}`)))
	assert.Equal(t, vehicle.Returning, s.Mission)
}

func TestHandle_SerializesWithOwnerLock(t *testing.T) {
	var mu sync.Mutex
	s := vehicle.NewState("001", 100, vehicle.Position{Lat: 1, Lng: 1}, nil, 50)
	h := NewHandler(&mu, s)
	nav := vehicle.NewNavigator(30, 0.05)
	nav.StepDeg = 0.0001

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.Handle([]byte(`{"type":"mission.start","missionCode":"M","route":[[1,1],[1,2]]}`))
			h.Handle([]byte(`{"type":"interrupt"}`))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			mu.Lock()
			nav.Advance(s)
			mu.Unlock()
		}
	}()
	wg.Wait()

	assert.LessOrEqual(t, s.RouteIndex, len(s.Route))
	assert.GreaterOrEqual(t, s.Battery, 0.0)
}

func TestNewMissionStart(t *testing.T) {
	payload, err := NewMissionStart("M-7", []vehicle.Position{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"mission.start","missionCode":"M-7","route":[[1,2],[3,4]]}`, string(payload))

	_, err = NewMissionStart("M-7", []vehicle.Position{{Lat: 1, Lng: 2}})
	assert.ErrorIs(t, err, ErrRouteTooShort)

	_, err = NewMissionStart("", []vehicle.Position{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}})
	assert.ErrorIs(t, err, ErrMissingMission)
}

func TestNewInterrupt(t *testing.T) {
	payload, err := NewInterrupt()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"interrupt"}`, string(payload))
}
