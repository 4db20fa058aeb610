package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMQTT_NotReadyBeforeConnect(t *testing.T) {
	c := NewMQTT(MQTTOptions{
		Broker:         "tcp://127.0.0.1:1",
		ClientID:       "UAV-test",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 100 * time.Millisecond,
	})

	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.Publish("uav/test/telemetry", []byte("{}")), ErrNotConnected)
	assert.NoError(t, c.Subscribe("uav/test/command", func(string, []byte) {}), "deferred until connect")
}

func TestMQTT_ConnectFailsWithoutBroker(t *testing.T) {
	c := NewMQTT(MQTTOptions{
		Broker:         "tcp://127.0.0.1:1",
		ClientID:       "UAV-test",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 200 * time.Millisecond,
	})

	err := c.Connect()
	assert.Error(t, err)
	assert.False(t, c.Ready())
}

func TestMQTT_ConnectionStateFollowsCallbacks(t *testing.T) {
	c := NewMQTT(MQTTOptions{Broker: "tcp://127.0.0.1:1", ClientID: "UAV-test", ConnectTimeout: 100 * time.Millisecond})
	assert.NoError(t, c.Subscribe("uav/test/command", func(string, []byte) {}))
	assert.Contains(t, c.subs, "uav/test/command", "kept for replay on connect")

	c.connected.Store(true)
	assert.True(t, c.Ready())

	c.onConnectionLost(nil, errors.New("network down"))
	assert.False(t, c.Ready())
}
