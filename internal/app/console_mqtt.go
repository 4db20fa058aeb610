package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/relabs-tech/uav_simulator/internal/config"
	"github.com/relabs-tech/uav_simulator/internal/gps"
	"github.com/relabs-tech/uav_simulator/internal/telemetry"
	"github.com/relabs-tech/uav_simulator/internal/transport"
)

// Console prints telemetry and NMEA traffic for one or all vehicles.
type Console struct {
	out    io.Writer
	prefix string
}

func NewConsole(out io.Writer, prefix string) *Console {
	return &Console{out: out, prefix: prefix}
}

// Subscribe registers the console on tr. An empty vehicleID watches every
// vehicle under the prefix.
func (c *Console) Subscribe(tr transport.Transport, vehicleID string) error {
	telTopic := transport.AllVehicles(c.prefix, transport.KindTelemetry)
	nmeaTopic := transport.AllVehicles(c.prefix, transport.KindNMEA)
	if vehicleID != "" {
		telTopic = transport.TelemetryTopic(c.prefix, vehicleID)
		nmeaTopic = transport.NMEATopic(c.prefix, vehicleID)
	}

	if err := tr.Subscribe(telTopic, c.HandleTelemetry); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", telTopic)

	if err := tr.Subscribe(nmeaTopic, c.HandleNMEA); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s", nmeaTopic)
	return nil
}

func (c *Console) HandleTelemetry(topic string, payload []byte) {
	id, _, ok := transport.VehicleFromTopic(c.prefix, topic)
	if !ok {
		log.Printf("console: unexpected topic %s", topic)
		return
	}
	m, err := telemetry.Decode(payload)
	if err != nil {
		log.Printf("console: telemetry unmarshal error: %v", err)
		return
	}

	mission := "-"
	if m.MissionID != nil {
		mission = *m.MissionID
	}
	fmt.Fprintf(c.out,
		"[TEL %s] status=%-9s mission=%s lat=%.6f lng=%.6f batt=%5.1f%%%s\n",
		id, m.Status, mission, m.Lat, m.Lng, m.Battery, formatSensors(m.Sensors),
	)
}

func (c *Console) HandleNMEA(topic string, payload []byte) {
	id, _, ok := transport.VehicleFromTopic(c.prefix, topic)
	if !ok {
		log.Printf("console: unexpected topic %s", topic)
		return
	}
	f, isRMC, err := gps.ParseRMC(string(payload))
	if err != nil {
		log.Printf("console: nmea parse error: %v", err)
		return
	}
	if !isRMC {
		return
	}
	fmt.Fprintf(c.out,
		"[GPS %s] time=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s\n",
		id, f.Time, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
	)
}

func formatSensors(sensors map[string]float64) string {
	if len(sensors) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sensors))
	for k := range sensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%.2f", k, sensors[k])
	}
	return b.String()
}

// RunConsoleMQTT prints vehicle traffic until Ctrl+C.
func RunConsoleMQTT(cfg *config.Config, vehicleID string) error {
	tr := transport.NewMQTT(transport.MQTTOptions{
		Broker:         cfg.MQTTBroker,
		ClientID:       cfg.ToolClientID("console", "uav-console-subscriber"),
		Username:       cfg.MQTTUsername,
		Password:       cfg.MQTTPassword,
		KeepAlive:      cfg.KeepAlive(),
		ConnectTimeout: cfg.ConnectTimeout(),
	})
	if err := tr.Connect(); err != nil {
		return err
	}
	defer tr.Close()
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := NewConsole(os.Stdout, cfg.TopicPrefix).Subscribe(tr, vehicleID); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
