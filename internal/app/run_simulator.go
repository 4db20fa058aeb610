// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/relabs-tech/uav_simulator/internal/config"
	"github.com/relabs-tech/uav_simulator/internal/telemetry"
	"github.com/relabs-tech/uav_simulator/internal/transport"
	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

const readyPollInterval = 100 * time.Millisecond

// SimulatorArgs is the parsed uav_simulator command line.
type SimulatorArgs struct {
	VehicleID  string
	Battery    float64
	Lat        float64
	Lng        float64
	Sensors    []string
	ConfigPath string
	Local      bool
}

// ParseSimulatorArgs parses
//
//	uav_simulator [-config file] [-sensors a,b] [-local] <id> <battery> <lat> <lng>
//
// Flags may appear anywhere, and negative coordinates are accepted as
// positionals.
func ParseSimulatorArgs(args []string) (SimulatorArgs, error) {
	fs := flag.NewFlagSet("uav_simulator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sensors := fs.String("sensors", "", "comma-separated sensor keys, e.g. temp,humidity")
	configPath := fs.String("config", "", "path to KEY=VALUE configuration file")
	local := fs.Bool("local", false, "run against an in-process bus and echo telemetry to stdout")

	var flagArgs, positional []string
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if !isFlagToken(tok) {
			positional = append(positional, tok)
			continue
		}
		name := strings.TrimLeft(tok, "-")
		if strings.Contains(name, "=") {
			flagArgs = append(flagArgs, tok)
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			return SimulatorArgs{}, fmt.Errorf("unknown flag %s", tok)
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			flagArgs = append(flagArgs, tok)
			continue
		}
		if i+1 >= len(args) {
			return SimulatorArgs{}, fmt.Errorf("flag %s needs a value", tok)
		}
		flagArgs = append(flagArgs, tok, args[i+1])
		i++
	}
	if err := fs.Parse(flagArgs); err != nil {
		return SimulatorArgs{}, err
	}

	if len(positional) != 4 {
		return SimulatorArgs{}, fmt.Errorf("usage: uav_simulator [-config file] [-sensors a,b] [-local] <id> <battery> <lat> <lng>")
	}

	a := SimulatorArgs{
		VehicleID:  positional[0],
		ConfigPath: *configPath,
		Local:      *local,
	}
	if strings.TrimSpace(a.VehicleID) == "" || strings.Contains(a.VehicleID, "/") {
		return SimulatorArgs{}, fmt.Errorf("invalid vehicle id %q", a.VehicleID)
	}
	var err error
	if a.Battery, err = parseFinite(positional[1]); err != nil {
		return SimulatorArgs{}, fmt.Errorf("invalid battery %q: %w", positional[1], err)
	}
	if a.Lat, err = parseFinite(positional[2]); err != nil {
		return SimulatorArgs{}, fmt.Errorf("invalid latitude %q: %w", positional[2], err)
	}
	if a.Lng, err = parseFinite(positional[3]); err != nil {
		return SimulatorArgs{}, fmt.Errorf("invalid longitude %q: %w", positional[3], err)
	}
	for _, s := range strings.Split(*sensors, ",") {
		if s = strings.TrimSpace(s); s != "" {
			a.Sensors = append(a.Sensors, s)
		}
	}
	return a, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

// isFlagToken reports whether tok names a flag rather than a negative
// number. "-Inf" and "-NaN" parse as floats and stay positional, so they
// reach parseFinite and are rejected there.
func isFlagToken(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err != nil
}

// RunSimulator connects the transport, starts the optional outputs, and runs
// the tick loop until SIGINT/SIGTERM.
func RunSimulator(cfg *config.Config, a SimulatorArgs) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tr transport.Transport
	if a.Local {
		tr = transport.NewMemory()
		log.Println("sim: local mode, no broker")
	} else {
		m := transport.NewMQTT(transport.MQTTOptions{
			Broker:         cfg.MQTTBroker,
			ClientID:       cfg.ClientID(a.VehicleID),
			Username:       cfg.MQTTUsername,
			Password:       cfg.MQTTPassword,
			KeepAlive:      cfg.KeepAlive(),
			ConnectTimeout: cfg.ConnectTimeout(),
			QoS:            0,
		})
		if err := m.Connect(); err != nil {
			return err
		}
		tr = m
	}
	defer tr.Close()

	if err := transport.WaitReady(ctx, tr, cfg.ConnectTimeout(), readyPollInterval); err != nil {
		return err
	}

	state := vehicle.NewState(a.VehicleID, a.Battery, vehicle.Position{Lat: a.Lat, Lng: a.Lng}, a.Sensors, cfg.SensorBaseline)
	sim := NewSimulator(state, tr, SimulatorOptions{
		TopicPrefix: cfg.TopicPrefix,
		Interval:    cfg.Interval(),
		Navigator:   navigatorFor(cfg),
	})

	if a.Local {
		sim.AddSink(EchoSink(os.Stdout))
	}

	if cfg.NMEAEnabled {
		var w io.Writer
		if cfg.NMEASerialPort != "" {
			port, err := OpenNMEASerial(cfg.NMEASerialPort, cfg.NMEABaudRate)
			if err != nil {
				return err
			}
			defer port.Close()
			w = port
		}
		topic := transport.NMEATopic(cfg.TopicPrefix, a.VehicleID)
		sim.AddSink(NewNMEAOutput(tr, topic, w, cfg.Interval()).Emit)
		log.Printf("sim: publishing NMEA to %s", topic)
	}

	if cfg.WebServerPort > 0 {
		web := NewWebServer(sim)
		go func() {
			if err := web.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.WebServerPort)); err != nil {
				log.Printf("web: server error: %v", err)
			}
		}()
	}

	log.Printf("sim: publishing telemetry to %s, command topic %s", sim.TelemetryTopic(), sim.CommandTopic())
	if err := sim.Run(ctx); err != nil {
		return err
	}
	log.Println("sim: interrupted, shutting down")
	return nil
}

// navigatorFor covers SPEED_MPS meters per tick, or SPEED_MPS meters per
// second of tick period when SCALE_STEP_TO_INTERVAL is set.
func navigatorFor(cfg *config.Config) vehicle.Navigator {
	nav := vehicle.NewNavigator(cfg.SpeedMPS, cfg.BatteryDrain)
	if cfg.ScaleStepToInterval {
		nav = nav.ScaledTo(cfg.Interval())
	}
	return nav
}

// EchoSink prints every telemetry payload, one per line.
func EchoSink(w io.Writer) Sink {
	return func(_ telemetry.Message, payload []byte) {
		fmt.Fprintf(w, "%s\n", payload)
	}
}
