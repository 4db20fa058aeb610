package app

import (
	"fmt"
	"io"
	"log"
	"math"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/uav_simulator/internal/gps"
	"github.com/relabs-tech/uav_simulator/internal/telemetry"
	"github.com/relabs-tech/uav_simulator/internal/transport"
	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

// NMEAOutput turns each telemetry tick into a $GPRMC sentence, published on
// the vehicle's nmea topic and/or written to a serial port so the simulator
// can stand in for a real GPS receiver.
type NMEAOutput struct {
	tr       transport.Transport // optional
	topic    string
	w        io.Writer // optional
	interval time.Duration

	prev   *vehicle.Position
	course float64
}

func NewNMEAOutput(tr transport.Transport, topic string, w io.Writer, interval time.Duration) *NMEAOutput {
	return &NMEAOutput{tr: tr, topic: topic, w: w, interval: interval}
}

// OpenNMEASerial opens the serial port used as a virtual GPS output.
func OpenNMEASerial(port string, baud uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	p, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open nmea serial %s: %w", port, err)
	}
	log.Printf("nmea: serial port opened on %s at %d baud", port, baud)
	return p, nil
}

// Emit is a Sink.
func (o *NMEAOutput) Emit(msg telemetry.Message, _ []byte) {
	pos := msg.Position()

	var speedKnots float64
	if o.prev != nil {
		moved := vehicle.DistanceMeters(*o.prev, pos)
		if moved > 0 {
			o.course = vehicle.BearingDeg(*o.prev, pos)
			if o.interval > 0 {
				speedKnots = moved / o.interval.Seconds() * gps.KnotsPerMPS
			}
		}
	}
	o.prev = &pos

	line := gps.RMC(tsToTime(msg.TS), pos.Lat, pos.Lng, speedKnots, o.course)

	if o.tr != nil {
		// publish failures are logged by the transport
		_ = o.tr.Publish(o.topic, []byte(line))
	}
	if o.w != nil {
		if _, err := io.WriteString(o.w, line+"\r\n"); err != nil {
			log.Printf("nmea: serial write error: %v", err)
		}
	}
}

func tsToTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
