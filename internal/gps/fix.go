package gps

import (
	"fmt"
	"math"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// KnotsPerMPS converts meters per second to knots.
const KnotsPerMPS = 1.0 / 0.514444

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // library format, dd/mm/yy
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}

// RMC renders a valid $GPRMC sentence (without CRLF) for the given fix data.
func RMC(t time.Time, lat, lng, speedKnots, courseDeg float64) string {
	t = t.UTC()
	latStr, ns := formatCoord(lat, 2, "N", "S")
	lngStr, ew := formatCoord(lng, 3, "E", "W")

	body := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,%.1f,%.1f,%s,,",
		t.Format("150405.00"),
		latStr, ns,
		lngStr, ew,
		speedKnots, courseDeg,
		t.Format("020106"),
	)
	return "$" + body + "*" + nmea.Checksum(body)
}

// formatCoord turns decimal degrees into NMEA (d)ddmm.mmmm plus hemisphere.
func formatCoord(v float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := math.Floor(v)
	minutes := math.Round((v-deg)*60*10000) / 10000
	if minutes >= 60 {
		deg++
		minutes -= 60
	}
	return fmt.Sprintf("%0*d%07.4f", degDigits, int(deg), minutes), hemi
}

// ParseRMC parses one NMEA line and returns the fix if it is an RMC sentence.
// ok is false for any other sentence type.
func ParseRMC(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false, fmt.Errorf("nmea: missing '$' in %q", line)
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, err
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false, nil
	}

	m := sentence.(nmea.RMC)
	return Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   string(m.Validity),
	}, true, nil
}
