// RTLADSB - An rtl-sdr receiver for ADS-B transponders operating at 1090MHz.
// Copyright (C) 2016 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package sbs parses the SBS-1 (BaseStation) text format decoders such as
// dump1090 serve on port 30003.
//
//	MSG,3,111,11111,AC2BB7,111111,2015/07/28,03:59:12.363,2015/07/28,03:59:12.353,,5550,,,42.35847,-83.42212,,,,,,0
package sbs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	NumFields  = 22
	TimeFormat = "2006/01/02 15:04:05.000"
)

var ErrMalformed = errors.New("malformed sbs message")

// Transmission types of MSG records.
const (
	IdentAndCategory = iota + 1
	SurfacePosition
	AirbornePosition
	AirborneVelocity
	SurveillanceAlt
	SurveillanceID
	AirToAir
	AllCallReply
)

// Field flags which optional fields a message carried.
type Field uint16

const (
	FieldCallsign Field = 1 << iota
	FieldAltitude
	FieldGroundSpeed
	FieldTrack
	FieldPosition
	FieldVerticalRate
	FieldSquawk
	FieldAlert
	FieldEmergency
	FieldSPI
	FieldOnGround
)

// Message is a single MSG record.
type Message struct {
	TransmissionType int
	ICAO             uint32

	Generated time.Time
	Logged    time.Time

	Callsign     string
	Altitude     int
	GroundSpeed  float64
	Track        float64
	Lat, Lon     float64
	VerticalRate int
	Squawk       string

	Alert     bool
	Emergency bool
	SPI       bool
	OnGround  bool

	Fields Field
}

// Has reports whether every field in f was present.
func (msg Message) Has(f Field) bool {
	return msg.Fields&f == f
}

func (msg Message) String() string {
	return fmt.Sprintf("{Type:%d ICAO:%06X Fields:%04X}", msg.TransmissionType, msg.ICAO, uint16(msg.Fields))
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

// Parse decodes one line. Trailing CR/LF is ignored.
func Parse(line string) (msg Message, err error) {
	line = strings.TrimRight(line, "\r\n")
	x := strings.Split(line, ",")
	if len(x) < NumFields {
		return msg, malformed("%d fields", len(x))
	}

	if x[0] != "MSG" {
		return msg, malformed("message type %q", x[0])
	}

	msg.TransmissionType, err = strconv.Atoi(x[1])
	if err != nil || msg.TransmissionType < IdentAndCategory || msg.TransmissionType > AllCallReply {
		return msg, malformed("transmission type %q", x[1])
	}

	icao, err := strconv.ParseUint(x[4], 16, 24)
	if err != nil {
		return msg, malformed("icao %q", x[4])
	}
	msg.ICAO = uint32(icao)

	// Timestamps are informational, decoders disagree on their format.
	msg.Generated, _ = parseTime(x[6], x[7])
	msg.Logged, _ = parseTime(x[8], x[9])

	if v := strings.TrimSpace(x[10]); v != "" {
		msg.Callsign = v
		msg.Fields |= FieldCallsign
	}

	if v := x[11]; v != "" {
		if msg.Altitude, err = strconv.Atoi(v); err != nil {
			return msg, malformed("altitude %q", v)
		}
		msg.Fields |= FieldAltitude
	}

	if v := x[12]; v != "" {
		if msg.GroundSpeed, err = strconv.ParseFloat(v, 64); err != nil {
			return msg, malformed("ground speed %q", v)
		}
		msg.Fields |= FieldGroundSpeed
	}

	if v := x[13]; v != "" {
		if msg.Track, err = strconv.ParseFloat(v, 64); err != nil {
			return msg, malformed("track %q", v)
		}
		msg.Fields |= FieldTrack
	}

	// Position requires both coordinates.
	if x[14] != "" && x[15] != "" {
		if msg.Lat, err = strconv.ParseFloat(x[14], 64); err != nil || msg.Lat < -90 || msg.Lat > 90 {
			return msg, malformed("latitude %q", x[14])
		}
		if msg.Lon, err = strconv.ParseFloat(x[15], 64); err != nil || msg.Lon < -180 || msg.Lon > 180 {
			return msg, malformed("longitude %q", x[15])
		}
		msg.Fields |= FieldPosition
	}

	if v := x[16]; v != "" {
		if msg.VerticalRate, err = strconv.Atoi(v); err != nil {
			return msg, malformed("vertical rate %q", v)
		}
		msg.Fields |= FieldVerticalRate
	}

	if v := strings.TrimSpace(x[17]); v != "" {
		msg.Squawk = v
		msg.Fields |= FieldSquawk
	}

	flags := []struct {
		dst   *bool
		field Field
	}{
		{&msg.Alert, FieldAlert},
		{&msg.Emergency, FieldEmergency},
		{&msg.SPI, FieldSPI},
		{&msg.OnGround, FieldOnGround},
	}
	for idx, f := range flags {
		v := strings.TrimSpace(x[18+idx])
		if v == "" {
			continue
		}
		switch v {
		case "-1", "1":
			*f.dst = true
		case "0":
			*f.dst = false
		default:
			return msg, malformed("flag %d %q", 18+idx, v)
		}
		msg.Fields |= f.field
	}

	return msg, nil
}

func parseTime(date, clock string) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeFormat, date+" "+clock)
}
