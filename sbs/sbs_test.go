package sbs

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

const (
	positionLine = "MSG,3,111,11111,AC2BB7,111111,2015/07/28,03:59:12.363,2015/07/28,03:59:12.353,,5550,,,42.35847,-83.42212,,,,,,0"
	identLine    = "MSG,1,111,11111,A44728,111111,2015/07/28,03:59:12.607,2015/07/28,03:59:12.603,FLG1724 ,,,,,,,,,,,0"
	velocityLine = "MSG,4,111,11111,A44728,111111,2015/07/28,03:59:12.608,2015/07/28,03:59:12.604,,,424,75,,,-1024,,,,,0"
	squawkLine   = "MSG,6,111,11111,A44728,111111,2015/07/28,03:59:12.610,2015/07/28,03:59:12.605,,37000,,,,,,7500,-1,-1,0,0"
)

func TestParsePosition(t *testing.T) {
	msg, err := Parse(positionLine + "\r\n")
	if err != nil {
		t.Fatal(err)
	}

	if msg.TransmissionType != AirbornePosition || msg.ICAO != 0xAC2BB7 {
		t.Fatalf("unexpected header: %s\n", msg)
	}
	if !msg.Has(FieldAltitude|FieldPosition|FieldOnGround) || msg.Has(FieldCallsign) {
		t.Fatalf("unexpected fields: %04X\n", msg.Fields)
	}
	if msg.Altitude != 5550 || msg.Lat != 42.35847 || msg.Lon != -83.42212 || msg.OnGround {
		t.Fatalf("unexpected values: %+v\n", msg)
	}

	want := time.Date(2015, 7, 28, 3, 59, 12, 363e6, time.UTC)
	if !msg.Generated.Equal(want) {
		t.Fatalf("expected generated %s got %s\n", want, msg.Generated)
	}
}

func TestParseFields(t *testing.T) {
	msg, err := Parse(identLine)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Callsign != "FLG1724" || msg.Fields != FieldCallsign|FieldOnGround {
		t.Fatalf("unexpected ident: %q %04X\n", msg.Callsign, msg.Fields)
	}

	msg, err = Parse(velocityLine)
	if err != nil {
		t.Fatal(err)
	}
	if msg.GroundSpeed != 424 || msg.Track != 75 || msg.VerticalRate != -1024 {
		t.Fatalf("unexpected velocity: %+v\n", msg)
	}

	msg, err = Parse(squawkLine)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Squawk != "7500" || !msg.Alert || !msg.Emergency || msg.SPI {
		t.Fatalf("unexpected squawk: %+v\n", msg)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name, line string
	}{
		{"short", "MSG,3,111"},
		{"type", strings.Replace(positionLine, "MSG", "SEL", 1)},
		{"transmission", strings.Replace(positionLine, "MSG,3", "MSG,9", 1)},
		{"icao", strings.Replace(positionLine, "AC2BB7", "XYZ", 1)},
		{"altitude", strings.Replace(positionLine, "5550", "high", 1)},
		{"latitude", strings.Replace(positionLine, "42.35847", "142.0", 1)},
		{"flag", strings.Replace(squawkLine, "-1,-1", "2,-1", 1)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.line)
			if errors.Cause(err) != ErrMalformed {
				t.Fatalf("expected ErrMalformed got %v\n", err)
			}
		})
	}
}

func TestScanner(t *testing.T) {
	input := strings.Join([]string{
		positionLine,
		"",
		"garbage",
		identLine,
		"STA,,5,179,400AE7,10103,2008/11/28,14:58:51.153,2008/11/28,14:58:51.153,RM",
		velocityLine,
	}, "\r\n")

	s := NewScanner(strings.NewReader(input))

	var icaos []uint32
	for s.Scan() {
		icaos = append(icaos, s.Message().ICAO)
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}

	if len(icaos) != 3 || icaos[0] != 0xAC2BB7 || icaos[2] != 0xA44728 {
		t.Fatalf("unexpected messages: %06X\n", icaos)
	}
	if s.Malformed != 2 {
		t.Fatalf("expected 2 malformed lines got %d\n", s.Malformed)
	}
}
