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

// Package traffic keeps the most recent state of every aircraft heard.
package traffic

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	geo "github.com/kellydunn/golang-geo"

	"github.com/bemasher/rtladsb/sbs"
)

// Aircraft not heard from within MaxAge are forgotten.
const MaxAge = 60 * time.Second

type Aircraft struct {
	ICAO     uint32 `json:"icao" xml:",attr"`
	Callsign string `json:"callsign,omitempty" xml:",attr,omitempty"`
	Squawk   string `json:"squawk,omitempty" xml:",attr,omitempty"`

	Altitude     int     `json:"altitude"`
	GroundSpeed  float64 `json:"groundSpeed"`
	Track        float64 `json:"track"`
	VerticalRate int     `json:"verticalRate"`

	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	PositionValid bool    `json:"positionValid"`

	OnGround  bool `json:"onGround"`
	Emergency bool `json:"emergency"`

	Messages  int       `json:"messages"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`

	// Distance in km and bearing in degrees from the receiver, only set when
	// both the receiver location and the aircraft position are known.
	Distance float64 `json:"distance,omitempty"`
	Bearing  float64 `json:"bearing,omitempty"`
}

func (a Aircraft) String() string {
	callsign := a.Callsign
	if callsign == "" {
		callsign = "-"
	}

	s := fmt.Sprintf("{ICAO:%06X Callsign:%-8s Squawk:%4s Alt:%5d Speed:%3.0f Track:%3.0f",
		a.ICAO, callsign, a.Squawk, a.Altitude, a.GroundSpeed, a.Track,
	)
	if a.PositionValid {
		s += fmt.Sprintf(" Pos:%.5f,%.5f", a.Lat, a.Lon)
		if a.Distance > 0 {
			s += fmt.Sprintf(" Dist:%.1fkm Brg:%03.0f", a.Distance, a.Bearing)
		}
	}
	return s + fmt.Sprintf(" Msgs:%s Seen:%s}", humanize.Comma(int64(a.Messages)), humanize.Time(a.LastSeen))
}

func (a Aircraft) Record() (r []string) {
	r = append(r, a.LastSeen.Format(time.RFC3339Nano))
	r = append(r, fmt.Sprintf("%06X", a.ICAO))
	r = append(r, a.Callsign)
	r = append(r, a.Squawk)
	r = append(r, strconv.Itoa(a.Altitude))
	r = append(r, strconv.FormatFloat(a.GroundSpeed, 'f', -1, 64))
	r = append(r, strconv.FormatFloat(a.Track, 'f', -1, 64))
	r = append(r, strconv.Itoa(a.VerticalRate))
	r = append(r, strconv.FormatFloat(a.Lat, 'f', -1, 64))
	r = append(r, strconv.FormatFloat(a.Lon, 'f', -1, 64))
	r = append(r, strconv.FormatBool(a.OnGround))
	r = append(r, strconv.FormatBool(a.Emergency))
	r = append(r, strconv.Itoa(a.Messages))
	r = append(r, strconv.FormatFloat(a.Distance, 'f', 3, 64))
	r = append(r, strconv.FormatFloat(a.Bearing, 'f', 1, 64))
	return r
}

func (a Aircraft) Header() []string {
	return []string{
		"Time", "ICAO", "Callsign", "Squawk", "Altitude", "GroundSpeed", "Track",
		"VerticalRate", "Lat", "Lon", "OnGround", "Emergency", "Messages",
		"Distance", "Bearing",
	}
}

// Tracker merges SBS messages into per-aircraft records.
type Tracker struct {
	MaxAge time.Duration

	mu       sync.Mutex
	aircraft map[uint32]*Aircraft
	origin   *geo.Point
	subs     []func(Aircraft)

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		MaxAge:   MaxAge,
		aircraft: make(map[uint32]*Aircraft),
		now:      time.Now,
	}
}

// SetOrigin sets the receiver location used for distance and bearing.
func (t *Tracker) SetOrigin(lat, lon float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.origin = geo.NewPoint(lat, lon)
}

// Subscribe registers fn to receive a copy of every updated record. fn is
// called from the goroutine calling Update.
func (t *Tracker) Subscribe(fn func(Aircraft)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

func (t *Tracker) Update(msg sbs.Message) Aircraft {
	t.mu.Lock()

	now := t.now()
	a, ok := t.aircraft[msg.ICAO]
	if !ok {
		a = &Aircraft{ICAO: msg.ICAO, FirstSeen: now}
		t.aircraft[msg.ICAO] = a
	}

	a.Messages++
	a.LastSeen = now

	if msg.Has(sbs.FieldCallsign) {
		a.Callsign = msg.Callsign
	}
	if msg.Has(sbs.FieldSquawk) {
		a.Squawk = msg.Squawk
	}
	if msg.Has(sbs.FieldAltitude) {
		a.Altitude = msg.Altitude
	}
	if msg.Has(sbs.FieldGroundSpeed) {
		a.GroundSpeed = msg.GroundSpeed
	}
	if msg.Has(sbs.FieldTrack) {
		a.Track = msg.Track
	}
	if msg.Has(sbs.FieldVerticalRate) {
		a.VerticalRate = msg.VerticalRate
	}
	if msg.Has(sbs.FieldOnGround) {
		a.OnGround = msg.OnGround
	}
	if msg.Has(sbs.FieldEmergency) {
		a.Emergency = msg.Emergency
	}
	if msg.Has(sbs.FieldPosition) {
		a.Lat, a.Lon = msg.Lat, msg.Lon
		a.PositionValid = true

		if t.origin != nil {
			p := geo.NewPoint(a.Lat, a.Lon)
			a.Distance = t.origin.GreatCircleDistance(p)
			a.Bearing = normalizeBearing(t.origin.BearingTo(p))
		}
	}

	messageCount.WithLabelValues(strconv.Itoa(msg.TransmissionType)).Inc()
	trackedAircraft.Set(float64(len(t.aircraft)))

	cp := *a
	subs := t.subs
	t.mu.Unlock()

	for _, fn := range subs {
		fn(cp)
	}

	return cp
}

// BearingTo returns (-180, 180], reported bearings are [0, 360).
func normalizeBearing(b float64) float64 {
	if b < 0 {
		b += 360
	}
	return b
}

// Prune drops aircraft older than MaxAge and returns how many were removed.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prune()
}

func (t *Tracker) prune() (n int) {
	cutoff := t.now().Add(-t.MaxAge)
	for icao, a := range t.aircraft {
		if a.LastSeen.Before(cutoff) {
			delete(t.aircraft, icao)
			n++
		}
	}
	trackedAircraft.Set(float64(len(t.aircraft)))
	return n
}

// Snapshot prunes stale aircraft and returns copies of the rest ordered by
// ICAO address.
func (t *Tracker) Snapshot() []Aircraft {
	return t.UpdatedSince(time.Time{})
}

// UpdatedSince is Snapshot limited to aircraft heard after since.
func (t *Tracker) UpdatedSince(since time.Time) []Aircraft {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()

	list := make([]Aircraft, 0, len(t.aircraft))
	for _, a := range t.aircraft {
		if a.LastSeen.After(since) {
			list = append(list, *a)
		}
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ICAO < list[j].ICAO
	})

	return list
}

// Len is the number of tracked aircraft, including stale ones not yet pruned.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.aircraft)
}
