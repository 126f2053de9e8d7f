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

package radio

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// DeviceInfo identifies an enumerated dongle by index and USB descriptor
// strings.
type DeviceInfo struct {
	Index   int    `json:"id" xml:"id,attr"`
	Vendor  string `json:"vendor" xml:",attr"`
	Product string `json:"product" xml:",attr"`
	Serial  string `json:"serial" xml:",attr"`
}

func (info DeviceInfo) String() string {
	return fmt.Sprintf("{ID:%d Vendor:%q Product:%q Serial:%q}", info.Index, info.Vendor, info.Product, info.Serial)
}

// A Backend enumerates and opens devices through a driver.
type Backend interface {
	DeviceCount() (int, error)
	DeviceInfo(index int) (DeviceInfo, error)
	Open(index int) (Device, error)
}

// A Device is an opened dongle. Gains are in tenths of a dB (197 => 19.7dB),
// frequencies and rates are in Hz. Read returns interleaved unsigned 8-bit
// I/Q samples.
type Device interface {
	io.Reader

	SetTunerGainMode(manual bool) error
	SetTunerGain(gain int) error
	TunerGain() int
	TunerGains() ([]int, error)

	SetFreqCorrection(ppm int) error
	FreqCorrection() int
	SetCenterFreq(freq uint32) error
	CenterFreq() uint32

	SetSampleRate(rate uint32) error
	SampleRate() uint32

	ResetBuffer() error
	Close() error
}

// An Interrupter is a Device whose Read may block indefinitely. Interrupt
// makes a pending Read return so the session can stop before Close.
type Interrupter interface {
	Interrupt() error
}

// TrimUSBString removes the NUL padding and whitespace drivers leave on
// descriptor strings.
func TrimUSBString(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

var (
	backendMutex sync.Mutex
	backends     = make(map[string]NewBackendFunc)
)

// NewBackendFunc constructs a backend. The meaning of uri is backend specific,
// the rtl_tcp backend takes a server address and local USB ignores it.
type NewBackendFunc func(uri string) (Backend, error)

// Given a name and a constructor, register a backend for use.
// Later used by underscore importing each backend package:
//
//	import _ "github.com/bemasher/rtladsb/radio/rtlsdr"
func Register(name string, fn NewBackendFunc) {
	backendMutex.Lock()
	defer backendMutex.Unlock()

	if fn == nil {
		panic("radio: new backend func is nil")
	}
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("radio: backend already registered (%s)", name))
	}
	backends[name] = fn
}

// Given a name and uri, lookup the backend and make a new one.
func NewBackend(name, uri string) (Backend, error) {
	backendMutex.Lock()
	fn, exists := backends[name]
	backendMutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("invalid backend: %q (registered: %s)", name, strings.Join(Backends(), ","))
	}
	return fn(uri)
}

// Backends returns the sorted names of registered backends.
func Backends() (names []string) {
	backendMutex.Lock()
	defer backendMutex.Unlock()

	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListDevices enumerates every device the backend reports. The number of
// entries always equals the driver's device count.
func ListDevices(b Backend) ([]DeviceInfo, error) {
	count, err := b.DeviceCount()
	if err != nil {
		return nil, wrap(err, "device count")
	}

	devices := make([]DeviceInfo, count)
	for idx := range devices {
		info, err := b.DeviceInfo(idx)
		if err != nil {
			return nil, wrapf(err, "device %d usb strings", idx)
		}
		info.Index = idx
		info.Vendor = TrimUSBString(info.Vendor)
		info.Product = TrimUSBString(info.Product)
		info.Serial = TrimUSBString(info.Serial)
		devices[idx] = info
	}

	return devices, nil
}

// NearestGain snaps gain to the closest value in gains. A gain of zero or
// less selects the highest supported gain. With an empty table the requested
// gain is returned unchanged.
func NearestGain(gains []int, gain int) int {
	if len(gains) == 0 {
		return gain
	}

	if gain <= 0 {
		max := gains[0]
		for _, g := range gains[1:] {
			if g > max {
				max = g
			}
		}
		return max
	}

	best := gains[0]
	for _, g := range gains[1:] {
		if abs(g-gain) < abs(best-gain) {
			best = g
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
