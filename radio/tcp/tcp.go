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

// Package tcp provides a backend for a dongle served by rtl_tcp. The server
// exposes exactly one device and can't report settings back, so the device
// remembers what it last sent.
package tcp

import (
	"net"
	"time"

	"github.com/bemasher/rtltcp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/radio"
)

const DefaultAddr = "127.0.0.1:1234"

func init() {
	radio.Register("rtltcp", NewBackend)
}

type Backend struct {
	addr *net.TCPAddr
}

// NewBackend resolves uri as the rtl_tcp server address.
func NewBackend(uri string) (radio.Backend, error) {
	if uri == "" {
		uri = DefaultAddr
	}

	addr, err := net.ResolveTCPAddr("tcp", uri)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", uri)
	}

	return &Backend{addr: addr}, nil
}

func (b *Backend) connect() (*rtltcp.SDR, error) {
	sdr := new(rtltcp.SDR)
	if err := sdr.Connect(b.addr); err != nil {
		return nil, err
	}
	return sdr, nil
}

// DeviceCount connects once to check the server is up and serving a dongle.
func (b *Backend) DeviceCount() (int, error) {
	sdr, err := b.connect()
	if err != nil {
		return 0, err
	}
	sdr.Close()

	return 1, nil
}

func (b *Backend) DeviceInfo(index int) (radio.DeviceInfo, error) {
	if index != 0 {
		return radio.DeviceInfo{}, errors.Errorf("rtl_tcp serves a single device, no index %d", index)
	}

	sdr, err := b.connect()
	if err != nil {
		return radio.DeviceInfo{}, err
	}
	defer sdr.Close()

	return radio.DeviceInfo{
		Index:   index,
		Vendor:  "rtl_tcp",
		Product: sdr.Info.Tuner.String(),
		Serial:  b.addr.String(),
	}, nil
}

func (b *Backend) Open(index int) (radio.Device, error) {
	if index != 0 {
		return nil, errors.Errorf("rtl_tcp serves a single device, no index %d", index)
	}

	sdr, err := b.connect()
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"server":    b.addr,
		"tuner":     sdr.Info.Tuner,
		"gaincount": sdr.Info.GainCount,
	}).Debug("connected to rtl_tcp")

	return &Device{sdr: sdr}, nil
}

// Device sends rtl_tcp commands and caches their parameters.
type Device struct {
	sdr *rtltcp.SDR

	manual bool
	gain   int
	ppm    int
	freq   uint32
	rate   uint32
}

func (d *Device) Read(p []byte) (int, error) {
	return d.sdr.Read(p)
}

func (d *Device) SetTunerGainMode(manual bool) error {
	// rtltcp takes the AGC state, the inverse of manual.
	if err := d.sdr.SetGainMode(!manual); err != nil {
		return err
	}
	d.manual = manual
	if !manual {
		d.gain = 0
	}
	return nil
}

func (d *Device) SetTunerGain(gain int) error {
	if err := d.sdr.SetGain(uint32(gain)); err != nil {
		return err
	}
	d.gain = gain
	return nil
}

// TunerGain is the last manual gain sent, 0 under automatic gain.
func (d *Device) TunerGain() int {
	return d.gain
}

func (d *Device) TunerGains() ([]int, error) {
	gains := Gains(d.sdr.Info.Tuner)
	if uint32(len(gains)) != d.sdr.Info.GainCount {
		log.WithFields(log.Fields{
			"tuner":     d.sdr.Info.Tuner,
			"known":     len(gains),
			"gaincount": d.sdr.Info.GainCount,
		}).Debug("gain table size differs from server")
	}
	return gains, nil
}

func (d *Device) SetFreqCorrection(ppm int) error {
	// The server reinterprets the parameter as signed.
	if err := d.sdr.SetFreqCorrection(uint32(int32(ppm))); err != nil {
		return err
	}
	d.ppm = ppm
	return nil
}

func (d *Device) FreqCorrection() int {
	return d.ppm
}

func (d *Device) SetCenterFreq(freq uint32) error {
	if err := d.sdr.SetCenterFreq(freq); err != nil {
		return err
	}
	d.freq = freq
	return nil
}

func (d *Device) CenterFreq() uint32 {
	return d.freq
}

func (d *Device) SetSampleRate(rate uint32) error {
	if err := d.sdr.SetSampleRate(rate); err != nil {
		return err
	}
	d.rate = rate
	return nil
}

func (d *Device) SampleRate() uint32 {
	return d.rate
}

// ResetBuffer does nothing, rtl_tcp resets the dongle's buffer itself when a
// client connects.
func (d *Device) ResetBuffer() error {
	return nil
}

// Interrupt expires the connection's read deadline, a pending Read returns
// a timeout.
func (d *Device) Interrupt() error {
	return d.sdr.SetReadDeadline(time.Now())
}

func (d *Device) Close() error {
	return d.sdr.Close()
}
