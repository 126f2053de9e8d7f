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

// Package rtlsdr provides the local USB backend through librtlsdr.
package rtlsdr

import (
	"sync"

	rtl "github.com/jpoirier/gortlsdr"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/radio"
)

func init() {
	radio.Register("rtlsdr", NewBackend)
}

type Backend struct{}

// NewBackend ignores uri, devices are addressed by index.
func NewBackend(uri string) (radio.Backend, error) {
	return Backend{}, nil
}

func (Backend) DeviceCount() (int, error) {
	return rtl.GetDeviceCount(), nil
}

func (Backend) DeviceInfo(index int) (info radio.DeviceInfo, err error) {
	info.Index = index
	info.Vendor, info.Product, info.Serial, err = rtl.GetDeviceUsbStrings(index)
	return info, err
}

func (Backend) Open(index int) (radio.Device, error) {
	ctx, err := rtl.Open(index)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"index": index,
		"name":  rtl.GetDeviceName(index),
		"tuner": ctx.GetTunerType(),
	}).Debug("opened rtlsdr")

	return &Device{ctx: ctx}, nil
}

// Device adapts a librtlsdr context to radio.Device. Close waits for any
// Read in progress, librtlsdr frees the context on close.
type Device struct {
	ctx *rtl.Context

	mu     sync.Mutex
	closed bool
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, errors.New("device closed")
	}

	n, err := d.ctx.ReadSync(p, len(p))
	if err != nil {
		return n, errors.Wrap(err, "read sync")
	}
	return n, nil
}

func (d *Device) SetTunerGainMode(manual bool) error {
	return d.ctx.SetTunerGainMode(manual)
}

func (d *Device) SetTunerGain(gain int) error {
	return d.ctx.SetTunerGain(gain)
}

func (d *Device) TunerGain() int {
	return d.ctx.GetTunerGain()
}

func (d *Device) TunerGains() ([]int, error) {
	return d.ctx.GetTunerGains()
}

func (d *Device) SetFreqCorrection(ppm int) error {
	return d.ctx.SetFreqCorrection(ppm)
}

func (d *Device) FreqCorrection() int {
	return d.ctx.GetFreqCorrection()
}

func (d *Device) SetCenterFreq(freq uint32) error {
	return d.ctx.SetCenterFreq(int(freq))
}

func (d *Device) CenterFreq() uint32 {
	return uint32(d.ctx.GetCenterFreq())
}

func (d *Device) SetSampleRate(rate uint32) error {
	return d.ctx.SetSampleRate(int(rate))
}

func (d *Device) SampleRate() uint32 {
	return uint32(d.ctx.GetSampleRate())
}

func (d *Device) ResetBuffer() error {
	return d.ctx.ResetBuffer()
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	return d.ctx.Close()
}
