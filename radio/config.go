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

	log "github.com/sirupsen/logrus"
)

const (
	CenterFreq = 1090000000
	SampleRate = 2000000

	// Reads from librtlsdr must be a multiple of the USB transfer size.
	BlockMultiple = 512
	BlockSize     = 16 * 16384
)

// Config specifies how a device is opened and tuned.
type Config struct {
	Index    int  `yaml:"index"`
	AutoGain bool `yaml:"autogain"`
	// Manual gain in tenths of a dB, 0 selects the highest supported gain.
	Gain int `yaml:"gain"`

	CenterFreq     uint32 `yaml:"centerfreq"`
	SampleRate     uint32 `yaml:"samplerate"`
	FreqCorrection int    `yaml:"freqcorrection"`

	BlockSize int `yaml:"blocksize"`
}

// DefaultConfig returns a configuration for the first device tuned to
// 1090MHz at 2MS/s with automatic gain.
func DefaultConfig() Config {
	return Config{
		Index:      0,
		AutoGain:   true,
		CenterFreq: CenterFreq,
		SampleRate: SampleRate,
		BlockSize:  BlockSize,
	}
}

// Validate checks argument shapes that don't require a device.
func (cfg Config) Validate() error {
	if cfg.Index < 0 {
		return invalidf("device index %d", cfg.Index)
	}
	if !cfg.AutoGain && cfg.Gain < 0 {
		return invalidf("manual gain %d", cfg.Gain)
	}
	if cfg.CenterFreq == 0 {
		return invalidf("center frequency 0")
	}
	if cfg.SampleRate == 0 {
		return invalidf("sample rate 0")
	}
	if cfg.BlockSize <= 0 || cfg.BlockSize%BlockMultiple != 0 {
		return invalidf("block size %d is not a positive multiple of %d", cfg.BlockSize, BlockMultiple)
	}
	return nil
}

func (cfg Config) String() string {
	return fmt.Sprintf("{Index:%d AutoGain:%t Gain:%d CenterFreq:%d SampleRate:%d FreqCorrection:%d BlockSize:%d}",
		cfg.Index, cfg.AutoGain, cfg.Gain, cfg.CenterFreq, cfg.SampleRate, cfg.FreqCorrection, cfg.BlockSize,
	)
}

func (cfg Config) Log() {
	log.WithFields(log.Fields{
		"index":          cfg.Index,
		"autogain":       cfg.AutoGain,
		"gain":           cfg.Gain,
		"centerfreq":     cfg.CenterFreq,
		"samplerate":     cfg.SampleRate,
		"freqcorrection": cfg.FreqCorrection,
		"blocksize":      cfg.BlockSize,
	}).Info("radio config")
}

// GainSettings reports the gain state of an open device.
type GainSettings struct {
	AutoGain bool  `json:"autoGainEnabled" xml:",attr"`
	Gain     int   `json:"gain" xml:",attr"`
	Gains    []int `json:"gains" xml:"Gain"`
}

func (gs GainSettings) String() string {
	return fmt.Sprintf("{AutoGain:%t Gain:%0.1fdB Gains:%d}", gs.AutoGain, float64(gs.Gain)/10.0, gs.Gains)
}

// FreqSettings reports the tuning state of an open device.
type FreqSettings struct {
	CenterFreq     uint32 `json:"freq" xml:",attr"`
	FreqCorrection int    `json:"freqCorrection" xml:",attr"`
	SampleRate     uint32 `json:"sampleRate" xml:",attr"`
}

func (fs FreqSettings) String() string {
	return fmt.Sprintf("{CenterFreq:%d FreqCorrection:%dppm SampleRate:%d}", fs.CenterFreq, fs.FreqCorrection, fs.SampleRate)
}
