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

import "math"

// Floor of reported signal levels in dBFS.
const MinLevel = -100.0

// Magnitude lookup table.
type MagLUT []float64

// Pre-computes normalized squares with most common DC offset for rtl-sdr dongles.
func NewMagLUT() (lut MagLUT) {
	lut = make([]float64, 0x100)
	for idx := range lut {
		lut[idx] = (127.5 - float64(idx)) / 127.5
		lut[idx] *= lut[idx]
	}
	return
}

// Calculates mean complex power of an interleaved IQ block. A trailing odd
// byte is ignored.
func (lut MagLUT) Power(iq []byte) float64 {
	n := len(iq) >> 1
	if n == 0 {
		return 0
	}

	var sum float64
	i := 0
	for idx := 0; idx < n; idx++ {
		sum += lut[iq[i]] + lut[iq[i+1]]
		i += 2
	}
	return sum / float64(n)
}

// Level converts mean power to dBFS, clamped to MinLevel.
func Level(power float64) float64 {
	if power <= 0 {
		return MinLevel
	}
	return math.Max(10*math.Log10(power), MinLevel)
}
