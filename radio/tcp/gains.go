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

package tcp

import "github.com/bemasher/rtltcp"

// Gain tables in tenths of a dB, as reported by librtlsdr for each tuner.
var (
	e4kGains    = []int{-10, 15, 40, 65, 90, 115, 140, 165, 190, 215, 240, 290, 340, 420}
	fc0012Gains = []int{-99, -40, 71, 179, 192}
	fc0013Gains = []int{
		-99, -73, -65, -63, -60, -58, -54, 58, 61, 63, 65, 67,
		68, 70, 71, 179, 181, 182, 184, 186, 188, 191, 197,
	}
	r82xxGains = []int{
		0, 9, 14, 27, 37, 77, 87, 125, 144, 157, 166, 197, 207, 229, 254,
		280, 297, 328, 338, 364, 372, 386, 402, 421, 434, 439, 445, 480, 496,
	}
)

// Gains returns a copy of the gain table for a tuner, nil for tuners without
// adjustable gain.
func Gains(tuner rtltcp.Tuner) []int {
	var table []int
	switch tuner {
	case 1:
		table = e4kGains
	case 2:
		table = fc0012Gains
	case 3:
		table = fc0013Gains
	case 5, 6:
		table = r82xxGains
	default:
		return nil
	}

	gains := make([]int, len(table))
	copy(gains, table)
	return gains
}
