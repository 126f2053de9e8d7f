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

import "github.com/prometheus/client_golang/prometheus"

var (
	blocksRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtladsb_radio_blocks_total",
		Help: "Sample blocks read from the radio.",
	})
	bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtladsb_radio_bytes_total",
		Help: "Sample bytes read from the radio.",
	})
	signalLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rtladsb_radio_level_dbfs",
		Help: "Mean power of the last sample block in dBFS.",
	})
	readErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtladsb_radio_read_errors_total",
		Help: "Errors returned while reading samples.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(blocksRead)
	prometheus.MustRegister(bytesRead)
	prometheus.MustRegister(signalLevel)
	prometheus.MustRegister(readErrors)
}
