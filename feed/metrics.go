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

package feed

import "github.com/prometheus/client_golang/prometheus"

var (
	droppedBlocks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtladsb_feed_dropped_blocks_total",
		Help: "Sample blocks dropped because the decoder fell behind.",
	})
	connects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtladsb_feed_connects_total",
		Help: "Connections made to the decoder's SBS output.",
	})
	sbsMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtladsb_feed_sbs_lines_total",
		Help: "SBS lines read from the decoder by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(droppedBlocks)
	prometheus.MustRegister(connects)
	prometheus.MustRegister(sbsMessages)
}
