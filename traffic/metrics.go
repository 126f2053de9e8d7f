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

package traffic

import "github.com/prometheus/client_golang/prometheus"

var (
	trackedAircraft = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rtladsb_traffic_aircraft",
		Help: "Number of aircraft currently tracked.",
	})
	messageCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtladsb_traffic_messages_total",
		Help: "SBS messages merged into the tracker by transmission type.",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(trackedAircraft, messageCount)
}
