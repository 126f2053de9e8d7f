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

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A FilterChain takes a list of filters and applies them iteratively to
// aircraft sent through the chain.
type FilterChain []AircraftFilter

func (fc *FilterChain) Add(filter AircraftFilter) {
	*fc = append(*fc, filter)
}

func (fc FilterChain) Match(a Aircraft) bool {
	for _, filter := range fc {
		if !filter.Filter(a) {
			return false
		}
	}
	return true
}

type AircraftFilter interface {
	Filter(Aircraft) bool
}

// ICAOFilter passes aircraft whose address is in the set. It implements
// flag.Value, parsing a comma-separated list of hex addresses.
type ICAOFilter map[uint32]bool

func (f ICAOFilter) String() string {
	var values []string
	for k := range f {
		values = append(values, fmt.Sprintf("%06X", k))
	}
	sort.Strings(values)
	return strings.Join(values, ",")
}

// Set replaces the set, so a later value overrides an earlier one the same
// way every other flag does.
func (f ICAOFilter) Set(value string) error {
	ids := make(map[uint32]bool)
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		n, err := strconv.ParseUint(v, 16, 24)
		if err != nil {
			return errors.Wrapf(err, "icao %q", v)
		}
		ids[uint32(n)] = true
	}

	for k := range f {
		delete(f, k)
	}
	for k := range ids {
		f[k] = true
	}
	return nil
}

func (f ICAOFilter) Filter(a Aircraft) bool {
	return f[a.ICAO]
}

// PositionFilter passes aircraft with a known position. A positive
// MaxDistance additionally limits them to that many km from the receiver.
type PositionFilter struct {
	MaxDistance float64
}

func (f PositionFilter) Filter(a Aircraft) bool {
	if !a.PositionValid {
		return false
	}
	return f.MaxDistance <= 0 || a.Distance <= f.MaxDistance
}
