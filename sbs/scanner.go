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

package sbs

import (
	"bufio"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Scanner reads messages from a stream, skipping blank and malformed lines.
type Scanner struct {
	s   *bufio.Scanner
	msg Message

	Malformed int
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{s: bufio.NewScanner(r)}
}

// Scan advances to the next valid message. It returns false at the end of
// the stream or on a read error.
func (s *Scanner) Scan() bool {
	for s.s.Scan() {
		line := strings.TrimSpace(s.s.Text())
		if line == "" {
			continue
		}

		msg, err := Parse(line)
		if err != nil {
			s.Malformed++
			log.WithError(err).Debug("skipping sbs line")
			continue
		}

		s.msg = msg
		return true
	}
	return false
}

func (s *Scanner) Message() Message {
	return s.msg
}

// Err returns the first non-EOF error from the underlying reader.
func (s *Scanner) Err() error {
	return s.s.Err()
}
