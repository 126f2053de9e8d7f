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

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/sbs"
)

const DefaultSBSAddr = "127.0.0.1:30003"

// Client reads SBS messages from a decoder, reconnecting whenever the
// connection fails or the decoder isn't listening yet.
type Client struct {
	Addr    string
	Handler func(sbs.Message)

	// Reconnect delays grow from InitialInterval to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewClient(addr string, handler func(sbs.Message)) *Client {
	if addr == "" {
		addr = DefaultSBSAddr
	}
	return &Client{
		Addr:            addr,
		Handler:         handler,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Run blocks until ctx is done, then returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.MaxElapsedTime = 0

	var dialer net.Dialer
	op := func() error {
		conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
		if err != nil {
			return err
		}

		connects.Inc()
		log.WithField("addr", c.Addr).Info("connected to sbs feed")
		b.Reset()

		err = c.stream(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = io.EOF
		}
		return errors.Wrap(err, "sbs feed")
	}

	notify := func(err error, next time.Duration) {
		log.WithError(err).WithField("retry", next).Warn("sbs feed unavailable")
	}

	for ctx.Err() == nil {
		backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	}

	return ctx.Err()
}

func (c *Client) stream(ctx context.Context, conn net.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	s := sbs.NewScanner(conn)
	malformed := 0
	countMalformed := func() {
		if s.Malformed != malformed {
			sbsMessages.WithLabelValues("malformed").Add(float64(s.Malformed - malformed))
			malformed = s.Malformed
		}
	}

	for s.Scan() {
		sbsMessages.WithLabelValues("ok").Inc()
		countMalformed()
		if c.Handler != nil {
			c.Handler(s.Message())
		}
	}
	countMalformed()

	return s.Err()
}
