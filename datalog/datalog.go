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

// Package datalog records aircraft sightings to an sqlite database.
package datalog

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/traffic"
)

const (
	BatchSize     = 100
	FlushInterval = time.Second
	QueueLength   = 1024
)

const createTable = `CREATE TABLE IF NOT EXISTS aircraft (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	time TIMESTAMP NOT NULL,
	icao TEXT NOT NULL,
	callsign TEXT,
	squawk TEXT,
	altitude INTEGER,
	ground_speed REAL,
	track REAL,
	vertical_rate INTEGER,
	lat REAL,
	lon REAL,
	position_valid INTEGER,
	on_ground INTEGER,
	emergency INTEGER,
	messages INTEGER,
	distance REAL,
	bearing REAL
)`

const insertRow = `INSERT INTO aircraft (
	time, icao, callsign, squawk, altitude, ground_speed, track, vertical_rate,
	lat, lon, position_valid, on_ground, emergency, messages, distance, bearing
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Log batches rows and writes them from a single goroutine.
type Log struct {
	db *sql.DB

	mu     sync.RWMutex
	rows   chan traffic.Aircraft
	closed bool

	done    chan struct{}
	dropped int64
}

func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create table")
	}

	l := &Log{
		db:   db,
		rows: make(chan traffic.Aircraft, QueueLength),
		done: make(chan struct{}),
	}
	go l.run()

	log.WithField("path", path).Info("datalog opened")
	return l, nil
}

// Log queues a row. Rows logged after Close or while the queue is full are
// dropped.
func (l *Log) Log(a traffic.Aircraft) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}

	select {
	case l.rows <- a:
	default:
		atomic.AddInt64(&l.dropped, 1)
	}
}

func (l *Log) run() {
	defer close(l.done)

	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	batch := make([]traffic.Aircraft, 0, BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := l.insert(batch); err != nil {
			log.WithError(err).WithField("rows", len(batch)).Error("error writing datalog")
		}
		batch = batch[:0]
	}

	for {
		select {
		case a, ok := <-l.rows:
			if !ok {
				flush()
				return
			}
			batch = append(batch, a)
			if len(batch) >= BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (l *Log) insert(batch []traffic.Aircraft) (err error) {
	tx, err := l.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertRow)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, a := range batch {
		_, err = stmt.Exec(
			a.LastSeen.UTC(), fmt.Sprintf("%06X", a.ICAO), a.Callsign, a.Squawk,
			a.Altitude, a.GroundSpeed, a.Track, a.VerticalRate,
			a.Lat, a.Lon, a.PositionValid, a.OnGround, a.Emergency,
			a.Messages, a.Distance, a.Bearing,
		)
		if err != nil {
			return errors.Wrapf(err, "insert %06X", a.ICAO)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// Close flushes queued rows and closes the database.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.rows)
	l.mu.Unlock()

	<-l.done

	if dropped := atomic.LoadInt64(&l.dropped); dropped > 0 {
		log.WithField("dropped", dropped).Warn("datalog dropped rows")
	}

	return errors.Wrap(l.db.Close(), "close")
}
