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

// Package feed connects the radio to an external Mode S decoder: samples go
// in on the decoder's stdin, SBS messages come back over TCP.
package feed

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCommand = "dump1090 --ifile - --iformat UC8 --net --quiet"
	QueueLength    = 16
	Grace          = 2 * time.Second
)

// Decoder runs an external decoder and feeds it unsigned 8-bit IQ samples.
type Decoder struct {
	Command     string
	QueueLength int

	// Grace is how long Close waits for the decoder to exit on its own after
	// stdin is closed before killing it.
	Grace time.Duration

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu       sync.RWMutex
	queue    chan []byte
	stopping bool
	closed   bool

	fed     int64
	dropped int64

	writer sync.WaitGroup
	done   chan struct{}
	err    error
	early  bool
}

func NewDecoder(command string) *Decoder {
	if command == "" {
		command = DefaultCommand
	}
	return &Decoder{
		Command:     command,
		QueueLength: QueueLength,
		Grace:       Grace,
	}
}

// Start runs the decoder. Cancelling ctx closes the decoder's stdin, the
// process itself is only killed by Close.
func (d *Decoder) Start(ctx context.Context) (err error) {
	args := strings.Fields(d.Command)
	if len(args) == 0 {
		return errors.New("empty decoder command")
	}

	d.cmd = exec.Command(args[0], args[1:]...)

	if d.stdin, err = d.cmd.StdinPipe(); err != nil {
		return errors.Wrap(err, "stdin")
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "stdout")
	}
	stderr, err := d.cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "stderr")
	}

	if err := d.cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %q", args[0])
	}

	logger := log.WithFields(log.Fields{
		"decoder": args[0],
		"pid":     d.cmd.Process.Pid,
	})
	logger.Info("decoder started")

	d.queue = make(chan []byte, d.QueueLength)
	d.done = make(chan struct{})

	d.writer.Add(1)
	go d.write(logger)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go pump(&pumps, stdout, logger.WithField("source", "stdout"), log.InfoLevel)
	go pump(&pumps, stderr, logger.WithField("source", "stderr"), log.WarnLevel)

	go func() {
		// Pipes must be drained before Wait closes them.
		pumps.Wait()
		d.err = d.cmd.Wait()

		d.mu.RLock()
		d.early = !d.stopping
		d.mu.RUnlock()

		logger.WithError(d.err).Info("decoder exited")
		close(d.done)
	}()

	go func() {
		select {
		case <-ctx.Done():
			d.stop()
		case <-d.done:
		}
	}()

	return nil
}

// stop closes the queue, the writer then closes stdin.
func (d *Decoder) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping {
		return
	}
	d.stopping = true
	close(d.queue)
}

// write copies queued blocks to the decoder's stdin. After a failed write the
// queue is still drained so Feed never blocks.
func (d *Decoder) write(logger *log.Entry) {
	defer d.writer.Done()
	defer d.stdin.Close()

	broken := false
	for block := range d.queue {
		if broken {
			continue
		}
		if _, err := d.stdin.Write(block); err != nil {
			logger.WithError(err).Warn("error writing samples to decoder")
			broken = true
			continue
		}
		atomic.AddInt64(&d.fed, int64(len(block)))
	}
}

func pump(wg *sync.WaitGroup, r io.Reader, logger *log.Entry, level log.Level) {
	defer wg.Done()

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line != "" {
			logger.Log(level, line)
		}
	}
}

// Feed queues a copy of block for the decoder. If the queue is full the block
// is dropped and counted. Feed is a radio.BlockFunc.
func (d *Decoder) Feed(block []byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopping || d.queue == nil {
		return
	}

	buf := make([]byte, len(block))
	copy(buf, block)

	select {
	case d.queue <- buf:
	default:
		atomic.AddInt64(&d.dropped, 1)
		droppedBlocks.Inc()
	}
}

func (d *Decoder) Dropped() int64 {
	return atomic.LoadInt64(&d.dropped)
}

// Done is closed once the decoder process has exited.
func (d *Decoder) Done() <-chan struct{} {
	return d.done
}

// Err is the process exit error, valid after Done is closed.
func (d *Decoder) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Close closes the decoder's stdin, gives it Grace to exit then kills it. It
// returns the exit error only if the decoder stopped before shutdown began.
func (d *Decoder) Close() error {
	d.mu.Lock()
	if d.closed || d.queue == nil {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.stop()

	select {
	case <-d.done:
	case <-time.After(d.Grace):
		log.WithField("grace", d.Grace).Warn("decoder did not exit, killing")
		d.cmd.Process.Kill()
	}

	d.writer.Wait()
	<-d.done

	log.WithFields(log.Fields{
		"fed":     humanize.Bytes(uint64(atomic.LoadInt64(&d.fed))),
		"dropped": d.Dropped(),
	}).Info("decoder closed")

	if d.early {
		return d.err
	}
	return nil
}
