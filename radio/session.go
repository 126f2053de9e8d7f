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

import (
	"context"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/traffic"
)

// A BlockFunc receives each sample block read from the radio. The block is
// only valid until the function returns.
type BlockFunc func(block []byte)

// An AircraftSource provides the current set of tracked aircraft.
type AircraftSource interface {
	Snapshot() []traffic.Aircraft
}

type Option func(*Session)

// WithAircraft attaches the source AircraftData reads from.
func WithAircraft(src AircraftSource) Option {
	return func(s *Session) {
		s.aircraft = src
	}
}

// Stats counts what the acquisition loop has read since Start.
type Stats struct {
	Blocks int64
	Bytes  int64
	Level  float64
}

// Session owns a single opened device and its acquisition loop. The zero
// state is inert: no device, index -1.
type Session struct {
	backend  Backend
	aircraft AircraftSource
	lut      MagLUT

	mu       sync.Mutex
	dev      Device
	cfg      Config
	index    int
	autoGain bool
	gain     int
	freq     uint32

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error

	cbMu      sync.RWMutex
	callbacks []BlockFunc

	blocks, bytes atomic.Int64
	level         atomic.Uint64
}

func NewSession(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		lut:     NewMagLUT(),
	}
	s.reset()
	s.level.Store(math.Float64bits(MinLevel))

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Restore inert defaults. Callers hold s.mu.
func (s *Session) reset() {
	s.dev = nil
	s.cfg = Config{Index: -1}
	s.index = -1
	s.autoGain = false
	s.gain = 0
	s.freq = 0
	s.cancel = nil
}

// ListDevices enumerates the devices of the session's backend.
func (s *Session) ListDevices() ([]DeviceInfo, error) {
	return ListDevices(s.backend)
}

// Index returns the selected device index, -1 when inert.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Open opens the device selected by cfg.Index and configures gain,
// frequency correction, center frequency and sample rate, then resets the
// device's buffer. Any driver failure closes the device and leaves the
// session inert.
func (s *Session) Open(cfg Config) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		return ErrSessionOpen
	}

	count, err := s.backend.DeviceCount()
	if err != nil {
		return wrap(err, "device count")
	}
	if cfg.Index >= count {
		return invalidf("device index %d, %d devices present", cfg.Index, count)
	}

	dev, err := s.backend.Open(cfg.Index)
	if err != nil {
		log.WithError(err).WithField("index", cfg.Index).Error("error opening radio")
		s.reset()
		return wrapf(err, "open device %d", cfg.Index)
	}

	// If we exit this function due to an error, close the device.
	defer func() {
		if err != nil {
			log.WithError(err).WithField("index", cfg.Index).Error("error configuring radio")
			dev.Close()
			s.reset()
		}
	}()

	if err = dev.SetTunerGainMode(!cfg.AutoGain); err != nil {
		return wrap(err, "set tuner gain mode")
	}

	if !cfg.AutoGain {
		var gains []int
		if gains, err = dev.TunerGains(); err != nil {
			return wrap(err, "get tuner gains")
		}

		gain := NearestGain(gains, cfg.Gain)
		if err = dev.SetTunerGain(gain); err != nil {
			return wrapf(err, "set tuner gain %d", gain)
		}
	}

	// librtlsdr refuses to set a correction equal to the current one.
	if cfg.FreqCorrection != dev.FreqCorrection() {
		if err = dev.SetFreqCorrection(cfg.FreqCorrection); err != nil {
			return wrapf(err, "set freq correction %d", cfg.FreqCorrection)
		}
	}

	if err = dev.SetCenterFreq(cfg.CenterFreq); err != nil {
		return wrapf(err, "set center freq %d", cfg.CenterFreq)
	}

	if err = dev.SetSampleRate(cfg.SampleRate); err != nil {
		return wrapf(err, "set sample rate %d", cfg.SampleRate)
	}

	if err = dev.ResetBuffer(); err != nil {
		return wrap(err, "reset buffer")
	}

	s.dev = dev
	s.cfg = cfg
	s.index = cfg.Index
	s.autoGain = cfg.AutoGain
	s.gain = dev.TunerGain()
	s.freq = dev.CenterFreq()

	log.WithFields(log.Fields{
		"index":      s.index,
		"autogain":   s.autoGain,
		"gain":       s.gain,
		"centerfreq": s.freq,
		"samplerate": cfg.SampleRate,
	}).Info("radio open")

	return nil
}

// GainSettings reads the gain state back from the device.
func (s *Session) GainSettings() (GainSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return GainSettings{}, ErrNotOpen
	}

	gains, err := s.dev.TunerGains()
	if err != nil {
		return GainSettings{}, wrap(err, "get tuner gains")
	}

	s.gain = s.dev.TunerGain()

	return GainSettings{
		AutoGain: s.autoGain,
		Gain:     s.gain,
		Gains:    gains,
	}, nil
}

// FreqSettings reads the tuning state back from the device.
func (s *Session) FreqSettings() (FreqSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return FreqSettings{}, ErrNotOpen
	}

	s.freq = s.dev.CenterFreq()

	return FreqSettings{
		CenterFreq:     s.freq,
		FreqCorrection: s.dev.FreqCorrection(),
		SampleRate:     s.cfg.SampleRate,
	}, nil
}

// RegisterCallback adds fn to the functions called with every sample block.
// Callbacks run on the acquisition goroutine in registration order and
// survive Close.
func (s *Session) RegisterCallback(fn BlockFunc) error {
	if fn == nil {
		return invalidf("nil callback")
	}

	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	// Never append into a slice the dispatcher may be ranging over.
	callbacks := make([]BlockFunc, len(s.callbacks), len(s.callbacks)+1)
	copy(callbacks, s.callbacks)
	s.callbacks = append(callbacks, fn)

	return nil
}

// Start begins reading sample blocks in the background. The stream ends when
// ctx is cancelled, Close is called or the device returns a fatal error, at
// which point Done is closed and Err reports the cause.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return ErrNotOpen
	}

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrRunning
		}
	}

	s.setErr(nil)
	s.blocks.Store(0)
	s.bytes.Store(0)
	s.level.Store(math.Float64bits(MinLevel))

	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done

	blockCh := make(chan []byte)

	s.wg.Add(2)
	go s.read(ctx, s.dev, s.cfg.BlockSize, blockCh)
	go s.dispatch(ctx, blockCh)

	go func() {
		s.wg.Wait()
		close(done)
	}()

	log.WithField("blocksize", s.cfg.BlockSize).Info("radio started")

	return nil
}

func (s *Session) read(ctx context.Context, dev Device, blockSize int, blockCh chan<- []byte) {
	defer s.wg.Done()

	// When exiting this goroutine, close the block channel.
	defer close(blockCh)

	// Make two sample blocks, one for reading, and one for the dispatcher to
	// hand out, these are exchanged each time we read a new block.
	blockA := make([]byte, blockSize)
	blockB := make([]byte, blockSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, err := io.ReadFull(dev, blockA)
		if err != nil {
			// An interrupted read during shutdown.
			if ctx.Err() != nil {
				return
			}

			if netErr, ok := err.(net.Error); ok && netErr.Temporary() {
				readErrors.WithLabelValues("temporary").Inc()
				log.WithError(err).Warn("temporary read error")
				continue
			}

			readErrors.WithLabelValues("fatal").Inc()
			log.WithError(err).Error("error reading samples")
			s.setErr(wrap(err, "read samples"))
			return
		}

		select {
		case blockCh <- blockA:
		case <-ctx.Done():
			return
		}

		blockA, blockB = blockB, blockA
	}
}

func (s *Session) dispatch(ctx context.Context, blockCh <-chan []byte) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-blockCh:
			if !ok {
				return
			}

			level := Level(s.lut.Power(block))
			s.blocks.Add(1)
			s.bytes.Add(int64(len(block)))
			s.level.Store(math.Float64bits(level))

			blocksRead.Inc()
			bytesRead.Add(float64(len(block)))
			signalLevel.Set(level)

			s.cbMu.RLock()
			callbacks := s.callbacks
			s.cbMu.RUnlock()

			for _, fn := range callbacks {
				fn(block)
			}
		}
	}
}

// Done is closed once a started stream has ended. It is nil before the first
// Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error that ended the stream, nil for a clean stop.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func (s *Session) Stats() Stats {
	return Stats{
		Blocks: s.blocks.Load(),
		Bytes:  s.bytes.Load(),
		Level:  math.Float64frombits(s.level.Load()),
	}
}

// AircraftData returns the tracked aircraft sorted by address, nil when no
// source is attached.
func (s *Session) AircraftData() []traffic.Aircraft {
	if s.aircraft == nil {
		return nil
	}
	return s.aircraft.Snapshot()
}

// Close stops acquisition, closes the device and returns the session to its
// inert state. Closing an inert session does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return nil
	}

	// The device must outlive any Read in progress on the reader goroutine.
	if s.cancel != nil {
		s.cancel()
		if intr, ok := s.dev.(Interrupter); ok {
			if err := intr.Interrupt(); err != nil {
				log.WithError(err).Debug("error interrupting read")
			}
		}
	}

	if s.done != nil {
		<-s.done
	}

	err := s.dev.Close()

	log.WithField("index", s.index).Info("radio closed")
	s.reset()

	if err != nil {
		return wrap(err, "close device")
	}
	return nil
}
