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

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/datalog"
	"github.com/bemasher/rtladsb/feed"
	"github.com/bemasher/rtladsb/radio"
	"github.com/bemasher/rtladsb/sbs"
	"github.com/bemasher/rtladsb/traffic"

	_ "github.com/bemasher/rtladsb/radio/rtlsdr"
	_ "github.com/bemasher/rtladsb/radio/tcp"
)

type Receiver struct {
	session *radio.Session
	decoder *feed.Decoder
	client  *feed.Client
	tracker *traffic.Tracker
	fc      traffic.FilterChain

	datalog *datalog.Log
	metrics *http.Server
}

func NewReceiver(b radio.Backend, cfg radio.Config, fc traffic.FilterChain) (rcvr *Receiver, err error) {
	rcvr = &Receiver{fc: fc}

	rcvr.tracker = traffic.NewTracker()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat", "lon":
			rcvr.tracker.SetOrigin(*lat, *lon)
		}
	})

	rcvr.session = radio.NewSession(b, radio.WithAircraft(rcvr.tracker))
	rcvr.decoder = feed.NewDecoder(*decoderCmd)
	rcvr.client = feed.NewClient(*sbsAddr, func(msg sbs.Message) {
		rcvr.tracker.Update(msg)
	})

	if *datalogPath != "" {
		if rcvr.datalog, err = datalog.Open(*datalogPath); err != nil {
			return nil, err
		}
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		rcvr.metrics = &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := rcvr.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server")
			}
		}()
	}

	if err := rcvr.session.Open(cfg); err != nil {
		rcvr.Close()
		return nil, err
	}

	logSettings(rcvr.session)

	return rcvr, nil
}

// logSettings logs what the device reports back after tuning.
func logSettings(s *radio.Session) {
	if gs, err := s.GainSettings(); err != nil {
		log.WithError(err).Warn("error reading gain settings")
	} else {
		log.WithField("gain", gs).Info("radio gain")
	}
	if fs, err := s.FreqSettings(); err != nil {
		log.WithError(err).Warn("error reading frequency settings")
	} else {
		log.WithField("freq", fs).Info("radio tuned")
	}
}

func (rcvr *Receiver) Close() {
	if err := rcvr.session.Close(); err != nil {
		log.WithError(err).Warn("error closing radio")
	}
	if err := rcvr.decoder.Close(); err != nil {
		log.WithError(err).Warn("decoder exited early")
	}
	if rcvr.datalog != nil {
		if err := rcvr.datalog.Close(); err != nil {
			log.WithError(err).Warn("error closing datalog")
		}
	}
	if rcvr.metrics != nil {
		rcvr.metrics.Close()
	}
}

func (rcvr *Receiver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal channel for interruption.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigint)

	// Setup time limit channel
	tLimit := make(<-chan time.Time, 1)
	if *timeLimit != 0 {
		tLimit = time.After(*timeLimit)
	}

	if err := rcvr.decoder.Start(ctx); err != nil {
		return err
	}
	if err := rcvr.session.RegisterCallback(rcvr.decoder.Feed); err != nil {
		return err
	}
	if err := rcvr.session.Start(ctx); err != nil {
		return err
	}
	go rcvr.client.Run(ctx)

	start := time.Now()
	last := start

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigint:
			return nil
		case <-tLimit:
			log.WithField("elapsed", time.Since(start)).Info("time limit reached")
			return nil
		case <-rcvr.session.Done():
			if err := rcvr.session.Err(); err != nil {
				return err
			}
			return errors.New("radio stopped")
		case <-rcvr.decoder.Done():
			return errors.Wrap(rcvr.decoder.Err(), "decoder exited")
		case now := <-ticker.C:
			if err := rcvr.report(last); err != nil {
				return err
			}
			last = now
		}
	}
}

// report encodes aircraft heard since the last tick.
func (rcvr *Receiver) report(since time.Time) error {
	for _, a := range rcvr.tracker.UpdatedSince(since) {
		if rcvr.datalog != nil {
			rcvr.datalog.Log(a)
		}

		if !rcvr.fc.Match(a) {
			continue
		}

		if err := encoder.Encode(a); err != nil {
			return errors.Wrap(err, "encoding aircraft")
		}
	}

	stats := rcvr.session.Stats()
	log.WithFields(log.Fields{
		"blocks":   stats.Blocks,
		"bytes":    humanize.Bytes(uint64(stats.Bytes)),
		"level":    fmt.Sprintf("%.1fdB", stats.Level),
		"aircraft": rcvr.tracker.Len(),
		"dropped":  rcvr.decoder.Dropped(),
	}).Debug("receiver stats")

	return nil
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	cfg := radio.DefaultConfig()
	RegisterRadioFlags(&cfg)
	RegisterFlags()
	EnvOverride(flag.CommandLine)
	flag.Parse()

	// Environment and command line are applied again over the file.
	if *configFile != "" {
		if err := LoadConfig(*configFile, flag.CommandLine, &cfg); err != nil {
			log.Fatal(err)
		}
		EnvOverride(flag.CommandLine)
		flag.Parse()
	}

	logCloser, err := SetupLogging()
	if err != nil {
		log.Fatal(err)
	}
	defer logCloser.Close()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		return
	}

	b, err := radio.NewBackend(*backend, *server)
	if err != nil {
		log.Fatal(err)
	}

	if *list {
		devices, err := radio.ListDevices(b)
		if err != nil {
			log.Fatal(err)
		}
		for _, info := range devices {
			fmt.Println(info)
		}
		return
	}

	fc, err := HandleFlags(os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	cfg.Log()

	rcvr, err := NewReceiver(b, cfg, fc)
	if err != nil {
		log.Fatal(err)
	}

	err = rcvr.Run(context.Background())
	rcvr.Close()

	if err != nil {
		log.WithError(err).Error("receiver stopped")
		logCloser.Close()
		os.Exit(1)
	}
}
