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
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtladsb/csv"
	"github.com/bemasher/rtladsb/feed"
	"github.com/bemasher/rtladsb/radio"
	"github.com/bemasher/rtladsb/traffic"
)

const envPrefix = "RTLADSB_"

var backend = flag.String("backend", "rtlsdr", "radio backend: "+strings.Join(radio.Backends(), ", "))
var server = flag.String("server", "", "backend specific address, host:port of rtl_tcp for the rtltcp backend")
var list = flag.Bool("list", false, "list available devices and exit")

var decoderCmd = flag.String("decoder", feed.DefaultCommand, "decoder command, fed 8-bit IQ samples on stdin")
var sbsAddr = flag.String("sbs", feed.DefaultSBSAddr, "address of the decoder's SBS output")

var interval = flag.Duration("interval", time.Second, "how often to report updated aircraft")
var timeLimit = flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")

var format = flag.String("format", "plain", "aircraft output format: plain, csv, json, or xml")
var encoder Encoder

var icaoFilter = make(traffic.ICAOFilter)
var positionOnly = flag.Bool("position", false, "display only aircraft with a known position")
var maxDistance = flag.Float64("maxdistance", 0, "with -position and a receiver location, display only aircraft within this many km")
var lat = flag.Float64("lat", 0, "receiver latitude for distance and bearing")
var lon = flag.Float64("lon", 0, "receiver longitude for distance and bearing")

var datalogPath = flag.String("datalog", "", "sqlite database to log aircraft updates to")
var metricsAddr = flag.String("metrics", "", "address to serve prometheus metrics on, ex. :9090")

var configFile = flag.String("config", "", "yaml file of flag values, overridden by flags and environment")
var logFile = flag.String("logfile", "", "file to write logs to, rotated at 10MB, stderr if empty")
var logLevel = flag.String("loglevel", "info", "log level: debug, info, warn or error")

var version = flag.Bool("version", false, "display build date and commit hash")

// Radio settings bind directly to a radio.Config.
func RegisterRadioFlags(cfg *radio.Config) {
	flag.IntVar(&cfg.Index, "device", cfg.Index, "device index")
	flag.BoolVar(&cfg.AutoGain, "autogain", cfg.AutoGain, "enable tuner automatic gain control")
	flag.IntVar(&cfg.Gain, "gain", cfg.Gain, "manual tuner gain in tenths of a dB, 0 for maximum, ignored with -autogain")
	flag.Var(uint32Value{&cfg.CenterFreq}, "centerfreq", "center frequency to receive on")
	flag.Var(uint32Value{&cfg.SampleRate}, "samplerate", "sample rate")
	flag.IntVar(&cfg.FreqCorrection, "freqcorrection", cfg.FreqCorrection, "frequency correction in ppm")
	flag.IntVar(&cfg.BlockSize, "blocksize", cfg.BlockSize, "sample block size in bytes, a multiple of 512")
}

func RegisterFlags() {
	flag.Var(icaoFilter, "filterid", "display only aircraft matching a comma-separated list of hex icao addresses")

	radioFlags := map[string]bool{
		"backend":        true,
		"server":         true,
		"device":         true,
		"list":           true,
		"autogain":       true,
		"gain":           true,
		"centerfreq":     true,
		"samplerate":     true,
		"freqcorrection": true,
		"blocksize":      true,
	}

	printDefaults := func(validFlags map[string]bool, inclusion bool) {
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			if validFlags[f.Name] != inclusion {
				return
			}

			format := "  -%s=%s: %s\n"
			fmt.Fprintf(os.Stderr, format, f.Name, f.Value, f.Usage)
		})
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		printDefaults(radioFlags, false)

		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "radio specific:")
		printDefaults(radioFlags, true)
	}
}

// EnvOverride sets flags from RTLADSB_<FLAG> environment variables. It runs
// before flag.Parse so the command line still wins.
func EnvOverride(fs *flag.FlagSet) {
	fs.VisitAll(func(f *flag.Flag) {
		envName := envPrefix + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		entry := log.WithFields(log.Fields{
			"env":   envName,
			"flag":  f.Name,
			"value": flagValue,
		})
		if err := fs.Set(f.Name, flagValue); err != nil {
			entry.WithError(err).Warn("environment variable failed to override flag")
		} else {
			entry.Debug("environment variable overrides flag")
		}
	})
}

// HandleFlags builds the output encoder and filter chain.
func HandleFlags(w io.Writer) (fc traffic.FilterChain, err error) {
	*format = strings.ToLower(*format)
	switch *format {
	case "plain":
		encoder = PlainEncoder{w}
	case "csv":
		encoder = csv.NewEncoder(w)
	case "json":
		encoder = json.NewEncoder(w)
	case "xml":
		encoder = xml.NewEncoder(w)
	default:
		return nil, errors.Errorf("invalid format: %q", *format)
	}

	if len(icaoFilter) > 0 {
		fc.Add(icaoFilter)
	}
	if *positionOnly {
		fc.Add(traffic.PositionFilter{MaxDistance: *maxDistance})
	}

	return fc, nil
}

// JSON, XML and CSV all implement this interface so we can simplify
// output formatting.
type Encoder interface {
	Encode(interface{}) error
}

type PlainEncoder struct {
	w io.Writer
}

func (pe PlainEncoder) Encode(v interface{}) (err error) {
	_, err = fmt.Fprintln(pe.w, v)
	return
}

type uint32Value struct {
	v *uint32
}

func (u uint32Value) String() string {
	if u.v == nil {
		return "0"
	}
	return fmt.Sprint(*u.v)
}

func (u uint32Value) Set(value string) error {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return err
	}
	*u.v = uint32(n)
	return nil
}
