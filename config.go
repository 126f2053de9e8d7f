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
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/bemasher/rtladsb/radio"
)

// fileConfig is the layout of a -config file. Radio settings live under
// "radio", every other top-level key names a flag:
//
//	radio:
//	  autogain: false
//	  gain: 400
//	backend: rtltcp
//	server: 192.168.1.10:1234
//	format: json
type fileConfig struct {
	Radio *radio.Config          `yaml:"radio"`
	Flags map[string]interface{} `yaml:",inline"`
}

// LoadConfig applies a yaml file to cfg and fs. The caller re-applies the
// environment and command line afterwards so both take precedence.
func LoadConfig(filename string, fs *flag.FlagSet, cfg *radio.Config) error {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	fc := fileConfig{Radio: cfg}
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return errors.Wrapf(err, "parse %q", filename)
	}

	for name, value := range fc.Flags {
		if name == "config" {
			continue
		}
		if fs.Lookup(name) == nil {
			return errors.Errorf("%s: unknown flag %q", filename, name)
		}
		if err := fs.Set(name, fmt.Sprint(value)); err != nil {
			return errors.Wrapf(err, "%s: flag %q", filename, name)
		}
	}

	log.WithField("config", filename).Debug("loaded config file")
	return nil
}

// SetupLogging configures logrus from -loglevel and -logfile.
func SetupLogging() (io.Closer, error) {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return nil, errors.Wrap(err, "loglevel")
	}
	log.SetLevel(level)

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05.000000",
	})

	if *logFile == "" {
		log.SetOutput(os.Stderr)
		return ioutil.NopCloser(nil), nil
	}

	lj := &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	log.SetOutput(lj)

	return lj, nil
}
