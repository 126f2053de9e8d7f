package main

import (
	"bytes"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/bemasher/rtladsb/radio"
	"github.com/bemasher/rtladsb/traffic"
)

func testFlagSet(cfg *radio.Config) (fs *flag.FlagSet, format *string, interval *time.Duration) {
	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.IntVar(&cfg.Gain, "gain", cfg.Gain, "")
	fs.Var(uint32Value{&cfg.CenterFreq}, "centerfreq", "")
	format = fs.String("format", "plain", "")
	interval = fs.Duration("interval", time.Second, "")
	fs.String("config", "", "")
	return
}

func TestEnvOverride(t *testing.T) {
	cfg := radio.DefaultConfig()
	fs, format, _ := testFlagSet(&cfg)

	os.Setenv("RTLADSB_FORMAT", "json")
	os.Setenv("RTLADSB_GAIN", "notanumber")
	defer os.Unsetenv("RTLADSB_FORMAT")
	defer os.Unsetenv("RTLADSB_GAIN")

	EnvOverride(fs)
	if *format != "json" {
		t.Fatalf("expected json got %q\n", *format)
	}
	if cfg.Gain != 0 {
		t.Fatalf("invalid env value should be ignored, got gain %d\n", cfg.Gain)
	}

	// Command line wins over environment.
	if err := fs.Parse([]string{"-format", "csv"}); err != nil {
		t.Fatal(err)
	}
	if *format != "csv" {
		t.Fatalf("expected csv got %q\n", *format)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "rtladsb.yml")

	data := strings.Join([]string{
		"radio:",
		"  autogain: false",
		"  gain: 400",
		"  centerfreq: 1089000000",
		"format: xml",
		"interval: 5s",
	}, "\n")
	if err := ioutil.WriteFile(filename, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := radio.DefaultConfig()
	fs, format, interval := testFlagSet(&cfg)

	if err := LoadConfig(filename, fs, &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.AutoGain || cfg.Gain != 400 || cfg.CenterFreq != 1089000000 {
		t.Fatalf("radio section not applied: %+v\n", cfg)
	}
	if cfg.SampleRate != radio.SampleRate {
		t.Fatalf("unset radio fields should keep defaults: %+v\n", cfg)
	}
	if *format != "xml" || *interval != 5*time.Second {
		t.Fatalf("flags not applied: %q %s\n", *format, *interval)
	}

	// Re-parsing the command line overrides the file.
	if err := fs.Parse([]string{"-gain", "200"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Gain != 200 {
		t.Fatalf("expected command line gain 200 got %d\n", cfg.Gain)
	}
}

func TestLoadConfigFilterID(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rtladsb.yml")
	if err := ioutil.WriteFile(filename, []byte("filterid: A44728,A1B2C3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := radio.DefaultConfig()
	fs, _, _ := testFlagSet(&cfg)
	ids := make(traffic.ICAOFilter)
	fs.Var(ids, "filterid", "")

	if err := LoadConfig(filename, fs, &cfg); err != nil {
		t.Fatal(err)
	}
	if ids.String() != "A1B2C3,A44728" {
		t.Fatalf("config filter not applied: %s\n", ids)
	}

	if err := fs.Parse([]string{"-filterid", "AC2BB7"}); err != nil {
		t.Fatal(err)
	}
	if ids.String() != "AC2BB7" {
		t.Fatalf("command line should replace config filter, got %s\n", ids)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name, data string
	}{
		{"unknown flag", "nosuchflag: 1"},
		{"bad value", "interval: soon"},
		{"unknown radio key", "radio:\n  gian: 400"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			filename := filepath.Join(dir, strings.Replace(test.name, " ", "_", -1)+".yml")
			if err := ioutil.WriteFile(filename, []byte(test.data), 0644); err != nil {
				t.Fatal(err)
			}

			cfg := radio.DefaultConfig()
			fs, _, _ := testFlagSet(&cfg)
			if err := LoadConfig(filename, fs, &cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	cfg := radio.DefaultConfig()
	fs, _, _ := testFlagSet(&cfg)
	if err := LoadConfig(filepath.Join(dir, "missing.yml"), fs, &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHandleFlags(t *testing.T) {
	defer func(f string, p bool) {
		*format, *positionOnly = f, p
	}(*format, *positionOnly)

	*format = "CSV"
	*positionOnly = true

	buf := &bytes.Buffer{}
	fc, err := HandleFlags(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc) != 1 {
		t.Fatalf("expected position filter only, got %d filters\n", len(fc))
	}

	a := traffic.Aircraft{ICAO: 0xA44728, PositionValid: true}
	if !fc.Match(a) {
		t.Fatal("expected aircraft with position to match")
	}
	if err := encoder.Encode(a); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Time,ICAO,") || !strings.Contains(buf.String(), "A44728") {
		t.Fatalf("unexpected csv output: %q\n", buf.String())
	}

	*format = "gob"
	if _, err := HandleFlags(buf); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestUint32Value(t *testing.T) {
	var v uint32
	u := uint32Value{&v}

	if err := u.Set("1090000000"); err != nil || v != 1090000000 {
		t.Fatalf("unexpected value %d: %v\n", v, err)
	}
	if err := u.Set("5000000000"); err == nil {
		t.Fatal("expected overflow error")
	}
	if err := u.Set("-1"); err == nil {
		t.Fatal("expected error for negative value")
	}
	if u.String() != "1090000000" {
		t.Fatalf("unexpected string %q\n", u.String())
	}
}

// noDevices is a backend with nothing attached.
type noDevices struct{}

func (noDevices) DeviceCount() (int, error) { return 0, nil }
func (noDevices) DeviceInfo(int) (radio.DeviceInfo, error) { return radio.DeviceInfo{}, radio.ErrNotOpen }
func (noDevices) Open(index int) (radio.Device, error) { return nil, radio.ErrNotOpen }

func TestLogSettingsErrors(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	logSettings(radio.NewSession(noDevices{}))

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel && e.Data[log.ErrorKey] != nil {
			warnings++
		}
		if e.Message == "radio tuned" || e.Message == "radio gain" {
			t.Fatalf("logged settings from an unopened radio: %+v\n", e.Data)
		}
	}
	if warnings != 2 {
		t.Fatalf("expected 2 warnings got %d\n", warnings)
	}
}
