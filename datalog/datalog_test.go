package datalog

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/bemasher/rtladsb/traffic"
)

func TestLogFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsb.db")

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for i := 0; i < BatchSize+50; i++ {
		l.Log(traffic.Aircraft{
			ICAO:     0xA00000 + uint32(i),
			Callsign: "FLG1724",
			Altitude: 5550,
			LastSeen: now,
		})
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// Logging after close is dropped silently.
	l.Log(traffic.Aircraft{})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM aircraft").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != BatchSize+50 {
		t.Fatalf("expected %d rows got %d\n", BatchSize+50, count)
	}

	var icao string
	var alt int
	if err := db.QueryRow("SELECT icao, altitude FROM aircraft ORDER BY id LIMIT 1").Scan(&icao, &alt); err != nil {
		t.Fatal(err)
	}
	if icao != "A00000" || alt != 5550 {
		t.Fatalf("unexpected row: %s %d\n", icao, alt)
	}
}

func TestLogReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsb.db")

	for i := 0; i < 2; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v\n", i, err)
		}
		l.Log(traffic.Aircraft{ICAO: 0xAC2BB7, LastSeen: time.Now()})
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOpenBadPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "adsb.db")); err == nil {
		t.Fatal("expected error opening database in missing directory")
	}
}
