package tcp

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/bemasher/rtladsb/radio"
)

type command struct {
	Command   uint8
	Parameter uint32
}

// fakeServer speaks the server side of rtl_tcp: a dongle info header followed
// by a stream of 5-byte commands.
func fakeServer(t *testing.T, tuner, gainCount uint32) (addr string, cmds <-chan command) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	ch := make(chan command, 16)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}

			go func(conn net.Conn) {
				defer conn.Close()

				hdr := struct {
					Magic     [4]byte
					Tuner     uint32
					GainCount uint32
				}{[4]byte{'R', 'T', 'L', '0'}, tuner, gainCount}
				if err := binary.Write(conn, binary.BigEndian, hdr); err != nil {
					return
				}

				buf := make([]byte, 5)
				for {
					if _, err := io.ReadFull(conn, buf); err != nil {
						return
					}
					ch <- command{buf[0], binary.BigEndian.Uint32(buf[1:])}
				}
			}(conn)
		}
	}()

	return l.Addr().String(), ch
}

func expect(t *testing.T, cmds <-chan command, want command) {
	t.Helper()
	select {
	case got := <-cmds:
		if got != want {
			t.Fatalf("expected %+v got %+v\n", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %+v\n", want)
	}
}

func TestDeviceInfo(t *testing.T) {
	addr, _ := fakeServer(t, 5, 29)

	b, err := NewBackend(addr)
	if err != nil {
		t.Fatal(err)
	}

	count, err := b.DeviceCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 device got %d\n", count)
	}

	info, err := b.DeviceInfo(0)
	if err != nil {
		t.Fatal(err)
	}
	if info.Vendor != "rtl_tcp" || info.Product != "R820T" || info.Serial != addr {
		t.Fatalf("unexpected info: %+v\n", info)
	}

	if _, err := b.DeviceInfo(1); err == nil {
		t.Fatal("expected error for index 1")
	}
}

func TestCommands(t *testing.T) {
	addr, cmds := fakeServer(t, 5, 29)

	b, err := NewBackend(addr)
	if err != nil {
		t.Fatal(err)
	}

	dev, err := b.Open(0)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if err := dev.SetCenterFreq(1090000000); err != nil {
		t.Fatal(err)
	}
	expect(t, cmds, command{1, 1090000000})

	if err := dev.SetSampleRate(2000000); err != nil {
		t.Fatal(err)
	}
	expect(t, cmds, command{2, 2000000})

	if err := dev.SetTunerGainMode(true); err != nil {
		t.Fatal(err)
	}
	expect(t, cmds, command{3, 1})

	if err := dev.SetTunerGain(496); err != nil {
		t.Fatal(err)
	}
	expect(t, cmds, command{4, 496})

	if err := dev.SetFreqCorrection(-3); err != nil {
		t.Fatal(err)
	}
	expect(t, cmds, command{5, 0xFFFFFFFD})

	if dev.CenterFreq() != 1090000000 || dev.SampleRate() != 2000000 {
		t.Fatalf("cached tuning lost: %d %d\n", dev.CenterFreq(), dev.SampleRate())
	}
	if dev.TunerGain() != 496 || dev.FreqCorrection() != -3 {
		t.Fatalf("cached gain lost: %d %d\n", dev.TunerGain(), dev.FreqCorrection())
	}

	gains, err := dev.TunerGains()
	if err != nil {
		t.Fatal(err)
	}
	if len(gains) != 29 || gains[len(gains)-1] != 496 {
		t.Fatalf("unexpected gain table: %d\n", gains)
	}

	if err := dev.SetTunerGainMode(false); err != nil {
		t.Fatal(err)
	}
	expect(t, cmds, command{3, 0})
	if dev.TunerGain() != 0 {
		t.Fatalf("expected gain reset under agc, got %d\n", dev.TunerGain())
	}
}

func TestInterruptRead(t *testing.T) {
	addr, _ := fakeServer(t, 5, 29)

	b, err := NewBackend(addr)
	if err != nil {
		t.Fatal(err)
	}

	dev, err := b.Open(0)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	// The server never sends samples, so Read blocks until interrupted.
	errCh := make(chan error, 1)
	go func() {
		_, err := dev.Read(make([]byte, 512))
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := dev.(radio.Interrupter).Interrupt(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if netErr, ok := err.(net.Error); !ok || !netErr.Timeout() {
			t.Fatalf("expected timeout got %v\n", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read not interrupted")
	}
}

func TestSessionCloseStalledServer(t *testing.T) {
	addr, _ := fakeServer(t, 5, 29)

	b, err := NewBackend(addr)
	if err != nil {
		t.Fatal(err)
	}

	s := radio.NewSession(b)
	if err := s.Open(radio.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a stalled read")
	}

	if err := s.Err(); err != nil {
		t.Fatalf("expected clean stop got %v\n", err)
	}
}

func TestGainsCopy(t *testing.T) {
	g := Gains(1)
	g[0] = 1000
	if Gains(1)[0] != -10 {
		t.Fatal("gain table was modified through returned slice")
	}
	if Gains(4) != nil {
		t.Fatal("expected no gains for FC2580")
	}
}
