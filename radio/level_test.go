package radio

import (
	"crypto/rand"
	"math"
	"testing"
)

func TestMagLUTPower(t *testing.T) {
	lut := NewMagLUT()

	// Full scale on both axes.
	if p := lut.Power([]byte{0, 0, 255, 255}); math.Abs(p-2) > 1e-9 {
		t.Fatalf("expected power 2 got %f\n", p)
	}

	// Centered samples are near silence.
	if p := lut.Power([]byte{127, 128, 128, 127}); p > 1e-4 {
		t.Fatalf("expected near zero power got %f\n", p)
	}

	// Trailing odd byte is ignored.
	if p := lut.Power([]byte{0}); p != 0 {
		t.Fatalf("expected zero power for empty block got %f\n", p)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		power, level float64
	}{
		{0, MinLevel},
		{-1, MinLevel},
		{1e-20, MinLevel},
		{1, 0},
		{0.1, -10},
	}

	for _, test := range tests {
		if l := Level(test.power); math.Abs(l-test.level) > 1e-9 {
			t.Fatalf("power %g: expected %f got %f\n", test.power, test.level, l)
		}
	}
}

func TestNearestGain(t *testing.T) {
	gains := []int{-10, 15, 40, 65, 90, 420}

	tests := []struct {
		gain, want int
	}{
		{0, 420},
		{-5, 420},
		{16, 15},
		{80, 90},
		{1000, 420},
	}

	for _, test := range tests {
		if g := NearestGain(gains, test.gain); g != test.want {
			t.Fatalf("gain %d: expected %d got %d\n", test.gain, test.want, g)
		}
	}

	if g := NearestGain(nil, 197); g != 197 {
		t.Fatalf("expected passthrough with empty table, got %d\n", g)
	}
}

func BenchmarkMagLUTPower(b *testing.B) {
	lut := NewMagLUT()
	block := make([]byte, BlockSize)
	rand.Read(block)

	b.SetBytes(int64(len(block)))
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		lut.Power(block)
	}
}
