package emd

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

func TestHammingMatrixTwoNodes(t *testing.T) {
	got := HammingMatrix(2)
	want := [][]float64{
		{0, 1, 1, 2},
		{1, 0, 2, 1},
		{1, 2, 0, 1},
		{2, 1, 1, 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hamming matrix (-want +got):\n%s", diff)
	}
}

func TestSelfDistanceIsExactlyZero(t *testing.T) {
	d, _ := tensor.FromData([]float64{0.1, 0.2, 0.3, 0.4}, 2, 2)
	got, err := Hamming(d, d)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("self distance = %v, want exactly 0", got)
	}
}

func TestSymmetry(t *testing.T) {
	d1, _ := tensor.FromData([]float64{0.7, 0.1, 0.1, 0.1}, 2, 2)
	d2, _ := tensor.FromData([]float64{0.25, 0.25, 0.25, 0.25}, 2, 2)
	a, err := Hamming(d1, d2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Hamming(d2, d1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a-b) > 1e-10 {
		t.Fatalf("emd not symmetric: %v vs %v", a, b)
	}
	if a <= 0 {
		t.Fatalf("distance between distinct distributions must be positive, got %v", a)
	}
}

func TestSingleBitMove(t *testing.T) {
	// All mass at state 0 vs all mass at state 1: one bit flips, cost 1.
	d1, _ := tensor.FromData([]float64{1, 0}, 2)
	d2, _ := tensor.FromData([]float64{0, 1}, 2)
	got, err := Hamming(d1, d2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1) > 1e-10 {
		t.Fatalf("emd = %v, want 1", got)
	}
}

func TestTwoBitMove(t *testing.T) {
	// State 00 to state 11 is a two-bit move.
	d1, _ := tensor.FromData([]float64{1, 0, 0, 0}, 2, 2)
	d2, _ := tensor.FromData([]float64{0, 0, 0, 1}, 2, 2)
	got, err := Hamming(d1, d2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-2) > 1e-10 {
		t.Fatalf("emd = %v, want 2", got)
	}
}

func TestSplitMass(t *testing.T) {
	// Half the mass moves one bit, the rest stays.
	d1, _ := tensor.FromData([]float64{1, 0}, 2)
	d2, _ := tensor.FromData([]float64{0.5, 0.5}, 2)
	got, err := Hamming(d1, d2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.5) > 1e-10 {
		t.Fatalf("emd = %v, want 0.5", got)
	}
}

func TestSqueezedSingletonAxes(t *testing.T) {
	// Same subset described with different singleton padding.
	d1, _ := tensor.FromData([]float64{0.25, 0.75}, 1, 2, 1)
	d2, _ := tensor.FromData([]float64{0.75, 0.25}, 2, 1, 1)
	got, err := Hamming(d1, d2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.5) > 1e-10 {
		t.Fatalf("emd = %v, want 0.5", got)
	}
}

func TestSizeMismatchFails(t *testing.T) {
	d1, _ := tensor.FromData([]float64{0.5, 0.5}, 2)
	d2, _ := tensor.FromData([]float64{0.25, 0.25, 0.25, 0.25}, 2, 2)
	if _, err := Hamming(d1, d2); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestTriangleSanity(t *testing.T) {
	// EMD under a metric ground cost obeys the triangle inequality.
	a, _ := tensor.FromData([]float64{0.6, 0.2, 0.1, 0.1}, 2, 2)
	b, _ := tensor.FromData([]float64{0.1, 0.1, 0.2, 0.6}, 2, 2)
	c, _ := tensor.FromData([]float64{0.25, 0.25, 0.25, 0.25}, 2, 2)
	ab, _ := Hamming(a, b)
	ac, _ := Hamming(a, c)
	cb, _ := Hamming(c, b)
	if ab > ac+cb+1e-10 {
		t.Fatalf("triangle inequality violated: %v > %v + %v", ab, ac, cb)
	}
}
