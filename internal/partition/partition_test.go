package partition

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBipartitionIndicesCanonicalOrder(t *testing.T) {
	got := BipartitionIndices(3)
	want := []IndexPair{
		{First: nil, Second: []int{0, 1, 2}},
		{First: []int{0}, Second: []int{1, 2}},
		{First: []int{1}, Second: []int{0, 2}},
		{First: []int{0, 1}, Second: []int{2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bipartitions (-want +got):\n%s", diff)
	}
}

func TestBipartitionIndicesCount(t *testing.T) {
	for n := 1; n <= 6; n++ {
		if got := len(BipartitionIndices(n)); got != 1<<(n-1) {
			t.Fatalf("n=%d: %d bipartitions, want %d", n, got, 1<<(n-1))
		}
	}
	if BipartitionIndices(0) != nil {
		t.Fatal("n=0 must yield no bipartitions")
	}
}

func TestBipartitionsMapsSet(t *testing.T) {
	got := Bipartitions([]int{2, 5, 7})
	want := []IndexPair{
		{First: nil, Second: []int{2, 5, 7}},
		{First: []int{2}, Second: []int{5, 7}},
		{First: []int{5}, Second: []int{2, 7}},
		{First: []int{2, 5}, Second: []int{7}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapped bipartitions (-want +got):\n%s", diff)
	}
}

func TestDirectedTripartitions(t *testing.T) {
	got := DirectedTripartitions(2)
	if len(got) != 9 {
		t.Fatalf("expected 9 tripartitions, got %d", len(got))
	}
	// Mask 0 assigns everything to the first group.
	if diff := cmp.Diff(IndexTriple{First: []int{0, 1}}, got[0]); diff != "" {
		t.Fatalf("first tripartition (-want +got):\n%s", diff)
	}
	// Every assignment covers all positions exactly once.
	for i, tri := range got {
		seen := map[int]int{}
		for _, g := range [][]int{tri.First, tri.Second, tri.Third} {
			for _, x := range g {
				seen[x]++
			}
		}
		if len(seen) != 2 || seen[0] != 1 || seen[1] != 1 {
			t.Fatalf("tripartition %d does not cover positions exactly once: %+v", i, tri)
		}
	}
}

func TestMipBipartitionsExcludesEmptyParts(t *testing.T) {
	pairs := MipBipartitions([]int{0}, []int{0, 1})
	if len(pairs) == 0 {
		t.Fatal("expected candidates")
	}
	for _, p := range pairs {
		if p.Part0.Empty() || p.Part1.Empty() {
			t.Fatalf("candidate with fully empty part emitted: %+v", p)
		}
	}
	// The trivial candidate (everything in one part) must be absent.
	for _, p := range pairs {
		if p.Part1.Empty() {
			t.Fatalf("null partition emitted: %+v", p)
		}
	}
}

func TestMipBipartitionsSingleton(t *testing.T) {
	pairs := MipBipartitions([]int{0}, []int{1})
	want := []Pair{{
		Part0: Part{Mechanism: nil, Purview: []int{1}},
		Part1: Part{Mechanism: []int{0}, Purview: nil},
	}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("singleton candidates (-want +got):\n%s", diff)
	}
}

func TestCutApplyIsAsymmetric(t *testing.T) {
	cm := [][]int{
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	}
	cut := Cut{Severed: []int{0}, Intact: []int{1, 2}}
	out := cut.Apply(cm)

	if out[0][1] != 0 || out[0][2] != 0 {
		t.Fatalf("severed→intact not zeroed: %v", out)
	}
	if out[1][0] != 1 || out[2][0] != 1 {
		t.Fatalf("intact→severed must be preserved: %v", out)
	}
	if out[1][2] != 1 || out[2][1] != 1 || out[0][0] != 1 {
		t.Fatalf("unrelated entries must be unchanged: %v", out)
	}
	// Original untouched.
	for i := range cm {
		for j := range cm[i] {
			if cm[i][j] != 1 {
				t.Fatalf("original matrix mutated at (%d,%d)", i, j)
			}
		}
	}
}

func TestSystemCutsBothDirections(t *testing.T) {
	cuts := SystemCuts([]int{0, 1})
	want := []Cut{
		{Severed: []int{0}, Intact: []int{1}},
		{Severed: []int{1}, Intact: []int{0}},
	}
	if diff := cmp.Diff(want, cuts); diff != "" {
		t.Fatalf("system cuts (-want +got):\n%s", diff)
	}
}

func TestApplyBoundaryConditions(t *testing.T) {
	cm := [][]int{
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	}
	out := ApplyBoundaryConditions([]int{2}, cm)
	for j := 0; j < 3; j++ {
		if out[2][j] != 0 || out[j][2] != 0 {
			t.Fatalf("external connections not removed: %v", out)
		}
	}
	if out[0][1] != 1 || out[1][0] != 1 {
		t.Fatalf("internal connections must survive: %v", out)
	}
}

func TestInputsOutputs(t *testing.T) {
	cm := [][]int{
		{0, 1, 0},
		{0, 0, 1},
		{1, 0, 0},
	}
	if diff := cmp.Diff([]int{2}, InputsOf(0, cm)); diff != "" {
		t.Fatalf("inputs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, OutputsOf(0, cm)); diff != "" {
		t.Fatalf("outputs (-want +got):\n%s", diff)
	}
}
