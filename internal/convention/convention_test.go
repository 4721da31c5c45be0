package convention

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndexToStateLOLI(t *testing.T) {
	got := IndexToState(1, 5, LOLI)
	want := []int{1, 0, 0, 0, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	got = IndexToState(7, 8, LOLI)
	want = []int{1, 1, 1, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexToStateHOLI(t *testing.T) {
	got := IndexToState(1, 5, HOLI)
	want := []int{0, 0, 0, 0, 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripBothOrders(t *testing.T) {
	for n := 0; n <= 6; n++ {
		for i := 0; i < 1<<n; i++ {
			for _, order := range []BitOrder{LOLI, HOLI} {
				if got := StateToIndex(IndexToState(i, n, order), order); got != i {
					t.Fatalf("round trip failed: n=%d i=%d order=%s got=%d", n, i, order, got)
				}
			}
		}
	}
}

func TestConventionsAreBitReversals(t *testing.T) {
	for n := 0; n <= 6; n++ {
		for i := 0; i < 1<<n; i++ {
			loli := IndexToState(i, n, LOLI)
			holi := IndexToState(i, n, HOLI)
			for b := range loli {
				if loli[b] != holi[n-1-b] {
					t.Fatalf("n=%d i=%d: LOLI %v is not the reverse of HOLI %v", n, i, loli, holi)
				}
			}
		}
	}
}

func TestPowerset(t *testing.T) {
	got := Powerset([]int{0, 1})
	want := [][]int{{}, {0}, {1}, {0, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("powerset mismatch (-want +got):\n%s", diff)
	}
}

func TestCombinations(t *testing.T) {
	got := Combinations([]int{0, 1, 2}, 2)
	want := [][]int{{0, 1}, {0, 2}, {1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("combinations mismatch (-want +got):\n%s", diff)
	}
	if got := Combinations([]int{0, 1, 2}, 0); len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("expected single empty combination, got %v", got)
	}
}
