package subsystem

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/phi-engine/internal/dist"
	"github.com/danielpatrickdp/phi-engine/internal/network"
	"github.com/danielpatrickdp/phi-engine/internal/partition"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// copyNetwork builds a two-node network where each node copies the other's
// previous state.
func copyNetwork(t *testing.T) *network.Network {
	t.Helper()
	tpm := tensor.New(2, 2, 2)
	for s0 := 0; s0 < 2; s0++ {
		for s1 := 0; s1 < 2; s1++ {
			tpm.Set(float64(s1), s0, s1, 0)
			tpm.Set(float64(s0), s0, s1, 1)
		}
	}
	cm := [][]int{{0, 1}, {1, 0}}
	net, err := network.New(tpm, cm, nil)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// noiseNetwork builds a two-node network with no connections: each node is
// on with probability 0.5 regardless of the past.
func noiseNetwork(t *testing.T) *network.Network {
	t.Helper()
	tpm := tensor.New(2, 2, 2)
	for s0 := 0; s0 < 2; s0++ {
		for s1 := 0; s1 < 2; s1++ {
			tpm.Set(0.5, s0, s1, 0)
			tpm.Set(0.5, s0, s1, 1)
		}
	}
	net, err := network.New(tpm, [][]int{{0, 0}, {0, 0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

func TestEffectRepertoireCopyGate(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	// Node 1 copies node 0, which is on: node 1 must turn on.
	rep, err := sub.EffectRepertoire([]int{0}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if got := rep.At(0, 1); math.Abs(got-1) > dist.Tolerance {
		t.Fatalf("P(node1'=1) = %v, want 1", got)
	}
	if err := CheckRepertoire(rep, dist.Tolerance); err != nil {
		t.Fatal(err)
	}
}

func TestCauseRepertoireCopyGate(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	// Node 1 is off and copies node 0: node 0 must have been off.
	rep, err := sub.CauseRepertoire([]int{1}, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	if got := rep.At(0, 0); math.Abs(got-1) > dist.Tolerance {
		t.Fatalf("P(past node0=0) = %v, want 1", got)
	}
	if err := CheckRepertoire(rep, dist.Tolerance); err != nil {
		t.Fatal(err)
	}
}

func TestEmptyMechanismCauseIsMaxEntropy(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	rep, err := sub.CauseRepertoire(nil, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !tensor.AllClose(rep, dist.MaxEntropy([]int{0, 1}, 2), dist.Tolerance) {
		t.Fatalf("unconstrained cause repertoire should be max entropy, got %v", rep.Ravel())
	}
}

func TestEmptyPurviewIsScalarOne(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	cause, err := sub.CauseRepertoire([]int{0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	effect, err := sub.EffectRepertoire([]int{0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cause.Sum() != 1 || effect.Sum() != 1 {
		t.Fatalf("empty purview repertoires must be the scalar 1: %v, %v", cause.Sum(), effect.Sum())
	}
}

func TestDisconnectedMechanismConstrainsNothing(t *testing.T) {
	sub, err := New(noiseNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	cause, err := sub.CauseRepertoire([]int{0}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if !tensor.AllClose(cause, dist.MaxEntropy([]int{1}, 2), dist.Tolerance) {
		t.Fatalf("disconnected cause repertoire should be max entropy, got %v", cause.Ravel())
	}
	effect, err := sub.EffectRepertoire([]int{0}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if got := effect.At(0, 1); math.Abs(got-0.5) > dist.Tolerance {
		t.Fatalf("disconnected effect P(on) = %v, want 0.5", got)
	}
}

func TestCutSeversInfluence(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	cut := sub.WithCut(partition.Cut{Severed: []int{0}, Intact: []int{1}})
	// With 0→1 severed, node 1 sees only noise from node 0.
	rep, err := cut.EffectRepertoire([]int{0}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if got := rep.At(0, 1); math.Abs(got-0.5) > dist.Tolerance {
		t.Fatalf("cut effect P(node1'=1) = %v, want 0.5", got)
	}
	// The uncut subsystem is unchanged.
	orig, err := sub.EffectRepertoire([]int{0}, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if got := orig.At(0, 1); math.Abs(got-1) > dist.Tolerance {
		t.Fatalf("original subsystem was affected by the cut: %v", got)
	}
}

func TestRepertoiresSumToOne(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	mechanisms := [][]int{nil, {0}, {1}, {0, 1}}
	purviews := [][]int{{0}, {1}, {0, 1}}
	for _, m := range mechanisms {
		for _, p := range purviews {
			cause, err := sub.CauseRepertoire(m, p)
			if err != nil {
				t.Fatal(err)
			}
			if err := CheckRepertoire(cause, dist.Tolerance); err != nil {
				t.Fatalf("cause %v/%v: %v", m, p, err)
			}
			effect, err := sub.EffectRepertoire(m, p)
			if err != nil {
				t.Fatal(err)
			}
			if err := CheckRepertoire(effect, dist.Tolerance); err != nil {
				t.Fatalf("effect %v/%v: %v", m, p, err)
			}
		}
	}
}

func TestOutOfSubsystemIndicesRejected(t *testing.T) {
	sub, err := New(copyNetwork(t), []int{1, 0}, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	var verr *network.ValidationError
	if _, err := sub.CauseRepertoire([]int{1}, []int{0}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for outside mechanism, got %v", err)
	}
	if _, err := sub.EffectRepertoire([]int{0}, []int{1}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for outside purview, got %v", err)
	}
}

func TestCheckRepertoire(t *testing.T) {
	bad, _ := tensor.FromData([]float64{0.5, 0.4}, 2)
	if err := CheckRepertoire(bad, dist.Tolerance); !errors.Is(err, ErrNotADistribution) {
		t.Fatalf("expected ErrNotADistribution, got %v", err)
	}
}
