// Package subsystem conditions a network on a candidate subsystem and
// computes cause and effect repertoires for mechanism/purview pairs. A
// Subsystem is immutable; applying a cut yields a new value.
package subsystem

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/phi-engine/internal/dist"
	"github.com/danielpatrickdp/phi-engine/internal/network"
	"github.com/danielpatrickdp/phi-engine/internal/partition"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// ErrNotADistribution marks a repertoire that failed the probability-mass
// invariant. It indicates an upstream defect and aborts the search.
var ErrNotADistribution = errors.New("repertoire does not sum to 1")

// #region subsystem

// Subsystem is a candidate set of nodes in a fixed network state. External
// nodes are background: their state is held fixed and their connections are
// severed from the candidate set.
type Subsystem struct {
	net      *network.Network
	state    []int
	nodes    []int
	external []int
	member   map[int]bool
	cm       [][]int // boundary conditions and any cut applied
	nodeTPMs []*tensor.Dense
}

// New validates the state and node set and builds the subsystem.
func New(net *network.Network, state []int, nodes []int) (*Subsystem, error) {
	if err := net.ValidateState(state); err != nil {
		return nil, err
	}
	member := make(map[int]bool, len(nodes))
	for _, i := range nodes {
		if i < 0 || i >= net.Size() {
			return nil, &network.ValidationError{Violations: []network.Violation{{
				Type:   network.ViolationIndex,
				Reason: fmt.Sprintf("node %d outside network of size %d", i, net.Size()),
			}}}
		}
		if member[i] {
			return nil, &network.ValidationError{Violations: []network.Violation{{
				Type:   network.ViolationIndex,
				Reason: fmt.Sprintf("node %d listed twice", i),
			}}}
		}
		member[i] = true
	}
	var external []int
	for i := 0; i < net.Size(); i++ {
		if !member[i] {
			external = append(external, i)
		}
	}
	s := &Subsystem{
		net:      net,
		state:    append([]int(nil), state...),
		nodes:    append([]int(nil), nodes...),
		external: external,
		member:   member,
		cm:       partition.ApplyBoundaryConditions(external, net.CM()),
	}
	s.buildNodeTPMs()
	return s, nil
}

// buildNodeTPMs conditions each node's activation tensor on the background
// state and marginalizes out every non-input axis under the current
// connectivity. A severed connection therefore contributes only an
// uninformative max-entropy input.
func (s *Subsystem) buildNodeTPMs() {
	n := s.net.Size()
	full := s.net.TPM()
	// Background: external node axes collapse onto their fixed state.
	conditioned := dist.Condition(full, s.external, s.state)
	s.nodeTPMs = make([]*tensor.Dense, n)
	for _, i := range s.nodes {
		t := conditioned.Fix(n, i).SumAxis(n, false)
		for _, j := range s.nodes {
			if s.cm[j][i] == 0 {
				t = dist.MarginalizeOut(j, t)
			}
		}
		s.nodeTPMs[i] = t
	}
}

// Nodes returns the subsystem's node indices.
func (s *Subsystem) Nodes() []int { return append([]int(nil), s.nodes...) }

// State returns the full-network state vector.
func (s *Subsystem) State() []int { return append([]int(nil), s.state...) }

// Network returns the underlying network.
func (s *Subsystem) Network() *network.Network { return s.net }

// CM returns a copy of the effective connectivity matrix.
func (s *Subsystem) CM() [][]int {
	out := make([][]int, len(s.cm))
	for i, row := range s.cm {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// WithCut returns a copy of the subsystem with the cut's severed→intact
// connections removed.
func (s *Subsystem) WithCut(cut partition.Cut) *Subsystem {
	c := &Subsystem{
		net:      s.net,
		state:    s.state,
		nodes:    s.nodes,
		external: s.external,
		member:   s.member,
		cm:       cut.Apply(s.cm),
	}
	c.buildNodeTPMs()
	return c
}

func (s *Subsystem) checkMembers(kind string, indices []int) error {
	for _, i := range indices {
		if !s.member[i] {
			return &network.ValidationError{Violations: []network.Violation{{
				Type:   network.ViolationIndex,
				Reason: fmt.Sprintf("%s node %d is not part of the subsystem", kind, i),
			}}}
		}
	}
	return nil
}

// #endregion subsystem

// #region effect

// EffectRepertoire returns the distribution over next states of the purview
// given the mechanism in its current state. Nodes condition independently,
// so the repertoire is the product of per-node activation distributions.
// An empty purview yields the scalar repertoire 1.
func (s *Subsystem) EffectRepertoire(mechanism, purview []int) (*tensor.Dense, error) {
	if err := s.checkMembers("mechanism", mechanism); err != nil {
		return nil, err
	}
	if err := s.checkMembers("purview", purview); err != nil {
		return nil, err
	}
	n := s.net.Size()
	result := scalarOne(n)
	for _, p := range purview {
		q := s.nodeTPMs[p]
		// Mechanism inputs are fixed to their current state; remaining
		// inputs outside the mechanism are uninformative.
		for _, m := range mechanism {
			if q.Shape()[m] == 2 {
				q = q.Fix(m, s.state[m])
			}
		}
		for j := 0; j < n; j++ {
			if q.Shape()[j] == 2 {
				q = dist.MarginalizeOut(j, q)
			}
		}
		on := q.Sum() // all axes are singletons now
		rep := nodeRepertoire(p, n, on)
		var err error
		result, err = result.Mul(rep)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// #endregion effect

// #region cause

// CauseRepertoire returns the distribution over past states of the purview
// given the mechanism in its current state, by Bayes' rule over the purview
// state space. An empty mechanism constrains nothing and yields the
// max-entropy distribution over the purview.
func (s *Subsystem) CauseRepertoire(mechanism, purview []int) (*tensor.Dense, error) {
	if err := s.checkMembers("mechanism", mechanism); err != nil {
		return nil, err
	}
	if err := s.checkMembers("purview", purview); err != nil {
		return nil, err
	}
	n := s.net.Size()
	if len(purview) == 0 {
		return scalarOne(n), nil
	}
	if len(mechanism) == 0 {
		return dist.MaxEntropy(purview, n), nil
	}
	inPurview := make(map[int]bool, len(purview))
	for _, p := range purview {
		inPurview[p] = true
	}
	joint := scalarOne(n)
	for _, m := range mechanism {
		t := s.nodeTPMs[m]
		// Likelihood of this node's current state for each past state.
		pm := t
		if s.state[m] == 0 {
			pm = t.Apply(func(v float64) float64 { return 1 - v })
		}
		for j := 0; j < n; j++ {
			if !inPurview[j] && pm.Shape()[j] == 2 {
				pm = dist.MarginalizeOut(j, pm)
			}
		}
		var err error
		joint, err = joint.Mul(pm)
		if err != nil {
			return nil, err
		}
	}
	mass := joint.Sum()
	if mass <= 0 {
		// An impossible mechanism state constrains nothing.
		return dist.MaxEntropy(purview, n), nil
	}
	joint = joint.Scale(1 / mass)
	// Purview nodes that feed no mechanism node stayed singleton; they are
	// unconstrained and spread uniformly.
	var missing []int
	for _, p := range purview {
		if joint.Shape()[p] == 1 {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		spread, err := joint.Mul(dist.MaxEntropy(missing, n))
		if err != nil {
			return nil, err
		}
		joint = spread
	}
	return joint, nil
}

// #endregion cause

// #region helpers

// CheckRepertoire verifies the probability-mass invariant before a
// repertoire is scored.
func CheckRepertoire(r *tensor.Dense, tol float64) error {
	if sum := r.Sum(); math.Abs(sum-1) > tol {
		return fmt.Errorf("%w: mass %g", ErrNotADistribution, sum)
	}
	return nil
}

func scalarOne(n int) *tensor.Dense {
	shape := make([]int, n)
	for i := range shape {
		shape[i] = 1
	}
	t := tensor.New(shape...)
	index := make([]int, n)
	t.Set(1, index...)
	return t
}

// nodeRepertoire builds the [1-p, p] distribution for one node, padded with
// singleton axes to the full network rank.
func nodeRepertoire(node, n int, on float64) *tensor.Dense {
	shape := make([]int, n)
	for i := range shape {
		shape[i] = 1
	}
	shape[node] = 2
	t := tensor.New(shape...)
	index := make([]int, n)
	t.Set(1-on, index...)
	index[node] = 1
	t.Set(on, index...)
	return t
}

// #endregion helpers
