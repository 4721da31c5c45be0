// Package dist builds and reshapes probability distributions over node
// subsets: uniform and max-entropy constructions, TPM conditioning, and the
// state-by-state to state-by-node conversion.
package dist

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/phi-engine/internal/convention"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// Tolerance is the default numeric tolerance for probability-mass checks and
// phi comparisons.
const Tolerance = 1e-10

// ErrInvalidTPM marks a malformed transition probability model.
var ErrInvalidTPM = errors.New("invalid state-by-state tpm")

// #region constructions

// Uniform returns the uniform distribution over n binary nodes, shaped with
// one axis of length 2 per node.
func Uniform(n int) *tensor.Dense {
	shape := make([]int, n)
	for i := range shape {
		shape[i] = 2
	}
	t := tensor.New(shape...)
	p := 1.0 / float64(t.Size())
	return fill(t, p)
}

// MaxEntropy returns the maximum entropy distribution over the given node
// subset within a network of n nodes. Non-member axes are singletons: those
// nodes are fixed and contribute no entropy, which is what distinguishes this
// from the network-wide uniform distribution.
func MaxEntropy(subset []int, n int) *tensor.Dense {
	member := make(map[int]bool, len(subset))
	for _, i := range subset {
		member[i] = true
	}
	shape := make([]int, n)
	for i := range shape {
		if member[i] {
			shape[i] = 2
		} else {
			shape[i] = 1
		}
	}
	t := tensor.New(shape...)
	return fill(t, 1.0/float64(t.Size()))
}

func fill(t *tensor.Dense, v float64) *tensor.Dense {
	out, err := tensor.FromData(constSlice(t.Size(), v), t.Shape()...)
	if err != nil {
		panic(err) // shape and length agree by construction
	}
	return out
}

func constSlice(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// #endregion constructions

// #region condition

// Condition restricts a TPM to the given state on the fixed node axes. The
// fixed axes collapse onto their state as singletons, so rank is preserved
// and the result still broadcasts against full-shape tensors.
func Condition(tpm *tensor.Dense, fixed []int, state []int) *tensor.Dense {
	out := tpm
	for _, i := range fixed {
		out = out.Fix(i, state[i])
	}
	return out
}

// MarginalizeOut sums a node's axis out of a distribution and divides by the
// axis length. This is the max-entropy marginalization: the removed node is
// replaced by an uninformative input, which is not the same operation as a
// Bayesian marginal (that would renormalize by the resulting sum). The
// distinction is what makes downstream max-entropy constructions correct.
func MarginalizeOut(axis int, t *tensor.Dense) *tensor.Dense {
	n := t.Shape()[axis]
	return t.SumAxis(axis, true).Scale(1.0 / float64(n))
}

// #endregion condition

// #region convert

// FromStateByState converts a square state-by-state TPM, with row and column
// indices under the HOLI convention, into a state-by-node tensor with one
// axis of length 2 per node and a trailing axis of length n holding each
// node's activation probability.
func FromStateByState(m [][]float64) (*tensor.Dense, error) {
	if err := ValidateStateByState(m); err != nil {
		return nil, err
	}
	s := len(m)
	n := bits(s)

	shape := make([]int, n+1)
	for i := 0; i < n; i++ {
		shape[i] = 2
	}
	shape[n] = n
	sbn := tensor.New(shape...)

	states := make([][]int, s)
	for i := range states {
		states[i] = convention.IndexToState(i, n, convention.HOLI)
	}

	index := make([]int, n+1)
	for i := 0; i < s; i++ {
		copy(index, states[i])
		for node := 0; node < n; node++ {
			// Probability that this node is on in the next state,
			// given past state i.
			p := 0.0
			for j := 0; j < s; j++ {
				if states[j][node] == 1 {
					p += m[i][j]
				}
			}
			index[n] = node
			sbn.Set(p, index...)
		}
	}
	return sbn, nil
}

// ValidateStateByState checks squareness, a power-of-two side, and
// row-stochasticity within Tolerance.
func ValidateStateByState(m [][]float64) error {
	s := len(m)
	if s == 0 {
		return fmt.Errorf("%w: empty matrix", ErrInvalidTPM)
	}
	if n := bits(s); 1<<n != s {
		return fmt.Errorf("%w: side %d is not a power of two", ErrInvalidTPM, s)
	}
	for i, row := range m {
		if len(row) != s {
			return fmt.Errorf("%w: row %d has length %d, want %d", ErrInvalidTPM, i, len(row), s)
		}
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if math.Abs(sum-1) > Tolerance {
			return fmt.Errorf("%w: row %d sums to %g", ErrInvalidTPM, i, sum)
		}
	}
	return nil
}

func bits(s int) int {
	n := 0
	for 1<<n < s {
		n++
	}
	return n
}

// #endregion convert
