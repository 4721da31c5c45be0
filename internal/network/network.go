// Package network holds the validated transition probability model and
// connectivity structure the engine computes over. Validation collects every
// violation it finds before failing; nothing is silently corrected.
package network

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/phi-engine/internal/dist"
	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// #region violations

// ViolationType classifies a validation failure.
type ViolationType string

const (
	ViolationShape        ViolationType = "shape"
	ViolationStochastic   ViolationType = "stochastic"
	ViolationConnectivity ViolationType = "connectivity"
	ViolationState        ViolationType = "state"
	ViolationIndex        ViolationType = "index"
)

// Violation is one concrete validation failure.
type Violation struct {
	Type   ViolationType
	Reason string
}

// ValidationError aggregates every violation found in one pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	reasons := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		reasons[i] = fmt.Sprintf("%s: %s", v.Type, v.Reason)
	}
	return "invalid network: " + strings.Join(reasons, "; ")
}

// #endregion violations

// #region network

// Network is an immutable network description: a state-by-node TPM (one axis
// of length 2 per node plus a trailing node axis), a binary connectivity
// matrix, and optional node labels.
type Network struct {
	tpm    *tensor.Dense
	cm     [][]int
	labels []string
	n      int
}

// New validates and constructs a Network. The TPM must be in state-by-node
// form; use FromStateByState for the square form.
func New(tpm *tensor.Dense, cm [][]int, labels []string) (*Network, error) {
	var violations []Violation

	shape := tpm.Shape()
	n := len(shape) - 1
	if n < 1 {
		violations = append(violations, Violation{ViolationShape,
			fmt.Sprintf("tpm rank %d is too small for a state-by-node tpm", len(shape))})
	} else {
		for i := 0; i < n; i++ {
			if shape[i] != 2 {
				violations = append(violations, Violation{ViolationShape,
					fmt.Sprintf("tpm axis %d has length %d, want 2", i, shape[i])})
			}
		}
		if shape[n] != n {
			violations = append(violations, Violation{ViolationShape,
				fmt.Sprintf("tpm trailing axis has length %d, want %d", shape[n], n)})
		}
	}
	for _, p := range tpm.Ravel() {
		if p < -dist.Tolerance || p > 1+dist.Tolerance {
			violations = append(violations, Violation{ViolationStochastic,
				fmt.Sprintf("activation probability %g outside [0,1]", p)})
			break
		}
	}

	if len(cm) != n {
		violations = append(violations, Violation{ViolationConnectivity,
			fmt.Sprintf("connectivity matrix has %d rows, want %d", len(cm), n)})
	} else {
		for i, row := range cm {
			if len(row) != n {
				violations = append(violations, Violation{ViolationConnectivity,
					fmt.Sprintf("connectivity row %d has length %d, want %d", i, len(row), n)})
				continue
			}
			for j, v := range row {
				if v != 0 && v != 1 {
					violations = append(violations, Violation{ViolationConnectivity,
						fmt.Sprintf("connectivity entry (%d,%d) is %d, want 0 or 1", i, j, v)})
				}
			}
		}
	}

	if labels != nil && len(labels) != n {
		violations = append(violations, Violation{ViolationShape,
			fmt.Sprintf("%d labels for %d nodes", len(labels), n)})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	if labels == nil {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = fmt.Sprintf("n%d", i)
		}
	}
	return &Network{
		tpm:    tpm.Clone(),
		cm:     copyCM(cm),
		labels: append([]string(nil), labels...),
		n:      n,
	}, nil
}

// FromStateByState constructs a Network from a square state-by-state TPM
// (HOLI row and column indices).
func FromStateByState(m [][]float64, cm [][]int, labels []string) (*Network, error) {
	tpm, err := dist.FromStateByState(m)
	if err != nil {
		return nil, err
	}
	return New(tpm, cm, labels)
}

// Size returns the node count.
func (n *Network) Size() int { return n.n }

// TPM returns the state-by-node TPM. Callers must not mutate it.
func (n *Network) TPM() *tensor.Dense { return n.tpm }

// CM returns a copy of the connectivity matrix.
func (n *Network) CM() [][]int { return copyCM(n.cm) }

// Labels returns the node labels.
func (n *Network) Labels() []string { return append([]string(nil), n.labels...) }

// ValidateState checks a full-network state vector against this network.
func (n *Network) ValidateState(state []int) error {
	var violations []Violation
	if len(state) != n.n {
		violations = append(violations, Violation{ViolationState,
			fmt.Sprintf("state has length %d, want %d", len(state), n.n)})
	} else {
		for i, s := range state {
			if s != 0 && s != 1 {
				violations = append(violations, Violation{ViolationState,
					fmt.Sprintf("state element %d is %d, want 0 or 1", i, s)})
			}
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func copyCM(cm [][]int) [][]int {
	out := make([][]int, len(cm))
	for i, row := range cm {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// #endregion network
