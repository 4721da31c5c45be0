// Package emd computes the Earth Mover's Distance between repertoires using
// the Hamming distance between state indices as the transportation cost. The
// transportation problem is solved exactly with successive shortest path
// augmentation; state spaces here are small (2^n for subset size n), so the
// dense formulation is fine.
package emd

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/danielpatrickdp/phi-engine/internal/tensor"
)

// massEpsilon is the smallest probability mass worth transporting.
const massEpsilon = 1e-14

// #region hamming

// HammingMatrix returns the 2^n x 2^n matrix of Hamming distances between
// the binary states of n nodes: entry (i,j) is the number of differing bits
// between state indices i and j. Exponential in n; callers memoize it.
func HammingMatrix(n int) [][]float64 {
	size := 1 << n
	m := make([][]float64, size)
	for i := range m {
		m[i] = make([]float64, size)
		for j := range m[i] {
			m[i][j] = float64(bits.OnesCount(uint(i ^ j)))
		}
	}
	return m
}

// Hamming returns the EMD between two repertoires over the same node subset.
// Singleton axes are squeezed from both before flattening; the flattened
// lengths must match.
func Hamming(d1, d2 *tensor.Dense) (float64, error) {
	s1 := d1.Squeeze()
	s2 := d2.Squeeze()
	if s1.Size() != s2.Size() {
		return 0, fmt.Errorf("emd: repertoire sizes differ: %d vs %d", s1.Size(), s2.Size())
	}
	return Ground(s1.Ravel(), s2.Ravel(), HammingMatrix(s1.Rank()))
}

// HammingWithCost is Hamming with a precomputed (typically cached) cost
// matrix for the squeezed rank.
func HammingWithCost(d1, d2 *tensor.Dense, cost [][]float64) (float64, error) {
	s1 := d1.Squeeze()
	s2 := d2.Squeeze()
	if s1.Size() != s2.Size() {
		return 0, fmt.Errorf("emd: repertoire sizes differ: %d vs %d", s1.Size(), s2.Size())
	}
	if len(cost) != s1.Size() {
		return 0, fmt.Errorf("emd: cost matrix size %d does not match repertoire size %d", len(cost), s1.Size())
	}
	return Ground(s1.Ravel(), s2.Ravel(), cost)
}

// #endregion hamming

// #region transport

// Ground solves the transportation problem between two equal-length
// histograms under the given ground cost matrix and returns the minimum
// total cost. Identical histograms cost exactly zero.
func Ground(supply, demand []float64, cost [][]float64) (float64, error) {
	if len(supply) != len(demand) {
		return 0, fmt.Errorf("emd: histogram lengths differ: %d vs %d", len(supply), len(demand))
	}
	identical := true
	for i := range supply {
		if math.Abs(supply[i]-demand[i]) > massEpsilon {
			identical = false
			break
		}
	}
	if identical {
		return 0, nil
	}

	// Moving shared mass in place is free, so only the surpluses travel.
	var from, to []node
	for i := range supply {
		excess := supply[i] - demand[i]
		if excess > massEpsilon {
			from = append(from, node{index: i, mass: excess})
		} else if excess < -massEpsilon {
			to = append(to, node{index: i, mass: -excess})
		}
	}
	return minCostTransport(from, to, cost), nil
}

type node struct {
	index int
	mass  float64
}

// minCostTransport runs successive shortest path augmentation over the
// residual network source → suppliers → consumers → sink.
func minCostTransport(from, to []node, cost [][]float64) float64 {
	// Node numbering: 0 = source, 1..F = suppliers, F+1..F+T = consumers,
	// F+T+1 = sink.
	f, t := len(from), len(to)
	total := f + t + 2
	sink := total - 1

	type edge struct {
		to   int
		rev  int
		cap  float64
		cost float64
	}
	adj := make([][]edge, total)
	addEdge := func(a, b int, cap, c float64) {
		adj[a] = append(adj[a], edge{to: b, rev: len(adj[b]), cap: cap, cost: c})
		adj[b] = append(adj[b], edge{to: a, rev: len(adj[a]) - 1, cap: 0, cost: -c})
	}

	remaining := 0.0
	for i, s := range from {
		addEdge(0, 1+i, s.mass, 0)
		remaining += s.mass
	}
	for j, d := range to {
		addEdge(1+f+j, sink, d.mass, 0)
	}
	for i, s := range from {
		for j, d := range to {
			addEdge(1+i, 1+f+j, math.Inf(1), cost[s.index][d.index])
		}
	}

	totalCost := 0.0
	dist := make([]float64, total)
	prevNode := make([]int, total)
	prevEdge := make([]int, total)
	for remaining > massEpsilon {
		// Bellman-Ford over the residual graph; residual arcs carry
		// negative costs, so Dijkstra is not applicable directly.
		for i := range dist {
			dist[i] = math.Inf(1)
			prevNode[i] = -1
		}
		dist[0] = 0
		for iter := 0; iter < total; iter++ {
			updated := false
			for u := 0; u < total; u++ {
				if math.IsInf(dist[u], 1) {
					continue
				}
				for ei, e := range adj[u] {
					if e.cap <= massEpsilon {
						continue
					}
					if nd := dist[u] + e.cost; nd < dist[e.to]-1e-15 {
						dist[e.to] = nd
						prevNode[e.to] = u
						prevEdge[e.to] = ei
						updated = true
					}
				}
			}
			if !updated {
				break
			}
		}
		if prevNode[sink] == -1 {
			break
		}
		// Bottleneck along the path.
		flow := math.Inf(1)
		for v := sink; v != 0; v = prevNode[v] {
			e := adj[prevNode[v]][prevEdge[v]]
			if e.cap < flow {
				flow = e.cap
			}
		}
		for v := sink; v != 0; v = prevNode[v] {
			e := &adj[prevNode[v]][prevEdge[v]]
			e.cap -= flow
			adj[v][e.rev].cap += flow
			totalCost += flow * e.cost
		}
		remaining -= flow
	}
	return totalCost
}

// #endregion transport
