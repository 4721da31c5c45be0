// Package partition enumerates bipartitions and directed tripartitions of
// node sets in a fixed canonical order, and models the cuts and
// mechanism/purview parts built from them. The enumeration order is
// load-bearing: MIP tie-breaking picks the earliest candidate among equals,
// so it must be stable across runs.
package partition

// #region enumeration

// IndexPair is an ordered bipartition of integer positions.
type IndexPair struct {
	First  []int
	Second []int
}

// IndexTriple is an ordered tripartition of integer positions.
type IndexTriple struct {
	First  []int
	Second []int
	Third  []int
}

// BipartitionIndices returns the 2^(n-1) bipartitions of n positions.
// Canonical order: a bitmask runs from 0 to 2^(n-1)-1; bit k assigns
// position k to the first group, otherwise the second. Indices within each
// group are ascending. The reflected duplicate of each bipartition is not
// emitted.
func BipartitionIndices(n int) []IndexPair {
	if n <= 0 {
		return nil
	}
	result := make([]IndexPair, 0, 1<<(n-1))
	for mask := 0; mask < 1<<(n-1); mask++ {
		var first, second []int
		for k := 0; k < n; k++ {
			if (mask>>k)&1 == 1 {
				first = append(first, k)
			} else {
				second = append(second, k)
			}
		}
		result = append(result, IndexPair{First: first, Second: second})
	}
	return result
}

// Bipartitions maps BipartitionIndices through a concrete index set.
func Bipartitions(set []int) []IndexPair {
	pairs := BipartitionIndices(len(set))
	result := make([]IndexPair, len(pairs))
	for i, p := range pairs {
		result[i] = IndexPair{First: pick(set, p.First), Second: pick(set, p.Second)}
	}
	return result
}

// DirectedTripartitions returns all 3^n ordered assignments of n positions
// to three groups. Canonical order: a base-3 mask runs from 0 to 3^n-1;
// digit k assigns position k to that group. Groups are ordered, so no
// reflections are removed.
func DirectedTripartitions(n int) []IndexTriple {
	if n < 0 {
		return nil
	}
	total := 1
	for i := 0; i < n; i++ {
		total *= 3
	}
	result := make([]IndexTriple, 0, total)
	for mask := 0; mask < total; mask++ {
		var groups [3][]int
		m := mask
		for k := 0; k < n; k++ {
			groups[m%3] = append(groups[m%3], k)
			m /= 3
		}
		result = append(result, IndexTriple{First: groups[0], Second: groups[1], Third: groups[2]})
	}
	return result
}

func pick(set []int, idx []int) []int {
	if len(idx) == 0 {
		return nil
	}
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = set[j]
	}
	return out
}

// #endregion enumeration

// #region parts

// Part pairs a mechanism fragment with a purview fragment. Either side may
// be empty.
type Part struct {
	Mechanism []int
	Purview   []int
}

// Empty reports whether the part has neither mechanism nor purview nodes.
func (p Part) Empty() bool {
	return len(p.Mechanism) == 0 && len(p.Purview) == 0
}

// Size returns the total node count of the part.
func (p Part) Size() int {
	return len(p.Mechanism) + len(p.Purview)
}

// Pair is one candidate partition of a mechanism/purview repertoire into two
// independent parts.
type Pair struct {
	Part0 Part
	Part1 Part
}

// MipBipartitions returns the candidate partitions for a mechanism/purview
// search: every combination of one mechanism bipartition with one purview
// bipartition, in canonical order (mechanism outer, purview inner, straight
// orientation before swapped). Purview bipartitions pair in both
// orientations because Part0/Part1 assignment breaks the reflective
// symmetry of the plain enumeration. Candidates containing a part that is
// empty on both sides are excluded, since such a candidate reproduces the
// unpartitioned repertoire.
func MipBipartitions(mechanism, purview []int) []Pair {
	var result []Pair
	add := func(p Pair) {
		if p.Part0.Empty() || p.Part1.Empty() {
			return
		}
		result = append(result, p)
	}
	for _, mb := range Bipartitions(mechanism) {
		for _, pb := range Bipartitions(purview) {
			add(Pair{
				Part0: Part{Mechanism: mb.First, Purview: pb.First},
				Part1: Part{Mechanism: mb.Second, Purview: pb.Second},
			})
			add(Pair{
				Part0: Part{Mechanism: mb.First, Purview: pb.Second},
				Part1: Part{Mechanism: mb.Second, Purview: pb.First},
			})
		}
	}
	return result
}

// #endregion parts

// #region cuts

// Cut severs the connections from one set of nodes to another. The reverse
// direction is preserved.
type Cut struct {
	Severed []int
	Intact  []int
}

// Apply returns a copy of the connectivity matrix with severed→intact
// entries zeroed. The original matrix is never modified.
func (c Cut) Apply(cm [][]int) [][]int {
	out := copyCM(cm)
	for _, i := range c.Severed {
		for _, j := range c.Intact {
			out[i][j] = 0
		}
	}
	return out
}

// SystemCuts returns the directed cuts of a node set in canonical order:
// for each bipartition with two non-empty groups, first→second followed by
// second→first.
func SystemCuts(nodes []int) []Cut {
	var cuts []Cut
	for _, b := range Bipartitions(nodes) {
		if len(b.First) == 0 || len(b.Second) == 0 {
			continue
		}
		cuts = append(cuts,
			Cut{Severed: b.First, Intact: b.Second},
			Cut{Severed: b.Second, Intact: b.First},
		)
	}
	return cuts
}

// ApplyBoundaryConditions returns a copy of the connectivity matrix with all
// connections to or from the external nodes removed.
func ApplyBoundaryConditions(external []int, cm [][]int) [][]int {
	out := copyCM(cm)
	for _, i := range external {
		for j := range out {
			out[i][j] = 0
			out[j][i] = 0
		}
	}
	return out
}

// InputsOf returns the nodes with a connection into the given node.
func InputsOf(index int, cm [][]int) []int {
	var in []int
	for i := range cm {
		if cm[i][index] != 0 {
			in = append(in, i)
		}
	}
	return in
}

// OutputsOf returns the nodes the given node connects to.
func OutputsOf(index int, cm [][]int) []int {
	var out []int
	for j := range cm[index] {
		if cm[index][j] != 0 {
			out = append(out, j)
		}
	}
	return out
}

func copyCM(cm [][]int) [][]int {
	out := make([][]int, len(cm))
	for i, row := range cm {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// #endregion cuts
