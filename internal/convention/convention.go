package convention

// #region conventions

// BitOrder selects how integer state indices map onto per-node bits.
type BitOrder string

const (
	// LOLI: low-order bits correspond to low-index nodes. The least
	// significant bit gives the state of node 0.
	LOLI BitOrder = "loli"
	// HOLI: high-order bits correspond to low-index nodes. The most
	// significant bit gives the state of node 0.
	HOLI BitOrder = "holi"
)

// #endregion conventions

// #region index-state

// IndexToState converts a decimal state index to a binary state tuple of
// length n under the given bit order. The caller must ensure 0 <= i < 2^n.
func IndexToState(i int, n int, order BitOrder) []int {
	state := make([]int, n)
	for b := 0; b < n; b++ {
		state[b] = (i >> b) & 1
	}
	if order == HOLI {
		reverse(state)
	}
	return state
}

// StateToIndex converts a binary state tuple back to its decimal index under
// the given bit order. Inverse of IndexToState for every valid input.
func StateToIndex(state []int, order BitOrder) int {
	i := 0
	if order == HOLI {
		for b, s := range state {
			i |= s << (len(state) - 1 - b)
		}
		return i
	}
	for b, s := range state {
		i |= s << b
	}
	return i
}

func reverse(s []int) {
	for a, b := 0, len(s)-1; a < b; a, b = a+1, b-1 {
		s[a], s[b] = s[b], s[a]
	}
}

// #endregion index-state

// #region powerset

// Powerset returns all subsets of the given indices, ordered by size and
// lexicographically within each size. The empty set comes first.
func Powerset(indices []int) [][]int {
	result := [][]int{{}}
	for k := 1; k <= len(indices); k++ {
		result = append(result, Combinations(indices, k)...)
	}
	return result
}

// Combinations returns all k-element subsets of indices in lexicographic
// order, preserving the order of the input.
func Combinations(indices []int, k int) [][]int {
	if k < 0 || k > len(indices) {
		return nil
	}
	if k == 0 {
		return [][]int{{}}
	}
	var result [][]int
	cur := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(cur) == k {
			result = append(result, append([]int(nil), cur...))
			return
		}
		for i := start; i <= len(indices)-(k-len(cur)); i++ {
			cur = append(cur, indices[i])
			walk(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	walk(0)
	return result
}

// #endregion powerset
