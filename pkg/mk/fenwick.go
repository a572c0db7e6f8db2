package mk

import "sort"

// fenwick is a standard Binary Indexed Tree over counts, used by the
// O(n log n) exact S computation for uncensored series (spec.md 4.2's
// complexity floor).
type fenwick struct {
	tree []int64
	n    int
}

func newFenwick(size int) *fenwick {
	return &fenwick{tree: make([]int64, size+1), n: size}
}

// add increments the count at 1-based position i.
func (f *fenwick) add(i int, delta int64) {
	for ; i <= f.n; i += i & (-i) {
		f.tree[i] += delta
	}
}

// prefixSum returns the sum of counts in [1, i].
func (f *fenwick) prefixSum(i int) int64 {
	var s int64
	for ; i > 0; i -= i & (-i) {
		s += f.tree[i]
	}
	return s
}

// countGreater returns the count of inserted items with rank strictly
// greater than i, out of total inserted so far.
func (f *fenwick) countGreater(i int, totalInserted int64) int64 {
	return totalInserted - f.prefixSum(i)
}

// rankGroups compresses values into 1-based group ids, merging
// consecutive sorted values whose difference is <= eps (so exact
// equality, and near-equality within the tie epsilon, land in the same
// group). Returns a parallel group-id slice (len(values)) and the number
// of groups.
func rankGroups(values []float64, eps float64) ([]int, int) {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	groupID := make([]int, n)
	group := 0
	groupID[idx[0]] = group
	for k := 1; k < n; k++ {
		if values[idx[k]]-values[idx[k-1]] > eps {
			group++
		}
		groupID[idx[k]] = group
	}
	return groupID, group + 1
}
