package balance

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// sample is one row of the matrix being rebalanced.
type sample struct {
	index int
	x     []float64
}

func (s sample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.x[d] - c.(sample).x[d]
}

func (s sample) Dims() int { return len(s.x) }

// Distance is the squared Euclidean distance.
func (s sample) Distance(c kdtree.Comparable) float64 {
	q := c.(sample)
	var sum float64
	for i, v := range s.x {
		d := v - q.x[i]
		sum += d * d
	}
	return sum
}

type samples []sample

func (s samples) Index(i int) kdtree.Comparable         { return s[i] }
func (s samples) Len() int                              { return len(s) }
func (s samples) Slice(start, end int) kdtree.Interface { return s[start:end] }

func (s samples) Pivot(d kdtree.Dim) int {
	p := plane{dim: d, samples: s}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

type plane struct {
	dim kdtree.Dim
	samples
}

func (p plane) Less(i, j int) bool { return p.samples[i].x[p.dim] < p.samples[j].x[p.dim] }
func (p plane) Swap(i, j int)      { p.samples[i], p.samples[j] = p.samples[j], p.samples[i] }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.samples = p.samples[start:end]
	return p
}

// index answers nearest-neighbour queries over a fixed subset of rows.
type index struct {
	tree *kdtree.Tree
}

func newIndex(points [][]float64, members []int) *index {
	s := make(samples, len(members))
	for m, i := range members {
		s[m] = sample{index: i, x: points[i]}
	}
	return &index{tree: kdtree.New(s, false)}
}

// nearest returns up to k indexed rows closest to points[query], excluding
// query itself. Ties go to the lower index.
func (ix *index) nearest(points [][]float64, query, k int) []int {
	q := sample{index: query, x: points[query]}

	// The k+1 closest rows, query included, bound the search radius. Every
	// row within that radius is then collected so ties are broken by index
	// rather than by tree traversal order.
	closest := kdtree.NewNKeeper(k + 1)
	ix.tree.NearestSet(closest, q)
	radius := 0.0
	for _, c := range closest.Heap {
		if c.Comparable != nil {
			radius = max(radius, c.Dist)
		}
	}

	within := kdtree.NewDistKeeper(radius)
	ix.tree.NearestSet(within, q)

	found := make([]kdtree.ComparableDist, 0, len(within.Heap))
	for _, c := range within.Heap {
		if c.Comparable == nil || c.Comparable.(sample).index == query {
			continue
		}
		found = append(found, c)
	}
	sort.Slice(found, func(a, b int) bool {
		if found[a].Dist != found[b].Dist {
			return found[a].Dist < found[b].Dist
		}
		return found[a].Comparable.(sample).index < found[b].Comparable.(sample).index
	})
	if len(found) > k {
		found = found[:k]
	}

	out := make([]int, len(found))
	for i, c := range found {
		out[i] = c.Comparable.(sample).index
	}
	return out
}
