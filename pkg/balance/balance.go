// Package balance rebalances a binary-labelled feature matrix by
// over-sampling the minority class with synthetic interpolated samples and
// then removing samples whose nearest neighbours disagree with their label.
package balance

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/errs"
)

const (
	// DefaultNeighbors is the number of minority neighbours a synthetic sample
	// may be interpolated towards.
	DefaultNeighbors = 5
	// DefaultEditNeighbors is the neighbourhood size used when cleaning.
	DefaultEditNeighbors = 3
)

// Balancer combines minority over-sampling with edited-nearest-neighbour
// cleaning. A Balancer with the same Seed produces the same output for the
// same input.
type Balancer struct {
	// Neighbors is the number of minority neighbours considered when
	// synthesising a sample. The minority class needs at least Neighbors+1
	// samples.
	Neighbors int
	// EditNeighbors is the number of neighbours that must all share a sample's
	// label for the sample to survive cleaning.
	EditNeighbors int
	// Seed drives the choice of samples and interpolation gaps.
	Seed int64
}

// New returns a Balancer with the default neighbourhood sizes.
func New(seed int64) *Balancer {
	return &Balancer{
		Neighbors:     DefaultNeighbors,
		EditNeighbors: DefaultEditNeighbors,
		Seed:          seed,
	}
}

// Stats summarises the effect of one Rebalance call.
type Stats struct {
	MinorityLabel, MajorityLabel float64

	InMinority, InMajority   int
	Synthesized              int
	Removed                  int
	OutMinority, OutMajority int
}

// Rebalance returns a new feature matrix and label vector. The number of
// columns is unchanged; the number of rows generally is not.
func (b *Balancer) Rebalance(features *mat.Dense, labels []float64) (*mat.Dense, []float64, error) {
	out, outLabels, _, err := b.RebalanceStats(features, labels)
	return out, outLabels, err
}

// RebalanceStats is Rebalance, also reporting class counts before and after.
func (b *Balancer) RebalanceStats(features *mat.Dense, labels []float64) (*mat.Dense, []float64, Stats, error) {
	var stats Stats
	if b.Neighbors < 1 || b.EditNeighbors < 1 {
		return nil, nil, stats, fmt.Errorf("%w: neighbourhood sizes must be positive, got %d and %d", errs.ErrConfig, b.Neighbors, b.EditNeighbors)
	}
	if features == nil || features.IsEmpty() {
		return nil, nil, stats, fmt.Errorf("%w: cannot rebalance empty feature matrix", errs.ErrData)
	}
	rows, cols := features.Dims()
	if rows != len(labels) {
		return nil, nil, stats, fmt.Errorf("%w: %d feature rows but %d labels", errs.ErrData, rows, len(labels))
	}

	counts := make(map[float64]int)
	for _, y := range labels {
		counts[y]++
	}
	if len(counts) != 2 {
		return nil, nil, stats, fmt.Errorf("%w: need exactly two classes to rebalance, found %d", errs.ErrData, len(counts))
	}
	classes := make([]float64, 0, 2)
	for y := range counts {
		classes = append(classes, y)
	}
	sort.Float64s(classes)
	minority, majority := classes[0], classes[1]
	if counts[minority] > counts[majority] {
		minority, majority = majority, minority
	}
	stats.MinorityLabel, stats.MajorityLabel = minority, majority
	stats.InMinority, stats.InMajority = counts[minority], counts[majority]

	if counts[minority] < b.Neighbors+1 {
		return nil, nil, stats, fmt.Errorf("%w: %d minority samples, need at least %d",
			errs.ErrData, counts[minority], b.Neighbors+1)
	}

	points := make([][]float64, rows, rows+counts[majority]-counts[minority])
	for i := range rows {
		points[i] = features.RawRowView(i)
	}
	resampledLabels := append([]float64{}, labels...)

	synthetic := b.oversample(points, labels, minority, counts[majority]-counts[minority])
	for _, p := range synthetic {
		points = append(points, p)
		resampledLabels = append(resampledLabels, minority)
	}
	stats.Synthesized = len(synthetic)

	keep := b.clean(points, resampledLabels)
	stats.Removed = len(points) - len(keep)
	if len(keep) == 0 {
		return nil, nil, stats, fmt.Errorf("%w: cleaning removed every sample", errs.ErrData)
	}

	out := mat.NewDense(len(keep), cols, nil)
	outLabels := make([]float64, len(keep))
	for k, i := range keep {
		out.SetRow(k, points[i])
		outLabels[k] = resampledLabels[i]
		if outLabels[k] == minority {
			stats.OutMinority++
		} else {
			stats.OutMajority++
		}
	}
	return out, outLabels, stats, nil
}

// oversample synthesises n minority samples. Each one lies on the segment
// between a randomly chosen minority sample and one of its Neighbors nearest
// minority neighbours.
func (b *Balancer) oversample(points [][]float64, labels []float64, minority float64, n int) [][]float64 {
	var members []int
	for i, y := range labels {
		if y == minority {
			members = append(members, i)
		}
	}

	ix := newIndex(points, members)
	neighbors := make([][]int, len(members))
	for m, i := range members {
		neighbors[m] = ix.nearest(points, i, b.Neighbors)
	}

	rng := rand.New(rand.NewSource(b.Seed))
	out := make([][]float64, n)
	for s := range n {
		m := rng.Intn(len(members))
		from := points[members[m]]
		to := points[neighbors[m][rng.Intn(len(neighbors[m]))]]
		gap := rng.Float64()

		p := make([]float64, len(from))
		floats.SubTo(p, to, from)
		floats.Scale(gap, p)
		floats.Add(p, from)
		out[s] = p
	}
	return out
}

// clean returns the indices of samples whose EditNeighbors nearest neighbours
// all share their label, in their original order.
func (b *Balancer) clean(points [][]float64, labels []float64) []int {
	all := make([]int, len(points))
	for i := range all {
		all[i] = i
	}
	ix := newIndex(points, all)

	keep := make([]int, 0, len(points))
	for i := range points {
		consistent := true
		for _, j := range ix.nearest(points, i, b.EditNeighbors) {
			if labels[j] != labels[i] {
				consistent = false
				break
			}
		}
		if consistent {
			keep = append(keep, i)
		}
	}
	return keep
}
