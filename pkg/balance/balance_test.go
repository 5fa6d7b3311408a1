package balance

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"github.com/willbeason/crosssell/pkg/errs"
)

// clusters returns nMajority samples labelled 0 around the origin and
// nMinority samples labelled 1 around (10, 10).
func clusters(nMajority, nMinority int) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(42))
	n := nMajority + nMinority
	features := mat.NewDense(n, 2, nil)
	labels := make([]float64, n)
	for i := range n {
		center := 0.0
		if i >= nMajority {
			center = 10
			labels[i] = 1
		}
		features.Set(i, 0, center+rng.NormFloat64())
		features.Set(i, 1, center+rng.NormFloat64())
	}
	return features, labels
}

func count(labels []float64, class float64) int {
	n := 0
	for _, y := range labels {
		if y == class {
			n++
		}
	}
	return n
}

func skew(labels []float64) float64 {
	a, b := float64(count(labels, 0)), float64(count(labels, 1))
	if a < b {
		a, b = b, a
	}
	return a / b
}

func TestRebalance_ImprovesRatio(t *testing.T) {
	features, labels := clusters(100, 10)

	got, gotLabels, err := New(1).Rebalance(features, labels)
	if err != nil {
		t.Fatalf("Rebalance() error = %v", err)
	}

	if before, after := skew(labels), skew(gotLabels); after >= before {
		t.Errorf("class skew went from %.2f to %.2f, want improvement", before, after)
	}

	rows, cols := got.Dims()
	if cols != 2 {
		t.Errorf("Rebalance() cols = %d, want 2", cols)
	}
	if rows != len(gotLabels) {
		t.Errorf("Rebalance() rows = %d, labels = %d", rows, len(gotLabels))
	}
}

func TestRebalance_SyntheticSamplesStayInMinorityHull(t *testing.T) {
	features, labels := clusters(60, 8)

	lo, hi := [2]float64{1e9, 1e9}, [2]float64{-1e9, -1e9}
	for i, y := range labels {
		if y != 1 {
			continue
		}
		for j := range 2 {
			lo[j] = min(lo[j], features.At(i, j))
			hi[j] = max(hi[j], features.At(i, j))
		}
	}

	got, gotLabels, err := New(7).Rebalance(features, labels)
	if err != nil {
		t.Fatal(err)
	}

	for i, y := range gotLabels {
		if y != 1 {
			continue
		}
		for j := range 2 {
			if v := got.At(i, j); v < lo[j] || v > hi[j] {
				t.Errorf("minority row %d col %d = %f outside [%f, %f]", i, j, v, lo[j], hi[j])
			}
		}
	}
}

func TestRebalance_RemovesInconsistentSamples(t *testing.T) {
	features, labels := clusters(30, 10)

	// A majority sample sitting inside the minority cluster.
	intruder := mat.NewDense(1, 2, []float64{10, 10})
	var stacked mat.Dense
	stacked.Stack(features, intruder)
	labels = append(labels, 0)

	got, gotLabels, stats, err := New(3).RebalanceStats(&stacked, labels)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Removed == 0 {
		t.Error("Removed = 0, want the intruder cleaned")
	}
	for i, y := range gotLabels {
		if y == 0 && got.At(i, 0) > 5 {
			t.Errorf("majority row %d at %v survived inside minority cluster", i, mat.Row(nil, i, got))
		}
	}
}

func TestRebalance_Deterministic(t *testing.T) {
	features, labels := clusters(50, 10)

	first, _, err := New(5).Rebalance(features, labels)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := New(5).Rebalance(features, labels)
	if err != nil {
		t.Fatal(err)
	}

	if !mat.Equal(first, second) {
		t.Error("Rebalance() with the same seed gave different output")
	}
}

func TestRebalance_DoesNotModifyInput(t *testing.T) {
	features, labels := clusters(40, 10)
	before := mat.DenseCopyOf(features)
	labelsBefore := append([]float64{}, labels...)

	_, _, err := New(9).Rebalance(features, labels)
	if err != nil {
		t.Fatal(err)
	}

	if !mat.Equal(before, features) {
		t.Error("Rebalance() modified the input matrix")
	}
	for i := range labels {
		if labels[i] != labelsBefore[i] {
			t.Fatalf("Rebalance() modified label %d", i)
		}
	}
}

func TestRebalance_DataErrors(t *testing.T) {
	tooFew, tooFewLabels := clusters(20, DefaultNeighbors)
	oneClass, _ := clusters(10, 0)

	tests := []struct {
		name     string
		features *mat.Dense
		labels   []float64
	}{
		{name: "empty matrix", features: &mat.Dense{}, labels: nil},
		{name: "nil matrix", features: nil, labels: nil},
		{name: "too few minority samples", features: tooFew, labels: tooFewLabels},
		{name: "single class", features: oneClass, labels: make([]float64, 10)},
		{name: "label count mismatch", features: oneClass, labels: make([]float64, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(1).Rebalance(tt.features, tt.labels)
			if !errors.Is(err, errs.ErrData) {
				t.Errorf("Rebalance() error = %v, want %v", err, errs.ErrData)
			}
		})
	}
}

// scan is the reference neighbour search: every candidate, ordered by
// distance and then index.
func scan(points [][]float64, candidates []int, query, k int) []int {
	var others []int
	for _, c := range candidates {
		if c != query {
			others = append(others, c)
		}
	}
	q := sample{x: points[query]}
	sort.SliceStable(others, func(a, b int) bool {
		return q.Distance(sample{x: points[others[a]]}) < q.Distance(sample{x: points[others[b]]})
	})
	if len(others) > k {
		others = others[:k]
	}
	return others
}

func TestIndex_NearestMatchesScan(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	// Integer coordinates on a small grid give many ties and duplicates.
	points := make([][]float64, 300)
	for i := range points {
		points[i] = []float64{float64(rng.Intn(8)), float64(rng.Intn(8)), float64(rng.Intn(3))}
	}

	var odd []int
	all := make([]int, len(points))
	for i := range points {
		all[i] = i
		if i%2 == 1 {
			odd = append(odd, i)
		}
	}

	for name, candidates := range map[string][]int{"all": all, "odd": odd} {
		t.Run(name, func(t *testing.T) {
			ix := newIndex(points, candidates)
			for _, k := range []int{1, 3, 5} {
				for _, query := range candidates {
					want := scan(points, candidates, query, k)
					got := ix.nearest(points, query, k)
					if diff := cmp.Diff(want, got); diff != "" {
						t.Fatalf("nearest(%d, k=%d) mismatch (-want +got):\n%s", query, k, diff)
					}
				}
			}
		})
	}
}

func TestRebalance_Large(t *testing.T) {
	if testing.Short() {
		t.Skip("large rebalance")
	}
	features, labels := clusters(40000, 4000)

	got, gotLabels, stats, err := New(2).RebalanceStats(features, labels)
	if err != nil {
		t.Fatal(err)
	}
	if rows, _ := got.Dims(); rows != len(gotLabels) {
		t.Errorf("rows = %d, labels = %d", rows, len(gotLabels))
	}
	if stats.Synthesized != 36000 {
		t.Errorf("Synthesized = %d, want 36000", stats.Synthesized)
	}
	if stats.MinorityLabel != 1 || stats.MajorityLabel != 0 {
		t.Errorf("labels = %v/%v, want 1/0", stats.MinorityLabel, stats.MajorityLabel)
	}
}
