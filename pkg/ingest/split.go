package ingest

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/frame"
)

// DefaultTestRatio is the share of rows held out for evaluation.
const DefaultTestRatio = 0.25

// Split shuffles the rows of t with seed and holds out ceil(testRatio*rows)
// of them as the test table. Both tables keep every column of t.
func Split(t frame.Table, testRatio float64, seed int64) (train, test frame.Table, err error) {
	if !(testRatio > 0 && testRatio < 1) {
		return frame.Table{}, frame.Table{}, fmt.Errorf("%w: test ratio %v not in (0, 1)", errs.ErrConfig, testRatio)
	}

	n := t.Rows()
	nTest := int(math.Ceil(testRatio * float64(n)))
	if n < 2 || nTest >= n {
		return frame.Table{}, frame.Table{}, fmt.Errorf("%w: cannot split %d rows with test ratio %v", errs.ErrData, n, testRatio)
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)

	return t.Take(order[nTest:]), t.Take(order[:nTest]), nil
}
