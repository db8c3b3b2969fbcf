package race

import "math"

// finishRecord stamps line crossings. Stamps are written once and the rank
// list is append-only.
type finishRecord struct {
	at   []float64
	rank []int
}

func newFinishRecord(n int) *finishRecord {
	f := &finishRecord{at: make([]float64, n), rank: make([]int, 0, n)}
	for i := range f.at {
		f.at[i] = math.NaN()
	}
	return f
}

func (f *finishRecord) finished(i int) bool { return !math.IsNaN(f.at[i]) }

// stamp records lane i as finished at now. It reports false, and changes
// nothing, when the lane already has a stamp.
func (f *finishRecord) stamp(i int, now float64) bool {
	if f.finished(i) {
		return false
	}
	f.at[i] = now
	f.rank = append(f.rank, i)
	return true
}

func (f *finishRecord) complete() bool { return len(f.rank) == len(f.at) }

func (f *finishRecord) any() bool { return len(f.rank) > 0 }
