package race

import (
	"math"
	"testing"
)

func positions(xs ...float64) func(int) float64 {
	return func(i int) float64 { return xs[i] }
}

func TestCurrentOrderFrontFirst(t *testing.T) {
	order := currentOrder(4, positions(10, 30, 20, 30))
	want := []int{1, 3, 2, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestDesiredOrderForcedThenSchedule(t *testing.T) {
	x := positions(0, 50, 40, 30, 20, 10, 5, 60)
	sched := newFinishSchedule(8)

	got := desiredOrder(8, []int{6, 5, 4, 3, 2}, sched, x)
	want := []int{6, 5, 4, 3, 2, 7, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unscheduled: expected %v, got %v", want, got)
		}
	}

	sched.at = []float64{10, 12, 0, 0, 0, 0, 0, 11}
	sched.built = true
	got = desiredOrder(8, []int{6, 5, 4, 3, 2}, sched, x)
	want = []int{6, 5, 4, 3, 2, 0, 7, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scheduled: expected %v, got %v", want, got)
		}
	}
}

func TestDynamicMinGapWidens(t *testing.T) {
	cfg := DefaultConfig().Lock
	if g := dynamicMinGap(0.5, cfg); g != cfg.MinGapBase {
		t.Fatalf("expected base gap early, got %v", g)
	}
	if g := dynamicMinGap(1.3, cfg); g != cfg.MinGapMax {
		t.Fatalf("expected max gap at the line, got %v", g)
	}
	mid := dynamicMinGap(0.95, cfg)
	if math.Abs(mid-(cfg.MinGapBase+cfg.MinGapMax)/2) > 1e-9 {
		t.Fatalf("expected halfway gap, got %v", mid)
	}
}

func TestShadowTargets(t *testing.T) {
	xt := shadowTargets(3, 100, 2)
	if xt[1] != 100 || xt[2] != 98 || xt[3] != 96 {
		t.Fatalf("unexpected shadow targets %v", xt)
	}
}

func newTestFeedback(order, desired []int, forced []int) *feedback {
	cfg := DefaultConfig().Lock
	f := &feedback{
		gain:     cfg.Strong,
		cfg:      cfg,
		forced:   map[int]bool{},
		curRank:  ranks(order),
		wantRank: ranks(desired),
		targets:  shadowTargets(len(order), 0, 1),
	}
	for _, i := range forced {
		f.forced[i] = true
	}
	return f
}

func TestFeedbackFactor(t *testing.T) {
	// Lanes 0..6; forced top five are lanes 6,5,4,3,2 but the current order
	// is the reverse.
	order := []int{0, 1, 2, 3, 4, 5, 6}
	forced := []int{6, 5, 4, 3, 2}
	desired := []int{6, 5, 4, 3, 2, 0, 1}
	f := newTestFeedback(order, desired, forced)

	// Lane 6 is last but must win: strongly boosted, capped at FactorMax.
	if got := f.factor(6, f.targets[7]); got != f.cfg.FactorMax {
		t.Fatalf("expected boost capped at %v, got %v", f.cfg.FactorMax, got)
	}
	// Lane 0 leads while it is not forced: braked to the floor.
	if got := f.factor(0, f.targets[1]); got != f.cfg.FactorMin {
		t.Fatalf("expected brake at %v, got %v", f.cfg.FactorMin, got)
	}
	// Lane 3 is in its wanted slot, on its shadow target.
	if got := f.factor(3, f.targets[4]); got != 1 {
		t.Fatalf("expected neutral factor, got %v", got)
	}
	// Ahead of the shadow target means a small brake.
	if got := f.factor(3, f.targets[4]+2); got >= 1 {
		t.Fatalf("expected position brake, got %v", got)
	}
}

func TestSeparateHoldsFollower(t *testing.T) {
	cfg := DefaultConfig().Lock
	x := positions(10, 9.8)
	next := []float64{100, 150}
	order := []int{0, 1}
	noSkip := func(int) bool { return false }

	separate(order, next, ranks(order), 0.6, cfg, x, noSkip)
	if next[1] != 100*cfg.FollowerHold {
		t.Fatalf("expected follower held at %v, got %v", 100*cfg.FollowerHold, next[1])
	}
	if next[0] != 100 {
		t.Fatalf("leader should be untouched, got %v", next[0])
	}
}

func TestSeparateYieldsForMandatedOvertake(t *testing.T) {
	cfg := DefaultConfig().Lock
	x := positions(10, 9.8)
	next := []float64{100, 150}
	order := []int{0, 1}
	want := ranks([]int{1, 0})

	separate(order, next, want, 0.6, cfg, x, func(int) bool { return false })
	if next[0] != 100*cfg.LeaderYield {
		t.Fatalf("expected leader to yield to %v, got %v", 100*cfg.LeaderYield, next[0])
	}
	if next[1] != 150 {
		t.Fatalf("follower must not be held, got %v", next[1])
	}
}

func TestSeparateIgnoresSpacedPair(t *testing.T) {
	cfg := DefaultConfig().Lock
	next := []float64{100, 150}
	order := []int{0, 1}
	separate(order, next, ranks(order), 0.6, cfg, positions(10, 5), func(int) bool { return false })
	if next[0] != 100 || next[1] != 150 {
		t.Fatalf("expected no change, got %v", next)
	}
}
