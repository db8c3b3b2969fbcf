package race

import (
	"math"
	"sort"
)

// currentOrder returns lane indices sorted by position, front first. Ties
// keep the lower lane first.
func currentOrder(n int, x func(int) float64) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x(order[a]) > x(order[b])
	})
	return order
}

// desiredOrder puts the forced lanes first, in the requested order, then the
// rest by scheduled finish time, falling back to position.
func desiredOrder(n int, forced []int, sched *finishSchedule, x func(int) float64) []int {
	inForced := make(map[int]bool, len(forced))
	for _, i := range forced {
		inForced[i] = true
	}
	rest := make([]int, 0, n-len(forced))
	for i := 0; i < n; i++ {
		if !inForced[i] {
			rest = append(rest, i)
		}
	}
	due := func(i int) float64 {
		if t, ok := sched.get(i); ok {
			return t
		}
		return math.Inf(1)
	}
	sort.SliceStable(rest, func(a, b int) bool {
		ta, tb := due(rest[a]), due(rest[b])
		if ta != tb {
			return ta < tb
		}
		return x(rest[a]) > x(rest[b])
	})
	out := make([]int, 0, n)
	out = append(out, forced...)
	return append(out, rest...)
}

// ranks maps lane -> 1-based rank for an order.
func ranks(order []int) []int {
	r := make([]int, len(order))
	for k, i := range order {
		r[i] = k + 1
	}
	return r
}

// dynamicMinGap widens the wanted spacing linearly as the leader closes in
// on the line.
func dynamicMinGap(progress float64, cfg Lock) float64 {
	p := clamp(progress, 0, 1)
	a := clamp((p-cfg.GapWidenFrom)/math.Max(1e-3, cfg.GapWidenTo-cfg.GapWidenFrom), 0, 1)
	return lerp(cfg.MinGapBase, cfg.MinGapMax, a)
}

// shadowTargets returns the synthetic position of each desired rank
// (index 1..n; index 0 is unused).
func shadowTargets(n int, anchor, gap float64) []float64 {
	xt := make([]float64, n+1)
	for k := 1; k <= n; k++ {
		xt[k] = anchor - float64(k-1)*gap
	}
	return xt
}

// feedback is the per-tick view the rank controller works from. Everything
// in it is computed from pre-tick positions.
type feedback struct {
	gain     Gain
	cfg      Lock
	forced   map[int]bool
	curRank  []int
	wantRank []int
	targets  []float64
}

// factor converts lane i's rank, position and membership error into one
// velocity multiplier.
func (f *feedback) factor(i int, x float64) float64 {
	cur, want := f.curRank[i], f.wantRank[i]
	e := cur - want

	rankFactor := 1.0
	switch {
	case e > 0:
		rankFactor = 1 + f.gain.Boost*float64(e)
	case e < 0:
		rankFactor = 1 / (1 + f.gain.Brake*float64(-e))
	}

	posFactor := clamp(1+f.gain.Pos*(f.targets[want]-x), f.cfg.PosFactorMin, f.cfg.PosFactorMax)

	forcedFactor := 1.0
	switch {
	case !f.forced[i] && cur <= 5:
		forcedFactor = 1 / (1 + f.gain.ForcedBrake*float64(6-cur))
	case f.forced[i] && cur > 5:
		forcedFactor = 1 + f.gain.ForcedBoost*float64(cur-5)
	}

	return clamp(rankFactor*posFactor*forcedFactor, f.cfg.FactorMin, f.cfg.FactorMax)
}

// separate walks the current order front to back. A follower closer than
// gap to its leader is held back unless it is meant to pass, in which case
// the leader yields instead.
func separate(order []int, next []float64, wantRank []int, gap float64, cfg Lock, x func(int) float64, skip func(int) bool) {
	for r := 1; r < len(order); r++ {
		f, l := order[r], order[r-1]
		if skip(f) || skip(l) {
			continue
		}
		if x(f) <= x(l)-gap {
			continue
		}
		if wantRank[f] < wantRank[l] {
			next[l] = math.Max(0, next[l]*cfg.LeaderYield)
		} else {
			next[f] = math.Min(next[f], math.Max(0, next[l]*cfg.FollowerHold))
		}
	}
}
