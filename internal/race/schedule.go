package race

import "math"

// finishSchedule holds per-lane target finish timestamps (absolute race
// clock). NaN marks a lane without an entry.
type finishSchedule struct {
	at    []float64
	built bool
}

func newFinishSchedule(n int) *finishSchedule {
	s := &finishSchedule{at: make([]float64, n)}
	for i := range s.at {
		s.at[i] = math.NaN()
	}
	return s
}

func (s *finishSchedule) get(i int) (float64, bool) {
	if !s.built || math.IsNaN(s.at[i]) {
		return 0, false
	}
	return s.at[i], true
}

// scheduleInput is what the generator needs from the engine at build time.
type scheduleInput struct {
	start, duration, now float64
	forced               []int
	finishX, vMax        float64
	x                    func(int) float64
	usable               func(int) bool
}

// build fills the schedule once: forced lanes finish staggered after an
// anchor time, the rest after the fifth forced lane. A feasibility pass then
// pushes back any deadline that would need more than vMax.
func (s *finishSchedule) build(in scheduleInput, cfg Schedule, jitter float64, g *generator) {
	if s.built || len(in.forced) != 5 {
		return
	}

	t1 := in.start + in.duration + g.between(-jitter, jitter)
	var t5 float64
	for k, lane := range in.forced {
		gap := cfg.Gaps[k]
		s.at[lane] = t1 + g.between(gap.Min, gap.Max)
		t5 = s.at[lane]
	}
	for i := range s.at {
		if !math.IsNaN(s.at[i]) {
			continue
		}
		s.at[i] = t5 + g.between(cfg.RestMin, cfg.RestMax)
	}

	for i := range s.at {
		if !in.usable(i) {
			continue
		}
		d := math.Max(0, in.finishX-in.x(i))
		left := math.Max(0.01, s.at[i]-in.now)
		need := d / left
		if need <= in.vMax {
			continue
		}
		over := (need - in.vMax) / in.vMax
		s.at[i] += math.Min(cfg.PushCapSec, cfg.PushBaseSec+over)
		if floor := in.now + d/in.vMax; s.at[i] < floor {
			s.at[i] = floor
		}
	}

	s.built = true
}
