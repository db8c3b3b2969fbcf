package race

// sprinter grants bounded temporary boosts to trailing lanes outside the
// lock stages.
type sprinter struct {
	cfg Sprint
	gen *generator

	active    []bool
	until     []float64
	lastEndAt []float64
	used      []int
	mult      []float64
}

func newSprinter(n int, cfg Sprint, g *generator) *sprinter {
	s := &sprinter{
		cfg:       cfg,
		gen:       g,
		active:    make([]bool, n),
		until:     make([]float64, n),
		lastEndAt: make([]float64, n),
		used:      make([]int, n),
		mult:      make([]float64, n),
	}
	for i := range s.lastEndAt {
		s.lastEndAt[i] = -999
		s.mult[i] = 1
	}
	return s
}

// sprinting reports whether lane i has an active sprint and its multiplier.
func (s *sprinter) sprinting(i int) (float64, bool) {
	if !s.active[i] {
		return 1, false
	}
	return s.mult[i], true
}

// tryStart walks the current order (front to back) and starts sprints for
// eligible followers. velocity returns lane i's current speed. It returns
// the lanes that started a sprint.
func (s *sprinter) tryStart(now float64, order []int, x func(int) float64, velocity func(int) float64, skip func(int) bool) []int {
	var started []int
	for rank := 1; rank < len(order); rank++ {
		i, ahead := order[rank], order[rank-1]
		if skip(i) || s.active[i] {
			continue
		}
		if s.used[i] >= s.cfg.MaxPerAgent {
			continue
		}
		if now-s.lastEndAt[i] < s.cfg.CooldownSec {
			continue
		}
		gap := x(ahead) - x(i)
		if gap < s.cfg.GapMin || gap > s.cfg.GapMax {
			continue
		}
		if velocity(i) > velocity(ahead) && !s.gen.chance(s.cfg.EagerChance) {
			continue
		}

		s.active[i] = true
		s.until[i] = now + s.gen.between(s.cfg.DurMin, s.cfg.DurMax)
		s.mult[i] = s.gen.between(s.cfg.MultMin, s.cfg.MultMax)
		s.used[i]++
		started = append(started, i)
	}
	return started
}

// expire ends sprints whose time is up and returns the lanes that ended.
func (s *sprinter) expire(now float64) []int {
	var ended []int
	for i := range s.active {
		if s.active[i] && now >= s.until[i] {
			s.active[i] = false
			s.lastEndAt[i] = now
			s.mult[i] = 1
			ended = append(ended, i)
		}
	}
	return ended
}
