package race

import "math"

// slowMotion is the one-shot time dilation near the end of the race and the
// freeze that follows the first finish.
type slowMotion struct {
	cfg SlowMo

	active      bool
	triggered   bool
	triggeredAt float64
	snapshot    []float64

	frozen bool
	pinned []float64
}

func newSlowMotion(n int, cfg SlowMo) *slowMotion {
	s := &slowMotion{
		cfg:      cfg,
		snapshot: make([]float64, n),
		pinned:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.snapshot[i] = math.NaN()
		s.pinned[i] = math.NaN()
	}
	return s
}

// maybeTrigger engages slow motion the first time the leader's progress
// reaches the trigger, capturing every racing lane's clamped velocity.
func (s *slowMotion) maybeTrigger(progress, now float64, racing func(int) bool, velocity func(int) float64, vMin, vMax float64) bool {
	if !s.cfg.Enabled || s.triggered || s.frozen || progress < s.cfg.TriggerPct {
		return false
	}
	s.active = true
	s.triggered = true
	s.triggeredAt = now
	for i := range s.snapshot {
		if racing(i) {
			s.snapshot[i] = clamp(velocity(i), vMin, vMax)
		}
	}
	return true
}

// scale is the factor applied to the frame delta.
func (s *slowMotion) scale() float64 {
	if s.active {
		return s.cfg.Rate
	}
	return 1
}

// freeze ends slow motion and pins every unresolved lane to its snapshot,
// or to its clamped last velocity when no snapshot exists.
func (s *slowMotion) freeze(unresolved func(int) bool, velocity func(int) float64, vMin, vMax float64) {
	s.active = false
	if s.frozen {
		return
	}
	s.frozen = true
	for i := range s.pinned {
		if !unresolved(i) {
			continue
		}
		if !math.IsNaN(s.snapshot[i]) {
			s.pinned[i] = s.snapshot[i]
		} else {
			s.pinned[i] = clamp(velocity(i), vMin, vMax)
		}
	}
}

// pinnedVelocity returns the frozen velocity of lane i, if any.
func (s *slowMotion) pinnedVelocity(i int) (float64, bool) {
	if !s.frozen || math.IsNaN(s.pinned[i]) {
		return 0, false
	}
	return s.pinned[i], true
}
