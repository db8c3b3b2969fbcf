package race

import "math"

// Runner is the presentation proxy of one lane. The engine reads and advances
// its x position every tick and forwards the (time-scaled) frame delta so the
// proxy can step its animation.
type Runner interface {
	X() float64
	SetX(x float64)
	Advance(dt float64)
	// Ready reports whether the proxy is loaded. Runners that are not ready
	// are skipped for the tick.
	Ready() bool
}

// lane is the engine-side kinematic state of one runner.
type lane struct {
	runner    Runner
	baseSpeed float64
	velocity  float64
}

// registry holds per-lane kinematic state for the lifetime of an engine.
type registry struct {
	lanes []lane
}

func newRegistry(runners []Runner, lanes int, g *generator, speed Speed) *registry {
	r := &registry{lanes: make([]lane, lanes)}
	for i := range r.lanes {
		if i < len(runners) {
			r.lanes[i].runner = runners[i]
		}
		r.lanes[i].baseSpeed = g.between(speed.BaseMin, speed.BaseMax)
		r.lanes[i].velocity = r.lanes[i].baseSpeed
	}
	return r
}

// usable reports whether lane i has a ready runner.
func (r *registry) usable(i int) bool {
	rn := r.lanes[i].runner
	return rn != nil && rn.Ready()
}

// x returns the position of lane i, or zero for a missing runner.
func (r *registry) x(i int) float64 {
	rn := r.lanes[i].runner
	if rn == nil {
		return 0
	}
	return rn.X()
}

// orderKey is the sort key used for ranking: the position, or -Inf for a
// missing runner so it always ranks last.
func (r *registry) orderKey(i int) float64 {
	if r.lanes[i].runner == nil {
		return math.Inf(-1)
	}
	return r.lanes[i].runner.X()
}

func (r *registry) resetVelocities() {
	for i := range r.lanes {
		r.lanes[i].velocity = r.lanes[i].baseSpeed
	}
}
