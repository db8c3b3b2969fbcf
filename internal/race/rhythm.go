package race

// rhythm produces a smoothly varying per-lane speed multiplier out of eased
// segments and short bursts.
type rhythm struct {
	cfg Rhythm
	gen *generator

	segFrom, segTo []float64
	segT0, segT1   []float64

	burstAmp     []float64
	burstT0      []float64
	burstUntil   []float64
	lastBurstEnd []float64
}

func newRhythm(n int, cfg Rhythm, g *generator) *rhythm {
	r := &rhythm{
		cfg:          cfg,
		gen:          g,
		segFrom:      make([]float64, n),
		segTo:        make([]float64, n),
		segT0:        make([]float64, n),
		segT1:        make([]float64, n),
		burstAmp:     make([]float64, n),
		burstT0:      make([]float64, n),
		burstUntil:   make([]float64, n),
		lastBurstEnd: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		r.segFrom[i] = 1
		r.segTo[i] = g.between(cfg.Segment.MultMin, cfg.Segment.MultMax)
		r.segT1[i] = g.between(cfg.Segment.DurMin, cfg.Segment.DurMax)
		r.burstT0[i] = -999
		r.burstUntil[i] = -999
		r.lastBurstEnd[i] = -999
	}
	return r
}

// advanceSegment starts the next segment once the current one has elapsed.
// The new segment eases from where the previous one ended.
func (r *rhythm) advanceSegment(i int, now float64) {
	if now < r.segT1[i] {
		return
	}
	r.segFrom[i] = r.segTo[i]
	r.segTo[i] = r.gen.between(r.cfg.Segment.MultMin, r.cfg.Segment.MultMax)
	r.segT0[i] = now
	r.segT1[i] = now + r.gen.between(r.cfg.Segment.DurMin, r.cfg.Segment.DurMax)
}

func (r *rhythm) segmentMultiplier(i int, now float64) float64 {
	dur := r.segT1[i] - r.segT0[i]
	if dur < 0.001 {
		dur = 0.001
	}
	x := clamp((now-r.segT0[i])/dur, 0, 1)
	return lerp(r.segFrom[i], r.segTo[i], easeInOutCubic(x))
}

func (r *rhythm) maybeBurst(i int, now, dt float64, locking bool) {
	if locking || now-r.lastBurstEnd[i] < r.cfg.Burst.CooldownSec {
		return
	}
	if !r.gen.chance(r.cfg.Burst.ProbPerSec * dt) {
		return
	}
	r.burstAmp[i] = r.gen.between(r.cfg.Burst.AmpMin, r.cfg.Burst.AmpMax)
	r.burstT0[i] = now
	r.burstUntil[i] = now + r.cfg.Burst.DurSec
	r.lastBurstEnd[i] = r.burstUntil[i]
}

// burstMultiplier rises linearly over the first fifth of the pulse and eases
// back out over the rest.
func (r *rhythm) burstMultiplier(i int, now float64) float64 {
	t0, t1 := r.burstT0[i], r.burstUntil[i]
	if now > t1 || now < t0 {
		return 0
	}
	a := r.burstAmp[i]
	span := t1 - t0
	if span < 0.001 {
		span = 0.001
	}
	x := clamp((now-t0)/span, 0, 1)
	if x < 0.2 {
		return a * (x / 0.2)
	}
	return a * (1 - easeOutCubic((x-0.2)/0.8))
}

func (r *rhythm) weight(phase Phase, stage LockStage) float64 {
	if stage.Locking() {
		return r.cfg.Weights.LockStage
	}
	switch phase {
	case PhaseSetup:
		return r.cfg.Weights.Setup
	case PhaseMid:
		return r.cfg.Weights.Mid
	case PhaseLock:
		return r.cfg.Weights.LockPhase
	default:
		return r.cfg.Weights.Start
	}
}

// multiplier advances lane i's rhythm to now and returns its weighted
// multiplier.
func (r *rhythm) multiplier(i int, now, dt float64, phase Phase, stage LockStage) float64 {
	r.advanceSegment(i, now)
	r.maybeBurst(i, now, dt, stage.Locking())
	m := r.segmentMultiplier(i, now) * (1 + r.burstMultiplier(i, now))
	m = clamp(m, r.cfg.BoundMin, r.cfg.BoundMax)
	return lerp(1, m, r.weight(phase, stage))
}
