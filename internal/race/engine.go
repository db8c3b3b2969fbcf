// Package race implements the race-outcome control engine: it advances N
// runners toward a finish line at plausible, varying speeds, optionally
// steering the field toward a requested top five, and records the finishing
// order once per race.
//
// The engine is single threaded and driven by an external per-frame Tick.
// Within a tick every next velocity is resolved from pre-tick positions
// before any position moves.
package race

import (
	"math"

	gamelog "gallop/internal/log"
)

// TickResult reports what happened during one Tick.
type TickResult struct {
	// FirstFinished is true on the tick in which the race's first runner
	// crossed the line.
	FirstFinished bool
	AllFinished   bool
	// Finished lists the lanes that crossed the line during this tick, in
	// stamp order.
	Finished []int
	// Stage is the lock stage velocities were resolved under.
	Stage LockStage
}

// raceState is everything that lives for exactly one race.
type raceState struct {
	start    float64
	duration float64
	clock    float64

	stage  LockStage
	forced []int
	leader int

	schedule *finishSchedule
	finish   *finishRecord
	slow     *slowMotion
	rhythm   *rhythm
	sprint   *sprinter
}

type Option func(*Engine)

// WithLogger routes engine events to l.
func WithLogger(l *gamelog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine owns the lane registry and the state of the current race.
type Engine struct {
	cfg Config
	log *gamelog.Logger
	gen *generator
	reg *registry
	st  *raceState
}

// New creates an engine for cfg.Track.Lanes lanes. runners may be shorter
// than the lane count or contain nils; such lanes are skipped until a runner
// is attached with Attach.
func New(cfg Config, runners []Runner, opts ...Option) *Engine {
	cfg.Normalize()
	e := &Engine{cfg: cfg, log: gamelog.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	e.gen = newGenerator(cfg.Seed)
	e.reg = newRegistry(runners, cfg.Track.Lanes, e.gen, cfg.Speed)
	return e
}

// Attach sets the runner of lane i, e.g. once its proxy has loaded.
func (e *Engine) Attach(i int, r Runner) {
	if i < 0 || i >= len(e.reg.lanes) {
		return
	}
	e.reg.lanes[i].runner = r
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Lanes() int { return len(e.reg.lanes) }

// BaseSpeed returns lane i's pacing anchor.
func (e *Engine) BaseSpeed(i int) float64 { return e.reg.lanes[i].baseSpeed }

// StartRace resets all race state and puts every runner on the start line.
// forcedTop5 lists the lane indices (0-based) that should place first to
// fifth; anything other than five unique in-range lanes is ignored and the
// race runs unsteered. durationSec <= 0 picks a random target duration.
func (e *Engine) StartRace(start float64, forcedTop5 []int, durationSec float64) {
	n := e.Lanes()
	if durationSec <= 0 {
		durationSec = e.gen.between(e.cfg.Duration.MinSec, e.cfg.Duration.MaxSec)
	}

	forced := validForced(forcedTop5, n)
	if forcedTop5 != nil && forced == nil {
		e.log.Warnf("ignoring invalid forced top five %v", forcedTop5)
	}

	e.st = &raceState{
		start:    start,
		duration: durationSec,
		stage:    StageNone,
		forced:   forced,
		schedule: newFinishSchedule(n),
		finish:   newFinishRecord(n),
		slow:     newSlowMotion(n, e.cfg.SlowMo),
		rhythm:   newRhythm(n, e.cfg.Rhythm, e.gen),
		sprint:   newSprinter(n, e.cfg.Sprint, e.gen),
	}

	for i := range e.reg.lanes {
		if r := e.reg.lanes[i].runner; r != nil {
			r.SetX(e.cfg.Track.StartX)
		}
	}
	e.reg.resetVelocities()
	e.st.leader = e.computeLeader()

	e.log.Infof("race started: lanes=%d duration=%.2fs forced=%v", n, durationSec, forced)
}

// validForced returns a copy of forced when it names exactly five unique
// lanes in [0, n), and nil otherwise.
func validForced(forced []int, n int) []int {
	if len(forced) != 5 {
		return nil
	}
	seen := make(map[int]bool, 5)
	for _, i := range forced {
		if i < 0 || i >= n || seen[i] {
			return nil
		}
		seen[i] = true
	}
	out := make([]int, 5)
	copy(out, forced)
	return out
}

// Tick advances the race by one frame of dt seconds at absolute race-clock
// time now. It is a no-op before StartRace.
func (e *Engine) Tick(dt, now float64) TickResult {
	st := e.st
	if st == nil {
		return TickResult{}
	}
	if dt < 0 {
		dt = 0
	}
	n := e.Lanes()
	reg := e.reg
	spd := e.cfg.Speed

	st.clock = math.Max(0, now-st.start)
	elapsed := st.clock
	progress := e.LeaderProgress()

	racing := func(i int) bool { return reg.usable(i) && !st.finish.finished(i) }
	velocity := func(i int) float64 { return reg.lanes[i].velocity }

	if st.slow.maybeTrigger(progress, now, racing, velocity, spd.Min, spd.Max) {
		e.log.Infof("slow motion triggered at %.0f%% (rate=%.2f)", progress*100, e.cfg.SlowMo.Rate)
	}
	scale := st.slow.scale()

	if st.stage != StageFinishGuard {
		if next := nextStage(st.stage, progress, e.cfg.Lock); next != st.stage {
			e.log.Debugf("lock stage %s -> %s at %.0f%%", st.stage, next, progress*100)
			st.stage = next
		}
	}
	stage := st.stage
	phase := phaseAt(elapsed, st.duration, e.cfg.Phases)
	frozen := st.slow.frozen
	midOrSetup := phase == PhaseMid || phase == PhaseSetup

	order := currentOrder(n, reg.orderKey)

	if !frozen && !stage.Locking() && midOrSetup {
		skip := func(i int) bool { return !racing(i) }
		for _, i := range st.sprint.tryStart(elapsed, order, reg.x, velocity, skip) {
			e.log.Debugf("sprint start lane=%d", i)
		}
	}
	for _, i := range st.sprint.expire(elapsed) {
		e.log.Debugf("sprint end lane=%d", i)
	}

	if !frozen && phase == PhaseSetup && st.forced != nil && !st.schedule.built {
		st.schedule.build(scheduleInput{
			start:    st.start,
			duration: st.duration,
			now:      now,
			forced:   st.forced,
			finishX:  e.cfg.Track.FinishX,
			vMax:     spd.Max,
			x:        reg.x,
			usable:   reg.usable,
		}, e.cfg.Schedule, e.cfg.Duration.JitterSec, e.gen)
		e.log.Infof("finish schedule generated")
	}

	locking := !frozen && stage.Locking()
	wantRank := ranks(order)
	var fb *feedback
	if locking && st.forced != nil {
		if gain, ok := stage.gain(e.cfg.Lock); ok {
			desired := desiredOrder(n, st.forced, st.schedule, reg.orderKey)
			wantRank = ranks(desired)
			anchor := e.cfg.Track.FinishX - e.cfg.Lock.AnchorOffset
			fb = &feedback{
				gain:     gain,
				cfg:      e.cfg.Lock,
				forced:   make(map[int]bool, 5),
				curRank:  ranks(order),
				wantRank: wantRank,
				targets:  shadowTargets(n, anchor, dynamicMinGap(progress, e.cfg.Lock)),
			}
			for _, i := range st.forced {
				fb.forced[i] = true
			}
		}
	}

	// Resolve every next velocity against pre-tick positions.
	next := make([]float64, n)
	for i := 0; i < n; i++ {
		next[i] = reg.lanes[i].velocity
		if !racing(i) {
			continue
		}
		if frozen {
			if v, ok := st.slow.pinnedVelocity(i); ok {
				next[i] = v
			}
			continue
		}

		x := reg.x(i)
		var target float64
		if due, ok := st.schedule.get(i); ok {
			d := math.Max(0, e.cfg.Track.FinishX-x)
			target = d / math.Max(0.01, due-now)
		} else {
			target = reg.lanes[i].baseSpeed
		}

		target *= st.rhythm.multiplier(i, elapsed, dt, phase, stage)

		if fb != nil {
			target *= fb.factor(i, x)
		} else if midOrSetup {
			if m, ok := st.sprint.sprinting(i); ok {
				target *= m
			}
		}

		target = e.bound(target, stage)
		prev := reg.lanes[i].velocity
		next[i] = prev + (target-prev)*spd.Blend
	}

	if locking {
		gap := dynamicMinGap(progress, e.cfg.Lock)
		separate(order, next, wantRank, gap, e.cfg.Lock, reg.x, func(i int) bool { return !racing(i) })
		for i := 0; i < n; i++ {
			if racing(i) {
				next[i] = e.bound(next[i], stage)
			}
		}
	}

	// Apply.
	res := TickResult{Stage: stage}
	hadFinisher := st.finish.any()
	detectX := e.cfg.Track.DetectX()
	for i := 0; i < n; i++ {
		if !reg.usable(i) {
			continue
		}
		r := reg.lanes[i].runner
		reg.lanes[i].velocity = next[i]
		r.SetX(r.X() + next[i]*dt*scale)
		r.Advance(dt * scale)

		if !st.finish.finished(i) && r.X() >= detectX {
			st.finish.stamp(i, now)
			res.Finished = append(res.Finished, i)
			e.log.Infof("lane %d finished at %.3f (place %d)", i, now-st.start, len(st.finish.rank))
		}
	}

	if !st.finish.complete() {
		st.leader = e.computeLeader()
	}

	if !hadFinisher && st.finish.any() {
		res.FirstFinished = true
		if st.slow.active {
			e.log.Infof("slow motion deactivated (first finish)")
		}
		st.slow.freeze(racing, velocity, spd.Min, spd.Max)
		if st.stage == StagePreLock || st.stage == StageLockStrong {
			st.stage = StageFinishGuard
			e.log.Debugf("lock stage -> %s", st.stage)
		}
	}

	res.AllFinished = st.finish.complete()
	return res
}

// bound clamps v to the speed limits; LockStrong may lift the ceiling.
func (e *Engine) bound(v float64, stage LockStage) float64 {
	if stage == StageLockStrong && e.cfg.Lock.NoCeilingInStrong {
		return math.Max(e.cfg.Speed.Min, v)
	}
	return clamp(v, e.cfg.Speed.Min, e.cfg.Speed.Max)
}

func (e *Engine) computeLeader() int {
	best, bestX := -1, math.Inf(-1)
	for i := range e.reg.lanes {
		if e.reg.lanes[i].runner == nil {
			continue
		}
		if x := e.reg.x(i); x > bestX {
			best, bestX = i, x
		}
	}
	return best
}

// LeaderProgress is the leader's fractional distance between start and
// finish line, clamped to [0, 1.5].
func (e *Engine) LeaderProgress() float64 {
	if e.st == nil {
		return 0
	}
	leader := e.st.leader
	if leader < 0 {
		leader = e.computeLeader()
	}
	if leader < 0 {
		return 0
	}
	pct := (e.reg.x(leader) - e.cfg.Track.StartX) / e.cfg.Track.Length()
	return clamp(pct, 0, 1.5)
}

func (e *Engine) Started() bool { return e.st != nil }

// Leader returns the front-runner's lane, or -1 before the first race.
func (e *Engine) Leader() int {
	if e.st == nil {
		return -1
	}
	return e.st.leader
}

// CurrentOrder returns lanes sorted by position, front first.
func (e *Engine) CurrentOrder() []int {
	return currentOrder(e.Lanes(), e.reg.orderKey)
}

// FinalRank returns the lanes in the order they crossed the line. It may be
// partial while the race is still running.
func (e *Engine) FinalRank() []int {
	if e.st == nil {
		return nil
	}
	out := make([]int, len(e.st.finish.rank))
	copy(out, e.st.finish.rank)
	return out
}

// FinishedAt returns the absolute race-clock time lane i first crossed the
// line.
func (e *Engine) FinishedAt(i int) (float64, bool) {
	if e.st == nil || !e.st.finish.finished(i) {
		return 0, false
	}
	return e.st.finish.at[i], true
}

// ScheduledFinish returns lane i's target finish time once the schedule
// exists.
func (e *Engine) ScheduledFinish(i int) (float64, bool) {
	if e.st == nil {
		return 0, false
	}
	return e.st.schedule.get(i)
}

func (e *Engine) LockStage() LockStage {
	if e.st == nil {
		return StageNone
	}
	return e.st.stage
}

func (e *Engine) SlowMoActive() bool { return e.st != nil && e.st.slow.active }

// Frozen reports whether the post-first-finish speed freeze is in effect.
func (e *Engine) Frozen() bool { return e.st != nil && e.st.slow.frozen }

// ForcedTop5 returns the validated forced top five, or nil for a natural
// race.
func (e *Engine) ForcedTop5() []int {
	if e.st == nil || e.st.forced == nil {
		return nil
	}
	out := make([]int, len(e.st.forced))
	copy(out, e.st.forced)
	return out
}

func (e *Engine) Velocity(i int) float64 { return e.reg.lanes[i].velocity }

// Phase returns the time based phase of the current race.
func (e *Engine) Phase() Phase {
	if e.st == nil {
		return PhaseStart
	}
	return phaseAt(e.st.clock, e.st.duration, e.cfg.Phases)
}

// Duration returns the current race's target duration in seconds.
func (e *Engine) Duration() float64 {
	if e.st == nil {
		return 0
	}
	return e.st.duration
}

func (e *Engine) AllFinished() bool { return e.st != nil && e.st.finish.complete() }
