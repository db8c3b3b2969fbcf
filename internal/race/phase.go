package race

// LockStage is the rank controller's mode. Stages only move forward except
// for the PreLock -> None release.
type LockStage int

const (
	StageNone LockStage = iota
	StagePreLock
	StageLockStrong
	StageFinishGuard
)

func (s LockStage) String() string {
	switch s {
	case StageNone:
		return "None"
	case StagePreLock:
		return "PreLock"
	case StageLockStrong:
		return "LockStrong"
	case StageFinishGuard:
		return "FinishGuard"
	default:
		return "Unknown"
	}
}

// Locking reports whether the stage biases speeds toward a desired order.
func (s LockStage) Locking() bool { return s != StageNone }

// nextStage evaluates the progress driven transitions. FinishGuard is only
// entered through the first finish and never left.
func nextStage(s LockStage, p float64, cfg Lock) LockStage {
	switch s {
	case StageNone:
		if p >= cfg.Trigger {
			return StageLockStrong
		}
		if p >= cfg.PreTrigger {
			return StagePreLock
		}
	case StagePreLock:
		if p >= cfg.Trigger {
			return StageLockStrong
		}
		if p < cfg.Release {
			return StageNone
		}
	}
	return s
}

func (s LockStage) gain(cfg Lock) (Gain, bool) {
	switch s {
	case StagePreLock:
		return cfg.Pre, true
	case StageLockStrong:
		return cfg.Strong, true
	case StageFinishGuard:
		return cfg.Guard, true
	}
	return Gain{}, false
}

// Phase is the time based segment of the race, measured against the target
// duration rather than track progress.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseMid
	PhaseSetup
	PhaseLock
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseMid:
		return "mid"
	case PhaseSetup:
		return "setup"
	case PhaseLock:
		return "lock"
	default:
		return "unknown"
	}
}

func phaseAt(elapsed, duration float64, splits Phases) Phase {
	if duration <= 0 {
		return PhaseStart
	}
	t := clamp(elapsed/duration, 0, 2)
	switch {
	case t < splits.Start:
		return PhaseStart
	case t < splits.Setup:
		return PhaseMid
	case t < splits.Lock:
		return PhaseSetup
	default:
		return PhaseLock
	}
}
