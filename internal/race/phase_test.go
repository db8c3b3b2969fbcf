package race

import "testing"

func TestNextStageTransitions(t *testing.T) {
	cfg := DefaultConfig().Lock
	cases := []struct {
		from LockStage
		p    float64
		want LockStage
	}{
		{StageNone, 0.50, StageNone},
		{StageNone, 0.71, StagePreLock},
		{StageNone, 0.80, StageLockStrong},
		{StagePreLock, 0.76, StageLockStrong},
		{StagePreLock, 0.73, StagePreLock},
		{StagePreLock, 0.715, StageNone},
		{StageLockStrong, 0.10, StageLockStrong},
		{StageFinishGuard, 0.10, StageFinishGuard},
		{StageFinishGuard, 1.20, StageFinishGuard},
	}
	for _, c := range cases {
		if got := nextStage(c.from, c.p, cfg); got != c.want {
			t.Fatalf("nextStage(%s, %v) = %s, want %s", c.from, c.p, got, c.want)
		}
	}
}

func TestStageGains(t *testing.T) {
	cfg := DefaultConfig().Lock
	if _, ok := StageNone.gain(cfg); ok {
		t.Fatal("expected no gain set without a lock stage")
	}
	g, ok := StageLockStrong.gain(cfg)
	if !ok || g != cfg.Strong {
		t.Fatalf("expected strong gains, got %+v", g)
	}
	if g, _ := StageFinishGuard.gain(cfg); g != cfg.Guard {
		t.Fatalf("expected guard gains, got %+v", g)
	}
}

func TestPhaseAt(t *testing.T) {
	splits := DefaultConfig().Phases
	cases := []struct {
		elapsed float64
		want    Phase
	}{
		{0, PhaseStart},
		{11.9, PhaseStart},
		{12, PhaseMid},
		{17, PhaseSetup},
		{19.5, PhaseLock},
		{100, PhaseLock},
	}
	for _, c := range cases {
		if got := phaseAt(c.elapsed, 20, splits); got != c.want {
			t.Fatalf("phaseAt(%v) = %s, want %s", c.elapsed, got, c.want)
		}
	}
	if got := phaseAt(5, 0, splits); got != PhaseStart {
		t.Fatalf("expected start phase without a duration, got %s", got)
	}
}

func TestStageStrings(t *testing.T) {
	names := map[LockStage]string{
		StageNone:        "None",
		StagePreLock:     "PreLock",
		StageLockStrong:  "LockStrong",
		StageFinishGuard: "FinishGuard",
		LockStage(42):    "Unknown",
	}
	for s, want := range names {
		if s.String() != want {
			t.Fatalf("expected %q, got %q", want, s.String())
		}
	}
	if StageNone.Locking() || !StagePreLock.Locking() {
		t.Fatal("unexpected Locking result")
	}
}
