package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"gallop/internal/race"
)

const frame = 1.0 / 60

func newTestSimulation(seed int64, opts ...Option) *Simulation {
	cfg := race.DefaultConfig()
	cfg.Seed = seed
	return New(cfg, opts...)
}

// runToCompletion steps until the race result exists.
func runToCompletion(t *testing.T, s *Simulation) Result {
	t.Helper()
	for i := 0; i < 60*120; i++ {
		if _, err := s.Step(frame); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		if r, err := s.Result(); err == nil {
			return r
		}
	}
	t.Fatal("race did not complete")
	return Result{}
}

func TestNewSimulationIsReady(t *testing.T) {
	s := newTestSimulation(1)

	if s.State() != StateReady {
		t.Fatalf("expected ready state, got %s", s.State())
	}
	if s.Lanes() != 11 {
		t.Fatalf("expected 11 lanes, got %d", s.Lanes())
	}
	if s.Progress() != 100 {
		t.Fatalf("expected loading complete, got %d", s.Progress())
	}
	if _, err := s.Result(); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestRaceRunsToCompletion(t *testing.T) {
	s := newTestSimulation(3)
	if err := s.Start(StartOptions{Rank: []int{3, 5, 1, 7, 2}, DurationSec: 24}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if s.GameID() == "" {
		t.Fatal("expected a generated game id")
	}

	r := runToCompletion(t, s)

	if s.State() != StateFinished {
		t.Fatalf("expected finished state, got %s", s.State())
	}
	if r.GameID != s.GameID() {
		t.Fatalf("result game id %q does not match %q", r.GameID, s.GameID())
	}
	if len(r.Results) != 11 || len(r.Top5) != 5 || len(r.Times) != 11 {
		t.Fatalf("unexpected result sizes: %+v", r)
	}
	want := []string{"3", "5", "1", "7", "2"}
	for k := range want {
		if r.Forced[k] != want[k] {
			t.Fatalf("expected forced labels %v, got %v", want, r.Forced)
		}
	}

	seen := make(map[string]bool)
	for k, lt := range r.Times {
		if lt.Place != k+1 || lt.Lane != r.Results[k] {
			t.Fatalf("time entry %d does not follow the ranking: %+v", k, lt)
		}
		if seen[lt.Lane] {
			t.Fatalf("lane %s finished twice", lt.Lane)
		}
		seen[lt.Lane] = true
		if lt.Time.Exponent() < -3 {
			t.Fatalf("expected millisecond precision, got %s", lt.Time)
		}
		if k > 0 && lt.Time.LessThan(r.Times[k-1].Time) {
			t.Fatalf("finish times not ordered at place %d", k+1)
		}
	}

	snap := s.Snapshot()
	if !snap.Complete {
		t.Fatal("expected snapshot to report completion")
	}
	for k := range r.Results {
		if snap.Ranking[k] != r.Results[k] {
			t.Fatalf("expected final ranking %v, got %v", r.Results, snap.Ranking)
		}
	}
}

func TestPauseFreezesClock(t *testing.T) {
	s := newTestSimulation(5)
	if err := s.Start(StartOptions{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 30; i++ {
		s.Step(frame)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("second pause should be a no-op, got %v", err)
	}

	before := s.Snapshot()
	for i := 0; i < 120; i++ {
		s.Step(frame)
	}
	after := s.Snapshot()
	if after.Clock != before.Clock {
		t.Fatalf("clock moved while paused: %v -> %v", before.Clock, after.Clock)
	}
	for i := range before.Race.Lanes {
		if after.Race.Lanes[i].X != before.Race.Lanes[i].X {
			t.Fatalf("lane %d moved while paused", i)
		}
	}

	if err := s.Start(StartOptions{}); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if s.GameID() != before.GameID {
		t.Fatal("resume must keep the game id")
	}
	s.Step(frame)
	if s.Snapshot().Clock <= before.Clock {
		t.Fatal("clock did not resume")
	}
}

func TestLifecycleErrors(t *testing.T) {
	s := newTestSimulation(7)

	if err := s.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := s.Start(StartOptions{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Start(StartOptions{}); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := s.Configure(race.DefaultConfig()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected configure to be refused, got %v", err)
	}

	if err := s.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if _, err := s.Step(frame); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed from Step, got %v", err)
	}
	if err := s.Start(StartOptions{}); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed from Start, got %v", err)
	}
	if err := s.End(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed from second End, got %v", err)
	}
}

func TestCountdownHoldsField(t *testing.T) {
	s := newTestSimulation(9)
	startX := s.Config().Track.StartX
	if err := s.Start(StartOptions{CountdownSec: 1}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 30; i++ {
		s.Step(frame)
	}

	snap := s.Snapshot()
	if snap.Countdown <= 0 {
		t.Fatalf("expected countdown remaining, got %v", snap.Countdown)
	}
	for _, l := range snap.Race.Lanes {
		if l.X != startX {
			t.Fatalf("lane %d left the start during the countdown", l.Lane)
		}
	}

	for i := 0; i < 60; i++ {
		s.Step(frame)
	}
	snap = s.Snapshot()
	if snap.Countdown != 0 {
		t.Fatalf("expected countdown over, got %v", snap.Countdown)
	}
	if snap.Race.Lanes[0].X <= startX {
		t.Fatal("field did not start after the countdown")
	}
}

func TestUnloadedLanesReportProgress(t *testing.T) {
	s := newTestSimulation(11, WithUnloaded())

	if s.Progress() != 0 {
		t.Fatalf("expected no progress, got %d", s.Progress())
	}
	if err := s.MarkLoaded(1); err != nil {
		t.Fatalf("mark loaded failed: %v", err)
	}
	if s.Progress() != 9 {
		t.Fatalf("expected 9%% progress, got %d", s.Progress())
	}
	if err := s.MarkLoaded(0); !errors.Is(err, ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}
	if err := s.MarkLoaded(12); !errors.Is(err, ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}

	s.Start(StartOptions{})
	for i := 0; i < 60; i++ {
		s.Step(frame)
	}
	snap := s.Snapshot()
	if snap.Race.Lanes[1].X != s.Config().Track.StartX {
		t.Fatal("unloaded lane moved")
	}
	if snap.Race.Lanes[0].X <= s.Config().Track.StartX {
		t.Fatal("loaded lane did not move")
	}
}

func TestRestartAfterCompletion(t *testing.T) {
	s := newTestSimulation(13)
	s.Start(StartOptions{GameID: "first"})
	runToCompletion(t, s)

	if err := s.Start(StartOptions{GameID: "second"}); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if s.GameID() != "second" || s.State() != StateRunning {
		t.Fatalf("expected a fresh running race, got %s in %s", s.GameID(), s.State())
	}
	if _, err := s.Result(); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected the old result to be cleared, got %v", err)
	}
	r := runToCompletion(t, s)
	if r.GameID != "second" {
		t.Fatalf("expected result for the second race, got %q", r.GameID)
	}
}

func TestConfigureReturnsToReady(t *testing.T) {
	s := newTestSimulation(15)
	cfg := race.DefaultConfig()
	cfg.Track.Lanes = 6

	if err := s.Configure(cfg); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if s.Lanes() != 6 || s.State() != StateReady {
		t.Fatalf("expected 6 lanes in ready state, got %d in %s", s.Lanes(), s.State())
	}
}

func TestConfigureKeepsLoadedLanes(t *testing.T) {
	s := newTestSimulation(17, WithUnloaded())
	for lane := 1; lane <= s.Lanes(); lane++ {
		if err := s.MarkLoaded(lane); err != nil {
			t.Fatalf("mark loaded failed: %v", err)
		}
	}

	if err := s.Configure(s.Config()); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if s.Progress() != 100 {
		t.Fatalf("expected loaded lanes to survive configure, got %d%%", s.Progress())
	}
	if err := s.Start(StartOptions{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if r := runToCompletion(t, s); len(r.Results) != s.Lanes() {
		t.Fatalf("expected %d finishers, got %d", s.Lanes(), len(r.Results))
	}

	cfg := s.Config()
	cfg.Track.Lanes = 6
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if s.Progress() != 0 {
		t.Fatalf("expected a resized field to reload, got %d%%", s.Progress())
	}
}

func TestRunReports(t *testing.T) {
	s := newTestSimulation(17)
	if err := s.Start(StartOptions{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reported := make(chan Snapshot, 1)

	go s.Run(ctx, 10*time.Millisecond, func(state Snapshot) {
		select {
		case reported <- state:
		default:
		}
		cancel()
	})

	select {
	case state := <-reported:
		if state.State != StateRunning {
			t.Fatalf("expected running state, got %s", state.State)
		}
		if state.Clock <= 0 {
			t.Fatalf("expected the clock to advance, got %v", state.Clock)
		}
		if len(state.Ranking) != 11 || len(state.Top5) != 5 {
			t.Fatalf("expected live ranking, got %v", state.Ranking)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for report")
	}
}

func TestRunStopsWhenDisposed(t *testing.T) {
	s := newTestSimulation(19)
	s.End()

	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), 5*time.Millisecond, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop kept going after End")
	}
}
