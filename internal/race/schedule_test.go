package race

import (
	"math"
	"testing"
)

func scheduleFor(t *testing.T, x []float64, now float64) *finishSchedule {
	t.Helper()
	s := newFinishSchedule(len(x))
	in := scheduleInput{
		start:    0,
		duration: 20,
		now:      now,
		forced:   []int{4, 2, 0, 6, 1},
		finishX:  1000,
		vMax:     180,
		x:        func(i int) float64 { return x[i] },
		usable:   func(int) bool { return true },
	}
	s.build(in, DefaultConfig().Schedule, 0.15, newGenerator(21))
	if !s.built {
		t.Fatal("schedule was not built")
	}
	return s
}

func TestScheduleOrdersForcedLanes(t *testing.T) {
	x := []float64{900, 900, 900, 900, 900, 900, 900, 900}
	s := scheduleFor(t, x, 17)
	cfg := DefaultConfig().Schedule

	var t1 float64
	prev := math.Inf(-1)
	for k, lane := range []int{4, 2, 0, 6, 1} {
		at, ok := s.get(lane)
		if !ok {
			t.Fatalf("forced lane %d has no deadline", lane)
		}
		if k == 0 {
			t1 = at
			if at < 20-0.15 || at > 20+0.15 {
				t.Fatalf("winner deadline %v outside jitter window", at)
			}
		} else {
			gap := cfg.Gaps[k]
			if at < t1+gap.Min || at > t1+gap.Max {
				t.Fatalf("rank %d deadline %v outside [%v, %v]", k+1, at, t1+gap.Min, t1+gap.Max)
			}
		}
		if at < prev {
			t.Fatalf("forced deadlines not increasing at rank %d", k+1)
		}
		prev = at
	}
	t5 := prev
	for _, lane := range []int{3, 5, 7} {
		at, _ := s.get(lane)
		if at < t5+cfg.RestMin || at > t5+cfg.RestMax {
			t.Fatalf("lane %d deadline %v outside rest window after %v", lane, at, t5)
		}
	}
}

func TestScheduleFeasibilityFloor(t *testing.T) {
	// Lane 3 sits far back; reaching the line by any rest deadline would
	// need more than vMax.
	x := []float64{900, 900, 900, -1000, 900, 900, 900, 900}
	s := scheduleFor(t, x, 17)

	at, ok := s.get(3)
	if !ok {
		t.Fatal("lane 3 has no deadline")
	}
	if need := (1000 - x[3]) / (at - 17); need > 180+1e-9 {
		t.Fatalf("deadline %v still needs %v > vMax", at, need)
	}
}

func TestScheduleBuildsOnce(t *testing.T) {
	x := []float64{0, 0, 0, 0, 0, 0, 0, 0}
	s := scheduleFor(t, x, 17)
	before := append([]float64(nil), s.at...)

	s.build(scheduleInput{forced: []int{0, 1, 2, 3, 4}, x: func(int) float64 { return 0 }, usable: func(int) bool { return true }},
		DefaultConfig().Schedule, 0, newGenerator(1))
	for i := range before {
		if s.at[i] != before[i] {
			t.Fatal("schedule rebuilt")
		}
	}
}

func TestScheduleNeedsFiveForcedLanes(t *testing.T) {
	s := newFinishSchedule(3)
	s.build(scheduleInput{forced: []int{0, 1}}, DefaultConfig().Schedule, 0, newGenerator(1))
	if s.built {
		t.Fatal("schedule built without a full top five")
	}
	if _, ok := s.get(0); ok {
		t.Fatal("unbuilt schedule returned a deadline")
	}
}

func TestFinishStampIsIdempotent(t *testing.T) {
	f := newFinishRecord(3)
	if f.any() {
		t.Fatal("fresh record reports finishers")
	}
	if !f.stamp(2, 10) {
		t.Fatal("first stamp rejected")
	}
	if f.stamp(2, 11) {
		t.Fatal("second stamp accepted")
	}
	if f.at[2] != 10 || len(f.rank) != 1 {
		t.Fatalf("stamp overwritten: at=%v rank=%v", f.at[2], f.rank)
	}
	f.stamp(0, 12)
	f.stamp(1, 12)
	if !f.complete() {
		t.Fatal("expected record to be complete")
	}
	want := []int{2, 0, 1}
	for k := range want {
		if f.rank[k] != want[k] {
			t.Fatalf("expected rank %v, got %v", want, f.rank)
		}
	}
}

func TestSlowMotionTriggerAndFreeze(t *testing.T) {
	cfg := DefaultConfig().SlowMo
	s := newSlowMotion(3, cfg)
	vel := func(i int) float64 { return []float64{50, 120, 400}[i] }
	racing := func(i int) bool { return i != 1 }

	if s.maybeTrigger(0.5, 1, racing, vel, 60, 180) {
		t.Fatal("triggered early")
	}
	if !s.maybeTrigger(0.92, 2, racing, vel, 60, 180) {
		t.Fatal("expected trigger")
	}
	if s.scale() != cfg.Rate {
		t.Fatalf("expected scale %v, got %v", cfg.Rate, s.scale())
	}
	if s.maybeTrigger(0.95, 3, racing, vel, 60, 180) {
		t.Fatal("slow motion re-armed")
	}

	s.freeze(func(int) bool { return true }, func(int) float64 { return 300 }, 60, 180)
	if s.scale() != 1 {
		t.Fatal("freeze must end slow motion")
	}
	want := []float64{60, 180, 180}
	for i, w := range want {
		got, ok := s.pinnedVelocity(i)
		if !ok || got != w {
			t.Fatalf("lane %d pinned at %v (%v), want %v", i, got, ok, w)
		}
	}
	if s.maybeTrigger(0.99, 4, racing, vel, 60, 180) {
		t.Fatal("triggered after freeze")
	}
}
