// Package sim hosts one race at a time: it owns the lane agents, drives the
// race engine from a frame clock that only runs while the race is live, and
// exposes the start/pause/end lifecycle the embedding page talks to.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	gamelog "gallop/internal/log"
	"gallop/internal/race"
)

// State is the host's game state.
type State string

const (
	StateReady    State = "ready"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateFinished State = "finished"
	StateDisposed State = "disposed"
)

var (
	ErrDisposed       = errors.New("race disposed")
	ErrNotRunning     = errors.New("race not running")
	ErrAlreadyRunning = errors.New("race already running")
	ErrNoResult       = errors.New("race result not available")
	ErrUnknownLane    = errors.New("unknown lane")
)

// maxFrame caps the delta Run hands to Step after a stalled tick.
const maxFrame = 0.1

// StartOptions carries the host:start payload.
type StartOptions struct {
	// GameID names the race; empty generates one.
	GameID string
	// Rank is the requested top five as 1-based lane numbers.
	Rank []int
	// DurationSec is the target race duration; zero picks one at random.
	DurationSec float64
	// CountdownSec holds the field on the start line before the clock
	// reaches the race start.
	CountdownSec float64
}

type Option func(*Simulation)

// WithLogger routes host and engine logs to l.
func WithLogger(l *gamelog.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithUnloaded creates every lane unloaded. Lanes join the race once
// MarkLoaded is called for them.
func WithUnloaded() Option {
	return func(s *Simulation) {
		s.unloaded = true
	}
}

// Simulation is safe for concurrent use; the websocket hub, the REST
// handlers and the frame loop all share one.
type Simulation struct {
	mu       sync.RWMutex
	log      *gamelog.Logger
	unloaded bool

	cfg    race.Config
	agents []*Agent
	engine *race.Engine

	state     State
	gameID    string
	clock     float64
	raceStart float64
	complete  bool
	result    *Result
}

// New creates a host in the Ready state for cfg.Track.Lanes lanes.
func New(cfg race.Config, opts ...Option) *Simulation {
	s := &Simulation{
		log:   gamelog.Discard(),
		state: StateReady,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.build(cfg)
	return s
}

// build creates the agents and engine for cfg. When the lane count is
// unchanged the loaded flags carry over, since the embedding page does not
// reload lanes it already reported.
func (s *Simulation) build(cfg race.Config) {
	cfg.Normalize()
	prev := s.agents
	s.cfg = cfg
	s.agents = newAgents(cfg.Track.Lanes, cfg.Track.StartX)
	runners := make([]race.Runner, len(s.agents))
	for i, a := range s.agents {
		a.Loaded = !s.unloaded
		if len(prev) == len(s.agents) {
			a.Loaded = prev[i].Loaded
		}
		runners[i] = a
	}
	s.engine = race.New(cfg, runners, race.WithLogger(s.log.With("[race] ")))
}

// Configure replaces the tuning and returns the host to Ready. It is refused
// while a race is in progress.
func (s *Simulation) Configure(cfg race.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idleLocked("configure"); err != nil {
		return err
	}
	s.build(cfg)
	s.state = StateReady
	s.complete = false
	s.log.Infof("tuning updated: lanes=%d", s.cfg.Track.Lanes)
	return nil
}

// idleLocked returns nil when no race is in progress.
func (s *Simulation) idleLocked(op string) error {
	switch s.state {
	case StateDisposed:
		return ErrDisposed
	case StateReady:
		return nil
	case StateFinished:
		if s.complete {
			return nil
		}
	}
	return fmt.Errorf("%s race %s: %w", op, s.gameID, ErrAlreadyRunning)
}

func (s *Simulation) Config() race.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg
}

func (s *Simulation) Lanes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.agents)
}

func (s *Simulation) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Simulation) GameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.gameID
}

// MarkLoaded flags lane (1-based) as loaded so it takes part in the race.
func (s *Simulation) MarkLoaded(lane int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lane < 1 || lane > len(s.agents) {
		return fmt.Errorf("mark lane %d loaded: %w", lane, ErrUnknownLane)
	}
	s.agents[lane-1].Loaded = true
	return nil
}

// Progress is the loading progress in percent.
func (s *Simulation) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.progressLocked()
}

func (s *Simulation) progressLocked() int {
	if len(s.agents) == 0 {
		return 100
	}
	loaded := 0
	for _, a := range s.agents {
		if a.Loaded {
			loaded++
		}
	}
	return loaded * 100 / len(s.agents)
}

// Start begins a new race, or resumes a paused one (opts are then ignored).
// A completed race may be followed by a fresh Start.
func (s *Simulation) Start(opts StartOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StatePaused {
		s.state = StateRunning
		s.log.Infof("race %s resumed", s.gameID)
		return nil
	}
	if err := s.idleLocked("start"); err != nil {
		return err
	}

	id := opts.GameID
	if id == "" {
		id = uuid.NewString()
	}
	var forced []int
	if len(opts.Rank) > 0 {
		forced = make([]int, len(opts.Rank))
		for k, n := range opts.Rank {
			forced[k] = n - 1
		}
	}

	s.gameID = id
	s.clock = 0
	s.raceStart = math.Max(0, opts.CountdownSec)
	s.complete = false
	s.result = nil
	s.engine.StartRace(s.raceStart, forced, opts.DurationSec)
	s.state = StateRunning

	s.log.Infof("race %s started: rank=%v duration=%.2fs countdown=%.1fs", id, opts.Rank, s.engine.Duration(), s.raceStart)
	return nil
}

// Pause freezes the clock of a running race. Pausing twice is a no-op.
func (s *Simulation) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisposed:
		return ErrDisposed
	case StatePaused:
		return nil
	case StateRunning:
		s.state = StatePaused
		s.log.Infof("race %s paused at %.2fs", s.gameID, s.clock)
		return nil
	}
	return fmt.Errorf("pause in state %s: %w", s.state, ErrNotRunning)
}

// End disposes the host. Every later call returns ErrDisposed.
func (s *Simulation) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisposed {
		return ErrDisposed
	}
	s.state = StateDisposed
	s.log.Infof("race %s ended and disposed", s.gameID)
	return nil
}

// Step advances the host by one frame of dt seconds.
func (s *Simulation) Step(dt float64) (race.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dt < 0 {
		dt = 0
	}
	switch s.state {
	case StateDisposed:
		return race.TickResult{}, ErrDisposed
	case StatePaused:
		return race.TickResult{}, nil
	case StateReady:
		// Idle animation only; nobody moves before the start.
		for _, a := range s.agents {
			if a.Loaded {
				a.Advance(dt)
			}
		}
		return race.TickResult{}, nil
	}
	if s.complete {
		return race.TickResult{}, nil
	}

	s.clock += dt
	if s.clock < s.raceStart {
		return race.TickResult{}, nil
	}

	res := s.engine.Tick(dt, s.clock)
	if res.FirstFinished && s.state == StateRunning {
		s.state = StateFinished
		s.log.Infof("race %s: first finish, waiting for the field", s.gameID)
	}
	if res.AllFinished {
		s.complete = true
		r := s.buildResultLocked()
		s.result = &r
		s.log.Infof("race %s complete: results=%v top5=%v", s.gameID, r.Results, r.Top5)
	}
	return res, nil
}

// Run drives Step from a ticker until ctx is cancelled or the host is
// disposed, reporting a snapshot after every frame.
func (s *Simulation) Run(ctx context.Context, interval time.Duration, report func(Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := math.Min(now.Sub(last).Seconds(), maxFrame)
			last = now
			if _, err := s.Step(dt); err != nil {
				s.log.Infof("simulation loop stopped: %v", err)
				return
			}
			snap := s.Snapshot()
			if report != nil {
				report(snap)
			}
			s.log.Debugf("simulation step: state=%s clock=%.3f leader=%d", snap.State, snap.Clock, snap.Race.Leader)
		}
	}
}

func label(lane int) string { return strconv.Itoa(lane + 1) }

func labels(lanes []int) []string {
	out := make([]string, len(lanes))
	for k, i := range lanes {
		out[k] = label(i)
	}
	return out
}

func top5(ranking []string) []string {
	if len(ranking) > 5 {
		ranking = ranking[:5]
	}
	return append([]string(nil), ranking...)
}

// rankingLocked is the live order while racing and the crossing order once
// everyone is in.
func (s *Simulation) rankingLocked() []string {
	if s.complete {
		return labels(s.engine.FinalRank())
	}
	return labels(s.engine.CurrentOrder())
}
