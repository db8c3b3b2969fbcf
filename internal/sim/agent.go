package sim

import (
	"math"
	"sync"
)

var (
	gaitMu          sync.RWMutex
	CurrentGaitRate = 1.0
)

// SetGaitRate updates the package-level multiplier applied to every agent's
// gait cycle. Values below zero are clamped to zero.
func SetGaitRate(rate float64) {
	gaitMu.Lock()
	defer gaitMu.Unlock()

	if rate < 0 {
		rate = 0
	}

	CurrentGaitRate = rate
}

// GaitRate returns the current gait multiplier used by agents.
func GaitRate() float64 {
	gaitMu.RLock()
	defer gaitMu.RUnlock()

	return CurrentGaitRate
}

// Agent is the in-process proxy of one lane. The race engine moves it along
// the track; the agent itself only keeps its animation state.
type Agent struct {
	Lane     int
	Position float64
	// Gait is the running animation clock in seconds, scaled by GaitRate.
	Gait   float64
	Loaded bool
}

func newAgents(n int, x float64) []*Agent {
	agents := make([]*Agent, n)
	for i := range agents {
		agents[i] = &Agent{Lane: i, Position: x}
	}
	return agents
}

func (a *Agent) X() float64 { return a.Position }

func (a *Agent) SetX(x float64) { a.Position = x }

// Advance steps the gait clock by deltaSeconds, applying the global gait
// rate.
func (a *Agent) Advance(deltaSeconds float64) {
	if deltaSeconds <= 0 {
		return
	}
	a.Gait += deltaSeconds * GaitRate()
}

func (a *Agent) Ready() bool { return a.Loaded }

// Bob is the vertical offset of the runner's body at its current gait time.
func (a *Agent) Bob() float64 {
	return math.Abs(math.Sin(a.Gait*5+float64(a.Lane)*1.3)*0.3) * 0.2
}
