package race

// Agent is a minimal Runner for exercising the engine.
type Agent struct {
	Lane      int
	Position  float64
	AnimClock float64
	Loaded    bool
}

// NewAgents creates n loaded agents placed at x.
func NewAgents(n int, x float64) []*Agent {
	agents := make([]*Agent, n)
	for i := range agents {
		agents[i] = &Agent{Lane: i, Position: x, Loaded: true}
	}
	return agents
}

// Runners adapts a slice of agents to the engine's Runner slice.
func Runners(agents []*Agent) []Runner {
	out := make([]Runner, len(agents))
	for i, a := range agents {
		out[i] = a
	}
	return out
}

func (a *Agent) X() float64 {
	if a == nil {
		return 0
	}
	return a.Position
}

func (a *Agent) SetX(x float64) {
	if a != nil {
		a.Position = x
	}
}

// Advance steps the animation clock by dt seconds.
func (a *Agent) Advance(dt float64) {
	if a != nil && dt > 0 {
		a.AnimClock += dt
	}
}

func (a *Agent) Ready() bool { return a != nil && a.Loaded }
