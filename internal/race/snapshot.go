package race

// LaneState is a read-only view of one lane between ticks.
type LaneState struct {
	Lane       int     `json:"lane"`
	X          float64 `json:"x"`
	Velocity   float64 `json:"velocity"`
	BaseSpeed  float64 `json:"baseSpeed"`
	Ready      bool    `json:"ready"`
	Finished   bool    `json:"finished"`
	FinishedAt float64 `json:"finishedAt,omitempty"`
	Sprinting  bool    `json:"sprinting"`
}

// Snapshot is a read-only copy of the engine state for presentation layers
// polling between ticks.
type Snapshot struct {
	Started   bool        `json:"started"`
	Clock     float64     `json:"clock"`
	Duration  float64     `json:"duration"`
	Progress  float64     `json:"progress"`
	Phase     string      `json:"phase"`
	Stage     string      `json:"stage"`
	SlowMo    bool        `json:"slowMo"`
	Frozen    bool        `json:"frozen"`
	Leader    int         `json:"leader"`
	Order     []int       `json:"order"`
	FinalRank []int       `json:"finalRank"`
	Forced    []int       `json:"forced,omitempty"`
	Lanes     []LaneState `json:"lanes"`
}

// Snapshot copies the current state. It has no side effects.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Started:   e.Started(),
		Duration:  e.Duration(),
		Progress:  e.LeaderProgress(),
		Phase:     e.Phase().String(),
		Stage:     e.LockStage().String(),
		SlowMo:    e.SlowMoActive(),
		Frozen:    e.Frozen(),
		Leader:    e.Leader(),
		Order:     e.CurrentOrder(),
		FinalRank: e.FinalRank(),
		Forced:    e.ForcedTop5(),
		Lanes:     make([]LaneState, e.Lanes()),
	}
	if e.st != nil {
		s.Clock = e.st.clock
	}
	for i := range s.Lanes {
		ls := LaneState{
			Lane:      i,
			X:         e.reg.x(i),
			Velocity:  e.reg.lanes[i].velocity,
			BaseSpeed: e.reg.lanes[i].baseSpeed,
			Ready:     e.reg.usable(i),
		}
		if at, ok := e.FinishedAt(i); ok {
			ls.Finished = true
			ls.FinishedAt = at
		}
		if e.st != nil {
			_, ls.Sprinting = e.st.sprint.sprinting(i)
		}
		s.Lanes[i] = ls
	}
	return s
}
