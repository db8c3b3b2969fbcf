package sim

import (
	"github.com/shopspring/decimal"

	"gallop/internal/race"
)

// Snapshot is a point-in-time copy of the host for presentation.
type Snapshot struct {
	GameID    string        `json:"gameId"`
	State     State         `json:"state"`
	Clock     float64       `json:"clock"`
	Countdown float64       `json:"countdown"`
	Progress  int           `json:"progress"`
	Complete  bool          `json:"complete"`
	Ranking   []string      `json:"ranking"`
	Top5      []string      `json:"top5"`
	Bob       []float64     `json:"bob"`
	Race      race.Snapshot `json:"race"`
}

// LaneTime is one runner's crossing, relative to the race start.
type LaneTime struct {
	Lane  string          `json:"lane"`
	Place int             `json:"place"`
	Time  decimal.Decimal `json:"time"`
}

// Result is the game:finished payload.
type Result struct {
	GameID  string     `json:"gameId"`
	Results []string   `json:"results"`
	Top5    []string   `json:"top5"`
	Forced  []string   `json:"forced,omitempty"`
	Honored bool       `json:"honored"`
	Times   []LaneTime `json:"times"`
}

func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranking := s.rankingLocked()
	snap := Snapshot{
		GameID:   s.gameID,
		State:    s.state,
		Clock:    s.clock,
		Progress: s.progressLocked(),
		Complete: s.complete,
		Ranking:  ranking,
		Top5:     top5(ranking),
		Bob:      make([]float64, len(s.agents)),
		Race:     s.engine.Snapshot(),
	}
	if s.state == StateRunning && s.clock < s.raceStart {
		snap.Countdown = s.raceStart - s.clock
	}
	for i, a := range s.agents {
		snap.Bob[i] = a.Bob()
	}
	return snap
}

// Result returns the outcome of the last completed race.
func (s *Simulation) Result() (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.result == nil {
		return Result{}, ErrNoResult
	}
	r := *s.result
	r.Results = append([]string(nil), r.Results...)
	r.Top5 = append([]string(nil), r.Top5...)
	r.Forced = append([]string(nil), r.Forced...)
	r.Times = append([]LaneTime(nil), r.Times...)
	return r, nil
}

func (s *Simulation) buildResultLocked() Result {
	order := s.engine.FinalRank()
	ranking := labels(order)
	r := Result{
		GameID:  s.gameID,
		Results: ranking,
		Top5:    top5(ranking),
		Times:   make([]LaneTime, 0, len(order)),
	}
	for place, lane := range order {
		at, _ := s.engine.FinishedAt(lane)
		r.Times = append(r.Times, LaneTime{
			Lane:  label(lane),
			Place: place + 1,
			Time:  decimal.NewFromFloat(at - s.raceStart).Round(3),
		})
	}
	if forced := s.engine.ForcedTop5(); forced != nil {
		r.Forced = labels(forced)
		r.Honored = true
		for k, l := range r.Forced {
			if r.Top5[k] != l {
				r.Honored = false
				break
			}
		}
	}
	return r
}
