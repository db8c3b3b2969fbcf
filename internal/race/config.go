package race

// Track describes the race geometry along the x axis.
type Track struct {
	StartX  float64 `json:"startX"`
	FinishX float64 `json:"finishX"`
	// DetectOffset moves the finish-detection threshold slightly before the
	// literal line so a frame step cannot skip over it.
	DetectOffset float64 `json:"detectOffset"`
	Lanes        int     `json:"lanes"`
}

// Length is the distance between start and finish line.
func (t Track) Length() float64 { return t.FinishX - t.StartX }

// DetectX is the x position at which a runner counts as finished.
func (t Track) DetectX() float64 { return t.FinishX - t.DetectOffset }

type Speed struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Blend float64 `json:"blend"`
	// BaseMin and BaseMax bound the per-lane pacing anchor drawn once per engine.
	BaseMin float64 `json:"baseMin"`
	BaseMax float64 `json:"baseMax"`
}

type Duration struct {
	MinSec    float64 `json:"minSec"`
	MaxSec    float64 `json:"maxSec"`
	JitterSec float64 `json:"jitterSec"`
}

// Phases splits the target duration into start, mid, setup and lock windows.
// Each value is the fraction of the target duration at which that window ends
// (Start, Setup) or begins (Setup, Lock).
type Phases struct {
	Start float64 `json:"start"`
	Setup float64 `json:"setup"`
	Lock  float64 `json:"lock"`
}

// Gain is the feedback gain set of one lock stage.
type Gain struct {
	Boost       float64 `json:"boost"`
	Brake       float64 `json:"brake"`
	Pos         float64 `json:"pos"`
	ForcedBoost float64 `json:"forcedBoost"`
	ForcedBrake float64 `json:"forcedBrake"`
}

type Lock struct {
	PreTrigger float64 `json:"preTrigger"`
	Trigger    float64 `json:"trigger"`
	Release    float64 `json:"release"`

	MinGapBase   float64 `json:"minGapBase"`
	MinGapMax    float64 `json:"minGapMax"`
	GapWidenFrom float64 `json:"gapWidenFrom"`
	GapWidenTo   float64 `json:"gapWidenTo"`
	AnchorOffset float64 `json:"anchorOffset"`

	NoCeilingInStrong bool `json:"noCeilingInStrong"`

	Pre    Gain `json:"pre"`
	Strong Gain `json:"strong"`
	Guard  Gain `json:"guard"`

	FactorMin    float64 `json:"factorMin"`
	FactorMax    float64 `json:"factorMax"`
	PosFactorMin float64 `json:"posFactorMin"`
	PosFactorMax float64 `json:"posFactorMax"`

	// FollowerHold caps a too-close follower at this fraction of its leader's
	// velocity; LeaderYield slows a leader that must let the follower through.
	FollowerHold float64 `json:"followerHold"`
	LeaderYield  float64 `json:"leaderYield"`
}

type Segment struct {
	DurMin  float64 `json:"durMin"`
	DurMax  float64 `json:"durMax"`
	MultMin float64 `json:"multMin"`
	MultMax float64 `json:"multMax"`
}

type Burst struct {
	ProbPerSec  float64 `json:"probPerSec"`
	AmpMin      float64 `json:"ampMin"`
	AmpMax      float64 `json:"ampMax"`
	DurSec      float64 `json:"durSec"`
	CooldownSec float64 `json:"cooldownSec"`
}

type RhythmWeights struct {
	Start     float64 `json:"start"`
	Mid       float64 `json:"mid"`
	Setup     float64 `json:"setup"`
	LockPhase float64 `json:"lockPhase"`
	LockStage float64 `json:"lockStage"`
}

type Rhythm struct {
	Segment  Segment       `json:"segment"`
	Burst    Burst         `json:"burst"`
	Weights  RhythmWeights `json:"weights"`
	BoundMin float64       `json:"boundMin"`
	BoundMax float64       `json:"boundMax"`
}

type Sprint struct {
	CooldownSec float64 `json:"cooldownSec"`
	DurMin      float64 `json:"durMin"`
	DurMax      float64 `json:"durMax"`
	MultMin     float64 `json:"multMin"`
	MultMax     float64 `json:"multMax"`
	MaxPerAgent int     `json:"maxPerAgent"`
	GapMin      float64 `json:"gapMin"`
	GapMax      float64 `json:"gapMax"`
	// EagerChance is the probability that an agent already as fast as the one
	// ahead still decides to sprint.
	EagerChance float64 `json:"eagerChance"`
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Schedule struct {
	// Gaps are the offsets of forced places 1..5 after the anchor finish time.
	Gaps        [5]Range `json:"gaps"`
	RestMin     float64  `json:"restMin"`
	RestMax     float64  `json:"restMax"`
	PushBaseSec float64  `json:"pushBaseSec"`
	PushCapSec  float64  `json:"pushCapSec"`
}

type SlowMo struct {
	Enabled    bool    `json:"enabled"`
	TriggerPct float64 `json:"triggerPct"`
	Rate       float64 `json:"rate"`
}

// Config holds every tunable of the engine.
type Config struct {
	Track    Track    `json:"track"`
	Speed    Speed    `json:"speed"`
	Duration Duration `json:"duration"`
	Phases   Phases   `json:"phases"`
	Lock     Lock     `json:"lock"`
	Rhythm   Rhythm   `json:"rhythm"`
	Sprint   Sprint   `json:"sprint"`
	Schedule Schedule `json:"schedule"`
	SlowMo   SlowMo   `json:"slowMo"`
	// Seed feeds the engine's random source. Zero seeds from the wall clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the tuning used by an eleven lane race.
func DefaultConfig() Config {
	return Config{
		Track: Track{StartX: -500, FinishX: 500, DetectOffset: 0.5, Lanes: 11},
		Speed: Speed{Min: 60, Max: 180, Blend: 0.10, BaseMin: 100, BaseMax: 120},
		Duration: Duration{
			MinSec: 22, MaxSec: 28, JitterSec: 0.15,
		},
		Phases: Phases{Start: 0.60, Setup: 0.85, Lock: 0.97},
		Lock: Lock{
			PreTrigger:        0.70,
			Trigger:           0.75,
			Release:           0.72,
			MinGapBase:        0.60,
			MinGapMax:         1.20,
			GapWidenFrom:      0.90,
			GapWidenTo:        1.00,
			AnchorOffset:      0.25,
			NoCeilingInStrong: true,
			Pre:               Gain{Boost: 0.20, Brake: 0.15, Pos: 0.020, ForcedBoost: 0.60, ForcedBrake: 0.80},
			Strong:            Gain{Boost: 0.90, Brake: 0.70, Pos: 0.050, ForcedBoost: 1.20, ForcedBrake: 1.20},
			Guard:             Gain{Boost: 0.30, Brake: 0.25, Pos: 0.030, ForcedBoost: 0.80, ForcedBrake: 0.90},
			FactorMin:         0.25,
			FactorMax:         3.5,
			PosFactorMin:      0.4,
			PosFactorMax:      2.5,
			FollowerHold:      0.92,
			LeaderYield:       0.96,
		},
		Rhythm: Rhythm{
			Segment:  Segment{DurMin: 0.9, DurMax: 1.4, MultMin: 0.20, MultMax: 3.0},
			Burst:    Burst{ProbPerSec: 0.45, AmpMin: 0.06, AmpMax: 0.10, DurSec: 0.8, CooldownSec: 0.6},
			Weights:  RhythmWeights{Start: 1.0, Mid: 1.0, Setup: 0.30, LockPhase: 0.12, LockStage: 0.05},
			BoundMin: 0.75,
			BoundMax: 1.35,
		},
		Sprint: Sprint{
			CooldownSec: 3.0, DurMin: 0.8, DurMax: 1.6, MultMin: 1.15, MultMax: 1.25,
			MaxPerAgent: 1, GapMin: 2.0, GapMax: 10.0, EagerChance: 0.35,
		},
		Schedule: Schedule{
			Gaps: [5]Range{
				{0, 0}, {0.25, 0.45}, {0.45, 0.75}, {0.75, 1.10}, {1.10, 1.60},
			},
			RestMin: 0.5, RestMax: 4.0,
			PushBaseSec: 0.5, PushCapSec: 2.0,
		},
		SlowMo: SlowMo{Enabled: true, TriggerPct: 0.90, Rate: 0.3},
	}
}

// MaxLanes is the largest field a Config may describe.
const MaxLanes = 64

// Normalize repairs inconsistent values in place instead of rejecting them.
func (c *Config) Normalize() {
	d := DefaultConfig()

	if c.Track.Lanes <= 0 {
		c.Track.Lanes = d.Track.Lanes
	}
	if c.Track.Lanes > MaxLanes {
		c.Track.Lanes = MaxLanes
	}
	if c.Track.FinishX <= c.Track.StartX {
		c.Track.StartX, c.Track.FinishX = d.Track.StartX, d.Track.FinishX
	}
	if c.Track.DetectOffset < 0 || c.Track.DetectOffset >= c.Track.Length() {
		c.Track.DetectOffset = 0
	}

	if c.Speed.Min <= 0 {
		c.Speed.Min = d.Speed.Min
	}
	orderPair(&c.Speed.Min, &c.Speed.Max)
	if c.Speed.Max == c.Speed.Min {
		c.Speed.Max = c.Speed.Min + 1
	}
	if c.Speed.Blend <= 0 || c.Speed.Blend > 1 {
		c.Speed.Blend = d.Speed.Blend
	}
	orderPair(&c.Speed.BaseMin, &c.Speed.BaseMax)
	if c.Speed.BaseMin <= 0 {
		c.Speed.BaseMin, c.Speed.BaseMax = d.Speed.BaseMin, d.Speed.BaseMax
	}

	orderPair(&c.Duration.MinSec, &c.Duration.MaxSec)
	if c.Duration.MinSec <= 0 {
		c.Duration.MinSec, c.Duration.MaxSec = d.Duration.MinSec, d.Duration.MaxSec
	}
	if c.Duration.JitterSec < 0 {
		c.Duration.JitterSec = -c.Duration.JitterSec
	}

	if !(c.Phases.Start > 0 && c.Phases.Start <= c.Phases.Setup && c.Phases.Setup <= c.Phases.Lock) {
		c.Phases = d.Phases
	}

	if c.Lock.Trigger <= 0 {
		c.Lock.Trigger = d.Lock.Trigger
	}
	if c.Lock.PreTrigger > c.Lock.Trigger || c.Lock.PreTrigger <= 0 {
		c.Lock.PreTrigger = c.Lock.Trigger
	}
	if c.Lock.Release >= c.Lock.Trigger {
		c.Lock.Release = c.Lock.Trigger - 0.03
	}
	orderPair(&c.Lock.MinGapBase, &c.Lock.MinGapMax)
	orderPair(&c.Lock.GapWidenFrom, &c.Lock.GapWidenTo)
	orderPair(&c.Lock.FactorMin, &c.Lock.FactorMax)
	if c.Lock.FactorMin <= 0 {
		c.Lock.FactorMin, c.Lock.FactorMax = d.Lock.FactorMin, d.Lock.FactorMax
	}
	orderPair(&c.Lock.PosFactorMin, &c.Lock.PosFactorMax)
	if c.Lock.PosFactorMin <= 0 {
		c.Lock.PosFactorMin, c.Lock.PosFactorMax = d.Lock.PosFactorMin, d.Lock.PosFactorMax
	}
	if c.Lock.FollowerHold <= 0 || c.Lock.FollowerHold > 1 {
		c.Lock.FollowerHold = d.Lock.FollowerHold
	}
	if c.Lock.LeaderYield <= 0 || c.Lock.LeaderYield > 1 {
		c.Lock.LeaderYield = d.Lock.LeaderYield
	}

	orderPair(&c.Rhythm.Segment.DurMin, &c.Rhythm.Segment.DurMax)
	if c.Rhythm.Segment.DurMin <= 0 {
		c.Rhythm.Segment.DurMin, c.Rhythm.Segment.DurMax = d.Rhythm.Segment.DurMin, d.Rhythm.Segment.DurMax
	}
	orderPair(&c.Rhythm.Segment.MultMin, &c.Rhythm.Segment.MultMax)
	orderPair(&c.Rhythm.Burst.AmpMin, &c.Rhythm.Burst.AmpMax)
	orderPair(&c.Rhythm.BoundMin, &c.Rhythm.BoundMax)
	if c.Rhythm.BoundMin <= 0 {
		c.Rhythm.BoundMin, c.Rhythm.BoundMax = d.Rhythm.BoundMin, d.Rhythm.BoundMax
	}
	if c.Rhythm.Burst.DurSec <= 0 {
		c.Rhythm.Burst.DurSec = d.Rhythm.Burst.DurSec
	}

	orderPair(&c.Sprint.DurMin, &c.Sprint.DurMax)
	orderPair(&c.Sprint.MultMin, &c.Sprint.MultMax)
	orderPair(&c.Sprint.GapMin, &c.Sprint.GapMax)
	if c.Sprint.MaxPerAgent < 0 {
		c.Sprint.MaxPerAgent = 0
	}

	for k := range c.Schedule.Gaps {
		orderPair(&c.Schedule.Gaps[k].Min, &c.Schedule.Gaps[k].Max)
	}
	orderPair(&c.Schedule.RestMin, &c.Schedule.RestMax)

	if c.SlowMo.Rate <= 0 || c.SlowMo.Rate > 1 {
		c.SlowMo.Rate = d.SlowMo.Rate
	}
}

func orderPair(lo, hi *float64) {
	if *lo > *hi {
		*lo, *hi = *hi, *lo
	}
}
