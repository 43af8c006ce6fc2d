// Package anomaly tracks per-zone simulation state: injected anomalies and
// watering history. State is process-local and lost on restart.
package anomaly

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Kind is the anomaly lifecycle tag. None means the zone is inactive.
type Kind int

const (
	None Kind = iota
	Flatline
	OutOfRange
	NoRecovery
)

func (k Kind) String() string {
	switch k {
	case Flatline:
		return "flatline"
	case OutOfRange:
		return "out_of_range"
	case NoRecovery:
		return "no_recovery"
	default:
		return "none"
	}
}

// MaxDuration is how long an anomaly of this kind may stay active.
func (k Kind) MaxDuration() time.Duration {
	switch k {
	case Flatline:
		return 4 * time.Hour
	case OutOfRange:
		return 12 * time.Hour
	case NoRecovery:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Tuning knobs for anomaly injection.
const (
	TriggerProbability = 0.05
	flatlineCutoff     = 0.10 // [0, 0.10)  -> flatline
	outOfRangeCutoff   = 0.75 // [0.10, 0.75) -> out_of_range, rest no_recovery

	// InitialWateringAge makes a freshly seen zone already due for water.
	InitialWateringAge = 6 * time.Hour
)

// Anomaly is an active injected deviation.
type Anomaly struct {
	Kind  Kind
	Start time.Time
	// held values per metric key, chosen once while the anomaly lasts
	held  map[string]float64
}

type zoneState struct {
	lastWatering time.Time
	anomaly      *Anomaly
}

// Random is the uniform [0,1) source the store draws from.
type Random interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// DefaultRandom draws from the math/rand/v2 global source and is safe for
// concurrent use.
var DefaultRandom Random = globalRandom{}

// Store owns the mapping from zone id to simulation state.
type Store struct {
	mu     sync.Mutex
	states map[string]*zoneState
	now    func() time.Time
	rnd    Random
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandom overrides the random source.
func WithRandom(r Random) Option {
	return func(s *Store) { s.rnd = r }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		states: make(map[string]*zoneState),
		now:    time.Now,
		rnd:    DefaultRandom,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// state must be called with s.mu held.
func (s *Store) state(zoneID string) *zoneState {
	st, ok := s.states[zoneID]
	if !ok {
		st = &zoneState{lastWatering: s.now().Add(-InitialWateringAge)}
		s.states[zoneID] = st
	}
	return st
}

// Check advances the zone's anomaly lifecycle and returns the active kind.
// An active anomaly past its MaxDuration expires and None is returned for
// this check. An inactive zone may start a new anomaly, whose kind is
// returned immediately.
func (s *Store) Check(zoneID string) Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(zoneID)
	now := s.now()

	if a := st.anomaly; a != nil {
		if now.Sub(a.Start) > a.Kind.MaxDuration() {
			st.anomaly = nil
			return None
		}
		return a.Kind
	}

	if s.rnd.Float64() >= TriggerProbability {
		return None
	}

	kind := pickKind(s.rnd.Float64())
	st.anomaly = &Anomaly{Kind: kind, Start: now, held: make(map[string]float64)}
	return kind
}

func pickKind(r float64) Kind {
	switch {
	case r < flatlineCutoff:
		return Flatline
	case r < outOfRangeCutoff:
		return OutOfRange
	default:
		return NoRecovery
	}
}

// Active returns a copy of the zone's active anomaly, if any.
func (s *Store) Active(zoneID string) (Anomaly, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.state(zoneID).anomaly
	if a == nil {
		return Anomaly{}, false
	}
	return Anomaly{Kind: a.Kind, Start: a.Start}, true
}

// Hold returns the value frozen for metric under the zone's active anomaly,
// drawing it from gen the first time. Without an active anomaly gen is
// called and nothing is stored.
func (s *Store) Hold(zoneID, metric string, gen func() float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.state(zoneID).anomaly
	if a == nil {
		return gen()
	}
	if v, ok := a.held[metric]; ok {
		return v
	}
	v := gen()
	a.held[metric] = v
	return v
}

// TriggerWatering records a watering event now.
func (s *Store) TriggerWatering(zoneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(zoneID).lastWatering = s.now()
}

// HoursSinceWatering is the time since the last recorded watering.
func (s *Store) HoursSinceWatering(zoneID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.state(zoneID).lastWatering).Hours()
}

// Reset drops all zone state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]*zoneState)
}
