package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRandom replays vals and then keeps returning the last one.
type seqRandom struct {
	vals []float64
	i    int
}

func (r *seqRandom) Float64() float64 {
	v := r.vals[r.i]
	if r.i < len(r.vals)-1 {
		r.i++
	}
	return v
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(vals ...float64) (*Store, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(WithClock(clk.Now), WithRandom(&seqRandom{vals: vals})), clk
}

func TestCheck_StaysInactiveAboveProbability(t *testing.T) {
	s, _ := newTestStore(0.05, 0.9, 0.5)
	for i := 0; i < 3; i++ {
		assert.Equal(t, None, s.Check("z1"))
	}
	_, ok := s.Active("z1")
	assert.False(t, ok)
}

func TestCheck_PicksWeightedKind(t *testing.T) {
	cases := []struct {
		roll float64
		want Kind
	}{
		{0.0, Flatline},
		{0.099, Flatline},
		{0.10, OutOfRange},
		{0.749, OutOfRange},
		{0.75, NoRecovery},
		{0.999, NoRecovery},
	}
	for _, tc := range cases {
		s, clk := newTestStore(0.01, tc.roll)
		require.Equal(t, tc.want, s.Check("z1"), "roll=%v", tc.roll)

		a, ok := s.Active("z1")
		require.True(t, ok)
		assert.Equal(t, tc.want, a.Kind)
		assert.Equal(t, clk.Now(), a.Start)
	}
}

func TestCheck_FlatlineExpiresStrictlyAfterFourHours(t *testing.T) {
	s, clk := newTestStore(0.01, 0.05, 0.99)
	require.Equal(t, Flatline, s.Check("z1"))

	clk.Advance(4 * time.Hour)
	assert.Equal(t, Flatline, s.Check("z1"), "still active at exactly T+4h")

	clk.Advance(time.Second)
	assert.Equal(t, None, s.Check("z1"), "expired after T+4h")

	_, ok := s.Active("z1")
	assert.False(t, ok)
}

func TestCheck_CeilingPerKind(t *testing.T) {
	for _, kind := range []Kind{OutOfRange, NoRecovery} {
		roll := 0.5
		if kind == NoRecovery {
			roll = 0.9
		}
		s, clk := newTestStore(0.01, roll, 0.99)
		require.Equal(t, kind, s.Check("z1"))

		clk.Advance(kind.MaxDuration() - time.Minute)
		assert.Equal(t, kind, s.Check("z1"))
		clk.Advance(2 * time.Minute)
		assert.Equal(t, None, s.Check("z1"))
	}
}

func TestCheck_ZonesAreIndependent(t *testing.T) {
	s, _ := newTestStore(0.01, 0.5, 0.99)
	require.Equal(t, OutOfRange, s.Check("z1"))
	assert.Equal(t, None, s.Check("z2"))
	assert.Equal(t, OutOfRange, s.Check("z1"))
}

func TestHold_FreezesPerMetricUntilExpiry(t *testing.T) {
	s, clk := newTestStore(0.01, 0.05, 0.99)
	require.Equal(t, Flatline, s.Check("z1"))

	calls := 0
	gen := func() float64 { calls++; return float64(calls) * 10 }

	assert.Equal(t, 10.0, s.Hold("z1", "light", gen))
	assert.Equal(t, 10.0, s.Hold("z1", "light", gen))
	assert.Equal(t, 20.0, s.Hold("z1", "humidity", gen))
	assert.Equal(t, 10.0, s.Hold("z1", "light", gen))
	assert.Equal(t, 2, calls)

	clk.Advance(5 * time.Hour)
	require.Equal(t, None, s.Check("z1"))
	assert.Equal(t, 30.0, s.Hold("z1", "light", gen))
	assert.Equal(t, 40.0, s.Hold("z1", "light", gen), "no anomaly: nothing is held")
}

func TestWatering(t *testing.T) {
	s, clk := newTestStore(0.99)
	assert.InDelta(t, 6.0, s.HoursSinceWatering("z1"), 1e-9)

	clk.Advance(90 * time.Minute)
	assert.InDelta(t, 7.5, s.HoursSinceWatering("z1"), 1e-9)

	s.TriggerWatering("z1")
	assert.Equal(t, 0.0, s.HoursSinceWatering("z1"))
	clk.Advance(30 * time.Minute)
	assert.InDelta(t, 0.5, s.HoursSinceWatering("z1"), 1e-9)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "flatline", Flatline.String())
	assert.Equal(t, "out_of_range", OutOfRange.String())
	assert.Equal(t, "no_recovery", NoRecovery.String())
	assert.Equal(t, "none", None.String())
}
