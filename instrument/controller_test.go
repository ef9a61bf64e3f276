package instrument_test

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"

	"go-addition/instrument"
)

type recorder struct {
	msgs []instrument.Message
}

func (r *recorder) Emit(msgs ...instrument.Message) {
	r.msgs = append(r.msgs, msgs...)
}

func (r *recorder) take() []instrument.Message {
	msgs := r.msgs
	r.msgs = nil
	return msgs
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) instrument.Timer {
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) fire() {
	timers := s.timers
	s.timers = nil
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

func newController(t *testing.T) (*instrument.Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := instrument.NewController(rec, instrument.Options{})
	return c, rec
}

func press(t *testing.T, c *instrument.Controller, x, y int) {
	t.Helper()
	if err := c.HandleRaw(x, y, 1); err != nil {
		t.Fatalf("press %d %d: %v", x, y, err)
	}
}

// place turns voice i on, opens its gate and parks it at (x, y), leaving the
// gate open.
func place(t *testing.T, c *instrument.Controller, i, x, y int) {
	t.Helper()
	press(t, c, i, 0)
	press(t, c, instrument.MaxVoices+i, 0)
	press(t, c, x, y)
}

func expectMsgs(t *testing.T, got, want []instrument.Message) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got messages %v, want %v", got, want)
	}
}

func TestVoiceOn(t *testing.T) {
	c, rec := newController(t)
	press(t, c, 0, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 0, Y: 0, On: true},
		instrument.LedLevelMsg{X: 8, Y: 0, Level: 4},
		instrument.OnOffMsg{Voice: 0, On: true},
		instrument.GateMsg{Voice: 0, Open: false},
	})
	if v := c.Voices()[0]; !v.On || v.Gated {
		t.Fatalf("voice 0 state %+v after turning on", v)
	}
}

func TestVoiceOnReclaimsCell(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 2, 3)
	press(t, c, 0, 0) // off
	rec.take()

	press(t, c, 0, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 0, Y: 0, On: true},
		instrument.LedLevelMsg{X: 8, Y: 0, Level: 4},
		instrument.LedLevelMsg{X: 2, Y: 3, Level: 4},
		instrument.OnOffMsg{Voice: 0, On: true},
		instrument.GateMsg{Voice: 0, Open: false},
	})
}

func TestVoiceOff(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 1, 4, 2)
	rec.take()

	press(t, c, 1, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 1, Y: 0, On: false},
		instrument.LedSetMsg{X: 9, Y: 0, On: false},
		instrument.LedSetMsg{X: 4, Y: 2, On: false},
		instrument.OnOffMsg{Voice: 1, On: false},
		instrument.GateMsg{Voice: 1, Open: false},
	})
	v := c.Voices()[1]
	if v.On || v.Gated {
		t.Fatalf("voice 1 state %+v after turning off", v)
	}
	if !v.Placed || v.Position != (instrument.Cell{X: 4, Y: 2}) {
		t.Fatalf("voice 1 lost its position: %+v", v)
	}
}

func TestVoiceRoundTrip(t *testing.T) {
	c, _ := newController(t)
	place(t, c, 3, 5, 5)
	press(t, c, 3, 0) // off
	before := c.Voices()[3]
	for n := 0; n < 2; n++ {
		press(t, c, 3, 0)
		press(t, c, 3, 0)
	}
	if after := c.Voices()[3]; after != before {
		t.Fatalf("voice 3 changed over on/off round trips: before %+v after %+v", before, after)
	}
}

func TestGateOnOffVoiceIsNoop(t *testing.T) {
	c, rec := newController(t)
	before := c.Voices()
	press(t, c, 8+2, 0)
	if msgs := rec.take(); len(msgs) != 0 {
		t.Fatalf("gate key on an off voice emitted %v", msgs)
	}
	if after := c.Voices(); after != before {
		t.Fatalf("gate key on an off voice changed state: %+v", after)
	}
}

func TestGateOpenFlashesCell(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 3, 5)
	press(t, c, 8, 0) // close
	rec.take()

	press(t, c, 8, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 8, Y: 0, On: true},
		instrument.LedSetMsg{X: 3, Y: 5, On: false},
		instrument.LedSetMsg{X: 3, Y: 5, On: true},
		instrument.GateMsg{Voice: 0, Open: true},
	})
	if !c.Voices()[0].Gated {
		t.Fatalf("voice 0 not gated after opening its gate")
	}
}

func TestGateOpenUnplacedVoice(t *testing.T) {
	c, rec := newController(t)
	press(t, c, 4, 0)
	rec.take()
	press(t, c, 12, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 12, Y: 0, On: true},
		instrument.GateMsg{Voice: 4, Open: true},
	})
}

func TestGateClose(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 3, 5)
	rec.take()

	press(t, c, 8, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedLevelMsg{X: 8, Y: 0, Level: 4},
		instrument.GateMsg{Voice: 0, Open: false},
		instrument.LedLevelMsg{X: 3, Y: 5, Level: 4},
	})
}

func TestGateCloseSharedCellStaysBright(t *testing.T) {
	c, rec := newController(t)
	// Both voices gated; one press parks them on the same cell.
	press(t, c, 0, 0)
	press(t, c, 1, 0)
	press(t, c, 8, 0)
	press(t, c, 9, 0)
	press(t, c, 6, 6)
	rec.take()

	press(t, c, 8, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedLevelMsg{X: 8, Y: 0, Level: 4},
		instrument.GateMsg{Voice: 0, Open: false},
	})
}

func TestPlayAreaMove(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 3, 5)
	rec.take()

	press(t, c, 3, 6)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.FrequencyMsg{Voice: 0, Hz: 4 * instrument.DefaultFundamental},
		instrument.PanMsg{Voice: 0, Pan: 2.0 / 3.0},
		instrument.LedSetMsg{X: 3, Y: 6, On: true},
		instrument.LedSetMsg{X: 3, Y: 5, On: false},
	})
	if p := c.Voices()[0].Position; p != (instrument.Cell{X: 3, Y: 6}) {
		t.Fatalf("voice 0 at %v, want 3 6", p)
	}
}

func TestPlayAreaFirstPlacement(t *testing.T) {
	c, rec := newController(t)
	press(t, c, 0, 0)
	press(t, c, 8, 0)
	rec.take()

	press(t, c, 0, 1)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.FrequencyMsg{Voice: 0, Hz: instrument.DefaultFundamental},
		instrument.PanMsg{Voice: 0, Pan: -1},
		instrument.LedSetMsg{X: 0, Y: 1, On: true},
	})
}

func TestPlayAreaFixedPointIsSilent(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 3, 5)
	rec.take()

	press(t, c, 3, 5)
	if msgs := rec.take(); len(msgs) != 0 {
		t.Fatalf("press on the claimed cell emitted %v", msgs)
	}
}

func TestPlayAreaLeavesDimForOtherVoice(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 2, 2)
	press(t, c, 8, 0) // voice 0 stays on at 2 2, ungated
	place(t, c, 1, 2, 2)
	rec.take()

	press(t, c, 5, 4)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.FrequencyMsg{Voice: 1, Hz: 6 * instrument.DefaultFundamental},
		instrument.PanMsg{Voice: 1, Pan: 0},
		instrument.LedSetMsg{X: 5, Y: 4, On: true},
		instrument.LedLevelMsg{X: 2, Y: 2, Level: 4},
	})
}

func TestPlayAreaKeepsParkedGateKeyLit(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 2, 2)
	press(t, c, 8, 0) // voice 0 parked at 2 2, ungated
	place(t, c, 1, 4, 4)
	rec.take()

	press(t, c, 2, 2)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.FrequencyMsg{Voice: 1, Hz: 3 * instrument.DefaultFundamental},
		instrument.PanMsg{Voice: 1, Pan: -2.0 / 3.0},
		instrument.LedSetMsg{X: 2, Y: 2, On: true},
		instrument.LedSetMsg{X: 4, Y: 4, On: false},
		instrument.LedSetMsg{X: 8, Y: 0, On: true},
	})
}

func TestPlayAreaMovesEveryGatedVoice(t *testing.T) {
	c, _ := newController(t)
	place(t, c, 0, 1, 1)
	place(t, c, 5, 7, 7)
	press(t, c, 10, 3)
	voices := c.Voices()
	want := instrument.Cell{X: 10, Y: 3}
	if voices[0].Position != want || voices[5].Position != want {
		t.Fatalf("gated voices at %v and %v, want both at %v", voices[0].Position, voices[5].Position, want)
	}
}

func TestReleaseRefreshesControlRow(t *testing.T) {
	c, rec := newController(t)
	press(t, c, 0, 0)
	place(t, c, 2, 1, 1)
	rec.take()

	before := c.Voices()
	if err := c.HandleRaw(9, 4, 0); err != nil {
		t.Fatalf("release: %v", err)
	}
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 0, Y: 0, On: true},
		instrument.LedLevelMsg{X: 8, Y: 0, Level: 4},
		instrument.LedSetMsg{X: 2, Y: 0, On: true},
		instrument.LedLevelMsg{X: 10, Y: 0, Level: 4},
		instrument.LedSetMsg{X: 10, Y: 0, On: true},
	})
	if after := c.Voices(); after != before {
		t.Fatalf("release changed state: %+v", after)
	}
}

func TestFundamentalRetunesUngatedVoice(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 2, 7, 3)
	press(t, c, 10, 0) // close gate
	rec.take()

	if err := c.SetFundamental(220); err != nil {
		t.Fatalf("set fundamental: %v", err)
	}
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.GateMsg{Voice: 2, Open: true},
		instrument.FrequencyMsg{Voice: 2, Hz: 8 * 220},
		instrument.GateMsg{Voice: 2, Open: false},
	})
	if c.Voices()[2].Gated {
		t.Fatalf("retune left voice 2 gated")
	}
	if f := c.Fundamental(); f != 220 {
		t.Fatalf("fundamental %v, want 220", f)
	}
}

func TestFundamentalRetunesGatedVoice(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 1, 0, 4)
	press(t, c, 3, 0) // voice 3 on but never placed
	rec.take()

	if err := c.SetFundamental(50); err != nil {
		t.Fatalf("set fundamental: %v", err)
	}
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.GateMsg{Voice: 1, Open: true},
		instrument.FrequencyMsg{Voice: 1, Hz: 50},
	})
}

func TestInvalidEvents(t *testing.T) {
	cases := []struct {
		name string
		args []any
		kind error
	}{
		{"too few fields", []any{1, 2}, instrument.ErrMalformedEvent},
		{"too many fields", []any{1, 2, 1, 0}, instrument.ErrMalformedEvent},
		{"float field", []any{1, 2.5, 1}, instrument.ErrMalformedEvent},
		{"string field", []any{"1", 2, 1}, instrument.ErrMalformedEvent},
		{"x too large", []any{16, 2, 1}, instrument.ErrOutOfRangeEvent},
		{"negative y", []any{3, -1, 1}, instrument.ErrOutOfRangeEvent},
		{"y too large", []any{3, 8, 1}, instrument.ErrOutOfRangeEvent},
		{"level too large", []any{3, 3, 16}, instrument.ErrOutOfRangeEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var reported []error
			rec := &recorder{}
			c := instrument.NewController(rec, instrument.Options{
				OnError: func(err error) { reported = append(reported, err) },
			})
			err := c.HandleRaw(tc.args...)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("got error %v, want %v", err, tc.kind)
			}
			if len(reported) != 1 || !errors.Is(reported[0], tc.kind) {
				t.Fatalf("reported %v, want one %v", reported, tc.kind)
			}
			if len(rec.msgs) != 0 {
				t.Fatalf("invalid event emitted %v", rec.msgs)
			}
		})
	}
}

func TestInvalidFundamental(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 1, 1)
	rec.take()
	for _, f := range []float64{0, -10} {
		if err := c.SetFundamental(f); !errors.Is(err, instrument.ErrOutOfRangeParameter) {
			t.Fatalf("fundamental %v: got %v, want %v", f, err, instrument.ErrOutOfRangeParameter)
		}
	}
	if len(rec.msgs) != 0 {
		t.Fatalf("invalid fundamental emitted %v", rec.msgs)
	}
	if f := c.Fundamental(); f != instrument.DefaultFundamental {
		t.Fatalf("fundamental changed to %v", f)
	}
}

func TestDelayedFlash(t *testing.T) {
	rec := &recorder{}
	sched := &manualScheduler{}
	c := instrument.NewController(rec, instrument.Options{
		FlashDuration: 50 * time.Millisecond,
		Scheduler:     sched,
	})
	place(t, c, 0, 3, 5)
	press(t, c, 8, 0)
	sched.fire()
	rec.take()

	press(t, c, 8, 0)
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 8, Y: 0, On: true},
		instrument.LedSetMsg{X: 3, Y: 5, On: false},
		instrument.GateMsg{Voice: 0, Open: true},
	})
	sched.fire()
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 3, Y: 5, On: true},
	})
}

func TestNewFlashCompletesStaleOne(t *testing.T) {
	rec := &recorder{}
	sched := &manualScheduler{}
	c := instrument.NewController(rec, instrument.Options{
		FlashDuration: time.Second,
		Scheduler:     sched,
	})
	place(t, c, 0, 1, 1)
	press(t, c, 8, 0)
	place(t, c, 1, 6, 6)
	press(t, c, 9, 0)
	sched.fire()
	rec.take()

	press(t, c, 8, 0) // flash 1 1
	rec.take()
	press(t, c, 9, 0) // flash 6 6, completes 1 1 first
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 9, Y: 0, On: true},
		instrument.LedSetMsg{X: 1, Y: 1, On: true},
		instrument.LedSetMsg{X: 6, Y: 6, On: false},
		instrument.GateMsg{Voice: 1, Open: true},
	})
	sched.fire()
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedSetMsg{X: 6, Y: 6, On: true},
	})
}

func TestRedraw(t *testing.T) {
	c, rec := newController(t)
	place(t, c, 0, 2, 2)
	press(t, c, 8, 0)
	place(t, c, 1, 2, 2)
	rec.take()

	c.Redraw()
	expectMsgs(t, rec.take(), []instrument.Message{
		instrument.LedAllMsg{On: false},
		instrument.LedSetMsg{X: 0, Y: 0, On: true},
		instrument.LedLevelMsg{X: 8, Y: 0, Level: 4},
		instrument.LedSetMsg{X: 1, Y: 0, On: true},
		instrument.LedLevelMsg{X: 9, Y: 0, Level: 4},
		instrument.LedSetMsg{X: 9, Y: 0, On: true},
		instrument.LedSetMsg{X: 2, Y: 2, On: true},
	})
}

// grid mirrors LED levels from emitted messages.
type grid [instrument.GridHeight][instrument.GridWidth]int

func (g *grid) apply(msgs []instrument.Message) {
	for _, m := range msgs {
		switch m := m.(type) {
		case instrument.LedSetMsg:
			g[m.Y][m.X] = m.Level()
		case instrument.LedLevelMsg:
			g[m.Y][m.X] = m.Level
		case instrument.LedAllMsg:
			level := instrument.OffLevel
			if m.On {
				level = instrument.FullLevel
			}
			for y := range g {
				for x := range g[y] {
					g[y][x] = level
				}
			}
		}
	}
}

func TestRandomEventsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c, rec := newController(t)
	var leds grid

	for n := 0; n < 5000; n++ {
		switch r := rng.Intn(20); {
		case r == 0:
			c.SetFundamental(float64(rng.Intn(400) + 20))
		case r < 4:
			c.HandleRaw(rng.Intn(instrument.GridWidth), rng.Intn(instrument.GridHeight), 0)
		case r < 12:
			c.HandleRaw(rng.Intn(instrument.GridWidth), 0, 1)
		default:
			c.HandleRaw(rng.Intn(instrument.GridWidth), 1+rng.Intn(instrument.GridHeight-1), 1)
		}
		leds.apply(rec.take())

		for i, v := range c.Voices() {
			if v.Gated && !v.On {
				t.Fatalf("event %d: voice %d gated while off", n, i)
			}
			want := instrument.OffLevel
			if v.On {
				want = instrument.FullLevel
			}
			if got := leds[0][i]; got != want {
				t.Fatalf("event %d: voice key %d at level %d, voice %+v", n, i, got, v)
			}
		}
	}
}
