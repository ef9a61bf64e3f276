package instrument

import (
	"time"

	"go-addition/debug"
)

// Timer is a pending one-shot that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Implementations must run f on the same
// goroutine that drives the Controller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// LightEngine derives LED messages from the voice registry. It owns the
// single pending flash: a new flash cancels the previous one.
type LightEngine struct {
	reg      *Registry
	dim      int
	flashFor time.Duration
	sched    Scheduler
	emit     func(msgs ...Message)

	pending     Timer
	pendingCell Cell
	generation  uint64
}

// NewLightEngine creates an engine. With a nil scheduler or a zero flash
// duration the flash completes within the same event.
func NewLightEngine(reg *Registry, dim int, flashFor time.Duration, sched Scheduler, emit func(msgs ...Message)) *LightEngine {
	if dim <= OffLevel || dim >= FullLevel {
		dim = DefaultDimLevel
	}
	return &LightEngine{
		reg:      reg,
		dim:      dim,
		flashFor: flashFor,
		sched:    sched,
		emit:     emit,
	}
}

func (e *LightEngine) DimLevel() int {
	return e.dim
}

func (e *LightEngine) Set(c Cell, on bool) Message {
	return LedSetMsg{X: c.X, Y: c.Y, On: on}
}

func (e *LightEngine) Dim(c Cell) Message {
	return LedLevelMsg{X: c.X, Y: c.Y, Level: e.dim}
}

// LevelAt is the brightness a play-area cell should show: full when a gated
// voice claims it, dim when only ungated voices that are on do, off otherwise.
func (e *LightEngine) LevelAt(c Cell) int {
	switch {
	case e.reg.AnyGatedAt(c):
		return FullLevel
	case e.reg.AnyOnAt(c):
		return e.dim
	}
	return OffLevel
}

// Settle returns the message that puts c at LevelAt(c).
func (e *LightEngine) Settle(c Cell) Message {
	switch e.LevelAt(c) {
	case FullLevel:
		return e.Set(c, true)
	case OffLevel:
		return e.Set(c, false)
	}
	return e.Dim(c)
}

// Vacate returns the message for a cell a voice has just left. Any voice
// that is on and still claims it keeps it dim.
func (e *LightEngine) Vacate(c Cell) Message {
	if e.reg.AnyOnAt(c) {
		return e.Dim(c)
	}
	return e.Set(c, false)
}

// Flash blinks c off and brings it back to its settled level, either at once
// or after the flash duration. A stale pending flash on another cell is
// completed immediately.
func (e *LightEngine) Flash(c Cell) []Message {
	var msgs []Message
	if stale, ok := e.cancel(); ok && stale != c {
		msgs = append(msgs, e.Settle(stale))
	}
	msgs = append(msgs, e.Set(c, false))

	if e.sched == nil || e.flashFor <= 0 {
		return append(msgs, e.Settle(c))
	}

	e.generation++
	gen := e.generation
	e.pendingCell = c
	e.pending = e.sched.AfterFunc(e.flashFor, func() {
		if gen != e.generation {
			return
		}
		e.pending = nil
		debug.Log("flash", "settle %d %d", c.X, c.Y)
		if e.emit != nil {
			e.emit(e.Settle(c))
		}
	})
	return msgs
}

// Cancel drops a pending flash without completing it.
func (e *LightEngine) Cancel() {
	e.cancel()
}

func (e *LightEngine) cancel() (Cell, bool) {
	if e.pending == nil {
		return Cell{}, false
	}
	e.pending.Stop()
	e.pending = nil
	e.generation++
	return e.pendingCell, true
}

// Refresh re-lights the control row: voice keys of voices that are on, and
// their gate keys dim or full.
func (e *LightEngine) Refresh() []Message {
	var msgs []Message
	for i := 0; i < MaxVoices; i++ {
		if !e.reg.IsOn(i) {
			continue
		}
		msgs = append(msgs, e.Set(VoiceKey(i), true), e.Dim(GateKey(i)))
		if e.reg.IsGated(i) {
			msgs = append(msgs, e.Set(GateKey(i), true))
		}
	}
	return msgs
}

// Redraw clears the grid and rebuilds every LED from the registry.
func (e *LightEngine) Redraw() []Message {
	msgs := []Message{LedAllMsg{On: false}}
	msgs = append(msgs, e.Refresh()...)

	var seen [GridHeight][GridWidth]bool
	for i := 0; i < MaxVoices; i++ {
		c, placed := e.reg.PositionOf(i)
		if !placed || !e.reg.IsOn(i) || seen[c.Y][c.X] {
			continue
		}
		seen[c.Y][c.X] = true
		msgs = append(msgs, e.Settle(c))
	}
	return msgs
}
