package instrument

import (
	"time"

	"go-addition/debug"
)

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Fundamental   float64
	DimLevel      int
	FlashDuration time.Duration
	Scheduler     Scheduler
	OnError       func(error)
}

// Controller is the grid state machine. Every event is handled to completion
// and its messages are emitted to the sink before the call returns. A
// Controller must only be used from one goroutine.
type Controller struct {
	reg     *Registry
	mapper  *Mapper
	lights  *LightEngine
	sink    Sink
	onError func(error)
}

// NewController creates a controller that writes to sink.
func NewController(sink Sink, opts Options) *Controller {
	c := &Controller{
		reg:     NewRegistry(),
		mapper:  NewMapper(opts.Fundamental),
		sink:    sink,
		onError: opts.OnError,
	}
	c.lights = NewLightEngine(c.reg, opts.DimLevel, opts.FlashDuration, opts.Scheduler, c.emit)
	return c
}

// Voices returns a snapshot of every voice.
func (c *Controller) Voices() [MaxVoices]Voice {
	return c.reg.Snapshot()
}

func (c *Controller) Fundamental() float64 {
	return c.mapper.Fundamental()
}

func (c *Controller) DimLevel() int {
	return c.lights.DimLevel()
}

// HandleRaw validates a raw (x, y, level) triple and handles it. Invalid
// events are reported and dropped.
func (c *Controller) HandleRaw(args ...any) error {
	k, err := Validate(args)
	if err != nil {
		c.report(err)
		return err
	}
	return c.HandleKey(k)
}

// HandleKey handles a grid key event. Releases refresh the control row
// lights; presses change state.
func (c *Controller) HandleKey(k Key) error {
	if err := k.Check(); err != nil {
		c.report(err)
		return err
	}
	debug.Log("key", "%d %d %d", k.X, k.Y, k.Level)

	switch {
	case !k.Pressed():
		c.emit(c.lights.Refresh()...)
	case k.Y == 0 && k.X < MaxVoices:
		c.emit(c.toggleVoice(k.X)...)
	case k.Y == 0:
		c.emit(c.toggleGate(k.X - MaxVoices)...)
	default:
		c.emit(c.handlePlayArea(k.Cell())...)
	}
	return nil
}

// SetFundamental changes the fundamental and retunes every sounding voice.
// Each voice's gate is opened for the retune and closed again unless the
// voice is gated.
func (c *Controller) SetFundamental(f float64) error {
	if err := c.mapper.SetFundamental(f); err != nil {
		c.report(err)
		return err
	}
	debug.Log("fund", "fundamental %.3f", f)

	var msgs []Message
	for i := 0; i < MaxVoices; i++ {
		v := c.reg.Voice(i)
		if !v.On || !v.Placed {
			continue
		}
		msgs = append(msgs,
			GateMsg{Voice: i, Open: true},
			FrequencyMsg{Voice: i, Hz: c.mapper.Frequency(v.Position.X)},
		)
		if !v.Gated {
			msgs = append(msgs, GateMsg{Voice: i, Open: false})
		}
	}
	c.emit(msgs...)
	return nil
}

// Refresh re-lights the control row, the same pass a key release triggers.
func (c *Controller) Refresh() {
	c.emit(c.lights.Refresh()...)
}

// Redraw clears the grid and repaints every LED from the current state.
func (c *Controller) Redraw() {
	c.emit(c.lights.Redraw()...)
}

// Close cancels a pending flash.
func (c *Controller) Close() {
	c.lights.Cancel()
}

func (c *Controller) toggleVoice(i int) []Message {
	cell, placed := c.reg.PositionOf(i)

	if c.reg.IsOn(i) {
		debug.Log("voice", "voice %d off", i)
		c.reg.SetOn(i, false)
		msgs := []Message{
			c.lights.Set(VoiceKey(i), false),
			c.lights.Set(GateKey(i), false),
		}
		if placed {
			msgs = append(msgs, c.lights.Set(cell, false))
		}
		return append(msgs, OnOffMsg{Voice: i, On: false}, GateMsg{Voice: i, Open: false})
	}

	debug.Log("voice", "voice %d on", i)
	c.reg.SetOn(i, true)
	msgs := []Message{
		c.lights.Set(VoiceKey(i), true),
		c.lights.Dim(GateKey(i)),
	}
	// A voice that was never placed has no cell to dim, so it gets no
	// cell message rather than one aimed at a default cell.
	if placed {
		msgs = append(msgs, c.lights.Dim(cell))
	}
	return append(msgs, OnOffMsg{Voice: i, On: true}, GateMsg{Voice: i, Open: false})
}

func (c *Controller) toggleGate(i int) []Message {
	if !c.reg.IsOn(i) {
		return nil
	}
	cell, placed := c.reg.PositionOf(i)

	if !c.reg.IsGated(i) {
		debug.Log("gate", "voice %d gate open", i)
		c.reg.SetGated(i, true)
		msgs := []Message{c.lights.Set(GateKey(i), true)}
		if placed {
			msgs = append(msgs, c.lights.Flash(cell)...)
		}
		return append(msgs, GateMsg{Voice: i, Open: true})
	}

	debug.Log("gate", "voice %d gate closed", i)
	c.reg.SetGated(i, false)
	msgs := []Message{
		c.lights.Dim(GateKey(i)),
		GateMsg{Voice: i, Open: false},
	}
	if placed && !c.reg.AnyGatedAt(cell) {
		msgs = append(msgs, c.lights.Dim(cell))
	}
	return msgs
}

func (c *Controller) handlePlayArea(target Cell) []Message {
	prior := c.reg.Snapshot()

	var msgs []Message
	for i, v := range prior {
		if !v.Gated {
			continue
		}
		old, placed := c.reg.PositionOf(i)
		if placed && old == target {
			continue
		}
		debug.Log("play", "voice %d -> %d %d", i, target.X, target.Y)
		c.reg.SetPosition(i, target)

		msgs = append(msgs, FrequencyMsg{Voice: i, Hz: c.mapper.Frequency(target.X)})
		if pan, err := c.mapper.Pan(target.Y); err != nil {
			c.report(err)
		} else {
			msgs = append(msgs, PanMsg{Voice: i, Pan: pan})
		}
		msgs = append(msgs, c.lights.Set(target, true))

		if placed {
			msgs = append(msgs, c.lights.Vacate(old))
		}
	}

	// Ungated voices already parked on the pressed cell keep their gate key lit.
	for i, v := range prior {
		if v.On && !v.Gated && v.Placed && v.Position == target {
			msgs = append(msgs, c.lights.Set(GateKey(i), true))
		}
	}
	return msgs
}

func (c *Controller) emit(msgs ...Message) {
	if len(msgs) == 0 || c.sink == nil {
		return
	}
	c.sink.Emit(msgs...)
}

func (c *Controller) report(err error) {
	debug.Log("error", "%v", err)
	if c.onError != nil {
		c.onError(err)
	}
}
