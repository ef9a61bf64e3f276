package host

import (
	"context"
	"sync"
	"time"

	"go-addition/debug"
	"go-addition/instrument"
	"go-addition/midi"
)

// LED refresh rate for frame-based grids
const ledFPS = 30

// Options configures a Manager
type Options struct {
	Fundamental   float64
	DimLevel      int
	FlashDuration time.Duration

	// Color maps an LED level (0-15) to RGB for colour grids and the TUI.
	Color func(level int) [3]uint8
}

// State is a snapshot for the UI
type State struct {
	Voices      [instrument.MaxVoices]instrument.Voice
	Fundamental float64
	DimLevel    int
	LEDs        [instrument.GridHeight][instrument.GridWidth]int
	LastError   error
}

// Manager owns the instrument controller and runs it on a single event loop.
// Every input source posts into the loop; every emitted message is fanned
// out to the registered sinks and mirrored for the UI and frame-based grids.
type Manager struct {
	ctrl  *instrument.Controller
	color func(level int) [3]uint8

	soundSinks []instrument.Sink
	lightSinks []instrument.Sink

	keys         chan []any
	fundamentals chan float64
	tasks        chan func()
	stopChan     chan struct{}
	stopOnce     sync.Once

	mu      sync.RWMutex // guards ctrl, leds, lastErr and grid state
	leds    [instrument.GridHeight][instrument.GridWidth]int
	lastErr error

	// LED rendering at fixed FPS for the Launchpad
	grid     midi.Grid
	ledDirty bool
	prevLEDs map[[2]int]int // for diffing

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager creates a new manager. Sinks must be added before Run.
func NewManager(opts Options) *Manager {
	m := &Manager{
		color:        opts.Color,
		keys:         make(chan []any, 64),
		fundamentals: make(chan float64, 8),
		tasks:        make(chan func(), 8),
		stopChan:     make(chan struct{}),
		prevLEDs:     make(map[[2]int]int),
		UpdateChan:   make(chan struct{}, 1),
	}
	if m.color == nil {
		m.color = grayscale
	}
	m.ctrl = instrument.NewController(instrument.SinkFunc(m.dispatch), instrument.Options{
		Fundamental:   opts.Fundamental,
		DimLevel:      opts.DimLevel,
		FlashDuration: opts.FlashDuration,
		Scheduler:     loopScheduler{m},
		OnError:       m.setError,
	})
	return m
}

// AddSoundSink registers a receiver for the sound-control stream
func (m *Manager) AddSoundSink(s instrument.Sink) {
	m.soundSinks = append(m.soundSinks, s)
}

// AddLightSink registers a receiver for the light-control stream
func (m *Manager) AddLightSink(s instrument.Sink) {
	m.lightSinks = append(m.lightSinks, s)
}

// Run processes events until ctx is cancelled (blocking - run in goroutine)
func (m *Manager) Run(ctx context.Context) {
	go m.ledLoop()

	m.locked(m.ctrl.Redraw)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case args := <-m.keys:
			m.locked(func() { m.ctrl.HandleRaw(args...) })
		case f := <-m.fundamentals:
			m.locked(func() { m.ctrl.SetFundamental(f) })
		case task := <-m.tasks:
			m.locked(task)
		}
	}
}

func (m *Manager) shutdown() {
	m.locked(func() {
		m.ctrl.Close()
		m.dispatch(instrument.LedAllMsg{On: false})
	})
	m.flushLEDs()
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// locked runs f on the loop with the state lock held, then notifies the UI
func (m *Manager) locked(f func()) {
	m.mu.Lock()
	f()
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// Key posts a grid key event (x, y, level)
func (m *Manager) Key(x, y, level int) {
	m.Raw(x, y, level)
}

// Raw posts an unvalidated key event from a transport
func (m *Manager) Raw(args ...any) {
	select {
	case m.keys <- args:
	case <-m.stopChan:
	}
}

// SetFundamental posts a fundamental frequency change
func (m *Manager) SetFundamental(f float64) {
	select {
	case m.fundamentals <- f:
	case <-m.stopChan:
	}
}

// Redraw posts a full clear-and-repaint of the grid
func (m *Manager) Redraw() {
	m.post(func() { m.ctrl.Redraw() })
}

// Refresh posts a control-row refresh, the pass a key release triggers
func (m *Manager) Refresh() {
	m.post(func() { m.ctrl.Refresh() })
}

func (m *Manager) post(f func()) {
	select {
	case m.tasks <- f:
	case <-m.stopChan:
	}
}

// Snapshot returns the current state for display
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		Voices:      m.ctrl.Voices(),
		Fundamental: m.ctrl.Fundamental(),
		DimLevel:    m.ctrl.DimLevel(),
		LEDs:        m.leds,
		LastError:   m.lastErr,
	}
}

// Color returns the display colour for an LED level
func (m *Manager) Color(level int) [3]uint8 {
	return m.color(level)
}

// SetGrid attaches a frame-based grid (nil detaches). Its key events are
// fed into the loop until the grid closes its channel.
func (m *Manager) SetGrid(g midi.Grid) {
	m.mu.Lock()
	m.grid = g
	m.prevLEDs = make(map[[2]int]int) // reset state - diff will repaint
	m.ledDirty = g != nil
	m.mu.Unlock()

	if g == nil {
		return
	}
	debug.Log("led", "grid %s attached", g.ID())
	go func() {
		for k := range g.KeyEvents() {
			m.Key(k.X, k.Y, k.Level)
		}
	}()
}

// HandleDevice wires a hot-plugged controller into the loop
func (m *Manager) HandleDevice(ev midi.DeviceEvent) {
	switch ev.Type {
	case midi.DeviceConnected:
		switch c := ev.Controller.(type) {
		case midi.Grid:
			m.SetGrid(c)
		case midi.Keyboard:
			debug.Log("midi", "keyboard %s attached", c.ID())
			m.AttachKeyboard(c)
		}
	case midi.DeviceDisconnected:
		m.mu.Lock()
		if m.grid != nil && m.grid.ID() == ev.ID {
			m.grid = nil
		}
		m.mu.Unlock()
	}
}

// GridID returns the attached frame-based grid, or "" when none
func (m *Manager) GridID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.grid == nil {
		return ""
	}
	return m.grid.ID()
}

// AttachKeyboard feeds keyboard notes into the loop as fundamentals
func (m *Manager) AttachKeyboard(kb midi.Keyboard) {
	go func() {
		for n := range kb.NoteEvents() {
			m.SetFundamental(midi.NoteToFrequency(n.Note))
		}
	}()
}

// dispatch routes one event's messages. Called on the loop with mu held.
func (m *Manager) dispatch(msgs ...instrument.Message) {
	var sound, light []instrument.Message
	for _, msg := range msgs {
		switch msg.Channel() {
		case instrument.SoundChannel:
			sound = append(sound, msg)
		case instrument.LightChannel:
			light = append(light, msg)
			m.mirror(msg)
		}
	}
	if len(sound) > 0 {
		for _, s := range m.soundSinks {
			s.Emit(sound...)
		}
	}
	if len(light) > 0 {
		for _, s := range m.lightSinks {
			s.Emit(light...)
		}
		m.ledDirty = true
	}
}

func (m *Manager) mirror(msg instrument.Message) {
	switch msg := msg.(type) {
	case instrument.LedSetMsg:
		m.leds[msg.Y][msg.X] = msg.Level()
	case instrument.LedLevelMsg:
		m.leds[msg.Y][msg.X] = msg.Level
	case instrument.LedAllMsg:
		level := instrument.OffLevel
		if msg.On {
			level = instrument.FullLevel
		}
		for y := range m.leds {
			for x := range m.leds[y] {
				m.leds[y][x] = level
			}
		}
	}
}

func (m *Manager) setError(err error) {
	m.lastErr = err
}

// ledLoop runs at fixed FPS and flushes LED updates
func (m *Manager) ledLoop() {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.flushLEDs()
		}
	}
}

// flushLEDs sends only changed LEDs to the grid (diffing + batching)
func (m *Manager) flushLEDs() {
	m.mu.Lock()
	if !m.ledDirty || m.grid == nil {
		m.mu.Unlock()
		return
	}
	m.ledDirty = false
	grid := m.grid

	var updates []midi.LEDUpdate
	for y := range m.leds {
		for x, level := range m.leds[y] {
			key := [2]int{x, y}
			// Only send if changed
			if prev, ok := m.prevLEDs[key]; ok && prev == level {
				continue
			}
			m.prevLEDs[key] = level
			updates = append(updates, midi.LEDUpdate{
				X:     x,
				Y:     y,
				Level: level,
				Color: m.color(level),
			})
		}
	}
	m.mu.Unlock()

	if len(updates) > 0 {
		debug.LogEvery(30, "led", "flushLEDs: batch=%d", len(updates))
		if err := grid.SetLEDBatch(updates); err != nil {
			debug.Log("led", "flush: %v", err)
		}
	}
}

// loopScheduler runs timer callbacks on the manager's event loop
type loopScheduler struct {
	m *Manager
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) instrument.Timer {
	return time.AfterFunc(d, func() { s.m.post(f) })
}

func grayscale(level int) [3]uint8 {
	v := uint8(level * 17)
	return [3]uint8{v, v, v}
}
