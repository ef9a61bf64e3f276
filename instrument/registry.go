package instrument

// Grid and voice dimensions of a monome 128.
const (
	MaxVoices  = 8
	GridWidth  = 16
	GridHeight = 8
)

// Cell is a grid coordinate. Row 0 is the control row.
type Cell struct {
	X, Y int
}

// VoiceKey returns the control-row key that toggles voice i.
func VoiceKey(i int) Cell {
	return Cell{X: i, Y: 0}
}

// GateKey returns the control-row key that toggles the gate of voice i.
func GateKey(i int) Cell {
	return Cell{X: MaxVoices + i, Y: 0}
}

// Voice is the state of a single voice.
type Voice struct {
	On       bool
	Gated    bool // implies On
	Position Cell // last claimed play-area cell, valid when Placed
	Placed   bool
}

// Registry holds the state of all voices. It is not safe for concurrent use;
// the Controller that owns it serializes access.
type Registry struct {
	voices [MaxVoices]Voice
}

// NewRegistry creates a registry with every voice off, ungated and unplaced.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetOn switches voice i on or off. Switching off also closes the gate; the
// position is kept so the voice reclaims its cell when switched back on.
func (r *Registry) SetOn(i int, on bool) {
	v := &r.voices[i]
	v.On = on
	if !on {
		v.Gated = false
	}
}

// SetGated opens or closes the gate of voice i. Opening the gate of a voice
// that is off is refused and reported by the false return.
func (r *Registry) SetGated(i int, gated bool) bool {
	v := &r.voices[i]
	if gated && !v.On {
		return false
	}
	v.Gated = gated
	return true
}

// SetPosition records the play-area cell claimed by voice i.
func (r *Registry) SetPosition(i int, c Cell) {
	v := &r.voices[i]
	v.Position = c
	v.Placed = true
}

func (r *Registry) IsOn(i int) bool {
	return r.voices[i].On
}

func (r *Registry) IsGated(i int) bool {
	return r.voices[i].Gated
}

// PositionOf returns the cell claimed by voice i and whether it has one.
func (r *Registry) PositionOf(i int) (Cell, bool) {
	v := r.voices[i]
	return v.Position, v.Placed
}

// Voice returns a copy of the state of voice i.
func (r *Registry) Voice(i int) Voice {
	return r.voices[i]
}

// Snapshot returns a copy of every voice.
func (r *Registry) Snapshot() [MaxVoices]Voice {
	return r.voices
}

// AnyOnAt reports whether a voice that is on claims c.
func (r *Registry) AnyOnAt(c Cell) bool {
	for _, v := range r.voices {
		if v.On && v.Placed && v.Position == c {
			return true
		}
	}
	return false
}

// AnyGatedAt reports whether a gated voice claims c.
func (r *Registry) AnyGatedAt(c Cell) bool {
	for _, v := range r.voices {
		if v.Gated && v.Placed && v.Position == c {
			return true
		}
	}
	return false
}
