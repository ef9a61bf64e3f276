package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// KeyEvent is a grid key in monome coordinates: x 0-15 left to right, y 0-7
// top to bottom. Level 1 is a press, 0 a release.
type KeyEvent struct {
	X, Y  int
	Level int
}

// NoteEvent is sent when a note is played on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// LEDUpdate sets one grid LED, in grid coordinates
type LEDUpdate struct {
	X, Y  int
	Level int      // 0-15
	Color [3]uint8 // RGB for colour devices
}

// Controller is the common interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType
	Close() error
}

// Grid is a controller that acts as the 16x8 button grid
type Grid interface {
	Controller
	KeyEvents() <-chan KeyEvent
	SetLEDBatch(updates []LEDUpdate) error
}

// Keyboard is a controller that plays notes
type Keyboard interface {
	Controller
	NoteEvents() <-chan NoteEvent
}
