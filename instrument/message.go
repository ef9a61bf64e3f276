package instrument

import "fmt"

// Channel identifies the output stream a message belongs to.
type Channel int

const (
	SoundChannel Channel = iota // voice parameters
	LightChannel                // grid LEDs
)

// Sound-control parameter names.
const (
	ParamFreq  = "freq"
	ParamPan   = "pan"
	ParamOnOff = "on_off"
	ParamGate  = "gate"
)

// LED levels. A LedSetMsg that is on is equivalent to FullLevel.
const (
	OffLevel  = 0
	FullLevel = 15

	DefaultDimLevel = 4
)

// Message is one outgoing control message. The set of implementations is
// closed: FrequencyMsg, PanMsg, OnOffMsg, GateMsg, LedSetMsg, LedLevelMsg and
// LedAllMsg.
type Message interface {
	Channel() Channel
	String() string
	message()
}

// SoundMessage is a message on the sound-control stream, flattened to the
// (voice, parameter, value) form transports send.
type SoundMessage interface {
	Message
	Tuple() (voice int, param string, value float64)
}

type FrequencyMsg struct {
	Voice int
	Hz    float64
}

type PanMsg struct {
	Voice int
	Pan   float64 // -1 left, +1 right
}

type OnOffMsg struct {
	Voice int
	On    bool
}

type GateMsg struct {
	Voice int
	Open  bool
}

// LedSetMsg switches a single LED fully on or off.
type LedSetMsg struct {
	X, Y int
	On   bool
}

// LedLevelMsg sets a single LED to a brightness level 0-15.
type LedLevelMsg struct {
	X, Y  int
	Level int
}

// LedAllMsg switches every LED on the grid on or off.
type LedAllMsg struct {
	On bool
}

func (FrequencyMsg) message() {}
func (PanMsg) message()       {}
func (OnOffMsg) message()     {}
func (GateMsg) message()      {}
func (LedSetMsg) message()    {}
func (LedLevelMsg) message()  {}
func (LedAllMsg) message()    {}

func (FrequencyMsg) Channel() Channel { return SoundChannel }
func (PanMsg) Channel() Channel       { return SoundChannel }
func (OnOffMsg) Channel() Channel     { return SoundChannel }
func (GateMsg) Channel() Channel      { return SoundChannel }
func (LedSetMsg) Channel() Channel    { return LightChannel }
func (LedLevelMsg) Channel() Channel  { return LightChannel }
func (LedAllMsg) Channel() Channel    { return LightChannel }

func (m FrequencyMsg) Tuple() (int, string, float64) { return m.Voice, ParamFreq, m.Hz }
func (m PanMsg) Tuple() (int, string, float64)       { return m.Voice, ParamPan, m.Pan }
func (m OnOffMsg) Tuple() (int, string, float64)     { return m.Voice, ParamOnOff, boolValue(m.On) }
func (m GateMsg) Tuple() (int, string, float64)      { return m.Voice, ParamGate, boolValue(m.Open) }

// Level returns the brightness the message sets.
func (m LedSetMsg) Level() int {
	if m.On {
		return FullLevel
	}
	return OffLevel
}

func (m FrequencyMsg) String() string { return fmt.Sprintf("voice %d freq %.2f", m.Voice, m.Hz) }
func (m PanMsg) String() string       { return fmt.Sprintf("voice %d pan %.3f", m.Voice, m.Pan) }
func (m OnOffMsg) String() string     { return fmt.Sprintf("voice %d on_off %d", m.Voice, int(boolValue(m.On))) }
func (m GateMsg) String() string      { return fmt.Sprintf("voice %d gate %d", m.Voice, int(boolValue(m.Open))) }
func (m LedSetMsg) String() string    { return fmt.Sprintf("led set %d %d %d", m.X, m.Y, int(boolValue(m.On))) }
func (m LedLevelMsg) String() string  { return fmt.Sprintf("led level %d %d %d", m.X, m.Y, m.Level) }
func (m LedAllMsg) String() string    { return fmt.Sprintf("led all %d", int(boolValue(m.On))) }

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Sink receives the messages produced by one event, in order.
type Sink interface {
	Emit(msgs ...Message)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(msgs ...Message)

func (f SinkFunc) Emit(msgs ...Message) {
	f(msgs...)
}
