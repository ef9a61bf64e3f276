package oscbridge

import (
	"github.com/scgolang/osc"

	"go-addition/instrument"
)

// LightMessage encodes a light-control message for a grid with the given
// prefix. ok is false for sound-control messages.
func LightMessage(prefix string, m instrument.Message) (msg osc.Message, ok bool) {
	switch m := m.(type) {
	case instrument.LedSetMsg:
		return osc.Message{
			Address:   prefix + AddressLedSet,
			Arguments: osc.Arguments{osc.Int(m.X), osc.Int(m.Y), osc.Int(flag(m.On))},
		}, true
	case instrument.LedLevelMsg:
		return osc.Message{
			Address:   prefix + AddressLedLevelSet,
			Arguments: osc.Arguments{osc.Int(m.X), osc.Int(m.Y), osc.Int(m.Level)},
		}, true
	case instrument.LedAllMsg:
		return osc.Message{
			Address:   prefix + AddressLedAll,
			Arguments: osc.Arguments{osc.Int(flag(m.On))},
		}, true
	}
	return osc.Message{}, false
}

// SoundMessage encodes a sound-control message as (voice, param, value)
// sent to address. ok is false for light-control messages.
func SoundMessage(address string, m instrument.Message) (msg osc.Message, ok bool) {
	sm, ok := m.(instrument.SoundMessage)
	if !ok {
		return osc.Message{}, false
	}
	voice, param, value := sm.Tuple()
	return osc.Message{
		Address:   address,
		Arguments: osc.Arguments{osc.Int(voice), osc.String(param), osc.Float(value)},
	}, true
}

// decodeArgs unpacks OSC arguments into the loosely typed form the
// instrument validates: int32, float32 or string. Anything else is passed
// through as the raw argument.
func decodeArgs(args osc.Arguments) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if v, err := a.ReadInt32(); err == nil {
			out[i] = v
			continue
		}
		if v, err := a.ReadFloat32(); err == nil {
			out[i] = v
			continue
		}
		if v, err := a.ReadString(); err == nil {
			out[i] = v
			continue
		}
		out[i] = a
	}
	return out
}

func flag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
