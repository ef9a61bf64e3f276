package midi

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"go-addition/debug"
	"go-addition/instrument"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Controllers used for voice parameters
const (
	CCPan  uint8 = 10
	CCGate uint8 = 80

	noteVelocity  uint8 = 100
	bendSemitones       = 2
)

type synthVoice struct {
	on       bool
	open     bool
	hz       float64
	note     uint8
	bend     int16
	sounding bool
}

// SynthSink plays the sound-control stream on a MIDI synth, one channel per
// voice. Frequency and pan only reach a voice while its gate is open; a
// frequency becomes the nearest note plus pitch bend.
type SynthSink struct {
	send func(msg gomidi.Message) error
	base uint8

	mu     sync.Mutex
	voices [instrument.MaxVoices]synthVoice
}

// NewSynthSink creates a sink writing through send. Voice i plays on
// channel base+i.
func NewSynthSink(send func(msg gomidi.Message) error, base uint8) *SynthSink {
	return &SynthSink{send: send, base: base}
}

// OpenSynthSink opens the named MIDI output port.
func OpenSynthSink(portName string, base uint8) (*SynthSink, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() == portName || strings.Contains(strings.ToLower(port.String()), strings.ToLower(portName)) {
			send, err := gomidi.SendTo(port)
			if err != nil {
				return nil, fmt.Errorf("open synth output %s: %w", port.String(), err)
			}
			return NewSynthSink(send, base), nil
		}
	}
	return nil, fmt.Errorf("synth output %q not found", portName)
}

// Emit implements instrument.Sink. Light messages are ignored.
func (s *SynthSink) Emit(msgs ...instrument.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		switch m := m.(type) {
		case instrument.OnOffMsg:
			s.onOff(m.Voice, m.On)
		case instrument.GateMsg:
			s.gate(m.Voice, m.Open)
		case instrument.FrequencyMsg:
			s.frequency(m.Voice, m.Hz)
		case instrument.PanMsg:
			s.pan(m.Voice, m.Pan)
		}
	}
}

// AllOff silences every voice.
func (s *SynthSink) AllOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.voices {
		s.onOff(i, false)
	}
}

func (s *SynthSink) channel(i int) uint8 {
	return s.base + uint8(i)
}

func (s *SynthSink) onOff(i int, on bool) {
	v := &s.voices[i]
	v.on = on
	if on {
		s.start(i)
		return
	}
	s.stop(i)
}

func (s *SynthSink) gate(i int, open bool) {
	v := &s.voices[i]
	v.open = open
	value := uint8(0)
	if open {
		value = 127
	}
	s.write(gomidi.ControlChange(s.channel(i), CCGate, value))
}

func (s *SynthSink) frequency(i int, hz float64) {
	v := &s.voices[i]
	if !v.open {
		return
	}
	v.hz = hz
	note, bend := FrequencyToNote(hz)
	if v.sounding && note != v.note {
		s.stop(i)
	}
	if v.bend != bend || !v.sounding {
		v.bend = bend
		s.write(gomidi.Pitchbend(s.channel(i), bend))
	}
	v.note = note
	s.start(i)
}

func (s *SynthSink) pan(i int, pan float64) {
	if !s.voices[i].open {
		return
	}
	s.write(gomidi.ControlChange(s.channel(i), CCPan, PanToCC(pan)))
}

// start sounds the voice's note if it is on, tuned and silent.
func (s *SynthSink) start(i int) {
	v := &s.voices[i]
	if !v.on || v.hz <= 0 || v.sounding {
		return
	}
	v.sounding = true
	s.write(gomidi.NoteOn(s.channel(i), v.note, noteVelocity))
}

func (s *SynthSink) stop(i int) {
	v := &s.voices[i]
	if !v.sounding {
		return
	}
	v.sounding = false
	s.write(gomidi.NoteOff(s.channel(i), v.note))
}

func (s *SynthSink) write(msg gomidi.Message) {
	if s.send == nil {
		return
	}
	if err := s.send(msg); err != nil {
		debug.Log("midi", "synth send %v: %v", msg, err)
	}
}

// FrequencyToNote returns the nearest MIDI note and the 14-bit pitch bend
// (range ±2 semitones) that reaches hz exactly.
func FrequencyToNote(hz float64) (note uint8, bend int16) {
	exact := 69 + 12*math.Log2(hz/440)
	nearest := math.Round(exact)
	if nearest < 0 {
		nearest = 0
	} else if nearest > 127 {
		nearest = 127
	}
	offset := (exact - nearest) / bendSemitones
	if offset > 1 {
		offset = 1
	} else if offset < -1 {
		offset = -1
	}
	return uint8(nearest), int16(math.Round(offset * 8191))
}

// PanToCC maps a pan of -1..1 onto a controller value 0..127
func PanToCC(pan float64) uint8 {
	v := math.Round((pan + 1) * 63.5)
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
