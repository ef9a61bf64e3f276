package oscbridge

import (
	"net"

	"github.com/pkg/errors"
	"github.com/scgolang/osc"

	"go-addition/debug"
	"go-addition/instrument"
)

func dial(addr string) (*osc.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := osc.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return conn, nil
}

// GridClient sends LED messages to a serialosc grid.
type GridClient struct {
	conn   *osc.UDPConn
	prefix string
}

// DialGrid connects to the serialosc device port at addr.
func DialGrid(addr, prefix string) (*GridClient, error) {
	conn, err := dial(addr)
	if err != nil {
		return nil, errors.Wrap(err, "grid")
	}
	return &GridClient{conn: conn, prefix: prefix}, nil
}

// Register points the device's key events at host:port and sets its prefix.
func (g *GridClient) Register(host string, port int) error {
	msgs := []osc.Message{
		{Address: AddressSysHost, Arguments: osc.Arguments{osc.String(host)}},
		{Address: AddressSysPort, Arguments: osc.Arguments{osc.Int(port)}},
		{Address: AddressSysPrefix, Arguments: osc.Arguments{osc.String(g.prefix)}},
	}
	for _, m := range msgs {
		if err := g.conn.Send(m); err != nil {
			return errors.Wrapf(err, "send %s", m.Address)
		}
	}
	return nil
}

// Emit implements instrument.Sink. Sound messages are ignored.
func (g *GridClient) Emit(msgs ...instrument.Message) {
	for _, m := range msgs {
		msg, ok := LightMessage(g.prefix, m)
		if !ok {
			continue
		}
		if err := g.conn.Send(msg); err != nil {
			debug.Log("osc", "grid send %s: %v", m, err)
		}
	}
}

func (g *GridClient) Close() error {
	return g.conn.Close()
}

// SynthClient sends the sound-control stream to an OSC synth.
type SynthClient struct {
	conn    *osc.UDPConn
	address string
}

// DialSynth connects to the synth at addr; messages go to the OSC address.
func DialSynth(addr, address string) (*SynthClient, error) {
	conn, err := dial(addr)
	if err != nil {
		return nil, errors.Wrap(err, "synth")
	}
	return &SynthClient{conn: conn, address: address}, nil
}

// Emit implements instrument.Sink. Light messages are ignored.
func (s *SynthClient) Emit(msgs ...instrument.Message) {
	for _, m := range msgs {
		msg, ok := SoundMessage(s.address, m)
		if !ok {
			continue
		}
		if err := s.conn.Send(msg); err != nil {
			debug.Log("osc", "synth send %s: %v", m, err)
		}
	}
}

func (s *SynthClient) Close() error {
	return s.conn.Close()
}
