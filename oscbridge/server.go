package oscbridge

import (
	"net"

	"github.com/pkg/errors"
	"github.com/scgolang/osc"

	"go-addition/debug"
)

// Server receives grid keys and fundamental changes over OSC.
type Server struct {
	conn     *osc.UDPConn
	laddr    *net.UDPAddr
	keyAddr  string
	fundAddr string

	keys         chan []any
	fundamentals chan float64
	done         chan struct{}
}

// Listen binds addr. Keys arrive on prefix+"/grid/key"; fundamentals on
// fundamentalAddress.
func Listen(addr, prefix, fundamentalAddress string) (*Server, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := osc.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return &Server{
		conn:         conn,
		laddr:        laddr,
		keyAddr:      prefix + AddressKey,
		fundAddr:     fundamentalAddress,
		keys:         make(chan []any, 32),
		fundamentals: make(chan float64, 8),
		done:         make(chan struct{}),
	}, nil
}

// Keys delivers raw key arguments, unvalidated.
func (s *Server) Keys() <-chan []any {
	return s.keys
}

func (s *Server) Fundamentals() <-chan float64 {
	return s.fundamentals
}

// Port returns the bound UDP port, for serialosc registration. With port 0
// in the listen address this is the port the kernel picked.
func (s *Server) Port() int {
	if a, ok := s.conn.LocalAddr().(*net.UDPAddr); ok {
		return a.Port
	}
	return s.laddr.Port
}

// Serve dispatches incoming messages until the server is closed.
func (s *Server) Serve() error {
	err := s.conn.Serve(1, osc.PatternMatching{
		s.keyAddr:  osc.Method(s.handleKey),
		s.fundAddr: osc.Method(s.handleFundamental),
	})
	select {
	case <-s.done:
		return nil
	default:
	}
	return err
}

func (s *Server) Close() error {
	close(s.done)
	return s.conn.Close()
}

func (s *Server) handleKey(m osc.Message) error {
	args := decodeArgs(m.Arguments)
	debug.Log("osc", "%s %v", m.Address, args)
	select {
	case s.keys <- args:
	case <-s.done:
	}
	return nil
}

// A handler error would stop Serve, so bad fundamentals are logged and dropped.
func (s *Server) handleFundamental(m osc.Message) error {
	f, err := readFundamental(m.Arguments)
	if err != nil {
		debug.Log("osc", "%s: %v", m.Address, err)
		return nil
	}
	select {
	case s.fundamentals <- f:
	case <-s.done:
	}
	return nil
}

func readFundamental(args osc.Arguments) (float64, error) {
	if expected, got := 1, len(args); expected != got {
		return 0, errors.Errorf("expected %d arguments, got %d", expected, got)
	}
	if v, err := args[0].ReadFloat32(); err == nil {
		return float64(v), nil
	}
	v, err := args[0].ReadInt32()
	if err != nil {
		return 0, errors.Wrap(err, "fundamental")
	}
	return float64(v), nil
}
