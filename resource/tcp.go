package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"sync"
)

// ErrCanceled is returned by operations pending on, or started after, a
// closed resource.
var ErrCanceled = errors.New("operation canceled")

// BindError reports a listener that could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return "bind " + e.Addr + ": " + e.Err.Error()
}

func (e *BindError) Unwrap() error { return e.Err }

// signal is a one-shot cancellation flag. Once fired it stays fired.
type signal struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newSignal() signal {
	ctx, cancel := context.WithCancelCause(context.Background())
	return signal{ctx: ctx, cancel: cancel}
}

func (s signal) fire()                 { s.cancel(ErrCanceled) }
func (s signal) fired() bool           { return s.ctx.Err() != nil }
func (s signal) done() <-chan struct{} { return s.ctx.Done() }

// Listener is a bound TCP listener.
type Listener struct {
	ln     *net.TCPListener
	cancel signal

	closeOnce sync.Once
	closeErr  error
}

// Listen binds a TCP listener on address:port. The address must be an IP
// literal; port 0 picks an ephemeral port.
func Listen(address string, port int) (*Listener, error) {
	hostport := net.JoinHostPort(address, strconv.Itoa(port))

	ip, err := netip.ParseAddr(address)
	if err != nil {
		return nil, &BindError{Addr: hostport, Err: fmt.Errorf("invalid address: %w", err)}
	}
	if port < 0 || port > 65535 {
		return nil, &BindError{Addr: hostport, Err: fmt.Errorf("invalid port %d", port)}
	}

	ln, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(netip.AddrPortFrom(ip, uint16(port))))
	if err != nil {
		return nil, &BindError{Addr: hostport, Err: err}
	}

	return &Listener{ln: ln, cancel: newSignal()}, nil
}

func (l *Listener) Name() string { return "tcpListener" }

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Port returns the bound port, which differs from the requested one when
// listening on port 0.
func (l *Listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// Accept waits for the next connection. It returns ErrCanceled once the
// listener is closed, including when the close happens while waiting.
func (l *Listener) Accept() (*Stream, error) {
	if l.cancel.fired() {
		return nil, ErrCanceled
	}

	conn, err := l.ln.AcceptTCP()
	if err != nil {
		if l.cancel.fired() {
			return nil, ErrCanceled
		}
		return nil, err
	}

	return NewStream(conn), nil
}

// Done is closed when the listener's cancellation signal fires.
func (l *Listener) Done() <-chan struct{} { return l.cancel.done() }

// Close fires the cancellation signal and closes the socket.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.cancel.fire()
		l.closeErr = l.ln.Close()
	})
	return l.closeErr
}

// Stream is a TCP connection split into a read half and a write half.
type Stream struct {
	conn   *net.TCPConn
	rd     sync.Mutex
	wr     sync.Mutex
	cancel signal

	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps an established connection.
func NewStream(conn *net.TCPConn) *Stream {
	return &Stream{conn: conn, cancel: newSignal()}
}

func (s *Stream) Name() string { return "tcpStream" }

// LocalAddr returns the local end of the connection.
func (s *Stream) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// RemoteAddr returns the peer address.
func (s *Stream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Read reads into p while holding the read half. It returns 0, nil at end of
// stream and ErrCanceled if the stream is closed before or during the read.
func (s *Stream) Read(p []byte) (int, error) {
	s.rd.Lock()
	defer s.rd.Unlock()

	if s.cancel.fired() {
		return 0, ErrCanceled
	}

	n, err := s.conn.Read(p)
	if n > 0 {
		return n, nil
	}
	if err != nil {
		if s.cancel.fired() {
			return 0, ErrCanceled
		}
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	return 0, nil
}

// Write writes p while holding the write half.
//
// Write does not check the cancellation signal. A write racing with Close
// fails with whatever error the closed socket reports.
func (s *Stream) Write(p []byte) (int, error) {
	s.wr.Lock()
	defer s.wr.Unlock()

	return s.conn.Write(p)
}

// Done is closed when the stream's cancellation signal fires.
func (s *Stream) Done() <-chan struct{} { return s.cancel.done() }

// Close fires the cancellation signal and closes the connection.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel.fire()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
