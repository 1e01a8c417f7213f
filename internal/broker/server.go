package broker

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/Albert24GG/pcom-assignments/internal/broker/wire"
	"github.com/Albert24GG/pcom-assignments/internal/log"
	"github.com/Albert24GG/pcom-assignments/internal/metrics"
	"github.com/Albert24GG/pcom-assignments/internal/topic"
)

// ServerOptions tunes the broker server. The zero value is usable.
type ServerOptions struct {
	// WriteTimeout bounds one best-effort response write per subscriber.
	WriteTimeout time.Duration
	// EventQueue is the event channel capacity.
	EventQueue int
	// Stdin and Stdout are overridable for tests.
	Stdin  io.Reader
	Stdout io.Writer
}

func (o ServerOptions) withDefaults() ServerOptions {
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.EventQueue == 0 {
		o.EventQueue = 256
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// Server ingests publisher datagrams and fans them out as TCP frames to
// matching subscribers. All mutable state (registry, session table) is
// owned by the single event-loop goroutine inside Run; reader goroutines
// only push events.
type Server struct {
	opts     ServerOptions
	listener net.Listener
	udp      *net.UDPConn
	registry *Registry

	sessions    map[int]net.Conn
	nextSession int
	events      chan event

	log log.Logger
}

type event interface{ isEvent() }

type acceptEvent struct{ conn net.Conn }
type requestEvent struct {
	session int
	req     wire.Request
}
type sessionErrorEvent struct {
	session int
	err     error
}
type datagramEvent struct {
	data []byte
	addr *net.UDPAddr
}
type stdinEvent struct{ line string }

func (acceptEvent) isEvent()       {}
func (requestEvent) isEvent()      {}
func (sessionErrorEvent) isEvent() {}
func (datagramEvent) isEvent()     {}
func (stdinEvent) isEvent()        {}

// NewServer binds the TCP listening socket and the UDP socket on the
// same port on all interfaces. Any bind failure is fatal and leaves no
// socket behind.
func NewServer(port uint16, opts ServerOptions) (*Server, error) {
	opts = opts.withDefaults()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrap(err, "broker: failed to bind TCP socket")
	}

	udp, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "broker: failed to bind UDP socket")
	}

	return &Server{
		opts:     opts,
		listener: listener,
		udp:      udp,
		registry: NewRegistry(),
		sessions: make(map[int]net.Conn),
		events:   make(chan event, opts.EventQueue),
		log:      log.GetLogger().WithField("component", "broker"),
	}, nil
}

// Run drives the event loop until the "exit" command arrives or the
// context is cancelled. Accept and receive errors are logged and do not
// end the loop.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		for session, conn := range s.sessions {
			conn.Close()
			delete(s.sessions, session)
		}
		s.listener.Close()
		s.udp.Close()
	}()

	go s.acceptLoop(ctx)
	go s.datagramLoop(ctx)
	go s.stdinLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			switch ev := ev.(type) {
			case acceptEvent:
				s.handleAccept(ctx, ev.conn)
			case requestEvent:
				s.handleRequest(ev.session, ev.req)
			case sessionErrorEvent:
				s.handleSessionError(ev.session, ev.err)
			case datagramEvent:
				s.handleDatagram(ev.data, ev.addr)
			case stdinEvent:
				if ev.line == "exit" {
					return nil
				}
			}
		}
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("accept failed")
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		select {
		case s.events <- acceptEvent{conn: conn}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (s *Server) datagramLoop(ctx context.Context) {
	// The receive buffer is the maximum decodable datagram; anything
	// longer is truncated by the kernel and tolerated by the decoder.
	buf := make([]byte, wire.MaxUDPSize)
	for {
		n, addr, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.WithError(err).Error("failed to receive UDP datagram")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.events <- datagramEvent{data: data, addr: addr}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) stdinLoop(ctx context.Context) {
	scanner := bufio.NewScanner(s.opts.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" {
			select {
			case s.events <- stdinEvent{line: "exit"}:
			case <-ctx.Done():
			}
			return
		}
		// Anything else is ignored.
	}
}

func (s *Server) handleAccept(ctx context.Context, conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			s.log.WithError(err).Error("failed to disable Nagle on subscriber socket")
			conn.Close()
			return
		}
	}

	session := s.nextSession
	s.nextSession++
	s.sessions[session] = conn

	go s.readLoop(ctx, session, conn)
}

// readLoop pulls request frames off one subscriber socket. It owns no
// state; every outcome is reported to the event loop.
func (s *Server) readLoop(ctx context.Context, session int, conn net.Conn) {
	for {
		msgType, payload, err := wire.ReadFrame(conn)
		if err == nil && msgType != wire.MessageRequest {
			err = errors.Wrap(wire.ErrUnknownMessageType, "expected a request frame")
		}

		var req wire.Request
		if err == nil {
			req, err = wire.DecodeRequest(payload)
		}

		var ev event
		if err != nil {
			ev = sessionErrorEvent{session: session, err: err}
		} else {
			ev = requestEvent{session: session, req: req}
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(session int, req wire.Request) {
	conn, ok := s.sessions[session]
	if !ok {
		// The session was torn down while the event was queued.
		return
	}

	switch req.Type {
	case wire.RequestConnect:
		if s.registry.Connected(session) {
			s.log.Error("invalid CONNECT request: subscriber already connected")
			s.dropSession(session)
			return
		}
		if err := s.registry.Connect(session, req.Value); err != nil {
			fmt.Fprintf(s.opts.Stdout, "Client %s already connected.\n", req.Value)
			s.dropSession(session)
			return
		}
		metrics.BrokerSubscribers.Inc()
		fmt.Fprintf(s.opts.Stdout, "New client %s connected from %s.\n", req.Value, conn.RemoteAddr())

	case wire.RequestSubscribe, wire.RequestUnsubscribe:
		if !s.registry.Connected(session) {
			s.log.Errorf("invalid %s request: subscriber not connected", req.Type)
			s.dropSession(session)
			return
		}

		pattern, err := topic.Parse(req.Value)
		if err != nil {
			s.log.WithError(err).Errorf("invalid topic pattern in %s request", req.Type)
			s.dropSession(session)
			return
		}

		if req.Type == wire.RequestSubscribe {
			err = s.registry.Subscribe(session, pattern)
		} else {
			err = s.registry.Unsubscribe(session, pattern)
		}
		if err != nil {
			s.log.WithError(err).Errorf("failed to process %s request", req.Type)
			s.dropSession(session)
		}

	default:
		s.log.Errorf("invalid request type %d", req.Type)
		s.dropSession(session)
	}
}

func (s *Server) handleSessionError(session int, err error) {
	if _, ok := s.sessions[session]; !ok {
		return
	}

	if isDisconnect(err) {
		if id, ok := s.registry.ID(session); ok {
			fmt.Fprintf(s.opts.Stdout, "Client %s disconnected.\n", id)
		}
	} else {
		s.log.WithError(err).Error("failed to read subscriber request")
	}
	s.dropSession(session)
}

func (s *Server) handleDatagram(data []byte, addr *net.UDPAddr) {
	metrics.BrokerDatagramsTotal.Inc()

	msg, err := wire.DecodeUDP(data)
	if err != nil {
		s.log.WithError(err).Error("failed to deserialize UDP message")
		return
	}

	incoming, err := topic.Parse(msg.Topic)
	if err != nil || incoming.HasWildcard() {
		s.log.Errorf("invalid incoming topic %q", msg.Topic)
		return
	}

	sessions := s.registry.Match(incoming)
	if len(sessions) == 0 {
		return
	}

	senderIP := addr.IP.To4()
	if senderIP == nil {
		s.log.Errorf("non-IPv4 publisher address %s", addr)
		return
	}

	resp := wire.Response{
		ClientIP:   binary.BigEndian.Uint32(senderIP),
		ClientPort: uint16(addr.Port),
		Topic:      msg.Topic,
		Payload:    msg.Payload,
	}
	frame, err := resp.EncodeResponseFrame()
	if err != nil {
		s.log.WithError(err).Error("failed to serialize response frame")
		return
	}

	for _, session := range sessions {
		conn, ok := s.sessions[session]
		if !ok {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		if _, err := conn.Write(frame); err != nil {
			if id, ok := s.registry.ID(session); ok && isDisconnect(err) {
				fmt.Fprintf(s.opts.Stdout, "Client %s disconnected.\n", id)
			} else {
				s.log.WithError(err).Error("failed to send response frame")
			}
			s.dropSession(session)
			continue
		}
		metrics.BrokerResponsesTotal.Inc()
	}
}

// dropSession closes the socket and unbinds the session. The identity
// and its subscriptions survive for a reconnect.
func (s *Server) dropSession(session int) {
	conn, ok := s.sessions[session]
	if !ok {
		return
	}
	if s.registry.Connected(session) {
		metrics.BrokerSubscribers.Dec()
	}
	s.registry.Disconnect(session)
	conn.Close()
	delete(s.sessions, session)
}

// isDisconnect classifies peer-gone errors apart from genuine transport
// failures.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
