package net

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// ErrServerShutdown is returned when operations on a server are invoked after
// it's been terminated.
var ErrServerShutdown = errors.New("server shutdown")

// Server is the listening side of NetworkChannel. It decodes the requests of
// every accepted connection and answers them with a Handler.
type Server struct {
	logger  *logrus.Entry
	stream  StreamLayer
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	conns     map[net.Conn]struct{}
	connsLock sync.Mutex
}

// NewServer creates a server on top of an existing stream layer.
func NewServer(stream StreamLayer, handler Handler, logger *logrus.Entry) *Server {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		logger:     logger,
		stream:     stream,
		handler:    handler,
		ctx:        ctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
}

// NewTCPServer binds bindAddr and returns a server ready to Listen.
func NewTCPServer(bindAddr string, handler Handler, logger *logrus.Entry) (*Server, error) {
	stream, err := NewTCPStreamLayer(bindAddr, "", nil)
	if err != nil {
		return nil, err
	}
	return NewServer(stream, handler, logger), nil
}

// Addr is the address clients should dial.
func (s *Server) Addr() string {
	return s.stream.AdvertiseAddr()
}

// Close stops accepting connections and drops the open ones.
func (s *Server) Close() error {
	s.shutdownLock.Lock()
	defer s.shutdownLock.Unlock()

	if s.shutdown {
		return nil
	}

	close(s.shutdownCh)
	s.cancel()
	s.shutdown = true

	err := s.stream.Close()

	s.connsLock.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsLock.Unlock()

	return err
}

// IsShutdown is used to check if the server is shutdown.
func (s *Server) IsShutdown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// Listen accepts and handles incoming connections until Close is called.
func (s *Server) Listen() {
	for {
		// Accept incoming connections
		conn, err := s.stream.Accept()
		if err != nil {
			if s.IsShutdown() {
				return
			}
			s.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		// Handle the connection in dedicated routine
		go s.handleConn(conn)
	}
}

// handleConn is used to handle an inbound connection for its lifespan.
func (s *Server) handleConn(conn net.Conn) {
	s.connsLock.Lock()
	s.conns[conn] = struct{}{}
	s.connsLock.Unlock()

	defer func() {
		s.connsLock.Lock()
		delete(s.conns, conn)
		s.connsLock.Unlock()
		conn.Close()
	}()

	r := bufio.NewReaderSize(conn, bufSize)
	w := bufio.NewWriterSize(conn, bufSize)
	dec := codec.NewDecoder(r, frameHandle)
	enc := codec.NewEncoder(w, frameHandle)

	for {
		if err := s.handleCommand(dec, enc); err != nil {
			if err != io.EOF && !s.IsShutdown() {
				s.logger.WithField("error", err).Error("Failed to decode incoming command")
			}
			return
		}
		if err := w.Flush(); err != nil {
			s.logger.WithField("error", err).Error("Failed to flush response")
			return
		}
	}
}

// handleCommand is used to decode and dispatch a single command.
func (s *Server) handleCommand(dec *codec.Decoder, enc *codec.Encoder) error {
	var method string
	if err := dec.Decode(&method); err != nil {
		return err
	}

	var request []byte
	if err := dec.Decode(&request); err != nil {
		return err
	}

	if s.IsShutdown() {
		return ErrServerShutdown
	}

	resp, err := s.handler.Handle(s.ctx, method, request)

	// Send the error first
	respErr := ""
	if err != nil {
		respErr = err.Error()
	}
	if err := enc.Encode(respErr); err != nil {
		return err
	}

	// Send the response
	return enc.Encode(resp)
}
