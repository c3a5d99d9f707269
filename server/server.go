// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wevis-go/wevis/roomlog"
)

// Server binds a TCP socket and runs the three cooperating workers
// (Manager, Listener, Room). Construct with New, call Start, then Wait
// for it to stop -- either because Stop was called or because a worker
// hit a fatal error.
type Server struct {
	cfg Config

	ln       net.Listener
	manager  *Manager
	listener *listener
	room     *roomWorker

	halt     chan struct{}
	haltOnce sync.Once

	errMu sync.Mutex
	err   error

	started bool
}

// New constructs a Server from the given options. The socket is not
// opened, and no worker is started, until Start is called.
func New(opts ...Option) *Server {
	cfg := NewConfig(opts...)
	return &Server{cfg: cfg, halt: make(chan struct{})}
}

// Start binds the listening socket and launches the Manager, Listener
// and Room workers in that order.
func (s *Server) Start(room Room) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.ln = ln

	s.room = newRoomWorker(room, sleeper(time.Microsecond))
	s.manager = newManager(&s.cfg, s.room)
	s.listener = newListener(s.ln, s.manager, s.cfg.ListenerRetryDelay, func(err error) {
		s.Stop(&FatalError{Worker: "listener", Err: err})
	})

	go s.manager.run()
	go s.listener.run()
	go s.room.run()

	s.started = true
	roomlog.Info("server started", "addr", addr, "name", s.cfg.Name)
	return nil
}

func sleeper(min time.Duration) func() {
	return func() { time.Sleep(min) }
}

// Stop records an optional fatal error and signals every worker to
// halt at its next cycle. Safe to call multiple times and concurrently;
// only the first error is kept.
func (s *Server) Stop(err error) {
	s.haltOnce.Do(func() {
		if err != nil {
			s.errMu.Lock()
			s.err = err
			s.errMu.Unlock()
		}
		close(s.halt)
	})
}

// Wait blocks until Stop has been called (or a worker failed), joins
// every worker in order, closes the socket, and returns the stored
// fatal error, if any.
func (s *Server) Wait() error {
	<-s.halt

	if s.listener != nil {
		s.listener.stop()
	}
	if s.manager != nil {
		s.manager.stop()
	}
	if s.room != nil {
		s.room.stop()
	}

	if s.manager != nil {
		s.manager.wait()
	}
	if s.listener != nil {
		s.listener.wait()
	}
	if s.room != nil {
		s.room.wait()
	}

	if s.ln != nil {
		_ = s.ln.Close()
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Addr returns the bound listener address. Valid only after Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}
