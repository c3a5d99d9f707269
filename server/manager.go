// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"log/slog"
	"net"
	"time"

	"github.com/wevis-go/wevis/roomlog"
)

// Manager owns the live-connection set. It admits sockets the Listener
// publishes to its incoming queue, calls tick on every live Connection
// once per cycle, and is the only component that mutates the per-user
// active-connection count -- all from this single goroutine, so the
// count map needs no lock.
type Manager struct {
	cfg  *Config
	room *roomWorker

	incoming chan net.Conn

	connections []*Connection
	counts      map[string]int

	halt chan struct{}
	done chan struct{}
}

func newManager(cfg *Config, room *roomWorker) *Manager {
	return &Manager{
		cfg:      cfg,
		room:     room,
		incoming: make(chan net.Conn, 256),
		counts:   make(map[string]int),
		halt:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// admit publishes a newly accepted socket to the Manager. Called by the
// Listener; blocks only if the incoming queue is momentarily full.
func (m *Manager) admit(raw net.Conn) {
	select {
	case m.incoming <- raw:
	case <-m.halt:
		_ = raw.Close()
	}
}

// activeCount returns the number of NORMAL connections currently
// adopted by username. Only ever called from this goroutine (via a
// Connection's tick), so it needs no lock.
func (m *Manager) activeCount(username string) int { return m.counts[username] }

func (m *Manager) userEnter(c *Connection) {
	m.counts[c.username]++
	m.room.notifyEnter(c)
}

func (m *Manager) userExit(c *Connection) {
	if c.exited {
		return
	}
	c.exited = true
	m.counts[c.username]--
	if m.counts[c.username] <= 0 {
		delete(m.counts, c.username)
	}
	m.room.notifyExit(c.user)
}

func (m *Manager) run() {
	defer close(m.done)
	log := roomlog.With("worker", "manager")
	for {
		select {
		case <-m.halt:
			return
		default:
		}

		m.sweep()
		m.drainIncoming()

		for _, c := range m.connections {
			m.tickOne(log, c)
		}

		time.Sleep(m.cfg.ManagerCycleSleep)
	}
}

func (m *Manager) tickOne(log *slog.Logger, c *Connection) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("connection tick panicked", "remote", c.RemoteAddr(), "panic", r)
			c.Close("internal error")
		}
	}()
	c.tick()
}

func (m *Manager) sweep() {
	live := m.connections[:0]
	for _, c := range m.connections {
		if c.alive() {
			live = append(live, c)
			continue
		}
		if c.adopted {
			m.userExit(c)
		}
		connectionsClosed(m.cfg.Metrics)
	}
	m.connections = live
}

func (m *Manager) drainIncoming() {
	for {
		select {
		case raw := <-m.incoming:
			c := newConnection(raw, m.cfg, m, m.room)
			m.connections = append(m.connections, c)
			connectionsOpened(m.cfg.Metrics)
		default:
			return
		}
	}
}

func (m *Manager) stop() {
	select {
	case <-m.halt:
	default:
		close(m.halt)
	}
}

func (m *Manager) wait() { <-m.done }
