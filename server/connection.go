// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wevis-go/wevis/roomlog"
	"github.com/wevis-go/wevis/wire"
)

// connState is the per-connection lifecycle position: INITIAL while the
// welcome salt is being sent, AWAITING_LOGIN until credentials are
// accepted, then NORMAL for the rest of the connection's life. Closure
// isn't a state transition here: it's tracked by aliveFlag instead,
// since Close can be called from a different goroutine than the one
// ticking this state machine.
type connState uint8

const (
	stateInitial connState = iota
	stateAwaitingLogin
	stateNormal
)

// Connection is one accepted TCP socket plus its framing state and
// login/keepalive state machine. A Connection is owned exclusively by
// the Manager goroutine that ticks it; application code only ever sees
// a *Connection as the first argument to Room.Handle and should treat
// it as read-mostly (Send, User, RemoteAddr, Close).
type Connection struct {
	raw        net.Conn
	remoteAddr string

	reader *wire.MessageReader
	writer *wire.MessageWriter

	outMu    sync.Mutex
	outgoing []*wire.Message

	state connState
	salt  string

	user     any
	username string
	adopted  bool
	exited   bool

	nextDeadline time.Time
	pingPending  bool

	closeOnce sync.Once
	aliveFlag atomic.Bool

	cfg     *Config
	manager *Manager
	room    *roomWorker
}

func newConnection(raw net.Conn, cfg *Config, manager *Manager, room *roomWorker) *Connection {
	c := &Connection{
		raw:        raw,
		remoteAddr: raw.RemoteAddr().String(),
		reader:     wire.NewMessageReader(raw, cfg.Registry),
		writer:     wire.NewMessageWriter(raw),
		cfg:        cfg,
		manager:    manager,
		room:       room,
	}
	c.aliveFlag.Store(true)
	return c
}

// RemoteAddr returns the connection's remote address string.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// User returns the opaque user value adopted at login, or nil before
// login completes.
func (c *Connection) User() any { return c.user }

// Send enqueues msg for delivery to this connection's peer. It is safe
// to call from the Room worker goroutine while the Manager concurrently
// ticks this connection.
func (c *Connection) Send(msg *wire.Message) {
	c.outMu.Lock()
	c.outgoing = append(c.outgoing, msg)
	c.outMu.Unlock()
}

// alive reports whether this connection is still owned by the Manager.
func (c *Connection) alive() bool { return c.aliveFlag.Load() }

// Close marks the connection for removal on the Manager's next sweep.
// Idempotent: only the first call has any effect.
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		if reason != "" {
			roomlog.Debug("closing connection", "remote", c.remoteAddr, "reason", reason)
		}
		c.aliveFlag.Store(false)
		_ = c.raw.Close()
	})
}

func (c *Connection) closeWithReject(reason string) {
	msg, _ := wire.NewMessage(c.cfg.Registry, wire.MsgLoginReject, map[string]any{"reason": reason})
	if msg != nil {
		_ = c.writer.SendBlocking(msg, c.cfg.HandshakePollInterval)
	}
	loginRejected(c.cfg.Metrics, reason)
	c.Close(reason)
}

// tick performs at most one state-machine step: at most one read pass,
// one write flush, and one deadline check.
func (c *Connection) tick() {
	switch c.state {
	case stateInitial:
		c.tickInitial()
	case stateAwaitingLogin:
		c.tickAwaitingLogin()
	case stateNormal:
		c.tickNormal()
	}
}

func (c *Connection) tickInitial() {
	salt, err := generateSalt()
	if err != nil {
		c.Close("salt generation failed")
		return
	}
	c.salt = salt

	welcome, err := wire.NewMessage(c.cfg.Registry, wire.MsgWelcome, map[string]any{"salt": salt})
	if err != nil {
		c.Close("could not build welcome message")
		return
	}
	if err := c.writer.SendBlocking(welcome, c.cfg.HandshakePollInterval); err != nil {
		c.Close("welcome send failed")
		return
	}

	c.nextDeadline = time.Now().Add(c.cfg.LoginTimeout)
	c.state = stateAwaitingLogin
}

func (c *Connection) tickAwaitingLogin() {
	msg, err := c.reader.Poll()
	if err != nil {
		c.handleReadError(err)
		return
	}
	if msg == nil {
		if time.Now().After(c.nextDeadline) {
			c.closeWithReject("Login time out")
		}
		return
	}

	if msg.Name() != wire.MsgLogin {
		c.closeWithReject("Unexpected message.")
		return
	}

	c.handleLogin(msg)
}

func (c *Connection) handleLogin(msg *wire.Message) {
	major := msg.GetInt32("major")
	minor := msg.GetInt32("minor")
	revision := msg.GetInt32("revision")
	username := msg.GetString("username")
	digest := msg.GetString("password")

	if !c.cfg.VersionValidator(major, minor, revision) {
		c.closeWithReject("Client requires update.")
		return
	}

	user, ok := c.cfg.UserValidator(username, digest, c.salt)
	if !ok {
		c.closeWithReject("Invalid credentials.")
		return
	}

	if c.manager.activeCount(username) >= c.cfg.MaxConnectionsPerUser {
		c.closeWithReject("Maximum number of connections per user reached.")
		return
	}

	accept, err := wire.NewMessage(c.cfg.Registry, wire.MsgLoginAccept, nil)
	if err != nil {
		c.Close("could not build loginAccept message")
		return
	}
	if err := c.writer.SendBlocking(accept, c.cfg.HandshakePollInterval); err != nil {
		c.Close("loginAccept send failed")
		return
	}

	c.user = user
	c.username = username
	c.adopted = true
	c.manager.userEnter(c)

	c.state = stateNormal
	c.nextDeadline = time.Now().Add(c.cfg.PingInterval)
	c.pingPending = false
}

func (c *Connection) tickNormal() {
	c.flushOutgoing()

	for {
		msg, err := c.reader.Poll()
		if err != nil {
			c.handleReadError(err)
			return
		}
		if msg == nil {
			break
		}
		switch msg.Name() {
		case wire.MsgPong:
			c.pingPending = false
			c.nextDeadline = time.Now().Add(c.cfg.PingInterval)
		case wire.MsgPing:
			pong, _ := wire.NewMessage(c.cfg.Registry, wire.MsgPong, nil)
			c.Send(pong)
		default:
			messagesRouted(c.cfg.Metrics)
			c.room.enqueue(c, msg)
		}
	}

	if time.Now().After(c.nextDeadline) {
		if c.pingPending {
			c.Close("Ping time out")
			return
		}
		ping, err := wire.NewMessage(c.cfg.Registry, wire.MsgPing, nil)
		if err == nil {
			c.Send(ping)
		}
		c.pingPending = true
		c.nextDeadline = time.Now().Add(c.cfg.PingTimeout)
	}
}

func (c *Connection) flushOutgoing() {
	c.outMu.Lock()
	pending := c.outgoing
	c.outgoing = nil
	c.outMu.Unlock()

	for _, msg := range pending {
		c.writer.Enqueue(msg)
	}
	if err := c.writer.Flush(); err != nil {
		c.Close("write failed")
	}
}

func (c *Connection) handleReadError(err error) {
	if errors.Is(err, wire.ErrSocketClosed) {
		c.Close("socket closed")
		return
	}
	var protoErr *wire.ProtocolError
	if errors.As(err, &protoErr) {
		c.Close(protoErr.Error())
		return
	}
	c.Close(err.Error())
}

func generateSalt() (string, error) {
	var a, b [32]byte
	if _, err := rand.Read(a[:]); err != nil {
		return "", err
	}
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	h := sha512.New()
	h.Write(a[:])
	h.Write(b[:])
	return hex.EncodeToString(h.Sum(nil)), nil
}
