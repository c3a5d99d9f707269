// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package client implements the single-worker client side of the
// protocol: connect, handshake, then a run loop that drains an outgoing
// queue to the socket and a reader into an incoming queue that user
// code polls with Receive/ReceiveBlocking.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wevis-go/wevis/roomlog"
	"github.com/wevis-go/wevis/wire"
)

type status int32

const (
	statusPreRun status = iota
	statusPreConnect
	statusConnected
	statusPostRun
)

// Client is a single-connection client. Build one with New, call Start
// (or StartBlocking) to connect and begin the run loop, then use
// Queue/Q to send and Receive/ReceiveBlocking to read.
type Client struct {
	cfg Config

	mu      sync.Mutex
	status  status
	lastErr error

	conn   net.Conn
	reader *wire.MessageReader
	writer *wire.MessageWriter

	inMu     sync.Mutex
	incoming []*wire.Message

	outMu    sync.Mutex
	outgoing []*wire.Message

	halt     chan struct{}
	haltOnce sync.Once
	done     chan struct{}
}

// New returns a Client configured by opts. Nothing happens on the
// network until Start or StartBlocking is called.
func New(opts ...Option) *Client {
	return &Client{
		cfg:  NewConfig(opts...),
		halt: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the client's single worker goroutine: connect,
// handshake, then the run loop. It returns immediately; use
// StartBlocking or Wait to observe the outcome.
func (c *Client) Start() {
	go c.run()
}

// StartBlocking calls Start and waits until the client reaches
// CONNECTED or records an error.
func (c *Client) StartBlocking() error {
	c.Start()
	for {
		c.mu.Lock()
		st, err := c.status, c.lastErr
		c.mu.Unlock()
		if err != nil {
			return err
		}
		if st == statusConnected {
			return nil
		}
		time.Sleep(c.cfg.HandshakePollInterval)
	}
}

// Stop signals the run loop to exit at its next cycle.
func (c *Client) Stop() {
	c.haltOnce.Do(func() { close(c.halt) })
}

// Wait blocks until the worker goroutine exits and returns the first
// error it recorded, if any.
func (c *Client) Wait() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) run() {
	defer close(c.done)
	c.setStatus(statusPreConnect)

	if err := c.connectAndHandshake(); err != nil {
		c.fail(err)
		return
	}
	c.setStatus(statusConnected)
	roomlog.Info("client connected", "addr", c.conn.RemoteAddr(), "name", c.cfg.Name)

	for {
		select {
		case <-c.halt:
			c.setStatus(statusPostRun)
			_ = c.conn.Close()
			return
		default:
		}

		if err := c.runOnce(); err != nil {
			c.fail(err)
			return
		}

		time.Sleep(c.cfg.RunLoopSleep)
	}
}

func (c *Client) connectAndHandshake() error {
	raw, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port), c.cfg.DialTimeout)
	if err != nil {
		return &ConnectionError{Reason: "dial failed", Err: err}
	}
	c.conn = raw
	c.reader = wire.NewMessageReader(raw, c.cfg.Registry)
	c.writer = wire.NewMessageWriter(raw)

	deadline := time.Now().Add(c.cfg.HandshakeTimeout)

	welcome, err := c.reader.PollBlocking(c.cfg.HandshakePollInterval, deadline)
	if err != nil {
		return &ConnectionError{Reason: "did not receive welcome", Err: err}
	}
	if welcome.Name() != wire.MsgWelcome {
		return &ConnectionError{Reason: fmt.Sprintf("expected _welcome, got %s", welcome.Name())}
	}
	salt := welcome.GetString("salt")

	login, err := wire.NewMessage(c.cfg.Registry, wire.MsgLogin, map[string]any{
		"major":    c.cfg.Major,
		"minor":    c.cfg.Minor,
		"revision": c.cfg.Revision,
		"username": c.cfg.Username,
		"password": wire.Digest(c.cfg.Password, salt),
	})
	if err != nil {
		return &ConnectionError{Reason: "could not build _login", Err: err}
	}
	if err := c.writer.SendBlocking(login, c.cfg.HandshakePollInterval); err != nil {
		return &ConnectionError{Reason: "could not send _login", Err: err}
	}

	reply, err := c.reader.PollBlocking(c.cfg.HandshakePollInterval, deadline)
	if err != nil {
		return &ConnectionError{Reason: "did not receive login response", Err: err}
	}
	switch reply.Name() {
	case wire.MsgLoginAccept:
		return nil
	case wire.MsgLoginReject:
		return &LoginRejectedError{Reason: reply.GetString("reason")}
	default:
		return &ConnectionError{Reason: fmt.Sprintf("unexpected message %s during login", reply.Name())}
	}
}

func (c *Client) runOnce() error {
	c.flushOutgoing()

	for {
		msg, err := c.reader.Poll()
		if err != nil {
			if errors.Is(err, wire.ErrSocketClosed) {
				return &ConnectionError{Reason: "connection closed", Err: err}
			}
			return err
		}
		if msg == nil {
			break
		}
		if msg.Name() == wire.MsgPing {
			pong, _ := wire.NewMessage(c.cfg.Registry, wire.MsgPong, nil)
			c.writer.Enqueue(pong)
			continue
		}
		c.pushIncoming(msg)
	}

	return c.writer.Flush()
}

func (c *Client) flushOutgoing() {
	c.outMu.Lock()
	pending := c.outgoing
	c.outgoing = nil
	c.outMu.Unlock()

	for _, msg := range pending {
		c.writer.Enqueue(msg)
	}
}

func (c *Client) pushIncoming(msg *wire.Message) {
	c.inMu.Lock()
	c.incoming = append(c.incoming, msg)
	c.inMu.Unlock()
}

// Queue enqueues msg for delivery on the next run-loop cycle.
func (c *Client) Queue(msg *wire.Message) {
	c.outMu.Lock()
	c.outgoing = append(c.outgoing, msg)
	c.outMu.Unlock()
}

// Q builds a message named name from the registry with the given field
// values and queues it, as a convenience over Queue+wire.NewMessage.
func (c *Client) Q(name string, fields map[string]any) error {
	msg, err := wire.NewMessage(c.cfg.Registry, name, fields)
	if err != nil {
		return err
	}
	c.Queue(msg)
	return nil
}

// Receive returns the oldest unread incoming message, or nil if none
// is available. It never blocks.
func (c *Client) Receive() *wire.Message {
	c.inMu.Lock()
	defer c.inMu.Unlock()
	if len(c.incoming) == 0 {
		return nil
	}
	msg := c.incoming[0]
	c.incoming = c.incoming[1:]
	return msg
}

// ReceiveBlocking waits until a message arrives or the client halts. If
// expected is non-empty and the received message's name is not among
// them, it returns an *UnexpectedMessageError.
func (c *Client) ReceiveBlocking(expected ...string) (*wire.Message, error) {
	for {
		if msg := c.Receive(); msg != nil {
			if len(expected) > 0 && !containsName(expected, msg.Name()) {
				return nil, &UnexpectedMessageError{Got: msg.Name(), Expected: expected}
			}
			return msg, nil
		}

		select {
		case <-c.halt:
			return nil, &ConnectionError{Reason: "halted while waiting for a message"}
		case <-c.done:
			c.mu.Lock()
			err := c.lastErr
			c.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, &ConnectionError{Reason: "client stopped while waiting for a message"}
		default:
		}

		time.Sleep(c.cfg.ReceiveBlockingPoll)
	}
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Client) setStatus(st status) {
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.lastErr == nil {
		c.lastErr = err
	}
	c.status = statusPostRun
	c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	roomlog.Error("client stopped", "error", err, "name", c.cfg.Name)
}
