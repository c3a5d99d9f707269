// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"log/slog"
	"sync"

	"github.com/wevis-go/wevis/roomlog"
	"github.com/wevis-go/wevis/wire"
)

// Room is the single application-level message handler. Implementations
// are user code; the Server drives them from its own worker goroutine,
// one (connection, message) pair at a time, in the order messages
// arrived on each connection.
//
// Handle is called for every application message -- anything besides
// the six reserved messages, which the Connection state machine
// consumes itself. UserEnter and UserExit are optional hooks called by
// the Manager when a user logs in and when any connection with a
// logged-in user is removed; embed NoopRoom to get no-op defaults.
type Room interface {
	Handle(conn *Connection, msg *wire.Message)
	UserEnter(conn *Connection)
	UserExit(user any)
}

// NoopRoom supplies no-op UserEnter/UserExit hooks so a Room
// implementation only has to provide Handle.
type NoopRoom struct{}

func (NoopRoom) UserEnter(*Connection) {}
func (NoopRoom) UserExit(any)          {}

type roomMessage struct {
	conn *Connection
	msg  *wire.Message
}

// roomWorker runs a Room's Handle callback against a FIFO fed by every
// live Connection. Handler panics are caught, logged, and do not kill
// the worker or the connection that produced the message.
type roomWorker struct {
	room Room

	mu    sync.Mutex
	queue []roomMessage
	halt  chan struct{}
	done  chan struct{}
	sleep func()
}

func newRoomWorker(room Room, cycleSleep func()) *roomWorker {
	return &roomWorker{
		room:  room,
		halt:  make(chan struct{}),
		done:  make(chan struct{}),
		sleep: cycleSleep,
	}
}

// enqueue appends a (connection, message) pair. Safe for concurrent use
// by every Connection's tick.
func (w *roomWorker) enqueue(conn *Connection, msg *wire.Message) {
	w.mu.Lock()
	w.queue = append(w.queue, roomMessage{conn: conn, msg: msg})
	w.mu.Unlock()
}

func (w *roomWorker) drain() []roomMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	out := w.queue
	w.queue = nil
	return out
}

// run is the Room worker's loop: drain, dispatch, sleep, repeat until
// halted. Started by the Server after the Manager and Listener.
func (w *roomWorker) run() {
	defer close(w.done)
	log := roomlog.With("worker", "room")
	for {
		select {
		case <-w.halt:
			return
		default:
		}

		for _, m := range w.drain() {
			w.dispatchOne(log, m)
		}

		w.sleep()
	}
}

func (w *roomWorker) dispatchOne(log *slog.Logger, m roomMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("room handler panicked", "panic", r, "message", m.msg.Name())
		}
	}()
	w.room.Handle(m.conn, m.msg)
}

// notifyEnter calls the Room's UserEnter hook. Invoked synchronously by
// the Manager right after a login is accepted, not through the message
// queue -- callers should keep it fast.
func (w *roomWorker) notifyEnter(conn *Connection) {
	defer func() {
		if r := recover(); r != nil {
			roomlog.Error("UserEnter panicked", "panic", r, "remote", conn.RemoteAddr())
		}
	}()
	w.room.UserEnter(conn)
}

// notifyExit calls the Room's UserExit hook. Invoked synchronously by
// the Manager when a connection with an adopted user is removed.
func (w *roomWorker) notifyExit(user any) {
	defer func() {
		if r := recover(); r != nil {
			roomlog.Error("UserExit panicked", "panic", r)
		}
	}()
	w.room.UserExit(user)
}

func (w *roomWorker) stop() {
	select {
	case <-w.halt:
	default:
		close(w.halt)
	}
}

func (w *roomWorker) wait() { <-w.done }
