// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"net"
	"time"

	"github.com/wevis-go/wevis/roomlog"
)

// listener accepts new TCP sockets and publishes them to the Manager's
// incoming queue. Any error from Accept that is not plainly transient
// is treated as fatal to the whole server.
type listener struct {
	ln      net.Listener
	manager *Manager
	retry   time.Duration

	halt chan struct{}
	done chan struct{}

	onFatal func(error)
}

func newListener(ln net.Listener, manager *Manager, retry time.Duration, onFatal func(error)) *listener {
	return &listener{
		ln:      ln,
		manager: manager,
		retry:   retry,
		halt:    make(chan struct{}),
		done:    make(chan struct{}),
		onFatal: onFatal,
	}
}

func (l *listener) run() {
	defer close(l.done)
	log := roomlog.With("worker", "listener")
	for {
		select {
		case <-l.halt:
			return
		default:
		}

		conn, err := l.ln.Accept()
		if err != nil {
			if l.isHalting() {
				return
			}
			if isTransientAcceptError(err) {
				time.Sleep(l.retry)
				continue
			}
			log.Error("accept failed", "error", err)
			l.onFatal(err)
			return
		}

		l.manager.admit(conn)
	}
}

func (l *listener) isHalting() bool {
	select {
	case <-l.halt:
		return true
	default:
		return false
	}
}

func isTransientAcceptError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func (l *listener) stop() {
	select {
	case <-l.halt:
	default:
		close(l.halt)
	}
	_ = l.ln.Close()
}

func (l *listener) wait() { <-l.done }
