// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

// ConnectionMetrics is the optional observability surface a Server
// reports through. A nil ConnectionMetrics (the default) must make
// every recording call below a no-op; server/internal/prometheusmetrics
// provides the concrete Prometheus-backed implementation.
type ConnectionMetrics interface {
	ConnectionsOpened()
	ConnectionsClosed()
	LoginRejected(reason string)
	MessagesRouted()
}

func connectionsOpened(m ConnectionMetrics) {
	if m != nil {
		m.ConnectionsOpened()
	}
}

func connectionsClosed(m ConnectionMetrics) {
	if m != nil {
		m.ConnectionsClosed()
	}
}

func loginRejected(m ConnectionMetrics, reason string) {
	if m != nil {
		m.LoginRejected(reason)
	}
}

func messagesRouted(m ConnectionMetrics) {
	if m != nil {
		m.MessagesRouted()
	}
}
