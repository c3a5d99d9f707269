// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package prometheusmetrics is the Prometheus-backed implementation of
// server.ConnectionMetrics, grounded on the nil-receiver-safe metrics
// pattern used throughout the example pack's storage-layer metrics.
package prometheusmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus implementation of server.ConnectionMetrics.
// A nil *Metrics is valid and every method on it is a no-op, so callers
// can pass New's result straight into server.WithMetrics without an
// extra "is this enabled" branch.
type Metrics struct {
	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	loginRejected     *prometheus.CounterVec
	messagesRouted    prometheus.Counter
}

// New registers the connection-level counters against reg and returns
// the resulting Metrics. Pass the result to server.WithMetrics.
func New(reg *prometheus.Registry) *Metrics {
	return &Metrics{
		connectionsOpened: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wevis_connections_opened_total",
			Help: "Total number of TCP connections accepted.",
		}),
		connectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wevis_connections_closed_total",
			Help: "Total number of connections removed from the Manager.",
		}),
		loginRejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wevis_login_rejected_total",
			Help: "Total number of rejected logins, by reason.",
		}, []string{"reason"}),
		messagesRouted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wevis_messages_routed_total",
			Help: "Total number of application messages handed to the Room.",
		}),
	}
}

func (m *Metrics) ConnectionsOpened() {
	if m == nil {
		return
	}
	m.connectionsOpened.Inc()
}

func (m *Metrics) ConnectionsClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *Metrics) LoginRejected(reason string) {
	if m == nil {
		return
	}
	m.loginRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) MessagesRouted() {
	if m == nil {
		return
	}
	m.messagesRouted.Inc()
}
