// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"os"
	"time"

	"github.com/wevis-go/wevis/wire"
)

// VersionValidator decides whether a client's announced protocol
// version is acceptable. It is consulted first during login, before any
// credential or connection-count check.
type VersionValidator func(major, minor, revision int32) bool

// UserValidator checks a login's username/digest/salt triple and, on
// success, returns the opaque user value that will be adopted by the
// Connection and handed to the Room's UserEnter/UserExit hooks.
type UserValidator func(username, passwordDigest, salt string) (user any, ok bool)

// AcceptAllVersions is a VersionValidator that never rejects a client.
// It exists for examples and tests that don't care about negotiation.
func AcceptAllVersions(int32, int32, int32) bool { return true }

// Config collects every knob a Server needs. Build one with NewConfig
// and a chain of Option values.
type Config struct {
	Host string
	Port int
	Name string

	Registry *wire.Registry

	VersionValidator VersionValidator
	UserValidator    UserValidator

	MaxConnectionsPerUser int

	PingInterval time.Duration
	PingTimeout  time.Duration
	LoginTimeout time.Duration

	ManagerCycleSleep     time.Duration
	ListenerRetryDelay    time.Duration
	ServerParkSleep       time.Duration
	ShutdownPollInterval  time.Duration
	HandshakePollInterval time.Duration

	Metrics ConnectionMetrics
}

// Option configures a Config. Functions named WithXxx each set one
// field; NewConfig applies sane defaults first so callers only specify
// what they mean to change.
type Option func(*Config)

func defaultConfig() Config {
	host, _ := os.Hostname()
	return Config{
		Host:                  host,
		Port:                  wire.DefaultPort,
		Name:                  "wevis-server",
		Registry:              wire.DefaultRegistry,
		VersionValidator:      AcceptAllVersions,
		MaxConnectionsPerUser: 1,
		PingInterval:          10 * time.Second,
		PingTimeout:           5 * time.Second,
		LoginTimeout:          5 * time.Second,
		ManagerCycleSleep:     time.Microsecond,
		ListenerRetryDelay:    200 * time.Millisecond,
		ServerParkSleep:       500 * time.Millisecond,
		ShutdownPollInterval:  time.Second,
		HandshakePollInterval: 100 * time.Millisecond,
	}
}

// NewConfig returns a Config with documented defaults, customized by opts.
func NewConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithHost sets the bind address.
func WithHost(host string) Option { return func(c *Config) { c.Host = host } }

// WithPort sets the bind port.
func WithPort(port int) Option { return func(c *Config) { c.Port = port } }

// WithName sets the component name used in log fields.
func WithName(name string) Option { return func(c *Config) { c.Name = name } }

// WithRegistry overrides the message-definition registry, e.g. to use a
// process-local one in tests instead of wire.DefaultRegistry.
func WithRegistry(reg *wire.Registry) Option { return func(c *Config) { c.Registry = reg } }

// WithVersionValidator sets the login-time version gate.
func WithVersionValidator(v VersionValidator) Option {
	return func(c *Config) { c.VersionValidator = v }
}

// WithUserValidator sets the login-time credential gate.
func WithUserValidator(v UserValidator) Option { return func(c *Config) { c.UserValidator = v } }

// WithMaxConnectionsPerUser sets the per-user active-connection ceiling.
func WithMaxConnectionsPerUser(n int) Option {
	return func(c *Config) { c.MaxConnectionsPerUser = n }
}

// WithPingInterval sets how long a NORMAL connection may stay silent
// before the server sends an unsolicited _ping.
func WithPingInterval(d time.Duration) Option { return func(c *Config) { c.PingInterval = d } }

// WithPingTimeout sets how long the server waits for _pong after _ping
// before closing the connection.
func WithPingTimeout(d time.Duration) Option { return func(c *Config) { c.PingTimeout = d } }

// WithLoginTimeout sets how long a connection may stay in
// AWAITING_LOGIN before being closed.
func WithLoginTimeout(d time.Duration) Option { return func(c *Config) { c.LoginTimeout = d } }

// WithManagerCycleSleep overrides the Manager's per-cycle sleep.
func WithManagerCycleSleep(d time.Duration) Option {
	return func(c *Config) { c.ManagerCycleSleep = d }
}

// WithListenerRetryDelay overrides the Listener's accept-retry sleep.
func WithListenerRetryDelay(d time.Duration) Option {
	return func(c *Config) { c.ListenerRetryDelay = d }
}

// WithMetrics wires a ConnectionMetrics implementation, e.g. one built
// by server/internal/prometheusmetrics. A nil value (the default)
// disables all metrics calls at zero cost.
func WithMetrics(m ConnectionMetrics) Option { return func(c *Config) { c.Metrics = m } }
