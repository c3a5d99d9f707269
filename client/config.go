// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package client

import (
	"os"
	"time"

	"github.com/wevis-go/wevis/wire"
)

// Config collects the knobs a Client needs to connect and log in.
type Config struct {
	Host string
	Port int
	Name string

	Registry *wire.Registry

	Username string
	Password string

	Major    int32
	Minor    int32
	Revision int32

	DialTimeout           time.Duration
	HandshakePollInterval time.Duration
	HandshakeTimeout      time.Duration
	RunLoopSleep          time.Duration
	ReceiveBlockingPoll   time.Duration
}

// Option configures a Config, using the same functional-option idiom
// as the server package.
type Option func(*Config)

func defaultConfig() Config {
	host, _ := os.Hostname()
	return Config{
		Host:                  host,
		Port:                  wire.DefaultPort,
		Name:                  "wevis-client",
		Registry:              wire.DefaultRegistry,
		DialTimeout:           5 * time.Second,
		HandshakePollInterval: 100 * time.Millisecond,
		HandshakeTimeout:      10 * time.Second,
		RunLoopSleep:          10 * time.Millisecond,
		ReceiveBlockingPoll:   10 * time.Millisecond,
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

func WithHost(host string) Option { return func(c *Config) { c.Host = host } }
func WithPort(port int) Option    { return func(c *Config) { c.Port = port } }
func WithName(name string) Option { return func(c *Config) { c.Name = name } }

func WithRegistry(reg *wire.Registry) Option { return func(c *Config) { c.Registry = reg } }

// WithCredentials sets the plaintext username/password sent (as a
// salted digest) during login.
func WithCredentials(username, password string) Option {
	return func(c *Config) { c.Username = username; c.Password = password }
}

// WithVersion sets the protocol version tuple announced at login.
func WithVersion(major, minor, revision int32) Option {
	return func(c *Config) { c.Major = major; c.Minor = minor; c.Revision = revision }
}

func WithRunLoopSleep(d time.Duration) Option { return func(c *Config) { c.RunLoopSleep = d } }

func WithReceiveBlockingPoll(d time.Duration) Option {
	return func(c *Config) { c.ReceiveBlockingPoll = d }
}
