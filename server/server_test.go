// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server_test

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevis-go/wevis/client"
	"github.com/wevis-go/wevis/server"
	"github.com/wevis-go/wevis/wire"
)

type recordingRoom struct {
	server.NoopRoom

	mu      sync.Mutex
	entered []string
	handled []string
}

func newRecordingRoom() *recordingRoom {
	return &recordingRoom{}
}

func (r *recordingRoom) UserEnter(conn *server.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, _ := conn.User().(string)
	r.entered = append(r.entered, name)
}

func (r *recordingRoom) Handle(conn *server.Connection, msg *wire.Message) {
	r.mu.Lock()
	r.handled = append(r.handled, msg.Name())
	r.mu.Unlock()
}

func startTestServer(t *testing.T, room server.Room, opts ...server.Option) (*server.Server, int) {
	t.Helper()
	allOpts := append([]server.Option{server.WithHost("127.0.0.1"), server.WithPort(0)}, opts...)
	s := server.New(allOpts...)
	require.NoError(t, s.Start(room))
	_, portStr, err := net.SplitHostPort(s.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Stop(nil)
		_ = s.Wait()
	})
	return s, port
}

func acceptAnyUser(user string) server.UserValidator {
	return func(username, digest, salt string) (any, bool) {
		if username != user {
			return nil, false
		}
		return username, digest == wire.Digest("pw", salt)
	}
}

func TestHappyHandshake(t *testing.T) {
	reg := wire.NewRegistry()
	require.NoError(t, wire.NewReservedDefinitionList().InstantiateAll(reg))

	room := newRecordingRoom()
	_, port := startTestServer(t, room,
		server.WithRegistry(reg),
		server.WithUserValidator(acceptAnyUser("michael")),
	)

	c := client.New(
		client.WithHost("127.0.0.1"), client.WithPort(port),
		client.WithRegistry(reg),
		client.WithCredentials("michael", "pw"),
		client.WithVersion(1, 0, 0),
	)
	require.NoError(t, c.StartBlocking())
	defer c.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		room.mu.Lock()
		n := len(room.entered)
		room.mu.Unlock()
		if n == 1 {
			break
		}
		require.False(t, time.Now().After(deadline), "UserEnter was never called")
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, []string{"michael"}, room.entered)
}

func TestBadVersionIsRejected(t *testing.T) {
	reg := wire.NewRegistry()
	require.NoError(t, wire.NewReservedDefinitionList().InstantiateAll(reg))

	_, port := startTestServer(t, newRecordingRoom(),
		server.WithRegistry(reg),
		server.WithUserValidator(acceptAnyUser("michael")),
		server.WithVersionValidator(func(major, _, _ int32) bool { return major >= 1 }),
	)

	c := client.New(
		client.WithHost("127.0.0.1"), client.WithPort(port),
		client.WithRegistry(reg),
		client.WithCredentials("michael", "pw"),
		client.WithVersion(0, 0, 0),
	)
	err := c.StartBlocking()
	require.Error(t, err)
	var rej *client.LoginRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Client requires update.", rej.Reason)
}

func TestMaxConnectionsPerUser(t *testing.T) {
	reg := wire.NewRegistry()
	require.NoError(t, wire.NewReservedDefinitionList().InstantiateAll(reg))

	_, port := startTestServer(t, newRecordingRoom(),
		server.WithRegistry(reg),
		server.WithUserValidator(acceptAnyUser("michael")),
		server.WithMaxConnectionsPerUser(1),
	)

	first := client.New(
		client.WithHost("127.0.0.1"), client.WithPort(port),
		client.WithRegistry(reg),
		client.WithCredentials("michael", "pw"),
		client.WithVersion(1, 0, 0),
	)
	require.NoError(t, first.StartBlocking())
	defer first.Stop()

	second := client.New(
		client.WithHost("127.0.0.1"), client.WithPort(port),
		client.WithRegistry(reg),
		client.WithCredentials("michael", "pw"),
		client.WithVersion(1, 0, 0),
	)
	err := second.StartBlocking()
	require.Error(t, err)
	var rej *client.LoginRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Maximum number of connections per user reached.", rej.Reason)
}

// TestPingTimeoutClosesConnection drives the wire protocol directly
// (bypassing the client package, whose run loop auto-answers _ping)
// so a _ping can be deliberately left unanswered.
func TestPingTimeoutClosesConnection(t *testing.T) {
	reg := wire.NewRegistry()
	require.NoError(t, wire.NewReservedDefinitionList().InstantiateAll(reg))

	_, port := startTestServer(t, newRecordingRoom(),
		server.WithRegistry(reg),
		server.WithUserValidator(acceptAnyUser("michael")),
		server.WithPingInterval(30*time.Millisecond),
		server.WithPingTimeout(30*time.Millisecond),
	)

	raw, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer raw.Close()

	reader := wire.NewMessageReader(raw, reg)
	writer := wire.NewMessageWriter(raw)

	welcome, err := reader.PollBlocking(5*time.Millisecond, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, wire.MsgWelcome, welcome.Name())
	salt := welcome.GetString("salt")

	login, err := wire.NewMessage(reg, wire.MsgLogin, map[string]any{
		"major": int32(1), "minor": int32(0), "revision": int32(0),
		"username": "michael", "password": wire.Digest("pw", salt),
	})
	require.NoError(t, err)
	require.NoError(t, writer.SendBlocking(login, 5*time.Millisecond))

	accept, err := reader.PollBlocking(5*time.Millisecond, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, wire.MsgLoginAccept, accept.Name())

	// Deliberately never answer _ping; the server should close after
	// PingInterval + PingTimeout of silence.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := reader.Poll()
		if err != nil {
			assert.ErrorIs(t, err, wire.ErrSocketClosed)
			return
		}
		require.False(t, time.Now().After(deadline), "server never closed after a ping timeout")
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRoundTripFloatsScenario(t *testing.T) {
	reg := wire.NewRegistry()
	l := wire.NewReservedDefinitionList()
	require.NoError(t, l.Add("PleaseMayIHaveSomeFloats", map[string]wire.Kind{
		"doubles": wire.Int32,
		"singles": wire.Int32,
	}))
	require.NoError(t, l.Add("SomeFloats", map[string]wire.Kind{
		"doubles": wire.Float64Vector,
		"singles": wire.Float32Vector,
	}))
	require.NoError(t, l.InstantiateAll(reg))

	room := &repeatingFloatsRoom{reg: reg}
	_, port := startTestServer(t, room,
		server.WithRegistry(reg),
		server.WithUserValidator(acceptAnyUser("michael")),
	)

	c := client.New(
		client.WithHost("127.0.0.1"), client.WithPort(port),
		client.WithRegistry(reg),
		client.WithCredentials("michael", "pw"),
		client.WithVersion(1, 0, 0),
	)
	require.NoError(t, c.StartBlocking())
	defer c.Stop()

	require.NoError(t, c.Q("PleaseMayIHaveSomeFloats", map[string]any{
		"doubles": int32(3),
		"singles": int32(4),
	}))

	reply, err := c.ReceiveBlocking("SomeFloats")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.1, 0.2}, reply.GetFloat64Vector("doubles"))
	assert.Equal(t, []float32{0.0, 0.1, 0.2, 0.3}, reply.GetFloat32Vector("singles"))
}

type repeatingFloatsRoom struct {
	server.NoopRoom
	reg *wire.Registry
}

func (r *repeatingFloatsRoom) Handle(conn *server.Connection, msg *wire.Message) {
	if msg.Name() != "PleaseMayIHaveSomeFloats" {
		return
	}
	reply, err := wire.NewMessage(r.reg, "SomeFloats", map[string]any{
		"doubles": []float64{0.0, 0.1, 0.2},
		"singles": []float32{0.0, 0.1, 0.2, 0.3},
	})
	if err != nil {
		return
	}
	conn.Send(reply)
}
