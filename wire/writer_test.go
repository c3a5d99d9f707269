// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevis-go/wevis/wire"
)

// TestMessageWriter_FlushDrainsAcrossMultipleCalls exercises the same
// fragmentation invariant from the write side: a frame enqueued once is
// delivered correctly even when the transport only accepts it in
// pieces across repeated Flush calls.
func TestMessageWriter_FlushDrainsAcrossMultipleCalls(t *testing.T) {
	reg := wire.NewRegistry()
	def, err := reg.Register("notify", map[string]wire.Kind{
		"text": wire.Utf8String,
	})
	require.NoError(t, err)

	msg, err := wire.NewMessageFromDefinition(def, map[string]any{
		"text": "a message long enough to span several short writes on the wire",
	})
	require.NoError(t, err)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	w := wire.NewMessageWriter(clientConn)
	w.Enqueue(msg)

	received := make(chan *wire.Message, 1)
	readErrs := make(chan error, 1)
	go func() {
		r := wire.NewMessageReader(serverConn, reg)
		deadline := time.Now().Add(2 * time.Second)
		for {
			m, err := r.Poll()
			if err != nil {
				readErrs <- err
				return
			}
			if m != nil {
				received <- m
				return
			}
			if time.Now().After(deadline) {
				readErrs <- io.ErrUnexpectedEOF
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	for w.Pending() {
		require.NoError(t, w.Flush())
		if w.Pending() {
			time.Sleep(time.Millisecond)
		}
	}

	select {
	case m := <-received:
		assert.Equal(t, "notify", m.Name())
		assert.Equal(t, "a message long enough to span several short writes on the wire", m.GetString("text"))
	case err := <-readErrs:
		t.Fatalf("reader failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reader")
	}
}

func TestMessageWriter_SendBlockingDeliversWholeFrame(t *testing.T) {
	reg := wire.NewRegistry()
	def, err := reg.Register("ack", nil)
	require.NoError(t, err)
	msg, err := wire.NewMessageFromDefinition(def, nil)
	require.NoError(t, err)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	done := make(chan error, 1)
	go func() {
		w := wire.NewMessageWriter(clientConn)
		done <- w.SendBlocking(msg, time.Millisecond)
	}()

	r := wire.NewMessageReader(serverConn, reg)
	var got *wire.Message
	deadline := time.Now().Add(2 * time.Second)
	for got == nil {
		m, err := r.Poll()
		require.NoError(t, err)
		got = m
		if got == nil {
			require.False(t, time.Now().After(deadline))
			time.Sleep(time.Millisecond)
		}
	}
	require.NoError(t, <-done)
	assert.Equal(t, "ack", got.Name())
}
