// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevis-go/wevis/wire"
)

func TestMessageReader_FragmentedFrame_OneByteAtATime(t *testing.T) {
	reg := wire.NewRegistry()
	def, err := reg.Register("greet", map[string]wire.Kind{
		"name": wire.Utf8String,
		"n":    wire.Int32,
	})
	require.NoError(t, err)

	msg, err := wire.NewMessageFromDefinition(def, map[string]any{
		"name": "hello, fragmented world",
		"n":    int32(500),
	})
	require.NoError(t, err)
	body := msg.Pack()

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		var header [4]byte
		putLE(header[:], uint32(len(body)))
		frame := append(header[:], body...)
		for _, b := range frame {
			clientConn.SetWriteDeadline(time.Now().Add(time.Second))
			clientConn.Write([]byte{b})
		}
	}()

	r := wire.NewMessageReader(serverConn, reg)

	var got *wire.Message
	deadline := time.Now().Add(2 * time.Second)
	for got == nil {
		m, err := r.Poll()
		require.NoError(t, err)
		if m != nil {
			got = m
			break
		}
		require.False(t, time.Now().After(deadline), "timed out waiting for fragmented message")
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, "greet", got.Name())
	assert.Equal(t, "hello, fragmented world", got.GetString("name"))
	assert.Equal(t, int32(500), got.GetInt32("n"))
}

func TestMessageReader_SocketClosedMidFrame(t *testing.T) {
	reg := wire.NewRegistry()
	_, err := reg.Register("x", map[string]wire.Kind{"n": wire.Int32})
	require.NoError(t, err)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()

	go func() {
		// Write a length prefix claiming a body, then close before sending it.
		var header [4]byte
		putLE(header[:], 8)
		clientConn.Write(header[:])
		clientConn.Write([]byte{1, 2, 3})
		clientConn.Close()
	}()

	r := wire.NewMessageReader(serverConn, reg)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := r.Poll()
		if err != nil {
			assert.ErrorIs(t, err, wire.ErrSocketClosed)
			return
		}
		require.False(t, time.Now().After(deadline), "expected ErrSocketClosed before deadline")
		time.Sleep(time.Millisecond)
	}
}

func putLE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
