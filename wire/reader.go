// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"
)

const lengthPrefixSize = 4

// MessageReader reassembles framed messages from a non-blocking
// net.Conn. It keeps a single mutable buffer and byte counter so that
// partial reads across Poll calls are preserved: a reading-length
// sub-state followed by a reading-body sub-state.
type MessageReader struct {
	conn net.Conn
	reg  *Registry

	readingBody bool
	header      [lengthPrefixSize]byte
	bodyLen     uint32
	body        []byte
	have        int // bytes currently buffered for the active sub-state
}

// NewMessageReader returns a MessageReader that reads frames from conn
// and resolves message ids against reg.
func NewMessageReader(conn net.Conn, reg *Registry) *MessageReader {
	return &MessageReader{conn: conn, reg: reg}
}

// Poll attempts to read one framed message without blocking. It returns
// (nil, nil) if no complete message is yet available. It returns
// ErrSocketClosed if the peer closed the connection -- including mid
// frame: any zero-byte non-error read is treated as a close regardless
// of buffered progress. A malformed frame yields a *ProtocolError.
func (r *MessageReader) Poll() (*Message, error) {
	if !r.readingBody {
		n, err := r.recvNonBlocking(r.header[r.have:lengthPrefixSize])
		r.have += n
		if err != nil {
			return nil, err
		}
		if r.have < lengthPrefixSize {
			return nil, nil
		}
		r.bodyLen = binary.LittleEndian.Uint32(r.header[:])
		r.body = make([]byte, r.bodyLen)
		r.have = 0
		r.readingBody = true
	}

	n, err := r.recvNonBlocking(r.body[r.have:])
	r.have += n
	if err != nil {
		return nil, err
	}
	if uint32(r.have) < r.bodyLen {
		return nil, nil
	}

	msg, err := Unpack(r.reg, r.body)
	r.reset()
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MessageReader) reset() {
	r.readingBody = false
	r.have = 0
	r.bodyLen = 0
	r.body = nil
}

// recvNonBlocking issues a single non-blocking Read for the missing
// bytes of dst. The read deadline is set a moment ahead (a deadline
// already in the past makes net.Conn fail the Read without reading
// anything), so the call returns promptly with whatever is available.
// A deadline-exceeded read reports would-block via (n, nil); the caller
// is expected to retry on its own schedule.
func (r *MessageReader) recvNonBlocking(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if err := r.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return 0, ErrSocketClosed
		}
		return 0, err
	}
	n, err := r.conn.Read(dst)
	if err == nil {
		if n == 0 {
			return 0, ErrSocketClosed
		}
		return n, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		return n, ErrSocketClosed
	}
	return n, err
}

// PollBlocking loops on Poll, sleeping pollInterval between attempts,
// until a message arrives or (if deadline is non-zero) the deadline
// passes. It is used only during the handshake.
func (r *MessageReader) PollBlocking(pollInterval time.Duration, deadline time.Time) (*Message, error) {
	for {
		msg, err := r.Poll()
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, newProtocolError("timed out waiting for message")
		}
		time.Sleep(pollInterval)
	}
}
