// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"errors"
	"net"
	"time"
)

// MessageWriter buffers and emits framed messages onto a non-blocking
// net.Conn. Enqueue appends a full frame to the internal buffer;
// Flush drains as much of that buffer as the transport will currently
// accept, slicing the accepted prefix off a single contiguous byte
// buffer that may hold several frames.
type MessageWriter struct {
	conn net.Conn
	buf  []byte
}

// NewMessageWriter returns a MessageWriter that writes frames to conn.
func NewMessageWriter(conn net.Conn) *MessageWriter {
	return &MessageWriter{conn: conn}
}

// Enqueue appends [length || body] for msg to the internal write
// buffer. It does not touch the network.
func (w *MessageWriter) Enqueue(msg *Message) {
	body := msg.Pack()
	var header [lengthPrefixSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(body)))
	w.buf = append(w.buf, header[:]...)
	w.buf = append(w.buf, body...)
}

// Flush repeatedly issues non-blocking sends on the buffer prefix,
// advancing by however many bytes were accepted, until either the
// buffer empties or the transport signals it cannot accept more right
// now. Each send waits at most a millisecond (a deadline already in the
// past makes net.Conn fail the Write without writing anything).
func (w *MessageWriter) Flush() error {
	for len(w.buf) > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return err
		}
		n, err := w.conn.Write(w.buf)
		if n > 0 {
			w.buf = w.buf[n:]
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil
			}
			return err
		}
	}
	return nil
}

// Pending reports whether Flush still has buffered, unsent bytes.
func (w *MessageWriter) Pending() bool { return len(w.buf) > 0 }

// SendBlocking packs msg and retries Flush with pollInterval sleeps
// until the whole frame has departed. It is used only during the
// handshake.
func (w *MessageWriter) SendBlocking(msg *Message, pollInterval time.Duration) error {
	w.Enqueue(msg)
	for w.Pending() {
		if err := w.Flush(); err != nil {
			return err
		}
		if w.Pending() {
			time.Sleep(pollInterval)
		}
	}
	return nil
}
