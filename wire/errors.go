// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
)

// ErrSocketClosed reports that the peer closed or half-closed the
// connection while a frame was being read.
var ErrSocketClosed = errors.New("wire: socket closed")

// ProtocolError reports a malformed frame, an unknown message id, a
// truncated payload, or a message unexpected for the current protocol
// state. The Reason is a short description.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "wire: protocol error: " + e.Reason }

func newProtocolError(reason string) error { return &ProtocolError{Reason: reason} }

// ConfigError reports a mistake made while building the message
// registry or a message: an invalid name, a duplicate definition, an
// unknown argument kind, or a value that cannot be coerced to its
// argument's kind.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "wire: config error: " + e.Reason }

func newConfigErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
