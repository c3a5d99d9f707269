// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package client

// LoginRejectedError reports that the server responded _loginReject
// during the handshake. Reason is the server-supplied text.
type LoginRejectedError struct {
	Reason string
}

func (e *LoginRejectedError) Error() string { return "client: login rejected: " + e.Reason }

// UnexpectedMessageError reports that ReceiveBlocking got a message
// whose name was not in its expected set.
type UnexpectedMessageError struct {
	Got      string
	Expected []string
}

func (e *UnexpectedMessageError) Error() string {
	s := "client: unexpected message " + e.Got + ", expected one of ["
	for i, n := range e.Expected {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s + "]"
}

// ConnectionError wraps a failure during connect/handshake or a run
// loop failure surfaced through Wait.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return "client: " + e.Reason + ": " + e.Err.Error()
	}
	return "client: " + e.Reason
}

func (e *ConnectionError) Unwrap() error { return e.Err }
