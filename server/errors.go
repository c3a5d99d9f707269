// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

// FatalError wraps a fatal Accept error from the Listener worker. It is
// stored on the Server, which then stops, and is returned by Wait().
// The Manager and Room workers never produce one: a panic inside a
// connection tick or a Room callback is recovered and logged, and a
// panic elsewhere in their loops is not recovered.
type FatalError struct {
	Worker string
	Err    error
}

func (e *FatalError) Error() string {
	return "server: fatal error in " + e.Worker + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }
