// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

// Reserved protocol message names. Both peers of a session must
// register these six, in this order, before any application-defined
// message.
const (
	MsgPing        = "_ping"
	MsgPong        = "_pong"
	MsgWelcome     = "_welcome"
	MsgLogin       = "_login"
	MsgLoginReject = "_loginReject"
	MsgLoginAccept = "_loginAccept"
)

// DefaultPort is the protocol's default TCP port.
const DefaultPort = 12121

// NewReservedDefinitionList returns a DefinitionList pre-loaded with the
// six reserved messages, in the fixed order required for interop.
// Callers append their own application messages to it before calling
// InstantiateAll, so that the reserved ids (1-6) are always assigned
// first.
func NewReservedDefinitionList() *DefinitionList {
	l := NewDefinitionList()
	// Errors are impossible here: the reserved names and arguments are
	// fixed and known-valid, so any failure would indicate a bug in this
	// package, not caller misuse.
	mustAdd(l, MsgPing, nil)
	mustAdd(l, MsgPong, nil)
	mustAdd(l, MsgWelcome, map[string]Kind{"salt": Utf8String})
	mustAdd(l, MsgLogin, map[string]Kind{
		"major":    Int32,
		"minor":    Int32,
		"password": Utf8String,
		"revision": Int32,
		"username": Utf8String,
	})
	mustAdd(l, MsgLoginReject, map[string]Kind{"reason": Utf8String})
	mustAdd(l, MsgLoginAccept, nil)
	return l
}

func mustAdd(l *DefinitionList, name string, args map[string]Kind) {
	if err := l.Add(name, args); err != nil {
		panic("wire: reserved definition " + name + ": " + err.Error())
	}
}
