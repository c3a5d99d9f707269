// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"crypto/sha512"
	"encoding/hex"
)

// Digest computes hex(SHA-512(utf8(password) || utf8(salt))), a
// one-way salted digest so a plaintext password is never sent over the
// wire. Both the client (when building a _login message) and the
// server (inside its credential-validator callback) must compute this
// identically -- concatenation is raw byte concatenation, not a
// delimited join.
//
// SHA-512 is used for interoperability with existing deployments of
// this protocol, not for any security property beyond not transmitting
// the password in the clear; no third-party hashing package improves
// on a three-line use of the standard library's crypto/sha512 here.
func Digest(password, salt string) string {
	h := sha512.New()
	h.Write([]byte(password))
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}
