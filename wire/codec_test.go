// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire_test

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wevis-go/wevis/wire"
)

func newTestRegistry(t *testing.T) *wire.Registry {
	t.Helper()
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
	return reg
}

func TestPackUnpack_RoundTripsScalarAndVectorKinds(t *testing.T) {
	reg := newTestRegistry(t)

	def, ok := reg.Lookup("SomeFloats")
	require.True(t, ok)

	msg, err := wire.NewMessageFromDefinition(def, map[string]any{
		"doubles": []float64{0.0, 0.1, 0.2},
		"singles": []float32{0.0, 0.1, 0.2, 0.3},
	})
	require.NoError(t, err)

	body := msg.Pack()
	out, err := wire.Unpack(reg, body)
	require.NoError(t, err)

	assert.Equal(t, "SomeFloats", out.Name())
	assert.Equal(t, []float64{0.0, 0.1, 0.2}, out.GetFloat64Vector("doubles"))
	assert.Equal(t, []float32{0.0, 0.1, 0.2, 0.3}, out.GetFloat32Vector("singles"))
}

func TestPackUnpack_StringAndBytes(t *testing.T) {
	reg := wire.NewRegistry()
	def, err := reg.Register("greet", map[string]wire.Kind{
		"name":    wire.Utf8String,
		"payload": wire.Bytes,
		"count":   wire.Int32,
	})
	require.NoError(t, err)

	msg, err := wire.NewMessageFromDefinition(def, map[string]any{
		"name":    "michael",
		"payload": []byte{1, 2, 3, 4},
		"count":   int32(42),
	})
	require.NoError(t, err)

	out, err := wire.Unpack(reg, msg.Pack())
	require.NoError(t, err)

	assert.Equal(t, "michael", out.GetString("name"))
	assert.Equal(t, []byte{1, 2, 3, 4}, out.GetBytes("payload"))
	assert.Equal(t, int32(42), out.GetInt32("count"))
}

func TestUnpack_UnknownID(t *testing.T) {
	reg := wire.NewRegistry()
	_, err := reg.Register("only", nil)
	require.NoError(t, err)

	body := []byte{99, 0, 0, 0}
	_, err = wire.Unpack(reg, body)
	require.Error(t, err)
	var protoErr *wire.ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestUnpack_TruncatedBody(t *testing.T) {
	reg := wire.NewRegistry()
	def, err := reg.Register("withfixed", map[string]wire.Kind{"x": wire.Int32})
	require.NoError(t, err)

	msg, err := wire.NewMessageFromDefinition(def, map[string]any{"x": int32(7)})
	require.NoError(t, err)
	body := msg.Pack()

	_, err = wire.Unpack(reg, body[:len(body)-2])
	require.Error(t, err)
}

func TestMessage_SetCoercesToDeclaredKind(t *testing.T) {
	reg := wire.NewRegistry()
	def, err := reg.Register("coerce", map[string]wire.Kind{
		"n": wire.Int32,
		"f": wire.Float64,
	})
	require.NoError(t, err)

	msg, err := wire.NewMessageFromDefinition(def, nil)
	require.NoError(t, err)

	require.NoError(t, msg.Set("n", 7))
	require.NoError(t, msg.Set("f", float32(1.5)))

	assert.Equal(t, int32(7), msg.GetInt32("n"))
	assert.Equal(t, 1.5, msg.GetFloat64("f"))
}

func TestDigest_MatchesSpecFormula(t *testing.T) {
	// sha512("pw" + "ABC") hex-encoded, computed independently.
	want := sha512.Sum512([]byte("pw" + "ABC"))
	got := wire.Digest("pw", "ABC")
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Len(t, got, 128)
	assert.Equal(t, got, wire.Digest("pw", "ABC"))
	assert.NotEqual(t, got, wire.Digest("pw", "XYZ"))
}
