// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pack encodes m into its wire body: a 4-byte little-endian message id,
// the fixed part (in argument-name sorted order), then the variable
// part. Packing is deterministic -- two senders with identical
// definitions and identical values produce identical bytes.
func (m *Message) Pack() []byte {
	def := m.def

	// First pass: compute variable-part payload sizes so the fixed
	// part's placeholder lengths can be written without a second copy.
	type varField struct {
		kind Kind
		data []byte // only for Utf8String/Bytes
		f32  []float32
		f64  []float64
	}
	varFields := make([]varField, 0, len(def.arguments))
	variableTotal := 0
	for _, a := range def.arguments {
		if !a.kind.variableLength() {
			continue
		}
		v := m.values[a.name]
		switch a.kind {
		case Utf8String:
			b := []byte(v.str)
			varFields = append(varFields, varField{kind: a.kind, data: b})
			variableTotal += len(b)
		case Bytes:
			varFields = append(varFields, varField{kind: a.kind, data: v.bytes})
			variableTotal += len(v.bytes)
		case Float32Vector:
			varFields = append(varFields, varField{kind: a.kind, f32: v.f32vec})
			variableTotal += 4 * len(v.f32vec)
		case Float64Vector:
			varFields = append(varFields, varField{kind: a.kind, f64: v.f64vec})
			variableTotal += 8 * len(v.f64vec)
		}
	}

	buf := make([]byte, 4+def.fixedSize+variableTotal)
	binary.LittleEndian.PutUint32(buf[0:4], def.id)

	off := 4
	vi := 0
	for _, a := range def.arguments {
		v := m.values[a.name]
		switch a.kind {
		case Int32:
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v.i32))
			off += 4
		case Float64:
			binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v.f64))
			off += 8
		default:
			// Variable-length: write the placeholder length now.
			vf := varFields[vi]
			vi++
			var n int
			switch vf.kind {
			case Utf8String, Bytes:
				n = len(vf.data)
			case Float32Vector:
				n = 4 * len(vf.f32)
			case Float64Vector:
				n = 8 * len(vf.f64)
			}
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(n))
			off += 4
		}
	}

	for _, vf := range varFields {
		switch vf.kind {
		case Utf8String, Bytes:
			copy(buf[off:], vf.data)
			off += len(vf.data)
		case Float32Vector:
			for _, f := range vf.f32 {
				binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
				off += 4
			}
		case Float64Vector:
			for _, f := range vf.f64 {
				binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(f))
				off += 8
			}
		}
	}

	return buf
}

// Unpack decodes a wire body previously produced by Pack, using reg to
// resolve the leading message id to a definition. It fails with a
// *ProtocolError if the id is unknown or the body is truncated.
func Unpack(reg *Registry, body []byte) (*Message, error) {
	if len(body) < 4 {
		return nil, newProtocolError("truncated message header")
	}
	id := binary.LittleEndian.Uint32(body[0:4])
	def, ok := reg.LookupByID(id)
	if !ok {
		return nil, newProtocolError(fmt.Sprintf("unknown message id %d", id))
	}
	if len(body) < 4+def.fixedSize {
		return nil, newProtocolError("truncated fixed part")
	}

	m := &Message{def: def, values: make(map[string]Value, len(def.arguments))}

	off := 4
	type pendingVar struct {
		name   string
		kind   Kind
		length int
	}
	var pending []pendingVar

	for _, a := range def.arguments {
		switch a.kind {
		case Int32:
			n := int32(binary.LittleEndian.Uint32(body[off : off+4]))
			m.values[a.name] = Int32Value(n)
			off += 4
		case Float64:
			bits := binary.LittleEndian.Uint64(body[off : off+8])
			m.values[a.name] = Float64Value(math.Float64frombits(bits))
			off += 8
		default:
			length := int(binary.LittleEndian.Uint32(body[off : off+4]))
			pending = append(pending, pendingVar{name: a.name, kind: a.kind, length: length})
			off += 4
		}
	}

	for _, pv := range pending {
		switch pv.kind {
		case Utf8String:
			if off+pv.length > len(body) {
				return nil, newProtocolError("truncated variable part")
			}
			m.values[pv.name] = StringValue(string(body[off : off+pv.length]))
			off += pv.length
		case Bytes:
			if off+pv.length > len(body) {
				return nil, newProtocolError("truncated variable part")
			}
			b := make([]byte, pv.length)
			copy(b, body[off:off+pv.length])
			m.values[pv.name] = BytesValue(b)
			off += pv.length
		case Float32Vector:
			if pv.length%4 != 0 {
				return nil, newProtocolError("float32 vector length not a multiple of 4")
			}
			if off+pv.length > len(body) {
				return nil, newProtocolError("truncated variable part")
			}
			fs := make([]float32, pv.length/4)
			for i := range fs {
				fs[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4]))
				off += 4
			}
			m.values[pv.name] = Float32VectorValue(fs)
		case Float64Vector:
			if pv.length%8 != 0 {
				return nil, newProtocolError("float64 vector length not a multiple of 8")
			}
			if off+pv.length > len(body) {
				return nil, newProtocolError("truncated variable part")
			}
			fs := make([]float64, pv.length/8)
			for i := range fs {
				fs[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[off : off+8]))
				off += 8
			}
			m.values[pv.name] = Float64VectorValue(fs)
		}
	}

	return m, nil
}
