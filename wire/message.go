// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import "fmt"

// Message pairs a MessageDefinition with a set of argument values. It is
// constructed by a sender, packed to bytes, transmitted, and unpacked by
// a receiver -- at which point it is read-only.
type Message struct {
	def    *MessageDefinition
	values map[string]Value
}

// NewMessage creates a message of the type registered under name on
// reg. Initial argument values can be supplied as name -> Go value
// pairs (int32, float64, string, []byte, []float32 or []float64,
// matching the argument's declared Kind); they are coerced immediately.
func NewMessage(reg *Registry, name string, values map[string]any) (*Message, error) {
	def, ok := reg.Lookup(name)
	if !ok {
		return nil, newProtocolError(fmt.Sprintf("message %q is not registered", name))
	}
	return NewMessageFromDefinition(def, values)
}

// NewMessageFromDefinition creates a message directly from an already
// looked-up definition, avoiding a second registry lookup.
func NewMessageFromDefinition(def *MessageDefinition, values map[string]any) (*Message, error) {
	m := &Message{def: def, values: make(map[string]Value, len(def.arguments))}
	for name, v := range values {
		if err := m.Set(name, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Definition returns this message's definition.
func (m *Message) Definition() *MessageDefinition { return m.def }

// Name returns this message's definition name.
func (m *Message) Name() string { return m.def.name }

// Set coerces v to the argument's declared kind and stores it. It fails
// if name is not an argument of this message's definition, or if v
// cannot be coerced to the declared kind.
func (m *Message) Set(name string, v any) error {
	kind, ok := m.def.argumentKind(name)
	if !ok {
		return newProtocolError(fmt.Sprintf("message %q has no argument %q", m.def.name, name))
	}
	val, err := coerce(kind, v)
	if err != nil {
		return err
	}
	m.values[name] = val
	return nil
}

// Get returns the current value of argument name. The zero Value is
// returned if name was never set.
func (m *Message) Get(name string) Value { return m.values[name] }

// GetInt32 is a convenience accessor equivalent to Get(name).Int32().
func (m *Message) GetInt32(name string) int32 { return m.values[name].Int32() }

// GetFloat64 is a convenience accessor equivalent to Get(name).Float64().
func (m *Message) GetFloat64(name string) float64 { return m.values[name].Float64() }

// GetString is a convenience accessor equivalent to Get(name).String().
func (m *Message) GetString(name string) string { return m.values[name].String() }

// GetBytes is a convenience accessor equivalent to Get(name).Bytes().
func (m *Message) GetBytes(name string) []byte { return m.values[name].Bytes() }

// GetFloat32Vector is a convenience accessor equivalent to
// Get(name).Float32Vector().
func (m *Message) GetFloat32Vector(name string) []float32 { return m.values[name].Float32Vector() }

// GetFloat64Vector is a convenience accessor equivalent to
// Get(name).Float64Vector().
func (m *Message) GetFloat64Vector(name string) []float64 { return m.values[name].Float64Vector() }

// String returns a human-readable representation for logging.
func (m *Message) String() string {
	s := fmt.Sprintf("Message<%d:%s>", m.def.id, m.def.name)
	if len(m.values) == 0 {
		return s
	}
	s += "("
	first := true
	for _, a := range m.def.arguments {
		if v, ok := m.values[a.name]; ok {
			if !first {
				s += ", "
			}
			first = false
			s += fmt.Sprintf("%s=%v", a.name, valueString(v))
		}
	}
	return s + ")"
}

func valueString(v Value) any {
	switch v.kind {
	case Int32:
		return v.i32
	case Float64:
		return v.f64
	case Utf8String:
		return v.str
	case Bytes:
		return v.bytes
	case Float32Vector:
		return v.f32vec
	case Float64Vector:
		return v.f64vec
	default:
		return nil
	}
}
