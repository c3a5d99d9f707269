// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

// Kind identifies the wire type of a message argument. Polymorphism over
// argument kinds is expressed as this tagged variant rather than runtime
// dispatch on Go builtin types, so pack/unpack can drive a single table
// instead of a type switch scattered across the codec.
type Kind uint8

const (
	// Int32 is a 4-byte signed little-endian integer.
	Int32 Kind = iota + 1
	// Float64 is an 8-byte IEEE-754 little-endian float.
	Float64
	// Utf8String is a variable-length UTF-8 string.
	Utf8String
	// Bytes is a variable-length opaque byte string.
	Bytes
	// Float32Vector is a variable-length sequence of 4-byte IEEE-754
	// little-endian floats.
	Float32Vector
	// Float64Vector is a variable-length sequence of 8-byte IEEE-754
	// little-endian floats.
	Float64Vector
)

// String returns the name used in error messages and text dumps.
func (k Kind) String() string {
	switch k {
	case Int32:
		return "int32"
	case Float64:
		return "float64"
	case Utf8String:
		return "string"
	case Bytes:
		return "bytes"
	case Float32Vector:
		return "float32vector"
	case Float64Vector:
		return "float64vector"
	default:
		return "unknown"
	}
}

// variableLength reports whether values of this kind are packed as a
// 4-byte placeholder length in the fixed part followed by a variable
// number of bytes in the variable part.
func (k Kind) variableLength() bool {
	switch k {
	case Utf8String, Bytes, Float32Vector, Float64Vector:
		return true
	default:
		return false
	}
}

// fixedSize returns the number of bytes a scalar, non-variable-length
// kind occupies in the fixed part. Variable-length kinds always occupy
// 4 bytes there (the placeholder length).
func (k Kind) fixedSize() int {
	switch k {
	case Int32:
		return 4
	case Float64:
		return 8
	default:
		return 4
	}
}

// Value holds exactly one populated field, selected by Kind. Using a
// struct of concrete fields instead of interface{} keeps the hot
// pack/unpack path allocation-free for scalar arguments.
type Value struct {
	kind   Kind
	i32    int32
	f64    float64
	str    string
	bytes  []byte
	f32vec []float32
	f64vec []float64
}

// Kind returns the wire kind of this value.
func (v Value) Kind() Kind { return v.kind }

// Int32Value returns v coerced as a Kind.Int32 value.
func Int32Value(n int32) Value { return Value{kind: Int32, i32: n} }

// Float64Value returns v coerced as a Kind.Float64 value.
func Float64Value(f float64) Value { return Value{kind: Float64, f64: f} }

// StringValue returns v coerced as a Kind.Utf8String value.
func StringValue(s string) Value { return Value{kind: Utf8String, str: s} }

// BytesValue returns v coerced as a Kind.Bytes value.
func BytesValue(b []byte) Value { return Value{kind: Bytes, bytes: b} }

// Float32VectorValue returns v coerced as a Kind.Float32Vector value.
func Float32VectorValue(fs []float32) Value { return Value{kind: Float32Vector, f32vec: fs} }

// Float64VectorValue returns v coerced as a Kind.Float64Vector value.
func Float64VectorValue(fs []float64) Value { return Value{kind: Float64Vector, f64vec: fs} }

// Int32 returns the value as an int32. Behavior is undefined if Kind is
// not Int32.
func (v Value) Int32() int32 { return v.i32 }

// Float64 returns the value as a float64. Behavior is undefined if Kind
// is not Float64.
func (v Value) Float64() float64 { return v.f64 }

// String returns the value as a string. Behavior is undefined if Kind is
// not Utf8String.
func (v Value) String() string { return v.str }

// Bytes returns the value as a byte slice. Behavior is undefined if Kind
// is not Bytes.
func (v Value) Bytes() []byte { return v.bytes }

// Float32Vector returns the value as a float32 slice. Behavior is
// undefined if Kind is not Float32Vector.
func (v Value) Float32Vector() []float32 { return v.f32vec }

// Float64Vector returns the value as a float64 slice. Behavior is
// undefined if Kind is not Float64Vector.
func (v Value) Float64Vector() []float64 { return v.f64vec }

// coerce converts an arbitrary Go value into a Value of the declared
// kind, truncating integers to 32-bit signed range, widening floats to
// 64 bits, and converting strings to UTF-8 at pack time.
func coerce(kind Kind, v any) (Value, error) {
	switch kind {
	case Int32:
		switch n := v.(type) {
		case int32:
			return Int32Value(n), nil
		case int:
			return Int32Value(int32(n)), nil
		case int64:
			return Int32Value(int32(n)), nil
		default:
			return Value{}, newConfigErrorf("cannot coerce %T to int32", v)
		}
	case Float64:
		switch f := v.(type) {
		case float64:
			return Float64Value(f), nil
		case float32:
			return Float64Value(float64(f)), nil
		default:
			return Value{}, newConfigErrorf("cannot coerce %T to float64", v)
		}
	case Utf8String:
		switch s := v.(type) {
		case string:
			return StringValue(s), nil
		default:
			return Value{}, newConfigErrorf("cannot coerce %T to string", v)
		}
	case Bytes:
		switch b := v.(type) {
		case []byte:
			return BytesValue(b), nil
		default:
			return Value{}, newConfigErrorf("cannot coerce %T to bytes", v)
		}
	case Float32Vector:
		switch fs := v.(type) {
		case []float32:
			return Float32VectorValue(fs), nil
		default:
			return Value{}, newConfigErrorf("cannot coerce %T to []float32", v)
		}
	case Float64Vector:
		switch fs := v.(type) {
		case []float64:
			return Float64VectorValue(fs), nil
		default:
			return Value{}, newConfigErrorf("cannot coerce %T to []float64", v)
		}
	default:
		return Value{}, newConfigErrorf("unknown argument kind %v", kind)
	}
}
