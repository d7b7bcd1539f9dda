package lineproto

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FieldKind identifies which value variant a Field holds.
type FieldKind uint8

const (
	FieldInteger FieldKind = iota + 1
	FieldFloat
	FieldBoolean
	FieldString
)

func (k FieldKind) String() string {
	switch k {
	case FieldInteger:
		return "integer"
	case FieldFloat:
		return "float"
	case FieldBoolean:
		return "boolean"
	case FieldString:
		return "string"
	default:
		return "invalid"
	}
}

// Field is a typed value column of a record. Exactly one variant is
// active, chosen by the constructor; values are never coerced between
// variants.
type Field struct {
	Key  string
	kind FieldKind
	i    int64
	f    float64
	b    bool
	s    string
}

// IntField constructs an integer field.
func IntField(key string, v int64) Field { return Field{Key: key, kind: FieldInteger, i: v} }

// FloatField constructs a float field.
func FloatField(key string, v float64) Field { return Field{Key: key, kind: FieldFloat, f: v} }

// BoolField constructs a boolean field.
func BoolField(key string, v bool) Field { return Field{Key: key, kind: FieldBoolean, b: v} }

// StringField constructs a string field.
func StringField(key, v string) Field { return Field{Key: key, kind: FieldString, s: v} }

// NewField picks the variant for a go native value. Integers map to
// integer fields, floats to float fields, and times render as RFC3339
// strings. Unsigned values above math.MaxInt64 and other types are
// rejected.
func NewField(key string, value interface{}) (Field, error) {
	switch v := value.(type) {
	case int:
		return IntField(key, int64(v)), nil
	case int8:
		return IntField(key, int64(v)), nil
	case int16:
		return IntField(key, int64(v)), nil
	case int32:
		return IntField(key, int64(v)), nil
	case int64:
		return IntField(key, v), nil
	case uint8:
		return IntField(key, int64(v)), nil
	case uint16:
		return IntField(key, int64(v)), nil
	case uint32:
		return IntField(key, int64(v)), nil
	case uint:
		return uintField(key, uint64(v))
	case uint64:
		return uintField(key, v)
	case float32:
		return FloatField(key, float64(v)), nil
	case float64:
		return FloatField(key, v), nil
	case bool:
		return BoolField(key, v), nil
	case string:
		return StringField(key, v), nil
	case time.Time:
		return StringField(key, v.Format(time.RFC3339Nano)), nil
	case Field:
		return v.WithKey(key), nil
	default:
		return Field{}, errors.Errorf("type '%T' for field '%s' is not supported", value, key)
	}
}

func uintField(key string, v uint64) (Field, error) {
	if v > math.MaxInt64 {
		return Field{}, errors.Errorf("value %d for field '%s' overflows a signed integer", v, key)
	}
	return IntField(key, int64(v)), nil
}

// Kind returns the active variant, or zero for the zero Field.
func (f Field) Kind() FieldKind { return f.kind }

// IsValid reports whether the field has a non-blank key and a value
// variant.
func (f Field) IsValid() bool { return strings.TrimSpace(f.Key) != "" && f.kind != 0 }

// WithKey returns a copy of the field with a different key.
func (f Field) WithKey(key string) Field { f.Key = key; return f }

// Int returns the integer value and whether the field is an integer.
func (f Field) Int() (int64, bool) { return f.i, f.kind == FieldInteger }

// Float returns the float value and whether the field is a float.
func (f Field) Float() (float64, bool) { return f.f, f.kind == FieldFloat }

// Bool returns the boolean value and whether the field is a boolean.
func (f Field) Bool() (bool, bool) { return f.b, f.kind == FieldBoolean }

// Str returns the string value and whether the field is a string.
func (f Field) Str() (string, bool) { return f.s, f.kind == FieldString }

// Value returns the active value as an interface.
func (f Field) Value() interface{} {
	switch f.kind {
	case FieldInteger:
		return f.i
	case FieldFloat:
		return f.f
	case FieldBoolean:
		return f.b
	case FieldString:
		return f.s
	default:
		return nil
	}
}

// ValueString renders the value as plain text without line protocol
// decoration: no integer suffix and no quoting.
func (f Field) ValueString() string {
	switch f.kind {
	case FieldInteger:
		return strconv.FormatInt(f.i, 10)
	case FieldFloat:
		return FormatFloat(f.f)
	case FieldBoolean:
		return FormatBool(f.b)
	default:
		return f.s
	}
}

func (f Field) formatValue() string {
	switch f.kind {
	case FieldInteger:
		return FormatInt(f.i)
	case FieldFloat:
		return FormatFloat(f.f)
	case FieldBoolean:
		return FormatBool(f.b)
	default:
		return EscapeStringValue(f.s)
	}
}

// LineProtocol renders the field as key=value.
func (f Field) LineProtocol() string {
	return EscapeKey(f.Key) + "=" + f.formatValue()
}

func (f Field) String() string { return f.LineProtocol() }
