package lineproto

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Record is a single line protocol data point. Records are immutable
// once constructed; accessors return copies.
type Record struct {
	measurement string
	tags        []Tag
	fields      []Field
	timestamp   time.Time
}

// NewRecord validates and constructs a record. Invalid tags are
// dropped and duplicate tag keys resolve to the last value at the
// position of the first occurrence. Fields without a value or with a
// blank key are dropped, and duplicate field keys are resolved the
// same way as tags.
// A zero timestamp means the record carries no timestamp.
//
// An error is returned when the measurement name is blank or no valid
// field remains.
func NewRecord(measurement string, tags []Tag, fields []Field, timestamp time.Time) (*Record, error) {
	if strings.TrimSpace(measurement) == "" {
		return nil, errors.New("record measurement name must not be empty")
	}

	fs := mergeFields(fields)
	if len(fs) == 0 {
		return nil, errors.Errorf("record '%s' must have at least one field", measurement)
	}

	return &Record{
		measurement: measurement,
		tags:        mergeTags(tags),
		fields:      fs,
		timestamp:   timestamp,
	}, nil
}

func mergeFields(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if !f.IsValid() {
			continue
		}
		if idx, ok := index[f.Key]; ok {
			out[idx] = f
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}

// Measurement returns the series name.
func (r *Record) Measurement() string { return r.measurement }

// Tags returns a copy of the record's tags in order.
func (r *Record) Tags() []Tag { return append([]Tag(nil), r.tags...) }

// Fields returns a copy of the record's fields in order.
func (r *Record) Fields() []Field { return append([]Field(nil), r.fields...) }

// Timestamp returns the record's timestamp and whether it has one.
func (r *Record) Timestamp() (time.Time, bool) { return r.timestamp, !r.timestamp.IsZero() }

// Tag returns the value of the tag with the given key.
func (r *Record) Tag(key string) (string, bool) {
	for _, t := range r.tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Field returns the field with the given key.
func (r *Record) Field(key string) (Field, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// FormatTimestamp renders t as an integer at the given precision.
func FormatTimestamp(t time.Time, p Precision) string {
	return strconv.FormatInt(p.Timestamp(t), 10)
}

// LineProtocol renders the record as a single line without a trailing
// newline. The timestamp, when present, is written at precision p.
func (r *Record) LineProtocol(p Precision) string {
	var b strings.Builder
	r.writeTo(&b, p)
	return b.String()
}

func (r *Record) String() string { return r.LineProtocol(DefaultPrecision) }

func (r *Record) writeTo(b *strings.Builder, p Precision) {
	b.WriteString(EscapeKey(r.measurement))
	for _, t := range r.tags {
		b.WriteByte(',')
		b.WriteString(t.LineProtocol())
	}

	b.WriteByte(' ')
	for idx, f := range r.fields {
		if idx > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.LineProtocol())
	}

	if !r.timestamp.IsZero() {
		b.WriteByte(' ')
		b.WriteString(FormatTimestamp(r.timestamp, p))
	}
}
