package lineproto

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// scanFields splits the field section of a line on unescaped commas,
// treating a double quote directly after an unescaped equals sign as
// the start of a string value. Scanning stops at the first unescaped
// space outside a string; the remainder is returned as rest.
func scanFields(s string) (fields []string, rest string) {
	var (
		start    int
		inString bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case inString:
			if c == '"' {
				inString = false
			}
		case c == '=' && i+1 < len(s) && s[i+1] == '"':
			inString = true
			i++
		case c == ',':
			fields = append(fields, s[start:i])
			start = i + 1
		case c == ' ':
			return append(fields, s[start:i]), s[i+1:]
		}
	}
	return append(fields, s[start:]), ""
}

// ParseLine decodes a single line of line protocol. Integer timestamps
// are interpreted at precision p.
//
// Backslashes are not escaped by EscapeKey, so a measurement, tag or
// field key holding a backslash directly before a space, comma or
// equals sign renders ambiguously. ParseLine reads such a backslash as an escape,
// which either fails or yields a different record.
func ParseLine(line string, p Precision) (*Record, error) {
	line = strings.TrimRight(line, "\r\n")
	seriesPart, fieldPart, ok := cutUnescaped(line, ' ')
	if !ok || fieldPart == "" {
		return nil, errors.Errorf("line '%s' has no field set", line)
	}

	series := SplitUnescaped(seriesPart, ',')
	measurement := UnescapeKey(series[0])

	tags := make([]Tag, 0, len(series)-1)
	for _, raw := range series[1:] {
		key, value, ok := cutUnescaped(raw, '=')
		if !ok {
			return nil, errors.Errorf("tag '%s' is missing a value", raw)
		}
		tags = append(tags, Tag{Key: UnescapeKey(key), Value: UnescapeKey(value)})
	}

	rawFields, rest := scanFields(fieldPart)
	fields := make([]Field, 0, len(rawFields))
	for _, raw := range rawFields {
		f, err := parseField(raw)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		fields = append(fields, f)
	}

	var ts time.Time
	if rest = strings.TrimSpace(rest); rest != "" {
		v, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "problem parsing timestamp '%s'", rest)
		}
		ts = p.Time(v)
	}

	rec, err := NewRecord(measurement, tags, fields, ts)
	if err != nil {
		return nil, errors.Wrap(err, "problem building record")
	}
	return rec, nil
}

func parseField(raw string) (Field, error) {
	key, value, ok := cutUnescaped(raw, '=')
	if !ok || key == "" {
		return Field{}, errors.Errorf("field '%s' is not a key=value pair", raw)
	}
	key = UnescapeKey(key)

	switch {
	case strings.HasPrefix(value, `"`):
		if len(value) < 2 || !strings.HasSuffix(value, `"`) {
			return Field{}, errors.Errorf("field '%s' has an unterminated string", key)
		}
		return StringField(key, unquoteStringValue(value[1:len(value)-1])), nil
	case strings.HasSuffix(value, "i"):
		v, err := strconv.ParseInt(strings.TrimSuffix(value, "i"), 10, 64)
		if err != nil {
			return Field{}, errors.Wrapf(err, "problem parsing integer field '%s'", key)
		}
		return IntField(key, v), nil
	}

	switch value {
	case "t", "T", "true", "True", "TRUE":
		return BoolField(key, true), nil
	case "f", "F", "false", "False", "FALSE":
		return BoolField(key, false), nil
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Field{}, errors.Wrapf(err, "problem parsing float field '%s'", key)
	}
	return FloatField(key, v), nil
}

func unquoteStringValue(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
