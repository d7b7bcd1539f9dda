// Package lineproto renders metric records in the newline-delimited
// "line protocol" text format understood by time-series databases.
//
// Records and Batches
//
// A Record holds a measurement name, an ordered list of tags, a
// non-empty list of typed fields and an optional timestamp. A Batch is
// an ordered collection of records that renders as one line per record.
//
//	measurement[,tag=value...] field=value[,field=value...] [timestamp]
//
// Set Items
//
// Counters, meters and timers may carry "set items": labeled
// sub-groupings encoded as strings such as "item,env=prod,host=a". The
// ParseItem function splits these labels into a display name and a
// list of tags.
package lineproto

import (
	"math"
	"strconv"
	"strings"
)

func needsEscape(c byte) bool { return c == ' ' || c == ',' || c == '=' }

// EscapeKey escapes spaces, commas and equals signs with a single
// backslash. The result is safe to use as a measurement name, tag key,
// tag value or field key. Double quotes are passed through verbatim.
func EscapeKey(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if needsEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + n)
	for i := 0; i < len(s); i++ {
		if needsEscape(s[i]) {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// UnescapeKey reverses EscapeKey. A backslash that does not precede a
// space, comma or equals sign is kept as a literal character.
func UnescapeKey(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && needsEscape(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EscapeStringValue renders a string field value: the value is wrapped
// in double quotes and any double quote or backslash inside it is
// escaped.
func EscapeStringValue(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// FormatInt renders an integer field value with its "i" suffix.
func FormatInt(v int64) string { return strconv.FormatInt(v, 10) + "i" }

// FormatBool renders a boolean field value as True or False.
func FormatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// FormatFloat renders a float field value using the shortest
// representation that round-trips. Values with a decimal exponent below
// -4 or at or above 15 use scientific notation, e.g.
// 1.7976931348623157E+308.
func FormatFloat(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	sci := strconv.FormatFloat(v, 'E', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'E')+1:])
	if err != nil {
		return sci
	}

	if exp < -4 || exp >= 15 {
		return sci
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
