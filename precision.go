package lineproto

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Precision is the unit used to encode a record's timestamp as an
// integer.
type Precision int

const (
	Nanoseconds Precision = iota
	Microseconds
	Milliseconds
	Seconds
	Minutes
	Hours
)

// DefaultPrecision is used when no precision is configured.
const DefaultPrecision = Milliseconds

// ParsePrecision converts a short precision name such as "ms" into a
// Precision. The match is case-insensitive.
func ParsePrecision(name string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "n", "ns":
		return Nanoseconds, nil
	case "u", "us", "µ", "µs":
		return Microseconds, nil
	case "ms":
		return Milliseconds, nil
	case "s":
		return Seconds, nil
	case "m":
		return Minutes, nil
	case "h":
		return Hours, nil
	default:
		return DefaultPrecision, errors.Errorf("unknown precision '%s'", name)
	}
}

// ShortName returns the name accepted by ParsePrecision.
func (p Precision) ShortName() string {
	switch p {
	case Nanoseconds:
		return "ns"
	case Microseconds:
		return "us"
	case Seconds:
		return "s"
	case Minutes:
		return "m"
	case Hours:
		return "h"
	default:
		return "ms"
	}
}

func (p Precision) String() string { return p.ShortName() }

// Duration returns the length of one precision unit.
func (p Precision) Duration() time.Duration {
	switch p {
	case Nanoseconds:
		return time.Nanosecond
	case Microseconds:
		return time.Microsecond
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	default:
		return time.Millisecond
	}
}

// Timestamp converts t into an integer count of precision units since
// the Unix epoch. The value is truncated, not rounded.
func (p Precision) Timestamp(t time.Time) int64 {
	return t.UnixNano() / int64(p.Duration())
}

// Time converts an integer count of precision units since the Unix
// epoch back into a UTC time.
func (p Precision) Time(ts int64) time.Time {
	return time.Unix(0, ts*int64(p.Duration())).UTC()
}
