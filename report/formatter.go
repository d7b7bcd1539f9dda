// Package report walks metric snapshots through a converter into line
// protocol batches and hands each batch to a Writer.
//
// The package also provides the YAML configuration of a reporter and
// a blocking stream processor that converts newline-delimited extended
// JSON snapshot documents as they arrive.
package report

import (
	"sort"
	"strings"

	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/metrics"
	"github.com/pkg/errors"
)

// Formatter names measurements and normalizes the keys of converted
// records before they are written.
type Formatter interface {
	// MetricName builds the measurement name of a metric from the path
	// of the contexts that hold it, its name and its kind.
	MetricName(context []string, name string, kind metrics.Kind) string
	// Record returns a copy of the record with its measurement, tag
	// keys and field keys normalized. Values are never modified.
	Record(r *lineproto.Record) (*lineproto.Record, error)
}

// FormatterOptions configure the default Formatter.
type FormatterOptions struct {
	Lowercase        bool   `bson:"lowercase" json:"lowercase" yaml:"lowercase"`
	ReplaceSpace     bool   `bson:"replace_space" json:"replace_space" yaml:"replace_space"`
	ContextSeparator string `bson:"context_separator" json:"context_separator" yaml:"context_separator"`
	SortTags         bool   `bson:"sort_tags" json:"sort_tags" yaml:"sort_tags"`
}

// DefaultFormatterOptions lowercases names, replaces spaces with
// underscores, separates contexts with a period and sorts tags by key.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		Lowercase:        true,
		ReplaceSpace:     true,
		ContextSeparator: ".",
		SortTags:         true,
	}
}

type formatter struct {
	opts FormatterOptions
}

// NewFormatter returns the default Formatter implementation.
func NewFormatter(opts FormatterOptions) Formatter { return &formatter{opts: opts} }

func (f *formatter) key(s string) string {
	s = strings.TrimSpace(s)
	if f.opts.Lowercase {
		s = strings.ToLower(s)
	}
	if f.opts.ReplaceSpace {
		s = strings.ReplaceAll(s, " ", "_")
	}
	return s
}

func (f *formatter) MetricName(context []string, name string, kind metrics.Kind) string {
	parts := make([]string, 0, len(context)+2)
	for _, c := range context {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	parts = append(parts, name)
	if kind != "" {
		parts = append(parts, string(kind))
	}
	return f.key(strings.Join(parts, f.opts.ContextSeparator))
}

func (f *formatter) Record(r *lineproto.Record) (*lineproto.Record, error) {
	tags := r.Tags()
	for idx := range tags {
		tags[idx].Key = f.key(tags[idx].Key)
	}
	if f.opts.SortTags {
		sort.SliceStable(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	}

	fields := r.Fields()
	for idx := range fields {
		fields[idx] = fields[idx].WithKey(f.key(fields[idx].Key))
	}

	ts, _ := r.Timestamp()
	out, err := lineproto.NewRecord(f.key(r.Measurement()), tags, fields, ts)
	if err != nil {
		return nil, errors.Wrapf(err, "problem formatting record '%s'", r.Measurement())
	}
	return out, nil
}
