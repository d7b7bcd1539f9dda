package report

import (
	"context"
	"io"
	"sync"

	"github.com/evergreen-ci/birch"
	"github.com/mongodb/lineproto"
	"github.com/pkg/errors"
)

// Writer receives the batch produced by each report run.
type Writer interface {
	Write(ctx context.Context, batch *lineproto.Batch) error
}

type lineWriter struct {
	mu        sync.Mutex
	out       io.Writer
	precision lineproto.Precision
}

// NewLineWriter writes each batch as line protocol text at the given
// precision. Batches are terminated by a newline so that consecutive
// batches form a valid stream; empty batches write nothing.
func NewLineWriter(w io.Writer, p lineproto.Precision) Writer {
	return &lineWriter{out: w, precision: p}
}

func (w *lineWriter) Write(ctx context.Context, batch *lineproto.Batch) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := batch.WriteLines(w.out, w.precision); err != nil {
		return errors.WithStack(err)
	}
	_, err := io.WriteString(w.out, "\n")
	return errors.Wrap(err, "problem terminating batch")
}

type bsonWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewBSONWriter writes every record as a BSON document with
// "measurement", "tags", "fields" and, when present, "ts" keys.
func NewBSONWriter(w io.Writer) Writer { return &bsonWriter{out: w} }

// RecordDocument renders a record as a BSON document.
func RecordDocument(r *lineproto.Record) *birch.Document {
	tags := birch.NewDocument()
	for _, t := range r.Tags() {
		tags.Append(birch.EC.String(t.Key, t.Value))
	}

	fields := birch.NewDocument()
	for _, f := range r.Fields() {
		switch f.Kind() {
		case lineproto.FieldInteger:
			v, _ := f.Int()
			fields.Append(birch.EC.Int64(f.Key, v))
		case lineproto.FieldFloat:
			v, _ := f.Float()
			fields.Append(birch.EC.Double(f.Key, v))
		case lineproto.FieldBoolean:
			v, _ := f.Bool()
			fields.Append(birch.EC.Boolean(f.Key, v))
		case lineproto.FieldString:
			v, _ := f.Str()
			fields.Append(birch.EC.String(f.Key, v))
		}
	}

	doc := birch.NewDocument(
		birch.EC.String("measurement", r.Measurement()),
		birch.EC.SubDocument("tags", tags),
		birch.EC.SubDocument("fields", fields),
	)
	if ts, ok := r.Timestamp(); ok {
		doc.Append(birch.EC.Time("ts", ts))
	}
	return doc
}

func (w *bsonWriter) Write(ctx context.Context, batch *lineproto.Batch) error {
	if batch == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range batch.Records() {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if _, err := RecordDocument(r).WriteTo(w.out); err != nil {
			return errors.Wrapf(err, "problem writing document for '%s'", r.Measurement())
		}
	}
	return nil
}
