package lineproto

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Batch is an ordered, append-only collection of records. Batches do
// not deduplicate and are not safe for concurrent use.
type Batch struct {
	records []*Record
}

// NewBatch constructs a batch holding the given records. Nil records
// are skipped.
func NewBatch(records ...*Record) *Batch {
	b := &Batch{}
	b.Add(records...)
	return b
}

// Add appends records to the batch, skipping nil values.
func (b *Batch) Add(records ...*Record) {
	for _, r := range records {
		if r != nil {
			b.records = append(b.records, r)
		}
	}
}

// Extend appends all records of another batch.
func (b *Batch) Extend(other *Batch) {
	if other == nil {
		return
	}
	b.records = append(b.records, other.records...)
}

// Clear removes all records.
func (b *Batch) Clear() { b.records = nil }

// Len returns the number of records.
func (b *Batch) Len() int { return len(b.records) }

// Records returns a copy of the record list.
func (b *Batch) Records() []*Record { return append([]*Record(nil), b.records...) }

// LineProtocol joins the rendered records with a single newline. An
// empty batch renders as the empty string and there is no trailing
// newline.
func (b *Batch) LineProtocol(p Precision) string {
	var sb strings.Builder
	for idx, r := range b.records {
		if idx > 0 {
			sb.WriteByte('\n')
		}
		r.writeTo(&sb, p)
	}
	return sb.String()
}

// WriteLines writes the batch's line protocol rendering to w.
func (b *Batch) WriteLines(w io.Writer, p Precision) error {
	_, err := io.WriteString(w, b.LineProtocol(p))
	return errors.Wrap(err, "problem writing batch")
}
