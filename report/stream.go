package report

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/lineproto/metrics"
	"github.com/papertrail/go-tail/follower"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxStreamLineSize = 16 * 1024 * 1024

// StreamOptions specifies the source of a snapshot stream. You must
// specify EITHER an input source as a reader or a file name.
type StreamOptions struct {
	InputSource io.Reader `json:"-"`
	FileName    string
	Follow      bool
	Reporter    *Reporter `json:"-"`
}

func (opts StreamOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen((opts.InputSource == nil) == (opts.FileName == ""), "must specify exactly one of input source and filename")
	catcher.NewWhen(opts.Follow && opts.FileName == "", "follow option must not be specified with a file reader")
	catcher.NewWhen(opts.Reporter == nil, "must specify a reporter")
	return catcher.Resolve()
}

// StreamDocument is one line of a snapshot stream: a snapshot with an
// optional health status.
type StreamDocument struct {
	metrics.Snapshot `bson:",inline"`
	Health           *metrics.HealthStatus `bson:"health,omitempty"`
}

func (d *StreamDocument) healthFunc() HealthFunc {
	if d.Health == nil {
		return nil
	}
	status := *d.Health
	return func() metrics.HealthStatus { return status }
}

// ParseStreamDocument decodes one relaxed extended JSON document.
func ParseStreamDocument(line []byte) (*StreamDocument, error) {
	doc := &StreamDocument{}
	if err := bson.UnmarshalExtJSON(line, false, doc); err != nil {
		return nil, errors.Wrap(err, "problem parsing snapshot document")
	}
	return doc, nil
}

func sendLine(ctx context.Context, line []byte, out chan<- *StreamDocument) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	doc, err := ParseStreamDocument(line)
	if err != nil {
		return err
	}

	select {
	case out <- doc:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

func scanLines(ctx context.Context, r io.Reader, out chan<- *StreamDocument) error {
	stream := bufio.NewScanner(r)
	stream.Buffer(make([]byte, 0, 64*1024), maxStreamLineSize)

	for stream.Scan() {
		if err := sendLine(ctx, stream.Bytes(), out); err != nil {
			return err
		}
	}
	return errors.Wrap(stream.Err(), "problem reading stream")
}

// getSource starts reading documents. The error channel receives at
// most one error and is closed when the source is exhausted.
func (opts StreamOptions) getSource(ctx context.Context) (<-chan *StreamDocument, <-chan error) {
	out := make(chan *StreamDocument)
	errs := make(chan error, 1)

	switch {
	case opts.InputSource != nil:
		go func() {
			defer close(errs)
			if err := scanLines(ctx, opts.InputSource, out); err != nil {
				errs <- err
			}
		}()
	case opts.FileName != "" && !opts.Follow:
		go func() {
			defer close(errs)
			f, err := os.Open(opts.FileName)
			if err != nil {
				errs <- errors.Wrapf(err, "problem opening data file %s", opts.FileName)
				return
			}
			defer f.Close()

			if err = scanLines(ctx, f, out); err != nil {
				errs <- err
			}
		}()
	case opts.FileName != "" && opts.Follow:
		go func() {
			defer close(errs)

			tail, err := follower.New(opts.FileName, follower.Config{
				Reopen: true,
			})
			if err != nil {
				errs <- errors.Wrapf(err, "problem setting up file follower of '%s'", opts.FileName)
				return
			}
			defer tail.Close()

			for {
				select {
				case <-ctx.Done():
					return
				case line, ok := <-tail.Lines():
					if !ok {
						errs <- errors.Wrapf(tail.Err(), "stopped following '%s'", opts.FileName)
						return
					}
					if err := sendLine(ctx, line.Bytes(), out); err != nil {
						errs <- err
						return
					}
				}
			}
		}()
	default:
		errs <- errors.New("invalid stream options")
		close(errs)
	}
	return out, errs
}

// ConvertJSONStream provides a blocking process that reads new-line
// separated extended JSON snapshot documents and runs a report for
// each of them.
//
// The stream may be read directly from an arbitrary IO reader, or from
// a file. The "follow" option watches the end of a file for new
// documents, a la "tail -f", until the context is canceled.
func ConvertJSONStream(ctx context.Context, opts StreamOptions) error {
	if err := opts.Validate(); err != nil {
		return errors.WithStack(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	count := 0
	docs, errs := opts.getSource(ctx)

	for {
		select {
		case <-ctx.Done():
			return errors.New("operation aborted")
		case err, ok := <-errs:
			if !ok || err == nil {
				grip.Debug(message.Fields{
					"op":        "converting snapshot stream",
					"documents": count,
					"file":      opts.FileName,
				})
				return nil
			}
			return errors.WithStack(err)
		case doc := <-docs:
			if err := opts.Reporter.RunReport(ctx, &doc.Snapshot, doc.healthFunc()); err != nil {
				return errors.Wrapf(err, "problem reporting document %d", count)
			}
			count++
		}
	}
}
