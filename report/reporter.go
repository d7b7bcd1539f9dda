package report

import (
	"context"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/convert"
	"github.com/mongodb/lineproto/metrics"
	"github.com/pkg/errors"
)

// HealthFunc returns the current health status. It is called once per
// report run.
type HealthFunc func() metrics.HealthStatus

// ReporterOptions configure a Reporter. Only the Writer is required.
type ReporterOptions struct {
	Converter           convert.Converter
	Formatter           Formatter
	Writer              Writer
	GlobalTags          []lineproto.Tag
	DisableHealthReport bool
}

func (opts *ReporterOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(opts.Writer == nil, "must specify a writer")
	if opts.Converter == nil {
		opts.Converter = convert.New(convert.Options{})
	}
	if opts.Formatter == nil {
		opts.Formatter = NewFormatter(DefaultFormatterOptions())
	}
	return catcher.Resolve()
}

// Reporter converts snapshots into batches. A Reporter holds no
// per-run state and may run reports for several snapshots at once.
type Reporter struct {
	opts ReporterOptions
}

// NewReporter validates the options, filling in the default converter
// and formatter when they are not set.
func NewReporter(opts ReporterOptions) (*Reporter, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid reporter options")
	}
	return &Reporter{opts: opts}, nil
}

type reportRun struct {
	*Reporter
	cycle   convert.Cycle
	batch   *lineproto.Batch
	catcher grip.Catcher
}

func (run *reportRun) add(context []string, name string, kind metrics.Kind, tags metrics.Tags, unit metrics.Unit, value interface{}) {
	measurement := run.opts.Formatter.MetricName(context, name, kind)
	records, err := run.opts.Converter.Convert(run.cycle, measurement, convert.Tags(tags), unit, value)
	if err != nil {
		run.catcher.Add(err)
		grip.Warning(message.WrapError(err, message.Fields{
			"op":     "converting metric",
			"metric": measurement,
			"kind":   kind,
		}))
		return
	}
	run.format(records)
}

func (run *reportRun) format(records []*lineproto.Record) {
	for _, r := range records {
		out, err := run.opts.Formatter.Record(r)
		if err != nil {
			run.catcher.Add(err)
			continue
		}
		run.batch.Add(out)
	}
}

func (run *reportRun) walk(path []string, s *metrics.Snapshot) {
	if s.Context != "" {
		path = append(path[:len(path):len(path)], s.Context)
	}

	for _, m := range s.Gauges {
		run.add(path, m.Name, metrics.KindGauge, m.Tags, m.Unit, m.Value)
	}
	for idx := range s.Counters {
		m := &s.Counters[idx]
		run.add(path, m.Name, metrics.KindCounter, m.Tags, m.Unit, &m.Value)
	}
	for idx := range s.Meters {
		m := &s.Meters[idx]
		run.add(path, m.Name, metrics.KindMeter, m.Tags, m.Unit, &m.Value)
	}
	for idx := range s.Histograms {
		m := &s.Histograms[idx]
		run.add(path, m.Name, metrics.KindHistogram, m.Tags, m.Unit, &m.Value)
	}
	for idx := range s.Timers {
		m := &s.Timers[idx]
		run.add(path, m.Name, metrics.KindTimer, m.Tags, m.Unit, &m.Value)
	}
	for idx := range s.Events {
		m := &s.Events[idx]
		run.add(path, m.Name, metrics.KindEvent, m.Tags, metrics.UnitNone, &m.Value)
	}

	for idx := range s.Children {
		run.walk(path, &s.Children[idx])
	}
}

// Batch converts every metric in the snapshot, and in its child
// contexts, followed by the health status unless health reporting is
// disabled. Records are stamped with the snapshot's timestamp.
// Conversion failures are collected and returned together with the
// records that converted successfully.
func (r *Reporter) Batch(s *metrics.Snapshot, health HealthFunc) (*lineproto.Batch, error) {
	if s == nil {
		return nil, errors.Wrap(convert.ErrNilValue, "reporting snapshot")
	}

	run := &reportRun{
		Reporter: r,
		cycle:    convert.Cycle{Timestamp: s.Timestamp, GlobalTags: r.opts.GlobalTags},
		batch:    lineproto.NewBatch(),
		catcher:  grip.NewBasicCatcher(),
	}
	run.walk(nil, s)

	if !r.opts.DisableHealthReport && health != nil {
		status := health()
		records, err := r.opts.Converter.ConvertHealth(run.cycle, &status)
		if err != nil {
			run.catcher.Add(err)
		} else {
			run.format(records)
		}
	}

	return run.batch, run.catcher.Resolve()
}

// RunReport builds the batch for the snapshot and writes it. The batch
// is written even when some metrics failed to convert; the conversion
// errors are returned after the write.
func (r *Reporter) RunReport(ctx context.Context, s *metrics.Snapshot, health HealthFunc) error {
	startAt := time.Now()
	batch, err := r.Batch(s, health)
	if batch == nil {
		return errors.WithStack(err)
	}

	catcher := grip.NewBasicCatcher()
	catcher.Add(err)
	catcher.Wrap(r.opts.Writer.Write(ctx, batch), "problem writing batch")

	grip.Debug(message.Fields{
		"op":       "report",
		"context":  s.Context,
		"metrics":  s.Len(),
		"records":  batch.Len(),
		"errors":   catcher.Len(),
		"duration": time.Since(startAt).Round(time.Millisecond),
	})

	return catcher.Resolve()
}
