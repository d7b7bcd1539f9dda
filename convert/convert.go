// Package convert turns metric snapshot values into line protocol
// records.
//
// Every conversion is a pure function of its arguments. The reporting
// cycle's timestamp and global tags are passed with each call as a
// Cycle value, so one Converter may serve concurrent cycles.
package convert

import (
	"reflect"
	"time"

	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/metrics"
	"github.com/pkg/errors"
)

// ErrNilValue is returned when a conversion is asked to convert a nil
// metric value.
var ErrNilValue = errors.New("metric value must not be nil")

// Cycle holds the values shared by every conversion in one reporting
// cycle.
type Cycle struct {
	// Timestamp is applied to every record that does not carry its
	// own instant. The zero time produces records without timestamps.
	Timestamp time.Time
	// GlobalTags are merged into every record before call-site tags,
	// which override them.
	GlobalTags []lineproto.Tag
}

// Options control the optional behaviors of the default converter.
type Options struct {
	// EventFieldsAsStrings renders every event payload value as a
	// string field instead of its native variant.
	EventFieldsAsStrings bool `bson:"event_fields_as_strings" json:"event_fields_as_strings" yaml:"event_fields_as_strings"`
	// SplitTimerItems emits a record for every set item of a timer's
	// rate in addition to the timer record.
	SplitTimerItems bool `bson:"split_timer_items" json:"split_timer_items" yaml:"split_timer_items"`
}

// Converter produces records for one metric or one health status.
type Converter interface {
	// Convert dispatches on the type of value, which may be any Go
	// integer or float type (gauge), or a metrics.CounterValue, MeterValue, HistogramValue,
	// TimerValue or EventValue, or a pointer to one of them.
	Convert(c Cycle, name string, tags []lineproto.Tag, unit metrics.Unit, value interface{}) ([]*lineproto.Record, error)
	ConvertHealth(c Cycle, status *metrics.HealthStatus) ([]*lineproto.Record, error)
}

type converter struct {
	opts Options
}

// New returns the default Converter.
func New(opts Options) Converter { return &converter{opts: opts} }

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func (cv *converter) Convert(c Cycle, name string, tags []lineproto.Tag, _ metrics.Unit, value interface{}) ([]*lineproto.Record, error) {
	if isNil(value) {
		return nil, errors.Wrapf(ErrNilValue, "converting metric '%s'", name)
	}

	switch v := value.(type) {
	case float64:
		return Gauge(c, name, tags, v)
	case float32:
		return Gauge(c, name, tags, float64(v))
	case int:
		return Gauge(c, name, tags, float64(v))
	case int8:
		return Gauge(c, name, tags, float64(v))
	case int16:
		return Gauge(c, name, tags, float64(v))
	case int32:
		return Gauge(c, name, tags, float64(v))
	case int64:
		return Gauge(c, name, tags, float64(v))
	case uint:
		return Gauge(c, name, tags, float64(v))
	case uint8:
		return Gauge(c, name, tags, float64(v))
	case uint16:
		return Gauge(c, name, tags, float64(v))
	case uint32:
		return Gauge(c, name, tags, float64(v))
	case uint64:
		return Gauge(c, name, tags, float64(v))
	case metrics.CounterValue:
		return Counter(c, name, tags, v)
	case *metrics.CounterValue:
		return Counter(c, name, tags, *v)
	case metrics.MeterValue:
		return Meter(c, name, tags, v)
	case *metrics.MeterValue:
		return Meter(c, name, tags, *v)
	case metrics.HistogramValue:
		return Histogram(c, name, tags, v)
	case *metrics.HistogramValue:
		return Histogram(c, name, tags, *v)
	case metrics.TimerValue:
		return Timer(c, name, tags, v, cv.opts.SplitTimerItems)
	case *metrics.TimerValue:
		return Timer(c, name, tags, *v, cv.opts.SplitTimerItems)
	case metrics.EventValue:
		return Event(c, name, tags, v, cv.opts.EventFieldsAsStrings)
	case *metrics.EventValue:
		return Event(c, name, tags, *v, cv.opts.EventFieldsAsStrings)
	default:
		return nil, errors.Errorf("type '%T' for metric '%s' is not supported", value, name)
	}
}

func (cv *converter) ConvertHealth(c Cycle, status *metrics.HealthStatus) ([]*lineproto.Record, error) {
	if status == nil {
		return nil, errors.Wrap(ErrNilValue, "converting health status")
	}
	return Health(c, *status)
}

// Tags converts metric tags into line protocol tags.
func Tags(in metrics.Tags) []lineproto.Tag {
	if len(in) == 0 {
		return nil
	}
	out := make([]lineproto.Tag, len(in))
	for idx, t := range in {
		out[idx] = lineproto.Tag(t)
	}
	return out
}

func (c Cycle) record(name string, ts time.Time, fields []lineproto.Field, tags ...[]lineproto.Tag) (*lineproto.Record, error) {
	rec, err := lineproto.NewRecord(name, lineproto.JoinTags("", append([][]lineproto.Tag{c.GlobalTags}, tags...)...), fields, ts)
	if err != nil {
		return nil, errors.Wrapf(err, "problem building record for '%s'", name)
	}
	return rec, nil
}

// Gauge produces a single record with a Value field.
func Gauge(c Cycle, name string, tags []lineproto.Tag, value float64) ([]*lineproto.Record, error) {
	rec, err := c.record(name, c.Timestamp, []lineproto.Field{lineproto.FloatField("Value", value)}, tags)
	if err != nil {
		return nil, err
	}
	return []*lineproto.Record{rec}, nil
}

func histogramFields(h metrics.HistogramValue) []lineproto.Field {
	return []lineproto.Field{
		lineproto.FloatField("Last", h.LastValue),
		lineproto.FloatField("Min", h.Min),
		lineproto.FloatField("Mean", h.Mean),
		lineproto.FloatField("Max", h.Max),
		lineproto.FloatField("StdDev", h.StdDev),
		lineproto.FloatField("Median", h.Median),
		lineproto.IntField("Sample Size", h.SampleSize),
		lineproto.FloatField("Percentile 75%", h.Percentile75),
		lineproto.FloatField("Percentile 95%", h.Percentile95),
		lineproto.FloatField("Percentile 98%", h.Percentile98),
		lineproto.FloatField("Percentile 99%", h.Percentile99),
		lineproto.FloatField("Percentile 99.9%", h.Percentile999),
	}
}

// Histogram produces a single record with the count, the summary
// statistics and the percentiles of the sample.
func Histogram(c Cycle, name string, tags []lineproto.Tag, value metrics.HistogramValue) ([]*lineproto.Record, error) {
	fields := append([]lineproto.Field{lineproto.IntField("Count", value.Count)}, histogramFields(value)...)
	rec, err := c.record(name, c.Timestamp, fields, tags)
	if err != nil {
		return nil, err
	}
	return []*lineproto.Record{rec}, nil
}

// Timer produces one record combining the timer's rate and histogram.
// When split is set, the set items of the timer's rate are converted
// like meter items and their records precede the timer record.
func Timer(c Cycle, name string, tags []lineproto.Tag, value metrics.TimerValue, split bool) ([]*lineproto.Record, error) {
	fields := []lineproto.Field{
		lineproto.IntField("Active Sessions", value.ActiveSessions),
		lineproto.IntField("Total Time", value.TotalTime),
	}
	fields = append(fields, rateFields("", value.Rate)...)
	fields = append(fields, histogramFields(value.Histogram)...)

	var out []*lineproto.Record
	if split && len(value.Rate.Items) > 0 {
		items, _, err := meterItemRecords(c, name, tags, value.Rate)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}

	rec, err := c.record(name, c.Timestamp, fields, tags)
	if err != nil {
		return nil, err
	}
	return append(out, rec), nil
}

// Event produces one record per recorded event, stamped with the
// event's own timestamp. An event without a payload gets a timestamp
// string field so that the record is never empty.
func Event(c Cycle, name string, tags []lineproto.Tag, value metrics.EventValue, asStrings bool) ([]*lineproto.Record, error) {
	out := make([]*lineproto.Record, 0, len(value.Events))
	for _, evt := range value.Events {
		ts := evt.Timestamp
		if ts.IsZero() {
			ts = c.Timestamp
		}

		fields := make([]lineproto.Field, 0, len(evt.Fields))
		for _, p := range evt.Fields {
			f, err := lineproto.NewField(p.Name, p.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "problem converting event '%s'", name)
			}
			if asStrings {
				f = lineproto.StringField(f.Key, f.ValueString())
			}
			fields = append(fields, f)
		}
		if len(fields) == 0 {
			fields = append(fields, lineproto.StringField("timestamp", ts.UTC().Format(time.RFC3339Nano)))
		}

		rec, err := c.record(name, ts, fields, tags)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// HealthMeasurement is the measurement name of health check records.
const HealthMeasurement = "Health Checks"

// Health produces one record per health check result with IsHealthy
// and Message fields. The check's name contributes a name tag, which
// overrides the check's own tags and the global tags.
func Health(c Cycle, status metrics.HealthStatus) ([]*lineproto.Record, error) {
	out := make([]*lineproto.Record, 0, len(status.Results))
	for _, result := range status.Results {
		fields := []lineproto.Field{
			lineproto.BoolField("IsHealthy", result.Check.IsHealthy),
			lineproto.StringField("Message", result.Check.Message),
		}
		rec, err := c.record(HealthMeasurement, c.Timestamp, fields, Tags(result.Tags), lineproto.HealthCheckTags(result.Name))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
