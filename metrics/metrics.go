// Package metrics includes the snapshot value types consumed by the
// line protocol converter: gauges, counters, meters, histograms,
// timers, events and health check results, and the Snapshot tree that
// groups them by context.
//
// The types carry bson, json and yaml struct tags so that snapshots
// can be decoded from extended JSON or BSON documents.
package metrics

import "time"

// Unit describes what a metric measures, e.g. "bytes" or "requests".
type Unit string

// UnitNone is used for unitless metrics.
const UnitNone Unit = "None"

// Kind names a metric type.
type Kind string

const (
	KindGauge     Kind = "gauge"
	KindCounter   Kind = "counter"
	KindMeter     Kind = "meter"
	KindHistogram Kind = "histogram"
	KindTimer     Kind = "timer"
	KindEvent     Kind = "event"
)

// CounterItem is the count of a single set item within a counter.
type CounterItem struct {
	Item  string `bson:"item" json:"item" yaml:"item"`
	Count int64  `bson:"count" json:"count" yaml:"count"`
}

// CounterValue is the snapshot of a counter. Count is the grand total
// across all set items.
type CounterValue struct {
	Count int64         `bson:"count" json:"count" yaml:"count"`
	Items []CounterItem `bson:"items,omitempty" json:"items,omitempty" yaml:"items,omitempty"`
}

// MeterItem is the meter of a single set item within a meter.
type MeterItem struct {
	Item  string     `bson:"item" json:"item" yaml:"item"`
	Value MeterValue `bson:"value" json:"value" yaml:"value"`
}

// MeterValue is the snapshot of a meter: a count and exponentially
// weighted rates.
type MeterValue struct {
	Count             int64       `bson:"count" json:"count" yaml:"count"`
	MeanRate          float64     `bson:"mean_rate" json:"mean_rate" yaml:"mean_rate"`
	OneMinuteRate     float64     `bson:"m1_rate" json:"m1_rate" yaml:"m1_rate"`
	FiveMinuteRate    float64     `bson:"m5_rate" json:"m5_rate" yaml:"m5_rate"`
	FifteenMinuteRate float64     `bson:"m15_rate" json:"m15_rate" yaml:"m15_rate"`
	RateUnit          string      `bson:"rate_unit,omitempty" json:"rate_unit,omitempty" yaml:"rate_unit,omitempty"`
	Items             []MeterItem `bson:"items,omitempty" json:"items,omitempty" yaml:"items,omitempty"`
}

// HistogramValue is the snapshot of a histogram's sample.
type HistogramValue struct {
	Count         int64   `bson:"count" json:"count" yaml:"count"`
	LastValue     float64 `bson:"last" json:"last" yaml:"last"`
	Min           float64 `bson:"min" json:"min" yaml:"min"`
	Mean          float64 `bson:"mean" json:"mean" yaml:"mean"`
	Max           float64 `bson:"max" json:"max" yaml:"max"`
	StdDev        float64 `bson:"stddev" json:"stddev" yaml:"stddev"`
	Median        float64 `bson:"median" json:"median" yaml:"median"`
	Percentile75  float64 `bson:"p75" json:"p75" yaml:"p75"`
	Percentile95  float64 `bson:"p95" json:"p95" yaml:"p95"`
	Percentile98  float64 `bson:"p98" json:"p98" yaml:"p98"`
	Percentile99  float64 `bson:"p99" json:"p99" yaml:"p99"`
	Percentile999 float64 `bson:"p999" json:"p999" yaml:"p999"`
	SampleSize    int64   `bson:"sample_size" json:"sample_size" yaml:"sample_size"`
}

// TimerValue combines the rate and the duration histogram of a timer.
type TimerValue struct {
	Rate           MeterValue     `bson:"rate" json:"rate" yaml:"rate"`
	Histogram      HistogramValue `bson:"histogram" json:"histogram" yaml:"histogram"`
	ActiveSessions int64          `bson:"active_sessions" json:"active_sessions" yaml:"active_sessions"`
	TotalTime      int64          `bson:"total_time" json:"total_time" yaml:"total_time"`
}

// EventDetails is a single recorded event with its own timestamp.
type EventDetails struct {
	Timestamp time.Time   `bson:"ts" json:"ts" yaml:"ts"`
	Fields    EventFields `bson:"fields,omitempty" json:"fields,omitempty" yaml:"fields,omitempty"`
}

// EventValue holds the events recorded since the last snapshot.
type EventValue struct {
	Events []EventDetails `bson:"events" json:"events" yaml:"events"`
}
