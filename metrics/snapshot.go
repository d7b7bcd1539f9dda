package metrics

import "time"

// GaugeSource is a named gauge reading.
type GaugeSource struct {
	Name  string  `bson:"name" json:"name" yaml:"name"`
	Unit  Unit    `bson:"unit,omitempty" json:"unit,omitempty" yaml:"unit,omitempty"`
	Tags  Tags    `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Value float64 `bson:"value" json:"value" yaml:"value"`
}

type CounterSource struct {
	Name  string       `bson:"name" json:"name" yaml:"name"`
	Unit  Unit         `bson:"unit,omitempty" json:"unit,omitempty" yaml:"unit,omitempty"`
	Tags  Tags         `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Value CounterValue `bson:"value" json:"value" yaml:"value"`
}

type MeterSource struct {
	Name  string     `bson:"name" json:"name" yaml:"name"`
	Unit  Unit       `bson:"unit,omitempty" json:"unit,omitempty" yaml:"unit,omitempty"`
	Tags  Tags       `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Value MeterValue `bson:"value" json:"value" yaml:"value"`
}

type HistogramSource struct {
	Name  string         `bson:"name" json:"name" yaml:"name"`
	Unit  Unit           `bson:"unit,omitempty" json:"unit,omitempty" yaml:"unit,omitempty"`
	Tags  Tags           `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Value HistogramValue `bson:"value" json:"value" yaml:"value"`
}

type TimerSource struct {
	Name  string     `bson:"name" json:"name" yaml:"name"`
	Unit  Unit       `bson:"unit,omitempty" json:"unit,omitempty" yaml:"unit,omitempty"`
	Tags  Tags       `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Value TimerValue `bson:"value" json:"value" yaml:"value"`
}

type EventSource struct {
	Name  string     `bson:"name" json:"name" yaml:"name"`
	Tags  Tags       `bson:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Value EventValue `bson:"value" json:"value" yaml:"value"`
}

// Snapshot is the state of a metrics context at one instant. Child
// contexts nest their own snapshots.
type Snapshot struct {
	Context    string            `bson:"context" json:"context" yaml:"context"`
	Timestamp  time.Time         `bson:"ts" json:"ts" yaml:"ts"`
	Gauges     []GaugeSource     `bson:"gauges,omitempty" json:"gauges,omitempty" yaml:"gauges,omitempty"`
	Counters   []CounterSource   `bson:"counters,omitempty" json:"counters,omitempty" yaml:"counters,omitempty"`
	Meters     []MeterSource     `bson:"meters,omitempty" json:"meters,omitempty" yaml:"meters,omitempty"`
	Histograms []HistogramSource `bson:"histograms,omitempty" json:"histograms,omitempty" yaml:"histograms,omitempty"`
	Timers     []TimerSource     `bson:"timers,omitempty" json:"timers,omitempty" yaml:"timers,omitempty"`
	Events     []EventSource     `bson:"events,omitempty" json:"events,omitempty" yaml:"events,omitempty"`
	Children   []Snapshot        `bson:"children,omitempty" json:"children,omitempty" yaml:"children,omitempty"`
}

// Len returns the number of metrics in the snapshot, including those
// in child contexts.
func (s *Snapshot) Len() int {
	n := len(s.Gauges) + len(s.Counters) + len(s.Meters) + len(s.Histograms) + len(s.Timers) + len(s.Events)
	for idx := range s.Children {
		n += s.Children[idx].Len()
	}
	return n
}
