package report

import (
	"io"
	"os"

	"github.com/mongodb/grip"
	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/convert"
	"github.com/mongodb/lineproto/metrics"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Output formats produced by Config.NewWriter.
const (
	OutputLine = "line"
	OutputBSON = "bson"
)

// Config is the file representation of a reporter.
//
//	precision: ms
//	global_tags:
//	  env: prod
//	disable_health_report: false
//	formatter:
//	  lowercase: true
//	  replace_space: true
//	  context_separator: "."
//	  sort_tags: true
//	converter:
//	  event_fields_as_strings: false
//	  split_timer_items: false
//	output: line
type Config struct {
	Precision           string           `bson:"precision" json:"precision" yaml:"precision"`
	GlobalTags          metrics.Tags     `bson:"global_tags,omitempty" json:"global_tags,omitempty" yaml:"global_tags,omitempty"`
	DisableHealthReport bool             `bson:"disable_health_report" json:"disable_health_report" yaml:"disable_health_report"`
	Formatter           FormatterOptions `bson:"formatter" json:"formatter" yaml:"formatter"`
	Converter           convert.Options  `bson:"converter" json:"converter" yaml:"converter"`
	Output              string           `bson:"output" json:"output" yaml:"output"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Precision: lineproto.DefaultPrecision.ShortName(),
		Formatter: DefaultFormatterOptions(),
		Output:    OutputLine,
	}
}

// LoadConfig reads a YAML file on top of the default configuration and
// validates the result.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(err, "problem reading config file '%s'", path)
	}
	if err = yaml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrapf(err, "problem parsing config file '%s'", path)
	}
	if err = conf.Validate(); err != nil {
		return conf, errors.Wrapf(err, "invalid config file '%s'", path)
	}
	return conf, nil
}

func (c Config) Validate() error {
	catcher := grip.NewBasicCatcher()

	if _, err := lineproto.ParsePrecision(c.Precision); err != nil {
		catcher.Add(err)
	}
	catcher.ErrorfWhen(c.Output != OutputLine && c.Output != OutputBSON, "output '%s' must be one of '%s' or '%s'", c.Output, OutputLine, OutputBSON)
	catcher.NewWhen(c.Formatter.ContextSeparator == "", "formatter context separator must not be empty")
	for _, t := range c.GlobalTags {
		catcher.ErrorfWhen(t.Key == "", "global tag with value '%s' has no key", t.Value)
	}

	return catcher.Resolve()
}

// GetPrecision returns the configured precision, falling back to the
// default for invalid values.
func (c Config) GetPrecision() lineproto.Precision {
	p, err := lineproto.ParsePrecision(c.Precision)
	if err != nil {
		return lineproto.DefaultPrecision
	}
	return p
}

// NewWriter constructs the configured output writer around w.
func (c Config) NewWriter(w io.Writer) (Writer, error) {
	switch c.Output {
	case OutputLine, "":
		return NewLineWriter(w, c.GetPrecision()), nil
	case OutputBSON:
		return NewBSONWriter(w), nil
	default:
		return nil, errors.Errorf("unknown output format '%s'", c.Output)
	}
}

// NewReporter constructs a reporter that writes to w.
func (c Config) NewReporter(w io.Writer) (*Reporter, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	writer, err := c.NewWriter(w)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return NewReporter(ReporterOptions{
		Converter:           convert.New(c.Converter),
		Formatter:           NewFormatter(c.Formatter),
		Writer:              writer,
		GlobalTags:          convert.Tags(c.GlobalTags),
		DisableHealthReport: c.DisableHealthReport,
	})
}
