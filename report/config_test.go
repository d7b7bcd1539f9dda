package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "lineproto.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0600))
	return fn
}

func TestConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		conf := DefaultConfig()
		require.NoError(t, conf.Validate())
		assert.Equal(t, lineproto.Milliseconds, conf.GetPrecision())
		assert.True(t, conf.Formatter.SortTags)
	})
	t.Run("Load", func(t *testing.T) {
		conf, err := LoadConfig(writeConfig(t, `
precision: s
global_tags:
  zone: east
  app: api
disable_health_report: true
formatter:
  context_separator: "/"
converter:
  split_timer_items: true
output: bson
`))
		require.NoError(t, err)
		assert.Equal(t, lineproto.Seconds, conf.GetPrecision())
		assert.Equal(t, metrics.MakeTags("zone", "east", "app", "api"), conf.GlobalTags)
		assert.True(t, conf.DisableHealthReport)
		assert.Equal(t, "/", conf.Formatter.ContextSeparator)
		assert.True(t, conf.Formatter.Lowercase)
		assert.True(t, conf.Converter.SplitTimerItems)
		assert.False(t, conf.Converter.EventFieldsAsStrings)
		assert.Equal(t, OutputBSON, conf.Output)
	})
	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
	t.Run("MalformedFile", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "precision: [s\n"))
		assert.Error(t, err)
	})
	t.Run("Invalid", func(t *testing.T) {
		for _, test := range []struct {
			name string
			conf Config
		}{
			{name: "Precision", conf: Config{Precision: "weeks", Output: OutputLine, Formatter: DefaultFormatterOptions()}},
			{name: "Output", conf: Config{Precision: "ms", Output: "csv", Formatter: DefaultFormatterOptions()}},
			{name: "Separator", conf: Config{Precision: "ms", Output: OutputLine}},
			{name: "TagKey", conf: Config{Precision: "ms", Output: OutputLine, Formatter: DefaultFormatterOptions(), GlobalTags: metrics.MakeTags("", "x")}},
		} {
			t.Run(test.name, func(t *testing.T) {
				assert.Error(t, test.conf.Validate())
				_, err := test.conf.NewReporter(&bytes.Buffer{})
				assert.Error(t, err)
			})
		}
		assert.Equal(t, lineproto.DefaultPrecision, Config{Precision: "weeks"}.GetPrecision())
	})
	t.Run("NewWriter", func(t *testing.T) {
		conf := DefaultConfig()
		w, err := conf.NewWriter(&bytes.Buffer{})
		require.NoError(t, err)
		assert.IsType(t, &lineWriter{}, w)

		conf.Output = OutputBSON
		w, err = conf.NewWriter(&bytes.Buffer{})
		require.NoError(t, err)
		assert.IsType(t, &bsonWriter{}, w)

		conf.Output = "csv"
		_, err = conf.NewWriter(&bytes.Buffer{})
		assert.Error(t, err)
	})
	t.Run("NewReporter", func(t *testing.T) {
		conf := DefaultConfig()
		conf.Precision = "s"
		conf.GlobalTags = metrics.MakeTags("env", "prod")

		buf := &bytes.Buffer{}
		r, err := conf.NewReporter(buf)
		require.NoError(t, err)

		batch, err := r.Batch(&metrics.Snapshot{Context: "App", Timestamp: reportTime, Gauges: []metrics.GaugeSource{{Name: "g", Value: 2}}}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, batch.Len())
		assert.Equal(t, "app.g.gauge,env=prod value=2 1704164645", batch.LineProtocol(conf.GetPrecision()))
	})
}
