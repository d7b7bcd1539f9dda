package report

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/convert"
	"github.com/mongodb/lineproto/metrics"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu      sync.Mutex
	batches []*lineproto.Batch
	err     error
}

func (w *captureWriter) Write(_ context.Context, b *lineproto.Batch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, b)
	return w.err
}

func (w *captureWriter) lastBatch(t *testing.T) []string {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	require.NotEmpty(t, w.batches)

	var out []string
	for _, r := range w.batches[len(w.batches)-1].Records() {
		out = append(out, r.LineProtocol(lineproto.DefaultPrecision))
	}
	return out
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batches)
}

var (
	reportTime = time.Date(2024, 1, 2, 3, 4, 5, 678000000, time.UTC)
	expTime    = lineproto.FormatTimestamp(reportTime, lineproto.DefaultPrecision)
)

func reportTags() metrics.Tags {
	return metrics.MakeTags("key1", "value1", "tag2", "", "tag3", "", "key4", "value4")
}

func emptyHealth() metrics.HealthStatus { return metrics.HealthStatus{} }

func newTestReporter(t *testing.T, opts ReporterOptions) (*Reporter, *captureWriter) {
	t.Helper()
	writer := &captureWriter{}
	opts.Writer = writer
	r, err := NewReporter(opts)
	require.NoError(t, err)
	return r, writer
}

func TestReporterOptions(t *testing.T) {
	_, err := NewReporter(ReporterOptions{})
	assert.Error(t, err)

	opts := ReporterOptions{Writer: &captureWriter{}}
	require.NoError(t, opts.Validate())
	assert.NotNil(t, opts.Converter)
	assert.NotNil(t, opts.Formatter)
}

func TestReporter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("EmptySnapshot", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{Context: "TestContext", Timestamp: reportTime}, emptyHealth))
		require.Equal(t, 1, w.count())
		assert.Zero(t, w.batches[0].Len())
	})
	t.Run("Gauge", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Context:   "TestContext",
			Timestamp: reportTime,
			Gauges:    []metrics.GaugeSource{{Name: "test_gauge", Unit: "bytes", Tags: reportTags(), Value: 123.456}},
		}, emptyHealth))
		assert.Equal(t, []string{"testcontext.test_gauge.gauge,key1=value1,key4=value4 value=123.456 " + expTime}, w.lastBatch(t))
	})
	t.Run("Counter", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		s := &metrics.Snapshot{
			Context:   "TestContext",
			Timestamp: reportTime,
			Counters:  []metrics.CounterSource{{Name: "test_counter", Tags: reportTags(), Value: metrics.CounterValue{Count: 300}}},
		}
		require.NoError(t, r.RunReport(ctx, s, emptyHealth))
		assert.Equal(t, []string{"testcontext.test_counter.counter,key1=value1,key4=value4 count=300i " + expTime}, w.lastBatch(t))

		s.Counters[0].Value = metrics.CounterValue{Count: 400, Items: []metrics.CounterItem{{Item: "item1", Count: 100}}}
		require.NoError(t, r.RunReport(ctx, s, emptyHealth))
		assert.Equal(t, []string{
			"testcontext.test_counter.counter,key1=value1,key4=value4 item1_count=100i,item1_percent=25 " + expTime,
			"testcontext.test_counter.counter,key1=value1,key4=value4 count=400i " + expTime,
		}, w.lastBatch(t))
	})
	t.Run("Meter", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Context:   "TestContext",
			Timestamp: reportTime,
			Meters: []metrics.MeterSource{{Name: "test_meter", Tags: reportTags(), Value: metrics.MeterValue{
				Count:    400,
				MeanRate: 2.5,
				Items:    []metrics.MeterItem{{Item: "item1", Value: metrics.MeterValue{Count: 100, MeanRate: 0.5}}},
			}}},
		}, emptyHealth))
		assert.Equal(t, []string{
			"testcontext.test_meter.meter,key1=value1,key4=value4 item1_count=100i,item1_percent=25,item1_mean_rate=0.5,item1_1_min_rate=0,item1_5_min_rate=0,item1_15_min_rate=0 " + expTime,
			"testcontext.test_meter.meter,key1=value1,key4=value4 count=400i,mean_rate=2.5,1_min_rate=0,5_min_rate=0,15_min_rate=0 " + expTime,
		}, w.lastBatch(t))
	})
	t.Run("Histogram", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Context:   "TestContext",
			Timestamp: reportTime,
			Histograms: []metrics.HistogramSource{{Name: "test_hist", Tags: reportTags(), Value: metrics.HistogramValue{
				Count: 2, LastValue: 100, Min: 100, Mean: 200, Max: 300, StdDev: 100, Median: 300, SampleSize: 2,
				Percentile75: 300, Percentile95: 300, Percentile98: 300, Percentile99: 300, Percentile999: 300,
			}}},
		}, emptyHealth))
		assert.Equal(t, []string{
			"testcontext.test_hist.histogram,key1=value1,key4=value4 count=2i,last=100,min=100,mean=200,max=300,stddev=100,median=300,sample_size=2i,percentile_75%=300,percentile_95%=300,percentile_98%=300,percentile_99%=300,percentile_99.9%=300 " + expTime,
		}, w.lastBatch(t))
	})
	t.Run("Timer", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Context:   "TestContext",
			Timestamp: reportTime,
			Timers: []metrics.TimerSource{{Name: "test_timer", Tags: reportTags(), Value: metrics.TimerValue{
				TotalTime: 100,
				Rate:      metrics.MeterValue{Count: 1},
				Histogram: metrics.HistogramValue{Count: 1, LastValue: 100, Min: 100, Mean: 100, Max: 100, Median: 100, SampleSize: 1,
					Percentile75: 100, Percentile95: 100, Percentile98: 100, Percentile99: 100, Percentile999: 100},
			}}},
		}, emptyHealth))
		batch := w.lastBatch(t)
		require.Len(t, batch, 1)
		assert.True(t, strings.HasPrefix(batch[0], "testcontext.test_timer.timer,key1=value1,key4=value4 active_sessions=0i,total_time=100i,count=1i,"))
		assert.True(t, strings.HasSuffix(batch[0], ",1_min_rate=0,5_min_rate=0,15_min_rate=0,last=100,min=100,mean=100,max=100,stddev=0,median=100,sample_size=1i,percentile_75%=100,percentile_95%=100,percentile_98%=100,percentile_99%=100,percentile_99.9%=100 "+expTime))
	})
	t.Run("Event", func(t *testing.T) {
		first := metrics.MakeEventFields(8)
		require.NoError(t, first.Add("stringTag", "abc"))
		require.NoError(t, first.Add("intTag", 10))
		require.NoError(t, first.Add("longTag", int64(10)))
		require.NoError(t, first.Add("doubleTag", 10.1))
		require.NoError(t, first.Add("floatTag", float32(1.0)))
		require.NoError(t, first.Add("decimalTag", 12.0))
		require.NoError(t, first.Add("byteTag", uint8(11)))
		require.NoError(t, first.Add("boolTag", true))
		second := metrics.MakeEventFields(1)
		require.NoError(t, second.Add("stringTag", "xyz"))

		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Context:   "TestContext",
			Timestamp: reportTime,
			Events: []metrics.EventSource{{Name: "test_evnt", Tags: reportTags(), Value: metrics.EventValue{Events: []metrics.EventDetails{
				{Timestamp: reportTime, Fields: first},
				{Timestamp: reportTime, Fields: second},
			}}}},
		}, emptyHealth))
		assert.Equal(t, []string{
			`testcontext.test_evnt.event,key1=value1,key4=value4 stringtag="abc",inttag=10i,longtag=10i,doubletag=10.1,floattag=1,decimaltag=12,bytetag=11i,booltag=True ` + expTime,
			`testcontext.test_evnt.event,key1=value1,key4=value4 stringtag="xyz" ` + expTime,
		}, w.lastBatch(t))
	})
	t.Run("HealthChecks", func(t *testing.T) {
		health := func() metrics.HealthStatus {
			return metrics.HealthStatus{Results: []metrics.HealthCheckResult{
				metrics.Healthy("Health Check 1", "Healthy check!"),
				metrics.Unhealthy("Health Check 2", "Unhealthy check!"),
				metrics.Healthy("Health Check 3", "Healthy check!", metrics.Tag{Key: "tag3", Value: "key3"}),
				metrics.Healthy("Health Check 4", "Healthy check!", metrics.Tag{Key: "tag 4", Value: "key 4"}),
				metrics.Healthy("Name=Health Check 5", "Healthy check!", metrics.Tag{Key: "tag5", Value: "key5"}),
			}}
		}

		r, w := newTestReporter(t, ReporterOptions{})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{Context: "TestContext", Timestamp: reportTime}, health))
		assert.Equal(t, []string{
			`health_checks,name=health_check_1 ishealthy=True,message="Healthy check!" ` + expTime,
			`health_checks,name=health_check_2 ishealthy=False,message="Unhealthy check!" ` + expTime,
			`health_checks,name=health_check_3,tag3=key3 ishealthy=True,message="Healthy check!" ` + expTime,
			`health_checks,name=health_check_4,tag_4=key\ 4 ishealthy=True,message="Healthy check!" ` + expTime,
			`health_checks,name=health_check_5,tag5=key5 ishealthy=True,message="Healthy check!" ` + expTime,
		}, w.lastBatch(t))

		t.Run("Disabled", func(t *testing.T) {
			r, w := newTestReporter(t, ReporterOptions{DisableHealthReport: true})
			require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{Timestamp: reportTime}, health))
			assert.Zero(t, w.batches[0].Len())
		})
	})
	t.Run("ChildContextsAndGlobalTags", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{GlobalTags: lineproto.TagsFromPairs("env", "prod", "host", "a")})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Context:   "App",
			Timestamp: reportTime,
			Gauges:    []metrics.GaugeSource{{Name: "root", Value: 1}},
			Children: []metrics.Snapshot{
				{Context: "Sub System", Gauges: []metrics.GaugeSource{{Name: "inner", Tags: metrics.MakeTags("host", "b"), Value: 2}}},
			},
		}, nil))
		assert.Equal(t, []string{
			"app.root.gauge,env=prod,host=a value=1 " + expTime,
			"app.sub_system.inner.gauge,env=prod,host=b value=2 " + expTime,
		}, w.lastBatch(t))
	})
	t.Run("ConversionErrorsStillWrite", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		err := r.RunReport(ctx, &metrics.Snapshot{
			Timestamp: reportTime,
			Gauges:    []metrics.GaugeSource{{Name: "ok", Value: 1}},
			Events: []metrics.EventSource{{Name: "bad", Value: metrics.EventValue{Events: []metrics.EventDetails{
				{Fields: metrics.EventFields{{Name: "list", Value: []int{1}}}},
			}}}},
		}, nil)
		assert.Error(t, err)
		assert.Equal(t, []string{"ok.gauge value=1 " + expTime}, w.lastBatch(t))
	})
	t.Run("WriterError", func(t *testing.T) {
		w := &captureWriter{err: errors.New("closed")}
		r, err := NewReporter(ReporterOptions{Writer: w})
		require.NoError(t, err)
		err = r.RunReport(ctx, &metrics.Snapshot{Gauges: []metrics.GaugeSource{{Name: "g"}}}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")
	})
	t.Run("NilSnapshot", func(t *testing.T) {
		r, w := newTestReporter(t, ReporterOptions{})
		err := r.RunReport(ctx, nil, nil)
		require.Error(t, err)
		assert.Equal(t, convert.ErrNilValue, errors.Cause(err))
		assert.Zero(t, w.count())
	})
	t.Run("ConverterOptions", func(t *testing.T) {
		fields := metrics.EventFields{}
		require.NoError(t, fields.Add("n", 3))
		r, w := newTestReporter(t, ReporterOptions{Converter: convert.New(convert.Options{EventFieldsAsStrings: true})})
		require.NoError(t, r.RunReport(ctx, &metrics.Snapshot{
			Timestamp: reportTime,
			Events:    []metrics.EventSource{{Name: "e", Value: metrics.EventValue{Events: []metrics.EventDetails{{Timestamp: reportTime, Fields: fields}}}}},
		}, nil))
		assert.Equal(t, []string{`e.event n="3" ` + expTime}, w.lastBatch(t))
	})
}
