package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
	"github.com/mongodb/grip/send"
	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/report"
	"github.com/pkg/errors"
)

func signalListener(ctx context.Context, trigger context.CancelFunc) {
	defer recovery.LogStackTraceAndContinue("graceful shutdown")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-sigChan:
		trigger()
	case <-ctx.Done():
	}
}

// checkLines parses every line of the input as line protocol and
// returns the number of valid records.
func checkLines(in io.Reader, p lineproto.Precision) (int, error) {
	catcher := grip.NewBasicCatcher()
	stream := bufio.NewScanner(in)

	count, lineno := 0, 0
	for stream.Scan() {
		lineno++
		if len(stream.Bytes()) == 0 {
			continue
		}
		if _, err := lineproto.ParseLine(stream.Text(), p); err != nil {
			catcher.Wrapf(err, "line %d", lineno)
			continue
		}
		count++
	}
	catcher.Add(stream.Err())
	return count, catcher.Resolve()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	grip.GetSender().SetLevel(send.LevelInfo{Threshold: level.Info})

	var (
		configPath string
		input      string
		precision  string
		output     string
		follow     bool
		check      bool
		debug      bool
	)

	flag.StringVar(&configPath, "config", "", "path to a yaml reporter config file")
	flag.StringVar(&input, "input", "", "read newline-delimited json snapshots from this file (defaults to standard input)")
	flag.StringVar(&precision, "precision", "", "timestamp precision (ns, us, ms, s, m, h), overrides the config file")
	flag.StringVar(&output, "output", "", "output format (line or bson), overrides the config file")
	flag.BoolVar(&follow, "follow", false, "watch the input file for new snapshots")
	flag.BoolVar(&check, "check", false, "validate line protocol input instead of converting snapshots")
	flag.BoolVar(&debug, "debug", false, "log at debug level")
	flag.Parse()

	if debug {
		grip.GetSender().SetLevel(send.LevelInfo{Threshold: level.Debug})
	}

	conf := report.DefaultConfig()
	if configPath != "" {
		var err error
		conf, err = report.LoadConfig(configPath)
		grip.EmergencyFatal(errors.Wrap(err, "problem loading config"))
	}
	if precision != "" {
		conf.Precision = precision
	}
	if output != "" {
		conf.Output = output
	}
	grip.EmergencyFatal(errors.Wrap(conf.Validate(), "invalid configuration"))

	if check {
		in := io.Reader(os.Stdin)
		if input != "" {
			f, err := os.Open(input)
			grip.EmergencyFatal(errors.Wrapf(err, "problem opening file '%s'", input))
			defer f.Close()
			in = f
		}

		count, err := checkLines(in, conf.GetPrecision())
		grip.Info(message.Fields{"op": "check", "valid": count, "input": input})
		grip.EmergencyFatal(err)
		return
	}

	reporter, err := conf.NewReporter(os.Stdout)
	grip.EmergencyFatal(errors.Wrap(err, "problem building reporter"))

	opts := report.StreamOptions{
		FileName: input,
		Follow:   follow,
		Reporter: reporter,
	}
	if input == "" {
		opts.InputSource = os.Stdin
	}

	go signalListener(ctx, cancel)

	err = report.ConvertJSONStream(ctx, opts)
	if ctx.Err() != nil {
		grip.Debug(message.WrapError(err, "stream stopped"))
		return
	}
	grip.EmergencyFatal(err)
}
