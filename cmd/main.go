package main

import (
	"SecretFinder/internal"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "secretfinder",
		Usage: "Scan source trees for lines that look like leaked secrets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target-dir",
				Usage: "Root directory to scan (required, may come from --config)",
			},
			&cli.UintFlag{
				Name:  "workers-amount",
				Usage: "Amount of parallel workers",
				Value: internal.DefaultWorkers,
			},
			&cli.UintFlag{
				Name:  "maximum-text-length",
				Usage: "Maximum length of reported line text",
				Value: internal.DefaultMaxTextLength,
			},
			&cli.StringSliceFlag{
				Name:  "extension",
				Usage: "File name suffixes to scan (comma separated)",
				Value: cli.NewStringSlice(internal.DefaultExtension),
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Glob patterns of paths to skip, e.g. '**/venv/**'",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Max directory depth (0 - unlimited)",
			},
			&cli.BoolFlag{
				Name:  "archives",
				Usage: "Also scan matching files inside archives (.zip,.tar,.gz,...)",
			},
			&cli.StringFlag{
				Name:  "pattern-file",
				Usage: "YAML file with the pattern table (defaults to the built-in table)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML file with run settings; explicit flags take precedence",
			},
			&cli.IntFlag{
				Name:  "queue-size",
				Usage: "Capacity of the work and result queues",
				Value: internal.DefaultQueueSize,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Global timeout for scan (e.g. 10m, 1h)",
			},
			&cli.StringFlag{
				Name:  "logfile",
				Usage: "Write logs into file instead of stderr",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	var fc internal.FileConfig
	if p := c.String("config"); p != "" {
		var err error
		if fc, err = internal.LoadConfigFile(p); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	logLevel := c.String("log-level")
	if !c.IsSet("log-level") && fc.LogLevel != nil {
		logLevel = *fc.LogLevel
	}
	internal.InitLogger(c.String("logfile"), logLevel)

	opts, err := buildOptions(c, fc)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := opts.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	opts.Prepare()

	set, err := loadPatternSet(c, fc)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	timeout := c.Duration("timeout")
	if !c.IsSet("timeout") {
		if timeout, err = fc.TimeoutDuration(); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}
	var (
		base   = context.Background()
		cancel context.CancelFunc
	)
	if timeout > 0 {
		base, cancel = context.WithTimeout(base, timeout)
	} else {
		base, cancel = context.WithCancel(base)
	}
	defer cancel()
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"target":   opts.TargetDir,
		"workers":  opts.Workers,
		"patterns": set.Len(),
	}).Info("SecretFinder started")

	var stats internal.AppStats
	stats.Start()
	scanner := internal.NewScanner(set, &stats)
	if err := scanner.Scan(ctx, opts, internal.NewResultSink(c.App.Writer, &stats)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logrus.Warn("Scan cancelled")
		} else {
			return cli.Exit(err.Error(), 1)
		}
	}

	logrus.Infof("Scan finished in %s: files=%d findings=%d errors=%d",
		stats.Elapsed(), stats.FilesProcessed.Load(), stats.Findings.Load(), stats.Errors.Load())
	return nil
}

// buildOptions layers defaults, the config file and explicitly set flags.
func buildOptions(c *cli.Context, fc internal.FileConfig) (internal.ScanOptions, error) {
	opts := internal.ScanOptions{
		TargetDir:     c.String("target-dir"),
		Workers:       int(c.Uint("workers-amount")),
		MaxTextLength: int(c.Uint("maximum-text-length")),
		QueueSize:     c.Int("queue-size"),
		Extensions:    c.StringSlice("extension"),
		Exclude:       c.StringSlice("exclude"),
		Depth:         c.Int("depth"),
		Archives:      c.Bool("archives"),
	}
	fc.Apply(&opts)

	if c.IsSet("target-dir") {
		opts.TargetDir = c.String("target-dir")
	}
	if c.IsSet("workers-amount") {
		opts.Workers = int(c.Uint("workers-amount"))
	}
	if c.IsSet("maximum-text-length") {
		opts.MaxTextLength = int(c.Uint("maximum-text-length"))
	}
	if c.IsSet("queue-size") {
		opts.QueueSize = c.Int("queue-size")
	}
	if c.IsSet("extension") {
		opts.Extensions = c.StringSlice("extension")
	}
	if c.IsSet("exclude") {
		opts.Exclude = c.StringSlice("exclude")
	}
	if c.IsSet("depth") {
		opts.Depth = c.Int("depth")
	}
	if c.IsSet("archives") {
		opts.Archives = c.Bool("archives")
	}
	if opts.TargetDir == "" {
		return opts, internal.ErrTargetDirRequired
	}
	return opts, nil
}

func loadPatternSet(c *cli.Context, fc internal.FileConfig) (*internal.PatternSet, error) {
	path := c.String("pattern-file")
	if path == "" && fc.PatternFile != nil {
		path = *fc.PatternFile
	}
	defs := internal.DefaultPatternDefs()
	if path != "" {
		var err error
		if defs, err = internal.LoadPatternFile(path); err != nil {
			return nil, err
		}
	}
	return internal.NewPatternSet(defs)
}
