package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidkennedy02/csvtohl7/config"
	"github.com/davidkennedy02/csvtohl7/hl7"
	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/observability"
	"github.com/davidkennedy02/csvtohl7/pipeline"
	"github.com/davidkennedy02/csvtohl7/version"
	"github.com/davidkennedy02/csvtohl7/writer"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFile  = flag.String("config", "", "path to config file (default: search ./config.yml)")
		inputDir    = flag.String("input", "", "input directory (overrides config)")
		outputDir   = flag.String("output", "", "output directory (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return 0
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 2
	}
	if *inputDir != "" {
		cfg.Input.Dir = *inputDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, cfg.Name)
	log.Info("starting", logger.Fields(
		"version", version.GetShortVersion(),
		"environment", cfg.Environment,
		"input", cfg.Input.Dir,
		"output", cfg.Output.Dir,
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Observability.Enabled {
		mc := observability.DefaultMeterConfig(cfg.Name)
		mc.ServiceVersion = version.GetShortVersion()
		mc.Environment = cfg.Environment
		mc.Endpoint = cfg.Observability.Endpoint
		mc.Interval = cfg.Observability.Interval
		provider, err := observability.InitMeter(ctx, mc, log)
		if err != nil {
			log.Error("metrics init failed, continuing without export", logger.ErrorFields("init_meter", err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					log.Warn("metrics shutdown failed", logger.ErrorFields("shutdown_meter", err))
				}
			}()
			metrics, err = observability.NewMetrics(observability.Meter(cfg.Name))
			if err != nil {
				log.Error("metrics registration failed", logger.ErrorFields("new_metrics", err))
				metrics = nil
			}
		}
	}

	aw, err := writer.New(cfg.Output.Dir, cfg.Output.Extension, cfg.Writer, nil, log)
	if err != nil {
		log.Error("cannot prepare output directory", logger.ErrorFields("writer", err))
		return 1
	}
	aw.OnRetry = func() { metrics.AddWriteRetry(ctx) }

	transform := hl7.NewTransformer(log)
	runner := pipeline.NewRunner(cfg.Pipeline, transform, aw, log, metrics)

	summary, err := runner.RunDir(ctx, cfg.Input.Dir)
	if err != nil {
		log.Error("run failed", logger.ErrorFields("run", err))
		return 1
	}
	if summary.Failed > 0 {
		return 1
	}
	return 0
}
