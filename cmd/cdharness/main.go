package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"collectd.szuro.net/internal/config"
	"collectd.szuro.net/internal/harness"
	"collectd.szuro.net/internal/logger"
	"collectd.szuro.net/internal/sink"
	pkglogger "collectd.szuro.net/pkg/logger"
	"collectd.szuro.net/pkg/oconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
)

var buildInfo = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "collectd_harness_build_info",
	Help: "collectd plugin harness build information",
	ConstLabels: map[string]string{
		"version":    config.Version,
		"commit":     config.Commit,
		"build_date": config.BuildDate,
	},
})

var configFlag = cli.StringFlag{
	Name:  "c, config",
	Usage: "path of the harness config file",
	Value: "/etc/collectd-harness.yaml",
}

func main() {
	app := cli.NewApp()
	app.Name = "cdharness"
	app.Usage = "run collectd plugins written in Go without collectd"
	app.Version = fmt.Sprintf("%s (commit %s, built %s)", config.Version, config.Commit, config.BuildDate)
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "start the plugins and read them every interval",
			Flags:  []cli.Flag{configFlag},
			Action: run,
		},
		{
			Name:   "check-config",
			Usage:  "parse the harness config and the collectd config, then exit",
			Flags:  []cli.Flag{configFlag},
			Action: checkConfig,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("Exiting", slog.Any("error", err))
		os.Exit(1)
	}
}

func load(c *cli.Context) (config.HarnessConf, error) {
	conf, err := config.ParseHarnessConfig(c.String("config"))
	if err != nil {
		return conf, err
	}
	logger.SetLogLevel(conf.GetLogLevel())
	pkglogger.SetSink(logger.Sink())
	return conf, nil
}

func checkConfig(c *cli.Context) error {
	conf, err := load(c)
	if err != nil {
		return err
	}
	items, err := harness.Load(conf)
	if err != nil {
		return err
	}

	loaded := oconfig.LoadedPlugins(items)
	for _, p := range conf.Plugins {
		_, hasBlock := oconfig.FindPlugin(items, p.Name)
		fmt.Printf("plugin %s: path=%s block=%t\n", p.Name, p.Path, hasBlock)
	}
	fmt.Printf("LoadPlugin lines: %v\n", loaded)
	for _, s := range conf.Sinks {
		fmt.Printf("sink %s: type=%s\n", s.Name, s.Type)
	}
	return nil
}

func run(c *cli.Context) error {
	conf, err := load(c)
	if err != nil {
		return err
	}
	items, err := harness.Load(conf)
	if err != nil {
		return err
	}

	sinks := make([]sink.Sink, 0, len(conf.Sinks))
	for i := range conf.Sinks {
		s, err := conf.Sinks[i].ToSink(conf)
		if err != nil {
			for _, opened := range sinks {
				opened.Close()
			}
			return err
		}
		sinks = append(sinks, s)
	}

	h, err := harness.New(conf, items, sinks, harness.StartProcess)
	if err != nil {
		return err
	}
	if err := h.Start(); err != nil {
		logger.Warn("Some plugins failed to start", slog.Any("error", err))
	}
	buildInfo.Set(1)

	http.Handle("/metrics", promhttp.Handler())
	listen := fmt.Sprintf("%s:%d", conf.Http.ListenAddress, conf.Http.ListenPort)
	srv := &http.Server{Addr: listen}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	logger.Info("Harness running", slog.String("listen", listen), slog.Duration("interval", conf.Interval))
	h.Run(ctx)

	logger.Info("Exiting...")
	srv.Close()
	return h.Stop()
}
