// sstunnel is a shadowsocks local tunnel: it listens on a local address and
// forwards every connection, through one of the configured shadowsocks
// servers, to a single fixed target.
//
// Configuration comes from a config file (-c) and command line flags; flags
// win where both set a value. Run with -h for the flag list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/1nfsr/sstunnel/internal/config"
	"github.com/1nfsr/sstunnel/internal/lifecycle"
	"github.com/1nfsr/sstunnel/internal/proxy"
	"github.com/1nfsr/sstunnel/internal/rlimit"
	"github.com/1nfsr/sstunnel/pkg/logger"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 after a shutdown signal, 1 when the
// server stops on its own, 2 for configuration errors.
func run(args []string, stdout, stderr io.Writer) int {
	opts, fs, err := parseArgs(args)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(stdout, usage(fs))
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n%s", err, usage(fs))
		return 2
	}
	if opts.Version {
		fmt.Fprintf(stdout, "sstunnel %s\n", version)
		return 0
	}

	log := logger.Init(logger.Options{
		Name:        "sstunnel",
		Verbosity:   opts.Verbose,
		WithoutTime: opts.LogWithoutTime,
		Writer:      stderr,
	})

	cfg, err := resolveConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n\n%s", err, usage(fs))
		return 2
	}

	if cfg.Nofile != nil {
		if err := rlimit.SetNofile(*cfg.Nofile); err != nil {
			log.Warn("%v", err)
		}
	}
	if opts.SingleThreaded {
		runtime.GOMAXPROCS(1)
	}

	tun, err := proxy.NewTunnel(*cfg, log)
	if err != nil {
		log.Error("Failed to create tunnel: %v", err)
		return 1
	}

	log.Info("shadowsocks tunnel %s", version)

	shutdown, stop := lifecycle.NotifyShutdown(context.Background())
	defer stop()

	if err := lifecycle.Supervise(context.Background(), tun.Serve, shutdown); err != nil {
		log.Error("%v", err)
		return 1
	}
	log.Debug("shutdown signal received")
	return 0
}

// resolveConfig loads the config file, applies the flags and validates the
// result. Nothing is started here.
func resolveConfig(opts *options) (*config.Config, error) {
	var base *config.Config
	if opts.ConfigPath != "" {
		var err error
		base, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Resolve(base, opts.Overrides)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func usage(fs *pflag.FlagSet) string {
	return "Usage: sstunnel [options]\n\n" + fs.FlagUsages()
}
