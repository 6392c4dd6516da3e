package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"statebag/internal/app"
	"statebag/internal/config"
	"statebag/internal/logging"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, logging.New))
}

// run returns the process exit code so deferred cleanup, including the
// logger flush, happens on every path.
func run(argv []string, stdin io.Reader, stdout, stderr io.Writer, newLogger func(config.LoggingConfig) *zap.Logger) int {
	flags := flag.NewFlagSet("statebag", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to a .yaml or .toml config file")
	envPath := flags.String("env", ".env", "dotenv file loaded before the config")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: statebag [flags] <get|dump|add|update|remove|serve> [args]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(argv); err != nil {
		return 2
	}

	if err := config.LoadEnv(*envPath); err != nil {
		fmt.Fprintf(stderr, "failed to load %s: %v\n", *envPath, err)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	log := newLogger(cfg.Log)
	defer func() { _ = log.Sync() }()

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		return 1
	}
	defer application.Close()

	if args[0] == "serve" {
		log.Info("serving commands from stdin", zap.String("key", cfg.Store.Key))
		err = application.Serve(ctx, stdin, stdout)
	} else {
		err = application.Exec(ctx, args, stdout)
	}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, app.ErrUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		log.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		return 1
	}
}
