package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	reporter "github.com/ethereum-optimism/infra/op-reporter"
	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-reporter"
	app.Usage = "Go test result reporter"
	app.Description = "op-reporter runs go test and publishes per-test results as JSON record files and live status lines"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Commands = []*cli.Command{
		{
			Name:      "run",
			Usage:     "Run go test once and report the results",
			ArgsUsage: "[packages]",
			Flags:     cliapp.ProtectFlags(flags.RunFlags),
			Action:    cliapp.LifecycleCmd(run),
		},
		{
			Name:   "watch",
			Usage:  "Render the progress of a run from the report directory or stdin",
			Flags:  cliapp.ProtectFlags(flags.WatchFlags),
			Action: cliapp.LifecycleCmd(watch),
		},
	}
	app.DefaultCommand = "run"
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), reporter.ExitCode(err)))
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// newLogger writes to stderr, stdout carries test output and status lines
func newLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	lgr := oplog.NewLogger(os.Stderr, logCfg)
	oplog.SetGlobalLogHandler(lgr.Handler())
	oplog.SetupDefaults()
	return lgr
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	lgr := newLogger(ctx)

	cfg, err := reporter.NewConfig(ctx, lgr)
	if err != nil {
		return nil, reporter.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	r, err := reporter.New(cfg, Version, closeApp)
	if err != nil {
		return nil, reporter.NewRuntimeError(fmt.Errorf("failed to create reporter: %w", err))
	}
	return r, nil
}

func watch(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	lgr := newLogger(ctx)

	cfg, err := reporter.NewConfig(ctx, lgr)
	if err != nil {
		return nil, reporter.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	w, err := reporter.NewWatcher(cfg, closeApp)
	if err != nil {
		return nil, reporter.NewRuntimeError(fmt.Errorf("failed to create watcher: %w", err))
	}
	return w, nil
}
