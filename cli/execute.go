package cli

// This file runs cargo and streams its structured output through the
// parser into the aggregator.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/cargo-phabricator/cargo-phabricator/aggregate"
	"github.com/cargo-phabricator/cargo-phabricator/cargojson"
	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// recordBuffer bounds how far the parser may run ahead of the aggregator
const recordBuffer = 64

type executeOptions struct {
	Binary   string
	Args     []string
	Dir      string
	Unstable bool
}

// execute runs cargo to completion and returns the finalized report.
// A non-zero cargo exit is not an error; it is carried in the report.
func (a *App) execute(ctx context.Context, logger zerolog.Logger, rc *model.RunContext, opts executeOptions) (*model.AggregatedReport, error) {
	cmd := a.command(ctx, opts.Binary, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Stderr = a.stderr
	if opts.Unstable {
		env := cmd.Env
		if env == nil {
			env = os.Environ()
		}
		cmd.Env = append(env, "RUSTC_BOOTSTRAP=1")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ExitError{Code: ExitSpawnFailed, Message: "failed to attach to cargo output", Err: err}
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, &ExitError{Code: ExitCancelled, Err: ctx.Err()}
		}
		return nil, &ExitError{Code: ExitSpawnFailed, Message: "failed to start cargo", Err: err}
	}
	logger.Debug().Int("pid", cmd.Process.Pid).Msg("cargo started")

	parser := cargojson.New(logger, rc.Subcommand(), a.stdout)
	aggregator := aggregate.New(logger)
	records := make(chan model.Record, recordBuffer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		return parser.Parse(gctx, stdout, records)
	})
	g.Go(func() error {
		for record := range records {
			if err := aggregator.Add(record); err != nil {
				return err
			}
		}
		return nil
	})
	pipelineErr := g.Wait()

	if pipelineErr != nil {
		// cargo blocks on a full pipe otherwise
		_, _ = io.Copy(io.Discard, stdout)
	}

	exitCode, waitErr := cargoExitCode(cmd.Wait())
	if ctx.Err() != nil {
		logger.Warn().Msg("Run interrupted, nothing will be submitted")
		return nil, &ExitError{Code: ExitCancelled, Err: ctx.Err()}
	}
	if waitErr != nil {
		return nil, &ExitError{Code: ExitSpawnFailed, Message: "failed waiting for cargo", Err: waitErr}
	}
	if pipelineErr != nil {
		logger.Warn().Err(pipelineErr).Msg("Reading cargo output failed, the report may be incomplete")
	}

	stats := parser.Stats()
	logger.Debug().
		Int("exit_code", exitCode).
		Int("lines", stats.Lines).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Msg("cargo finished")

	return aggregator.Finalize(exitCode), nil
}

// cargoExitCode extracts cargo's exit status from the result of cmd.Wait.
func cargoExitCode(err error) (int, error) {
	if err == nil {
		return ExitSuccess, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// terminated by a signal
			return ExitFailure, nil
		}
		return code, nil
	}
	return ExitFailure, fmt.Errorf("failed to run cargo: %w", err)
}
