package cli

import (
	"errors"

	cargocmd "github.com/cargo-phabricator/cargo-phabricator/cli/cargo"
	"github.com/cargo-phabricator/cargo-phabricator/harbormaster"
	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// run executes one subcommand: resolve settings, run cargo, report the
// result to Harbormaster and mirror cargo's exit code.
func (a *App) run(c *cli.Context, sub model.Subcommand) error {
	logger := a.logger.With().
		Str("run", uuid.NewString()).
		Str("subcommand", string(sub)).
		Logger()

	workDir, err := a.workingDir()
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	rc, err := resolveRunContext(logger, workDir, sub, settings{
		PhabricatorURI: c.String("phabricator-uri"),
		Token:          c.String("conduit-token"),
		BuildPHID:      c.String("build-phid"),
		Finalize:       c.Bool("finalize"),
	})
	if err != nil {
		var cfgErr *model.ConfigError
		if errors.As(err, &cfgErr) {
			return &ExitError{Code: ExitConfig, Err: err}
		}
		return &ExitError{Code: ExitFailure, Err: err}
	}

	binary := c.String("cargo")
	args := structuredArgs(sub, removeFirstDashDash(c.Args().Slice()))
	logger.Info().
		Str("command", cargocmd.CommandLine(binary, args)).
		Str("dir", workDir).
		Msg("Running cargo")

	report, err := a.execute(c.Context, logger, rc, executeOptions{
		Binary:   binary,
		Args:     args,
		Dir:      workDir,
		Unstable: c.Bool("unstable-options"),
	})
	if err != nil {
		return err
	}

	newRenderer(a.stderr, a.colorize).Report(report)

	payload := harbormaster.Translate(report, rc)
	client := harbormaster.NewClient(logger, a.clientOptions...)
	if err := client.Submit(c.Context, rc, payload); err != nil {
		logger.Error().
			Err(err).
			Str("kind", harbormaster.KindOf(err).String()).
			Int("exit_code", report.ExitCode).
			Msg("Harbormaster submission failed")

		if c.Context.Err() != nil {
			return exitWith(ExitCancelled)
		}
		if report.ExitCode == ExitSuccess {
			return exitWith(ExitSubmissionFailed)
		}
		return exitWith(report.ExitCode)
	}

	logger.Info().
		Str("type", string(payload.Type)).
		Int("lint", len(payload.Lint)).
		Int("unit", len(payload.Unit)).
		Int("exit_code", report.ExitCode).
		Msg("Results submitted to Harbormaster")
	return exitWith(report.ExitCode)
}
