package cli

import (
	"errors"
	"fmt"

	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/urfave/cli/v2"
)

// Exit codes used besides the one mirrored from cargo
const (
	ExitSuccess = 0
	// cargo failed without an exit status of its own (killed by a signal)
	ExitFailure = 1
	// a setting was missing or invalid; cargo was never spawned
	ExitConfig = 2
	// cargo succeeded but the report could not be submitted
	ExitSubmissionFailed = 125
	// cargo could not be started
	ExitSpawnFailed = 127
	// the run was interrupted and nothing was submitted
	ExitCancelled = 130
)

// ExitError carries the process exit code out of a subcommand. Message may be
// empty when everything worth saying was already logged.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return ""
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode implements cli.ExitCoder
func (e *ExitError) ExitCode() int {
	return e.Code
}

// exitWith returns nil for a zero code so urfave/cli treats the run as a success.
func exitWith(code int) error {
	if code == ExitSuccess {
		return nil
	}
	return &ExitError{Code: code}
}

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return ExitFailure
}
