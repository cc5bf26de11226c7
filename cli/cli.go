package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	cargocmd "github.com/cargo-phabricator/cargo-phabricator/cli/cargo"
	"github.com/cargo-phabricator/cargo-phabricator/harbormaster"
	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "cargo-phabricator"

// cargoSubcommandName is passed as the first argument when cargo runs us as `cargo phabricator`
const cargoSubcommandName = "phabricator"

type App struct {
	logger zerolog.Logger
	cli    *cli.App

	stdout   io.Writer
	stderr   io.Writer
	colorize bool
	workDir  string

	command       func(ctx context.Context, binary string, args ...string) *exec.Cmd
	clientOptions []harbormaster.ClientOption
}

var commandUsage = map[model.Subcommand]string{
	model.SubcommandBuild: "Run cargo build and report compiler diagnostics",
	model.SubcommandLint:  "Run cargo clippy and report lints",
	model.SubcommandCheck: "Run cargo check and report compiler diagnostics",
	model.SubcommandTest:  "Run cargo test and report unit test results",
	model.SubcommandFmt:   "Run cargo fmt and report formatting mismatches",
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger:   logger,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		colorize: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		command:  cargocmd.Command,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Report cargo diagnostics and test results to Phabricator Harbormaster",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
				&cli.StringFlag{
					Name:    "phabricator-uri",
					Usage:   "Address at which to find Phabricator (.arcconfig or Cargo.toml metadata may provide a default)",
					EnvVars: []string{"PHABRICATOR_URI"},
				},
				&cli.StringFlag{
					Name:    "conduit-token",
					Usage:   "API token to use when contacting Phabricator",
					EnvVars: []string{"CONDUIT_TOKEN"},
				},
				&cli.StringFlag{
					Name:    "build-phid",
					Usage:   "PHID of the Harbormaster build target that should receive results",
					EnvVars: []string{"BUILD_PHID", "BUILD_TARGET_PHID"},
				},
				&cli.StringFlag{
					Name:    "cargo",
					Usage:   "Path to the cargo binary",
					EnvVars: []string{"CARGO"},
					Value:   cargocmd.DefaultBinary,
				},
				&cli.BoolFlag{
					Name:  "finalize",
					Usage: "Send pass or fail (from cargo's exit code) instead of work, closing the build target",
				},
				&cli.BoolFlag{
					Name:  "unstable-options",
					Usage: "Set RUSTC_BOOTSTRAP=1 so libtest JSON output works on stable toolchains",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
			// Exit codes are mapped by the caller through ExitCode
			ExitErrHandler: func(*cli.Context, error) {},
		},
	}

	for _, sub := range model.Subcommands {
		sub := sub
		app.cli.Commands = append(app.cli.Commands, &cli.Command{
			Name:            string(sub),
			Usage:           commandUsage[sub],
			ArgsUsage:       "[--] [cargo arguments]",
			SkipFlagParsing: true,
			Action: func(ctx *cli.Context) error {
				return app.run(ctx, sub)
			},
		})
	}
	return app
}

// Run parses args and executes the selected subcommand. SIGINT and SIGTERM
// kill cargo and skip submission.
func (a *App) Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx, args)
}

// RunContext is Run with a caller supplied context.
func (a *App) RunContext(ctx context.Context, args []string) error {
	if len(args) > 1 && args[1] == cargoSubcommandName {
		args = append([]string{args[0]}, args[2:]...)
	}
	return a.cli.RunContext(ctx, args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
