package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "solverify"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
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
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Run solver verification tests and compare results against expectations",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run verification tests from the suite file",
		ArgsUsage: "[TEST...]",
		Action:    app.run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "suite",
				Aliases: []string{"f"},
				Usage:   "Suite file declaring the tests",
				Value:   "solverify.yaml",
			},
			&cli.StringFlag{
				Name:    "solver-cmd",
				Aliases: []string{"A"},
				Usage:   "Command used to invoke the solver",
				Value:   "abaqus",
			},
			&cli.StringFlag{
				Name:  "postprocess",
				Usage: "Post-processing script producing the structured results",
				Value: "processresults.py",
			},
			&cli.StringFlag{
				Name:    "subroutine",
				Aliases: []string{"s"},
				Usage:   "Path to the user subroutine source, without extension",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Solver environment file name",
				Value: "abaqus_v6.env",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory receiving logs, containers and results",
				Value: "testOutput",
			},
			&cli.StringFlag{
				Name:  "work-dir",
				Usage: "Directory holding the input decks and descriptors",
				Value: ".",
			},
			&cli.IntFlag{
				Name:    "cpus",
				Aliases: []string{"C"},
				Usage:   "Number of CPUs to run the solver with",
				Value:   1,
			},
			&cli.BoolFlag{
				Name:    "double",
				Aliases: []string{"d"},
				Usage:   "Submit jobs with double precision",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Echo solver output to stdout while it is captured",
			},
			&cli.BoolFlag{
				Name:    "time-phases",
				Aliases: []string{"t"},
				Usage:   "Measure compile, package and solve phase durations",
			},
			&cli.BoolFlag{
				Name:    "discard-xy",
				Aliases: []string{"n"},
				Usage:   "Do not save x-y data back into the result container",
			},
			&cli.BoolFlag{
				Name:    "precompile",
				Aliases: []string{"c"},
				Usage:   "Pre-compile the user subroutine once and reuse the library",
			},
			&cli.BoolFlag{
				Name:    "use-existing-results",
				Aliases: []string{"r"},
				Usage:   "Skip solver execution and verify results already present",
			},
			&cli.BoolFlag{
				Name:    "keep-output",
				Aliases: []string{"k"},
				Usage:   "Keep previously produced files in the output directory",
			},
			&cli.IntFlag{
				Name:    "expiration",
				Aliases: []string{"x"},
				Usage:   "Time budget per job in seconds (non-positive: no limit)",
				Value:   -1,
			},
			&cli.StringFlag{
				Name:    "remote",
				Aliases: []string{"R"},
				Usage:   "Run on a remote host: user@host[:port][/runDir]",
			},
			&cli.StringFlag{
				Name:  "remote-options",
				Usage: "Remote options file",
				Value: "remote_options.yaml",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "report",
		Usage:  "Show the report of the last run",
		Action: app.report,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory the run wrote its report to",
				Value: "testOutput",
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
