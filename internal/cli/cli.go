package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/synbuild/internal/app"
	"github.com/specialistvlad/synbuild/internal/build"
)

// DefaultConfigure is the configure directory used when none is given.
const DefaultConfigure = "configure"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("synbuild", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
synbuild - clone, configure, build and package EPICS base and synApps.

Usage:
  synbuild [options] [CONFIGURE_PATH]

Arguments:
  CONFIGURE_PATH
    Configure directory holding INSTALL_CONFIG or .hcl files, or a single
    manifest file. Defaults to ./configure.

Options:
`)
		flagSet.PrintDefaults()
	}

	var (
		configure, install string
		threads, jobs      int
		singleThread       bool
		printCommands      bool
	)
	flagSet.StringVar(&configure, "configure", "", "Path to the configure directory or manifest file.")
	flagSet.StringVar(&configure, "c", "", "Path to the configure directory or manifest file (shorthand).")
	flagSet.StringVar(&install, "install", "", "Override the install location of the manifest.")
	flagSet.StringVar(&install, "i", "", "Override the install location of the manifest (shorthand).")
	flagSet.IntVar(&threads, "threads", 0, "Number of make jobs per module. 0 lets make decide.")
	flagSet.IntVar(&threads, "t", 0, "Number of make jobs per module (shorthand).")
	flagSet.BoolVar(&singleThread, "single-thread", false, "Run make without parallel jobs.")
	flagSet.BoolVar(&singleThread, "s", false, "Run make without parallel jobs (shorthand).")
	flagSet.IntVar(&jobs, "jobs", 1, "Number of modules built at the same time.")
	flagSet.IntVar(&jobs, "j", 1, "Number of modules built at the same time (shorthand).")
	flagSet.BoolVar(&printCommands, "print-commands", false, "Log every external command before it runs.")
	flagSet.BoolVar(&printCommands, "p", false, "Log every external command before it runs (shorthand).")

	debugFlag := flagSet.Bool("debug", false, "Enable debug logging.")
	timestampsFlag := flagSet.Bool("timestamps", false, "Include timestamps in log records.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	phasesFlag := flagSet.String("phases", "clone,update,build", "Comma separated phases to run: clone, update, build, package.")
	planFlag := flagSet.String("plan", "", "Write the resolved build plan as YAML to this file.")
	outputFlag := flagSet.String("output", "DEPLOYMENTS", "Directory receiving packaged bundles.")
	withSourcesFlag := flagSet.Bool("with-sources", false, "Package whole module trees instead of a lean bundle.")
	syncTagsFlag := flagSet.Bool("sync-tags", false, "Move every git module to its newest release tag before cloning.")
	depScriptFlag := flagSet.String("dependency-script", "", "Script run before building to install host dependencies.")
	allowIllegalFlag := flagSet.Bool("allow-illegal", false, "Skip the install location permission check.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Time limit for every external command. 0 disables it.")
	initFlag := flagSet.Bool("init", false, "Write the default configure directory to CONFIGURE_PATH and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := configure
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		path = DefaultConfigure
	}
	slog.Debug("Configure path determined.", "path", path)

	phases, err := app.ParsePhases(*phasesFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid phases: %v", err)}
	}
	logFormat := strings.ToLower(*logFormatFlag)

	config, err := app.NewConfig(app.Config{
		ConfigurePath:    path,
		InstallOverride:  install,
		Phases:           phases,
		Build:            build.Options{Threads: threads, SingleThread: singleThread, Jobs: jobs},
		Init:             *initFlag,
		SyncTags:         *syncTagsFlag,
		DependencyScript: *depScriptFlag,
		AllowIllegal:     *allowIllegalFlag,
		PlanPath:         *planFlag,
		OutputDir:        *outputFlag,
		WithSources:      *withSourcesFlag,
		CommandTimeout:   *timeoutFlag,
		Logging: app.Logging{
			Debug:          *debugFlag,
			PrintCommands:  printCommands,
			WithTimestamps: *timestampsFlag,
			Format:         logFormat,
		},
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
