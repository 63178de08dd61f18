package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/specialistvlad/synbuild/internal/app"
	"github.com/specialistvlad/synbuild/internal/cli"
)

// main is the entrypoint for the synbuild application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		stop()
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	synbuild := app.NewApp(outW, appConfig)
	report, err := synbuild.Run(ctx)
	if appConfig.Init {
		return err
	}
	printSummary(outW, report)
	if err != nil {
		return err
	}
	if !report.OK() {
		return &cli.ExitError{Code: 1, Message: "some modules failed to clone or build"}
	}
	return nil
}

// printSummary writes a colored recap of the run.
func printSummary(w io.Writer, r *app.Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Fprintln(w, "\nsynbuild summary")
	if r.InstallRoot != "" {
		fmt.Fprintf(w, "Install location: %s\n", r.InstallRoot)
	}
	for _, u := range r.TagUpdates {
		fmt.Fprintf(w, "Updated %s from %s to %s\n", u.Module, u.From, u.To)
	}
	if len(r.Clone.Cloned) > 0 {
		green.Fprintf(w, "Cloned: %s\n", strings.Join(r.Clone.Cloned, " "))
	}
	if len(r.Clone.Failed) > 0 {
		red.Fprintf(w, "Failed to clone: %s\n", strings.Join(r.Clone.Failed, " "))
	}
	for _, p := range r.DependencyProblems {
		yellow.Fprintln(w, p)
	}
	if len(r.Order) > 0 {
		fmt.Fprintf(w, "Build order: %s\n", strings.Join(r.Order, " "))
	}
	if b := r.Build; b != nil {
		if len(b.Built) > 0 {
			green.Fprintf(w, "Built: %s\n", strings.Join(b.Built, " "))
		}
		if len(b.Failed) > 0 {
			red.Fprintf(w, "Failed to build: %s\n", strings.Join(b.Failed, " "))
		}
		if len(b.Skipped) > 0 {
			yellow.Fprintf(w, "Skipped: %s\n", strings.Join(b.Skipped, " "))
		}
		if b.Aborted {
			red.Fprintf(w, "Build aborted: %s\n", b.AbortReason)
		}
	}
	if r.Bundle != nil {
		green.Fprintf(w, "Bundle: %s\n", r.Bundle.Path)
	}
}
