package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/jawher/mow.cli"
	"github.com/pkg/errors"

	"github.com/adnsv/latexmlsuite/logfields"
	"github.com/adnsv/latexmlsuite/model"
	"github.com/adnsv/latexmlsuite/runner"
	"github.com/adnsv/latexmlsuite/suite"
	"github.com/adnsv/latexmlsuite/watch"
)

type cliOptions struct {
	verbose       bool
	debug         bool
	settings      string
	makeExe       string
	noMake        bool
	dryRun        bool
	includeGraphs bool
	mode          string
	noOverwrite   bool
	mergeChapters bool
	strict        bool
	platform      string
	echoExe       string
	watch         bool
}

func newApp(action func(o *cliOptions)) *cli.Cli {
	o := &cliOptions{}

	app := cli.App("latexmlsuite", "Build the PDF and HTML versions of a LaTeX report")
	app.Version("version", appVersion())
	app.BoolOptPtr(&o.verbose, "v verbose", false, "report the stages and commands at info level")
	app.BoolOptPtr(&o.debug, "debug", false, "report everything, including the effective settings (also -vv)")
	app.StringPtr(&o.settings, cli.StringOpt{
		Name:   "s settings",
		Value:  model.DefaultSettingsFile,
		Desc:   "settings file",
		EnvVar: "LATEXMLSUITE_SETTINGS",
	})
	app.StringPtr(&o.makeExe, cli.StringOpt{
		Name:   "make-exe",
		Desc:   "make program for the auxiliary build scripts",
		EnvVar: "LATEXMLSUITE_MAKE",
	})
	app.BoolOptPtr(&o.noMake, "no-make", false, "do not run the auxiliary build scripts")
	app.BoolOptPtr(&o.dryRun, "n test dry-run", false, "print the commands instead of running them")
	app.BoolOptPtr(&o.includeGraphs, "include-graphs", false, "keep graphs and tables in the HTML output")
	app.StringPtr(&o.mode, cli.StringOpt{
		Name:   "m mode",
		Value:  model.ModeAll.String(),
		Desc:   "what to build: all, html, latex, xml, clean or none",
		EnvVar: "LATEXMLSUITE_MODE",
	})
	app.BoolOptPtr(&o.noOverwrite, "no-overwrite", false, "keep the originals when cleaning HTML files")
	app.BoolOptPtr(&o.mergeChapters, "merge-chapters", false, "write the HTML report as a single page")
	app.BoolOptPtr(&o.strict, "strict", false, "abort when a tool exits with a non-zero status")
	app.StringOptPtr(&o.platform, "platform", "", "command set to use: posix or windows (default: host)")
	app.StringOptPtr(&o.echoExe, "echo-exe", "", "program that prints the commands in a dry run")
	app.BoolOptPtr(&o.watch, "w watch", false, "rebuild whenever the document, bibliography or scripts change")

	app.Action = func() { action(o) }
	return app
}

// normalizeArgs maps the -vv shorthand onto --debug.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "-vv" {
			a = "--debug"
		}
		out[i] = a
	}
	return out
}

func (o *cliOptions) level() slog.Level {
	switch {
	case o.debug:
		return slog.LevelDebug
	case o.verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func (o *cliOptions) buildOptions() (model.Options, error) {
	mode, err := model.ParseRunMode(o.mode)
	if err != nil {
		return model.Options{}, err
	}
	return model.Options{
		Mode:            mode,
		DryRun:          o.dryRun,
		RunScripts:      !o.noMake,
		IncludeGraphics: o.includeGraphs,
		Overwrite:       !o.noOverwrite,
		MergeChapters:   o.mergeChapters,
		Strict:          o.strict,
		Platform:        o.platform,
		MakeExe:         o.makeExe,
		EchoExe:         o.echoExe,
	}, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig merges the settings file and the command line into the build
// configuration for workDir.
func loadConfig(o *cliOptions, workDir string, logger *slog.Logger) (*model.BuildConfig, error) {
	opts, err := o.buildOptions()
	if err != nil {
		return nil, err
	}
	settings, err := model.LoadSettings(o.settings)
	switch {
	case errors.Is(err, model.ErrSettingsNotFound):
		logger.Warn("settings file not found, using defaults", logfields.Path(o.settings))
		settings = nil
	case err != nil:
		return nil, err
	}
	return model.NewBuildConfig(workDir, settings, opts)
}

func execute(ctx context.Context, o *cliOptions, logger *slog.Logger) error {
	wd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "working directory")
	}
	cfg, err := loadConfig(o, wd, logger)
	if err != nil {
		return err
	}
	cfg.LogSettings(logger)

	x := runner.NewExec(os.Stdout, cfg.WorkDir, cfg.Tools.Echo)
	x.Logger = logger
	s := suite.New(cfg, x, logger)

	build := func(ctx context.Context) error {
		rep, err := s.Run(ctx)
		if rep != nil {
			logger.Info("build finished",
				logfields.RunID(rep.RunID),
				"executed", rep.Count(model.ResultExecuted),
				"skipped", rep.Count(model.ResultSkipped),
				"unavailable", rep.Count(model.ResultUnavailable))
		}
		return err
	}

	err = build(ctx)
	if !o.watch {
		return err
	}
	if err != nil {
		logger.Error("build failed", logfields.Error(err))
	}
	return watch.New(watch.Targets(cfg), logger).Run(ctx, build)
}

func main() {
	app := newApp(func(o *cliOptions) {
		logger := newLogger(os.Stdout, o.level())
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := execute(ctx, o, logger); err != nil {
			logger.Error("build failed", logfields.Error(err))
			stop()
			cli.Exit(1)
		}
		logger.Info("done")
	})

	app.Run(normalizeArgs(os.Args))
}
