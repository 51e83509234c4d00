// Package suite drives the document build: it maps the run mode to an
// ordered list of stages and runs them one after another, skipping the
// ones whose outputs are newer than their inputs.
package suite

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/adnsv/latexmlsuite/command"
	"github.com/adnsv/latexmlsuite/logfields"
	"github.com/adnsv/latexmlsuite/model"
	"github.com/adnsv/latexmlsuite/runner"
	"github.com/adnsv/latexmlsuite/stale"
)

// ErrCommandFailed is returned in strict mode when a tool exits non-zero.
var ErrCommandFailed = errors.New("command failed")

var (
	latexStages = []model.StageName{model.StageCompilePDF}
	xmlStages   = []model.StageName{
		model.StageCompileHTML,
		model.StageCopyPDF,
		model.StageBibliography,
		model.StageConvertXML,
	}
	htmlStages = []model.StageName{
		model.StagePostprocessHTML,
		model.StageRenameHTML,
		model.StageCleanCSS,
	}
)

var modeStages = map[model.RunMode][]model.StageName{
	model.ModeNone:  {model.StageScripts},
	model.ModeClean: {model.StageScripts, model.StageCompilePDF, model.StageCleanLogs},
	model.ModeLatex: concat([]model.StageName{model.StageScripts}, latexStages),
	model.ModeXML:   concat([]model.StageName{model.StageScripts}, xmlStages),
	model.ModeHTML:  concat([]model.StageName{model.StageScripts}, htmlStages),
	model.ModeAll:   concat([]model.StageName{model.StageScripts}, latexStages, xmlStages, htmlStages),
}

// StagesFor returns the stages dispatched for a mode, in execution order.
func StagesFor(mode model.RunMode) []model.StageName {
	return append([]model.StageName(nil), modeStages[mode]...)
}

type stageFunc func(ctx context.Context, st *model.State, out *StageOutcome) error

// Suite is the pipeline controller for one build configuration.
type Suite struct {
	cfg    *model.BuildConfig
	cmds   *command.Builder
	runner runner.Runner
	logger *slog.Logger
}

func New(cfg *model.BuildConfig, r runner.Runner, logger *slog.Logger) *Suite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{
		cfg:    cfg,
		cmds:   command.NewBuilder(cfg),
		runner: r,
		logger: logger.With(logfields.Mode(cfg.Mode.String())),
	}
}

func (s *Suite) stage(name model.StageName) stageFunc {
	switch name {
	case model.StageScripts:
		return s.runScripts
	case model.StageCompilePDF:
		return s.compilePDF
	case model.StageCleanLogs:
		return s.cleanLogs
	case model.StageCompileHTML:
		return s.compileHTML
	case model.StageCopyPDF:
		return s.copyPDF
	case model.StageBibliography:
		return s.convertBibliography
	case model.StageConvertXML:
		return s.convertXML
	case model.StagePostprocessHTML:
		return s.postprocessHTML
	case model.StageRenameHTML:
		return s.renameHTML
	case model.StageCleanCSS:
		return s.cleanCSS
	}
	panic("unknown stage " + string(name))
}

// Run executes the stages of the configured mode in order. The first stage
// error stops the run; the report still lists every stage dispatched so far.
// Every run gets its own id, attached to the report and to the log records.
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	st := &model.State{}
	rep := &Report{RunID: uuid.NewString(), Mode: s.cfg.Mode, DryRun: s.cfg.DryRun}
	runLogger := s.logger.With(logfields.RunID(rep.RunID))

	for _, name := range StagesFor(s.cfg.Mode) {
		if err := ctx.Err(); err != nil {
			return rep, errors.Wrap(err, "build interrupted")
		}
		out := rep.begin(name)
		logger := runLogger.With(logfields.Stage(string(name)))
		logger.Debug("stage started")

		t0 := time.Now()
		err := s.stage(name)(ctx, st, out)
		out.Duration = time.Since(t0)
		if err != nil {
			out.Result = model.ResultFailed
		}
		out.settle()
		if out.Result == model.ResultUnavailable {
			st.MarkUnavailable(name)
		}
		logger.Info("stage finished",
			logfields.Result(string(out.Result)),
			slog.Duration("duration", out.Duration))
		if err != nil {
			return rep, errors.Wrapf(err, "stage %s", name)
		}
	}
	return rep, nil
}

// execute runs one command for a stage. A tool that cannot be launched is
// logged and tolerated; a non-zero exit is only an error in strict mode.
func (s *Suite) execute(ctx context.Context, out *StageOutcome, c command.Command) error {
	out.Commands = append(out.Commands, c.Args)
	logger := s.logger.With(logfields.Stage(string(out.Stage)))
	logger.Debug("running command", logfields.Command(c.Args), logfields.Dir(c.Dir))

	res, err := s.runner.Run(ctx, c)
	switch {
	case errors.Is(err, runner.ErrToolUnavailable):
		out.unavailable = true
		logger.Info("continuing without tool", logfields.Command(c.Args), logfields.Error(err))
		return nil
	case err != nil:
		return err
	case res.ExitCode != 0 && s.cfg.Strict:
		return errors.Wrapf(ErrCommandFailed, "%s exited with status %d", c.Program(), res.ExitCode)
	case res.ExitCode != 0:
		logger.Warn("command exited with non-zero status",
			logfields.Command(c.Args), logfields.ExitCode(res.ExitCode))
	}
	return nil
}

// needsRebuild compares source and target (both relative to the working
// directory). generated marks a source written by an earlier stage; in a dry
// run that stage only echoed its command, so a missing generated source is
// taken as "rebuild".
func (s *Suite) needsRebuild(source, target string, generated bool) (bool, error) {
	need, err := stale.NeedsRebuild(s.cfg.Abs(source), s.cfg.Abs(target))
	if err != nil {
		if generated && s.cfg.DryRun && errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("dry run: input not produced, assuming rebuild",
				logfields.Path(source), logfields.Target(target))
			return true, nil
		}
		return false, errors.Wrapf(err, "compare %s with %s", source, target)
	}
	if !need {
		s.logger.Debug("up to date", logfields.Path(source), logfields.Target(target))
	}
	return need, nil
}

// ensureDir creates a directory below the working directory, except in a
// dry run.
func (s *Suite) ensureDir(dir string) error {
	abs := s.cfg.Abs(dir)
	if s.cfg.DryRun {
		if _, err := os.Stat(abs); err != nil {
			s.logger.Info("dry run: not creating directory", logfields.Path(dir))
		}
		return nil
	}
	return errors.Wrapf(os.MkdirAll(abs, 0o755), "create %s", dir)
}

// glob expands patterns relative to the working directory and returns the
// sorted, de-duplicated matches in slash form.
func (s *Suite) glob(patterns ...string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(s.cfg.Abs(p))
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", p)
		}
		for _, m := range matches {
			rel := s.cfg.Rel(m)
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func concat(lists ...[]model.StageName) []model.StageName {
	var out []model.StageName
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
