package suite

import (
	"context"
	"path"
	"strings"

	"github.com/adnsv/go-utils/fs"

	"github.com/adnsv/latexmlsuite/logfields"
	"github.com/adnsv/latexmlsuite/model"
)

// runScripts runs the make tool in every configured script directory, with
// "clean" in clean mode.
func (s *Suite) runScripts(ctx context.Context, _ *model.State, out *StageOutcome) error {
	if !s.cfg.RunScripts {
		s.logger.Debug("auxiliary build scripts disabled")
		return nil
	}
	if len(s.cfg.ScriptDirs) == 0 {
		s.logger.Debug("no auxiliary build script directories configured")
		return nil
	}
	clean := s.cfg.Mode == model.ModeClean
	for _, dir := range s.cfg.ScriptDirs {
		if err := s.execute(ctx, out, s.cmds.Script(dir, clean)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) compilePDF(ctx context.Context, _ *model.State, out *StageOutcome) error {
	return s.compilePDFAs(ctx, out, s.cfg.Mode)
}

// compilePDFAs compiles (latex, all) or cleans (clean) the PDF build. Any
// other mode panics in the command builder.
func (s *Suite) compilePDFAs(ctx context.Context, out *StageOutcome, mode model.RunMode) error {
	c := s.cmds.CompilePDF(mode)
	if mode == model.ModeClean {
		return s.execute(ctx, out, c)
	}
	need, err := s.needsRebuild(s.cfg.MainFile, s.cfg.PDFFile(), false)
	if err != nil || !need {
		return err
	}
	return s.execute(ctx, out, c)
}

func (s *Suite) cleanLogs(ctx context.Context, _ *model.State, out *StageOutcome) error {
	files, err := s.glob(s.cfg.CleanPatterns...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.logger.Debug("no log files found", "patterns", s.cfg.CleanPatterns)
		return nil
	}
	return s.execute(ctx, out, s.cmds.Remove(files...))
}

// compileHTML refreshes the option-patched copy of the main document and
// compiles it in the HTML build directory.
func (s *Suite) compileHTML(ctx context.Context, _ *model.State, out *StageOutcome) error {
	if err := s.ensureDir(s.cfg.HTMLOutputDir); err != nil {
		return err
	}
	src := s.cfg.HTMLSourceFile()
	need, err := s.needsRebuild(s.cfg.MainFile, src, false)
	if err != nil {
		return err
	}
	if need {
		if err := s.writeHTMLSource(); err != nil {
			return err
		}
	} else {
		need, err = s.needsRebuild(src, s.cfg.HTMLPDFFile(), true)
		if err != nil || !need {
			return err
		}
	}
	return s.execute(ctx, out, s.cmds.CompileHTML())
}

// copyPDF copies the full PDF into the report tree, compiling it first when
// it does not exist yet.
func (s *Suite) copyPDF(ctx context.Context, _ *model.State, out *StageOutcome) error {
	pdf, dst := s.cfg.PDFFile(), s.cfg.ReportPDFFile()
	if !fs.FileExists(s.cfg.Abs(pdf)) {
		s.logger.Info("PDF missing, compiling it first", logfields.Path(pdf))
		if err := s.compilePDFAs(ctx, out, model.ModeLatex); err != nil {
			return err
		}
		if out.unavailable && !fs.FileExists(s.cfg.Abs(pdf)) {
			s.logger.Warn("PDF could not be produced, not copying", logfields.Path(pdf))
			return nil
		}
	}
	if err := s.ensureDir(s.cfg.ReportDir); err != nil {
		return err
	}
	need, err := s.needsRebuild(pdf, dst, true)
	if err != nil || !need {
		return err
	}
	return s.execute(ctx, out, s.cmds.Copy(pdf, dst))
}

// convertBibliography converts the bibliography source to XML and records in
// st whether it had to, so that the XML conversion of the main document is
// forced after a bibliography change.
func (s *Suite) convertBibliography(ctx context.Context, st *model.State, out *StageOutcome) error {
	if s.cfg.Bibliography == "" {
		s.logger.Debug("no bibliography configured")
		return nil
	}
	xml := s.cfg.BibliographyXMLFile()
	st.BibliographyXML = xml

	need, err := s.needsRebuild(s.cfg.Bibliography, xml, false)
	if err != nil {
		return err
	}
	st.BibliographyRegenerated = need
	if !need {
		return nil
	}
	if err := s.ensureDir(s.cfg.HTMLOutputDir); err != nil {
		return err
	}
	if err := s.execute(ctx, out, s.cmds.Bibliography()); err != nil {
		return err
	}
	if out.unavailable && !s.cfg.DryRun && !fs.FileExists(s.cfg.Abs(xml)) {
		s.logger.Warn("bibliography XML was not produced, continuing without it", logfields.Path(xml))
		st.BibliographyXML = ""
		st.BibliographyRegenerated = false
	}
	return nil
}

func (s *Suite) convertXML(ctx context.Context, st *model.State, out *StageOutcome) error {
	need, err := s.needsRebuild(s.cfg.HTMLSourceFile(), s.cfg.XMLFile(), true)
	if err != nil {
		return err
	}
	if !need && st.BibliographyRegenerated {
		s.logger.Debug("bibliography regenerated, forcing XML conversion")
		need = true
	}
	if !need {
		return nil
	}
	return s.execute(ctx, out, s.cmds.ConvertXML())
}

// postprocessHTML converts the XML to the report pages. When the XML
// conversion of this run had no tool and left no XML behind, the stage is
// skipped; without an upstream conversion a missing XML is an error.
func (s *Suite) postprocessHTML(ctx context.Context, st *model.State, out *StageOutcome) error {
	xml := s.cfg.XMLFile()
	if st.Unavailable(model.StageConvertXML) && !fs.FileExists(s.cfg.Abs(xml)) {
		s.logger.Warn("XML was not produced, not post-processing", logfields.Path(xml))
		return nil
	}
	if err := s.ensureDir(s.cfg.ReportHTMLDir()); err != nil {
		return err
	}
	need, err := s.needsRebuild(xml, s.cfg.ReportHTMLFile(), true)
	if err != nil {
		return err
	}
	if !need && !st.BibliographyRegenerated {
		return nil
	}
	return s.execute(ctx, out, s.cmds.PostprocessHTML(st))
}

// renameHTML prefixes every HTML page of the report with the main document
// name, unless it already carries it, and runs the HTML cleaner on it.
func (s *Suite) renameHTML(ctx context.Context, _ *model.State, out *StageOutcome) error {
	dir := s.cfg.ReportHTMLDir()
	files, err := s.glob(path.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	prefix := s.cfg.MainStem()
	for _, f := range files {
		base := path.Base(f)
		if strings.HasPrefix(base, prefix) {
			continue
		}
		dst := path.Join(dir, prefix+"_"+base)
		if err := s.execute(ctx, out, s.cmds.Move(f, dst)); err != nil {
			return err
		}
		if err := s.execute(ctx, out, s.cmds.CleanHTML(dst)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) cleanCSS(ctx context.Context, _ *model.State, out *StageOutcome) error {
	files, err := s.glob(path.Join(s.cfg.ReportHTMLDir(), "*.css"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.logger.Debug("no css files found")
		return nil
	}
	return s.execute(ctx, out, s.cmds.Remove(files...))
}
