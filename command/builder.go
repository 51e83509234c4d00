package command

import (
	"fmt"

	"github.com/adnsv/latexmlsuite/model"
)

// Builder produces the command for each stage from the build configuration.
// In a dry run every command is prefixed with the echo program, so running it
// prints what would have been executed.
type Builder struct {
	cfg      *model.BuildConfig
	platform Platform
}

func NewBuilder(cfg *model.BuildConfig) *Builder {
	return &Builder{cfg: cfg, platform: PlatformFor(cfg.Platform)}
}

func (b *Builder) Platform() Platform { return b.platform }

func (b *Builder) command(args ...string) Command {
	if b.cfg.DryRun {
		args = append([]string{b.cfg.Tools.Echo}, args...)
	}
	return Command{Args: args}
}

// CompilePDF builds the latexmk invocation for the PDF output. Only the latex
// and all modes compile, and clean mode cleans; any other mode is a caller bug.
func (b *Builder) CompilePDF(mode model.RunMode) Command {
	tools := b.cfg.Tools
	switch mode {
	case model.ModeLatex, model.ModeAll:
		return b.command(tools.Latexmk,
			b.cfg.MainFile,
			"-xelatex",
			"-output-directory="+b.cfg.OutputDir,
			"-shell-escape")
	case model.ModeClean:
		return b.command(tools.Latexmk,
			"-output-directory="+b.cfg.OutputDir,
			"-c")
	}
	panic(fmt.Sprintf("compile_pdf dispatched in mode %q; only latex, all and clean are allowed", mode))
}

// CompileHTML compiles the patched copy of the main document inside the HTML
// build directory.
func (b *Builder) CompileHTML() Command {
	return b.command(b.cfg.Tools.Latexmk,
		b.cfg.HTMLSourceFile(),
		"-xelatex",
		"-output-directory="+b.cfg.HTMLOutputDir,
		"-shell-escape")
}

func (b *Builder) Bibliography() Command {
	return b.command(b.platform.Script(b.cfg.Tools.Latexml),
		"--dest="+b.cfg.BibliographyXMLFile(),
		"--preload=hyperref.sty",
		b.cfg.Bibliography)
}

func (b *Builder) ConvertXML() Command {
	return b.command(b.platform.Script(b.cfg.Tools.Latexml),
		"--dest="+b.cfg.XMLFile(),
		b.cfg.HTMLSourceFile())
}

// PostprocessHTML converts the XML to HTML in the report tree. The
// bibliography is passed only when an earlier stage produced one, and the
// output is split per chapter unless chapters are merged.
func (b *Builder) PostprocessHTML(st *model.State) Command {
	args := []string{
		b.platform.Script(b.cfg.Tools.Latexmlpost),
		"--dest=" + b.cfg.ReportHTMLFile(),
		b.cfg.XMLFile(),
	}
	if st.HasBibliography() {
		args = append(args, "--bibliography="+st.BibliographyXML)
	}
	if !b.cfg.MergeChapters {
		args = append(args, "--split", "--splitat", "chapter")
	}
	return b.command(args...)
}

func (b *Builder) CleanHTML(file string) Command {
	args := []string{b.cfg.Tools.HTMLCleaner, file}
	if b.cfg.Overwrite {
		args = append(args, "--overwrite")
	}
	return b.command(args...)
}

// Script runs the configured make tool inside dir.
func (b *Builder) Script(dir string, clean bool) Command {
	args := []string{b.cfg.Tools.Make}
	if clean {
		args = append(args, "clean")
	}
	c := b.command(args...)
	c.Dir = dir
	return c
}

func (b *Builder) Remove(paths ...string) Command { return b.command(b.platform.Remove(paths...)...) }
func (b *Builder) Move(src, dst string) Command   { return b.command(b.platform.Move(src, dst)...) }
func (b *Builder) Copy(src, dst string) Command   { return b.command(b.platform.Copy(src, dst)...) }
