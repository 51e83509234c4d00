package suite

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adnsv/latexmlsuite/command"
	"github.com/adnsv/latexmlsuite/model"
	"github.com/adnsv/latexmlsuite/runner"
)

const reportTex = "\\documentclass[a4paper]{cbsdocs}\n\\begin{document}\nHello\n\\end{document}\n"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	fn := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(fn), 0o755))
	require.NoError(t, os.WriteFile(fn, []byte(content), 0o644))
	return fn
}

func setMtime(t *testing.T, dir, rel string, mtime time.Time) {
	t.Helper()
	fn := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.Chtimes(fn, mtime, mtime))
}

// newProject creates a working directory holding report.tex and, when bib is
// set, references.bib.
func newProject(t *testing.T, bib bool) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "report.tex", reportTex)
	if bib {
		writeFile(t, dir, "references.bib", "@book{k, title={T}}\n")
	}
	return dir
}

func projectSettings(bib bool, makefiles ...string) *model.Settings {
	s := &model.Settings{General: model.GeneralSettings{LatexMain: "report.tex"}, Makefiles: makefiles}
	if bib {
		s.General.BibtexFile = "references.bib"
	}
	return s
}

func newTestSuite(t *testing.T, dir string, s *model.Settings, o model.Options, r runner.Runner) *Suite {
	t.Helper()
	if o.Platform == "" {
		o.Platform = "linux"
	}
	cfg, err := model.NewBuildConfig(dir, s, o)
	require.NoError(t, err)
	return New(cfg, r, quietLogger())
}

// fakeTools returns a Recorder hook that produces the declared outputs of
// each external tool inside dir. Dry run commands have no effect.
func fakeTools(dir string) func(command.Command) error {
	abs := func(p string) string { return filepath.Join(dir, filepath.FromSlash(p)) }
	write := func(p string) error {
		if err := os.MkdirAll(filepath.Dir(abs(p)), 0o755); err != nil {
			return err
		}
		return os.WriteFile(abs(p), []byte(p), 0o644)
	}
	return func(c command.Command) error {
		args := c.Args
		switch args[0] {
		case "latexmk":
			if args[len(args)-1] == "-c" {
				return nil
			}
			src := args[1]
			outDir := strings.TrimPrefix(args[3], "-output-directory=")
			stem := strings.TrimSuffix(path.Base(src), path.Ext(src))
			return write(path.Join(outDir, stem+".pdf"))
		case "latexml":
			return write(strings.TrimPrefix(args[1], "--dest="))
		case "latexmlpost":
			dest := strings.TrimPrefix(args[1], "--dest=")
			for _, p := range []string{dest, path.Join(path.Dir(dest), "intro.html"), path.Join(path.Dir(dest), "LaTeXML.css")} {
				if err := write(p); err != nil {
					return err
				}
			}
		case "mv":
			return os.Rename(abs(args[2]), abs(args[3]))
		case "cp":
			buf, err := os.ReadFile(abs(args[2]))
			if err != nil {
				return err
			}
			return os.WriteFile(abs(args[3]), buf, 0o644)
		case "rm":
			for _, p := range args[2:] {
				if err := os.Remove(abs(p)); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

type fileInfo struct {
	size  int64
	mtime time.Time
}

// snapshot records every file and directory below dir.
func snapshot(t *testing.T, dir string) map[string]fileInfo {
	t.Helper()
	out := map[string]fileInfo{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		out[filepath.ToSlash(rel)] = fileInfo{size: info.Size(), mtime: info.ModTime()}
		return nil
	})
	require.NoError(t, err)
	return out
}

func exists(dir, rel string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	return err == nil
}
