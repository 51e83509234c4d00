package model

import (
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultMainFile      = "main.tex"
	DefaultOutputDir     = "out"
	DefaultHTMLOutputDir = "out_html"
	DefaultReportDir     = "ccn"
	DefaultDocumentClass = "cbsdocs"
	DefaultSettingsFile  = "rapport_settings.yml"
)

// DefaultCleanPatterns are the glob patterns removed from the working
// directory in clean mode.
var DefaultCleanPatterns = []string{"*.log"}

// Tools names the external executables the suite invokes.
type Tools struct {
	Echo        string // no-op marker used for dry runs
	Make        string
	Latexmk     string
	Latexml     string
	Latexmlpost string
	HTMLCleaner string
}

// DefaultTools returns the executable names used when nothing is configured.
func DefaultTools() Tools {
	return Tools{
		Echo:        "echo",
		Make:        "make",
		Latexmk:     "latexmk",
		Latexml:     "latexml",
		Latexmlpost: "latexmlpost",
		HTMLCleaner: "htmlcleaner",
	}
}

// BuildConfig is the merged result of the settings file and the command line.
// It is not modified once a run has started. Relative paths are interpreted
// against WorkDir and kept slash separated so that command transcripts are
// stable across platforms.
type BuildConfig struct {
	WorkDir string

	MainFile       string
	Bibliography   string // empty when no bibliography is configured
	OutputDir      string
	HTMLOutputDir  string
	ReportDir      string
	OutputFilename string
	DocumentClass  string
	ScriptDirs     []string
	CleanPatterns  []string

	Mode            RunMode
	DryRun          bool
	RunScripts      bool
	IncludeGraphics bool
	Overwrite       bool
	MergeChapters   bool
	Strict          bool
	Platform        string

	Tools Tools
}

// Options holds the command line part of the configuration.
type Options struct {
	Mode            RunMode
	DryRun          bool
	RunScripts      bool
	IncludeGraphics bool
	Overwrite       bool
	MergeChapters   bool
	Strict          bool
	Platform        string
	MakeExe         string
	EchoExe         string
}

// NewBuildConfig merges settings and options into a BuildConfig rooted at
// workDir. A nil settings value means "all defaults".
func NewBuildConfig(workDir string, s *Settings, o Options) (*BuildConfig, error) {
	if s == nil {
		s = &Settings{}
	}
	wd, err := filepath.Abs(workDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve working directory")
	}

	c := &BuildConfig{
		WorkDir:         wd,
		MainFile:        normalizeMain(s.General.LatexMain),
		Bibliography:    cleanRel(s.General.BibtexFile),
		OutputDir:       orDefault(cleanRel(s.cache().OutputDirectory), DefaultOutputDir),
		HTMLOutputDir:   orDefault(cleanRel(s.cache().OutputDirectoryHTML), DefaultHTMLOutputDir),
		ReportDir:       orDefault(cleanRel(s.General.CCNOutputDirectory), DefaultReportDir),
		OutputFilename:  s.General.OutputFilename,
		DocumentClass:   orDefault(s.General.DocumentClass, DefaultDocumentClass),
		CleanPatterns:   s.General.CleanPatterns,
		Mode:            o.Mode,
		DryRun:          o.DryRun,
		RunScripts:      o.RunScripts,
		IncludeGraphics: o.IncludeGraphics,
		Overwrite:       o.Overwrite,
		MergeChapters:   o.MergeChapters,
		Strict:          o.Strict,
		Platform:        o.Platform,
		Tools:           s.Tools.merge(DefaultTools()),
	}
	for _, d := range s.Makefiles {
		if d = cleanRel(d); d != "" {
			c.ScriptDirs = append(c.ScriptDirs, d)
		}
	}
	if len(c.CleanPatterns) == 0 {
		c.CleanPatterns = append([]string(nil), DefaultCleanPatterns...)
	}
	if c.OutputFilename == "" {
		c.OutputFilename = c.MainStem() + ".pdf"
	}
	if o.MakeExe != "" {
		c.Tools.Make = o.MakeExe
	}
	if o.EchoExe != "" {
		c.Tools.Echo = o.EchoExe
	}
	return c, c.Validate()
}

// Validate rejects configurations the pipeline cannot run with.
func (c *BuildConfig) Validate() error {
	if c.MainFile == "" {
		return errors.New("main document is not configured")
	}
	if c.Mode.String() == "<invalid>" {
		return errors.Wrapf(ErrInvalidMode, "%d", int(c.Mode))
	}
	if strings.ContainsAny(c.OutputFilename, `/\`) {
		return errors.Errorf("output filename %q must not contain a directory", c.OutputFilename)
	}
	if c.Tools.Echo == "" {
		return errors.New("echo program is not configured")
	}
	return nil
}

// MainStem is the main document file name without directory and extension.
func (c *BuildConfig) MainStem() string {
	b := path.Base(c.MainFile)
	return strings.TrimSuffix(b, path.Ext(b))
}

func (c *BuildConfig) PDFFile() string { return path.Join(c.OutputDir, c.MainStem()+".pdf") }

// HTMLSourceFile is the patched copy of the main document in the HTML build dir.
func (c *BuildConfig) HTMLSourceFile() string {
	return path.Join(c.HTMLOutputDir, path.Base(c.MainFile))
}

func (c *BuildConfig) HTMLPDFFile() string { return path.Join(c.HTMLOutputDir, c.MainStem()+".pdf") }
func (c *BuildConfig) XMLFile() string     { return path.Join(c.HTMLOutputDir, c.MainStem()+".xml") }

// BibliographyXMLFile is where the converted bibliography is written.
func (c *BuildConfig) BibliographyXMLFile() string {
	if c.Bibliography == "" {
		return ""
	}
	return path.Join(c.HTMLOutputDir, path.Base(c.Bibliography)+".xml")
}

func (c *BuildConfig) ReportHTMLDir() string   { return path.Join(c.ReportDir, "html") }
func (c *BuildConfig) ReportTablesDir() string { return path.Join(c.ReportDir, "tables") }
func (c *BuildConfig) ReportChartsDir() string { return path.Join(c.ReportDir, "highcharts") }
func (c *BuildConfig) ReportPDFFile() string   { return path.Join(c.ReportDir, c.OutputFilename) }

func (c *BuildConfig) ReportHTMLFile() string {
	return path.Join(c.ReportHTMLDir(), c.MainStem()+".html")
}

// Abs resolves a configured path against the working directory.
func (c *BuildConfig) Abs(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

// Rel converts an absolute path below the working directory back to the
// slash separated form used in commands.
func (c *BuildConfig) Rel(p string) string {
	if r, err := filepath.Rel(c.WorkDir, p); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}

// LogSettings writes the effective configuration at debug level.
func (c *BuildConfig) LogSettings(logger *slog.Logger) {
	logger.Debug("effective settings",
		slog.String("main_file", c.MainFile),
		slog.String("bibliography", c.Bibliography),
		slog.String("output_directory", c.OutputDir),
		slog.String("output_directory_html", c.HTMLOutputDir),
		slog.String("report_directory", c.ReportDir),
		slog.String("report_tables", c.ReportTablesDir()),
		slog.String("report_charts", c.ReportChartsDir()),
		slog.String("output_filename", c.OutputFilename),
		slog.Any("makefile_directories", c.ScriptDirs),
		slog.String("mode", c.Mode.String()),
		slog.Bool("dry_run", c.DryRun),
		slog.String("platform", c.Platform))
}

func normalizeMain(fn string) string {
	fn = cleanRel(fn)
	if fn == "" {
		return DefaultMainFile
	}
	if path.Ext(fn) == "" {
		fn += ".tex"
	}
	return fn
}

func cleanRel(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(p))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
