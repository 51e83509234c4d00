package model

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adnsv/go-utils/fs"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrSettingsNotFound is returned by LoadSettings when the file is missing.
var ErrSettingsNotFound = errors.New("settings file not found")

// Settings mirrors the layout of the project settings file:
//
//	general:
//	  latex_main: report.tex
//	  bibtex_file: references.bib
//	  ccn_output_directory: ccn
//	  output_filename: report_final.pdf
//	cache:
//	  output_directory: out
//	  output_directory_html: out_html
//	makefiles:
//	  - figures
type Settings struct {
	General   GeneralSettings `yaml:"general"`
	Cache     *CacheSettings  `yaml:"cache"`
	Makefiles []string        `yaml:"makefiles"`
	Tools     ToolSettings    `yaml:"tools"`
}

type GeneralSettings struct {
	LatexMain          string   `yaml:"latex_main"`
	BibtexFile         string   `yaml:"bibtex_file"`
	CCNOutputDirectory string   `yaml:"ccn_output_directory"`
	OutputFilename     string   `yaml:"output_filename"`
	DocumentClass      string   `yaml:"document_class"`
	CleanPatterns      []string `yaml:"clean_patterns"`
}

type CacheSettings struct {
	OutputDirectory     string `yaml:"output_directory"`
	OutputDirectoryHTML string `yaml:"output_directory_html"`
}

// ToolSettings overrides executable names; empty entries keep the default.
type ToolSettings struct {
	Echo        string `yaml:"echo"`
	Make        string `yaml:"make"`
	Latexmk     string `yaml:"latexmk"`
	Latexml     string `yaml:"latexml"`
	Latexmlpost string `yaml:"latexmlpost"`
	HTMLCleaner string `yaml:"htmlcleaner"`
}

// LoadSettings reads a settings file.
func LoadSettings(fn string) (*Settings, error) {
	fn, err := filepath.Abs(fn)
	if err != nil {
		return nil, err
	}
	if !fs.FileExists(fn) {
		return nil, errors.Wrap(ErrSettingsNotFound, fn)
	}

	slog.Debug("reading settings file", slog.String("path", fn))
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrap(err, "read settings")
	}
	return ParseSettings(buf)
}

// ParseSettings decodes settings from YAML content. An empty document yields
// zero settings.
func ParseSettings(buf []byte) (*Settings, error) {
	s := &Settings{}
	if err := yaml.Unmarshal(buf, s); err != nil {
		return nil, errors.Wrap(err, "parse settings")
	}
	return s, nil
}

func (s *Settings) cache() CacheSettings {
	if s.Cache == nil {
		return CacheSettings{}
	}
	return *s.Cache
}

func (t ToolSettings) merge(def Tools) Tools {
	pick := func(v, d string) string {
		if v != "" {
			return v
		}
		return d
	}
	return Tools{
		Echo:        pick(t.Echo, def.Echo),
		Make:        pick(t.Make, def.Make),
		Latexmk:     pick(t.Latexmk, def.Latexmk),
		Latexml:     pick(t.Latexml, def.Latexml),
		Latexmlpost: pick(t.Latexmlpost, def.Latexmlpost),
		HTMLCleaner: pick(t.HTMLCleaner, def.HTMLCleaner),
	}
}
