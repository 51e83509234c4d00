package suite

import (
	"os"
	"regexp"

	"github.com/pkg/errors"

	"github.com/adnsv/latexmlsuite/logfields"
	"github.com/adnsv/latexmlsuite/model"
)

const (
	htmlOptions           = "nohyperrefs"
	htmlOptionsNoGraphics = "nographs,notables,nohyperrefs"
)

// HTMLOptions returns the class options that prepare a document for the XML
// conversion: hyperrefs are always off, graphs and tables unless included.
func HTMLOptions(includeGraphics bool) string {
	if includeGraphics {
		return htmlOptions
	}
	return htmlOptionsNoGraphics
}

// PatchDocumentClass inserts options in front of the first "]{class}" token
// of text. A separating comma is added when the option list before it is not
// empty. ok is false when the token does not occur; text is then returned
// unchanged.
func PatchDocumentClass(text, class, options string) (patched string, pos model.Position, ok bool) {
	re := regexp.MustCompile(`\]\{` + regexp.QuoteMeta(class) + `\}`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text, model.Position{}, false
	}
	at := loc[0]
	if at > 0 && text[at-1] != '[' && text[at-1] != ',' {
		options = "," + options
	}
	return text[:at] + options + text[at:], model.PositionAt(text, at), true
}

// writeHTMLSource writes the option-patched copy of the main document into
// the HTML build directory. Nothing is written in a dry run.
func (s *Suite) writeHTMLSource() error {
	src, dst := s.cfg.MainFile, s.cfg.HTMLSourceFile()
	s.logger.Debug("reading main document", logfields.Path(src))
	buf, err := os.ReadFile(s.cfg.Abs(src))
	if err != nil {
		return errors.Wrap(err, "read main document")
	}

	text, pos, ok := PatchDocumentClass(string(buf), s.cfg.DocumentClass, HTMLOptions(s.cfg.IncludeGraphics))
	if ok {
		s.logger.Debug("patched document class options",
			logfields.Path(src), "class", s.cfg.DocumentClass, "at", pos.String())
	} else {
		s.logger.Warn("document class options not found, copying unchanged",
			logfields.Path(src), "class", s.cfg.DocumentClass)
	}

	if s.cfg.DryRun {
		s.logger.Info("dry run: not writing HTML source", logfields.Target(dst))
		return nil
	}
	s.logger.Debug("writing HTML source", logfields.Target(dst))
	if err := os.WriteFile(s.cfg.Abs(dst), []byte(text), 0o644); err != nil {
		return errors.Wrap(err, "write HTML source")
	}
	return nil
}
