package model

import (
	"strings"

	"github.com/pkg/errors"
)

// RunMode selects which pipeline the suite dispatches.
type RunMode int

const (
	ModeAll = RunMode(iota)
	ModeHTML
	ModeLatex
	ModeXML
	ModeClean
	ModeNone
)

// ErrInvalidMode is returned by ParseRunMode for unknown mode names.
var ErrInvalidMode = errors.New("invalid run mode")

// ModeNames lists the accepted mode names in help order.
var ModeNames = []string{"all", "html", "latex", "xml", "clean", "none"}

func (m RunMode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeHTML:
		return "html"
	case ModeLatex:
		return "latex"
	case ModeXML:
		return "xml"
	case ModeClean:
		return "clean"
	case ModeNone:
		return "none"
	default:
		return "<invalid>"
	}
}

// ParseRunMode converts a mode name to a RunMode. "tex" is accepted as an
// alias of "latex".
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "html":
		return ModeHTML, nil
	case "latex", "tex":
		return ModeLatex, nil
	case "xml":
		return ModeXML, nil
	case "clean":
		return ModeClean, nil
	case "none":
		return ModeNone, nil
	}
	return ModeAll, errors.Wrapf(ErrInvalidMode, "%q (expected one of %s)", s, strings.Join(ModeNames, ", "))
}
