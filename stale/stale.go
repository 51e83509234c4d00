// Package stale decides whether a build artifact has to be produced again.
package stale

import (
	"os"

	"github.com/adnsv/go-utils/fs"
	"github.com/pkg/errors"
)

// NeedsRebuild reports whether target must be (re)produced from source: true
// when target does not exist or was modified strictly before source. Equal
// modification times count as up to date.
//
// The source must exist. Its absence is returned as an error wrapping
// os.ErrNotExist, since it points at a misconfigured input.
func NeedsRebuild(source, target string) (bool, error) {
	src, err := os.Stat(source)
	if err != nil {
		return false, errors.Wrap(err, "stat source")
	}
	if !fs.FileExists(target) {
		return true, nil
	}
	dst, err := os.Stat(target)
	if err != nil {
		return false, errors.Wrap(err, "stat target")
	}
	return dst.ModTime().Before(src.ModTime()), nil
}
