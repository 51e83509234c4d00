package stale

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, fn string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(fn, []byte(filepath.Base(fn)), 0o644))
	require.NoError(t, os.Chtimes(fn, mtime, mtime))
}

func TestNeedsRebuild(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		source time.Time
		target *time.Time
		want   bool
	}{
		{"target missing", base, nil, true},
		{"target older", base, ptr(base.Add(-time.Minute)), true},
		{"target newer", base, ptr(base.Add(time.Minute)), false},
		{"equal timestamps", base, ptr(base), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "main.tex")
			dst := filepath.Join(dir, "main.pdf")
			touch(t, src, tt.source)
			if tt.target != nil {
				touch(t, dst, *tt.target)
			}
			got, err := NeedsRebuild(src, dst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsRebuildSameFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "main.tex")
	touch(t, fn, time.Now())
	got, err := NeedsRebuild(fn, fn)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestNeedsRebuildMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := NeedsRebuild(filepath.Join(dir, "missing.tex"), filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func ptr(t time.Time) *time.Time { return &t }
