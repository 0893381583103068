package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "demo"+SourceExt)
	require.NoError(t, os.WriteFile(file, []byte("program demo; main { }"), 0o644))

	full, parent, err := SourcePath(file)
	require.NoError(t, err)
	assert.Equal(t, file, full)
	assert.Equal(t, dir, parent)

	_, _, err = SourcePath(filepath.Join(dir, "missing.mojo"))
	assert.Error(t, err)

	_, _, err = SourcePath(dir)
	assert.Error(t, err)
}

func TestDefaultPNG(t *testing.T) {
	assert.Equal(t, "demo.png", DefaultPNG("demo.mojo"))
	assert.Equal(t, "a/b/demo.png", DefaultPNG("a/b/demo"))
	assert.Equal(t, "x.y.png", DefaultPNG("x.y.mojo"))
}
