package utils

import (
	"os"
	"path/filepath"

	"tlog.app/go/errors"
)

// SourceExt is the extension mojo sources usually carry. Other names are accepted.
const SourceExt = ".mojo"

// SourcePath resolves a source file name given on the command line to its
// absolute path and containing directory. The file must exist and be regular.
func SourcePath(name string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(name)
	if err != nil {
		return "", "", errors.Wrap(err, "abs")
	}

	st, err := os.Stat(fullPath)
	if err != nil {
		return "", "", errors.Wrap(err, "stat")
	}

	if st.IsDir() {
		return "", "", errors.New("%v is a directory", name)
	}

	return fullPath, filepath.Dir(fullPath), nil
}

// DefaultPNG derives the screenshot name for a source: prog.mojo -> prog.png.
func DefaultPNG(source string) string {
	ext := filepath.Ext(source)

	return source[:len(source)-len(ext)] + ".png"
}
