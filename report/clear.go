package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsafeClear is returned by ClearDir for the working directory or a
// filesystem root.
var ErrUnsafeClear = errors.New("report: refusing to clear directory")

// ClearDir removes dir with everything below it and creates it again
// empty. A missing dir is created.
func ClearDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("report: clear %s: %w", dir, err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("report: clear %s: %w", dir, err)
	}

	if abs == wd || abs == filepath.Dir(abs) {
		return fmt.Errorf("%w: %s", ErrUnsafeClear, abs)
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("report: clear %s: %w", dir, err)
	}

	return os.MkdirAll(abs, 0o755)
}
