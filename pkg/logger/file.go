package logger

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// RotatingFile opens a log file that rotates daily and keeps a week of
// history. path is kept as a symlink to the current file.
func RotatingFile(path string) (io.WriteCloser, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := rotatelogs.New(
		abs+".%Y%m%d",
		rotatelogs.WithLinkName(abs),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return w, nil
}
