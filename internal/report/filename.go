package report

import (
	"fmt"
	"path/filepath"
	"time"
)

// TimestampedFilename returns dir/name_YYYYMMDD_HHMMSS.ext.
func TimestampedFilename(dir, name, ext string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", name, now.Format("20060102_150405"), ext))
}
