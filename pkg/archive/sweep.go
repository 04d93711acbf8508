package archive

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rymis/httpcam/internal/glob"
	"github.com/rymis/httpcam/internal/log"
)

var (
	stillPattern   = glob.MustCompile(`frame_*.jpg`)
	segmentPattern = glob.MustCompile(`seg_*.avi`)
)

// fileStamp extracts the millisecond timestamp from an archive file
// name. Files that do not look like ours report ok = false.
func fileStamp(name string) (int64, bool) {
	groups, ok := stillPattern.Groups(name)
	if !ok {
		groups, ok = segmentPattern.Groups(name)
	}
	if !ok || len(groups) == 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(groups[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// sweep deletes stills and segments older than MaxAge along with their
// catalog rows. The segment currently being written is never touched.
func (a *Archive) sweep(now time.Time) (int, error) {
	cutoff := now.Add(-a.cfg.MaxAge).UnixMilli()
	active := a.currentPath()

	entries, err := os.ReadDir(a.cfg.Dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := fileStamp(e.Name())
		if !ok || ts >= cutoff {
			continue
		}
		path := filepath.Join(a.cfg.Dir, e.Name())
		if path == active {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn("sweep remove failed", "path", path, "error", err)
			continue
		}
		removed++
	}

	if _, err := a.ix.DeleteOlder(cutoff); err != nil {
		return removed, err
	}
	return removed, nil
}
