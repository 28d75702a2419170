// Package system sizes worker pools and finds input files.
package system

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

// ErrNoMatch is returned by FindLatest when no file has a wanted extension.
var ErrNoMatch = errors.New("no matching file")

// DefaultWorkers is the number of page workers used when none is given:
// one per physical core, at least one.
func DefaultWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	return n
}

// InitResourceLimits raises the open file limit so that many page textures
// can be written at once.
func InitResourceLimits(logger *zap.SugaredLogger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warnw("failed to read open file limit", "error", err)
		return
	}

	want := uint64(2048)
	if rLimit.Cur >= want {
		return
	}
	if want > rLimit.Max {
		want = rLimit.Max
	}
	rLimit.Cur = want

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warnw("failed to raise open file limit", "error", err)
		return
	}
	logger.Debugw("open file limit raised", "limit", rLimit.Cur)
}

// FindLatest returns the most recently modified file in dir whose name ends
// in one of exts, compared without case. If path is a file, its directory
// is searched.
func FindLatest(path string, exts ...string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	dir := path
	if !fi.IsDir() {
		dir = filepath.Dir(path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), exts) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, e.Name())
		}
	}

	if latestFile == "" {
		return "", errors.Wrapf(ErrNoMatch, "%s in %s", strings.Join(exts, ", "), dir)
	}
	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
