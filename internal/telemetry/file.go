package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultSpeedFile    = "speed.txt"
	DefaultRotationFile = "rotation.txt"
)

var ErrBadFile = errors.New("telemetry: unparseable sample file")

// FileSource watches a drop directory where a rig writes one number per file.
// Files are re-read on the watcher goroutine; ReadSpeed and ReadRotation only
// touch the cached values.
type FileSource struct {
	*slot
	dir          string
	speedPath    string
	rotationPath string

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func WatchDir(dir string, maxAge time.Duration) (*FileSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create telemetry watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch telemetry dir %s: %w", dir, err)
	}

	s := &FileSource{
		slot:         newSlot(maxAge),
		dir:          dir,
		speedPath:    filepath.Clean(filepath.Join(dir, DefaultSpeedFile)),
		rotationPath: filepath.Clean(filepath.Join(dir, DefaultRotationFile)),
		watcher:      w,
		closeCh:      make(chan struct{}),
	}

	// Rotation is absolute, so an existing file is a usable starting value.
	// Its mod time decides whether it is already stale.
	if info, err := os.Stat(s.rotationPath); err == nil {
		s.reload(s.rotationPath, info.ModTime())
	}

	slog.Info("Watching rig telemetry files", "dir", dir, "max_age", maxAge)
	s.wg.Add(1)
	go s.run()
	return s, nil
}

func (s *FileSource) Close() error {
	var err error
	s.once.Do(func() {
		s.slot.close()
		close(s.closeCh)
		err = s.watcher.Close()
		s.wg.Wait()
	})
	return err
}

func (s *FileSource) run() {
	defer s.wg.Done()
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if name != s.speedPath && name != s.rotationPath {
				continue
			}
			s.reload(name, time.Now())
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("Telemetry watcher error", "dir", s.dir, "error", err)
		case <-s.closeCh:
			return
		}
	}
}

func (s *FileSource) reload(path string, at time.Time) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("Telemetry file read failed", "path", path, "error", err)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		// Truncated mid-write; the following write event carries the value.
		return
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || !finite(v) {
		bad := fmt.Errorf("%w: %s: %q", ErrBadFile, filepath.Base(path), text)
		if path == s.speedPath {
			s.putSpeedErr(bad)
		} else {
			s.putRotationErr(bad)
		}
		return
	}
	if path == s.speedPath {
		s.putSpeed(v, at)
	} else {
		s.putRotation(v, at)
	}
}
