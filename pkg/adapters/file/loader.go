package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Loader implements ports.GraphLoader and ports.Watchable for a graph export on disk.
type Loader struct {
	Path string
}

// NewLoader creates a loader for the graph file at path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load reads the whole graph file.
func (l *Loader) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return data, nil
}

// Watch signals when the graph file is written, created or replaced.
// The parent directory is watched so editors that save via rename are still seen.
// Signals coalesce: at most one reload is pending at a time.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	target, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve graph path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch graph directory: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return ch, nil
}
