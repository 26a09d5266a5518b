// Package prompt resolves the system prompt sent with every chat request.
//
// The prompt is either the built-in Default or the contents of a file, which
// Watch re-reads whenever it changes on disk.
package prompt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Loader holds the current system prompt. It is safe for concurrent use.
type Loader struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	current string
}

// NewLoader returns a Loader for the prompt file at path. An empty path
// selects the built-in Default. A file that cannot be read is an error; a
// file with only whitespace falls back to Default.
func NewLoader(path string, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Loader{
		path:    path,
		logger:  logger,
		current: Default,
	}

	if path == "" {
		return l, nil
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}

	return l, nil
}

// Path returns the prompt file path, or "" for the built-in prompt.
func (l *Loader) Path() string {
	return l.path
}

// Prompt returns the current system prompt.
func (l *Loader) Prompt() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Reload re-reads the prompt file. On error the previous prompt is kept.
func (l *Loader) Reload() error {
	if l.path == "" {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("reading system prompt %s: %w", l.path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		l.logger.Warn("system prompt file is empty, using built-in prompt",
			zap.String("path", l.path),
		)
		text = Default
	}

	l.mu.Lock()
	l.current = text
	l.mu.Unlock()

	return nil
}

// Watch reloads the prompt every time its file is written, created or renamed
// into place, until ctx is done. It returns nil immediately for the built-in
// prompt. Reload failures are logged and the previous prompt stays active.
func (l *Loader) Watch(ctx context.Context) error {
	if l.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("watching prompt dir: %w", err)
	}

	target := filepath.Clean(l.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := l.Reload(); err != nil {
				l.logger.Warn("system prompt reload failed", zap.Error(err))
				continue
			}
			l.logger.Info("system prompt reloaded", zap.String("path", l.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("prompt watcher error: %w", err)
		}
	}
}
