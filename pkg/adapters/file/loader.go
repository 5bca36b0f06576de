// Package file loads schemas from a directory of JSON or YAML documents
// and supports hot reload through filesystem notifications.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// Loader implements ports.SchemaLoader over a directory. Files are parsed
// on every Load so edits are picked up even without a watcher.
type Loader struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	paths map[string]string // schema ID -> file path
}

// Option configures the loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// New scans the directory and indexes every parseable schema document by
// its ID. Files that fail to parse are skipped with a warning; they can
// be fixed and picked up by a later rescan.
func New(dir string, opts ...Option) (*Loader, error) {
	l := &Loader{dir: dir, logger: logging.NewNop(), paths: map[string]string{}}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.rescan(); err != nil {
		return nil, err
	}
	return l, nil
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func (l *Loader) rescan() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("scan schema directory: %w", err)
	}

	paths := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !isSchemaFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		s, err := parseFile(path)
		if err != nil {
			l.logger.Warn("skipping unparseable schema file", "path", path, "error", err)
			continue
		}
		paths[s.ID] = path
	}

	l.mu.Lock()
	l.paths = paths
	l.mu.Unlock()
	return nil
}

func parseFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return schema.ParseJSON(data)
	}
	return schema.ParseYAML(data)
}

// Load parses the document registered under the given schema ID.
func (l *Loader) Load(ctx context.Context, id string) (*schema.Schema, error) {
	l.mu.RLock()
	path, ok := l.paths[id]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSchemaNotFound
	}
	return parseFile(path)
}

// List returns the indexed schema IDs in sorted order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.paths))
	for id := range l.paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Watch emits the ID of every schema whose file changes. The channel
// closes when ctx is canceled. Implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", l.dir, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !isSchemaFile(event.Name) {
					continue
				}
				s, err := parseFile(event.Name)
				if err != nil {
					l.logger.Warn("changed schema file does not parse", "path", event.Name, "error", err)
					continue
				}
				l.mu.Lock()
				l.paths[s.ID] = event.Name
				l.mu.Unlock()

				select {
				case out <- s.ID:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("watcher error", "error", err)
			}
		}
	}()
	return out, nil
}
