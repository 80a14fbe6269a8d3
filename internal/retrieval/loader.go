package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"clausecheck/internal/embedding"
	"clausecheck/internal/logging"
	"clausecheck/internal/store"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// Loader loads the index from its snapshot, or builds and persists it when
// no snapshot exists. The result is cached for the life of the process.
type Loader struct {
	SnapshotPath string
	Sources      []string // glob patterns of reference documents
	Builder      *Builder

	group singleflight.Group

	mu    sync.RWMutex
	index *Index
}

// NewLoader creates a loader.
func NewLoader(snapshotPath string, sources []string, builder *Builder) *Loader {
	return &Loader{SnapshotPath: snapshotPath, Sources: sources, Builder: builder}
}

// LoadOrBuild returns the cached index, loading or building it on first use.
// Concurrent callers share a single load or build.
func (l *Loader) LoadOrBuild(ctx context.Context) (*Index, error) {
	if idx := l.cached(); idx != nil {
		return idx, nil
	}

	v, err, shared := l.group.Do("index", func() (interface{}, error) {
		if idx := l.cached(); idx != nil {
			return idx, nil
		}
		// The build outlives any one caller: others may be waiting on it.
		idx, err := l.loadOrBuild(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.index = idx
		l.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.RetrievalDebug("LoadOrBuild: joined an in-flight build")
	}
	return v.(*Index), nil
}

// Search satisfies the law retrieval step's retriever, loading the index on first use.
func (l *Loader) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	idx, err := l.LoadOrBuild(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, query, k)
}

// Invalidate drops the cached index so the next call loads or builds again.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.index = nil
	l.mu.Unlock()
	logging.Retrieval("Index cache invalidated")
}

func (l *Loader) cached() *Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index
}

func (l *Loader) loadOrBuild(ctx context.Context) (*Index, error) {
	if l.Builder == nil {
		return nil, fmt.Errorf("loader has no builder")
	}

	if store.Exists(l.SnapshotPath) {
		records, meta, err := store.Load(l.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load index snapshot %s: %w", l.SnapshotPath, err)
		}
		if err := checkEngine(meta, l.Builder.Engine); err != nil {
			return nil, fmt.Errorf("index snapshot %s: %w (rebuild with index --rebuild)", l.SnapshotPath, err)
		}
		logging.Retrieval("Loaded index snapshot %s (%d chunks), skipping build", l.SnapshotPath, len(records))
		return NewIndex(fromRecords(records), l.Builder.Engine, meta), nil
	}

	logging.Retrieval("No index snapshot at %s, building from %v", l.SnapshotPath, l.Sources)
	paths, err := ResolveSources(l.Sources)
	if err != nil {
		return nil, err
	}
	docs, err := ReadDocuments(paths)
	if err != nil {
		return nil, err
	}
	idx, err := l.Builder.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := store.Save(l.SnapshotPath, toRecords(idx.chunks), idx.meta); err != nil {
		return nil, fmt.Errorf("failed to persist index snapshot: %w", err)
	}
	return idx, nil
}

// checkEngine reports whether vectors recorded under meta can be compared
// with vectors from engine. Engines that have not learned their size yet
// are checked by name only.
func checkEngine(meta store.Meta, engine embedding.EmbeddingEngine) error {
	if engine == nil {
		return fmt.Errorf("loader has no embedding engine")
	}
	if got := meta["engine"]; got != engine.Name() {
		return fmt.Errorf("%w: built with %q, configured %q", ErrEngineMismatch, got, engine.Name())
	}
	if dims := engine.Dimensions(); dims > 0 && meta["dimensions"] != strconv.Itoa(dims) {
		return fmt.Errorf("%w: built with %s dimensions, engine produces %d", ErrEngineMismatch, meta["dimensions"], dims)
	}
	return nil
}

// Watch invalidates the cache when the snapshot file is removed or renamed
// away, so the next LoadOrBuild rebuilds it. It blocks until ctx is done.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: the snapshot itself may not exist yet and is
	// replaced by rename on every save.
	dir := filepath.Dir(l.SnapshotPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(l.SnapshotPath)
	logging.RetrievalDebug("Watching %s for snapshot removal", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				logging.Retrieval("Snapshot %s was %s externally", target, ev.Op)
				l.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				l.Invalidate()
				continue
			}
			logging.Get(logging.CategoryRetrieval).Warn("Snapshot watcher error: %v", err)
		}
	}
}
