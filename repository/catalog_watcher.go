package repository

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"groovebox/logger"

	"github.com/fsnotify/fsnotify"
)

// CatalogWatcher watches the catalog document and logs a warning whenever it
// is rewritten by someone other than this process. The JSON document has no
// cross-process locking, so an edit from outside the server (a second
// instance, a stray text editor) can race an in-flight upload and lose
// records. The watcher cannot prevent that; it only makes it visible in the
// logs.
type CatalogWatcher struct {
	watcher       *fsnotify.Watcher
	done          chan struct{}
	lastSelfWrite atomic.Int64 // unix nanos of the repository's own last write
}

// selfWriteWindow is how long after one of our own writes filesystem events
// on the catalog are attributed to this process rather than an outsider.
const selfWriteWindow = 2 * time.Second

// WatchCatalog starts watching the catalog document at path. Best-effort: a
// setup failure is reported to the caller, never fatal.
func WatchCatalog(path string) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file itself so that rewrites via
	// rename (editors, atomic writers) stay visible.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	cw := &CatalogWatcher{
		watcher: watcher,
		done:    make(chan struct{}),
	}

	go cw.loop(filepath.Base(path))
	return cw, nil
}

// MarkSelfWrite records that this process is about to rewrite the catalog,
// so the resulting filesystem events are not reported as foreign.
func (cw *CatalogWatcher) MarkSelfWrite() {
	cw.lastSelfWrite.Store(time.Now().UnixNano())
}

func (cw *CatalogWatcher) loop(target string) {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			since := time.Since(time.Unix(0, cw.lastSelfWrite.Load()))
			if since < selfWriteWindow {
				continue
			}
			logger.Warn("Catalog document changed on disk outside this process; concurrent writers can lose catalog records",
				logger.String("file", event.Name),
				logger.String("op", event.Op.String()))
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Catalog watcher error", logger.ErrorField(err))
		case <-cw.done:
			return
		}
	}
}

// Close stops the watcher.
func (cw *CatalogWatcher) Close() {
	close(cw.done)
	cw.watcher.Close()
}
