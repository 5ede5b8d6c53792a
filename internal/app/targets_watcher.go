package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"typeahead/internal/logging"
	"typeahead/internal/target"
)

// targetsWatcher hot-reloads the target descriptor file so edits take
// effect without restarting the daemon. Reloads are debounced because
// editors typically fire several events per save.
type targetsWatcher struct {
	path        string
	matcher     *target.Matcher
	debounceDur time.Duration
}

func newTargetsWatcher(path string, matcher *target.Matcher) *targetsWatcher {
	return &targetsWatcher{
		path:        filepath.Clean(path),
		matcher:     matcher,
		debounceDur: 500 * time.Millisecond,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file itself because editors replace files on save,
// which drops a direct file watch.
func (w *targetsWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		logging.Get(logging.CategoryMatcher).Warn("targets watch failed for %s: %v", dir, err)
		<-ctx.Done()
		return nil
	}
	logging.Matcher("watching %s for descriptor changes", w.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceDur, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryMatcher).Warn("targets watcher error: %v", err)
		}
	}
}

func (w *targetsWatcher) reload() {
	descriptors, err := target.LoadDescriptors(w.path)
	if err != nil {
		// Keep the last good set; a save in progress often reads as
		// truncated or invalid JSON.
		logging.Get(logging.CategoryMatcher).Warn("targets reload failed, keeping %d descriptors: %v",
			w.matcher.Len(), err)
		return
	}
	w.matcher.SetDescriptors(descriptors)
	logging.Matcher("reloaded %d target descriptors from %s", len(descriptors), w.path)
}
