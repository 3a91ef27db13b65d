package cpdb

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ArtifactWatcher watches a run's output directory and records result
// files as the analysis writes them. Watching is best effort; Seen
// falls back to a directory scan for anything a missed event left out.
type ArtifactWatcher struct {
	outputDir string

	mu   sync.Mutex
	seen map[string]struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
	onNew   func(name string)
}

// NewArtifactWatcher starts watching outputDir. onNew is invoked once
// per newly observed result file (may be nil). The directory is created
// if it does not exist yet.
func NewArtifactWatcher(outputDir string, onNew func(name string)) (*ArtifactWatcher, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	aw := &ArtifactWatcher{
		outputDir: outputDir,
		seen:      make(map[string]struct{}),
		done:      make(chan struct{}),
		onNew:     onNew,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher, Seen will scan the directory
		return aw, nil
	}
	if err := watcher.Add(outputDir); err != nil {
		watcher.Close()
		return aw, nil
	}
	aw.watcher = watcher

	go aw.watch()
	return aw, nil
}

func (aw *ArtifactWatcher) watch() {
	for {
		select {
		case <-aw.done:
			return
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
				continue
			}
			aw.record(event.Name)
		case <-aw.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

func (aw *ArtifactWatcher) record(name string) {
	if !IsResultArtifact(name) {
		return
	}
	base := filepath.Base(name)

	aw.mu.Lock()
	_, dup := aw.seen[base]
	if !dup {
		aw.seen[base] = struct{}{}
	}
	aw.mu.Unlock()

	if !dup && aw.onNew != nil {
		aw.onNew(base)
	}
}

// Seen returns every result artifact observed so far, merged with a
// fresh directory scan so late or missed events do not lose files.
func (aw *ArtifactWatcher) Seen() []string {
	if scanned, err := CollectArtifacts(aw.outputDir); err == nil {
		aw.mu.Lock()
		for _, name := range scanned {
			aw.seen[name] = struct{}{}
		}
		aw.mu.Unlock()
	}

	aw.mu.Lock()
	defer aw.mu.Unlock()
	names := make([]string, 0, len(aw.seen))
	for name := range aw.seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops watching.
func (aw *ArtifactWatcher) Close() {
	close(aw.done)
	if aw.watcher != nil {
		aw.watcher.Close()
	}
}
