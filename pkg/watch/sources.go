// Package watch notifies callers when voting record source files change.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/fsnotify.v1"
)

// DefaultDebounce collapses the burst of events an editor or a download
// produces into one notification.
const DefaultDebounce = 500 * time.Millisecond

// Sources watches a fixed set of files. Parent directories are watched
// rather than the files so replacements by rename are seen.
type Sources struct {
	paths    map[string]bool
	dirs     []string
	debounce time.Duration
	onChange func(path string)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSources prepares a watcher for paths. onChange receives the last changed
// path after events settle for debounce (DefaultDebounce when zero).
func NewSources(paths []string, debounce time.Duration, onChange func(path string)) (*Sources, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no source files to watch")
	}
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	s := &Sources{
		paths:    make(map[string]bool, len(paths)),
		debounce: debounce,
		onChange: onChange,
	}
	seenDirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		s.paths[abs] = true
		if dir := filepath.Dir(abs); !seenDirs[dir] {
			seenDirs[dir] = true
			s.dirs = append(s.dirs, dir)
		}
	}
	return s, nil
}

// Start begins watching. It returns once every directory is registered; the
// watch stops when ctx is done or Close is called.
func (s *Sources) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	for _, dir := range s.dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watchLoop(ctx)
	return nil
}

// Close stops the watch and waits for the loop to exit.
func (s *Sources) Close() error {
	if s.watcher == nil {
		return nil
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.wg.Wait()
	return s.watcher.Close()
}

func (s *Sources) watchLoop(ctx context.Context) {
	defer s.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	var pending string

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.paths[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			s.onChange(pending)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Source watch error: %v", err)
		}
	}
}
