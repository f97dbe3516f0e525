// Package watcher watches a single settings file and publishes debounced
// change notifications on a reactive.Event.
//
// The parent directory is watched rather than the file itself so that
// editors and FileSync, which replace the file with an atomic rename, keep
// producing events after the original inode is gone.
package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/reactive"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates the file was created or renamed into place.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns a human-readable representation of the operation.
// Combined operations are joined with "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return o != 0 && op&o == o
}

// Event represents a change to the watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is the operation that occurred. Debounced bursts are coalesced.
	Op Op

	// Time is when the last event of the burst occurred.
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period that must pass before a burst of
// events is published. Zero publishes every event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watcher diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorBuffer sets the capacity of the error channel.
func WithErrorBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.errBuf = n
		}
	}
}

// Watcher monitors one file for changes.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher

	changed *reactive.Event[Event]
	errors  chan error
	errBuf  int

	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending *Event
	timer   *time.Timer
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New starts watching path. The file itself may not exist yet, but its
// directory must.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		errBuf:   16,
		debounce: 100 * time.Millisecond,
		logger:   slog.New(slog.DiscardHandler),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	dir := filepath.Dir(absPath)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotExist, dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w.fsw = fsw
	w.errors = make(chan error, w.errBuf)
	w.changed = reactive.NewEvent[Event](
		reactive.WithName("watch:"+filepath.Base(absPath)),
		reactive.WithLogger(w.logger),
	)

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Changed returns the event on which file changes are published.
// Callbacks run on the watcher's goroutine or its debounce timer.
func (w *Watcher) Changed() *reactive.Event[Event] {
	return w.changed
}

// Errors returns the error channel. Errors are dropped when it is full.
// It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and closes the Changed event. Close is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = nil
	w.mu.Unlock()

	w.wg.Wait()
	err := w.fsw.Close()

	w.changed.Close()

	w.mu.Lock()
	close(w.errors)
	w.mu.Unlock()

	return err
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// handleFSEvent filters events for the watched file and queues them.
func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	if filepath.Clean(fsEvent.Name) != w.path {
		return
	}
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	event := Event{Path: w.path, Op: op, Time: time.Now()}
	if w.debounce == 0 {
		w.publish(event)
		return
	}
	w.queueEvent(event)
}

// queueEvent merges event into the pending burst and restarts the
// debounce timer. Removal takes precedence over everything, and a create
// is not downgraded by later writes.
func (w *Watcher) queueEvent(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if w.pending == nil {
		w.pending = &event
	} else {
		w.pending.Op = coalesce(w.pending.Op, event.Op)
		w.pending.Time = event.Time
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, func() { w.flush() })
	} else {
		w.timer.Reset(w.debounce)
	}
}

func coalesce(existing, next Op) Op {
	switch {
	case next.Has(OpRemove) || next.Has(OpRename):
		return next
	case existing.Has(OpRemove) || existing.Has(OpRename):
		// The file is back.
		return OpCreate
	case existing.Has(OpCreate):
		return OpCreate
	default:
		return existing | next
	}
}

// Flush publishes a pending burst without waiting for the debounce
// period to end. It reports whether anything was published.
func (w *Watcher) Flush() (bool, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false, ErrWatcherClosed
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.flush(), nil
}

// flush publishes the pending burst once the debounce period has passed.
func (w *Watcher) flush() bool {
	w.mu.Lock()
	if w.closed || w.pending == nil {
		w.mu.Unlock()
		return false
	}
	event := *w.pending
	w.pending = nil
	w.timer = nil
	w.mu.Unlock()

	w.publish(event)
	return true
}

func (w *Watcher) publish(event Event) {
	w.logger.Debug("settings file changed", "path", event.Path, "op", event.Op.String())
	if err := w.changed.Invoke(event); err != nil && !errors.Is(err, reactive.ErrClosed) {
		w.sendError(err)
	}
}

// sendError sends an error to the error channel without blocking.
func (w *Watcher) sendError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("watcher error dropped", "path", w.path, "error", err)
	}
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
