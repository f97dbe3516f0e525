package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/reactive"
)

// FileSync keeps a Settings and a settings file in step.
//
// Changes made by other writers are saved to the file. Reloads from the
// file go through FileSync's own binding and are therefore never written
// straight back.
type FileSync struct {
	path     string
	loader   *Loader
	settings *Settings
	binding  *reactive.ReadWriteBinding[Document]
	logger   *slog.Logger

	saveMu  sync.Mutex
	lastErr atomic.Pointer[error]
	saves   atomic.Uint64
}

// SyncOption configures a FileSync.
type SyncOption func(*FileSync)

// WithFileSystem sets the file system used for loads and saves.
func WithFileSystem(fs FileSystem) SyncOption {
	return func(f *FileSync) {
		if fs != nil {
			f.loader = NewLoaderWithFS(fs)
		}
	}
}

// WithSyncLogger sets the logger used to report save failures.
func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(f *FileSync) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFileSync binds settings to the file at path.
// The file is not read until Load is called.
func NewFileSync(path string, settings *Settings, opts ...SyncOption) (*FileSync, error) {
	if _, err := FormatFromPath(path); err != nil {
		return nil, err
	}

	f := &FileSync{
		path:     path,
		loader:   NewLoader(),
		settings: settings,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.binding = settings.Writer(f.persist)
	return f, nil
}

// Path returns the synced file path.
func (f *FileSync) Path() string {
	return f.path
}

// Load reads the file and replaces the settings document with its contents.
// A missing file or a document equal to the current one is a no-op.
// It reports whether the settings changed.
func (f *FileSync) Load() (bool, error) {
	m, err := f.loader.Load(f.path)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}

	doc, err := FromMap(m)
	if err != nil {
		return false, err
	}

	cur, err := f.binding.Get()
	if err != nil {
		return false, err
	}
	if cur.Equal(doc) {
		return false, nil
	}

	if err := f.binding.Set(doc); err != nil {
		return false, err
	}
	f.logger.Debug("settings reloaded", "path", f.path)
	return true, nil
}

// Save writes the current document to the file.
func (f *FileSync) Save() error {
	doc, err := f.binding.Get()
	if err != nil {
		return err
	}
	return f.save(doc)
}

// Saves returns the number of successful saves.
func (f *FileSync) Saves() uint64 {
	return f.saves.Load()
}

// LastError returns the error from the most recent failed save, if any.
func (f *FileSync) LastError() error {
	if p := f.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Close stops saving changes.
func (f *FileSync) Close() {
	f.binding.Close()
}

// persist runs inside the settings change notification. Failures
// cannot be returned there, so they are logged and kept for LastError.
func (f *FileSync) persist(doc Document) {
	if err := f.save(doc); err != nil {
		f.lastErr.Store(&err)
		f.logger.Error("saving settings", "path", f.path, "error", err)
	}
}

func (f *FileSync) save(doc Document) error {
	m, err := doc.Map()
	if err != nil {
		return fmt.Errorf("saving %s: %w", f.path, err)
	}

	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	if err := f.loader.Store(f.path, m); err != nil {
		return err
	}
	f.saves.Add(1)
	return nil
}
