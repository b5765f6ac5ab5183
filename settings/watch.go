package settings

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/hazyhaar/a11ywatch/rule"
)

// ApplyFunc receives freshly loaded settings. An error keeps the watcher's
// notion of the current version so the reload is retried.
type ApplyFunc func(rule.Settings) error

// WatchOptions tune the file and database watchers.
type WatchOptions struct {
	// Debounce is the quiet period after a change before reloading.
	// Default: 200ms for files, 0 for the database.
	Debounce time.Duration
	// Interval is the database polling period. Default: 1s.
	Interval time.Duration
	// Detector overrides DataVersion.
	Detector VersionDetector
	Logger   *slog.Logger
}

// FileWatcher reloads a settings file when it changes on disk. The parent
// directory is watched so that editors replacing the file are noticed.
type FileWatcher struct {
	path    string
	apply   ApplyFunc
	opts    WatchOptions
	w       *fsnotify.Watcher
	reloads atomic.Int64
}

// NewFileWatcher starts watching path. Call Run to process events.
func NewFileWatcher(path string, apply ApplyFunc, opts WatchOptions) (*FileWatcher, error) {
	if _, err := FormatOf(path); err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "settings: resolve path")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "settings: create watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "settings: watch %s", filepath.Dir(abs))
	}
	return &FileWatcher{path: abs, apply: apply, opts: opts, w: w}, nil
}

// Reloads returns the number of successful reloads.
func (fw *FileWatcher) Reloads() int64 { return fw.reloads.Load() }

// Run processes events until ctx is cancelled, then closes the watcher.
func (fw *FileWatcher) Run(ctx context.Context) {
	log := fw.opts.Logger
	defer fw.w.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(fw.opts.Debounce, func() {
			if ctx.Err() != nil {
				return
			}
			fw.reload(log)
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	log.Info("settings: watching file", "path", fw.path, "debounce", fw.opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			log.Info("settings: file watcher stopped", "path", fw.path)
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("settings: file changed", "path", ev.Name, "op", ev.Op.String())
			schedule()
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			log.Warn("settings: watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) reload(log *slog.Logger) {
	s, err := LoadFile(fw.path)
	if err != nil {
		log.Error("settings: reload failed, keeping previous settings", "path", fw.path, "error", err)
		return
	}
	if err := fw.apply(s); err != nil {
		log.Error("settings: apply failed", "path", fw.path, "error", err)
		return
	}
	fw.reloads.Add(1)
	log.Info("settings: reloaded from file", "path", fw.path, "rules", len(s))
}

// VersionDetector reads a token that changes whenever the table changes.
type VersionDetector func(ctx context.Context, db *sql.DB) (int64, error)

// DataVersion reads PRAGMA data_version, which moves when another
// connection commits to the database file.
func DataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// DBWatcher polls the rule_settings table and reloads it after a change.
type DBWatcher struct {
	db      *sql.DB
	apply   ApplyFunc
	opts    WatchOptions
	version atomic.Int64
	checks  atomic.Int64
	reloads atomic.Int64
	errs    atomic.Int64
}

// DBStats are point-in-time counters of a DBWatcher.
type DBStats struct {
	Checks  int64 `json:"checks"`
	Reloads int64 `json:"reloads"`
	Errors  int64 `json:"errors"`
}

// NewDBWatcher returns a watcher over db. Call Run to start polling.
func NewDBWatcher(db *sql.DB, apply ApplyFunc, opts WatchOptions) *DBWatcher {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Detector == nil {
		opts.Detector = DataVersion
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &DBWatcher{db: db, apply: apply, opts: opts}
}

// Stats returns the current counters.
func (w *DBWatcher) Stats() DBStats {
	return DBStats{Checks: w.checks.Load(), Reloads: w.reloads.Load(), Errors: w.errs.Load()}
}

// Run polls until ctx is cancelled. A failed reload leaves the version
// unchanged so the next poll retries it.
func (w *DBWatcher) Run(ctx context.Context) {
	log := w.opts.Logger
	if v, err := w.opts.Detector(ctx, w.db); err != nil {
		log.Warn("settings: initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounce <-chan time.Time
	var timer *time.Timer
	pending := int64(-1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				w.errs.Add(1)
				log.Warn("settings: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			pending = cur
			if w.opts.Debounce <= 0 {
				w.reload(ctx, pending)
				pending = -1
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.opts.Debounce)
			debounce = timer.C
		case <-debounce:
			debounce = nil
			if pending >= 0 {
				w.reload(ctx, pending)
				pending = -1
			}
		}
	}
}

func (w *DBWatcher) reload(ctx context.Context, version int64) {
	log := w.opts.Logger
	s, err := Load(ctx, w.db)
	if err == nil {
		err = w.apply(s)
	}
	if err != nil {
		w.errs.Add(1)
		log.Error("settings: reload from database failed", "error", err, "version", version)
		return
	}
	w.version.Store(version)
	w.reloads.Add(1)
	log.Info("settings: reloaded from database", "version", version, "rules", len(s))
}
