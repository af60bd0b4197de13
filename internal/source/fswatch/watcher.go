// Package fswatch is the filesystem-backed bucket store: every configured
// bucket is a directory under a root, every file below it an object.
// File changes are turned into S3 events.
package fswatch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/event"
)

// Source is the event source name stamped on emitted events.
const Source = "filesystem"

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuietPeriod sets how long a file must stay unchanged before its
// ObjectCreated event is emitted. Successive writes within the period
// collapse into one event.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) { w.quiet = d }
}

// Watcher emits ObjectCreated:Put for files created or rewritten under a
// bucket directory and ObjectRemoved:Delete for files removed or renamed away.
type Watcher struct {
	root    string
	buckets []string
	quiet   time.Duration
	logger  *zap.Logger

	fsw     *fsnotify.Watcher
	dirs    map[string]struct{}
	pending map[string]pendingWrite
	gen     uint64
	ready   chan settled
}

// pendingWrite is the quiet-period timer of one file. gen identifies the
// timer so that a signal from a timer that was replaced is ignored.
type pendingWrite struct {
	timer *time.Timer
	gen   uint64
}

// settled is sent by a pendingWrite timer once its quiet period elapsed.
type settled struct {
	path string
	gen  uint64
}

// New creates a Watcher for buckets under root.
func New(root string, buckets []string, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	w := &Watcher{
		root:    root,
		buckets: buckets,
		quiet:   100 * time.Millisecond,
		logger:  logger.Named("fswatch"),
		dirs:    make(map[string]struct{}),
		pending: make(map[string]pendingWrite),
		ready:   make(chan settled, 64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Prepare creates the root and every bucket directory that does not exist.
func (w *Watcher) Prepare() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.root, err)
	}
	for _, b := range w.buckets {
		if err := os.MkdirAll(filepath.Join(w.root, b), 0o755); err != nil {
			return fmt.Errorf("create bucket %s: %w", b, err)
		}
	}
	return nil
}

// Run prepares the bucket directories, watches them and sends events to out
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, out chan<- *event.Event) error {
	if err := w.Prepare(); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("bucket watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	for _, b := range w.buckets {
		if err := w.addTree(filepath.Join(w.root, b)); err != nil {
			return err
		}
	}
	w.logger.Info("watching buckets", zap.String("root", w.root), zap.Strings("buckets", w.buckets))

	defer func() {
		for _, pw := range w.pending {
			pw.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev, out)
		case s := <-w.ready:
			w.settle(ctx, s, out)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, out chan<- *event.Event) {
	p := filepath.Clean(ev.Name)
	if hidden(p) {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if pw, ok := w.pending[p]; ok {
			pw.timer.Stop()
			delete(w.pending, p)
		}
		if _, isDir := w.dirs[p]; isDir {
			w.forgetTree(p)
			return
		}
		w.emit(ctx, p, event.ObjectRemovedDelete, out, nil)
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(p)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.addTree(p); err != nil {
				w.logger.Warn("cannot watch directory", zap.String("path", p), zap.Error(err))
			}
			w.scheduleFiles(ctx, p)
			return
		}
		w.schedule(ctx, p)
	}
}

// schedule (re)starts the quiet period of p. A timer that already fired is
// replaced rather than reset, and its signal is dropped by settle.
func (w *Watcher) schedule(ctx context.Context, p string) {
	if pw, ok := w.pending[p]; ok && pw.timer.Stop() {
		pw.timer.Reset(w.quiet)
		return
	}
	w.gen++
	s := settled{path: p, gen: w.gen}
	t := time.AfterFunc(w.quiet, func() {
		select {
		case w.ready <- s:
		case <-ctx.Done():
		}
	})
	w.pending[p] = pendingWrite{timer: t, gen: s.gen}
}

// settle emits ObjectCreated for a file whose quiet period elapsed, unless
// the signal comes from a timer that has since been replaced or cancelled.
func (w *Watcher) settle(ctx context.Context, s settled, out chan<- *event.Event) {
	pw, ok := w.pending[s.path]
	if !ok || pw.gen != s.gen {
		return
	}
	delete(w.pending, s.path)
	w.emitCreated(ctx, s.path, out)
}

// scheduleFiles picks up files written into a directory before its watch
// was registered.
func (w *Watcher) scheduleFiles(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && !hidden(p) {
			w.schedule(ctx, p)
		}
		return nil
	})
}

func (w *Watcher) emitCreated(ctx context.Context, p string, out chan<- *event.Event) {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return
	}
	w.emit(ctx, p, event.ObjectCreatedPut, out, func(ev *event.Event) {
		ev.Size = info.Size()
		if tag, err := etag(p); err == nil {
			ev.ETag = tag
		}
	})
}

func (w *Watcher) emit(ctx context.Context, p string, action event.Action, out chan<- *event.Event, fill func(*event.Event)) {
	bucket, key, ok := w.split(p)
	if !ok {
		return
	}
	ev := event.New(Source, bucket, key, action)
	if fill != nil {
		fill(ev)
	}
	w.logger.Debug("object event", zap.String("bucket", bucket), zap.String("key", key), zap.String("action", string(action)))
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// split maps a path below root to (bucket, key). Keys always use "/".
func (w *Watcher) split(p string) (bucket, key string, ok bool) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", "", false
	}
	bucket, key, ok = strings.Cut(filepath.ToSlash(rel), "/")
	if !ok || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		w.dirs[filepath.Clean(p)] = struct{}{}
		return nil
	})
}

func (w *Watcher) forgetTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
}

func hidden(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}

func etag(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
