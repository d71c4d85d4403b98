package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"club-overview-console/pkg/metrics"
)

// Change describes a configuration update event.
// Only a subset of fields may have changed; see Fields for the list of keys.
type Change struct {
	Old    *Config
	New    *Config
	Fields []string
	Err    error
}

// Subscriber channel buffer size; small to apply back-pressure if receivers are slow.
const subBuf = 4

// Watcher periodically reloads configuration from the environment.
// When CONFIG_FILE points at a .env file, the file is re-applied with godotenv.Overload
// whenever its mtime moves forward.
type Watcher struct {
	mu        sync.RWMutex
	cur       *Config
	closed    bool
	intv      time.Duration
	subs      []chan Change
	cancel    context.CancelFunc
	filePath  string
	lastMTime time.Time
}

func NewWatcher(interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	w := &Watcher{
		intv:     interval,
		filePath: strings.TrimSpace(os.Getenv("CONFIG_FILE")),
	}
	w.cur = Load()
	return w
}

// Current returns the last applied configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Subscribe returns a channel to receive Change notifications.
// Caller should drain the channel until it is closed.
func (w *Watcher) Subscribe() <-chan Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan Change, subBuf)
	w.subs = append(w.subs, ch)
	return ch
}

// Close stops the watcher and closes subscriber channels.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	for _, s := range w.subs {
		close(s)
	}
	w.subs = nil
}

// Start begins polling in a goroutine. It is safe to call once.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.cancel != nil || w.closed {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	t := time.NewTicker(w.intv)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.checkOnce()
		}
	}
}

func (w *Watcher) checkOnce() {
	if w.filePath != "" {
		if fi, err := os.Stat(w.filePath); err == nil && fi.ModTime().After(w.lastMTime) {
			if err := godotenv.Overload(w.filePath); err != nil {
				metrics.ConfigReloads.WithLabelValues("failed").Inc()
				w.notify(Change{Old: w.Current(), Err: fmt.Errorf("read %s: %w", w.filePath, err)})
				return
			}
			w.lastMTime = fi.ModTime()
		}
	}

	newCfg := Load()
	if err := newCfg.Validate(); err != nil {
		metrics.ConfigReloads.WithLabelValues("invalid").Inc()
		w.notify(Change{Old: w.Current(), New: newCfg, Err: fmt.Errorf("invalid config: %w", err)})
		return
	}

	w.mu.Lock()
	old := w.cur
	fields := diffKeys(old, newCfg)
	if len(fields) == 0 {
		w.mu.Unlock()
		return
	}
	w.cur = newCfg
	w.mu.Unlock()

	metrics.ConfigReloads.WithLabelValues("applied").Inc()
	w.notify(Change{Old: old, New: newCfg, Fields: fields})
}

func (w *Watcher) notify(chg Change) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, s := range w.subs {
		select {
		case s <- chg:
		default:
			// slow subscriber, drop
		}
	}
}

// diffKeys lists the hot-reloadable settings that differ. Everything else needs a restart.
func diffKeys(a, b *Config) []string {
	if a == nil || b == nil {
		return []string{"all"}
	}
	var f []string
	appendIf := func(cond bool, name string) {
		if cond {
			f = append(f, name)
		}
	}
	appendIf(a.LogLevel != b.LogLevel, "LogLevel")
	appendIf(a.UploadConcurrency != b.UploadConcurrency, "UploadConcurrency")
	appendIf(a.MaxAllocationAttempts != b.MaxAllocationAttempts, "MaxAllocationAttempts")
	appendIf(a.CacheTTL != b.CacheTTL, "CacheTTL")
	appendIf(a.DefaultLogoURL != b.DefaultLogoURL || a.DefaultBannerURL != b.DefaultBannerURL ||
		a.DefaultMoodImageURL != b.DefaultMoodImageURL || a.DefaultOfferURL != b.DefaultOfferURL, "PreviewDefaults")
	return f
}
