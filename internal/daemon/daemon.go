// Package daemon provides the watch daemon that keeps shared lists fresh.
//
// The daemon:
//  1. Subscribes to the record service's websocket change feed and pulls
//     when a shared list or task changes remotely
//  2. Pulls every shared list on a fallback interval (the feed is
//     best-effort; a dropped event only delays a refresh)
//  3. Watches the local store file so edits made by another process on this
//     device are reloaded before the next pull
//  4. Handles graceful shutdown
package daemon

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/fsnotify/fsnotify"

	"github.com/kaitodo/kaitodo/internal/recordserver"
	"github.com/kaitodo/kaitodo/internal/remote"
	"github.com/kaitodo/kaitodo/internal/repo"
	"github.com/kaitodo/kaitodo/internal/syncer"
)

// Config holds daemon configuration.
type Config struct {
	// RefreshInterval is the fallback pull interval when no events arrive.
	RefreshInterval time.Duration

	// DebounceInterval batches bursts of change events into one pull.
	DebounceInterval time.Duration

	// ReconnectBackoff is the wait between websocket dial attempts.
	ReconnectBackoff time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  30 * time.Second,
		DebounceInterval: 500 * time.Millisecond,
		ReconnectBackoff: 5 * time.Second,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates event subscription, interval refresh, and local store
// watching.
type Daemon struct {
	repo      *repo.Repository
	engine    *syncer.Engine
	eventsURL string
	storePath string
	config    *Config

	pullPending bool
	pendingMu   sync.Mutex

	wg sync.WaitGroup
}

// New creates a daemon. eventsURL is the record service's websocket
// endpoint; storePath is the local store database file.
func New(r *repo.Repository, engine *syncer.Engine, eventsURL, storePath string, config *Config) *Daemon {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	return &Daemon{
		repo:      r,
		engine:    engine,
		eventsURL: eventsURL,
		storePath: storePath,
		config:    config,
	}
}

// Start runs the daemon until ctx is cancelled. An initial pull of all
// shared lists happens before watching begins.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting watch daemon")

	report := d.engine.PullAll(ctx)
	d.config.Logger.Printf("Initial pull: %d lists, %d failures", report.Pulled, len(report.Failures))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.config.Logger.Printf("Store watching disabled: %v", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(d.storePath)); err != nil {
			d.config.Logger.Printf("Store watching disabled: %v", err)
		} else {
			d.wg.Add(1)
			go d.watchStore(ctx, watcher)
		}
	}

	d.wg.Add(2)
	go d.subscribeEvents(ctx)
	go d.pullLoop(ctx)

	<-ctx.Done()
	d.config.Logger.Println("Shutdown signal received")
	d.wg.Wait()
	d.config.Logger.Println("Watch daemon stopped")
	return nil
}

// subscribeEvents maintains the websocket subscription, re-dialing on
// failure. Shared-list and shared-task events schedule a pull.
func (d *Daemon) subscribeEvents(ctx context.Context) {
	defer d.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.Dial(ctx, d.eventsURL, nil)
		if err != nil {
			d.config.Logger.Printf("Event feed unavailable: %v (retrying in %v)", err, d.config.ReconnectBackoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.config.ReconnectBackoff):
				continue
			}
		}

		d.config.Logger.Println("Subscribed to event feed")
		d.readEvents(ctx, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (d *Daemon) readEvents(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				d.config.Logger.Printf("Event feed closed: %v", err)
			}
			return
		}

		var ev recordserver.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			d.config.Logger.Printf("Skipping malformed event: %v", err)
			continue
		}

		switch ev.RecordType {
		case remote.TypeSharedList, remote.TypeSharedTask:
			d.schedulePull()
		}
	}
}

// watchStore reloads the repository when another process writes the local
// store database.
func (d *Daemon) watchStore(ctx context.Context, watcher *fsnotify.Watcher) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(d.storePath) {
				continue
			}
			if err := d.repo.Reload(); err != nil {
				d.config.Logger.Printf("Reload failed: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) schedulePull() {
	d.pendingMu.Lock()
	d.pullPending = true
	d.pendingMu.Unlock()
}

// pullLoop runs debounced event-triggered pulls plus the interval fallback.
func (d *Daemon) pullLoop(ctx context.Context) {
	defer d.wg.Done()

	debounce := time.NewTicker(d.config.DebounceInterval)
	defer debounce.Stop()
	fallback := time.NewTicker(d.config.RefreshInterval)
	defer fallback.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-debounce.C:
			d.pendingMu.Lock()
			pending := d.pullPending
			d.pullPending = false
			d.pendingMu.Unlock()
			if pending {
				d.pull(ctx)
			}

		case <-fallback.C:
			d.pull(ctx)
		}
	}
}

func (d *Daemon) pull(ctx context.Context) {
	report := d.engine.PullAll(ctx)
	if !report.OK() {
		d.config.Logger.Printf("Pull completed with failures: %s", report.Summary())
	}
}
