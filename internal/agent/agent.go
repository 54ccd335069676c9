package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/insightpilot/insightpilot/internal/collector"
	"github.com/insightpilot/insightpilot/internal/config"
	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/internal/watcher"
)

// Agent is the InsightPilot background service. It learns from records
// dropped in the inbox and prunes stale patterns on an interval.
type Agent struct {
	config    *config.Config
	store     *store.Store
	collector *collector.Collector
	log       *logger.Logger
	items     chan watcher.Item
	watchers  []watcher.Watcher
	cancel    context.CancelFunc
	group     *errgroup.Group
	stopOnce  sync.Once
}

// New creates a new agent instance. Store options are passed through to
// the pattern store.
func New(cfg *config.Config, log *logger.Logger, opts ...store.Option) (*Agent, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	opts = append([]store.Option{store.WithModel(confidence.New(cfg.Learning))}, opts...)
	s, err := store.New(cfg.DBPath(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	log = logger.OrNop(log)
	return &Agent{
		config:    cfg,
		store:     s,
		collector: collector.New(s, log),
		log:       log.With("component", "agent"),
		items:     make(chan watcher.Item, 64),
	}, nil
}

// Store returns the pattern store the agent writes to
func (a *Agent) Store() *store.Store {
	return a.store
}

// Start begins the agent's background processing
func (a *Agent) Start(ctx context.Context) error {
	a.log.Info("starting agent", "dataDir", a.config.DataDir)

	ctx, a.cancel = context.WithCancel(ctx)
	a.group, ctx = errgroup.WithContext(ctx)

	if err := writePID(a.config.PIDPath()); err != nil {
		a.log.Warn("failed to write pid file", "error", err)
	}

	a.group.Go(func() error {
		a.processItems(ctx)
		return nil
	})

	if a.config.Prune.Interval > 0 {
		a.group.Go(func() error {
			a.pruneLoop(ctx)
			return nil
		})
	}

	if a.config.Inbox.Enabled {
		for _, dir := range []string{a.processedDir(), a.failedDir()} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				a.Stop()
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}

		inbox := watcher.NewInboxWatcher(a.config.Inbox.Dir, a.config.Inbox.Debounce, a.items, a.log)
		if err := inbox.Start(); err != nil {
			a.Stop()
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
		a.watchers = append(a.watchers, inbox)
	}

	a.log.Info("agent started", "inbox", a.config.Inbox.Enabled, "pruneInterval", a.config.Prune.Interval)
	return nil
}

// Stop gracefully shuts down the agent
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		a.log.Info("stopping agent")

		for _, w := range a.watchers {
			w.Stop()
		}
		if a.cancel != nil {
			a.cancel()
		}
		if a.group != nil {
			if err := a.group.Wait(); err != nil {
				a.log.Warn("agent stopped with error", "error", err)
			}
		}

		if err := os.Remove(a.config.PIDPath()); err != nil && !os.IsNotExist(err) {
			a.log.Warn("failed to remove pid file", "error", err)
		}
		a.store.Close()

		a.log.Info("agent stopped")
	})
}

func (a *Agent) processItems(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-a.items:
			a.Process(ctx, item)
		}
	}
}

// Process learns from one inbox item and files it away. Undecodable files go
// to the failed directory; everything else to processed.
func (a *Agent) Process(ctx context.Context, item watcher.Item) {
	if item.Err != nil {
		a.log.Warn("skipping inbox file", "file", filepath.Base(item.Path), "error", item.Err)
		a.move(item.Path, a.failedDir())
		return
	}

	res := a.collector.Collect(ctx, item.Record)
	a.log.Info("learned from record",
		"record", item.Record.ID,
		"kind", item.Record.Kind,
		"derived", res.Derived,
		"recorded", res.Recorded,
		"failed", res.Failed,
	)
	if res.Skipped > 0 {
		// cancelled mid-record; leave the file for the next start
		return
	}
	a.move(item.Path, a.processedDir())
}

func (a *Agent) move(path, dir string) {
	if path == "" {
		return
	}
	if err := os.Rename(path, filepath.Join(dir, filepath.Base(path))); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn("failed to move inbox file", "file", filepath.Base(path), "error", err)
	}
}

// PruneOnce removes stale, low-value patterns
func (a *Agent) PruneOnce(ctx context.Context) (int64, error) {
	return a.store.Prune(ctx, a.config.Prune.MaxAgeDays)
}

// pruneLoop periodically prunes the pattern store
func (a *Agent) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.Prune.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.PruneOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.log.Warn("failed to prune patterns", "error", err)
				}
				continue
			}
			if n > 0 {
				a.log.Info("pruned patterns", "count", n)
			}
		}
	}
}

func (a *Agent) processedDir() string {
	return a.config.ProcessedDir()
}

func (a *Agent) failedDir() string {
	return filepath.Join(a.config.Inbox.Dir, "failed")
}

func writePID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}
