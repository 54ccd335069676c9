package agent

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightpilot/insightpilot/internal/config"
	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/internal/watcher"
	"github.com/insightpilot/insightpilot/pkg/models"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.Inbox.Dir = filepath.Join(root, "inbox")
	cfg.Inbox.Debounce = 20 * time.Millisecond
	cfg.Prune.Interval = 0
	return cfg
}

func TestAgentLearnsFromInbox(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer a.Stop()

	assert.True(t, Running(cfg.PIDPath()))

	good := filepath.Join(cfg.Inbox.Dir, "evt_1.json")
	bad := filepath.Join(cfg.Inbox.Dir, "evt_2.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"kind":"event","text":"gym","category":"Health"}`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`not json`), 0o644))

	require.Eventually(t, func() bool {
		_, errGood := os.Stat(filepath.Join(cfg.ProcessedDir(), "evt_1.json"))
		_, errBad := os.Stat(filepath.Join(cfg.Inbox.Dir, "failed", "evt_2.json"))
		return errGood == nil && errBad == nil
	}, 5*time.Second, 10*time.Millisecond)

	patterns, err := a.Store().FindBySource(ctx, models.SourceTypeKeyword, "gym")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "health", patterns[0].TargetKey)
	assert.Equal(t, 1, patterns[0].OccurrenceCount)
}

func TestAgentStopRemovesPIDFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Inbox.Enabled = false

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	require.FileExists(t, cfg.PIDPath())

	a.Stop()
	a.Stop()
	assert.NoFileExists(t, cfg.PIDPath())
	assert.False(t, Running(cfg.PIDPath()))
}

func TestAgentPrunesOnInterval(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Inbox.Enabled = false
	cfg.Prune.Interval = 10 * time.Millisecond

	clock := &testClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a, err := New(cfg, nil, store.WithClock(clock.Now))
	require.NoError(t, err)
	defer a.Stop()

	a.Process(ctx, watcher.Item{Record: models.Record{Kind: models.RecordKindEvent, Text: "gym", Category: "Health"}})
	patterns, err := a.Store().FindBySource(ctx, models.SourceTypeKeyword, "gym")
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	// one rejection leaves it weak: 0.3 - (1/2)*0.2*1 = 0.2
	weak, err := a.Store().RecordReject(ctx, patterns[0].ID)
	require.NoError(t, err)
	require.InDelta(t, 0.2, weak.Confidence, 1e-9)

	clock.Advance(120 * 24 * time.Hour)
	require.NoError(t, a.Start(ctx))

	require.Eventually(t, func() bool {
		stats, err := a.Store().GetStats(ctx)
		return err == nil && stats.TotalPatterns == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunningWithoutPIDFile(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Running(filepath.Join(dir, "daemon.pid")))

	junk := filepath.Join(dir, "junk.pid")
	require.NoError(t, os.WriteFile(junk, []byte("not-a-pid"), 0o644))
	assert.False(t, Running(junk))
}

func TestRunningForLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, writePID(path))
	assert.True(t, Running(path))
}

func TestSignalWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	_, err := Signal(filepath.Join(dir, "daemon.pid"))
	assert.ErrorIs(t, err, ErrNotRunning)

	junk := filepath.Join(dir, "junk.pid")
	require.NoError(t, os.WriteFile(junk, []byte("-4"), 0o644))
	_, err = Signal(junk)
	assert.ErrorIs(t, err, ErrNotRunning)
}
