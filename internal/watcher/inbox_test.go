package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightpilot/insightpilot/pkg/models"
)

const debounce = 20 * time.Millisecond

func startInbox(t *testing.T, dir string) <-chan Item {
	t.Helper()
	items := make(chan Item, 8)
	w := NewInboxWatcher(dir, debounce, items, nil)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return items
}

func next(t *testing.T, items <-chan Item) Item {
	t.Helper()
	select {
	case item := <-items:
		return item
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbox item")
		return Item{}
	}
}

func TestInboxEmitsNewRecord(t *testing.T) {
	dir := t.TempDir()
	items := startInbox(t, dir)

	path := filepath.Join(dir, "evt_42.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"task","text":"gym","category":"Health"}`), 0o644))

	item := next(t, items)
	require.NoError(t, item.Err)
	assert.Equal(t, path, item.Path)
	assert.Equal(t, models.Record{
		ID:       "evt_42",
		Kind:     models.RecordKindTask,
		Text:     "gym",
		Category: "Health",
	}, item.Record)
}

func TestInboxPicksUpBacklog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(`{"id":"r1","text":"yoga"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))

	items := startInbox(t, dir)

	item := next(t, items)
	require.NoError(t, item.Err)
	assert.Equal(t, "r1", item.Record.ID)
	assert.Equal(t, models.RecordKindEvent, item.Record.Kind)

	select {
	case extra := <-items:
		t.Fatalf("unexpected item %s", extra.Path)
	case <-time.After(10 * debounce):
	}
}

func TestInboxReportsBadRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"text":`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weird.json"), []byte(`{"kind":"memo","text":"x"}`), 0o644))

	items := startInbox(t, dir)

	for range 2 {
		item := next(t, items)
		assert.Error(t, item.Err, item.Path)
		assert.Empty(t, item.Record.Text)
	}
}

func TestIsRecordFile(t *testing.T) {
	assert.True(t, isRecordFile("a.json"))
	assert.True(t, isRecordFile("A.JSON"))
	assert.False(t, isRecordFile(".a.json"))
	assert.False(t, isRecordFile("~a.json"))
	assert.False(t, isRecordFile("a.json.swp"))
	assert.False(t, isRecordFile("processed"))
}

func TestStopIsIdempotent(t *testing.T) {
	w := NewInboxWatcher(t.TempDir(), debounce, make(chan Item), nil)
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}
