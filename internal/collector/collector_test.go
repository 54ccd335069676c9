package collector

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/pkg/models"
)

type fakeWriter struct {
	mu        sync.Mutex
	failOn    string
	created   []models.PatternInput
	increment int
}

func (f *fakeWriter) FindOrCreate(_ context.Context, in models.PatternInput) (*models.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && models.NormalizeKey(in.SourceKey) == f.failOn {
		return nil, errors.New("disk full")
	}
	f.created = append(f.created, in)
	return &models.Pattern{ID: models.NewPatternID()}, nil
}

func (f *fakeWriter) IncrementOccurrence(_ context.Context, id string) (*models.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increment++
	return &models.Pattern{ID: id}, nil
}

func gymEvent() models.Record {
	return models.Record{
		ID:          "evt_1",
		Kind:        models.RecordKindEvent,
		Text:        "gym workout with Alex at LA Fitness",
		Category:    "Health",
		Subcategory: "Workout",
		Skills:      []string{"Weightlifting"},
		People:      []string{"Alex"},
		Location:    "LA Fitness",
	}
}

func tuples(inputs []models.PatternInput) []string {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		n := in.Normalized()
		out = append(out, string(n.SourceType)+":"+n.SourceKey+"->"+string(n.TargetType)+":"+n.TargetKey)
	}
	return out
}

func TestDeriveEvent(t *testing.T) {
	got := Derive(gymEvent())

	assert.Equal(t, []string{
		"keyword:gym->category:health",
		"keyword:gym->subcategory:workout",
		"keyword:gym->skill:weightlifting",
		"keyword:workout->category:health",
		"keyword:workout->subcategory:workout",
		"keyword:workout->skill:weightlifting",
		"keyword:gym workout->category:health",
		"keyword:gym workout->subcategory:workout",
		"keyword:gym workout->skill:weightlifting",
		"person:alex->category:health",
		"person:alex->subcategory:workout",
		"location:la fitness->category:health",
		"location:la fitness->subcategory:workout",
		"location:la fitness->skill:weightlifting",
	}, tuples(got))

	assert.Equal(t, models.PatternTypeActivityCategory, got[0].Type)
	assert.Equal(t, models.PatternTypeActivitySkill, got[2].Type)
	assert.Equal(t, models.PatternTypePersonContext, got[9].Type)
	assert.Equal(t, models.PatternTypeLocationFill, got[11].Type)
	assert.Equal(t, "Health", got[0].TargetDisplayName)
}

func TestDeriveGoal(t *testing.T) {
	got := Derive(models.Record{
		Kind:     models.RecordKindTask,
		Text:     "gym",
		Category: "Health",
		Goal:     "Get Shredded",
	})

	assert.Equal(t, []string{
		"keyword:gym->category:health",
		"keyword:gym->goal:get shredded",
		"goal:get shredded->category:health",
	}, tuples(got))
	for _, in := range got[1:] {
		assert.Equal(t, models.PatternTypeGoalCategory, in.Type)
	}
}

func TestDeriveSubcategoryNeedsCategory(t *testing.T) {
	got := Derive(models.Record{
		Kind:        models.RecordKindEvent,
		Text:        "gym",
		Subcategory: "Workout",
		People:      []string{"Alex"},
		Location:    "LA Fitness",
		Skills:      []string{"Cardio"},
	})

	assert.Equal(t, []string{
		"keyword:gym->skill:cardio",
		"location:la fitness->skill:cardio",
	}, tuples(got))
}

func TestDeriveTextMergesExtractedEntities(t *testing.T) {
	got := Derive(models.Record{
		Kind:     models.RecordKindText,
		Text:     "call @mom at the office",
		Category: "Social",
		People:   []string{" Mom "},
	})

	assert.Equal(t, []string{
		"keyword:call->category:social",
		"person:mom->category:social",
		"location:office->category:social",
	}, tuples(got))
}

func TestDeriveEventIgnoresTextEntities(t *testing.T) {
	got := Derive(models.Record{
		Kind:     models.RecordKindEvent,
		Text:     "call @mom at the office",
		Category: "Social",
	})

	assert.Equal(t, []string{"keyword:call->category:social"}, tuples(got))
}

func TestDeriveNothingToLearn(t *testing.T) {
	assert.Empty(t, Derive(models.Record{Kind: models.RecordKindEvent, Text: "gym workout"}))
	assert.Empty(t, Derive(models.Record{Kind: models.RecordKindEvent, Text: "thinking", Category: "Health"}))
}

func TestCollectRecordsEveryTuple(t *testing.T) {
	w := &fakeWriter{}
	res := New(w, nil).Collect(context.Background(), gymEvent())

	assert.Equal(t, Result{Derived: 14, Recorded: 14}, res)
	assert.Len(t, w.created, 14)
	assert.Equal(t, 14, w.increment)
}

func TestCollectContinuesPastFailures(t *testing.T) {
	w := &fakeWriter{failOn: "workout"}
	res := New(w, nil).Collect(context.Background(), gymEvent())

	assert.Equal(t, 14, res.Derived)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 11, res.Recorded)
	assert.Equal(t, 11, w.increment)
}

func TestCollectStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWriter{}
	res := New(w, nil).Collect(ctx, gymEvent())

	assert.Equal(t, Result{Derived: 14, Skipped: 14}, res)
	assert.Empty(t, w.created)
}

func TestCollectAgainstStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(filepath.Join(t.TempDir(), "patterns.db"))
	require.NoError(t, err)
	defer s.Close()

	c := New(s, nil)
	for range 3 {
		res := c.Collect(ctx, gymEvent())
		require.Zero(t, res.Failed)
	}

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, stats.TotalPatterns)

	gym, err := s.FindBySource(ctx, models.SourceTypeKeyword, "gym")
	require.NoError(t, err)
	require.Len(t, gym, 3)
	for _, p := range gym {
		assert.Equal(t, 3, p.OccurrenceCount)
		assert.InDelta(t, 0.3, p.Confidence, 1e-9)
	}

	loc, err := s.FindBySource(ctx, models.SourceTypeLocation, "la fitness")
	require.NoError(t, err)
	assert.Len(t, loc, 3)
}
