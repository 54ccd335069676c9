package learning

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightpilot/insightpilot/internal/collector"
	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/pkg/models"
)

func newTestEngine(patterns ...models.Pattern) (*Engine, *fakeStore) {
	fs := &fakeStore{patterns: patterns}
	return NewEngine(fs, confidence.Config{}, nil), fs
}

func fields(applied []AutoApplied) []Field {
	out := []Field{}
	for _, a := range applied {
		out = append(out, a.Field)
	}
	return out
}

func TestEnrichLearnsFromAccepts(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(filepath.Join(t.TempDir(), "patterns.db"))
	require.NoError(t, err)
	defer s.Close()

	collector.New(s, nil).Collect(ctx, models.Record{
		Kind:     models.RecordKindEvent,
		Text:     "gym",
		Category: "Health",
	})
	found, err := s.FindBySource(ctx, models.SourceTypeKeyword, "gym")
	require.NoError(t, err)
	require.Len(t, found, 1)
	id := found[0].ID

	e := NewEngine(s, confidence.DefaultConfig(), nil)

	// Four accepts over five occurrences: 0.3 + 0.8*0.15*4 = 0.78, a suggestion
	for range 4 {
		require.NoError(t, e.AcceptSuggestion(ctx, id))
	}
	res, err := e.Enrich(ctx, models.Draft{}, "gym session")
	require.NoError(t, err)
	assert.Empty(t, res.AutoApplied)
	assert.False(t, res.Enriched.Category.IsSet())
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, FieldCategory, res.Suggestions[0].Field)
	assert.Equal(t, "Health", res.Suggestions[0].Value)
	assert.InDelta(t, 0.78, res.Suggestions[0].Confidence, 1e-3)
	assert.Equal(t, `Learned from "gym"`, res.Suggestions[0].Source)
	assert.Equal(t, []string{id}, res.Suggestions[0].PatternIDs)

	// One more: 0.3 + (5/6)*0.15*5 = 0.925, applied automatically
	require.NoError(t, e.AcceptSuggestion(ctx, id))
	res, err = e.Enrich(ctx, models.Draft{}, "gym session")
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)
	require.Len(t, res.AutoApplied, 1)
	assert.Equal(t, FieldCategory, res.AutoApplied[0].Field)
	assert.Equal(t, "Health", res.AutoApplied[0].Value)
	assert.InDelta(t, 0.925, res.AutoApplied[0].Confidence, 1e-3)
	assert.Equal(t, "Health", res.Enriched.Category.Value())
}

func TestEnrichNeverOverwritesSetFields(t *testing.T) {
	e, _ := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.9),
		pat("sub", models.SourceTypeKeyword, "gym", models.TargetTypeSubcategory, "Workout", 0.9),
		pat("skill", models.SourceTypeKeyword, "gym", models.TargetTypeSkill, "Cardio", 0.9),
		pat("goal", models.SourceTypeKeyword, "gym", models.TargetTypeGoal, "Get Shredded", 0.9),
	)

	draft := models.Draft{
		Title:    "Gym",
		Category: models.Some("Work"),
		Skills:   models.Some([]string{}),
		Goal:     models.Some(""),
	}
	res, err := e.Enrich(context.Background(), draft, "gym")
	require.NoError(t, err)

	assert.Empty(t, res.AutoApplied)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, "Work", res.Enriched.Category.Value())
	assert.False(t, res.Enriched.Subcategory.IsSet())
	skills, ok := res.Enriched.Skills.Get()
	assert.True(t, ok)
	assert.Empty(t, skills)
	assert.True(t, res.Enriched.Goal.IsSet())
	assert.Empty(t, res.Enriched.Goal.Value())
}

func TestEnrichPriorityOrder(t *testing.T) {
	e, _ := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.9),
		pat("sub", models.SourceTypeKeyword, "gym", models.TargetTypeSubcategory, "Workout", 0.85),
		pat("loc-cat", models.SourceTypeLocation, "la fitness", models.TargetTypeCategory, "Fitness", 0.85),
		pat("loc-skill", models.SourceTypeLocation, "la fitness", models.TargetTypeSkill, "Weightlifting", 0.9),
		pat("person", models.SourceTypePerson, "alex", models.TargetTypeCategory, "Social", 0.95),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, gymText)
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldCategory, FieldSubcategory, FieldSkills}, fields(res.AutoApplied))
	assert.Equal(t, AutoApplied{
		Field:      FieldCategory,
		Value:      "Health",
		Confidence: 0.9,
		Source:     `Learned from "gym"`,
		PatternIDs: []string{"cat"},
	}, res.AutoApplied[0])
	assert.Equal(t, "Workout", res.AutoApplied[1].Value)
	assert.Equal(t, []string{"sub"}, res.AutoApplied[1].PatternIDs)
	assert.Equal(t, AutoApplied{
		Field:      FieldSkills,
		Values:     []string{"Weightlifting"},
		Confidence: 0.9,
		Source:     `Learned from "!la fitness"`,
		PatternIDs: []string{"loc-skill"},
	}, res.AutoApplied[2])

	assert.Equal(t, "Health", res.Enriched.Category.Value())
	assert.Equal(t, "Workout", res.Enriched.Subcategory.Value())
	assert.Equal(t, []string{"Weightlifting"}, res.Enriched.Skills.Value())
	assert.Empty(t, res.Suggestions)
}

func TestEnrichLocationFillsCategory(t *testing.T) {
	e, _ := newTestEngine(
		pat("loc-cat", models.SourceTypeLocation, "la fitness", models.TargetTypeCategory, "Health", 0.85),
		pat("loc-sub", models.SourceTypeLocation, "la fitness", models.TargetTypeSubcategory, "Workout", 0.82),
		pat("person", models.SourceTypePerson, "alex", models.TargetTypeCategory, "Social", 0.95),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, gymText)
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldCategory, FieldSubcategory}, fields(res.AutoApplied))
	assert.Equal(t, "Health", res.Enriched.Category.Value())
	assert.Equal(t, "Workout", res.Enriched.Subcategory.Value())
	assert.Equal(t, `Learned from "!la fitness"`, res.AutoApplied[0].Source)
	assert.InDelta(t, 0.85, res.AutoApplied[0].Confidence, 1e-9)
	assert.InDelta(t, 0.82, res.AutoApplied[1].Confidence, 1e-9)
	assert.Empty(t, res.Suggestions)
}

func TestEnrichLocationGatesEachFieldOnItsOwnPattern(t *testing.T) {
	e, _ := newTestEngine(
		pat("loc-cat", models.SourceTypeLocation, "la fitness", models.TargetTypeCategory, "Fitness", 0.55),
		pat("loc-sub", models.SourceTypeLocation, "la fitness", models.TargetTypeSubcategory, "Workout", 0.6),
		pat("loc-skill", models.SourceTypeLocation, "la fitness", models.TargetTypeSkill, "Weightlifting", 0.9),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, "session at LA Fitness")
	require.NoError(t, err)

	require.Len(t, res.AutoApplied, 1)
	assert.Equal(t, AutoApplied{
		Field:      FieldSkills,
		Values:     []string{"Weightlifting"},
		Confidence: 0.9,
		Source:     `Learned from "!la fitness"`,
		PatternIDs: []string{"loc-skill"},
	}, res.AutoApplied[0])
	assert.False(t, res.Enriched.Category.IsSet())
	assert.False(t, res.Enriched.Subcategory.IsSet())

	require.Len(t, res.Suggestions, 2)
	assert.Equal(t, Suggestion{
		Field:      FieldCategory,
		Value:      "Fitness",
		Confidence: 0.55,
		Source:     `Learned from "!la fitness"`,
		PatternIDs: []string{"loc-cat"},
	}, res.Suggestions[0])
	assert.Equal(t, FieldSubcategory, res.Suggestions[1].Field)
	assert.InDelta(t, 0.6, res.Suggestions[1].Confidence, 1e-9)
}

func TestEnrichWeakSubcategoryIsSuggestedNotApplied(t *testing.T) {
	e, _ := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.9),
		pat("sub", models.SourceTypeKeyword, "gym", models.TargetTypeSubcategory, "Workout", 0.6),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, "gym")
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldCategory}, fields(res.AutoApplied))
	assert.Equal(t, "Health", res.Enriched.Category.Value())
	assert.False(t, res.Enriched.Subcategory.IsSet())
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, FieldSubcategory, res.Suggestions[0].Field)
	assert.Equal(t, "Workout", res.Suggestions[0].Value)
	assert.InDelta(t, 0.6, res.Suggestions[0].Confidence, 1e-9)
	assert.Equal(t, []string{"sub"}, res.Suggestions[0].PatternIDs)
}

func TestEnrichSkipsLocationWhenDraftHasOne(t *testing.T) {
	e, _ := newTestEngine(
		pat("loc-cat", models.SourceTypeLocation, "la fitness", models.TargetTypeCategory, "Health", 0.9),
	)

	res, err := e.Enrich(context.Background(), models.Draft{Location: models.Some("Home")}, gymText)
	require.NoError(t, err)
	assert.Empty(t, res.AutoApplied)
	assert.False(t, res.Enriched.Category.IsSet())
	assert.Equal(t, "Home", res.Enriched.Location.Value())
}

func TestEnrichPersonFallback(t *testing.T) {
	e, _ := newTestEngine(
		pat("person", models.SourceTypePerson, "alex", models.TargetTypeCategory, "Social", 0.85),
		pat("person-sub", models.SourceTypePerson, "alex", models.TargetTypeSubcategory, "Family", 0.82),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, "dinner with Alex")
	require.NoError(t, err)

	require.Len(t, res.AutoApplied, 2)
	assert.Equal(t, "Social", res.Enriched.Category.Value())
	assert.Equal(t, "Family", res.Enriched.Subcategory.Value())
	assert.Equal(t, `Learned from "@alex"`, res.AutoApplied[0].Source)
	assert.InDelta(t, 0.85, res.AutoApplied[0].Confidence, 1e-9)
	assert.InDelta(t, 0.82, res.AutoApplied[1].Confidence, 1e-9)
}

func TestEnrichPersonOnlyWithoutCategory(t *testing.T) {
	e, _ := newTestEngine(
		pat("person", models.SourceTypePerson, "alex", models.TargetTypeCategory, "Social", 0.85),
	)

	res, err := e.Enrich(context.Background(), models.Draft{Category: models.Some("Work")}, "dinner with Alex")
	require.NoError(t, err)
	assert.Empty(t, res.AutoApplied)
	assert.Equal(t, "Work", res.Enriched.Category.Value())
}

func TestEnrichPicksHighestConfidenceThenMostRecent(t *testing.T) {
	e, _ := newTestEngine(
		seen(pat("old", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.9), 72*time.Hour),
		seen(pat("new", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Fitness", 0.9), time.Hour),
		pat("low", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Sport", 0.82),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, "gym")
	require.NoError(t, err)
	require.Len(t, res.AutoApplied, 1)
	assert.Equal(t, "Fitness", res.AutoApplied[0].Value)
	assert.Equal(t, []string{"new"}, res.AutoApplied[0].PatternIDs)
}

func TestEnrichSuggestionsFromEveryBucket(t *testing.T) {
	e, _ := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.7),
		pat("sub", models.SourceTypeKeyword, "gym", models.TargetTypeSubcategory, "Workout", 0.6),
		pat("skill", models.SourceTypeKeyword, "workout", models.TargetTypeSkill, "Cardio", 0.65),
		pat("goal", models.SourceTypeKeyword, "gym", models.TargetTypeGoal, "Get Shredded", 0.55),
		pat("person", models.SourceTypePerson, "alex", models.TargetTypeCategory, "Social", 0.6),
		pat("loc", models.SourceTypeLocation, "la fitness", models.TargetTypeSkill, "Weightlifting", 0.5),
		pat("weak", models.SourceTypeKeyword, "workout", models.TargetTypeCategory, "Fitness", 0.3),
	)

	res, err := e.Enrich(context.Background(), models.Draft{}, gymText)
	require.NoError(t, err)
	assert.Empty(t, res.AutoApplied)

	type row struct {
		Field  Field
		Value  string
		Source string
	}
	var got []row
	for _, s := range res.Suggestions {
		v := s.Value
		if s.Field == FieldSkills {
			v = s.Values[0]
		}
		got = append(got, row{s.Field, v, s.Source})
	}
	assert.Equal(t, []row{
		{FieldCategory, "Health", `Learned from "gym"`},
		{FieldSubcategory, "Workout", `Learned from "gym"`},
		{FieldSkills, "Cardio", `Learned from "workout"`},
		{FieldGoal, "Get Shredded", `Learned from "gym"`},
		{FieldCategory, "Social", `Learned from "@alex"`},
		{FieldSkills, "Weightlifting", `Learned from "!la fitness"`},
	}, got)
	assert.Equal(t, []string{"sub"}, res.Suggestions[1].PatternIDs)
}

func TestPreview(t *testing.T) {
	e, _ := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.9),
		pat("skill", models.SourceTypeKeyword, "gym", models.TargetTypeSkill, "Cardio", 0.6),
	)

	p, err := e.Preview(context.Background(), "gym")
	require.NoError(t, err)
	require.Len(t, p.WouldAutoApply, 1)
	assert.Equal(t, "Health", p.WouldAutoApply[0].Value)
	require.Len(t, p.WouldSuggest, 1)
	assert.Equal(t, []string{"Cardio"}, p.WouldSuggest[0].Values)
}

func TestHasLearnedPatterns(t *testing.T) {
	e, _ := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.6),
	)
	ctx := context.Background()

	assert.True(t, e.HasLearnedPatterns(ctx, "gym"))
	assert.False(t, e.HasLearnedPatterns(ctx, "yoga"))
	assert.False(t, e.HasLearnedPatterns(ctx, ""))
}

func TestFeedback(t *testing.T) {
	e, fs := newTestEngine(
		pat("cat", models.SourceTypeKeyword, "gym", models.TargetTypeCategory, "Health", 0.6),
	)
	ctx := context.Background()

	require.NoError(t, e.AcceptSuggestion(ctx, "cat"))
	require.NoError(t, e.RejectSuggestion(ctx, "cat"))
	assert.Equal(t, []string{"cat"}, fs.accepted)
	assert.Equal(t, []string{"cat"}, fs.rejected)

	// pruned meanwhile
	require.NoError(t, e.AcceptSuggestion(ctx, "pat_gone"))
	require.NoError(t, e.RejectSuggestion(ctx, "pat_gone"))

	fs.fail = map[string]error{"cat": errors.New("disk I/O error")}
	require.Error(t, e.AcceptSuggestion(ctx, "cat"))
}
