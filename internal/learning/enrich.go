package learning

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/pkg/models"
)

// PatternStore is what the engine needs from the pattern store
type PatternStore interface {
	PatternReader
	RecordAccept(ctx context.Context, id string) (*models.Pattern, error)
	RecordReject(ctx context.Context, id string) (*models.Pattern, error)
}

// Field names a draft attribute the engine can fill
type Field string

const (
	FieldCategory    Field = "category"
	FieldSubcategory Field = "subcategory"
	FieldSkills      Field = "skills"
	FieldGoal        Field = "goal"
)

// Suggestion is a learned value offered to the user for confirmation.
// Skills carry Values; every other field carries Value.
type Suggestion struct {
	Field      Field    `json:"field"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	PatternIDs []string `json:"patternIds"`
}

// AutoApplied records a value filled in without asking
type AutoApplied struct {
	Field      Field    `json:"field"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	PatternIDs []string `json:"patternIds"`
}

// Result is the outcome of enriching one draft
type Result struct {
	Enriched    models.Draft           `json:"enriched"`
	Suggestions []Suggestion           `json:"suggestions"`
	AutoApplied []AutoApplied          `json:"autoApplied"`
	Context     *models.PatternContext `json:"context"`
}

// Preview is what enrichment would do for text on an empty draft
type Preview struct {
	WouldAutoApply []AutoApplied `json:"wouldAutoApply"`
	WouldSuggest   []Suggestion  `json:"wouldSuggest"`
}

// Engine fills and suggests draft fields from learned patterns
type Engine struct {
	store   PatternStore
	builder *Builder
	model   *confidence.Model
	log     *logger.Logger
}

// NewEngine creates an enrichment engine. A zero cfg uses the default tuning.
func NewEngine(patterns PatternStore, cfg confidence.Config, log *logger.Logger) *Engine {
	log = logger.OrNop(log)
	return &Engine{
		store:   patterns,
		builder: NewBuilder(patterns, cfg, log),
		model:   confidence.New(cfg),
		log:     log.With("component", "enrich"),
	}
}

// Context builds the pattern context for text
func (e *Engine) Context(ctx context.Context, text string) (*models.PatternContext, error) {
	return e.builder.Build(ctx, text)
}

// Enrich fills every field absent from draft with the strongest candidate
// at or above the auto-apply threshold, in priority order: keyword
// category and subcategory, skills, goal, the top location fill (only when
// the draft has no location), then the top person context (only when no
// category is set yet). Entries in the suggest band that were not applied
// become suggestions. Fields already set on draft are never touched.
func (e *Engine) Enrich(ctx context.Context, draft models.Draft, text string) (*Result, error) {
	pc, err := e.builder.Build(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to build pattern context: %w", err)
	}

	a := &applier{
		model:   e.model,
		draft:   copyDraft(draft),
		applied: []AutoApplied{},
	}
	a.apply(pc)

	return &Result{
		Enriched:    a.draft,
		Suggestions: suggestions(e.model, pc, a),
		AutoApplied: a.applied,
		Context:     pc,
	}, nil
}

// Preview reports what Enrich would apply and suggest for text on an empty
// draft
func (e *Engine) Preview(ctx context.Context, text string) (*Preview, error) {
	res, err := e.Enrich(ctx, models.Draft{}, text)
	if err != nil {
		return nil, err
	}
	return &Preview{WouldAutoApply: res.AutoApplied, WouldSuggest: res.Suggestions}, nil
}

// HasLearnedPatterns reports whether any learned pattern matches text.
// Callers use it to skip enrichment UI entirely.
func (e *Engine) HasLearnedPatterns(ctx context.Context, text string) bool {
	pc, err := e.builder.Build(ctx, text)
	if err != nil {
		return false
	}
	return !pc.IsEmpty()
}

// AcceptSuggestion records that the user accepted a suggestion from the
// pattern. A pattern that no longer exists is ignored.
func (e *Engine) AcceptSuggestion(ctx context.Context, patternID string) error {
	return e.feedback(ctx, patternID, true)
}

// RejectSuggestion records that the user dismissed a suggestion from the
// pattern. A pattern that no longer exists is ignored.
func (e *Engine) RejectSuggestion(ctx context.Context, patternID string) error {
	return e.feedback(ctx, patternID, false)
}

func (e *Engine) feedback(ctx context.Context, patternID string, accepted bool) error {
	record := e.store.RecordReject
	if accepted {
		record = e.store.RecordAccept
	}

	p, err := record(ctx, patternID)
	if errors.Is(err, store.ErrNotFound) {
		e.log.Debug("feedback for missing pattern", "id", patternID, "accepted", accepted)
		return nil
	}
	if err != nil {
		return err
	}

	e.log.Debug("recorded feedback",
		"id", p.ID,
		"accepted", accepted,
		"confidence", p.Confidence,
		"level", e.model.Level(p.Confidence),
	)
	return nil
}

// applier carries the draft through the auto-apply steps and remembers
// which patterns were used. Every field is gated on the confidence of the
// pattern that fills it.
type applier struct {
	model   *confidence.Model
	draft   models.Draft
	applied []AutoApplied
	used    map[string]bool
}

func (a *applier) apply(pc *models.PatternContext) {
	a.used = make(map[string]bool)

	if !a.draft.Category.IsSet() {
		if i := slices.IndexFunc(pc.Categories, func(c models.CategorySuggestion) bool {
			return a.model.ShouldAutoApply(c.Confidence)
		}); i >= 0 {
			c := pc.Categories[i]
			source := keywordSource(c.Keyword)
			a.setCategory(c.Category, c.Confidence, source, c.PatternID)
			a.subcategoryAlongside(c.Subcategory, c.SubcategoryConfidence, source, c.SubcategoryPatternID)
		}
	}

	if !a.draft.Skills.IsSet() {
		if i := slices.IndexFunc(pc.Skills, func(s models.SkillSuggestion) bool {
			return a.model.ShouldAutoApply(s.Confidence)
		}); i >= 0 {
			s := pc.Skills[i]
			a.setSkills(s.Skills, s.Confidence, keywordSource(s.Keyword), s.PatternIDs...)
		}
	}

	if !a.draft.Goal.IsSet() {
		if i := slices.IndexFunc(pc.Goals, func(g models.GoalSuggestion) bool {
			return a.model.ShouldAutoApply(g.Confidence)
		}); i >= 0 {
			g := pc.Goals[i]
			a.draft.Goal = models.Some(g.Goal)
			a.record(FieldGoal, g.Goal, nil, g.Confidence, keywordSource(g.Keyword), g.PatternID)
		}
	}

	if !a.draft.Location.IsSet() && len(pc.Locations) > 0 {
		a.applyLocation(pc.Locations[0])
	}

	if !a.draft.Category.IsSet() && len(pc.People) > 0 && a.model.ShouldAutoApply(pc.People[0].Confidence) {
		p := pc.People[0]
		source := personSource(p.Person)
		a.setCategory(p.Category, p.Confidence, source, p.PatternID)
		a.subcategoryAlongside(p.Subcategory, p.SubcategoryConfidence, source, p.SubcategoryPatternID)
	}
}

// applyLocation fills category, subcategory and skills from the top
// location, each only when its own patterns reach the auto-apply threshold.
// The subcategory is only used alongside a matching category.
func (a *applier) applyLocation(l models.LocationFill) {
	source := locationSource(l.Location)

	if !a.draft.Category.IsSet() && l.Category != "" && a.model.ShouldAutoApply(l.CategoryConfidence) {
		a.setCategory(l.Category, l.CategoryConfidence, source, l.CategoryPatternID)
	}
	if l.Category != "" && models.NormalizeKey(a.draft.Category.Value()) == models.NormalizeKey(l.Category) {
		a.subcategoryAlongside(l.Subcategory, l.SubcategoryConfidence, source, l.SubcategoryPatternID)
	}
	if !a.draft.Skills.IsSet() && len(l.Skills) > 0 && a.model.ShouldAutoApply(l.SkillsConfidence) {
		a.setSkills(l.Skills, l.SkillsConfidence, source, l.SkillPatternIDs...)
	}
}

// subcategoryAlongside applies a subcategory that travels with an applied
// category
func (a *applier) subcategoryAlongside(value string, c float64, source, id string) {
	if value == "" || a.draft.Subcategory.IsSet() || !a.model.ShouldAutoApply(c) {
		return
	}
	a.setSubcategory(value, c, source, id)
}

func (a *applier) setCategory(value string, c float64, source, id string) {
	a.draft.Category = models.Some(value)
	a.record(FieldCategory, value, nil, c, source, id)
}

func (a *applier) setSubcategory(value string, c float64, source, id string) {
	a.draft.Subcategory = models.Some(value)
	a.record(FieldSubcategory, value, nil, c, source, id)
}

func (a *applier) setSkills(values []string, c float64, source string, ids ...string) {
	a.draft.Skills = models.Some(slices.Clone(values))
	a.record(FieldSkills, "", slices.Clone(values), c, source, ids...)
}

func (a *applier) record(field Field, value string, values []string, c float64, source string, ids ...string) {
	for _, id := range ids {
		a.used[id] = true
	}
	a.applied = append(a.applied, AutoApplied{
		Field:      field,
		Value:      value,
		Values:     values,
		Confidence: c,
		Source:     source,
		PatternIDs: nonEmpty(ids),
	})
}

// suggestions lists every context value in the suggest band whose pattern
// was not auto-applied
func suggestions(m *confidence.Model, pc *models.PatternContext, a *applier) []Suggestion {
	out := []Suggestion{}
	add := func(field Field, value string, values []string, c float64, source string, ids ...string) {
		if !m.ShouldSuggest(c) || len(ids) == 0 || a.used[ids[0]] {
			return
		}
		out = append(out, Suggestion{
			Field:      field,
			Value:      value,
			Values:     slices.Clone(values),
			Confidence: c,
			Source:     source,
			PatternIDs: nonEmpty(ids),
		})
	}

	for _, c := range pc.Categories {
		source := keywordSource(c.Keyword)
		add(FieldCategory, c.Category, nil, c.Confidence, source, c.PatternID)
		if c.Subcategory != "" {
			add(FieldSubcategory, c.Subcategory, nil, c.SubcategoryConfidence, source, c.SubcategoryPatternID)
		}
	}

	for _, s := range pc.Skills {
		add(FieldSkills, "", s.Skills, s.Confidence, keywordSource(s.Keyword), s.PatternIDs...)
	}

	for _, g := range pc.Goals {
		add(FieldGoal, g.Goal, nil, g.Confidence, keywordSource(g.Keyword), g.PatternID)
	}

	for _, p := range pc.People {
		source := personSource(p.Person)
		add(FieldCategory, p.Category, nil, p.Confidence, source, p.PatternID)
		if p.Subcategory != "" {
			add(FieldSubcategory, p.Subcategory, nil, p.SubcategoryConfidence, source, p.SubcategoryPatternID)
		}
	}

	for _, l := range pc.Locations {
		source := locationSource(l.Location)
		if l.Category != "" {
			add(FieldCategory, l.Category, nil, l.CategoryConfidence, source, l.CategoryPatternID)
		}
		if l.Subcategory != "" {
			add(FieldSubcategory, l.Subcategory, nil, l.SubcategoryConfidence, source, l.SubcategoryPatternID)
		}
		if len(l.Skills) > 0 {
			add(FieldSkills, "", l.Skills, l.SkillsConfidence, source, l.SkillPatternIDs...)
		}
	}

	return out
}

func keywordSource(keyword string) string {
	return fmt.Sprintf("Learned from %q", keyword)
}

func personSource(person string) string {
	return fmt.Sprintf("Learned from %q", "@"+person)
}

func locationSource(location string) string {
	return fmt.Sprintf("Learned from %q", "!"+location)
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func copyDraft(d models.Draft) models.Draft {
	if skills, ok := d.Skills.Get(); ok {
		d.Skills = models.Some(slices.Clone(skills))
	}
	d.People = slices.Clone(d.People)
	return d
}
