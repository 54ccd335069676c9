// Package learning turns learned patterns into suggestions for a new
// capture. The Builder gathers every pattern relevant to the input text and
// the Engine decides what to fill in automatically and what to offer.
package learning

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/extractor"
	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/pkg/models"
)

// PatternReader is the read side of the pattern store
type PatternReader interface {
	FindBySource(ctx context.Context, sourceType models.SourceType, sourceKey string) ([]models.Pattern, error)
}

// Builder assembles a PatternContext for input text
type Builder struct {
	store PatternReader
	model *confidence.Model
	log   *logger.Logger
}

// NewBuilder creates a context builder. A zero cfg uses the default tuning.
func NewBuilder(patterns PatternReader, cfg confidence.Config, log *logger.Logger) *Builder {
	return &Builder{
		store: patterns,
		model: confidence.New(cfg),
		log:   logger.OrNop(log).With("component", "context"),
	}
}

// Build extracts cues from text and folds every pattern at or above the
// suggest threshold into the context buckets. A store error for one cue is
// logged and that cue skipped; only a cancelled context fails the build.
func (b *Builder) Build(ctx context.Context, text string) (*models.PatternContext, error) {
	entities := extractor.Extract(text)

	pc := &models.PatternContext{
		Categories: []models.CategorySuggestion{},
		Skills:     []models.SkillSuggestion{},
		Goals:      []models.GoalSuggestion{},
		People:     []models.PersonContext{},
		Locations:  []models.LocationFill{},
	}

	for _, keyword := range entities.Keywords {
		patterns, err := b.lookup(ctx, models.SourceTypeKeyword, keyword)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			addKeywordPattern(pc, keyword, p)
		}
	}

	for _, person := range entities.People {
		patterns, err := b.lookup(ctx, models.SourceTypePerson, person)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			addPersonPattern(pc, person, p)
		}
	}

	for _, location := range entities.Locations {
		patterns, err := b.lookup(ctx, models.SourceTypeLocation, location)
		if err != nil {
			return nil, err
		}
		if len(patterns) > 0 {
			addLocationPatterns(pc, location, patterns)
		}
	}

	sortByConfidence(pc.Categories, func(c models.CategorySuggestion) (float64, time.Time) { return c.Confidence, c.LastSeenAt })
	sortByConfidence(pc.Skills, func(s models.SkillSuggestion) (float64, time.Time) { return s.Confidence, s.LastSeenAt })
	sortByConfidence(pc.Goals, func(g models.GoalSuggestion) (float64, time.Time) { return g.Confidence, g.LastSeenAt })
	sortByConfidence(pc.People, func(p models.PersonContext) (float64, time.Time) { return p.Confidence, p.LastSeenAt })
	sortByConfidence(pc.Locations, func(l models.LocationFill) (float64, time.Time) { return l.Confidence, l.LastSeenAt })

	return pc, nil
}

// lookup returns the suggestible patterns for one cue, categories first so
// subcategories always find the entry they attach to
func (b *Builder) lookup(ctx context.Context, sourceType models.SourceType, key string) ([]models.Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := b.store.FindBySource(ctx, sourceType, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.log.Warn("failed to load patterns", "sourceType", sourceType, "sourceKey", key, "error", err)
		return nil, nil
	}

	patterns := make([]models.Pattern, 0, len(found))
	for _, p := range found {
		if b.model.ShouldIgnore(p.Confidence) {
			continue
		}
		patterns = append(patterns, p)
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		return targetRank(patterns[i].TargetType) < targetRank(patterns[j].TargetType)
	})
	return patterns, nil
}

func targetRank(t models.TargetType) int {
	switch t {
	case models.TargetTypeCategory:
		return 0
	case models.TargetTypeSubcategory:
		return 1
	case models.TargetTypeSkill:
		return 2
	default:
		return 3
	}
}

func addKeywordPattern(pc *models.PatternContext, keyword string, p models.Pattern) {
	switch p.TargetType {
	case models.TargetTypeCategory:
		for _, c := range pc.Categories {
			if c.Keyword == keyword && models.NormalizeKey(c.Category) == p.TargetKey {
				return
			}
		}
		pc.Categories = append(pc.Categories, models.CategorySuggestion{
			Keyword:    keyword,
			Category:   p.DisplayName(),
			Confidence: p.Confidence,
			PatternID:  p.ID,
			LastSeenAt: p.LastSeenAt,
		})

	case models.TargetTypeSubcategory:
		for i := range pc.Categories {
			c := &pc.Categories[i]
			if c.Keyword != keyword {
				continue
			}
			if c.Subcategory == "" {
				c.Subcategory = p.DisplayName()
				c.SubcategoryPatternID = p.ID
				c.SubcategoryConfidence = p.Confidence
			}
			return
		}

	case models.TargetTypeSkill:
		idx := slices.IndexFunc(pc.Skills, func(s models.SkillSuggestion) bool { return s.Keyword == keyword })
		if idx < 0 {
			pc.Skills = append(pc.Skills, models.SkillSuggestion{
				Keyword:    keyword,
				Confidence: p.Confidence,
				LastSeenAt: p.LastSeenAt,
			})
			idx = len(pc.Skills) - 1
		}
		s := &pc.Skills[idx]
		if containsKey(s.Skills, p.TargetKey) {
			return
		}
		s.Skills = append(s.Skills, p.DisplayName())
		s.PatternIDs = append(s.PatternIDs, p.ID)
		s.Confidence = max(s.Confidence, p.Confidence)
		if p.LastSeenAt.After(s.LastSeenAt) {
			s.LastSeenAt = p.LastSeenAt
		}

	case models.TargetTypeGoal:
		pc.Goals = append(pc.Goals, models.GoalSuggestion{
			Keyword:    keyword,
			Goal:       p.DisplayName(),
			Confidence: p.Confidence,
			PatternID:  p.ID,
			LastSeenAt: p.LastSeenAt,
		})
	}
}

func addPersonPattern(pc *models.PatternContext, person string, p models.Pattern) {
	switch p.TargetType {
	case models.TargetTypeCategory:
		pc.People = append(pc.People, models.PersonContext{
			Person:     person,
			Category:   p.DisplayName(),
			Confidence: p.Confidence,
			PatternID:  p.ID,
			LastSeenAt: p.LastSeenAt,
		})

	case models.TargetTypeSubcategory:
		for i := range pc.People {
			c := &pc.People[i]
			if c.Person != person {
				continue
			}
			if c.Subcategory == "" {
				c.Subcategory = p.DisplayName()
				c.SubcategoryPatternID = p.ID
				c.SubcategoryConfidence = p.Confidence
			}
			return
		}
	}
}

// addLocationPatterns folds every pattern for one location into a single
// entry. The most recently seen category wins; the first subcategory sticks.
// Each target keeps the confidence of the pattern it came from, skills the
// strongest of theirs.
func addLocationPatterns(pc *models.PatternContext, location string, patterns []models.Pattern) {
	idx := slices.IndexFunc(pc.Locations, func(l models.LocationFill) bool { return l.Location == location })
	if idx < 0 {
		pc.Locations = append(pc.Locations, models.LocationFill{Location: location})
		idx = len(pc.Locations) - 1
	}
	fill := &pc.Locations[idx]

	var categorySeen time.Time
	for _, p := range patterns {
		switch p.TargetType {
		case models.TargetTypeCategory:
			if fill.Category == "" || p.LastSeenAt.After(categorySeen) {
				fill.Category = p.DisplayName()
				fill.CategoryPatternID = p.ID
				fill.CategoryConfidence = p.Confidence
				categorySeen = p.LastSeenAt
			}
		case models.TargetTypeSubcategory:
			if fill.Subcategory == "" {
				fill.Subcategory = p.DisplayName()
				fill.SubcategoryPatternID = p.ID
				fill.SubcategoryConfidence = p.Confidence
			}
		case models.TargetTypeSkill:
			if !containsKey(fill.Skills, p.TargetKey) {
				fill.Skills = append(fill.Skills, p.DisplayName())
				fill.SkillPatternIDs = append(fill.SkillPatternIDs, p.ID)
				fill.SkillsConfidence = max(fill.SkillsConfidence, p.Confidence)
			}
		default:
			continue
		}

		fill.Confidence = max(fill.Confidence, p.Confidence)
		if p.LastSeenAt.After(fill.LastSeenAt) {
			fill.LastSeenAt = p.LastSeenAt
		}
	}
}

func containsKey(values []string, key string) bool {
	return slices.ContainsFunc(values, func(v string) bool { return models.NormalizeKey(v) == key })
}

// sortByConfidence orders entries by confidence, most recently seen first
// on ties
func sortByConfidence[T any](entries []T, key func(T) (float64, time.Time)) {
	sort.SliceStable(entries, func(i, j int) bool {
		ci, si := key(entries[i])
		cj, sj := key(entries[j])
		if ci != cj {
			return ci > cj
		}
		return si.After(sj)
	})
}

// FormatHints renders the strongest learned habits as an indented text
// block, or "" when the context is empty.
func FormatHints(pc *models.PatternContext) string {
	if pc == nil {
		return ""
	}

	var lines []string

	if len(pc.Categories) > 0 {
		lines = append(lines, "User typically categorizes:")
		for _, c := range pc.Categories[:min(5, len(pc.Categories))] {
			lines = append(lines, fmt.Sprintf("  - %q -> %s", c.Keyword, joinCategory(c.Category, c.Subcategory)))
		}
	}

	if len(pc.Skills) > 0 {
		lines = append(lines, "User typically associates skills:")
		for _, s := range pc.Skills[:min(5, len(pc.Skills))] {
			lines = append(lines, fmt.Sprintf("  - %q -> skills: [%s]", s.Keyword, strings.Join(s.Skills, ", ")))
		}
	}

	if len(pc.Goals) > 0 {
		lines = append(lines, "User typically works toward:")
		for _, g := range pc.Goals[:min(3, len(pc.Goals))] {
			lines = append(lines, fmt.Sprintf("  - %q -> %s", g.Keyword, g.Goal))
		}
	}

	if len(pc.People) > 0 {
		lines = append(lines, "User typically does with people:")
		for _, p := range pc.People[:min(3, len(pc.People))] {
			lines = append(lines, fmt.Sprintf("  - @%s -> %s", p.Person, joinCategory(p.Category, p.Subcategory)))
		}
	}

	if len(pc.Locations) > 0 {
		lines = append(lines, "User typically does at locations:")
		for _, l := range pc.Locations[:min(3, len(pc.Locations))] {
			var parts []string
			if l.Category != "" {
				parts = append(parts, joinCategory(l.Category, l.Subcategory))
			}
			if len(l.Skills) > 0 {
				parts = append(parts, "skills: ["+strings.Join(l.Skills, ", ")+"]")
			}
			lines = append(lines, fmt.Sprintf("  - !%s -> %s", l.Location, strings.Join(parts, ", ")))
		}
	}

	return strings.Join(lines, "\n")
}

func joinCategory(category, subcategory string) string {
	if subcategory == "" {
		return category
	}
	return category + "/" + subcategory
}
