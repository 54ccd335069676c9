// Package collector learns from finalized captures. It derives candidate
// cue -> target tuples from a saved record and feeds them to the pattern
// store. Collection is best-effort: failures are logged per tuple and never
// surface to the save path.
package collector

import (
	"context"
	"strings"

	"github.com/insightpilot/insightpilot/internal/extractor"
	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/pkg/models"
)

// PatternWriter is the part of the pattern store the collector needs
type PatternWriter interface {
	FindOrCreate(ctx context.Context, in models.PatternInput) (*models.Pattern, error)
	IncrementOccurrence(ctx context.Context, id string) (*models.Pattern, error)
}

// Result summarizes one collection pass
type Result struct {
	Derived  int `json:"derived"`
	Recorded int `json:"recorded"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Collector records patterns observed in finalized records
type Collector struct {
	store PatternWriter
	log   *logger.Logger
}

// New creates a collector writing to store
func New(store PatternWriter, log *logger.Logger) *Collector {
	return &Collector{
		store: store,
		log:   logger.OrNop(log).With("component", "collector"),
	}
}

// Collect derives every tuple from rec and, for each one, finds or creates
// the pattern and increments its occurrence. Tuples are processed in order;
// a failing tuple is logged and skipped. A cancelled context stops the pass
// and the untouched tuples are reported as skipped.
func (c *Collector) Collect(ctx context.Context, rec models.Record) Result {
	inputs := Derive(rec)
	res := Result{Derived: len(inputs)}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			res.Skipped = len(inputs) - i
			c.log.Debug("collection cancelled", "record", rec.ID, "skipped", res.Skipped, "error", err)
			break
		}

		p, err := c.store.FindOrCreate(ctx, in)
		if err == nil {
			_, err = c.store.IncrementOccurrence(ctx, p.ID)
		}
		if err != nil {
			res.Failed++
			c.log.Warn("failed to record pattern",
				"record", rec.ID,
				"type", in.Type,
				"sourceType", in.SourceType,
				"sourceKey", in.SourceKey,
				"targetType", in.TargetType,
				"targetKey", in.TargetKey,
				"error", err,
			)
			continue
		}
		res.Recorded++
	}

	return res
}

// Derive returns the candidate pattern tuples for a finalized record.
// Keywords come from the record text. For raw text records the people and
// locations found in the text are added to the explicit ones.
func Derive(rec models.Record) []models.PatternInput {
	keywords := extractor.Keywords(rec.Text)
	people := clean(rec.People)
	locations := clean([]string{rec.Location})
	if rec.Kind == models.RecordKindText {
		people = merge(people, extractor.People(rec.Text))
		locations = merge(locations, extractor.Locations(rec.Text))
	}

	category := strings.TrimSpace(rec.Category)
	subcategory := strings.TrimSpace(rec.Subcategory)
	goal := strings.TrimSpace(rec.Goal)
	skills := clean(rec.Skills)
	if category == "" {
		subcategory = ""
	}

	var out []models.PatternInput
	add := func(t models.PatternType, st models.SourceType, source string, tt models.TargetType, target string) {
		out = append(out, models.PatternInput{
			Type:              t,
			SourceType:        st,
			SourceKey:         source,
			TargetType:        tt,
			TargetKey:         target,
			TargetDisplayName: target,
		})
	}

	for _, kw := range keywords {
		if category != "" {
			add(models.PatternTypeActivityCategory, models.SourceTypeKeyword, kw, models.TargetTypeCategory, category)
		}
		if subcategory != "" {
			add(models.PatternTypeActivityCategory, models.SourceTypeKeyword, kw, models.TargetTypeSubcategory, subcategory)
		}
		for _, skill := range skills {
			add(models.PatternTypeActivitySkill, models.SourceTypeKeyword, kw, models.TargetTypeSkill, skill)
		}
		if goal != "" {
			add(models.PatternTypeGoalCategory, models.SourceTypeKeyword, kw, models.TargetTypeGoal, goal)
		}
	}

	if goal != "" && category != "" {
		add(models.PatternTypeGoalCategory, models.SourceTypeGoal, goal, models.TargetTypeCategory, category)
		if subcategory != "" {
			add(models.PatternTypeGoalCategory, models.SourceTypeGoal, goal, models.TargetTypeSubcategory, subcategory)
		}
	}

	if category != "" {
		for _, person := range people {
			add(models.PatternTypePersonContext, models.SourceTypePerson, person, models.TargetTypeCategory, category)
			if subcategory != "" {
				add(models.PatternTypePersonContext, models.SourceTypePerson, person, models.TargetTypeSubcategory, subcategory)
			}
		}
	}

	for _, location := range locations {
		if category != "" {
			add(models.PatternTypeLocationFill, models.SourceTypeLocation, location, models.TargetTypeCategory, category)
		}
		if subcategory != "" {
			add(models.PatternTypeLocationFill, models.SourceTypeLocation, location, models.TargetTypeSubcategory, subcategory)
		}
		for _, skill := range skills {
			add(models.PatternTypeLocationFill, models.SourceTypeLocation, location, models.TargetTypeSkill, skill)
		}
	}

	return out
}

// clean drops blank entries and duplicates that normalize to the same key
func clean(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := models.NormalizeKey(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func merge(a, b []string) []string {
	return clean(append(append([]string{}, a...), b...))
}
