package models

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// PatternType is the semantic relation a pattern encodes
type PatternType string

const (
	PatternTypeActivityCategory PatternType = "activity_category" // "gym" -> Health/Workout
	PatternTypeActivitySkill    PatternType = "activity_skill"    // "gym" -> Weightlifting
	PatternTypeGoalCategory     PatternType = "goal_category"     // goal "Get Shredded" -> Health/Workout
	PatternTypePersonContext    PatternType = "person_context"    // "@mom" -> Social/Call
	PatternTypeLocationFill     PatternType = "location_fill"     // "!LA Fitness" -> Health/Workout
)

// SourceType is the kind of cue that triggers a pattern
type SourceType string

const (
	SourceTypeKeyword  SourceType = "keyword"
	SourceTypeGoal     SourceType = "goal"
	SourceTypePerson   SourceType = "person"
	SourceTypeLocation SourceType = "location"
)

// TargetType is the structured attribute a pattern predicts
type TargetType string

const (
	TargetTypeCategory    TargetType = "category"
	TargetTypeSubcategory TargetType = "subcategory"
	TargetTypeSkill       TargetType = "skill"
	TargetTypeGoal        TargetType = "goal"
)

// Valid reports whether t is a known pattern type
func (t PatternType) Valid() bool {
	switch t {
	case PatternTypeActivityCategory, PatternTypeActivitySkill, PatternTypeGoalCategory,
		PatternTypePersonContext, PatternTypeLocationFill:
		return true
	}
	return false
}

// Valid reports whether t is a known source type
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeKeyword, SourceTypeGoal, SourceTypePerson, SourceTypeLocation:
		return true
	}
	return false
}

// Valid reports whether t is a known target type
func (t TargetType) Valid() bool {
	switch t {
	case TargetTypeCategory, TargetTypeSubcategory, TargetTypeSkill, TargetTypeGoal:
		return true
	}
	return false
}

// Pattern is a learned association between a textual cue and a structured
// target attribute.
type Pattern struct {
	ID   string      `json:"id"`
	Type PatternType `json:"type"`

	// Source (what triggers the pattern)
	SourceType SourceType `json:"sourceType"`
	SourceKey  string     `json:"sourceKey"`

	// Target (what gets suggested)
	TargetType        TargetType `json:"targetType"`
	TargetKey         string     `json:"targetKey"`
	TargetDisplayName string     `json:"targetDisplayName,omitempty"`

	// Confidence tracking. Confidence is cached; it is recomputed on every
	// feedback event and never written directly.
	Confidence      float64   `json:"confidence"`
	OccurrenceCount int       `json:"occurrenceCount"`
	AcceptCount     int       `json:"acceptCount"`
	RejectCount     int       `json:"rejectCount"`
	LastSeenAt      time.Time `json:"lastSeenAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName returns the original-case label if one was recorded
func (p *Pattern) DisplayName() string {
	if p.TargetDisplayName != "" {
		return p.TargetDisplayName
	}
	return p.TargetKey
}

// PatternInput identifies a pattern by its unique tuple plus the source kind
type PatternInput struct {
	Type              PatternType `json:"type"`
	SourceType        SourceType  `json:"sourceType"`
	SourceKey         string      `json:"sourceKey"`
	TargetType        TargetType  `json:"targetType"`
	TargetKey         string      `json:"targetKey"`
	TargetDisplayName string      `json:"targetDisplayName,omitempty"`
}

// Normalized returns a copy with source and target keys normalized
func (in PatternInput) Normalized() PatternInput {
	in.SourceKey = NormalizeKey(in.SourceKey)
	in.TargetKey = NormalizeKey(in.TargetKey)
	in.TargetDisplayName = strings.TrimSpace(in.TargetDisplayName)
	return in
}

// TupleKey is the string form of the uniqueness tuple
// (type, sourceKey, targetType, targetKey). Keys must already be normalized.
func (in PatternInput) TupleKey() string {
	return string(in.Type) + "\x00" + in.SourceKey + "\x00" + string(in.TargetType) + "\x00" + in.TargetKey
}

// NormalizeKey trims, lower-cases and collapses internal whitespace runs
// to a single space.
func NormalizeKey(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// NewPatternID returns a fresh opaque pattern identifier
func NewPatternID() string {
	return "pat_" + strings.ToLower(ulid.Make().String())
}
