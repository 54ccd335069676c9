package models

import "time"

// CategorySuggestion is a category (and optionally subcategory) learned
// for a keyword.
type CategorySuggestion struct {
	Keyword               string    `json:"keyword"`
	Category              string    `json:"category"`
	Subcategory           string    `json:"subcategory,omitempty"`
	Confidence            float64   `json:"confidence"`
	PatternID             string    `json:"patternId"`
	SubcategoryPatternID  string    `json:"subcategoryPatternId,omitempty"`
	SubcategoryConfidence float64   `json:"subcategoryConfidence,omitempty"`
	LastSeenAt            time.Time `json:"lastSeenAt"`
}

// SkillSuggestion groups the skills learned for a keyword. PatternIDs is
// parallel to Skills.
type SkillSuggestion struct {
	Keyword    string    `json:"keyword"`
	Skills     []string  `json:"skills"`
	Confidence float64   `json:"confidence"`
	PatternIDs []string  `json:"patternIds"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// GoalSuggestion is a goal learned for a keyword
type GoalSuggestion struct {
	Keyword    string    `json:"keyword"`
	Goal       string    `json:"goal"`
	Confidence float64   `json:"confidence"`
	PatternID  string    `json:"patternId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// PersonContext is a category typically assigned when a person is mentioned
type PersonContext struct {
	Person                string    `json:"person"`
	Category              string    `json:"category"`
	Subcategory           string    `json:"subcategory,omitempty"`
	Confidence            float64   `json:"confidence"`
	PatternID             string    `json:"patternId"`
	SubcategoryPatternID  string    `json:"subcategoryPatternId,omitempty"`
	SubcategoryConfidence float64   `json:"subcategoryConfidence,omitempty"`
	LastSeenAt            time.Time `json:"lastSeenAt"`
}

// LocationFill accumulates what is typically filled in for a location.
// Confidence is the strongest pattern seen for the location and orders the
// bucket; each target also carries the confidence of its own pattern(s).
type LocationFill struct {
	Location              string    `json:"location"`
	Category              string    `json:"category,omitempty"`
	Subcategory           string    `json:"subcategory,omitempty"`
	Skills                []string  `json:"skills,omitempty"`
	Confidence            float64   `json:"confidence"`
	CategoryConfidence    float64   `json:"categoryConfidence,omitempty"`
	SubcategoryConfidence float64   `json:"subcategoryConfidence,omitempty"`
	SkillsConfidence      float64   `json:"skillsConfidence,omitempty"`
	CategoryPatternID     string    `json:"categoryPatternId,omitempty"`
	SubcategoryPatternID  string    `json:"subcategoryPatternId,omitempty"`
	SkillPatternIDs       []string  `json:"skillPatternIds,omitempty"`
	LastSeenAt            time.Time `json:"lastSeenAt"`
}

// PatternContext is every learned pattern relevant to one input text,
// partitioned into buckets sorted by descending confidence.
type PatternContext struct {
	Categories []CategorySuggestion `json:"suggestedCategories"`
	Skills     []SkillSuggestion    `json:"suggestedSkills"`
	Goals      []GoalSuggestion     `json:"suggestedGoals"`
	People     []PersonContext      `json:"personContexts"`
	Locations  []LocationFill       `json:"locationFills"`
}

// IsEmpty reports whether no bucket has an entry
func (c *PatternContext) IsEmpty() bool {
	return len(c.Categories) == 0 &&
		len(c.Skills) == 0 &&
		len(c.Goals) == 0 &&
		len(c.People) == 0 &&
		len(c.Locations) == 0
}
