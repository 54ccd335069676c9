// Package extractor pulls learning cues out of freeform capture text:
// activity keywords, mentioned people and mentioned locations.
//
// Every function is pure and total. Empty or malformed input yields an empty
// result, never an error, and output is deduplicated in discovery order.
package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/insightpilot/insightpilot/pkg/models"
)

const (
	MaxKeywords  = 16
	MaxPeople    = 8
	MaxLocations = 8
	MaxTags      = 24
)

// Entities is the result of running every pass over one text
type Entities struct {
	Keywords  []string `json:"keywords"`
	People    []string `json:"people"`
	Locations []string `json:"locations"`
}

// Extract runs the keyword, people and location passes
func Extract(text string) Entities {
	return Entities{
		Keywords:  Keywords(text),
		People:    People(text),
		Locations: Locations(text),
	}
}

// Keywords returns the activity keywords and activity bigrams in text
func Keywords(text string) []string {
	words := tokenize(text)
	out := newCollector(MaxKeywords)

	for _, word := range words {
		if len(word) < 3 || stopwords[word] {
			continue
		}
		if activityKeywords[word] {
			out.add(word)
		}
	}

	for i := 0; i+1 < len(words); i++ {
		w1, w2 := words[i], words[i+1]
		if stopwords[w1] || stopwords[w2] {
			continue
		}
		if len(w1) < 2 || len(w2) < 2 {
			continue
		}
		if bigram := w1 + " " + w2; activityBigrams[bigram] {
			out.add(bigram)
		}
	}

	return out.list()
}

var (
	atMention   = regexp.MustCompile(`@"[^"]+"|@\w+`)
	withMention = regexp.MustCompile(`\bwith\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
)

// People returns the people mentioned as @name, @"full name" or
// "with Name".
func People(text string) []string {
	out := newCollector(MaxPeople)

	for _, mention := range atMention.FindAllString(text, -1) {
		name := unquoteMention(mention, '@')
		if len(name) > 1 {
			out.add(models.NormalizeKey(name))
		}
	}

	for _, m := range withMention.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if len(name) > 1 && !stopwords[strings.ToLower(name)] {
			out.add(models.NormalizeKey(name))
		}
	}

	return out.list()
}

var (
	bangMention = regexp.MustCompile(`!"[^"]+"|!\w+`)
	placePhrase = regexp.MustCompile(`(?i)\b(?:at|in|to)\s+(?:the\s+)?((?:[\w'&-]+\s+){0,3}?(?:` +
		strings.Join(placeNouns, "|") + `))\b`)
)

var placeNouns = []string{
	"gym", "hospital", "clinic", "office", "store", "restaurant", "cafe", "park",
	"library", "school", "university", "college", "church", "temple", "mosque",
}

// Known store and gym brands matched by containment
var brands = []string{
	"costco", "walmart", "target", "whole foods", "trader joe", "safeway", "kroger",
	"publix", "cvs", "walgreens", "amazon",
	"la fitness", "planet fitness", "24 hour fitness", "equinox", "ymca", "crossfit",
	"orangetheory", "f45",
}

// Locations returns places mentioned as !place, !"full place", a phrase such
// as "at the downtown gym", or a well-known brand name.
func Locations(text string) []string {
	out := newCollector(MaxLocations)

	for _, mention := range bangMention.FindAllString(text, -1) {
		place := unquoteMention(mention, '!')
		if len(place) > 1 {
			out.add(models.NormalizeKey(place))
		}
	}

	for _, m := range placePhrase.FindAllStringSubmatch(text, -1) {
		place := trimLeadingStopwords(models.NormalizeKey(m[1]))
		if len(place) > 2 {
			out.add(place)
		}
	}

	lower := strings.ToLower(text)
	for _, brand := range brands {
		if strings.Contains(lower, brand) {
			out.add(brand)
		}
	}

	return out.list()
}

var hashTag = regexp.MustCompile(`#[\w-]+`)

// Tags returns #tags, skipping tracker syntax such as #mood(4)
func Tags(text string) []string {
	out := newCollector(MaxTags)
	for _, loc := range hashTag.FindAllStringIndex(text, -1) {
		if loc[1] < len(text) && text[loc[1]] == '(' {
			continue
		}
		if tag := strings.ToLower(text[loc[0]:loc[1]]); len(tag) > 1 {
			out.add(tag)
		}
	}
	return out.list()
}

// IsStopword reports whether w is filtered from every pass
func IsStopword(w string) bool {
	return stopwords[models.NormalizeKey(w)]
}

func tokenize(text string) []string {
	fields := strings.Fields(models.NormalizeKey(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func unquoteMention(mention string, marker byte) string {
	s := strings.TrimPrefix(mention, string(marker))
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

func trimLeadingStopwords(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 1 && stopwords[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// collector dedupes while preserving order, up to a cap
type collector struct {
	limit int
	seen  map[string]bool
	items []string
}

func newCollector(limit int) *collector {
	return &collector{limit: limit, seen: make(map[string]bool)}
}

func (c *collector) add(s string) {
	if s == "" || c.seen[s] || len(c.items) >= c.limit {
		return
	}
	c.seen[s] = true
	c.items = append(c.items, s)
}

func (c *collector) list() []string {
	if c.items == nil {
		return []string{}
	}
	return c.items
}
