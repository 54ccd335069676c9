package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"unigrams and bigram", "Gym workout with Alex at LA Fitness", []string{"gym", "workout", "gym workout"}},
		{"punctuation stripped", "Morning run, then coffee!", []string{"run", "coffee", "morning run"}},
		{"duplicates removed", "gym gym GYM", []string{"gym"}},
		{"bigram blocked by stopword", "team the meeting", []string{"meeting"}},
		{"team meeting", "Weekly team meeting", []string{"meeting", "team meeting"}},
		{"no vocabulary", "thinking about stuff", []string{}},
		{"empty", "", []string{}},
		{"whitespace only", "  \t\n ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.text))
		})
	}
}

func TestKeywordsCapped(t *testing.T) {
	text := strings.Repeat("gym workout yoga run swim hike bike lunch dinner coffee tea nap study read chat visit bank laundry ", 3)
	got := Keywords(text)
	require.Len(t, got, MaxKeywords)
	assert.Equal(t, "gym", got[0])
}

func TestPeople(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"at mention", "call @Mom tonight", []string{"mom"}},
		{"quoted mention", `lunch with @"Jane  Doe" downtown`, []string{"jane doe"}},
		{"with name", "coffee with Sarah Connor", []string{"sarah connor"}},
		{"with single name", "gym workout with Alex at LA Fitness", []string{"alex"}},
		{"with stopword", "dinner with The", []string{}},
		{"lowercase with ignored", "walk with alex", []string{}},
		{"mixed and deduped", "call @alex then lunch with Alex", []string{"alex"}},
		{"bare marker", "email me @ noon", []string{}},
		{"unterminated quote", `ping @"Bob`, []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, People(tt.text))
		})
	}
}

func TestLocations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"bang mention", "errands at !Costco", []string{"costco"}},
		{"quoted bang", `run at !"Central Park" loop`, []string{"central park"}},
		{"place phrase", "lifting at the Downtown gym", []string{"downtown gym"}},
		{"bare noun", "went to the gym", []string{"gym"}},
		{"leading stopword trimmed", "stuck in my office", []string{"office"}},
		{"brand", "gym workout with Alex at LA Fitness", []string{"la fitness"}},
		{"grocery store", "need to go to the grocery store", []string{"grocery store"}},
		{"brand and phrase", "Trader Joe run then study at the library", []string{"library", "trader joe"}},
		{"nothing", "read a book", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Locations(tt.text))
		})
	}
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"#health", "#deep-work"}, Tags("Ran 5k #Health #deep-work #mood(4) #health"))
	assert.Equal(t, []string{}, Tags("no tags here #"))
}

func TestExtractionIsDeterministic(t *testing.T) {
	inputs := []string{
		"gym workout with Alex at LA Fitness",
		`Team meeting with @"Jane Doe" at the office, then grocery shopping at !Costco`,
		"",
		"@@@ !!! with With WITH",
	}
	for _, in := range inputs {
		first := Extract(in)
		second := Extract(in)
		assert.Equal(t, first, second, in)

		// outputs are already normalized and deduplicated
		for _, list := range [][]string{first.Keywords, first.People, first.Locations} {
			seen := map[string]bool{}
			for _, item := range list {
				assert.False(t, seen[item], "duplicate %q in %v", item, list)
				seen[item] = true
				assert.Equal(t, strings.ToLower(strings.TrimSpace(item)), item)
			}
		}
	}
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("The"))
	assert.True(t, IsStopword(" gonna "))
	assert.False(t, IsStopword("gym"))
}
