package extractor

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var stopwords = set(
	"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
	"is", "am", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could", "should",
	"i", "me", "my", "we", "our", "you", "your", "he", "she", "it", "they", "them",
	"this", "that", "these", "those", "here", "there",
	"what", "which", "who", "when", "where", "why", "how",
	"all", "each", "every", "both", "few", "more", "most", "other", "some", "such",
	"no", "not", "only", "own", "same", "so", "than", "too", "very",
	"just", "about", "also", "now", "then", "still", "even", "after", "before",
	"up", "down", "out", "off", "over", "under", "again", "further",
	"um", "uh", "like", "gonna", "wanna", "gotta", "kinda", "sorta",
	"ok", "okay", "yeah", "yes", "nope", "sure", "right",
)

var activityKeywords = set(
	// fitness
	"gym", "workout", "exercise", "run", "running", "jog", "jogging", "walk", "walking",
	"lift", "lifting", "weights", "cardio", "yoga", "stretch", "stretching",
	"swim", "swimming", "bike", "biking", "cycling", "hike", "hiking",
	"crossfit", "pilates", "zumba", "spin", "boxing", "martial",
	// work
	"work", "working", "meeting", "call", "email", "coding", "programming",
	"design", "writing", "research", "planning", "project", "presentation",
	"standup", "scrum", "sprint", "deadline", "review", "interview",
	// health
	"doctor", "dentist", "therapy", "therapist", "clinic", "hospital", "checkup",
	"medication", "medicine", "prescription", "appointment",
	// food
	"breakfast", "lunch", "dinner", "snack", "meal", "eat", "eating", "cooking",
	"coffee", "tea", "drink", "restaurant", "cafe", "takeout",
	// personal
	"shower", "sleep", "nap", "wake", "bed", "rest", "relax", "meditate", "meditation",
	"read", "reading", "study", "studying", "learn", "learning", "practice",
	// social
	"hangout", "party", "date", "family", "friends", "chat", "visit",
	// errands
	"shopping", "grocery", "groceries", "errand", "errands", "store", "bank",
	"laundry", "cleaning", "chores", "commute", "driving", "transport",
)

var activityBigrams = set(
	"gym workout", "workout session", "morning run", "evening run",
	"deep work", "focus time",
	"doctor appointment", "dentist appointment", "therapy session",
	"grocery shopping", "costco run", "target run",
	"coffee break", "lunch break", "power nap",
	"team meeting", "standup meeting", "sprint planning",
	"yoga class", "spin class", "fitness class",
)
