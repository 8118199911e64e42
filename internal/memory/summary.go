package memory

import (
	"fmt"
	"strings"
)

// topicVocabulary is the fixed bag-of-keywords vocabulary used for
// eviction summaries and the fresh topic summary in ExtendedContext.
// Order matters: summaries list topics in this order, which keeps the
// rendering deterministic for a given memory state.
var topicVocabulary = []struct {
	name     string
	keywords []string
}{
	{"work", []string{"work", "job", "boss", "office", "meeting", "project", "deadline", "salary", "colleague"}},
	{"weather", []string{"weather", "rain", "snow", "sunny", "cold", "warm", "forecast", "temperature", "wind"}},
	{"food", []string{"food", "eat", "dinner", "lunch", "breakfast", "cook", "recipe", "hungry", "restaurant", "coffee", "tea"}},
	{"plans", []string{"plan", "tomorrow", "weekend", "trip", "vacation", "holiday", "schedule", "tonight", "later"}},
	{"entertainment", []string{"movie", "film", "series", "music", "song", "game", "book", "show", "concert"}},
	{"relationships", []string{"friend", "family", "mom", "dad", "brother", "sister", "partner", "wife", "husband", "date"}},
	{"health", []string{"health", "sick", "doctor", "tired", "sleep", "headache", "gym", "exercise", "medicine"}},
}

// importanceTriggers mark turns that must survive eviction verbatim.
var importanceTriggers = []string{
	"remember", "never", "always", "love", "hate",
	"allergy", "allergic", "afraid", "fear", "birthday", "favorite",
}

const importantSnippetMax = 120

// TopicsOf returns the vocabulary topics mentioned in text, in
// vocabulary order.
func TopicsOf(text string) []string {
	lowered := strings.ToLower(text)
	var topics []string
	for _, topic := range topicVocabulary {
		for _, kw := range topic.keywords {
			if strings.Contains(lowered, kw) {
				topics = append(topics, topic.name)
				break
			}
		}
	}
	return topics
}

// summarizeTopics renders a one-line topic summary of a block of
// turns. A block that matches no vocabulary topic still yields a
// generic line, so evicted content is never silently lost.
func summarizeTopics(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	for _, turn := range turns {
		for _, topic := range TopicsOf(turn.Text) {
			seen[topic] = true
		}
	}
	var ordered []string
	for _, topic := range topicVocabulary {
		if seen[topic.name] {
			ordered = append(ordered, topic.name)
		}
	}
	if len(ordered) == 0 {
		return fmt.Sprintf("general chat (%d messages)", len(turns))
	}
	return fmt.Sprintf("talked about %s (%d messages)", strings.Join(ordered, ", "), len(turns))
}

// extractImportant scans turns for importance triggers and returns the
// matching snippets, trimmed for storage.
func extractImportant(turns []Turn) []string {
	var out []string
	for _, turn := range turns {
		lowered := strings.ToLower(turn.Text)
		for _, trigger := range importanceTriggers {
			if strings.Contains(lowered, trigger) {
				out = append(out, snippet(turn.Text))
				break
			}
		}
	}
	return out
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= importantSnippetMax {
		return text
	}
	cut := text[:importantSnippetMax]
	if idx := strings.LastIndex(cut, " "); idx > importantSnippetMax/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
