package responder

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"
)

// Sanitizer post-processes generated text before it leaves the bot:
// meta commentary out, unsolicited weather out, expressive symbols
// capped, whitespace normalized, deferential openers flattened.
type Sanitizer struct {
	personaName string
	roll        func() float64
}

// NewSanitizer builds a sanitizer. roll may be nil (package RNG);
// tests inject a deterministic source.
func NewSanitizer(personaName string, roll func() float64) *Sanitizer {
	if personaName == "" {
		personaName = "Leila"
	}
	if roll == nil {
		roll = rand.Float64
	}
	return &Sanitizer{personaName: personaName, roll: roll}
}

const neutralFiller = "Good to hear from you."

const flattenProbability = 0.5

// weatherWords is the vocabulary that marks a sentence as weather
// talk. Checked case-insensitively; "°" catches quoted temperatures.
var weatherWords = []string{
	"weather", "sunny", "rain", "snow", "cloudy", "windy", "storm",
	"forecast", "temperature", "degrees", "°", "feels like", "humidity",
}

var (
	metaPhraseRe   = regexp.MustCompile(`(?i)\bas an? (ai|assistant|bot|language model)\b[^.!?]*[.!?]?\s*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
	leadingPunctRe = regexp.MustCompile(`^[\s,.;:!?—-]+`)
)

// deferentialOpeners maps overly apologetic sentence openers to
// flatter equivalents, applied probabilistically for generic senders.
var deferentialOpeners = []struct{ from, to string }{
	{"I'm sorry, but ", ""},
	{"I apologize, but ", ""},
	{"I'm afraid ", ""},
	{"Unfortunately, ", ""},
	{"Of course! ", ""},
	{"Certainly! ", ""},
}

// Clean runs the full sanitation pipeline. Empty input yields an
// empty string; the caller supplies the fallback.
func (s *Sanitizer) Clean(raw string, tier Tier, special, weatherAsked bool) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	text = s.stripMeta(text)
	if !weatherAsked {
		text = removeWeatherSentences(text)
	}
	text = capExpressiveSymbols(text, symbolLimit(tier, special))
	text = normalizeWhitespace(text)
	if !special {
		text = s.flattenOpeners(text)
	}
	return text
}

// stripMeta removes self-referential phrases, both the generic "as an
// AI ..." kind and "As <persona>, I ..." lead-ins.
func (s *Sanitizer) stripMeta(text string) string {
	text = metaPhraseRe.ReplaceAllString(text, "")
	personaLead := regexp.MustCompile(`(?i)^as ` + regexp.QuoteMeta(s.personaName) + `,?\s*(i\s*)?`)
	text = personaLead.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// removeWeatherSentences drops every sentence containing weather
// vocabulary and re-joins the rest. If nothing survives, a short
// neutral filler is substituted.
func removeWeatherSentences(text string) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return text
	}
	kept := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if containsWeatherWord(sentence) {
			continue
		}
		if trimmed := strings.TrimSpace(sentence); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return neutralFiller
	}
	return strings.Join(kept, " ")
}

func containsWeatherWord(sentence string) bool {
	lowered := strings.ToLower(sentence)
	for _, w := range weatherWords {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

func symbolLimit(tier Tier, special bool) int {
	if special {
		return 6
	}
	if tier.Name == "filler" {
		return 3
	}
	return 2
}

// capExpressiveSymbols keeps at most limit expressive runes (anything
// that is not a letter, digit, space or plain punctuation), trimming
// the excess in order of appearance.
func capExpressiveSymbols(text string, limit int) string {
	var sb strings.Builder
	count := 0
	for _, r := range text {
		if isExpressive(r) {
			count++
			if count > limit {
				continue
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isExpressive(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '\'', '"', '(', ')', '-', '—', '%', '°':
		return false
	}
	return true
}

func normalizeWhitespace(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(leadingPunctRe.ReplaceAllString(text, ""))
}

func (s *Sanitizer) flattenOpeners(text string) string {
	for _, opener := range deferentialOpeners {
		if strings.HasPrefix(text, opener.from) {
			if s.roll() < flattenProbability {
				text = opener.to + text[len(opener.from):]
				text = capitalizeFirst(text)
			}
			break
		}
	}
	return text
}

func capitalizeFirst(text string) string {
	for i, r := range text {
		return string(unicode.ToUpper(r)) + text[i+len(string(r)):]
	}
	return text
}

// AsksWeather reports whether the user's own message explicitly asks
// about weather or other environmental facts; only then may the reply
// keep weather talk.
func AsksWeather(text string) bool {
	return containsWeatherWord(text)
}
