package responder

import (
	"regexp"
	"strings"
)

// Tier bundles the generation parameters chosen for one message.
type Tier struct {
	Name        string
	Model       string
	Temperature float64
	MaxTokens   int
	Reasoning   bool
}

const incidentalTokenCap = 80

// Incidental shrinks the output budget for unprompted group replies.
func (t Tier) Incidental() Tier {
	if t.MaxTokens > incidentalTokenCap {
		t.MaxTokens = incidentalTokenCap
	}
	return t
}

// tierPair holds the generic and special-sender variants of one tier.
// The special variant runs warmer; the generic one stays crisp.
type tierPair struct {
	generic Tier
	special Tier
}

func (p tierPair) forSender(special bool) Tier {
	if special {
		return p.special
	}
	return p.generic
}

// classifyRules is the ordered classification table. Families are
// tried top to bottom and the first match wins; ties never depend on
// pattern length or position in the text.
var classifyRules = []struct {
	name string
	re   *regexp.Regexp
	tier tierPair
}{
	{
		name: "reasoning",
		re:   regexp.MustCompile(`\b(why|how (do|does|did|would|could|can|should|to)|should (i|we|he|she|they)|what if|explain)\b`),
		tier: tierPair{
			generic: Tier{Name: "reasoning", Model: "gpt-4o", Temperature: 0.4, MaxTokens: 700, Reasoning: true},
			special: Tier{Name: "reasoning", Model: "gpt-4o", Temperature: 0.6, MaxTokens: 700, Reasoning: true},
		},
	},
	{
		name: "technical",
		re:   regexp.MustCompile(`\b(code|coding|bug|algorithm|api|database|server|deploy|docker|function|compile|script|program|error message)\b`),
		tier: tierPair{
			generic: Tier{Name: "technical", Model: "gpt-4o", Temperature: 0.3, MaxTokens: 600},
			special: Tier{Name: "technical", Model: "gpt-4o", Temperature: 0.5, MaxTokens: 600},
		},
	},
	{
		name: "analytical",
		re:   regexp.MustCompile(`\b(compare|versus|vs\.?|better|worse|evaluate|recommend|pros and cons|difference between|which (one|is))\b`),
		tier: tierPair{
			generic: Tier{Name: "analytical", Model: "gpt-4o", Temperature: 0.5, MaxTokens: 500},
			special: Tier{Name: "analytical", Model: "gpt-4o", Temperature: 0.7, MaxTokens: 500},
		},
	},
	{
		name: "filler",
		re:   regexp.MustCompile(`\b(hi|hello|hey|good (morning|evening|night|afternoon)|how are you|how's it going|what's up|thanks|thank you|bye|good ?bye)\b`),
		tier: tierPair{
			generic: Tier{Name: "filler", Model: "gpt-4o-mini", Temperature: 0.6, MaxTokens: 120},
			special: Tier{Name: "filler", Model: "gpt-4o-mini", Temperature: 0.9, MaxTokens: 120},
		},
	},
}

var defaultTier = tierPair{
	generic: Tier{Name: "default", Model: "gpt-4o-mini", Temperature: 0.5, MaxTokens: 350},
	special: Tier{Name: "default", Model: "gpt-4o-mini", Temperature: 0.8, MaxTokens: 350},
}

// Classify picks the response tier for a message. Pure function: no
// history access, no side effects.
func Classify(text string, special bool) Tier {
	lowered := strings.ToLower(text)
	for _, rule := range classifyRules {
		if rule.re.MatchString(lowered) {
			return rule.tier.forSender(special)
		}
	}
	return defaultTier.forSender(special)
}
