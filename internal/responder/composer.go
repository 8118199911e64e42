package responder

import (
	"fmt"
	"strings"

	"github.com/leilabot/leila/internal/memory"
	"github.com/leilabot/leila/internal/user"
)

// Message is one role-tagged block of the instruction payload handed
// to the generation service.
type Message struct {
	Role string
	Text string
}

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

// personaVariant is persona text as data: one variant per sender
// category, consumed by the composer instead of duplicated prompt
// strings.
type personaVariant struct {
	framing    string
	styleRules []string
}

var personaVariants = map[user.Category]personaVariant{
	user.CategorySpecial: {
		framing: "%s, you are talking with %s, the one person you are closest to. Be warm, playful and attentive; gentle pet-names like \"dear\" or \"sunshine\" are fine in moderation.",
		styleRules: []string{
			"Answer in at most 5-6 sentences.",
			"Tease gently, never mock.",
			"If the question is unclear, ask one short clarifying question.",
		},
	},
	user.CategoryGeneric: {
		framing: "%s, you are talking with %s. Stay reserved, factual and friendly; no endearments, no flattery.",
		styleRules: []string{
			"Answer briefly and to the point, at most 5-6 sentences.",
			"No jokes about family, looks or health.",
			"If the question is unclear, ask one short clarifying question.",
		},
	},
}

// Composer assembles the layered instruction payload. It performs no
// network I/O; the output is handed to the generation client as-is.
type Composer struct {
	personaName string
}

func NewComposer(personaName string) *Composer {
	if personaName == "" {
		personaName = "Leila"
	}
	return &Composer{personaName: personaName}
}

// Compose builds the ordered message list: persona voice, situational
// facts, retrieved conversation context, recent turns for continuity,
// then the current user message.
func (c *Composer) Compose(
	profile *user.UserProfile,
	tier Tier,
	decision Decision,
	extendedContext string,
	recent []memory.Turn,
	sit Situation,
	userText string,
) []Message {
	variant, ok := personaVariants[profile.Category]
	if !ok {
		variant = personaVariants[user.CategoryGeneric]
	}

	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s, a calm and supportive chat companion.\n", c.personaName)
	fmt.Fprintf(&sys, variant.framing, "As "+c.personaName, displayName(profile))
	sys.WriteString("\n")
	for _, rule := range variant.styleRules {
		sys.WriteString("- ")
		sys.WriteString(rule)
		sys.WriteString("\n")
	}
	if hint := toneHint(profile); hint != "" {
		sys.WriteString(hint)
		sys.WriteString("\n")
	}

	fmt.Fprintf(&sys,
		"\nFor your reference only: it is %s now, %s, in %s (local time %s). "+
			"You may quote these facts if the user asks about them, but never bring up the time, the season or the weather on your own.\n",
		sit.TimeOfDay, sit.Season, sit.Location, sit.LocalTime.Format("15:04"))

	if decision == DecisionIncidental {
		sys.WriteString("\nYou were not addressed directly; chime in with one or two short sentences, under 40 words.\n")
	}
	if tier.Reasoning {
		sys.WriteString("\nThink the question through step by step before giving the final answer.\n")
	}

	messages := []Message{{Role: roleSystem, Text: strings.TrimSpace(sys.String())}}

	if extendedContext != "" {
		messages = append(messages, Message{
			Role: roleSystem,
			Text: "What you know from earlier:\n" + extendedContext,
		})
	}

	for _, turn := range recent {
		role := roleUser
		if turn.Role == memory.RoleAssistant {
			role = roleAssistant
		}
		messages = append(messages, Message{Role: role, Text: turn.Text})
	}

	messages = append(messages, Message{Role: roleUser, Text: userText})
	return messages
}

func displayName(profile *user.UserProfile) string {
	if profile == nil || profile.DisplayName == "" {
		return "someone"
	}
	return profile.DisplayName
}

// toneHint exposes the gender heuristic strictly as a tone parameter.
func toneHint(profile *user.UserProfile) string {
	if profile == nil || profile.GenderHint == "" {
		return ""
	}
	return fmt.Sprintf("- The name reads as %s; you may pick grammatical forms accordingly, but do not assume anything else from it.", profile.GenderHint)
}
