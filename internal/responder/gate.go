package responder

import (
	"log"
	"math/rand"

	"github.com/leilabot/leila/internal/bus"
	"github.com/leilabot/leila/internal/user"
)

// Decision is the addressing-gate outcome for one inbound message.
type Decision int

const (
	// DecisionSkip means the message warrants no reply at all.
	DecisionSkip Decision = iota
	// DecisionDirect is a full reply to a message addressed to the bot.
	DecisionDirect
	// DecisionIncidental is a short, unprompted interjection for the
	// special sender in a group. Downstream it only shrinks the output
	// budget; it is not a separate sanitizer mode.
	DecisionIncidental
)

func (d Decision) String() string {
	switch d {
	case DecisionDirect:
		return "direct"
	case DecisionIncidental:
		return "incidental"
	default:
		return "skip"
	}
}

// Gate decides whether a message gets a reply. Rules apply in order,
// first match wins:
//
//  1. private chat: always direct
//  2. group chat, explicit mention or reply to the bot: direct
//  3. group chat, special sender: incidental, except for a
//     probabilistic skip that keeps the attention selective
//  4. otherwise: skip
//
// The special-sender bypass is a fixed identity check (the profile
// category set from config), never a content heuristic.
type Gate struct {
	skipProbability float64
	roll            func() float64
}

// maxSkipProbability caps the skip roll so the special sender can
// never be muted entirely by a misconfigured probability.
const maxSkipProbability = 0.95

// NewGate builds a gate. roll may be nil, in which case the package
// RNG is used; tests inject a deterministic source. Out-of-range
// probabilities clamp to the nearest bound.
func NewGate(skipProbability float64, roll func() float64) *Gate {
	switch {
	case skipProbability < 0:
		log.Printf("[gate] skip probability %.2f below range, using 0", skipProbability)
		skipProbability = 0
	case skipProbability > maxSkipProbability:
		log.Printf("[gate] skip probability %.2f above range, using %.2f", skipProbability, maxSkipProbability)
		skipProbability = maxSkipProbability
	}
	if roll == nil {
		roll = rand.Float64
	}
	return &Gate{skipProbability: skipProbability, roll: roll}
}

func (g *Gate) Decide(msg bus.InboundMessage, profile *user.UserProfile) Decision {
	if msg.ChatKind == bus.ChatPrivate {
		return DecisionDirect
	}
	if msg.Mentioned || msg.ReplyToBot {
		return DecisionDirect
	}
	if profile != nil && profile.IsSpecial() {
		if g.skipProbability > 0 && g.roll() < g.skipProbability {
			return DecisionSkip
		}
		return DecisionIncidental
	}
	return DecisionSkip
}
