package responder

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leilabot/leila/internal/bus"
	"github.com/leilabot/leila/internal/memory"
	"github.com/leilabot/leila/internal/user"
)

// CompletionRequest is the logical contract with the generation
// service: role-tagged messages plus the tier parameters.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	Reasoning   bool
}

// Completer is the external generation call. Implementations must
// respect ctx; errors degrade to a fallback line, they never reach
// the chat.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

const recentWindow = 12

// fallbackLine is returned whenever the generation service fails or
// the request is cancelled. The failed turn is not recorded.
const fallbackLine = "Sorry, my head is somewhere else right now. Ask me again in a minute?"

// Options wires a Responder.
type Options struct {
	Registry    *user.Registry
	Store       *memory.Store
	Gate        *Gate
	Completer   Completer
	PersonaName string
	Location    string
	Timezone    *time.Location
	Now         func() time.Time
	// SanitizerRoll lets tests pin the opener-flattening draw.
	SanitizerRoll func() float64
}

// Responder runs the full per-message pipeline: resolve sender, gate,
// classify, fetch context, compose, generate, sanitize, store.
type Responder struct {
	registry  *user.Registry
	store     *memory.Store
	gate      *Gate
	composer  *Composer
	sanitizer *Sanitizer
	completer Completer
	location  string
	tz        *time.Location
	now       func() time.Time

	keyLocks [lockStripes]sync.Mutex
}

// lockStripes bounds lock memory to a fixed set regardless of how many
// conversation keys the process ever sees.
const lockStripes = 64

func New(opts Options) *Responder {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Responder{
		registry:  opts.Registry,
		store:     opts.Store,
		gate:      opts.Gate,
		composer:  NewComposer(opts.PersonaName),
		sanitizer: NewSanitizer(opts.PersonaName, opts.SanitizerRoll),
		completer: opts.Completer,
		location:  opts.Location,
		tz:        opts.Timezone,
		now:       now,
	}
}

// lockKey serializes processing per conversation key so that two
// in-flight messages for the same key cannot interleave their reads
// and appends around the generation await. Keys hash onto a fixed
// stripe set; a collision serializes two conversations, never corrupts
// them.
func (r *Responder) lockKey(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &r.keyLocks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// HandleMessage processes one inbound message end to end. The second
// return value reports whether a reply should be sent at all.
func (r *Responder) HandleMessage(ctx context.Context, msg bus.InboundMessage) (string, bool) {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", false
	}

	profile := r.registry.Resolve(msg.SenderID, msg.SenderName)
	for _, topic := range memory.TopicsOf(text) {
		profile.TouchTopic(topic)
	}

	decision := r.gate.Decide(msg, profile)
	if decision == DecisionSkip {
		return "", false
	}

	tier := Classify(text, profile.IsSpecial())
	if decision == DecisionIncidental {
		tier = tier.Incidental()
	}

	key := msg.SessionKey()
	unlock := r.lockKey(key)
	defer unlock()

	extended := r.store.ExtendedContext(key)
	recent := r.store.Recent(key, recentWindow)
	sit := CurrentSituation(r.now(), r.location, r.tz)

	messages := r.composer.Compose(profile, tier, decision, extended, recent, sit, text)

	if r.completer == nil {
		return fallbackLine, true
	}

	raw, err := r.completer.Complete(ctx, CompletionRequest{
		Messages:    messages,
		Model:       tier.Model,
		Temperature: tier.Temperature,
		MaxTokens:   tier.MaxTokens,
		Reasoning:   tier.Reasoning,
	})
	if err != nil {
		// No partial writes: the failed exchange stays out of history.
		log.Printf("[responder] generation failed for %s: %v", key, err)
		return fallbackLine, true
	}

	reply := r.sanitizer.Clean(raw, tier, profile.IsSpecial(), AsksWeather(text))
	if reply == "" {
		return fallbackLine, true
	}

	r.store.Append(key, memory.RoleUser, text)
	r.store.Append(key, memory.RoleAssistant, reply)
	return reply, true
}

// DailyGreeting composes and generates the scheduled good-morning
// message for the group chat.
func (r *Responder) DailyGreeting(ctx context.Context) (string, error) {
	sit := CurrentSituation(r.now(), r.location, r.tz)
	tier := defaultTier.generic

	messages := []Message{
		{Role: roleSystem, Text: "You are " + r.composer.personaName + ", a calm and supportive chat companion writing the day's opening message for a small group chat."},
		{Role: roleUser, Text: "Write a short, warm good-" + sit.TimeOfDay + " message for the group. Two sentences at most, no questions required."},
	}

	if r.completer == nil {
		return "", errors.New("generation service not configured")
	}
	raw, err := r.completer.Complete(ctx, CompletionRequest{
		Messages:    messages,
		Model:       tier.Model,
		Temperature: tier.Temperature,
		MaxTokens:   tier.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	reply := r.sanitizer.Clean(raw, tier, false, false)
	if reply == "" {
		reply = "Good " + sit.TimeOfDay + ", everyone."
	}
	return reply, nil
}
