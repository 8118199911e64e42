package user

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Category string

const (
	CategorySpecial Category = "special"
	CategoryGeneric Category = "generic"
)

const maxRecentTopics = 8

// UserProfile is the per-sender identity record. Created on first
// sight, mutated on every message, never explicitly destroyed; the
// registry's LRU cap bounds total growth.
type UserProfile struct {
	ID           string
	DisplayName  string
	Category     Category
	GenderHint   string // best-effort heuristic, tone only, never gates behavior
	RecentTopics []string
	FirstSeen    time.Time
	LastActivity time.Time
}

func (p *UserProfile) IsSpecial() bool {
	return p.Category == CategorySpecial
}

// TouchTopic records a recently discussed topic: deduplicated,
// insertion-ordered, bounded.
func (p *UserProfile) TouchTopic(topic string) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return
	}
	for _, t := range p.RecentTopics {
		if t == topic {
			return
		}
	}
	p.RecentTopics = append(p.RecentTopics, topic)
	if len(p.RecentTopics) > maxRecentTopics {
		p.RecentTopics = p.RecentTopics[len(p.RecentTopics)-maxRecentTopics:]
	}
}

type Registry struct {
	mu        sync.Mutex
	profiles  *lru.Cache[string, *UserProfile]
	specialID string
	now       func() time.Time
}

func NewRegistry(maxUsers int, specialID string) (*Registry, error) {
	if maxUsers <= 0 {
		maxUsers = 512
	}
	cache, err := lru.New[string, *UserProfile](maxUsers)
	if err != nil {
		return nil, err
	}
	return &Registry{
		profiles:  cache,
		specialID: strings.TrimSpace(specialID),
		now:       time.Now,
	}, nil
}

// SetClock injects a clock for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Resolve returns the cached profile for senderID, creating it on
// first sight. LastActivity is refreshed on every call, and an empty
// raw name falls back to an id-derived placeholder.
func (r *Registry) Resolve(senderID, rawName string) *UserProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if p, ok := r.profiles.Get(senderID); ok {
		p.LastActivity = now
		if name := strings.TrimSpace(rawName); name != "" && p.DisplayName != name {
			p.DisplayName = name
			p.GenderHint = inferGenderHint(name)
		}
		return p
	}

	name := strings.TrimSpace(rawName)
	if name == "" {
		name = "user-" + senderID
	}

	category := CategoryGeneric
	if r.specialID != "" && senderID == r.specialID {
		category = CategorySpecial
	}

	p := &UserProfile{
		ID:           senderID,
		DisplayName:  name,
		Category:     category,
		GenderHint:   inferGenderHint(name),
		FirstSeen:    now,
		LastActivity: now,
	}
	r.profiles.Add(senderID, p)
	return p
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles.Len()
}

// inferGenderHint guesses a gender-like tag from common name endings.
// Best effort only; callers may use it to bias tone, nothing else.
func inferGenderHint(name string) string {
	first := strings.ToLower(strings.TrimSpace(name))
	if idx := strings.IndexAny(first, " \t"); idx > 0 {
		first = first[:idx]
	}
	if first == "" || strings.HasPrefix(first, "user-") {
		return ""
	}
	switch {
	case strings.HasSuffix(first, "a"), strings.HasSuffix(first, "ya"),
		strings.HasSuffix(first, "ia"), strings.HasSuffix(first, "ина"),
		strings.HasSuffix(first, "а"), strings.HasSuffix(first, "я"):
		return "feminine"
	default:
		return "masculine"
	}
}
