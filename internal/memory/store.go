package memory

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is the keyed, bounded conversation history. Keys are
// "channel:chat:sender" session keys; whole conversations are evicted
// LRU once the key cap is reached, and turns within one conversation
// are evicted block-wise into summaries and important points.
type Store struct {
	mu     sync.Mutex
	convs  *lru.Cache[string, *conversation]
	limits Limits
	now    func() time.Time
}

func NewStore(maxConversations int, limits Limits) (*Store, error) {
	if maxConversations <= 0 {
		maxConversations = 512
	}
	cache, err := lru.New[string, *conversation](maxConversations)
	if err != nil {
		return nil, err
	}
	return &Store{
		convs:  cache,
		limits: limits.normalized(),
		now:    time.Now,
	}, nil
}

// SetClock injects a clock for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) get(key string) *conversation {
	if c, ok := s.convs.Get(key); ok {
		return c
	}
	c := &conversation{}
	s.convs.Add(key, c)
	return c
}

// Append pushes one turn onto the conversation, evicting the oldest
// block first if the cap would be exceeded. Evicted turns are
// summarized into the summary ring and re-scanned for importance
// triggers before they are discarded.
func (s *Store) Append(key string, role Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	c.turns = append(c.turns, Turn{Role: role, Text: text, At: s.now()})
	c.lastActivity = s.now()

	if len(c.turns) <= s.limits.MaxTurns {
		return
	}

	block := c.turns[:s.limits.EvictBlock]
	rest := make([]Turn, len(c.turns)-s.limits.EvictBlock)
	copy(rest, c.turns[s.limits.EvictBlock:])
	c.turns = rest

	if summary := summarizeTopics(block); summary != "" {
		c.summaries = append(c.summaries, summary)
		if len(c.summaries) > s.limits.MaxSummaries {
			c.summaries = c.summaries[len(c.summaries)-s.limits.MaxSummaries:]
		}
	}

	for _, point := range extractImportant(block) {
		c.addPoint(point, s.limits.MaxPoints)
	}
}

func (c *conversation) addPoint(point string, limit int) {
	for _, p := range c.points {
		if p == point {
			return
		}
	}
	c.points = append(c.points, point)
	if len(c.points) > limit {
		c.points = c.points[len(c.points)-limit:]
	}
}

// Recent returns a copy of the last n turns for the key.
func (s *Store) Recent(key string, n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs.Get(key)
	if !ok || n <= 0 {
		return nil
	}
	turns := c.turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// TurnCount reports the current history length for the key.
func (s *Store) TurnCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs.Get(key); ok {
		return len(c.turns)
	}
	return 0
}

// Summaries returns a copy of the eviction summaries for the key.
func (s *Store) Summaries(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs.Get(key); ok {
		out := make([]string, len(c.summaries))
		copy(out, c.summaries)
		return out
	}
	return nil
}

// ImportantPoints returns a copy of the preserved facts for the key.
func (s *Store) ImportantPoints(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs.Get(key); ok {
		out := make([]string, len(c.points))
		copy(out, c.points)
		return out
	}
	return nil
}

// LastActivity reports when the key was last appended to.
func (s *Store) LastActivity(key string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs.Get(key); ok {
		return c.lastActivity
	}
	return time.Time{}
}

// ExtendedContext renders summaries, important points and a fresh
// topic summary of the unevicted turns into one block for prompt
// injection. Deterministic for a given memory state; a key with no
// history yields the empty string.
func (s *Store) ExtendedContext(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs.Get(key)
	if !ok {
		return ""
	}

	var sb strings.Builder
	if len(c.summaries) > 0 {
		sb.WriteString("Earlier conversation: ")
		sb.WriteString(strings.Join(c.summaries, "; "))
		sb.WriteString("\n")
	}
	if len(c.points) > 0 {
		sb.WriteString("Things to remember: ")
		sb.WriteString(strings.Join(c.points, "; "))
		sb.WriteString("\n")
	}
	if len(c.turns) > 0 {
		if recent := summarizeTopics(c.turns); recent != "" {
			sb.WriteString("Current conversation: ")
			sb.WriteString(recent)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
