package memory

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}

// Limits bounds a conversation. Every mutation in the store keeps
// len(turns) <= MaxTurns; EvictBlock oldest turns are summarized away
// whenever an append would exceed the cap.
type Limits struct {
	MaxTurns     int
	EvictBlock   int
	MaxSummaries int
	MaxPoints    int
}

func (l Limits) normalized() Limits {
	if l.MaxTurns <= 0 {
		l.MaxTurns = 40
	}
	if l.EvictBlock <= 0 || l.EvictBlock > l.MaxTurns {
		l.EvictBlock = l.MaxTurns / 2
	}
	// MaxTurns of 1 halves to zero; eviction must always remove
	// at least one turn or the cap cannot hold.
	if l.EvictBlock < 1 {
		l.EvictBlock = 1
	}
	if l.MaxSummaries <= 0 {
		l.MaxSummaries = 5
	}
	if l.MaxPoints <= 0 {
		l.MaxPoints = 10
	}
	return l
}

// conversation is the per-(chat, sender) memory. Mutated only by the
// store so the bounds hold at every step.
type conversation struct {
	turns        []Turn
	summaries    []string
	points       []string
	lastActivity time.Time
}
