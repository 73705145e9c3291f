/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseActive    Phase = "active"
	PhaseCompleted Phase = "completed"
)

// Record is one answered question in a player's history.
type Record struct {
	Question  string  `json:"question"`
	Answer    int     `json:"answer"`
	IsCorrect bool    `json:"isCorrect"`
	TimeTaken float64 `json:"timeTaken"`
}

// Player is one participant. ID is the caller-supplied connection
// identifier; Name must be unique within the owning session.
type Player struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Score      int      `json:"score"`
	Turns      int      `json:"turns"`
	IsTurn     bool     `json:"nextTurn"`
	Eliminated bool     `json:"isEliminated"`
	History    []Record `json:"questions"`
}

// Session is one running game. All fields are guarded by mu; the engine
// is the only writer, and every operation holds mu for its duration so
// no caller ever observes a half-applied update.
type Session struct {
	mu sync.Mutex

	id        string
	board     []Cell
	players   []Player
	capacity  int
	turnLimit int
	phase     Phase
	active    int

	createdAt  time.Time
	lastActive time.Time
}

// Snapshot is a copy of a session's externally visible state, safe to
// serialize and hand to the transport layer without holding the lock.
type Snapshot struct {
	ID        string   `json:"gameId"`
	Phase     Phase    `json:"status"`
	Capacity  int      `json:"numPlayers"`
	TurnLimit int      `json:"numTurns"`
	BoardSize int      `json:"boardSize"`
	Joined    int      `json:"playersJoined"`
	Active    int      `json:"activePlayerIndex"`
	Board     []Cell   `json:"board"`
	Players   []Player `json:"players"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	board := make([]Cell, len(s.board))
	copy(board, s.board)

	return Snapshot{
		ID:        s.id,
		Phase:     s.phase,
		Capacity:  s.capacity,
		TurnLimit: s.turnLimit,
		BoardSize: len(s.board),
		Joined:    len(s.players),
		Active:    s.active,
		Board:     board,
		Players:   s.playersLocked(),
	}
}

// playersLocked deep-copies the roster, including each history slice, so
// snapshots never alias live state.
func (s *Session) playersLocked() []Player {
	players := make([]Player, len(s.players))
	for i, p := range s.players {
		history := make([]Record, len(p.History))
		copy(history, p.History)
		p.History = history
		players[i] = p
	}

	return players
}

// setTurnLocked hands the turn to players[i], clearing it everywhere else.
func (s *Session) setTurnLocked(i int) {
	for j := range s.players {
		s.players[j].IsTurn = false
	}

	if i >= 0 && i < len(s.players) {
		s.players[i].IsTurn = true
		s.active = i
	}
}

// nextEligibleLocked finds the next player after from, round-robin, who
// still has turns remaining. Reports false when every player, including
// the immediate successor, has exhausted the turn limit.
func (s *Session) nextEligibleLocked(from int) (int, bool) {
	for i := 1; i <= len(s.players); i++ {
		next := (from + i) % len(s.players)
		if s.players[next].Turns < s.turnLimit {
			return next, true
		}
	}

	return 0, false
}

func (s *Session) allTurnsTakenLocked() bool {
	for _, p := range s.players {
		if p.Turns < s.turnLimit {
			return false
		}
	}

	return true
}
