/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBoardSize = 50
	MinBoardSize     = 50
	MaxBoardSize     = 200
	MinCapacity      = 2
	MinTurnLimit     = 5
	MaxTurnLimit     = 20
)

// Engine applies game operations against a Store. Each operation locks
// the targeted session for its full duration, validates before mutating,
// and returns the broadcast-due events once the mutation is in place.
// The engine itself performs no I/O.
//
// With strictTurns set, Submit rejects answers from players whose turn
// it is not; without it, any seated player may answer at any time and
// the turn marker is bookkeeping only.
type Engine struct {
	store       Store
	strictTurns bool
}

func NewEngine(store Store, strictTurns bool) *Engine {
	return &Engine{
		store:       store,
		strictTurns: strictTurns,
	}
}

// Result is the outcome of an accepted submission or a state read.
// When Completed is set, Winner and Ranking hold the final standings;
// otherwise Snapshot holds the current state.
type Result struct {
	Completed bool     `json:"completed"`
	Winner    string   `json:"winner,omitempty"`
	Ranking   []Player `json:"playersRanking,omitempty"`
	Snapshot  Snapshot `json:"game"`
}

// Create allocates a new session with the creator already seated and
// holding the first turn. A boardSize of zero means the caller supplied
// none and selects the default of 50 squares; negative values are
// rejected like any other out-of-range size.
func (e *Engine) Create(playerID, name string, boardSize, capacity, turnLimit int) (Snapshot, error) {
	if boardSize == 0 {
		boardSize = DefaultBoardSize
	}

	if capacity < MinCapacity {
		return Snapshot{}, ErrInvalidCapacity
	}
	if boardSize < MinBoardSize || boardSize > MaxBoardSize {
		return Snapshot{}, ErrInvalidBoardSize
	}
	if turnLimit < MinTurnLimit || turnLimit > MaxTurnLimit {
		return Snapshot{}, ErrInvalidTurnLimit
	}

	now := time.Now()

	s := &Session{
		id:    uuid.NewString(),
		board: NewBoard(boardSize),
		players: []Player{{
			ID:      playerID,
			Name:    name,
			IsTurn:  true,
			History: []Record{},
		}},
		capacity:   capacity,
		turnLimit:  turnLimit,
		phase:      PhaseWaiting,
		createdAt:  now,
		lastActive: now,
	}

	e.store.Put(s)

	return s.Snapshot(), nil
}

// Join seats a new player. Filling the last seat flips the session to
// active and hands the turn to the first joiner.
func (e *Engine) Join(sessionID, playerID, name string) (Player, Snapshot, []Event, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return Player{}, Snapshot{}, nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.players) >= s.capacity {
		return Player{}, Snapshot{}, nil, ErrSessionFull
	}
	if s.phase != PhaseWaiting {
		return Player{}, Snapshot{}, nil, ErrGameAlreadyStarted
	}
	for _, p := range s.players {
		if p.Name == name {
			return Player{}, Snapshot{}, nil, ErrDuplicateName
		}
	}

	s.lastActive = time.Now()

	player := Player{
		ID:      playerID,
		Name:    name,
		History: []Record{},
	}
	s.players = append(s.players, player)

	events := []Event{{
		Type:      EventPlayerJoined,
		SessionID: s.id,
		Payload: JoinedPayload{
			Players:    s.playersLocked(),
			JoinedName: name,
		},
	}}

	if len(s.players) == s.capacity {
		s.phase = PhaseActive
		s.setTurnLocked(0)
		events = append(events, Event{
			Type:      EventGameStarted,
			SessionID: s.id,
		})
	}

	snap := s.snapshotLocked()
	events = append(events, Event{
		Type:      EventGameStateChanged,
		SessionID: s.id,
		Payload:   snap,
	})

	return player, snap, events, nil
}

// Submit records one answer against a board square. The caller supplies
// the score to award; the engine only judges correctness for the history
// record. An accepted answer consumes the square, spends one of the
// player's turns, and passes the turn to the next player who still has
// turns remaining. When the last turn is spent the session completes,
// final standings are computed, and the session leaves the store.
func (e *Engine) Submit(sessionID string, playerIndex, cellIndex, answer int, timeTaken float64, score int) (Result, []Event, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return Result{}, nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if playerIndex < 0 || playerIndex >= len(s.players) {
		return Result{}, nil, ErrInvalidPlayerIndex
	}

	player := &s.players[playerIndex]
	if player.Turns >= s.turnLimit {
		return Result{}, nil, ErrTurnLimitExceeded
	}

	if cellIndex < 0 || cellIndex >= len(s.board) {
		return Result{}, nil, ErrInvalidCell
	}

	cell := &s.board[cellIndex]
	if cell.Consumed {
		return Result{}, nil, ErrCellAlreadyConsumed
	}

	if e.strictTurns && !player.IsTurn {
		return Result{}, nil, ErrNotYourTurn
	}

	s.lastActive = time.Now()

	cell.Consumed = true
	player.History = append(player.History, Record{
		Question:  cell.Question(),
		Answer:    answer,
		IsCorrect: answer == cell.Answer,
		TimeTaken: timeTaken,
	})
	player.Score += score
	player.Turns++
	player.IsTurn = false

	// Pass the turn, wrapping past players who have spent all of theirs.
	// No-op when everyone is exhausted; the session is about to complete.
	if next, ok := s.nextEligibleLocked(playerIndex); ok {
		s.setTurnLocked(next)
	}

	if s.allTurnsTakenLocked() {
		s.phase = PhaseCompleted

		ranking := Rank(s.playersLocked())
		winner := ""
		if len(ranking) > 0 {
			winner = ranking[0].Name
		}

		e.store.Delete(s.id)

		events := []Event{
			{
				Type:      EventScoreChanged,
				SessionID: s.id,
				Payload:   s.snapshotLocked(),
			},
			{
				Type:      EventGameCompleted,
				SessionID: s.id,
				Payload: CompletedPayload{
					Winner:  winner,
					Ranking: ranking,
				},
			},
		}

		return Result{Completed: true, Winner: winner, Ranking: ranking}, events, nil
	}

	snap := s.snapshotLocked()
	events := []Event{{
		Type:      EventScoreChanged,
		SessionID: s.id,
		Payload:   snap,
	}}

	return Result{Snapshot: snap}, events, nil
}

// State reads the current state without side effects. Once every player
// has spent their turns it returns the final standings instead.
func (e *Engine) State(sessionID string) (Result, error) {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return Result{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allTurnsTakenLocked() {
		ranking := Rank(s.playersLocked())
		winner := ""
		if len(ranking) > 0 {
			winner = ranking[0].Name
		}

		return Result{Completed: true, Winner: winner, Ranking: ranking}, nil
	}

	return Result{Snapshot: s.snapshotLocked()}, nil
}

// Remove takes a player out of a session. Unknown sessions and unknown
// players are a silent no-op. Removing the last player deletes the
// session from the store.
func (e *Engine) Remove(sessionID, playerID string) []Event {
	s, ok := e.store.Get(sessionID)
	if !ok {
		return nil
	}

	return e.removeFrom(s, playerID)
}

// Disconnect removes the player from whichever session they are seated
// in. This is the disconnect path: the transport only knows the
// connection id, not the session.
func (e *Engine) Disconnect(playerID string) []Event {
	var events []Event

	e.store.ForEach(func(s *Session) bool {
		events = e.removeFrom(s, playerID)

		return events == nil
	})

	return events
}

func (e *Engine) removeFrom(s *Session, playerID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	heldTurn := s.players[idx].IsTurn
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	s.lastActive = time.Now()

	if len(s.players) == 0 {
		e.store.Delete(s.id)

		return []Event{{
			Type:      EventGameEnded,
			SessionID: s.id,
		}}
	}

	if s.phase == PhaseActive {
		s.active %= len(s.players)
		if heldTurn {
			// The player now at the wrapped index inherits the turn,
			// unless they have already spent all of theirs.
			next := s.active
			if s.players[next].Turns >= s.turnLimit {
				var ok bool
				if next, ok = s.nextEligibleLocked(next); !ok {
					next = -1
				}
			}
			s.setTurnLocked(next)
		} else {
			// The holder kept the turn but may have shifted position.
			for i, p := range s.players {
				if p.IsTurn {
					s.active = i
					break
				}
			}
		}
	}

	return []Event{
		{
			Type:      EventPlayerLeft,
			SessionID: s.id,
			Payload:   LeftPayload{Players: s.playersLocked()},
		},
		{
			Type:      EventGameStateChanged,
			SessionID: s.id,
			Payload:   s.snapshotLocked(),
		},
	}
}

// ReapIdle deletes sessions with no activity since the cutoff and
// returns one game_ended event per reaped session.
func (e *Engine) ReapIdle(olderThan time.Duration) []Event {
	cutoff := time.Now().Add(-olderThan)

	var events []Event

	e.store.ForEach(func(s *Session) bool {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		id := s.id
		s.mu.Unlock()

		if idle {
			e.store.Delete(id)
			events = append(events, Event{
				Type:      EventGameEnded,
				SessionID: id,
			})
		}

		return true
	})

	return events
}
