/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"errors"
	"testing"
	"time"
)

func newTestEngine(strict bool) *Engine {
	return NewEngine(NewMemoryStore(), strict)
}

// activePair creates a capacity-2 session with alice (creator, holds the
// turn) and bob, leaving it active.
func activePair(t *testing.T, e *Engine, turnLimit int) Snapshot {
	t.Helper()

	created, err := e.Create("conn-alice", "alice", 0, 2, turnLimit)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, snap, _, err := e.Join(created.ID, "conn-bob", "bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	return snap
}

func turnHolders(players []Player) []string {
	var holders []string
	for _, p := range players {
		if p.IsTurn {
			holders = append(holders, p.Name)
		}
	}

	return holders
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		boardSize int
		capacity  int
		turnLimit int
		want      error
	}{
		{"capacity too small", 50, 1, 5, ErrInvalidCapacity},
		{"board too small", 49, 2, 5, ErrInvalidBoardSize},
		{"board too large", 201, 2, 5, ErrInvalidBoardSize},
		{"negative board", -5, 2, 5, ErrInvalidBoardSize},
		{"turn limit too small", 50, 2, 4, ErrInvalidTurnLimit},
		{"turn limit too large", 50, 2, 21, ErrInvalidTurnLimit},
		{"defaulted board", 0, 2, 5, nil},
		{"bounds inclusive", 200, 2, 20, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(true)

			_, err := e.Create("conn-1", "alice", tc.boardSize, tc.capacity, tc.turnLimit)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Create() error = %v, want %v", err, tc.want)
			}

			if tc.want != nil && e.store.Len() != 0 {
				t.Fatal("failed Create left a session in the store")
			}
		})
	}
}

func TestCreateSeatsCreator(t *testing.T) {
	e := newTestEngine(true)

	snap, err := e.Create("conn-alice", "alice", 50, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if snap.ID == "" {
		t.Fatal("session id is empty")
	}
	if snap.Phase != PhaseWaiting {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhaseWaiting)
	}
	if snap.BoardSize != 50 || len(snap.Board) != 50 {
		t.Fatalf("board size = %d/%d, want 50", snap.BoardSize, len(snap.Board))
	}
	if len(snap.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(snap.Players))
	}

	creator := snap.Players[0]
	if creator.Name != "alice" || !creator.IsTurn || creator.Score != 0 || creator.Turns != 0 {
		t.Fatalf("unexpected creator state: %+v", creator)
	}
}

func TestCreateDefaultsBoardSize(t *testing.T) {
	e := newTestEngine(true)

	snap, err := e.Create("conn-alice", "alice", 0, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if snap.BoardSize != DefaultBoardSize {
		t.Fatalf("board size = %d, want %d", snap.BoardSize, DefaultBoardSize)
	}
}

func TestJoinUnknownSession(t *testing.T) {
	e := newTestEngine(true)

	if _, _, _, err := e.Join("nope", "conn-1", "bob"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Join() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestJoinDuplicateName(t *testing.T) {
	e := newTestEngine(true)

	snap, err := e.Create("conn-alice", "alice", 0, 3, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, _, _, err := e.Join(snap.ID, "conn-2", "alice"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("Join() error = %v, want %v", err, ErrDuplicateName)
	}

	// Case-sensitive: a different casing is a different player.
	if _, _, _, err := e.Join(snap.ID, "conn-2", "Alice"); err != nil {
		t.Fatalf("Join with different casing: %v", err)
	}
}

func TestJoinFullSession(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	if _, _, _, err := e.Join(snap.ID, "conn-carol", "carol"); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("Join() error = %v, want %v", err, ErrSessionFull)
	}
}

func TestJoinStartedSessionAfterLeaver(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	if events := e.Remove(snap.ID, "conn-bob"); len(events) == 0 {
		t.Fatal("Remove produced no events")
	}

	// One open seat, but the game is underway.
	if _, _, _, err := e.Join(snap.ID, "conn-carol", "carol"); !errors.Is(err, ErrGameAlreadyStarted) {
		t.Fatalf("Join() error = %v, want %v", err, ErrGameAlreadyStarted)
	}
}

func TestJoinActivatesAtCapacity(t *testing.T) {
	e := newTestEngine(true)

	created, err := e.Create("conn-alice", "alice", 50, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	player, snap, events, err := e.Join(created.ID, "conn-bob", "bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if player.Name != "bob" || player.IsTurn {
		t.Fatalf("unexpected joiner state: %+v", player)
	}
	if snap.Phase != PhaseActive {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhaseActive)
	}

	if holders := turnHolders(snap.Players); len(holders) != 1 || holders[0] != "alice" {
		t.Fatalf("turn holders = %v, want [alice]", holders)
	}

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
		if ev.SessionID != created.ID {
			t.Fatalf("event %q carries session %q", ev.Type, ev.SessionID)
		}
	}

	want := []EventType{EventPlayerJoined, EventGameStarted, EventGameStateChanged}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
}

func TestJoinBelowCapacityStaysWaiting(t *testing.T) {
	e := newTestEngine(true)

	created, err := e.Create("conn-alice", "alice", 0, 3, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, snap, events, err := e.Join(created.ID, "conn-bob", "bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if snap.Phase != PhaseWaiting {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhaseWaiting)
	}
	for _, ev := range events {
		if ev.Type == EventGameStarted {
			t.Fatal("game_started emitted below capacity")
		}
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	e := newTestEngine(true)

	if _, _, err := e.Submit("nope", 0, 0, 1, 1.0, 10); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestSubmitValidationLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	// Consume cell 0 so the consumed-cell case has a target.
	if _, _, err := e.Submit(snap.ID, 0, 0, snap.Board[0].Answer, 1.0, 10); err != nil {
		t.Fatalf("seed Submit: %v", err)
	}

	tests := []struct {
		name        string
		playerIndex int
		cellIndex   int
		want        error
	}{
		{"player index out of bounds", 5, 1, ErrInvalidPlayerIndex},
		{"negative player index", -1, 1, ErrInvalidPlayerIndex},
		{"cell index out of bounds", 1, 50, ErrInvalidCell},
		{"consumed cell", 1, 0, ErrCellAlreadyConsumed},
		{"not your turn", 0, 1, ErrNotYourTurn},
	}

	before, err := e.State(snap.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, events, err := e.Submit(snap.ID, tc.playerIndex, tc.cellIndex, 1, 1.0, 10)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Submit() error = %v, want %v", err, tc.want)
			}
			if events != nil {
				t.Fatal("failed Submit produced events")
			}

			after, err := e.State(snap.ID)
			if err != nil {
				t.Fatalf("State: %v", err)
			}
			for i := range after.Snapshot.Players {
				got, want := after.Snapshot.Players[i], before.Snapshot.Players[i]
				if got.Score != want.Score || got.Turns != want.Turns {
					t.Fatalf("player %d mutated by failed Submit: %+v -> %+v", i, want, got)
				}
			}
		})
	}
}

func TestSubmitAwardsCallerScore(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	wrong := snap.Board[0].Answer + 1

	// The score is supplied by the caller; a wrong answer still scores
	// whatever was awarded.
	result, events, err := e.Submit(snap.ID, 0, 0, wrong, 2.5, 7)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	alice := result.Snapshot.Players[0]
	if alice.Score != 7 || alice.Turns != 1 {
		t.Fatalf("unexpected player state: %+v", alice)
	}

	if len(alice.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(alice.History))
	}
	record := alice.History[0]
	if record.IsCorrect {
		t.Fatal("wrong answer recorded as correct")
	}
	if record.Answer != wrong || record.TimeTaken != 2.5 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Question != snap.Board[0].Question() {
		t.Fatalf("question = %q, want %q", record.Question, snap.Board[0].Question())
	}

	if !result.Snapshot.Board[0].Consumed {
		t.Fatal("cell not consumed")
	}
	if holders := turnHolders(result.Snapshot.Players); len(holders) != 1 || holders[0] != "bob" {
		t.Fatalf("turn holders = %v, want [bob]", holders)
	}

	if len(events) != 1 || events[0].Type != EventScoreChanged {
		t.Fatalf("events = %v, want one score_changed", events)
	}
}

func TestSubmitCorrectAnswerRecorded(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	result, _, err := e.Submit(snap.ID, 0, 3, snap.Board[3].Answer, 1.0, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if record := result.Snapshot.Players[0].History[0]; !record.IsCorrect {
		t.Fatalf("correct answer recorded as wrong: %+v", record)
	}
}

func TestSubmitPermissiveIgnoresTurnOrder(t *testing.T) {
	e := newTestEngine(false)
	snap := activePair(t, e, 5)

	// bob answers out of turn; permissive mode allows it.
	result, _, err := e.Submit(snap.ID, 1, 0, snap.Board[0].Answer, 1.0, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if result.Snapshot.Players[1].Turns != 1 {
		t.Fatalf("bob turns = %d, want 1", result.Snapshot.Players[1].Turns)
	}
}

func TestSubmitTurnLimitExceeded(t *testing.T) {
	e := newTestEngine(false)
	snap := activePair(t, e, 5)

	for i := 0; i < 5; i++ {
		if _, _, err := e.Submit(snap.ID, 0, i, 1, 1.0, 10); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	if _, _, err := e.Submit(snap.ID, 0, 5, 1, 1.0, 10); !errors.Is(err, ErrTurnLimitExceeded) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrTurnLimitExceeded)
	}
}

func TestTurnRotationSkipsExhaustedPlayers(t *testing.T) {
	e := newTestEngine(false)

	created, err := e.Create("conn-0", "alice", 0, 3, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-1", "bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-2", "carol"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// bob burns all of his turns out of order.
	cell := 0
	for i := 0; i < 5; i++ {
		if _, _, err := e.Submit(created.ID, 1, cell, 1, 1.0, 0); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		cell++
	}

	// alice answers; the turn must skip exhausted bob and land on carol.
	result, _, err := e.Submit(created.ID, 0, cell, 1, 1.0, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if holders := turnHolders(result.Snapshot.Players); len(holders) != 1 || holders[0] != "carol" {
		t.Fatalf("turn holders = %v, want [carol]", holders)
	}
}

func TestAlternatingGameCompletesWithRanking(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	// alice scores 10 a turn, bob 20; they alternate 5 turns each.
	cell := 0
	var final Result
	for round := 0; round < 5; round++ {
		for playerIndex, score := range []int{10, 20} {
			result, events, err := e.Submit(snap.ID, playerIndex, cell, snap.Board[cell].Answer, 1.0, score)
			if err != nil {
				t.Fatalf("Submit round %d player %d: %v", round, playerIndex, err)
			}
			cell++
			final = result

			if holders := turnHolders(result.Snapshot.Players); len(holders) > 1 {
				t.Fatalf("multiple turn holders: %v", holders)
			}

			last := round == 4 && playerIndex == 1
			if result.Completed != last {
				t.Fatalf("completed = %v at round %d player %d", result.Completed, round, playerIndex)
			}
			if last {
				if events[len(events)-1].Type != EventGameCompleted {
					t.Fatalf("final events = %v, want trailing game_completed", events)
				}
			}
		}
	}

	if final.Winner != "bob" {
		t.Fatalf("winner = %q, want bob", final.Winner)
	}
	if len(final.Ranking) != 2 || final.Ranking[0].Name != "bob" || final.Ranking[1].Name != "alice" {
		t.Fatalf("unexpected ranking: %+v", final.Ranking)
	}
	if final.Ranking[0].Score != 100 || final.Ranking[1].Score != 50 {
		t.Fatalf("unexpected scores: %d, %d", final.Ranking[0].Score, final.Ranking[1].Score)
	}

	// The completed session has left the store.
	if _, err := e.State(snap.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("State() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestStateReturnsRankingWhenAllTurnsTaken(t *testing.T) {
	e := newTestEngine(false)
	snap := activePair(t, e, 5)

	cell := 0
	for playerIndex := 0; playerIndex < 2; playerIndex++ {
		for i := 0; i < 5; i++ {
			// Stop short of the final submission so the session is
			// still stored.
			if playerIndex == 1 && i == 4 {
				break
			}
			if _, _, err := e.Submit(snap.ID, playerIndex, cell, 1, 1.0, 10); err != nil {
				t.Fatalf("Submit: %v", err)
			}
			cell++
		}
	}

	result, err := e.State(snap.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if result.Completed {
		t.Fatal("State reported completion with turns remaining")
	}

	// State is read-only: calling it twice yields the same answer.
	again, err := e.State(snap.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if again.Completed || len(again.Snapshot.Players) != len(result.Snapshot.Players) {
		t.Fatal("State mutated the session")
	}

	// Once bob leaves, only exhausted players remain and the read
	// reports final standings.
	e.Remove(snap.ID, "conn-bob")

	final, err := e.State(snap.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !final.Completed || final.Winner != "alice" {
		t.Fatalf("final = %+v, want completed with winner alice", final)
	}
}

func TestRemoveUnknownPlayerIsNoOp(t *testing.T) {
	e := newTestEngine(true)
	snap := activePair(t, e, 5)

	if events := e.Remove(snap.ID, "conn-nobody"); events != nil {
		t.Fatalf("Remove produced events: %v", events)
	}
	if events := e.Remove("nope", "conn-alice"); events != nil {
		t.Fatalf("Remove on unknown session produced events: %v", events)
	}

	result, err := e.State(snap.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(result.Snapshot.Players) != 2 {
		t.Fatalf("roster changed: %d players", len(result.Snapshot.Players))
	}
}

func TestRemoveLastPlayerDeletesSession(t *testing.T) {
	e := newTestEngine(true)

	snap, err := e.Create("conn-alice", "alice", 0, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	events := e.Remove(snap.ID, "conn-alice")
	if len(events) != 1 || events[0].Type != EventGameEnded {
		t.Fatalf("events = %v, want one game_ended", events)
	}

	if _, err := e.State(snap.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("State() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestRemoveTurnHolderPassesTurn(t *testing.T) {
	e := newTestEngine(true)

	created, err := e.Create("conn-0", "alice", 0, 3, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-1", "bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-2", "carol"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// alice holds the turn; removing her wraps the active index onto bob.
	events := e.Remove(created.ID, "conn-0")
	if len(events) != 2 || events[0].Type != EventPlayerLeft || events[1].Type != EventGameStateChanged {
		t.Fatalf("events = %v, want player_left + game_state_changed", events)
	}

	result, err := e.State(created.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if holders := turnHolders(result.Snapshot.Players); len(holders) != 1 || holders[0] != "bob" {
		t.Fatalf("turn holders = %v, want [bob]", holders)
	}
}

func TestRemoveTurnHolderSkipsExhaustedSuccessor(t *testing.T) {
	e := newTestEngine(false)

	created, err := e.Create("conn-0", "alice", 0, 3, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-1", "bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-2", "carol"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// bob burns all of his turns out of order, then carol answers once,
	// handing the turn to alice. When alice leaves, the wrapped index
	// lands on exhausted bob, so the turn must pass to carol instead.
	for i := 0; i < 5; i++ {
		if _, _, err := e.Submit(created.ID, 1, i, 1, 1.0, 0); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	result, _, err := e.Submit(created.ID, 2, 5, 1, 1.0, 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if holders := turnHolders(result.Snapshot.Players); len(holders) != 1 || holders[0] != "alice" {
		t.Fatalf("turn holders = %v, want [alice]", holders)
	}

	e.Remove(created.ID, "conn-0")

	result, err = e.State(created.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if holders := turnHolders(result.Snapshot.Players); len(holders) != 1 || holders[0] != "carol" {
		t.Fatalf("turn holders = %v, want [carol]", holders)
	}
}

func TestRemoveOtherPlayerKeepsTurnHolder(t *testing.T) {
	e := newTestEngine(true)

	created, err := e.Create("conn-0", "alice", 0, 3, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-1", "bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, _, err := e.Join(created.ID, "conn-2", "carol"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// Pass the turn to carol, then remove bob; carol keeps the turn.
	if _, _, err := e.Submit(created.ID, 0, 0, 1, 1.0, 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := e.Submit(created.ID, 1, 1, 1, 1.0, 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	e.Remove(created.ID, "conn-1")

	result, err := e.State(created.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if holders := turnHolders(result.Snapshot.Players); len(holders) != 1 || holders[0] != "carol" {
		t.Fatalf("turn holders = %v, want [carol]", holders)
	}
	if result.Snapshot.Active != 1 {
		t.Fatalf("active index = %d, want 1", result.Snapshot.Active)
	}
}

func TestDisconnectFindsPlayerAcrossSessions(t *testing.T) {
	e := newTestEngine(true)

	first, err := e.Create("conn-alice", "alice", 0, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := e.Create("conn-carol", "carol", 0, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	events := e.Disconnect("conn-carol")
	if len(events) != 1 || events[0].Type != EventGameEnded || events[0].SessionID != second.ID {
		t.Fatalf("events = %v, want game_ended for %s", events, second.ID)
	}

	if _, err := e.State(first.ID); err != nil {
		t.Fatalf("unrelated session disturbed: %v", err)
	}

	if events := e.Disconnect("conn-nobody"); events != nil {
		t.Fatalf("Disconnect of unknown player produced events: %v", events)
	}
}

func TestReapIdle(t *testing.T) {
	e := newTestEngine(true)

	snap, err := e.Create("conn-alice", "alice", 0, 2, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if events := e.ReapIdle(time.Hour); events != nil {
		t.Fatalf("fresh session reaped: %v", events)
	}

	events := e.ReapIdle(0)
	if len(events) != 1 || events[0].Type != EventGameEnded || events[0].SessionID != snap.ID {
		t.Fatalf("events = %v, want game_ended for %s", events, snap.ID)
	}

	if _, err := e.State(snap.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("State() error = %v, want %v", err, ErrSessionNotFound)
	}
}
