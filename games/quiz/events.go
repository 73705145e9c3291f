/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

type EventType string

const (
	EventPlayerJoined     EventType = "player_joined"
	EventGameStarted      EventType = "game_started"
	EventGameStateChanged EventType = "game_state_changed"
	EventScoreChanged     EventType = "score_changed"
	EventGameCompleted    EventType = "game_completed"
	EventPlayerLeft       EventType = "player_left"
	EventGameEnded        EventType = "game_ended"
)

// Event is one broadcast-due notification for the members of a session.
// Operations return the events they produced after the state change is
// in place; delivery is the transport's job and is best-effort relative
// to the authoritative state.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"gameId"`
	Payload   any       `json:"payload,omitempty"`
}

// JoinedPayload accompanies player_joined.
type JoinedPayload struct {
	Players    []Player `json:"players"`
	JoinedName string   `json:"joinedPlayerName"`
}

// LeftPayload accompanies player_left.
type LeftPayload struct {
	Players []Player `json:"players"`
}

// CompletedPayload accompanies game_completed.
type CompletedPayload struct {
	Winner  string   `json:"winner"`
	Ranking []Player `json:"playersRanking"`
}
