/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import "errors"

// Every operation failure is one of these values. A failure is returned
// to the immediate caller only and leaves the session untouched; none of
// them is ever broadcast to the other players.
var (
	ErrSessionNotFound     = errors.New("game not found")
	ErrInvalidCapacity     = errors.New("number of players should be at least 2")
	ErrInvalidBoardSize    = errors.New("board size should be between 50 and 200")
	ErrInvalidTurnLimit    = errors.New("number of turns should be between 5 and 20")
	ErrSessionFull         = errors.New("game is full")
	ErrGameAlreadyStarted  = errors.New("game has already started")
	ErrDuplicateName       = errors.New("a player with the same name already exists in the game")
	ErrInvalidPlayerIndex  = errors.New("invalid player index")
	ErrInvalidCell         = errors.New("invalid board square")
	ErrTurnLimitExceeded   = errors.New("maximum number of turns taken by the player")
	ErrCellAlreadyConsumed = errors.New("that square has already been played")
	ErrNotYourTurn         = errors.New("it is not your turn")
)
