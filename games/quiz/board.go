/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

// NewBoard builds a board of size independently generated cells. Cells
// are not required to be distinct from one another.
func NewBoard(size int) []Cell {
	board := make([]Cell, size)
	for i := range board {
		board[i] = Generate()
	}

	return board
}
