/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import "testing"

func TestNewBoard(t *testing.T) {
	for _, size := range []int{50, 100, 200} {
		board := NewBoard(size)

		if len(board) != size {
			t.Fatalf("NewBoard(%d) has %d cells", size, len(board))
		}

		for i, c := range board {
			if c.Consumed {
				t.Fatalf("cell %d starts consumed", i)
			}
			if c.Operand1 == 0 || c.Operand2 == 0 {
				t.Fatalf("cell %d has a zero operand: %+v", i, c)
			}
		}
	}
}
