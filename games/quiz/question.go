/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package quiz implements the arithmetic quiz game: a board of generated
// questions, a roster of players taking turns answering them, and the
// rules that move a game from waiting through active to completed.
package quiz

import (
	"crypto/rand"
	"fmt"
)

type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
)

var operators = [...]Operator{OpAdd, OpSub, OpMul, OpDiv}

// Cell is one question slot on the board. A cell can be played exactly
// once; Consumed flips when an answer is submitted against it.
type Cell struct {
	Operator Operator `json:"operator"`
	Operand1 int      `json:"operand1"`
	Operand2 int      `json:"operand2"`
	Answer   int      `json:"answer"`
	Consumed bool     `json:"alreadyPlayed"`
}

// randInt returns a crypto-random integer in [1, n].
func randInt(n int) int {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return (int(b[0])<<8|int(b[1]))%n + 1
}

// Generate produces a single question. Operand ranges are chosen so the
// answer is always a non-negative integer: subtraction never goes below
// zero and division never leaves a remainder.
func Generate() Cell {
	var operand1, operand2, answer int

	operator := operators[randInt(len(operators))-1]
	switch operator {
	case OpAdd:
		operand1 = randInt(100)
		operand2 = randInt(operand1)
		answer = operand1 + operand2
	case OpSub:
		operand1 = randInt(50)
		operand2 = randInt(operand1)
		answer = operand1 - operand2
	case OpMul:
		operand1 = randInt(12)
		operand2 = randInt(operand1)
		answer = operand1 * operand2
	case OpDiv:
		operand2 = randInt(10)
		operand1 = operand2 * randInt(10)
		answer = operand1 / operand2
	}

	return Cell{
		Operator: operator,
		Operand1: operand1,
		Operand2: operand2,
		Answer:   answer,
	}
}

// Question renders the cell for display, substituting the × and ÷ signs
// for the ASCII operators.
func (c Cell) Question() string {
	op := string(c.Operator)
	switch c.Operator {
	case OpMul:
		op = "×"
	case OpDiv:
		op = "÷"
	}

	return fmt.Sprintf("%d %s %d", c.Operand1, op, c.Operand2)
}
