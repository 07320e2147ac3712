package generator

import (
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	DefaultCapacity      = 120000
	DefaultCharsPerToken = 4.0
)

// Budget is the fixed context window a single request must fit in, measured in
// estimated tokens.
type Budget struct {
	Capacity      int
	CharsPerToken float64
}

func NewBudget(capacity int, charsPerToken float64) Budget {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return Budget{Capacity: capacity, CharsPerToken: charsPerToken}
}

// EstimateCost approximates the token count of text from its rune count.
// Rounding up keeps it monotonic under concatenation and never zero for non-empty text.
func (b Budget) EstimateCost(text string) int {
	if text == "" {
		return 0
	}
	cpt := b.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / cpt))
}

// Cost is the estimated size of a whole prompt.
func (b Budget) Cost(p Prompt) int {
	return b.EstimateCost(p.System) + b.EstimateCost(p.User)
}

// Remaining is the room left after the reserved texts are accounted for. It can be negative.
func (b Budget) Remaining(reserved ...string) int {
	left := b.Capacity
	for _, r := range reserved {
		left -= b.EstimateCost(r)
	}
	return left
}

// Require fails with ErrBudgetExceeded when the reserved texts alone overflow the window.
func (b Budget) Require(reserved ...string) error {
	if left := b.Remaining(reserved...); left < 0 {
		return fmt.Errorf("%w: mandatory text needs %d tokens, capacity is %d", ErrBudgetExceeded, b.Capacity-left, b.Capacity)
	}
	return nil
}
