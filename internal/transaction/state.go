package transaction

import (
	"fmt"
	"slices"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
)

var ErrInvalidStatusTransition = fmt.Errorf("transaction: %w", apperror.ErrInvalidTransition)

var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusRefunded},
}

func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}
