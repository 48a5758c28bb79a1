package model

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a broken engine invariant. It is never recoverable:
// the run must abort.
var ErrInvariant = errors.New("invariant violation")

// InvariantError carries the context of an invariant violation.
type InvariantError struct {
	Op     string
	BankID int
	Day    int
	Amount float64
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: bank=%d day=%d amount=%.4f: %s",
		ErrInvariant, e.Op, e.BankID, e.Day, e.Amount, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
