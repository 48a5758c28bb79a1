package market

import (
	"fmt"
	"log"

	"InterbankSim/internal/bank"
	"InterbankSim/internal/model"
)

// match lets every unsolved bank borrow from the banks solved in the Solve
// phase. Each borrower walks its own random permutation of lenders and stops
// at the first full fill.
func (e *Engine) match() error {
	for _, borrower := range e.unsolved {
		for _, idx := range e.rng.Perm(len(e.solved)) {
			done, err := e.AttemptLoan(borrower, e.solved[idx])
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
	}
	return nil
}

// LenderCapacity is the most a lender will put into one interbank loan right now.
func (e *Engine) LenderCapacity(lender *bank.Bank) float64 {
	return (lender.Cash - lender.ObligationsToday) * e.cfg.Market.LoanToGiveShare
}

// AttemptLoan tries to fund the borrower's deficit from one lender. It
// returns true once the deficit is fully covered. A lender short of the full
// amount lends its whole capacity and the borrower moves on; a lender with no
// capacity lends nothing.
func (e *Engine) AttemptLoan(borrower, lender *bank.Bank) (bool, error) {
	if borrower.Deficit <= 0 {
		borrower.Deficit = 0
		borrower.Solved = true
		return true, nil
	}
	capacity := e.LenderCapacity(lender)
	if capacity <= 0 {
		return false, nil
	}

	amount := capacity
	full := capacity >= borrower.Deficit
	if full {
		amount = borrower.Deficit
	}
	loan, err := e.factory.Create(model.KindInterbankLoan, amount)
	if err != nil {
		return false, fmt.Errorf("interbank loan %s -> %s: %w", lender, borrower, err)
	}
	lender.Lend(loan)
	borrower.Borrow(loan)
	if full {
		borrower.Deficit = 0
		borrower.Solved = true
	}
	e.today.tally(model.KindInterbankLoan, amount)
	e.today.borrowed[borrower.ID] += amount
	return full, nil
}

// rescue funds every remaining deficit from the central bank.
func (e *Engine) rescue() error {
	for _, b := range e.unsolved {
		if b.Deficit <= 0 {
			continue
		}
		amount := b.Deficit
		if err := e.Rescue(b); err != nil {
			return err
		}
		log.Printf("[WARN] day %d: %s rescued by central bank for %.2f", e.day, b, amount)
	}
	return nil
}

// Rescue lends the borrower's remaining deficit from the central bank. It
// has no capital constraint and cannot decline.
func (e *Engine) Rescue(borrower *bank.Bank) error {
	amount := borrower.Deficit
	if amount <= 0 {
		borrower.Deficit = 0
		borrower.Solved = true
		return nil
	}
	loan, err := e.factory.Create(model.KindCentralBankLoan, amount)
	if err != nil {
		return fmt.Errorf("central bank loan -> %s: %w", borrower, err)
	}
	e.cb.Lend(loan)
	borrower.Borrow(loan)
	if borrower.Deficit != 0 || !borrower.Solved {
		return &model.InvariantError{Op: "rescue", BankID: borrower.ID, Day: e.day, Amount: borrower.Deficit,
			Detail: fmt.Sprintf("deficit left after central bank loan of %.4f", amount)}
	}
	e.today.tally(model.KindCentralBankLoan, amount)
	e.today.rescued[borrower.ID] += amount
	return nil
}

func (t *dayTally) tally(kind model.Kind, amount float64) {
	lt := t.created[kind]
	lt.Count++
	lt.Volume += amount
	t.created[kind] = lt
}
