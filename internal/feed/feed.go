package feed

import (
	"InterbankSim/internal/market"
	"InterbankSim/internal/model"
)

// Feed defines the interface for producing each day's customer applications.
// The result maps a bank id to the applications routed to it.
type Feed interface {
	Applications(day int, banks []market.BankInfo) (map[int][]model.Application, error)
	Name() string
}

// Deliver queues a day's batch on the engine's banks.
func Deliver(e *market.Engine, batch map[int][]model.Application) error {
	for _, info := range e.BankInfos() {
		apps := batch[info.ID]
		if len(apps) == 0 {
			continue
		}
		if err := e.Intake(info.ID, apps...); err != nil {
			return err
		}
	}
	return nil
}
