package calculator

import (
	"InterbankSim/internal/bank"
	"InterbankSim/internal/ledger"
	"InterbankSim/internal/model"
)

// TotalCash sums commercial bank cash plus the central bank's, if given.
func TotalCash(banks []*bank.Bank, cb *bank.CentralBank) float64 {
	total := SystemLiquidity(banks)
	if cb != nil {
		total += cb.Cash
	}
	return total
}

// SystemLiquidity is the total cash held by commercial banks.
func SystemLiquidity(banks []*bank.Bank) float64 {
	var total float64
	for _, b := range banks {
		total += b.Cash
	}
	return total
}

// HHI is the Herfindahl-Hirschman index of cash concentration: the sum of
// squared shares of positive cash, from 1/n (even) to 1 (one bank holds all).
// It is zero when no bank holds positive cash.
func HHI(banks []*bank.Bank) float64 {
	cash := make([]float64, len(banks))
	for i, b := range banks {
		cash[i] = b.Cash
	}
	return Concentration(cash)
}

// Concentration is HHI over plain values; non-positive values are ignored.
func Concentration(values []float64) float64 {
	var total float64
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return 0
	}
	var hhi float64
	for _, v := range values {
		if v > 0 {
			s := v / total
			hhi += s * s
		}
	}
	return hhi
}

// OutstandingVolume sums the open volume of one kind across ledgers.
func OutstandingVolume(ledgers []*ledger.Ledger, kind model.Kind) (count int, volume float64) {
	for _, l := range ledgers {
		n, v := l.Outstanding(kind)
		count += n
		volume += v
	}
	return count, volume
}
