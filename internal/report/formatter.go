package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"InterbankSim/internal/calculator"
	"InterbankSim/internal/market"
	"InterbankSim/internal/model"
)

// Amount renders a money amount rounded to cents with thousands separators.
func Amount(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	return sign + humanize.Comma(d.IntPart()) + fixed[strings.IndexByte(fixed, '.'):]
}

// FormatDay formats one day's report.
func FormatDay(r *market.DayReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Day %d\n", r.Day))
	b.WriteString(fmt.Sprintf("System cash: %s -> %s\n", Amount(r.CashBefore), Amount(r.CashAfter)))
	b.WriteString(fmt.Sprintf("Central bank cash: %s\n", Amount(r.CentralBankCash)))
	b.WriteString(fmt.Sprintf("Inflows %s | Obligations %s | Costs %s\n",
		Amount(r.Inflows), Amount(r.Obligations), Amount(r.OperatingCosts)))

	ib := r.Created[model.KindInterbankLoan]
	cb := r.Created[model.KindCentralBankLoan]
	b.WriteString(fmt.Sprintf("Deficits: %d | Interbank: %s loans, %s | Rescues: %d, %s\n",
		r.Deficits, humanize.Comma(int64(ib.Count)), Amount(ib.Volume), r.Rescues, Amount(cb.Volume)))
	openIB := r.Outstanding[model.KindInterbankLoan]
	openCB := r.Outstanding[model.KindCentralBankLoan]
	b.WriteString(fmt.Sprintf("Outstanding: interbank %s, %s | central bank %s, %s\n",
		humanize.Comma(int64(openIB.Count)), Amount(openIB.Volume),
		humanize.Comma(int64(openCB.Count)), Amount(openCB.Volume)))

	for _, s := range r.Banks {
		if s.Shortfall == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  bank-%d short %s: borrowed %s, rescued %s\n",
			s.ID, Amount(s.Shortfall), Amount(s.Borrowed), Amount(s.Rescued)))
	}
	return b.String()
}

// Summary accumulates a run's headline numbers day by day.
type Summary struct {
	Days        int
	Deficits    int
	Rescues     int
	Interbank   market.LoanTally
	CentralBank market.LoanTally
	// Liquidity is total commercial bank cash, one point per day.
	Liquidity []float64
	LastHHI   float64
}

// Add folds one day into the summary.
func (s *Summary) Add(r *market.DayReport) {
	s.Days++
	s.Deficits += r.Deficits
	s.Rescues += r.Rescues
	ib := r.Created[model.KindInterbankLoan]
	cb := r.Created[model.KindCentralBankLoan]
	s.Interbank.Count += ib.Count
	s.Interbank.Volume += ib.Volume
	s.CentralBank.Count += cb.Count
	s.CentralBank.Volume += cb.Volume
	s.Liquidity = append(s.Liquidity, r.Liquidity)
	s.LastHHI = r.HHI
}

// FormatRun formats the end-of-run summary.
func FormatRun(s *Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Run summary: %d days\n", s.Days))
	if n := len(s.Liquidity); n > 0 {
		b.WriteString(fmt.Sprintf("Liquidity: %s -> %s\n", Amount(s.Liquidity[0]), Amount(s.Liquidity[n-1])))
		if high, low, err := calculator.Range(s.Liquidity, 0); err == nil {
			b.WriteString(fmt.Sprintf("Liquidity range: %s .. %s\n", Amount(low), Amount(high)))
		}
		if ma, err := calculator.MovingAverage(s.Liquidity, min(n, 30)); err == nil {
			b.WriteString(fmt.Sprintf("Liquidity %d-day average: %s\n", min(n, 30), Amount(ma)))
		}
	}
	b.WriteString(fmt.Sprintf("Cash concentration (HHI): %.4f\n", s.LastHHI))
	b.WriteString(fmt.Sprintf("Deficits: %s\n", humanize.Comma(int64(s.Deficits))))
	b.WriteString(fmt.Sprintf("Interbank loans: %s, %s\n",
		humanize.Comma(int64(s.Interbank.Count)), Amount(s.Interbank.Volume)))
	b.WriteString(fmt.Sprintf("Central bank rescues: %s, %s\n",
		humanize.Comma(int64(s.CentralBank.Count)), Amount(s.CentralBank.Volume)))
	return b.String()
}
