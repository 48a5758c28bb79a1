package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterbankSim/internal/model"
)

func obligation(kind model.Kind, volume float64, maturity, period int) *model.Obligation {
	return model.NewObligation(uuid.New(), kind, volume, 0.1, maturity, period)
}

func TestHistoryNext_Pure(t *testing.T) {
	h := History{}
	day1 := h.Next(Deltas{model.KindDeposit: {100, 50}})
	assert.Empty(t, h, "receiver untouched")
	assert.Equal(t, []float64{150}, day1[model.KindDeposit])
	assert.Equal(t, []float64{0}, day1[model.KindInterbankLoan])

	day2 := day1.Next(Deltas{model.KindDeposit: {-50}, model.KindInterbankLoan: {30}})
	assert.Equal(t, []float64{150}, day1[model.KindDeposit], "previous snapshot untouched")
	assert.Equal(t, []float64{150, 100}, day2[model.KindDeposit])
	assert.Equal(t, []float64{0, 30}, day2[model.KindInterbankLoan])
	for _, k := range model.Kinds {
		assert.Len(t, day2[k], 2, "kind %s", k)
	}
}

func TestLedger_RollupProperty(t *testing.T) {
	l := New(SideLiabilities)
	l.Append(obligation(model.KindDeposit, 100, 5, 30))
	l.Append(obligation(model.KindDeposit, 40, 5, 30))
	l.Rollup()

	assert.Empty(t, l.PendingDeltas(model.KindDeposit))
	assert.Equal(t, 140.0, l.History().Last(model.KindDeposit))

	l.Append(obligation(model.KindCentralBankLoan, 25, 5, 30))
	pending := l.PendingDeltas(model.KindCentralBankLoan)
	before := l.History().Last(model.KindCentralBankLoan)
	l.Rollup()

	sum := 0.0
	for _, d := range pending {
		sum += d
	}
	assert.Equal(t, before+sum, l.History().Last(model.KindCentralBankLoan))
	assert.Empty(t, l.PendingDeltas(model.KindCentralBankLoan))
}

func TestLedger_Settle(t *testing.T) {
	l := New(SideAssets)
	maturing := obligation(model.KindRetailCredit, 300, 0, 30)
	couponing := obligation(model.KindRetailCredit, 3600, 10, 1)
	quiet := obligation(model.KindBusinessCredit, 1000, 10, 30)
	l.Append(maturing)
	l.Append(couponing)
	l.Append(quiet)
	l.Rollup()

	s := l.Settle(0)
	require.Len(t, s.Matured, 1)
	assert.Same(t, maturing, s.Matured[0])
	assert.Equal(t, 300.0, s.MaturedVolume)
	assert.Zero(t, s.Coupons)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []float64{-300}, l.PendingDeltas(model.KindRetailCredit))

	s = l.Settle(1)
	assert.Empty(t, s.Matured)
	assert.InDelta(t, 1.0, s.Coupons, 1e-9)

	// active order is preserved
	active := l.Active()
	assert.Same(t, couponing, active[0])
	assert.Same(t, quiet, active[1])
}

func TestLedger_SharedContractLockstep(t *testing.T) {
	lender := New(SideAssets)
	borrower := New(SideLiabilities)
	loan := obligation(model.KindInterbankLoan, 500, 2, 1)
	lender.Append(loan)
	borrower.Append(loan)

	for day := 0; day < 2; day++ {
		ls := lender.Settle(day)
		bs := borrower.Settle(day)
		assert.Equal(t, ls.Coupons, bs.Coupons, "day %d", day)
		assert.Empty(t, ls.Matured)
		assert.Empty(t, bs.Matured)
	}
	ls := lender.Settle(2)
	bs := borrower.Settle(2)
	assert.Len(t, ls.Matured, 1)
	assert.Len(t, bs.Matured, 1)
	assert.Zero(t, lender.Len())
	assert.Zero(t, borrower.Len())
}

func TestLedger_Outstanding(t *testing.T) {
	l := New(SideAssets)
	l.Append(obligation(model.KindInterbankLoan, 10, 5, 30))
	l.Append(obligation(model.KindInterbankLoan, 15, 5, 30))
	l.Append(obligation(model.KindRetailCredit, 99, 5, 30))

	n, v := l.Outstanding(model.KindInterbankLoan)
	assert.Equal(t, 2, n)
	assert.Equal(t, 25.0, v)
}
