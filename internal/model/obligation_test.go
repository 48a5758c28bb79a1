package model

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterbankSim/internal/config"
)

func TestAdvanceOneDay(t *testing.T) {
	o := NewObligation(uuid.Nil, KindDeposit, 1000, 0.1, 2, 1)
	assert.Equal(t, 1, o.DaysToPay())

	assert.False(t, o.AdvanceOneDay())
	assert.Equal(t, 1, o.Maturity())
	assert.Equal(t, 0, o.DaysToPay())
	assert.True(t, o.CouponDueToday())

	assert.True(t, o.AdvanceOneDay())
	assert.Equal(t, 0, o.Maturity())
	assert.Equal(t, 1, o.DaysToPay(), "countdown resets to the payment period")

	// maturity never goes negative
	assert.True(t, o.AdvanceOneDay())
	assert.Equal(t, 0, o.Maturity())
}

func TestStep_IdempotentPerDay(t *testing.T) {
	o := NewObligation(uuid.Nil, KindInterbankLoan, 3600, 0.1, 1, 1)

	first := o.Step(0)
	second := o.Step(0)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, o.Maturity(), "advanced exactly once for day 0")

	res := o.Step(1)
	assert.True(t, res.Matured)
	assert.False(t, res.CouponDue)
}

func TestStep_CouponAmount(t *testing.T) {
	o := NewObligation(uuid.Nil, KindRetailCredit, 3600, 0.1, 10, 1)
	o.Step(0)
	res := o.Step(1)
	require.True(t, res.CouponDue)
	assert.InDelta(t, 1.0, res.Coupon, 1e-9)
}

func TestAdjustRate(t *testing.T) {
	tests := []struct {
		kind Kind
		want float64
	}{
		{KindDeposit, 0.07},
		{KindRetailCredit, 0.13},
		{KindBusinessCredit, 0.13},
		{KindInterbankLoan, 0.13},
		{KindCentralBankLoan, 0.13},
	}
	for _, tt := range tests {
		o := NewObligation(uuid.Nil, tt.kind, 10, 0.1, 30, 30)
		require.NoError(t, o.AdjustRate(0.03, 0.001))
		assert.InDelta(t, tt.want, o.Rate(), 1e-12, "kind %s", tt.kind)
	}
}

func TestAdjustRate_FloorViolation(t *testing.T) {
	o := NewObligation(uuid.Nil, KindDeposit, 10, 0.02, 30, 30)
	err := o.AdjustRate(0.02, 0.001)
	require.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, 0.02, o.Rate(), "rate unchanged on failure")

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "adjust rate", ie.Op)
}

func TestFactory_CreateAndSample(t *testing.T) {
	cfg := config.Default()
	f := NewFactory(cfg, rand.New(rand.NewSource(1)))

	o, err := f.Create(KindInterbankLoan, 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, o.Volume)
	assert.Equal(t, cfg.CentralBank.Rate, o.Rate())
	assert.Contains(t, cfg.Instruments["interbank_loan"].Maturity, o.Maturity())
	assert.Contains(t, cfg.PaymentPeriods, o.PaymentPeriod)

	d, err := f.Sample(KindDeposit)
	require.NoError(t, err)
	b := cfg.Instruments["deposit"].Volume
	assert.GreaterOrEqual(t, d.Volume, b.Min)
	assert.LessOrEqual(t, d.Volume, b.Max)
	assert.NotEqual(t, o.ID, d.ID)
}

func TestFactory_Errors(t *testing.T) {
	cfg := config.Default()
	f := NewFactory(cfg, rand.New(rand.NewSource(1)))

	_, err := f.Create(Kind("swap"), 10)
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = f.Create(KindInterbankLoan, 0)
	assert.ErrorIs(t, err, config.ErrConfig)

	// loans carry no volume bounds, so they cannot be sampled
	_, err = f.Sample(KindCentralBankLoan)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestFactory_DeterministicIDs(t *testing.T) {
	a := NewFactory(config.Default(), rand.New(rand.NewSource(9)))
	b := NewFactory(config.Default(), rand.New(rand.NewSource(9)))
	for i := 0; i < 3; i++ {
		oa, err := a.Sample(KindRetailCredit)
		require.NoError(t, err)
		ob, err := b.Sample(KindRetailCredit)
		require.NoError(t, err)
		assert.Equal(t, oa.ID, ob.ID)
		assert.Equal(t, oa.Volume, ob.Volume)
	}
}
