package model

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Obligation is a financial instrument: a deposit, a credit or a loan.
// Loans between two parties are a single Obligation referenced from both
// ledgers, so maturity and coupon state can never drift between the sides.
type Obligation struct {
	ID            uuid.UUID
	Kind          Kind
	Volume        float64
	PaymentPeriod int

	rate      float64
	maturity  int
	daysToPay int

	steppedDay int
	lastStep   StepResult
}

// StepResult is the outcome of one settlement day for an obligation.
type StepResult struct {
	Matured   bool
	CouponDue bool
	Coupon    float64
}

// NewObligation builds an obligation with explicit terms. The first coupon
// falls due one full payment period after creation.
func NewObligation(id uuid.UUID, kind Kind, volume, rate float64, maturity, paymentPeriod int) *Obligation {
	if maturity < 0 {
		maturity = 0
	}
	return &Obligation{
		ID:            id,
		Kind:          kind,
		Volume:        volume,
		PaymentPeriod: paymentPeriod,
		rate:          rate,
		maturity:      maturity,
		daysToPay:     paymentPeriod,
		steppedDay:    math.MinInt,
	}
}

func (o *Obligation) Rate() float64  { return o.rate }
func (o *Obligation) Maturity() int  { return o.maturity }
func (o *Obligation) DaysToPay() int { return o.daysToPay }

// MaturesToday reports whether the principal is due today.
func (o *Obligation) MaturesToday() bool { return o.maturity == 0 }

// CouponDueToday reports whether a coupon payment is due today.
func (o *Obligation) CouponDueToday() bool { return o.daysToPay == 0 }

// Coupon is the interest paid per payment period on a 360-day year.
func (o *Obligation) Coupon() float64 {
	return o.Volume * o.rate * float64(o.PaymentPeriod) / 360
}

// AdvanceOneDay moves the obligation one day forward and reports whether
// its maturity has reached zero.
func (o *Obligation) AdvanceOneDay() bool {
	if o.maturity > 0 {
		o.maturity--
	}
	if o.daysToPay == 0 {
		o.daysToPay = o.PaymentPeriod
	} else {
		o.daysToPay--
	}
	return o.maturity == 0
}

// Step settles the obligation for the given day: it evaluates maturity and
// coupon as of the start of the day and, unless the obligation matured,
// advances it once. Calls for a day already stepped return the recorded
// result without advancing again.
func (o *Obligation) Step(day int) StepResult {
	if o.steppedDay == day {
		return o.lastStep
	}
	res := StepResult{Matured: o.MaturesToday()}
	if !res.Matured {
		if o.CouponDueToday() {
			res.CouponDue = true
			res.Coupon = o.Coupon()
		}
		o.AdvanceOneDay()
	}
	o.steppedDay = day
	o.lastStep = res
	return res
}

// AdjustRate applies a bank's rate adjustment: deposits get cheaper by
// delta, everything else gets more expensive. The rate must stay above floor.
func (o *Obligation) AdjustRate(delta, floor float64) error {
	next := o.rate + delta
	if o.Kind == KindDeposit {
		next = o.rate - delta
	}
	if next <= floor {
		return &InvariantError{
			Op:     "adjust rate",
			BankID: -1,
			Day:    -1,
			Amount: next,
			Detail: fmt.Sprintf("%s %s rate %.4f would fall to or below floor %.4f", o.Kind, o.ID, next, floor),
		}
	}
	o.rate = next
	return nil
}

func (o *Obligation) String() string {
	return fmt.Sprintf("%s %.2f @ %.2f%% (%dd left)", o.Kind, o.Volume, o.rate*100, o.maturity)
}
