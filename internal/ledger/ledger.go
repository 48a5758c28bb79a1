package ledger

import "InterbankSim/internal/model"

// Side names which book a ledger represents.
type Side string

const (
	SideAssets      Side = "assets"
	SideLiabilities Side = "liabilities"
)

// Deltas maps an instrument kind to the signed volume changes recorded since the last rollup.
type Deltas map[model.Kind][]float64

// Ledger is one owner's ordered book of live obligations on one side,
// with a cumulative volume series per instrument kind.
type Ledger struct {
	Side    Side
	active  []*model.Obligation
	deltas  Deltas
	history History
}

// Settlement summarizes one day of ledger settlement.
type Settlement struct {
	Matured       []*model.Obligation
	MaturedVolume float64
	Coupons       float64
}

// New creates an empty ledger.
func New(side Side) *Ledger {
	return &Ledger{Side: side, deltas: Deltas{}, history: History{}}
}

// Append adds a live obligation and records its volume as a positive delta.
func (l *Ledger) Append(o *model.Obligation) {
	l.active = append(l.active, o)
	l.deltas[o.Kind] = append(l.deltas[o.Kind], o.Volume)
}

// Active returns the live obligations in insertion order.
func (l *Ledger) Active() []*model.Obligation {
	out := make([]*model.Obligation, len(l.active))
	copy(out, l.active)
	return out
}

func (l *Ledger) Len() int { return len(l.active) }

// Settle steps every live obligation for the given day. Matured entries
// leave the active list with a negative delta; coupons are summed over the
// entries that stay.
func (l *Ledger) Settle(day int) Settlement {
	var s Settlement
	stay := l.active[:0]
	for _, o := range l.active {
		res := o.Step(day)
		if res.Matured {
			s.Matured = append(s.Matured, o)
			s.MaturedVolume += o.Volume
			l.deltas[o.Kind] = append(l.deltas[o.Kind], -o.Volume)
			continue
		}
		s.Coupons += res.Coupon
		stay = append(stay, o)
	}
	for i := len(stay); i < len(l.active); i++ {
		l.active[i] = nil
	}
	l.active = stay
	return s
}

// Outstanding returns the count and total volume of live obligations of a kind.
func (l *Ledger) Outstanding(kind model.Kind) (count int, volume float64) {
	for _, o := range l.active {
		if o.Kind == kind {
			count++
			volume += o.Volume
		}
	}
	return count, volume
}

// PendingDeltas returns the deltas recorded for a kind since the last rollup.
func (l *Ledger) PendingDeltas(kind model.Kind) []float64 {
	return append([]float64(nil), l.deltas[kind]...)
}

// Rollup appends today's cumulative totals and clears the pending deltas.
func (l *Ledger) Rollup() {
	l.history = l.history.Next(l.deltas)
	l.deltas = Deltas{}
}

// History returns the cumulative series recorded so far.
func (l *Ledger) History() History { return l.history.Clone() }

// Series returns the cumulative series of one kind.
func (l *Ledger) Series(kind model.Kind) []float64 {
	return append([]float64(nil), l.history[kind]...)
}
