package ledger

import "InterbankSim/internal/model"

// History maps an instrument kind to its cumulative volume, one point per day.
type History map[model.Kind][]float64

// Next returns the history extended by one day: each kind's last total plus
// the sum of its deltas. Every known kind gets a point, so all series share
// the same length. The receiver is not modified.
func (h History) Next(deltas Deltas) History {
	next := h.Clone()
	kinds := append([]model.Kind(nil), model.Kinds...)
	for k := range deltas {
		if !knownKind(k) {
			kinds = append(kinds, k)
		}
	}
	for _, k := range kinds {
		sum := 0.0
		for _, d := range deltas[k] {
			sum += d
		}
		series := next[k]
		if n := len(series); n > 0 {
			sum += series[n-1]
		}
		next[k] = append(series, sum)
	}
	return next
}

// Last returns the latest cumulative total of a kind, or zero.
func (h History) Last(kind model.Kind) float64 {
	s := h[kind]
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Clone deep-copies the history.
func (h History) Clone() History {
	out := make(History, len(h))
	for k, s := range h {
		out[k] = append([]float64(nil), s...)
	}
	return out
}

func knownKind(k model.Kind) bool {
	for _, known := range model.Kinds {
		if known == k {
			return true
		}
	}
	return false
}
