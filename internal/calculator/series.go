package calculator

import (
	"errors"
	"math"
)

// MovingAverage computes the simple moving average of the last period points.
func MovingAverage(series []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(series) < period {
		return 0, errors.New("not enough data for moving average")
	}
	sum := 0.0
	for i := len(series) - period; i < len(series); i++ {
		sum += series[i]
	}
	return sum / float64(period), nil
}

// Range scans the most recent window points and returns the high and low.
// A window of zero or less scans the whole series.
func Range(series []float64, window int) (high, low float64, err error) {
	if len(series) == 0 {
		return 0, 0, errors.New("empty series")
	}
	start := 0
	if window > 0 && len(series) > window {
		start = len(series) - window
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, v := range series[start:] {
		high = math.Max(high, v)
		low = math.Min(low, v)
	}
	return high, low, nil
}

// Position returns where v sits within [low, high], clamped to 0..1.
func Position(v, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return math.Min(math.Max((v-low)/(high-low), 0), 1), nil
}
