package indicators

import "math"

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average over values, seeded with the SMA
// of the first period values.
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	multiplier := 2.0 / float64(period+1)

	ema, _ := SMA(values[:period], period)
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema, true
}

// EWM returns the recursive exponentially weighted mean series
// y[0] = x[0], y[i] = (1-alpha)*y[i-1] + alpha*x[i].
func EWM(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = (1-alpha)*out[i-1] + alpha*v
	}
	return out
}

// EMASeries is EWM with the span-based alpha 2/(period+1).
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 {
		return make([]float64, len(values))
	}
	return EWM(values, 2.0/float64(period+1))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
