package indicators

import (
	"math"

	"github.com/rustyeddy/quant/market"
)

// KDJ computes the stochastic K, D and J lines. RSV uses the rolling n-bar
// high/low and is 50 wherever the window is incomplete or flat. K and D are
// smoothed with alpha 1/m1 and 1/m2, and J = 3K - 2D.
func KDJ(bars market.Series, n, m1, m2 int) (k, d, j []float64) {
	rsv := make([]float64, len(bars))
	for i := range bars {
		rsv[i] = 50
		if n <= 0 || i+1 < n {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, b := range bars[i+1-n : i+1] {
			lo = math.Min(lo, b.Low)
			hi = math.Max(hi, b.High)
		}
		if hi > lo {
			rsv[i] = (bars[i].Close - lo) / (hi - lo) * 100
		}
	}

	k = EWM(rsv, 1/float64(m1))
	d = EWM(k, 1/float64(m2))
	j = make([]float64, len(bars))
	for i := range j {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}

// MACD returns the DIF, DEA and histogram (2 * (DIF - DEA)) series.
func MACD(closes []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	f := EMASeries(closes, fast)
	s := EMASeries(closes, slow)
	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = f[i] - s[i]
	}
	dea = EMASeries(dif, signal)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return dif, dea, hist
}
