package indicators

import "github.com/rustyeddy/quant/market"

// IsKDJLow reports whether J at bar i is below threshold.
func IsKDJLow(bars market.Series, i int, threshold float64) bool {
	if i < 0 || i >= len(bars) {
		return false
	}
	_, _, j := KDJ(bars[:i+1], 9, 3, 3)
	return j[i] < threshold
}

// IsBottomPattern reports a contracting three-bar bottom: bar i's low and
// high are both below those of the two prior bars.
func IsBottomPattern(bars market.Series, i int) bool {
	if i < 2 || i >= len(bars) {
		return false
	}
	c, p1, p2 := bars[i], bars[i-1], bars[i-2]
	return c.Low < p1.Low && c.Low < p2.Low && c.High < p1.High && c.High < p2.High
}

// IsBigPositive reports close > open * (1 + pct) on bar i.
func IsBigPositive(bars market.Series, i int, pct float64) bool {
	if i < 0 || i >= len(bars) {
		return false
	}
	return bars[i].Close > bars[i].Open*(1+pct)
}

// IsAboveMA reports close above the window-bar simple moving average at bar i.
func IsAboveMA(bars market.Series, i int, window int) bool {
	if window <= 0 || i < 0 || i >= len(bars) || i+1 < window {
		return false
	}
	ma, ok := SMA(bars[:i+1].Closes(), window)
	return ok && bars[i].Close > ma
}

const volumeLookback = 5

// IsVolumeSurge reports volume at bar i above ratio times the prior
// five-bar average.
func IsVolumeSurge(bars market.Series, i int, ratio float64) bool {
	avg, ok := priorVolume(bars, i)
	return ok && bars[i].Volume > avg*ratio
}

// IsVolumeShrink reports volume at bar i below the prior five-bar average
// divided by ratio.
func IsVolumeShrink(bars market.Series, i int, ratio float64) bool {
	avg, ok := priorVolume(bars, i)
	return ok && ratio != 0 && bars[i].Volume < avg/ratio
}

func priorVolume(bars market.Series, i int) (float64, bool) {
	if i < volumeLookback || i >= len(bars) {
		return 0, false
	}
	vols := make([]float64, 0, volumeLookback)
	for _, b := range bars[i-volumeLookback : i] {
		vols = append(vols, b.Volume)
	}
	return mean(vols), true
}

// IsMACDGoldenCross reports the MACD histogram turning positive at bar i.
func IsMACDGoldenCross(bars market.Series, i int) bool {
	if i < 1 || i >= len(bars) {
		return false
	}
	_, _, hist := MACD(bars[:i+1].Closes(), 12, 26, 9)
	return hist[i-1] < 0 && hist[i] > 0
}
