package selection

import (
	"strings"

	"github.com/rustyeddy/quant/indicators"
	"github.com/rustyeddy/quant/market"
	"github.com/rustyeddy/quant/strategy"
)

const (
	CondKDJ             = "kdj"
	CondBottomPattern   = "bottom_pattern"
	CondBigPositive     = "big_positive"
	CondAboveMA         = "above_ma"
	CondVolumeSurge     = "volume_surge"
	CondVolumeShrink    = "volume_shrink"
	CondMACDGoldenCross = "macd_golden_cross"
)

// B1Params configures the B1 condition screen.
type B1Params struct {
	JThreshold     float64  `yaml:"j_threshold"`
	MinTradeDays   int      `yaml:"min_trade_days"`
	MAWindow       int      `yaml:"ma_window"`
	VolumeRatio    float64  `yaml:"volume_ratio"`
	BigPositivePct float64  `yaml:"big_positive_pct"`
	Conditions     []string `yaml:"conditions"`
	Logic          string   `yaml:"logic"`
}

func B1Defaults() B1Params {
	return B1Params{
		JThreshold:     -10,
		MinTradeDays:   20,
		MAWindow:       20,
		VolumeRatio:    2.0,
		BigPositivePct: 0.05,
		Conditions:     []string{CondKDJ, CondBottomPattern, CondBigPositive, CondAboveMA},
		Logic:          "AND",
	}
}

type condition func(bars market.Series, i int) bool

// B1 screens each symbol's last bar against a set of enabled conditions
// combined with AND or OR. The score is the fraction of conditions met.
type B1 struct {
	params B1Params
	names  []string
	conds  []condition
	anyOf  bool
}

func NewB1(p strategy.Params) (strategy.Selection, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, B1Defaults())
	if err != nil {
		return nil, nil, err
	}
	if cfg.MAWindow < 1 {
		return nil, nil, strategy.Invalid("ma_window", "must be >= 1, got %d", cfg.MAWindow)
	}
	if len(cfg.Conditions) == 0 {
		return nil, nil, strategy.Invalid("conditions", "at least one condition is required")
	}

	s := &B1{params: cfg}
	switch strings.ToUpper(strings.TrimSpace(cfg.Logic)) {
	case "AND":
	case "OR":
		s.anyOf = true
	default:
		return nil, nil, strategy.Invalid("logic", "must be AND or OR, got %q", cfg.Logic)
	}

	for _, name := range cfg.Conditions {
		name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "_condition")
		c := s.condition(name)
		if c == nil {
			return nil, nil, strategy.Invalid("conditions", "unknown condition %q", name)
		}
		s.names = append(s.names, name)
		s.conds = append(s.conds, c)
	}
	return s, resolved, nil
}

func (s *B1) condition(name string) condition {
	p := s.params
	switch name {
	case CondKDJ:
		return func(b market.Series, i int) bool { return indicators.IsKDJLow(b, i, p.JThreshold) }
	case CondBottomPattern:
		return indicators.IsBottomPattern
	case CondBigPositive:
		return func(b market.Series, i int) bool { return indicators.IsBigPositive(b, i, p.BigPositivePct) }
	case CondAboveMA:
		return func(b market.Series, i int) bool { return indicators.IsAboveMA(b, i, p.MAWindow) }
	case CondVolumeSurge:
		return func(b market.Series, i int) bool { return indicators.IsVolumeSurge(b, i, p.VolumeRatio) }
	case CondVolumeShrink:
		return func(b market.Series, i int) bool { return indicators.IsVolumeShrink(b, i, p.VolumeRatio) }
	case CondMACDGoldenCross:
		return indicators.IsMACDGoldenCross
	}
	return nil
}

func (s *B1) Select(snap strategy.Snapshot) []strategy.Candidate {
	var out []strategy.Candidate
	for _, sym := range snap.Universe {
		h, ok := eligible(snap, sym, s.params.MinTradeDays)
		if !ok {
			continue
		}
		i := len(h) - 1
		var reasons []string
		for k, c := range s.conds {
			if c(h, i) {
				reasons = append(reasons, s.names[k])
			}
		}
		if len(reasons) == 0 || (!s.anyOf && len(reasons) != len(s.conds)) {
			continue
		}
		out = append(out, strategy.Candidate{
			Symbol:  sym,
			Score:   float64(len(reasons)) / float64(len(s.conds)),
			Reasons: reasons,
		})
	}
	return rank(out)
}
