package selection

import "github.com/rustyeddy/quant/strategy"

type TopWeightParams struct {
	TopN         int `yaml:"top_n"`
	MinTradeDays int `yaml:"min_trade_days"`
}

// TopWeight takes the first TopN universe symbols with enough history. The
// universe order is the provider's weight rank.
type TopWeight struct {
	params TopWeightParams
}

func NewTopWeight(p strategy.Params) (strategy.Selection, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, TopWeightParams{TopN: 20, MinTradeDays: 1})
	if err != nil {
		return nil, nil, err
	}
	if cfg.TopN < 1 {
		return nil, nil, strategy.Invalid("top_n", "must be >= 1, got %d", cfg.TopN)
	}
	return &TopWeight{params: cfg}, resolved, nil
}

func (s *TopWeight) Select(snap strategy.Snapshot) []strategy.Candidate {
	var out []strategy.Candidate
	for _, sym := range snap.Universe {
		if len(out) == s.params.TopN {
			break
		}
		if _, ok := eligible(snap, sym, s.params.MinTradeDays); ok {
			out = append(out, strategy.Candidate{Symbol: sym, Score: 1, Reasons: []string{"top_weight"}})
		}
	}
	return out
}

type UniverseParams struct {
	MinTradeDays int `yaml:"min_trade_days"`
}

// Universe passes every universe symbol with enough history.
type Universe struct {
	params UniverseParams
}

func NewUniverse(p strategy.Params) (strategy.Selection, strategy.Params, error) {
	cfg, resolved, err := strategy.Bind(p, UniverseParams{MinTradeDays: 1})
	if err != nil {
		return nil, nil, err
	}
	return &Universe{params: cfg}, resolved, nil
}

func (s *Universe) Select(snap strategy.Snapshot) []strategy.Candidate {
	var out []strategy.Candidate
	for _, sym := range snap.Universe {
		if _, ok := eligible(snap, sym, s.params.MinTradeDays); ok {
			out = append(out, strategy.Candidate{Symbol: sym, Score: 1, Reasons: []string{"universe"}})
		}
	}
	return out
}
