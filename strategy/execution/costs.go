package execution

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Costs is the slippage and commission model. It is applied the same way to
// every fill regardless of which layer produced the order.
type Costs struct {
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	SlippageBP     float64 `json:"slippage_bp" yaml:"slippage_bp"`
}

func (c Costs) Validate() error {
	if c.CommissionRate < 0 {
		return fmt.Errorf("commission_rate must be >= 0, got %g", c.CommissionRate)
	}
	if c.SlippageBP < 0 || c.SlippageBP >= 10000 {
		return fmt.Errorf("slippage_bp must be in [0, 10000), got %g", c.SlippageBP)
	}
	return nil
}

// Buy returns the buy fill price for a raw price.
func (c Costs) Buy(raw float64) float64 {
	return raw * (1 + c.SlippageBP/10000)
}

// Sell returns the sell fill price for a raw price.
func (c Costs) Sell(raw float64) float64 {
	return raw * (1 - c.SlippageBP/10000)
}

// Commission is charged on the notional of every fill, buy or sell.
func (c Costs) Commission(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(decimal.NewFromFloat(c.CommissionRate))
}
