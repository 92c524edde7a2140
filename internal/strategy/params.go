package strategy

import "encoding/json"

// Parameters holds every tunable period, multiplier, and threshold used by
// the strategies. A session may override any subset via JSON; unset fields
// keep their defaults.
type Parameters struct {
	SMAShortPeriod int `json:"sma_short_period"`
	SMALongPeriod  int `json:"sma_long_period"`

	BollingerPeriod int     `json:"bollinger_period"`
	BollingerStdDev float64 `json:"bollinger_std_dev"`

	RSIPeriod     int     `json:"rsi_period"`
	RSIOversold   float64 `json:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought"`

	ADXPeriod         int     `json:"adx_period"`
	ADXTrendThreshold float64 `json:"adx_trend_threshold"`
	ADXRangeThreshold float64 `json:"adx_range_threshold"`

	ATRPeriod         int     `json:"atr_period"`
	ATRStopLossMult   float64 `json:"atr_stop_loss_mult"`
	ATRTakeProfitMult float64 `json:"atr_take_profit_mult"`

	BreakoutLookback    int     `json:"breakout_lookback"`
	BreakoutMinWidthATR float64 `json:"breakout_min_width_atr"`
}

// DefaultParameters returns the documented defaults for every strategy.
func DefaultParameters() Parameters {
	return Parameters{
		SMAShortPeriod:      10,
		SMALongPeriod:       20,
		BollingerPeriod:     20,
		BollingerStdDev:     2.0,
		RSIPeriod:           14,
		RSIOversold:         30,
		RSIOverbought:       70,
		ADXPeriod:           14,
		ADXTrendThreshold:   25,
		ADXRangeThreshold:   20,
		ATRPeriod:           14,
		ATRStopLossMult:     1.5,
		ATRTakeProfitMult:   2.5,
		BreakoutLookback:    20,
		BreakoutMinWidthATR: 1.0,
	}
}

// ApplyJSON overlays a JSON-encoded subset of parameters onto p.
// An empty document is a no-op.
func (p *Parameters) ApplyJSON(doc string) error {
	if doc == "" {
		return nil
	}
	return json.Unmarshal([]byte(doc), p)
}

// Validate rejects parameter combinations that can never produce a decision.
func (p Parameters) Validate() error {
	switch {
	case p.SMAShortPeriod <= 0 || p.SMALongPeriod <= 0:
		return errInvalid("sma periods must be positive")
	case p.SMAShortPeriod >= p.SMALongPeriod:
		return errInvalid("sma short period must be below long period")
	case p.BollingerPeriod <= 0 || p.BollingerStdDev <= 0:
		return errInvalid("bollinger period and stddev multiplier must be positive")
	case p.RSIPeriod <= 0:
		return errInvalid("rsi period must be positive")
	case p.RSIOversold >= p.RSIOverbought:
		return errInvalid("rsi oversold level must be below overbought")
	case p.ADXPeriod <= 0:
		return errInvalid("adx period must be positive")
	case p.ADXRangeThreshold > p.ADXTrendThreshold:
		return errInvalid("adx range threshold must not exceed trend threshold")
	case p.ATRPeriod <= 0:
		return errInvalid("atr period must be positive")
	case p.BreakoutLookback <= 0:
		return errInvalid("breakout lookback must be positive")
	}
	return nil
}

type errInvalid string

func (e errInvalid) Error() string { return "invalid strategy parameters: " + string(e) }
