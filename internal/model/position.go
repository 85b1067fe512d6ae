package model

// Position represents an open holding in the virtual portfolio.
// Created on first buy, removed when shares reach zero through any sell path.
type Position struct {
	Ticker   string  `json:"ticker"`
	Shares   int64   `json:"shares"`    // whole shares, never negative
	AvgPrice float64 `json:"avg_price"` // weighted cost basis in rubles
}

// Value returns the position's market value at the given price.
func (p *Position) Value(price float64) float64 {
	return float64(p.Shares) * price
}

// ProfitPct returns unrealized profit in percent of the cost basis.
func (p *Position) ProfitPct(price float64) float64 {
	if p.AvgPrice == 0 {
		return 0
	}
	return (price - p.AvgPrice) / p.AvgPrice * 100
}
