package market

import "time"

// Symbol is the latest known quote for one ticker.
type Symbol struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	HighPrice     float64   `json:"high_price"`
	LowPrice      float64   `json:"low_price"`
	OpenPrice     float64   `json:"open_price"`
	PreviousClose float64   `json:"previous_close"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Up reports whether the price moved up since the previous close.
func (s Symbol) Up() bool {
	return s.Change >= 0
}
