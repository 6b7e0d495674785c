package finance

// Rate is one currency pair quote.
type Rate struct {
	Pair      string  `json:"pair"`
	Rate      float64 `json:"rate"`
	Base      string  `json:"base"`
	Target    string  `json:"target"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source"`
}

// Rates groups several quotes against one base currency.
type Rates struct {
	Base      string          `json:"base"`
	Rates     map[string]Rate `json:"rates"`
	Timestamp int64           `json:"timestamp"`
}

// CryptoPrice is the spot price of one crypto asset.
type CryptoPrice struct {
	Crypto    string  `json:"crypto"`
	Currency  string  `json:"currency"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Volume24h float64 `json:"volume_24h"`
	Timestamp int64   `json:"timestamp"`
	Source    string  `json:"source"`
}

// Coin is one entry of a market-cap ranking.
type Coin struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
	Change24h float64 `json:"change_24h"`
	Volume24h float64 `json:"volume_24h"`
}

// TopCryptos is a market-cap ranking.
type TopCryptos struct {
	Coins     []Coin `json:"coins"`
	Currency  string `json:"currency"`
	Limit     int    `json:"limit"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// Quote is a compact price/change pair used in summaries.
type Quote struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

// MarketSummary is a snapshot of headline currency and crypto prices.
type MarketSummary struct {
	Currencies  map[string]float64 `json:"currencies"`
	Cryptos     map[string]Quote   `json:"cryptos"`
	Timestamp   int64              `json:"timestamp"`
	GeneratedAt string             `json:"generated_at"`
	Source      string             `json:"source"`
}

type exchangeRateResponse struct {
	Base            string             `json:"base"`
	Rates           map[string]float64 `json:"rates"`
	TimeLastUpdated int64              `json:"time_last_updated"`
}

type coinMarket struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	Change24h     float64 `json:"price_change_percentage_24h"`
	TotalVolume   float64 `json:"total_volume"`
}
