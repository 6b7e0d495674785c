// Package finance implements an agent answering currency and crypto price
// queries from public APIs (ExchangeRate-API, CoinGecko). Live results are
// cached for a few minutes; upstream failures fall back to simulated data.
package finance

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/httpx"
	"github.com/hupe1980/mcpagent/internal/util"
	"github.com/hupe1980/mcpagent/logging"
)

// Message types understood by Handler.
const (
	TypePing          = "ping"
	TypeExchangeRate  = "exchange_rate"
	TypeCryptoPrice   = "crypto_price"
	TypeMultiRates    = "multi_exchange_rates"
	TypeTopCryptos    = "top_cryptos"
	TypeMarketSummary = "market_summary"
)

const (
	// DefaultExchangeRateURL is the ExchangeRate-API v4 endpoint.
	DefaultExchangeRateURL = "https://api.exchangerate-api.com/v4/latest"
	// DefaultCryptoURL is the CoinGecko v3 endpoint.
	DefaultCryptoURL = "https://api.coingecko.com/api/v3"

	// SourceExchangeRate marks ExchangeRate-API data.
	SourceExchangeRate = "ExchangeRate-API"
	// SourceCoinGecko marks CoinGecko data.
	SourceCoinGecko = "CoinGecko"
	// SourceSimulated marks generated data.
	SourceSimulated = "simulated"
	// SourceMixed marks a summary combining live and simulated parts.
	SourceMixed = "mixed"

	// DefaultCacheTTL bounds the age of cached live quotes.
	DefaultCacheTTL = 5 * time.Minute

	cacheSize = 256
)

var payloadSchema = util.MustCompileSchema("finance.json", `{
	"type": "object",
	"properties": {
		"base": {"type": "string", "pattern": "^[A-Za-z]{3}$"},
		"target": {"type": "string", "pattern": "^[A-Za-z]{3}$"},
		"targets": {"type": "array", "items": {"type": "string", "pattern": "^[A-Za-z]{3}$"}, "maxItems": 20},
		"crypto": {"type": "string", "minLength": 1},
		"currency": {"type": "string", "minLength": 1},
		"limit": {"type": "integer", "minimum": 1, "maximum": 100}
	}
}`)

var (
	simulatedRates = map[string]float64{
		"USD_BRL": 5.20,
		"EUR_BRL": 5.80,
		"GBP_BRL": 6.50,
		"USD_EUR": 0.90,
		"USD_GBP": 0.80,
	}
	simulatedPrices = map[string]float64{
		"bitcoin":  200000,
		"ethereum": 12000,
		"cardano":  2.5,
		"solana":   150,
		"dogecoin": 0.40,
	}
	popularCoins = []string{
		"Bitcoin", "Ethereum", "Cardano", "Solana", "Dogecoin",
		"Polkadot", "Chainlink", "Litecoin", "XRP", "Polygon",
	}
)

// Options configures the finance handler.
type Options struct {
	// Offline disables upstream calls; every answer is simulated.
	Offline bool
	// ExchangeRateURL overrides DefaultExchangeRateURL.
	ExchangeRateURL string
	// CryptoURL overrides DefaultCryptoURL.
	CryptoURL string
	// CacheTTL overrides DefaultCacheTTL.
	CacheTTL time.Duration
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// Logger for upstream failures and fallbacks.
	Logger logging.Logger
	// Rand drives simulated data.
	Rand *rand.Rand
	// Now returns the current time.
	Now func() time.Time
}

// Handler serves finance messages. Not safe for concurrent use.
type Handler struct {
	opts   Options
	client *httpx.Client
	cache  *expirable.LRU[string, any]
	logger logging.Logger
	rnd    *rand.Rand
	now    func() time.Time
}

// New creates a finance handler.
func New(optFns ...func(o *Options)) *Handler {
	opts := Options{
		ExchangeRateURL: DefaultExchangeRateURL,
		CryptoURL:       DefaultCryptoURL,
		CacheTTL:        DefaultCacheTTL,
		Logger:          logging.NoOpLogger{},
		Now:             time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	rnd := opts.Rand
	if rnd == nil {
		seed := uint64(opts.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}

	return &Handler{
		opts:   opts,
		logger: opts.Logger,
		rnd:    rnd,
		now:    opts.Now,
	}
}

// CustomInitialize creates the upstream client and the quote cache.
func (h *Handler) CustomInitialize(_ context.Context) error {
	h.client = httpx.New("finance", func(o *httpx.Options) {
		o.HTTPClient = h.opts.HTTPClient
		o.Logger = h.logger
	})
	h.cache = expirable.NewLRU[string, any](cacheSize, nil, h.opts.CacheTTL)

	if h.opts.Offline {
		h.logger.Warn("Offline mode, serving simulated finance data")
	}

	return nil
}

// ProcessCustomMessage implements core.Handler.
func (h *Handler) ProcessCustomMessage(ctx context.Context, msg core.Message) (any, error) {
	if h.client == nil {
		return nil, errors.New("finance handler not initialized")
	}

	if msg.Type() != TypePing {
		if err := payloadSchema.Validate(msg.Payload); err != nil {
			return nil, err
		}
	}

	switch msg.Type() {
	case TypePing:
		return map[string]any{"response": "pong", "agent": "finance", "status": "online"}, nil
	case TypeExchangeRate:
		return h.exchangeRate(ctx, msg.String("base", "USD"), msg.String("target", "BRL")), nil
	case TypeCryptoPrice:
		return h.cryptoPrice(ctx, msg.String("crypto", "bitcoin"), msg.String("currency", "brl")), nil
	case TypeMultiRates:
		return h.multiRates(ctx, msg.String("base", "USD"), msg.Strings("targets", []string{"BRL", "EUR", "GBP"}))
	case TypeTopCryptos:
		return h.topCryptos(ctx, msg.Int("limit", 10), msg.String("currency", "brl")), nil
	case TypeMarketSummary:
		return h.marketSummary(ctx), nil
	default:
		return nil, &core.UnsupportedTypeError{MessageType: msg.MessageType}
	}
}

// Shutdown purges the cache and releases pooled connections.
func (h *Handler) Shutdown(_ context.Context) error {
	if h.cache != nil {
		h.cache.Purge()
	}
	if h.client != nil {
		h.client.CloseIdleConnections()
	}
	h.logger.Info("Finance agent stopped")
	return nil
}

func (h *Handler) exchangeRate(ctx context.Context, base, target string) Rate {
	base, target = strings.ToUpper(base), strings.ToUpper(target)
	if h.opts.Offline {
		return h.simulatedRate(base, target)
	}

	table, err := h.rateTable(ctx, base)
	if err != nil {
		h.logger.Error("Exchange rate query failed, using simulated data", "pair", base+"/"+target, "error", err.Error())
		return h.simulatedRate(base, target)
	}

	value, ok := table.Rates[target]
	if !ok {
		h.logger.Warn("Target currency missing upstream, using simulated data", "pair", base+"/"+target)
		return h.simulatedRate(base, target)
	}

	return Rate{
		Pair:      base + "/" + target,
		Rate:      value,
		Base:      base,
		Target:    target,
		Timestamp: table.TimeLastUpdated,
		Source:    SourceExchangeRate,
	}
}

// rateTable returns every upstream rate for base; one cached call serves all targets.
func (h *Handler) rateTable(ctx context.Context, base string) (exchangeRateResponse, error) {
	key := "rates:" + base
	if v, ok := h.cache.Get(key); ok {
		return v.(exchangeRateResponse), nil
	}

	var raw exchangeRateResponse
	if err := h.client.GetJSON(ctx, h.opts.ExchangeRateURL+"/"+url.PathEscape(base), nil, &raw); err != nil {
		return exchangeRateResponse{}, err
	}
	h.cache.Add(key, raw)

	return raw, nil
}

func (h *Handler) multiRates(ctx context.Context, base string, targets []string) (Rates, error) {
	out := Rates{
		Base:      strings.ToUpper(base),
		Rates:     make(map[string]Rate, len(targets)),
		Timestamp: h.now().Unix(),
	}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return Rates{}, err
		}
		out.Rates[strings.ToUpper(t)] = h.exchangeRate(ctx, base, t)
	}
	return out, nil
}

func (h *Handler) cryptoPrice(ctx context.Context, crypto, currency string) CryptoPrice {
	crypto, currency = strings.ToLower(crypto), strings.ToLower(currency)
	key := "crypto:" + crypto + ":" + currency

	if v, ok := h.cache.Get(key); ok {
		return v.(CryptoPrice)
	}
	if h.opts.Offline {
		return h.simulatedCrypto(crypto, currency)
	}

	q := url.Values{
		"ids":                 {crypto},
		"vs_currencies":       {currency},
		"include_24hr_change": {"true"},
		"include_24hr_vol":    {"true"},
	}
	var raw map[string]map[string]float64
	if err := h.client.GetJSON(ctx, h.opts.CryptoURL+"/simple/price", q, &raw); err != nil {
		h.logger.Error("Crypto price query failed, using simulated data", "crypto", crypto, "error", err.Error())
		return h.simulatedCrypto(crypto, currency)
	}

	fields, ok := raw[crypto]
	price, hasPrice := fields[currency]
	if !ok || !hasPrice {
		h.logger.Warn("Crypto missing upstream, using simulated data", "crypto", crypto, "currency", currency)
		return h.simulatedCrypto(crypto, currency)
	}

	p := CryptoPrice{
		Crypto:    strings.ToUpper(crypto),
		Currency:  strings.ToUpper(currency),
		Price:     price,
		Change24h: round(fields[currency+"_24h_change"], 2),
		Volume24h: fields[currency+"_24h_vol"],
		Timestamp: h.now().Unix(),
		Source:    SourceCoinGecko,
	}
	h.cache.Add(key, p)

	return p
}

func (h *Handler) topCryptos(ctx context.Context, limit int, currency string) TopCryptos {
	currency = strings.ToLower(currency)
	key := "top:" + strconv.Itoa(limit) + ":" + currency

	if v, ok := h.cache.Get(key); ok {
		return v.(TopCryptos)
	}
	if h.opts.Offline {
		return h.simulatedTop(limit, currency)
	}

	q := url.Values{
		"vs_currency": {currency},
		"order":       {"market_cap_desc"},
		"per_page":    {strconv.Itoa(limit)},
		"page":        {"1"},
	}
	var raw []coinMarket
	if err := h.client.GetJSON(ctx, h.opts.CryptoURL+"/coins/markets", q, &raw); err != nil {
		h.logger.Error("Top cryptos query failed, using simulated data", "error", err.Error())
		return h.simulatedTop(limit, currency)
	}

	out := TopCryptos{
		Currency:  strings.ToUpper(currency),
		Limit:     limit,
		Timestamp: h.now().Unix(),
		Source:    SourceCoinGecko,
	}
	for i, c := range raw {
		if i >= limit {
			break
		}
		rank := c.MarketCapRank
		if rank == 0 {
			rank = i + 1
		}
		out.Coins = append(out.Coins, Coin{
			Rank:      rank,
			Name:      c.Name,
			Symbol:    strings.ToUpper(c.Symbol),
			Price:     c.CurrentPrice,
			MarketCap: c.MarketCap,
			Change24h: round(c.Change24h, 2),
			Volume24h: c.TotalVolume,
		})
	}
	h.cache.Add(key, out)

	return out
}

func (h *Handler) marketSummary(ctx context.Context) MarketSummary {
	now := h.now()
	usd := h.exchangeRate(ctx, "USD", "BRL")
	eur := h.exchangeRate(ctx, "EUR", "BRL")
	btc := h.cryptoPrice(ctx, "bitcoin", "brl")
	eth := h.cryptoPrice(ctx, "ethereum", "brl")

	simulated := 0
	for _, s := range []string{usd.Source, eur.Source, btc.Source, eth.Source} {
		if s == SourceSimulated {
			simulated++
		}
	}
	source := SourceExchangeRate + "+" + SourceCoinGecko
	switch simulated {
	case 0:
	case 4:
		source = SourceSimulated
	default:
		source = SourceMixed
	}

	return MarketSummary{
		Currencies: map[string]float64{
			usd.Pair: usd.Rate,
			eur.Pair: eur.Rate,
		},
		Cryptos: map[string]Quote{
			"Bitcoin":  {Price: btc.Price, Change24h: btc.Change24h},
			"Ethereum": {Price: eth.Price, Change24h: eth.Change24h},
		},
		Timestamp:   now.Unix(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Source:      source,
	}
}

func (h *Handler) simulatedRate(base, target string) Rate {
	var rate float64
	if r, ok := simulatedRates[base+"_"+target]; ok {
		rate = r
	} else if r, ok := simulatedRates[target+"_"+base]; ok {
		rate = 1 / r
	} else if base == target {
		rate = 1
	} else {
		rate = h.uniform(0.5, 10)
	}
	rate *= 1 + h.uniform(-0.05, 0.05)

	return Rate{
		Pair:      base + "/" + target,
		Rate:      round(rate, 4),
		Base:      base,
		Target:    target,
		Timestamp: h.now().Unix(),
		Source:    SourceSimulated,
	}
}

func (h *Handler) simulatedCrypto(crypto, currency string) CryptoPrice {
	price, ok := simulatedPrices[crypto]
	if !ok {
		price = h.uniform(1, 1000)
	}
	change := h.uniform(-10, 10)

	return CryptoPrice{
		Crypto:    strings.ToUpper(crypto),
		Currency:  strings.ToUpper(currency),
		Price:     round(price*(1+change/100), 2),
		Change24h: round(change, 2),
		Volume24h: float64(1_000_000 + h.rnd.IntN(49_000_000)),
		Timestamp: h.now().Unix(),
		Source:    SourceSimulated,
	}
}

func (h *Handler) simulatedTop(limit int, currency string) TopCryptos {
	n := min(limit, len(popularCoins))
	out := TopCryptos{
		Coins:     make([]Coin, 0, n),
		Currency:  strings.ToUpper(currency),
		Limit:     limit,
		Timestamp: h.now().Unix(),
		Source:    SourceSimulated,
	}
	for i, name := range popularCoins[:n] {
		out.Coins = append(out.Coins, Coin{
			Rank:      i + 1,
			Name:      name,
			Symbol:    strings.ToUpper(name[:3]),
			Price:     round(h.uniform(0.1, 300000), 2),
			MarketCap: float64(1_000_000_000 + h.rnd.Int64N(999_000_000_000)),
			Change24h: round(h.uniform(-15, 15), 2),
			Volume24h: float64(100_000_000 + h.rnd.Int64N(9_900_000_000)),
		})
	}
	return out
}

func (h *Handler) uniform(lo, hi float64) float64 {
	return lo + h.rnd.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

var (
	_ core.Handler    = (*Handler)(nil)
	_ core.Shutdowner = (*Handler)(nil)
)
