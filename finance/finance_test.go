package finance

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/mcpagent/agent"
	"github.com/hupe1980/mcpagent/core"
	"github.com/hupe1980/mcpagent/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type upstream struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func newUpstream(t *testing.T, status int) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/rates/USD":
			_, _ = w.Write([]byte(`{"base": "USD", "rates": {"BRL": 5.42, "EUR": 0.92}, "time_last_updated": 1772366400}`))
		case "/rates/EUR":
			_, _ = w.Write([]byte(`{"base": "EUR", "rates": {"BRL": 5.91}, "time_last_updated": 1772366400}`))
		case "/crypto/simple/price":
			assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
			id := r.URL.Query().Get("ids")
			_, _ = w.Write([]byte(`{"` + id + `": {"brl": 350000.5, "brl_24h_change": 1.23456, "brl_24h_vol": 9000000}}`))
		case "/crypto/coins/markets":
			assert.Equal(t, "2", r.URL.Query().Get("per_page"))
			_, _ = w.Write([]byte(`[
				{"name": "Bitcoin", "symbol": "btc", "current_price": 350000, "market_cap": 7e12, "market_cap_rank": 1, "price_change_percentage_24h": 2.345, "total_volume": 1e11},
				{"name": "Ethereum", "symbol": "eth", "current_price": 18000, "market_cap": 2e12, "market_cap_rank": 2, "price_change_percentage_24h": -1.5, "total_volume": 5e10}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newHandler(t *testing.T, optFns ...func(o *Options)) *Handler {
	t.Helper()
	base := func(o *Options) {
		o.Rand = rand.New(rand.NewPCG(1, 2))
		o.Now = func() time.Time { return fixedNow }
	}
	h := New(append([]func(o *Options){base}, optFns...)...)
	require.NoError(t, h.CustomInitialize(context.Background()))
	return h
}

func live(u *upstream) func(o *Options) {
	return func(o *Options) {
		o.ExchangeRateURL = u.srv.URL + "/rates"
		o.CryptoURL = u.srv.URL + "/crypto"
	}
}

func offline(o *Options) { o.Offline = true }

func process(t *testing.T, h *Handler, msg core.Message) any {
	t.Helper()
	out, err := h.ProcessCustomMessage(context.Background(), msg)
	require.NoError(t, err)
	return out
}

func TestPing(t *testing.T) {
	out := process(t, newHandler(t, offline), testutil.NewMessageBuilder("PING").Build())
	assert.Equal(t, map[string]any{"response": "pong", "agent": "finance", "status": "online"}, out)
}

func TestExchangeRateLiveIsCached(t *testing.T) {
	u := newUpstream(t, http.StatusOK)
	h := newHandler(t, live(u))

	msg := testutil.NewMessageBuilder(TypeExchangeRate).Payload("base", "usd").Payload("target", "brl").Build()
	rate := process(t, h, msg).(Rate)

	assert.Equal(t, Rate{
		Pair:      "USD/BRL",
		Rate:      5.42,
		Base:      "USD",
		Target:    "BRL",
		Timestamp: 1772366400,
		Source:    SourceExchangeRate,
	}, rate)

	again := process(t, h, msg).(Rate)
	assert.Equal(t, rate, again)
	assert.Equal(t, int32(1), u.calls.Load())
}

func TestExchangeRateCacheExpires(t *testing.T) {
	u := newUpstream(t, http.StatusOK)
	h := newHandler(t, live(u), func(o *Options) { o.CacheTTL = 10 * time.Millisecond })

	msg := testutil.NewMessageBuilder(TypeExchangeRate).Build()
	process(t, h, msg)
	time.Sleep(50 * time.Millisecond)
	process(t, h, msg)

	assert.Equal(t, int32(2), u.calls.Load())
}

func TestExchangeRateFallback(t *testing.T) {
	u := newUpstream(t, http.StatusInternalServerError)
	log := testutil.NewRecordingLogger()
	h := newHandler(t, live(u), func(o *Options) { o.Logger = log })

	rate := process(t, h, testutil.NewMessageBuilder(TypeExchangeRate).Build()).(Rate)

	assert.Equal(t, SourceSimulated, rate.Source)
	assert.Equal(t, "USD/BRL", rate.Pair)
	assert.InDelta(t, 5.20, rate.Rate, 5.20*0.05+0.001)
	assert.NotEmpty(t, log.Find("Exchange rate query failed, using simulated data"))
}

func TestExchangeRateUnknownTargetFallsBack(t *testing.T) {
	u := newUpstream(t, http.StatusOK)
	h := newHandler(t, live(u))

	rate := process(t, h, testutil.NewMessageBuilder(TypeExchangeRate).Payload("target", "JPY").Build()).(Rate)
	assert.Equal(t, SourceSimulated, rate.Source)
	assert.Equal(t, "USD/JPY", rate.Pair)
}

func TestSimulatedInverseRate(t *testing.T) {
	h := newHandler(t, offline)

	rate := process(t, h, testutil.NewMessageBuilder(TypeExchangeRate).
		Payload("base", "BRL").Payload("target", "USD").Build()).(Rate)

	assert.Equal(t, SourceSimulated, rate.Source)
	assert.InDelta(t, 1/5.20, rate.Rate, 0.02)
}

func TestMultiRates(t *testing.T) {
	u := newUpstream(t, http.StatusOK)
	h := newHandler(t, live(u))

	out := process(t, h, testutil.NewMessageBuilder(TypeMultiRates).
		Payload("targets", []any{"brl", "EUR"}).Build()).(Rates)

	assert.Equal(t, "USD", out.Base)
	require.Len(t, out.Rates, 2)
	assert.Equal(t, 5.42, out.Rates["BRL"].Rate)
	assert.Equal(t, 0.92, out.Rates["EUR"].Rate)
	assert.Equal(t, int32(1), u.calls.Load(), "second target served from the same upstream call")
}

func TestMultiRatesDefaults(t *testing.T) {
	out := process(t, newHandler(t, offline), testutil.NewMessageBuilder(TypeMultiRates).Build()).(Rates)
	assert.Len(t, out.Rates, 3)
	assert.Contains(t, out.Rates, "GBP")
}

func TestCryptoPriceLive(t *testing.T) {
	u := newUpstream(t, http.StatusOK)
	h := newHandler(t, live(u))

	p := process(t, h, testutil.NewMessageBuilder(TypeCryptoPrice).Build()).(CryptoPrice)

	assert.Equal(t, "BITCOIN", p.Crypto)
	assert.Equal(t, "BRL", p.Currency)
	assert.Equal(t, 350000.5, p.Price)
	assert.Equal(t, 1.23, p.Change24h)
	assert.Equal(t, 9000000.0, p.Volume24h)
	assert.Equal(t, fixedNow.Unix(), p.Timestamp)
	assert.Equal(t, SourceCoinGecko, p.Source)
}

func TestCryptoPriceSimulated(t *testing.T) {
	p := process(t, newHandler(t, offline), testutil.NewMessageBuilder(TypeCryptoPrice).
		Payload("crypto", "ethereum").Build()).(CryptoPrice)

	assert.Equal(t, SourceSimulated, p.Source)
	assert.InDelta(t, 12000, p.Price, 12000*0.1+1)
	assert.GreaterOrEqual(t, p.Volume24h, 1_000_000.0)
}

func TestTopCryptosLive(t *testing.T) {
	u := newUpstream(t, http.StatusOK)
	h := newHandler(t, live(u))

	out := process(t, h, testutil.NewMessageBuilder(TypeTopCryptos).Payload("limit", 2).Build()).(TopCryptos)

	require.Len(t, out.Coins, 2)
	assert.Equal(t, Coin{
		Rank:      1,
		Name:      "Bitcoin",
		Symbol:    "BTC",
		Price:     350000,
		MarketCap: 7e12,
		Change24h: 2.35,
		Volume24h: 1e11,
	}, out.Coins[0])
	assert.Equal(t, "BRL", out.Currency)
	assert.Equal(t, SourceCoinGecko, out.Source)
}

func TestTopCryptosSimulatedCapsAtKnownCoins(t *testing.T) {
	out := process(t, newHandler(t, offline), testutil.NewMessageBuilder(TypeTopCryptos).
		Payload("limit", 50).Build()).(TopCryptos)

	assert.Len(t, out.Coins, len(popularCoins))
	assert.Equal(t, 50, out.Limit)
	assert.Equal(t, "Bitcoin", out.Coins[0].Name)
	assert.Equal(t, 1, out.Coins[0].Rank)
}

func TestMarketSummary(t *testing.T) {
	t.Run("live", func(t *testing.T) {
		u := newUpstream(t, http.StatusOK)
		out := process(t, newHandler(t, live(u)), testutil.NewMessageBuilder(TypeMarketSummary).Build()).(MarketSummary)

		assert.Equal(t, 5.42, out.Currencies["USD/BRL"])
		assert.Equal(t, 5.91, out.Currencies["EUR/BRL"])
		assert.Equal(t, 350000.5, out.Cryptos["Bitcoin"].Price)
		assert.Equal(t, SourceExchangeRate+"+"+SourceCoinGecko, out.Source)
		assert.Equal(t, "2026-03-01T12:00:00Z", out.GeneratedAt)
	})

	t.Run("offline", func(t *testing.T) {
		out := process(t, newHandler(t, offline), testutil.NewMessageBuilder(TypeMarketSummary).Build()).(MarketSummary)
		assert.Equal(t, SourceSimulated, out.Source)
		assert.Len(t, out.Currencies, 2)
		assert.Len(t, out.Cryptos, 2)
	})
}

func TestPayloadValidation(t *testing.T) {
	h := newHandler(t, offline)

	tests := []struct {
		name string
		msg  core.Message
		path string
	}{
		{"bad currency code", testutil.NewMessageBuilder(TypeExchangeRate).Payload("base", "DOLLAR").Build(), "/base"},
		{"limit too large", testutil.NewMessageBuilder(TypeTopCryptos).Payload("limit", 500).Build(), "/limit"},
		{"targets not a list", testutil.NewMessageBuilder(TypeMultiRates).Payload("targets", "BRL").Build(), "/targets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ProcessCustomMessage(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestNotInitialized(t *testing.T) {
	_, err := New().ProcessCustomMessage(context.Background(), testutil.NewMessageBuilder(TypePing).Build())
	assert.EqualError(t, err, "finance handler not initialized")
}

func TestAgentIntegration(t *testing.T) {
	h := New(offline)
	a := agent.New(core.Config{AgentID: "fin-1", AgentName: "finance"}, h, func(o *agent.Options) {
		o.Logger = testutil.NewRecordingLogger()
	})
	require.NoError(t, a.Initialize(context.Background()))

	resp := a.ProcessMessage(context.Background(), a.CreateMessage(TypeExchangeRate, map[string]any{"target": "EUR"}))
	require.True(t, resp.Success)
	assert.Equal(t, "USD/EUR", resp.Data.(Rate).Pair)

	resp = a.ProcessMessage(context.Background(), a.CreateMessage("buy_stock", nil))
	assert.False(t, resp.Success)
	assert.Equal(t, "unsupported message type: buy_stock", resp.Error)
	assert.Equal(t, core.StatusError, a.Status())

	require.NoError(t, a.Shutdown(context.Background()))
}
