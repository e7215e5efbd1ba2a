package simulator

import (
	"testing"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestBuyFillsAtBidAfterDelay(t *testing.T) {
	l := NewLedger(100, time.Second, 0.01)
	id := l.Place("yes", Buy, 0.50, 10, t0)
	book := map[string]Quote{"yes": {Bid: 0.50, Ask: 0.51}}

	l.Fill(book, t0.Add(500*time.Millisecond))
	o, _ := l.Order(id)
	assert.Equal(t, OrderOpen, o.Status, "fill delay not elapsed")

	l.Fill(book, t0.Add(time.Second))
	o, _ = l.Order(id)
	assert.Equal(t, OrderFilled, o.Status)
	assert.InDelta(t, 95, l.cash, 1e-9)
	assert.InDelta(t, 10, l.Holding("yes"), 1e-9)
	assert.InDelta(t, 100.05, l.Equity(book), 1e-9)
	assert.InDelta(t, 0.05, l.Unrealized(book), 1e-9)
}

func TestBuyAwayFromBidDoesNotFill(t *testing.T) {
	l := NewLedger(100, 0, 0.01)
	id := l.Place("yes", Buy, 0.45, 10, t0)
	l.Fill(map[string]Quote{"yes": {Bid: 0.50, Ask: 0.51}}, t0)
	o, _ := l.Order(id)
	assert.Equal(t, OrderOpen, o.Status)
}

func TestInsufficientCashDoesNotFill(t *testing.T) {
	l := NewLedger(1, 0, 0.01)
	id := l.Place("yes", Buy, 0.50, 10, t0)
	l.Fill(map[string]Quote{"yes": {Bid: 0.50, Ask: 0.51}}, t0)
	o, _ := l.Order(id)
	assert.Equal(t, OrderOpen, o.Status)
}

func TestSellRealizesAndCountsTrades(t *testing.T) {
	l := NewLedger(100, 0, 0.01)
	l.Place("yes", Buy, 0.50, 10, t0)
	l.Fill(map[string]Quote{"yes": {Bid: 0.50, Ask: 0.51}}, t0)

	assert.Equal(t, 4.0, l.SellAt("yes", 0.60, 4))
	assert.Equal(t, 0, l.Trades(), "partial close is not a trade boundary")
	assert.Equal(t, 1, l.wins)

	l.Place("yes", Sell, 0.55, 6, t0)
	l.Fill(map[string]Quote{"yes": {Bid: 0.56, Ask: 0.57}}, t0)

	assert.Equal(t, 1, l.Trades())
	assert.Equal(t, 2, l.wins)
	assert.InDelta(t, 0.4+0.3, l.realized, 1e-9)
	assert.Empty(t, l.Held())

	st := l.stats()
	assert.Equal(t, domain.Some(1), st.Winrate)
}

func TestLiquidate(t *testing.T) {
	l := NewLedger(100, 0, 0.01)
	require.ErrorIs(t, l.Liquidate("none", 0.5), domain.ErrNotFound)

	l.Place("no", Buy, 0.40, 10, t0)
	l.Fill(map[string]Quote{"no": {Bid: 0.40, Ask: 0.41}}, t0)
	tp := l.Place("no", Sell, 0.50, 10, t0)

	require.NoError(t, l.Liquidate("no", 0.30))
	o, _ := l.Order(tp)
	assert.Equal(t, OrderCanceled, o.Status)
	assert.Equal(t, 1, l.losses)
	assert.Equal(t, 1, l.Trades())
	assert.InDelta(t, 99, l.cash, 1e-9)
}

func TestOpenOrdersOldestFirst(t *testing.T) {
	l := NewLedger(100, time.Hour, 0.01)
	l.Place("a", Buy, 0.5, 1, t0.Add(10*time.Second))
	l.Place("b", Buy, 0.5, 1, t0)

	orders := l.openOrders(t0.Add(30 * time.Second))
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].AssetID)
	assert.Equal(t, domain.Some(30), orders[0].AgeSec)
	assert.Equal(t, domain.Some(20), orders[1].AgeSec)
}

func TestRoundTick(t *testing.T) {
	assert.Equal(t, 0.48, roundTick(0.4812, 0.01))
	assert.Equal(t, 0.01, roundTick(-0.2, 0.01))
	assert.Equal(t, 0.99, roundTick(1.3, 0.01))
}
