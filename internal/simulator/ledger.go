package simulator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

const epsilon = 1e-9

// OrderStatus is the lifecycle of a paper order.
type OrderStatus string

const (
	OrderOpen     OrderStatus = "open"
	OrderFilled   OrderStatus = "filled"
	OrderCanceled OrderStatus = "canceled"
)

// Side of a paper order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Order is a resting paper limit order.
type Order struct {
	ID        string
	AssetID   string
	Side      Side
	Price     float64
	Size      float64
	Status    OrderStatus
	CreatedAt time.Time
	FilledAt  time.Time
}

// Quote is a top-of-book pair. Zero means no quote.
type Quote struct {
	Bid, Ask float64
}

func (q Quote) ok() bool { return q.Bid > 0 && q.Ask > 0 }

func (q Quote) mid() float64 { return (q.Bid + q.Ask) / 2 }

// Ledger is the paper account: cash, inventory at average cost, realized
// PnL and win/loss counts. Every time a holding goes back to zero the trade
// counter advances; that counter is what consoles see as trade_seq.
type Ledger struct {
	fillDelay time.Duration
	tick      float64

	cash     float64
	inv      map[string]float64
	avgCost  map[string]float64
	realized float64
	wins     int
	losses   int
	trades   int

	orders map[string]*Order
	nextID int
}

// NewLedger creates a ledger funded with cash.
func NewLedger(cash float64, fillDelay time.Duration, tick float64) *Ledger {
	return &Ledger{
		fillDelay: fillDelay,
		tick:      tick,
		cash:      cash,
		inv:       make(map[string]float64),
		avgCost:   make(map[string]float64),
		orders:    make(map[string]*Order),
	}
}

// Place rests a limit order and returns its id.
func (l *Ledger) Place(assetID string, side Side, price, size float64, now time.Time) string {
	l.nextID++
	id := fmt.Sprintf("p%06d", l.nextID)
	l.orders[id] = &Order{
		ID:        id,
		AssetID:   assetID,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    OrderOpen,
		CreatedAt: now,
	}
	return id
}

// Cancel cancels an open order. Unknown or settled orders are ignored.
func (l *Ledger) Cancel(id string) {
	if o, ok := l.orders[id]; ok && o.Status == OrderOpen {
		o.Status = OrderCanceled
	}
}

// CancelAsset cancels every open order on assetID.
func (l *Ledger) CancelAsset(assetID string) {
	for _, o := range l.orders {
		if o.AssetID == assetID && o.Status == OrderOpen {
			o.Status = OrderCanceled
		}
	}
}

// CancelAll cancels every open order.
func (l *Ledger) CancelAll() {
	for _, o := range l.orders {
		if o.Status == OrderOpen {
			o.Status = OrderCanceled
		}
	}
}

// Order returns a copy of the order with id.
func (l *Ledger) Order(id string) (Order, bool) {
	o, ok := l.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Fill matches open orders older than the fill delay against book. Buys
// fill when resting at the bid and cash suffices; sells fill once the bid
// reaches the limit.
func (l *Ledger) Fill(book map[string]Quote, now time.Time) {
	for _, o := range l.orders {
		if o.Status != OrderOpen || now.Sub(o.CreatedAt) < l.fillDelay {
			continue
		}
		q, ok := book[o.AssetID]
		if !ok || !q.ok() {
			continue
		}

		switch o.Side {
		case Buy:
			if math.Abs(o.Price-q.Bid) > l.tick/2 {
				continue
			}
			cost := o.Price * o.Size
			if cost > l.cash+epsilon {
				continue
			}
			l.cash -= cost
			prev := l.inv[o.AssetID]
			qty := prev + o.Size
			l.avgCost[o.AssetID] = (prev*l.avgCost[o.AssetID] + o.Size*o.Price) / qty
			l.inv[o.AssetID] = qty
			l.markFilled(o, now)
		case Sell:
			if q.Bid < o.Price-epsilon {
				continue
			}
			if l.sell(o.AssetID, o.Price, o.Size) > 0 {
				l.markFilled(o, now)
			}
		}
	}
}

// SellAt sells up to size of assetID immediately at price and returns the
// quantity sold.
func (l *Ledger) SellAt(assetID string, price, size float64) float64 {
	return l.sell(assetID, price, size)
}

// Liquidate sells the whole holding of assetID at price after cancelling
// its open orders. It returns domain.ErrNotFound when nothing is held.
func (l *Ledger) Liquidate(assetID string, price float64) error {
	qty := l.inv[assetID]
	if qty <= epsilon {
		return fmt.Errorf("simulator: position %s: %w", assetID, domain.ErrNotFound)
	}
	l.CancelAsset(assetID)
	l.sell(assetID, price, qty)
	return nil
}

func (l *Ledger) sell(assetID string, price, size float64) float64 {
	have := l.inv[assetID]
	qty := math.Min(have, size)
	if qty <= 0 {
		return 0
	}

	pnl := qty * (price - l.avgCost[assetID])
	l.realized += pnl
	switch {
	case pnl > epsilon:
		l.wins++
	case pnl < -epsilon:
		l.losses++
	}

	l.cash += price * qty
	left := have - qty
	if left <= 1e-12 {
		delete(l.inv, assetID)
		delete(l.avgCost, assetID)
		l.trades++
	} else {
		l.inv[assetID] = left
	}
	return qty
}

func (l *Ledger) markFilled(o *Order, now time.Time) {
	o.Status = OrderFilled
	o.FilledAt = now
}

// Holding returns the shares held in assetID.
func (l *Ledger) Holding(assetID string) float64 {
	return l.inv[assetID]
}

// Held lists the asset ids with non-zero inventory, sorted.
func (l *Ledger) Held() []string {
	ids := make([]string, 0, len(l.inv))
	for id := range l.inv {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equity is cash plus inventory marked to mid. Holdings without a quote are
// left out.
func (l *Ledger) Equity(book map[string]Quote) float64 {
	eq := l.cash
	for id, qty := range l.inv {
		if q, ok := book[id]; ok && q.ok() {
			eq += qty * q.mid()
		}
	}
	return eq
}

// Unrealized is the mark-to-mid PnL of current holdings.
func (l *Ledger) Unrealized(book map[string]Quote) float64 {
	var u float64
	for id, qty := range l.inv {
		if q, ok := book[id]; ok && q.ok() && qty > 0 {
			u += qty * (q.mid() - l.avgCost[id])
		}
	}
	return u
}

// Trades is the number of holdings closed so far.
func (l *Ledger) Trades() int { return l.trades }

func (l *Ledger) pnl(book map[string]Quote) domain.PnL {
	u := l.Unrealized(book)
	return domain.PnL{
		Total:      domain.Some(l.realized + u),
		Realized:   domain.Some(l.realized),
		Unrealized: domain.Some(u),
	}
}

func (l *Ledger) stats() domain.Stats {
	s := domain.Stats{
		Wins:   domain.Some(float64(l.wins)),
		Losses: domain.Some(float64(l.losses)),
	}
	if n := l.wins + l.losses; n > 0 {
		s.Winrate = domain.Some(float64(l.wins) / float64(n))
	}
	return s
}

func (l *Ledger) positions() []domain.Position {
	out := make([]domain.Position, 0, len(l.inv))
	for _, id := range l.Held() {
		out = append(out, domain.Position{
			AssetID: id,
			Shares:  domain.Some(l.inv[id]),
			AvgPx:   domain.Some(l.avgCost[id]),
		})
	}
	return out
}

// openOrders lists resting orders, oldest first.
func (l *Ledger) openOrders(now time.Time) []domain.Order {
	open := make([]*Order, 0)
	for _, o := range l.orders {
		if o.Status == OrderOpen {
			open = append(open, o)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].CreatedAt.Before(open[j].CreatedAt)
		}
		return open[i].ID < open[j].ID
	})

	out := make([]domain.Order, 0, len(open))
	for _, o := range open {
		out = append(out, domain.Order{
			ID:      o.ID,
			AssetID: o.AssetID,
			Side:    string(o.Side),
			Price:   domain.Some(o.Price),
			Shares:  domain.Some(o.Size),
			AgeSec:  domain.Some(math.Floor(now.Sub(o.CreatedAt).Seconds())),
		})
	}
	return out
}

// prune drops settled orders so the map does not grow without bound.
func (l *Ledger) prune(keep map[string]bool) {
	for id, o := range l.orders {
		if o.Status != OrderOpen && !keep[id] {
			delete(l.orders, id)
		}
	}
}
