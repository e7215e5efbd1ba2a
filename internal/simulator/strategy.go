package simulator

import (
	"math"
	"time"
)

// Rules controls the paper scalper: maker entry at the bid inside a price
// band, then a take-profit resting sell and a stop-loss exit at the bid.
type Rules struct {
	PriceMin    float64
	PriceMax    float64
	MaxSpread   float64
	EntryTTL    time.Duration
	MinTTE      time.Duration
	TakeProfit  float64
	StopLoss    float64
	BetStart    float64
	BetStep     float64
	BetMin      float64
	BetMax      float64
	StakeCapUSD float64
}

// DefaultRules returns rules that trade often enough on the random walk to
// exercise the console.
func DefaultRules() Rules {
	return Rules{
		PriceMin:    0.30,
		PriceMax:    0.70,
		MaxSpread:   0.01,
		EntryTTL:    20 * time.Second,
		MinTTE:      30 * time.Second,
		TakeProfit:  0.10,
		StopLoss:    0.10,
		BetStart:    0.50,
		BetStep:     0.01,
		BetMin:      0.01,
		BetMax:      0.50,
		StakeCapUSD: 1000,
	}
}

// sizer adjusts the bet fraction after each closed trade: down a step after
// a win, up a step after a loss.
type sizer struct {
	frac float64
	r    Rules
}

func (s *sizer) stake(balance float64) float64 {
	return math.Min(balance*s.frac, s.r.StakeCapUSD)
}

func (s *sizer) closed(won bool) {
	if won {
		s.frac = math.Max(s.r.BetMin, s.frac-s.r.BetStep)
	} else {
		s.frac = math.Min(s.r.BetMax, s.frac+s.r.BetStep)
	}
}

type position struct {
	assetID string
	qty     float64
	entryID string
	entryAt time.Time
	filled  bool
	fillPx  float64
	tp, sl  float64
	tpID    string
}

// scalper holds at most one position at a time.
type scalper struct {
	rules Rules
	sizer sizer
	tick  float64
	pos   *position
}

func newScalper(r Rules, tick float64) *scalper {
	return &scalper{rules: r, sizer: sizer{frac: r.BetStart, r: r}, tick: tick}
}

func (s *scalper) spreadOK(q Quote) bool {
	return q.ok() && q.Ask >= q.Bid && q.Ask-q.Bid <= s.rules.MaxSpread+epsilon
}

func (s *scalper) inBand(px float64) bool {
	return px >= s.rules.PriceMin-epsilon && px <= s.rules.PriceMax+epsilon
}

// step runs one decision on the current book. It must run after
// Ledger.Fill for the same tick.
func (s *scalper) step(now time.Time, m *market, l *Ledger) {
	yes, no := m.quotes()
	book := map[string]Quote{m.yes: yes, m.no: no}

	if s.pos == nil {
		if m.tte(now) < s.rules.MinTTE {
			return
		}
		asset, px := s.pickEntry(m, yes, no)
		if asset == "" {
			return
		}
		qty := s.sizer.stake(l.Equity(book)) / px
		if qty <= 0 {
			return
		}
		s.pos = &position{
			assetID: asset,
			qty:     qty,
			entryID: l.Place(asset, Buy, px, qty, now),
			entryAt: now,
		}
		return
	}

	p := s.pos
	if !p.filled {
		o, _ := l.Order(p.entryID)
		switch {
		case o.Status == OrderFilled:
			p.filled = true
			p.fillPx = o.Price
			p.tp = roundTick(o.Price*(1+s.rules.TakeProfit), s.tick)
			p.sl = roundTick(o.Price*(1-s.rules.StopLoss), s.tick)
			p.tpID = l.Place(p.assetID, Sell, p.tp, p.qty, now)
		case o.Status != OrderOpen || now.Sub(p.entryAt) > s.rules.EntryTTL:
			l.Cancel(p.entryID)
			s.pos = nil
		}
		return
	}

	// Closed from outside (operator close or settlement).
	if l.Holding(p.assetID) <= epsilon {
		tp, _ := l.Order(p.tpID)
		if tp.Status == OrderFilled {
			s.sizer.closed(true)
		}
		l.Cancel(p.tpID)
		s.pos = nil
		return
	}

	q := book[p.assetID]
	if q.ok() && q.Bid <= p.sl {
		l.Cancel(p.tpID)
		l.SellAt(p.assetID, q.Bid, p.qty)
		s.sizer.closed(false)
		s.pos = nil
	}
}

func (s *scalper) pickEntry(m *market, yes, no Quote) (string, float64) {
	yesOK := s.spreadOK(yes) && s.inBand(yes.Bid)
	noOK := s.spreadOK(no) && s.inBand(no.Bid)
	switch {
	case yesOK && noOK:
		mid := (s.rules.PriceMin + s.rules.PriceMax) / 2
		if math.Abs(yes.Bid-mid) <= math.Abs(no.Bid-mid) {
			return m.yes, yes.Bid
		}
		return m.no, no.Bid
	case yesOK:
		return m.yes, yes.Bid
	case noOK:
		return m.no, no.Bid
	default:
		return "", 0
	}
}

// reset forgets the tracked position, e.g. after stop or rollover.
func (s *scalper) reset(l *Ledger) {
	if s.pos != nil {
		l.Cancel(s.pos.entryID)
		l.Cancel(s.pos.tpID)
	}
	s.pos = nil
}

func (s *scalper) betFrac() float64 { return s.sizer.frac }

// pinned returns order ids the scalper still needs to look up.
func (s *scalper) pinned() map[string]bool {
	keep := map[string]bool{}
	if s.pos != nil {
		keep[s.pos.entryID] = true
		keep[s.pos.tpID] = true
	}
	return keep
}
