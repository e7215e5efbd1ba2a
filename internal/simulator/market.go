package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// market is one binary up/down window with a YES and a NO token. The YES
// mid follows a bounded random walk; NO mirrors it.
type market struct {
	slug  string
	yes   string
	no    string
	endAt time.Time

	tick float64
	vol  float64
	mid  float64
	rng  *rand.Rand
}

const (
	slugPrefix = "btc-updown-15m-"
	midFloor   = 0.03
	midCeil    = 0.97
)

func newMarket(rng *rand.Rand, now time.Time, interval time.Duration, tick, vol float64) *market {
	// Windows are aligned to the interval like the real 15m series.
	end := now.Truncate(interval).Add(interval)
	return &market{
		slug:  fmt.Sprintf("%s%d", slugPrefix, end.Unix()),
		yes:   tokenID(rng),
		no:    tokenID(rng),
		endAt: end,
		tick:  tick,
		vol:   vol,
		mid:   0.5,
		rng:   rng,
	}
}

func tokenID(rng *rand.Rand) string {
	return fmt.Sprintf("%d%d", rng.Uint64(), rng.Uint64()%1e9)
}

// step advances the walk by one tick, reflecting at the bounds.
func (m *market) step() {
	m.mid += m.rng.NormFloat64() * m.vol
	switch {
	case m.mid < midFloor:
		m.mid = 2*midFloor - m.mid
	case m.mid > midCeil:
		m.mid = 2*midCeil - m.mid
	}
}

func (m *market) tte(now time.Time) time.Duration {
	return m.endAt.Sub(now)
}

// quotes returns the YES and NO top of book, one tick wide.
func (m *market) quotes() (yes, no Quote) {
	yesBid := roundTick(m.mid-m.tick/2, m.tick)
	yesAsk := roundTick(yesBid+m.tick, m.tick)
	noBid := roundTick(1-yesAsk, m.tick)
	noAsk := roundTick(noBid+m.tick, m.tick)
	return Quote{Bid: yesBid, Ask: yesAsk}, Quote{Bid: noBid, Ask: noAsk}
}

func (m *market) book() map[string]Quote {
	yes, no := m.quotes()
	return map[string]Quote{m.yes: yes, m.no: no}
}

// resolution is the settlement price of each token when the window ends.
func (m *market) resolution() map[string]float64 {
	if m.mid >= 0.5 {
		return map[string]float64{m.yes: 1, m.no: 0}
	}
	return map[string]float64{m.yes: 0, m.no: 1}
}

// roundTick rounds x to the tick grid and keeps it inside (0, 1).
func roundTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	v := math.Round(x/tick) * tick
	v = math.Max(tick, math.Min(1-tick, v))
	return math.Round(v*1e6) / 1e6
}
