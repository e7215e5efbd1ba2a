package presenter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/feed"
	"github.com/alanyoungcy/polyconsole/internal/series"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	badge   Badge
	fields  map[Field]string
	tables  map[Table][]Row
	frames  map[Chart]series.Frame
	redraws map[Chart]int
}

func newFakeView() *fakeView {
	return &fakeView{
		fields:  map[Field]string{},
		tables:  map[Table][]Row{},
		frames:  map[Chart]series.Frame{},
		redraws: map[Chart]int{},
	}
}

func (v *fakeView) SetBadge(b Badge) { v.badge = b }

func (v *fakeView) SetField(f Field, text string) { v.fields[f] = text }

func (v *fakeView) SetTable(t Table, rows []Row) { v.tables[t] = rows }

func (v *fakeView) Redraw(c Chart, f series.Frame) {
	v.frames[c] = f
	v.redraws[c]++
}

func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start.Add(-step)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Running:  true,
		Slug:     "btc-updown-15m-1700000000",
		TTE:      domain.Some(412.6),
		Balance:  domain.Some(1002.675),
		BetFrac:  domain.Some(0.25),
		YesBid:   domain.Some(0.48),
		YesAsk:   domain.Some(0.49),
		NoBid:    domain.Some(0.51),
		NoAsk:    domain.Some(0.52),
		PnL:      domain.PnL{Total: domain.Some(2.675), Realized: domain.Some(-1.5), Unrealized: domain.Some(4.175)},
		Stats:    domain.Stats{Winrate: domain.Some(2.0 / 3.0), Wins: domain.Some(2), Losses: domain.Some(1)},
		TradeSeq: domain.Some(3),
		Positions: []domain.Position{
			{AssetID: "0x1234567890abcdef", Shares: domain.Some(10), AvgPx: domain.Some(0.4812)},
		},
		OpenOrders: []domain.Order{
			{ID: "ord-1", AssetID: "0x1234567890abcdef", Side: "buy", Price: domain.Some(0.47), Shares: domain.Some(5), AgeSec: domain.Some(12)},
		},
	}
}

func TestRenderFormatsSnapshot(t *testing.T) {
	v := newFakeView()
	Render(v, sampleSnapshot())

	assert.Equal(t, Badge{Text: "RUNNING", Running: true, CanStop: true}, v.badge)
	assert.Equal(t, "btc-updown-15m-1700000000", v.fields[FieldSlug])
	assert.Equal(t, "413s", v.fields[FieldTTE])
	assert.Equal(t, "1002.68", v.fields[FieldBalance])
	assert.Equal(t, "25%", v.fields[FieldBetFrac])
	assert.Equal(t, "0.4800/0.4900", v.fields[FieldYesQuote])
	assert.Equal(t, "0.5100/0.5200", v.fields[FieldNoQuote])
	assert.Equal(t, "2.68", v.fields[FieldPnLTotal])
	assert.Equal(t, "-1.50", v.fields[FieldPnLRealized])
	assert.Equal(t, "4.18", v.fields[FieldPnLUnrealized])
	assert.Equal(t, "66.7%", v.fields[FieldWinrate])
	assert.Equal(t, "2", v.fields[FieldWins])
	assert.Equal(t, "1", v.fields[FieldLosses])
	assert.Equal(t, Placeholder, v.fields[FieldError])
	assert.Equal(t,
		"slug=btc-updown-15m-1700000000 | tte=413s | YES 0.4800/0.4900 | NO 0.5100/0.5200 | bal=1002.68 | bet=25%",
		v.fields[FieldStatusLine])

	require.Len(t, v.tables[TablePositions], 1)
	pos := v.tables[TablePositions][0]
	assert.Equal(t, []string{"0x1234…cdef", "10.00", "0.4812"}, pos.Cells)
	assert.Equal(t, "0x1234567890abcdef", pos.AssetID)
	assert.False(t, pos.Placeholder)

	require.Len(t, v.tables[TableOrders], 1)
	assert.Equal(t, []string{"ord-1", "0x1234…cdef", "BUY", "0.4700", "5.00", "12s"}, v.tables[TableOrders][0].Cells)
}

func TestRenderPlaceholders(t *testing.T) {
	v := newFakeView()
	Render(v, domain.Snapshot{})

	assert.Equal(t, Badge{Text: "STOPPED", CanStart: true}, v.badge)
	for _, f := range []Field{FieldSlug, FieldTTE, FieldBalance, FieldBetFrac, FieldPnLTotal, FieldWinrate, FieldWins, FieldLosses, FieldError} {
		assert.Equal(t, Placeholder, v.fields[f], f)
	}
	assert.Equal(t, "--/--", v.fields[FieldYesQuote])
	assert.Equal(t, "slug=-- | tte=-- | YES --/-- | NO --/-- | bal=-- | bet=--", v.fields[FieldStatusLine])

	assert.Equal(t, []Row{{Cells: []string{"No positions"}, Placeholder: true}}, v.tables[TablePositions])
	assert.Equal(t, []Row{{Cells: []string{"No open orders"}, Placeholder: true}}, v.tables[TableOrders])
}

func TestRenderStatusBadge(t *testing.T) {
	assert.Equal(t, "ERROR", BadgeFor(domain.Snapshot{Status: "error"}).Text)
	assert.Equal(t, "RUNNING", BadgeFor(domain.Snapshot{Running: true, Status: "starting"}).Text)
	assert.Equal(t, "STOPPED", BadgeFor(domain.Snapshot{Status: "  "}).Text)
}

func TestRenderIsIdempotent(t *testing.T) {
	snap := sampleSnapshot()

	once := newFakeView()
	Render(once, snap)

	twice := newFakeView()
	Render(twice, snap)
	Render(twice, snap)
	assert.Equal(t, once, twice)

	// Output must not depend on what was rendered before.
	after := newFakeView()
	Render(after, domain.Snapshot{Status: "stopped"})
	Render(after, snap)
	assert.Equal(t, once, after)
}

func TestDetector(t *testing.T) {
	var d Detector
	fires := 0
	for _, s := range []domain.Num{{}, domain.Some(0), domain.Some(1), domain.Some(1), {}, domain.Some(1), domain.Some(2), domain.Some(2), domain.Some(3)} {
		if d.Observe(s) {
			fires++
		}
	}
	assert.Equal(t, 3, fires)
	assert.Equal(t, 3.0, d.LastSeen())

	assert.True(t, d.Observe(domain.Some(1)), "a decrease is a new boundary")
	assert.False(t, d.Observe(domain.Some(1)))
}

func TestPresentSamplesEquityOnBoundaries(t *testing.T) {
	v := newFakeView()
	p := New(v, Options{Now: stepClock(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), time.Millisecond)})

	var closed []float64
	for i, seq := range []float64{0, 0, 1, 1, 1, 2} {
		snap := sampleSnapshot()
		snap.TradeSeq = domain.Some(seq)
		snap.Balance = domain.Some(1000 + float64(i))
		res := p.Present(snap)
		if res.TradeClosed {
			closed = append(closed, res.Seq)
		}
	}

	assert.Equal(t, []float64{1, 2}, closed)
	assert.Equal(t, 6, p.Quotes().Len())
	assert.Equal(t, []string{"T1", "T2"}, p.Equity().Labels())
	assert.Equal(t, []domain.Num{domain.Some(1002), domain.Some(1005)}, p.Equity().Channel(0))
	assert.Equal(t, []domain.Num{sampleSnapshot().PnL.Total, sampleSnapshot().PnL.Total}, p.Equity().Channel(1))
	assert.Equal(t, 6, v.redraws[ChartQuotes])
	assert.Equal(t, 2, v.redraws[ChartEquity])
	assert.Equal(t, "09:30:00.000", v.frames[ChartQuotes].Labels[0])
	assert.Equal(t, "09:30:00.005", v.frames[ChartQuotes].Labels[5])
}

func TestPresentQuoteWindow(t *testing.T) {
	v := newFakeView()
	p := New(v, Options{Now: stepClock(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), time.Second)})

	for i := 0; i < 105; i++ {
		snap := domain.Snapshot{YesBid: domain.Some(float64(i))}
		p.Present(snap)
	}

	frame := v.frames[ChartQuotes]
	require.Equal(t, 100, frame.Len())
	assert.Equal(t, "09:30:05.000", frame.Labels[0])
	assert.Equal(t, domain.Some(5), frame.Channels[0][0])
	assert.Equal(t, domain.Some(104), frame.Channels[0][99])
	for _, ch := range frame.Channels {
		assert.Len(t, ch, 100)
	}
}

func TestPresentEquityWindow(t *testing.T) {
	p := New(newFakeView(), Options{EquityCapacity: 50})
	for i := 1; i <= 60; i++ {
		p.Present(domain.Snapshot{TradeSeq: domain.Some(float64(i))})
	}
	labels := p.Equity().Labels()
	require.Len(t, labels, 50)
	assert.Equal(t, "T11", labels[0])
	assert.Equal(t, "T60", labels[49])
}

type scriptedSession struct {
	frames []string
}

func (s *scriptedSession) ReadMessage() (int, []byte, error) {
	if len(s.frames) == 0 {
		return 0, nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return websocket.TextMessage, []byte(f), nil
}

func (s *scriptedSession) Close() error { return nil }

type onceDialer struct {
	sess feed.Session
}

func (d *onceDialer) Dial(context.Context, string) (feed.Session, error) {
	if d.sess == nil {
		return nil, errors.New("no more sessions")
	}
	s := d.sess
	d.sess = nil
	return s, nil
}

func TestMalformedFrameLeavesPresenterUntouched(t *testing.T) {
	p := New(newFakeView(), Options{})
	sess := &scriptedSession{frames: []string{
		`{"trade_seq":1,"balance":100,"pnl":{"total":0}}`,
		`{"trade_seq":2,"positions":{}}`,
		`{"trade_seq":1,"balance":100,"pnl":{"total":0}}`,
		`{"trade_seq":2,"balance":110,"pnl":{"total":10}}`,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr := feed.New(func(snap domain.Snapshot) { p.Present(snap) }, feed.Options{
		URL:    "ws://console.test/ws",
		Dialer: &onceDialer{sess: sess},
		Wait: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	err := mgr.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 3, p.Quotes().Len())
	assert.Equal(t, []string{"T1", "T2"}, p.Equity().Labels())
	assert.Equal(t, []domain.Num{domain.Some(100), domain.Some(110)}, p.Equity().Channel(0))
	assert.Equal(t, []domain.Num{domain.Some(0), domain.Some(10)}, p.Equity().Channel(1))
}

func TestPresentEquityTracksBalanceAndPnL(t *testing.T) {
	p := New(newFakeView(), Options{})
	for _, raw := range []string{
		`{"trade_seq":1,"balance":100,"pnl":{"total":0}}`,
		`{"trade_seq":1,"balance":104,"pnl":{"total":4}}`,
		`{"trade_seq":2,"balance":110,"pnl":{"total":10}}`,
	} {
		snap, err := domain.DecodeSnapshot([]byte(raw))
		require.NoError(t, err)
		p.Present(snap)
	}

	assert.Equal(t, []string{"T1", "T2"}, p.Equity().Labels())
	assert.Equal(t, []domain.Num{domain.Some(100), domain.Some(110)}, p.Equity().Channel(0))
	assert.Equal(t, []domain.Num{domain.Some(0), domain.Some(10)}, p.Equity().Channel(1))
}

func TestEquityLabel(t *testing.T) {
	assert.Equal(t, "T7", EquityLabel(7))
	assert.Equal(t, "T2.5", EquityLabel(2.5))
}
