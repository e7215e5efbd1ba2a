// Package presenter maps full backend snapshots onto a View and feeds the
// two rolling chart series.
package presenter

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/series"
)

const (
	DefaultQuoteCapacity  = 100
	DefaultEquityCapacity = 50

	quoteChannels  = 4
	equityChannels = 2

	quoteLabelLayout = "15:04:05.000"
)

// Options configures a Presenter. Zero values select the defaults.
type Options struct {
	QuoteCapacity  int
	EquityCapacity int
	Now            func() time.Time
}

// Result describes what one Present call did beyond rendering.
type Result struct {
	TradeClosed bool
	Seq         float64
}

// Presenter owns the quote and equity buffers and the trade boundary
// detector for one console session. It is not safe for concurrent use;
// snapshots are presented one at a time from the feed goroutine.
type Presenter struct {
	view     View
	quotes   *series.Buffer
	equity   *series.Buffer
	detector Detector
	now      func() time.Time
}

// New creates a Presenter drawing into view.
func New(view View, opts Options) *Presenter {
	if opts.QuoteCapacity <= 0 {
		opts.QuoteCapacity = DefaultQuoteCapacity
	}
	if opts.EquityCapacity <= 0 {
		opts.EquityCapacity = DefaultEquityCapacity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Presenter{
		view:   view,
		quotes: series.New(opts.QuoteCapacity, quoteChannels),
		equity: series.New(opts.EquityCapacity, equityChannels),
		now:    opts.Now,
	}
}

// Present renders snap, samples quotes and, on a trade boundary, samples
// equity.
func (p *Presenter) Present(snap domain.Snapshot) Result {
	Render(p.view, snap)

	label := p.now().Format(quoteLabelLayout)
	// Arity is fixed by construction; Append cannot fail here.
	_ = p.quotes.Append(label, snap.YesBid, snap.YesAsk, snap.NoBid, snap.NoAsk)
	p.view.Redraw(ChartQuotes, p.quotes.Frame())

	if !p.detector.Observe(snap.TradeSeq) {
		return Result{}
	}

	seq := snap.TradeSeq.Value
	_ = p.equity.Append(EquityLabel(seq), snap.Balance, snap.PnL.Total)
	p.view.Redraw(ChartEquity, p.equity.Frame())

	return Result{TradeClosed: true, Seq: seq}
}

// Quotes exposes the live quote buffer for read-only use.
func (p *Presenter) Quotes() *series.Buffer { return p.quotes }

// Equity exposes the equity buffer for read-only use.
func (p *Presenter) Equity() *series.Buffer { return p.equity }

// EquityLabel is the x-axis label of an equity point: "T" and the counter.
func EquityLabel(seq float64) string {
	return "T" + strconv.FormatFloat(seq, 'f', -1, 64)
}
