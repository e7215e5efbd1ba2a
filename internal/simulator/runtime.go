// Package simulator is a paper-trading backend that produces the same full
// snapshots a live bot would, so the console can be run and tested without
// an exchange.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

// Backend lifecycle words carried in the snapshot status field.
const (
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusError    = "error"
)

// TickObserver is told about every simulation tick.
type TickObserver interface {
	BackendTick()
}

// Options configures a Runtime. Zero values select the defaults; a
// negative FillDelay fills immediately.
type Options struct {
	TickInterval time.Duration
	StartCash    float64
	Interval     time.Duration
	FillDelay    time.Duration
	Tick         float64
	Volatility   float64
	Rules        *Rules
	Seed         uint64
	Now          func() time.Time

	Bus      domain.SignalBus
	Latest   domain.LatestStore
	Observer TickObserver
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 200 * time.Millisecond
	}
	if o.StartCash <= 0 {
		o.StartCash = 500
	}
	if o.Interval <= 0 {
		o.Interval = 15 * time.Minute
	}
	switch {
	case o.FillDelay == 0:
		o.FillDelay = time.Second
	case o.FillDelay < 0:
		o.FillDelay = 0
	}
	if o.Tick <= 0 {
		o.Tick = 0.01
	}
	if o.Volatility <= 0 {
		o.Volatility = 0.004
	}
	if o.Rules == nil {
		r := DefaultRules()
		o.Rules = &r
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Runtime owns the paper ledger, the simulated market and the run state.
// All methods are safe for concurrent use.
type Runtime struct {
	opts   Options
	logger *slog.Logger

	// pubMu keeps publish order equal to snapshot order.
	pubMu sync.Mutex

	mu      sync.Mutex
	rng     *rand.Rand
	ledger  *Ledger
	market  *market
	scalper *scalper
	running bool
	status  string
	lastErr string
}

// New creates a stopped Runtime.
func New(opts Options) *Runtime {
	opts.defaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	now := opts.Now()
	return &Runtime{
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "simulator")),
		rng:     rng,
		ledger:  NewLedger(opts.StartCash, opts.FillDelay, opts.Tick),
		market:  newMarket(rng, now, opts.Interval, opts.Tick, opts.Volatility),
		scalper: newScalper(*opts.Rules, opts.Tick),
		status:  StatusStopped,
	}
}

// Start begins trading. Starting a running runtime is a no-op.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.status = StatusStarting
	r.lastErr = ""
	r.mu.Unlock()

	r.logger.Info("trading started")
	return r.publish(ctx)
}

// Stop halts trading and cancels resting orders. Holdings are kept.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.running = false
	r.status = StatusStopped
	r.scalper.reset(r.ledger)
	r.ledger.CancelAll()
	r.mu.Unlock()

	r.logger.Info("trading stopped")
	return r.publish(ctx)
}

// ClosePosition sells the whole holding of assetID at the current bid.
func (r *Runtime) ClosePosition(ctx context.Context, assetID string) error {
	r.mu.Lock()
	err := r.liquidate(assetID)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	r.logger.Info("position closed", slog.String("asset_id", assetID))
	return r.publish(ctx)
}

// CloseAll closes every holding and returns how many were closed.
func (r *Runtime) CloseAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	n := 0
	for _, id := range r.ledger.Held() {
		if err := r.liquidate(id); err == nil {
			n++
		}
	}
	r.mu.Unlock()

	r.logger.Info("all positions closed", slog.Int("count", n))
	return n, r.publish(ctx)
}

// liquidate must be called with r.mu held.
func (r *Runtime) liquidate(assetID string) error {
	price := r.ledger.avgCost[assetID]
	if q, ok := r.market.book()[assetID]; ok && q.ok() {
		price = q.Bid
	}
	return r.ledger.Liquidate(assetID, price)
}

// Running reports whether trading is on.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Snapshot builds the full state a console renders.
func (r *Runtime) Snapshot() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(r.opts.Now())
}

func (r *Runtime) snapshot(now time.Time) domain.Snapshot {
	yes, no := r.market.quotes()
	book := r.market.book()
	return domain.Snapshot{
		Running:    r.running,
		Status:     r.status,
		Error:      r.lastErr,
		TS:         domain.Some(float64(now.Unix())),
		Slug:       r.market.slug,
		TTE:        domain.Some(math.Max(0, math.Floor(r.market.tte(now).Seconds()))),
		Balance:    domain.Some(r.ledger.Equity(book)),
		PnL:        r.ledger.pnl(book),
		Stats:      r.ledger.stats(),
		BetFrac:    domain.Some(r.scalper.betFrac()),
		YesBid:     domain.Some(yes.Bid),
		YesAsk:     domain.Some(yes.Ask),
		NoBid:      domain.Some(no.Bid),
		NoAsk:      domain.Some(no.Ask),
		Positions:  r.ledger.positions(),
		OpenOrders: r.ledger.openOrders(now),
		TradeSeq:   domain.Some(float64(r.ledger.Trades())),
	}
}

// Run ticks the simulation and publishes a snapshot per tick until ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	r.logger.Info("simulator running",
		slog.Duration("tick", r.opts.TickInterval),
		slog.Float64("start_cash", r.opts.StartCash),
	)
	if err := r.publish(ctx); err != nil {
		r.logger.Warn("publish failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick()
			if r.opts.Observer != nil {
				r.opts.Observer.BackendTick()
			}
			if err := r.publish(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("publish failed", slog.String("error", err.Error()))
			}
		}
	}
}

// tick advances the simulation by one step. A panic stops trading and is
// reported through the snapshot error field.
func (r *Runtime) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			r.running = false
			r.status = StatusError
			r.lastErr = fmt.Sprint(p)
			r.logger.Error("simulation step failed", slog.String("error", r.lastErr))
		}
	}()
	r.step(r.opts.Now())
}

// step must be called with r.mu held.
func (r *Runtime) step(now time.Time) {
	r.market.step()

	if !now.Before(r.market.endAt) {
		r.rollover(now)
	}

	if r.running {
		if r.status == StatusStarting {
			r.status = StatusRunning
		}
		r.ledger.Fill(r.market.book(), now)
		r.scalper.step(now, r.market, r.ledger)
	}
	r.ledger.prune(r.scalper.pinned())
}

// rollover settles every holding at the window's resolution price and
// opens the next window.
func (r *Runtime) rollover(now time.Time) {
	settle := r.market.resolution()
	r.scalper.reset(r.ledger)
	r.ledger.CancelAll()
	for _, id := range r.ledger.Held() {
		price, ok := settle[id]
		if !ok {
			continue
		}
		_ = r.ledger.Liquidate(id, price)
	}

	prev := r.market.slug
	r.market = newMarket(r.rng, now, r.opts.Interval, r.opts.Tick, r.opts.Volatility)
	r.logger.Info("market rollover", slog.String("from", prev), slog.String("to", r.market.slug))
}

func (r *Runtime) publish(ctx context.Context) error {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	data, err := r.Snapshot().Encode()
	if err != nil {
		return fmt.Errorf("simulator: encode snapshot: %w", err)
	}
	if r.opts.Latest != nil {
		if err := r.opts.Latest.SaveLatest(ctx, data); err != nil {
			return fmt.Errorf("simulator: save latest: %w", err)
		}
	}
	if r.opts.Bus == nil {
		return nil
	}
	if err := r.opts.Bus.Publish(ctx, domain.SnapshotChannel, data); err != nil {
		return fmt.Errorf("simulator: publish: %w", err)
	}
	return nil
}
