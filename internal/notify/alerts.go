package notify

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/feed"
	"github.com/alanyoungcy/polyconsole/internal/presenter"
)

// Alerts turns console events into notifications. Connection alerts are
// edge-triggered: one "lost" per outage and one "restored" when it ends.
type Alerts struct {
	n *Notifier

	mu        sync.Mutex
	wasOpen   bool
	lost      bool
	lastError string
}

// NewAlerts creates Alerts delivering through n.
func NewAlerts(n *Notifier) *Alerts {
	return &Alerts{n: n}
}

// ConnectionState is registered with feed.Manager.OnStateChange.
func (a *Alerts) ConnectionState(s feed.State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch s {
	case feed.Open:
		if a.lost {
			a.n.Go(EventConnectionRestored, "Connection restored", "Snapshot stream is live again.")
		}
		a.wasOpen = true
		a.lost = false
	case feed.Connecting:
		if a.wasOpen && !a.lost {
			a.lost = true
			a.n.Go(EventConnectionLost, "Connection lost", "Snapshot stream closed; reconnecting.")
		}
	}
}

// Snapshot raises trade-closed and backend-error alerts for one presented
// snapshot.
func (a *Alerts) Snapshot(snap domain.Snapshot, res presenter.Result) {
	if res.TradeClosed {
		a.n.Go(EventTradeClosed,
			"Trade closed "+presenter.EquityLabel(res.Seq),
			fmt.Sprintf("balance %s, pnl %s, winrate %s",
				presenter.Currency(snap.Balance),
				presenter.Currency(snap.PnL.Total),
				presenter.Percent(snap.Stats.Winrate, 1),
			),
		)
	}

	a.mu.Lock()
	changed := snap.Error != a.lastError
	a.lastError = snap.Error
	a.mu.Unlock()
	if changed && snap.Error != "" {
		a.n.Go(EventBackendError, "Backend error", snap.Error)
	}
}

// CommandFailed reports a failed control command. An operator declining a
// confirmation is not a failure.
func (a *Alerts) CommandFailed(name string, err error) {
	if err == nil || errors.Is(err, domain.ErrNotConfirmed) {
		return
	}
	a.n.Go(EventCommandFailed, "Command failed: "+name, err.Error())
}
