package presenter

import (
	"strings"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

const (
	noPositions  = "No positions"
	noOpenOrders = "No open orders"
)

// Render draws snap into view. It depends on nothing but snap, so rendering
// the same snapshot twice leaves the view unchanged.
func Render(view View, snap domain.Snapshot) {
	view.SetBadge(BadgeFor(snap))

	for _, f := range Fields {
		view.SetField(f, FieldText(snap, f))
	}

	view.SetTable(TablePositions, PositionRows(snap.Positions))
	view.SetTable(TableOrders, OrderRows(snap.OpenOrders))
}

// BadgeFor derives the run badge and control enablement.
func BadgeFor(snap domain.Snapshot) Badge {
	b := Badge{
		Running:  snap.Running,
		CanStart: !snap.Running,
		CanStop:  snap.Running,
	}
	switch {
	case snap.Running:
		b.Text = "RUNNING"
	case strings.TrimSpace(snap.Status) != "":
		b.Text = strings.ToUpper(strings.TrimSpace(snap.Status))
	default:
		b.Text = "STOPPED"
	}
	return b
}

// FieldText returns the display text of one field.
func FieldText(snap domain.Snapshot, f Field) string {
	switch f {
	case FieldStatusLine:
		return StatusLine(snap)
	case FieldError:
		return Text(snap.Error)
	case FieldSlug:
		return Text(snap.Slug)
	case FieldTTE:
		return Seconds(snap.TTE)
	case FieldBalance:
		return Currency(snap.Balance)
	case FieldBetFrac:
		return Percent(snap.BetFrac, betFracPlaces)
	case FieldYesQuote:
		return Quote(snap.YesBid, snap.YesAsk)
	case FieldNoQuote:
		return Quote(snap.NoBid, snap.NoAsk)
	case FieldPnLTotal:
		return Currency(snap.PnL.Total)
	case FieldPnLRealized:
		return Currency(snap.PnL.Realized)
	case FieldPnLUnrealized:
		return Currency(snap.PnL.Unrealized)
	case FieldWinrate:
		return Percent(snap.Stats.Winrate, winratePlaces)
	case FieldWins:
		return Count(snap.Stats.Wins)
	case FieldLosses:
		return Count(snap.Stats.Losses)
	default:
		return Placeholder
	}
}

// StatusLine is the one-line market summary shown above the panels.
func StatusLine(snap domain.Snapshot) string {
	parts := []string{
		"slug=" + Text(snap.Slug),
		"tte=" + Seconds(snap.TTE),
		"YES " + Quote(snap.YesBid, snap.YesAsk),
		"NO " + Quote(snap.NoBid, snap.NoAsk),
		"bal=" + Currency(snap.Balance),
		"bet=" + Percent(snap.BetFrac, betFracPlaces),
	}
	return strings.Join(parts, " | ")
}

// PositionRows renders the positions table: asset, shares, avg px. Each row
// carries the full asset id for its close action.
func PositionRows(positions []domain.Position) []Row {
	if len(positions) == 0 {
		return []Row{{Cells: []string{noPositions}, Placeholder: true}}
	}
	rows := make([]Row, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, Row{
			Cells:   []string{ShortID(p.AssetID), Shares(p.Shares), Price(p.AvgPx)},
			AssetID: p.AssetID,
		})
	}
	return rows
}

// OrderRows renders the open orders table in backend order.
func OrderRows(orders []domain.Order) []Row {
	if len(orders) == 0 {
		return []Row{{Cells: []string{noOpenOrders}, Placeholder: true}}
	}
	rows := make([]Row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, Row{Cells: []string{
			ShortID(o.ID),
			ShortID(o.AssetID),
			Text(strings.ToUpper(o.Side)),
			Price(o.Price),
			Shares(o.Shares),
			Seconds(o.AgeSec),
		}})
	}
	return rows
}
