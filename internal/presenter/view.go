package presenter

import "github.com/alanyoungcy/polyconsole/internal/series"

// Field names one scalar text surface of the console.
type Field string

const (
	FieldStatusLine    Field = "status_line"
	FieldError         Field = "error"
	FieldSlug          Field = "slug"
	FieldTTE           Field = "tte"
	FieldBalance       Field = "balance"
	FieldBetFrac       Field = "bet_frac"
	FieldYesQuote      Field = "yes_quote"
	FieldNoQuote       Field = "no_quote"
	FieldPnLTotal      Field = "pnl_total"
	FieldPnLRealized   Field = "pnl_realized"
	FieldPnLUnrealized Field = "pnl_unrealized"
	FieldWinrate       Field = "winrate"
	FieldWins          Field = "wins"
	FieldLosses        Field = "losses"
)

// Fields lists every scalar field Render writes, in display order.
var Fields = []Field{
	FieldStatusLine,
	FieldError,
	FieldSlug,
	FieldTTE,
	FieldBalance,
	FieldBetFrac,
	FieldYesQuote,
	FieldNoQuote,
	FieldPnLTotal,
	FieldPnLRealized,
	FieldPnLUnrealized,
	FieldWinrate,
	FieldWins,
	FieldLosses,
}

// Table names a tabular surface.
type Table string

const (
	TablePositions Table = "positions"
	TableOrders    Table = "orders"
)

// Row is one rendered table row.
type Row struct {
	Cells []string
	// AssetID is the full identifier a close action targets. It is empty for
	// order rows and placeholder rows.
	AssetID     string
	Placeholder bool
}

// Chart names one of the two rolling charts.
type Chart string

const (
	ChartQuotes Chart = "quotes"
	ChartEquity Chart = "equity"
)

// Badge is the run-state indicator together with control enablement.
type Badge struct {
	Text     string
	Running  bool
	CanStart bool
	CanStop  bool
}

// View is the sink the presenter draws into. Implementations replace the
// addressed surface entirely on every call and must not animate redraws.
type View interface {
	SetBadge(b Badge)
	SetField(f Field, text string)
	SetTable(t Table, rows []Row)
	Redraw(c Chart, frame series.Frame)
}
