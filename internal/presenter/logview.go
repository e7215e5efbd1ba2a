package presenter

import (
	"log/slog"
	"strings"

	"github.com/alanyoungcy/polyconsole/internal/series"
)

// LogView is a headless View that reports to a structured logger. Badge
// transitions and equity points are logged at info, the status line at
// debug.
type LogView struct {
	logger *slog.Logger
	badge  Badge
	fields map[Field]string
	rows   map[Table]int
}

// NewLogView creates a LogView.
func NewLogView(logger *slog.Logger) *LogView {
	return &LogView{
		logger: logger.With(slog.String("component", "view")),
		fields: make(map[Field]string, len(Fields)),
		rows:   make(map[Table]int, 2),
	}
}

func (v *LogView) SetBadge(b Badge) {
	if b != v.badge {
		v.logger.Info("run state", slog.String("badge", b.Text))
	}
	v.badge = b
}

func (v *LogView) SetField(f Field, text string) {
	prev, seen := v.fields[f]
	v.fields[f] = text
	switch f {
	case FieldStatusLine:
		v.logger.Debug(text)
	case FieldError:
		if text != Placeholder && (!seen || prev != text) {
			v.logger.Warn("backend error", slog.String("error", text))
		}
	}
}

func (v *LogView) SetTable(t Table, rows []Row) {
	n := len(rows)
	if n == 1 && rows[0].Placeholder {
		n = 0
	}
	if prev, ok := v.rows[t]; !ok || prev != n {
		v.logger.Debug("table", slog.String("table", string(t)), slog.Int("rows", n))
	}
	v.rows[t] = n
}

func (v *LogView) Redraw(c Chart, frame series.Frame) {
	if c != ChartEquity || frame.Len() == 0 {
		return
	}
	last := frame.Len() - 1
	attrs := []any{
		slog.String("label", frame.Labels[last]),
		slog.Int("points", frame.Len()),
	}
	if len(frame.Channels) == equityChannels {
		attrs = append(attrs,
			slog.String("balance", Currency(frame.Channels[0][last])),
			slog.String("pnl_total", Currency(frame.Channels[1][last])),
		)
	}
	v.logger.Info("trade closed", attrs...)
}

// Field returns the last text written to f.
func (v *LogView) Field(f Field) string {
	return v.fields[f]
}

// Badge returns the last badge written.
func (v *LogView) Badge() Badge {
	return v.badge
}

// Summary joins the current fields for one-line dumps.
func (v *LogView) Summary() string {
	parts := make([]string, 0, len(Fields))
	for _, f := range Fields {
		if t, ok := v.fields[f]; ok {
			parts = append(parts, string(f)+"="+t)
		}
	}
	return strings.Join(parts, " ")
}
