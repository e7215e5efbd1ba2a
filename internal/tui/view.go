package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alanyoungcy/polyconsole/internal/presenter"
	"github.com/alanyoungcy/polyconsole/internal/series"
)

type (
	badgeMsg presenter.Badge
	fieldMsg struct {
		field presenter.Field
		text  string
	}
	tableMsg struct {
		table presenter.Table
		rows  []presenter.Row
	}
	chartMsg struct {
		chart presenter.Chart
		frame series.Frame
	}
)

// ProgramView implements presenter.View by posting every mutation into the
// bubbletea event loop, so it may be called from the feed goroutine.
type ProgramView struct {
	send func(tea.Msg)
}

// NewProgramView forwards view updates to send, normally (*tea.Program).Send.
func NewProgramView(send func(tea.Msg)) *ProgramView {
	return &ProgramView{send: send}
}

func (v *ProgramView) SetBadge(b presenter.Badge) { v.send(badgeMsg(b)) }

func (v *ProgramView) SetField(f presenter.Field, text string) {
	v.send(fieldMsg{field: f, text: text})
}

func (v *ProgramView) SetTable(t presenter.Table, rows []presenter.Row) {
	v.send(tableMsg{table: t, rows: rows})
}

func (v *ProgramView) Redraw(c presenter.Chart, frame series.Frame) {
	v.send(chartMsg{chart: c, frame: frame})
}
