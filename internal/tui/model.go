// Package tui is the interactive terminal dashboard. It renders whatever the
// presenter pushes into it and turns key presses into control commands.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alanyoungcy/polyconsole/internal/command"
	"github.com/alanyoungcy/polyconsole/internal/presenter"
	"github.com/alanyoungcy/polyconsole/internal/series"
)

const (
	flashTTL     = 3 * time.Second
	defaultWidth = 100
	chartWidth   = 60
)

// Commander sends control commands to the backend. *command.Dispatcher
// implements it.
type Commander interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ClosePosition(ctx context.Context, assetID string) error
	CloseAll(ctx context.Context, confirm command.Confirmer) error
}

type commandDoneMsg struct {
	name string
	err  error
}

type clearFlashMsg int

// Model is the bubbletea model. Every field is owned by the event loop.
type Model struct {
	ctx  context.Context
	cmds Commander

	badge     presenter.Badge
	fields    map[presenter.Field]string
	positions []presenter.Row
	orders    []presenter.Row
	quotes    series.Frame
	equity    series.Frame

	selected   int
	confirming bool
	flash      string
	flashErr   bool
	flashID    int
	width      int
}

// NewModel creates an empty dashboard. ctx bounds every command it sends.
func NewModel(ctx context.Context, cmds Commander) *Model {
	return &Model{
		ctx:    ctx,
		cmds:   cmds,
		fields: make(map[presenter.Field]string),
		width:  defaultWidth,
	}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case badgeMsg:
		m.badge = presenter.Badge(msg)
	case fieldMsg:
		m.fields[msg.field] = msg.text
	case tableMsg:
		switch msg.table {
		case presenter.TablePositions:
			m.positions = msg.rows
			m.clampSelection()
		case presenter.TableOrders:
			m.orders = msg.rows
		}
	case chartMsg:
		switch msg.chart {
		case presenter.ChartQuotes:
			m.quotes = msg.frame
		case presenter.ChartEquity:
			m.equity = msg.frame
		}
	case commandDoneMsg:
		if msg.err != nil {
			return m, m.setFlash(fmt.Sprintf("%s failed: %v", msg.name, msg.err), true)
		}
		return m, m.setFlash(msg.name+" sent", false)
	case clearFlashMsg:
		if int(msg) == m.flashID {
			m.flash = ""
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return tea.Quit
	}

	if m.confirming {
		m.confirming = false
		if key == "y" || key == "Y" {
			return m.run(command.CloseAll, func(ctx context.Context) error {
				return m.cmds.CloseAll(ctx, command.AlwaysConfirm)
			})
		}
		return m.setFlash("close all cancelled", false)
	}

	switch key {
	case "s":
		if m.badge.CanStart {
			return m.run(command.Start, m.cmds.Start)
		}
	case "x":
		if m.badge.CanStop {
			return m.run(command.Stop, m.cmds.Stop)
		}
	case "j", "down":
		if m.selected < len(m.selectable())-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "c":
		if id := m.selectedAsset(); id != "" {
			return m.run(command.Close, func(ctx context.Context) error {
				return m.cmds.ClosePosition(ctx, id)
			})
		}
	case "A":
		m.confirming = true
	}
	return nil
}

// run executes fn off the event loop and reports back as a commandDoneMsg.
func (m *Model) run(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{name: name, err: fn(ctx)}
	}
}

func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashID++
	m.flash = text
	m.flashErr = isErr
	id := m.flashID
	return tea.Tick(flashTTL, func(time.Time) tea.Msg { return clearFlashMsg(id) })
}

func (m *Model) selectable() []presenter.Row {
	rows := make([]presenter.Row, 0, len(m.positions))
	for _, r := range m.positions {
		if !r.Placeholder && r.AssetID != "" {
			rows = append(rows, r)
		}
	}
	return rows
}

func (m *Model) clampSelection() {
	n := len(m.selectable())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) selectedAsset() string {
	rows := m.selectable()
	if m.selected < len(rows) {
		return rows[m.selected].AssetID
	}
	return ""
}

func (m *Model) field(f presenter.Field) string {
	if v, ok := m.fields[f]; ok {
		return v
	}
	return presenter.Placeholder
}

func (m *Model) View() string {
	sections := []string{
		m.renderHeader(),
		mutedStyle.Render(m.field(presenter.FieldStatusLine)),
	}
	if e := m.fields[presenter.FieldError]; e != "" && e != presenter.Placeholder {
		sections = append(sections, errorStyle.Render("error: "+e))
	}
	sections = append(sections,
		m.renderSummary(),
		panelStyle.Render(m.renderQuotes()),
		panelStyle.Render(m.renderEquity()),
		panelStyle.Render(m.renderPositions()),
		panelStyle.Render(m.renderOrders()),
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	badge := m.badge.Text
	if badge == "" {
		badge = presenter.Placeholder
	}
	style := stoppedStyle
	if m.badge.Running {
		style = runningStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("polyconsole"),
		style.Render(badge),
	)
}

func (m *Model) renderSummary() string {
	return fmt.Sprintf("%s %s   %s %s (realized %s, unrealized %s)   %s %s W/L %s/%s",
		headerStyle.Render("balance"), m.field(presenter.FieldBalance),
		headerStyle.Render("pnl"), m.field(presenter.FieldPnLTotal),
		m.field(presenter.FieldPnLRealized), m.field(presenter.FieldPnLUnrealized),
		headerStyle.Render("winrate"), m.field(presenter.FieldWinrate),
		m.field(presenter.FieldWins), m.field(presenter.FieldLosses),
	)
}

func (m *Model) sparkWidth() int {
	w := m.width - 30
	if w > chartWidth {
		w = chartWidth
	}
	if w < 10 {
		w = 10
	}
	return w
}

func (m *Model) renderQuotes() string {
	names := []string{"YES bid", "YES ask", "NO bid", "NO ask"}
	lines := []string{headerStyle.Render("Quotes") + mutedStyle.Render(frameSpan(m.quotes))}
	for i, name := range names {
		if i >= len(m.quotes.Channels) {
			break
		}
		ch := m.quotes.Channels[i]
		lines = append(lines, fmt.Sprintf("%-8s %-*s %s",
			name, m.sparkWidth(), Sparkline(ch, m.sparkWidth()), presenter.Price(latest(ch))))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderEquity() string {
	names := []string{"balance", "pnl"}
	lines := []string{headerStyle.Render("Equity per trade") + mutedStyle.Render(frameSpan(m.equity))}
	if m.equity.Len() == 0 {
		return strings.Join(append(lines, mutedStyle.Render("no closed trades yet")), "\n")
	}
	for i, name := range names {
		if i >= len(m.equity.Channels) {
			break
		}
		ch := m.equity.Channels[i]
		lines = append(lines, fmt.Sprintf("%-8s %-*s %s",
			name, m.sparkWidth(), Sparkline(ch, m.sparkWidth()), presenter.Currency(latest(ch))))
	}
	return strings.Join(lines, "\n")
}

// frameSpan labels a chart with its oldest and newest x-axis labels.
func frameSpan(f series.Frame) string {
	if f.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("  %s .. %s (%d)", f.Labels[0], f.Labels[f.Len()-1], f.Len())
}

func (m *Model) renderPositions() string {
	lines := []string{headerStyle.Render(fmt.Sprintf("  %-14s %10s %10s", "ASSET", "SHARES", "AVG PX"))}
	sel := m.selectedAsset()
	for _, r := range m.positions {
		if r.Placeholder {
			lines = append(lines, mutedStyle.Render("  "+strings.Join(r.Cells, " ")))
			continue
		}
		line := "  " + formatCells(r.Cells, "%-14s", "%10s", "%10s")
		if r.AssetID == sel {
			line = selectStyle.Render("›" + line[1:])
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderOrders() string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%-14s %-14s %-5s %8s %10s %6s",
		"ID", "ASSET", "SIDE", "PRICE", "SHARES", "AGE"))}
	for _, r := range m.orders {
		if r.Placeholder {
			lines = append(lines, mutedStyle.Render(strings.Join(r.Cells, " ")))
			continue
		}
		lines = append(lines, formatCells(r.Cells, "%-14s", "%-14s", "%-5s", "%8s", "%10s", "%6s"))
	}
	return strings.Join(lines, "\n")
}

func formatCells(cells []string, formats ...string) string {
	out := make([]string, 0, len(cells))
	for i, c := range cells {
		if i < len(formats) {
			c = fmt.Sprintf(formats[i], c)
		}
		out = append(out, c)
	}
	return strings.Join(out, " ")
}

func (m *Model) renderFooter() string {
	var lines []string
	if m.confirming {
		lines = append(lines, promptStyle.Render(command.CloseAllPrompt+" [y/N]"))
	}
	if m.flash != "" {
		style := okStyle
		if m.flashErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(m.flash))
	}

	keys := []string{"j/k select", "c close", "A close all", "q quit"}
	if m.badge.CanStop {
		keys = append([]string{"x stop"}, keys...)
	}
	if m.badge.CanStart {
		keys = append([]string{"s start"}, keys...)
	}
	lines = append(lines, mutedStyle.Render(strings.Join(keys, " · ")))
	return strings.Join(lines, "\n")
}
