package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Program couples a bubbletea program with the View that feeds it.
type Program struct {
	prog *tea.Program
	view *ProgramView
}

// NewProgram builds the dashboard. The program stops when ctx is cancelled
// or the operator quits.
func NewProgram(ctx context.Context, cmds Commander, opts ...tea.ProgramOption) *Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	prog := tea.NewProgram(NewModel(ctx, cmds), opts...)
	return &Program{prog: prog, view: NewProgramView(prog.Send)}
}

// View is the presenter-facing side of the program.
func (p *Program) View() *ProgramView { return p.view }

// Run blocks until the operator quits or the context ends. A context
// shutdown is not an error.
func (p *Program) Run() error {
	_, err := p.prog.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
