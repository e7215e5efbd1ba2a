package command

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// CloseAllPrompt is the question put to the operator before closing
// every position.
const CloseAllPrompt = "Close ALL positions?"

// Confirmer guards destructive commands.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm agrees without asking. Used for -yes and in tests.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

// HuhConfirmer asks on the terminal with a yes/no form.
type HuhConfirmer struct{}

func (HuhConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes, close everything").
				Negative("No").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}
