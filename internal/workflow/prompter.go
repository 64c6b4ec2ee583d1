package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samzong/aic/internal/ui"
)

// Decision is the user's verdict on a generated message.
type Decision int

const (
	DecisionAccept Decision = iota
	DecisionRegenerate
	DecisionCancel
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionRegenerate:
		return "regenerate"
	case DecisionCancel:
		return "cancel"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Prompter asks the user what to do with a generated message.
type Prompter interface {
	Decide(ctx context.Context, message string) (Decision, error)
}

// Review menu entries, in Decision order.
var reviewOptions = []string{
	"Confirm (commit & push)",
	"Regenerate",
	"Cancel",
}

// MenuPrompter resolves decisions through a ui.Menu.
type MenuPrompter struct {
	Menu      ui.Menu
	ErrWriter io.Writer
	AutoYes   bool
}

func (p *MenuPrompter) Decide(ctx context.Context, message string) (Decision, error) {
	if p.AutoYes {
		fmt.Fprintln(p.ErrWriter, "Auto-confirming commit message (-y flag is set)")
		return DecisionAccept, nil
	}

	choice, err := p.Menu.Select(ctx, "What would you like to do?", reviewOptions)
	if err != nil {
		if errors.Is(err, ui.ErrAborted) {
			return DecisionCancel, nil
		}
		return DecisionCancel, err
	}

	switch choice {
	case 0:
		return DecisionAccept, nil
	case 1:
		return DecisionRegenerate, nil
	default:
		return DecisionCancel, nil
	}
}
