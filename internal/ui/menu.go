package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrAborted is returned when the user leaves a menu without answering
// (Esc, Ctrl+C or end of input).
var ErrAborted = errors.New("aborted by user")

// Menu is the interactive capability used by the review loop and setup.
type Menu interface {
	// Select returns the index of the chosen option. The first option is the default.
	Select(ctx context.Context, title string, options []string) (int, error)
	// Input reads a single line. Secret input is not echoed.
	Input(ctx context.Context, title string, secret bool) (string, error)
}

// NewMenu picks a huh-backed menu when in is a terminal and a line-based
// menu otherwise.
func NewMenu(in io.Reader, out io.Writer) Menu {
	if f, ok := in.(*os.File); ok && IsTerminal(f) {
		_, accessible := os.LookupEnv("ACCESSIBLE")
		return &HuhMenu{In: f, Out: out, Accessible: accessible}
	}
	return NewLineMenu(in, out)
}

// HuhMenu renders menus with charmbracelet/huh.
type HuhMenu struct {
	In         io.Reader
	Out        io.Writer
	Accessible bool
}

func (m *HuhMenu) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(Theme()).
		WithAccessible(m.Accessible).
		WithShowHelp(true)
	if m.In != nil {
		form = form.WithInput(m.In)
	}
	if m.Out != nil {
		form = form.WithOutput(m.Out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("menu failed: %w", err)
	}
	return nil
}

func (m *HuhMenu) Select(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to select from")
	}

	huhOptions := make([]huh.Option[int], len(options))
	for i, label := range options {
		huhOptions[i] = huh.NewOption(label, i)
	}

	var choice int
	field := huh.NewSelect[int]().
		Title(title).
		Options(huhOptions...).
		Value(&choice)
	if err := m.run(ctx, field); err != nil {
		return 0, err
	}
	return choice, nil
}

func (m *HuhMenu) Input(ctx context.Context, title string, secret bool) (string, error) {
	var value string
	field := huh.NewInput().Title(title).Value(&value)
	if secret {
		field = field.EchoMode(huh.EchoModePassword)
	}
	if err := m.run(ctx, field); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// LineMenu is a plain numbered menu for pipes, dumb terminals and tests.
type LineMenu struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func NewLineMenu(in io.Reader, out io.Writer) *LineMenu {
	return &LineMenu{in: in, out: out, reader: bufio.NewReader(in)}
}

func (m *LineMenu) readLine() (string, error) {
	line, err := m.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", ErrAborted
	}
	return strings.TrimSpace(line), nil
}

func (m *LineMenu) Select(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to select from")
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		fmt.Fprintln(m.out, title)
		for i, opt := range options {
			fmt.Fprintf(m.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprintf(m.out, "Choose [1-%d] (default 1): ", len(options))

		line, err := m.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" {
			return 0, nil
		}

		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(m.out, "Please enter a number between 1 and %d.\n", len(options))
	}
}

func (m *LineMenu) Input(ctx context.Context, title string, secret bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(m.out, "%s: ", title)

	if f, ok := m.in.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(m.out)
		if err != nil {
			return "", fmt.Errorf("failed to read user input: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	return m.readLine()
}
