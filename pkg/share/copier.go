package share

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/mattn/go-isatty"

	"charsmith/pkg/schema"
)

var ErrNoTerminal = errors.New("clipboard needs an interactive terminal")

// Clipboard accepts text for the user to paste elsewhere.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Terminal writes to the system clipboard through the OSC 52 escape sequence
// understood by most terminal emulators, wrapped for tmux or screen when
// running inside one.
type Terminal struct {
	Out *os.File
}

func (t Terminal) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Out == nil || !isatty.IsTerminal(t.Out.Fd()) {
		return ErrNoTerminal
	}

	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case os.Getenv("STY") != "":
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(t.Out)
	return err
}

// Copier is the share button: it copies a link and raises the copied flag.
// Clipboard failures are returned as-is for the caller to show; nothing is
// retried.
type Copier struct {
	Clipboard Clipboard
	Flag      *Flag
}

func NewCopier(cb Clipboard) *Copier {
	return &Copier{Clipboard: cb, Flag: NewFlag(ResetAfter)}
}

func (c *Copier) Copy(ctx context.Context, text string) error {
	if err := c.Clipboard.WriteText(ctx, text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	c.Flag.Set()
	return nil
}

// CopyLink builds the share link for ch under base and copies it.
func (c *Copier) CopyLink(ctx context.Context, base string, ch schema.Character) (string, error) {
	link, err := Link(base, ch)
	if err != nil {
		return "", err
	}
	return link, c.Copy(ctx, link)
}
