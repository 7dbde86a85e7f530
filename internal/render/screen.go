package render

import (
	"io"
	"strings"
)

// Screen drives a raw-mode terminal using the alternate screen buffer.
type Screen struct {
	out io.Writer
}

// NewScreen wraps the terminal writer.
func NewScreen(out io.Writer) *Screen {
	return &Screen{out: out}
}

// EnterAltScreen switches to the alternate buffer and clears it.
func (s *Screen) EnterAltScreen() {
	_, _ = io.WriteString(s.out, "\x1b[?1049h\x1b[H\x1b[2J")
}

// ExitAltScreen restores the main buffer and the cursor.
func (s *Screen) ExitAltScreen() {
	_, _ = io.WriteString(s.out, "\x1b[?1049l\x1b[?25h")
}

// Render repaints the whole frame. The cursor stays hidden; the keypad UI
// has no text insertion point.
func (s *Screen) Render(lines []string) error {
	var b strings.Builder
	b.WriteString("\x1b[?25l")
	b.WriteString("\x1b[H\x1b[2J")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(line)
	}
	_, err := io.WriteString(s.out, b.String())
	return err
}
