// Package terminput translates terminal byte streams into keypad input
// events. The same reader serves the local console and SSH mirror
// sessions, so both surfaces accept identical keys.
package terminput

import (
	"bufio"
	"io"
	"unicode"

	"pkt.systems/opsdeck/schema"
)

// Key is one decoded input. Quit keys (q, Ctrl-C, Ctrl-D) end the session
// instead of producing an event.
type Key struct {
	Event schema.InputEvent
	Quit  bool
}

// ReadKeys decodes raw-mode terminal input until the reader fails, then
// closes out. Keys that have no keypad meaning are dropped.
//
// Bindings: arrow left/right and 1/3 switch mode, arrow up/down and j/k
// move the cursor, Enter and 2 select, c/Esc-Esc/Backspace cancel,
// b toggles the backlight.
func ReadKeys(r io.Reader, out chan<- Key) {
	defer close(out)
	br := bufio.NewReader(r)
	lastWasCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case 0x1b:
			readEscape(br, out)
		case '\r':
			out <- Key{Event: schema.InputSelect}
			lastWasCR = true
		case '\n':
			out <- Key{Event: schema.InputSelect}
		case 0x7f, 0x08:
			out <- Key{Event: schema.InputCancel}
		case 0x03, 0x04:
			out <- Key{Quit: true}
			return
		default:
			if event, ok := runeBinding(b); ok {
				out <- Key{Event: event}
			} else if b == 'q' || b == 'Q' {
				out <- Key{Quit: true}
				return
			}
		}
	}
}

func runeBinding(b byte) (schema.InputEvent, bool) {
	switch b {
	case '1':
		return schema.InputPrev, true
	case '3':
		return schema.InputNext, true
	case '2':
		return schema.InputSelect, true
	case 'k', 'K':
		return schema.InputUp, true
	case 'j', 'J':
		return schema.InputDown, true
	case 'c', 'C':
		return schema.InputCancel, true
	case 'b', 'B':
		return schema.InputToggleBacklight, true
	}
	return "", false
}

func readEscape(br *bufio.Reader, out chan<- Key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, out)
	case 0x1b:
		// Double-Esc cancels, matching the physical cancel button.
		out <- Key{Event: schema.InputCancel}
	}
}

func readCSI(br *bufio.Reader, out chan<- Key) {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return
		}
	}
	switch string(seq) {
	case "A":
		out <- Key{Event: schema.InputUp}
	case "B":
		out <- Key{Event: schema.InputDown}
	case "C":
		out <- Key{Event: schema.InputNext}
	case "D":
		out <- Key{Event: schema.InputPrev}
	}
}
