package terminput

import (
	"strings"
	"testing"

	"pkt.systems/opsdeck/schema"
)

func decode(t *testing.T, input string) []Key {
	t.Helper()
	out := make(chan Key, 16)
	go ReadKeys(strings.NewReader(input), out)
	var keys []Key
	for k := range out {
		keys = append(keys, k)
	}
	return keys
}

func TestReadKeysArrows(t *testing.T) {
	keys := decode(t, "\x1b[A\x1b[B\x1b[C\x1b[D")
	want := []schema.InputEvent{schema.InputUp, schema.InputDown, schema.InputNext, schema.InputPrev}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i, event := range want {
		if keys[i].Event != event {
			t.Fatalf("key %d: expected %s, got %s", i, event, keys[i].Event)
		}
	}
}

func TestReadKeysButtonsAndLetters(t *testing.T) {
	keys := decode(t, "123jkbc\r")
	want := []schema.InputEvent{
		schema.InputPrev, schema.InputSelect, schema.InputNext,
		schema.InputDown, schema.InputUp,
		schema.InputToggleBacklight, schema.InputCancel,
		schema.InputSelect,
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i, event := range want {
		if keys[i].Event != event {
			t.Fatalf("key %d: expected %s, got %s", i, event, keys[i].Event)
		}
	}
}

func TestReadKeysCRLFIsOneSelect(t *testing.T) {
	keys := decode(t, "\r\n")
	if len(keys) != 1 || keys[0].Event != schema.InputSelect {
		t.Fatalf("expected single select, got %v", keys)
	}
}

func TestReadKeysQuit(t *testing.T) {
	keys := decode(t, "q2")
	if len(keys) != 1 || !keys[0].Quit {
		t.Fatalf("expected quit to end stream, got %v", keys)
	}
	keys = decode(t, "\x03")
	if len(keys) != 1 || !keys[0].Quit {
		t.Fatalf("expected ctrl-c quit, got %v", keys)
	}
}

func TestReadKeysDoubleEscCancels(t *testing.T) {
	keys := decode(t, "\x1b\x1b")
	if len(keys) != 1 || keys[0].Event != schema.InputCancel {
		t.Fatalf("expected cancel, got %v", keys)
	}
}
