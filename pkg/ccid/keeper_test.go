package ccid

import (
	"errors"
	"slices"
	"testing"

	"github.com/backkem/leaudio/pkg/audio"
)

func TestKeeper(t *testing.T) {
	k := NewKeeper()
	if err := k.Set(audio.ContextMedia|audio.ContextGame, 5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := k.Set(audio.ContextConversational|audio.ContextRingtone, 9); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := k.Set(audio.ContextNone, 1); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("Set(none) = %v, want ErrInvalidContext", err)
	}

	tests := []struct {
		name string
		ctx  audio.Context
		want []uint8
	}{
		{"single", audio.ContextMedia, []uint8{5}},
		{"deduplicated", audio.ContextMedia | audio.ContextGame, []uint8{5}},
		{"bit order", audio.ContextMedia | audio.ContextConversational, []uint8{9, 5}},
		{"unknown", audio.ContextAlerts, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := k.CCIDs(tc.ctx); !slices.Equal(got, tc.want) {
				t.Errorf("CCIDs(%v) = %v, want %v", tc.ctx, got, tc.want)
			}
		})
	}

	k.Remove(5)
	if _, ok := k.Get(audio.ContextGame); ok {
		t.Error("Get(game) found a removed CCID")
	}
	if id, ok := k.Get(audio.ContextRingtone); !ok || id != 9 {
		t.Errorf("Get(ringtone) = %d, %v, want 9, true", id, ok)
	}
}
