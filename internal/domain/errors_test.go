package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	upstreamCause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"invalid argument", fmt.Errorf("%w: k=9 exceeds store size 3", ErrInvalidArgument), KindInvalidArgument},
		{"not found", fmt.Errorf("%w: item 12", ErrNotFound), KindNotFound},
		{"invalid state", fmt.Errorf("%w: empty store", ErrInvalidState), KindInvalidState},
		{"upstream", fmt.Errorf("%w: %w", ErrUpstream, upstreamCause), KindUpstream},
		{"not found through upstream", fmt.Errorf("%w: %w", ErrUpstream, ErrNotFound), KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("model offline")
	err := fmt.Errorf("%w: %w", ErrUpstream, cause)
	if !errors.Is(err, cause) {
		t.Error("expected the original upstream error to stay reachable")
	}
}

func TestQueryModeString(t *testing.T) {
	if ModeText.String() != "text" || ModeLookup.String() != "lookup" || ModeCollaborative.String() != "collaborative" {
		t.Error("unexpected mode names")
	}
	if QueryMode(42).String() != "unknown" {
		t.Error("expected unknown for out-of-range mode")
	}
}
