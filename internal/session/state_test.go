package session

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateLoading, StateAuthenticated, true},
		{StateLoading, StateAnonymous, true},
		{StateAuthenticated, StateAnonymous, true},
		{StateAnonymous, StateAuthenticated, true},
		{StateAuthenticated, StateAuthenticated, false},
		{StateAnonymous, StateAnonymous, false},
		{StateAuthenticated, StateLoading, false},
		{StateAnonymous, StateLoading, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
