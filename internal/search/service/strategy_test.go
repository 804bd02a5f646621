package service

import (
	"testing"

	"inventory_backend/internal/search/capability"
	"inventory_backend/internal/search/transport"
)

func TestStartStrategy(t *testing.T) {
	cases := []struct {
		name string
		cfg  capability.SearchConfiguration
		want Strategy
	}{
		{"full text preferred", capability.SearchConfiguration{UseFullTextSearch: true, UseTrigramSearch: true}, StrategyFullText},
		{"trigram without full text", capability.SearchConfiguration{UseTrigramSearch: true}, StrategyTrigram},
		{"ilike fallback", capability.SearchConfiguration{FallbackToILike: true}, StrategyILike},
		{"zero value", capability.SearchConfiguration{}, StrategyILike},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StartStrategy(tc.cfg); got != tc.want {
				t.Fatalf("StartStrategy = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStrategyChainIsLinearAndFinite(t *testing.T) {
	s := StrategyFullText

	next, ok := s.Next()
	if !ok || next != StrategyTrigram {
		t.Fatalf("full text should advance to trigram, got %v ok=%v", next, ok)
	}

	next, ok = next.Next()
	if !ok || next != StrategyILike {
		t.Fatalf("trigram should advance to ilike, got %v ok=%v", next, ok)
	}

	if _, ok := next.Next(); ok {
		t.Fatal("ilike is terminal; the chain must end")
	}
}

func TestStrategyMethodNames(t *testing.T) {
	if got := StrategyFullText.Method(); got != transport.MethodFullText {
		t.Fatalf("full text method = %q", got)
	}
	if got := StrategyTrigram.Method(); got != transport.MethodTrigram {
		t.Fatalf("trigram method = %q", got)
	}
	if got := StrategyILike.Method(); got != transport.MethodILike {
		t.Fatalf("ilike method = %q", got)
	}
}
