package service

import (
	"inventory_backend/internal/search/capability"
	"inventory_backend/internal/search/transport"
)

// Strategy is one state of the fallback chain. The chain is strictly linear:
// full-text, then trigram, then ILIKE; each state is attempted at most once
// per request and a runtime query error advances to the next state.
type Strategy int

const (
	StrategyFullText Strategy = iota
	StrategyTrigram
	StrategyILike
)

// Method returns the client-facing identifier for the strategy.
func (s Strategy) Method() string {
	switch s {
	case StrategyFullText:
		return transport.MethodFullText
	case StrategyTrigram:
		return transport.MethodTrigram
	default:
		return transport.MethodILike
	}
}

// StartStrategy picks the chain's entry state from the resolved
// configuration. Selection happens up front; capability is never re-probed
// mid-request.
func StartStrategy(cfg capability.SearchConfiguration) Strategy {
	switch {
	case cfg.UseFullTextSearch:
		return StrategyFullText
	case cfg.UseTrigramSearch:
		return StrategyTrigram
	default:
		return StrategyILike
	}
}

// Next returns the following state, or false at the end of the chain.
func (s Strategy) Next() (Strategy, bool) {
	switch s {
	case StrategyFullText:
		return StrategyTrigram, true
	case StrategyTrigram:
		return StrategyILike, true
	default:
		return s, false
	}
}
