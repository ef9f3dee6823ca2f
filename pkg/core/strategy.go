package core

import (
	"fmt"
	"sort"
	"sync"
)

// Strategy is the contract every tradeable variant implements. The
// simulator is written against this interface only; strategy internals
// are opaque to the engine.
type Strategy interface {
	// Name is the registered variant identifier. eg: trend_following
	Name() string
	// Timeframe is the classification timeframe the strategy analyzes on. eg: 1h, 4h
	Timeframe() string
	// WarmupPeriod is the bar count to wait before Analyze is first called,
	// measured on the strategy's timeframe, so indicators have data.
	WarmupPeriod() int
	// Analyze inspects the window and emits a trading signal.
	// It must not retain or mutate the window.
	Analyze(w *Window) Signal
}

// StrategyFactory builds a strategy variant from a parameter assignment.
// Out-of-domain values must return an *InvalidParameterError.
type StrategyFactory func(params Params) (Strategy, error)

type strategyRegistry struct {
	mu        sync.RWMutex
	factories map[string]StrategyFactory
}

var registry = &strategyRegistry{factories: make(map[string]StrategyFactory)}

// RegisterStrategy adds a named variant to the registry. Registering the
// same name twice panics: variant names are part of preset identity and
// silent replacement would corrupt stored results.
func RegisterStrategy(name string, factory StrategyFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, dup := registry.factories[name]; dup {
		panic(fmt.Sprintf("strategy %q registered twice", name))
	}
	registry.factories[name] = factory
}

// NewStrategy instantiates a registered variant with the given params.
func NewStrategy(name string, params Params) (Strategy, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	return factory(params)
}

// RegisteredStrategies returns the sorted names of all known variants.
func RegisteredStrategies() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
