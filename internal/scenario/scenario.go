// Package scenario holds a catalog of small named pipelines, one per
// operator family, that the rxdemo runner executes and logs.
//
// Every scenario emits strings and is deterministic under a
// rxfn.VirtualScheduler: its output depends only on the Env it is built with.
package scenario

import (
	"fmt"
	"slices"
	"time"

	"github.com/KasperOmsK/rxfn"
)

// Group names, one per operator family.
const (
	GroupCreation       = "creation"
	GroupCombination    = "combination"
	GroupFiltering      = "filtering"
	GroupTransformation = "transformation"
	GroupMulticasting   = "multicasting"
	GroupErrorHandling  = "error-handling"
	GroupUtility        = "utility"
	GroupConditional    = "conditional"
)

// Env is what a scenario is built with.
type Env struct {
	// Scheduler runs every timed operator of the scenario.
	Scheduler rxfn.Scheduler

	// Tick is the base period; timed scenarios are expressed in ticks.
	Tick time.Duration
}

// Scenario is a named pipeline.
type Scenario struct {
	Name        string
	Group       string
	Description string
	Build       func(env Env) rxfn.Observable[string]
}

// Catalog returns every scenario, grouped by operator family.
func Catalog() []Scenario {
	return slices.Clone(catalog)
}

// Lookup returns the scenario called name.
func Lookup(name string) (Scenario, bool) {
	i := slices.IndexFunc(catalog, func(s Scenario) bool { return s.Name == name })
	if i < 0 {
		return Scenario{}, false
	}

	return catalog[i], true
}

// Select returns the scenarios called names, in that order, or the whole
// catalog when names is empty.
func Select(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return Catalog(), nil
	}

	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		s, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, s)
	}

	return out, nil
}

// ticks returns n ticks of env.
func (env Env) ticks(n int) time.Duration {
	return time.Duration(n) * env.Tick
}

func format[T any](o rxfn.Observable[T]) rxfn.Observable[string] {
	return rxfn.Map(o, func(v T) string { return fmt.Sprint(v) })
}

func formatf[T any](o rxfn.Observable[T], layout string) rxfn.Observable[string] {
	return rxfn.Map(o, func(v T) string { return fmt.Sprintf(layout, v) })
}
