// Package experiment assigns the sticky A/B pricing-table variant. The
// assignment is client-local: one uniform random draw persisted on first use,
// no server round-trip.
package experiment

import (
	"math/rand"

	"github.com/citecheck/citecheck/internal/store"
)

// DefaultVariant is returned whenever the client store is unavailable, so
// repeated calls within one process stay self-consistent instead of
// re-rolling a random treatment.
const DefaultVariant = "control"

// Variants is the fixed set of pricing-table treatments.
var Variants = []string{"control", "pass_first", "subscription_first"}

type Assigner struct {
	store *store.Store
}

func NewAssigner(s *store.Store) *Assigner {
	return &Assigner{store: s}
}

// Variant returns the client's experiment variant. The first call with a
// working store draws uniformly from Variants and persists the result; every
// later call returns the persisted value unchanged.
func (a *Assigner) Variant() string {
	if a.store == nil {
		return DefaultVariant
	}
	if v := a.store.Variant(); v != "" {
		return v
	}

	v := Variants[rand.Intn(len(Variants))]
	a.store.SetVariant(v)

	// the store is fail-soft: a read-back mismatch means persistence is
	// unavailable, in which case the deterministic default wins
	if a.store.Variant() != v {
		return DefaultVariant
	}
	return v
}
