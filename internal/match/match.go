// Package match partitions canonical records into groups that describe the
// same clinician.
package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/provdir/internal/model"
)

// DefaultMaxDistanceKM is the largest separation at which two practice
// locations still count as the same.
const DefaultMaxDistanceKM = 10.0

// exactFields are compared in order after the NPI, short-circuiting on the
// first difference.
var exactFields = []string{
	model.FieldTaxonomy,
	model.FieldState,
	model.FieldCity,
	model.FieldZip,
}

// Matcher groups records by first-fit against each group's first member.
type Matcher struct {
	geocoder      Geocoder
	maxDistanceKM float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithGeocoder resolves missing coordinates through g.
func WithGeocoder(g Geocoder) Option {
	return func(m *Matcher) {
		m.geocoder = g
	}
}

// WithMaxDistanceKM overrides DefaultMaxDistanceKM.
func WithMaxDistanceKM(km float64) Option {
	return func(m *Matcher) {
		if km > 0 {
			m.maxDistanceKM = km
		}
	}
}

// New creates a Matcher. Without a geocoder, records lacking coordinates
// never pass the distance check.
func New(opts ...Option) *Matcher {
	m := &Matcher{maxDistanceKM: DefaultMaxDistanceKM}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Group assigns each record to the first existing group whose first member
// matches it, or starts a new group. Groups and their members keep input
// order. Later members are never consulted, so a record that would only
// match a later member starts its own group.
//
// Output groups hold clones; coordinates resolved by geocoding are written
// onto the clones and records is left untouched.
func (m *Matcher) Group(ctx context.Context, records []model.Record) []model.Group {
	memo := newCoordMemo(m.geocoder)

	var groups []model.Group
	for _, r := range records {
		rec := r.Clone()
		placed := false
		for i := range groups {
			if m.matches(ctx, memo, groups[i][0], rec) {
				groups[i] = append(groups[i], rec)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, model.Group{rec})
		}
	}

	zap.L().Debug("match: grouped records",
		zap.Int("records", len(records)),
		zap.Int("groups", len(groups)),
		zap.Int("geocode_lookups", memo.lookups),
	)
	return groups
}

func (m *Matcher) matches(ctx context.Context, memo *coordMemo, rep, rec model.Record) bool {
	if !sameNPI(rep, rec) {
		return false
	}
	for _, f := range exactFields {
		if rep[f] != rec[f] {
			return false
		}
	}

	a := memo.locate(ctx, rep)
	if a == nil {
		return false
	}
	b := memo.locate(ctx, rec)
	if b == nil {
		return false
	}
	return HaversineKM(a, b) <= m.maxDistanceKM
}

// sameNPI requires both NPIs to be present, valid and equal.
func sameNPI(a, b model.Record) bool {
	x, ok := a.String(model.FieldNPI)
	if !ok || model.IsInvalid(x) {
		return false
	}
	y, ok := b.String(model.FieldNPI)
	return ok && x == y
}
