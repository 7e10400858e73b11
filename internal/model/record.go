// Package model defines the canonical directory record shared by every
// reconciliation stage.
package model

import (
	"sort"
	"strings"
)

// Canonical field names. The lowercase lat/lng keys match the published
// export format.
const (
	FieldEndpoint           = "Endpoint"
	FieldDateRetrieved      = "DateRetrieved"
	FieldAccuracy           = "Accuracy"
	FieldFullName           = "FullName"
	FieldFirstName          = "FirstName"
	FieldLastName           = "LastName"
	FieldNPI                = "NPI"
	FieldGender             = "Gender"
	FieldTaxonomy           = "Taxonomy"
	FieldGroupName          = "GroupName"
	FieldADD1               = "ADD1"
	FieldADD2               = "ADD2"
	FieldCity               = "City"
	FieldState              = "State"
	FieldZip                = "Zip"
	FieldPhone              = "Phone"
	FieldFax                = "Fax"
	FieldEmail              = "Email"
	FieldLat                = "lat"
	FieldLng                = "lng"
	FieldLastPracUpdate     = "LastPracUpdate"
	FieldLastPracRoleUpdate = "LastPracRoleUpdate"
	FieldLastLocationUpdate = "LastLocationUpdate"
)

// CanonicalFields lists every canonical field in export order.
var CanonicalFields = []string{
	FieldEndpoint, FieldDateRetrieved, FieldAccuracy,
	FieldFullName, FieldFirstName, FieldLastName,
	FieldNPI, FieldGender, FieldTaxonomy, FieldGroupName,
	FieldADD1, FieldADD2, FieldCity, FieldState, FieldZip,
	FieldPhone, FieldFax, FieldEmail,
	FieldLat, FieldLng,
	FieldLastPracUpdate, FieldLastPracRoleUpdate, FieldLastLocationUpdate,
}

var canonicalIndex = func() map[string]int {
	m := make(map[string]int, len(CanonicalFields))
	for i, f := range CanonicalFields {
		m[f] = i
	}
	return m
}()

const (
	// ConsensusEndpoint is the Endpoint reserved for synthesized records.
	ConsensusEndpoint = "Consensus"

	// Unscored is the Accuracy of a freshly standardized record.
	Unscored = -1.0

	// ConsensusAccuracy is the Accuracy carried by a consensus record.
	ConsensusAccuracy = 1.0

	// InvalidPrefix annotates identifier and taxonomy values that failed
	// format validation.
	InvalidPrefix = "invalid:"

	// TimestampLayout is the canonical second-precision UTC layout.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// Record is a flattened, source-agnostic directory record. Values are
// string, float64 or nil (null); never nested.
type Record map[string]any

// NewRecord returns a record holding every canonical field as null, with
// Accuracy unscored.
func NewRecord() Record {
	r := make(Record, len(CanonicalFields))
	for _, f := range CanonicalFields {
		r[f] = nil
	}
	r[FieldAccuracy] = Unscored
	return r
}

// Clone returns a shallow copy. Values are scalars so shallow is enough.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the value for field, or nil when absent.
func (r Record) Get(field string) any {
	return r[field]
}

// Set assigns a value. Empty strings and nil string pointers are stored as
// null.
func (r Record) Set(field string, v any) {
	switch val := v.(type) {
	case string:
		if val == "" {
			r[field] = nil
			return
		}
	case *string:
		if val == nil || *val == "" {
			r[field] = nil
			return
		}
		r[field] = *val
		return
	case *float64:
		if val == nil {
			r[field] = nil
			return
		}
		r[field] = *val
		return
	case int:
		r[field] = float64(val)
		return
	}
	r[field] = v
}

// String returns the field as a string and whether it held a non-null string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// Float returns the field as a float64 and whether it held one.
func (r Record) Float(field string) (float64, bool) {
	f, ok := r[field].(float64)
	return f, ok
}

// Endpoint returns the record's source name.
func (r Record) Endpoint() string {
	s, _ := r.String(FieldEndpoint)
	return s
}

// Accuracy returns the record's agreement score, Unscored when unset.
func (r Record) Accuracy() float64 {
	if f, ok := r.Float(FieldAccuracy); ok {
		return f
	}
	return Unscored
}

// IsConsensus reports whether r is a synthesized record.
func (r Record) IsConsensus() bool {
	return r.Endpoint() == ConsensusEndpoint
}

// Normalize returns a copy holding exactly the given fields; fields absent
// from r become null.
func (r Record) Normalize(fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		out[f] = r[f]
	}
	return out
}

// FieldNames returns the union of field names across records: canonical
// fields first in canonical order, then any extra fields sorted by name.
func FieldNames(records ...Record) []string {
	seen := make(map[string]struct{})
	var extra []string
	canonical := make([]bool, len(CanonicalFields))
	for _, r := range records {
		for k := range r {
			if idx, ok := canonicalIndex[k]; ok {
				canonical[idx] = true
				continue
			}
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)

	out := make([]string, 0, len(CanonicalFields)+len(extra))
	for i, present := range canonical {
		if present {
			out = append(out, CanonicalFields[i])
		}
	}
	return append(out, extra...)
}

// IsInvalid reports whether v is an annotated invalid identifier value.
func IsInvalid(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, InvalidPrefix)
}
