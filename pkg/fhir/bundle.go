package fhir

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Bundle is a searchset bundle returned by a directory query.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type,omitempty"`
	Total        int           `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleEntry holds one resource. The resource stays raw until Split so a
// single malformed entry doesn't fail the whole bundle.
type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// Resources is a bundle's content split by resource type. Roles and
// locations are indexed by "Type/id" reference.
type Resources struct {
	Practitioners []Practitioner
	Roles         []PractitionerRole
	Locations     map[string]Location
}

// RolesFor returns the roles whose practitioner reference points at p, in
// bundle order.
func (r *Resources) RolesFor(p Practitioner) []PractitionerRole {
	ref := Ref(TypePractitioner, p.ID)
	var out []PractitionerRole
	for _, role := range r.Roles {
		if role.Practitioner != nil && role.Practitioner.Reference == ref {
			out = append(out, role)
		}
	}
	return out
}

// LocationsFor resolves a role's location references. Dangling references
// are dropped.
func (r *Resources) LocationsFor(role PractitionerRole) []Location {
	var out []Location
	for _, ref := range role.Location {
		if loc, ok := r.Locations[ref.Reference]; ok {
			out = append(out, loc)
		}
	}
	return out
}

type resourceHeader struct {
	ResourceType string `json:"resourceType"`
}

// Split decodes every entry into its typed resource. Entries that fail to
// decode are reported in errs and skipped; unknown resource types are ignored.
func (b *Bundle) Split() (Resources, []error) {
	res := Resources{Locations: make(map[string]Location)}
	var errs []error

	for i, entry := range b.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		var hdr resourceHeader
		if err := json.Unmarshal(entry.Resource, &hdr); err != nil {
			errs = append(errs, eris.Wrapf(err, "fhir: entry %d header", i))
			continue
		}

		switch hdr.ResourceType {
		case TypePractitioner:
			var p Practitioner
			if err := json.Unmarshal(entry.Resource, &p); err != nil {
				errs = append(errs, eris.Wrapf(err, "fhir: entry %d practitioner", i))
				continue
			}
			res.Practitioners = append(res.Practitioners, p)
		case TypePractitionerRole:
			var role PractitionerRole
			if err := json.Unmarshal(entry.Resource, &role); err != nil {
				errs = append(errs, eris.Wrapf(err, "fhir: entry %d practitioner role", i))
				continue
			}
			res.Roles = append(res.Roles, role)
		case TypeLocation:
			var loc Location
			if err := json.Unmarshal(entry.Resource, &loc); err != nil {
				errs = append(errs, eris.Wrapf(err, "fhir: entry %d location", i))
				continue
			}
			res.Locations[Ref(TypeLocation, loc.ID)] = loc
		}
	}

	return res, errs
}
