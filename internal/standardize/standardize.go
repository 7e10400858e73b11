// Package standardize flattens raw directory resources into canonical
// records.
package standardize

import (
	"time"

	"github.com/sells-group/provdir/internal/model"
	"github.com/sells-group/provdir/pkg/fhir"
)

// Raw is the linked data available for one practitioner. It is one of
// Identity, IdentityRoles or IdentityRoleLocations.
type Raw interface {
	identity() *fhir.Practitioner
}

// Identity is a practitioner with no linked roles.
type Identity struct {
	Practitioner fhir.Practitioner
}

// IdentityRoles is a practitioner with linked roles but no locations.
type IdentityRoles struct {
	Practitioner fhir.Practitioner
	Roles        []fhir.PractitionerRole
}

// RoleLocations is a role with the locations it is performed at.
type RoleLocations struct {
	Role      fhir.PractitionerRole
	Locations []fhir.Location
}

// IdentityRoleLocations is a practitioner with roles resolved down to
// their locations.
type IdentityRoleLocations struct {
	Practitioner fhir.Practitioner
	Roles        []RoleLocations
}

func (r Identity) identity() *fhir.Practitioner              { return &r.Practitioner }
func (r IdentityRoles) identity() *fhir.Practitioner         { return &r.Practitioner }
func (r IdentityRoleLocations) identity() *fhir.Practitioner { return &r.Practitioner }

// Standardizer converts raw resources into canonical records.
type Standardizer struct {
	now func() time.Time
}

// New creates a Standardizer stamping records with the current time.
func New() *Standardizer {
	return &Standardizer{now: time.Now}
}

// WithNow sets a fixed retrieval time for testing.
func (s *Standardizer) WithNow(t time.Time) *Standardizer {
	s.now = func() time.Time { return t }
	return s
}

// Standardize emits one record per identity, per role, or per (role,
// location) pair depending on the shape of raw. Every record carries the
// same identity fields. Fields that can't be extracted are null.
func (s *Standardizer) Standardize(source string, raw Raw) []model.Record {
	retrieved := s.now().UTC().Truncate(time.Second).Format(model.TimestampLayout)

	switch v := raw.(type) {
	case Identity:
		return []model.Record{s.identityRecord(source, retrieved, &v.Practitioner)}

	case IdentityRoles:
		out := make([]model.Record, 0, len(v.Roles))
		for i := range v.Roles {
			rec := s.identityRecord(source, retrieved, &v.Practitioner)
			applyRole(rec, &v.Roles[i])
			applyContact(rec, v.Roles[i].Telecom, nil)
			out = append(out, rec)
		}
		return out

	case IdentityRoleLocations:
		var out []model.Record
		for i := range v.Roles {
			rl := &v.Roles[i]
			for j := range rl.Locations {
				rec := s.identityRecord(source, retrieved, &v.Practitioner)
				applyRole(rec, &rl.Role)
				applyLocation(rec, &rl.Locations[j])
				applyContact(rec, rl.Role.Telecom, rl.Locations[j].Telecom)
				out = append(out, rec)
			}
		}
		return out

	default:
		return nil
	}
}

// StandardizeAll standardizes a batch from one source in input order.
func (s *Standardizer) StandardizeAll(source string, raws []Raw) []model.Record {
	var out []model.Record
	for _, raw := range raws {
		out = append(out, s.Standardize(source, raw)...)
	}
	return out
}

func (s *Standardizer) identityRecord(source, retrieved string, p *fhir.Practitioner) model.Record {
	rec := model.NewRecord()
	rec.Set(model.FieldEndpoint, source)
	rec.Set(model.FieldDateRetrieved, retrieved)
	rec.Set(model.FieldAccuracy, model.Unscored)

	name := ExtractName(p)
	rec.Set(model.FieldFullName, name.Full)
	rec.Set(model.FieldFirstName, name.First)
	rec.Set(model.FieldLastName, name.Last)

	rec.Set(model.FieldNPI, ExtractNPI(p))
	rec.Set(model.FieldGender, ExtractGender(p.Gender))
	rec.Set(model.FieldTaxonomy, ExtractTaxonomy(qualificationCodes(p)))
	rec.Set(model.FieldLastPracUpdate, ExtractTimestamp(p.LastUpdated()))
	return rec
}

// applyRole layers role fields onto rec. A taxonomy coded on the role's
// specialty takes precedence over the practitioner's qualifications.
func applyRole(rec model.Record, role *fhir.PractitionerRole) {
	rec.Set(model.FieldGroupName, ExtractGroupName(role))
	concepts := make([]fhir.CodeableConcept, 0, len(role.Specialty)+len(role.Code))
	concepts = append(concepts, role.Specialty...)
	concepts = append(concepts, role.Code...)
	if tax := ExtractTaxonomy(concepts); tax != nil {
		rec.Set(model.FieldTaxonomy, tax)
	}
	rec.Set(model.FieldLastPracRoleUpdate, ExtractTimestamp(role.LastUpdated()))
}

func applyLocation(rec model.Record, loc *fhir.Location) {
	addr := ExtractAddress(loc.Address)
	rec.Set(model.FieldADD1, addr.Line1)
	rec.Set(model.FieldADD2, addr.Line2)
	rec.Set(model.FieldCity, addr.City)
	rec.Set(model.FieldState, addr.State)
	rec.Set(model.FieldZip, addr.Zip)

	lat, lng := ExtractPosition(loc)
	rec.Set(model.FieldLat, lat)
	rec.Set(model.FieldLng, lng)
	rec.Set(model.FieldLastLocationUpdate, ExtractTimestamp(loc.LastUpdated()))
}

func applyContact(rec model.Record, role, location []fhir.ContactPoint) {
	rec.Set(model.FieldPhone, ExtractTelecom("phone", role, location))
	rec.Set(model.FieldFax, ExtractTelecom("fax", role, location))
	rec.Set(model.FieldEmail, ExtractTelecom("email", role, location))
}
