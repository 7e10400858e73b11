// Package fhir provides the subset of FHIR resource shapes published by
// insurance-network provider directories (Plan-Net style): Practitioner,
// PractitionerRole and Location, plus the search Bundle that carries them.
package fhir

// Code systems recognized by the directory extractors.
const (
	SystemNPI      = "http://hl7.org/fhir/sid/us-npi"
	SystemTaxonomy = "http://nucc.org/provider-taxonomy"
)

// Resource type names.
const (
	TypePractitioner     = "Practitioner"
	TypePractitionerRole = "PractitionerRole"
	TypeLocation         = "Location"
)

// Meta contains metadata about a resource. LastUpdated is kept as the raw
// instant string so extractors can truncate it without reformatting.
type Meta struct {
	VersionID   string `json:"versionId,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Identifier represents a FHIR Identifier.
type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

// CodeableConcept represents a concept with text and codings.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Coding represents a code from a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Reference represents a reference to another resource.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// HumanName represents a human name.
type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

// Address represents a postal address. Many directories publish only Text.
type Address struct {
	Use        string   `json:"use,omitempty"`
	Type       string   `json:"type,omitempty"`
	Text       string   `json:"text,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// ContactPoint represents a telecom detail.
type ContactPoint struct {
	System string `json:"system,omitempty"` // phone | fax | email | url | ...
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
	Rank   int    `json:"rank,omitempty"`
}

// Position is a Location's WGS84 coordinates.
type Position struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Altitude  float64 `json:"altitude,omitempty"`
}

// Practitioner is the identity resource for a clinician.
type Practitioner struct {
	ResourceType  string                      `json:"resourceType"`
	ID            string                      `json:"id,omitempty"`
	Meta          *Meta                       `json:"meta,omitempty"`
	Identifier    []Identifier                `json:"identifier,omitempty"`
	Active        bool                        `json:"active,omitempty"`
	Name          []HumanName                 `json:"name,omitempty"`
	Telecom       []ContactPoint              `json:"telecom,omitempty"`
	Gender        string                      `json:"gender,omitempty"`
	Address       []Address                   `json:"address,omitempty"`
	Qualification []PractitionerQualification `json:"qualification,omitempty"`
}

// PractitionerQualification represents a practitioner's qualifications.
type PractitionerQualification struct {
	Identifier []Identifier    `json:"identifier,omitempty"`
	Code       CodeableConcept `json:"code"`
	Issuer     *Reference      `json:"issuer,omitempty"`
}

// PractitionerRole links a practitioner to an organization, specialties and
// the locations where the role is performed.
type PractitionerRole struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id,omitempty"`
	Meta         *Meta             `json:"meta,omitempty"`
	Active       bool              `json:"active,omitempty"`
	Practitioner *Reference        `json:"practitioner,omitempty"`
	Organization *Reference        `json:"organization,omitempty"`
	Code         []CodeableConcept `json:"code,omitempty"`
	Specialty    []CodeableConcept `json:"specialty,omitempty"`
	Location     []Reference       `json:"location,omitempty"`
	Telecom      []ContactPoint    `json:"telecom,omitempty"`
}

// Location is a practice location.
type Location struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id,omitempty"`
	Meta         *Meta          `json:"meta,omitempty"`
	Status       string         `json:"status,omitempty"`
	Name         string         `json:"name,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
	Address      *Address       `json:"address,omitempty"`
	Position     *Position      `json:"position,omitempty"`
}

// lastUpdated tolerates a nil Meta.
func (m *Meta) lastUpdated() string {
	if m == nil {
		return ""
	}
	return m.LastUpdated
}

// LastUpdated returns the practitioner's meta.lastUpdated, or "".
func (p *Practitioner) LastUpdated() string { return p.Meta.lastUpdated() }

// LastUpdated returns the role's meta.lastUpdated, or "".
func (r *PractitionerRole) LastUpdated() string { return r.Meta.lastUpdated() }

// LastUpdated returns the location's meta.lastUpdated, or "".
func (l *Location) LastUpdated() string { return l.Meta.lastUpdated() }

// GetNPI returns the value of the first identifier tagged with the NPI
// system, and whether one was found.
func (p *Practitioner) GetNPI() (string, bool) {
	for _, id := range p.Identifier {
		if id.System == SystemNPI {
			return id.Value, true
		}
	}
	return "", false
}

// PrimaryName returns the first name entry, or nil.
func (p *Practitioner) PrimaryName() *HumanName {
	if len(p.Name) == 0 {
		return nil
	}
	return &p.Name[0]
}

// Ref returns the "Type/id" reference string for a resource.
func Ref(resourceType, id string) string {
	return resourceType + "/" + id
}
