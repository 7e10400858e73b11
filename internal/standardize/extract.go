package standardize

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/provdir/internal/model"
	"github.com/sells-group/provdir/pkg/fhir"
)

var (
	npiRe          = regexp.MustCompile(`^\d{10}$`)
	taxonomyFlatRe = regexp.MustCompile(`^\d{9}[A-Za-z]$`)
	taxonomyRe     = regexp.MustCompile(`^\d{3,}[A-Za-z]+\d+X$`)
	nonDigitRe     = regexp.MustCompile(`\D`)
)

// Name holds the parsed name fields. Nil pointers are nulls.
type Name struct {
	Full  *string
	First *string
	Last  *string
}

// ExtractName parses the practitioner's first name entry. FirstName is the
// first given name and LastName the family name, both title-cased; FullName
// is "Last, First" and requires both parts.
func ExtractName(p *fhir.Practitioner) Name {
	hn := p.PrimaryName()
	if hn == nil {
		return Name{}
	}

	var n Name
	if len(hn.Given) > 0 {
		n.First = titleCase(hn.Given[0])
	}
	n.Last = titleCase(hn.Family)
	if n.First != nil && n.Last != nil {
		full := *n.Last + ", " + *n.First
		n.Full = &full
	}
	return n
}

// titleCase normalizes a name part. A Caser is stateful, so one is built
// per call.
func titleCase(s string) *string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	out := cases.Title(language.English).String(s)
	return &out
}

// ExtractNPI returns the practitioner's NPI: the digits when valid, an
// annotated invalid marker otherwise, nil when no NPI identifier exists.
func ExtractNPI(p *fhir.Practitioner) any {
	v, ok := p.GetNPI()
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if !ValidNPI(v) {
		return model.InvalidPrefix + v
	}
	return v
}

// ValidNPI reports whether v is a 10-digit identifier.
func ValidNPI(v string) bool {
	return npiRe.MatchString(v)
}

// ValidTaxonomy reports whether code is a well-formed provider taxonomy
// code: nine digits and a letter, or digits, letters, digits and a
// trailing X.
func ValidTaxonomy(code string) bool {
	return taxonomyFlatRe.MatchString(code) || taxonomyRe.MatchString(code)
}

// ExtractTaxonomy scans concepts for the first coding in the taxonomy
// system and validates it.
func ExtractTaxonomy(concepts []fhir.CodeableConcept) any {
	for _, cc := range concepts {
		for _, c := range cc.Coding {
			if c.System != fhir.SystemTaxonomy {
				continue
			}
			code := strings.TrimSpace(c.Code)
			if code == "" {
				continue
			}
			if !ValidTaxonomy(code) {
				return model.InvalidPrefix + code
			}
			return code
		}
	}
	return nil
}

// qualificationCodes collects the code concepts of every qualification.
func qualificationCodes(p *fhir.Practitioner) []fhir.CodeableConcept {
	out := make([]fhir.CodeableConcept, 0, len(p.Qualification))
	for _, q := range p.Qualification {
		out = append(out, q.Code)
	}
	return out
}

// ExtractGender capitalizes the administrative gender code.
func ExtractGender(gender string) any {
	g := strings.ToLower(strings.TrimSpace(gender))
	if g == "" {
		return nil
	}
	return strings.ToUpper(g[:1]) + g[1:]
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// ExtractTelecom returns the first value for system across the lists in
// order. Phone and fax values are reduced to digits; an empty result is nil.
func ExtractTelecom(system string, lists ...[]fhir.ContactPoint) any {
	for _, list := range lists {
		for _, cp := range list {
			if !strings.EqualFold(cp.System, system) {
				continue
			}
			v := strings.TrimSpace(cp.Value)
			if system == "phone" || system == "fax" {
				v = DigitsOnly(v)
			}
			if v != "" {
				return v
			}
		}
	}
	return nil
}

// fallbackLayouts are tried against the leading characters of stamps that
// don't parse as RFC 3339.
var fallbackLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ExtractTimestamp truncates a FHIR instant to second precision in UTC.
// Unparseable values yield nil.
func ExtractTimestamp(stamp string) any {
	stamp = strings.TrimSpace(stamp)
	if stamp == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		return t.UTC().Truncate(time.Second).Format(model.TimestampLayout)
	}
	for _, layout := range fallbackLayouts {
		if len(stamp) < len(layout) {
			continue
		}
		if t, err := time.Parse(layout, stamp[:len(layout)]); err == nil {
			return t.UTC().Format(model.TimestampLayout)
		}
	}
	return nil
}

// Address holds parsed postal fields. Empty strings are nulls.
type Address struct {
	Line1 string
	Line2 string
	City  string
	State string
	Zip   string
}

// SplitAddress splits a free-text address on commas. With four or more
// parts the last three are city, state and zip, the first is line 1 and
// anything between is line 2. Fewer parts fill line 1, city and state in
// order.
func SplitAddress(text string) Address {
	var parts []string
	for _, p := range strings.Split(text, ",") {
		parts = append(parts, strings.TrimSpace(p))
	}
	n := len(parts)

	if n >= 4 {
		return Address{
			Line1: parts[0],
			Line2: strings.Join(parts[1:n-3], ", "),
			City:  parts[n-3],
			State: parts[n-2],
			Zip:   parts[n-1],
		}
	}

	var a Address
	fields := []*string{&a.Line1, &a.City, &a.State}
	for i, p := range parts {
		*fields[i] = p
	}
	return a
}

// ExtractAddress prefers the free-text form and falls back to the
// structured line/city/state/postalCode fields.
func ExtractAddress(addr *fhir.Address) Address {
	if addr == nil {
		return Address{}
	}
	if strings.TrimSpace(addr.Text) != "" {
		return SplitAddress(addr.Text)
	}

	a := Address{
		City:  strings.TrimSpace(addr.City),
		State: strings.TrimSpace(addr.State),
		Zip:   strings.TrimSpace(addr.PostalCode),
	}
	if len(addr.Line) > 0 {
		a.Line1 = strings.TrimSpace(addr.Line[0])
	}
	if len(addr.Line) > 1 {
		a.Line2 = strings.TrimSpace(strings.Join(addr.Line[1:], ", "))
	}
	return a
}

// ExtractPosition returns a location's coordinates, or nils.
func ExtractPosition(loc *fhir.Location) (lat, lng any) {
	if loc.Position == nil {
		return nil, nil
	}
	return loc.Position.Latitude, loc.Position.Longitude
}

// ExtractGroupName returns the role's organization display name.
func ExtractGroupName(role *fhir.PractitionerRole) any {
	if role.Organization == nil {
		return nil
	}
	name := strings.TrimSpace(role.Organization.Display)
	if name == "" {
		return nil
	}
	return name
}
