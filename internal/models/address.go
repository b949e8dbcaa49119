package models

import "strings"

// Address is a postal address. Origin addresses carry an ID assigned
// by the product catalog; destination addresses usually do not.
type Address struct {
	ID         string `json:"id,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	// Verified is set once the address has passed verification, so
	// repeated calculation passes skip the verification round trip.
	Verified bool `json:"verified,omitempty"`
}

// Zip5 returns the five-digit zone of the postal code.
func (a Address) Zip5() string {
	code, _, _ := strings.Cut(a.PostalCode, "-")
	if len(code) > 5 {
		code = code[:5]
	}
	return code
}

// Zip4 returns the +4 extension of the postal code, if present.
func (a Address) Zip4() string {
	_, ext, ok := strings.Cut(a.PostalCode, "-")
	if !ok {
		return ""
	}
	return ext
}

// Key returns the identity used to partition packages by origin. The
// catalog-assigned ID wins when present; otherwise the textual form.
func (a Address) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return strings.ToUpper(strings.Join([]string{a.Line1, a.City, a.State, a.Zip5(), a.Country}, "|"))
}

// Complete reports whether the address carries enough data for a tax
// lookup in the given country. An incomplete destination is expected
// mid-checkout and is not an error.
func (a Address) Complete(country string) bool {
	return strings.EqualFold(a.Country, country) && a.Zip5() != ""
}
