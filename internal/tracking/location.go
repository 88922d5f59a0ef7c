package tracking

import "regexp"

var cityCountryPattern = regexp.MustCompile(`^(.+) \(([A-Z]{2})\)$`)

// Location is a coarse place reported by a carrier scan.
type Location struct {
	City        string `json:"city"`
	CountryCode string `json:"countryCode,omitempty"`
}

// ParseLocation builds a Location from a composite "<city> (<CC>)" string.
// Strings without the country suffix keep the whole value as the city.
func ParseLocation(value string) Location {
	if m := cityCountryPattern.FindStringSubmatch(value); m != nil {
		return Location{City: m[1], CountryCode: m[2]}
	}
	return Location{City: value}
}

// String renders the location the way carriers print it.
func (l Location) String() string {
	if l.CountryCode == "" {
		return l.City
	}
	return l.City + " (" + l.CountryCode + ")"
}
