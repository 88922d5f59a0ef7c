package tracking

// Store is a pickup or drop-off point such as a parcel shop.
type Store struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	CountryCode  string `json:"countryCode"`
	OpeningHours string `json:"openingHours,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Fax          string `json:"fax,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Location reduces the store to its city level location.
func (s Store) Location() Location {
	return Location{City: s.City, CountryCode: s.CountryCode}
}
