package gls

type statusPayload struct {
	TUStatus []tuStatus `json:"tuStatus"`
}

type tuStatus struct {
	TUNo       string         `json:"tuNo"`
	Infos      []info         `json:"infos"`
	References []reference    `json:"references"`
	Signature  *signature     `json:"signature"`
	ParcelShop *parcelShop    `json:"parcelShop"`
	History    []historyEntry `json:"history"`
}

type info struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type reference struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type signature struct {
	Value string `json:"value"`
}

type parcelShop struct {
	ID string `json:"psID"`
}

type historyEntry struct {
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Description string  `json:"evtDscr"`
	Address     address `json:"address"`
}

type address struct {
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
}

type recipientPayload struct {
	Signature *signature `json:"signature"`
}

type geocoderPayload struct {
	Geometries []struct {
		Attributes shopAttributes `json:"attributes"`
	} `json:"geometries"`
}

type shopAttributes struct {
	Name         string `json:"NAME1"`
	Street       string `json:"STREET"`
	Zip          string `json:"ZIP"`
	City         string `json:"CITY"`
	Country      string `json:"COUNTRY"`
	Phone        string `json:"PHONE"`
	Fax          string `json:"FAX"`
	Email        string `json:"EMAIL"`
	OpeningHours string `json:"DESCRIPTION"`
}

func (s *tuStatus) info(kind string) string {
	for _, i := range s.Infos {
		if i.Type == kind {
			return i.Value
		}
	}
	return ""
}
