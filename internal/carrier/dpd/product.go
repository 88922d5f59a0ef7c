package dpd

// products maps the service codes of the DPD status reporting format to
// product names.
var products = map[string]string{
	"101": "Normalpaket",
	"120": "Normalpaket",
	"102": "Normalpaket, Gefahrgut",
	"105": "Normalpaket, unfrei",
	"124": "Normalpaket, unfrei",
	"109": "Normalpaket, Nachnahme",
	"128": "Normalpaket, Nachnahme",
	"113": "Normalpaket, Austauschpaket",
	"132": "Normalpaket, Austauschpaket",
	"117": "Normalpaket, Mitnahmenpaket",
	"118": "Normalpaket, Austauschpaket (retour)",
	"136": "Kleinpaket",
	"146": "Kleinpaket",
	"138": "Kleinpaket, unfrei",
	"148": "Kleinpaket, unfrei",
	"140": "Kleinpaket, Nachnahme",
	"150": "Kleinpaket, Nachnahme",
	"142": "Kleinpaket, Austauschpaket",
	"152": "Kleinpaket, Austauschpaket",
	"144": "Kleinpaket, Mitnahmenpaket",
	"145": "Kleinpaket, Austauschpaket (retour)",
	"154": "Parcelletter",
	"155": "Garantiepaket",
	"168": "Garantiepaket",
	"158": "Garantiepaket, unfrei",
	"171": "Garantiepaket, unfrei",
	"161": "Garantiepaket, Nachnahme",
	"164": "Garantiepaket, Austauschpaket",
	"177": "Garantiepaket, Austauschpaket",
	"166": "Garantiepaket, Austauschpaket (retour)",
	"179": "Express 10:00",
	"225": "Express 12:00",
	"228": "Express 12:00 Samstag",
	"298": "Retoure an Versender",
	"299": "Systemretoure international Express",
	"300": "Systemretoure",
	"327": "Normalpaket B2C",
	"328": "Kleinpaket B2C",
	"332": "Retoure",
	"365": "Reifenlogistik",
	"817": "Postübergabe",
}

// ProductName returns the product name of a barcode service code.
func ProductName(code string) (string, bool) {
	name, ok := products[code]
	return name, ok
}

// IsExpressProduct reports whether code is one of the express services.
func IsExpressProduct(code string) bool {
	switch code {
	case "179", "225", "228", "299":
		return true
	}
	return false
}
