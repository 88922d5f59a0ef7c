package dpd

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

// ContactMapping selects how the contact table of a parcel shop is read.
type ContactMapping int

const (
	// ContactMappingLabelled stores each row in the field its label names.
	ContactMappingLabelled ContactMapping = iota
	// ContactMappingVendor reproduces the DPD web client, which shows the
	// "Phone:" row as e-mail and the "Fax:" row as phone.
	ContactMappingVendor
)

// ParseContactMapping maps "labelled" and "vendor" to a ContactMapping.
func ParseContactMapping(value string) (ContactMapping, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "labelled", "labeled":
		return ContactMappingLabelled, nil
	case "vendor":
		return ContactMappingVendor, nil
	}
	return 0, errors.New("dpd: unknown contact mapping " + value)
}

var addressTailPattern = regexp.MustCompile(`^(.+?) (.+) \(([A-Z]{2})\)$`)

type mode int

const (
	modeIdle mode = iota
	modeAddress
	modeContact
	modeOpeningHours
)

type phase int

const (
	phaseSection phase = iota
	phaseHeading
	phaseRow
	phaseCell
)

// storeParser walks the token stream of a parcel shop fragment. mode names
// the section being read and phase the position inside it.
type storeParser struct {
	mode  mode
	phase phase
	depth int

	address      strings.Builder
	contact      [][]string
	openingHours [][]string
}

var sectionModes = map[string]mode{
	"address":       modeAddress,
	"contact":       modeContact,
	"opening-hours": modeOpeningHours,
}

func (p *storeParser) rows() *[][]string {
	switch p.mode {
	case modeContact:
		return &p.contact
	case modeOpeningHours:
		return &p.openingHours
	}
	return nil
}

func (p *storeParser) start(tag string, attrs []html.Attribute) {
	if p.mode == modeIdle {
		if tag != "div" {
			return
		}
		if m, ok := sectionModes[attr(attrs, "class")]; ok {
			p.mode, p.phase, p.depth = m, phaseSection, 0
		}
		return
	}
	switch {
	case tag == "div":
		p.depth++
	case tag == "br":
		p.selfClosing(tag)
	case p.phase == phaseSection && tag == "b":
		p.phase = phaseHeading
	case p.phase == phaseSection && tag == "tr":
		p.phase = phaseRow
		if rows := p.rows(); rows != nil {
			*rows = append(*rows, nil)
		}
	case p.phase == phaseRow && (tag == "td" || tag == "th"):
		p.phase = phaseCell
		if rows := p.rows(); rows != nil && len(*rows) > 0 {
			last := &(*rows)[len(*rows)-1]
			*last = append(*last, "")
		}
	}
}

func (p *storeParser) end(tag string) {
	switch {
	case p.mode == modeIdle:
	case tag == "div" && p.depth > 0:
		p.depth--
	case tag == "div":
		p.mode, p.phase = modeIdle, phaseSection
	case p.phase == phaseHeading && tag == "b":
		p.phase = phaseSection
	case p.phase == phaseRow && tag == "tr":
		p.phase = phaseSection
	case p.phase == phaseCell && (tag == "td" || tag == "th"):
		p.phase = phaseRow
	}
}

func (p *storeParser) selfClosing(tag string) {
	if p.mode == modeAddress && p.phase != phaseHeading && tag == "br" {
		p.address.WriteByte('\n')
	}
}

func (p *storeParser) text(data string) {
	if p.phase == phaseHeading {
		return
	}
	data = strings.ReplaceAll(data, "\u00a0", " ")
	switch {
	case p.mode == modeAddress:
		p.address.WriteString(data)
	case p.phase == phaseCell:
		rows := p.rows()
		if rows == nil || len(*rows) == 0 {
			return
		}
		row := (*rows)[len(*rows)-1]
		if len(row) > 0 {
			row[len(row)-1] += data
		}
	}
}

func attr(attrs []html.Attribute, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ParseStore reads the parcel shop details fragment DPD embeds in tracking
// records. name is the shop name shown as the record label.
func ParseStore(name, fragment string, mapping ContactMapping) (*tracking.Store, error) {
	p := &storeParser{}
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken:
			p.start(tok.Data, tok.Attr)
		case html.EndTagToken:
			p.end(tok.Data)
		case html.SelfClosingTagToken:
			p.selfClosing(tok.Data)
		case html.TextToken:
			p.text(tok.Data)
		}
	}

	store := &tracking.Store{Name: strings.TrimSpace(name)}
	if err := p.fillAddress(store, fragment); err != nil {
		return nil, err
	}
	p.fillContact(store, mapping)
	hours, err := p.hours(fragment)
	if err != nil {
		return nil, err
	}
	store.OpeningHours = hours
	return store, nil
}

func (p *storeParser) fillAddress(store *tracking.Store, fragment string) error {
	var lines []string
	for _, line := range strings.Split(p.address.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return tracking.NewParseError(Carrier, "store address", fragment, errors.New("no address"))
	}
	tail := lines[len(lines)-1]
	m := addressTailPattern.FindStringSubmatch(tail)
	if m == nil {
		return tracking.NewParseError(Carrier, "store address", tail, errors.New(`want "<postcode> <city> (<CC>)"`))
	}
	store.Address = strings.Join(lines[:len(lines)-1], "\n")
	store.Postcode, store.City, store.CountryCode = m[1], m[2], m[3]
	return nil
}

func (p *storeParser) fillContact(store *tracking.Store, mapping ContactMapping) {
	for _, row := range p.contact {
		if len(row) != 2 {
			continue
		}
		label, value := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		switch {
		case label == "Phone:" && mapping == ContactMappingVendor:
			store.Email = value
		case label == "Fax:" && mapping == ContactMappingVendor:
			store.Phone = value
		case label == "Phone:":
			store.Phone = value
		case label == "Fax:":
			store.Fax = value
		case label == "E-mail:" || label == "Email:":
			store.Email = value
		}
	}
}

func (p *storeParser) hours(fragment string) (string, error) {
	out := make([]string, 0, len(p.openingHours))
	for _, row := range p.openingHours {
		if len(row) > 1 && strings.TrimSpace(row[1]) == "closed" {
			continue
		}
		if len(row) != 3 {
			return "", tracking.NewParseError(Carrier, "opening hours", fragment, errors.New("want day, morning and afternoon cells"))
		}
		day := strings.TrimSpace(row[0])
		if len(day) < 2 || tracking.DayIndex(day[:2]) < 0 {
			return "", tracking.NewParseError(Carrier, "opening hours", day, errors.New("unknown day"))
		}
		morning, afternoon := compactRange(row[1]), compactRange(row[2])
		if len(morning) >= 5 && len(afternoon) >= 5 && morning[len(morning)-5:] == afternoon[:5] {
			out = append(out, day[:2]+" "+morning[:5]+"-"+afternoon[len(afternoon)-5:])
			continue
		}
		out = append(out, day[:2]+" "+morning+","+afternoon)
	}
	return strings.Join(out, "; "), nil
}

// compactRange turns "08:00 - 12:00" into "08:00-12:00".
func compactRange(value string) string {
	from, to, ok := strings.Cut(value, "-")
	if !ok {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(from) + "-" + strings.TrimSpace(to)
}
