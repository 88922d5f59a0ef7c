package gls

import (
	"errors"
	"regexp"
	"strings"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

var (
	annualClosingPattern = regexp.MustCompile(`^Annual closing: \d\d/\d\d/\d{4} - \d\d/\d\d/\d{4}`)
	dayHeaderPattern     = regexp.MustCompile(`^([A-Z][a-z])\.(?: - ([A-Z][a-z])\.)?: `)
	timeRangePattern     = regexp.MustCompile(`^#(\d\d:\d\d) - (\d\d:\d\d)$`)
)

const (
	closedToken     = "#--:-- - --:--"
	pickupTimeLabel = "Indleveringstid:"
)

type dayEntry struct {
	days   string
	ranges []string
}

// ParseOpeningHours converts the pipe-delimited opening hours of the GLS
// parcel shop geocoder into "<Day[-Day]> <from>-<to>[,<from>-<to>]" entries
// joined by "; ". Annual closures and days without a time range are dropped.
func ParseOpeningHours(value string) (string, error) {
	var entries []dayEntry
	for _, token := range strings.Split(value, "|") {
		if annualClosingPattern.MatchString(token) {
			continue
		}
		if m := dayHeaderPattern.FindStringSubmatch(token); m != nil {
			days, err := dayRange(m[1], m[2], value)
			if err != nil {
				return "", err
			}
			entries = append(entries, dayEntry{days: days})
			token = token[len(m[0]):]
		}

		switch {
		case token == closedToken:
			if len(entries) == 0 {
				return "", tracking.NewParseError(Carrier, "opening hours", value, errors.New("closed marker without day"))
			}
			entries = entries[:len(entries)-1]
		case strings.HasPrefix(token, pickupTimeLabel):
		default:
			m := timeRangePattern.FindStringSubmatch(token)
			if m == nil {
				return "", tracking.NewParseError(Carrier, "opening hours", value, errors.New("unrecognized token "+quote(token)))
			}
			if len(entries) == 0 {
				return "", tracking.NewParseError(Carrier, "opening hours", value, errors.New("time range without day"))
			}
			last := &entries[len(entries)-1]
			last.ranges = append(last.ranges, m[1]+"-"+m[2])
		}
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if len(e.ranges) == 0 {
			continue
		}
		out = append(out, e.days+" "+strings.Join(e.ranges, ","))
	}
	return strings.Join(out, "; "), nil
}

func dayRange(start, end, input string) (string, error) {
	if tracking.DayIndex(start) < 0 {
		return "", tracking.NewParseError(Carrier, "opening hours", input, errors.New("unknown day "+quote(start)))
	}
	if end == "" {
		return start, nil
	}
	if tracking.DayIndex(end) < 0 {
		return "", tracking.NewParseError(Carrier, "opening hours", input, errors.New("unknown day "+quote(end)))
	}
	return start + "-" + end, nil
}

func quote(s string) string {
	return `"` + s + `"`
}
