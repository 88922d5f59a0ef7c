package gls

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

// Carrier is the registry name of GLS.
const Carrier = "gls"

const (
	bodyDigits      = 11
	barcodeLength   = 123
	barcodeTrackOff = 33
	barcodeTrackLen = 8
)

var (
	bodyPattern   = regexp.MustCompile(`^[0-9]{11}$`)
	numberPattern = regexp.MustCompile(`^[0-9]{12}$`)
	codePattern   = regexp.MustCompile(`^[A-Z0-9]{8}$`)

	errNotNumeric = errors.New("not a numeric tracking number")
)

// CheckDigit computes the GLS check digit for a numeric tracking number
// body. Digits are weighted 3,1,3,1,... from the most significant end.
func CheckDigit(body string) (int, error) {
	if body == "" {
		return 0, tracking.NewParseError(Carrier, "tracking number", body, errNotNumeric)
	}
	sum := 0
	for i, r := range body {
		if r < '0' || r > '9' {
			return 0, tracking.NewParseError(Carrier, "tracking number", body, errNotNumeric)
		}
		weight := 1
		if i%2 == 0 {
			weight = 3
		}
		sum += int(r-'0') * weight
	}
	digit := 10 - (sum+1)%10
	if digit == 10 {
		digit = 0
	}
	return digit, nil
}

// WithCheckDigit appends the check digit to body.
func WithCheckDigit(body string) (string, error) {
	d, err := CheckDigit(body)
	if err != nil {
		return "", err
	}
	return body + strconv.Itoa(d), nil
}

// ValidCheckDigit reports whether the last digit of number is the check
// digit of the preceding ones.
func ValidCheckDigit(number string) bool {
	if len(number) < 2 {
		return false
	}
	d, err := CheckDigit(number[:len(number)-1])
	if err != nil {
		return false
	}
	return number[len(number)-1] == byte('0'+d)
}

// Number identifies a GLS parcel either by its 12 digit tracking number or
// by an opaque tracking code that the backend resolves.
type Number struct {
	TrackingNumber string
	TrackingCode   string
}

// Query returns the value the tracking backend should be asked for.
func (n Number) Query() string {
	if n.TrackingNumber != "" {
		return n.TrackingNumber
	}
	return n.TrackingCode
}

// ParseNumber accepts an 11 digit body (the check digit is appended), a 12
// digit number with a valid check digit, or falls back to an opaque code.
func ParseNumber(value string) Number {
	switch {
	case bodyPattern.MatchString(value):
		n, _ := WithCheckDigit(value)
		return Number{TrackingNumber: n}
	case numberPattern.MatchString(value) && ValidCheckDigit(value):
		return Number{TrackingNumber: value}
	case codePattern.MatchString(value):
		return Number{TrackingCode: value}
	}
	return Number{TrackingCode: value}
}

// DecodeBarcode extracts the parcel identifier from a scanned GLS label:
// either the 123 character 2D payload or a check-digited 12 digit number.
func DecodeBarcode(barcode string) (Number, error) {
	if len(barcode) == barcodeLength {
		return Number{TrackingCode: barcode[barcodeTrackOff : barcodeTrackOff+barcodeTrackLen]}, nil
	}
	if numberPattern.MatchString(barcode) {
		if ValidCheckDigit(barcode) {
			return Number{TrackingNumber: barcode}, nil
		}
		return Number{}, tracking.NewParseError(Carrier, "barcode", barcode, errors.New("check digit mismatch"))
	}
	return Number{}, tracking.NewParseError(Carrier, "barcode", barcode, tracking.ErrUnsupportedIdentifier)
}
