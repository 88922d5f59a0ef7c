package dpd

import (
	"fmt"
	"strings"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

// Carrier is the registry name of DPD.
const Carrier = "dpd"

const barcodeLength = 28

// Barcode is a decoded DPD label barcode.
type Barcode struct {
	Raw            string `json:"raw"`
	TrackingNumber string `json:"trackingNumber"`
	ProductCode    string `json:"productCode"`
}

// IsBarcode reports whether value has the shape of a DPD label barcode.
func IsBarcode(value string) bool {
	return len(value) == barcodeLength && value[0] == '%'
}

// DecodeBarcode extracts the tracking number and product code from a
// scanned DPD label.
func DecodeBarcode(value string) (Barcode, error) {
	value = strings.TrimSpace(value)
	if !IsBarcode(value) {
		return Barcode{}, tracking.NewParseError(Carrier, "barcode", value,
			fmt.Errorf("%w: want %d characters starting with %%", tracking.ErrUnsupportedIdentifier, barcodeLength))
	}
	return Barcode{
		Raw:            value,
		TrackingNumber: value[8:22],
		ProductCode:    value[22:25],
	}, nil
}
