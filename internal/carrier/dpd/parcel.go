package dpd

import (
	"context"
	"strings"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

// Parcel is a DPD shipment. The status payload is fetched on first use and
// reused for the lifetime of the value.
type Parcel struct {
	client         *Client
	barcode        *Barcode
	trackingNumber string
	status         tracking.Lazy[*trackingStatus]
	recipient      tracking.Lazy[string]
}

// NewParcel returns a parcel for a tracking number or a scanned barcode.
func (c *Client) NewParcel(value string) *Parcel {
	value = strings.TrimSpace(value)
	if b, err := DecodeBarcode(value); err == nil {
		return &Parcel{client: c, barcode: &b, trackingNumber: b.TrackingNumber}
	}
	return &Parcel{client: c, trackingNumber: value}
}

// FromBarcode returns a parcel for a scanned label.
func (c *Client) FromBarcode(barcode string) (*Parcel, error) {
	b, err := DecodeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	return &Parcel{client: c, barcode: &b, trackingNumber: b.TrackingNumber}, nil
}

// Carrier returns the registry name of the carrier.
func (p *Parcel) Carrier() string { return Carrier }

// Barcode returns the decoded label barcode, if the parcel was created from one.
func (p *Parcel) Barcode() (Barcode, bool) {
	if p.barcode == nil {
		return Barcode{}, false
	}
	return *p.barcode, true
}

// Fetch loads the status payload. Repeated calls are no-ops.
func (p *Parcel) Fetch(ctx context.Context) error {
	_, err := p.data(ctx)
	return err
}

func (p *Parcel) data(ctx context.Context) (*trackingStatus, error) {
	return p.status.Get(ctx, func(ctx context.Context) (*trackingStatus, error) {
		return p.client.fetchStatus(ctx, p.trackingNumber)
	})
}

// TrackingNumber returns the 14 digit parcel number.
func (p *Parcel) TrackingNumber(context.Context) (string, error) {
	return p.trackingNumber, nil
}

// Product names the product from the barcode service code when it is known
// and asks the backend otherwise.
func (p *Parcel) Product(ctx context.Context) (string, error) {
	if p.barcode != nil {
		if name, ok := ProductName(p.barcode.ProductCode); ok {
			return name, nil
		}
	}
	st, err := p.data(ctx)
	if err != nil {
		return "", err
	}
	return st.ShipmentInfo.Product, nil
}

// IsExpress reports whether the barcode names an express service. Parcels
// without a barcode are reported as not express.
func (p *Parcel) IsExpress(context.Context) (bool, error) {
	if p.barcode == nil {
		return false, nil
	}
	return IsExpressProduct(p.barcode.ProductCode), nil
}

// Recipient returns the name the parcel was delivered to, or "" before delivery.
func (p *Parcel) Recipient(ctx context.Context) (string, error) {
	return p.recipient.Get(ctx, func(ctx context.Context) (string, error) {
		return p.client.fetchRecipient(ctx, p.trackingNumber)
	})
}

// Events derives the parcel timeline in chronological order.
func (p *Parcel) Events(ctx context.Context) ([]tracking.Event, error) {
	st, err := p.data(ctx)
	if err != nil {
		return nil, err
	}
	return p.derive(ctx, st)
}

// Loads reports how many times the status payload was requested.
func (p *Parcel) Loads() int {
	return p.status.Loads()
}
