package gls

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

// Parcel is a GLS shipment. The status payload is fetched on first use and
// reused for the lifetime of the value.
type Parcel struct {
	client   *Client
	number   Number
	postcode string
	status   tracking.Lazy[*tuStatus]
}

// NewParcel returns a parcel for a tracking number or code. The optional
// postcode unlocks recipient names on delivery events.
func (c *Client) NewParcel(value, postcode string) *Parcel {
	return c.parcel(ParseNumber(strings.TrimSpace(value)), postcode)
}

// FromBarcode returns a parcel for a scanned label.
func (c *Client) FromBarcode(barcode string) (*Parcel, error) {
	n, err := DecodeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	return c.parcel(n, ""), nil
}

func (c *Client) parcel(n Number, postcode string) *Parcel {
	return &Parcel{client: c, number: n, postcode: strings.TrimSpace(postcode)}
}

// Carrier returns the registry name of the carrier.
func (p *Parcel) Carrier() string { return Carrier }

// Fetch loads the status payload. Repeated calls are no-ops.
func (p *Parcel) Fetch(ctx context.Context) error {
	_, err := p.data(ctx)
	return err
}

func (p *Parcel) data(ctx context.Context) (*tuStatus, error) {
	return p.status.Get(ctx, func(ctx context.Context) (*tuStatus, error) {
		return p.client.fetchStatus(ctx, p.number.Query())
	})
}

// TrackingNumber returns the 12 digit tracking number, asking the backend
// when the parcel was created from a tracking code.
func (p *Parcel) TrackingNumber(ctx context.Context) (string, error) {
	if p.number.TrackingNumber != "" {
		return p.number.TrackingNumber, nil
	}
	st, err := p.data(ctx)
	if err != nil {
		return "", err
	}
	return WithCheckDigit(st.TUNo)
}

// TrackingLink returns the public tracking page of the parcel.
func (p *Parcel) TrackingLink(ctx context.Context) (string, error) {
	tn, err := p.TrackingNumber(ctx)
	if err != nil {
		return "", err
	}
	return DefaultLinkURL + "?match=" + url.QueryEscape(tn), nil
}

// Product returns the product name reported in the status payload, falling
// back to the product id encoded in the tracking number.
func (p *Parcel) Product(ctx context.Context) (string, error) {
	st, err := p.data(ctx)
	if err != nil {
		return "", err
	}
	if name := st.info("PRODUCT"); name != "" {
		return name, nil
	}
	tn, err := p.TrackingNumber(ctx)
	if err != nil {
		return "", err
	}
	return ProductName(ProductID(tn)), nil
}

// Services returns the product flags encoded in the tracking number.
func (p *Parcel) Services(ctx context.Context) (Services, error) {
	tn, err := p.TrackingNumber(ctx)
	if err != nil {
		return Services{}, err
	}
	return ServicesFor(ProductID(tn)), nil
}

// IsExpress reports whether the parcel ships as Express-Parcel.
func (p *Parcel) IsExpress(ctx context.Context) (bool, error) {
	s, err := p.Services(ctx)
	return s.Express, err
}

// Recipient returns the signature name attached to the status payload.
func (p *Parcel) Recipient(ctx context.Context) (string, error) {
	st, err := p.data(ctx)
	if err != nil {
		return "", err
	}
	if st.Signature == nil {
		return "", nil
	}
	return st.Signature.Value, nil
}

// Weight returns the parcel weight in kilograms. ok is false when the
// backend did not report one.
func (p *Parcel) Weight(ctx context.Context) (w decimal.Decimal, ok bool, err error) {
	st, err := p.data(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	raw := st.info("WEIGHT")
	if raw == "" {
		return decimal.Zero, false, nil
	}
	for _, suffix := range []string{" kg", " #Missing TextValue: 25197"} {
		if value, found := strings.CutSuffix(raw, suffix); found {
			w, err := decimal.NewFromString(value)
			if err != nil {
				return decimal.Zero, false, tracking.NewParseError(Carrier, "weight", raw, err)
			}
			return w, true, nil
		}
	}
	return decimal.Zero, false, tracking.NewParseError(Carrier, "weight", raw, errors.New("unknown unit"))
}

// References are the shipper and parcel shop references of a parcel.
type References struct {
	CustomerID   string     `json:"customerId,omitempty"`
	ParcelShopQR *uuid.UUID `json:"parcelShopQr,omitempty"`
	Shipment     string     `json:"shipment,omitempty"`
	Parcel       string     `json:"parcel,omitempty"`
}

// References returns the known references of the parcel.
func (p *Parcel) References(ctx context.Context) (References, error) {
	st, err := p.data(ctx)
	if err != nil {
		return References{}, err
	}
	var refs References
	for _, ref := range st.References {
		switch {
		case ref.Type == "GLSREF" && ref.Name == "Origin National Reference in Unicode":
			refs.CustomerID = ref.Value
		case ref.Type == "GLSREF" && ref.Name == "Reference number created via device: Smartphone.":
			id, err := uuid.Parse(ref.Value)
			if err != nil {
				return References{}, tracking.NewParseError(Carrier, "parcel shop reference", ref.Value, err)
			}
			refs.ParcelShopQR = &id
		case ref.Type == "CUSTREF" && ref.Name == "Customer's own reference number":
			refs.Shipment = ref.Value
		case ref.Type == "CUSTREF" && ref.Name == "Customers own reference number - per TU":
			refs.Parcel = ref.Value
		}
	}
	return refs, nil
}

// Details are the GLS specific attributes of a parcel.
type Details struct {
	WeightKg     *decimal.Decimal `json:"weightKg,omitempty"`
	References   References       `json:"references"`
	Services     Services         `json:"services"`
	TrackingLink string           `json:"trackingLink"`
}

// Details collects weight, references, service flags and the public
// tracking link.
func (p *Parcel) Details(ctx context.Context) (Details, error) {
	var d Details
	weight, ok, err := p.Weight(ctx)
	if err != nil {
		return Details{}, err
	}
	if ok {
		d.WeightKg = &weight
	}
	if d.References, err = p.References(ctx); err != nil {
		return Details{}, err
	}
	if d.Services, err = p.Services(ctx); err != nil {
		return Details{}, err
	}
	if d.TrackingLink, err = p.TrackingLink(ctx); err != nil {
		return Details{}, err
	}
	return d, nil
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
