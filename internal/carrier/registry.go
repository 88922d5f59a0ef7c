// Package carrier dispatches tracking identifiers to the carrier adapters
// and assembles carrier-agnostic reports.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/parceltrack/internal/carrier/dpd"
	"github.com/noah-isme/parceltrack/internal/carrier/gls"
	"github.com/noah-isme/parceltrack/internal/obs"
	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport"
)

// ErrUnknownCarrier is returned for carrier names the registry does not serve.
var ErrUnknownCarrier = errors.New("carrier: unknown carrier")

// Parcel is the view every carrier adapter offers.
type Parcel interface {
	Carrier() string
	TrackingNumber(ctx context.Context) (string, error)
	Product(ctx context.Context) (string, error)
	IsExpress(ctx context.Context) (bool, error)
	Recipient(ctx context.Context) (string, error)
	Events(ctx context.Context) ([]tracking.Event, error)
}

// Report is the normalized tracking result of one parcel.
type Report struct {
	Carrier        string           `json:"carrier"`
	TrackingNumber string           `json:"trackingNumber"`
	Product        string           `json:"product"`
	Express        bool             `json:"express"`
	Recipient      string           `json:"recipient,omitempty"`
	Events         []tracking.Event `json:"events"`
	// Details holds carrier specific attributes, e.g. gls.Details.
	Details any `json:"details,omitempty"`
}

// Options configures the carrier clients of a registry.
type Options struct {
	Transport      transport.Transport
	Zone           *time.Location
	DPDBaseURL     string
	GLSBaseURL     string
	GeocoderURL    string
	HereAppID      string
	HereAppCode    string
	HereLayerID    string
	ContactMapping dpd.ContactMapping
}

// Registry holds one client per supported carrier.
type Registry struct {
	DPD *dpd.Client
	GLS *gls.Client
}

// NewRegistry builds clients for every supported carrier.
func NewRegistry(opts Options) (*Registry, error) {
	d, err := dpd.NewClient(dpd.Config{
		Transport:      opts.Transport,
		BaseURL:        opts.DPDBaseURL,
		ContactMapping: opts.ContactMapping,
		Zone:           opts.Zone,
	})
	if err != nil {
		return nil, err
	}
	g, err := gls.NewClient(gls.Config{
		Transport:   opts.Transport,
		BaseURL:     opts.GLSBaseURL,
		GeocoderURL: opts.GeocoderURL,
		HereAppID:   opts.HereAppID,
		HereAppCode: opts.HereAppCode,
		HereLayerID: opts.HereLayerID,
		Zone:        opts.Zone,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{DPD: d, GLS: g}, nil
}

// Carriers lists the names of the configured carriers.
func (r *Registry) Carriers() []string {
	var out []string
	if r.DPD != nil {
		out = append(out, dpd.Carrier)
	}
	if r.GLS != nil {
		out = append(out, gls.Carrier)
	}
	sort.Strings(out)
	return out
}

// New returns a parcel of the named carrier. postcode is only used by GLS,
// where it unlocks recipient names.
func (r *Registry) New(name, number, postcode string) (Parcel, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("carrier: empty tracking number: %w", tracking.ErrUnsupportedIdentifier)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case dpd.Carrier:
		if r.DPD != nil {
			return r.DPD.NewParcel(number), nil
		}
	case gls.Carrier:
		if r.GLS != nil {
			return r.GLS.NewParcel(number, postcode), nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCarrier, name)
}

// FromBarcode finds the carrier whose label format matches barcode.
func (r *Registry) FromBarcode(barcode string) (Parcel, error) {
	barcode = strings.TrimSpace(barcode)
	if r.DPD != nil && dpd.IsBarcode(barcode) {
		return r.DPD.FromBarcode(barcode)
	}
	if r.GLS != nil {
		p, err := r.GLS.FromBarcode(barcode)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, tracking.ErrUnsupportedIdentifier) {
			return nil, fmt.Errorf("%w: %w", tracking.ErrUnsupportedIdentifier, err)
		}
	}
	return nil, fmt.Errorf("carrier: no carrier recognizes barcode %q: %w", barcode, tracking.ErrUnsupportedIdentifier)
}

// Describe fetches the parcel and assembles its report. The recipient is
// only asked for once the timeline shows a delivery. Nothing data dependent
// is touched before the timeline, so a failed fetch is not repeated.
func (r *Registry) Describe(ctx context.Context, p Parcel) (rep Report, err error) {
	start := time.Now()
	ctx, end := obs.StartLookupSpan(ctx, p.Carrier())
	defer func() {
		end(rep.TrackingNumber, err)
		obs.RecordLookup(p.Carrier(), lookupResult(err), obs.DurationMillis(time.Since(start)))
	}()

	rep = Report{Carrier: p.Carrier()}
	if rep.Events, err = p.Events(ctx); err != nil {
		return Report{}, err
	}
	if rep.TrackingNumber, err = p.TrackingNumber(ctx); err != nil {
		return Report{}, err
	}
	if rep.Product, err = p.Product(ctx); err != nil {
		return Report{}, err
	}
	if rep.Express, err = p.IsExpress(ctx); err != nil {
		return Report{}, err
	}
	if delivered(rep.Events) {
		name, rerr := p.Recipient(ctx)
		if rerr != nil {
			zerolog.Ctx(ctx).Warn().Err(rerr).Str("carrier", p.Carrier()).Msg("recipient lookup failed")
		}
		rep.Recipient = name
	}
	if g, ok := p.(*gls.Parcel); ok {
		details, derr := g.Details(ctx)
		if derr != nil {
			return Report{}, derr
		}
		rep.Details = details
	}
	return rep, nil
}

func delivered(events []tracking.Event) bool {
	for _, ev := range events {
		switch ev.Kind {
		case tracking.Delivery, tracking.DeliveryNeighbour:
			return true
		}
	}
	return false
}

func lookupResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, tracking.ErrUnknownParcel):
		return "unknown"
	case errors.Is(err, tracking.ErrMalformedData):
		return "malformed"
	}
	return "error"
}
