package gls

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport"
)

const (
	DefaultBaseURL     = "https://gls-group.eu/app/service/open/rest"
	DefaultGeocoderURL = "https://cle.api.here.com/2/search/all.json"
	DefaultLinkURL     = "https://gls-group.eu/EU/en/parcel-tracking"

	caller          = "witt002"
	geocoderJSONP   = "Request.JSONP.request_map.request_0"
	targetStatus    = "gls.status"
	targetRecipient = "gls.recipient"
	targetStore     = "gls.store"
)

// Config configures a GLS client.
type Config struct {
	Transport   transport.Transport
	BaseURL     string
	GeocoderURL string
	HereAppID   string
	HereAppCode string
	HereLayerID string
	// Zone is the time zone the backend reports local times in.
	Zone *time.Location
	Now  func() time.Time
}

// Client talks to the GLS tracking backend and the parcel shop geocoder.
type Client struct {
	cfg Config
}

// NewClient validates cfg and fills defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("gls: transport is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.GeocoderURL == "" {
		cfg.GeocoderURL = DefaultGeocoderURL
	}
	if cfg.HereLayerID == "" {
		cfg.HereLayerID = "GLS_PSHOPS_PRD"
	}
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{cfg: cfg}, nil
}

func (c *Client) millis() string {
	return strconv.FormatInt(c.cfg.Now().UnixMilli(), 10)
}

func (c *Client) fetchStatus(ctx context.Context, query string) (*tuStatus, error) {
	resp, err := c.cfg.Transport.Do(ctx, transport.Request{
		Target:   targetStatus,
		URL:      c.cfg.BaseURL + "/EU/en/rstt001",
		Query:    url.Values{"caller": {caller}, "match": {query}, "milis": {c.millis()}},
		CacheKey: "gls:status:" + query,
	})
	if err != nil {
		return nil, fmt.Errorf("gls: fetch status: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, tracking.ErrUnknownParcel
	}
	if !resp.OK() {
		return nil, fmt.Errorf("gls: fetch status: unexpected status %d", resp.StatusCode)
	}
	var payload statusPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, tracking.NewParseError(Carrier, "status payload", string(resp.Body), err)
	}
	if len(payload.TUStatus) == 0 {
		return nil, tracking.ErrUnknownParcel
	}
	return &payload.TUStatus[0], nil
}

// fetchRecipient asks the backend for the signature name; GLS only reveals
// it together with the recipient's postcode.
func (c *Client) fetchRecipient(ctx context.Context, trackingNumber, postcode string) (string, error) {
	body, err := json.Marshal(map[string]string{"postalCode": postcode})
	if err != nil {
		return "", err
	}
	tn := trackingNumber
	if len(tn) > bodyDigits {
		tn = tn[:bodyDigits]
	}
	resp, err := c.cfg.Transport.Do(ctx, transport.Request{
		Target: targetRecipient,
		Method: http.MethodPost,
		URL:    c.cfg.BaseURL + "/DE/de/rstt018/" + url.PathEscape(tn),
		Query:  url.Values{"caller": {caller}, "milis": {c.millis()}},
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("gls: fetch recipient: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("gls: fetch recipient: unexpected status %d", resp.StatusCode)
	}
	var payload recipientPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", tracking.NewParseError(Carrier, "recipient payload", string(resp.Body), err)
	}
	if payload.Signature == nil {
		return "", nil
	}
	return payload.Signature.Value, nil
}

// Store resolves a parcel shop id through the geocoder. It returns nil
// without error when the shop is not listed.
func (c *Client) Store(ctx context.Context, id string) (*tracking.Store, error) {
	resp, err := c.cfg.Transport.Do(ctx, transport.Request{
		Target: targetStore,
		URL:    c.cfg.GeocoderURL,
		Query: url.Values{
			"app_id":   {c.cfg.HereAppID},
			"app_code": {c.cfg.HereAppCode},
			"layer_id": {c.cfg.HereLayerID},
			"limit":    {"1"},
			"filter":   {"NAME3=='" + id + "'"},
			"callback": {geocoderJSONP},
		},
		CacheKey: "gls:store:" + id,
	})
	if err != nil {
		return nil, fmt.Errorf("gls: fetch store: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("gls: fetch store: unexpected status %d", resp.StatusCode)
	}
	raw, err := transport.UnwrapJSONP(resp.Body, geocoderJSONP)
	if err != nil {
		return nil, tracking.NewParseError(Carrier, "store payload", string(resp.Body), err)
	}
	var payload geocoderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, tracking.NewParseError(Carrier, "store payload", string(raw), err)
	}
	if len(payload.Geometries) != 1 {
		return nil, nil
	}
	attrs := payload.Geometries[0].Attributes
	hours, err := ParseOpeningHours(attrs.OpeningHours)
	if err != nil {
		return nil, err
	}
	return &tracking.Store{
		Name:         attrs.Name,
		Address:      attrs.Street,
		Postcode:     attrs.Zip,
		City:         attrs.City,
		CountryCode:  attrs.Country,
		OpeningHours: hours,
		Phone:        attrs.Phone,
		Fax:          attrs.Fax,
		Email:        attrs.Email,
	}, nil
}
