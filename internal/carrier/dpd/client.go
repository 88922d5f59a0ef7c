package dpd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/net/html"

	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport"
)

const (
	DefaultBaseURL = "https://tracking.dpd.de/cgi-bin"

	statusJSONP     = "_jqjsp"
	unknownParcel   = -8
	targetStatus    = "dpd.status"
	targetRecipient = "dpd.recipient"
)

var deliveredToPattern = regexp.MustCompile(`<br>Delivered to: (.+?)&nbsp;</td>`)

// Config configures a DPD client.
type Config struct {
	Transport      transport.Transport
	BaseURL        string
	ContactMapping ContactMapping
	// Zone is the time zone the backend reports local times in.
	Zone *time.Location
	Now  func() time.Time
}

// Client talks to the DPD tracking backend.
type Client struct {
	cfg Config
}

// NewClient validates cfg and fills defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("dpd: transport is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{cfg: cfg}, nil
}

func (c *Client) fetchStatus(ctx context.Context, trackingNumber string) (*trackingStatus, error) {
	resp, err := c.cfg.Transport.Do(ctx, transport.Request{
		Target: targetStatus,
		URL:    c.cfg.BaseURL + "/simpleTracking.cgi",
		Query: url.Values{
			"parcelNr":     {trackingNumber},
			"locale":       {"en"},
			"type":         {"1"},
			"jsoncallback": {statusJSONP},
			// cache buster the web client sends along
			"_" + strconv.FormatInt(c.cfg.Now().UnixMilli(), 10): {""},
		},
		CacheKey: "dpd:status:" + trackingNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("dpd: fetch status: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("dpd: fetch status: unexpected status %d", resp.StatusCode)
	}
	raw, err := transport.UnwrapJSONP(resp.Body, statusJSONP)
	if err != nil {
		return nil, tracking.NewParseError(Carrier, "status payload", string(resp.Body), err)
	}
	var payload statusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, tracking.NewParseError(Carrier, "status payload", string(raw), err)
	}
	if payload.Error != nil {
		if payload.Error.Code == unknownParcel {
			return nil, tracking.ErrUnknownParcel
		}
		return nil, fmt.Errorf("dpd: backend error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if payload.TrackingStatus == nil {
		return nil, tracking.NewParseError(Carrier, "status payload", string(raw), fmt.Errorf("missing TrackingStatusJSON"))
	}
	return payload.TrackingStatus, nil
}

// fetchRecipient scrapes the recipient name from the delistrack page. The
// JSON endpoint only reveals it together with the postcode; the HTML page
// does not ask for one.
func (c *Client) fetchRecipient(ctx context.Context, trackingNumber string) (string, error) {
	resp, err := c.cfg.Transport.Do(ctx, transport.Request{
		Target:   targetRecipient,
		URL:      c.cfg.BaseURL + "/delistrack",
		Query:    url.Values{"pknr": {trackingNumber}, "locale": {"en"}, "typ": {"2"}},
		CacheKey: "dpd:recipient:" + trackingNumber,
	})
	if err != nil {
		return "", fmt.Errorf("dpd: fetch recipient: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("dpd: fetch recipient: unexpected status %d", resp.StatusCode)
	}
	m := deliveredToPattern.FindSubmatch(resp.Body)
	if m == nil {
		return "", nil
	}
	return html.UnescapeString(string(m[1])), nil
}
