package carrier_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/carrier"
	"github.com/noah-isme/parceltrack/internal/carrier/gls"
	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport/transporttest"
)

func fixture(t *testing.T, carrierName, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(carrierName, "testdata", name))
	require.NoError(t, err)
	return string(data)
}

func newRegistry(t *testing.T, stub *transporttest.Stub) *carrier.Registry {
	t.Helper()
	reg, err := carrier.NewRegistry(carrier.Options{Transport: stub, Zone: time.UTC})
	require.NoError(t, err)
	return reg
}

func TestCarriers(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"dpd", "gls"}, newRegistry(t, transporttest.NewStub()).Carriers())
	require.Empty(t, (&carrier.Registry{}).Carriers())
}

func TestNew(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, transporttest.NewStub())

	p, err := reg.New("DPD", "01234567890123", "")
	require.NoError(t, err)
	require.Equal(t, "dpd", p.Carrier())

	p, err = reg.New("gls", "51234567890", "20095")
	require.NoError(t, err)
	require.Equal(t, "gls", p.Carrier())
	tn, err := p.TrackingNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, "512345678909", tn)

	_, err = reg.New("ups", "1Z999", "")
	require.ErrorIs(t, err, carrier.ErrUnknownCarrier)

	_, err = reg.New("gls", "  ", "")
	require.ErrorIs(t, err, tracking.ErrUnsupportedIdentifier)
}

func TestFromBarcode(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, transporttest.NewStub())
	ctx := context.Background()

	p, err := reg.FromBarcode("%008123401234567890123179276")
	require.NoError(t, err)
	require.Equal(t, "dpd", p.Carrier())
	express, err := p.IsExpress(ctx)
	require.NoError(t, err)
	require.True(t, express)

	p, err = reg.FromBarcode("108500000007")
	require.NoError(t, err)
	require.Equal(t, "gls", p.Carrier())

	_, err = reg.FromBarcode("108500000008")
	require.ErrorIs(t, err, tracking.ErrUnsupportedIdentifier)
	require.ErrorIs(t, err, tracking.ErrMalformedData)

	_, err = reg.FromBarcode("not a barcode")
	require.ErrorIs(t, err, tracking.ErrUnsupportedIdentifier)
}

func TestDescribeGLS(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Body("gls.status", fixture(t, "gls", "status_delivered.json"))
	reg := newRegistry(t, stub)
	p, err := reg.New("gls", "ZX12AB34", "")
	require.NoError(t, err)

	rep, err := reg.Describe(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "gls", rep.Carrier)
	require.Equal(t, "108500000007", rep.TrackingNumber)
	require.Equal(t, "Express-Parcel", rep.Product)
	require.True(t, rep.Express)
	require.Equal(t, "MUSTERMANN", rep.Recipient)
	require.Len(t, rep.Events, 5)
	require.Equal(t, 1, stub.Calls("gls.status"))

	details, ok := rep.Details.(gls.Details)
	require.True(t, ok)
	require.NotNil(t, details.WeightKg)
	require.True(t, decimal.RequireFromString("2.4").Equal(*details.WeightKg))
	require.True(t, details.Services.Express)
	require.Equal(t, "https://gls-group.eu/EU/en/parcel-tracking?match=108500000007", details.TrackingLink)
}

func TestDescribeDoesNotRefetchAfterFailure(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Handle("gls.status", transporttest.Fail(errors.New("boom")))
	reg := newRegistry(t, stub)
	p, err := reg.New("gls", "ABCD1234", "")
	require.NoError(t, err)

	_, err = reg.Describe(context.Background(), p)
	require.ErrorContains(t, err, "boom")
	require.Equal(t, 1, stub.Calls("gls.status"))
}

func TestDescribeDPDSkipsRecipientBeforeDelivery(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().
		Body("dpd.status", `_jqjsp({"TrackingStatusJSON":{"shipmentInfo":{"product":"DPD Classic"},"statusInfos":[`+
			`{"date":"05-03-2018","time":"12:00 ","city":"Hamburg (DE)","contents":[{"label":"In transit."}]}]}})`)
	reg := newRegistry(t, stub)
	p, err := reg.New("dpd", "01234567890123", "")
	require.NoError(t, err)

	rep, err := reg.Describe(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "DPD Classic", rep.Product)
	require.False(t, rep.Express)
	require.Empty(t, rep.Recipient)
	require.Nil(t, rep.Details)
	require.Zero(t, stub.Calls("dpd.recipient"))
}

func TestDescribeUnknownParcel(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Body("dpd.status", `_jqjsp({"ErrorJSON":{"code":-8}})`)
	reg := newRegistry(t, stub)
	p, err := reg.New("dpd", "01234567890123", "")
	require.NoError(t, err)

	_, err = reg.Describe(context.Background(), p)
	require.ErrorIs(t, err, tracking.ErrUnknownParcel)
}

// Every recorded fixture yields a chronological timeline whatever order the
// backend listed the records in.
func TestFixtureTimelinesAreChronological(t *testing.T) {
	t.Parallel()

	cases := []struct {
		carrier string
		number  string
		stub    *transporttest.Stub
	}{
		{"gls", "51234567890", transporttest.NewStub().
			Body("gls.status", fixture(t, "gls", "status_parcelshop.json")).
			Body("gls.store", fixture(t, "gls", "geocoder.jsonp"))},
		{"gls", "108500000007", transporttest.NewStub().
			Body("gls.status", fixture(t, "gls", "status_delivered.json"))},
		{"dpd", "01234567890123", transporttest.NewStub().
			Body("dpd.status", fixture(t, "dpd", "status_parcelshop.jsonp"))},
	}
	for _, tc := range cases {
		p, err := newRegistry(t, tc.stub).New(tc.carrier, tc.number, "")
		require.NoError(t, err)
		events, err := p.Events(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, events)
		require.True(t, tracking.Chronological(events), strings.Join([]string{tc.carrier, tc.number}, "/"))
	}
}
