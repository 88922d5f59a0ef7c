package gls_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/carrier/gls"
	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport"
	"github.com/noah-isme/parceltrack/internal/transport/transporttest"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func newClient(t *testing.T, stub *transporttest.Stub) *gls.Client {
	t.Helper()
	client, err := gls.NewClient(gls.Config{
		Transport: stub,
		Now:       func() time.Time { return time.Date(2018, 3, 9, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return client
}

func at(day, hour, minute int) time.Time {
	return time.Date(2018, 3, day, hour, minute, 0, 0, time.UTC)
}

func kinds(events []tracking.Event) []tracking.Kind {
	out := make([]tracking.Kind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestEventsFoldParcelShopScans(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().
		Body("gls.status", fixture(t, "status_parcelshop.json")).
		Body("gls.store", fixture(t, "geocoder.jsonp"))
	parcel := newClient(t, stub).NewParcel("51234567890", "")

	events, err := parcel.Events(context.Background())
	require.NoError(t, err)
	require.Equal(t, []tracking.Kind{
		tracking.DataReceived,
		tracking.Posted,
		tracking.Generic,
		tracking.Sort,
		tracking.OutboundSort,
		tracking.WrongAddress,
		tracking.Stored,
		tracking.StoreDropoff,
	}, kinds(events))
	require.True(t, tracking.Chronological(events))

	require.Nil(t, events[0].Location)
	require.Equal(t, &tracking.Location{City: "Kassel", CountryCode: "DE"}, events[1].Location)
	require.Nil(t, events[2].Location)
	require.Equal(t, at(6, 18, 0), events[5].When)
	require.Equal(t, events[5].When, events[6].When)

	dropoff := events[7]
	require.Nil(t, dropoff.Location)
	require.NotNil(t, dropoff.Store)
	require.Equal(t, tracking.Store{
		Name:         "Kiosk am Markt",
		Address:      "Marktplatz 1",
		Postcode:     "10115",
		City:         "Berlin",
		CountryCode:  "DE",
		OpeningHours: "Mo-Fr 08:00-18:00; Sa 09:00-13:00",
		Phone:        "030 123456",
		Email:        "kiosk@example.com",
	}, *dropoff.Store)

	reqs := stub.Requests()
	require.Equal(t, "512345678909", reqs[0].Query.Get("match"))
	require.Equal(t, "NAME3=='2760012345'", reqs[1].Query.Get("filter"))
}

func TestEventsStoreLookupDegradesOnTransportFailure(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().
		Body("gls.status", fixture(t, "status_parcelshop.json")).
		Handle("gls.store", transporttest.Fail(errors.New("geocoder down")))
	events, err := newClient(t, stub).NewParcel("51234567890", "").Events(context.Background())
	require.NoError(t, err)

	last := events[len(events)-1]
	require.Equal(t, tracking.StoreDropoff, last.Kind)
	require.Nil(t, last.Store)
	require.Equal(t, &tracking.Location{City: "Berlin", CountryCode: "DE"}, last.Location)
}

func TestEventsStoreLookupPropagatesMalformedHours(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().
		Body("gls.status", fixture(t, "status_parcelshop.json")).
		Body("gls.store", `Request.JSONP.request_map.request_0({"geometries":[{"attributes":{"NAME1":"x","DESCRIPTION":"whenever"}}]})`)
	_, err := newClient(t, stub).NewParcel("51234567890", "").Events(context.Background())
	require.ErrorIs(t, err, tracking.ErrMalformedData)

	var perr *tracking.ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "gls", perr.Carrier)
	require.Equal(t, "opening hours", perr.Field)
}

func TestEventsOrderAndRecipientLookup(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().
		Body("gls.status", fixture(t, "status_delivered.json")).
		Handle("gls.recipient", func(req transport.Request) (*transport.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.JSONEq(t, `{"postalCode":"20095"}`, string(req.Body))
			return &transport.Response{StatusCode: 200, Body: []byte(`{"signature":{"value":"M. Mustermann"}}`)}, nil
		})
	parcel := newClient(t, stub).NewParcel("ZX12AB34", "20095")

	events, err := parcel.Events(context.Background())
	require.NoError(t, err)
	require.Equal(t, []tracking.Kind{
		tracking.Pickup,
		tracking.InboundSort,
		tracking.ManualSort,
		tracking.InDelivery,
		tracking.Delivery,
	}, kinds(events))
	require.True(t, tracking.Chronological(events))
	require.Equal(t, "M. Mustermann", events[4].Recipient)
	require.Equal(t, at(8, 11, 30), events[4].When)
	require.Equal(t, 1, stub.Calls("gls.recipient"))
	require.Contains(t, stub.Requests()[1].URL, "/DE/de/rstt018/10850000000")
}

func TestEventsWithoutPostcodeSkipRecipientLookup(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Body("gls.status", fixture(t, "status_delivered.json"))
	events, err := newClient(t, stub).NewParcel("108500000007", "").Events(context.Background())
	require.NoError(t, err)
	require.Empty(t, events[len(events)-1].Recipient)
	require.Zero(t, stub.Calls("gls.recipient"))
}

func TestAttributes(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Body("gls.status", fixture(t, "status_delivered.json"))
	parcel := newClient(t, stub).NewParcel("ZX12AB34", "")
	ctx := context.Background()

	tn, err := parcel.TrackingNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, "108500000007", tn)

	product, err := parcel.Product(ctx)
	require.NoError(t, err)
	require.Equal(t, "Express-Parcel", product)

	express, err := parcel.IsExpress(ctx)
	require.NoError(t, err)
	require.True(t, express)

	recipient, err := parcel.Recipient(ctx)
	require.NoError(t, err)
	require.Equal(t, "MUSTERMANN", recipient)

	weight, ok, err := parcel.Weight(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("2.4").Equal(weight))

	link, err := parcel.TrackingLink(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://gls-group.eu/EU/en/parcel-tracking?match=108500000007", link)
	require.Equal(t, 1, stub.Calls("gls.status"))
}

func TestProductIsStableAcrossCalls(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		fixture, number, want string
	}{
		"payload product by code":   {"status_parcelshop.json", "ABCD1234", "Parcel"},
		"payload product by number": {"status_parcelshop.json", "51234567890", "Parcel"},
		"table fallback by code":    {"status_delivered.json", "ZX12AB34", "Express-Parcel"},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			stub := transporttest.NewStub().Body("gls.status", fixture(t, tc.fixture))
			parcel := newClient(t, stub).NewParcel(tc.number, "")
			ctx := context.Background()

			first, err := parcel.Product(ctx)
			require.NoError(t, err)
			second, err := parcel.Product(ctx)
			require.NoError(t, err)
			require.Equal(t, tc.want, first)
			require.Equal(t, first, second)
			require.Equal(t, 1, stub.Calls("gls.status"))
		})
	}
}

func TestPayloadAttributes(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Body("gls.status", fixture(t, "status_parcelshop.json"))
	parcel := newClient(t, stub).NewParcel("51234567890", "")
	ctx := context.Background()

	weight, ok, err := parcel.Weight(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("1.25").Equal(weight))

	refs, err := parcel.References(ctx)
	require.NoError(t, err)
	require.Equal(t, "C-4711", refs.CustomerID)
	require.Equal(t, "ORDER-1", refs.Shipment)
	require.Equal(t, "BOX-1", refs.Parcel)
	require.NotNil(t, refs.ParcelShopQR)
	require.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", refs.ParcelShopQR.String())

	details, err := parcel.Details(ctx)
	require.NoError(t, err)
	require.Equal(t, refs, details.References)
	require.True(t, weight.Equal(*details.WeightKg))
	require.Equal(t, gls.ServicesFor(23), details.Services)
	require.Equal(t, "https://gls-group.eu/EU/en/parcel-tracking?match=512345678909", details.TrackingLink)
	require.Equal(t, 1, stub.Calls("gls.status"))
}

func TestFetchIsIdempotent(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().
		Body("gls.status", fixture(t, "status_parcelshop.json")).
		Body("gls.store", fixture(t, "geocoder.jsonp"))
	parcel := newClient(t, stub).NewParcel("51234567890", "")
	ctx := context.Background()

	first, err := parcel.Events(ctx)
	require.NoError(t, err)
	require.NoError(t, parcel.Fetch(ctx))
	second, err := parcel.Events(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, stub.Calls("gls.status"))
	require.Equal(t, 1, parcel.Loads())
}

func TestFetchIsSharedAcrossGoroutines(t *testing.T) {
	t.Parallel()

	stub := transporttest.NewStub().Body("gls.status", fixture(t, "status_delivered.json"))
	parcel := newClient(t, stub).NewParcel("108500000007", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := parcel.Recipient(context.Background())
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, stub.Calls("gls.status"))
}

func TestUnknownParcel(t *testing.T) {
	t.Parallel()

	for name, route := range map[string]transporttest.Route{
		"not found status": transporttest.Status(http.StatusNotFound, ``),
		"missing tuStatus": transporttest.Status(http.StatusOK, `{"lastError":"notfound"}`),
	} {
		route := route
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			stub := transporttest.NewStub().Handle("gls.status", route)
			parcel := newClient(t, stub).NewParcel("ZX12AB34", "")
			ctx := context.Background()

			_, err := parcel.Events(ctx)
			require.ErrorIs(t, err, tracking.ErrUnknownParcel)
			_, err = parcel.TrackingNumber(ctx)
			require.ErrorIs(t, err, tracking.ErrUnknownParcel)
			_, err = parcel.Recipient(ctx)
			require.ErrorIs(t, err, tracking.ErrUnknownParcel)
			_, _, err = parcel.Weight(ctx)
			require.ErrorIs(t, err, tracking.ErrUnknownParcel)
			require.Equal(t, 1, stub.Calls("gls.status"))
		})
	}
}

func TestTransportFailureIsNotMemoized(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	stub := transporttest.NewStub().Handle("gls.status", transporttest.Fail(boom))
	parcel := newClient(t, stub).NewParcel("108500000007", "")
	ctx := context.Background()

	_, err := parcel.Events(ctx)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, tracking.ErrUnknownParcel)

	stub.Body("gls.status", fixture(t, "status_delivered.json"))
	events, err := parcel.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 5)
	require.Equal(t, 2, stub.Calls("gls.status"))
}

func TestKnownLabelsNeverProduceGeneric(t *testing.T) {
	t.Parallel()

	for _, label := range gls.KnownLabels() {
		body := `{"tuStatus":[{"tuNo":"10850000000","history":[{"date":"2018-03-07","time":"10:00:00","evtDscr":` + quoteJSON(label) + `,"address":{"city":"Kassel","countryCode":"DE"}}]}]}`
		stub := transporttest.NewStub().Body("gls.status", body)
		events, err := newClient(t, stub).NewParcel("108500000007", "").Events(context.Background())
		require.NoError(t, err, label)
		require.NotEmpty(t, events, label)
		for _, ev := range events {
			require.NotEqual(t, tracking.Generic, ev.Kind, label)
		}
	}
}
