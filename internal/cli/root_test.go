package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/carrier"
	"github.com/noah-isme/parceltrack/internal/cli"
	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport/transporttest"
)

func run(t *testing.T, stub *transporttest.Stub, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cli.NewRootCmd(cli.Options{
		Out: &out,
		Registry: func(context.Context) (*carrier.Registry, error) {
			return carrier.NewRegistry(carrier.Options{Transport: stub, Zone: time.UTC})
		},
	})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fixture(t *testing.T, carrierName, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "carrier", carrierName, "testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestCarriersCommand(t *testing.T) {
	out, err := run(t, transporttest.NewStub(), "carriers")
	require.NoError(t, err)
	require.JSONEq(t, `["dpd","gls"]`, out)
}

func TestTrackCommand(t *testing.T) {
	stub := transporttest.NewStub().Body("gls.status", fixture(t, "gls", "status_delivered.json"))
	out, err := run(t, stub, "track", "gls", "108500000007", "--pretty")
	require.NoError(t, err)
	require.Contains(t, out, "\n  \"carrier\": \"gls\"")

	var rep carrier.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, "108500000007", rep.TrackingNumber)
	require.Equal(t, tracking.Delivery, rep.Events[len(rep.Events)-1].Kind)
	require.Contains(t, out, `"trackingLink": "https://gls-group.eu/EU/en/parcel-tracking?match=108500000007"`)
	require.Contains(t, out, `"weightKg": "2.4"`)
}

func TestBarcodeCommand(t *testing.T) {
	stub := transporttest.NewStub().Body("dpd.status", `_jqjsp({"TrackingStatusJSON":{"statusInfos":[`+
		`{"date":"05-03-2018","time":"12:00","city":"Hamburg (DE)","contents":[{"label":"In transit."}]}]}})`)
	out, err := run(t, stub, "barcode", "%008123401234567890123179276")
	require.NoError(t, err)

	var rep carrier.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, "dpd", rep.Carrier)
	require.Equal(t, "Express 10:00", rep.Product)
	require.True(t, rep.Express)
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, transporttest.NewStub(), "track", "ups", "1Z999")
	require.ErrorIs(t, err, carrier.ErrUnknownCarrier)

	_, err = run(t, transporttest.NewStub().Body("dpd.status", `_jqjsp({"ErrorJSON":{"code":-8}})`), "track", "dpd", "01234567890123")
	require.ErrorIs(t, err, tracking.ErrUnknownParcel)

	_, err = run(t, transporttest.NewStub(), "track", "gls")
	require.Error(t, err)
}
