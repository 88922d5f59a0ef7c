package dpd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/carrier/dpd"
	"github.com/noah-isme/parceltrack/internal/tracking"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParseStoreFixture(t *testing.T) {
	t.Parallel()

	store, err := dpd.ParseStore("Kiosk Mitte", readFixture(t, "parcelshop.html"), dpd.ContactMappingLabelled)
	require.NoError(t, err)
	require.Equal(t, "Kiosk Mitte", store.Name)
	require.Equal(t, "Street 1", store.Address)
	require.Equal(t, "12345", store.Postcode)
	require.Equal(t, "Citytown", store.City)
	require.Equal(t, "DE", store.CountryCode)
	require.Equal(t, "Mo 08:00-18:00", store.OpeningHours)
}

func TestParseStoreContactMappings(t *testing.T) {
	t.Parallel()

	fragment := readFixture(t, "parcelshop.html")

	labelled, err := dpd.ParseStore("Kiosk", fragment, dpd.ContactMappingLabelled)
	require.NoError(t, err)
	require.Equal(t, "0123 456789", labelled.Phone)
	require.Equal(t, "0123 456780", labelled.Fax)
	require.Empty(t, labelled.Email)

	// the DPD web client shows the phone row as e-mail and the fax row as phone
	vendor, err := dpd.ParseStore("Kiosk", fragment, dpd.ContactMappingVendor)
	require.NoError(t, err)
	require.Equal(t, "0123 456780", vendor.Phone)
	require.Equal(t, "0123 456789", vendor.Email)
	require.Empty(t, vendor.Fax)
}

func TestParseContactMapping(t *testing.T) {
	t.Parallel()

	m, err := dpd.ParseContactMapping("vendor")
	require.NoError(t, err)
	require.Equal(t, dpd.ContactMappingVendor, m)

	m, err = dpd.ParseContactMapping("")
	require.NoError(t, err)
	require.Equal(t, dpd.ContactMappingLabelled, m)

	_, err = dpd.ParseContactMapping("crossed")
	require.Error(t, err)
}

func TestParseStoreMultiLineAddressAndSplitHours(t *testing.T) {
	t.Parallel()

	fragment := `<div class="address"><b>Adresse</b><br>c/o Kiosk<br/>Long&nbsp;Street 12<br/>10115 Berlin Mitte (DE)</div>` +
		`<div class="opening-hours"><table>` +
		`<tr><td>Mon</td><td>08:00 - 12:00</td><td>14:00 - 18:00</td></tr>` +
		`<tr><td>Tue</td><td>09:00 - 13:00</td><td>13:00 - 19:00</td></tr>` +
		`<tr><td>Sun</td><td>closed</td><td>closed</td></tr>` +
		`</table></div>`

	store, err := dpd.ParseStore(" Kiosk ", fragment, dpd.ContactMappingLabelled)
	require.NoError(t, err)
	require.Equal(t, "Kiosk", store.Name)
	require.Equal(t, "c/o Kiosk\nLong Street 12", store.Address)
	require.Equal(t, "10115", store.Postcode)
	require.Equal(t, "Berlin Mitte", store.City)
	require.Equal(t, "Mo 08:00-12:00,14:00-18:00; Tu 09:00-19:00", store.OpeningHours)
}

func TestParseStoreIgnoresMarkupOutsideSections(t *testing.T) {
	t.Parallel()

	fragment := `<p>Pickup parcelshop</p><div class="banner"><b>Ad</b> text</div>` +
		`<div class="address">Street 1<br/><span>12345 Citytown (DE)</span></div>` +
		`<table><tr><td>Fr</td><td>nonsense</td></tr></table>`

	store, err := dpd.ParseStore("Kiosk", fragment, dpd.ContactMappingLabelled)
	require.NoError(t, err)
	require.Equal(t, "Street 1", store.Address)
	require.Empty(t, store.OpeningHours)
}

func TestParseStoreRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"address tail without country": `<div class="address">Street 1<br/>12345 Citytown</div>`,
		"missing address":              `<div class="contact"><table><tr><td>Phone:</td><td>1</td></tr></table></div>`,
		"unknown day": `<div class="address">Street 1<br/>12345 Citytown (DE)</div>` +
			`<div class="opening-hours"><table><tr><td>Xy</td><td>08:00 - 12:00</td><td>13:00 - 18:00</td></tr></table></div>`,
		"short row": `<div class="address">Street 1<br/>12345 Citytown (DE)</div>` +
			`<div class="opening-hours"><table><tr><td>Mo</td><td>08:00 - 12:00</td></tr></table></div>`,
	}
	for name, fragment := range cases {
		fragment := fragment
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := dpd.ParseStore("Kiosk", fragment, dpd.ContactMappingLabelled)
			require.ErrorIs(t, err, tracking.ErrMalformedData)
		})
	}
}
