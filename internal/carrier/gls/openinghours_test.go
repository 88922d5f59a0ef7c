package gls_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/carrier/gls"
	"github.com/noah-isme/parceltrack/internal/tracking"
)

func TestParseOpeningHours(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"range and single day", "Mo. - Fr.: #08:00 - 18:00|Sa.: #08:00 - 12:00", "Mo-Fr 08:00-18:00; Sa 08:00-12:00"},
		{"lunch break", "Mo.: #08:00 - 12:00|#14:00 - 18:00", "Mo 08:00-12:00,14:00-18:00"},
		{"closed day removed", "Mo. - Fr.: #09:00 - 18:00|Sa.: #--:-- - --:--|Su.: #--:-- - --:--", "Mo-Fr 09:00-18:00"},
		{"annual closing dropped", "Annual closing: 24/12/2018 - 02/01/2019|Mo.: #10:00 - 19:00", "Mo 10:00-19:00"},
		{"pickup time label ignored", "Mo. - Fr.: #08:00 - 17:00|Indleveringstid: 15:00", "Mo-Fr 08:00-17:00"},
		{"day with pickup time only", "Mo. - Fr.: #08:00 - 17:00|Sa.: Indleveringstid: 10:00", "Mo-Fr 08:00-17:00"},
		{"no ranges at all", "Sa.: Indleveringstid: 10:00", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := gls.ParseOpeningHours(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseOpeningHoursRejectsUnknownTokens(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"Mo.: 08:00 - 18:00",
		"Mo.: #8 - 18",
		"Xx.: #08:00 - 18:00",
		"#08:00 - 18:00",
		"#--:-- - --:--",
		"",
	} {
		_, err := gls.ParseOpeningHours(in)
		require.ErrorIs(t, err, tracking.ErrMalformedData, in)
	}
}
