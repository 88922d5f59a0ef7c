package tracking_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parceltrack/internal/tracking"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want tracking.Location
	}{
		{"Hamburg (DE)", tracking.Location{City: "Hamburg", CountryCode: "DE"}},
		{"Frankfurt (Oder) (DE)", tracking.Location{City: "Frankfurt (Oder)", CountryCode: "DE"}},
		{"Neuss", tracking.Location{City: "Neuss"}},
		{"Wien (at)", tracking.Location{City: "Wien (at)"}},
	}
	for _, tc := range cases {
		got := tracking.ParseLocation(tc.in)
		require.Equal(t, tc.want, got, tc.in)
		require.Equal(t, tc.in, got.String())
	}
}

func TestClassifierPrecedence(t *testing.T) {
	t.Parallel()

	c := tracking.NewClassifier[string]().
		Prefix("short", "The parcel").
		Prefix("long", "The parcel is at").
		Exact("exact", "The parcel is at the parcel center.")

	rule, ok := c.Match("The parcel is at the parcel center.")
	require.True(t, ok)
	require.Equal(t, "exact", rule)

	rule, ok = c.Match("The parcel is at the depot.")
	require.True(t, ok)
	require.Equal(t, "long", rule)

	rule, ok = c.Match("The parcel was delivered.")
	require.True(t, ok)
	require.Equal(t, "short", rule)

	_, ok = c.Match("Something else")
	require.False(t, ok)
	require.Equal(t, []string{"The parcel is at the parcel center."}, c.Labels())
}

func TestLazyRemembersSuccess(t *testing.T) {
	t.Parallel()

	var cell tracking.Lazy[int]
	load := func(context.Context) (int, error) { return 42, nil }

	_, ok := cell.Peek()
	require.False(t, ok)
	for i := 0; i < 3; i++ {
		v, err := cell.Get(context.Background(), load)
		require.NoError(t, err)
		require.Equal(t, 42, v)
	}
	require.Equal(t, 1, cell.Loads())
	v, ok := cell.Peek()
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestLazyRemembersUnknownParcelOnly(t *testing.T) {
	t.Parallel()

	var unknown tracking.Lazy[string]
	missing := func(context.Context) (string, error) {
		return "", fmt.Errorf("gls: %w", tracking.ErrUnknownParcel)
	}
	for i := 0; i < 2; i++ {
		_, err := unknown.Get(context.Background(), missing)
		require.ErrorIs(t, err, tracking.ErrUnknownParcel)
	}
	require.Equal(t, 1, unknown.Loads())
	_, ok := unknown.Peek()
	require.False(t, ok)

	var flaky tracking.Lazy[string]
	attempts := 0
	load := func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	}
	_, err := flaky.Get(context.Background(), load)
	require.Error(t, err)
	v, err := flaky.Get(context.Background(), load)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 2, flaky.Loads())
}

func TestLazyConcurrentCallersShareLoad(t *testing.T) {
	t.Parallel()

	var cell tracking.Lazy[int]
	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = cell.Get(context.Background(), func(context.Context) (int, error) {
				time.Sleep(5 * time.Millisecond)
				return 7, nil
			})
		}()
	}
	wg.Wait()
	for _, v := range results {
		require.Equal(t, 7, v)
	}
	require.Equal(t, 1, cell.Loads())
}

func TestSortEventsIsStable(t *testing.T) {
	t.Parallel()

	base := time.Date(2018, 3, 5, 12, 0, 0, 0, time.UTC)
	events := []tracking.Event{
		tracking.NewEvent(tracking.Delivery, base.Add(2*time.Hour), nil),
		tracking.NewEvent(tracking.RecipientUnavailable, base, nil),
		tracking.NewEvent(tracking.RecipientNotification, base, nil),
		tracking.NewEvent(tracking.DataReceived, base.Add(-time.Hour), nil),
	}
	require.False(t, tracking.Chronological(events))

	tracking.SortEvents(events)
	require.True(t, tracking.Chronological(events))
	kinds := make([]tracking.Kind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	require.Equal(t, []tracking.Kind{
		tracking.DataReceived, tracking.RecipientUnavailable, tracking.RecipientNotification, tracking.Delivery,
	}, kinds)
}

func TestSameDay(t *testing.T) {
	t.Parallel()

	berlin := time.FixedZone("CET", 60*60)
	a := time.Date(2018, 3, 5, 0, 30, 0, 0, berlin)
	require.True(t, tracking.SameDay(a, time.Date(2018, 3, 4, 23, 45, 0, 0, time.UTC)))
	require.False(t, tracking.SameDay(a, time.Date(2018, 3, 4, 22, 0, 0, 0, time.UTC)))
}

func TestNewEventDropsPlaceForUnlocatableKinds(t *testing.T) {
	t.Parallel()

	loc := &tracking.Location{City: "Hamburg", CountryCode: "DE"}
	when := time.Date(2018, 3, 5, 9, 0, 0, 0, time.UTC)

	ev := tracking.NewEvent(tracking.DataReceived, when, loc)
	require.Nil(t, ev.Location)
	_, ok := ev.Place()
	require.False(t, ok)

	ev = tracking.NewEvent(tracking.Sort, when, loc)
	loc.City = "mutated"
	place, ok := ev.Place()
	require.True(t, ok)
	require.Equal(t, "Hamburg", place.City)

	store := tracking.Store{Name: "Kiosk", City: "Berlin", CountryCode: "DE"}
	ev = tracking.AtStore(tracking.StoreDropoff, when, store).WithRecipient("Müller")
	require.Nil(t, ev.Location)
	place, ok = ev.Place()
	require.True(t, ok)
	require.Equal(t, tracking.Location{City: "Berlin", CountryCode: "DE"}, place)
	require.Equal(t, "Müller", ev.Recipient)
}

func TestKindJSON(t *testing.T) {
	t.Parallel()

	for _, kind := range tracking.Kinds() {
		data, err := json.Marshal(kind)
		require.NoError(t, err)
		var back tracking.Kind
		require.NoError(t, json.Unmarshal(data, &back))
		require.Equal(t, kind, back)
	}
	data, err := json.Marshal(tracking.NewEvent(tracking.RecipientNotification, time.Time{}, nil).WithNotification(tracking.NotificationCard))
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"recipient_notification","when":"0001-01-01T00:00:00Z","notification":"card"}`, string(data))

	var k tracking.Kind
	require.Error(t, k.UnmarshalText([]byte("teleported")))
	_, err = tracking.Kind(99).MarshalText()
	require.Error(t, err)
}

func TestParseErrorMatchesMalformedData(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad day")
	err := fmt.Errorf("lookup: %w", tracking.NewParseError("gls", "opening hours", "Xx 08:00", cause))

	require.ErrorIs(t, err, tracking.ErrMalformedData)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, tracking.ErrUnknownParcel)

	var perr *tracking.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "opening hours", perr.Field)
	require.Contains(t, perr.Error(), `gls: malformed opening hours "Xx 08:00"`)
}

func TestDayIndex(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, tracking.DayIndex("Mo"))
	require.Equal(t, 6, tracking.DayIndex("Su"))
	require.Equal(t, -1, tracking.DayIndex("Mon"))
}
