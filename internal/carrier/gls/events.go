package gls

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/parceltrack/internal/obs"
	"github.com/noah-isme/parceltrack/internal/tracking"
)

const timeLayout = "2006-01-02 15:04:05"

type record struct {
	when  time.Time
	label string
	loc   tracking.Location
}

// derivation carries the state of one Events call. firstScan is the fold
// accumulator: the time of the latest location-bearing event so far.
type derivation struct {
	parcel    *Parcel
	status    *tuStatus
	firstScan *time.Time
	recipient *string
}

type rule func(ctx context.Context, d *derivation, rec record) ([]tracking.Event, error)

var rules = tracking.NewClassifier[rule]().
	Exact(located(tracking.Delivery, true), "The parcel has been delivered.").
	Exact(located(tracking.DeliveryNeighbour, true), "The parcel has been delivered at the neighbour´s (see signature)").
	Exact(located(tracking.DeliveryDropOff, false), "The parcel has been delivered / dropped off.").
	Exact(located(tracking.InDelivery, false), "The parcel is expected to be delivered during the day.").
	Exact(reachedParcelShop, "The parcel has reached the ParcelShop.").
	Exact(located(tracking.InboundSort, false), "The parcel was handed over to GLS.").
	Exact(located(tracking.Sort, false), "The parcel has reached the parcel center.").
	Exact(located(tracking.ManualSort, false), "The parcel has reached the parcel center and was sorted manually.").
	Exact(located(tracking.OutboundSort, false), "The parcel has left the parcel center.").
	Exact(located(tracking.RecipientUnavailable, false),
		"The parcel could not be delivered as the consignee was absent.",
		"The parcel could not be delivered as the reception was closed.").
	Exact(notified, "The consignee was informed by notification card about the delivery/pickup attempt.").
	Exact(storeDropoff, "The parcel has been delivered at the ParcelShop (see ParcelShop information).").
	Exact(unlocated(tracking.DataReceived), "The parcel data was entered into the GLS IT system; the parcel was not yet handed over to GLS.").
	Exact(unlocated(tracking.Redirect), "Forwarded Redirected", "The changed delivery option has been saved in the GLS system.").
	Exact(stored, "The parcel is stored in the parcel center to be delivered at a new delivery date.").
	Prefix(stored, "The parcel is stored in the parcel center.", "The parcel is stored in the final parcel center.").
	Exact(located(tracking.WrongAddress, false), "The parcel could not be delivered as further address information is needed.").
	Exact(located(tracking.DeliveryRefused, false), "The parcel could not be delivered as the recipient refused acceptance.").
	Exact(located(tracking.StoreNotPickedUp, false), "The parcel has reached the maximum storage time in the ParcelShop.").
	Exact(located(tracking.Return, false), "The parcel has been returned to the shipper.").
	Exact(unlocated(tracking.Cancelled), "The parcel data have been deleted from the GLS IT system.").
	Exact(located(tracking.ParcelLabelPrinted, false), "The parcel label for the pickup has been produced.").
	Exact(located(tracking.Pickup, false), "The parcel has been picked up by GLS.")

// KnownLabels lists the status descriptions with a dedicated rule.
func KnownLabels() []string {
	return rules.Labels()
}

func (p *Parcel) derive(ctx context.Context, st *tuStatus) ([]tracking.Event, error) {
	records, err := p.records(st)
	if err != nil {
		return nil, err
	}
	d := &derivation{parcel: p, status: st}
	events := make([]tracking.Event, 0, len(records))
	for _, rec := range records {
		derived, err := d.classify(ctx, rec)
		if err != nil {
			return nil, err
		}
		events = append(events, derived...)
	}
	tracking.SortEvents(events)
	return events, nil
}

// records returns the history oldest first; the backend lists it newest first.
func (p *Parcel) records(st *tuStatus) ([]record, error) {
	out := make([]record, 0, len(st.History))
	for i := len(st.History) - 1; i >= 0; i-- {
		h := st.History[i]
		when, err := time.ParseInLocation(timeLayout, h.Date+" "+h.Time, p.client.cfg.Zone)
		if err != nil {
			return nil, tracking.NewParseError(Carrier, "event time", h.Date+" "+h.Time, err)
		}
		out = append(out, record{
			when:  when,
			label: h.Description,
			loc:   tracking.Location{City: h.Address.City, CountryCode: h.Address.CountryCode},
		})
	}
	slices.SortStableFunc(out, func(a, b record) int { return a.when.Compare(b.when) })
	return out, nil
}

func (d *derivation) classify(ctx context.Context, rec record) ([]tracking.Event, error) {
	r, ok := rules.Match(rec.label)
	if !ok {
		obs.RecordUnrecognizedStatus(Carrier)
		zerolog.Ctx(ctx).Debug().Str("carrier", Carrier).Str("status", rec.label).Msg("unrecognized carrier status")
		return []tracking.Event{tracking.NewEvent(tracking.Generic, rec.when, nil)}, nil
	}
	events, err := r(ctx, d, rec)
	if err != nil {
		return nil, err
	}
	// the last event of a record is the primary one; only it moves the fold
	if n := len(events); n > 0 && events[n-1].Kind.Locatable() {
		when := events[n-1].When
		d.firstScan = &when
	}
	return events, nil
}

func located(kind tracking.Kind, withRecipient bool) rule {
	return func(ctx context.Context, d *derivation, rec record) ([]tracking.Event, error) {
		ev := tracking.NewEvent(kind, rec.when, &rec.loc)
		if withRecipient {
			ev = ev.WithRecipient(d.deliveryRecipient(ctx))
		}
		return []tracking.Event{ev}, nil
	}
}

func unlocated(kind tracking.Kind) rule {
	return func(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
		return []tracking.Event{tracking.NewEvent(kind, rec.when, nil)}, nil
	}
}

func notified(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
	ev := tracking.NewEvent(tracking.RecipientNotification, rec.when, &rec.loc).WithNotification(tracking.NotificationCard)
	return []tracking.Event{ev}, nil
}

// reachedParcelShop is the consignor handing the parcel to a shop when it is
// the first scan (or shares its day), and a drop-off for the recipient later.
func reachedParcelShop(ctx context.Context, d *derivation, rec record) ([]tracking.Event, error) {
	if d.firstScan == nil || tracking.SameDay(*d.firstScan, rec.when) {
		return []tracking.Event{tracking.NewEvent(tracking.Posted, rec.when, &rec.loc)}, nil
	}
	return storeDropoff(ctx, d, rec)
}

func storeDropoff(ctx context.Context, d *derivation, rec record) ([]tracking.Event, error) {
	store, err := d.parcelShop(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		return []tracking.Event{tracking.AtStore(tracking.StoreDropoff, rec.when, *store)}, nil
	}
	return []tracking.Event{tracking.NewEvent(tracking.StoreDropoff, rec.when, &rec.loc)}, nil
}

func stored(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
	var events []tracking.Event
	switch {
	case strings.HasSuffix(rec.label, "It could not be delivered as further address information is needed."),
		strings.HasSuffix(rec.label, "It cannot be delivered as further address information is needed."):
		events = append(events, tracking.NewEvent(tracking.WrongAddress, rec.when, &rec.loc))
	case strings.HasSuffix(rec.label, "It could not be delivered as the reception was closed."):
		events = append(events, tracking.NewEvent(tracking.RecipientUnavailable, rec.when, &rec.loc))
	}
	return append(events, tracking.NewEvent(tracking.Stored, rec.when, &rec.loc)), nil
}

// deliveryRecipient looks up the signature name once per derivation. It
// needs the recipient's postcode; lookup failures leave the name empty.
func (d *derivation) deliveryRecipient(ctx context.Context) string {
	if d.recipient != nil {
		return *d.recipient
	}
	name := ""
	if d.parcel.postcode != "" {
		tn, err := d.parcel.TrackingNumber(ctx)
		if err == nil {
			name, err = d.parcel.client.fetchRecipient(ctx, tn, d.parcel.postcode)
		}
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("carrier", Carrier).Msg("recipient lookup failed")
			name = ""
		}
	}
	d.recipient = &name
	return name
}

// parcelShop resolves the parcel shop named in the payload. Transport
// failures degrade to no store; malformed shop data is an error.
func (d *derivation) parcelShop(ctx context.Context) (*tracking.Store, error) {
	if d.status.ParcelShop == nil || d.status.ParcelShop.ID == "" {
		return nil, nil
	}
	store, err := d.parcel.client.Store(ctx, d.status.ParcelShop.ID)
	if err != nil {
		if errors.Is(err, tracking.ErrMalformedData) {
			obs.RecordParseFailure(Carrier, "store")
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("carrier", Carrier).Str("parcel_shop", d.status.ParcelShop.ID).Msg("parcel shop lookup failed")
		return nil, nil
	}
	return store, nil
}
