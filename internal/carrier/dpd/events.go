package dpd

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

const (
	timeLayout = "02-01-2006 15:04"

	// endOfDay stands in for records the backend lists without a time.
	endOfDay = "23:59"

	subWrongAddress   = "Consignee address not correct."
	subReturnToSender = "(Return to sender)"
)

var depositAuthorisations = []string{
	"Delivery / general authorisation to deposit.",
	"Delivery / one-off authorisation to deposit.",
}

type record struct {
	when     time.Time
	loc      *tracking.Location
	label    string
	contents []content
}

// sub returns the label of the i-th refining line, or "".
func (r record) sub(i int) string {
	if i < len(r.contents) {
		return r.contents[i].Label
	}
	return ""
}

// has reports whether any refining line carries label.
func (r record) has(label string) bool {
	for _, c := range r.contents[1:] {
		if c.Label == label {
			return true
		}
	}
	return false
}

type derivation struct {
	parcel *Parcel
}

type rule func(ctx context.Context, d *derivation, rec record) ([]tracking.Event, error)

var rules = tracking.NewClassifier[rule]().
	Exact(plain(tracking.DataReceived),
		"Order information has been transmitted to DPD.",
		"The data of your delivery specifications has been transmitted.").
	Exact(plain(tracking.Posted), "Parcel handed to Pickup parcelshop by consignor.").
	Exact(atParcelShop(tracking.StorePickup),
		"Pick-up from the Pickup parcelshop by DPD driver",
		"Pick-up from the Pickup parcelshop by DPD driver.").
	Exact(sorted, "In transit.", "At parcel delivery centre.").
	Exact(outForDelivery, "Out for delivery.").
	Exact(notDelivered, "Unfortunately we have not been able to deliver your parcel.").
	Exact(plain(tracking.InboundSort), "Back at parcel delivery centre after an unsuccessful delivery attempt.").
	Exact(notAsArranged, "We're sorry but your parcel couldn't be delivered as arranged.").
	Exact(delivered, "Delivered.").
	Exact(atParcelShop(tracking.StoreDropoff), "Transfer to Pickup parcelshop by DPD driver.").
	Exact(plain(tracking.Delivery),
		"Collected by consignee from Pickup parcelshop.",
		"Picked up from Pickup parcelshop by consignee.").
	Exact(plain(tracking.Pickup), "Received by DPD from consignor.")

// KnownLabels lists the status labels with a dedicated rule.
func KnownLabels() []string {
	return rules.Labels()
}

func (p *Parcel) derive(ctx context.Context, st *trackingStatus) ([]tracking.Event, error) {
	records, err := p.records(st)
	if err != nil {
		return nil, err
	}
	d := &derivation{parcel: p}
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

// records converts the status infos, dropping those without contents.
func (p *Parcel) records(st *trackingStatus) ([]record, error) {
	out := make([]record, 0, len(st.StatusInfos))
	for _, info := range st.StatusInfos {
		if len(info.Contents) == 0 {
			continue
		}
		clock := strings.TrimSpace(info.Time)
		if clock == "-" || clock == "" {
			clock = endOfDay
		}
		raw := strings.TrimSpace(info.Date) + " " + clock
		when, err := time.ParseInLocation(timeLayout, raw, p.client.cfg.Zone)
		if err != nil {
			return nil, tracking.NewParseError(Carrier, "event time", raw, err)
		}
		rec := record{when: when, label: info.Contents[0].Label, contents: info.Contents}
		if city := strings.TrimSpace(info.City); city != "" {
			loc := tracking.ParseLocation(city)
			rec.loc = &loc
		}
		out = append(out, rec)
	}
	slices.SortStableFunc(out, func(a, b record) int { return a.when.Compare(b.when) })
	return out, nil
}

func (d *derivation) classify(ctx context.Context, rec record) ([]tracking.Event, error) {
	r, ok := rules.Match(rec.label)
	if !ok {
		return []tracking.Event{generic(ctx, rec)}, nil
	}
	return r(ctx, d, rec)
}

func generic(ctx context.Context, rec record) tracking.Event {
	obs.RecordUnrecognizedStatus(Carrier)
	zerolog.Ctx(ctx).Debug().Str("carrier", Carrier).Str("status", rec.label).Msg("unrecognized carrier status")
	return tracking.NewEvent(tracking.Generic, rec.when, nil)
}

func plain(kind tracking.Kind) rule {
	return func(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
		return []tracking.Event{tracking.NewEvent(kind, rec.when, rec.loc)}, nil
	}
}

// atParcelShop places the event at the parcel shop embedded in the record,
// falling back to the scan location.
func atParcelShop(kind tracking.Kind) rule {
	return func(_ context.Context, d *derivation, rec record) ([]tracking.Event, error) {
		for _, c := range rec.contents[1:] {
			if c.ContentType != "modal" {
				continue
			}
			store, err := ParseStore(c.Label, c.Content, d.parcel.client.cfg.ContactMapping)
			if err != nil {
				obs.RecordParseFailure(Carrier, "store")
				return nil, err
			}
			return []tracking.Event{tracking.AtStore(kind, rec.when, *store)}, nil
		}
		return []tracking.Event{tracking.NewEvent(kind, rec.when, rec.loc)}, nil
	}
}

func sorted(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
	events := []tracking.Event{tracking.NewEvent(tracking.Sort, rec.when, rec.loc)}
	if rec.sub(1) == subWrongAddress {
		events = append(events, tracking.NewEvent(tracking.WrongAddress, rec.when, rec.loc))
	}
	if rec.has(subReturnToSender) {
		events = append(events, tracking.NewEvent(tracking.Return, rec.when, rec.loc))
	}
	return events, nil
}

func outForDelivery(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
	var events []tracking.Event
	if rec.has(subReturnToSender) {
		events = append(events, tracking.NewEvent(tracking.Return, rec.when, rec.loc))
	}
	return append(events, tracking.NewEvent(tracking.InDelivery, rec.when, rec.loc)), nil
}

func notDelivered(_ context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
	sub := rec.sub(1)
	switch {
	case sub == "Consignee not located, notification has been left.":
		return []tracking.Event{
			tracking.NewEvent(tracking.RecipientUnavailable, rec.when, rec.loc),
			tracking.NewEvent(tracking.RecipientNotification, rec.when, rec.loc).WithNotification(tracking.NotificationNotice),
		}, nil
	case sub == subWrongAddress:
		return []tracking.Event{tracking.NewEvent(tracking.WrongAddress, rec.when, rec.loc)}, nil
	case strings.HasPrefix(sub, "Refusal to accept delivery"):
		return []tracking.Event{tracking.NewEvent(tracking.DeliveryRefused, rec.when, rec.loc)}, nil
	}
	return []tracking.Event{tracking.NewEvent(tracking.FailedDelivery, rec.when, rec.loc)}, nil
}

// notAsArranged only knows two reasons; others become a generic event.
func notAsArranged(ctx context.Context, _ *derivation, rec record) ([]tracking.Event, error) {
	switch rec.sub(1) {
	case "Return to consignor after unsuccessful delivery to third party.":
		return []tracking.Event{tracking.NewEvent(tracking.Return, rec.when, rec.loc)}, nil
	case subWrongAddress:
		return []tracking.Event{tracking.NewEvent(tracking.WrongAddress, rec.when, rec.loc)}, nil
	}
	return []tracking.Event{generic(ctx, rec)}, nil
}

func delivered(ctx context.Context, d *derivation, rec record) ([]tracking.Event, error) {
	if slices.Contains(depositAuthorisations, rec.sub(1)) {
		return []tracking.Event{tracking.NewEvent(tracking.DeliveryDropOff, rec.when, rec.loc)}, nil
	}
	ev := tracking.NewEvent(tracking.Delivery, rec.when, rec.loc).WithRecipient(d.deliveryRecipient(ctx))
	return []tracking.Event{ev}, nil
}

// deliveryRecipient degrades to "" when the lookup fails.
func (d *derivation) deliveryRecipient(ctx context.Context) string {
	name, err := d.parcel.Recipient(ctx)
	if err != nil {
		if errors.Is(err, tracking.ErrMalformedData) {
			obs.RecordParseFailure(Carrier, "recipient")
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("carrier", Carrier).Msg("recipient lookup failed")
		return ""
	}
	return name
}
