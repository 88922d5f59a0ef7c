package tracking

import (
	"fmt"
	"time"
)

// Kind enumerates the carrier-agnostic event variants.
type Kind int

const (
	// Generic is emitted for carrier statuses without a known meaning.
	Generic Kind = iota
	DataReceived
	Posted
	Pickup
	InboundSort
	Sort
	ManualSort
	OutboundSort
	InDelivery
	Delivery
	DeliveryDropOff
	DeliveryNeighbour
	StorePickup
	StoreDropoff
	StoreNotPickedUp
	RecipientUnavailable
	RecipientNotification
	WrongAddress
	DeliveryRefused
	FailedDelivery
	Return
	Redirect
	Stored
	Cancelled
	ParcelLabelPrinted
)

var kindNames = [...]string{
	Generic:               "generic",
	DataReceived:          "data_received",
	Posted:                "posted",
	Pickup:                "pickup",
	InboundSort:           "inbound_sort",
	Sort:                  "sort",
	ManualSort:            "manual_sort",
	OutboundSort:          "outbound_sort",
	InDelivery:            "in_delivery",
	Delivery:              "delivery",
	DeliveryDropOff:       "delivery_drop_off",
	DeliveryNeighbour:     "delivery_neighbour",
	StorePickup:           "store_pickup",
	StoreDropoff:          "store_dropoff",
	StoreNotPickedUp:      "store_not_picked_up",
	RecipientUnavailable:  "recipient_unavailable",
	RecipientNotification: "recipient_notification",
	WrongAddress:          "wrong_address",
	DeliveryRefused:       "delivery_refused",
	FailedDelivery:        "failed_delivery",
	Return:                "return",
	Redirect:              "redirect",
	Stored:                "stored",
	Cancelled:             "cancelled",
	ParcelLabelPrinted:    "parcel_label_printed",
}

// Kinds returns every event kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("tracking: invalid kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("tracking: unknown kind %q", text)
}

// Locatable reports whether events of this kind carry a place.
func (k Kind) Locatable() bool {
	switch k {
	case Generic, DataReceived, Redirect, Cancelled:
		return false
	}
	return true
}

// Notification describes how a recipient was told about a delivery attempt.
type Notification string

const (
	NotificationCard   Notification = "card"
	NotificationNotice Notification = "notification"
)

// Event is one normalized step in a parcel timeline. Location and Store are
// mutually exclusive; both are nil when the carrier reported no place.
type Event struct {
	Kind         Kind         `json:"kind"`
	When         time.Time    `json:"when"`
	Location     *Location    `json:"location,omitempty"`
	Store        *Store       `json:"store,omitempty"`
	Recipient    string       `json:"recipient,omitempty"`
	Notification Notification `json:"notification,omitempty"`
}

// NewEvent builds an event of the given kind. Place information is dropped
// for kinds that do not carry one.
func NewEvent(kind Kind, when time.Time, loc *Location) Event {
	ev := Event{Kind: kind, When: when}
	if kind.Locatable() && loc != nil {
		l := *loc
		ev.Location = &l
	}
	return ev
}

// AtStore builds an event located at a store.
func AtStore(kind Kind, when time.Time, store Store) Event {
	return Event{Kind: kind, When: when, Store: &store}
}

// WithRecipient returns a copy of ev naming the person who accepted the parcel.
func (ev Event) WithRecipient(name string) Event {
	ev.Recipient = name
	return ev
}

// WithNotification returns a copy of ev carrying the notification kind.
func (ev Event) WithNotification(n Notification) Event {
	ev.Notification = n
	return ev
}

// Place returns the city level location of the event, resolving stores.
func (ev Event) Place() (Location, bool) {
	switch {
	case ev.Store != nil:
		return ev.Store.Location(), true
	case ev.Location != nil:
		return *ev.Location, true
	}
	return Location{}, false
}
