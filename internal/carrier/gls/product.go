package gls

import "strconv"

// ProductID returns the product id encoded in digits three and four of a
// tracking number, or -1 when they are not numeric.
func ProductID(trackingNumber string) int {
	if len(trackingNumber) < 4 {
		return -1
	}
	id, err := strconv.Atoi(trackingNumber[2:4])
	if err != nil {
		return -1
	}
	return id
}

// ProductName maps a product id to its service name. Unlisted ids are
// ordinary business parcels.
func ProductName(id int) string {
	switch {
	case id >= 10 && id < 68:
		return "Business-Parcel"
	case id == 71:
		return "Cash-Service (+DAC)"
	case id == 72:
		return "Cash-Service+Exchange-Service"
	case id == 74:
		return "DeliveryAtWork-Service"
	case id == 75:
		return "Guaranteed 24-Service"
	case id == 76:
		return "ShopReturn-Service"
	case id == 78:
		return "Intercompany-Service"
	case id == 85:
		return "Express-Parcel"
	case id == 87:
		return "Exchange-Service Hintransport"
	case id == 89:
		return "Pick&Return/Ship"
	}
	return "Business-Parcel"
}

// Services are the product flags derived from a tracking number.
type Services struct {
	CashOnDelivery   bool `json:"cashOnDelivery"`
	CourierPickup    bool `json:"courierPickup"`
	ParcelShopReturn bool `json:"parcelShopReturn"`
	Express          bool `json:"express"`
}

// ServicesFor derives the product flags of a product id.
func ServicesFor(id int) Services {
	return Services{
		CashOnDelivery:   id == 71 || id == 72,
		CourierPickup:    id == 89,
		ParcelShopReturn: id == 76,
		Express:          id == 85,
	}
}
