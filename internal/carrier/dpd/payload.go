package dpd

type statusPayload struct {
	TrackingStatus *trackingStatus `json:"TrackingStatusJSON"`
	Error          *backendError   `json:"ErrorJSON"`
}

type backendError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type trackingStatus struct {
	ShipmentInfo shipmentInfo `json:"shipmentInfo"`
	StatusInfos  []statusInfo `json:"statusInfos"`
}

type shipmentInfo struct {
	Product string `json:"product"`
}

type statusInfo struct {
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	City     string    `json:"city"`
	Contents []content `json:"contents"`
}

// content is one line of a status record. The first line carries the status
// label; later lines refine it or embed a parcel shop ("modal" content).
type content struct {
	Label       string `json:"label"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}
