// Package api serves normalized tracking reports over HTTP.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parceltrack/internal/carrier"
	"github.com/noah-isme/parceltrack/internal/common"
)

// Handler exposes the tracking endpoints.
type Handler struct {
	Registry *carrier.Registry
	Validate *validator.Validate
}

// NewHandler returns a handler backed by registry.
func NewHandler(registry *carrier.Registry) *Handler {
	return &Handler{Registry: registry, Validate: validator.New()}
}

// Routes mounts the tracking endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/carriers", h.Carriers)
	r.Get("/track/{carrier}/{number}", h.Track)
	r.Get("/barcode/{barcode}", h.Barcode)
}

type trackRequest struct {
	Carrier  string `validate:"required,alpha,max=16"`
	Number   string `validate:"required,printascii,max=64"`
	Postcode string `validate:"omitempty,alphanum,max=10"`
}

// GLS 2D labels carry 123 characters.
type barcodeRequest struct {
	Barcode string `validate:"required,printascii,max=128"`
}

// Carriers lists the carriers this server tracks.
func (h *Handler) Carriers(w http.ResponseWriter, _ *http.Request) {
	common.Data(w, http.StatusOK, h.Registry.Carriers())
}

// Track looks a parcel up by carrier and tracking number.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	req := trackRequest{
		Carrier:  chi.URLParam(r, "carrier"),
		Number:   strings.TrimSpace(chi.URLParam(r, "number")),
		Postcode: strings.TrimSpace(r.URL.Query().Get("postcode")),
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}
	parcel, err := h.Registry.New(req.Carrier, req.Number, req.Postcode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.describe(w, r, parcel)
}

// Barcode looks a parcel up by the content of its label barcode.
func (h *Handler) Barcode(w http.ResponseWriter, r *http.Request) {
	req := barcodeRequest{Barcode: strings.TrimSpace(chi.URLParam(r, "barcode"))}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}
	parcel, err := h.Registry.FromBarcode(req.Barcode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.describe(w, r, parcel)
}

func (h *Handler) describe(w http.ResponseWriter, r *http.Request, parcel carrier.Parcel) {
	report, err := h.Registry.Describe(r.Context(), parcel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, report)
}

func logFor(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
