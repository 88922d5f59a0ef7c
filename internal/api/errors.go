package api

import (
	"context"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/parceltrack/internal/carrier"
	"github.com/noah-isme/parceltrack/internal/common"
	"github.com/noah-isme/parceltrack/internal/tracking"
	"github.com/noah-isme/parceltrack/internal/transport"
)

// toAppError maps lookup failures onto HTTP errors. Unsupported identifiers
// are checked first since barcode decode failures also carry a ParseError.
func toAppError(err error) *common.AppError {
	if appErr, ok := common.AsAppError(err); ok {
		return appErr
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return common.NewAppError("BAD_REQUEST", "invalid request", http.StatusBadRequest, err).WithDetails(fields)
	}

	switch {
	case errors.Is(err, carrier.ErrUnknownCarrier):
		return common.NewAppError("UNKNOWN_CARRIER", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, tracking.ErrUnsupportedIdentifier):
		return common.NewAppError("UNSUPPORTED_IDENTIFIER", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, tracking.ErrUnknownParcel):
		return common.NewAppError("NOT_FOUND", "parcel not found", http.StatusNotFound, err)
	case errors.Is(err, tracking.ErrMalformedData):
		e := common.NewAppError("UNSUPPORTED_DATA", "carrier returned data that could not be interpreted", http.StatusBadGateway, err)
		var perr *tracking.ParseError
		if errors.As(err, &perr) {
			return e.WithDetails(map[string]string{"carrier": perr.Carrier, "field": perr.Field})
		}
		return e
	case errors.Is(err, transport.ErrOpenCircuit):
		return common.NewAppError("CARRIER_UNAVAILABLE", "carrier temporarily unavailable", http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError("UPSTREAM_TIMEOUT", "carrier backend timed out", http.StatusGatewayTimeout, err)
	}
	return common.NewAppError("UPSTREAM", "carrier backend unavailable", http.StatusBadGateway, err)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	event := logFor(r).Warn()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		event = logFor(r).Error()
	}
	event.Err(err).Str("code", appErr.Code).Msg("tracking request failed")
	common.WriteAppError(w, appErr)
}
