package obs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteOf returns the chi pattern r was dispatched to, or fallback when the
// router has not matched it yet. The pattern keeps metric label cardinality
// bounded, unlike raw paths that embed tracking numbers.
func RouteOf(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}
