package server

import (
	"context"
	"errors"
	"net/http"

	"auto_spec_builder/generator"
	"auto_spec_builder/store"
)

// clientClosedRequest is the nginx convention for a caller that went away.
const clientClosedRequest = 499

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify turns any pipeline error into a status and a stable JSON body.
func classify(err error) (int, errorBody) {
	var statusErr *generator.BackendStatusError
	switch {
	case errors.Is(err, generator.ErrValidation):
		return http.StatusBadRequest, errorBody{err.Error(), "validation"}
	case errors.Is(err, store.ErrParentNotFound):
		return http.StatusNotFound, errorBody{err.Error(), "parent_not_found"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{err.Error(), "not_found"}
	case errors.Is(err, generator.ErrTimeout):
		return http.StatusGatewayTimeout, errorBody{err.Error(), "timeout"}
	case errors.Is(err, generator.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, errorBody{err.Error(), "backend_unavailable"}
	case errors.As(err, &statusErr), errors.Is(err, generator.ErrBackend):
		return http.StatusBadGateway, errorBody{err.Error(), "backend_error"}
	case errors.Is(err, generator.ErrMalformedGeneration):
		return http.StatusBadGateway, errorBody{err.Error(), "malformed_generation"}
	case errors.Is(err, store.ErrTransaction):
		return http.StatusInternalServerError, errorBody{"the change was rolled back", "transaction_failure"}
	case errors.Is(err, context.Canceled):
		return clientClosedRequest, errorBody{"request cancelled", "cancelled"}
	default:
		return http.StatusInternalServerError, errorBody{"internal error", "internal"}
	}
}
