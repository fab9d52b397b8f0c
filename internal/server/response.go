package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/me/clustersim/internal/engine"
	"github.com/me/clustersim/internal/scheduler"
	"github.com/me/clustersim/internal/store"
	"github.com/me/clustersim/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

// respondErr maps an error from the scheduler, engine or store onto an HTTP
// status and API error code.
func respondErr(w http.ResponseWriter, reqID string, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		respondError(w, reqID, statusFor(apiErr.Code), apiErr)
		return
	}

	code := model.ErrInternal
	switch {
	case errors.Is(err, engine.ErrAllocation):
		code = model.ErrAllocation
	case errors.Is(err, engine.ErrNotFound),
		errors.Is(err, scheduler.ErrSnapshotNotFound),
		errors.Is(err, store.ErrNotFound):
		code = model.ErrNotFound
	case errors.Is(err, engine.ErrConflict),
		errors.Is(err, scheduler.ErrNoNodes):
		code = model.ErrConflict
	case errors.Is(err, scheduler.ErrUnschedulable),
		errors.Is(err, engine.ErrOutOfBounds):
		code = model.ErrValidation
	case errors.Is(err, scheduler.ErrNoStore):
		code = model.ErrUnavailable
	}
	respondError(w, reqID, statusFor(code), &model.APIError{Code: code, Message: err.Error()})
}

func statusFor(code model.ErrorCode) int {
	switch code {
	case model.ErrValidation:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrConflict:
		return http.StatusConflict
	case model.ErrAllocation:
		return http.StatusInsufficientStorage
	case model.ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// decodeBody decodes a JSON request body into dst. With allowEmpty, an
// empty body leaves dst unchanged.
func decodeBody(r *http.Request, dst any, allowEmpty bool) *model.APIError {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return &model.APIError{
		Code:    model.ErrValidation,
		Message: "Invalid JSON body: " + err.Error(),
	}
}

// listOptions reads limit and offset query parameters.
func listOptions(r *http.Request) (model.ListOptions, *model.APIError) {
	opts := model.DefaultListOptions()
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, model.NewValidationError("invalid query parameter",
				model.FieldError{Field: p.name, Message: "must be an integer"})
		}
		*p.dst = n
	}
	opts.Label = q.Get("label")
	opts.Clamp()
	return opts, nil
}
