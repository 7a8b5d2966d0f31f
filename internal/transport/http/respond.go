package httptransport

import (
	"encoding/json"
	"net/http"

	"lif/pkg/apperrors"
	"lif/pkg/requestcontext"
)

// errorResponse is the JSON error envelope. The correlation ID lets callers
// trace a failure across the fan-out boundary.
type errorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorCorrelated(w, err, requestcontext.CorrelationID(r.Context()))
}

// writeErrorCorrelated renders an error with an explicit correlation ID,
// for flows that mint one deeper than the middleware (the query service).
func writeErrorCorrelated(w http.ResponseWriter, err error, correlationID string) {
	code := apperrors.CodeOf(err)
	writeJSON(w, apperrors.ToHTTPStatus(code), errorResponse{
		Error:         string(code),
		Message:       err.Error(),
		CorrelationID: correlationID,
	})
}
