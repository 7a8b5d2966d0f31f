package httptransport

import (
	"encoding/json"
	"net/http"

	"lif/internal/lif/identity"
	"lif/internal/lif/query"
	"lif/pkg/apperrors"
)

// personQueryRequest is the REST shape of one person query.
type personQueryRequest struct {
	OrganizationID string                    `json:"organization_id"`
	Person         identity.PersonIdentifier `json:"person"`
	Paths          []string                  `json:"paths"`
	RequireAll     bool                      `json:"require_all"`
}

// personQueryResponse carries the merged record with any degradations.
type personQueryResponse struct {
	Person           []map[string]any `json:"person"`
	Warnings         []string         `json:"warnings,omitempty"`
	UnsatisfiedPaths []string         `json:"unsatisfied_paths,omitempty"`
	CorrelationID    string           `json:"correlation_id"`
}

func (h *handler) handlePersonQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req personQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.query.Query(ctx, query.Request{
		OrganizationID: req.OrganizationID,
		Person:         req.Person,
		Paths:          req.Paths,
		RequireAll:     req.RequireAll,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "person query failed",
			"correlation_id", result.CorrelationID,
			"error", err.Error(),
		)
		writeErrorCorrelated(w, err, result.CorrelationID)
		return
	}

	writeJSON(w, http.StatusOK, personQueryResponse{
		Person:           result.Record.Person,
		Warnings:         result.Warnings,
		UnsatisfiedPaths: result.UnsatisfiedPaths,
		CorrelationID:    result.CorrelationID,
	})
}
