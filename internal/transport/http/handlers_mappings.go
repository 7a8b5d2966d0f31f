package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"lif/internal/audit"
	"lif/internal/lif/identity"
	"lif/pkg/apperrors"
	"lif/pkg/platform/sentinel"
)

// mappingRequest is the REST shape of one identity mapping.
type mappingRequest struct {
	identity.Key
	TargetSystemPersonID string `json:"target_system_person_id"`
}

func (h *handler) handleRegisterMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	mapping, err := identity.NewMapping(req.Key, req.TargetSystemPersonID)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid mapping"))
		return
	}

	if err := h.mappings.Register(ctx, mapping); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventMappingConflict,
				"mapping_key", mappingSubject(req.Key),
				"outcome", "conflict",
				"reason", "existing mapping holds a different identifier",
			)
			writeError(w, r, apperrors.Wrap(err, apperrors.CodeConflict,
				"a mapping for this person and target already holds a different identifier"))
			return
		}
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInternal, "register mapping"))
		return
	}

	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventMappingRegistered,
		"mapping_key", mappingSubject(req.Key),
		"outcome", "ok",
	)
	writeJSON(w, http.StatusCreated, mapping)
}

func (h *handler) handleResolveMapping(w http.ResponseWriter, r *http.Request) {
	var key identity.Key
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := key.Validate(); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid mapping key"))
		return
	}

	targetID, err := h.mappings.Resolve(r.Context(), key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no mapping for key"))
			return
		}
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInternal, "resolve mapping"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"target_system_person_id": targetID})
}

func (h *handler) handleListMappings(w http.ResponseWriter, r *http.Request) {
	organizationID := r.URL.Query().Get("organization_id")
	personID := r.URL.Query().Get("person_id")
	if organizationID == "" || personID == "" {
		writeError(w, r, apperrors.New(apperrors.CodeBadRequest,
			"organization_id and person_id query parameters are required"))
		return
	}

	mappings, err := h.mappings.List(r.Context(), organizationID, personID)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInternal, "list mappings"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (h *handler) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var key identity.Key
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := key.Validate(); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid mapping key"))
		return
	}

	if err := h.mappings.Delete(ctx, key); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, r, apperrors.New(apperrors.CodeNotFound, "no mapping for key"))
			return
		}
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeInternal, "delete mapping"))
		return
	}

	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventMappingDeleted,
		"mapping_key", mappingSubject(key),
		"outcome", "ok",
	)
	w.WriteHeader(http.StatusNoContent)
}

func mappingSubject(key identity.Key) string {
	return key.TargetSystemID + "/" + key.TargetSystemPersonIDType + "/" + key.LIFOrganizationPersonID
}
