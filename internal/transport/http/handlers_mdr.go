package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lif/internal/audit"
	"lif/internal/mdr"
	"lif/pkg/apperrors"
	"lif/pkg/platform/sentinel"
)

// storeError translates store sentinels into coded transport errors.
func storeError(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return apperrors.Wrap(err, apperrors.CodeNotFound, op)
	case errors.Is(err, sentinel.ErrConflict):
		return apperrors.Wrap(err, apperrors.CodeConflict, op)
	default:
		return apperrors.Wrap(err, apperrors.CodeInternal, op)
	}
}

type entityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *handler) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}
	entity, err := mdr.NewEntity(req.Name, req.Description)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid entity"))
		return
	}

	if err := h.registry.Store().CreateEntity(ctx, entity); err != nil {
		writeError(w, r, storeError(err, "create entity"))
		return
	}

	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventEntityCreated,
		"entity", entity.Name, "outcome", "ok")
	writeJSON(w, http.StatusCreated, entity)
}

func (h *handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := h.registry.Store().GetEntity(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, r, storeError(err, "get entity"))
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *handler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.registry.Store().ListEntities(r.Context())
	if err != nil {
		writeError(w, r, storeError(err, "list entities"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

func (h *handler) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	entity, err := h.registry.Store().GetEntity(ctx, chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, r, storeError(err, "get entity"))
		return
	}
	if req.Name != "" {
		updated, err := mdr.NewEntity(req.Name, "")
		if err != nil {
			writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid entity"))
			return
		}
		entity.Name = updated.Name
	}
	entity.Description = req.Description

	if err := h.registry.Store().UpdateEntity(ctx, entity); err != nil {
		writeError(w, r, storeError(err, "update entity"))
		return
	}

	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventEntityUpdated,
		"entity", entity.Name, "outcome", "ok")
	writeJSON(w, http.StatusOK, entity)
}

func (h *handler) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID := chi.URLParam(r, "entityID")

	if err := h.registry.Store().DeleteEntity(ctx, entityID); err != nil {
		writeError(w, r, storeError(err, "delete entity"))
		return
	}

	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventEntityDeleted,
		"entity", entityID, "outcome", "ok")
	w.WriteHeader(http.StatusNoContent)
}

type attributeRequest struct {
	Name        string `json:"name"`
	SchemaType  string `json:"schema_type"`
	Multivalued bool   `json:"multivalued"`
}

func (h *handler) handleAddAttribute(w http.ResponseWriter, r *http.Request) {
	var req attributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	attribute, err := mdr.NewAttribute(chi.URLParam(r, "entityID"), req.Name, req.SchemaType, req.Multivalued)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid attribute"))
		return
	}
	if err := h.registry.Store().AddAttribute(r.Context(), attribute); err != nil {
		writeError(w, r, storeError(err, "add attribute"))
		return
	}
	writeJSON(w, http.StatusCreated, attribute)
}

func (h *handler) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	attributes, err := h.registry.Store().ListAttributes(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, r, storeError(err, "list attributes"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attributes": attributes})
}

func (h *handler) handleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Store().DeleteAttribute(r.Context(), chi.URLParam(r, "attributeID")); err != nil {
		writeError(w, r, storeError(err, "delete attribute"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inclusionRequest struct {
	Name          string `json:"name"`
	ChildEntityID string `json:"child_entity_id"`
	Multivalued   bool   `json:"multivalued"`
}

func (h *handler) handleAddInclusion(w http.ResponseWriter, r *http.Request) {
	var req inclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	inclusion, err := mdr.NewInclusion(chi.URLParam(r, "entityID"), req.ChildEntityID, req.Name, req.Multivalued)
	if err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid inclusion"))
		return
	}
	if err := h.registry.Store().AddInclusion(r.Context(), inclusion); err != nil {
		writeError(w, r, storeError(err, "add inclusion"))
		return
	}
	writeJSON(w, http.StatusCreated, inclusion)
}

func (h *handler) handleListInclusions(w http.ResponseWriter, r *http.Request) {
	inclusions, err := h.registry.Store().ListInclusions(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, r, storeError(err, "list inclusions"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inclusions": inclusions})
}

func (h *handler) handleDeleteInclusion(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Store().DeleteInclusion(r.Context(), chi.URLParam(r, "inclusionID")); err != nil {
		writeError(w, r, storeError(err, "delete inclusion"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleFragmentPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.registry.FragmentPaths(r.Context())
	if err != nil {
		writeError(w, r, storeError(err, "derive fragment paths"))
		return
	}

	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": out})
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.registry.Export(ctx)
	if err != nil {
		writeError(w, r, storeError(err, "export registry"))
		return
	}
	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventRegistryExport, "outcome", "ok")
	writeJSON(w, http.StatusOK, doc)
}

func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var doc mdr.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "invalid registry document"))
		return
	}
	if err := h.registry.Import(ctx, doc); err != nil {
		writeError(w, r, storeError(err, "import registry"))
		return
	}

	audit.LogAudit(ctx, h.logger, h.auditPub, audit.EventRegistryImport,
		"outcome", "ok", "entities", len(doc.Entities))
	w.WriteHeader(http.StatusNoContent)
}
