package handlers

import (
	"net/http"
)

type equipmentResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
	// Source is "directory" or "registry".
	Source string `json:"source"`
}

// ListGroups handles GET /api/v1/groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Directory.Groups())
}

// GetGroup handles GET /api/v1/groups/{group}.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	equipment := h.Directory.Equipment(r.PathValue("group"))
	if equipment == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, equipment)
}

// GetEquipment handles GET /api/v1/equipment/{id}. The directory is
// consulted first, then the registry.
func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if e, ok := h.Directory.Find(id); ok {
		group, _ := h.Directory.GroupOf(id)
		writeJSON(w, http.StatusOK, equipmentResponse{ID: e.ID, Name: e.Name, Group: group, Source: "directory"})
		return
	}
	if name, ok := h.Registry.Name(id); ok {
		writeJSON(w, http.StatusOK, equipmentResponse{ID: id, Name: name, Source: "registry"})
		return
	}
	writeError(w, http.StatusNotFound, "equipment not found")
}

// ListRegistry handles GET /api/v1/registry.
func (h *Handler) ListRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.All())
}

// PutRegistry handles PUT /api/v1/registry/{id}, naming or renaming a
// scanned id.
func (h *Handler) PutRegistry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.Registry.Add(r.Context(), id, req.Name); err != nil {
		writeFailure(w, err, "failed to save equipment")
		return
	}
	name, _ := h.Registry.Name(id)
	writeJSON(w, http.StatusOK, equipmentResponse{ID: id, Name: name, Source: "registry"})
}

// DeleteRegistry handles DELETE /api/v1/registry/{id}. Readings recorded
// against the id are kept.
func (h *Handler) DeleteRegistry(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, err, "failed to delete equipment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
