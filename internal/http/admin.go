package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aicarousel/gateway/internal/domain"
)

// AdminHandler is a thin HTTP skin over the CredentialStore,
// ProviderSettingsStore, and ModelsConfig mutations, carrying no
// dispatch-core logic of its own.
type AdminHandler struct {
	creds    domain.CredentialStore
	settings domain.ProviderSettingsStore
	models   domain.ModelsConfig
}

// NewAdminHandler creates a new AdminHandler (DI constructor).
func NewAdminHandler(creds domain.CredentialStore, settings domain.ProviderSettingsStore, models domain.ModelsConfig) *AdminHandler {
	return &AdminHandler{creds: creds, settings: settings, models: models}
}

// HandleKeys handles GET (list) and POST (create) on /v1/admin/keys.
func (h *AdminHandler) HandleKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		records, err := h.creds.List(ctx)
		if err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, records)

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		plaintext, record, err := h.creds.Create(ctx, body.Name)
		if err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": plaintext, "record": record})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleKeyByID handles DELETE and PATCH (revoke) on /v1/admin/keys/{id}.
func (h *AdminHandler) HandleKeyByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/v1/admin/keys/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid key id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := h.creds.Delete(r.Context(), id); err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})

	case http.MethodPatch:
		if err := h.creds.Revoke(r.Context(), id); err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleProviders handles GET (list) and PATCH (enable/priority) on
// /v1/admin/providers.
func (h *AdminHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		settings, err := h.settings.List(ctx)
		if err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPatch:
		var setting domain.ProviderSetting
		if err := json.NewDecoder(r.Body).Decode(&setting); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.settings.Upsert(ctx, setting); err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, setting)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// modelsPatchRequest carries one of the §4.2 mutations. Exactly one
// non-empty operation should be present.
type modelsPatchRequest struct {
	Op          string   `json:"op"`
	ProviderKey string   `json:"providerKey"`
	Model       string   `json:"model"`
	OldName     string   `json:"oldName"`
	NewName     string   `json:"newName"`
	Order       []string `json:"order"`
	Desired     *bool    `json:"desired"`
}

// HandleModels handles GET (read snapshot) and PATCH (mutate) on
// /v1/admin/models.
func (h *AdminHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		snapshot, err := h.models.Read(ctx)
		if err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)

	case http.MethodPatch:
		var req modelsPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var err error
		switch req.Op {
		case "add":
			err = h.models.AddModel(ctx, req.ProviderKey, req.Model)
		case "remove":
			err = h.models.RemoveModel(ctx, req.ProviderKey, req.Model)
		case "setDefault":
			err = h.models.SetDefault(ctx, req.ProviderKey, req.Model)
		case "toggleFallback":
			_, err = h.models.ToggleFallback(ctx, req.ProviderKey, req.Desired)
		case "reorder":
			err = h.models.ReorderModels(ctx, req.ProviderKey, req.Order)
		case "rename":
			err = h.models.UpdateModel(ctx, req.ProviderKey, req.OldName, req.NewName)
		default:
			http.Error(w, "unknown op", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeAdminError(w, http.StatusBadRequest, err)
			return
		}

		snapshot, err := h.models.Read(ctx)
		if err != nil {
			writeAdminError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeAdminError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
