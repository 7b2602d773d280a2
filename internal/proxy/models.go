package proxy

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/florianilch/claudine-gateway/internal/messagesadapter/types"
	"github.com/florianilch/claudine-gateway/internal/models"
)

// modelsHandler lists the catalog.
//
// The response uses a merged format compatible with both Anthropic and OpenAI
// clients, combining fields from both API specifications. This approach assumes
// that most clients ignore unknown fields.
func modelsHandler(catalog *models.Catalog) http.HandlerFunc {
	entries := catalog.List()
	list := types.ModelList{
		Object: "list",
		Data:   make([]types.ModelInfo, 0, len(entries)),
	}
	for _, m := range entries {
		list.Data = append(list.Data, modelInfo(m))
	}
	if n := len(list.Data); n > 0 {
		list.FirstID = &list.Data[0].ID
		list.LastID = &list.Data[n-1].ID
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, list, http.StatusOK)
	}
}

// modelHandler returns a single catalog entry by id.
func modelHandler(catalog *models.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, ok := catalog.Lookup(id)
		if !ok {
			writeJSONAnthropicError(r.Context(), w,
				types.NewErrorResponse(types.ErrorTypeNotFound, "model not found: "+id))
			return
		}
		writeJSON(r.Context(), w, modelInfo(m), http.StatusOK)
	}
}

func modelInfo(m models.Model) types.ModelInfo {
	return types.ModelInfo{
		ID:            m.ID,
		Object:        "model",
		Type:          "model",
		DisplayName:   m.DisplayName,
		Created:       m.Created,
		CreatedAt:     time.Unix(m.Created, 0).UTC().Format(time.RFC3339),
		OwnedBy:       m.OwnedBy,
		ContextWindow: m.ContextWindow,
	}
}
