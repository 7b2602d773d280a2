package proxy

import "net/http"

// Info is the document served at GET /.
type Info struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Provider     string   `json:"provider"`
	Endpoints    []string `json:"endpoints"`
	Capabilities []string `json:"capabilities"`
}

func infoHandler(info Info) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, info, http.StatusOK)
	}
}
