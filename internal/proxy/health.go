package proxy

import "net/http"

type healthStatus struct {
	Status string `json:"status"`
}

// livenessHandler always answers 200 while the process is serving.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, healthStatus{Status: "ok"}, http.StatusOK)
	}
}

// readinessHandler answers 200 once the application accepts traffic and 503
// before startup completes or during shutdown.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if checker.IsReady() {
			writeJSON(r.Context(), w, healthStatus{Status: "ready"}, http.StatusOK)
			return
		}
		writeJSON(r.Context(), w, healthStatus{Status: "unavailable"}, http.StatusServiceUnavailable)
	}
}
