package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identityFromRequest resolves the acting user from the identity header the
// fronting auth layer injects. Nil means a caller without a user context;
// pipeline-internal actions never go through here at all.
func identityFromRequest(r *http.Request) *uint64 {
	raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	return page, pageSize
}

// OpenRoutes starts the API server and blocks until it terminates.
func OpenRoutes(port int) error {
	router := http.NewServeMux()

	router.HandleFunc("GET /health", health)
	router.Handle("GET /metrics", promhttp.Handler())

	router.HandleFunc("GET /api/data-sources", listDataSources)
	router.HandleFunc("POST /api/data-sources", createDataSource)
	router.HandleFunc("GET /api/data-sources/{id}", getDataSource)
	router.HandleFunc("PUT /api/data-sources/{id}", updateDataSource)
	router.HandleFunc("DELETE /api/data-sources/{id}", deleteDataSource)
	router.HandleFunc("POST /api/data-sources/{id}/pause", pauseDataSource)
	router.HandleFunc("POST /api/data-sources/{id}/resume", resumeDataSource)
	router.HandleFunc("POST /api/data-sources/{id}/fetch", fetchDataSource)

	router.HandleFunc("GET /api/indicators", listIndicators)
	router.HandleFunc("POST /api/indicators", createIndicator)
	router.HandleFunc("GET /api/indicators/{id}", getIndicator)
	router.HandleFunc("PUT /api/indicators/{id}", updateIndicator)
	router.HandleFunc("DELETE /api/indicators/{id}", deleteIndicator)
	router.HandleFunc("POST /api/indicators/{id}/temp-activate", tempActivateIndicator)
	router.HandleFunc("GET /api/indicators/{id}/notes", listIndicatorNotes)
	router.HandleFunc("POST /api/indicators/{id}/notes", addIndicatorNote)

	router.HandleFunc("GET /api/whitelist", listWhitelistEntries)
	router.HandleFunc("POST /api/whitelist", createWhitelistEntry)
	router.HandleFunc("DELETE /api/whitelist/{id}", deleteWhitelistEntry)
	router.HandleFunc("POST /api/whitelist/check", checkWhitelist)
	router.HandleFunc("GET /api/whitelist/blocks", listWhitelistBlocks)

	router.HandleFunc("POST /api/exports/refresh", refreshExports)

	log.Debug("Routes opened")

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: enableCORS(router),
	}

	log.Infof("Starting API server on port %d", port)
	return server.ListenAndServe()
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
