package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"intelfeed/internal/export"
)

// refreshExports regenerates every export file immediately instead of waiting
// for the next timer tick.
func refreshExports(w http.ResponseWriter, r *http.Request) {
	outcome, err := export.Refresh(r.Context(), "manual")
	if err != nil {
		log.Error("Manual export refresh failed", "error", err)
		writeError(w, "Export refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
