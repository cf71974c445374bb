package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"intelfeed/internal/api/dto"
	"intelfeed/internal/audit"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/whitelist"
)

func listWhitelistEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := database.ListWhitelistEntries(r.Context())
	if err != nil {
		log.Error("Failed to list whitelist entries", "error", err)
		writeError(w, "Could not load whitelist", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func createWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	var payload dto.WhitelistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Value = strings.TrimSpace(payload.Value)
	if payload.Value == "" {
		writeError(w, "Whitelist value is required", http.StatusBadRequest)
		return
	}
	if !domain.IndicatorType(payload.Type).IsValid() {
		writeError(w, "Unknown indicator type", http.StatusBadRequest)
		return
	}

	entry := domain.WhitelistEntry{
		Value:     payload.Value,
		Type:      payload.Type,
		Reason:    payload.Reason,
		CreatedBy: identityFromRequest(r),
	}
	if err := database.CreateWhitelistEntry(r.Context(), &entry); err != nil {
		writeError(w, "Whitelist entry already exists or could not be created", http.StatusConflict)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionCreate,
		Resource:   "whitelist",
		ResourceID: strconv.FormatUint(entry.ID, 10),
		Details:    "whitelist entry created: " + entry.Value,
		UserID:     entry.CreatedBy,
		IPAddress:  r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, entry)
}

func deleteWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid whitelist entry id", http.StatusBadRequest)
		return
	}

	if err := database.DeleteWhitelistEntry(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrWhitelistEntryNotFound) {
			writeError(w, "Whitelist entry not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not delete whitelist entry", http.StatusInternalServerError)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionDelete,
		Resource:   "whitelist",
		ResourceID: strconv.FormatUint(id, 10),
		Details:    "whitelist entry deleted",
		UserID:     identityFromRequest(r),
		IPAddress:  r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}

// checkWhitelist reports whether a value would be blocked on ingestion. It
// never writes indicator rows.
func checkWhitelist(w http.ResponseWriter, r *http.Request) {
	var payload dto.WhitelistCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Value = strings.TrimSpace(payload.Value)
	if payload.Value == "" || !domain.IndicatorType(payload.Type).IsValid() {
		writeError(w, "Value and a known type are required", http.StatusBadRequest)
		return
	}

	matcher, err := whitelist.Load(r.Context())
	if err != nil {
		writeError(w, "Could not load whitelist", http.StatusInternalServerError)
		return
	}

	entry, matched := matcher.Match(payload.Value, payload.Type)
	response := dto.WhitelistCheckResponse{Matched: matched}
	if matched {
		response.WhitelistValue = entry.Value
		response.Reason = entry.Reason
	}
	writeJSON(w, http.StatusOK, response)
}

func listWhitelistBlocks(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	blocks, total, err := database.ListWhitelistBlocks(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, "Could not load whitelist blocks", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.WhitelistBlockPage{Blocks: blocks, Total: total})
}
