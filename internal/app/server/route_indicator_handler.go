package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"intelfeed/internal/api/dto"
	"intelfeed/internal/audit"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/export"
)

// Temporary activation bounds in hours (one hour through one week).
const (
	minTempActivationHours = 1
	maxTempActivationHours = 168
)

func listIndicators(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	typeFilter := strings.TrimSpace(r.URL.Query().Get("type"))

	indicators, total, err := database.ListIndicators(r.Context(), page, pageSize, search, typeFilter)
	if err != nil {
		log.Error("Failed to list indicators", "error", err)
		writeError(w, "Could not load indicators", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.IndicatorPage{Indicators: indicators, Total: total})
}

func createIndicator(w http.ResponseWriter, r *http.Request) {
	var payload dto.IndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Value = strings.TrimSpace(payload.Value)
	if payload.Value == "" {
		writeError(w, "Indicator value is required", http.StatusBadRequest)
		return
	}
	if !domain.IndicatorType(payload.Type).IsValid() {
		writeError(w, "Unknown indicator type", http.StatusBadRequest)
		return
	}

	indicator := domain.Indicator{
		Value:     payload.Value,
		Type:      payload.Type,
		HashType:  payload.HashType,
		Source:    domain.SourceManual,
		IsActive:  true,
		Notes:     payload.Notes,
		CreatedBy: identityFromRequest(r),
	}

	if err := database.CreateIndicator(r.Context(), &indicator); err != nil {
		writeError(w, "Indicator already exists or could not be created", http.StatusConflict)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionCreate,
		Resource:   "indicator",
		ResourceID: strconv.FormatUint(indicator.ID, 10),
		Details:    "manual indicator created: " + indicator.Value,
		UserID:     indicator.CreatedBy,
		IPAddress:  r.RemoteAddr,
	})

	export.TriggerRefreshAsync("manual indicator")

	writeJSON(w, http.StatusCreated, indicator)
}

func getIndicator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid indicator id", http.StatusBadRequest)
		return
	}

	indicator, err := database.GetIndicator(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrIndicatorNotFound) {
			writeError(w, "Indicator not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not load indicator", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, indicator)
}

func updateIndicator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid indicator id", http.StatusBadRequest)
		return
	}

	var payload dto.IndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.IsActive == nil {
		writeError(w, "isActive is required", http.StatusBadRequest)
		return
	}

	if err := database.SetIndicatorActive(r.Context(), id, *payload.IsActive); err != nil {
		if errors.Is(err, database.ErrIndicatorNotFound) {
			writeError(w, "Indicator not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not update indicator", http.StatusInternalServerError)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionUpdate,
		Resource:   "indicator",
		ResourceID: strconv.FormatUint(id, 10),
		Details:    "indicator active=" + strconv.FormatBool(*payload.IsActive),
		UserID:     identityFromRequest(r),
		IPAddress:  r.RemoteAddr,
	})

	export.TriggerRefreshAsync("indicator toggled")

	writeJSON(w, http.StatusOK, map[string]bool{"isActive": *payload.IsActive})
}

func deleteIndicator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid indicator id", http.StatusBadRequest)
		return
	}

	deleted, err := database.DeleteIndicator(r.Context(), id)
	if err != nil {
		writeError(w, "Could not delete indicator", http.StatusInternalServerError)
		return
	}
	if !deleted {
		writeError(w, "Indicator not found", http.StatusNotFound)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionDelete,
		Resource:   "indicator",
		ResourceID: strconv.FormatUint(id, 10),
		Details:    "indicator deleted",
		UserID:     identityFromRequest(r),
		IPAddress:  r.RemoteAddr,
	})

	export.TriggerRefreshAsync("indicator deleted")

	w.WriteHeader(http.StatusNoContent)
}

func tempActivateIndicator(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid indicator id", http.StatusBadRequest)
		return
	}

	var payload dto.TempActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.DurationHours < minTempActivationHours || payload.DurationHours > maxTempActivationHours {
		writeError(w, "durationHours must be between 1 and 168", http.StatusBadRequest)
		return
	}

	until := time.Now().UTC().Add(time.Duration(payload.DurationHours) * time.Hour)
	if err := database.TempActivateIndicator(r.Context(), id, until); err != nil {
		if errors.Is(err, database.ErrIndicatorNotFound) {
			writeError(w, "Indicator not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not activate indicator", http.StatusInternalServerError)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionTempActivate,
		Resource:   "indicator",
		ResourceID: strconv.FormatUint(id, 10),
		Details:    "temporarily activated for " + strconv.Itoa(payload.DurationHours) + "h",
		UserID:     identityFromRequest(r),
		IPAddress:  r.RemoteAddr,
	})

	export.TriggerRefreshAsync("temp activation")

	writeJSON(w, http.StatusOK, map[string]any{"tempActiveUntil": until})
}

func listIndicatorNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid indicator id", http.StatusBadRequest)
		return
	}

	notes, err := database.ListIndicatorNotes(r.Context(), id)
	if err != nil {
		writeError(w, "Could not load notes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func addIndicatorNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid indicator id", http.StatusBadRequest)
		return
	}

	var payload dto.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		writeError(w, "Note content is required", http.StatusBadRequest)
		return
	}

	note := domain.IndicatorNote{
		IndicatorID: id,
		AuthorID:    identityFromRequest(r),
		Content:     payload.Content,
	}
	if err := database.AppendIndicatorNote(r.Context(), &note); err != nil {
		if errors.Is(err, database.ErrIndicatorNotFound) {
			writeError(w, "Indicator not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not add note", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}
