package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"intelfeed/internal/audit"
	"intelfeed/internal/config"
	"intelfeed/internal/database"
	"intelfeed/internal/domain"
	"intelfeed/internal/jobs/ingest"
	"intelfeed/internal/jobs/scheduler"
)

func listDataSources(w http.ResponseWriter, r *http.Request) {
	sources, err := database.ListDataSources(r.Context())
	if err != nil {
		log.Error("Failed to list data sources", "error", err)
		writeError(w, "Could not load data sources", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func createDataSource(w http.ResponseWriter, r *http.Request) {
	var source domain.DataSource
	if err := json.NewDecoder(r.Body).Decode(&source); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if source.FetchInterval == 0 {
		source.FetchInterval = config.GetConfig().System.DefaultFetchInterval
	}
	source.CreatedBy = identityFromRequest(r)
	source.LastFetch = nil
	source.LastFetchStatus = ""
	source.LastFetchError = ""

	if err := database.CreateDataSource(r.Context(), &source); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionCreate,
		Resource:   "data_source",
		ResourceID: strconv.FormatUint(source.ID, 10),
		Details:    "data source created: " + source.Name,
		UserID:     source.CreatedBy,
		IPAddress:  r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, source)
}

func getDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid data source id", http.StatusBadRequest)
		return
	}

	source, err := database.GetDataSource(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrDataSourceNotFound) {
			writeError(w, "Data source not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not load data source", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func updateDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid data source id", http.StatusBadRequest)
		return
	}

	var payload domain.DataSource
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	source, err := database.UpdateDataSource(r.Context(), id, payload)
	if err != nil {
		if errors.Is(err, database.ErrDataSourceNotFound) {
			writeError(w, "Data source not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionUpdate,
		Resource:   "data_source",
		ResourceID: strconv.FormatUint(id, 10),
		Details:    "data source updated: " + source.Name,
		UserID:     identityFromRequest(r),
		IPAddress:  r.RemoteAddr,
	})

	writeJSON(w, http.StatusOK, source)
}

func deleteDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid data source id", http.StatusBadRequest)
		return
	}

	if err := database.DeleteDataSource(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrDataSourceNotFound) {
			writeError(w, "Data source not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not delete data source", http.StatusInternalServerError)
		return
	}

	audit.Record(domain.AuditLog{
		Level:      domain.AuditInfo,
		Action:     domain.ActionDelete,
		Resource:   "data_source",
		ResourceID: strconv.FormatUint(id, 10),
		Details:    "data source deleted",
		UserID:     identityFromRequest(r),
		IPAddress:  r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}

func pauseDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid data source id", http.StatusBadRequest)
		return
	}

	if err := scheduler.Pause(r.Context(), id, identityFromRequest(r)); err != nil {
		if errors.Is(err, database.ErrDataSourceNotFound) {
			writeError(w, "Data source not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not pause data source", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func resumeDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid data source id", http.StatusBadRequest)
		return
	}

	if err := scheduler.Resume(r.Context(), id, identityFromRequest(r)); err != nil {
		if errors.Is(err, database.ErrDataSourceNotFound) {
			writeError(w, "Data source not found", http.StatusNotFound)
			return
		}
		writeError(w, "Could not resume data source", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func fetchDataSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "Invalid data source id", http.StatusBadRequest)
		return
	}

	summary, err := scheduler.FetchNow(r.Context(), id, identityFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDataSourceNotFound):
			writeError(w, "Data source not found", http.StatusNotFound)
		case errors.Is(err, ingest.ErrSourcePaused):
			writeError(w, "Data source is paused", http.StatusConflict)
		case errors.Is(err, ingest.ErrSourceInactive):
			writeError(w, "Data source is not active", http.StatusConflict)
		case errors.Is(err, ingest.ErrSourceRunning):
			writeError(w, "A fetch is already in progress", http.StatusConflict)
		default:
			writeError(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
