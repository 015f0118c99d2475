package routes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/models"
)

const maxPhotoBytes = 10 << 20

// addAccessLog records a gate passage. Multipart so the guard app can
// attach the evidence photo in the same request; all other fields are
// plain form values.
func (wr *WebRouter) addAccessLog(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleGuard, models.RoleControl)
	if user == nil {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	direction := r.FormValue("direction")
	if direction != models.DirectionEntry && direction != models.DirectionExit {
		http.Error(w, "Invalid direction", http.StatusBadRequest)
		return
	}
	entry := &models.AccessLog{
		GuardID:    user.ID,
		PersonName: r.FormValue("person_name"),
		DocumentID: r.FormValue("document_id"),
		Vehicle:    r.FormValue("vehicle"),
		Plate:      r.FormValue("plate"),
		Direction:  direction,
		Note:       r.FormValue("note"),
	}
	if entry.PersonName == "" {
		http.Error(w, "person_name is required", http.StatusBadRequest)
		return
	}

	url, err := wr.storePhoto(r, "access-logs")
	if err != nil {
		slog.Error("unable to store photo", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	entry.PhotoURL = url

	if err := wr.storage.AccessLogs.Insert(entry); err != nil {
		slog.Error("unable to insert access log", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// storePhoto uploads an attached "photo" part, if any, and returns its
// public URL. No part is not an error.
func (wr *WebRouter) storePhoto(r *http.Request, prefix string) (string, error) {
	file, header, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	if wr.Uploader == nil {
		return "", fmt.Errorf("no blob storage configured")
	}
	name := fmt.Sprintf("%s/%s-%s", prefix, time.Now().UTC().Format("20060102T150405"), header.Filename)
	contentType := header.Header.Get("Content-Type")
	return wr.Uploader.Put(r.Context(), name, contentType, file)
}

func (wr *WebRouter) getAccessLogs(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin, models.RoleControl)
	if user == nil {
		return
	}

	from, to := parseDateRange(r)
	entries, err := wr.storage.AccessLogs.GetBetween(from, to)
	if err != nil {
		slog.Error("unable to query access logs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// parseDateRange reads from/to query parameters (RFC 3339 dates).
// Defaults to the last 24 hours.
func parseDateRange(r *http.Request) (time.Time, time.Time) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}
	return from, to
}

// getOwnAccessLogs lets a guard review their recent gate entries
// without the reporting role gate.
func (wr *WebRouter) getOwnAccessLogs(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleGuard)
	if user == nil {
		return
	}

	entries, err := wr.storage.AccessLogs.GetByGuard(user.ID, 50)
	if err != nil {
		slog.Error("unable to query access logs", "guard", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (wr *WebRouter) addIncident(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleGuard, models.RoleControl)
	if user == nil {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	description := r.FormValue("description")
	if description == "" {
		http.Error(w, "description is required", http.StatusBadRequest)
		return
	}
	priority := r.FormValue("priority")
	switch priority {
	case models.IncidentLow, models.IncidentMedium, models.IncidentHigh:
	case "":
		priority = models.IncidentMedium
	default:
		http.Error(w, "Invalid priority", http.StatusBadRequest)
		return
	}

	url, err := wr.storePhoto(r, "incidents")
	if err != nil {
		slog.Error("unable to store photo", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	incident := &models.Incident{
		ID:          uuid.New(),
		GuardID:     user.ID,
		Description: description,
		Priority:    priority,
		PhotoURL:    url,
	}
	if err := wr.storage.Incidents.Insert(incident); err != nil {
		slog.Error("unable to insert incident", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(incident)
}

func (wr *WebRouter) getIncidents(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin, models.RoleControl)
	if user == nil {
		return
	}

	incidents, err := wr.storage.Incidents.GetAll(200)
	if err != nil {
		slog.Error("unable to query incidents", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(incidents)
}
