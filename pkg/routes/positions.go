package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/australsec/opswatch/pkg/models"
)

type UnitStatusResponse struct {
	UnitID      string    `json:"unit_id"`
	DisplayName string    `json:"display_name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	StatusTag   string    `json:"status_tag"`
	LastSeen    time.Time `json:"last_seen"`
	Lost        bool      `json:"lost"`
}

// getPositions is the one-shot snapshot for non-streaming clients.
// Liveness is classified against the request time; no alerts fire from
// this path, only the live monitors raise those.
func (wr *WebRouter) getPositions(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleControl, models.RoleAdmin)
	if user == nil {
		return
	}

	reports, err := wr.storage.Positions.GetAuthorized()
	if err != nil {
		slog.Error("unable to query positions", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	out := make([]UnitStatusResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, UnitStatusResponse{
			UnitID:      rep.UnitID.String(),
			DisplayName: rep.DisplayName,
			Latitude:    rep.Latitude,
			Longitude:   rep.Longitude,
			StatusTag:   rep.StatusTag,
			LastSeen:    rep.LastSeen,
			Lost:        rep.Age(now) >= wr.config.Tracking.StaleAfter,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
