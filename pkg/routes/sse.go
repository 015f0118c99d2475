package routes

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/australsec/opswatch/internal/web/components"
	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/metrics"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/tracker"
)

const timeDisplayFormat = "2006-01-02 15:04:05"

// SSE endpoint for the live unit map. Each connection runs its own
// monitor, so each observing console keeps its own lost-set and raises
// its own alerts.
func (wr *WebRouter) positionsSSE(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleControl, models.RoleAdmin)
	if user == nil {
		return
	}

	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.SSESessions.Inc()
	defer metrics.SSESessions.Dec()

	ctx := r.Context()
	monitor := tracker.NewMonitor(wr.storage.Positions, wr.Channel, wr.Hub, wr.config.Tracking)
	go monitor.Run(ctx)

	ticker := time.NewTicker(30 * time.Second) // Heartbeat to keep connection alive
	defer ticker.Stop()

	sendUpdate := func() error {
		units := []components.UnitData{}
		for _, s := range monitor.Snapshot() {
			units = append(units, components.UnitData{
				UnitID:      s.Report.UnitID.String(),
				DisplayName: s.Report.DisplayName,
				Latitude:    s.Report.Latitude,
				Longitude:   s.Report.Longitude,
				LastSeen:    s.Report.LastSeen.Format(timeDisplayFormat),
				Lost:        s.Lost,
			})
		}
		components.SortUnits(units)

		var buf bytes.Buffer
		if err := components.UnitListContent(units).Render(ctx, &buf); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: units-update\ndata: %s\n\n", escapeSSEData(buf.String())); err != nil {
			return err
		}

		alerts := []components.AlertData{}
		for _, a := range monitor.Alerts() {
			alerts = append(alerts, components.AlertData{
				UnitID:      a.UnitID.String(),
				DisplayName: a.DisplayName,
				At:          a.At.Format(timeDisplayFormat),
			})
		}
		buf.Reset()
		if err := components.AlertListContent(alerts).Render(ctx, &buf); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: alerts-update\ndata: %s\n\n", escapeSSEData(buf.String())); err != nil {
			return err
		}

		flusher.Flush()
		return nil
	}

	// Send initial data
	if err := sendUpdate(); err != nil {
		slog.Error("error sending initial SSE data", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-monitor.Updates():
			if err := sendUpdate(); err != nil {
				slog.Error("error sending SSE update", "error", err)
				return
			}
		case <-ticker.C:
			// Send heartbeat comment to keep connection alive
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// SSE endpoint for the live message feed. The full list is re-rendered
// on every change; incoming unread messages additionally raise a
// one-shot alert event so the console can chime.
func (wr *WebRouter) messagesSSE(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r)
	if user == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.SSESessions.Inc()
	defer metrics.SSESessions.Dec()

	ctx := r.Context()
	selfID := user.ID
	sub := wr.Channel.Subscribe(ctx, &selfID, wr.config.Tracking.ReportInterval)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	sendMessages := func(msgs []*models.Message) error {
		msgs = visibleTo(msgs, user)
		data := make([]components.MessageData, 0, len(msgs))
		for _, m := range msgs {
			data = append(data, components.MessageData{
				ID:       m.ID,
				Title:    m.Title,
				Body:     m.Body,
				Sender:   m.SenderRole,
				Target:   m.RecipientTarget,
				Priority: m.Priority,
				IsRead:   m.IsRead,
				SentAt:   m.CreatedAt.Format(timeDisplayFormat),
			})
		}

		var buf bytes.Buffer
		if err := components.MessageListContent(data).Render(ctx, &buf); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: messages-update\ndata: %s\n\n", escapeSSEData(buf.String())); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msgs, ok := <-sub.Messages:
			if !ok {
				return
			}
			if err := sendMessages(msgs); err != nil {
				slog.Error("error sending SSE update", "error", err)
				return
			}
		case alert, ok := <-sub.Alerts:
			if !ok {
				return
			}
			target, err := comms.ParseTarget(alert.RecipientTarget)
			if err != nil || !target.Covers(user.Role, user.ID) {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: message-alert\ndata: {\"id\": %d, \"priority\": %q}\n\n",
				alert.ID, alert.Priority); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// escapeSSEData escapes newlines for SSE data format
func escapeSSEData(s string) string {
	var result bytes.Buffer
	for _, c := range s {
		switch c {
		case '\n':
			result.WriteString("\\n")
		case '\r':
			// Skip carriage returns
		default:
			result.WriteRune(c)
		}
	}
	return result.String()
}
