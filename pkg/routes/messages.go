package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/models"
)

type SendMessageRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Target   string `json:"target"`
	Priority string `json:"priority"`
}

func (wr *WebRouter) sendMessage(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r)
	if user == nil {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "Message body is required", http.StatusBadRequest)
		return
	}
	target, err := comms.ParseTarget(req.Target)
	if err != nil {
		http.Error(w, "Invalid target", http.StatusBadRequest)
		return
	}
	if req.Priority != "" && req.Priority != models.PriorityNormal && req.Priority != models.PriorityHigh {
		http.Error(w, "Invalid priority", http.StatusBadRequest)
		return
	}
	// Guards address control only; the target picker is a console
	// affordance for control and admin.
	if user.Role == models.RoleGuard {
		target = comms.Broadcast(comms.ScopeControl)
	}

	senderID := user.ID
	msg, err := wr.Channel.Send(comms.Draft{
		Title:      req.Title,
		Body:       req.Body,
		SenderRole: user.Role,
		SenderID:   &senderID,
		Target:     target,
		Priority:   req.Priority,
	})
	if err != nil {
		slog.Error("unable to send message", "sender", user.UserName, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (wr *WebRouter) getMessages(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r)
	if user == nil {
		return
	}

	msgs, err := wr.Channel.All()
	if err != nil {
		slog.Error("unable to query messages", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	msgs = visibleTo(msgs, user)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

// visibleTo narrows the full feed to what the requesting identity may
// see. Control and admin see everything.
func visibleTo(msgs []*models.Message, user *models.Identity) []*models.Message {
	if user.Role != models.RoleGuard {
		return msgs
	}
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		target, err := comms.ParseTarget(m.RecipientTarget)
		if err != nil {
			continue
		}
		if target.Covers(user.Role, user.ID) || m.SentBy(user.ID) {
			out = append(out, m)
		}
	}
	return out
}

func (wr *WebRouter) markMessageRead(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r)
	if user == nil {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return
	}
	msg, err := wr.storage.Messages.GetByID(id)
	if err != nil {
		slog.Error("unable to query message", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if msg == nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err := wr.Channel.MarkRead(id); err != nil {
		slog.Error("unable to mark message read", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ThreadResponse struct {
	Key      string            `json:"key"`
	Name     string            `json:"name"`
	Unread   int               `json:"unread"`
	Latest   *models.Message   `json:"latest,omitempty"`
	Messages []*models.Message `json:"messages,omitempty"`
}

func (wr *WebRouter) getThreads(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleControl, models.RoleAdmin)
	if user == nil {
		return
	}

	msgs, err := wr.Channel.All()
	if err != nil {
		slog.Error("unable to query messages", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	guards, err := wr.storage.Identities.GetActiveGuards()
	if err != nil {
		slog.Error("unable to query guards", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	threads := comms.PartitionThreads(msgs, guards)
	out := make([]ThreadResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, ThreadResponse{Key: t.Key, Name: t.Name, Unread: t.Unread, Latest: t.Latest})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (wr *WebRouter) openThread(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleControl, models.RoleAdmin)
	if user == nil {
		return
	}

	key := mux.Vars(r)["key"]
	guards, err := wr.storage.Identities.GetActiveGuards()
	if err != nil {
		slog.Error("unable to query guards", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	th, err := wr.Channel.OpenThread(key, guards)
	if err != nil {
		slog.Error("unable to open thread", "key", key, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if th == nil {
		http.Error(w, "Thread not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ThreadResponse{
		Key: th.Key, Name: th.Name, Unread: th.Unread, Latest: th.Latest, Messages: th.Messages,
	})
}
