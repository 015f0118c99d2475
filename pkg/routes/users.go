package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/australsec/opswatch/pkg/auth"
	"github.com/australsec/opswatch/pkg/models"
)

type UserResponse struct {
	ID          string `json:"id"`
	UserName    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
}

func userResponse(i *models.Identity) UserResponse {
	return UserResponse{
		ID:          i.ID.String(),
		UserName:    i.UserName,
		DisplayName: i.DisplayName,
		Role:        i.Role,
		Status:      i.Status,
	}
}

func (wr *WebRouter) getUsers(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin)
	if user == nil {
		return
	}

	identities, err := wr.storage.Identities.GetAll()
	if err != nil {
		slog.Error("unable to query identities", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	out := make([]UserResponse, 0, len(identities))
	for _, i := range identities {
		out = append(out, userResponse(i))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

type AddUserRequest struct {
	UserName    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

func (wr *WebRouter) addUser(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin)
	if user == nil {
		return
	}

	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.UserName == "" || req.DisplayName == "" || req.Password == "" {
		http.Error(w, "username, display_name and password are required", http.StatusBadRequest)
		return
	}
	if !models.ValidRole(req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	hash, salt := auth.GenerateHashAndSalt(req.Password)
	identity := &models.Identity{
		ID:           uuid.New(),
		UserName:     req.UserName,
		DisplayName:  req.DisplayName,
		Role:         req.Role,
		Status:       models.StatusActive,
		PasswordHash: hash,
		Salt:         salt,
	}
	if err := wr.storage.Identities.Add(identity); err != nil {
		slog.Error("unable to add identity", "user", req.UserName, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Info("identity added", "user", identity.UserName, "role", identity.Role, "by", user.UserName)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(userResponse(identity))
}

type UpdateUserRequest struct {
	UserName    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
}

func (wr *WebRouter) updateUser(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin)
	if user == nil {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	identity, err := wr.storage.Identities.GetByID(id)
	if err != nil {
		slog.Error("unable to query identity", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if identity == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.UserName != "" {
		identity.UserName = req.UserName
	}
	if req.DisplayName != "" {
		identity.DisplayName = req.DisplayName
	}
	if req.Role != "" {
		if !models.ValidRole(req.Role) {
			http.Error(w, "Invalid role", http.StatusBadRequest)
			return
		}
		identity.Role = req.Role
	}
	if req.Status != "" {
		if req.Status != models.StatusActive && req.Status != models.StatusInactive {
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
		identity.Status = req.Status
	}

	if err := wr.storage.Identities.Update(identity); err != nil {
		slog.Error("unable to update identity", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Deactivation ends the unit's reporting session right away.
	if identity.Status == models.StatusInactive {
		wr.stopReporter(identity.ID)
		if err := wr.storage.Positions.Delete(identity.ID); err != nil {
			slog.Error("error removing position row", "unit", identity.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse(identity))
}

func (wr *WebRouter) deleteUser(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin)
	if user == nil {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	if id == user.ID {
		http.Error(w, "Cannot delete own account", http.StatusBadRequest)
		return
	}

	wr.stopReporter(id)
	if err := wr.storage.Identities.Delete(id); err != nil {
		slog.Error("unable to delete identity", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Info("identity deleted", "id", id, "by", user.UserName)
	w.WriteHeader(http.StatusNoContent)
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

func (wr *WebRouter) setPassword(w http.ResponseWriter, r *http.Request) {
	user := wr.requireRole(w, r, models.RoleAdmin)
	if user == nil {
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	hash, salt := auth.GenerateHashAndSalt(req.Password)
	if err := wr.storage.Identities.SetPassword(id, hash, salt); err != nil {
		slog.Error("unable to set password", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
