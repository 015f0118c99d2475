package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/australsec/opswatch/pkg/auth"
	"github.com/australsec/opswatch/pkg/blob"
	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/config"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/notify"
	"github.com/australsec/opswatch/pkg/store"
	"github.com/australsec/opswatch/pkg/tracker"
)

const (
	sessionName = "opswatch"
)

type WebRouter struct {
	config       config.Configuration
	storage      store.Stores
	sessionStore *sessions.CookieStore
	Hub          *notify.Hub
	Channel      *comms.Channel
	DeviceFeed   *tracker.DeviceFeed
	Uploader     *blob.Uploader

	// One position reporter per logged-in unit, torn down on logout.
	reporterLock sync.Mutex
	reporters    map[uuid.UUID]context.CancelFunc
}

func (wr *WebRouter) getSession(r *http.Request) (*sessions.Session, error) {
	return wr.sessionStore.Get(r, sessionName)
}

func (wr *WebRouter) getUser(session *sessions.Session) (*models.Identity, error) {
	raw, ok := session.Values["identity_id"].(string)
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return wr.storage.Identities.GetByID(id)
}

// requireRole resolves the session user and checks role membership.
// Writes the error response itself and returns nil when the caller
// should bail out.
func (wr *WebRouter) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) *models.Identity {
	session, _ := wr.getSession(r)
	user, err := wr.getUser(session)
	if err != nil || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}
	if !user.IsActive() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil
	}
	if len(roles) == 0 {
		return user
	}
	for _, role := range roles {
		if user.Role == role {
			return user
		}
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
	return nil
}

func (wr *WebRouter) Initialize(cfg config.Configuration, storage store.Stores) error {
	wr.config = cfg
	wr.storage = storage
	wr.sessionStore = sessions.NewCookieStore([]byte(cfg.SessionSecret))
	if wr.reporters == nil {
		wr.reporters = make(map[uuid.UUID]context.CancelFunc)
	}
	return wr.handleRequests(cfg.ListenAddr)
}

func (wr *WebRouter) handleRequests(listenAddr string) error {
	myRouter := mux.NewRouter().StrictSlash(true)

	myRouter.HandleFunc("/", wr.indexPage).Methods("GET")
	myRouter.HandleFunc("/login", wr.loginPage).Methods("GET")
	myRouter.PathPrefix("/static/").Handler(staticHandler())

	myRouter.HandleFunc("/auth/login", wr.loginHandler).Methods("POST")
	myRouter.HandleFunc("/auth/logout", wr.logoutHandler).Methods("POST")
	if wr.config.SSO.Enabled {
		myRouter.HandleFunc("/auth/sso", wr.ssoLoginHandler)
		myRouter.HandleFunc("/auth/sso/callback", wr.ssoCallbackHandler)
	}

	myRouter.HandleFunc("/api/positions", wr.getPositions).Methods("GET")
	myRouter.HandleFunc("/api/positions-sse", wr.positionsSSE).Methods("GET")

	myRouter.HandleFunc("/api/messages", wr.sendMessage).Methods("POST")
	myRouter.HandleFunc("/api/messages", wr.getMessages).Methods("GET")
	myRouter.HandleFunc("/api/messages-sse", wr.messagesSSE).Methods("GET")
	myRouter.HandleFunc("/api/messages/{id}/read", wr.markMessageRead).Methods("POST")
	myRouter.HandleFunc("/api/threads", wr.getThreads).Methods("GET")
	myRouter.HandleFunc("/api/threads/{key}/open", wr.openThread).Methods("POST")

	myRouter.HandleFunc("/api/access-logs", wr.addAccessLog).Methods("POST")
	myRouter.HandleFunc("/api/access-logs", wr.getAccessLogs).Methods("GET")
	myRouter.HandleFunc("/api/access-logs/mine", wr.getOwnAccessLogs).Methods("GET")
	myRouter.HandleFunc("/api/incidents", wr.addIncident).Methods("POST")
	myRouter.HandleFunc("/api/incidents", wr.getIncidents).Methods("GET")

	myRouter.HandleFunc("/api/users", wr.getUsers).Methods("GET")
	myRouter.HandleFunc("/api/users", wr.addUser).Methods("POST")
	myRouter.HandleFunc("/api/users/{id}", wr.updateUser).Methods("PUT")
	myRouter.HandleFunc("/api/users/{id}", wr.deleteUser).Methods("DELETE")
	myRouter.HandleFunc("/api/users/{id}/password", wr.setPassword).Methods("POST")

	myRouter.Handle("/metrics", promhttp.Handler())

	myRouter.Use(handlers.ProxyHeaders)
	myRouter.Use(RequestLogger)
	h := handlers.RecoveryHandler()

	return http.ListenAndServe(listenAddr, h(myRouter))
}

func RequestLogger(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		slog.Info("endpoint hit", "method", r.Method, "path", r.URL.Path, "remote_host", r.RemoteAddr, "user_agent", r.UserAgent())
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (wr *WebRouter) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	identity, err := wr.storage.Identities.GetByUserName(req.Username)
	if err != nil {
		slog.Error("unable to query identity", "user", req.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if identity == nil || !identity.IsActive() ||
		!auth.VerifyPassword(req.Password, identity.Salt, identity.PasswordHash) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	wr.establishSession(w, r, identity)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{
		ID:          identity.ID.String(),
		DisplayName: identity.DisplayName,
		Role:        identity.Role,
	})
}

func (wr *WebRouter) establishSession(w http.ResponseWriter, r *http.Request, identity *models.Identity) {
	session, _ := wr.getSession(r)
	session.Values["identity_id"] = identity.ID.String()
	if err := session.Save(r, w); err != nil {
		slog.Error("error saving session", "error", err)
	}

	if identity.MayReportPosition() {
		wr.startReporter(identity)
	}
	slog.Info("session established", "user", identity.UserName, "role", identity.Role)
}

func (wr *WebRouter) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := wr.getSession(r)
	user, err := wr.getUser(session)
	if err == nil && user != nil {
		wr.stopReporter(user.ID)
		// The unit disappears from the live map immediately instead of
		// lingering until it goes stale.
		if err := wr.storage.Positions.Delete(user.ID); err != nil {
			slog.Error("error removing position row", "unit", user.ID, "error", err)
		}
		wr.Hub.Notify(notify.TablePositions)
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("error clearing session", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// startReporter begins position reporting for a unit's session. A
// second login for the same unit replaces the previous reporter.
func (wr *WebRouter) startReporter(identity *models.Identity) {
	reporter := tracker.NewReporter(identity.ID, identity.DisplayName,
		wr.storage.Positions, wr.Hub, wr.DeviceFeed, wr.config.Tracking)
	if reporter == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wr.reporterLock.Lock()
	if prev, ok := wr.reporters[identity.ID]; ok {
		prev()
	}
	wr.reporters[identity.ID] = cancel
	wr.reporterLock.Unlock()

	go reporter.Run(ctx)
}

func (wr *WebRouter) stopReporter(unitID uuid.UUID) {
	wr.reporterLock.Lock()
	defer wr.reporterLock.Unlock()
	if cancel, ok := wr.reporters[unitID]; ok {
		cancel()
		delete(wr.reporters, unitID)
	}
}
