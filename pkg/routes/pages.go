package routes

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/australsec/opswatch/internal/web"
	"github.com/australsec/opswatch/pkg/models"
)

type pageData struct {
	Title            string
	User             *models.Identity
	SSOEnabled       bool
	ShowMap          bool
	ShowTargetPicker bool
}

func (wr *WebRouter) indexPage(w http.ResponseWriter, r *http.Request) {
	session, _ := wr.getSession(r)
	user, err := wr.getUser(session)
	if err != nil || user == nil || !user.IsActive() {
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		return
	}

	tmpl, err := web.GetHTMLTemplate("console")
	if err != nil {
		slog.Error("error loading console template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data := pageData{
		Title:            "Console",
		User:             user,
		ShowMap:          user.Role != models.RoleGuard,
		ShowTargetPicker: user.Role != models.RoleGuard,
	}
	if err := tmpl.ExecuteTemplate(w, "console.tmpl.html", data); err != nil {
		slog.Error("error rendering console", "error", err)
	}
}

func (wr *WebRouter) loginPage(w http.ResponseWriter, r *http.Request) {
	tmpl, err := web.GetHTMLTemplate("login")
	if err != nil {
		slog.Error("error loading login template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data := pageData{Title: "Sign in", SSOEnabled: wr.config.SSO.Enabled}
	if err := tmpl.ExecuteTemplate(w, "login.tmpl.html", data); err != nil {
		slog.Error("error rendering login page", "error", err)
	}
}

func staticHandler() http.Handler {
	staticFS, _ := fs.Sub(web.ContentFS, "static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
}
