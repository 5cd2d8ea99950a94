package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/jrsteele09/aural-portal/session"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

const (
	pageIndex          = "index.html"
	pageLogin          = "login.html"
	pageSignup         = "signup.html"
	pageOTP            = "otp.html"
	pageForgotPassword = "forgot_password.html"
	pageResetPassword  = "reset_password.html"
	pageDashboard      = "dashboard.html"
	pageResolving      = "resolving.html"
)

var allPages = []string{
	pageIndex, pageLogin, pageSignup, pageOTP, pageForgotPassword, pageResetPassword, pageDashboard, pageResolving,
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(layoutTemplate).ParseFS(TemplateFilesFS(), layoutTemplate, name)
}

// pages holds every parsed page, keyed by file name.
type pages struct {
	byName map[string]*template.Template
}

func parsePages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(allPages))}
	for _, name := range allPages {
		t, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("[server parsePages] %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// refresh is a delayed navigation the page carries out itself.
type refresh struct {
	Seconds int
	Millis  int64
	To      string
}

// page is the data every template is executed with. Body is the page-specific view.
type page struct {
	AppName string
	Title   string
	Action  string
	Refresh *refresh
	Wide    bool
	Watch   bool
	Key     string
	Body    any
}

func (s *Server) newPage(r *http.Request, title string, body any) page {
	p := page{
		AppName: s.config.GetAppName(),
		Title:   title,
		Action:  r.URL.RequestURI(),
		Body:    body,
	}
	if c, ok := clientFrom(r.Context()); ok {
		st := c.Store.Snapshot()
		p.Watch = true
		if !st.Pending {
			p.Key = session.IdentityKey(st.Session)
		}
	}
	return p
}

func (p page) withRefresh(to string, delay time.Duration) page {
	p.Refresh = &refresh{Seconds: refreshSeconds(delay), Millis: delay.Milliseconds(), To: to}
	return p
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data page) {
	t, ok := s.pages.byName[name]
	if !ok {
		log.Error().Str("page", name).Msg("[server render] unknown page")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		log.Err(err).Str("page", name).Msg("[server render] execute template")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug().Err(err).Str("page", name).Msg("[server render] write")
	}
}
