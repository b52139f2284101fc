package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"droneops-formation/internal/formation"
	"droneops-formation/internal/logging"
	"droneops-formation/internal/mission"
)

// Controller is the part of the mission runner the admin UI drives.
type Controller interface {
	Status() mission.Status
	Enqueue(formation.Mode) error
}

type Server struct {
	ctl Controller
	tpl *template.Template
	mux *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(ctl Controller) *Server {
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"requestable": requestable,
	}).ParseFS(content, "templates/index.html"))
	s := &Server{ctl: ctl, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /vehicles", s.handleVehicles)
	s.mux.HandleFunc("POST /mode", s.handleMode)
}

// Handler returns the admin routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("admin UI listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// requestable lists the modes an operator may request from mode.
func requestable(mode formation.Mode) []formation.Mode {
	var out []formation.Mode
	for _, m := range []formation.Mode{formation.Alongside, formation.VerticalWeave, formation.DescendToAltitude, formation.Land, formation.Idle} {
		if m != mode && formation.CanRequest(mode, m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.tpl.Execute(w, s.ctl.Status()); err != nil {
		logging.FromContext(r.Context()).Error("render status page", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status().Vehicles)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	m, err := formation.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.ctl.Enqueue(m); err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, formation.ErrIllegalTransition):
			code = http.StatusConflict
		case errors.Is(err, mission.ErrQueueFull):
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	logging.FromContext(r.Context()).Info("mode requested via admin", "mode", m)
	// the status page posts with redirect=1
	if r.FormValue("redirect") != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"requested": m.String()})
}
