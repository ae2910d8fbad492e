package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/cors"

	"webcal/internal/config"
	"webcal/internal/ics"
	appLog "webcal/internal/log"
	"webcal/internal/model"
	"webcal/internal/store"
)

const (
	maxJSONBody = 1 << 20
	maxICSBody  = 10 << 20
)

// Server exposes the event REST API, ICS import/export and the rendered
// calendar views.
type Server struct {
	cfg   *config.Config
	store store.Store
	mux   *http.ServeMux
	now   func() time.Time
}

// NewServer constructs a Server backed by st.
func NewServer(cfg *config.Config, st store.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the mux wrapped with logging, CORS and (optionally) basic
// auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen())
		h = s.basicAuthMiddleware(h)
	}
	h = s.corsMiddleware(h)
	return logRequests(h)
}

// StartServer serves until ctx is canceled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, st store.Store) error {
	s := NewServer(cfg, st)
	srv := &http.Server{
		Addr:              cfg.Listen(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleList)
	s.mux.HandleFunc("POST /api/events", s.handleCreate)
	s.mux.HandleFunc("GET /api/events/range", s.handleRange)
	s.mux.HandleFunc("GET /api/events/export.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/events/import", s.handleImport)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDelete)

	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Calendar", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: s.basicAuthEnabled(),
	}
	if len(s.cfg.CORSOrigins) > 0 {
		opts.AllowedOrigins = s.cfg.CORSOrigins
	} else {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.New(opts).Handler(next)
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Calendar API is running"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, toWireList(events))
}

// handleRange returns events overlapping [start, end].
//
// GET /api/events/range?start=<ISO>&end=<ISO>
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := model.ParseTimestamp(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := model.ParseTimestamp(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}

	events, err := s.store.ListRange(r.Context(), start, end)
	if err != nil {
		s.writeStoreError(w, "range", err)
		return
	}
	writeJSON(w, http.StatusOK, toWireList(events))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToWire(e))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.WireEvent
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := model.ParseWire(in)
	if err != nil {
		s.writeStoreError(w, "create", err)
		return
	}
	created, err := s.store.Create(r.Context(), e)
	if err != nil {
		s.writeStoreError(w, "create", err)
		return
	}
	appLog.Info("event created", "id", created.ID, "title", created.Title)
	writeJSON(w, http.StatusCreated, model.ToWire(created))
}

// handleUpdate merges the fields present in the body into the stored record.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in model.WirePatch
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := in.ToPatch()
	if err != nil {
		s.writeStoreError(w, "update", err)
		return
	}

	// Validation runs on a read taken before the write. Without optimistic
	// concurrency a concurrent change can slip between the two; a concurrent
	// delete still surfaces as 404 from Update.
	existing, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "update", err)
		return
	}
	if err := patch.Apply(existing).Validate(); err != nil {
		s.writeStoreError(w, "update", err)
		return
	}

	updated, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, "update", err)
		return
	}
	appLog.Info("event updated", "id", id)
	writeJSON(w, http.StatusOK, model.ToWire(updated))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, "delete", err)
		return
	}
	appLog.Info("event deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ics.Export(events, s.now()))
}

// handleImport creates one event per VEVENT in the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxICSBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	parsed, err := ics.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar: "+err.Error())
		return
	}

	created := make([]model.Event, 0, len(parsed))
	for _, e := range parsed {
		if err := e.Validate(); err != nil {
			appLog.Warn("import: event skipped", "title", e.Title, "reason", err.Error())
			continue
		}
		c, err := s.store.Create(r.Context(), e)
		if err != nil {
			s.writeStoreError(w, "import", err)
			return
		}
		created = append(created, c)
	}
	appLog.Info("events imported", "count", len(created), "parsed", len(parsed))
	writeJSON(w, http.StatusCreated, toWireList(created))
}

// writeStoreError maps validation and not-found failures to 400/404 and
// anything else to 500.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
	case model.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errResp{Error: err.Error(), Fields: model.FieldErrors(err)})
	default:
		appLog.Error("store operation failed", err, "op", op)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" events")
	}
}

func toWireList(events []model.Event) []model.WireEvent {
	out := make([]model.WireEvent, 0, len(events))
	for _, e := range events {
		out = append(out, model.ToWire(e))
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

type errResp struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}
