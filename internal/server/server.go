package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/config"
	"chat-widget/internal/history"
	"chat-widget/internal/page"
	"chat-widget/internal/widget"
)

const (
	visitorCookie = "widget_visitor"
	eventsPath    = "/widget/events"
)

// visitor is one browser's widget instance
type visitor struct {
	widget   *page.Widget
	rec      *widget.Recorder
	ctrl     *widget.Controller
	lastSeen time.Time
}

// Server serves a host page with the chat widget mounted and routes widget
// events to a controller owned by each visitor
type Server struct {
	cfg    *config.Config
	client widget.Sender
	router *mux.Router
	host   []byte
	logger zerolog.Logger

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewServer creates a server. The host page is read from cfg.HostPage, or
// a bare page is used when it is empty.
func NewServer(cfg *config.Config, client widget.Sender) (*Server, error) {
	host := []byte(page.DefaultHost)
	if cfg.HostPage != "" {
		data, err := os.ReadFile(cfg.HostPage)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read host page")
		}
		host = data
	}

	s := &Server{
		cfg:      cfg,
		client:   client,
		router:   mux.NewRouter(),
		host:     host,
		logger:   log.With().Str("component", "server").Logger(),
		visitors: make(map[string]*visitor),
	}

	// fail early on a host page the widget cannot mount into
	if _, err := s.mountPage(); err != nil {
		return nil, err
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all endpoints
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	// GET / - host page with this visitor's widget
	s.router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)

	// POST /widget/events - toggle, send, quick-reply and keypress events
	s.router.HandleFunc(eventsPath, s.eventsHandler).Methods(http.MethodPost)

	// GET /widget/state - JSON view of this visitor's widget
	s.router.HandleFunc("/widget/state", s.stateHandler).Methods(http.MethodGet)

	// GET /health - health check
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start listens on cfg.ListenAddr until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("widget host server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down widget host server")
		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown failed")
	}
}

func (s *Server) mountPage() (*page.Widget, error) {
	doc, err := page.ParseHost(bytes.NewReader(s.host))
	if err != nil {
		return nil, err
	}
	return page.Mount(doc, page.OptionsFromConfig(s.cfg, eventsPath))
}

// visitorFor returns the caller's widget, creating one and setting the
// visitor cookie when needed
func (s *Server) visitorFor(w http.ResponseWriter, r *http.Request) (*visitor, error) {
	id := ""
	if c, err := r.Cookie(visitorCookie); err == nil {
		id = c.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.visitors[id]; ok {
		v.lastSeen = time.Now()
		return v, nil
	}

	wdg, err := s.mountPage()
	if err != nil {
		return nil, err
	}
	rec := widget.NewRecorder(wdg)
	ctrl := widget.New(s.client,
		widget.WithView(rec),
		widget.WithFallbackMessage(s.cfg.FallbackMessage()),
	)
	wdg.Bind(ctrl)

	if len(s.visitors) >= s.cfg.MaxVisitors {
		s.evictOldestLocked()
	}

	id = uuid.New().String()
	v := &visitor{widget: wdg, rec: rec, ctrl: ctrl, lastSeen: time.Now()}
	s.visitors[id] = v

	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug().Str("visitor", id).Msg("new widget instance")
	return v, nil
}

// evictOldestLocked drops the least recently seen visitor (lock held)
func (s *Server) evictOldestLocked() {
	oldestID := ""
	var oldest time.Time
	for id, v := range s.visitors {
		if oldestID == "" || v.lastSeen.Before(oldest) {
			oldestID, oldest = id, v.lastSeen
		}
	}
	delete(s.visitors, oldestID)
}

// VisitorCount returns the number of live widget instances
func (s *Server) VisitorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.visitorFor(w, r)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create widget")
		http.Error(w, "Widget error", http.StatusInternalServerError)
		return
	}

	// the full page supersedes any pending render events
	v.rec.Drain()

	var buf bytes.Buffer
	if err := v.widget.Render(&buf); err != nil {
		s.logger.Error().Err(err).Msg("failed to render page")
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	isJSON := strings.Contains(r.Header.Get("Content-Type"), "application/json")

	var ev page.Event
	if isJSON {
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "Invalid JSON format"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		ev = page.Event{
			Action: r.FormValue("action"),
			Key:    r.FormValue("key"),
			Value:  r.FormValue("value"),
		}
	}

	v, err := s.visitorFor(w, r)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create widget")
		http.Error(w, "Widget error", http.StatusInternalServerError)
		return
	}

	// a started round-trip runs to completion even if the browser goes away
	if err := v.widget.Dispatch(context.WithoutCancel(r.Context()), ev); err != nil {
		if isJSON {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	if isJSON {
		resp := newStateResponse(v)
		resp.Events = v.rec.Drain()
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.visitorFor(w, r)
	if err != nil {
		http.Error(w, "Widget error", http.StatusInternalServerError)
		return
	}
	v.rec.Drain()
	writeJSON(w, http.StatusOK, newStateResponse(v))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "chat-widget",
		"visitors": s.VisitorCount(),
	})
}

// logRequests is a mux middleware logging each request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// stateResponse is the JSON view of one widget instance
type stateResponse struct {
	Visible            bool                   `json:"visible"`
	SessionID          string                 `json:"session_id,omitempty"`
	History            []history.Turn         `json:"conversation_history"`
	InFlight           bool                   `json:"in_flight"`
	QuickRepliesHidden bool                   `json:"quick_replies_hidden"`
	Messages           []page.RenderedMessage `json:"messages"`
	// Events lists the render events produced by the request, in order
	Events []widget.Event `json:"events,omitempty"`
}

func newStateResponse(v *visitor) stateResponse {
	st := v.ctrl.Snapshot()
	return stateResponse{
		Visible:            st.Visible,
		SessionID:          st.SessionID,
		History:            st.Turns,
		InFlight:           st.InFlight,
		QuickRepliesHidden: st.QuickRepliesHidden,
		Messages:           v.widget.Messages(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
