package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/wonderpick/internal/logging"
	"github.com/TobiSchelling/wonderpick/internal/metrics"
	"github.com/TobiSchelling/wonderpick/internal/recommend"
	"github.com/TobiSchelling/wonderpick/internal/records"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed content/about.md
var aboutMarkdown []byte

var md = goldmark.New()

// Version is reported by /healthz.
var Version = "dev"

var positions = []int{1, 2, 3, 4, 5}

// Server serves the suggestion pages and the JSON API.
type Server struct {
	store   records.Store
	metrics *metrics.Metrics
	pages   map[string]*template.Template
	about   template.HTML
	router  chi.Router
}

// New creates a new Server. A nil m gets a fresh metrics registry.
func New(store records.Store, m *metrics.Metrics) (*Server, error) {
	if m == nil {
		m = metrics.New()
	}

	funcMap := template.FuncMap{
		"band": func(confidence int) string { return string(recommend.BandFor(confidence)) },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "suggestion.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		store:   store,
		metrics: m,
		pages:   pages,
		about:   renderMarkdown(string(aboutMarkdown)),
		router:  chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Post("/suggest", s.handleSuggest)
	r.Post("/feedback", s.handleFeedback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/wonder-data", s.handleListRecords)
		r.Post("/wonder-data", s.handleAppendRecord)
		r.Get("/recommend", s.handleRecommend)
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	history, err := s.readAll(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Positions": positions,
		"Total":     len(history),
		"About":     s.about,
	}
	switch r.URL.Query().Get("recorded") {
	case "correct":
		data["Flash"] = "Great! Your feedback has been recorded."
		data["FlashKind"] = "correct"
	case "incorrect":
		data["Flash"] = "Thanks for your feedback. We'll improve our suggestions."
		data["FlashKind"] = "incorrect"
	}
	s.render(w, "index.html", data)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	start, err := formPosition(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.renderSuggestion(w, r, start, false)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	start, err := formPosition(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := r.FormValue("outcome")
	var rec recommend.Record
	switch outcome {
	case "correct":
		suggested, err := formPosition(r, "suggested")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec = recommend.Record{Start: start, Result: suggested}
	case "incorrect":
		if r.FormValue("result") == "" {
			s.renderSuggestion(w, r, start, true)
			return
		}
		result, err := formPosition(r, "result")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec = recommend.Record{Start: start, Result: result}
	default:
		http.Error(w, fmt.Sprintf("unknown outcome %q", outcome), http.StatusBadRequest)
		return
	}

	if err := s.appendRecord(r.Context(), rec, metrics.SourceWeb); err != nil {
		http.Error(w, "Failed to submit feedback. Please try again.", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/?recorded="+outcome, http.StatusFound)
}

func (s *Server) renderSuggestion(w http.ResponseWriter, r *http.Request, start int, askActual bool) {
	res, err := s.suggestFor(r.Context(), start)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "suggestion.html", map[string]any{
		"Start":     start,
		"Result":    res,
		"AskActual": askActual,
		"Positions": positions,
	})
}

// suggestFor loads the history and computes a suggestion for start.
func (s *Server) suggestFor(ctx context.Context, start int) (*recommend.Result, error) {
	history, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	res, err := recommend.Recommend(history, start)
	if err != nil {
		logging.Error().Err(err).Int("start", start).Msg("computing recommendation")
		return nil, err
	}
	s.metrics.ObserveRecommendation(res.IsDefaultSuggestion)
	return res, nil
}

func (s *Server) readAll(ctx context.Context) ([]recommend.Record, error) {
	history, err := s.store.ReadAll(ctx)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("read").Inc()
		logging.Error().Err(err).Msg("reading records")
		return nil, err
	}
	return history, nil
}

func (s *Server) appendRecord(ctx context.Context, rec recommend.Record, source string) error {
	if err := s.store.Append(ctx, rec); err != nil {
		if !errors.Is(err, recommend.ErrInvalidPosition) {
			s.metrics.StoreErrors.WithLabelValues("append").Inc()
			logging.Error().Err(err).Int("start", rec.Start).Int("result", rec.Result).Msg("appending record")
		}
		return err
	}
	s.metrics.RecordsAppended.WithLabelValues(source).Inc()
	logging.Info().Int("start", rec.Start).Int("result", rec.Result).Str("source", source).Msg("record appended")
	return nil
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		logging.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		logging.Error().Err(err).Str("template", name).Msg("rendering template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func formPosition(r *http.Request, field string) (int, error) {
	raw := r.FormValue(field)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, raw)
	}
	if err := recommend.ValidatePosition(n); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return n, nil
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(began)).
			Msg("request")
	})
}

// Serve runs the server on addr until ctx is canceled.
func Serve(ctx context.Context, srv *Server, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info().Msg("shutting down server")
		return httpSrv.Shutdown(shutdownCtx)
	}
}
