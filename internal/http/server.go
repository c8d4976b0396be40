package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/middleware/ratelimit"
	"finform/internal/middleware/security"
	"finform/internal/middleware/trace"
	"finform/internal/render"
	"finform/internal/session"
	appweb "finform/web"
)

// Analyzer runs the remote analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalysisRequest) (core.AnalysisResult, error)
}

// Journal records submission outcomes.
type Journal interface {
	Record(ctx context.Context, rec core.AnalysisRecord) error
}

// Options are the collaborators of a Server. Analyzer, Sessions and
// Formatter are required.
type Options struct {
	Analyzer  Analyzer
	Validator core.Validator
	Sessions  *session.Store
	Formatter *render.Formatter
	// Journal may be nil.
	Journal      Journal
	Logger       *log.Logger
	RateLimitRPM int
	// Templates overrides the embedded templates. Used by tests.
	Templates fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	analyzer  Analyzer
	validator core.Validator
	sessions  *session.Store
	formatter *render.Formatter
	journal   Journal
	logger    *log.Logger
	metrics   *metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	started   time.Time

	// pending tracks journal writes still running after their response.
	pending      sync.WaitGroup
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server. A template parse failure is logged; the server then
// reports not ready and pages fail with 500.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		analyzer:  opts.Analyzer,
		validator: opts.Validator,
		sessions:  opts.Sessions,
		formatter: opts.Formatter,
		journal:   opts.Journal,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		started:   time.Now(),
	}
	s.metrics = newMetrics(s.sessions.Size)
	s.detector = security.NewDetector(logger, func(reason string) {
		s.metrics.suspicious.WithLabelValues(reason).Inc()
	})

	templatesFS := opts.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := parseTemplates(templatesFS)
	if err != nil {
		logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleNotFound)
	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/ui/expense-row", s.handleExpenseRow)
	mux.Handle("/analyze", security.NoStore(http.HandlerFunc(s.handleAnalyze)))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.handler())

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	detected := s.detector.Middleware(headers)
	traced := trace.NewMiddleware(logger, s.detector.ExtractClientIP, s.metrics.observeRequest).Middleware(detected)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           traced,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	return template.ParseFS(fsys, "templates/*.html")
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.rateLimited.Inc()
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many submissions. Please wait a minute and try again.").
		TriggerWarningNotification("Too many submissions. Please wait a minute.").
		Write(w)
}

// Shutdown stops background goroutines, drains the HTTP server and waits for
// pending journal writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
		if err := s.drainRecords(ctx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	})
	return shutdownErr
}

func (s *Server) drainRecords(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("journal writes still pending: %w", ctx.Err())
	}
}
