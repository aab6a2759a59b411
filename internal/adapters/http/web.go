// Package web serves the attendance board and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"
	"github.com/shopspring/decimal"

	"contractor/internal/adapters/email"
	"contractor/internal/adapters/http/middleware"
	"contractor/internal/adapters/http/perf"
	"contractor/internal/application/projections"
	"contractor/internal/domain/attendance"
	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DefaultRateLimit is the per-IP request rate allowed on the JSON API.
const DefaultRateLimit = 10

// ErrCSRFKey is returned by New when the CSRF key is not 32 bytes.
var ErrCSRFKey = errors.New("csrf key must be 32 bytes")

// WorkerStore is the roster state the handlers read and mutate.
type WorkerStore interface {
	projections.RosterReader
	Worker(id string) (worker.Worker, bool)
	AddWorker(ctx context.Context, name, role string, dailyRate decimal.Decimal) (worker.Worker, roster.Result)
	MarkAttendance(ctx context.Context, workerID, date string, status attendance.Status) roster.Result
	MarkSelected(ctx context.Context, workerID string, status attendance.Status) roster.Result
	DeleteWorker(ctx context.Context, workerID string) roster.Result
	SetSelectedDate(date string) error
}

// Config holds everything the server needs.
type Config struct {
	Store          WorkerStore
	Collector      *perf.Collector // optional, disables /api/v1/perf data when nil
	EmailSender    email.Sender    // optional, defaults to a NoopSender
	EmailFrom      string
	SummaryTo      []string // recipients of POST /api/v1/summary
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string
	RateLimit      float64 // requests per second per IP on /api/v1
	SlowRequest    time.Duration
	Version        string
}

// Server is the HTTP front end of the roster.
type Server struct {
	store          WorkerStore
	collector      *perf.Collector
	emailSender    email.Sender
	emailFrom      string
	summaryTo      []string
	csrfKey        []byte
	secureCookies  bool
	trustedOrigins []string
	rateLimit      float64
	slowRequest    time.Duration
	version        string
	board          *template.Template
}

// New validates cfg and parses the embedded templates.
// PRE: cfg.Store is non-nil
// POST: Returns a ready server or the first configuration error
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("web: store is required")
	}
	if len(cfg.CSRFKey) != 32 {
		return nil, ErrCSRFKey
	}
	board, err := template.New("board.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/board.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse board template: %w", err)
	}

	s := &Server{
		store:          cfg.Store,
		collector:      cfg.Collector,
		emailSender:    cfg.EmailSender,
		emailFrom:      cfg.EmailFrom,
		summaryTo:      cfg.SummaryTo,
		csrfKey:        cfg.CSRFKey,
		secureCookies:  cfg.SecureCookies,
		trustedOrigins: cfg.TrustedOrigins,
		rateLimit:      cfg.RateLimit,
		slowRequest:    cfg.SlowRequest,
		version:        cfg.Version,
		board:          board,
	}
	if s.emailSender == nil {
		s.emailSender = email.NewNoopSender()
	}
	if s.rateLimit <= 0 {
		s.rateLimit = DefaultRateLimit
	}
	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server_shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting", "address", address, "version", s.version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Handler returns the routed handler with all middleware applied.
// Order: Timing -> SecurityHeaders -> router middlewares -> group middlewares -> handler
func (s *Server) Handler() http.Handler {
	router := routegroup.New(http.NewServeMux())
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("contractor", "contractor", s.version),
		rest.Ping,
		rest.SizeLimit(64*1024),
	)

	// board page and its forms
	router.Group().Route(func(pages *routegroup.Bundle) {
		pages.Use(middleware.CSRF(s.csrfKey, middleware.CSRFOptions{
			Secure:         s.secureCookies,
			TrustedOrigins: s.trustedOrigins,
		}))
		pages.HandleFunc("GET /{$}", s.handleBoardPage)
		pages.HandleFunc("POST /workers", s.handleAddWorkerForm)
		pages.HandleFunc("POST /workers/{id}/attendance", s.handleMarkAttendanceForm)
		pages.HandleFunc("POST /workers/{id}/delete", s.handleDeleteWorkerForm)
		pages.HandleFunc("POST /date", s.handleSelectDateForm)
	})

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache, middleware.RateLimit(s.rateLimit), middleware.RequireJSON)
		api.HandleFunc("GET /board", s.handleAPIBoard)
		api.HandleFunc("GET /workers", s.handleAPIListWorkers)
		api.HandleFunc("POST /workers", s.handleAPIAddWorker)
		api.HandleFunc("GET /workers/{id}", s.handleAPIGetWorker)
		api.HandleFunc("DELETE /workers/{id}", s.handleAPIDeleteWorker)
		api.HandleFunc("GET /workers/{id}/stats", s.handleAPIWorkerStats)
		api.HandleFunc("GET /workers/{id}/attendance/{date}", s.handleAPIGetAttendance)
		api.HandleFunc("PUT /workers/{id}/attendance/{date}", s.handleAPIMarkAttendance)
		api.HandleFunc("GET /selected-date", s.handleAPIGetSelectedDate)
		api.HandleFunc("PUT /selected-date", s.handleAPISetSelectedDate)
		api.HandleFunc("GET /payroll.xlsx", s.handleAPIPayrollExport)
		api.HandleFunc("POST /summary", s.handleAPISendSummary)
		api.HandleFunc("GET /perf", s.handleAPIPerf)
	})

	return middleware.Chain(router,
		middleware.SecurityHeaders,
		middleware.Timing(s.collector, s.slowRequest),
	)
}
