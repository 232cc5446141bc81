// Package api exposes the admin dashboard over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accelerator-admin/internal/analytics"
	"accelerator-admin/internal/common/auth"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/common/validation"
	"accelerator-admin/internal/engine/aggregator"
	"accelerator-admin/internal/engine/transition"
	"accelerator-admin/internal/models"
)

// Analytics is the read side used by the dashboard endpoints.
type Analytics interface {
	Applications(ctx context.Context, c aggregator.Criteria, page, limit int) (*analytics.Listing, error)
	ApplicationStats(ctx context.Context) (models.ApplicationStats, error)
	GrowthMetrics(ctx context.Context) ([]models.GrowthMetric, error)
	SectorDistribution(ctx context.Context) (models.Distribution, error)
	InvestmentStages(ctx context.Context) (models.Distribution, error)
	MonthlyStats(ctx context.Context) ([]models.MonthlyStat, error)
}

type Transitioner interface {
	Transition(ctx context.Context, req transition.Request) (*models.ApplicationRecord, error)
}

type Authorizer interface {
	IsAdmin(ctx context.Context, actor *auth.Actor) (bool, error)
}

// Check is a named readiness probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Config struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	ReadyTimeout   time.Duration
}

type Server struct {
	config      Config
	analytics   Analytics
	transitions Transitioner
	resolver    auth.IdentityResolver
	authz       Authorizer
	limiter     *RateLimiter
	checks      []Check
	schema      *validation.Schema
	logger      logger.Logger
}

func NewServer(config Config, a Analytics, t Transitioner, resolver auth.IdentityResolver, authz Authorizer, limiter *RateLimiter, checks []Check, log logger.Logger) *Server {
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 2 * time.Second
	}
	return &Server{
		config:      config,
		analytics:   a,
		transitions: t,
		resolver:    resolver,
		authz:       authz,
		limiter:     limiter,
		checks:      checks,
		schema:      validation.MustCompile(validation.UpdateStatusSchema),
		logger:      log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Router wires the operational endpoints and the authenticated admin routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(recovery(s.logger), requestMetrics, cors(s.config.AllowedOrigins))

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(
		authenticate(s.resolver, s.logger),
		requireAdmin(s.authz, s.logger),
		s.limiter.Handler,
		requestTimeout(s.config.RequestTimeout),
	)
	// OPTIONS is routed so CORS preflights reach the cors middleware, which
	// answers them before authentication runs.
	admin.HandleFunc("/applications", s.listApplications).Methods(http.MethodGet, http.MethodOptions)
	admin.HandleFunc("/application-stats", s.applicationStats).Methods(http.MethodGet, http.MethodOptions)
	admin.HandleFunc("/update-application-status", s.updateApplicationStatus).Methods(http.MethodPost, http.MethodOptions)
	admin.HandleFunc("/growth-metrics", s.growthMetrics).Methods(http.MethodGet, http.MethodOptions)
	admin.HandleFunc("/sector-distribution", s.sectorDistribution).Methods(http.MethodGet, http.MethodOptions)
	admin.HandleFunc("/investment-stages", s.investmentStages).Methods(http.MethodGet, http.MethodOptions)
	admin.HandleFunc("/monthly-stats", s.monthlyStats).Methods(http.MethodGet, http.MethodOptions)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.ReadyTimeout)
	defer cancel()

	failing := map[string]string{}
	for _, c := range s.checks {
		if err := c.Run(ctx); err != nil {
			failing[c.Name] = err.Error()
		}
	}
	if len(failing) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failing": failing})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failing,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
