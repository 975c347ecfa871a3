// Package server exposes the upload, report and metrics operations over
// HTTP. Import and report errors are rendered with their message text
// verbatim so operators see the same diagnostics the CLI prints.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ibms-reporting-service/internal/assembler"
	"ibms-reporting-service/internal/ingest"
	"ibms-reporting-service/internal/metrics"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/errors"
	"ibms-reporting-service/pkg/logger"
)

// roleHeader carries the caller's role. The admin role unlocks the
// elevated report filters.
const roleHeader = "X-IBMS-Role"

// Server wires the HTTP routes onto the domain services.
type Server struct {
	store     *store.Store
	importer  *ingest.Importer
	assembler *assembler.Assembler
	metrics   *metrics.Service
	logger    logger.Logger
}

// New creates a Server over the given store.
func New(st *store.Store, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Server{
		store:     st,
		importer:  ingest.NewImporter(st),
		assembler: assembler.New(st, log),
		metrics:   metrics.NewService(st, log),
		logger:    log.WithComponent("server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.POST("/uploads/:tableType", s.handleUpload)
		api.GET("/reports/:report", s.handleReport)

		api.GET("/metrics/report.csv", s.handleMetricsReport)
		api.POST("/metrics", s.handleMetricsRecord)

		api.GET("/costcentres", s.handleCostCentresList)
		api.PUT("/costcentres", s.handleCostCentrePut)
	}
	return r
}

// requestLogger logs one line per request with the fields the rest of
// the system logs with.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("Handled request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "counts": s.store.Counts()})
}

// isAdmin reports whether the caller presented the admin role.
func isAdmin(c *gin.Context) bool {
	return c.GetHeader(roleHeader) == "admin"
}

// renderError maps the error taxonomy onto HTTP statuses and renders the
// message verbatim.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if ibmsErr, ok := errors.AsIBMSError(err); ok {
		switch ibmsErr.Category {
		case errors.CategoryValidation, errors.CategoryReport:
			status = http.StatusBadRequest
		case errors.CategoryImport:
			status = http.StatusUnprocessableEntity
		case errors.CategoryFile:
			status = http.StatusNotFound
		}
	}
	s.logger.WithError(err).WithField("status", status).Warn("Request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
