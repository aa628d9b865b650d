package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"FraudShield/internal/dom"
	"FraudShield/internal/logging"
	"FraudShield/internal/ports"
	"FraudShield/internal/presentation"
	"FraudShield/internal/usecase"
)

// Deps lists what the control API drives.
type Deps struct {
	Coordinator *usecase.Coordinator
	Document    *dom.Document
	// Reports is optional; without it GET /reports answers 404.
	Reports     ports.ReportLog
	Logger      *slog.Logger
}

// Server exposes the control surface over HTTP.
type Server struct {
	coord   *usecase.Coordinator
	doc     *dom.Document
	reports ports.ReportLog
	logger  *slog.Logger
}

type protectionRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type fragmentRequest struct {
	Parent string `json:"parent"`
	HTML   string `json:"html" binding:"required"`
}

type navigateRequest struct {
	URL string `json:"url" binding:"required"`
}

// New validates deps.
func New(deps Deps) (*Server, error) {
	if deps.Coordinator == nil || deps.Document == nil {
		return nil, fmt.Errorf("api needs a coordinator and a document")
	}
	return &Server{
		coord:   deps.Coordinator,
		doc:     deps.Document,
		reports: deps.Reports,
		logger:  logging.Component(deps.Logger, "api"),
	}, nil
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.GET("/status", s.status)
	v1.PUT("/protection", s.setProtection)
	v1.POST("/rescan", s.rescan)
	v1.PUT("/settings/api-key", s.setAPIKey)

	v1.GET("/document", s.document)
	v1.POST("/document/fragments", s.appendFragment)
	v1.POST("/document/navigate", s.navigate)

	v1.GET("/alerts", s.listAlerts)
	v1.POST("/alerts/:id/:action", s.alertAction)
	v1.GET("/reports", s.listReports)

	return r
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.coord.Status(c.Request.Context()))
}

func (s *Server) setProtection(c *gin.Context) {
	var req protectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "enabled is required")
		return
	}
	if err := s.coord.SetProtection(c.Request.Context(), *req.Enabled); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.maybeWait(c)
	c.JSON(http.StatusOK, s.coord.Status(c.Request.Context()))
}

func (s *Server) rescan(c *gin.Context) {
	if err := s.coord.ManualRescan(); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrProtectionDisabled) {
			code = http.StatusConflict
		}
		s.fail(c, code, err)
		return
	}
	s.maybeWait(c)
	c.JSON(http.StatusAccepted, s.coord.Status(c.Request.Context()))
}

func (s *Server) setAPIKey(c *gin.Context) {
	var req apiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := s.coord.SetClassifierAPIKey(c.Request.Context(), req.APIKey); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classifierConfigured": strings.TrimSpace(req.APIKey) != ""})
}

func (s *Server) document(c *gin.Context) {
	out, err := s.doc.Render()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

func (s *Server) appendFragment(c *gin.Context) {
	var req fragmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "html is required")
		return
	}
	parent := strings.TrimSpace(req.Parent)
	if parent == "" {
		parent = "body"
	}

	added, err := s.doc.AppendHTML(parent, req.HTML)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	s.maybeWait(c)
	c.JSON(http.StatusOK, gin.H{"added": len(added)})
}

func (s *Server) navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	if err := s.doc.Navigate(req.URL); err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": s.doc.URL()})
}

func (s *Server) listAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.coord.Alerts().List()})
}

func (s *Server) alertAction(c *gin.Context) {
	id := c.Param("id")
	alerts := s.coord.Alerts()

	var err error
	body := gin.H{"id": id}
	switch action := c.Param("action"); action {
	case presentation.ActionToggle:
		var state presentation.State
		state, err = alerts.Toggle(id)
		body["state"] = state
	case presentation.ActionDismiss:
		err = alerts.Dismiss(id)
		body["state"] = presentation.StateDismissed
	case presentation.ActionReport:
		report, rerr := alerts.Report(c.Request.Context(), id)
		err = rerr
		body["state"] = presentation.StateDismissed
		body["report"] = report
	default:
		badRequest(c, "unknown action "+action)
		return
	}

	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, presentation.ErrAlertNotFound) {
			code = http.StatusNotFound
		}
		s.fail(c, code, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listReports(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report log is not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		badRequest(c, "limit must be a number")
		return
	}
	reports, err := s.reports.Reports(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// maybeWait blocks until background classification settles when the caller
// asks for it with ?wait=true.
func (s *Server) maybeWait(c *gin.Context) {
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		s.coord.Wait()
	}
}

func (s *Server) fail(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
