/*
This file wires the service together and exposes its HTTP surface:

	POST   /webhook               - main endpoint, returns a canonical response
	GET    /health                - liveness plus store connectivity
	DELETE /api/reset-user        - drop a user's stored profile
	POST   /admin/reload-prompts  - clear the prompt layer cache

The webhook handler is fail-closed: whatever happens inside the pipeline,
the caller receives a well-formed canonical response with HTTP 200. Only
authentication and payload validation reject the request outright, before
the pipeline starts.
*/
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"oddsbot/tools"
)

// slowRequestThreshold triggers a warning log for unusually long requests.
const slowRequestThreshold = 15 * time.Second

// apiKeyHeader carries the shared secret from the upstream caller.
const apiKeyHeader = "X-Odds-API-Key"

// deduper is the dedup cache seam used by the webhook handler.
type deduper interface {
	CheckAndMark(ctx context.Context, correlationID string) bool
}

// agentRunner is the turn loop seam used by the webhook handler.
type agentRunner interface {
	Run(ctx context.Context, sctx SessionContext) AgentResult
}

// Server holds the request pipeline and its collaborators.
type Server struct {
	config   *Config
	logger   *logrus.Logger
	db       *sql.DB
	profiles *ProfileStore
	dedup    deduper
	runner   agentRunner
	prompts  *PromptComposer
	closers  []func() error
}

// NewServer creates a server instance with all dependencies initialized.
func NewServer(config *Config, logger *logrus.Logger) (*Server, error) {
	if config.AnthropicAPIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required")
	}
	if config.WebhookAPIKey == "" {
		return nil, errors.New("WEBHOOK_API_KEY is required")
	}

	db, err := OpenDatabase(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.WithField("path", config.DatabasePath).Info("Storage initialized")

	profiles := NewProfileStore(db)
	audit := NewAuditLog(db, logger)

	dedup, err := NewDedupCache(config.RedisURL, config.DedupTTL, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize dedup cache: %w", err)
	}
	logger.WithField("ttl", config.DedupTTL).Info("Dedup cache initialized")

	sports := tools.NewSportsClient(config.SportsAPIURL, config.SportsAPITimeout)
	dispatcher := NewDispatcher(audit, logger,
		tools.NewMemoryTool(profiles),
		tools.NewLiveEventsTool(sports),
		tools.NewUpcomingEventsTool(sports),
	)

	model := NewAnthropicModel(config, dispatcher.Definitions(), logger)
	prompts := NewPromptComposer(config.PromptsDir, logger)
	runner := NewRunner(model, dispatcher, prompts, config, logger)

	return &Server{
		config:   config,
		logger:   logger,
		db:       db,
		profiles: profiles,
		dedup:    dedup,
		runner:   runner,
		prompts:  prompts,
		closers:  []func() error{dedup.Close, db.Close},
	}, nil
}

// RegisterRoutes attaches all handlers to the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	s.logger.Info("Registering routes")

	e.POST("/webhook", s.handleWebhook)
	e.GET("/health", s.handleHealth)
	e.DELETE("/api/reset-user", s.handleResetUser)
	e.POST("/admin/reload-prompts", s.handleReloadPrompts)

	s.logger.Info("Routes registered successfully")
}

// Close releases the server's long-lived resources.
func (s *Server) Close() {
	for _, close := range s.closers {
		if err := close(); err != nil {
			s.logger.WithError(err).Warn("Error closing resource")
		}
	}
}

func (s *Server) handleWebhook(c echo.Context) error {
	requestStart := time.Now()

	if c.Request().Header.Get(apiKeyHeader) != s.config.WebhookAPIKey {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		s.logger.WithError(err).Warn("Failed to parse webhook payload")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
	}
	if field := req.Validate(); field != "" {
		s.logger.WithField("field", field).Warn("Webhook payload missing required field")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Invalid payload: %s is required", field),
		})
	}

	requestID := c.Request().Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	requestLogger := s.logger.WithFields(logrus.Fields{
		"requestId":     requestID,
		"userId":        req.UserID,
		"correlationId": req.CorrelationID,
		"firstMessage":  req.FirstMessage,
	})
	requestLogger.WithFields(logrus.Fields{
		"messageLength": len(req.Message),
		"message":       truncateForLog(req.Message, s.config.LogTruncateLength),
	}).Info("Received webhook request")

	ctx := c.Request().Context()

	if s.dedup.CheckAndMark(ctx, req.CorrelationID) {
		requestLogger.Info("Duplicate request suppressed")
		return c.JSON(http.StatusOK, TextResponse(""))
	}

	hasProfile, err := s.profiles.Exists(ctx, req.UserID)
	if err != nil {
		// Safe default: treat the user as new rather than failing the
		// request over a store error.
		requestLogger.WithError(err).Warn("Profile existence check failed, assuming no profile")
		hasProfile = false
	}

	sctx := BuildSessionContext(&req, hasProfile, time.Now(), s.config)

	result := s.runner.Run(ctx, sctx)
	response := Normalize(result.Output)

	requestLogger.WithFields(logrus.Fields{
		"mode":         result.Decision.Mode,
		"state":        result.State,
		"toolCalls":    result.ToolCalls,
		"durationMs":   result.Duration.Milliseconds(),
		"responseType": response.Type,
	}).Info("Webhook request completed")

	if total := time.Since(requestStart); total > slowRequestThreshold {
		requestLogger.WithField("totalMs", total.Milliseconds()).Warn("Slow webhook request")
	}

	return c.JSON(http.StatusOK, response)
}

// truncateForLog bounds message text in log entries.
func truncateForLog(message string, max int) string {
	if max > 0 && len(message) > max {
		return message[:max] + "..."
	}
	return message
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.WithError(err).Error("Health check: storage unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"db":     "error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"db":     "connected",
	})
}

func (s *Server) handleResetUser(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId required"})
	}

	if err := s.profiles.Delete(c.Request().Context(), userID); err != nil {
		s.logger.WithError(err).WithField("userId", userID).Error("Failed to reset user profile")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "reset failed"})
	}

	s.logger.WithField("userId", userID).Info("User profile reset")
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReloadPrompts(c echo.Context) error {
	s.prompts.ClearCache()
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
