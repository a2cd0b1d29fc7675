package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kanban/internal/ai"
	"kanban/internal/storage/sqlite"
)

// Server provides the HTTP handlers for the kanban board backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	completer ai.Completer
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, completer ai.Completer, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:    router,
		store:     store,
		completer: completer,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/login", s.handleLogin)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.GET(":id/comments", s.handleListComments)
			projects.POST(":id/comments", s.handleAddComment)
			projects.GET(":id/history", s.handleListHistory)
			projects.GET(":id/subtasks", s.handleListProjectSubtasks)
			projects.POST(":id/subtasks", s.handleCreateSubtask)
		}

		api.GET("/subtasks", s.handleListAllSubtasks)
		api.PUT("/subtasks/:id", s.handleUpdateSubtask)
		api.DELETE("/subtasks/:id", s.handleDeleteSubtask)

		api.GET("/activity", s.handleListActivity)
		api.POST("/activity", s.handleAddActivity)

		research := api.Group("/research")
		{
			research.GET("", s.handleListResearch)
			research.POST("", s.handleCreateResearch)
			research.GET(":id", s.handleGetResearch)
			research.PUT(":id", s.handleUpdateResearch)
			research.DELETE(":id", s.handleDeleteResearch)
		}

		api.GET("/dashboard/timeline/:projectId", s.handleTimeline)
		api.GET("/schedule", s.handleSchedule)
		api.POST("/ai/chat", s.handleChat)
		api.POST("/ai/welcome", s.handleWelcome)
		api.POST("/report", s.handleReport)
		api.GET("/exec-overview", s.handleExecOverview)
		api.POST("/builder/analyze", s.handleBuilderAnalyze)
		api.POST("/builder/apply", s.handleBuilderApply)
		api.GET("/analytics/focus-areas", s.handleFocusAreas)
		api.GET("/insights", s.handleInsights)
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondStoreError maps missing-row errors to 404 and everything else
// to 500.
func (s *Server) respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, sqlite.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.respondError(c, http.StatusInternalServerError, err)
}
