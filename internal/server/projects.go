package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

type projectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"dueDate"`
	Tags        []string `json:"tags"`
	User        string   `json:"user"`
}

func (r projectRequest) toModel() models.Project {
	return models.Project{
		Name:        r.Name,
		Description: r.Description,
		Owner:       r.Owner,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		Tags:        r.Tags,
	}
}

// handleListProjects returns all projects with tags decoded, newest first.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// handleCreateProject creates a project and records who did it.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.store.CreateProject(c.Request.Context(), req.toModel(), req.User)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// handleUpdateProject replaces every field of a project. Status changes are
// tracked in the project history and the activity feed.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.ValidStatus(req.Status) {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
		return
	}
	if !models.ValidPriority(req.Priority) {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid priority %q", req.Priority))
		return
	}

	if err := s.store.UpdateProject(c.Request.Context(), id, req.toModel(), req.User); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleDeleteProject removes a project; its subtasks, comments and history
// cascade with it.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		User string `json:"user"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.store.DeleteProject(c.Request.Context(), id, req.User); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
