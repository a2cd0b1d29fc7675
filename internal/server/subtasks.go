package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

type subtaskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Assignee    string `json:"assignee"`
	DueDate     string `json:"dueDate"`
	User        string `json:"user"`
}

func (r subtaskRequest) toModel() models.Subtask {
	return models.Subtask{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		Assignee:    r.Assignee,
		DueDate:     r.DueDate,
	}
}

// handleListProjectSubtasks returns one project's subtasks, oldest first.
func (s *Server) handleListProjectSubtasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	subtasks, err := s.store.ListProjectSubtasks(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

// handleListAllSubtasks returns every subtask with the parent project's
// name and owner joined in for dashboard display.
func (s *Server) handleListAllSubtasks(c *gin.Context) {
	subtasks, err := s.store.ListAllSubtasks(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

// handleCreateSubtask adds a subtask under a project.
func (s *Server) handleCreateSubtask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.store.CreateSubtask(c.Request.Context(), projectID, req.toModel(), req.User)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// handleUpdateSubtask replaces every field of a subtask. Moving into done
// stamps completed_at; moving back out leaves it untouched.
func (s *Server) handleUpdateSubtask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.ValidStatus(req.Status) {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
		return
	}

	if err := s.store.UpdateSubtask(c.Request.Context(), id, req.toModel(), req.User); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleDeleteSubtask removes a subtask.
func (s *Server) handleDeleteSubtask(c *gin.Context) {
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

	if err := s.store.DeleteSubtask(c.Request.Context(), id, req.User); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
