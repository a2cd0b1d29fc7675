package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

type researchRequest struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	LoomURL     string   `json:"loomUrl"`
	DemoURL     string   `json:"demoUrl"`
	GithubURL   string   `json:"githubUrl"`
	Tags        []string `json:"tags"`
	User        string   `json:"user"`
}

func (r researchRequest) toModel() models.Research {
	return models.Research{
		Title:       r.Title,
		Summary:     r.Summary,
		Description: r.Description,
		Category:    r.Category,
		Status:      r.Status,
		LoomURL:     r.LoomURL,
		DemoURL:     r.DemoURL,
		GithubURL:   r.GithubURL,
		Tags:        r.Tags,
	}
}

// handleListResearch returns all knowledge-base entries, newest first.
func (s *Server) handleListResearch(c *gin.Context) {
	entries, err := s.store.ListResearch(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// handleGetResearch returns one knowledge-base entry.
func (s *Server) handleGetResearch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := s.store.GetResearch(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// handleCreateResearch adds a knowledge-base entry.
func (s *Server) handleCreateResearch(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.store.CreateResearch(c.Request.Context(), req.toModel(), req.User)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// handleUpdateResearch replaces a knowledge-base entry.
func (s *Server) handleUpdateResearch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.store.UpdateResearch(c.Request.Context(), id, req.toModel(), req.User); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleDeleteResearch removes a knowledge-base entry.
func (s *Server) handleDeleteResearch(c *gin.Context) {
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

	if err := s.store.DeleteResearch(c.Request.Context(), id, req.User); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
