package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// activityFeedLimit caps how many recent actions the feed shows. Older rows
// stay in storage.
const activityFeedLimit = 50

// handleListComments returns a project's comments, newest first.
func (s *Server) handleListComments(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := s.store.ListComments(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// handleAddComment appends a comment to a project.
func (s *Server) handleAddComment(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.store.AddComment(c.Request.Context(), projectID, req.Author, req.Text)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// handleListHistory returns a project's audit trail, newest first.
func (s *Server) handleListHistory(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := s.store.ListHistory(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// handleListActivity returns the recent global actions feed.
func (s *Server) handleListActivity(c *gin.Context) {
	activity, err := s.store.ListActivity(c.Request.Context(), activityFeedLimit)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// handleAddActivity appends a free-form entry to the activity feed.
func (s *Server) handleAddActivity(c *gin.Context) {
	var req struct {
		User    string `json:"user"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.store.AddActivity(c.Request.Context(), req.User, req.Message); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
