package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/ai"
	"kanban/internal/models"
	"kanban/internal/storage/sqlite"
)

// handleBuilderAnalyze asks the model to interpret a plain-language update
// or quick action and propose board changes. The suggestions are only
// proposals; nothing is written until the client confirms via apply.
func (s *Server) handleBuilderAnalyze(c *gin.Context) {
	var req struct {
		ProjectID   int64  `json:"projectId"`
		TaskID      int64  `json:"taskId"`
		Update      string `json:"update"`
		QuickAction string `json:"quickAction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	subtasks, err := s.store.ListAllSubtasks(ctx)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	context := builderContext(req.ProjectID, req.TaskID, projects, subtasks)

	reply, err := s.completer.Complete(ctx,
		builderAnalyzePrompt(projects, subtasks, context, req.Update, req.QuickAction),
		"Analyze the update and propose changes as JSON", 800)
	if err != nil {
		s.logger.Warn("builder analysis failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"suggestions": []models.BuilderChange{},
			"error":       "AI analysis failed",
		})
		return
	}

	var suggestions []models.BuilderChange
	if parseErr := ai.Decode(reply, &suggestions); parseErr != nil {
		suggestions = []models.BuilderChange{}
	}
	if suggestions == nil {
		suggestions = []models.BuilderChange{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// handleBuilderApply commits a confirmed batch of changes. Each change is
// applied independently so one bad identifier does not void the rest of
// the batch.
func (s *Server) handleBuilderApply(c *gin.Context) {
	var req struct {
		Changes []models.BuilderChange `json:"changes"`
		User    string                 `json:"user"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()

	results := make([]models.BuilderResult, 0, len(req.Changes))
	for _, change := range req.Changes {
		result := models.BuilderResult{Change: change}

		switch change.Type {
		case "move", "complete":
			err := s.store.ApplyStatusChange(ctx, change, req.User)
			switch {
			case err == nil:
				result.Success = true
			case errors.Is(err, sqlite.ErrNotFound):
				result.Error = fmt.Sprintf("%s %d not found", change.ItemType, change.ItemID)
			default:
				result.Error = err.Error()
			}
		case "create":
			if change.ItemType != "subtask" {
				result.Error = "only subtask creation is supported"
				break
			}
			newID, err := s.store.ApplyCreateSubtask(ctx, change, req.User)
			if err != nil {
				result.Error = err.Error()
				break
			}
			result.Success = true
			result.NewID = newID
		default:
			result.Error = "unknown change type: " + change.Type
		}

		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// builderContext describes the user's current selection for the prompt.
func builderContext(projectID, taskID int64, projects []models.Project, subtasks []models.Subtask) string {
	if taskID != 0 {
		for _, st := range subtasks {
			if st.ID == taskID {
				return fmt.Sprintf("Selected Task: %q (id %d, status %s) in project %q",
					st.Name, st.ID, st.Status, st.ProjectName)
			}
		}
		return fmt.Sprintf("Selected Task: id %d (not found)", taskID)
	}
	if projectID != 0 {
		for _, p := range projects {
			if p.ID == projectID {
				var names []string
				for _, st := range subtasks {
					if st.ProjectID == projectID {
						names = append(names, fmt.Sprintf("%q (id %d, %s)", st.Name, st.ID, st.Status))
					}
				}
				return fmt.Sprintf("Selected Project: %q (id %d, status %s). Subtasks: %s",
					p.Name, p.ID, p.Status, joinOr(names, "none"))
			}
		}
		return fmt.Sprintf("Selected Project: id %d (not found)", projectID)
	}
	return "No specific project or task selected. Consider the whole board."
}
