package server

import (
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kanban/internal/ai"
	"kanban/internal/models"
)

// aiUnavailable is the client-facing message for a genuine transport or
// API failure reaching the completion service. Malformed replies never get
// this far; they fall back to a fixed payload instead.
const aiUnavailable = "AI service unavailable"

// --- reply shapes, one variant per endpoint ---

type timelineMilestone struct {
	Date         string `json:"date"`
	Event        string `json:"event"`
	Significance string `json:"significance"`
}

type timelinePayload struct {
	ProjectName         string              `json:"projectName,omitempty"`
	JourneySummary      string              `json:"journeySummary"`
	KeyMilestones       []timelineMilestone `json:"keyMilestones"`
	CurrentPhase        string              `json:"currentPhase,omitempty"`
	ProgressPercentage  float64             `json:"progressPercentage,omitempty"`
	EstimatedCompletion string              `json:"estimatedCompletion,omitempty"`
	Insights            []string            `json:"insights,omitempty"`
	Risks               []string            `json:"risks,omitempty"`
	Recommendations     []string            `json:"recommendations,omitempty"`
}

type scheduleItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

type schedulePayload struct {
	Summary  string         `json:"summary"`
	Urgent   []scheduleItem `json:"urgent"`
	ThisWeek []scheduleItem `json:"thisWeek"`
	Upcoming []scheduleItem `json:"upcoming"`
	Backlog  []scheduleItem `json:"backlog"`
}

type reportStats struct {
	TotalProjects int `json:"totalProjects"`
	InProgress    int `json:"inProgress"`
	Completed     int `json:"completed"`
	Blocked       int `json:"blocked"`
}

type reportItem struct {
	Project            string `json:"project"`
	Owner              string `json:"owner"`
	Description        string `json:"description"`
	ExpectedCompletion string `json:"expectedCompletion,omitempty"`
}

type reportBlocker struct {
	Project   string `json:"project"`
	Issue     string `json:"issue"`
	NeedsFrom string `json:"needsFrom"`
}

type reportPayload struct {
	Title            string        `json:"title"`
	Date             string        `json:"date,omitempty"`
	ExecutiveSummary string        `json:"executiveSummary"`
	Stats            *reportStats  `json:"stats,omitempty"`
	Accomplishments  []reportItem  `json:"accomplishments,omitempty"`
	InProgress       []reportItem  `json:"inProgress,omitempty"`
	Upcoming         []reportItem  `json:"upcoming,omitempty"`
	Blockers         []reportBlocker `json:"blockers,omitempty"`
	Recommendations  []string      `json:"recommendations,omitempty"`
	NextSteps        string        `json:"nextSteps,omitempty"`
}

type overviewProject struct {
	Name           string  `json:"name"`
	Owner          string  `json:"owner"`
	Priority       string  `json:"priority"`
	Progress       float64 `json:"progress"`
	Status         string  `json:"status"`
	Description    string  `json:"description"`
	CurrentWork    string  `json:"currentWork"`
	RecentWins     string  `json:"recentWins"`
	NextUp         string  `json:"nextUp"`
	BusinessImpact string  `json:"businessImpact"`
	Blockers       *string `json:"blockers"`
}

type overviewPayload struct {
	Title                    string            `json:"title"`
	Date                     string            `json:"date,omitempty"`
	ExecutiveSummary         string            `json:"executiveSummary"`
	KeyWins                  []string          `json:"keyWins,omitempty"`
	PortfolioHealth          string            `json:"portfolioHealth,omitempty"`
	Projects                 []overviewProject `json:"projects,omitempty"`
	StrategicRecommendations []string          `json:"strategicRecommendations,omitempty"`
	ResourceNeeds            []string          `json:"resourceNeeds,omitempty"`
	NextSteps                string            `json:"nextSteps,omitempty"`
	Stats                    *boardStats       `json:"stats,omitempty"`
}

type focusArea struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type insight struct {
	Icon  string `json:"icon"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Type  string `json:"type"`
}

// handleTimeline builds a narrative timeline for one project. The project
// rows are returned alongside the generated narrative so the UI can render
// both.
func (s *Server) handleTimeline(c *gin.Context) {
	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	history, err := s.store.ListHistoryAsc(ctx, projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	subtasks, err := s.store.ListProjectSubtasks(ctx, projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	comments, err := s.store.ListComments(ctx, projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	reverse(comments) // oldest first for the prompt

	reply, err := s.completer.Complete(ctx,
		timelinePrompt(project, history, subtasks, comments),
		"Generate the timeline analysis as JSON", 1000)
	if err != nil {
		s.aiError(c, err)
		return
	}

	var timeline timelinePayload
	if parseErr := ai.Decode(reply, &timeline); parseErr != nil {
		timeline = timelinePayload{
			JourneySummary: "Unable to generate timeline. Please try again.",
			KeyMilestones:  []timelineMilestone{},
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"timeline":    timeline,
		"project":     project,
		"history":     history,
		"subtasks":    subtasks,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSchedule produces the builder's prioritized work schedule from the
// open projects and recent board chatter.
func (s *Server) handleSchedule(c *gin.Context) {
	ctx := c.Request.Context()

	projects, err := s.store.ListOpenProjects(ctx)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	activity, err := s.store.ListActivity(ctx, 30)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	comments, err := s.store.ListRecentComments(ctx, 50)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	reply, err := s.completer.Complete(ctx,
		schedulePrompt(projects, activity, comments),
		"Generate Collin's prioritized work schedule as JSON", 1500)
	if err != nil {
		s.aiError(c, err)
		return
	}

	var schedule schedulePayload
	if parseErr := ai.Decode(reply, &schedule); parseErr != nil {
		schedule = schedulePayload{
			Summary:  "Unable to parse schedule. Please refresh.",
			Urgent:   []scheduleItem{},
			ThisWeek: []scheduleItem{},
			Upcoming: []scheduleItem{},
			Backlog:  []scheduleItem{},
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule":    schedule,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleChat answers free-form questions with the full board snapshot as
// context. The reply is HTML-flavored text rendered directly by the UI.
func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
		User    string `json:"user"`
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
	comments, err := s.store.ListRecentComments(ctx, 50)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	snaps := snapshotProjects(projects, subtasks, comments)
	stats := computeBoardStats(projects, subtasks)

	reply, err := s.completer.Complete(ctx, chatPrompt(req.User, snaps, stats), req.Message, 600)
	if err != nil {
		s.aiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// handleWelcome greets a user who just logged in, summarizing what changed
// since their last visit. A completion failure degrades to a fixed greeting
// rather than an error.
func (s *Server) handleWelcome(c *gin.Context) {
	var req struct {
		User      string `json:"user"`
		LastLogin string `json:"lastLogin"`
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

	var sinceLogin []models.ActivityEntry
	if req.LastLogin != "" {
		sinceLogin, err = s.store.ListActivitySince(ctx, req.LastLogin)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
	}

	reply, err := s.completer.Complete(ctx,
		welcomePrompt(req.User, req.LastLogin, sinceLogin, projects),
		"Generate a welcome message", 150)
	if err != nil {
		s.logger.Warn("welcome generation failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"response": "Welcome back, " + req.User + "! Let me know if you need any help with the Kanban board.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// handleReport generates a daily or weekly status report for management.
func (s *Server) handleReport(c *gin.Context) {
	var req struct {
		Type string `json:"type"`
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
	activity, err := s.store.ListActivity(ctx, 50)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	comments, err := s.store.ListRecentComments(ctx, 30)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	today := time.Now()
	dateRange := "Week of " + today.AddDate(0, 0, -7).Format("1/2/2006") + " - " + today.Format("1/2/2006")
	if req.Type == "daily" {
		dateRange = "Today (" + today.Format("1/2/2006") + ")"
	}

	reply, err := s.completer.Complete(ctx,
		reportPrompt(req.Type, dateRange, projects, activity, comments),
		"Generate the "+req.Type+" report as JSON", 1500)
	if err != nil {
		s.aiError(c, err)
		return
	}

	var report reportPayload
	if parseErr := ai.Decode(reply, &report); parseErr != nil {
		report = reportPayload{
			Title:            "Report Generation Error",
			ExecutiveSummary: "Unable to generate report. Please try again.",
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"report":      report,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleExecOverview builds the executive briefing across the whole
// portfolio. The locally-computed stats are merged into the reply since the
// model's arithmetic is not trusted.
func (s *Server) handleExecOverview(c *gin.Context) {
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

	snaps := snapshotProjects(projects, subtasks, nil)
	sortForBriefing(snaps)
	stats := computeBoardStats(projects, subtasks)

	reply, err := s.completer.Complete(ctx,
		execOverviewPrompt(snaps, stats, humanDate(time.Now())),
		"Generate the executive briefing as JSON", 2500)
	if err != nil {
		s.aiError(c, err)
		return
	}

	var overview overviewPayload
	if parseErr := ai.Decode(reply, &overview); parseErr != nil {
		overview = overviewPayload{
			Title:            "Executive Overview",
			ExecutiveSummary: "Unable to generate overview. Please try again.",
		}
	}
	overview.Stats = &stats

	c.JSON(http.StatusOK, gin.H{
		"overview":    overview,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleFocusAreas produces leadership focus areas; it falls back to
// locally-computed defaults on any completion or parse failure.
func (s *Server) handleFocusAreas(c *gin.Context) {
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

	stats := computeBoardStats(projects, subtasks)
	overdue := countOverdue(subtasks, time.Now())

	var highPriority []string
	for _, p := range projects {
		if p.Priority == "high" && p.Status != "done" {
			highPriority = append(highPriority, p.Name)
		}
	}

	fallback := defaultFocusAreas(overdue, len(highPriority), stats.InProgressSubtasks, stats.OverallProgress)

	reply, err := s.completer.Complete(ctx,
		focusAreasPrompt(projects, stats, overdue, highPriority),
		"Generate focus areas", 400)
	if err != nil {
		s.logger.Warn("focus area generation failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"focusAreas": fallback})
		return
	}

	var areas []focusArea
	if parseErr := ai.Decode(reply, &areas); parseErr != nil || len(areas) == 0 {
		areas = fallback
	}
	c.JSON(http.StatusOK, gin.H{"focusAreas": areas})
}

// handleInsights returns short optimistic highlights plus computed totals.
func (s *Server) handleInsights(c *gin.Context) {
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
	recent, err := s.store.ListActivity(ctx, 20)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	stats := computeBoardStats(projects, subtasks)
	statsOut := gin.H{
		"projects":  stats.TotalProjects,
		"completed": stats.CompletedSubtasks,
		"total":     stats.TotalSubtasks,
		"progress":  stats.OverallProgress,
	}

	var spotlight models.Project
	var spotlightProgress int
	if len(projects) > 0 {
		spotlight = projects[rand.Intn(len(projects))]
		var total, done int
		for _, st := range subtasks {
			if st.ProjectID == spotlight.ID {
				total++
				if st.Status == "done" {
					done++
				}
			}
		}
		spotlightProgress = percent(done, total)
	}

	reply, err := s.completer.Complete(ctx,
		insightsPrompt(stats, spotlight, spotlightProgress, recent),
		"Generate insights", 300)
	if err != nil {
		s.logger.Warn("insight generation failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"insights": []insight{{
				Icon:  "📊",
				Title: "Portfolio Active",
				Text:  itoa(stats.TotalProjects) + " AI projects in motion",
				Type:  "progress",
			}},
			"stats": statsOut,
		})
		return
	}

	var insights []insight
	if parseErr := ai.Decode(reply, &insights); parseErr != nil || len(insights) == 0 {
		insights = []insight{{
			Icon:  "🚀",
			Title: "Making Progress",
			Text:  itoa(stats.OverallProgress) + "% of all tasks completed across " + itoa(stats.TotalProjects) + " projects!",
			Type:  "progress",
		}}
	}

	c.JSON(http.StatusOK, gin.H{"insights": insights, "stats": statsOut})
}

// aiError reports a genuine upstream failure; the client treats it as
// "AI unavailable".
func (s *Server) aiError(c *gin.Context, err error) {
	s.logger.Error("completion call failed", "path", c.FullPath(), "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": aiUnavailable})
}

// sortForBriefing orders snapshots by priority (high first) then by the
// fixed stakeholder order used in leadership meetings.
func sortForBriefing(snaps []projectSnapshot) {
	priorityOrder := map[string]int{"high": 0, "medium": 1, "low": 2}
	ownerOrder := map[string]int{"Carl": 0, "Tom": 1, "Ann": 2, "Collin": 3}

	sort.SliceStable(snaps, func(i, j int) bool {
		pi, ok := priorityOrder[snaps[i].Priority]
		if !ok {
			pi = 2
		}
		pj, ok := priorityOrder[snaps[j].Priority]
		if !ok {
			pj = 2
		}
		if pi != pj {
			return pi < pj
		}
		oi, ok := ownerOrder[snaps[i].Owner]
		if !ok {
			oi = 3
		}
		oj, ok := ownerOrder[snaps[j].Owner]
		if !ok {
			oj = 3
		}
		return oi < oj
	})
}

// countOverdue counts subtasks whose due date has passed and which are not
// done. Due dates are stored as date-only or full timestamps; unparseable
// values are skipped.
func countOverdue(subtasks []models.Subtask, now time.Time) int {
	count := 0
	for _, st := range subtasks {
		if st.DueDate == "" || st.Status == "done" {
			continue
		}
		due, err := parseDate(st.DueDate)
		if err != nil {
			continue
		}
		if due.Before(now) {
			count++
		}
	}
	return count
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func defaultFocusAreas(overdue, highPriority, inProgress, progress int) []focusArea {
	var areas []focusArea
	if overdue > 0 {
		areas = append(areas, focusArea{
			Icon:        "⚠️",
			Title:       "Clear Overdue Backlog",
			Description: itoa(overdue) + " items are past due. Prioritize clearing these to improve portfolio health and team morale.",
		})
	}
	if highPriority > 0 {
		areas = append(areas, focusArea{
			Icon:        "🔥",
			Title:       "High Priority Focus",
			Description: itoa(highPriority) + " high-priority projects need attention. Consider resource reallocation to accelerate delivery.",
		})
	}
	if inProgress > 10 {
		areas = append(areas, focusArea{
			Icon:        "🎯",
			Title:       "Reduce Work in Progress",
			Description: itoa(inProgress) + " tasks in progress may indicate context switching. Focus on completing existing work.",
		})
	}
	if len(areas) == 0 {
		areas = append(areas, focusArea{
			Icon:        "✨",
			Title:       "Maintain Momentum",
			Description: "Portfolio at " + itoa(progress) + "% completion. Continue current pace and identify optimization opportunities.",
		})
	}
	return areas
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
