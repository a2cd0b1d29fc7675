package server

import (
	"fmt"
	"strings"
	"time"

	"kanban/internal/models"
)

// projectSnapshot aggregates one project with its subtask and comment
// rollups for prompt assembly. Counts and percentages are computed locally;
// the model is not trusted with arithmetic.
type projectSnapshot struct {
	models.Project
	Subtasks          []models.Subtask
	CompletedCount    int
	InProgressCount   int
	TodoCount         int
	Progress          int
	CurrentWork       []string
	UpNext            []string
	RecentlyCompleted []string
	RecentComments    []models.Comment
}

// snapshotProjects groups subtasks and comments under their projects and
// computes per-project progress.
func snapshotProjects(projects []models.Project, subtasks []models.Subtask, comments []models.Comment) []projectSnapshot {
	snaps := make([]projectSnapshot, 0, len(projects))
	for _, p := range projects {
		snap := projectSnapshot{Project: p}

		var done, todo []string
		for _, st := range subtasks {
			if st.ProjectID != p.ID {
				continue
			}
			snap.Subtasks = append(snap.Subtasks, st)
			switch st.Status {
			case "done":
				snap.CompletedCount++
				done = append(done, st.Name)
			case "inprogress":
				snap.InProgressCount++
				snap.CurrentWork = append(snap.CurrentWork, st.Name)
			case "todo":
				snap.TodoCount++
				todo = append(todo, st.Name)
			}
		}
		if len(snap.Subtasks) > 0 {
			snap.Progress = percent(snap.CompletedCount, len(snap.Subtasks))
		}
		snap.UpNext = head(todo, 3)
		snap.RecentlyCompleted = tail(done, 3)

		for _, cm := range comments {
			if cm.ProjectID == p.ID && len(snap.RecentComments) < 3 {
				snap.RecentComments = append(snap.RecentComments, cm)
			}
		}

		snaps = append(snaps, snap)
	}
	return snaps
}

// boardStats holds the locally-computed portfolio totals merged into AI
// responses.
type boardStats struct {
	TotalProjects      int `json:"totalProjects"`
	TotalSubtasks      int `json:"totalSubtasks"`
	CompletedSubtasks  int `json:"completedSubtasks"`
	InProgressSubtasks int `json:"inProgressSubtasks"`
	OverallProgress    int `json:"overallProgress"`
}

func computeBoardStats(projects []models.Project, subtasks []models.Subtask) boardStats {
	stats := boardStats{
		TotalProjects: len(projects),
		TotalSubtasks: len(subtasks),
	}
	for _, st := range subtasks {
		switch st.Status {
		case "done":
			stats.CompletedSubtasks++
		case "inprogress":
			stats.InProgressSubtasks++
		}
	}
	if stats.TotalSubtasks > 0 {
		stats.OverallProgress = percent(stats.CompletedSubtasks, stats.TotalSubtasks)
	}
	return stats
}

// timelinePrompt asks for a narrative timeline of one project's journey.
func timelinePrompt(project models.Project, history []models.HistoryEntry, subtasks []models.Subtask, comments []models.Comment) string {
	var sb strings.Builder
	sb.WriteString("You are analyzing the journey of a project and generating an insightful timeline narrative.\n\n")
	fmt.Fprintf(&sb, "Project: %s\n", project.Name)
	fmt.Fprintf(&sb, "Owner: %s\n", project.Owner)
	fmt.Fprintf(&sb, "Current Status: %s\n", project.Status)
	fmt.Fprintf(&sb, "Description: %s\n", project.Description)
	fmt.Fprintf(&sb, "Created: %s\n\n", project.CreatedAt)

	sb.WriteString("History Events:\n")
	for _, h := range history {
		fmt.Fprintf(&sb, "- %s: %s - %s: %s\n", h.CreatedAt, h.User, h.Action, h.Details)
	}

	sb.WriteString("\nSubtasks:\n")
	for _, st := range subtasks {
		fmt.Fprintf(&sb, "- %s (%s) - Created: %s", st.Name, st.Status, st.CreatedAt)
		if st.CompletedAt != "" {
			fmt.Fprintf(&sb, ", Completed: %s", st.CompletedAt)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nComments:\n")
	for _, cm := range comments {
		fmt.Fprintf(&sb, "- %s: %s: %q\n", cm.CreatedAt, cm.Author, truncate(cm.Text, 100))
	}

	fmt.Fprintf(&sb, `
Generate a JSON timeline analysis. Return ONLY valid JSON:
{
  "projectName": "%s",
  "journeySummary": "2-3 sentence narrative of the project's journey so far",
  "keyMilestones": [
    { "date": "date", "event": "what happened", "significance": "why it matters" }
  ],
  "currentPhase": "description of where the project is now",
  "progressPercentage": estimated_percentage_complete,
  "estimatedCompletion": "estimate based on velocity",
  "insights": ["observations about the project's progress"],
  "risks": ["potential issues or delays identified"],
  "recommendations": ["suggestions for moving forward"]
}`, project.Name)

	return sb.String()
}

// schedulePrompt asks for a prioritized work schedule for the builder.
func schedulePrompt(projects []models.Project, activity []models.ActivityEntry, comments []models.Comment) string {
	var sb strings.Builder
	sb.WriteString(`You are an AI assistant helping prioritize work for Collin, who is the BUILDER/DEVELOPER for all AI projects on this Kanban board.

IMPORTANT CONTEXT:
- Collin builds and implements ALL the projects on this board
- Carl, Ann, and Tom are project OWNERS who request work and provide direction
- Collin needs to know what to work on and in what order
- Consider owner urgency, project priority, deadlines, and recent activity/comments

Current Projects (not done):
`)
	for _, p := range projects {
		due := p.DueDate
		if due == "" {
			due = "none"
		}
		fmt.Fprintf(&sb, "- %s (Owner: %s, Status: %s, Priority: %s, Due: %s): %s\n",
			p.Name, p.Owner, p.Status, p.Priority, due, p.Description)
	}

	sb.WriteString("\nRecent Activity:\n")
	for _, a := range head(activity, 15) {
		fmt.Fprintf(&sb, "- %s: %s\n", a.User, a.Message)
	}

	sb.WriteString("\nRecent Comments (may indicate urgency):\n")
	for _, cm := range head(comments, 10) {
		fmt.Fprintf(&sb, "- %s on %s: %q\n", cm.Author, cm.ProjectName, truncate(cm.Text, 100))
	}

	sb.WriteString(`
Generate a JSON response with Collin's prioritized schedule. Return ONLY valid JSON, no markdown:
{
  "summary": "Brief 2-3 sentence overview of what Collin should focus on today/this week",
  "urgent": [
    {
      "id": project_id,
      "name": "project name",
      "owner": "owner name",
      "priority": "high/medium/low",
      "description": "brief description",
      "reason": "Why this is urgent - be specific about owner needs or deadlines"
    }
  ],
  "thisWeek": [same structure - things to tackle this week],
  "upcoming": [same structure - can wait but should be planned],
  "backlog": [same structure - lower priority items]
}

Be strategic. Consider:
1. High priority items from any owner
2. Items with approaching due dates
3. Items with recent comments (owners may be waiting)
4. Items that have been "in progress" too long
5. Balance work across different owners when possible`)

	return sb.String()
}

// chatPrompt gives the assistant the full board snapshot plus formatting
// instructions for HTML-flavored replies.
func chatPrompt(user string, snaps []projectSnapshot, stats boardStats) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful AI assistant for the AI Projects Kanban board. Answer questions using the data below.\n\n")
	sb.WriteString("TEAM:\n")
	sb.WriteString("- Collin = Principal AI Architect (builds ALL projects, does all the actual work)\n")
	sb.WriteString("- Carl = CTO (Managing Director, oversees AI initiatives)\n")
	sb.WriteString("- Tom = Managing Director\n")
	sb.WriteString("- Ann = Managing Director\n")
	fmt.Fprintf(&sb, "- User asking: %s\n\n", user)

	fmt.Fprintf(&sb, "PORTFOLIO: %d projects, %d tasks, %d done (%d%%), %d in progress\n\n",
		stats.TotalProjects, stats.TotalSubtasks, stats.CompletedSubtasks,
		stats.OverallProgress, stats.InProgressSubtasks)

	sb.WriteString("PROJECTS AND CURRENT WORK:\n")
	for _, p := range snaps {
		fmt.Fprintf(&sb, "• %s (%s, %s priority, %d%% done)\n", p.Name, p.Owner, p.Priority, p.Progress)
		fmt.Fprintf(&sb, "  - Working on: %s\n", joinOr(p.CurrentWork, "None currently"))
		fmt.Fprintf(&sb, "  - Up next: %s\n", joinOr(p.UpNext, "None"))
		fmt.Fprintf(&sb, "  - Recently done: %s\n", joinOr(p.RecentlyCompleted, "None"))
	}

	sb.WriteString(`
When asked "What is Collin working on?" - list all items from "Working on" fields above.
When asked about a specific project - give its details from above.
When asked about progress - use the percentages and counts above.

FORMAT YOUR RESPONSES WITH CLEAN HTML:
- Use <strong> for project names and emphasis
- Use <div class="ai-project-card"> for each project block
- Use <div class="ai-status working">🔄 Working on:</div> for current work
- Use <div class="ai-status next">📅 Up next:</div> for upcoming
- Use <div class="ai-status done">✅ Recently done:</div> for completed
- Use <ul><li> for lists within sections
- Keep answers organized and scannable
- Be concise but thorough`)

	return sb.String()
}

// welcomePrompt asks for a short greeting summarizing changes since the
// user's last login.
func welcomePrompt(user, lastLogin string, sinceLogin []models.ActivityEntry, projects []models.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a friendly AI assistant for the AI Projects Kanban board. Generate a brief, warm welcome message for %s who just logged in.\n\n", user)

	if lastLogin != "" {
		fmt.Fprintf(&sb, "Their last login was: %s\n\n", lastLogin)
	} else {
		sb.WriteString("This appears to be their first login.\n\n")
	}

	if len(sinceLogin) > 0 {
		sb.WriteString("Changes since their last login:\n")
		for _, a := range sinceLogin {
			fmt.Fprintf(&sb, "- %s: %s\n", a.User, a.Message)
		}
		sb.WriteString("\n")
	}

	counts := map[string]int{}
	for _, p := range projects {
		counts[p.Status]++
	}
	sb.WriteString("Current project summary:\n")
	fmt.Fprintf(&sb, "- Total projects: %d\n", len(projects))
	fmt.Fprintf(&sb, "- To Do: %d\n", counts["todo"])
	fmt.Fprintf(&sb, "- In Progress: %d\n", counts["inprogress"])
	fmt.Fprintf(&sb, "- Review: %d\n", counts["review"])
	fmt.Fprintf(&sb, "- Done: %d\n\n", counts["done"])

	sb.WriteString("Keep the message brief (2-3 sentences), friendly, and offer to help with any questions about the board.")
	return sb.String()
}

// reportPrompt asks for a daily or weekly status report for management.
func reportPrompt(reportType, dateRange string, projects []models.Project, activity []models.ActivityEntry, comments []models.Comment) string {
	title := "Weekly"
	horizon := "next week"
	if reportType == "daily" {
		title = "Daily"
		horizon = "tomorrow"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are generating a %s status report for management about Collin's work on AI projects.\n\n", reportType)
	sb.WriteString(`CONTEXT:
- Collin is the builder/developer who implements ALL projects
- Carl, Ann, and Tom are project owners who need visibility into progress
- This report should be professional, clear, and actionable

Current Projects:
`)
	for _, p := range projects {
		fmt.Fprintf(&sb, "- %s (Owner: %s, Status: %s, Priority: %s): %s\n",
			p.Name, p.Owner, p.Status, p.Priority, p.Description)
	}

	sb.WriteString("\nRecent Activity:\n")
	for _, a := range head(activity, 25) {
		fmt.Fprintf(&sb, "- %s: %s - %s\n", a.CreatedAt, a.User, a.Message)
	}

	sb.WriteString("\nRecent Comments:\n")
	for _, cm := range head(comments, 15) {
		fmt.Fprintf(&sb, "- %s on %s: %q\n", cm.Author, cm.ProjectName, truncate(cm.Text, 80))
	}

	fmt.Fprintf(&sb, `
Generate a JSON report. Return ONLY valid JSON:
{
  "title": "%s Status Report",
  "date": "%s",
  "executiveSummary": "2-3 sentence high-level summary for management",
  "stats": {
    "totalProjects": number,
    "inProgress": number,
    "completed": number,
    "blocked": number
  },
  "accomplishments": [
    { "project": "name", "owner": "owner", "description": "what was done/progress made" }
  ],
  "inProgress": [
    { "project": "name", "owner": "owner", "description": "current work", "expectedCompletion": "estimate if possible" }
  ],
  "upcoming": [
    { "project": "name", "owner": "owner", "description": "what's planned next" }
  ],
  "blockers": [
    { "project": "name", "issue": "description of blocker", "needsFrom": "who can help" }
  ],
  "recommendations": ["actionable suggestions for management"],
  "nextSteps": "What Collin will focus on %s"
}

Be specific and actionable. If there are no blockers, return empty array. Focus on what matters to management.`,
		title, dateRange, horizon)

	return sb.String()
}

// execOverviewPrompt asks for an executive briefing covering every project,
// sorted by priority then owner.
func execOverviewPrompt(snaps []projectSnapshot, stats boardStats, date string) string {
	var sb strings.Builder
	sb.WriteString(`You are generating an executive briefing document for Carl (CTO) to present to the executive team about the AI initiatives portfolio.

CONTEXT:
- This is a formal executive summary for leadership meetings
- Carl needs to communicate progress, wins, and strategic direction
- Collin is the technical lead building all these AI solutions
- The audience is non-technical executives who care about business impact

PORTFOLIO OVERVIEW:
`)
	fmt.Fprintf(&sb, "Total Projects: %d\n", stats.TotalProjects)
	fmt.Fprintf(&sb, "Total Sub-tasks: %d\n", stats.TotalSubtasks)
	fmt.Fprintf(&sb, "Completed Sub-tasks: %d\n", stats.CompletedSubtasks)
	fmt.Fprintf(&sb, "Overall Progress: %d%%\n\n", stats.OverallProgress)

	sb.WriteString("PROJECT DETAILS (sorted by priority, then owner: Carl, Tom, Ann):\n")
	for _, p := range snaps {
		fmt.Fprintf(&sb, "\nPROJECT: %s\n", p.Name)
		fmt.Fprintf(&sb, "Owner: %s\n", p.Owner)
		fmt.Fprintf(&sb, "Priority: %s\n", p.Priority)
		fmt.Fprintf(&sb, "Status: %s\n", p.Status)
		fmt.Fprintf(&sb, "Progress: %d%% (%d/%d tasks complete)\n", p.Progress, p.CompletedCount, len(p.Subtasks))
		fmt.Fprintf(&sb, "Description: %s\n", p.Description)
		fmt.Fprintf(&sb, "Currently Working On: %s\n", joinOr(p.CurrentWork, "None active"))
		fmt.Fprintf(&sb, "Up Next: %s\n", joinOr(p.UpNext, "None planned"))
		fmt.Fprintf(&sb, "Recently Completed: %s\n", joinOr(p.RecentlyCompleted, "None yet"))
	}

	fmt.Fprintf(&sb, `
Generate a JSON executive briefing with EVERY project. Return ONLY valid JSON:
{
  "title": "AI Initiatives Portfolio Update",
  "date": "%s",
  "executiveSummary": "3-4 sentence high-level summary suitable for executives. Focus on business value and strategic progress.",
  "keyWins": ["List 3-4 major accomplishments to highlight"],
  "portfolioHealth": "One sentence assessment of overall portfolio health",
  "projects": [
    FOR EACH PROJECT provide:
    {
      "name": "project name",
      "owner": "owner",
      "priority": "high/medium/low",
      "progress": percentage,
      "status": "current status",
      "description": "1-2 sentence description",
      "currentWork": "what Collin is actively working on right now",
      "recentWins": "what was recently completed",
      "nextUp": "what's coming next",
      "businessImpact": "why this matters to the organization",
      "blockers": "any blockers or null if none"
    }
  ],
  "strategicRecommendations": ["2-3 recommendations for leadership consideration"],
  "resourceNeeds": ["any resource or support needs to flag"],
  "nextSteps": "What Carl will focus on in the coming weeks"
}

IMPORTANT: Include ALL %d projects in the response, sorted by priority then owner (Carl, Tom, Ann).

Write in a professional, executive-friendly tone. Emphasize business value and outcomes over technical details.`,
		date, len(snaps))

	return sb.String()
}

// builderAnalyzePrompt asks for reviewable board mutations derived from a
// free-text status update.
func builderAnalyzePrompt(projects []models.Project, subtasks []models.Subtask, context, update, quickAction string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant helping manage a Kanban board. Based on the user's update, suggest card movements AND new tasks to create.\n\n")

	sb.WriteString("CURRENT BOARD STATE:\nProjects: ")
	for i, p := range projects {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d:%s[%s]", p.ID, p.Name, p.Status)
	}
	sb.WriteString("\nSubtasks: ")
	for i, st := range head(subtasks, 50) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d:%s[%s](project:%d)", st.ID, st.Name, st.Status, st.ProjectID)
	}
	sb.WriteString("\n\n")

	if context != "" {
		fmt.Fprintf(&sb, "CONTEXT:\n%s\n\n", context)
	}

	userUpdate := update
	if userUpdate == "" {
		userUpdate = quickAction
	}
	fmt.Fprintf(&sb, "USER UPDATE: %q\n", userUpdate)
	if quickAction != "" {
		fmt.Fprintf(&sb, "QUICK ACTION TYPE: %s\n", quickAction)
	}

	sb.WriteString(`
Analyze this update and return a JSON array of suggested changes:

FOR MOVING/COMPLETING EXISTING ITEMS:
- type: "move" or "complete"
- itemType: "project" or "subtask"
- itemId: number (the existing item's ID)
- itemName: string
- fromStatus: current status
- toStatus: new status
- reason: brief explanation

FOR CREATING NEW SUBTASKS (when user mentions new work or next steps):
- type: "create"
- itemType: "subtask"
- itemId: null
- itemName: descriptive name for the new task
- projectId: number (which project to add it to)
- toStatus: "todo" or "inprogress"
- description: brief description of the task
- reason: why this task should be created

Status options: todo, inprogress, review, done

IMPORTANT:
- If user mentions completing something, suggest moving it to "done"
- If user mentions starting something new or next steps, suggest CREATING new subtasks
- If user mentions what they'll work on next, create those as new tasks
- Be proactive about suggesting new tasks based on implied next steps

Return ONLY valid JSON array.
Example: [
  {"type":"complete","itemType":"subtask","itemId":5,"itemName":"API Integration","fromStatus":"inprogress","toStatus":"done","reason":"User completed this"},
  {"type":"create","itemType":"subtask","itemId":null,"itemName":"Write API Documentation","projectId":3,"toStatus":"todo","description":"Document the new API endpoints","reason":"Natural next step after API completion"}
]`)

	return sb.String()
}

// focusAreasPrompt asks for a handful of actionable focus areas for
// leadership.
func focusAreasPrompt(projects []models.Project, stats boardStats, overdue int, highPriority []string) string {
	var sb strings.Builder
	sb.WriteString("You are an executive advisor analyzing an AI project portfolio. Generate 3-4 actionable focus areas for leadership.\n\n")
	sb.WriteString("PORTFOLIO DATA:\n")
	fmt.Fprintf(&sb, "- %d active projects\n", len(projects))
	fmt.Fprintf(&sb, "- %d/%d tasks completed (%d%%)\n", stats.CompletedSubtasks, stats.TotalSubtasks, stats.OverallProgress)
	fmt.Fprintf(&sb, "- %d overdue items\n", overdue)
	fmt.Fprintf(&sb, "- %d high-priority projects pending: %s\n", len(highPriority), strings.Join(highPriority, ", "))
	fmt.Fprintf(&sb, "- %d tasks currently in progress\n\n", stats.InProgressSubtasks)

	sb.WriteString(`Return JSON array of focus areas:
[{"icon": "emoji", "title": "Short action title", "description": "2-3 sentence recommendation"}]

Focus on: risk mitigation, resource optimization, deadline management, strategic priorities. Be specific and actionable.`)

	return sb.String()
}

// insightsPrompt asks for short optimistic highlights, spotlighting one
// project.
func insightsPrompt(stats boardStats, spotlight models.Project, spotlightProgress int, recent []models.ActivityEntry) string {
	var sb strings.Builder
	sb.WriteString("Generate 3-4 SHORT, OPTIMISTIC insights about this AI project portfolio. Be enthusiastic and highlight wins.\n\n")
	sb.WriteString("DATA:\n")
	fmt.Fprintf(&sb, "- %d active AI projects\n", stats.TotalProjects)
	fmt.Fprintf(&sb, "- %d/%d tasks completed (%d%%)\n", stats.CompletedSubtasks, stats.TotalSubtasks, stats.OverallProgress)
	fmt.Fprintf(&sb, "- Spotlight project: %s (%d%% complete) - %s\n", spotlight.Name, spotlightProgress, spotlight.Description)

	messages := make([]string, 0, 5)
	for _, a := range head(recent, 5) {
		messages = append(messages, a.Message)
	}
	fmt.Fprintf(&sb, "- Recent activity: %s\n\n", strings.Join(messages, ", "))

	sb.WriteString(`Return JSON array of insight objects:
[
  {"icon": "emoji", "title": "Short title", "text": "One sentence insight", "type": "win|progress|momentum|spotlight"}
]

Be OPTIMISTIC and BRIEF. Celebrate progress. Max 15 words per insight.`)

	return sb.String()
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(part)/float64(total)*100 + 0.5)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func humanDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}
