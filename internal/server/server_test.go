package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"kanban/internal/models"
	"kanban/internal/storage/sqlite"
)

// stubCompleter returns a canned reply or error instead of calling out.
type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	return s.reply, s.err
}

func newTestServer(t *testing.T, completer stubCompleter) (*Server, *sqlite.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	srv := New(store, completer, logger, "")
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{})

	rec := doJSON(t, srv, http.MethodPost, "/api/login",
		map[string]string{"username": "carl", "password": "carl2024!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Success bool `json:"success"`
		User    struct {
			DisplayName string `json:"displayName"`
			LastLogin   string `json:"lastLogin"`
		} `json:"user"`
	}
	decodeBody(t, rec, &out)
	if !out.Success || out.User.DisplayName != "Carl" {
		t.Fatalf("unexpected login response: %+v", out)
	}
	if out.User.LastLogin != "" {
		t.Fatalf("first login should carry empty previous timestamp, got %q", out.User.LastLogin)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/login",
		map[string]string{"username": "carl", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rec.Code)
	}
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{})

	rec := doJSON(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"name": "RAG Search", "owner": "Ann", "priority": "high",
		"tags": []string{"search"}, "user": "Ann",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create project: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}
	decodeBody(t, rec, &created)
	if !created.Success || created.ID == 0 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/projects/1", map[string]any{
		"name": "RAG Search", "owner": "Ann", "priority": "high",
		"status": "notacolumn", "user": "Ann",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/projects/999", map[string]any{
		"name": "ghost", "owner": "Ann", "status": "todo", "priority": "low", "user": "Ann",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown project, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/projects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list projects: %d", rec.Code)
	}
	var projects []models.Project
	decodeBody(t, rec, &projects)
	if len(projects) != 1 || projects[0].Name != "RAG Search" {
		t.Fatalf("unexpected project listing: %+v", projects)
	}
	if projects[0].Tags == nil {
		t.Fatalf("tags must decode to an array, got null")
	}
}

func TestBuilderApplyMixedBatch(t *testing.T) {
	srv, store := newTestServer(t, stubCompleter{})
	ctx := context.Background()

	projectID, err := store.CreateProject(ctx, models.Project{Name: "Agents", Owner: "Collin"}, "Collin")
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	subtaskID, err := store.CreateSubtask(ctx, projectID, models.Subtask{Name: "Eval harness"}, "Collin")
	if err != nil {
		t.Fatalf("seed subtask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/builder/apply", map[string]any{
		"user": "Collin",
		"changes": []map[string]any{
			{"type": "move", "itemType": "project", "itemId": projectID, "itemName": "Agents", "toStatus": "inprogress"},
			{"type": "complete", "itemType": "subtask", "itemId": 9999, "itemName": "ghost", "toStatus": "done"},
			{"type": "create", "itemType": "subtask", "projectId": projectID, "itemName": "Write runbook"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("builder apply: %d %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Results []models.BuilderResult `json:"results"`
	}
	decodeBody(t, rec, &out)
	if len(out.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out.Results))
	}
	if !out.Results[0].Success {
		t.Fatalf("project move should succeed: %+v", out.Results[0])
	}
	if out.Results[1].Success || out.Results[1].Error == "" {
		t.Fatalf("missing subtask should fail with an error: %+v", out.Results[1])
	}
	if !out.Results[2].Success || out.Results[2].NewID == 0 {
		t.Fatalf("create should succeed with a new id: %+v", out.Results[2])
	}

	moved, err := store.GetProject(ctx, projectID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if moved.Status != "inprogress" {
		t.Fatalf("failing change must not void the batch; project status is %q", moved.Status)
	}
	if _, err := store.GetSubtask(ctx, subtaskID); err != nil {
		t.Fatalf("existing subtask should be untouched: %v", err)
	}
}

func TestWelcomeFallsBackOnCompletionFailure(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{err: errors.New("upstream down")})

	rec := doJSON(t, srv, http.MethodPost, "/api/ai/welcome",
		map[string]string{"user": "Carl", "lastLogin": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("welcome must degrade to 200, got %d", rec.Code)
	}
	var out struct {
		Response string `json:"response"`
	}
	decodeBody(t, rec, &out)
	want := "Welcome back, Carl! Let me know if you need any help with the Kanban board."
	if out.Response != want {
		t.Fatalf("unexpected fallback greeting: %q", out.Response)
	}
}

func TestScheduleReportsTransportFailure(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{err: errors.New("timeout")})

	rec := doJSON(t, srv, http.MethodGet, "/api/schedule", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on transport failure, got %d", rec.Code)
	}
	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &out)
	if out.Error != "AI service unavailable" {
		t.Fatalf("unexpected error body: %q", out.Error)
	}
}

func TestScheduleFallsBackOnMalformedReply(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{reply: "definitely not json"})

	rec := doJSON(t, srv, http.MethodGet, "/api/schedule", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("parse failures must not surface as errors, got %d", rec.Code)
	}
	var out struct {
		Schedule schedulePayload `json:"schedule"`
	}
	decodeBody(t, rec, &out)
	if out.Schedule.Summary != "Unable to parse schedule. Please refresh." {
		t.Fatalf("unexpected fallback summary: %q", out.Schedule.Summary)
	}
	if out.Schedule.Urgent == nil || out.Schedule.Backlog == nil {
		t.Fatalf("fallback buckets must be empty arrays, got %+v", out.Schedule)
	}
}

func TestTimelineUnknownProject(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{reply: "{}"})

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/timeline/42", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown project, got %d", rec.Code)
	}
}

func TestTimelineParsesFencedReply(t *testing.T) {
	reply := "```json\n{\"journeySummary\": \"Steady progress\", \"keyMilestones\": [{\"date\": \"2026-08-01\", \"event\": \"Kickoff\", \"significance\": \"start\"}]}\n```"
	srv, store := newTestServer(t, stubCompleter{reply: reply})

	projectID, err := store.CreateProject(context.Background(), models.Project{Name: "Agents", Owner: "Tom"}, "Tom")
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/timeline/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Timeline timelinePayload `json:"timeline"`
		Project  models.Project  `json:"project"`
	}
	decodeBody(t, rec, &out)
	if out.Timeline.JourneySummary != "Steady progress" || len(out.Timeline.KeyMilestones) != 1 {
		t.Fatalf("fenced reply did not parse: %+v", out.Timeline)
	}
	if out.Project.ID != projectID {
		t.Fatalf("timeline response should echo the project, got %+v", out.Project)
	}
}

func TestBuilderAnalyzeDegradesGracefully(t *testing.T) {
	srv, _ := newTestServer(t, stubCompleter{err: errors.New("upstream down")})

	rec := doJSON(t, srv, http.MethodPost, "/api/builder/analyze",
		map[string]any{"update": "finished the eval harness"})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze must degrade to 200, got %d", rec.Code)
	}
	var out struct {
		Suggestions []models.BuilderChange `json:"suggestions"`
		Error       string                 `json:"error"`
	}
	decodeBody(t, rec, &out)
	if out.Suggestions == nil || len(out.Suggestions) != 0 {
		t.Fatalf("expected empty suggestions array, got %+v", out.Suggestions)
	}
	if out.Error != "AI analysis failed" {
		t.Fatalf("unexpected error marker: %q", out.Error)
	}
}

func TestInsightsMergesComputedStats(t *testing.T) {
	reply := `[{"icon": "🚀", "title": "Shipping", "text": "Two projects moved this week", "type": "progress"}]`
	srv, store := newTestServer(t, stubCompleter{reply: reply})
	ctx := context.Background()

	projectID, err := store.CreateProject(ctx, models.Project{Name: "Agents", Owner: "Tom"}, "Tom")
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	subtaskID, err := store.CreateSubtask(ctx, projectID, models.Subtask{Name: "Eval harness"}, "Tom")
	if err != nil {
		t.Fatalf("seed subtask: %v", err)
	}
	if err := store.UpdateSubtask(ctx, subtaskID, models.Subtask{Name: "Eval harness", Status: "done"}, "Tom"); err != nil {
		t.Fatalf("complete subtask: %v", err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insights: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Insights []insight `json:"insights"`
		Stats    struct {
			Projects  int `json:"projects"`
			Completed int `json:"completed"`
			Total     int `json:"total"`
			Progress  int `json:"progress"`
		} `json:"stats"`
	}
	decodeBody(t, rec, &out)
	if len(out.Insights) != 1 || out.Insights[0].Title != "Shipping" {
		t.Fatalf("unexpected insights: %+v", out.Insights)
	}
	if out.Stats.Projects != 1 || out.Stats.Completed != 1 || out.Stats.Total != 1 || out.Stats.Progress != 100 {
		t.Fatalf("stats must come from local computation: %+v", out.Stats)
	}
}
