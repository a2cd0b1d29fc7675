package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"kanban/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func createProject(t *testing.T, store *Store, p models.Project) int64 {
	t.Helper()

	id, err := store.CreateProject(context.Background(), p, "Carl")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return id
}

func TestProjectRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := createProject(t, store, models.Project{
		Name:        "Voice Agent Pilot",
		Description: "Evaluate outbound voice agents",
		Owner:       "Carl",
		Priority:    "high",
		DueDate:     "2026-09-30",
		Tags:        []string{"ai", "pilot"},
	})

	got, err := store.GetProject(ctx, id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Name != "Voice Agent Pilot" || got.Owner != "Carl" {
		t.Fatalf("unexpected project row: %+v", got)
	}
	if got.Status != "todo" {
		t.Fatalf("expected default status todo, got %q", got.Status)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ai" || got.Tags[1] != "pilot" {
		t.Fatalf("tags did not survive the roundtrip: %v", got.Tags)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Fatalf("timestamps not set: %+v", got)
	}

	history, err := store.ListHistory(ctx, id)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Action != models.ActionCreated {
		t.Fatalf("expected one created entry, got %+v", history)
	}

	activity, err := store.ListActivity(ctx, 10)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(activity) != 1 || activity[0].Message != `Created project "Voice Agent Pilot"` {
		t.Fatalf("unexpected activity feed: %+v", activity)
	}
}

func TestCreateProjectRejectsBlankName(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.CreateProject(context.Background(), models.Project{Name: "   "}, "Carl"); err == nil {
		t.Fatalf("expected error for blank project name")
	}
}

func TestUpdateProjectTracksStatusChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := createProject(t, store, models.Project{Name: "Doc Pipeline", Owner: "Ann"})

	updated := models.Project{Name: "Doc Pipeline", Owner: "Ann", Status: "inprogress", Priority: "medium"}
	if err := store.UpdateProject(ctx, id, updated, "Ann"); err != nil {
		t.Fatalf("update project: %v", err)
	}

	history, err := store.ListHistoryAsc(ctx, id)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected created + status_change, got %d entries", len(history))
	}
	last := history[1]
	if last.Action != models.ActionStatusChange {
		t.Fatalf("expected status_change, got %q", last.Action)
	}
	if last.Details != `Moved from "todo" to "inprogress"` {
		t.Fatalf("unexpected status change details: %q", last.Details)
	}

	activity, err := store.ListActivity(ctx, 10)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if activity[0].Message != `Moved "Doc Pipeline" from todo to inprogress` {
		t.Fatalf("unexpected activity message: %q", activity[0].Message)
	}
}

func TestUpdateProjectSameStatusRecordsGenericEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := createProject(t, store, models.Project{Name: "Doc Pipeline", Owner: "Ann"})

	updated := models.Project{Name: "Doc Pipeline v2", Owner: "Ann", Status: "todo", Priority: "low"}
	if err := store.UpdateProject(ctx, id, updated, "Ann"); err != nil {
		t.Fatalf("update project: %v", err)
	}

	history, err := store.ListHistoryAsc(ctx, id)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 || history[1].Action != models.ActionUpdated {
		t.Fatalf("expected generic updated entry, got %+v", history)
	}

	activity, err := store.ListActivity(ctx, 10)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(activity) != 1 {
		t.Fatalf("same-status update should not add activity, got %+v", activity)
	}
}

func TestUpdateProjectUnknownID(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateProject(context.Background(), 9999, models.Project{Name: "x", Status: "todo"}, "Carl")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubtaskCompletedAtStamping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	projectID := createProject(t, store, models.Project{Name: "Chatbot", Owner: "Tom"})
	subtaskID, err := store.CreateSubtask(ctx, projectID, models.Subtask{Name: "Draft prompts"}, "Tom")
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}

	done := models.Subtask{Name: "Draft prompts", Status: "done"}
	if err := store.UpdateSubtask(ctx, subtaskID, done, "Tom"); err != nil {
		t.Fatalf("move to done: %v", err)
	}
	got, err := store.GetSubtask(ctx, subtaskID)
	if err != nil {
		t.Fatalf("get subtask: %v", err)
	}
	if got.CompletedAt == "" {
		t.Fatalf("completed_at not stamped on transition to done")
	}
	stamped := got.CompletedAt

	reopened := models.Subtask{Name: "Draft prompts", Status: "todo"}
	if err := store.UpdateSubtask(ctx, subtaskID, reopened, "Tom"); err != nil {
		t.Fatalf("reopen subtask: %v", err)
	}
	got, err = store.GetSubtask(ctx, subtaskID)
	if err != nil {
		t.Fatalf("get subtask: %v", err)
	}
	if got.CompletedAt != stamped {
		t.Fatalf("completed_at changed on reopen: %q -> %q", stamped, got.CompletedAt)
	}
}

func TestCreateSubtaskUnknownProject(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateSubtask(context.Background(), 404, models.Subtask{Name: "orphan"}, "Tom")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	projectID := createProject(t, store, models.Project{Name: "Legacy Import", Owner: "Ann"})
	if _, err := store.CreateSubtask(ctx, projectID, models.Subtask{Name: "Map fields"}, "Ann"); err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	if _, err := store.AddComment(ctx, projectID, "Ann", "kickoff notes"); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	if err := store.DeleteProject(ctx, projectID, "Ann"); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	subtasks, err := store.ListAllSubtasks(ctx)
	if err != nil {
		t.Fatalf("list subtasks: %v", err)
	}
	if len(subtasks) != 0 {
		t.Fatalf("expected cascade to remove subtasks, got %+v", subtasks)
	}
	comments, err := store.ListComments(ctx, projectID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected cascade to remove comments, got %+v", comments)
	}
	history, err := store.ListHistory(ctx, projectID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected cascade to remove history, got %+v", history)
	}
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Authenticate(ctx, "CARL", "carl2024!")
	if err != nil {
		t.Fatalf("authenticate seeded user: %v", err)
	}
	if user.DisplayName != "Carl" {
		t.Fatalf("unexpected display name %q", user.DisplayName)
	}
	if user.LastLogin != "" {
		t.Fatalf("first login should report empty previous last_login, got %q", user.LastLogin)
	}

	again, err := store.Authenticate(ctx, "carl", "carl2024!")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if again.LastLogin == "" {
		t.Fatalf("second login should see the first login's timestamp")
	}

	if _, err := store.Authenticate(ctx, "carl", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bad password, got %v", err)
	}
	if _, err := store.Authenticate(ctx, "nobody", "carl2024!"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestApplyStatusChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	projectID := createProject(t, store, models.Project{Name: "Agents", Owner: "Collin"})
	subtaskID, err := store.CreateSubtask(ctx, projectID, models.Subtask{Name: "Eval harness"}, "Collin")
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}

	change := models.BuilderChange{
		Type: "complete", ItemType: "subtask", ItemID: subtaskID,
		ItemName: "Eval harness", ToStatus: "done",
	}
	if err := store.ApplyStatusChange(ctx, change, "Collin"); err != nil {
		t.Fatalf("apply change: %v", err)
	}
	got, err := store.GetSubtask(ctx, subtaskID)
	if err != nil {
		t.Fatalf("get subtask: %v", err)
	}
	if got.Status != "done" || got.CompletedAt == "" {
		t.Fatalf("expected done with completed_at, got %+v", got)
	}

	// Builder moves reset completed_at when leaving done.
	change.ToStatus = "inprogress"
	if err := store.ApplyStatusChange(ctx, change, "Collin"); err != nil {
		t.Fatalf("apply second change: %v", err)
	}
	got, err = store.GetSubtask(ctx, subtaskID)
	if err != nil {
		t.Fatalf("get subtask: %v", err)
	}
	if got.Status != "inprogress" || got.CompletedAt != "" {
		t.Fatalf("expected completed_at cleared, got %+v", got)
	}

	missing := models.BuilderChange{Type: "move", ItemType: "subtask", ItemID: 9999, ToStatus: "done"}
	if err := store.ApplyStatusChange(ctx, missing, "Collin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing subtask, got %v", err)
	}

	invalid := models.BuilderChange{Type: "move", ItemType: "subtask", ItemID: subtaskID, ToStatus: "archived"}
	if err := store.ApplyStatusChange(ctx, invalid, "Collin"); err == nil {
		t.Fatalf("expected error for invalid target status")
	}
}

func TestApplyCreateSubtask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	projectID := createProject(t, store, models.Project{Name: "Agents", Owner: "Collin"})

	change := models.BuilderChange{
		Type: "create", ItemType: "subtask", ProjectID: projectID,
		ItemName: "Write runbook", Description: "Operational notes",
	}
	id, err := store.ApplyCreateSubtask(ctx, change, "Collin")
	if err != nil {
		t.Fatalf("apply create: %v", err)
	}

	got, err := store.GetSubtask(ctx, id)
	if err != nil {
		t.Fatalf("get created subtask: %v", err)
	}
	if got.Name != "Write runbook" || got.Status != "todo" || got.Assignee != "Collin" {
		t.Fatalf("unexpected created subtask: %+v", got)
	}
}

func TestResearchLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateResearch(ctx, models.Research{
		Title:   "Vector Store Comparison",
		Summary: "Benchmarks across three hosted options",
		Tags:    []string{"rag"},
	}, "Tom")
	if err != nil {
		t.Fatalf("create research: %v", err)
	}

	got, err := store.GetResearch(ctx, id)
	if err != nil {
		t.Fatalf("get research: %v", err)
	}
	if got.Category != "other" || got.Status != "idea" {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if got.Author != "Tom" {
		t.Fatalf("expected author from acting user, got %q", got.Author)
	}

	got.Status = "validated"
	if err := store.UpdateResearch(ctx, id, got, "Tom"); err != nil {
		t.Fatalf("update research: %v", err)
	}

	if err := store.DeleteResearch(ctx, id, "Tom"); err != nil {
		t.Fatalf("delete research: %v", err)
	}
	if _, err := store.GetResearch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.UpdateResearch(ctx, id, got, "Tom"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating deleted row, got %v", err)
	}
}
