package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"kanban/internal/models"
)

type subtaskRow struct {
	ID           int64          `db:"id"`
	ProjectID    int64          `db:"project_id"`
	Name         string         `db:"name"`
	Description  sql.NullString `db:"description"`
	Status       string         `db:"status"`
	Assignee     sql.NullString `db:"assignee"`
	DueDate      sql.NullString `db:"due_date"`
	CreatedAt    string         `db:"created_at"`
	CompletedAt  sql.NullString `db:"completed_at"`
	ProjectName  sql.NullString `db:"project_name"`
	ProjectOwner sql.NullString `db:"project_owner"`
}

func (r subtaskRow) toModel() models.Subtask {
	return models.Subtask{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		Name:         r.Name,
		Description:  r.Description.String,
		Status:       r.Status,
		Assignee:     r.Assignee.String,
		DueDate:      r.DueDate.String,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt.String,
		ProjectName:  r.ProjectName.String,
		ProjectOwner: r.ProjectOwner.String,
	}
}

const subtaskColumns = `id, project_id, name, description, status, assignee, due_date, created_at, completed_at, NULL AS project_name, NULL AS project_owner`

// ListProjectSubtasks returns the subtasks of one project, oldest first.
func (s *Store) ListProjectSubtasks(ctx context.Context, projectID int64) ([]models.Subtask, error) {
	var rows []subtaskRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	return subtaskModels(rows), nil
}

// ListAllSubtasks returns every subtask joined with its parent project's
// name and owner for dashboard display, newest first.
func (s *Store) ListAllSubtasks(ctx context.Context) ([]models.Subtask, error) {
	var rows []subtaskRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT s.id, s.project_id, s.name, s.description, s.status, s.assignee, s.due_date,
                s.created_at, s.completed_at, p.name AS project_name, p.owner AS project_owner
         FROM subtasks s
         JOIN projects p ON s.project_id = p.id
         ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all subtasks: %w", err)
	}
	return subtaskModels(rows), nil
}

// GetSubtask retrieves a subtask by id.
func (s *Store) GetSubtask(ctx context.Context, id int64) (models.Subtask, error) {
	var r subtaskRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subtask{}, ErrNotFound
	}
	if err != nil {
		return models.Subtask{}, fmt.Errorf("get subtask: %w", err)
	}
	return r.toModel(), nil
}

// CreateSubtask inserts a subtask under a project, recording the audit trail
// in the same transaction.
func (s *Store) CreateSubtask(ctx context.Context, projectID int64, sub models.Subtask, user string) (int64, error) {
	if strings.TrimSpace(sub.Name) == "" {
		return 0, fmt.Errorf("subtask name must not be empty")
	}
	if !models.ValidStatus(sub.Status) {
		sub.Status = "todo"
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var projectName string
		err := tx.GetContext(ctx, &projectName, `SELECT name FROM projects WHERE id = ?`, projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}

		res, err := tx.Exec(
			`INSERT INTO subtasks (project_id, name, description, status, assignee, due_date, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			projectID, strings.TrimSpace(sub.Name), sub.Description, sub.Status,
			nullable(sub.Assignee), nullable(sub.DueDate), now(),
		)
		if err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("subtask id: %w", err)
		}

		if err := addHistory(tx, projectID, user, models.ActionSubtaskAdded,
			fmt.Sprintf("Added subtask %q", sub.Name)); err != nil {
			return err
		}
		return addActivity(tx, user,
			fmt.Sprintf("Added subtask %q to %s", sub.Name, projectName))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateSubtask replaces every stored field of a subtask. completed_at is
// stamped only when the status enters done from another value; it keeps its
// prior value otherwise, including when the subtask is reopened.
func (s *Store) UpdateSubtask(ctx context.Context, id int64, sub models.Subtask, user string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var old subtaskRow
		err := tx.GetContext(ctx, &old, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load subtask: %w", err)
		}

		completedAt := old.CompletedAt
		if sub.Status == "done" && old.Status != "done" {
			completedAt = sql.NullString{String: now(), Valid: true}
		}

		_, err = tx.Exec(
			`UPDATE subtasks SET name=?, description=?, status=?, assignee=?, due_date=?, completed_at=? WHERE id=?`,
			sub.Name, sub.Description, sub.Status,
			nullable(sub.Assignee), nullable(sub.DueDate), completedAt, id,
		)
		if err != nil {
			return fmt.Errorf("update subtask: %w", err)
		}

		if old.Status == sub.Status {
			return nil
		}

		var projectName string
		if err := tx.GetContext(ctx, &projectName, `SELECT name FROM projects WHERE id = ?`, old.ProjectID); err != nil {
			return fmt.Errorf("load project: %w", err)
		}
		if err := addHistory(tx, old.ProjectID, user, models.ActionSubtaskStatus,
			fmt.Sprintf("Subtask %q moved to %s", sub.Name, sub.Status)); err != nil {
			return err
		}
		return addActivity(tx, user,
			fmt.Sprintf("Updated subtask %q to %s on %s", sub.Name, sub.Status, projectName))
	})
}

// DeleteSubtask removes a subtask and records the deletion against its
// parent project.
func (s *Store) DeleteSubtask(ctx context.Context, id int64, user string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var old struct {
			ProjectID   int64  `db:"project_id"`
			Name        string `db:"name"`
			ProjectName string `db:"project_name"`
		}
		err := tx.GetContext(ctx, &old,
			`SELECT s.project_id, s.name, p.name AS project_name
             FROM subtasks s JOIN projects p ON s.project_id = p.id
             WHERE s.id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load subtask: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM subtasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete subtask: %w", err)
		}
		if err := addHistory(tx, old.ProjectID, user, models.ActionSubtaskDeleted,
			fmt.Sprintf("Deleted subtask %q", old.Name)); err != nil {
			return err
		}
		return addActivity(tx, user,
			fmt.Sprintf("Deleted subtask %q from %s", old.Name, old.ProjectName))
	})
}

func subtaskModels(rows []subtaskRow) []models.Subtask {
	subtasks := make([]models.Subtask, 0, len(rows))
	for _, r := range rows {
		subtasks = append(subtasks, r.toModel())
	}
	return subtasks
}
