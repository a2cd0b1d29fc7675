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

type projectRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Owner       string         `db:"owner"`
	Status      string         `db:"status"`
	Priority    string         `db:"priority"`
	DueDate     sql.NullString `db:"due_date"`
	Tags        sql.NullString `db:"tags"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (r projectRow) toModel() models.Project {
	return models.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		Owner:       r.Owner,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     r.DueDate.String,
		Tags:        decodeTags(r.Tags.String),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const projectColumns = `id, name, description, owner, status, priority, due_date, tags, created_at, updated_at`

// ListProjects retrieves all projects, newest first, with tags decoded.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]models.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.toModel())
	}
	return projects, nil
}

// ListOpenProjects retrieves projects whose status is not done.
func (s *Store) ListOpenProjects(ctx context.Context) ([]models.Project, error) {
	var rows []projectRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+projectColumns+` FROM projects WHERE status != 'done' ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list open projects: %w", err)
	}

	projects := make([]models.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.toModel())
	}
	return projects, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var r projectRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return r.toModel(), nil
}

// CreateProject persists a new project, recording a creation history entry
// and an activity message in the same transaction.
func (s *Store) CreateProject(ctx context.Context, p models.Project, user string) (int64, error) {
	if strings.TrimSpace(p.Name) == "" {
		return 0, fmt.Errorf("project name must not be empty")
	}
	if !models.ValidPriority(p.Priority) {
		p.Priority = "medium"
	}
	if !models.ValidStatus(p.Status) {
		p.Status = "todo"
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		ts := now()
		res, err := tx.Exec(
			`INSERT INTO projects (name, description, owner, status, priority, due_date, tags, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			strings.TrimSpace(p.Name), p.Description, p.Owner, p.Status, p.Priority,
			nullable(p.DueDate), encodeTags(p.Tags), ts, ts,
		)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("project id: %w", err)
		}

		if err := addHistory(tx, id, user, models.ActionCreated, fmt.Sprintf("Project %q created", p.Name)); err != nil {
			return err
		}
		return addActivity(tx, user, fmt.Sprintf("Created project %q", p.Name))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateProject replaces every stored field of a project. A status change is
// tracked with a status_change history entry and an activity message; a
// same-status update gets only a generic history entry.
func (s *Store) UpdateProject(ctx context.Context, id int64, p models.Project, user string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var old projectRow
		err := tx.GetContext(ctx, &old, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}

		_, err = tx.Exec(
			`UPDATE projects SET name=?, description=?, owner=?, status=?, priority=?, due_date=?, tags=?, updated_at=? WHERE id=?`,
			p.Name, p.Description, p.Owner, p.Status, p.Priority,
			nullable(p.DueDate), encodeTags(p.Tags), now(), id,
		)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}

		if old.Status != p.Status {
			if err := addHistory(tx, id, user, models.ActionStatusChange,
				fmt.Sprintf("Moved from %q to %q", old.Status, p.Status)); err != nil {
				return err
			}
			return addActivity(tx, user,
				fmt.Sprintf("Moved %q from %s to %s", p.Name, old.Status, p.Status))
		}
		return addHistory(tx, id, user, models.ActionUpdated, "Project updated")
	})
}

// DeleteProject removes a project; subtasks, comments and history cascade.
func (s *Store) DeleteProject(ctx context.Context, id int64, user string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var name string
		err := tx.GetContext(ctx, &name, `SELECT name FROM projects WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return addActivity(tx, user, fmt.Sprintf("Deleted project %q", name))
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
