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

// ListComments returns a project's comments, newest first.
func (s *Store) ListComments(ctx context.Context, projectID int64) ([]models.Comment, error) {
	var rows []commentRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, project_id, author, text, created_at, NULL AS project_name
         FROM comments WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return commentModels(rows), nil
}

// ListRecentComments returns the most recent comments across all projects,
// joined with the project name. Used to build AI context.
func (s *Store) ListRecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	var rows []commentRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT c.id, c.project_id, c.author, c.text, c.created_at, p.name AS project_name
         FROM comments c JOIN projects p ON c.project_id = p.id
         ORDER BY c.created_at DESC, c.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent comments: %w", err)
	}
	return commentModels(rows), nil
}

// AddComment appends a comment and records it in the project history and
// the activity feed. Comments are never edited.
func (s *Store) AddComment(ctx context.Context, projectID int64, author, text string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("comment text must not be empty")
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
			`INSERT INTO comments (project_id, author, text, created_at) VALUES (?, ?, ?, ?)`,
			projectID, author, text, now(),
		)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("comment id: %w", err)
		}

		if err := addHistory(tx, projectID, author, models.ActionComment, "Added comment"); err != nil {
			return err
		}
		return addActivity(tx, author, fmt.Sprintf("Commented on %q", projectName))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListHistory returns a project's audit trail, newest first.
func (s *Store) ListHistory(ctx context.Context, projectID int64) ([]models.HistoryEntry, error) {
	return s.listHistory(ctx, projectID, "DESC")
}

// ListHistoryAsc returns a project's audit trail, oldest first. The AI
// timeline prompt wants chronological order.
func (s *Store) ListHistoryAsc(ctx context.Context, projectID int64) ([]models.HistoryEntry, error) {
	return s.listHistory(ctx, projectID, "ASC")
}

func (s *Store) listHistory(ctx context.Context, projectID int64, direction string) ([]models.HistoryEntry, error) {
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, project_id, user, action, details, created_at
         FROM history WHERE project_id = ? ORDER BY created_at `+direction+`, id `+direction, projectID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.HistoryEntry{
			ID:        r.ID,
			ProjectID: r.ProjectID,
			User:      r.User,
			Action:    r.Action,
			Details:   r.Details.String,
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

// ListActivity returns the most recent activity entries. Older rows stay in
// storage; only the query limits what callers see.
func (s *Store) ListActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	var entries []models.ActivityEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT id, user, message, created_at FROM activity_log
         ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// ListActivitySince returns activity entries recorded after the given
// ISO-8601 timestamp, newest first.
func (s *Store) ListActivitySince(ctx context.Context, since string) ([]models.ActivityEntry, error) {
	var entries []models.ActivityEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT id, user, message, created_at FROM activity_log
         WHERE created_at > ? ORDER BY created_at DESC, id DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("list activity since: %w", err)
	}
	return entries, nil
}

// AddActivity appends a free-form entry to the global activity feed.
func (s *Store) AddActivity(ctx context.Context, user, message string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return addActivity(tx, user, message)
	})
}

type commentRow struct {
	ID          int64          `db:"id"`
	ProjectID   int64          `db:"project_id"`
	Author      string         `db:"author"`
	Text        string         `db:"text"`
	CreatedAt   string         `db:"created_at"`
	ProjectName sql.NullString `db:"project_name"`
}

type historyRow struct {
	ID        int64          `db:"id"`
	ProjectID int64          `db:"project_id"`
	User      string         `db:"user"`
	Action    string         `db:"action"`
	Details   sql.NullString `db:"details"`
	CreatedAt string         `db:"created_at"`
}

func commentModels(rows []commentRow) []models.Comment {
	comments := make([]models.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, models.Comment{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			Author:      r.Author,
			Text:        r.Text,
			CreatedAt:   r.CreatedAt,
			ProjectName: r.ProjectName.String,
		})
	}
	return comments
}
