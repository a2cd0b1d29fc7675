package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kanban/internal/models"
)

// ApplyStatusChange executes one approved move/complete suggestion inside
// its own transaction so a failing change never affects the others.
//
// Unlike the regular subtask update path, builder moves write NULL into
// completed_at for non-done targets.
func (s *Store) ApplyStatusChange(ctx context.Context, change models.BuilderChange, user string) error {
	if !models.ValidStatus(change.ToStatus) {
		return fmt.Errorf("invalid target status %q", change.ToStatus)
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		switch change.ItemType {
		case "project":
			res, err := tx.Exec(
				`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
				change.ToStatus, now(), change.ItemID,
			)
			if err != nil {
				return fmt.Errorf("move project: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrNotFound
			}
			if err := addHistory(tx, change.ItemID, user, models.ActionStatusChange,
				fmt.Sprintf("Moved to %s via Builder Mode", change.ToStatus)); err != nil {
				return err
			}
		case "subtask":
			var completedAt any
			if change.ToStatus == "done" {
				completedAt = now()
			}
			res, err := tx.Exec(
				`UPDATE subtasks SET status = ?, completed_at = ? WHERE id = ?`,
				change.ToStatus, completedAt, change.ItemID,
			)
			if err != nil {
				return fmt.Errorf("move subtask: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrNotFound
			}
		default:
			return fmt.Errorf("unknown item type %q", change.ItemType)
		}

		return addActivity(tx, user,
			fmt.Sprintf("Builder Mode: Moved %q to %s", change.ItemName, change.ToStatus))
	})
}

// ApplyCreateSubtask executes one approved create suggestion, inserting a
// new subtask with the acting user as assignee.
func (s *Store) ApplyCreateSubtask(ctx context.Context, change models.BuilderChange, user string) (int64, error) {
	status := change.ToStatus
	if !models.ValidStatus(status) {
		status = "todo"
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO subtasks (project_id, name, description, status, assignee, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			change.ProjectID, change.ItemName, change.Description, status, user, now(),
		)
		if err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("subtask id: %w", err)
		}
		return addActivity(tx, user,
			fmt.Sprintf("Builder Mode: Created new task %q", change.ItemName))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
