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

type researchRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Summary     sql.NullString `db:"summary"`
	Description sql.NullString `db:"description"`
	Category    string         `db:"category"`
	Status      string         `db:"status"`
	LoomURL     sql.NullString `db:"loom_url"`
	DemoURL     sql.NullString `db:"demo_url"`
	GithubURL   sql.NullString `db:"github_url"`
	Tags        sql.NullString `db:"tags"`
	Author      string         `db:"author"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (r researchRow) toModel() models.Research {
	return models.Research{
		ID:          r.ID,
		Title:       r.Title,
		Summary:     r.Summary.String,
		Description: r.Description.String,
		Category:    r.Category,
		Status:      r.Status,
		LoomURL:     r.LoomURL.String,
		DemoURL:     r.DemoURL.String,
		GithubURL:   r.GithubURL.String,
		Tags:        decodeTags(r.Tags.String),
		Author:      r.Author,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const researchColumns = `id, title, summary, description, category, status, loom_url, demo_url, github_url, tags, author, created_at, updated_at`

// ListResearch returns all knowledge-base entries, newest first.
func (s *Store) ListResearch(ctx context.Context) ([]models.Research, error) {
	var rows []researchRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+researchColumns+` FROM research ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list research: %w", err)
	}

	entries := make([]models.Research, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toModel())
	}
	return entries, nil
}

// GetResearch fetches one knowledge-base entry by id.
func (s *Store) GetResearch(ctx context.Context, id int64) (models.Research, error) {
	var r researchRow
	err := s.db.GetContext(ctx, &r, `SELECT `+researchColumns+` FROM research WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Research{}, ErrNotFound
	}
	if err != nil {
		return models.Research{}, fmt.Errorf("get research: %w", err)
	}
	return r.toModel(), nil
}

// CreateResearch inserts a knowledge-base entry and notes it in the
// activity feed.
func (s *Store) CreateResearch(ctx context.Context, r models.Research, user string) (int64, error) {
	if strings.TrimSpace(r.Title) == "" {
		return 0, fmt.Errorf("research title must not be empty")
	}
	if r.Category == "" {
		r.Category = "other"
	}
	if r.Status == "" {
		r.Status = "idea"
	}
	if r.Author == "" {
		r.Author = user
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		ts := now()
		res, err := tx.Exec(
			`INSERT INTO research (title, summary, description, category, status, loom_url, demo_url, github_url, tags, author, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			strings.TrimSpace(r.Title), r.Summary, r.Description, r.Category, r.Status,
			nullable(r.LoomURL), nullable(r.DemoURL), nullable(r.GithubURL),
			encodeTags(r.Tags), r.Author, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("insert research: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("research id: %w", err)
		}
		return addActivity(tx, user, fmt.Sprintf("Created research concept: %s", r.Title))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateResearch replaces every stored field of a knowledge-base entry.
func (s *Store) UpdateResearch(ctx context.Context, id int64, r models.Research, user string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			`UPDATE research SET title=?, summary=?, description=?, category=?, status=?,
             loom_url=?, demo_url=?, github_url=?, tags=?, updated_at=? WHERE id=?`,
			r.Title, r.Summary, r.Description, r.Category, r.Status,
			nullable(r.LoomURL), nullable(r.DemoURL), nullable(r.GithubURL),
			encodeTags(r.Tags), now(), id,
		)
		if err != nil {
			return fmt.Errorf("update research: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return addActivity(tx, user, fmt.Sprintf("Updated research concept: %s", r.Title))
	})
}

// DeleteResearch removes a knowledge-base entry.
func (s *Store) DeleteResearch(ctx context.Context, id int64, user string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var title string
		err := tx.GetContext(ctx, &title, `SELECT title FROM research WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load research: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM research WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete research: %w", err)
		}
		return addActivity(tx, user, fmt.Sprintf("Deleted research concept: %s", title))
	})
}
