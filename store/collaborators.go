package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"auto_spec_builder/generator"
)

func (s *Store) CreateProject(ctx context.Context, ownerID int64, name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("%w: project name is required", generator.ErrValidation)
	}
	created := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (user_id, name, created_at) VALUES (?, ?, ?)`, ownerID, name, created)
	if err != nil {
		return Project{}, fmt.Errorf("%w: insert project: %w", ErrTransaction, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Project{}, fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	return Project{ID: id, UserID: ownerID, Name: name, CreatedAt: parseTime(created)}, nil
}

// FindProjectOwnedBy returns ErrNotFound when the project is missing or belongs to someone else.
func (s *Store) FindProjectOwnedBy(ctx context.Context, projectID, ownerID int64) (Project, error) {
	var p Project
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM projects WHERE id = ? AND user_id = ?`,
		projectID, ownerID).Scan(&p.ID, &p.UserID, &p.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("failed to load project %d: %w", projectID, err)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// ListProjects returns the owner's projects, oldest first.
func (s *Store) ListProjects(ctx context.Context, ownerID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM projects WHERE user_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		var p Project
		var created string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &created); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreatePrompt saves an instruction override. A new default clears the previous one.
func checkPrompt(p Prompt) (Prompt, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return Prompt{}, fmt.Errorf("%w: prompt title is required", generator.ErrValidation)
	}
	if strings.TrimSpace(p.Content) == "" {
		return Prompt{}, fmt.Errorf("%w: prompt content is required", generator.ErrValidation)
	}
	return p, nil
}

func clearDefaultPrompt(ctx context.Context, tx *sql.Tx, ownerID int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET is_default = 0 WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("%w: clear default prompt: %w", ErrTransaction, err)
	}
	return nil
}

func (s *Store) CreatePrompt(ctx context.Context, p Prompt) (Prompt, error) {
	p, err := checkPrompt(p)
	if err != nil {
		return Prompt{}, err
	}
	created := s.timestamp()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if p.IsDefault {
			if err := clearDefaultPrompt(ctx, tx, p.UserID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO prompts (user_id, title, content, is_default, created_at) VALUES (?, ?, ?, ?, ?)`,
			p.UserID, p.Title, p.Content, p.IsDefault, created)
		if err != nil {
			return fmt.Errorf("%w: insert prompt: %w", ErrTransaction, err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		return nil
	})
	if err != nil {
		return Prompt{}, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// UpdatePrompt rewrites title, content and the default flag of an owned
// prompt. Making it the default clears the flag on the owner's other prompts.
func (s *Store) UpdatePrompt(ctx context.Context, p Prompt) (Prompt, error) {
	p, err := checkPrompt(p)
	if err != nil {
		return Prompt{}, err
	}
	var out Prompt
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM prompts WHERE id = ? AND user_id = ?`, p.ID, p.UserID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		if p.IsDefault {
			if err := clearDefaultPrompt(ctx, tx, p.UserID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE prompts SET title = ?, content = ?, is_default = ? WHERE id = ? AND user_id = ?`,
			p.Title, p.Content, p.IsDefault, p.ID, p.UserID); err != nil {
			return fmt.Errorf("%w: update prompt: %w", ErrTransaction, err)
		}
		out, err = scanPrompt(tx.QueryRowContext(ctx,
			`SELECT id, user_id, title, content, is_default, created_at FROM prompts WHERE id = ?`, p.ID))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		return nil
	})
	if err != nil {
		return Prompt{}, err
	}
	return out, nil
}

func (s *Store) ListPrompts(ctx context.Context, ownerID int64) ([]Prompt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, content, is_default, created_at FROM prompts
		WHERE user_id = ? ORDER BY is_default DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	out := []Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePrompt(ctx context.Context, promptID, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ? AND user_id = ?`, promptID, ownerID)
	if err != nil {
		return fmt.Errorf("%w: delete prompt: %w", ErrTransaction, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindPromptOwnedBy returns ErrNotFound when the prompt is missing or belongs to someone else.
func (s *Store) FindPromptOwnedBy(ctx context.Context, promptID, ownerID int64) (Prompt, error) {
	return s.findPrompt(ctx, `WHERE id = ? AND user_id = ?`, promptID, ownerID)
}

// FindDefaultPrompt returns ErrNotFound when the owner has no default prompt.
func (s *Store) FindDefaultPrompt(ctx context.Context, ownerID int64) (Prompt, error) {
	return s.findPrompt(ctx, `WHERE user_id = ? AND is_default = 1`, ownerID)
}

func (s *Store) findPrompt(ctx context.Context, where string, args ...any) (Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, is_default, created_at FROM prompts `+where+` LIMIT 1`, args...)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Prompt{}, ErrNotFound
	}
	return p, err
}

func scanPrompt(r rowScanner) (Prompt, error) {
	var p Prompt
	var created string
	if err := r.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.IsDefault, &created); err != nil {
		return Prompt{}, fmt.Errorf("failed to scan prompt: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}
