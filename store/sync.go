package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"auto_spec_builder/generator"

	"go.uber.org/zap"
)

// CreateFromTree stores tree as a new specification of projectID. The project
// must belong to ownerID. The whole hierarchy is written in one transaction;
// positions follow the order of the supplied slices.
func (s *Store) CreateFromTree(ctx context.Context, tree generator.Tree, ownerID, projectID int64) (int64, error) {
	var specID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM projects WHERE id = ? AND user_id = ?`, projectID, ownerID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrParentNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: check project: %w", ErrTransaction, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO specifications (user_id, project_id, title, created_at) VALUES (?, ?, ?, ?)`,
			ownerID, projectID, resolveTitle("", tree), s.timestamp())
		if err != nil {
			return fmt.Errorf("%w: insert specification: %w", ErrTransaction, err)
		}
		if specID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		return insertHierarchy(ctx, tx, specID, tree.Sections)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("specification created",
		zap.Int64("spec_id", specID),
		zap.Int64("project_id", projectID),
		zap.Int("sections", len(tree.Sections)))
	return specID, nil
}

// Replace swaps the whole hierarchy of specID for tree and updates the title.
// Deletion and recreation commit together or not at all. Attachments under the
// old items lose their rows; their files are left for the reaper.
func (s *Store) Replace(ctx context.Context, specID, ownerID int64, title string, tree generator.Tree) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM specifications WHERE id = ? AND user_id = ?`, specID, ownerID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: check specification: %w", ErrTransaction, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE specification_id = ?`, specID); err != nil {
			return fmt.Errorf("%w: delete sections: %w", ErrTransaction, err)
		}
		if err := insertHierarchy(ctx, tx, specID, tree.Sections); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE specifications SET title = ? WHERE id = ?`, resolveTitle(title, tree), specID); err != nil {
			return fmt.Errorf("%w: update title: %w", ErrTransaction, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("specification replaced",
		zap.Int64("spec_id", specID),
		zap.Int("sections", len(tree.Sections)))
	return nil
}

func insertHierarchy(ctx context.Context, tx execer, specID int64, sections []generator.Section) error {
	for i, sec := range sections {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sections (specification_id, title, position) VALUES (?, ?, ?)`,
			specID, sec.Title, i)
		if err != nil {
			return fmt.Errorf("%w: insert section %d: %w", ErrTransaction, i, err)
		}
		sectionID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		for j, it := range sec.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO items (section_id, content, time_estimate, position) VALUES (?, ?, ?, ?)`,
				sectionID, it.Content, nullableInt(it.TimeEstimate), j); err != nil {
				return fmt.Errorf("%w: insert item %d.%d: %w", ErrTransaction, i, j, err)
			}
		}
	}
	return nil
}

// resolveTitle prefers an explicit title, then the tree's own, then the placeholder.
func resolveTitle(title string, tree generator.Tree) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if t := strings.TrimSpace(tree.Title); t != "" {
		return t
	}
	return generator.UntitledTitle
}
