package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the specification with its sections, items and attachments,
// each level in position order. All levels are read in one transaction so a
// concurrent Replace is seen either entirely or not at all.
func (s *Store) Get(ctx context.Context, specID, ownerID int64) (Specification, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Specification{}, fmt.Errorf("failed to begin read: %w", err)
	}
	defer tx.Rollback()

	var spec Specification
	var created string
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, project_id, title, created_at FROM specifications WHERE id = ? AND user_id = ?`,
		specID, ownerID).Scan(&spec.ID, &spec.UserID, &spec.ProjectID, &spec.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Specification{}, ErrNotFound
	}
	if err != nil {
		return Specification{}, fmt.Errorf("failed to load specification %d: %w", specID, err)
	}
	spec.CreatedAt = parseTime(created)

	sections, err := loadSections(ctx, tx, specID)
	if err != nil {
		return Specification{}, err
	}
	spec.Sections = sections
	return spec, nil
}

func loadSections(ctx context.Context, tx *sql.Tx, specID int64) ([]Section, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, title, position FROM sections WHERE specification_id = ? ORDER BY position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	sections := []Section{}
	sectionIdx := map[int64]int{}
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.Title, &sec.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sec.Items = []Item{}
		sectionIdx[sec.ID] = len(sections)
		sections = append(sections, sec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT i.id, i.section_id, i.content, i.time_estimate, i.position
		FROM items i JOIN sections s ON s.id = i.section_id
		WHERE s.specification_id = ?
		ORDER BY s.position, i.position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	type itemRef struct{ sec, item int }
	itemIdx := map[int64]itemRef{}
	for rows.Next() {
		var it Item
		var sectionID int64
		var estimate sql.NullInt64
		if err := rows.Scan(&it.ID, &sectionID, &it.Content, &estimate, &it.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if estimate.Valid {
			v := int(estimate.Int64)
			it.TimeEstimate = &v
		}
		it.Attachments = []Attachment{}
		si, ok := sectionIdx[sectionID]
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("item %d references unknown section %d", it.ID, sectionID)
		}
		itemIdx[it.ID] = itemRef{si, len(sections[si].Items)}
		sections[si].Items = append(sections[si].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT a.id, a.item_id, a.file_name, a.locator, a.media_type, a.size_bytes, a.created_at
		FROM attachments a
		JOIN items i ON i.id = a.item_id
		JOIN sections s ON s.id = i.section_id
		WHERE s.specification_id = ?
		ORDER BY a.id`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		ref, ok := itemIdx[a.ItemID]
		if !ok {
			return nil, fmt.Errorf("attachment %d references unknown item %d", a.ID, a.ItemID)
		}
		item := &sections[ref.sec].Items[ref.item]
		item.Attachments = append(item.Attachments, a)
	}
	return sections, rows.Err()
}

// List returns the owner's specifications, newest first, without their hierarchy.
func (s *Store) List(ctx context.Context, ownerID int64) ([]Specification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, title, created_at FROM specifications
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list specifications: %w", err)
	}
	defer rows.Close()

	out := []Specification{}
	for rows.Next() {
		var spec Specification
		var created string
		if err := rows.Scan(&spec.ID, &spec.UserID, &spec.ProjectID, &spec.Title, &created); err != nil {
			return nil, fmt.Errorf("failed to scan specification: %w", err)
		}
		spec.CreatedAt = parseTime(created)
		out = append(out, spec)
	}
	return out, rows.Err()
}

// Delete removes the specification and, by cascade, its whole hierarchy. The
// locators of attachments that lost their rows are returned so the caller can
// remove the files.
func (s *Store) Delete(ctx context.Context, specID, ownerID int64) ([]string, error) {
	var locators []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT a.locator FROM attachments a
			JOIN items i ON i.id = a.item_id
			JOIN sections s ON s.id = i.section_id
			JOIN specifications sp ON sp.id = s.specification_id
			WHERE sp.id = ? AND sp.user_id = ?`, specID, ownerID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		for rows.Next() {
			var loc string
			if err := rows.Scan(&loc); err != nil {
				rows.Close()
				return fmt.Errorf("%w: %w", ErrTransaction, err)
			}
			locators = append(locators, loc)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM specifications WHERE id = ? AND user_id = ?`, specID, ownerID)
		if err != nil {
			return fmt.Errorf("%w: delete specification: %w", ErrTransaction, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locators, nil
}
