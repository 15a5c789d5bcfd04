package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttachment(r rowScanner) (Attachment, error) {
	var a Attachment
	var created string
	if err := r.Scan(&a.ID, &a.ItemID, &a.FileName, &a.Locator, &a.MediaType, &a.Size, &created); err != nil {
		return Attachment{}, fmt.Errorf("failed to scan attachment: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}

// AddAttachment records a stored file against an item the owner can reach.
func (s *Store) AddAttachment(ctx context.Context, ownerID int64, a Attachment) (Attachment, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM items i
		JOIN sections s ON s.id = i.section_id
		JOIN specifications sp ON sp.id = s.specification_id
		WHERE i.id = ? AND sp.user_id = ?`, a.ItemID, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return Attachment{}, ErrNotFound
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to check item %d: %w", a.ItemID, err)
	}

	created := s.timestamp()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (item_id, file_name, locator, media_type, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ItemID, a.FileName, a.Locator, a.MediaType, a.Size, created)
	if err != nil {
		return Attachment{}, fmt.Errorf("%w: insert attachment: %w", ErrTransaction, err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return Attachment{}, fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	a.CreatedAt = parseTime(created)
	return a, nil
}

// DeleteAttachment removes the attachment row and returns it so the caller can
// remove the file it pointed at.
func (s *Store) DeleteAttachment(ctx context.Context, ownerID, attachmentID int64) (Attachment, error) {
	var a Attachment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT a.id, a.item_id, a.file_name, a.locator, a.media_type, a.size_bytes, a.created_at
			FROM attachments a
			JOIN items i ON i.id = a.item_id
			JOIN sections s ON s.id = i.section_id
			JOIN specifications sp ON sp.id = s.specification_id
			WHERE a.id = ? AND sp.user_id = ?`, attachmentID, ownerID)
		var err error
		a, err = scanAttachment(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, attachmentID); err != nil {
			return fmt.Errorf("%w: delete attachment: %w", ErrTransaction, err)
		}
		return nil
	})
	return a, err
}

// AttachmentLocators returns every locator that still has an owning row.
func (s *Store) AttachmentLocators(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT locator FROM attachments`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment locators: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("failed to scan locator: %w", err)
		}
		out[loc] = struct{}{}
	}
	return out, rows.Err()
}
