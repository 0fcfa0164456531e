package index

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/roach88/mailpat/internal/mailbox"
)

// Digest returns the content digest used to detect changed messages.
func Digest(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Add indexes m under its Message-ID. A message whose content digest is
// unchanged since it was last indexed is skipped; the result reports
// whether the row was written. Messages without a Message-ID cannot be
// searched and are skipped.
func (ix *Index) Add(ctx context.Context, m *mailbox.Message) (bool, error) {
	id := m.MessageID()
	if id == "" {
		ix.logger.Debug("skipping message without Message-ID", "message", m.Number(), "path", m.Path)
		return false, nil
	}

	digest := Digest(m.Raw)
	var existing string
	err := ix.db.QueryRowContext(ctx, `SELECT digest FROM messages WHERE message_id = ?`, id).Scan(&existing)
	switch {
	case err == nil && existing == digest:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("add %s: %w", id, err)
	}

	header, err := m.Header(true)
	if err != nil {
		return false, fmt.Errorf("add %s: %w", id, err)
	}
	body, err := m.Body(true)
	if err != nil {
		return false, fmt.Errorf("add %s: %w", id, err)
	}

	_, err = ix.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, path, subject, header, body, digest, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			path = excluded.path,
			subject = excluded.subject,
			header = excluded.header,
			body = excluded.body,
			digest = excluded.digest,
			indexed_at = excluded.indexed_at
	`, id, m.Path, m.Subject(), header, body, digest, ix.clock.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("add %s: %w", id, err)
	}
	return true, nil
}

// AddMailbox indexes every message of mb and returns how many rows were
// written and how many were skipped.
func (ix *Index) AddMailbox(ctx context.Context, mb *mailbox.Mailbox) (written, skipped int, err error) {
	for _, m := range mb.Messages() {
		ok, err := ix.Add(ctx, m)
		if err != nil {
			return written, skipped, err
		}
		if ok {
			written++
		} else {
			skipped++
		}
	}
	ix.logger.Info("indexed mailbox", "written", written, "skipped", skipped)
	return written, skipped, nil
}

// Remove deletes a message from the index.
func (ix *Index) Remove(ctx context.Context, messageID string) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM messages WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("remove %s: %w", messageID, err)
	}
	return nil
}
