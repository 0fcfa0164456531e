package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/pattern"
)

// column maps a searchable field to its SQL expression.
func column(field pattern.Kind) (string, error) {
	switch field {
	case pattern.KindBody:
		return "body", nil
	case pattern.KindHeader:
		return "header", nil
	case pattern.KindWholeMessage:
		return "header || char(10) || body", nil
	}
	return "", fmt.Errorf("index: field %s is not searchable", field)
}

// Search reports whether the indexed text of msg contains text in field.
// Case folding is ASCII only, as in SQLite's lower().
func (ix *Index) Search(ctx context.Context, msg mail.Message, field pattern.Kind, text string, ignoreCase bool) (bool, error) {
	col, err := column(field)
	if err != nil {
		return false, err
	}
	cond := fmt.Sprintf("instr(%s, ?) > 0", col)
	if ignoreCase {
		cond = fmt.Sprintf("instr(lower(%s), lower(?)) > 0", col)
	}

	var found bool
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE message_id = ?`, cond)
	err = ix.db.QueryRowContext(ctx, query, text, msg.MessageID()).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %q", ErrNotIndexed, msg.MessageID())
	}
	if err != nil {
		return false, fmt.Errorf("search %s: %w", msg.MessageID(), err)
	}
	return found, nil
}

// MessageIDs runs a "~I" query: every whitespace-separated term must occur
// in the subject, header or body, ignoring case. A term of the form
// field:value restricts it to subject, header or body. IDs are returned in
// sorted order.
func (ix *Index) MessageIDs(query string) ([]string, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("index: empty query")
	}

	var (
		conds []string
		args  []any
	)
	for _, term := range terms {
		col := "subject || char(10) || header || char(10) || body"
		if field, value, ok := strings.Cut(term, ":"); ok && value != "" {
			switch field {
			case "subject", "header", "body":
				col, term = field, value
			}
		}
		conds = append(conds, fmt.Sprintf("instr(lower(%s), lower(?)) > 0", col))
		args = append(args, term)
	}

	q := `SELECT message_id FROM messages WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY message_id`
	rows, err := ix.db.QueryContext(context.Background(), q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("query %q: %w", query, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	ix.logger.Debug("external query", "query", query, "matches", len(ids))
	return ids, nil
}
