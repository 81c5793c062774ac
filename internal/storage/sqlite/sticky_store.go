package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

const stickyColumns = `
	id, source_type, source_id, original_content, extracted_text, category,
	importance_score, urgency_score, relevance_score, confidence_score,
	amount, timeline, counterparty_name, counterparty_role, company, contact_email,
	memory_id, status, follow_up_date, created_at, updated_at`

// CreateSticky inserts a sticky note unless one with the same ID exists.
func (s *Store) CreateSticky(ctx context.Context, note *types.StickyNote) (bool, error) {
	if note == nil {
		return false, storage.ErrInvalidInput
	}
	if note.ID == "" {
		return false, fmt.Errorf("%w: sticky ID is required", storage.ErrInvalidInput)
	}
	if !types.IsValidStickyCategory(note.Category) {
		return false, fmt.Errorf("%w: unknown sticky category %q", storage.ErrInvalidInput, note.Category)
	}

	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	if note.Status == "" {
		note.Status = types.StickyActive
	}

	query := `INSERT INTO sticky_notes (` + stickyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query,
		note.ID, note.SourceType, note.SourceID, note.OriginalContent, note.ExtractedText, string(note.Category),
		note.ImportanceScore, note.UrgencyScore, note.RelevanceScore, note.ConfidenceScore,
		nullableString(note.Amount), nullableString(note.Timeline),
		nullableString(note.CounterpartyName), nullableString(note.CounterpartyRole),
		nullableString(note.Company), nullableString(note.ContactEmail),
		nullableString(note.MemoryID), string(note.Status),
		utc(note.FollowUpDate), utc(note.CreatedAt), utc(note.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to insert sticky note: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// GetSticky retrieves a sticky note by ID.
func (s *Store) GetSticky(ctx context.Context, id string) (*types.StickyNote, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: sticky ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+stickyColumns+` FROM sticky_notes WHERE id = ?`, id)
	note, err := scanSticky(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get sticky note: %w", err)
	}
	return note, nil
}

// ListStickies returns notes matching the filter, newest first.
func (s *Store) ListStickies(ctx context.Context, filter storage.StickyFilter) ([]*types.StickyNote, error) {
	filter.Normalize()

	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.SourceType != "" {
		where = append(where, "source_type = ?")
		args = append(args, filter.SourceType)
	}
	if filter.SourceID != "" {
		where = append(where, "source_id = ?")
		args = append(args, filter.SourceID)
	}

	query := `SELECT ` + stickyColumns + ` FROM sticky_notes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list sticky notes: %w", err)
	}
	defer rows.Close()

	var notes []*types.StickyNote
	for rows.Next() {
		note, err := scanSticky(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan sticky note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// UpdateStickyStatus performs a compare-and-set on the status column.
func (s *Store) UpdateStickyStatus(ctx context.Context, id string, from, to types.StickyStatus, at time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: sticky ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sticky_notes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), utc(at), id, string(from))
	if err != nil {
		return fmt.Errorf("sqlite: failed to update sticky status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := s.GetSticky(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is no longer %s", types.ErrInvalidTransition, id, from)
}

// SetStickyMemory records the id of the parallel memory entry.
func (s *Store) SetStickyMemory(ctx context.Context, id, memoryID string) error {
	if id == "" || memoryID == "" {
		return fmt.Errorf("%w: sticky ID and memory ID are required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sticky_notes SET memory_id = ?, updated_at = ? WHERE id = ?`,
		memoryID, utc(time.Now()), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to link sticky memory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSticky(row rowScanner) (*types.StickyNote, error) {
	var (
		note                                      types.StickyNote
		category, status                          string
		amount, timeline, cpName, cpRole, company sql.NullString
		contactEmail, memoryID                    sql.NullString
	)

	err := row.Scan(
		&note.ID, &note.SourceType, &note.SourceID, &note.OriginalContent, &note.ExtractedText, &category,
		&note.ImportanceScore, &note.UrgencyScore, &note.RelevanceScore, &note.ConfidenceScore,
		&amount, &timeline, &cpName, &cpRole, &company, &contactEmail,
		&memoryID, &status, &note.FollowUpDate, &note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	note.Category = types.StickyCategory(category)
	note.Status = types.StickyStatus(status)
	note.Amount = amount.String
	note.Timeline = timeline.String
	note.CounterpartyName = cpName.String
	note.CounterpartyRole = cpRole.String
	note.Company = company.String
	note.ContactEmail = contactEmail.String
	note.MemoryID = memoryID.String
	return &note, nil
}
