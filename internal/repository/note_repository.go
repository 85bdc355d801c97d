package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
)

// NoteRepository manages ticket thread notes.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Note, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	const query = `
        INSERT INTO notes (ticket_id, author_user_id, author_type, body, is_internal, attachment_key)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.TicketID,
		note.AuthorID,
		note.AuthorType,
		note.Body,
		note.IsInternal,
		note.AttachmentKey,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *noteRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Note, error) {
	query := `
        SELECT id, ticket_id, author_user_id, author_type, body, is_internal, attachment_key, created_at
        FROM notes WHERE ticket_id=$1 ORDER BY created_at ASC`
	if !includeInternal {
		query = `
        SELECT id, ticket_id, author_user_id, author_type, body, is_internal, attachment_key, created_at
        FROM notes WHERE ticket_id=$1 AND is_internal=FALSE ORDER BY created_at ASC`
	}
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.TicketID,
			&note.AuthorID,
			&note.AuthorType,
			&note.Body,
			&note.IsInternal,
			&note.AttachmentKey,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
