package domain

import "time"

// NoteAuthorType indicates who authored a note.
type NoteAuthorType string

const (
	NoteAuthorCustomer NoteAuthorType = "CUSTOMER"
	NoteAuthorStaff    NoteAuthorType = "STAFF"
	NoteAuthorSystem   NoteAuthorType = "SYSTEM"
)

// Note is a threaded message on a ticket. Internal notes are hidden from
// customers. System notes are written by the SLA scheduler; since no
// system account exists, AuthorID carries the ticket owner's id as the
// author of record while AuthorType marks the true origin.
type Note struct {
	ID            string
	TicketID      string
	AuthorID      string
	AuthorType    NoteAuthorType
	Body          string
	IsInternal    bool
	AttachmentKey *string
	CreatedAt     time.Time
}
