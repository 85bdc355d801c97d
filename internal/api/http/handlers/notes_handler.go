package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/api/dto"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/auth"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/service"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// NotesHandler manages the ticket note thread endpoints.
type NotesHandler struct {
	service *service.NoteService
}

func NewNotesHandler(noteService *service.NoteService) *NotesHandler {
	return &NotesHandler{service: noteService}
}

// ListNotes GET /tickets/:id/notes.
func (h *NotesHandler) ListNotes(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notes, err := h.service.ListNotes(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, noteResponse(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddNote POST /tickets/:id/notes.
func (h *NotesHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(req); err != nil {
		return apperrors.NewValidationError("body is required", nil)
	}

	note, err := h.service.AddNote(c.Context(), principal.User, c.Params("id"), service.NoteCreateInput{
		Body:          req.Body,
		IsInternal:    req.IsInternal,
		AttachmentKey: req.AttachmentKey,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

func noteResponse(note *domain.Note) dto.NoteResponse {
	return dto.NoteResponse{
		ID:            note.ID,
		TicketID:      note.TicketID,
		AuthorID:      note.AuthorID,
		AuthorType:    note.AuthorType,
		Body:          note.Body,
		IsInternal:    note.IsInternal,
		AttachmentKey: note.AttachmentKey,
		CreatedAt:     note.CreatedAt,
	}
}
