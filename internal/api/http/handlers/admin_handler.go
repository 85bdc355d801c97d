package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/api/dto"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/auth"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/domain"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/repository"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/service"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// AdminHandler covers account management and the audit trail.
type AdminHandler struct {
	service *service.UserService
}

func NewAdminHandler(userService *service.UserService) *AdminHandler {
	return &AdminHandler{service: userService}
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if role := strings.ToUpper(c.Query("role")); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := domain.UserStatus(status)
		filter.Status = &s
	}

	users, err := h.service.ListUsers(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.service.UpdateUser(c.Context(), principal.User, c.Params("id"), service.UserUpdateInput{
		Role:       req.Role,
		Status:     req.Status,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// ListActivity GET /admin/activity.
func (h *AdminHandler) ListActivity(c *fiber.Ctx) error {
	entries, err := h.service.ListActivity(c.Context(), parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fiber.Map{
			"id":         entry.ID,
			"user_id":    entry.UserID,
			"action":     entry.Action,
			"details":    entry.Details,
			"ip":         entry.IP,
			"created_at": entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
