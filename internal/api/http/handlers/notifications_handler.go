package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/api/dto"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/auth"
	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/service"
	apperrors "github.com/Vijay-Anand-VJ/helpdesk-service/pkg/util"
)

// NotificationsHandler serves the caller's alert feed.
type NotificationsHandler struct {
	service *service.NotificationService
}

func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListNotifications GET /notifications.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	items, err := h.service.ListForUser(c.Context(), principal.User.ID, parseIntQuery(c, "limit", 10))
	if err != nil {
		return err
	}
	out := make([]dto.NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.NotificationResponse{
			ID:        item.ID,
			TicketID:  item.TicketID,
			Message:   item.Message,
			Kind:      item.Kind,
			IsRead:    item.IsRead,
			CreatedAt: item.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}
