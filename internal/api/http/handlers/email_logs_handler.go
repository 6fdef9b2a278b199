package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
)

// EmailLogsHandler exposes the delivery ledger to agents so failed
// sends are visible without database access.
type EmailLogsHandler struct {
	ledger *mailer.Ledger
}

// NewEmailLogsHandler constructs handler.
func NewEmailLogsHandler(ledger *mailer.Ledger) *EmailLogsHandler {
	return &EmailLogsHandler{ledger: ledger}
}

// List GET /api/email-logs.
func (h *EmailLogsHandler) List(c *fiber.Ctx) error {
	logs, err := h.ledger.Recent(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	items := make([]dto.EmailLogResponse, 0, len(logs))
	for _, log := range logs {
		items = append(items, dto.EmailLogResponse{
			ID:           log.ID,
			Recipient:    log.Recipient,
			Subject:      log.Subject,
			Status:       string(log.Status),
			TicketID:     log.TicketID,
			ErrorMessage: log.ErrorMessage,
			SentAt:       log.SentAt,
			CreatedAt:    log.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
