package handler

import (
	"context"
	"encoding/json"

	"pdf-assistant-be/internal/dto"
	"pdf-assistant-be/internal/pkg/logger"
	"pdf-assistant-be/internal/service"
	"pdf-assistant-be/pkg/whatsapp"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler terminates the WhatsApp Cloud API webhook: the GET
// verification handshake and POST event deliveries.
type WebhookHandler struct {
	assistant   service.IAssistantService
	log         logger.ILogger
	verifyToken string
	appSecret   string
}

func NewWebhookHandler(assistant service.IAssistantService, log logger.ILogger, verifyToken string, appSecret string) *WebhookHandler {
	return &WebhookHandler{
		assistant:   assistant,
		log:         log,
		verifyToken: verifyToken,
		appSecret:   appSecret,
	}
}

func (h *WebhookHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/webhook", h.Verify)
	r.Post("/webhook", h.Receive)
}

// Verify answers Meta's subscription handshake by echoing hub.challenge.
func (h *WebhookHandler) Verify(ctx *fiber.Ctx) error {
	mode := ctx.Query("hub.mode")
	token := ctx.Query("hub.verify_token")
	challenge := ctx.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		return ctx.SendString(challenge)
	}
	return ctx.SendStatus(fiber.StatusForbidden)
}

// Receive validates the delivery signature and dispatches each inbound
// event. Event failures are logged and answered in-channel; the webhook
// itself always acknowledges accepted deliveries so Meta does not retry.
func (h *WebhookHandler) Receive(ctx *fiber.Ctx) error {
	body := ctx.Body()
	if !whatsapp.ValidSignature(body, ctx.Get("X-Hub-Signature-256"), h.appSecret) {
		h.log.Warn("webhook", "invalid delivery signature", nil)
		return ctx.SendStatus(fiber.StatusForbidden)
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("webhook", "unparsable delivery payload", map[string]interface{}{
			"error": err.Error(),
		})
		return ctx.SendStatus(fiber.StatusBadRequest)
	}

	for _, event := range payload.Events() {
		if err := h.dispatch(ctx.Context(), event); err != nil {
			h.log.Error("webhook", "event handling failed", map[string]interface{}{
				"user": event.User, "kind": string(event.Kind), "error": err.Error(),
			})
		}
	}
	return ctx.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) dispatch(ctx context.Context, event dto.InboundEvent) error {
	switch event.Kind {
	case dto.EventDocumentUploaded:
		return h.assistant.HandleDocument(ctx, event.User, event.MediaID)
	case dto.EventTextMessage:
		return h.assistant.HandleText(ctx, event.User, event.Text)
	case dto.EventButtonPressed:
		return h.assistant.HandleButton(ctx, event.User, event.ButtonID)
	}
	return nil
}
