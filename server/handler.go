// Package server exposes the gateway over HTTP. Handlers translate transport
// concerns (body parsing, status codes) and delegate everything else to the
// orchestrator and backends.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	"github.com/rs/zerolog/log"
)

const chatLogTimeout = 5 * time.Second

// ChatService is what the chat endpoint needs from the orchestrator.
type ChatService interface {
	Handle(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error)
}

type Handler struct {
	chat    ChatService
	compute contractx.Compute
	logs    contractx.ChatLogStore
	version string
}

func NewHandler(chat ChatService, compute contractx.Compute, logs contractx.ChatLogStore, version string) *Handler {
	return &Handler{chat: chat, compute: compute, logs: logs, version: version}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

type successResponse struct {
	Success  bool                    `json:"success"`
	Type     contractx.Intent        `json:"type"`
	Category string                  `json:"category,omitempty"`
	Data     map[string]any          `json:"data"`
	Messages []contractx.ChatMessage `json:"messages,omitempty"`
	Metadata map[string]any          `json:"metadata"`
}

func (h *Handler) HandleChat(c *fiber.Ctx) error {
	var req contractx.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Error: errorBody{Code: "malformed_body", Message: "invalid request body"},
		})
	}

	resp, err := h.chat.Handle(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	h.saveChatLog(req, resp)

	return c.Status(fiber.StatusOK).JSON(successResponse{
		Success:  true,
		Type:     resp.Result.Intent,
		Category: resp.Result.Category,
		Data:     resp.Result.Payload,
		Messages: resp.Messages,
		Metadata: map[string]any{
			"trace_id":     resp.TraceID,
			"generated_at": resp.Meta.GeneratedAt,
			"mock":         resp.Meta.Mock,
		},
	})
}

// saveChatLog persists the exchanged turn in the background. Logging failures
// never surface to the caller.
func (h *Handler) saveChatLog(req contractx.ChatRequest, resp contractx.ChatResponse) {
	if h.logs == nil {
		return
	}

	botResponse := ""
	if len(resp.Messages) > 0 {
		botResponse = resp.Messages[0].Content
	}
	rec := contractx.ChatLog{
		SessionID:   req.UserID,
		UserMessage: req.Message,
		BotResponse: botResponse,
		TraceID:     resp.TraceID,
		Intent:      string(resp.Result.Intent),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chatLogTimeout)
		defer cancel()
		if err := h.logs.Save(ctx, rec); err != nil {
			log.Warn().Err(err).Str("trace_id", rec.TraceID).Msg("chat log save failed")
		}
	}()
}

type calcRequest struct {
	Category string         `json:"category"`
	Params   map[string]any `json:"params"`
	UserID   string         `json:"user_id,omitempty"`
}

// HandleCalc runs a calculation directly, bypassing classification.
func (h *Handler) HandleCalc(c *fiber.Ctx) error {
	var req calcRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Error: errorBody{Code: "malformed_body", Message: "invalid request body"},
		})
	}
	if strings.TrimSpace(req.Category) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: errorBody{Code: "invalid_request", Message: "category is required", Field: "category"},
		})
	}

	result, err := h.compute.Run(c.Context(), req.Category, req.Params, req.UserID)
	if err != nil {
		return writeError(c, err)
	}

	data := map[string]any{}
	if result.Calculational != nil {
		data["values"] = result.Calculational.Values
		if result.Calculational.Explanation != "" {
			data["explanation"] = result.Calculational.Explanation
		}
	}
	return c.Status(fiber.StatusOK).JSON(successResponse{
		Success:  true,
		Type:     contractx.IntentCalculational,
		Category: result.Category,
		Data:     data,
		Metadata: map[string]any{"mock": result.Mock},
	})
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": h.version,
	})
}

func (h *Handler) HandleLogs(c *fiber.Ctx) error {
	if h.logs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{
			Error: errorBody{Code: "logs_unavailable", Message: "chat log store is not configured"},
		})
	}

	sessionID := c.Query("session_id")
	if strings.TrimSpace(sessionID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: errorBody{Code: "invalid_request", Message: "session_id is required", Field: "session_id"},
		})
	}

	logs, err := h.logs.ListRecent(c.Context(), sessionID, c.QueryInt("limit"))
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("chat log listing failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: errorBody{Code: "internal", Message: "failed to list chat logs"},
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "logs": logs})
}

// writeError maps the gateway error taxonomy onto HTTP statuses. The trace id
// travels in the body whenever the failure carries one.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal"

	switch {
	case errors.Is(err, contractx.ErrBackendTimeout):
		status, code = fiber.StatusGatewayTimeout, "backend_timeout"
	case errors.Is(err, contractx.ErrBackendExecution):
		status, code = fiber.StatusBadGateway, "backend_execution"
	case errors.Is(err, contractx.ErrMissingParameter):
		status, code = fiber.StatusBadRequest, "missing_parameter"
	case errors.Is(err, contractx.ErrIntentCategoryMismatch):
		status, code = fiber.StatusBadRequest, "intent_category_mismatch"
	case errors.Is(err, contractx.ErrUnclassifiableIntent):
		status, code = fiber.StatusBadRequest, "unclassifiable_intent"
	case errors.Is(err, contractx.ErrInvalidRequest):
		status, code = fiber.StatusBadRequest, "invalid_request"
	}

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "internal gateway error"
		log.Error().Err(err).Msg("unmapped gateway error")
	}

	return c.Status(status).JSON(errorResponse{
		Error:   errorBody{Code: code, Message: message},
		TraceID: contractx.TraceID(err),
	})
}
