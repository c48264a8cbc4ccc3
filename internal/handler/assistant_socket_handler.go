package handler

import (
	"context"
	"encoding/json"
	"strings"

	"ai-salesops-be/internal/dto"
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/internal/pkg/serverutils"
	"ai-salesops-be/internal/service"
	internalWS "ai-salesops-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Frame is the JSON envelope of every server-to-client websocket message.
type Frame struct {
	Type  string      `json:"type"` // "session", "thinking", "reply", "error", "activity"
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type inboundFrame struct {
	Message string `json:"message"`
}

type AssistantSocketHandler struct {
	assistant service.IAssistantService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewAssistantSocketHandler(assistant service.IAssistantService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *AssistantSocketHandler {
	return &AssistantSocketHandler{
		assistant: assistant,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the handshake, then upgrades to a chat socket bound
// to the session in the path. Unknown sessions are created on connect.
func (h *AssistantSocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	if h.jwtSecret != "" {
		tokenStr := serverutils.BearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (query 'token' or Authorization header)"))
		}
		if _, err := serverutils.ParseToken(tokenStr, h.jwtSecret); err != nil {
			h.logger.Warn("WEBSOCKET", "Invalid token in handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
	}

	session, err := h.assistant.EnsureSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WEBSOCKET", "Chat socket opened", map[string]interface{}{"session_id": session.Id})
		// Written before the pumps start, so no concurrent writer exists yet.
		if err := conn.WriteJSON(Frame{Type: "session", Data: session}); err != nil {
			return
		}
		internalWS.ServeWs(h.hub, conn, session.Id, h.onMessage)
		h.logger.Info("WEBSOCKET", "Chat socket closed", map[string]interface{}{"session_id": session.Id})
	})(c)
}

func (h *AssistantSocketHandler) onMessage(client *internalWS.Client, payload []byte) {
	var in inboundFrame
	if err := json.Unmarshal(payload, &in); err != nil || strings.TrimSpace(in.Message) == "" {
		h.send(client.SessionID, Frame{Type: "error", Error: `expected {"message": "..."}`})
		return
	}

	h.send(client.SessionID, Frame{Type: "thinking"})

	resp, err := h.assistant.Chat(context.Background(), &dto.SendChatRequest{
		SessionId: client.SessionID,
		Message:   in.Message,
	})
	if err != nil {
		h.send(client.SessionID, Frame{Type: "error", Error: err.Error()})
		return
	}
	h.send(client.SessionID, Frame{Type: "reply", Data: resp})
}

func (h *AssistantSocketHandler) send(sessionID string, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("WEBSOCKET", "Failed to encode frame", map[string]interface{}{"error": err.Error()})
		return
	}
	h.hub.Send(sessionID, data)
}

func (h *AssistantSocketHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/assistant/:id", h.ServeWs)
}
