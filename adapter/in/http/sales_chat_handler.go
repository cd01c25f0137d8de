package http

import (
	"sales_server/core/port/in"
	"sales_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	chatService in.ChatService
}

func NewChatHandler(chatService in.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Register registers the authenticated chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	chat := router.Group("/chat")
	chat.Post("/", h.Chat)
	chat.Get("/history", h.History)
	chat.Delete("/history", h.ClearHistory)
}

// RegisterDemo registers the public demo route on the /demo group.
func (h *ChatHandler) RegisterDemo(router fiber.Router) {
	router.Post("/chat", h.DemoChat)
}

// Chat runs one metered chat turn for the authenticated user.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.ChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.UserID = userID
	req.DemoMode = false

	reply, err := h.chatService.HandleMessage(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return response.OK(c, reply)
}

// DemoChat runs an unmetered turn against the demo catalog.
func (h *ChatHandler) DemoChat(c *fiber.Ctx) error {
	var req in.ChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.DemoMode = true

	reply, err := h.chatService.HandleMessage(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return response.OK(c, reply)
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	limit := response.Limit(c, 50, 50)
	records, err := h.chatService.History(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}
	return response.OKWithMeta(c, records, &response.Meta{Total: len(records), Limit: limit})
}

func (h *ChatHandler) ClearHistory(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	deleted, err := h.chatService.ClearHistory(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"deleted": deleted})
}
