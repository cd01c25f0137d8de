package http

import (
	"sales_server/core/port/in"
	"sales_server/core/service/business"
	"sales_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TokenHandler exposes the caller's token balance and ledger.
type TokenHandler struct {
	tokenService in.TokenService
}

func NewTokenHandler(tokenService in.TokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

func (h *TokenHandler) Register(router fiber.Router) {
	tokens := router.Group("/tokens")
	tokens.Get("/balance", h.Balance)
	tokens.Get("/transactions", h.Transactions)
}

func (h *TokenHandler) Balance(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	balance, err := h.tokenService.Balance(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"tokens": balance})
}

func (h *TokenHandler) Transactions(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	limit := response.Limit(c, business.DefaultTransactionLimit, business.MaxTransactionLimit)
	txs, err := h.tokenService.Transactions(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}
	return response.OKWithMeta(c, txs, &response.Meta{Total: len(txs), Limit: limit})
}
