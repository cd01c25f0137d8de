package http

import (
	"sales_server/core/domain"
	"sales_server/core/port/in"
	"sales_server/infra/middleware"
	"sales_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BusinessHandler serves the business profile, catalog and lead endpoints.
type BusinessHandler struct {
	businessService in.BusinessService
}

func NewBusinessHandler(businessService in.BusinessService) *BusinessHandler {
	return &BusinessHandler{businessService: businessService}
}

func (h *BusinessHandler) Register(router fiber.Router) {
	router.Get("/business", h.GetBusiness)
	router.Put("/business", h.UpdateBusiness)

	products := router.Group("/products")
	products.Get("/", h.ListProducts)
	products.Post("/", h.CreateProduct)
	products.Put("/:id", middleware.ValidateID("id"), h.UpdateProduct)
	products.Delete("/:id", middleware.ValidateID("id"), h.DeleteProduct)

	router.Get("/leads", h.ListLeads)
}

func (h *BusinessHandler) GetBusiness(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	view, err := h.businessService.GetBusiness(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, view)
}

func (h *BusinessHandler) UpdateBusiness(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var req in.UpdateBusinessRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.businessService.UpdateBusiness(c.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return response.OK(c, view)
}

func (h *BusinessHandler) ListProducts(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	products, err := h.businessService.ListProducts(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OKWithMeta(c, products, &response.Meta{Total: len(products)})
}

func (h *BusinessHandler) CreateProduct(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	var input domain.ProductInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	product, err := h.businessService.CreateProduct(c.UserContext(), userID, &input)
	if err != nil {
		return err
	}
	return response.Created(c, product)
}

func (h *BusinessHandler) UpdateProduct(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, _ := c.ParamsInt("id")
	var input domain.ProductInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	product, err := h.businessService.UpdateProduct(c.UserContext(), userID, int64(id), &input)
	if err != nil {
		return err
	}
	return response.OK(c, product)
}

func (h *BusinessHandler) DeleteProduct(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	id, _ := c.ParamsInt("id")
	if err := h.businessService.DeleteProduct(c.UserContext(), userID, int64(id)); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *BusinessHandler) ListLeads(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	leads, err := h.businessService.ListLeads(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return response.OKWithMeta(c, leads, &response.Meta{Total: len(leads)})
}
