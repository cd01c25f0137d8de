// Package business manages a tenant's profile, catalog, leads and token
// ledger on behalf of its authenticated users.
package business

import (
	"context"
	"errors"
	"strings"

	"sales_server/core/domain"
	"sales_server/core/port/in"
	"sales_server/core/port/out"
	"sales_server/core/service/catalog"
	"sales_server/pkg/apperr"
	"sales_server/pkg/logger"

	"github.com/google/uuid"
)

// CatalogResolver resolves and invalidates active catalogs.
type CatalogResolver interface {
	Resolve(ctx context.Context, businessID int64) ([]domain.Product, error)
	Invalidate(ctx context.Context, businessID int64)
}

type Service struct {
	userRepo     out.UserRepository
	businessRepo out.BusinessRepository
	productRepo  out.ProductRepository
	leadRepo     out.LeadRepository
	catalog      CatalogResolver
}

var _ in.BusinessService = (*Service)(nil)

func NewService(
	userRepo out.UserRepository,
	businessRepo out.BusinessRepository,
	productRepo out.ProductRepository,
	leadRepo out.LeadRepository,
	resolver CatalogResolver,
) *Service {
	return &Service{
		userRepo:     userRepo,
		businessRepo: businessRepo,
		productRepo:  productRepo,
		leadRepo:     leadRepo,
		catalog:      resolver,
	}
}

func (s *Service) GetBusiness(ctx context.Context, userID uuid.UUID) (*in.BusinessView, error) {
	business, err := s.businessOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, business), nil
}

// UpdateBusiness renames the business and/or replaces its configuration
// document. An empty document clears the inline catalog.
func (s *Service) UpdateBusiness(ctx context.Context, userID uuid.UUID, req *in.UpdateBusinessRequest) (*in.BusinessView, error) {
	business, err := s.businessOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	name, config := business.Name, business.Config
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.InvalidInput("name", "must not be empty")
		}
	}
	if req.Config != nil {
		config = strings.TrimSpace(*req.Config)
		if config != "" {
			if err := catalog.ValidateConfig(config); err != nil {
				return nil, apperr.ValidationFailed(err.Error())
			}
		}
	}

	updated, err := s.businessRepo.Update(ctx, business.ID, name, config)
	if err != nil {
		return nil, apperr.DatabaseError("update business", err)
	}
	s.catalog.Invalidate(ctx, business.ID)

	logger.WithContext(ctx).WithField("business_id", business.ID).Info("[BusinessService.UpdateBusiness] business updated")
	return s.view(ctx, updated), nil
}

func (s *Service) ListProducts(ctx context.Context, userID uuid.UUID) ([]domain.Product, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListByBusiness(ctx, user.BusinessID)
	if err != nil {
		return nil, apperr.DatabaseError("list products", err)
	}
	return products, nil
}

func (s *Service) CreateProduct(ctx context.Context, userID uuid.UUID, input *domain.ProductInput) (*domain.Product, error) {
	if err := validateProduct(input); err != nil {
		return nil, err
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.Create(ctx, user.BusinessID, input)
	if err != nil {
		return nil, apperr.DatabaseError("create product", err)
	}
	s.catalog.Invalidate(ctx, user.BusinessID)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, userID uuid.UUID, productID int64, input *domain.ProductInput) (*domain.Product, error) {
	if err := validateProduct(input); err != nil {
		return nil, err
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.Update(ctx, user.BusinessID, productID, input)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, apperr.DatabaseError("update product", err)
	}
	s.catalog.Invalidate(ctx, user.BusinessID)
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, userID uuid.UUID, productID int64) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, user.BusinessID, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("product")
		}
		return apperr.DatabaseError("delete product", err)
	}
	s.catalog.Invalidate(ctx, user.BusinessID)
	return nil
}

func (s *Service) ListLeads(ctx context.Context, userID uuid.UUID) ([]domain.Lead, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	leads, err := s.leadRepo.ListByBusiness(ctx, user.BusinessID)
	if err != nil {
		return nil, apperr.DatabaseError("list leads", err)
	}
	return leads, nil
}

// CreateAccount creates a business and its owning user. The business name
// defaults to the owner's full name.
func (s *Service) CreateAccount(ctx context.Context, req *in.CreateAccountRequest) (*domain.Business, *domain.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, nil, apperr.MissingField("email")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, nil, apperr.MissingField("full_name")
	}
	name := strings.TrimSpace(req.BusinessName)
	if name == "" {
		name = fullName
	}
	config := strings.TrimSpace(req.Config)
	if config != "" {
		if err := catalog.ValidateConfig(config); err != nil {
			return nil, nil, apperr.ValidationFailed(err.Error())
		}
	}

	business, err := s.businessRepo.Create(ctx, name, config)
	if err != nil {
		return nil, nil, apperr.DatabaseError("create business", err)
	}
	user := &domain.User{BusinessID: business.ID, FullName: fullName, Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, nil, apperr.AlreadyExists("user").WithDetail("email", email)
		}
		return nil, nil, apperr.DatabaseError("create user", err)
	}

	logger.WithContext(ctx).WithField("business_id", business.ID).Info("[BusinessService.CreateAccount] account created for %s", email)
	return business, user, nil
}

func (s *Service) view(ctx context.Context, business *domain.Business) *in.BusinessView {
	cfg, err := catalog.ConfigFor(business)
	if err != nil {
		logger.WithField("business_id", business.ID).Warn("[BusinessService.view] stored config ignored: %v", err)
	}

	products, err := s.catalog.Resolve(ctx, business.ID)
	if err != nil {
		logger.WithError(err).Warn("[BusinessService.view] catalog unavailable for business %d", business.ID)
		products = []domain.Product{}
	}

	return &in.BusinessView{
		ID:        business.ID,
		Name:      business.Name,
		Config:    cfg,
		Catalog:   products,
		CreatedAt: business.CreatedAt,
	}
}

func (s *Service) businessOf(ctx context.Context, userID uuid.UUID) (*domain.Business, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	business, err := s.businessRepo.GetByID(ctx, user.BusinessID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("business")
		}
		return nil, apperr.DatabaseError("get business", err)
	}
	return business, nil
}

func (s *Service) user(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.DatabaseError("get user", err)
	}
	return user, nil
}

func validateProduct(input *domain.ProductInput) error {
	if input == nil {
		return apperr.MissingField("product")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return apperr.MissingField("name")
	}
	if input.Price != nil && *input.Price < 0 {
		return apperr.InvalidInput("price", "must not be negative")
	}
	return nil
}
